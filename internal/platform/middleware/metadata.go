package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"medfund/pkg/requestcontext"
)

// ClientMetadata captures client IP and a parsed device summary for audit
// attribution. The summary is "browser/version os", never the raw UA string.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), clientIP(r), deviceSummary(r.UserAgent()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// First hop is the original client.
		if idx := strings.IndexByte(fwd, ','); idx > 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func deviceSummary(rawUA string) string {
	if rawUA == "" {
		return ""
	}
	ua := useragent.New(rawUA)
	browser, version := ua.Browser()
	parts := make([]string, 0, 2)
	if browser != "" {
		if version != "" {
			browser += "/" + version
		}
		parts = append(parts, browser)
	}
	if os := ua.OS(); os != "" {
		parts = append(parts, os)
	}
	return strings.Join(parts, " ")
}
