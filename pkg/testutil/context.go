package testutil

import (
	"net/http"
	"time"

	id "medfund/pkg/domain"
	"medfund/pkg/requestcontext"
)

// WithWallet binds a wallet address to the request context, simulating what
// the wallet-session middleware does for authenticated requests. Invalid
// addresses are silently ignored.
func WithWallet(req *http.Request, wallet string) *http.Request {
	parsed, err := id.ParseWalletAddress(wallet)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithWallet(req.Context(), parsed))
}

// WithRequestTime pins the request-scoped clock, so handlers under test see
// a deterministic now.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
