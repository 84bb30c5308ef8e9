package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "medfund/pkg/domain"
	"medfund/pkg/requestcontext"
)

// WalletTokenValidator validates a wallet session token minted after a
// successful challenge verification.
type WalletTokenValidator interface {
	ValidateToken(tokenString string) (*WalletClaims, error)
}

// WalletClaims is the subset of session claims the middleware propagates.
type WalletClaims struct {
	Wallet id.WalletAddress
}

// RequireWallet enforces a valid wallet session on state-mutating routes.
// There is deliberately no header-trust fallback: the only way to act as a
// wallet is to have consumed a challenge for it.
func RequireWallet(validator WalletTokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing wallet token",
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "missing or invalid Authorization header")
				return
			}
			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid wallet token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "invalid or expired token")
				return
			}
			ctx = requestcontext.WithWallet(ctx, claims.Wallet)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
