package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"medfund/internal/platform/middleware"
	id "medfund/pkg/domain"
	dErrors "medfund/pkg/domain-errors"
)

// Manager mints and validates wallet session tokens. A token is only ever
// minted after a challenge was consumed successfully, so holding one proves
// control of the wallet's key as of IssuedAt.
type Manager struct {
	signingKey []byte
	ttl        time.Duration
}

func NewManager(signingKey string, ttl time.Duration) *Manager {
	return &Manager{signingKey: []byte(signingKey), ttl: ttl}
}

type sessionClaims struct {
	Wallet string `json:"wallet"`
	jwt.RegisteredClaims
}

// Issue mints a wallet session token valid for the configured TTL.
func (m *Manager) Issue(wallet id.WalletAddress, now time.Time) (string, error) {
	claims := sessionClaims{
		Wallet: wallet.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   wallet.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			Issuer:    "medfund",
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign wallet session token: %w", err)
	}
	return signed, nil
}

// ValidateToken implements middleware.WalletTokenValidator.
func (m *Manager) ValidateToken(tokenString string) (*middleware.WalletClaims, error) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return m.signingKey, nil
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid wallet session token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid wallet session token")
	}
	wallet, err := id.ParseWalletAddress(claims.Wallet)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "token carries malformed wallet address")
	}
	return &middleware.WalletClaims{Wallet: wallet}, nil
}
