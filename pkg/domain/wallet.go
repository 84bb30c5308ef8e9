package domain

import (
	"strings"

	dErrors "medfund/pkg/domain-errors"
)

// WalletAddress is a lowercase 0x-prefixed hex address (20 bytes, 40 hex
// characters). Addresses are normalized at parse time so map lookups and
// uniqueness checks never depend on caller casing.
type WalletAddress string

const walletAddressHexLen = 40

// ParseWalletAddress validates and normalizes a wallet address.
func ParseWalletAddress(raw string) (WalletAddress, error) {
	addr := strings.ToLower(strings.TrimSpace(raw))
	if addr == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "wallet address must not be empty")
	}
	if !strings.HasPrefix(addr, "0x") {
		return "", dErrors.New(dErrors.CodeInvalidInput, "wallet address must start with 0x")
	}
	hexPart := addr[2:]
	if len(hexPart) != walletAddressHexLen {
		return "", dErrors.New(dErrors.CodeInvalidInput, "wallet address must be 20 bytes of hex")
	}
	for _, c := range hexPart {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", dErrors.New(dErrors.CodeInvalidInput, "wallet address contains non-hex characters")
		}
	}
	return WalletAddress(addr), nil
}

func (a WalletAddress) String() string { return string(a) }

func (a WalletAddress) IsZero() bool { return a == "" }
