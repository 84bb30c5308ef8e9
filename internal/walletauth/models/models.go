package models

import (
	"time"

	id "medfund/pkg/domain"
	"medfund/pkg/platform/sentinel"
)

// Challenge is a single-use nonce bound to a wallet address. At most one
// live challenge exists per address; issuing a new one replaces it.
type Challenge struct {
	Wallet    id.WalletAddress
	Nonce     []byte
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ValidateForConsume checks the consumption-time invariant. The caller has
// already removed the challenge from storage, so a failed validation still
// burns the nonce.
func (c *Challenge) ValidateForConsume(now time.Time) error {
	if now.After(c.ExpiresAt) {
		return sentinel.ErrExpired
	}
	return nil
}

// IdentityKind tags what a wallet address resolves to in the registry.
type IdentityKind string

const (
	IdentityHospital IdentityKind = "hospital"
	IdentityPatient  IdentityKind = "patient"
	// IdentityDonor covers wallets with no registry record; donors do not
	// register before donating.
	IdentityDonor IdentityKind = "donor"
)

// AuthenticatedIdentity is the sole basis on which later components accept
// a caller as "acting as wallet X".
type AuthenticatedIdentity struct {
	Wallet     id.WalletAddress
	Kind       IdentityKind
	HospitalID id.HospitalID
	PatientID  id.PatientID
}
