package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers
// return these (optionally wrapped) so services can translate them into
// domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: unique constraint would be violated
// - ErrExpired: challenge/token has passed its TTL
// - ErrAlreadyUsed: single-use resource (nonce) already consumed
// - ErrInvalidState: entity in wrong state for a conditional write
// - ErrInvalidSignature: signature does not verify against the wallet key
// - ErrUnavailable: backing service temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrExpired          = errors.New("expired")
	ErrAlreadyUsed      = errors.New("already used")
	ErrInvalidState     = errors.New("invalid state")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrUnavailable      = errors.New("unavailable")
)
