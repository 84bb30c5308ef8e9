package models

import (
	"strings"
	"time"

	id "medfund/pkg/domain"
	dErrors "medfund/pkg/domain-errors"
)

// HospitalStatus is the verification lifecycle gating whether a hospital's
// approvals are trusted. Closed set; transitions only leave PENDING.
type HospitalStatus string

const (
	HospitalStatusPending  HospitalStatus = "PENDING"
	HospitalStatusVerified HospitalStatus = "VERIFIED"
	HospitalStatusRejected HospitalStatus = "REJECTED"
)

// ParseHospitalStatus validates a raw status value at trust boundaries.
func ParseHospitalStatus(raw string) (HospitalStatus, error) {
	switch HospitalStatus(raw) {
	case HospitalStatusPending, HospitalStatusVerified, HospitalStatusRejected:
		return HospitalStatus(raw), nil
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown hospital status %q", raw)
	}
}

// CanTransitionTo reports whether the status graph allows the move. VERIFIED
// and REJECTED are terminal.
func (s HospitalStatus) CanTransitionTo(target HospitalStatus) bool {
	switch s {
	case HospitalStatusPending:
		return target == HospitalStatusVerified || target == HospitalStatusRejected
	case HospitalStatusVerified, HospitalStatusRejected:
		return false
	default:
		return false
	}
}

func (s HospitalStatus) IsTerminal() bool {
	return s == HospitalStatusVerified || s == HospitalStatusRejected
}

// Decision is a verification outcome requested by an operator.
type Decision string

const (
	DecisionVerify Decision = "VERIFY"
	DecisionReject Decision = "REJECT"
)

// ParseDecision validates a raw decision value.
func ParseDecision(raw string) (Decision, error) {
	switch Decision(raw) {
	case DecisionVerify, DecisionReject:
		return Decision(raw), nil
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown decision %q", raw)
	}
}

// TargetStatus maps a decision to the terminal status it produces.
func (d Decision) TargetStatus() HospitalStatus {
	if d == DecisionVerify {
		return HospitalStatusVerified
	}
	return HospitalStatusRejected
}

// Hospital is an identity that can own and approve campaigns once verified.
//
// Invariants:
//   - Email and LicenseNumber are non-empty and unique
//   - Wallet, when set, is unique
//   - Status transitions: PENDING→VERIFIED or PENDING→REJECTED only;
//     records are never deleted, only transitioned
type Hospital struct {
	ID            id.HospitalID    `json:"id"`
	Name          string           `json:"name"`
	Email         string           `json:"email"`
	LicenseNumber string           `json:"license_number"`
	Wallet        id.WalletAddress `json:"wallet_address,omitempty"`
	Status        HospitalStatus   `json:"status"`
	DecidedAt     *time.Time       `json:"decided_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func NewHospital(hospitalID id.HospitalID, name, email, licenseNumber string, wallet id.WalletAddress, now time.Time) (*Hospital, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	licenseNumber = strings.TrimSpace(licenseNumber)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "hospital name cannot be empty")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "hospital email must be a valid address")
	}
	if licenseNumber == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "hospital license number cannot be empty")
	}
	return &Hospital{
		ID:            hospitalID,
		Name:          name,
		Email:         email,
		LicenseNumber: licenseNumber,
		Wallet:        wallet,
		Status:        HospitalStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (h *Hospital) IsVerified() bool {
	return h.Status == HospitalStatusVerified
}

// CanDecide checks whether the decision may be applied to the current
// status. A repeat of an already-applied decision is not an error here; the
// service treats it as an idempotent no-op.
func (h *Hospital) CanDecide(decision Decision) error {
	if h.Status == HospitalStatusPending {
		return nil
	}
	if h.Status == decision.TargetStatus() {
		return nil // idempotent repeat
	}
	return dErrors.Newf(dErrors.CodeInvalidState,
		"hospital is already %s and cannot become %s", h.Status, decision.TargetStatus())
}

// ApplyDecision transitions the hospital to the decision's terminal status.
// Call CanDecide first.
func (h *Hospital) ApplyDecision(decision Decision, now time.Time) {
	h.Status = decision.TargetStatus()
	h.DecidedAt = &now
	h.UpdatedAt = now
}
