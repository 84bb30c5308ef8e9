package models

import (
	"strings"
	"time"

	id "medfund/pkg/domain"
	dErrors "medfund/pkg/domain-errors"
)

// CampaignStatus is the funding workflow state. Closed set; the graph is
// strictly forward, so a campaign's history is always reconstructible from
// its current status.
type CampaignStatus string

const (
	CampaignStatusPending   CampaignStatus = "PENDING"
	CampaignStatusApproved  CampaignStatus = "APPROVED"
	CampaignStatusRejected  CampaignStatus = "REJECTED"
	CampaignStatusFunding   CampaignStatus = "FUNDING"
	CampaignStatusCompleted CampaignStatus = "COMPLETED"
)

// ParseCampaignStatus validates a raw status value at trust boundaries.
func ParseCampaignStatus(raw string) (CampaignStatus, error) {
	switch CampaignStatus(raw) {
	case CampaignStatusPending, CampaignStatusApproved, CampaignStatusRejected,
		CampaignStatusFunding, CampaignStatusCompleted:
		return CampaignStatus(raw), nil
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown campaign status %q", raw)
	}
}

// CanTransitionTo reports whether the status graph allows the move.
// REJECTED and COMPLETED are terminal.
func (s CampaignStatus) CanTransitionTo(target CampaignStatus) bool {
	switch s {
	case CampaignStatusPending:
		return target == CampaignStatusApproved || target == CampaignStatusRejected
	case CampaignStatusApproved:
		return target == CampaignStatusFunding
	case CampaignStatusFunding:
		return target == CampaignStatusCompleted
	default:
		return false
	}
}

func (s CampaignStatus) IsTerminal() bool {
	return s == CampaignStatusRejected || s == CampaignStatusCompleted
}

// Campaign is a fundraiser for a patient's treatment, owned by the verified
// hospital that submitted it.
//
// Invariants:
//   - Amounts are integer minor units; AmountNeeded > 0, AmountRaised >= 0
//   - AmountRaised is maintained solely by the donation ledger
//   - Escrow is write-once: set exactly when funding opens, never changed
//   - Status only moves along CanTransitionTo edges, enforced by
//     compare-and-set at the store
type Campaign struct {
	ID           id.CampaignID    `json:"id"`
	PatientID    id.PatientID     `json:"patient_id"`
	HospitalID   id.HospitalID    `json:"hospital_id"`
	Story        string           `json:"story"`
	AmountNeeded int64            `json:"amount_needed"`
	AmountRaised int64            `json:"amount_raised"`
	Duration     time.Duration    `json:"duration"`
	Escrow       id.WalletAddress `json:"escrow_address,omitempty"`
	Status       CampaignStatus   `json:"status"`
	RejectReason string           `json:"reject_reason,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func NewCampaign(campaignID id.CampaignID, patientID id.PatientID, hospitalID id.HospitalID, amountNeeded int64, duration time.Duration, story string, now time.Time) (*Campaign, error) {
	story = strings.TrimSpace(story)
	if patientID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "campaign patient is required")
	}
	if hospitalID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "campaign hospital is required")
	}
	if amountNeeded <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "campaign target amount must be positive")
	}
	if duration <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "campaign duration must be positive")
	}
	if story == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "campaign story cannot be empty")
	}
	return &Campaign{
		ID:           campaignID,
		PatientID:    patientID,
		HospitalID:   hospitalID,
		Story:        story,
		AmountNeeded: amountNeeded,
		Duration:     duration,
		Status:       CampaignStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Deadline is the instant after which the campaign may be completed
// manually even when underfunded.
func (c *Campaign) Deadline() time.Time {
	return c.CreatedAt.Add(c.Duration)
}

// FullyFunded reports whether the raised total has met the target.
func (c *Campaign) FullyFunded() bool {
	return c.AmountRaised >= c.AmountNeeded
}
