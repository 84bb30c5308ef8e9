package audit

import (
	"time"
)

// EventCategory classifies audit events by their primary purpose. This
// enables different retention policies and routing downstream.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance:
	// verification decisions, campaign approvals, donations.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring:
	// challenge failures, replayed nonces, rejected wallet sessions.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine events useful for debugging.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	Action    Action        `json:"action"`
	// Subject is the entity acted upon (hospital, campaign, donation id).
	Subject string `json:"subject,omitempty"`
	// Actor is the wallet address that performed the action, when known.
	Actor string `json:"actor,omitempty"`
	// Reason carries decision context (rejection reason, failure cause).
	Reason string `json:"reason,omitempty"`
	// RequestID correlates the event with the HTTP request that caused it.
	RequestID string `json:"request_id,omitempty"`
	// ClientIP and Device attribute the event for forensics.
	ClientIP string `json:"client_ip,omitempty"`
	Device   string `json:"device,omitempty"`
}

// Action identifies what happened. Closed set; consumers switch on it.
type Action string

const (
	ActionHospitalRegistered Action = "hospital_registered"
	ActionHospitalVerified   Action = "hospital_verified"
	ActionHospitalRejected   Action = "hospital_rejected"
	ActionPatientRegistered  Action = "patient_registered"

	ActionDocumentAttached Action = "document_attached"

	ActionCampaignSubmitted Action = "campaign_submitted"
	ActionCampaignApproved  Action = "campaign_approved"
	ActionCampaignRejected  Action = "campaign_rejected"
	ActionFundingOpened     Action = "campaign_funding_opened"
	ActionCampaignCompleted Action = "campaign_completed"

	ActionDonationRecorded   Action = "donation_recorded"
	ActionDonationDuplicate  Action = "donation_duplicate"
	ActionChallengeIssued    Action = "wallet_challenge_issued"
	ActionChallengeConsumed  Action = "wallet_challenge_consumed"
	ActionChallengeFailed    Action = "wallet_challenge_failed"
	ActionWalletSessionIssued Action = "wallet_session_issued"
)
