package models

import (
	"strings"
	"time"

	id "medfund/pkg/domain"
	dErrors "medfund/pkg/domain-errors"
)

// Donation is one on-chain contribution folded into a campaign's raised
// total. Rows are immutable once written; (CampaignID, TxHash) is the
// idempotency key, so replaying a chain event can never double-count.
type Donation struct {
	ID         id.DonationID    `json:"id"`
	CampaignID id.CampaignID    `json:"campaign_id"`
	Donor      id.WalletAddress `json:"donor_address"`
	Amount     int64            `json:"amount"`
	TxHash     string           `json:"tx_hash"`
	RecordedAt time.Time        `json:"recorded_at"`
}

// RecordResult is the outcome of an atomic ledger write: the row plus the
// campaign totals as of the write. Duplicate marks an idempotent replay
// that changed nothing.
type RecordResult struct {
	Donation     *Donation
	AmountRaised int64
	AmountNeeded int64
	Duplicate    bool
}

func NewDonation(donationID id.DonationID, campaignID id.CampaignID, donor id.WalletAddress, amount int64, txHash string, now time.Time) (*Donation, error) {
	txHash = strings.TrimSpace(txHash)
	if campaignID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "donation campaign is required")
	}
	if donor.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "donor address is required")
	}
	if amount <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "donation amount must be positive")
	}
	if txHash == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "donation tx hash is required")
	}
	return &Donation{
		ID:         donationID,
		CampaignID: campaignID,
		Donor:      donor,
		Amount:     amount,
		TxHash:     txHash,
		RecordedAt: now,
	}, nil
}
