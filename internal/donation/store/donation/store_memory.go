package donation

import (
	"context"
	"sort"
	"sync"

	campaignstore "medfund/internal/campaign/store/campaign"
	"medfund/internal/donation/models"
	id "medfund/pkg/domain"
)

// InMemoryStore is an in-memory ledger for tests and local development. It
// shares the campaign store's aggregate so row and total move together
// under one critical section.
type InMemoryStore struct {
	mu         sync.RWMutex
	byID       map[id.DonationID]*models.Donation
	byTxHash   map[txKey]id.DonationID
	byCampaign map[id.CampaignID][]id.DonationID
	campaigns  *campaignstore.InMemoryStore
}

type txKey struct {
	campaignID id.CampaignID
	txHash     string
}

func NewInMemory(campaigns *campaignstore.InMemoryStore) *InMemoryStore {
	return &InMemoryStore{
		byID:       make(map[id.DonationID]*models.Donation),
		byTxHash:   make(map[txKey]id.DonationID),
		byCampaign: make(map[id.CampaignID][]id.DonationID),
		campaigns:  campaigns,
	}
}

// Record inserts the donation and folds its amount into the campaign's
// raised total as one atomic step. A (campaign, tx hash) replay returns the
// existing row without touching the aggregate. The campaign must currently
// be accepting funds; that check lives inside the same step, so a campaign
// completed mid-flight cannot gain a row.
func (s *InMemoryStore) Record(ctx context.Context, donation *models.Donation) (*models.RecordResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := txKey{campaignID: donation.CampaignID, txHash: donation.TxHash}
	if existingID, exists := s.byTxHash[key]; exists {
		existing := *s.byID[existingID]
		campaign, err := s.campaigns.FindByID(ctx, donation.CampaignID)
		if err != nil {
			return nil, err
		}
		return &models.RecordResult{
			Donation:     &existing,
			AmountRaised: campaign.AmountRaised,
			AmountNeeded: campaign.AmountNeeded,
			Duplicate:    true,
		}, nil
	}

	raised, needed, err := s.campaigns.ApplyDonation(ctx, donation.CampaignID, donation.Amount)
	if err != nil {
		return nil, err
	}

	copied := *donation
	s.byID[donation.ID] = &copied
	s.byTxHash[key] = donation.ID
	s.byCampaign[donation.CampaignID] = append(s.byCampaign[donation.CampaignID], donation.ID)
	return &models.RecordResult{
		Donation:     donation,
		AmountRaised: raised,
		AmountNeeded: needed,
	}, nil
}

// ListByCampaign returns the campaign's donations in recording order.
func (s *InMemoryStore) ListByCampaign(_ context.Context, campaignID id.CampaignID) ([]*models.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byCampaign[campaignID]
	donations := make([]*models.Donation, 0, len(ids))
	for _, donationID := range ids {
		copied := *s.byID[donationID]
		donations = append(donations, &copied)
	}
	sort.SliceStable(donations, func(i, j int) bool {
		return donations[i].RecordedAt.Before(donations[j].RecordedAt)
	})
	return donations, nil
}
