package campaign

import (
	"context"
	"sort"
	"sync"

	"medfund/internal/campaign/models"
	id "medfund/pkg/domain"
	"medfund/pkg/platform/sentinel"
)

// InMemoryStore is an in-memory Store for tests and local development.
type InMemoryStore struct {
	mu   sync.RWMutex
	byID map[id.CampaignID]*models.Campaign
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{byID: make(map[id.CampaignID]*models.Campaign)}
}

func (s *InMemoryStore) Create(_ context.Context, campaign *models.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[campaign.ID]; exists {
		return sentinel.ErrConflict
	}
	copied := *campaign
	s.byID[campaign.ID] = &copied
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, campaignID id.CampaignID) (*models.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	campaign, exists := s.byID[campaignID]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	copied := *campaign
	return &copied, nil
}

func (s *InMemoryStore) ListByHospital(_ context.Context, hospitalID id.HospitalID) ([]*models.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(c *models.Campaign) bool { return c.HospitalID == hospitalID }), nil
}

func (s *InMemoryStore) ListByPatient(_ context.Context, patientID id.PatientID) ([]*models.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(c *models.Campaign) bool { return c.PatientID == patientID }), nil
}

// UpdateStatus replaces the record only when the stored status still equals
// expected. AmountRaised is deliberately not written here; only the
// donation path moves it.
func (s *InMemoryStore) UpdateStatus(_ context.Context, campaignID id.CampaignID, expected models.CampaignStatus, campaign *models.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.byID[campaignID]
	if !exists {
		return sentinel.ErrNotFound
	}
	if current.Status != expected {
		return sentinel.ErrInvalidState
	}
	copied := *campaign
	copied.AmountRaised = current.AmountRaised
	s.byID[campaignID] = &copied
	return nil
}

// ApplyDonation folds a donation amount into the raised total, but only
// while the campaign is accepting funds. Status check and increment are a
// single step under the lock; the donation store calls this inside its own
// critical section so ledger row and aggregate stay consistent.
func (s *InMemoryStore) ApplyDonation(_ context.Context, campaignID id.CampaignID, amount int64) (raised, needed int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	campaign, exists := s.byID[campaignID]
	if !exists {
		return 0, 0, sentinel.ErrNotFound
	}
	if campaign.Status != models.CampaignStatusFunding {
		return 0, 0, sentinel.ErrInvalidState
	}
	campaign.AmountRaised += amount
	return campaign.AmountRaised, campaign.AmountNeeded, nil
}

func (s *InMemoryStore) filter(keep func(*models.Campaign) bool) []*models.Campaign {
	var campaigns []*models.Campaign
	for _, campaign := range s.byID {
		if keep(campaign) {
			copied := *campaign
			campaigns = append(campaigns, &copied)
		}
	}
	sort.Slice(campaigns, func(i, j int) bool {
		if !campaigns[i].CreatedAt.Equal(campaigns[j].CreatedAt) {
			return campaigns[i].CreatedAt.Before(campaigns[j].CreatedAt)
		}
		return campaigns[i].ID.String() < campaigns[j].ID.String()
	})
	return campaigns
}
