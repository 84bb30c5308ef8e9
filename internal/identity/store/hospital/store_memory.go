package hospital

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"medfund/internal/identity/models"
	id "medfund/pkg/domain"
	"medfund/pkg/platform/sentinel"
)

// Error Contract:
// - FindBy* return ErrNotFound when the hospital does not exist.
// - Create returns ErrConflict when email, license number, or wallet is taken.
// - UpdateStatus returns ErrInvalidState when the stored status no longer
//   matches the expected one (lost compare-and-set).

// InMemoryStore stores hospitals in memory for tests/dev.
type InMemoryStore struct {
	mu        sync.RWMutex
	hospitals map[id.HospitalID]*models.Hospital
	byEmail   map[string]id.HospitalID
	byLicense map[string]id.HospitalID
	byWallet  map[id.WalletAddress]id.HospitalID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		hospitals: make(map[id.HospitalID]*models.Hospital),
		byEmail:   make(map[string]id.HospitalID),
		byLicense: make(map[string]id.HospitalID),
		byWallet:  make(map[id.WalletAddress]id.HospitalID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, hospital *models.Hospital) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(hospital.Email)
	if _, taken := s.byEmail[email]; taken {
		return fmt.Errorf("email %s: %w", hospital.Email, sentinel.ErrConflict)
	}
	if _, taken := s.byLicense[hospital.LicenseNumber]; taken {
		return fmt.Errorf("license %s: %w", hospital.LicenseNumber, sentinel.ErrConflict)
	}
	if !hospital.Wallet.IsZero() {
		if _, taken := s.byWallet[hospital.Wallet]; taken {
			return fmt.Errorf("wallet %s: %w", hospital.Wallet, sentinel.ErrConflict)
		}
	}

	stored := *hospital
	s.hospitals[hospital.ID] = &stored
	s.byEmail[email] = hospital.ID
	s.byLicense[hospital.LicenseNumber] = hospital.ID
	if !hospital.Wallet.IsZero() {
		s.byWallet[hospital.Wallet] = hospital.ID
	}
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, hospitalID id.HospitalID) (*models.Hospital, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hospital, ok := s.hospitals[hospitalID]
	if !ok {
		return nil, fmt.Errorf("hospital %s: %w", hospitalID, sentinel.ErrNotFound)
	}
	copied := *hospital
	return &copied, nil
}

func (s *InMemoryStore) FindByWallet(_ context.Context, wallet id.WalletAddress) (*models.Hospital, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hospitalID, ok := s.byWallet[wallet]
	if !ok {
		return nil, fmt.Errorf("hospital wallet %s: %w", wallet, sentinel.ErrNotFound)
	}
	copied := *s.hospitals[hospitalID]
	return &copied, nil
}

// UpdateStatus is the compare-and-set transition write. The expected status
// guards against a decision racing another decision.
func (s *InMemoryStore) UpdateStatus(_ context.Context, hospitalID id.HospitalID, expected models.HospitalStatus, hospital *models.Hospital) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.hospitals[hospitalID]
	if !ok {
		return fmt.Errorf("hospital %s: %w", hospitalID, sentinel.ErrNotFound)
	}
	if current.Status != expected {
		return fmt.Errorf("hospital %s is %s, expected %s: %w", hospitalID, current.Status, expected, sentinel.ErrInvalidState)
	}
	stored := *hospital
	s.hospitals[hospitalID] = &stored
	return nil
}
