package patient

import (
	"context"
	"fmt"
	"sync"

	"medfund/internal/identity/models"
	id "medfund/pkg/domain"
	"medfund/pkg/platform/sentinel"
)

// InMemoryStore stores patients in memory for tests/dev.
type InMemoryStore struct {
	mu       sync.RWMutex
	patients map[id.PatientID]*models.Patient
	byWallet map[id.WalletAddress]id.PatientID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		patients: make(map[id.PatientID]*models.Patient),
		byWallet: make(map[id.WalletAddress]id.PatientID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, patient *models.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !patient.Wallet.IsZero() {
		if _, taken := s.byWallet[patient.Wallet]; taken {
			return fmt.Errorf("wallet %s: %w", patient.Wallet, sentinel.ErrConflict)
		}
	}
	stored := *patient
	s.patients[patient.ID] = &stored
	if !patient.Wallet.IsZero() {
		s.byWallet[patient.Wallet] = patient.ID
	}
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, patientID id.PatientID) (*models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	patient, ok := s.patients[patientID]
	if !ok {
		return nil, fmt.Errorf("patient %s: %w", patientID, sentinel.ErrNotFound)
	}
	copied := *patient
	return &copied, nil
}

func (s *InMemoryStore) FindByWallet(_ context.Context, wallet id.WalletAddress) (*models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	patientID, ok := s.byWallet[wallet]
	if !ok {
		return nil, fmt.Errorf("patient wallet %s: %w", wallet, sentinel.ErrNotFound)
	}
	copied := *s.patients[patientID]
	return &copied, nil
}
