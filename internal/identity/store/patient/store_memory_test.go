package patient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"medfund/internal/identity/models"
	id "medfund/pkg/domain"
	"medfund/pkg/platform/sentinel"
)

type InMemoryPatientStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	now   time.Time
}

func TestInMemoryPatientStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryPatientStoreSuite))
}

func (s *InMemoryPatientStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryPatientStoreSuite) patient(wallet id.WalletAddress) *models.Patient {
	p, err := models.NewPatient(id.NewPatientID(), "Jane", "Doe", "jane@example.com", wallet, id.HospitalID{}, s.now)
	s.Require().NoError(err)
	return p
}

func (s *InMemoryPatientStoreSuite) TestCreate() {
	s.Run("stores and retrieves a patient", func() {
		p := s.patient("0x1a2b3c4d5e6f70818293a4b5c6d7e8f901234567")
		s.Require().NoError(s.store.Create(s.ctx, p))

		found, err := s.store.FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(p, found)
	})

	s.Run("rejects duplicate wallet", func() {
		wallet := id.WalletAddress("0xaaab3c4d5e6f70818293a4b5c6d7e8f901234567")
		s.Require().NoError(s.store.Create(s.ctx, s.patient(wallet)))

		err := s.store.Create(s.ctx, s.patient(wallet))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("allows many patients without wallets", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.patient("")))
		s.Require().NoError(s.store.Create(s.ctx, s.patient("")))
	})
}

func (s *InMemoryPatientStoreSuite) TestFind() {
	s.Run("returns ErrNotFound for unknown id", func() {
		_, err := s.store.FindByID(s.ctx, id.NewPatientID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("finds by wallet", func() {
		wallet := id.WalletAddress("0xbbbb3c4d5e6f70818293a4b5c6d7e8f901234567")
		p := s.patient(wallet)
		s.Require().NoError(s.store.Create(s.ctx, p))

		found, err := s.store.FindByWallet(s.ctx, wallet)
		s.Require().NoError(err)
		s.Equal(p.ID, found.ID)
	})

	s.Run("returns ErrNotFound for unknown wallet", func() {
		_, err := s.store.FindByWallet(s.ctx, "0xcccc3c4d5e6f70818293a4b5c6d7e8f901234567")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned record is a copy", func() {
		p := s.patient("")
		s.Require().NoError(s.store.Create(s.ctx, p))

		found, err := s.store.FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		found.FirstName = "Mutated"

		again, err := s.store.FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal("Jane", again.FirstName)
	})
}
