package hospital

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"medfund/internal/identity/models"
	id "medfund/pkg/domain"
	"medfund/pkg/platform/sentinel"
)

type InMemoryHospitalStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	now   time.Time
}

func TestInMemoryHospitalStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryHospitalStoreSuite))
}

func (s *InMemoryHospitalStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryHospitalStoreSuite) hospital(email, license string, wallet id.WalletAddress) *models.Hospital {
	h, err := models.NewHospital(id.NewHospitalID(), "General Hospital", email, license, wallet, s.now)
	s.Require().NoError(err)
	return h
}

func (s *InMemoryHospitalStoreSuite) TestCreate() {
	s.Run("stores and retrieves a hospital", func() {
		h := s.hospital("a@h.example", "LIC-1", "0x1a2b3c4d5e6f70818293a4b5c6d7e8f901234567")
		s.Require().NoError(s.store.Create(s.ctx, h))

		found, err := s.store.FindByID(s.ctx, h.ID)
		s.Require().NoError(err)
		s.Equal(h, found)
	})

	s.Run("rejects duplicate email", func() {
		first := s.hospital("dup@h.example", "LIC-2", "")
		s.Require().NoError(s.store.Create(s.ctx, first))

		second := s.hospital("dup@h.example", "LIC-3", "")
		err := s.store.Create(s.ctx, second)
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("rejects duplicate license number", func() {
		first := s.hospital("lic-a@h.example", "LIC-4", "")
		s.Require().NoError(s.store.Create(s.ctx, first))

		second := s.hospital("lic-b@h.example", "LIC-4", "")
		err := s.store.Create(s.ctx, second)
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("rejects duplicate wallet", func() {
		wallet := id.WalletAddress("0xaaab3c4d5e6f70818293a4b5c6d7e8f901234567")
		first := s.hospital("w-a@h.example", "LIC-5", wallet)
		s.Require().NoError(s.store.Create(s.ctx, first))

		second := s.hospital("w-b@h.example", "LIC-6", wallet)
		err := s.store.Create(s.ctx, second)
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("allows many hospitals without wallets", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.hospital("nw-a@h.example", "LIC-7", "")))
		s.Require().NoError(s.store.Create(s.ctx, s.hospital("nw-b@h.example", "LIC-8", "")))
	})
}

func (s *InMemoryHospitalStoreSuite) TestFind() {
	s.Run("returns ErrNotFound for unknown id", func() {
		_, err := s.store.FindByID(s.ctx, id.NewHospitalID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("finds by wallet", func() {
		wallet := id.WalletAddress("0xbbbb3c4d5e6f70818293a4b5c6d7e8f901234567")
		h := s.hospital("byw@h.example", "LIC-9", wallet)
		s.Require().NoError(s.store.Create(s.ctx, h))

		found, err := s.store.FindByWallet(s.ctx, wallet)
		s.Require().NoError(err)
		s.Equal(h.ID, found.ID)
	})

	s.Run("returns ErrNotFound for unknown wallet", func() {
		_, err := s.store.FindByWallet(s.ctx, "0xcccc3c4d5e6f70818293a4b5c6d7e8f901234567")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned record is a copy", func() {
		h := s.hospital("copy@h.example", "LIC-10", "")
		s.Require().NoError(s.store.Create(s.ctx, h))

		found, err := s.store.FindByID(s.ctx, h.ID)
		s.Require().NoError(err)
		found.Status = models.HospitalStatusVerified

		again, err := s.store.FindByID(s.ctx, h.ID)
		s.Require().NoError(err)
		s.Equal(models.HospitalStatusPending, again.Status)
	})
}

func (s *InMemoryHospitalStoreSuite) TestUpdateStatus() {
	s.Run("applies the transition when the expected status holds", func() {
		h := s.hospital("upd@h.example", "LIC-11", "")
		s.Require().NoError(s.store.Create(s.ctx, h))

		updated := *h
		updated.ApplyDecision(models.DecisionVerify, s.now.Add(time.Hour))
		s.Require().NoError(s.store.UpdateStatus(s.ctx, h.ID, models.HospitalStatusPending, &updated))

		found, err := s.store.FindByID(s.ctx, h.ID)
		s.Require().NoError(err)
		s.Equal(models.HospitalStatusVerified, found.Status)
	})

	s.Run("returns ErrInvalidState on a lost compare-and-set", func() {
		h := s.hospital("cas@h.example", "LIC-12", "")
		s.Require().NoError(s.store.Create(s.ctx, h))

		verified := *h
		verified.ApplyDecision(models.DecisionVerify, s.now)
		s.Require().NoError(s.store.UpdateStatus(s.ctx, h.ID, models.HospitalStatusPending, &verified))

		rejected := *h
		rejected.ApplyDecision(models.DecisionReject, s.now)
		err := s.store.UpdateStatus(s.ctx, h.ID, models.HospitalStatusPending, &rejected)
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)
	})

	s.Run("returns ErrNotFound for unknown hospital", func() {
		h := s.hospital("ghost@h.example", "LIC-13", "")
		err := s.store.UpdateStatus(s.ctx, h.ID, models.HospitalStatusPending, h)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}
