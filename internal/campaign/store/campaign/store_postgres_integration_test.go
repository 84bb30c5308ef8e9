//go:build integration

package campaign_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	campaignmodels "medfund/internal/campaign/models"
	campaignstore "medfund/internal/campaign/store/campaign"
	identitymodels "medfund/internal/identity/models"
	hospitalstore "medfund/internal/identity/store/hospital"
	patientstore "medfund/internal/identity/store/patient"
	id "medfund/pkg/domain"
	"medfund/pkg/platform/sentinel"
	"medfund/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres   *containers.PostgresContainer
	store      *campaignstore.PostgresStore
	hospitals  *hospitalstore.PostgresStore
	patients   *patientstore.PostgresStore
	hospitalID id.HospitalID
	patientID  id.PatientID
	now        time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = campaignstore.NewPostgres(s.postgres.DB)
	s.hospitals = hospitalstore.NewPostgres(s.postgres.DB)
	s.patients = patientstore.NewPostgres(s.postgres.DB)
	s.now = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	s.postgres.Close(context.Background())
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.Truncate(ctx, "campaigns", "patients", "hospitals")
	s.Require().NoError(err)

	// Campaign rows reference a hospital and a patient.
	hospital, err := identitymodels.NewHospital(id.NewHospitalID(), "General Hospital", "admin@hospital.example", "LIC-1", "", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.hospitals.Create(ctx, hospital))
	s.hospitalID = hospital.ID

	patient, err := identitymodels.NewPatient(id.NewPatientID(), "Amara", "Osei", "amara@example.com", "", hospital.ID, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.patients.Create(ctx, patient))
	s.patientID = patient.ID
}

func (s *PostgresStoreSuite) newCampaign() *campaignmodels.Campaign {
	c, err := campaignmodels.NewCampaign(id.NewCampaignID(), s.patientID, s.hospitalID, 10_000, time.Hour, "treatment", s.now)
	s.Require().NoError(err)
	return c
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()

	s.Run("round trips a pending campaign", func() {
		created := s.newCampaign()
		s.Require().NoError(s.store.Create(ctx, created))

		found, err := s.store.FindByID(ctx, created.ID)
		s.Require().NoError(err)
		s.Equal(created.ID, found.ID)
		s.Equal(campaignmodels.CampaignStatusPending, found.Status)
		s.Equal(int64(10_000), found.AmountNeeded)
		s.Equal(int64(0), found.AmountRaised)
		s.Equal(time.Hour, found.Duration)
		s.Empty(found.Escrow)
		s.WithinDuration(created.CreatedAt, found.CreatedAt, time.Second)
	})

	s.Run("duplicate id is a conflict", func() {
		created := s.newCampaign()
		s.Require().NoError(s.store.Create(ctx, created))
		s.ErrorIs(s.store.Create(ctx, created), sentinel.ErrConflict)
	})

	s.Run("unknown campaign is not found", func() {
		_, err := s.store.FindByID(ctx, id.NewCampaignID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *PostgresStoreSuite) TestLists() {
	ctx := context.Background()
	first := s.newCampaign()
	second := s.newCampaign()
	second.CreatedAt = s.now.Add(time.Minute)
	second.UpdatedAt = second.CreatedAt
	s.Require().NoError(s.store.Create(ctx, first))
	s.Require().NoError(s.store.Create(ctx, second))

	s.Run("lists by hospital in creation order", func() {
		campaigns, err := s.store.ListByHospital(ctx, s.hospitalID)
		s.Require().NoError(err)
		s.Require().Len(campaigns, 2)
		s.Equal(first.ID, campaigns[0].ID)
		s.Equal(second.ID, campaigns[1].ID)
	})

	s.Run("lists by patient", func() {
		campaigns, err := s.store.ListByPatient(ctx, s.patientID)
		s.Require().NoError(err)
		s.Len(campaigns, 2)
	})

	s.Run("unknown hospital lists empty", func() {
		campaigns, err := s.store.ListByHospital(ctx, id.NewHospitalID())
		s.Require().NoError(err)
		s.Empty(campaigns)
	})
}

func (s *PostgresStoreSuite) TestUpdateStatus() {
	ctx := context.Background()

	s.Run("swaps status and writes the escrow address", func() {
		c := s.newCampaign()
		s.Require().NoError(s.store.Create(ctx, c))

		c.Status = campaignmodels.CampaignStatusApproved
		s.Require().NoError(s.store.UpdateStatus(ctx, c.ID, campaignmodels.CampaignStatusPending, c))

		c.Status = campaignmodels.CampaignStatusFunding
		c.Escrow = id.WalletAddress("0xe5c204d5e6f70818293a4b5c6d7e8f901234567e")
		s.Require().NoError(s.store.UpdateStatus(ctx, c.ID, campaignmodels.CampaignStatusApproved, c))

		found, err := s.store.FindByID(ctx, c.ID)
		s.Require().NoError(err)
		s.Equal(campaignmodels.CampaignStatusFunding, found.Status)
		s.Equal(c.Escrow, found.Escrow)
	})

	s.Run("stale expectation loses the swap", func() {
		c := s.newCampaign()
		s.Require().NoError(s.store.Create(ctx, c))

		c.Status = campaignmodels.CampaignStatusRejected
		c.RejectReason = "insufficient documentation"
		s.Require().NoError(s.store.UpdateStatus(ctx, c.ID, campaignmodels.CampaignStatusPending, c))

		c.Status = campaignmodels.CampaignStatusApproved
		err := s.store.UpdateStatus(ctx, c.ID, campaignmodels.CampaignStatusPending, c)
		s.ErrorIs(err, sentinel.ErrInvalidState)

		found, err := s.store.FindByID(ctx, c.ID)
		s.Require().NoError(err)
		s.Equal(campaignmodels.CampaignStatusRejected, found.Status)
		s.Equal("insufficient documentation", found.RejectReason)
	})

	s.Run("unknown campaign is not found", func() {
		c := s.newCampaign()
		c.Status = campaignmodels.CampaignStatusApproved
		err := s.store.UpdateStatus(ctx, c.ID, campaignmodels.CampaignStatusPending, c)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}
