package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"medfund/internal/campaign/models"
	"medfund/internal/campaign/service"
	campaignstore "medfund/internal/campaign/store/campaign"
	walletauth "medfund/internal/walletauth/models"
	id "medfund/pkg/domain"
	dErrors "medfund/pkg/domain-errors"
	"medfund/pkg/testutil"
)

const (
	hospitalWallet = "0x1111111111111111111111111111111111111111"
	donorWallet    = "0x2222222222222222222222222222222222222222"
	escrowWallet   = "0xe5c204d5e6f70818293a4b5c6d7e8f901234567e"
)

// stubDirectory treats every hospital the resolver knows as verified and
// every patient as existing.
type stubDirectory struct{}

func (stubDirectory) IsHospitalVerified(context.Context, id.HospitalID) (bool, error) {
	return true, nil
}

func (stubDirectory) PatientExists(context.Context, id.PatientID) (bool, error) {
	return true, nil
}

// stubResolver maps the hospital wallet to a hospital identity and
// everything else to a donor.
type stubResolver struct {
	hospitalID id.HospitalID
}

func (r stubResolver) ResolveWallet(_ context.Context, wallet id.WalletAddress) (walletauth.AuthenticatedIdentity, error) {
	if wallet.String() == hospitalWallet {
		return walletauth.AuthenticatedIdentity{
			Wallet:     wallet,
			Kind:       walletauth.IdentityHospital,
			HospitalID: r.hospitalID,
		}, nil
	}
	return walletauth.AuthenticatedIdentity{Wallet: wallet, Kind: walletauth.IdentityDonor}, nil
}

type CampaignHandlerSuite struct {
	suite.Suite
	router     chi.Router
	service    *service.Service
	store      *campaignstore.InMemoryStore
	hospitalID id.HospitalID
	patientID  id.PatientID
	now        time.Time
}

func TestCampaignHandlerSuite(t *testing.T) {
	suite.Run(t, new(CampaignHandlerSuite))
}

func (s *CampaignHandlerSuite) SetupTest() {
	s.hospitalID = id.NewHospitalID()
	s.patientID = id.NewPatientID()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.store = campaignstore.NewInMemory()
	s.service = service.New(s.store, stubDirectory{})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(s.service, stubResolver{hospitalID: s.hospitalID}, logger)
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *CampaignHandlerSuite) asHospital(req *http.Request) *http.Request {
	return testutil.WithRequestTime(testutil.WithWallet(req, hospitalWallet), s.now)
}

func (s *CampaignHandlerSuite) submitCampaign() *models.Campaign {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/campaigns", map[string]any{
		"patient_id":       s.patientID.String(),
		"amount_needed":    10_000,
		"duration_seconds": 3600,
		"story":            "treatment",
	})
	rr := testutil.DoRequest(s.router, s.asHospital(req))
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	return testutil.UnmarshalResponse[models.Campaign](s.T(), rr)
}

func (s *CampaignHandlerSuite) TestSubmit() {
	s.Run("creates a campaign for the authenticated hospital", func() {
		campaign := s.submitCampaign()
		s.Equal(models.CampaignStatusPending, campaign.Status)
		s.Equal(s.hospitalID, campaign.HospitalID)
	})

	s.Run("unauthenticated request is rejected", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/campaigns", map[string]any{
			"patient_id": s.patientID.String(),
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
		testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeUnauthorized))
	})

	s.Run("donor wallet is forbidden", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/campaigns", map[string]any{
			"patient_id": s.patientID.String(),
		})
		rr := testutil.DoRequest(s.router, testutil.WithWallet(req, donorWallet))
		testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
		testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeForbidden))
	})

	s.Run("malformed patient id is rejected", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/campaigns", map[string]any{
			"patient_id":       "not-a-uuid",
			"amount_needed":    100,
			"duration_seconds": 3600,
			"story":            "treatment",
		})
		rr := testutil.DoRequest(s.router, s.asHospital(req))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeInvalidInput))
	})
}

func (s *CampaignHandlerSuite) TestGetAndList() {
	campaign := s.submitCampaign()

	s.Run("gets a campaign by id", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/campaigns/"+campaign.ID.String())
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		got := testutil.UnmarshalResponse[models.Campaign](s.T(), rr)
		s.Equal(campaign.ID, got.ID)
	})

	s.Run("unknown campaign is 404", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/campaigns/"+id.NewCampaignID().String())
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
	})

	s.Run("lists by hospital", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/campaigns?hospital_id="+s.hospitalID.String())
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		campaigns := testutil.UnmarshalResponse[[]models.Campaign](s.T(), rr)
		s.Len(*campaigns, 1)
	})

	s.Run("list without a filter is a bad request", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/campaigns")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeBadRequest))
	})
}

func (s *CampaignHandlerSuite) TestLifecycle() {
	s.Run("approve, open funding, and complete after deadline", func() {
		campaign := s.submitCampaign()
		base := "/campaigns/" + campaign.ID.String()

		rr := testutil.DoRequest(s.router, s.asHospital(testutil.NewJSONRequest(s.T(), http.MethodPost, base+"/approve", nil)))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)

		rr = testutil.DoRequest(s.router, s.asHospital(testutil.NewJSONRequest(s.T(), http.MethodPost, base+"/funding", map[string]string{
			"escrow_address": escrowWallet,
		})))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		funded := testutil.UnmarshalResponse[models.Campaign](s.T(), rr)
		s.Equal(models.CampaignStatusFunding, funded.Status)

		past := testutil.WithRequestTime(testutil.NewJSONRequest(s.T(), http.MethodPost, base+"/complete", nil), s.now.Add(2*time.Hour))
		rr = testutil.DoRequest(s.router, past)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		completed := testutil.UnmarshalResponse[models.Campaign](s.T(), rr)
		s.Equal(models.CampaignStatusCompleted, completed.Status)
	})

	s.Run("reject records the reason", func() {
		campaign := s.submitCampaign()
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/campaigns/"+campaign.ID.String()+"/reject", map[string]string{
			"reason": "insufficient documentation",
		})
		rr := testutil.DoRequest(s.router, s.asHospital(req))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		rejected := testutil.UnmarshalResponse[models.Campaign](s.T(), rr)
		s.Equal("insufficient documentation", rejected.RejectReason)
	})

	s.Run("completing an underfunded open campaign is a conflict", func() {
		campaign := s.submitCampaign()
		base := "/campaigns/" + campaign.ID.String()
		testutil.DoRequest(s.router, s.asHospital(testutil.NewJSONRequest(s.T(), http.MethodPost, base+"/approve", nil)))
		testutil.DoRequest(s.router, s.asHospital(testutil.NewJSONRequest(s.T(), http.MethodPost, base+"/funding", map[string]string{
			"escrow_address": escrowWallet,
		})))

		rr := testutil.DoRequest(s.router, s.asHospital(testutil.NewJSONRequest(s.T(), http.MethodPost, base+"/complete", nil)))
		testutil.AssertStatus(s.T(), rr, http.StatusConflict)
		testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeInvalidState))
	})
}
