package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"medfund/internal/campaign/models"
	"medfund/internal/campaign/service"
	walletauth "medfund/internal/walletauth/models"
	id "medfund/pkg/domain"
	dErrors "medfund/pkg/domain-errors"
	"medfund/pkg/platform/httputil"
	"medfund/pkg/requestcontext"
)

// Service defines the campaign operations the handler exposes.
type Service interface {
	Submit(ctx context.Context, input service.SubmitInput) (*models.Campaign, error)
	Approve(ctx context.Context, campaignID id.CampaignID, actorHospitalID id.HospitalID) (*models.Campaign, error)
	Reject(ctx context.Context, campaignID id.CampaignID, actorHospitalID id.HospitalID, reason string) (*models.Campaign, error)
	OpenFunding(ctx context.Context, campaignID id.CampaignID, escrow id.WalletAddress) (*models.Campaign, error)
	Complete(ctx context.Context, campaignID id.CampaignID) (*models.Campaign, error)
	GetCampaign(ctx context.Context, campaignID id.CampaignID) (*models.Campaign, error)
	ListByHospital(ctx context.Context, hospitalID id.HospitalID) ([]*models.Campaign, error)
	ListByPatient(ctx context.Context, patientID id.PatientID) ([]*models.Campaign, error)
}

// IdentityResolver maps the authenticated wallet to its registry record, so
// hospital-only actions can name their actor.
type IdentityResolver interface {
	ResolveWallet(ctx context.Context, wallet id.WalletAddress) (walletauth.AuthenticatedIdentity, error)
}

// Handler wires campaign endpoints to the campaign service.
type Handler struct {
	service  Service
	resolver IdentityResolver
	logger   *slog.Logger
}

func New(service Service, resolver IdentityResolver, logger *slog.Logger) *Handler {
	return &Handler{service: service, resolver: resolver, logger: logger}
}

// Register mounts campaign endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/campaigns", h.HandleSubmit)
	r.Get("/campaigns/{campaignID}", h.HandleGet)
	r.Get("/campaigns", h.HandleList)
	r.Post("/campaigns/{campaignID}/approve", h.HandleApprove)
	r.Post("/campaigns/{campaignID}/reject", h.HandleReject)
	r.Post("/campaigns/{campaignID}/funding", h.HandleOpenFunding)
	r.Post("/campaigns/{campaignID}/complete", h.HandleComplete)
}

type submitRequest struct {
	PatientID       string `json:"patient_id"`
	AmountNeeded    int64  `json:"amount_needed"`
	DurationSeconds int64  `json:"duration_seconds"`
	Story           string `json:"story"`
}

// HandleSubmit handles POST /campaigns requests. The submitting hospital is
// the authenticated wallet's.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor, err := h.hospitalActor(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[submitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	patientID, err := id.ParsePatientID(req.PatientID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	campaign, err := h.service.Submit(ctx, service.SubmitInput{
		PatientID:    patientID,
		HospitalID:   actor,
		AmountNeeded: req.AmountNeeded,
		Duration:     time.Duration(req.DurationSeconds) * time.Second,
		Story:        req.Story,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "campaign submission failed",
			"request_id", requestID,
			"hospital_id", actor,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, campaign)
}

// HandleGet handles GET /campaigns/{campaignID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	campaignID, err := id.ParseCampaignID(chi.URLParam(r, "campaignID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	campaign, err := h.service.GetCampaign(r.Context(), campaignID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, campaign)
}

// HandleList handles GET /campaigns?hospital_id= or ?patient_id= requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		campaigns []*models.Campaign
		err       error
	)
	switch {
	case r.URL.Query().Get("hospital_id") != "":
		var hospitalID id.HospitalID
		if hospitalID, err = id.ParseHospitalID(r.URL.Query().Get("hospital_id")); err == nil {
			campaigns, err = h.service.ListByHospital(ctx, hospitalID)
		}
	case r.URL.Query().Get("patient_id") != "":
		var patientID id.PatientID
		if patientID, err = id.ParsePatientID(r.URL.Query().Get("patient_id")); err == nil {
			campaigns, err = h.service.ListByPatient(ctx, patientID)
		}
	default:
		err = dErrors.New(dErrors.CodeBadRequest, "hospital_id or patient_id query parameter is required")
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if campaigns == nil {
		campaigns = []*models.Campaign{}
	}
	httputil.WriteJSON(w, http.StatusOK, campaigns)
}

// HandleApprove handles POST /campaigns/{campaignID}/approve requests.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	campaignID, err := id.ParseCampaignID(chi.URLParam(r, "campaignID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	actor, err := h.hospitalActor(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	campaign, err := h.service.Approve(ctx, campaignID, actor)
	if err != nil {
		h.logger.ErrorContext(ctx, "campaign approval failed",
			"request_id", requestcontext.RequestID(ctx),
			"campaign_id", campaignID,
			"hospital_id", actor,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, campaign)
}

type rejectRequest struct {
	Reason string `json:"reason,omitempty"`
}

// HandleReject handles POST /campaigns/{campaignID}/reject requests.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	campaignID, err := id.ParseCampaignID(chi.URLParam(r, "campaignID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	actor, err := h.hospitalActor(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[rejectRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	campaign, err := h.service.Reject(ctx, campaignID, actor, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, campaign)
}

type openFundingRequest struct {
	EscrowAddress string `json:"escrow_address"`
}

// HandleOpenFunding handles POST /campaigns/{campaignID}/funding requests.
func (h *Handler) HandleOpenFunding(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	campaignID, err := id.ParseCampaignID(chi.URLParam(r, "campaignID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[openFundingRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	escrow, err := id.ParseWalletAddress(req.EscrowAddress)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	campaign, err := h.service.OpenFunding(ctx, campaignID, escrow)
	if err != nil {
		h.logger.ErrorContext(ctx, "funding open failed",
			"request_id", requestID,
			"campaign_id", campaignID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, campaign)
}

// HandleComplete handles POST /campaigns/{campaignID}/complete requests.
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	campaignID, err := id.ParseCampaignID(chi.URLParam(r, "campaignID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	campaign, err := h.service.Complete(r.Context(), campaignID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, campaign)
}

func (h *Handler) hospitalActor(ctx context.Context) (id.HospitalID, error) {
	wallet := requestcontext.Wallet(ctx)
	if wallet.IsZero() {
		return id.HospitalID{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	identity, err := h.resolver.ResolveWallet(ctx, wallet)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return id.HospitalID{}, dErrors.New(dErrors.CodeForbidden, "wallet is not a registered hospital")
		}
		return id.HospitalID{}, err
	}
	if identity.Kind != walletauth.IdentityHospital {
		return id.HospitalID{}, dErrors.New(dErrors.CodeForbidden, "wallet is not a registered hospital")
	}
	return identity.HospitalID, nil
}
