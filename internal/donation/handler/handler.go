package handler

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"medfund/internal/donation/models"
	id "medfund/pkg/domain"
	dErrors "medfund/pkg/domain-errors"
	"medfund/pkg/platform/httputil"
	"medfund/pkg/requestcontext"
)

// Service defines the ledger operations the handler exposes.
type Service interface {
	Record(ctx context.Context, campaignID id.CampaignID, donor id.WalletAddress, amount int64, txHash string) (*models.Donation, error)
	RecordSigned(ctx context.Context, campaignID id.CampaignID, donor id.WalletAddress, amount int64, signedTx []byte) (*models.Donation, error)
	ListByCampaign(ctx context.Context, campaignID id.CampaignID) ([]*models.Donation, error)
}

// Handler wires donation endpoints to the ledger service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts donation endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/campaigns/{campaignID}/donations", h.HandleRecord)
	r.Get("/campaigns/{campaignID}/donations", h.HandleList)
}

type recordRequest struct {
	Amount int64 `json:"amount"`
	// TxHash reports an already-confirmed chain transaction. SignedTx is the
	// raw signed bytes to submit through the gateway instead. Exactly one.
	TxHash   string `json:"tx_hash,omitempty"`
	SignedTx string `json:"signed_tx,omitempty"`
}

// HandleRecord handles POST /campaigns/{campaignID}/donations requests. The
// donor is the authenticated wallet.
func (h *Handler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	donor := requestcontext.Wallet(ctx)
	if donor.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	campaignID, err := id.ParseCampaignID(chi.URLParam(r, "campaignID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[recordRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if (req.TxHash == "") == (req.SignedTx == "") {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "exactly one of tx_hash and signed_tx must be provided"))
		return
	}

	var donation *models.Donation
	if req.TxHash != "" {
		donation, err = h.service.Record(ctx, campaignID, donor, req.Amount, req.TxHash)
	} else {
		var signedTx []byte
		signedTx, err = base64.StdEncoding.DecodeString(req.SignedTx)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "signed_tx must be base64"))
			return
		}
		donation, err = h.service.RecordSigned(ctx, campaignID, donor, req.Amount, signedTx)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "donation recording failed",
			"request_id", requestID,
			"campaign_id", campaignID,
			"donor", donor,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, donation)
}

// HandleList handles GET /campaigns/{campaignID}/donations requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	campaignID, err := id.ParseCampaignID(chi.URLParam(r, "campaignID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	donations, err := h.service.ListByCampaign(r.Context(), campaignID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if donations == nil {
		donations = []*models.Donation{}
	}
	httputil.WriteJSON(w, http.StatusOK, donations)
}
