package handler

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"medfund/internal/evidence/models"
	"medfund/internal/evidence/service"
	id "medfund/pkg/domain"
	dErrors "medfund/pkg/domain-errors"
	"medfund/pkg/platform/httputil"
	"medfund/pkg/requestcontext"
)

// Service defines the evidence operations the handler exposes.
type Service interface {
	Attach(ctx context.Context, input service.AttachInput) (*models.Document, error)
	GetDocument(ctx context.Context, documentID id.DocumentID) (*models.Document, error)
	ListByOwner(ctx context.Context, owner models.OwnerRef) ([]*models.Document, error)
}

// Handler wires evidence endpoints to the evidence service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts evidence endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/documents", h.HandleAttach)
	r.Get("/documents/{documentID}", h.HandleGetDocument)
	r.Get("/documents", h.HandleListByOwner)
}

type attachRequest struct {
	OwnerKind  string `json:"owner_kind"`
	OwnerID    string `json:"owner_id"`
	Type       string `json:"type"`
	Content    string `json:"content,omitempty"`
	StorageRef string `json:"storage_ref,omitempty"`
}

// HandleAttach handles POST /documents requests. Content is base64 bytes
// pushed through the content store; storage_ref points at bytes that
// already live externally.
func (h *Handler) HandleAttach(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[attachRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	owner, err := parseOwner(req.OwnerKind, req.OwnerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	docType, err := models.ParseDocumentType(req.Type)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	input := service.AttachInput{Owner: owner, Type: docType, StorageRef: req.StorageRef}
	if req.Content != "" {
		content, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "content must be base64"))
			return
		}
		input.Content = content
	}

	doc, err := h.service.Attach(ctx, input)
	if err != nil {
		h.logger.ErrorContext(ctx, "document attach failed",
			"request_id", requestID,
			"owner", owner.Key(),
			"type", docType,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, doc)
}

// HandleGetDocument handles GET /documents/{documentID} requests.
func (h *Handler) HandleGetDocument(w http.ResponseWriter, r *http.Request) {
	documentID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	doc, err := h.service.GetDocument(r.Context(), documentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}

// HandleListByOwner handles GET /documents?owner_kind=&owner_id= requests.
func (h *Handler) HandleListByOwner(w http.ResponseWriter, r *http.Request) {
	owner, err := parseOwner(r.URL.Query().Get("owner_kind"), r.URL.Query().Get("owner_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	docs, err := h.service.ListByOwner(r.Context(), owner)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	httputil.WriteJSON(w, http.StatusOK, docs)
}

func parseOwner(kind, rawID string) (models.OwnerRef, error) {
	switch models.OwnerKind(kind) {
	case models.OwnerHospital:
		hospitalID, err := id.ParseHospitalID(rawID)
		if err != nil {
			return models.OwnerRef{}, err
		}
		return models.HospitalOwner(hospitalID), nil
	case models.OwnerPatient:
		patientID, err := id.ParsePatientID(rawID)
		if err != nil {
			return models.OwnerRef{}, err
		}
		return models.PatientOwner(patientID), nil
	case models.OwnerCampaign:
		campaignID, err := id.ParseCampaignID(rawID)
		if err != nil {
			return models.OwnerRef{}, err
		}
		return models.CampaignOwner(campaignID), nil
	default:
		return models.OwnerRef{}, dErrors.Newf(dErrors.CodeValidation, "unknown owner kind %q", kind)
	}
}
