package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"medfund/internal/identity/models"
	"medfund/internal/identity/service"
	id "medfund/pkg/domain"
	"medfund/pkg/platform/httputil"
	"medfund/pkg/requestcontext"
)

// Service defines the registry operations the handler exposes.
type Service interface {
	RegisterHospital(ctx context.Context, input service.RegisterHospitalInput) (*models.Hospital, error)
	RegisterPatient(ctx context.Context, input service.RegisterPatientInput) (*models.Patient, error)
	DecideHospitalVerification(ctx context.Context, hospitalID id.HospitalID, decision models.Decision, reason string) (*models.Hospital, error)
	GetHospital(ctx context.Context, hospitalID id.HospitalID) (*models.Hospital, error)
	GetPatient(ctx context.Context, patientID id.PatientID) (*models.Patient, error)
}

// Handler wires registry endpoints to the identity service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts registry endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/hospitals", h.HandleRegisterHospital)
	r.Get("/hospitals/{hospitalID}", h.HandleGetHospital)
	r.Post("/hospitals/{hospitalID}/decision", h.HandleDecide)
	r.Post("/patients", h.HandleRegisterPatient)
	r.Get("/patients/{patientID}", h.HandleGetPatient)
}

type registerHospitalRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	LicenseNumber string `json:"license_number"`
	WalletAddress string `json:"wallet_address,omitempty"`
}

// HandleRegisterHospital handles POST /hospitals requests.
func (h *Handler) HandleRegisterHospital(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[registerHospitalRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	input := service.RegisterHospitalInput{
		Name:          req.Name,
		Email:         req.Email,
		LicenseNumber: req.LicenseNumber,
	}
	if req.WalletAddress != "" {
		wallet, err := id.ParseWalletAddress(req.WalletAddress)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		input.Wallet = wallet
	}

	hospital, err := h.service.RegisterHospital(ctx, input)
	if err != nil {
		h.logger.ErrorContext(ctx, "hospital registration failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, hospital)
}

// HandleGetHospital handles GET /hospitals/{hospitalID} requests.
func (h *Handler) HandleGetHospital(w http.ResponseWriter, r *http.Request) {
	hospitalID, err := id.ParseHospitalID(chi.URLParam(r, "hospitalID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	hospital, err := h.service.GetHospital(r.Context(), hospitalID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, hospital)
}

type decisionRequest struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}

// HandleDecide handles POST /hospitals/{hospitalID}/decision requests.
func (h *Handler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	hospitalID, err := id.ParseHospitalID(chi.URLParam(r, "hospitalID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[decisionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	decision, err := models.ParseDecision(req.Decision)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	hospital, err := h.service.DecideHospitalVerification(ctx, hospitalID, decision, req.Reason)
	if err != nil {
		h.logger.ErrorContext(ctx, "hospital decision failed",
			"request_id", requestID,
			"hospital_id", hospitalID,
			"decision", decision,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "hospital decision applied",
		"request_id", requestID,
		"hospital_id", hospitalID,
		"status", hospital.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, hospital)
}

type registerPatientRequest struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email,omitempty"`
	WalletAddress string `json:"wallet_address,omitempty"`
	HospitalID    string `json:"hospital_id,omitempty"`
}

// HandleRegisterPatient handles POST /patients requests.
func (h *Handler) HandleRegisterPatient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[registerPatientRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	input := service.RegisterPatientInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	}
	if req.WalletAddress != "" {
		wallet, err := id.ParseWalletAddress(req.WalletAddress)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		input.Wallet = wallet
	}
	if req.HospitalID != "" {
		hospitalID, err := id.ParseHospitalID(req.HospitalID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		input.HospitalID = hospitalID
	}

	patient, err := h.service.RegisterPatient(ctx, input)
	if err != nil {
		h.logger.ErrorContext(ctx, "patient registration failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, patient)
}

// HandleGetPatient handles GET /patients/{patientID} requests.
func (h *Handler) HandleGetPatient(w http.ResponseWriter, r *http.Request) {
	patientID, err := id.ParsePatientID(chi.URLParam(r, "patientID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	patient, err := h.service.GetPatient(r.Context(), patientID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, patient)
}
