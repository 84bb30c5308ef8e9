package handler

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"medfund/internal/audit"
	"medfund/internal/walletauth/models"
	id "medfund/pkg/domain"
	dErrors "medfund/pkg/domain-errors"
	"medfund/pkg/platform/httputil"
	"medfund/pkg/requestcontext"
)

// Service defines the challenge operations the handler exposes.
type Service interface {
	IssueChallenge(ctx context.Context, wallet id.WalletAddress) (*models.Challenge, error)
	VerifyAndConsume(ctx context.Context, wallet id.WalletAddress, proof []byte) (*models.AuthenticatedIdentity, error)
}

// TokenIssuer mints the session token handed out after a successful
// challenge verification.
type TokenIssuer interface {
	Issue(wallet id.WalletAddress, now time.Time) (string, error)
}

// AuditPublisher records session issuance.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Handler wires wallet auth endpoints to the challenge service.
type Handler struct {
	service   Service
	tokens    TokenIssuer
	logger    *slog.Logger
	publisher AuditPublisher
	tokenTTL  time.Duration
}

func New(service Service, tokens TokenIssuer, tokenTTL time.Duration, logger *slog.Logger, publisher AuditPublisher) *Handler {
	return &Handler{
		service:   service,
		tokens:    tokens,
		logger:    logger,
		publisher: publisher,
		tokenTTL:  tokenTTL,
	}
}

// Register mounts wallet auth endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/challenge", h.HandleIssueChallenge)
	r.Post("/auth/verify", h.HandleVerify)
}

type challengeRequest struct {
	WalletAddress string `json:"wallet_address"`
}

type challengeResponse struct {
	WalletAddress string    `json:"wallet_address"`
	Nonce         string    `json:"nonce"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// HandleIssueChallenge handles POST /auth/challenge requests.
func (h *Handler) HandleIssueChallenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[challengeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	wallet, err := id.ParseWalletAddress(req.WalletAddress)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	ch, err := h.service.IssueChallenge(ctx, wallet)
	if err != nil {
		h.logger.ErrorContext(ctx, "challenge issuance failed",
			"request_id", requestID,
			"wallet", wallet,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, challengeResponse{
		WalletAddress: wallet.String(),
		Nonce:         base64.StdEncoding.EncodeToString(ch.Nonce),
		ExpiresAt:     ch.ExpiresAt,
	})
}

type verifyRequest struct {
	WalletAddress string `json:"wallet_address"`
	Proof         string `json:"proof"`
}

type verifyResponse struct {
	Token         string    `json:"token"`
	WalletAddress string    `json:"wallet_address"`
	IdentityKind  string    `json:"identity_kind"`
	HospitalID    string    `json:"hospital_id,omitempty"`
	PatientID     string    `json:"patient_id,omitempty"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// HandleVerify handles POST /auth/verify requests. A valid proof burns the
// challenge and returns a session token.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[verifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	wallet, err := id.ParseWalletAddress(req.WalletAddress)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	proof, err := base64.StdEncoding.DecodeString(req.Proof)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "proof must be base64"))
		return
	}

	identity, err := h.service.VerifyAndConsume(ctx, wallet, proof)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	now := requestcontext.Now(ctx)
	token, err := h.tokens.Issue(wallet, now)
	if err != nil {
		h.logger.ErrorContext(ctx, "session token issuance failed",
			"request_id", requestID,
			"wallet", wallet,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue session token"))
		return
	}

	if h.publisher != nil {
		_ = h.publisher.Emit(ctx, audit.Event{
			Category: audit.CategorySecurity,
			Action:   audit.ActionWalletSessionIssued,
			Subject:  wallet.String(),
			Actor:    wallet.String(),
		})
	}
	h.logger.InfoContext(ctx, "wallet session issued",
		"request_id", requestID,
		"wallet", wallet,
		"identity_kind", identity.Kind,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	resp := verifyResponse{
		Token:         token,
		WalletAddress: wallet.String(),
		IdentityKind:  string(identity.Kind),
		ExpiresAt:     now.Add(h.tokenTTL),
	}
	if !identity.HospitalID.IsZero() {
		resp.HospitalID = identity.HospitalID.String()
	}
	if !identity.PatientID.IsZero() {
		resp.PatientID = identity.PatientID.String()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
