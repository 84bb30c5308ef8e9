package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"medfund/internal/audit"
	"medfund/internal/campaign/models"
	"medfund/internal/platform/metrics"
	id "medfund/pkg/domain"
	dErrors "medfund/pkg/domain-errors"
	"medfund/pkg/platform/sentinel"
	"medfund/pkg/requestcontext"
)

// CampaignStore persists campaigns. Status moves only through UpdateStatus,
// which is compare-and-swap on the expected status; the raised total moves
// only through the donation path.
type CampaignStore interface {
	Create(ctx context.Context, campaign *models.Campaign) error
	FindByID(ctx context.Context, campaignID id.CampaignID) (*models.Campaign, error)
	ListByHospital(ctx context.Context, hospitalID id.HospitalID) ([]*models.Campaign, error)
	ListByPatient(ctx context.Context, patientID id.PatientID) ([]*models.Campaign, error)
	UpdateStatus(ctx context.Context, campaignID id.CampaignID, expected models.CampaignStatus, campaign *models.Campaign) error
}

// IdentityDirectory answers who the registry knows. Wired from the identity
// service in main.
type IdentityDirectory interface {
	// IsHospitalVerified reports the hospital's standing; a missing hospital
	// is a CodeNotFound error, not a false.
	IsHospitalVerified(ctx context.Context, hospitalID id.HospitalID) (bool, error)
	PatientExists(ctx context.Context, patientID id.PatientID) (bool, error)
}

// EvidenceChecker reports whether a campaign has supporting documents on
// file. Approval is gated on it.
type EvidenceChecker interface {
	HasCampaignEvidence(ctx context.Context, campaignID id.CampaignID) (bool, error)
}

// AuditPublisher records campaign lifecycle activity.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service runs the campaign workflow. Every transition is a store-level
// compare-and-set; concurrent writers cannot both win, and a lost race
// surfaces as CodeInvalidState rather than a silent overwrite.
type Service struct {
	campaigns CampaignStore
	identity  IdentityDirectory
	evidence  EvidenceChecker
	logger    *slog.Logger
	metrics   *metrics.Metrics
	publisher AuditPublisher
	tracer    trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithEvidenceChecker gates approval on supporting documents being on file.
func WithEvidenceChecker(checker EvidenceChecker) Option {
	return func(s *Service) { s.evidence = checker }
}

func New(campaigns CampaignStore, identity IdentityDirectory, opts ...Option) *Service {
	s := &Service{
		campaigns: campaigns,
		identity:  identity,
		logger:    slog.Default(),
		tracer:    otel.Tracer("medfund/campaign"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type SubmitInput struct {
	PatientID    id.PatientID
	HospitalID   id.HospitalID
	AmountNeeded int64
	Duration     time.Duration
	Story        string
}

// Submit creates a campaign in PENDING status. The submitting hospital must
// be verified and the patient must exist.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (*models.Campaign, error) {
	verified, err := s.identity.IsHospitalVerified(ctx, input.HospitalID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check hospital standing")
	}
	if !verified {
		return nil, dErrors.New(dErrors.CodeForbidden, "only verified hospitals can submit campaigns")
	}

	exists, err := s.identity.PatientExists(ctx, input.PatientID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check patient")
	}
	if !exists {
		return nil, dErrors.New(dErrors.CodeNotFound, "campaign patient not found")
	}

	campaign, err := models.NewCampaign(id.NewCampaignID(), input.PatientID, input.HospitalID,
		input.AmountNeeded, input.Duration, input.Story, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.campaigns.Create(ctx, campaign); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create campaign")
	}

	s.recordTransition(ctx, campaign, audit.ActionCampaignSubmitted, "")
	return campaign, nil
}

// Approve moves a pending campaign to APPROVED. The actor must be the
// campaign's own verified hospital, and the campaign must have supporting
// evidence on file.
func (s *Service) Approve(ctx context.Context, campaignID id.CampaignID, actorHospitalID id.HospitalID) (*models.Campaign, error) {
	ctx, span := s.tracer.Start(ctx, "campaign.Approve",
		trace.WithAttributes(attribute.String("campaign.id", campaignID.String())))
	defer span.End()

	campaign, err := s.getCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if err := s.checkActor(ctx, campaign, actorHospitalID); err != nil {
		return nil, err
	}
	if campaign.Status != models.CampaignStatusPending {
		return nil, dErrors.Newf(dErrors.CodeInvalidState, "campaign is %s, not PENDING", campaign.Status)
	}

	if s.evidence != nil {
		ok, err := s.evidence.HasCampaignEvidence(ctx, campaignID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check campaign evidence")
		}
		if !ok {
			return nil, dErrors.New(dErrors.CodeMissingEvidence, "campaign has no supporting document on file")
		}
	}

	updated, err := s.transition(ctx, campaign, models.CampaignStatusApproved, func(c *models.Campaign) {})
	if err != nil {
		return nil, err
	}
	s.recordTransition(ctx, updated, audit.ActionCampaignApproved, "")
	return updated, nil
}

// Reject moves a pending campaign to REJECTED. Rejecting an already
// rejected campaign is an idempotent no-op.
func (s *Service) Reject(ctx context.Context, campaignID id.CampaignID, actorHospitalID id.HospitalID, reason string) (*models.Campaign, error) {
	campaign, err := s.getCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if err := s.checkActor(ctx, campaign, actorHospitalID); err != nil {
		return nil, err
	}
	if campaign.Status == models.CampaignStatusRejected {
		return campaign, nil
	}
	if campaign.Status != models.CampaignStatusPending {
		return nil, dErrors.Newf(dErrors.CodeInvalidState, "campaign is %s, not PENDING", campaign.Status)
	}

	updated, err := s.transition(ctx, campaign, models.CampaignStatusRejected, func(c *models.Campaign) {
		c.RejectReason = reason
	})
	if err != nil {
		return nil, err
	}
	s.recordTransition(ctx, updated, audit.ActionCampaignRejected, reason)
	return updated, nil
}

// OpenFunding sets the escrow address and moves an approved campaign to
// FUNDING. Escrow is write-once: repeating the call with the same address
// on a FUNDING campaign is a no-op, a different address is a conflict.
func (s *Service) OpenFunding(ctx context.Context, campaignID id.CampaignID, escrow id.WalletAddress) (*models.Campaign, error) {
	if escrow.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "escrow address is required")
	}

	campaign, err := s.getCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if !campaign.Escrow.IsZero() {
		if campaign.Escrow == escrow && campaign.Status == models.CampaignStatusFunding {
			return campaign, nil
		}
		return nil, dErrors.New(dErrors.CodeConflict, "escrow already set")
	}
	if campaign.Status != models.CampaignStatusApproved {
		return nil, dErrors.Newf(dErrors.CodeInvalidState, "campaign is %s, not APPROVED", campaign.Status)
	}

	updated, err := s.transition(ctx, campaign, models.CampaignStatusFunding, func(c *models.Campaign) {
		c.Escrow = escrow
	})
	if err != nil {
		return nil, err
	}
	s.recordTransition(ctx, updated, audit.ActionFundingOpened, "")
	return updated, nil
}

// Complete closes a FUNDING campaign. Allowed once the raised total has met
// the target, or after the campaign duration has elapsed even underfunded.
// Completing an already completed campaign is an idempotent no-op.
func (s *Service) Complete(ctx context.Context, campaignID id.CampaignID) (*models.Campaign, error) {
	campaign, err := s.getCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Status == models.CampaignStatusCompleted {
		return campaign, nil
	}
	if campaign.Status != models.CampaignStatusFunding {
		return nil, dErrors.Newf(dErrors.CodeInvalidState, "campaign is %s, not FUNDING", campaign.Status)
	}
	if !campaign.FullyFunded() && requestcontext.Now(ctx).Before(campaign.Deadline()) {
		return nil, dErrors.New(dErrors.CodeInvalidState, "campaign has not met its target and is still within its funding window")
	}

	updated, err := s.transition(ctx, campaign, models.CampaignStatusCompleted, func(c *models.Campaign) {})
	if err != nil {
		return nil, err
	}
	s.recordTransition(ctx, updated, audit.ActionCampaignCompleted, "")
	return updated, nil
}

// GetCampaign loads a campaign by ID.
func (s *Service) GetCampaign(ctx context.Context, campaignID id.CampaignID) (*models.Campaign, error) {
	return s.getCampaign(ctx, campaignID)
}

// ListByHospital returns a hospital's campaigns in submission order.
func (s *Service) ListByHospital(ctx context.Context, hospitalID id.HospitalID) ([]*models.Campaign, error) {
	campaigns, err := s.campaigns.ListByHospital(ctx, hospitalID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list campaigns")
	}
	return campaigns, nil
}

// ListByPatient returns a patient's campaigns in submission order.
func (s *Service) ListByPatient(ctx context.Context, patientID id.PatientID) ([]*models.Campaign, error) {
	campaigns, err := s.campaigns.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list campaigns")
	}
	return campaigns, nil
}

// CampaignExists backs the evidence owner check.
func (s *Service) CampaignExists(ctx context.Context, campaignID id.CampaignID) (bool, error) {
	_, err := s.campaigns.FindByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load campaign")
	}
	return true, nil
}

func (s *Service) transition(ctx context.Context, campaign *models.Campaign, target models.CampaignStatus, mutate func(*models.Campaign)) (*models.Campaign, error) {
	if !campaign.Status.CanTransitionTo(target) {
		return nil, dErrors.Newf(dErrors.CodeInvalidState, "campaign cannot move from %s to %s", campaign.Status, target)
	}

	updated := *campaign
	mutate(&updated)
	updated.Status = target
	updated.UpdatedAt = requestcontext.Now(ctx)

	if err := s.campaigns.UpdateStatus(ctx, campaign.ID, campaign.Status, &updated); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidState, "campaign was moved by a concurrent request")
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "campaign not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update campaign status")
	}
	return &updated, nil
}

func (s *Service) checkActor(ctx context.Context, campaign *models.Campaign, actorHospitalID id.HospitalID) error {
	if campaign.HospitalID != actorHospitalID {
		return dErrors.New(dErrors.CodeForbidden, "campaign belongs to a different hospital")
	}
	verified, err := s.identity.IsHospitalVerified(ctx, actorHospitalID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check hospital standing")
	}
	if !verified {
		return dErrors.New(dErrors.CodeForbidden, "only verified hospitals can decide campaigns")
	}
	return nil
}

func (s *Service) getCampaign(ctx context.Context, campaignID id.CampaignID) (*models.Campaign, error) {
	campaign, err := s.campaigns.FindByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "campaign not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load campaign")
	}
	return campaign, nil
}

func (s *Service) recordTransition(ctx context.Context, campaign *models.Campaign, action audit.Action, reason string) {
	if s.metrics != nil {
		s.metrics.CampaignTransitions.WithLabelValues(string(campaign.Status)).Inc()
	}
	s.logger.InfoContext(ctx, "campaign transition",
		"campaign_id", campaign.ID,
		"status", campaign.Status,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.Event{
		Category: audit.CategoryOperations,
		Action:   action,
		Subject:  campaign.ID.String(),
		Reason:   reason,
	})
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.publisher != nil {
		_ = s.publisher.Emit(ctx, event)
	}
}
