//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Ledger,CampaignCompleter,ChainGateway,AuditPublisher
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"medfund/internal/audit"
	"medfund/internal/donation/models"
	"medfund/internal/platform/metrics"
	id "medfund/pkg/domain"
	dErrors "medfund/pkg/domain-errors"
	"medfund/pkg/platform/sentinel"
	"medfund/pkg/requestcontext"
)

// Ledger persists donations. Record is atomic with the campaign aggregate:
// either both the row and the raised total move, or neither does.
type Ledger interface {
	Record(ctx context.Context, donation *models.Donation) (*models.RecordResult, error)
	ListByCampaign(ctx context.Context, campaignID id.CampaignID) ([]*models.Donation, error)
}

// CampaignCompleter closes a campaign once its target is met. Wired from
// the campaign service in main.
type CampaignCompleter interface {
	Complete(ctx context.Context, campaignID id.CampaignID) error
}

// ChainGateway submits signed transaction bytes and returns the hash the
// ledger keys on.
type ChainGateway interface {
	SubmitTransaction(ctx context.Context, signedTx []byte) (string, error)
}

// AuditPublisher records ledger activity.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service reconciles on-chain donations into campaign totals. The ledger
// write is the source of truth; everything after it (completion, metrics,
// audit) is best effort on top of an already-committed row.
type Service struct {
	ledger    Ledger
	completer CampaignCompleter
	gateway   ChainGateway
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

// WithCampaignCompleter enables automatic completion when a donation meets
// the campaign target.
func WithCampaignCompleter(completer CampaignCompleter) Option {
	return func(s *Service) { s.completer = completer }
}

// WithChainGateway enables RecordSigned, which submits the transaction
// before recording it.
func WithChainGateway(gateway ChainGateway) Option {
	return func(s *Service) { s.gateway = gateway }
}

func New(ledger Ledger, opts ...Option) *Service {
	s := &Service{
		ledger: ledger,
		logger: slog.Default(),
		tracer: otel.Tracer("medfund/donation"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record folds a confirmed donation into the campaign's raised total.
// (campaignID, txHash) is the idempotency key: a replay returns the
// existing row unchanged, with no error and no aggregate movement. When
// the new total meets the target the campaign is completed; losing that
// completion race to a concurrent caller is swallowed, since the ledger
// write already committed.
func (s *Service) Record(ctx context.Context, campaignID id.CampaignID, donor id.WalletAddress, amount int64, txHash string) (*models.Donation, error) {
	ctx, span := s.tracer.Start(ctx, "donation.Record",
		trace.WithAttributes(
			attribute.String("campaign.id", campaignID.String()),
			attribute.Int64("donation.amount", amount),
		))
	defer span.End()

	donation, err := models.NewDonation(id.NewDonationID(), campaignID, donor, amount, txHash, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	result, err := s.ledger.Record(ctx, donation)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "campaign not found")
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidState, "campaign is not accepting donations")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record donation")
		}
	}

	if result.Duplicate {
		if s.metrics != nil {
			s.metrics.DonationsDuplicate.Inc()
		}
		s.emit(ctx, audit.Event{
			Category: audit.CategoryOperations,
			Action:   audit.ActionDonationDuplicate,
			Subject:  campaignID.String(),
			Actor:    donor.String(),
		})
		return result.Donation, nil
	}

	if s.metrics != nil {
		s.metrics.DonationsRecorded.Inc()
		s.metrics.DonationAmount.Add(float64(amount))
	}
	s.logger.InfoContext(ctx, "donation recorded",
		"campaign_id", campaignID,
		"amount", amount,
		"raised", result.AmountRaised,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.Event{
		Category: audit.CategoryOperations,
		Action:   audit.ActionDonationRecorded,
		Subject:  campaignID.String(),
		Actor:    donor.String(),
	})

	if result.AmountRaised >= result.AmountNeeded {
		s.completeCampaign(ctx, campaignID)
	}
	return result.Donation, nil
}

// RecordSigned submits signed transaction bytes through the chain gateway
// and records the resulting donation under the returned hash.
func (s *Service) RecordSigned(ctx context.Context, campaignID id.CampaignID, donor id.WalletAddress, amount int64, signedTx []byte) (*models.Donation, error) {
	if s.gateway == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "chain gateway is not configured")
	}
	txHash, err := s.gateway.SubmitTransaction(ctx, signedTx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to submit transaction")
	}
	return s.Record(ctx, campaignID, donor, amount, txHash)
}

// ListByCampaign returns the campaign's donations in recording order.
func (s *Service) ListByCampaign(ctx context.Context, campaignID id.CampaignID) ([]*models.Donation, error) {
	donations, err := s.ledger.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list donations")
	}
	return donations, nil
}

func (s *Service) completeCampaign(ctx context.Context, campaignID id.CampaignID) {
	if s.completer == nil {
		return
	}
	if err := s.completer.Complete(ctx, campaignID); err != nil {
		// A concurrent donation may have completed it first.
		if dErrors.HasCode(err, dErrors.CodeInvalidState) {
			return
		}
		s.logger.WarnContext(ctx, "campaign completion after full funding failed",
			"campaign_id", campaignID,
			"error", err,
		)
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.publisher != nil {
		_ = s.publisher.Emit(ctx, event)
	}
}
