//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks ChallengeStore,SignatureVerifier,IdentityResolver,AuditPublisher
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"medfund/internal/audit"
	"medfund/internal/platform/metrics"
	"medfund/internal/walletauth/models"
	id "medfund/pkg/domain"
	dErrors "medfund/pkg/domain-errors"
	"medfund/pkg/platform/sentinel"
	"medfund/pkg/requestcontext"
)

const nonceLen = 32

// ChallengeStore holds at most one live challenge per wallet address.
type ChallengeStore interface {
	// Put stores the challenge, replacing any unconsumed one for the address.
	Put(ctx context.Context, ch *models.Challenge) error
	// Take atomically removes and returns the live challenge. The removal is
	// unconditional so a nonce cannot be consumed twice, even by racing
	// requests and regardless of the verification outcome.
	Take(ctx context.Context, wallet id.WalletAddress) (*models.Challenge, error)
}

// SignatureVerifier checks that a proof signs the nonce with the key behind
// the wallet address. The external wallet SDK produces proofs; we only check.
type SignatureVerifier interface {
	Verify(wallet id.WalletAddress, nonce, proof []byte) error
}

// IdentityResolver maps an authenticated wallet to its registry record, when
// one exists. Wallets without a record are donors.
type IdentityResolver interface {
	ResolveWallet(ctx context.Context, wallet id.WalletAddress) (models.AuthenticatedIdentity, error)
}

// AuditPublisher records security-relevant challenge activity.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service issues and consumes wallet auth challenges. Successful consumption
// is the sole basis on which the rest of the system accepts a caller as
// acting for a wallet address.
type Service struct {
	store     ChallengeStore
	verifier  SignatureVerifier
	resolver  IdentityResolver
	ttl       time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
	publisher AuditPublisher
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

func New(store ChallengeStore, verifier SignatureVerifier, resolver IdentityResolver, ttl time.Duration, opts ...Option) *Service {
	s := &Service{
		store:    store,
		verifier: verifier,
		resolver: resolver,
		ttl:      ttl,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueChallenge generates a fresh nonce for the address, replacing any
// prior unconsumed challenge.
func (s *Service) IssueChallenge(ctx context.Context, wallet id.WalletAddress) (*models.Challenge, error) {
	if wallet.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "wallet address is required")
	}

	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	now := requestcontext.Now(ctx)
	ch := &models.Challenge{
		Wallet:    wallet,
		Nonce:     nonce,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Put(ctx, ch); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to store challenge")
	}

	s.incrementIssued()
	s.emit(ctx, audit.Event{
		Category: audit.CategorySecurity,
		Action:   audit.ActionChallengeIssued,
		Subject:  wallet.String(),
	})
	return ch, nil
}

// VerifyAndConsume validates a signature over the live nonce for the wallet
// and burns the challenge on every outcome. Failure modes:
//   - no live challenge (never issued, already consumed): CodeUnauthorized
//     wrapping sentinel.ErrNotFound
//   - challenge expired: CodeUnauthorized wrapping sentinel.ErrExpired
//   - signature invalid: CodeUnauthorized wrapping sentinel.ErrInvalidSignature
func (s *Service) VerifyAndConsume(ctx context.Context, wallet id.WalletAddress, proof []byte) (*models.AuthenticatedIdentity, error) {
	if wallet.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "wallet address is required")
	}
	if len(proof) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "signature is required")
	}

	// Take removes the challenge before any check runs, so the nonce is
	// burned whether or not verification succeeds.
	ch, err := s.store.Take(ctx, wallet)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, s.fail(ctx, wallet, "nonce_not_found",
				dErrors.Wrap(err, dErrors.CodeUnauthorized, "no challenge issued for this address"))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load challenge")
	}

	now := requestcontext.Now(ctx)
	if err := ch.ValidateForConsume(now); err != nil {
		return nil, s.fail(ctx, wallet, "nonce_expired",
			dErrors.Wrap(err, dErrors.CodeUnauthorized, "challenge has expired"))
	}

	if err := s.verifier.Verify(wallet, ch.Nonce, proof); err != nil {
		return nil, s.fail(ctx, wallet, "invalid_signature",
			dErrors.Wrap(err, dErrors.CodeUnauthorized, "signature verification failed"))
	}

	identity, err := s.resolveIdentity(ctx, wallet)
	if err != nil {
		return nil, err
	}

	s.incrementConsumed()
	s.emit(ctx, audit.Event{
		Category: audit.CategorySecurity,
		Action:   audit.ActionChallengeConsumed,
		Subject:  wallet.String(),
		Actor:    wallet.String(),
	})
	return identity, nil
}

func (s *Service) resolveIdentity(ctx context.Context, wallet id.WalletAddress) (*models.AuthenticatedIdentity, error) {
	if s.resolver == nil {
		return &models.AuthenticatedIdentity{Wallet: wallet, Kind: models.IdentityDonor}, nil
	}
	identity, err := s.resolver.ResolveWallet(ctx, wallet)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return &models.AuthenticatedIdentity{Wallet: wallet, Kind: models.IdentityDonor}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve wallet identity")
	}
	return &identity, nil
}

func (s *Service) fail(ctx context.Context, wallet id.WalletAddress, reason string, err error) error {
	s.incrementFailed(reason)
	s.logger.WarnContext(ctx, "wallet challenge verification failed",
		"wallet", wallet,
		"reason", reason,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.Event{
		Category: audit.CategorySecurity,
		Action:   audit.ActionChallengeFailed,
		Subject:  wallet.String(),
		Reason:   reason,
	})
	return err
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.publisher != nil {
		_ = s.publisher.Emit(ctx, event)
	}
}

func (s *Service) incrementIssued() {
	if s.metrics != nil {
		s.metrics.ChallengesIssued.Inc()
	}
}

func (s *Service) incrementConsumed() {
	if s.metrics != nil {
		s.metrics.ChallengesConsumed.Inc()
	}
}

func (s *Service) incrementFailed(reason string) {
	if s.metrics != nil {
		s.metrics.ChallengesFailed.WithLabelValues(reason).Inc()
	}
}
