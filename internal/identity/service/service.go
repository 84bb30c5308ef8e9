package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"medfund/internal/audit"
	"medfund/internal/identity/models"
	"medfund/internal/platform/metrics"
	walletauth "medfund/internal/walletauth/models"
	id "medfund/pkg/domain"
	dErrors "medfund/pkg/domain-errors"
	"medfund/pkg/platform/sentinel"
	"medfund/pkg/requestcontext"
)

// HospitalStore persists hospital records. UpdateStatus is compare-and-swap
// on the expected status so concurrent decisions cannot both win.
type HospitalStore interface {
	Create(ctx context.Context, hospital *models.Hospital) error
	FindByID(ctx context.Context, hospitalID id.HospitalID) (*models.Hospital, error)
	FindByWallet(ctx context.Context, wallet id.WalletAddress) (*models.Hospital, error)
	UpdateStatus(ctx context.Context, hospitalID id.HospitalID, expected models.HospitalStatus, hospital *models.Hospital) error
}

// PatientStore persists patient records.
type PatientStore interface {
	Create(ctx context.Context, patient *models.Patient) error
	FindByID(ctx context.Context, patientID id.PatientID) (*models.Patient, error)
	FindByWallet(ctx context.Context, wallet id.WalletAddress) (*models.Patient, error)
}

// EvidenceChecker answers whether a hospital has verification evidence on
// file. The verification decision is gated on it.
type EvidenceChecker interface {
	HasHospitalVerification(ctx context.Context, hospitalID id.HospitalID) (bool, error)
}

// AuditPublisher records registry activity for compliance review.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the identity registry: hospitals and patients, and the
// PENDING to VERIFIED/REJECTED lifecycle that decides whose campaign
// approvals the rest of the system trusts.
type Service struct {
	hospitals HospitalStore
	patients  PatientStore
	evidence  EvidenceChecker
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

// WithEvidenceChecker gates VERIFY decisions on evidence being on file.
// Without it, decisions are trusted to the operator alone.
func WithEvidenceChecker(checker EvidenceChecker) Option {
	return func(s *Service) { s.evidence = checker }
}

func New(hospitals HospitalStore, patients PatientStore, opts ...Option) *Service {
	s := &Service{
		hospitals: hospitals,
		patients:  patients,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type RegisterHospitalInput struct {
	Name          string
	Email         string
	LicenseNumber string
	Wallet        id.WalletAddress
}

// RegisterHospital creates a hospital record in PENDING status. Email,
// license number and wallet (when set) must be unused.
func (s *Service) RegisterHospital(ctx context.Context, input RegisterHospitalInput) (*models.Hospital, error) {
	hospital, err := models.NewHospital(id.NewHospitalID(), input.Name, input.Email, input.LicenseNumber, input.Wallet, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.hospitals.Create(ctx, hospital); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "hospital email, license or wallet already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create hospital")
	}

	if s.metrics != nil {
		s.metrics.HospitalsRegistered.Inc()
	}
	s.logger.InfoContext(ctx, "hospital registered",
		"hospital_id", hospital.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.Event{
		Category: audit.CategoryCompliance,
		Action:   audit.ActionHospitalRegistered,
		Subject:  hospital.ID.String(),
	})
	return hospital, nil
}

type RegisterPatientInput struct {
	FirstName  string
	LastName   string
	Email      string
	Wallet     id.WalletAddress
	HospitalID id.HospitalID
}

// RegisterPatient creates a patient record. When a registering hospital is
// named it must exist; patients carry no verification status of their own.
func (s *Service) RegisterPatient(ctx context.Context, input RegisterPatientInput) (*models.Patient, error) {
	if !input.HospitalID.IsZero() {
		if _, err := s.hospitals.FindByID(ctx, input.HospitalID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "registering hospital not found")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registering hospital")
		}
	}

	patient, err := models.NewPatient(id.NewPatientID(), input.FirstName, input.LastName, input.Email, input.Wallet, input.HospitalID, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.patients.Create(ctx, patient); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "patient wallet already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create patient")
	}

	if s.metrics != nil {
		s.metrics.PatientsRegistered.Inc()
	}
	s.emit(ctx, audit.Event{
		Category: audit.CategoryCompliance,
		Action:   audit.ActionPatientRegistered,
		Subject:  patient.ID.String(),
	})
	return patient, nil
}

// DecideHospitalVerification applies a VERIFY or REJECT decision to a
// pending hospital. Repeating an already-applied decision is a no-op
// success; a conflicting decision on a decided hospital fails with
// CodeInvalidState. VERIFY additionally requires verification evidence on
// file when an evidence checker is configured.
func (s *Service) DecideHospitalVerification(ctx context.Context, hospitalID id.HospitalID, decision models.Decision, reason string) (*models.Hospital, error) {
	hospital, err := s.getHospital(ctx, hospitalID)
	if err != nil {
		return nil, err
	}

	if err := hospital.CanDecide(decision); err != nil {
		return nil, err
	}
	if hospital.Status == decision.TargetStatus() {
		return hospital, nil
	}

	if decision == models.DecisionVerify && s.evidence != nil {
		ok, err := s.evidence.HasHospitalVerification(ctx, hospitalID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check verification evidence")
		}
		if !ok {
			return nil, dErrors.New(dErrors.CodeMissingEvidence, "hospital has no verification document on file")
		}
	}

	updated := *hospital
	updated.ApplyDecision(decision, requestcontext.Now(ctx))

	if err := s.hospitals.UpdateStatus(ctx, hospitalID, models.HospitalStatusPending, &updated); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			// Lost a race with a concurrent decision. If the other writer
			// reached the same terminal status the repeat is still a no-op.
			current, readErr := s.getHospital(ctx, hospitalID)
			if readErr != nil {
				return nil, readErr
			}
			if current.Status == decision.TargetStatus() {
				return current, nil
			}
			return nil, dErrors.Newf(dErrors.CodeInvalidState,
				"hospital is already %s and cannot become %s", current.Status, decision.TargetStatus())
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update hospital status")
	}

	s.recordDecision(ctx, &updated, decision, reason)
	return &updated, nil
}

func (s *Service) recordDecision(ctx context.Context, hospital *models.Hospital, decision models.Decision, reason string) {
	if s.metrics != nil {
		s.metrics.HospitalDecisions.WithLabelValues(strings.ToLower(string(decision))).Inc()
	}
	s.logger.InfoContext(ctx, "hospital verification decided",
		"hospital_id", hospital.ID,
		"decision", decision,
		"request_id", requestcontext.RequestID(ctx),
	)
	action := audit.ActionHospitalVerified
	if decision == models.DecisionReject {
		action = audit.ActionHospitalRejected
	}
	s.emit(ctx, audit.Event{
		Category: audit.CategoryCompliance,
		Action:   action,
		Subject:  hospital.ID.String(),
		Reason:   reason,
	})
}

// GetHospital loads a hospital by ID.
func (s *Service) GetHospital(ctx context.Context, hospitalID id.HospitalID) (*models.Hospital, error) {
	return s.getHospital(ctx, hospitalID)
}

// GetPatient loads a patient by ID.
func (s *Service) GetPatient(ctx context.Context, patientID id.PatientID) (*models.Patient, error) {
	patient, err := s.patients.FindByID(ctx, patientID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "patient not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load patient")
	}
	return patient, nil
}

// ResolveWallet maps an authenticated wallet address to its registry record.
// Hospitals take precedence over patients; unknown wallets return
// CodeNotFound and are treated as donors by the caller.
func (s *Service) ResolveWallet(ctx context.Context, wallet id.WalletAddress) (walletauth.AuthenticatedIdentity, error) {
	hospital, err := s.hospitals.FindByWallet(ctx, wallet)
	if err == nil {
		return walletauth.AuthenticatedIdentity{
			Wallet:     wallet,
			Kind:       walletauth.IdentityHospital,
			HospitalID: hospital.ID,
		}, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return walletauth.AuthenticatedIdentity{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve hospital wallet")
	}

	patient, err := s.patients.FindByWallet(ctx, wallet)
	if err == nil {
		return walletauth.AuthenticatedIdentity{
			Wallet:    wallet,
			Kind:      walletauth.IdentityPatient,
			PatientID: patient.ID,
		}, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return walletauth.AuthenticatedIdentity{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve patient wallet")
	}
	return walletauth.AuthenticatedIdentity{}, dErrors.New(dErrors.CodeNotFound, "wallet has no registry record")
}

func (s *Service) getHospital(ctx context.Context, hospitalID id.HospitalID) (*models.Hospital, error) {
	hospital, err := s.hospitals.FindByID(ctx, hospitalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "hospital not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load hospital")
	}
	return hospital, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.publisher != nil {
		_ = s.publisher.Emit(ctx, event)
	}
}
