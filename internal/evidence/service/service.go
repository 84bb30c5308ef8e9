package service

import (
	"context"
	"errors"
	"log/slog"

	"medfund/internal/audit"
	"medfund/internal/evidence/models"
	"medfund/internal/platform/metrics"
	id "medfund/pkg/domain"
	dErrors "medfund/pkg/domain-errors"
	"medfund/pkg/platform/sentinel"
	"medfund/pkg/requestcontext"
)

// DocumentStore persists document records. Documents are append-only; the
// store exposes no update or delete.
type DocumentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	FindByID(ctx context.Context, documentID id.DocumentID) (*models.Document, error)
	ListByOwner(ctx context.Context, owner models.OwnerRef) ([]*models.Document, error)
	ExistsByOwnerAndType(ctx context.Context, owner models.OwnerRef, docType models.DocumentType) (bool, error)
}

// ContentStore holds the document bytes externally; documents carry only
// the opaque ref it returns.
type ContentStore interface {
	Put(ctx context.Context, content []byte) (string, error)
}

// OwnerRegistry answers whether the entity a document is being attached to
// exists. Wired from the identity and campaign services in main.
type OwnerRegistry interface {
	HospitalExists(ctx context.Context, hospitalID id.HospitalID) (bool, error)
	PatientExists(ctx context.Context, patientID id.PatientID) (bool, error)
	CampaignExists(ctx context.Context, campaignID id.CampaignID) (bool, error)
}

// AuditPublisher records evidence activity for compliance review.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the evidence registry: append-only documents bound to exactly
// one owner, with the owner-kind/document-type compatibility enforced at
// attach time.
type Service struct {
	docs      DocumentStore
	content   ContentStore
	owners    OwnerRegistry
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

// WithOwnerRegistry enables existence checks on the attach target.
func WithOwnerRegistry(owners OwnerRegistry) Option {
	return func(s *Service) { s.owners = owners }
}

func New(docs DocumentStore, content ContentStore, opts ...Option) *Service {
	s := &Service{
		docs:    docs,
		content: content,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type AttachInput struct {
	Owner models.OwnerRef
	Type  models.DocumentType
	// Content is the raw document bytes. When StorageRef is set instead,
	// the bytes already live in external storage and Content must be empty.
	Content    []byte
	StorageRef string
}

// Attach binds a new document to its owner. The owner must exist, the
// document type must be permitted for the owner kind, and exactly one of
// Content and StorageRef must be provided.
func (s *Service) Attach(ctx context.Context, input AttachInput) (*models.Document, error) {
	if err := input.Owner.Validate(); err != nil {
		return nil, err
	}
	if _, err := models.ParseDocumentType(string(input.Type)); err != nil {
		return nil, err
	}
	if !models.TypeAllowedFor(input.Owner.Kind, input.Type) {
		return nil, dErrors.Newf(dErrors.CodeValidation,
			"document type %s cannot be attached to a %s", input.Type, input.Owner.Kind)
	}
	if (len(input.Content) == 0) == (input.StorageRef == "") {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "exactly one of content and storage ref must be provided")
	}

	if err := s.checkOwnerExists(ctx, input.Owner); err != nil {
		return nil, err
	}

	storageRef := input.StorageRef
	if len(input.Content) > 0 {
		ref, err := s.content.Put(ctx, input.Content)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to store document content")
		}
		storageRef = ref
	}

	doc := &models.Document{
		ID:         id.NewDocumentID(),
		Owner:      input.Owner,
		Type:       input.Type,
		StorageRef: storageRef,
		AttachedAt: requestcontext.Now(ctx),
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create document")
	}

	if s.metrics != nil {
		s.metrics.DocumentsAttached.WithLabelValues(string(doc.Type)).Inc()
	}
	s.logger.InfoContext(ctx, "document attached",
		"document_id", doc.ID,
		"owner", doc.Owner.Key(),
		"type", doc.Type,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.Event{
		Category: audit.CategoryCompliance,
		Action:   audit.ActionDocumentAttached,
		Subject:  doc.Owner.Key(),
	})
	return doc, nil
}

// GetDocument loads a document by ID.
func (s *Service) GetDocument(ctx context.Context, documentID id.DocumentID) (*models.Document, error) {
	doc, err := s.docs.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "document not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load document")
	}
	return doc, nil
}

// ListByOwner returns the owner's documents in attachment order.
func (s *Service) ListByOwner(ctx context.Context, owner models.OwnerRef) ([]*models.Document, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	docs, err := s.docs.ListByOwner(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list documents")
	}
	return docs, nil
}

// HasEvidence reports whether the owner has at least one document of the
// given type on file.
func (s *Service) HasEvidence(ctx context.Context, owner models.OwnerRef, docType models.DocumentType) (bool, error) {
	if err := owner.Validate(); err != nil {
		return false, err
	}
	exists, err := s.docs.ExistsByOwnerAndType(ctx, owner, docType)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check evidence")
	}
	return exists, nil
}

// HasHospitalVerification backs the identity registry's verification gate.
func (s *Service) HasHospitalVerification(ctx context.Context, hospitalID id.HospitalID) (bool, error) {
	return s.HasEvidence(ctx, models.HospitalOwner(hospitalID), models.TypeHospitalVerification)
}

func (s *Service) checkOwnerExists(ctx context.Context, owner models.OwnerRef) error {
	if s.owners == nil {
		return nil
	}
	var (
		exists bool
		err    error
	)
	switch owner.Kind {
	case models.OwnerHospital:
		exists, err = s.owners.HospitalExists(ctx, owner.HospitalID)
	case models.OwnerPatient:
		exists, err = s.owners.PatientExists(ctx, owner.PatientID)
	case models.OwnerCampaign:
		exists, err = s.owners.CampaignExists(ctx, owner.CampaignID)
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check document owner")
	}
	if !exists {
		return dErrors.Newf(dErrors.CodeNotFound, "%s owner does not exist", owner.Kind)
	}
	return nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.publisher != nil {
		_ = s.publisher.Emit(ctx, event)
	}
}
