package document

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"medfund/internal/evidence/models"
	id "medfund/pkg/domain"
	"medfund/pkg/platform/sentinel"
)

// PostgresStore is the durable Store backed by the documents table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (id, owner_kind, hospital_id, patient_id, campaign_id, doc_type, storage_ref, attached_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, query,
		doc.ID.String(),
		string(doc.Owner.Kind),
		nullableID(doc.Owner.HospitalID.String(), doc.Owner.HospitalID.IsZero()),
		nullableID(doc.Owner.PatientID.String(), doc.Owner.PatientID.IsZero()),
		nullableID(doc.Owner.CampaignID.String(), doc.Owner.CampaignID.IsZero()),
		string(doc.Type),
		doc.StorageRef,
		doc.AttachedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, documentID id.DocumentID) (*models.Document, error) {
	query := selectColumns + ` FROM documents WHERE id = $1`
	return scanDocument(s.db.QueryRowContext(ctx, query, documentID.String()))
}

func (s *PostgresStore) ListByOwner(ctx context.Context, owner models.OwnerRef) ([]*models.Document, error) {
	query := selectColumns + ` FROM documents WHERE ` + ownerClause(owner) + ` ORDER BY attached_at, id`

	rows, err := s.db.QueryContext(ctx, query, ownerID(owner))
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *PostgresStore) ExistsByOwnerAndType(ctx context.Context, owner models.OwnerRef, docType models.DocumentType) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM documents WHERE ` + ownerClause(owner) + ` AND doc_type = $2)`

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, ownerID(owner), string(docType)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check document exists: %w", err)
	}
	return exists, nil
}

const selectColumns = `SELECT id, owner_kind, hospital_id, patient_id, campaign_id, doc_type, storage_ref, attached_at`

func ownerClause(owner models.OwnerRef) string {
	switch owner.Kind {
	case models.OwnerHospital:
		return `hospital_id = $1`
	case models.OwnerPatient:
		return `patient_id = $1`
	default:
		return `campaign_id = $1`
	}
}

func ownerID(owner models.OwnerRef) string {
	switch owner.Kind {
	case models.OwnerHospital:
		return owner.HospitalID.String()
	case models.OwnerPatient:
		return owner.PatientID.String()
	default:
		return owner.CampaignID.String()
	}
}

type documentRow interface {
	Scan(dest ...any) error
}

func scanDocument(row documentRow) (*models.Document, error) {
	var (
		doc        models.Document
		rawID      string
		ownerKind  string
		hospitalID sql.NullString
		patientID  sql.NullString
		campaignID sql.NullString
		docType    string
	)
	err := row.Scan(&rawID, &ownerKind, &hospitalID, &patientID, &campaignID, &docType, &doc.StorageRef, &doc.AttachedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}

	if doc.ID, err = id.ParseDocumentID(rawID); err != nil {
		return nil, fmt.Errorf("parse document id: %w", err)
	}
	doc.Type = models.DocumentType(docType)
	doc.Owner.Kind = models.OwnerKind(ownerKind)
	if hospitalID.Valid {
		if doc.Owner.HospitalID, err = id.ParseHospitalID(hospitalID.String); err != nil {
			return nil, fmt.Errorf("parse owner hospital id: %w", err)
		}
	}
	if patientID.Valid {
		if doc.Owner.PatientID, err = id.ParsePatientID(patientID.String); err != nil {
			return nil, fmt.Errorf("parse owner patient id: %w", err)
		}
	}
	if campaignID.Valid {
		if doc.Owner.CampaignID, err = id.ParseCampaignID(campaignID.String); err != nil {
			return nil, fmt.Errorf("parse owner campaign id: %w", err)
		}
	}
	return &doc, nil
}

func nullableID(value string, zero bool) sql.NullString {
	if zero {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
