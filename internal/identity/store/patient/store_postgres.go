package patient

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"medfund/internal/identity/models"
	id "medfund/pkg/domain"
	"medfund/pkg/platform/sentinel"
)

// PostgresStore persists patients in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, patient *models.Patient) error {
	query := `
		INSERT INTO patients (id, first_name, last_name, email, wallet_address, hospital_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		patient.ID.String(),
		patient.FirstName,
		patient.LastName,
		nullableString(patient.Email),
		nullableString(patient.Wallet.String()),
		nullableID(patient.HospitalID),
		patient.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("patient wallet already registered: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("create patient: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, patientID id.PatientID) (*models.Patient, error) {
	query := `
		SELECT id, first_name, last_name, email, wallet_address, hospital_id, created_at
		FROM patients
		WHERE id = $1
	`
	patient, err := scanPatient(s.db.QueryRowContext(ctx, query, patientID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("patient %s: %w", patientID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find patient: %w", err)
	}
	return patient, nil
}

func (s *PostgresStore) FindByWallet(ctx context.Context, wallet id.WalletAddress) (*models.Patient, error) {
	query := `
		SELECT id, first_name, last_name, email, wallet_address, hospital_id, created_at
		FROM patients
		WHERE wallet_address = $1
	`
	patient, err := scanPatient(s.db.QueryRowContext(ctx, query, wallet.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("patient wallet %s: %w", wallet, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find patient by wallet: %w", err)
	}
	return patient, nil
}

func nullableString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func nullableID(hospitalID id.HospitalID) sql.NullString {
	if hospitalID.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: hospitalID.String(), Valid: true}
}

type patientRow interface {
	Scan(dest ...any) error
}

func scanPatient(row patientRow) (*models.Patient, error) {
	var (
		patient    models.Patient
		rawID      string
		email      sql.NullString
		wallet     sql.NullString
		hospitalID sql.NullString
	)
	if err := row.Scan(&rawID, &patient.FirstName, &patient.LastName, &email, &wallet, &hospitalID, &patient.CreatedAt); err != nil {
		return nil, err
	}
	parsedID, err := id.ParsePatientID(rawID)
	if err != nil {
		return nil, fmt.Errorf("stored patient id invalid: %w", err)
	}
	patient.ID = parsedID
	if email.Valid {
		patient.Email = email.String
	}
	if wallet.Valid {
		patient.Wallet = id.WalletAddress(wallet.String)
	}
	if hospitalID.Valid {
		parsedHospital, err := id.ParseHospitalID(hospitalID.String)
		if err != nil {
			return nil, fmt.Errorf("stored patient hospital id invalid: %w", err)
		}
		patient.HospitalID = parsedHospital
	}
	return &patient, nil
}
