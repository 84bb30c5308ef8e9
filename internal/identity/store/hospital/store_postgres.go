package hospital

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

// PostgresStore persists hospitals in PostgreSQL. Transition guards
// live in the service and domain model; this store only enforces them via
// conditional writes.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func (s *PostgresStore) Create(ctx context.Context, hospital *models.Hospital) error {
	query := `
		INSERT INTO hospitals (id, name, email, license_number, wallet_address, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		hospital.ID.String(),
		hospital.Name,
		hospital.Email,
		hospital.LicenseNumber,
		nullableWallet(hospital.Wallet),
		string(hospital.Status),
		hospital.CreatedAt,
		hospital.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("hospital identifiers already registered: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("create hospital: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, hospitalID id.HospitalID) (*models.Hospital, error) {
	query := `
		SELECT id, name, email, license_number, wallet_address, status, decided_at, created_at, updated_at
		FROM hospitals
		WHERE id = $1
	`
	hospital, err := scanHospital(s.db.QueryRowContext(ctx, query, hospitalID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("hospital %s: %w", hospitalID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find hospital: %w", err)
	}
	return hospital, nil
}

func (s *PostgresStore) FindByWallet(ctx context.Context, wallet id.WalletAddress) (*models.Hospital, error) {
	query := `
		SELECT id, name, email, license_number, wallet_address, status, decided_at, created_at, updated_at
		FROM hospitals
		WHERE wallet_address = $1
	`
	hospital, err := scanHospital(s.db.QueryRowContext(ctx, query, wallet.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("hospital wallet %s: %w", wallet, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find hospital by wallet: %w", err)
	}
	return hospital, nil
}

// UpdateStatus writes the transition only if the stored status still matches
// expected. Zero rows affected means the compare-and-set lost; the caller
// re-reads to distinguish a missing row from a superseded transition.
func (s *PostgresStore) UpdateStatus(ctx context.Context, hospitalID id.HospitalID, expected models.HospitalStatus, hospital *models.Hospital) error {
	query := `
		UPDATE hospitals
		SET status = $3, decided_at = $4, updated_at = $5
		WHERE id = $1 AND status = $2
	`
	result, err := s.db.ExecContext(ctx, query,
		hospitalID.String(),
		string(expected),
		string(hospital.Status),
		hospital.DecidedAt,
		hospital.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update hospital status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update hospital status rows affected: %w", err)
	}
	if rows == 0 {
		if _, findErr := s.FindByID(ctx, hospitalID); findErr != nil {
			return findErr
		}
		return fmt.Errorf("hospital %s status changed concurrently: %w", hospitalID, sentinel.ErrInvalidState)
	}
	return nil
}

func nullableWallet(wallet id.WalletAddress) sql.NullString {
	if wallet.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: wallet.String(), Valid: true}
}

type hospitalRow interface {
	Scan(dest ...any) error
}

func scanHospital(row hospitalRow) (*models.Hospital, error) {
	var (
		hospital  models.Hospital
		rawID     string
		wallet    sql.NullString
		status    string
		decidedAt sql.NullTime
	)
	if err := row.Scan(&rawID, &hospital.Name, &hospital.Email, &hospital.LicenseNumber, &wallet, &status, &decidedAt, &hospital.CreatedAt, &hospital.UpdatedAt); err != nil {
		return nil, err
	}
	parsedID, err := id.ParseHospitalID(rawID)
	if err != nil {
		return nil, fmt.Errorf("stored hospital id invalid: %w", err)
	}
	hospital.ID = parsedID
	if wallet.Valid {
		hospital.Wallet = id.WalletAddress(wallet.String)
	}
	hospital.Status = models.HospitalStatus(status)
	if decidedAt.Valid {
		hospital.DecidedAt = &decidedAt.Time
	}
	return &hospital, nil
}
