package campaign

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"medfund/internal/campaign/models"
	id "medfund/pkg/domain"
	"medfund/pkg/platform/sentinel"
)

// PostgresStore is the durable Store backed by the campaigns table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, campaign *models.Campaign) error {
	query := `
		INSERT INTO campaigns (id, patient_id, hospital_id, story, amount_needed, amount_raised,
			duration_seconds, escrow_address, status, reject_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := s.db.ExecContext(ctx, query,
		campaign.ID.String(),
		campaign.PatientID.String(),
		campaign.HospitalID.String(),
		campaign.Story,
		campaign.AmountNeeded,
		campaign.AmountRaised,
		int64(campaign.Duration/time.Second),
		nullableString(string(campaign.Escrow)),
		string(campaign.Status),
		nullableString(campaign.RejectReason),
		campaign.CreatedAt,
		campaign.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, campaignID id.CampaignID) (*models.Campaign, error) {
	query := selectColumns + ` FROM campaigns WHERE id = $1`
	return scanCampaign(s.db.QueryRowContext(ctx, query, campaignID.String()))
}

func (s *PostgresStore) ListByHospital(ctx context.Context, hospitalID id.HospitalID) ([]*models.Campaign, error) {
	query := selectColumns + ` FROM campaigns WHERE hospital_id = $1 ORDER BY created_at, id`
	return s.list(ctx, query, hospitalID.String())
}

func (s *PostgresStore) ListByPatient(ctx context.Context, patientID id.PatientID) ([]*models.Campaign, error) {
	query := selectColumns + ` FROM campaigns WHERE patient_id = $1 ORDER BY created_at, id`
	return s.list(ctx, query, patientID.String())
}

// UpdateStatus writes the new state only when the stored status still
// equals expected. The raised total is excluded from the write; the
// donation transaction owns that column.
func (s *PostgresStore) UpdateStatus(ctx context.Context, campaignID id.CampaignID, expected models.CampaignStatus, campaign *models.Campaign) error {
	query := `
		UPDATE campaigns
		SET status = $3, escrow_address = $4, reject_reason = $5, updated_at = $6
		WHERE id = $1 AND status = $2`

	result, err := s.db.ExecContext(ctx, query,
		campaignID.String(),
		string(expected),
		string(campaign.Status),
		nullableString(string(campaign.Escrow)),
		nullableString(campaign.RejectReason),
		campaign.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update campaign status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update campaign status: %w", err)
	}
	if affected == 0 {
		// Missed the swap: either the row is gone or another writer moved
		// the status first. Re-read to tell the two apart.
		if _, findErr := s.FindByID(ctx, campaignID); findErr != nil {
			return findErr
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) list(ctx context.Context, query string, arg any) ([]*models.Campaign, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []*models.Campaign
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, campaign)
	}
	return campaigns, rows.Err()
}

const selectColumns = `SELECT id, patient_id, hospital_id, story, amount_needed, amount_raised,
	duration_seconds, escrow_address, status, reject_reason, created_at, updated_at`

type campaignRow interface {
	Scan(dest ...any) error
}

func scanCampaign(row campaignRow) (*models.Campaign, error) {
	var (
		campaign     models.Campaign
		rawID        string
		rawPatient   string
		rawHospital  string
		durationSecs int64
		escrow       sql.NullString
		status       string
		rejectReason sql.NullString
	)
	err := row.Scan(&rawID, &rawPatient, &rawHospital, &campaign.Story,
		&campaign.AmountNeeded, &campaign.AmountRaised, &durationSecs,
		&escrow, &status, &rejectReason, &campaign.CreatedAt, &campaign.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan campaign: %w", err)
	}

	if campaign.ID, err = id.ParseCampaignID(rawID); err != nil {
		return nil, fmt.Errorf("parse campaign id: %w", err)
	}
	if campaign.PatientID, err = id.ParsePatientID(rawPatient); err != nil {
		return nil, fmt.Errorf("parse campaign patient id: %w", err)
	}
	if campaign.HospitalID, err = id.ParseHospitalID(rawHospital); err != nil {
		return nil, fmt.Errorf("parse campaign hospital id: %w", err)
	}
	campaign.Duration = time.Duration(durationSecs) * time.Second
	campaign.Status = models.CampaignStatus(status)
	if escrow.Valid {
		if campaign.Escrow, err = id.ParseWalletAddress(escrow.String); err != nil {
			return nil, fmt.Errorf("parse campaign escrow address: %w", err)
		}
	}
	campaign.RejectReason = rejectReason.String
	return &campaign, nil
}

func nullableString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
