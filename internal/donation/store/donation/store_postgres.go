package donation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"medfund/internal/donation/models"
	id "medfund/pkg/domain"
	"medfund/pkg/platform/sentinel"
)

// PostgresStore is the durable ledger backed by the donations table. Row
// insert and aggregate increment run in one transaction, so the invariant
// that amount_raised equals the sum of the campaign's donations holds after
// every commit.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Record(ctx context.Context, donation *models.Donation) (*models.RecordResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin donation tx: %w", err)
	}
	defer tx.Rollback()

	insert := `
		INSERT INTO donations (id, campaign_id, donor_address, amount, tx_hash, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (campaign_id, tx_hash) DO NOTHING`

	result, err := tx.ExecContext(ctx, insert,
		donation.ID.String(),
		donation.CampaignID.String(),
		string(donation.Donor),
		donation.Amount,
		donation.TxHash,
		donation.RecordedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert donation: %w", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("insert donation: %w", err)
	}

	if inserted == 0 {
		existing, raised, needed, err := s.findExisting(ctx, tx, donation.CampaignID, donation.TxHash)
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit donation tx: %w", err)
		}
		return &models.RecordResult{Donation: existing, AmountRaised: raised, AmountNeeded: needed, Duplicate: true}, nil
	}

	// The increment is conditional on the campaign still accepting funds.
	// Zero rows here rolls the insert back with the transaction, so a
	// campaign that completed mid-flight gains neither row nor total.
	update := `
		UPDATE campaigns
		SET amount_raised = amount_raised + $2, updated_at = $3
		WHERE id = $1 AND status = 'FUNDING'
		RETURNING amount_raised, amount_needed`

	var raised, needed int64
	err = tx.QueryRowContext(ctx, update, donation.CampaignID.String(), donation.Amount, donation.RecordedAt).
		Scan(&raised, &needed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if exists, checkErr := s.campaignExists(ctx, tx, donation.CampaignID); checkErr != nil {
				return nil, checkErr
			} else if !exists {
				return nil, sentinel.ErrNotFound
			}
			return nil, sentinel.ErrInvalidState
		}
		return nil, fmt.Errorf("increment campaign total: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit donation tx: %w", err)
	}
	return &models.RecordResult{Donation: donation, AmountRaised: raised, AmountNeeded: needed}, nil
}

// ListByCampaign returns the campaign's donations in recording order.
func (s *PostgresStore) ListByCampaign(ctx context.Context, campaignID id.CampaignID) ([]*models.Donation, error) {
	query := selectColumns + ` FROM donations WHERE campaign_id = $1 ORDER BY recorded_at, id`

	rows, err := s.db.QueryContext(ctx, query, campaignID.String())
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	defer rows.Close()

	var donations []*models.Donation
	for rows.Next() {
		donation, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		donations = append(donations, donation)
	}
	return donations, rows.Err()
}

func (s *PostgresStore) findExisting(ctx context.Context, tx *sql.Tx, campaignID id.CampaignID, txHash string) (*models.Donation, int64, int64, error) {
	query := selectColumns + ` FROM donations WHERE campaign_id = $1 AND tx_hash = $2`
	existing, err := scanDonation(tx.QueryRowContext(ctx, query, campaignID.String(), txHash))
	if err != nil {
		return nil, 0, 0, err
	}

	var raised, needed int64
	err = tx.QueryRowContext(ctx,
		`SELECT amount_raised, amount_needed FROM campaigns WHERE id = $1`, campaignID.String()).
		Scan(&raised, &needed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, 0, sentinel.ErrNotFound
		}
		return nil, 0, 0, fmt.Errorf("load campaign totals: %w", err)
	}
	return existing, raised, needed, nil
}

func (s *PostgresStore) campaignExists(ctx context.Context, tx *sql.Tx, campaignID id.CampaignID) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM campaigns WHERE id = $1)`, campaignID.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check campaign exists: %w", err)
	}
	return exists, nil
}

const selectColumns = `SELECT id, campaign_id, donor_address, amount, tx_hash, recorded_at`

type donationRow interface {
	Scan(dest ...any) error
}

func scanDonation(row donationRow) (*models.Donation, error) {
	var (
		donation    models.Donation
		rawID       string
		rawCampaign string
		rawDonor    string
	)
	err := row.Scan(&rawID, &rawCampaign, &rawDonor, &donation.Amount, &donation.TxHash, &donation.RecordedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan donation: %w", err)
	}

	if donation.ID, err = id.ParseDonationID(rawID); err != nil {
		return nil, fmt.Errorf("parse donation id: %w", err)
	}
	if donation.CampaignID, err = id.ParseCampaignID(rawCampaign); err != nil {
		return nil, fmt.Errorf("parse donation campaign id: %w", err)
	}
	if donation.Donor, err = id.ParseWalletAddress(rawDonor); err != nil {
		return nil, fmt.Errorf("parse donor address: %w", err)
	}
	return &donation, nil
}
