package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// DonationRepositoryPG implements domain.DonationRepository using PostgreSQL.
// Donations are insert-only; the insert itself lives on the funding store so
// it shares the donation transaction.
type DonationRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewDonationRepository creates a new donation repo.
func NewDonationRepository(pool *pgxpool.Pool) *DonationRepositoryPG {
	return &DonationRepositoryPG{pool: pool}
}

// GetByID fetches a donation by id.
func (r *DonationRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Donation, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, donor_id, campaign_id, amount, created_at
FROM donations
WHERE id = $1;
`, id)
	var d domain.Donation
	if err := row.Scan(&d.ID, &d.DonorID, &d.CampaignID, &d.Amount, &d.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// ListByDonor returns the donor's donations, newest first.
func (r *DonationRepositoryPG) ListByDonor(ctx context.Context, donorID string) ([]domain.Donation, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, donor_id, campaign_id, amount, created_at
FROM donations
WHERE donor_id = $1
ORDER BY created_at DESC;
`, donorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Donation
	for rows.Next() {
		var d domain.Donation
		if err := rows.Scan(&d.ID, &d.DonorID, &d.CampaignID, &d.Amount, &d.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

var _ domain.DonationRepository = (*DonationRepositoryPG)(nil)
