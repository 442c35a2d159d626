package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"server/internal/domain"
)

// FundingStorePG opens donation units of work on a pgx transaction. Every
// callback failure rolls the transaction back; the commit happens only after
// the callback returns nil.
type FundingStorePG struct {
	pool *pgxpool.Pool
}

// NewFundingStore creates a new FundingStorePG.
func NewFundingStore(pool *pgxpool.Pool) *FundingStorePG {
	return &FundingStorePG{pool: pool}
}

// WithinTx runs fn inside one database transaction.
func (s *FundingStorePG) WithinTx(ctx context.Context, fn func(tx domain.FundingTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(fundingTxPG{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type fundingTxPG struct {
	tx pgx.Tx
}

// IncrementRaised applies a relative increment to the stored raised amount.
// The UPDATE takes the row lock for the rest of the transaction, so two
// donations to the same campaign serialize here instead of losing an update.
func (t fundingTxPG) IncrementRaised(ctx context.Context, campaignID string, amount decimal.Decimal) (*domain.Campaign, error) {
	row := t.tx.QueryRow(ctx, `
UPDATE campaigns
SET raised_amount = raised_amount + $2
WHERE id = $1
RETURNING `+campaignColumns+`;
`, campaignID, amount)
	return scanCampaign(row)
}

// SetStatus writes the campaign status inside the transaction.
func (t fundingTxPG) SetStatus(ctx context.Context, campaignID string, status domain.CampaignStatus) error {
	tag, err := t.tx.Exec(ctx, `UPDATE campaigns SET status = $2 WHERE id = $1`, campaignID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DebitBalance performs the conditional debit against the stored balance.
func (t fundingTxPG) DebitBalance(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	return debitInTx(ctx, t.tx, userID, amount)
}

// InsertDonation records the immutable donation row.
func (t fundingTxPG) InsertDonation(ctx context.Context, donation *domain.Donation) error {
	_, err := t.tx.Exec(ctx, `
INSERT INTO donations (id, donor_id, campaign_id, amount, created_at)
VALUES ($1, $2, $3, $4, $5);
`, donation.ID, donation.DonorID, donation.CampaignID, donation.Amount, donation.CreatedAt)
	return err
}

var _ domain.FundingStore = (*FundingStorePG)(nil)
