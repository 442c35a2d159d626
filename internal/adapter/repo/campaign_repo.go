package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

const campaignColumns = `id, owner_id, title, description, goal_amount, raised_amount, deadline, status, created_at`

// CampaignRepositoryPG implements domain.CampaignRepository using PostgreSQL.
type CampaignRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewCampaignRepository creates a new campaign repo.
func NewCampaignRepository(pool *pgxpool.Pool) *CampaignRepositoryPG {
	return &CampaignRepositoryPG{pool: pool}
}

// Create inserts a new campaign row.
func (r *CampaignRepositoryPG) Create(ctx context.Context, campaign *domain.Campaign) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO campaigns (id, owner_id, title, description, goal_amount, raised_amount, deadline, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`, campaign.ID, campaign.OwnerID, campaign.Title, campaign.Description, campaign.GoalAmount, campaign.RaisedAmount, campaign.Deadline, campaign.Status)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

// GetByID fetches a campaign by id.
func (r *CampaignRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id)
	return scanCampaign(row)
}

// ListVisible returns the viewer's own campaigns plus anyone's campaigns in
// publicly visible statuses, newest first.
func (r *CampaignRepositoryPG) ListVisible(ctx context.Context, viewerID string) ([]domain.Campaign, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+campaignColumns+`
FROM campaigns
WHERE owner_id = $1 OR status IN ($2, $3, $4)
ORDER BY created_at DESC;
`, viewerID, domain.CampaignActive, domain.CampaignCompleted, domain.CampaignExpired)
	if err != nil {
		return nil, err
	}
	return collectCampaigns(rows)
}

// ListByOwner returns the owner's campaigns, newest first.
func (r *CampaignRepositoryPG) ListByOwner(ctx context.Context, ownerID string) ([]domain.Campaign, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+campaignColumns+`
FROM campaigns
WHERE owner_id = $1
ORDER BY created_at DESC;
`, ownerID)
	if err != nil {
		return nil, err
	}
	return collectCampaigns(rows)
}

// Update persists the editable fields. Raised amount and status never move
// through this path; they belong to the donation transaction and moderation.
func (r *CampaignRepositoryPG) Update(ctx context.Context, campaign *domain.Campaign) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE campaigns
SET title = $2, description = $3, goal_amount = $4, deadline = $5
WHERE id = $1;
`, campaign.ID, campaign.Title, campaign.Description, campaign.GoalAmount, campaign.Deadline)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a campaign; documents and donations cascade in the schema.
func (r *CampaignRepositoryPG) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetStatus writes the campaign status.
func (r *CampaignRepositoryPG) SetStatus(ctx context.Context, id string, status domain.CampaignStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE campaigns SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("set campaign status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ExpireDue expires overdue campaigns in one statement. The status filter
// keeps terminal rows untouched, which makes the sweep idempotent.
func (r *CampaignRepositoryPG) ExpireDue(ctx context.Context, now time.Time) (int64, []string, error) {
	rows, err := r.pool.Query(ctx, `
UPDATE campaigns
SET status = $1
WHERE deadline < $2 AND status IN ($3, $4)
RETURNING owner_id;
`, domain.CampaignExpired, now, domain.CampaignActive, domain.CampaignOnModeration)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	var count int64
	seen := map[string]struct{}{}
	var owners []string
	for rows.Next() {
		var ownerID string
		if err := rows.Scan(&ownerID); err != nil {
			return 0, nil, err
		}
		count++
		if _, ok := seen[ownerID]; !ok {
			seen[ownerID] = struct{}{}
			owners = append(owners, ownerID)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, nil, err
	}
	return count, owners, nil
}

func scanCampaign(row pgx.Row) (*domain.Campaign, error) {
	var c domain.Campaign
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Title, &c.Description, &c.GoalAmount, &c.RaisedAmount, &c.Deadline, &c.Status, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func collectCampaigns(rows pgx.Rows) ([]domain.Campaign, error) {
	defer rows.Close()
	var items []domain.Campaign
	for rows.Next() {
		var c domain.Campaign
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Title, &c.Description, &c.GoalAmount, &c.RaisedAmount, &c.Deadline, &c.Status, &c.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

var _ domain.CampaignRepository = (*CampaignRepositoryPG)(nil)
