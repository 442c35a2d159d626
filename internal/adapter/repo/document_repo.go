package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// DocumentRepositoryPG implements domain.DocumentRepository using PostgreSQL.
type DocumentRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewDocumentRepository creates a new document repo.
func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepositoryPG {
	return &DocumentRepositoryPG{pool: pool}
}

// Create inserts a document reference for a campaign.
func (r *DocumentRepositoryPG) Create(ctx context.Context, doc *domain.CampaignDocument) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO campaign_documents (id, campaign_id, file_url)
VALUES ($1, $2, $3);
`, doc.ID, doc.CampaignID, doc.FileURL)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return domain.ErrNotFound
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// ListByCampaign returns document references for a campaign, newest first.
func (r *DocumentRepositoryPG) ListByCampaign(ctx context.Context, campaignID string) ([]domain.CampaignDocument, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, campaign_id, file_url, uploaded_at
FROM campaign_documents
WHERE campaign_id = $1
ORDER BY uploaded_at DESC;
`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.CampaignDocument
	for rows.Next() {
		var d domain.CampaignDocument
		if err := rows.Scan(&d.ID, &d.CampaignID, &d.FileURL, &d.UploadedAt); err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

var _ domain.DocumentRepository = (*DocumentRepositoryPG)(nil)
