package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Donation records a completed contribution. Donations are immutable once
// created; there is no update or delete path.
type Donation struct {
	ID         string
	DonorID    string
	CampaignID string
	Amount     decimal.Decimal
	CreatedAt  time.Time
}
