package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CampaignStatus enumerates campaign lifecycle states.
type CampaignStatus string

const (
	CampaignOnModeration CampaignStatus = "on_moderation"
	CampaignActive       CampaignStatus = "active"
	CampaignRejected     CampaignStatus = "rejected"
	CampaignCompleted    CampaignStatus = "completed"
	CampaignExpired      CampaignStatus = "expired"
)

// Terminal reports whether the status admits no further transitions.
func (s CampaignStatus) Terminal() bool {
	switch s {
	case CampaignRejected, CampaignCompleted, CampaignExpired:
		return true
	}
	return false
}

// Campaign is a fundraising campaign owned by a single user.
type Campaign struct {
	ID           string
	OwnerID      string
	Title        string
	Description  string
	GoalAmount   decimal.Decimal
	RaisedAmount decimal.Decimal
	Deadline     time.Time
	Status       CampaignStatus
	CreatedAt    time.Time
}

// NextStatus recomputes the campaign status against the current raised amount
// and deadline. Terminal states are sticky. The goal-reached rule takes
// precedence over expiry: a campaign that hits its goal completes even when
// its deadline has already passed.
func (c *Campaign) NextStatus(now time.Time) CampaignStatus {
	if c.Status.Terminal() {
		return c.Status
	}
	if c.RaisedAmount.GreaterThanOrEqual(c.GoalAmount) {
		return CampaignCompleted
	}
	if c.Deadline.Before(now) {
		return CampaignExpired
	}
	return c.Status
}

// Validate checks creation invariants. The deadline must be strictly in the
// future and the goal strictly positive.
func (c *Campaign) Validate(now time.Time) error {
	if strings.TrimSpace(c.Title) == "" {
		return ErrInvalidTitle
	}
	if c.GoalAmount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if !c.Deadline.After(now) {
		return ErrInvalidDeadline
	}
	return nil
}

// CampaignDocument references an uploaded PDF attached to a campaign. The
// file itself lives outside the platform; only the reference is stored.
type CampaignDocument struct {
	ID         string
	CampaignID string
	FileURL    string
	UploadedAt time.Time
}
