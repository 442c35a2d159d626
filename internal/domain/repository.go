package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// UserRepository defines access methods for users.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, user *User) error
}

// LedgerStore applies balance mutations against the authoritative persisted
// value. DebitBalance must decrement conditionally on sufficient funds and
// return ErrInsufficientFunds when the stored balance is too low.
type LedgerStore interface {
	CreditBalance(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error)
	DebitBalance(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error)
}

// CampaignRepository defines persistence for campaigns.
type CampaignRepository interface {
	Create(ctx context.Context, campaign *Campaign) error
	GetByID(ctx context.Context, id string) (*Campaign, error)
	// ListVisible returns campaigns the viewer may see: their own plus
	// anyone's in active, completed or expired status.
	ListVisible(ctx context.Context, viewerID string) ([]Campaign, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Campaign, error)
	Update(ctx context.Context, campaign *Campaign) error
	Delete(ctx context.Context, id string) error
	SetStatus(ctx context.Context, id string, status CampaignStatus) error
	// ExpireDue flips active and on-moderation campaigns whose deadline has
	// passed to expired, returning the affected count and distinct owner ids.
	ExpireDue(ctx context.Context, now time.Time) (int64, []string, error)
}

// DonationRepository reads immutable donation records.
type DonationRepository interface {
	GetByID(ctx context.Context, id string) (*Donation, error)
	ListByDonor(ctx context.Context, donorID string) ([]Donation, error)
}

// DocumentRepository handles campaign document references.
type DocumentRepository interface {
	Create(ctx context.Context, doc *CampaignDocument) error
	ListByCampaign(ctx context.Context, campaignID string) ([]CampaignDocument, error)
}

// FundingTx groups the writes of a single donation. Implementations run all
// calls inside one database transaction; any error aborts the whole unit.
type FundingTx interface {
	// IncrementRaised applies a relative increment to the stored raised
	// amount and returns the campaign as persisted after the update.
	IncrementRaised(ctx context.Context, campaignID string, amount decimal.Decimal) (*Campaign, error)
	SetStatus(ctx context.Context, campaignID string, status CampaignStatus) error
	DebitBalance(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error)
	InsertDonation(ctx context.Context, donation *Donation) error
}

// FundingStore opens donation units of work.
type FundingStore interface {
	WithinTx(ctx context.Context, fn func(tx FundingTx) error) error
}
