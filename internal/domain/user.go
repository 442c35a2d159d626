package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserRole enumerates supported roles.
type UserRole string

const (
	UserRoleDonor           UserRole = "donor"
	UserRoleCampaignManager UserRole = "campaign_manager"
	UserRoleAdmin           UserRole = "admin"
)

// User represents an account within the platform. Balance is the spendable
// wallet amount and is mutated only through the ledger operations, never by
// assigning the field from request input.
type User struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Role         UserRole
	Balance      decimal.Decimal
	IsStaff      bool
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the user holds elevated privilege.
func (u User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// FullName returns the donor display name; empty when neither part is set.
func (u User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.LastName
	}
}
