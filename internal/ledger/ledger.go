// Package ledger holds the balance operations for a user's spendable funds.
// Amount validation happens here; the conditional balance checks themselves
// run against the stored value so concurrent requests cannot lose updates.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"server/internal/domain"
)

// Ledger applies validated credit and debit operations through a LedgerStore.
type Ledger struct {
	store domain.LedgerStore
}

// New creates a Ledger over the given store.
func New(store domain.LedgerStore) *Ledger {
	return &Ledger{store: store}
}

// Credit adds amount to the user's balance and returns the new balance.
func (l *Ledger) Credit(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, domain.ErrInvalidAmount
	}
	balance, err := l.store.CreditBalance(ctx, userID, amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("credit balance: %w", err)
	}
	return balance, nil
}

// Debit subtracts amount from the user's balance and returns the new balance.
// The store enforces amount <= balance against the persisted row, so a stale
// in-memory balance can never drive the account negative.
func (l *Ledger) Debit(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, domain.ErrInvalidAmount
	}
	balance, err := l.store.DebitBalance(ctx, userID, amount)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) || errors.Is(err, domain.ErrNotFound) {
			return decimal.Zero, err
		}
		return decimal.Zero, fmt.Errorf("debit balance: %w", err)
	}
	return balance, nil
}
