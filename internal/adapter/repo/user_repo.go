package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"server/internal/domain"
)

const userColumns = `id, email, first_name, last_name, password_hash, role, balance, is_staff, is_active, created_at, updated_at`

// UserRepositoryPG implements domain.UserRepository and domain.LedgerStore
// backed by PostgreSQL.
type UserRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepositoryPG.
func NewUserRepository(pool *pgxpool.Pool) *UserRepositoryPG {
	return &UserRepositoryPG{pool: pool}
}

// Create inserts a new user row.
func (r *UserRepositoryPG) Create(ctx context.Context, user *domain.User) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO users (id, email, first_name, last_name, password_hash, role, balance, is_staff, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`, user.ID, user.Email, user.FirstName, user.LastName, user.PasswordHash, user.Role, user.Balance, user.IsStaff, user.IsActive)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID fetches a user by id.
func (r *UserRepositoryPG) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail fetches a user by unique email.
func (r *UserRepositoryPG) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// UpdateProfile persists mutable profile fields. Balance and role are
// deliberately excluded; they move through the ledger and admin paths.
func (r *UserRepositoryPG) UpdateProfile(ctx context.Context, user *domain.User) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE users
SET first_name = $2, last_name = $3, updated_at = NOW()
WHERE id = $1;
`, user.ID, user.FirstName, user.LastName)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CreditBalance applies a relative increment against the stored balance.
func (r *UserRepositoryPG) CreditBalance(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.pool.QueryRow(ctx, `
UPDATE users SET balance = balance + $2, updated_at = NOW()
WHERE id = $1
RETURNING balance;
`, userID, amount).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, domain.ErrNotFound
		}
		return decimal.Zero, err
	}
	return balance, nil
}

// DebitBalance decrements the stored balance after re-reading it under a row
// lock, so two debits for the same user serialize instead of both passing a
// stale check.
func (r *UserRepositoryPG) DebitBalance(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	defer tx.Rollback(ctx)

	balance, err := debitInTx(ctx, tx, userID, amount)
	if err != nil {
		return decimal.Zero, err
	}
	if err := tx.Commit(ctx); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// debitInTx runs the conditional debit inside an existing transaction. Zero
// rows means the stored balance no longer covers the amount (or the user is
// gone); the caller's transaction is expected to roll back.
func debitInTx(ctx context.Context, tx pgx.Tx, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.QueryRow(ctx, `
UPDATE users SET balance = balance - $2, updated_at = NOW()
WHERE id = $1 AND balance >= $2
RETURNING balance;
`, userID, amount).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, err
	}

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return decimal.Zero, err
	}
	if !exists {
		return decimal.Zero, domain.ErrNotFound
	}
	return decimal.Zero, domain.ErrInsufficientFunds
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &u.Role, &u.Balance, &u.IsStaff, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

var (
	_ domain.UserRepository = (*UserRepositoryPG)(nil)
	_ domain.LedgerStore    = (*UserRepositoryPG)(nil)
)
