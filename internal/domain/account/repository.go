// Package account manages the bank accounts statements are imported into.
package account

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// Account is one bank account owned by a user.
type Account struct {
	ID              uuid.UUID       `json:"id"`
	OwnerID         uuid.UUID       `json:"ownerId"`
	Name            string          `json:"name"`
	StartingBalance decimal.Decimal `json:"startingBalance"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists accounts.
type Repository interface {
	Create(ctx context.Context, acct *Account) error
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Account, error)
}

// PostgresRepository implements Repository over Postgres.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository creates a Postgres-backed account repository.
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new account.
func (r *PostgresRepository) Create(ctx context.Context, acct *Account) error {
	if acct.ID == uuid.Nil {
		acct.ID = uuid.New()
	}

	query := `
		INSERT INTO accounts (id, owner_id, name, starting_balance)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query,
		acct.ID, acct.OwnerID, acct.Name, acct.StartingBalance.StringFixed(2),
	).Scan(&acct.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// ListByOwner returns the owner's accounts, oldest first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Account, error) {
	query := `
		SELECT id, owner_id, name, starting_balance::text, created_at
		FROM accounts
		WHERE owner_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		var a Account
		var balance string
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.Name, &balance, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		if a.StartingBalance, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("failed to parse starting balance: %w", err)
		}
		accounts = append(accounts, &a)
	}

	return accounts, rows.Err()
}
