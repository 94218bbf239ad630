// Package summary builds the planned-vs-actual month comparison table from
// persisted categories, plans, and transactions.
package summary

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/budgetbook-dev/budgetbook/internal/domain/category"
)

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CategoryRow is the category view the aggregator consumes.
type CategoryRow struct {
	ID        uuid.UUID
	Name      string
	Type      category.Type
	SortOrder int
	Active    bool
}

// PlanRow is one planned amount for a category in the month.
type PlanRow struct {
	CategoryID uuid.UUID
	Planned    decimal.Decimal
}

// TransactionRow is one actual transaction amount in the month. Amount is a
// positive magnitude; Type carries the direction.
type TransactionRow struct {
	CategoryID uuid.UUID
	Type       category.Type
	Amount     decimal.Decimal
}

// Repository loads the month inputs for one owner.
type Repository interface {
	LoadCategories(ctx context.Context, ownerID uuid.UUID) ([]CategoryRow, error)
	LoadPlans(ctx context.Context, ownerID uuid.UUID, monthKey string) ([]PlanRow, error)
	LoadTransactions(ctx context.Context, ownerID uuid.UUID, monthKey string) ([]TransactionRow, error)
	StartingBalance(ctx context.Context, ownerID uuid.UUID, monthKey string) (decimal.Decimal, error)
}

// PostgresRepository implements Repository over Postgres.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository creates a Postgres-backed summary repository.
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// LoadCategories returns every category for the owner in display order.
func (r *PostgresRepository) LoadCategories(ctx context.Context, ownerID uuid.UUID) ([]CategoryRow, error) {
	query := `
		SELECT id, name, type, sort_order, active
		FROM categories
		WHERE owner_id = $1
		ORDER BY type, sort_order
	`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	defer rows.Close()

	var categories []CategoryRow
	for rows.Next() {
		var c CategoryRow
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.SortOrder, &c.Active); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

// LoadPlans returns the plan rows for one month.
func (r *PostgresRepository) LoadPlans(ctx context.Context, ownerID uuid.UUID, monthKey string) ([]PlanRow, error) {
	query := `
		SELECT category_id, planned_amount::text
		FROM plans
		WHERE owner_id = $1 AND month_key = $2
	`

	rows, err := r.db.Query(ctx, query, ownerID, monthKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load plans: %w", err)
	}
	defer rows.Close()

	var plans []PlanRow
	for rows.Next() {
		var p PlanRow
		var planned string
		if err := rows.Scan(&p.CategoryID, &planned); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		if p.Planned, err = decimal.NewFromString(planned); err != nil {
			return nil, fmt.Errorf("failed to parse planned amount: %w", err)
		}
		plans = append(plans, p)
	}

	return plans, rows.Err()
}

// LoadTransactions returns the individual transaction amounts for one month.
// Rows come back individually so the aggregator controls rounding at each
// accumulation step.
func (r *PostgresRepository) LoadTransactions(ctx context.Context, ownerID uuid.UUID, monthKey string) ([]TransactionRow, error) {
	query := `
		SELECT category_id, type, amount::text
		FROM transactions
		WHERE owner_id = $1 AND month_key = $2
	`

	rows, err := r.db.Query(ctx, query, ownerID, monthKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	defer rows.Close()

	var transactions []TransactionRow
	for rows.Next() {
		var t TransactionRow
		var amount string
		if err := rows.Scan(&t.CategoryID, &t.Type, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("failed to parse transaction amount: %w", err)
		}
		transactions = append(transactions, t)
	}

	return transactions, rows.Err()
}

// StartingBalance is the sum of account starting balances plus the net of
// every transaction in months strictly before the requested one.
func (r *PostgresRepository) StartingBalance(ctx context.Context, ownerID uuid.UUID, monthKey string) (decimal.Decimal, error) {
	query := `
		SELECT (
			COALESCE((SELECT SUM(starting_balance) FROM accounts WHERE owner_id = $1), 0)
			+ COALESCE((
				SELECT SUM(CASE WHEN type = 'INCOME' THEN amount ELSE -amount END)
				FROM transactions
				WHERE owner_id = $1 AND month_key < $2
			), 0)
		)::text
	`

	var balance string
	if err := r.db.QueryRow(ctx, query, ownerID, monthKey).Scan(&balance); err != nil {
		return decimal.Zero, fmt.Errorf("failed to compute starting balance: %w", err)
	}

	d, err := decimal.NewFromString(balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse starting balance: %w", err)
	}
	return d, nil
}
