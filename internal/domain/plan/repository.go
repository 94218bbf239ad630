// Package plan stores per-month planned amounts for categories.
package plan

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// Plan is one planned amount for a category in one month.
type Plan struct {
	ID            uuid.UUID       `json:"id"`
	OwnerID       uuid.UUID       `json:"ownerId"`
	MonthKey      string          `json:"monthKey"`
	CategoryID    uuid.UUID       `json:"categoryId"`
	PlannedAmount decimal.Decimal `json:"plannedAmount"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists plans.
type Repository interface {
	Upsert(ctx context.Context, p *Plan) error
	ListByMonth(ctx context.Context, ownerID uuid.UUID, monthKey string) ([]*Plan, error)
}

// PostgresRepository implements Repository over Postgres.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository creates a Postgres-backed plan repository.
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert inserts the plan or replaces the planned amount when one already
// exists for the owner, month, and category.
func (r *PostgresRepository) Upsert(ctx context.Context, p *Plan) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	query := `
		INSERT INTO plans (id, owner_id, month_key, category_id, planned_amount, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (owner_id, month_key, category_id)
		DO UPDATE SET planned_amount = EXCLUDED.planned_amount, updated_at = NOW()
		RETURNING id, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		p.ID, p.OwnerID, p.MonthKey, p.CategoryID, p.PlannedAmount.StringFixed(2),
	).Scan(&p.ID, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert plan: %w", err)
	}

	return nil
}

// ListByMonth returns every plan for the owner in one month.
func (r *PostgresRepository) ListByMonth(ctx context.Context, ownerID uuid.UUID, monthKey string) ([]*Plan, error) {
	query := `
		SELECT id, owner_id, month_key, category_id, planned_amount::text, updated_at
		FROM plans
		WHERE owner_id = $1 AND month_key = $2
	`

	rows, err := r.db.Query(ctx, query, ownerID, monthKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []*Plan
	for rows.Next() {
		var p Plan
		var planned string
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.MonthKey, &p.CategoryID, &planned, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		if p.PlannedAmount, err = decimal.NewFromString(planned); err != nil {
			return nil, fmt.Errorf("failed to parse planned amount: %w", err)
		}
		plans = append(plans, &p)
	}

	return plans, rows.Err()
}
