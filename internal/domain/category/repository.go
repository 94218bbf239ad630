// Package category stores user categories and resolves source-category text
// from imported statements to persisted category rows.
package category

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Type classifies a category and its transactions by money direction.
type Type string

const (
	TypeExpense Type = "EXPENSE"
	TypeIncome  Type = "INCOME"
)

// Category is a persisted spending/income category. Within one owner and one
// type, names are unique case-insensitively.
type Category struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Name      string
	Type      Type
	SortOrder int
	Active    bool
	CreatedAt time.Time
}

// DB is the subset of pgxpool.Pool the repository needs. pgxmock satisfies
// it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository handles database operations for categories.
type Repository interface {
	FindByName(ctx context.Context, ownerID uuid.UUID, catType Type, name string) (*Category, error)
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*Category, error)
	Create(ctx context.Context, cat *Category) error
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Category, error)
}

// PostgresRepository implements Repository over Postgres.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository creates a Postgres-backed category repository.
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindByName looks a category up case-insensitively within one owner and type.
func (r *PostgresRepository) FindByName(ctx context.Context, ownerID uuid.UUID, catType Type, name string) (*Category, error) {
	query := `
		SELECT id, owner_id, name, type, sort_order, active, created_at
		FROM categories
		WHERE owner_id = $1 AND type = $2 AND lower(name) = lower($3)
	`

	var cat Category
	err := r.db.QueryRow(ctx, query, ownerID, catType, name).Scan(
		&cat.ID, &cat.OwnerID, &cat.Name, &cat.Type, &cat.SortOrder, &cat.Active, &cat.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find category: %w", err)
	}

	return &cat, nil
}

// GetByID fetches one category scoped to its owner. Returns nil when no row
// matches.
func (r *PostgresRepository) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*Category, error) {
	query := `
		SELECT id, owner_id, name, type, sort_order, active, created_at
		FROM categories
		WHERE owner_id = $1 AND id = $2
	`

	var cat Category
	err := r.db.QueryRow(ctx, query, ownerID, id).Scan(
		&cat.ID, &cat.OwnerID, &cat.Name, &cat.Type, &cat.SortOrder, &cat.Active, &cat.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return &cat, nil
}

// Create inserts a new category at the end of the owner's sort order for
// that type.
func (r *PostgresRepository) Create(ctx context.Context, cat *Category) error {
	if cat.ID == uuid.Nil {
		cat.ID = uuid.New()
	}

	query := `
		INSERT INTO categories (id, owner_id, name, type, sort_order, active)
		VALUES ($1, $2, $3, $4,
			(SELECT COALESCE(MAX(sort_order), 0) + 1 FROM categories WHERE owner_id = $2 AND type = $4),
			$5)
		RETURNING sort_order, created_at
	`

	err := r.db.QueryRow(ctx, query, cat.ID, cat.OwnerID, cat.Name, cat.Type, cat.Active).
		Scan(&cat.SortOrder, &cat.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}

// ListByOwner returns every category for an owner, ordered for display.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Category, error) {
	query := `
		SELECT id, owner_id, name, type, sort_order, active, created_at
		FROM categories
		WHERE owner_id = $1
		ORDER BY type, sort_order
	`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var cat Category
		if err := rows.Scan(&cat.ID, &cat.OwnerID, &cat.Name, &cat.Type, &cat.SortOrder, &cat.Active, &cat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}

	return categories, rows.Err()
}
