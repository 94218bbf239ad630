package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository needs. pgxmock satisfies
// it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// ImportRepository is the storage collaborator for the import engine.
type ImportRepository interface {
	GetAccount(ctx context.Context, ownerID, accountID uuid.UUID) (*Account, error)
	CreateImportBatch(ctx context.Context, batch *ImportBatch) error
	FinalizeImportBatch(ctx context.Context, batch *ImportBatch) error
	ListImportBatches(ctx context.Context, ownerID, accountID uuid.UUID) ([]*ImportBatch, error)
	ExistingExternalIDs(ctx context.Context, ownerID, accountID uuid.UUID, ids []string) (map[string]struct{}, error)
	ExistingFingerprints(ctx context.Context, ownerID, accountID uuid.UUID, fingerprints []string) (map[string]struct{}, error)
	BulkInsertTransactions(ctx context.Context, transactions []*Transaction) error
	BulkInsertIssues(ctx context.Context, issues []*ImportIssue) error
	ListBatchIssues(ctx context.Context, batchID uuid.UUID) ([]*ImportIssue, error)
	GetHeaderMapping(ctx context.Context, ownerID, accountID uuid.UUID) (*HeaderMapping, error)
	UpsertHeaderMapping(ctx context.Context, mapping *HeaderMapping) error
}

// PostgresImportRepository implements ImportRepository over Postgres.
type PostgresImportRepository struct {
	db DB
}

// NewPostgresImportRepository creates a Postgres-backed import repository.
func NewPostgresImportRepository(db DB) *PostgresImportRepository {
	return &PostgresImportRepository{db: db}
}

// GetAccount loads an account scoped to its owner. Returns nil when the
// account does not exist or belongs to a different owner.
func (r *PostgresImportRepository) GetAccount(ctx context.Context, ownerID, accountID uuid.UUID) (*Account, error) {
	query := `
		SELECT id, owner_id, name, starting_balance::text
		FROM accounts
		WHERE id = $1 AND owner_id = $2
	`

	var acct Account
	var balance string
	err := r.db.QueryRow(ctx, query, accountID, ownerID).Scan(&acct.ID, &acct.OwnerID, &acct.Name, &balance)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	acct.StartingBalance, err = parseNumeric(balance)
	if err != nil {
		return nil, fmt.Errorf("failed to parse starting balance: %w", err)
	}

	return &acct, nil
}

// CreateImportBatch inserts a new PROCESSING batch row.
func (r *PostgresImportRepository) CreateImportBatch(ctx context.Context, batch *ImportBatch) error {
	if batch.ID == uuid.Nil {
		batch.ID = uuid.New()
	}
	if batch.Status == "" {
		batch.Status = BatchProcessing
	}

	query := `
		INSERT INTO import_batches (id, owner_id, account_id, source_name, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query, batch.ID, batch.OwnerID, batch.AccountID, batch.SourceName, batch.Status).
		Scan(&batch.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create import batch: %w", err)
	}

	return nil
}

// FinalizeImportBatch writes the final status, counts and completion
// timestamp. This is the single mutation a batch ever receives.
func (r *PostgresImportRepository) FinalizeImportBatch(ctx context.Context, batch *ImportBatch) error {
	now := time.Now().UTC()
	batch.CompletedAt = &now

	query := `
		UPDATE import_batches
		SET status = $2, inserted_count = $3, skipped_duplicates = $4,
		    parse_error_count = $5, warning_count = $6, completed_at = $7
		WHERE id = $1
	`

	_, err := r.db.Exec(ctx, query,
		batch.ID, batch.Status, batch.InsertedCount, batch.SkippedDuplicates,
		batch.ParseErrorCount, batch.WarningCount, *batch.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to finalize import batch: %w", err)
	}

	return nil
}

// ListImportBatches returns the batch ledger for one account, newest first.
func (r *PostgresImportRepository) ListImportBatches(ctx context.Context, ownerID, accountID uuid.UUID) ([]*ImportBatch, error) {
	query := `
		SELECT id, owner_id, account_id, source_name, status,
		       inserted_count, skipped_duplicates, parse_error_count, warning_count,
		       created_at, completed_at
		FROM import_batches
		WHERE owner_id = $1 AND account_id = $2
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, ownerID, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list import batches: %w", err)
	}
	defer rows.Close()

	var batches []*ImportBatch
	for rows.Next() {
		var b ImportBatch
		if err := rows.Scan(
			&b.ID, &b.OwnerID, &b.AccountID, &b.SourceName, &b.Status,
			&b.InsertedCount, &b.SkippedDuplicates, &b.ParseErrorCount, &b.WarningCount,
			&b.CreatedAt, &b.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan import batch: %w", err)
		}
		batches = append(batches, &b)
	}

	return batches, rows.Err()
}

// ExistingExternalIDs returns which of the given external ids are already
// persisted for this (owner, account) pair. The query is bounded to the ids
// appearing in the candidate batch, not the whole history.
func (r *PostgresImportRepository) ExistingExternalIDs(ctx context.Context, ownerID, accountID uuid.UUID, ids []string) (map[string]struct{}, error) {
	if len(ids) == 0 {
		return map[string]struct{}{}, nil
	}

	query := `
		SELECT DISTINCT external_id
		FROM transactions
		WHERE owner_id = $1 AND account_id = $2 AND external_id = ANY($3)
	`

	return r.queryStringSet(ctx, query, ownerID, accountID, ids)
}

// ExistingFingerprints returns which of the given fingerprints are already
// persisted for this (owner, account) pair.
func (r *PostgresImportRepository) ExistingFingerprints(ctx context.Context, ownerID, accountID uuid.UUID, fingerprints []string) (map[string]struct{}, error) {
	if len(fingerprints) == 0 {
		return map[string]struct{}{}, nil
	}

	query := `
		SELECT DISTINCT dedupe_fingerprint
		FROM transactions
		WHERE owner_id = $1 AND account_id = $2 AND dedupe_fingerprint = ANY($3)
	`

	return r.queryStringSet(ctx, query, ownerID, accountID, fingerprints)
}

func (r *PostgresImportRepository) queryStringSet(ctx context.Context, query string, ownerID, accountID uuid.UUID, values []string) (map[string]struct{}, error) {
	rows, err := r.db.Query(ctx, query, ownerID, accountID, values)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing values: %w", err)
	}
	defer rows.Close()

	set := make(map[string]struct{}, len(values))
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan existing value: %w", err)
		}
		set[v] = struct{}{}
	}

	return set, rows.Err()
}

// BulkInsertTransactions inserts all surviving transactions in one batch
// round-trip.
func (r *PostgresImportRepository) BulkInsertTransactions(ctx context.Context, transactions []*Transaction) error {
	if len(transactions) == 0 {
		return nil
	}

	query := `
		INSERT INTO transactions (
			id, owner_id, month_key, type, date, amount, description,
			category_id, account_id, external_id, dedupe_fingerprint, import_batch_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	batch := &pgx.Batch{}
	for _, tx := range transactions {
		if tx.ID == uuid.Nil {
			tx.ID = uuid.New()
		}
		batch.Queue(query,
			tx.ID, tx.OwnerID, tx.MonthKey, tx.Type, tx.Date, tx.Amount.StringFixed(2),
			tx.Description, tx.CategoryID, tx.AccountID, tx.ExternalID, tx.DedupeFingerprint, tx.ImportBatchID,
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range transactions {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert transaction: %w", err)
		}
	}

	return nil
}

// BulkInsertIssues inserts all collected issues in one batch round-trip.
func (r *PostgresImportRepository) BulkInsertIssues(ctx context.Context, issues []*ImportIssue) error {
	if len(issues) == 0 {
		return nil
	}

	query := `
		INSERT INTO import_issues (id, import_batch_id, severity, row_number, message)
		VALUES ($1, $2, $3, $4, $5)
	`

	batch := &pgx.Batch{}
	for _, issue := range issues {
		if issue.ID == uuid.Nil {
			issue.ID = uuid.New()
		}
		batch.Queue(query, issue.ID, issue.ImportBatchID, issue.Severity, issue.RowNumber, issue.Message)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range issues {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert import issue: %w", err)
		}
	}

	return nil
}

// ListBatchIssues returns the persisted issues for one batch in row order.
func (r *PostgresImportRepository) ListBatchIssues(ctx context.Context, batchID uuid.UUID) ([]*ImportIssue, error) {
	query := `
		SELECT id, import_batch_id, severity, row_number, message
		FROM import_issues
		WHERE import_batch_id = $1
		ORDER BY row_number NULLS FIRST, id
	`

	rows, err := r.db.Query(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list batch issues: %w", err)
	}
	defer rows.Close()

	var issues []*ImportIssue
	for rows.Next() {
		var issue ImportIssue
		if err := rows.Scan(&issue.ID, &issue.ImportBatchID, &issue.Severity, &issue.RowNumber, &issue.Message); err != nil {
			return nil, fmt.Errorf("failed to scan import issue: %w", err)
		}
		issues = append(issues, &issue)
	}

	return issues, rows.Err()
}

// GetHeaderMapping loads the saved column mapping for an account, nil when
// none has been saved.
func (r *PostgresImportRepository) GetHeaderMapping(ctx context.Context, ownerID, accountID uuid.UUID) (*HeaderMapping, error) {
	query := `
		SELECT owner_id, account_id, date_col, amount_col, description_col,
		       category_col, external_id_col, updated_at
		FROM account_header_mappings
		WHERE owner_id = $1 AND account_id = $2
	`

	var m HeaderMapping
	err := r.db.QueryRow(ctx, query, ownerID, accountID).Scan(
		&m.OwnerID, &m.AccountID, &m.DateCol, &m.AmountCol, &m.DescriptionCol,
		&m.CategoryCol, &m.ExternalIDCol, &m.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get header mapping: %w", err)
	}

	return &m, nil
}

// UpsertHeaderMapping saves one mapping row per (owner, account).
func (r *PostgresImportRepository) UpsertHeaderMapping(ctx context.Context, mapping *HeaderMapping) error {
	query := `
		INSERT INTO account_header_mappings (
			owner_id, account_id, date_col, amount_col, description_col,
			category_col, external_id_col, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (owner_id, account_id) DO UPDATE SET
			date_col = EXCLUDED.date_col,
			amount_col = EXCLUDED.amount_col,
			description_col = EXCLUDED.description_col,
			category_col = EXCLUDED.category_col,
			external_id_col = EXCLUDED.external_id_col,
			updated_at = now()
	`

	_, err := r.db.Exec(ctx, query,
		mapping.OwnerID, mapping.AccountID, mapping.DateCol, mapping.AmountCol,
		mapping.DescriptionCol, mapping.CategoryCol, mapping.ExternalIDCol,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert header mapping: %w", err)
	}

	return nil
}
