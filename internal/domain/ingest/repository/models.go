// Package repository persists import batches, their issues, the transactions
// an import produces, and saved per-account header mappings.
package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/budgetbook-dev/budgetbook/internal/domain/category"
	"github.com/budgetbook-dev/budgetbook/internal/domain/ingest/normalizer"
)

// BatchStatus is the lifecycle state of an import batch. A batch is created
// PROCESSING and finalized exactly once.
type BatchStatus string

const (
	BatchProcessing            BatchStatus = "PROCESSING"
	BatchCompleted             BatchStatus = "COMPLETED"
	BatchCompletedWithWarnings BatchStatus = "COMPLETED_WITH_WARNINGS"
)

// Account is the minimal account view the import engine needs.
type Account struct {
	ID              uuid.UUID
	OwnerID         uuid.UUID
	Name            string
	StartingBalance decimal.Decimal
}

// ImportBatch is the append-only audit record of one upload attempt.
type ImportBatch struct {
	ID                uuid.UUID   `json:"id"`
	OwnerID           uuid.UUID   `json:"ownerId"`
	AccountID         uuid.UUID   `json:"accountId"`
	SourceName        string      `json:"sourceName"`
	Status            BatchStatus `json:"status"`
	InsertedCount     int         `json:"inserted"`
	SkippedDuplicates int         `json:"skippedDuplicates"`
	ParseErrorCount   int         `json:"parseErrors"`
	WarningCount      int         `json:"warnings"`
	CreatedAt         time.Time   `json:"createdAt"`
	CompletedAt       *time.Time  `json:"completedAt,omitempty"`
}

// ImportIssue is a persisted per-row issue tied to a batch. RowNumber is nil
// for issues not tied to a specific row.
type ImportIssue struct {
	ID            uuid.UUID           `json:"id"`
	ImportBatchID uuid.UUID           `json:"importBatchId"`
	Severity      normalizer.Severity `json:"severity"`
	RowNumber     *int                `json:"rowNumber,omitempty"`
	Message       string              `json:"message"`
}

// Transaction is a persisted transaction row. Amount is always a positive
// magnitude; Type carries the sign's meaning. MonthKey is derived from Date
// and the two must agree.
type Transaction struct {
	ID                uuid.UUID
	OwnerID           uuid.UUID
	MonthKey          string
	Type              category.Type
	Date              time.Time
	Amount            decimal.Decimal
	Description       string
	CategoryID        uuid.UUID
	AccountID         uuid.UUID
	ExternalID        *string
	DedupeFingerprint *string
	ImportBatchID     *uuid.UUID
}

// HeaderMapping is a saved column mapping for one (owner, account) pair,
// auto-applied to the next headerless import.
type HeaderMapping struct {
	OwnerID        uuid.UUID
	AccountID      uuid.UUID
	DateCol        int
	AmountCol      int
	DescriptionCol int
	CategoryCol    *int
	ExternalIDCol  *int
	UpdatedAt      time.Time
}
