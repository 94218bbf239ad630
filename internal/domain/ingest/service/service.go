// Package service orchestrates CSV statement imports: parse, resolve
// columns, normalize rows, deduplicate against persisted state, and record
// the batch audit trail.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/budgetbook-dev/budgetbook/internal/domain/category"
	"github.com/budgetbook-dev/budgetbook/internal/domain/ingest/normalizer"
	"github.com/budgetbook-dev/budgetbook/internal/domain/ingest/parser"
	"github.com/budgetbook-dev/budgetbook/internal/domain/ingest/repository"
	"github.com/budgetbook-dev/budgetbook/internal/domain/ingest/sniffer"
	"github.com/budgetbook-dev/budgetbook/pkg/metrics"
)

// Fatal whole-file conditions. These abort the import before any
// persistence; no batch row is created.
var (
	ErrUnsupportedFormat = errors.New("unsupported file format: only .csv files are accepted")
	ErrAccountNotFound   = errors.New("account not found")
	ErrMissingColumns    = errors.New("missing required columns: a date column and an amount or debit/credit column are required")
)

// Status is the outcome variant of an import call. Mapping-required is an
// expected branch of normal operation, not an error.
type Status string

const (
	StatusCompleted             Status = "COMPLETED"
	StatusHeaderMappingRequired Status = "HEADER_MAPPING_REQUIRED"
)

// ColumnMapping is a caller-supplied explicit mapping for headerless files.
type ColumnMapping struct {
	DateColumnIndex        int  `json:"dateColumnIndex"`
	AmountColumnIndex      int  `json:"amountColumnIndex"`
	DescriptionColumnIndex int  `json:"descriptionColumnIndex"`
	CategoryColumnIndex    *int `json:"categoryColumnIndex,omitempty"`
	ExternalIDColumnIndex  *int `json:"externalIdColumnIndex,omitempty"`
	SaveHeaderMapping      bool `json:"saveHeaderMapping,omitempty"`
}

// ImportRequest is one upload attempt.
type ImportRequest struct {
	OwnerID   uuid.UUID
	AccountID uuid.UUID
	FileName  string
	FileData  []byte
	Mapping   *ColumnMapping
}

// Summary reports what happened to a completed import.
type Summary struct {
	ImportBatchID     uuid.UUID `json:"importBatchId"`
	Inserted          int       `json:"inserted"`
	SkippedDuplicates int       `json:"skippedDuplicates"`
	ParseErrors       []string  `json:"parseErrors"`
	Warnings          []string  `json:"warnings"`
}

// Result is the import outcome: either a completed summary or a prompt for
// an explicit column mapping.
type Result struct {
	Status              Status          `json:"status"`
	Summary             *Summary        `json:"summary"`
	HeaderMappingPrompt *sniffer.Prompt `json:"headerMappingPrompt"`
}

// ImportService runs the ingestion pipeline for one file at a time.
type ImportService struct {
	repo       repository.ImportRepository
	categories *category.Resolver
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewImportService creates the import service.
func NewImportService(repo repository.ImportRepository, categories *category.Resolver, logger *slog.Logger) *ImportService {
	return &ImportService{
		repo:       repo,
		categories: categories,
		logger:     logger,
	}
}

// WithMetrics adds Prometheus counters to the service.
func (s *ImportService) WithMetrics(m *metrics.Metrics) *ImportService {
	s.metrics = m
	return s
}

// candidate is a normalized row that passed validation, classified and
// fingerprinted, awaiting the duplicate check.
type candidate struct {
	row         *normalizer.Row
	txType      category.Type
	amount      decimal.Decimal
	fingerprint string
}

// Import processes one uploaded file. Steps are strictly sequential: parse,
// resolve columns, normalize all rows, batch-check duplicates, insert. The
// batch-create, inserts, and batch-finalize writes are separate round-trips;
// a failure between them leaves the batch PROCESSING.
func (s *ImportService) Import(ctx context.Context, req ImportRequest) (*Result, error) {
	if !strings.EqualFold(filepath.Ext(req.FileName), ".csv") {
		return nil, ErrUnsupportedFormat
	}

	account, err := s.repo.GetAccount(ctx, req.OwnerID, req.AccountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	grid, err := parser.Parse(req.FileData)
	if err != nil {
		return nil, err
	}

	cols, dataStart, prompt, err := s.resolveColumns(ctx, req, grid.Rows[0])
	if err != nil {
		return nil, err
	}
	if prompt != nil {
		return &Result{Status: StatusHeaderMappingRequired, HeaderMappingPrompt: prompt}, nil
	}

	batch := &repository.ImportBatch{
		OwnerID:    req.OwnerID,
		AccountID:  req.AccountID,
		SourceName: req.FileName,
	}
	if err := s.repo.CreateImportBatch(ctx, batch); err != nil {
		return nil, err
	}

	issues := make([]normalizer.Issue, 0, len(grid.Warnings))
	for _, w := range grid.Warnings {
		issues = append(issues, normalizer.Issue{
			Severity:  normalizer.SeverityWarning,
			RowNumber: w.RowNumber,
			Message:   w.Message,
		})
	}

	candidates := s.normalizeRows(grid.Rows, dataStart, cols, &issues)

	inserted, skipped, err := s.reconcile(ctx, req, batch.ID, candidates)
	if err != nil {
		return nil, err
	}

	if err := s.repo.BulkInsertIssues(ctx, persistedIssues(batch.ID, issues)); err != nil {
		return nil, err
	}

	parseErrors, warnings := issueMessages(issues)

	batch.InsertedCount = inserted
	batch.SkippedDuplicates = skipped
	batch.ParseErrorCount = len(parseErrors)
	batch.WarningCount = len(warnings)
	batch.Status = repository.BatchCompleted
	if len(parseErrors) > 0 || len(warnings) > 0 {
		batch.Status = repository.BatchCompletedWithWarnings
	}
	if err := s.repo.FinalizeImportBatch(ctx, batch); err != nil {
		return nil, err
	}

	// The saved mapping only drives future headerless files, but the save
	// itself happens on any successful import that asked for it.
	if req.Mapping != nil && req.Mapping.SaveHeaderMapping {
		if err := s.saveMapping(ctx, req); err != nil {
			return nil, err
		}
	}

	s.recordMetrics(batch)
	s.logger.Info("import completed",
		"batchID", batch.ID,
		"status", batch.Status,
		"inserted", inserted,
		"skippedDuplicates", skipped,
		"parseErrors", len(parseErrors),
		"warnings", len(warnings),
	)

	return &Result{
		Status: StatusCompleted,
		Summary: &Summary{
			ImportBatchID:     batch.ID,
			Inserted:          inserted,
			SkippedDuplicates: skipped,
			ParseErrors:       parseErrors,
			Warnings:          warnings,
		},
	}, nil
}

// resolveColumns runs the header decision procedure on the first record.
// Exactly one of (columns, prompt, error) outcomes applies: a non-nil prompt
// means the caller must resupply an explicit mapping.
func (s *ImportService) resolveColumns(ctx context.Context, req ImportRequest, firstRecord []string) (normalizer.Columns, int, *sniffer.Prompt, error) {
	detection := sniffer.Detect(firstRecord)
	if detection.HasHeader {
		if !sniffer.Valid(detection.Columns) {
			return normalizer.Columns{}, 0, nil, ErrMissingColumns
		}
		return detection.Columns, 1, nil, nil
	}

	mapping := req.Mapping
	if mapping == nil {
		saved, err := s.repo.GetHeaderMapping(ctx, req.OwnerID, req.AccountID)
		if err != nil {
			return normalizer.Columns{}, 0, nil, err
		}
		if saved != nil {
			mapping = mappingFromSaved(saved)
		}
	}
	if mapping == nil {
		return normalizer.Columns{}, 0, sniffer.BuildPrompt(firstRecord), nil
	}

	cols := columnsFromMapping(mapping)
	if !sniffer.Valid(cols) {
		return normalizer.Columns{}, 0, nil, ErrMissingColumns
	}
	return cols, 0, nil, nil
}

// normalizeRows converts every data row, collecting issues and dropping
// ERROR rows and zero-amount rows.
func (s *ImportService) normalizeRows(rows [][]string, dataStart int, cols normalizer.Columns, issues *[]normalizer.Issue) []*candidate {
	var candidates []*candidate

	for i := dataStart; i < len(rows); i++ {
		rowNumber := i + 1

		row, rowIssues := normalizer.NormalizeRow(rows[i], rowNumber, cols)
		*issues = append(*issues, rowIssues...)
		if row == nil {
			continue
		}

		// Zero-amount rows pass normalization but never become
		// transactions; they count as a warning, not a parse error.
		if row.SignedAmount.IsZero() {
			*issues = append(*issues, normalizer.Issue{
				Severity:  normalizer.SeverityWarning,
				RowNumber: rowNumber,
				Message:   "Skipped zero-amount transaction",
			})
			continue
		}

		txType := category.TypeIncome
		if row.SignedAmount.IsNegative() {
			txType = category.TypeExpense
		}
		amount := row.SignedAmount.Abs()

		candidates = append(candidates, &candidate{
			row:         row,
			txType:      txType,
			amount:      amount,
			fingerprint: Fingerprint(row.Date, txType, amount, row.Description),
		})
	}

	return candidates
}

// reconcile classifies candidates as insert vs duplicate and performs the
// single bulk insert of survivors. Duplicates are checked against both the
// persisted sets (bounded to the ids/fingerprints in this batch) and a
// running in-memory set, so duplicates within the same file are caught too.
func (s *ImportService) reconcile(ctx context.Context, req ImportRequest, batchID uuid.UUID, candidates []*candidate) (inserted, skipped int, err error) {
	externalIDs := make([]string, 0, len(candidates))
	fingerprints := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.row.ExternalID != nil {
			externalIDs = append(externalIDs, *c.row.ExternalID)
		}
		fingerprints = append(fingerprints, c.fingerprint)
	}

	existingIDs, err := s.repo.ExistingExternalIDs(ctx, req.OwnerID, req.AccountID, externalIDs)
	if err != nil {
		return 0, 0, err
	}
	existingFingerprints, err := s.repo.ExistingFingerprints(ctx, req.OwnerID, req.AccountID, fingerprints)
	if err != nil {
		return 0, 0, err
	}

	cache := category.NewCache()
	seenIDs := make(map[string]struct{})
	seenFingerprints := make(map[string]struct{})

	var toInsert []*repository.Transaction
	for _, c := range candidates {
		if s.isDuplicate(c, existingIDs, existingFingerprints, seenIDs, seenFingerprints) {
			skipped++
			continue
		}
		if c.row.ExternalID != nil {
			seenIDs[*c.row.ExternalID] = struct{}{}
		}
		seenFingerprints[c.fingerprint] = struct{}{}

		sourceCategory := ""
		if c.row.SourceCategory != nil {
			sourceCategory = *c.row.SourceCategory
		}
		categoryID, err := s.categories.Resolve(ctx, cache, req.OwnerID, c.txType, sourceCategory)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to resolve category: %w", err)
		}

		fingerprint := c.fingerprint
		batchRef := batchID
		toInsert = append(toInsert, &repository.Transaction{
			OwnerID:           req.OwnerID,
			MonthKey:          c.row.Date.Format("2006-01"),
			Type:              c.txType,
			Date:              c.row.Date,
			Amount:            c.amount,
			Description:       c.row.Description,
			CategoryID:        categoryID,
			AccountID:         req.AccountID,
			ExternalID:        c.row.ExternalID,
			DedupeFingerprint: &fingerprint,
			ImportBatchID:     &batchRef,
		})
	}

	if err := s.repo.BulkInsertTransactions(ctx, toInsert); err != nil {
		return 0, 0, err
	}

	return len(toInsert), skipped, nil
}

func (s *ImportService) isDuplicate(c *candidate, existingIDs, existingFingerprints, seenIDs, seenFingerprints map[string]struct{}) bool {
	if c.row.ExternalID != nil {
		if _, ok := existingIDs[*c.row.ExternalID]; ok {
			return true
		}
		if _, ok := seenIDs[*c.row.ExternalID]; ok {
			return true
		}
	}
	if _, ok := existingFingerprints[c.fingerprint]; ok {
		return true
	}
	_, ok := seenFingerprints[c.fingerprint]
	return ok
}

func (s *ImportService) saveMapping(ctx context.Context, req ImportRequest) error {
	return s.repo.UpsertHeaderMapping(ctx, &repository.HeaderMapping{
		OwnerID:        req.OwnerID,
		AccountID:      req.AccountID,
		DateCol:        req.Mapping.DateColumnIndex,
		AmountCol:      req.Mapping.AmountColumnIndex,
		DescriptionCol: req.Mapping.DescriptionColumnIndex,
		CategoryCol:    req.Mapping.CategoryColumnIndex,
		ExternalIDCol:  req.Mapping.ExternalIDColumnIndex,
	})
}

// ListBatches returns the import ledger for one account.
func (s *ImportService) ListBatches(ctx context.Context, ownerID, accountID uuid.UUID) ([]*repository.ImportBatch, error) {
	return s.repo.ListImportBatches(ctx, ownerID, accountID)
}

// BatchIssues returns the persisted issues for one batch.
func (s *ImportService) BatchIssues(ctx context.Context, batchID uuid.UUID) ([]*repository.ImportIssue, error) {
	return s.repo.ListBatchIssues(ctx, batchID)
}

func (s *ImportService) recordMetrics(batch *repository.ImportBatch) {
	if s.metrics == nil {
		return
	}
	s.metrics.RowsInserted.Add(float64(batch.InsertedCount))
	s.metrics.DuplicatesSkipped.Add(float64(batch.SkippedDuplicates))
	s.metrics.ParseErrors.Add(float64(batch.ParseErrorCount))
	s.metrics.RowWarnings.Add(float64(batch.WarningCount))
	s.metrics.BatchesFinished.WithLabelValues(string(batch.Status)).Inc()
}

func columnsFromMapping(m *ColumnMapping) normalizer.Columns {
	cols := normalizer.UnresolvedColumns()
	cols.Date = m.DateColumnIndex
	cols.Amount = m.AmountColumnIndex
	cols.Desc = m.DescriptionColumnIndex
	if m.CategoryColumnIndex != nil {
		cols.Category = *m.CategoryColumnIndex
	}
	if m.ExternalIDColumnIndex != nil {
		cols.ExternalID = *m.ExternalIDColumnIndex
	}
	return cols
}

func mappingFromSaved(saved *repository.HeaderMapping) *ColumnMapping {
	return &ColumnMapping{
		DateColumnIndex:        saved.DateCol,
		AmountColumnIndex:      saved.AmountCol,
		DescriptionColumnIndex: saved.DescriptionCol,
		CategoryColumnIndex:    saved.CategoryCol,
		ExternalIDColumnIndex:  saved.ExternalIDCol,
	}
}

func persistedIssues(batchID uuid.UUID, issues []normalizer.Issue) []*repository.ImportIssue {
	out := make([]*repository.ImportIssue, 0, len(issues))
	for _, issue := range issues {
		var rowNumber *int
		if issue.RowNumber > 0 {
			n := issue.RowNumber
			rowNumber = &n
		}
		out = append(out, &repository.ImportIssue{
			ImportBatchID: batchID,
			Severity:      issue.Severity,
			RowNumber:     rowNumber,
			Message:       issue.Message,
		})
	}
	return out
}

func issueMessages(issues []normalizer.Issue) (parseErrors, warnings []string) {
	parseErrors = make([]string, 0)
	warnings = make([]string, 0)
	for _, issue := range issues {
		msg := issue.Message
		if issue.RowNumber > 0 {
			msg = fmt.Sprintf("row %d: %s", issue.RowNumber, issue.Message)
		}
		if issue.Severity == normalizer.SeverityError {
			parseErrors = append(parseErrors, msg)
		} else {
			warnings = append(warnings, msg)
		}
	}
	return parseErrors, warnings
}
