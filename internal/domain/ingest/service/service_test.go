package service

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgetbook-dev/budgetbook/internal/domain/category"
	"github.com/budgetbook-dev/budgetbook/internal/domain/ingest/repository"
)

// mockImportRepository keeps all import state in memory.
type mockImportRepository struct {
	account      *repository.Account
	batches      []*repository.ImportBatch
	transactions []*repository.Transaction
	issues       []*repository.ImportIssue
	mapping      *repository.HeaderMapping
}

func (m *mockImportRepository) GetAccount(_ context.Context, ownerID, accountID uuid.UUID) (*repository.Account, error) {
	if m.account == nil || m.account.ID != accountID || m.account.OwnerID != ownerID {
		return nil, nil
	}
	return m.account, nil
}

func (m *mockImportRepository) CreateImportBatch(_ context.Context, batch *repository.ImportBatch) error {
	if batch.ID == uuid.Nil {
		batch.ID = uuid.New()
	}
	batch.Status = repository.BatchProcessing
	batch.CreatedAt = time.Now()
	m.batches = append(m.batches, batch)
	return nil
}

func (m *mockImportRepository) FinalizeImportBatch(_ context.Context, batch *repository.ImportBatch) error {
	return nil
}

func (m *mockImportRepository) ListImportBatches(_ context.Context, ownerID, accountID uuid.UUID) ([]*repository.ImportBatch, error) {
	return m.batches, nil
}

func (m *mockImportRepository) ExistingExternalIDs(_ context.Context, ownerID, accountID uuid.UUID, ids []string) (map[string]struct{}, error) {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make(map[string]struct{})
	for _, tx := range m.transactions {
		if tx.ExternalID == nil {
			continue
		}
		if _, ok := want[*tx.ExternalID]; ok {
			out[*tx.ExternalID] = struct{}{}
		}
	}
	return out, nil
}

func (m *mockImportRepository) ExistingFingerprints(_ context.Context, ownerID, accountID uuid.UUID, fingerprints []string) (map[string]struct{}, error) {
	want := make(map[string]struct{}, len(fingerprints))
	for _, fp := range fingerprints {
		want[fp] = struct{}{}
	}
	out := make(map[string]struct{})
	for _, tx := range m.transactions {
		if tx.DedupeFingerprint == nil {
			continue
		}
		if _, ok := want[*tx.DedupeFingerprint]; ok {
			out[*tx.DedupeFingerprint] = struct{}{}
		}
	}
	return out, nil
}

func (m *mockImportRepository) BulkInsertTransactions(_ context.Context, transactions []*repository.Transaction) error {
	m.transactions = append(m.transactions, transactions...)
	return nil
}

func (m *mockImportRepository) BulkInsertIssues(_ context.Context, issues []*repository.ImportIssue) error {
	m.issues = append(m.issues, issues...)
	return nil
}

func (m *mockImportRepository) ListBatchIssues(_ context.Context, batchID uuid.UUID) ([]*repository.ImportIssue, error) {
	return m.issues, nil
}

func (m *mockImportRepository) GetHeaderMapping(_ context.Context, ownerID, accountID uuid.UUID) (*repository.HeaderMapping, error) {
	return m.mapping, nil
}

func (m *mockImportRepository) UpsertHeaderMapping(_ context.Context, mapping *repository.HeaderMapping) error {
	m.mapping = mapping
	return nil
}

// mockCategoryRepository backs the resolver in service tests.
type mockCategoryRepository struct {
	categories []*category.Category
}

func (m *mockCategoryRepository) FindByName(_ context.Context, ownerID uuid.UUID, catType category.Type, name string) (*category.Category, error) {
	for _, c := range m.categories {
		if c.OwnerID == ownerID && c.Type == catType && c.Name == name {
			return c, nil
		}
	}
	return nil, nil
}

func (m *mockCategoryRepository) GetByID(_ context.Context, ownerID, id uuid.UUID) (*category.Category, error) {
	for _, c := range m.categories {
		if c.OwnerID == ownerID && c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (m *mockCategoryRepository) Create(_ context.Context, cat *category.Category) error {
	cat.ID = uuid.New()
	m.categories = append(m.categories, cat)
	return nil
}

func (m *mockCategoryRepository) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]category.Category, error) {
	return nil, nil
}

func newTestService(repo *mockImportRepository) *ImportService {
	resolver := category.NewResolver(&mockCategoryRepository{})
	logger := slog.New(slog.DiscardHandler)
	return NewImportService(repo, resolver, logger)
}

func newTestRepo() *mockImportRepository {
	return &mockImportRepository{
		account: &repository.Account{
			ID:              uuid.New(),
			OwnerID:         uuid.New(),
			Name:            "Checking",
			StartingBalance: decimal.Zero,
		},
	}
}

func importCSV(t *testing.T, svc *ImportService, repo *mockImportRepository, name, body string, mapping *ColumnMapping) *Result {
	t.Helper()
	result, err := svc.Import(context.Background(), ImportRequest{
		OwnerID:   repo.account.OwnerID,
		AccountID: repo.account.ID,
		FileName:  name,
		FileData:  []byte(body),
		Mapping:   mapping,
	})
	require.NoError(t, err)
	return result
}

func TestImport_HappyPath(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)

	body := "Date,Amount,Description,Category\n" +
		"2025-01-15,-42.50,COFFEE SHOP,Dining\n" +
		"2025-01-31,1200.00,PAYROLL,\n"
	result := importCSV(t, svc, repo, "jan.csv", body, nil)

	assert.Equal(t, StatusCompleted, result.Status)
	require.NotNil(t, result.Summary)
	assert.Equal(t, 2, result.Summary.Inserted)
	assert.Equal(t, 0, result.Summary.SkippedDuplicates)
	assert.Empty(t, result.Summary.ParseErrors)
	assert.Empty(t, result.Summary.Warnings)

	require.Len(t, repo.transactions, 2)
	expense, income := repo.transactions[0], repo.transactions[1]
	assert.Equal(t, category.TypeExpense, expense.Type)
	assert.Equal(t, "42.50", expense.Amount.StringFixed(2))
	assert.Equal(t, "2025-01", expense.MonthKey)
	assert.Equal(t, category.TypeIncome, income.Type)
	assert.Equal(t, "1200.00", income.Amount.StringFixed(2))
	require.NotNil(t, expense.DedupeFingerprint)
	assert.Len(t, *expense.DedupeFingerprint, 8)
}

func TestImport_RejectsNonCSV(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)

	_, err := svc.Import(context.Background(), ImportRequest{
		OwnerID:   repo.account.OwnerID,
		AccountID: repo.account.ID,
		FileName:  "statement.xlsx",
		FileData:  []byte("Date,Amount\n2025-01-15,1.00\n"),
	})

	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Empty(t, repo.batches)
}

func TestImport_UnknownAccount(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)

	_, err := svc.Import(context.Background(), ImportRequest{
		OwnerID:   repo.account.OwnerID,
		AccountID: uuid.New(),
		FileName:  "jan.csv",
		FileData:  []byte("Date,Amount\n2025-01-15,1.00\n"),
	})

	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.Empty(t, repo.batches)
}

func TestImport_HeaderMissingRequiredColumns(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)

	_, err := svc.Import(context.Background(), ImportRequest{
		OwnerID:   repo.account.OwnerID,
		AccountID: repo.account.ID,
		FileName:  "jan.csv",
		FileData:  []byte("Amount,Description\n-42.50,COFFEE\n"),
	})

	assert.ErrorIs(t, err, ErrMissingColumns)
	assert.Empty(t, repo.batches)
}

func TestImport_Idempotence(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)

	body := "Date,Amount,Description\n2025-01-15,-42.50,COFFEE SHOP\n2025-01-16,-9.99,LUNCH\n"

	first := importCSV(t, svc, repo, "jan.csv", body, nil)
	assert.Equal(t, 2, first.Summary.Inserted)

	second := importCSV(t, svc, repo, "jan.csv", body, nil)
	assert.Equal(t, 0, second.Summary.Inserted)
	assert.Equal(t, 2, second.Summary.SkippedDuplicates)
	assert.Len(t, repo.transactions, 2)
}

func TestImport_WithinFileDuplicate(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)

	body := "Date,Amount,Description\n" +
		"2025-01-15,-42.50,COFFEE SHOP\n" +
		"2025-01-15,-42.50,Coffee   shop\n"
	result := importCSV(t, svc, repo, "jan.csv", body, nil)

	assert.Equal(t, 1, result.Summary.Inserted)
	assert.Equal(t, 1, result.Summary.SkippedDuplicates)
}

func TestImport_ExternalIDDuplicate(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)

	first := "Date,Amount,Description,Reference\n2025-01-15,-42.50,COFFEE,TX100\n"
	importCSV(t, svc, repo, "a.csv", first, nil)

	// Same external id, different content: still a duplicate.
	second := "Date,Amount,Description,Reference\n2025-01-20,-99.00,OTHER,TX100\n"
	result := importCSV(t, svc, repo, "b.csv", second, nil)

	assert.Equal(t, 0, result.Summary.Inserted)
	assert.Equal(t, 1, result.Summary.SkippedDuplicates)
}

func TestImport_ZeroAmountSkippedAsWarning(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)

	body := "Date,Amount,Description\n2025-01-15,0.00,FEE REVERSAL\n2025-01-16,-5.00,SNACK\n"
	result := importCSV(t, svc, repo, "jan.csv", body, nil)

	assert.Equal(t, 1, result.Summary.Inserted)
	assert.Empty(t, result.Summary.ParseErrors)
	require.Len(t, result.Summary.Warnings, 1)
	assert.Contains(t, result.Summary.Warnings[0], "Skipped zero-amount transaction")
	assert.Contains(t, result.Summary.Warnings[0], "row 2")
}

func TestImport_BadRowsBecomeParseErrors(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)

	body := "Date,Amount,Description\n" +
		"2025-01-15,-42.50,OK ROW\n" +
		"garbage,-1.00,BAD DATE\n" +
		"2025-01-17,not-a-number,BAD AMOUNT\n"
	result := importCSV(t, svc, repo, "jan.csv", body, nil)

	assert.Equal(t, 1, result.Summary.Inserted)
	require.Len(t, result.Summary.ParseErrors, 2)
	assert.Contains(t, result.Summary.ParseErrors[0], "Invalid or empty date")
	assert.Contains(t, result.Summary.ParseErrors[1], "Invalid or empty amount")

	require.Len(t, repo.batches, 1)
	require.Len(t, repo.issues, 2)
}

func TestImport_HeaderlessWithoutMappingPrompts(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)

	body := "2025-01-15,-42.50,COFFEE SHOP\n2025-01-16,-9.99,LUNCH\n"
	result := importCSV(t, svc, repo, "jan.csv", body, nil)

	assert.Equal(t, StatusHeaderMappingRequired, result.Status)
	assert.Nil(t, result.Summary)
	require.NotNil(t, result.HeaderMappingPrompt)
	assert.Equal(t, 3, result.HeaderMappingPrompt.ColumnCount)
	require.NotNil(t, result.HeaderMappingPrompt.SuggestedDateColumnIndex)
	assert.Equal(t, 0, *result.HeaderMappingPrompt.SuggestedDateColumnIndex)

	// No batch is created for the mapping-required outcome.
	assert.Empty(t, repo.batches)
	assert.Empty(t, repo.transactions)
}

func TestImport_HeaderlessWithMapping(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)

	body := "2025-01-15,-42.50,COFFEE SHOP\n2025-01-16,-9.99,LUNCH\n"
	result := importCSV(t, svc, repo, "jan.csv", body, &ColumnMapping{
		DateColumnIndex:        0,
		AmountColumnIndex:      1,
		DescriptionColumnIndex: 2,
	})

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, 2, result.Summary.Inserted)
	// Row numbers start at 1 when there is no header row.
	assert.Len(t, repo.transactions, 2)
}

func TestImport_SavedMappingAutoApplies(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)

	body := "2025-01-15,-42.50,COFFEE SHOP\n"
	first := importCSV(t, svc, repo, "jan.csv", body, &ColumnMapping{
		DateColumnIndex:        0,
		AmountColumnIndex:      1,
		DescriptionColumnIndex: 2,
		SaveHeaderMapping:      true,
	})
	require.Equal(t, StatusCompleted, first.Status)
	require.NotNil(t, repo.mapping)

	// The next headerless upload needs no explicit mapping.
	second := importCSV(t, svc, repo, "feb.csv", "2025-02-15,-10.00,BAKERY\n", nil)

	assert.Equal(t, StatusCompleted, second.Status)
	assert.Equal(t, 1, second.Summary.Inserted)
}

func TestImport_SaveMappingWithHeaderRow(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)

	// Header detection wins column resolution, but a requested save still
	// persists the supplied mapping for future headerless uploads.
	body := "Date,Amount,Description\n2025-01-15,-42.50,COFFEE SHOP\n"
	first := importCSV(t, svc, repo, "jan.csv", body, &ColumnMapping{
		DateColumnIndex:        0,
		AmountColumnIndex:      1,
		DescriptionColumnIndex: 2,
		SaveHeaderMapping:      true,
	})
	require.Equal(t, StatusCompleted, first.Status)
	require.NotNil(t, repo.mapping)
	assert.Equal(t, 0, repo.mapping.DateCol)
	assert.Equal(t, 1, repo.mapping.AmountCol)

	second := importCSV(t, svc, repo, "feb.csv", "2025-02-15,-10.00,BAKERY\n", nil)

	assert.Equal(t, StatusCompleted, second.Status)
	assert.Equal(t, 1, second.Summary.Inserted)
}

func TestImport_EmptyFile(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)

	_, err := svc.Import(context.Background(), ImportRequest{
		OwnerID:   repo.account.OwnerID,
		AccountID: repo.account.ID,
		FileName:  "empty.csv",
		FileData:  nil,
	})

	assert.Error(t, err)
	assert.Empty(t, repo.batches)
}

func TestImport_SourceCategoryResolution(t *testing.T) {
	repo := newTestRepo()
	catRepo := &mockCategoryRepository{}
	svc := NewImportService(repo, category.NewResolver(catRepo), slog.New(slog.DiscardHandler))

	body := "Date,Amount,Description,Category\n" +
		"2025-01-15,-42.50,COFFEE,Dining\n" +
		"2025-01-16,-10.00,MORE COFFEE,Dining\n" +
		"2025-01-17,-99.00,NO CATEGORY,\n"
	result, err := svc.Import(context.Background(), ImportRequest{
		OwnerID:   repo.account.OwnerID,
		AccountID: repo.account.ID,
		FileName:  "jan.csv",
		FileData:  []byte(body),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Summary.Inserted)

	// Dining created once, fallback created once.
	require.Len(t, catRepo.categories, 2)
	assert.Equal(t, "Dining", catRepo.categories[0].Name)
	assert.Equal(t, category.FallbackExpenseName, catRepo.categories[1].Name)
	assert.Equal(t, repo.transactions[0].CategoryID, repo.transactions[1].CategoryID)
	assert.NotEqual(t, repo.transactions[0].CategoryID, repo.transactions[2].CategoryID)
}

func TestFingerprint(t *testing.T) {
	date := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	amount := decimal.RequireFromString("42.50")

	t.Run("stable", func(t *testing.T) {
		a := Fingerprint(date, category.TypeExpense, amount, "COFFEE SHOP")
		b := Fingerprint(date, category.TypeExpense, amount, "COFFEE SHOP")
		assert.Equal(t, a, b)
		assert.Len(t, a, 8)
		assert.Equal(t, strings.ToLower(a), a)
	})

	t.Run("description normalization collides", func(t *testing.T) {
		a := Fingerprint(date, category.TypeExpense, amount, "Coffee   Shop ")
		b := Fingerprint(date, category.TypeExpense, amount, "coffee shop")
		assert.Equal(t, a, b)
	})

	t.Run("type distinguishes", func(t *testing.T) {
		a := Fingerprint(date, category.TypeExpense, amount, "x")
		b := Fingerprint(date, category.TypeIncome, amount, "x")
		assert.NotEqual(t, a, b)
	})

	t.Run("amount distinguishes", func(t *testing.T) {
		a := Fingerprint(date, category.TypeExpense, amount, "x")
		b := Fingerprint(date, category.TypeExpense, decimal.RequireFromString("42.51"), "x")
		assert.NotEqual(t, a, b)
	})
}
