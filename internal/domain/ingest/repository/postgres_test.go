package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *PostgresImportRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewPostgresImportRepository(mock)
}

func TestGetAccount(t *testing.T) {
	mock, repo := newMockRepo(t)
	ownerID := uuid.New()
	accountID := uuid.New()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, owner_id, name, starting_balance").
			WithArgs(accountID, ownerID).
			WillReturnRows(pgxmock.NewRows([]string{"id", "owner_id", "name", "starting_balance"}).
				AddRow(accountID, ownerID, "Checking", "1250.50"))

		acct, err := repo.GetAccount(context.Background(), ownerID, accountID)

		require.NoError(t, err)
		require.NotNil(t, acct)
		assert.Equal(t, "Checking", acct.Name)
		assert.Equal(t, "1250.50", acct.StartingBalance.StringFixed(2))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found returns nil", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, owner_id, name, starting_balance").
			WithArgs(accountID, ownerID).
			WillReturnRows(pgxmock.NewRows([]string{"id", "owner_id", "name", "starting_balance"}))

		acct, err := repo.GetAccount(context.Background(), ownerID, accountID)

		require.NoError(t, err)
		assert.Nil(t, acct)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCreateImportBatch(t *testing.T) {
	mock, repo := newMockRepo(t)
	batch := &ImportBatch{
		OwnerID:    uuid.New(),
		AccountID:  uuid.New(),
		SourceName: "jan.csv",
	}

	created := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO import_batches").
		WithArgs(pgxmock.AnyArg(), batch.OwnerID, batch.AccountID, "jan.csv", BatchProcessing).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(created))

	err := repo.CreateImportBatch(context.Background(), batch)

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, batch.ID)
	assert.Equal(t, BatchProcessing, batch.Status)
	assert.False(t, batch.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizeImportBatch(t *testing.T) {
	mock, repo := newMockRepo(t)
	batch := &ImportBatch{
		ID:                uuid.New(),
		Status:            BatchCompletedWithWarnings,
		InsertedCount:     5,
		SkippedDuplicates: 2,
		ParseErrorCount:   1,
		WarningCount:      3,
	}

	mock.ExpectExec("UPDATE import_batches").
		WithArgs(batch.ID, BatchCompletedWithWarnings, 5, 2, 1, 3, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.FinalizeImportBatch(context.Background(), batch)

	require.NoError(t, err)
	require.NotNil(t, batch.CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExistingExternalIDs(t *testing.T) {
	mock, repo := newMockRepo(t)
	ownerID := uuid.New()
	accountID := uuid.New()

	t.Run("bounded query", func(t *testing.T) {
		mock.ExpectQuery("SELECT DISTINCT external_id").
			WithArgs(ownerID, accountID, []string{"TX1", "TX2"}).
			WillReturnRows(pgxmock.NewRows([]string{"external_id"}).AddRow("TX1"))

		set, err := repo.ExistingExternalIDs(context.Background(), ownerID, accountID, []string{"TX1", "TX2"})

		require.NoError(t, err)
		assert.Contains(t, set, "TX1")
		assert.NotContains(t, set, "TX2")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty input skips the query", func(t *testing.T) {
		set, err := repo.ExistingExternalIDs(context.Background(), ownerID, accountID, nil)

		require.NoError(t, err)
		assert.Empty(t, set)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetHeaderMapping_NotFound(t *testing.T) {
	mock, repo := newMockRepo(t)
	ownerID := uuid.New()
	accountID := uuid.New()

	mock.ExpectQuery("SELECT owner_id, account_id, date_col").
		WithArgs(ownerID, accountID).
		WillReturnRows(pgxmock.NewRows([]string{
			"owner_id", "account_id", "date_col", "amount_col", "description_col",
			"category_col", "external_id_col", "updated_at",
		}))

	mapping, err := repo.GetHeaderMapping(context.Background(), ownerID, accountID)

	require.NoError(t, err)
	assert.Nil(t, mapping)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertHeaderMapping(t *testing.T) {
	mock, repo := newMockRepo(t)
	mapping := &HeaderMapping{
		OwnerID:        uuid.New(),
		AccountID:      uuid.New(),
		DateCol:        0,
		AmountCol:      1,
		DescriptionCol: 2,
	}

	mock.ExpectExec("INSERT INTO account_header_mappings").
		WithArgs(mapping.OwnerID, mapping.AccountID, 0, 1, 2, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.UpsertHeaderMapping(context.Background(), mapping)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
