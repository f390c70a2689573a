package payouts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tundeajala/bookhaven-payments/pkg/db/models"
	"github.com/tundeajala/bookhaven-payments/pkg/enums"
	pkgerrors "github.com/tundeajala/bookhaven-payments/pkg/errors"
	"github.com/tundeajala/bookhaven-payments/pkg/pagination"
)

func setupPayoutsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	payoutSplits := `
CREATE TABLE IF NOT EXISTS payout_splits (
  id TEXT PRIMARY KEY,
  payment_record_id TEXT NOT NULL,
  processor_payment_id TEXT NOT NULL,
  split_id TEXT,
  status TEXT NOT NULL,
  last_error TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(payoutSplits).Error)
	// The shared-cache database outlives individual tests.
	require.NoError(t, db.Exec(`DELETE FROM payout_splits`).Error)
	return db
}

func seedSplit(t *testing.T, db *gorm.DB, status enums.PayoutStatus, createdAt time.Time) *models.PayoutSplit {
	t.Helper()

	split := &models.PayoutSplit{
		ID:                 uuid.New(),
		PaymentRecordID:    uuid.New(),
		ProcessorPaymentID: uuid.NewString(),
		Status:             status,
		CreatedAt:          createdAt,
	}
	require.NoError(t, db.Create(split).Error)
	return split
}

func TestRecordInitiatedAndFailed(t *testing.T) {
	db := setupPayoutsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	recordID := uuid.New()
	require.NoError(t, repo.RecordInitiated(ctx, recordID, "pay-1", "split-1"))
	require.NoError(t, repo.RecordFailed(ctx, recordID, "pay-2", errors.New("rail down")))

	var splits []models.PayoutSplit
	require.NoError(t, db.Order("processor_payment_id").Find(&splits).Error)
	require.Len(t, splits, 2)

	assert.Equal(t, enums.PayoutStatusInitiated, splits[0].Status)
	require.NotNil(t, splits[0].SplitID)
	assert.Equal(t, "split-1", *splits[0].SplitID)

	assert.Equal(t, enums.PayoutStatusFailed, splits[1].Status)
	require.NotNil(t, splits[1].LastError)
	assert.Equal(t, "rail down", *splits[1].LastError)
}

func TestListFailedPagesOldestFirst(t *testing.T) {
	db := setupPayoutsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var failed []*models.PayoutSplit
	for i := 0; i < 5; i++ {
		failed = append(failed, seedSplit(t, db, enums.PayoutStatusFailed, base.Add(time.Duration(i)*time.Minute)))
	}
	seedSplit(t, db, enums.PayoutStatusInitiated, base.Add(10*time.Minute))

	page1, err := repo.ListFailed(ctx, ListParams{Params: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, page1.Items, 2)
	assert.Equal(t, failed[0].ID, page1.Items[0].ID)
	assert.Equal(t, failed[1].ID, page1.Items[1].ID)
	require.NotEmpty(t, page1.Cursor)

	page2, err := repo.ListFailed(ctx, ListParams{Params: pagination.Params{Limit: 2, Cursor: page1.Cursor}})
	require.NoError(t, err)
	require.Len(t, page2.Items, 2)
	assert.Equal(t, failed[2].ID, page2.Items[0].ID)
	assert.Equal(t, failed[3].ID, page2.Items[1].ID)
	require.NotEmpty(t, page2.Cursor)

	page3, err := repo.ListFailed(ctx, ListParams{Params: pagination.Params{Limit: 2, Cursor: page2.Cursor}})
	require.NoError(t, err)
	require.Len(t, page3.Items, 1)
	assert.Equal(t, failed[4].ID, page3.Items[0].ID)
	assert.Empty(t, page3.Cursor)
}

func TestListFailedSkipsInitiatedSplits(t *testing.T) {
	db := setupPayoutsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedSplit(t, db, enums.PayoutStatusInitiated, time.Now().UTC())

	result, err := repo.ListFailed(ctx, ListParams{})
	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.Empty(t, result.Cursor)
}

func TestListFailedRejectsBadCursor(t *testing.T) {
	db := setupPayoutsTestDB(t)
	repo := NewRepository(db)

	_, err := repo.ListFailed(context.Background(), ListParams{Params: pagination.Params{Cursor: "not-base64!"}})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeValidation, coded.Code())
}
