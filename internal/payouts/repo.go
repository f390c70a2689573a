package payouts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tundeajala/bookhaven-payments/pkg/db/models"
	"github.com/tundeajala/bookhaven-payments/pkg/enums"
)

// Repository records split attempts. Rows live outside the webhook
// transaction: the split happens after commit, and the out-of-band
// retry job feeds on failed rows.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// RecordInitiated stores a successful split.
func (r *Repository) RecordInitiated(ctx context.Context, paymentRecordID uuid.UUID, processorPaymentID, splitID string) error {
	split := &models.PayoutSplit{
		ID:                 uuid.New(),
		PaymentRecordID:    paymentRecordID,
		ProcessorPaymentID: processorPaymentID,
		SplitID:            &splitID,
		Status:             enums.PayoutStatusInitiated,
	}
	return r.db.WithContext(ctx).Create(split).Error
}

// RecordFailed stores a failed split attempt with the rail's error.
func (r *Repository) RecordFailed(ctx context.Context, paymentRecordID uuid.UUID, processorPaymentID string, cause error) error {
	var lastError *string
	if cause != nil {
		msg := cause.Error()
		lastError = &msg
	}
	split := &models.PayoutSplit{
		ID:                 uuid.New(),
		PaymentRecordID:    paymentRecordID,
		ProcessorPaymentID: processorPaymentID,
		Status:             enums.PayoutStatusFailed,
		LastError:          lastError,
	}
	return r.db.WithContext(ctx).Create(split).Error
}

// listFailed returns failed splits oldest first using cursor pagination,
// so the retry operator walks the backlog in the order it accumulated.
func (r *Repository) listFailed(ctx context.Context, opts listQuery) ([]models.PayoutSplit, error) {
	query := r.db.WithContext(ctx).Model(&models.PayoutSplit{}).
		Where("status = ?", enums.PayoutStatusFailed)

	if opts.cursor != nil {
		query = query.Where("(created_at > ?) OR (created_at = ? AND id > ?)", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	query = query.Order("created_at ASC").Order("id ASC").Limit(opts.limit)

	var rows []models.PayoutSplit
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
