package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tundeajala/bookhaven-payments/pkg/db/models"
)

// Repository is the narrow store over payment_records. All operations
// are single-record; cascades to booking tables live elsewhere.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByOrderID returns the record for the checkout reference, or nil
// when absent.
func (r *Repository) FindByOrderID(ctx context.Context, orderID string) (*models.PaymentRecord, error) {
	if orderID == "" {
		return nil, nil
	}
	var record models.PaymentRecord
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByProcessorPaymentID returns the record the processor's payment id
// points at, or nil when absent.
func (r *Repository) FindByProcessorPaymentID(ctx context.Context, paymentID string) (*models.PaymentRecord, error) {
	if paymentID == "" {
		return nil, nil
	}
	var record models.PaymentRecord
	err := r.db.WithContext(ctx).Where("processor_payment_id = ?", paymentID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Create inserts a new payment record, assigning an id when the caller
// left it zero.
func (r *Repository) Create(ctx context.Context, record *models.PaymentRecord) error {
	if record == nil {
		return errors.New("payment record required")
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(record).Error
}

// Update applies a partial-field patch. Full-row saves would clobber
// concurrent writers, so callers always pass just the columns they own.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, patch map[string]any) error {
	if len(patch) == 0 {
		return nil
	}
	patch["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.PaymentRecord{}).
		Where("id = ?", id).
		Updates(patch).Error
}

// FindByOrderIDWithTx is FindByOrderID bound to a transaction.
func (r *Repository) FindByOrderIDWithTx(ctx context.Context, tx *gorm.DB, orderID string) (*models.PaymentRecord, error) {
	return r.WithTx(tx).FindByOrderID(ctx, orderID)
}

// FindByProcessorPaymentIDWithTx is FindByProcessorPaymentID bound to a
// transaction.
func (r *Repository) FindByProcessorPaymentIDWithTx(ctx context.Context, tx *gorm.DB, paymentID string) (*models.PaymentRecord, error) {
	return r.WithTx(tx).FindByProcessorPaymentID(ctx, paymentID)
}

// UpdateWithTx is Update bound to a transaction.
func (r *Repository) UpdateWithTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, patch map[string]any) error {
	return r.WithTx(tx).Update(ctx, id, patch)
}

// ClaimFulfillmentWithTx is ClaimFulfillment bound to a transaction.
func (r *Repository) ClaimFulfillmentWithTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, finishedAt time.Time) (bool, error) {
	return r.WithTx(tx).ClaimFulfillment(ctx, id, finishedAt)
}

// ClaimFulfillment flips fulfilled false->true for exactly one caller.
// The conditional single-row update is the mutual exclusion that keeps
// two concurrent completion deliveries from both triggering payout.
func (r *Repository) ClaimFulfillment(ctx context.Context, id uuid.UUID, finishedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentRecord{}).
		Where("id = ? AND fulfilled = ?", id, false).
		Updates(map[string]any{
			"fulfilled":   true,
			"finished_at": finishedAt,
			"updated_at":  finishedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
