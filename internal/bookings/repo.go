package bookings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tundeajala/bookhaven-payments/pkg/enums"
	pkgerrors "github.com/tundeajala/bookhaven-payments/pkg/errors"
)

// Repository cascades payment outcomes onto the per-vertical booking
// tables. It only ever touches the status, payment_status and
// confirmed_at columns; everything else belongs to the booking services.
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

// ConfirmWithTx is Confirm bound to a transaction.
func (r *Repository) ConfirmWithTx(ctx context.Context, tx *gorm.DB, requestType enums.RequestType, requestID uuid.UUID) error {
	return r.WithTx(tx).Confirm(ctx, requestType, requestID)
}

// MarkPaymentFailedWithTx is MarkPaymentFailed bound to a transaction.
func (r *Repository) MarkPaymentFailedWithTx(ctx context.Context, tx *gorm.DB, requestType enums.RequestType, requestID uuid.UUID) error {
	return r.WithTx(tx).MarkPaymentFailed(ctx, requestType, requestID)
}

// Confirm marks the booking confirmed and paid. Missing rows are a
// state conflict: the payment record pointed at a booking that is gone.
func (r *Repository) Confirm(ctx context.Context, requestType enums.RequestType, requestID uuid.UUID) error {
	tgt, err := targetFor(requestType)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	res := r.db.WithContext(ctx).
		Table(tgt.Table).
		Where("id = ?", requestID).
		Updates(map[string]any{
			"status":         tgt.ConfirmedValue,
			"payment_status": enums.PaymentStatusPaid.String(),
			"confirmed_at":   now,
			"updated_at":     now,
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "confirm booking")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "booking not found for confirmation").
			WithDetails(map[string]any{"request_type": requestType.String(), "request_id": requestID.String()})
	}
	return nil
}

// MarkPaymentFailed flips payment_status only. The booking's own status
// stays put so the customer can retry payment without rebooking.
func (r *Repository) MarkPaymentFailed(ctx context.Context, requestType enums.RequestType, requestID uuid.UUID) error {
	tgt, err := targetFor(requestType)
	if err != nil {
		return err
	}

	res := r.db.WithContext(ctx).
		Table(tgt.Table).
		Where("id = ?", requestID).
		Updates(map[string]any{
			"payment_status": enums.PaymentStatusFailed.String(),
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "mark booking payment failed")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "booking not found for payment failure").
			WithDetails(map[string]any{"request_type": requestType.String(), "request_id": requestID.String()})
	}
	return nil
}
