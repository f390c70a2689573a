package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tundeajala/bookhaven-payments/internal/payments"
	"github.com/tundeajala/bookhaven-payments/pkg/db/models"
	"github.com/tundeajala/bookhaven-payments/pkg/enums"
	pkgerrors "github.com/tundeajala/bookhaven-payments/pkg/errors"
	"github.com/tundeajala/bookhaven-payments/pkg/logger"
)

// Result is what a webhook delivery did to the payment record.
type Result string

const (
	ResultFulfilled        Result = "fulfilled"
	ResultStatusUpdated    Result = "status_updated"
	ResultPartialPayment   Result = "partial_payment"
	ResultAlreadyProcessed Result = "already_processed"
	ResultNotFound         Result = "not_found"
)

// PayoutIntent asks the dispatcher to initiate a vendor split after the
// transaction commits.
type PayoutIntent struct {
	PaymentRecordID    uuid.UUID
	ProcessorPaymentID string
}

// Notification is an alert the dispatcher publishes after commit.
type Notification struct {
	Kind    enums.NotificationKind
	OrderID string
	Payload map[string]any
}

// Outcome is the committed result of one delivery plus the side effects
// the dispatcher still owes. Intents are only populated when the
// transaction that produced them committed.
type Outcome struct {
	Result        Result
	Record        *models.PaymentRecord
	Payout        *PayoutIntent
	Notifications []Notification
}

type recordStore interface {
	FindByOrderIDWithTx(ctx context.Context, tx *gorm.DB, orderID string) (*models.PaymentRecord, error)
	FindByProcessorPaymentIDWithTx(ctx context.Context, tx *gorm.DB, paymentID string) (*models.PaymentRecord, error)
	UpdateWithTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, patch map[string]any) error
	ClaimFulfillmentWithTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, finishedAt time.Time) (bool, error)
}

type bookingStore interface {
	ConfirmWithTx(ctx context.Context, tx *gorm.DB, requestType enums.RequestType, requestID uuid.UUID) error
	MarkPaymentFailedWithTx(ctx context.Context, tx *gorm.DB, requestType enums.RequestType, requestID uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Records           recordStore
	Bookings          bookingStore
	TransactionRunner txRunner
	Logger            *logger.Logger
}

// Service applies normalized payment events to the store inside a
// single transaction per delivery.
type Service struct {
	records  recordStore
	bookings bookingStore
	txRunner txRunner
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Records == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "record store required")
	}
	if params.Bookings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "booking store required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		records:  params.Records,
		bookings: params.Bookings,
		txRunner: params.TransactionRunner,
		logg:     params.Logger,
	}, nil
}

// Handle runs the delivery through the state machine. An error return
// means nothing committed and the processor should redeliver; any
// Outcome with intents has already committed.
func (s *Service) Handle(ctx context.Context, event *payments.PaymentEvent) (*Outcome, error) {
	if event == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment event required")
	}

	ctx = s.logg.WithOrderID(ctx, event.OrderID)
	ctx = s.logg.WithPaymentID(ctx, event.PaymentID)

	outcome := &Outcome{}
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		record, err := s.lookup(ctx, tx, event)
		if err != nil {
			return err
		}
		if record == nil {
			s.logg.Warn(ctx, "webhook for unknown payment record")
			outcome.Result = ResultNotFound
			return nil
		}
		outcome.Record = record

		patch := map[string]any{"status": event.RawStatus}
		s.reconcileProcessorPaymentID(ctx, record, event, patch)
		if !event.ActuallyPaid.IsZero() {
			patch["amount_paid"] = event.ActuallyPaid
		}

		if record.Fulfilled {
			return s.handleAfterFulfillment(ctx, tx, record, event, patch, outcome)
		}

		switch event.Class {
		case enums.StatusClassCompleted:
			return s.handleCompleted(ctx, tx, record, event, patch, outcome)
		case enums.StatusClassPartiallyPaid:
			return s.handlePartiallyPaid(ctx, tx, record, event, patch, outcome)
		case enums.StatusClassFailed:
			return s.handleFailed(ctx, tx, record, event, patch, outcome)
		default:
			if err := s.records.UpdateWithTx(ctx, tx, record.ID, patch); err != nil {
				return err
			}
			record.Status = event.RawStatus
			outcome.Result = ResultStatusUpdated
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// lookup resolves the record by checkout reference first, falling back
// to the processor's payment id for deliveries that arrive after the
// order reference changed hands.
func (s *Service) lookup(ctx context.Context, tx *gorm.DB, event *payments.PaymentEvent) (*models.PaymentRecord, error) {
	record, err := s.records.FindByOrderIDWithTx(ctx, tx, event.OrderID)
	if err != nil {
		return nil, err
	}
	if record != nil {
		return record, nil
	}
	return s.records.FindByProcessorPaymentIDWithTx(ctx, tx, event.PaymentID)
}

// reconcileProcessorPaymentID assigns the processor's id exactly once.
// A later delivery carrying a different id is logged and ignored; the
// original binding wins.
func (s *Service) reconcileProcessorPaymentID(ctx context.Context, record *models.PaymentRecord, event *payments.PaymentEvent, patch map[string]any) {
	if event.PaymentID == "" {
		return
	}
	if record.ProcessorPaymentID == nil {
		patch["processor_payment_id"] = event.PaymentID
		pid := event.PaymentID
		record.ProcessorPaymentID = &pid
		return
	}
	if *record.ProcessorPaymentID != event.PaymentID {
		s.logg.Warn(ctx, "processor payment id mismatch, keeping original binding")
	}
}

// handleAfterFulfillment deals with deliveries that arrive once payout
// has already been triggered. Nothing here may mutate booking state or
// re-trigger side effects; a completion replay gets a telemetry-only
// record update, anything else is an anomaly worth a log line.
func (s *Service) handleAfterFulfillment(ctx context.Context, tx *gorm.DB, record *models.PaymentRecord, event *payments.PaymentEvent, patch map[string]any, outcome *Outcome) error {
	if event.Class == enums.StatusClassCompleted {
		if err := s.records.UpdateWithTx(ctx, tx, record.ID, patch); err != nil {
			return err
		}
		record.Status = event.RawStatus
	} else {
		s.logg.Warn(ctx, fmt.Sprintf("ignoring %s event for already-fulfilled payment", event.Class))
	}
	outcome.Result = ResultAlreadyProcessed
	return nil
}

func (s *Service) handleCompleted(ctx context.Context, tx *gorm.DB, record *models.PaymentRecord, event *payments.PaymentEvent, patch map[string]any, outcome *Outcome) error {
	now := time.Now().UTC()
	claimed, err := s.records.ClaimFulfillmentWithTx(ctx, tx, record.ID, now)
	if err != nil {
		return err
	}
	if !claimed {
		// A concurrent delivery won the claim between our read and the
		// conditional update.
		if err := s.records.UpdateWithTx(ctx, tx, record.ID, patch); err != nil {
			return err
		}
		record.Status = event.RawStatus
		outcome.Result = ResultAlreadyProcessed
		return nil
	}

	if err := s.records.UpdateWithTx(ctx, tx, record.ID, patch); err != nil {
		return err
	}
	if err := s.bookings.ConfirmWithTx(ctx, tx, record.RequestType, record.RequestID); err != nil {
		return err
	}

	record.Status = event.RawStatus
	record.Fulfilled = true
	record.FinishedAt = &now
	record.AmountPaid = event.ActuallyPaid

	processorPaymentID := event.PaymentID
	if processorPaymentID == "" && record.ProcessorPaymentID != nil {
		processorPaymentID = *record.ProcessorPaymentID
	}

	outcome.Result = ResultFulfilled
	outcome.Payout = &PayoutIntent{
		PaymentRecordID:    record.ID,
		ProcessorPaymentID: processorPaymentID,
	}
	outcome.Notifications = append(outcome.Notifications, Notification{
		Kind:    enums.NotificationPaymentFulfilled,
		OrderID: record.OrderID,
		Payload: map[string]any{
			"request_type": record.RequestType.String(),
			"request_id":   record.RequestID.String(),
			"amount_paid":  event.ActuallyPaid.String(),
			"currency":     event.Currency,
		},
	})
	return nil
}

func (s *Service) handlePartiallyPaid(ctx context.Context, tx *gorm.DB, record *models.PaymentRecord, event *payments.PaymentEvent, patch map[string]any, outcome *Outcome) error {
	note := fmt.Sprintf("received %s of %s %s", event.ActuallyPaid, event.PayAmount, event.Currency)
	patch["note"] = note
	if err := s.records.UpdateWithTx(ctx, tx, record.ID, patch); err != nil {
		return err
	}

	record.Status = event.RawStatus
	record.Note = &note
	record.AmountPaid = event.ActuallyPaid

	outcome.Result = ResultPartialPayment
	outcome.Notifications = append(outcome.Notifications, Notification{
		Kind:    enums.NotificationPaymentPartiallyPaid,
		OrderID: record.OrderID,
		Payload: map[string]any{
			"amount_paid":     event.ActuallyPaid.String(),
			"amount_expected": event.PayAmount.String(),
			"currency":        event.Currency,
		},
	})
	return nil
}

func (s *Service) handleFailed(ctx context.Context, tx *gorm.DB, record *models.PaymentRecord, event *payments.PaymentEvent, patch map[string]any, outcome *Outcome) error {
	now := time.Now().UTC()
	patch["failed_at"] = now
	if err := s.records.UpdateWithTx(ctx, tx, record.ID, patch); err != nil {
		return err
	}
	// The booking itself stays open so the customer can pay again; only
	// its payment marker flips.
	if err := s.bookings.MarkPaymentFailedWithTx(ctx, tx, record.RequestType, record.RequestID); err != nil {
		return err
	}

	record.Status = event.RawStatus
	record.FailedAt = &now

	outcome.Result = ResultStatusUpdated
	outcome.Notifications = append(outcome.Notifications, Notification{
		Kind:    enums.NotificationPaymentFailed,
		OrderID: record.OrderID,
		Payload: map[string]any{
			"status":   event.RawStatus,
			"currency": event.Currency,
		},
	})
	return nil
}
