package fulfillment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tundeajala/bookhaven-payments/internal/audit"
	"github.com/tundeajala/bookhaven-payments/internal/payments"
	"github.com/tundeajala/bookhaven-payments/internal/payouts"
	"github.com/tundeajala/bookhaven-payments/pkg/enums"
	pkgerrors "github.com/tundeajala/bookhaven-payments/pkg/errors"
	"github.com/tundeajala/bookhaven-payments/pkg/logger"
	"github.com/tundeajala/bookhaven-payments/pkg/metrics"
)

type payoutClient interface {
	InitiateSplit(ctx context.Context, processorPaymentID string) (*payouts.SplitResult, error)
}

type payoutStore interface {
	RecordInitiated(ctx context.Context, paymentRecordID uuid.UUID, processorPaymentID, splitID string) error
	RecordFailed(ctx context.Context, paymentRecordID uuid.UUID, processorPaymentID string, cause error) error
}

type notifier interface {
	Notify(ctx context.Context, kind enums.NotificationKind, orderID string, payload map[string]any) error
}

type DispatcherParams struct {
	Payouts     payoutClient
	PayoutStore payoutStore
	Notifier    notifier
	Audit       audit.Sink
	Metrics     *metrics.WebhookMetrics
	Logger      *logger.Logger
}

// Dispatcher executes the side effects an outcome owes after the
// transaction committed. Every effect is isolated: a failure is logged
// and counted but never surfaces to the webhook response, because the
// commit already happened and a retry from the processor would be
// rejected as a duplicate.
type Dispatcher struct {
	payouts     payoutClient
	payoutStore payoutStore
	notifier    notifier
	audit       audit.Sink
	metrics     *metrics.WebhookMetrics
	logg        *logger.Logger
}

func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Payouts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payout client required")
	}
	if params.PayoutStore == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payout store required")
	}
	if params.Notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifier required")
	}
	if params.Audit == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "audit sink required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Dispatcher{
		payouts:     params.Payouts,
		payoutStore: params.PayoutStore,
		notifier:    params.Notifier,
		audit:       params.Audit,
		metrics:     params.Metrics,
		logg:        params.Logger,
	}, nil
}

// Run executes the outcome's side effects in order: payout split,
// notifications, then the audit row.
func (d *Dispatcher) Run(ctx context.Context, event *payments.PaymentEvent, outcome *Outcome) {
	if outcome == nil {
		return
	}

	if outcome.Payout != nil {
		d.runPayout(ctx, outcome)
	}

	for _, notification := range outcome.Notifications {
		if err := d.notifier.Notify(ctx, notification.Kind, notification.OrderID, notification.Payload); err != nil {
			d.logg.Error(ctx, "publish notification failed", err)
			d.countFailure("notify")
		}
	}

	d.runAudit(ctx, event, outcome)
}

func (d *Dispatcher) runPayout(ctx context.Context, outcome *Outcome) {
	intent := outcome.Payout
	result, err := d.payouts.InitiateSplit(ctx, intent.ProcessorPaymentID)
	if err != nil {
		d.logg.Error(ctx, "payout split initiation failed", err)
		d.countFailure("payout")
		if storeErr := d.payoutStore.RecordFailed(ctx, intent.PaymentRecordID, intent.ProcessorPaymentID, err); storeErr != nil {
			d.logg.Error(ctx, "record failed payout split", storeErr)
		}
		if notifyErr := d.notifier.Notify(ctx, enums.NotificationPayoutSplitFailed, outcomeOrderID(outcome), map[string]any{
			"payment_record_id": intent.PaymentRecordID.String(),
			"error":             err.Error(),
		}); notifyErr != nil {
			d.logg.Error(ctx, "publish payout failure notification", notifyErr)
		}
		return
	}

	if err := d.payoutStore.RecordInitiated(ctx, intent.PaymentRecordID, intent.ProcessorPaymentID, result.SplitID); err != nil {
		d.logg.Error(ctx, "record initiated payout split", err)
		d.countFailure("payout_store")
	}
}

func (d *Dispatcher) runAudit(ctx context.Context, event *payments.PaymentEvent, outcome *Outcome) {
	if event == nil {
		return
	}

	row := audit.ReconEvent{
		OrderID:            event.OrderID,
		ProcessorPaymentID: event.PaymentID,
		Processor:          event.Processor.String(),
		RawStatus:          event.RawStatus,
		StatusClass:        event.Class.String(),
		Result:             string(outcome.Result),
		AmountPaid:         event.ActuallyPaid.String(),
		Currency:           event.Currency,
		OccurredAt:         time.Now().UTC(),
	}
	if outcome.Record != nil {
		row.AmountExpected = outcome.Record.AmountExpected.String()
	}

	if err := d.audit.Record(ctx, row); err != nil {
		d.logg.Error(ctx, "record recon event", err)
		d.countFailure("audit")
	}
}

func (d *Dispatcher) countFailure(effect string) {
	if d.metrics != nil {
		d.metrics.IncSideEffectFailure(effect)
	}
}

func outcomeOrderID(outcome *Outcome) string {
	if outcome.Record == nil {
		return ""
	}
	return outcome.Record.OrderID
}
