package webhooks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tundeajala/bookhaven-payments/api/responses"
	"github.com/tundeajala/bookhaven-payments/internal/fulfillment"
	"github.com/tundeajala/bookhaven-payments/internal/payments"
	"github.com/tundeajala/bookhaven-payments/internal/webhooks"
	"github.com/tundeajala/bookhaven-payments/pkg/enums"
	pkgerrors "github.com/tundeajala/bookhaven-payments/pkg/errors"
	"github.com/tundeajala/bookhaven-payments/pkg/logger"
	"github.com/tundeajala/bookhaven-payments/pkg/metrics"
	"github.com/tundeajala/bookhaven-payments/pkg/signature"
)

// FulfillmentService applies a normalized event to the store.
type FulfillmentService interface {
	Handle(ctx context.Context, event *payments.PaymentEvent) (*fulfillment.Outcome, error)
}

// SideEffectRunner executes post-commit side effects.
type SideEffectRunner interface {
	Run(ctx context.Context, event *payments.PaymentEvent, outcome *fulfillment.Outcome)
}

type dedupeGuard interface {
	CheckAndMark(ctx context.Context, deliveryKey string) (bool, error)
	Delete(ctx context.Context, deliveryKey string) error
}

// Deps carries everything a processor endpoint needs.
type Deps struct {
	Service    FulfillmentService
	Dispatcher SideEffectRunner
	Guard      dedupeGuard
	Secret     string
	Metrics    *metrics.WebhookMetrics
	Logger     *logger.Logger
}

// handle is the shared delivery pipeline: signature, normalize, dedupe,
// orchestrate, side effects. The two processors differ only in header
// name and payload shape.
func handle(deps Deps, processor enums.Processor, signatureHeader string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logg := deps.Logger
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithProcessor(ctx, processor.String())
		}

		if deps.Service == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}
		if deps.Guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dedupe guard unavailable"))
			return
		}
		if deps.Secret == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook secret unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get(signatureHeader)
		if sigHeader == "" {
			deps.Metrics.IncRejectedSignature(processor.String())
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook signature missing"))
			return
		}
		if !signature.VerifyHMACSHA512(payload, sigHeader, deps.Secret) {
			deps.Metrics.IncRejectedSignature(processor.String())
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook signature invalid"))
			return
		}
		deps.Metrics.IncReceived(processor.String())

		event, err := payments.Normalize(processor, payload)
		if err != nil {
			// Acknowledge: a structurally broken payload will not improve
			// on redelivery, and retry storms hide real failures.
			if logg != nil {
				logg.Error(ctx, "webhook payload rejected during normalization", err)
			}
			responses.WriteSuccess(w, map[string]any{"received": true})
			return
		}

		if logg != nil {
			ctx = logg.WithOrderID(ctx, event.OrderID)
			ctx = logg.WithPaymentID(ctx, event.PaymentID)
		}

		deliveryKey := webhooks.DeliveryKey(event.PaymentID, event.RawStatus)
		seen, err := deps.Guard.CheckAndMark(ctx, deliveryKey)
		if err != nil {
			// The guard is advisory; the store's conditional update is the
			// real idempotency barrier. Keep going.
			if logg != nil {
				logg.Warn(ctx, fmt.Sprintf("dedupe guard unavailable: %v", err))
			}
		}
		if seen {
			deps.Metrics.IncDuplicate(processor.String())
			responses.WriteSuccess(w, map[string]any{"received": true, "duplicate": true})
			return
		}

		outcome, err := deps.Service.Handle(ctx, event)
		if err != nil {
			// Release the mark so the processor's retry is not swallowed.
			if delErr := deps.Guard.Delete(ctx, deliveryKey); delErr != nil && logg != nil {
				logg.Warn(ctx, fmt.Sprintf("release dedupe key: %v", delErr))
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if outcome.Result == fulfillment.ResultNotFound {
			// The record may not exist yet (webhook raced checkout). Release
			// the mark so a later retry can reconcile once it does.
			if delErr := deps.Guard.Delete(ctx, deliveryKey); delErr != nil && logg != nil {
				logg.Warn(ctx, fmt.Sprintf("release dedupe key: %v", delErr))
			}
		}

		deps.Metrics.IncOutcome(processor.String(), string(outcome.Result))
		if deps.Dispatcher != nil {
			deps.Dispatcher.Run(ctx, event, outcome)
		}
		deps.Metrics.ObserveHandleDuration(processor.String(), time.Since(start))

		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("webhook processed: %s", outcome.Result))
		}
		responses.WriteSuccess(w, map[string]any{"received": true, "result": string(outcome.Result)})
	}
}
