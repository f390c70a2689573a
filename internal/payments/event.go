package payments

import (
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/tundeajala/bookhaven-payments/pkg/enums"
	pkgerrors "github.com/tundeajala/bookhaven-payments/pkg/errors"
)

// PaymentEvent is the normalized shape of a webhook delivery. It is
// consumed once by the orchestrator and discarded.
type PaymentEvent struct {
	Processor    enums.Processor
	PaymentID    string
	OrderID      string
	RawStatus    string
	Class        enums.StatusClass
	PayAmount    decimal.Decimal
	ActuallyPaid decimal.Decimal
	Currency     string
}

var validate = validator.New()

// Fixed per-processor status tables. Classification is a lookup, never
// inferred from substrings.
var cryptoStatusClasses = map[string]enums.StatusClass{
	"waiting":        enums.StatusClassInProgress,
	"confirming":     enums.StatusClassInProgress,
	"confirmed":      enums.StatusClassInProgress,
	"sending":        enums.StatusClassInProgress,
	"finished":       enums.StatusClassCompleted,
	"partially_paid": enums.StatusClassPartiallyPaid,
	"expired":        enums.StatusClassFailed,
	"refunded":       enums.StatusClassFailed,
	"failed":         enums.StatusClassFailed,
}

var cardStatusClasses = map[string]enums.StatusClass{
	"success":    enums.StatusClassCompleted,
	"pending":    enums.StatusClassInProgress,
	"ongoing":    enums.StatusClassInProgress,
	"processing": enums.StatusClassInProgress,
	"queued":     enums.StatusClassInProgress,
	"failed":     enums.StatusClassFailed,
	"abandoned":  enums.StatusClassFailed,
	"reversed":   enums.StatusClassFailed,
}

type cryptoIPNPayload struct {
	PaymentID     json.Number     `json:"payment_id" validate:"required"`
	OrderID       string          `json:"order_id" validate:"required"`
	PaymentStatus string          `json:"payment_status" validate:"required"`
	PayAmount     decimal.Decimal `json:"pay_amount"`
	ActuallyPaid  decimal.Decimal `json:"actually_paid"`
	PayCurrency   string          `json:"pay_currency"`
}

type cardWebhookPayload struct {
	Event string          `json:"event" validate:"required"`
	Data  cardWebhookData `json:"data"`
}

type cardWebhookData struct {
	ID              json.Number     `json:"id" validate:"required"`
	Reference       string          `json:"reference" validate:"required"`
	Status          string          `json:"status" validate:"required"`
	Amount          decimal.Decimal `json:"amount"`
	RequestedAmount decimal.Decimal `json:"requested_amount"`
	Currency        string          `json:"currency"`
}

// Normalize maps a processor payload onto the internal event shape.
// It is a pure function of its input and never touches the store.
// Callers should acknowledge the webhook even when normalization fails,
// since retrying a structurally broken payload only causes a retry storm.
func Normalize(processor enums.Processor, raw []byte) (*PaymentEvent, error) {
	switch processor {
	case enums.ProcessorCrypto:
		return normalizeCrypto(raw)
	case enums.ProcessorCard:
		return normalizeCard(raw)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown processor")
	}
}

func normalizeCrypto(raw []byte) (*PaymentEvent, error) {
	var payload cryptoIPNPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode crypto ipn payload")
	}
	if err := validate.Struct(payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "crypto ipn payload missing required fields")
	}

	status := strings.ToLower(strings.TrimSpace(payload.PaymentStatus))
	class, ok := cryptoStatusClasses[status]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unrecognized crypto payment status").
			WithDetails(map[string]any{"status": status})
	}

	event := &PaymentEvent{
		Processor:    enums.ProcessorCrypto,
		PaymentID:    payload.PaymentID.String(),
		OrderID:      payload.OrderID,
		RawStatus:    status,
		Class:        class,
		PayAmount:    payload.PayAmount,
		ActuallyPaid: payload.ActuallyPaid,
		Currency:     strings.ToUpper(payload.PayCurrency),
	}
	applyShortPaymentDowngrade(event)
	return event, nil
}

func normalizeCard(raw []byte) (*PaymentEvent, error) {
	var payload cardWebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode card webhook payload")
	}
	if err := validate.Struct(payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "card webhook payload missing required fields")
	}

	// Only charge lifecycle events describe a payment. Transfer and
	// refund events reuse the same status vocabulary and must never
	// reach classification.
	eventName := strings.ToLower(strings.TrimSpace(payload.Event))
	if !strings.HasPrefix(eventName, "charge.") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported card event").
			WithDetails(map[string]any{"event": eventName})
	}

	status := strings.ToLower(strings.TrimSpace(payload.Data.Status))
	class, ok := cardStatusClasses[status]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unrecognized card payment status").
			WithDetails(map[string]any{"status": status, "event": payload.Event})
	}

	expected := payload.Data.RequestedAmount
	if expected.IsZero() {
		expected = payload.Data.Amount
	}

	event := &PaymentEvent{
		Processor:    enums.ProcessorCard,
		PaymentID:    payload.Data.ID.String(),
		OrderID:      payload.Data.Reference,
		RawStatus:    status,
		Class:        class,
		PayAmount:    expected,
		ActuallyPaid: payload.Data.Amount,
		Currency:     strings.ToUpper(payload.Data.Currency),
	}
	applyShortPaymentDowngrade(event)
	return event, nil
}

// A completion-class event that paid strictly less than expected is a
// partial payment, never a completion.
func applyShortPaymentDowngrade(event *PaymentEvent) {
	if event.Class != enums.StatusClassCompleted {
		return
	}
	if event.PayAmount.IsPositive() && event.ActuallyPaid.LessThan(event.PayAmount) {
		event.Class = enums.StatusClassPartiallyPaid
	}
}
