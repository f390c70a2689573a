package payments

import (
	"fmt"
	"testing"

	"github.com/tundeajala/bookhaven-payments/pkg/enums"
	pkgerrors "github.com/tundeajala/bookhaven-payments/pkg/errors"
)

func TestNormalizeCryptoStatusTable(t *testing.T) {
	cases := []struct {
		status string
		want   enums.StatusClass
	}{
		{"waiting", enums.StatusClassInProgress},
		{"confirming", enums.StatusClassInProgress},
		{"confirmed", enums.StatusClassInProgress},
		{"sending", enums.StatusClassInProgress},
		{"finished", enums.StatusClassCompleted},
		{"partially_paid", enums.StatusClassPartiallyPaid},
		{"expired", enums.StatusClassFailed},
		{"refunded", enums.StatusClassFailed},
		{"failed", enums.StatusClassFailed},
	}

	for _, tc := range cases {
		t.Run(tc.status, func(t *testing.T) {
			raw := fmt.Sprintf(`{
				"payment_id": 4937201,
				"order_id": "ord_7f3a",
				"payment_status": %q,
				"pay_amount": "0.05",
				"actually_paid": "0.05",
				"pay_currency": "btc"
			}`, tc.status)

			event, err := Normalize(enums.ProcessorCrypto, []byte(raw))
			if err != nil {
				t.Fatalf("normalize: %v", err)
			}
			if event.Class != tc.want {
				t.Fatalf("class = %s, want %s", event.Class, tc.want)
			}
			if event.PaymentID != "4937201" {
				t.Fatalf("payment id = %q", event.PaymentID)
			}
			if event.OrderID != "ord_7f3a" {
				t.Fatalf("order id = %q", event.OrderID)
			}
			if event.Currency != "BTC" {
				t.Fatalf("currency = %q", event.Currency)
			}
		})
	}
}

func TestNormalizeCryptoShortPaymentDowngrade(t *testing.T) {
	raw := []byte(`{
		"payment_id": "981",
		"order_id": "ord_short",
		"payment_status": "finished",
		"pay_amount": "1.0",
		"actually_paid": "0.4",
		"pay_currency": "eth"
	}`)

	event, err := Normalize(enums.ProcessorCrypto, raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if event.Class != enums.StatusClassPartiallyPaid {
		t.Fatalf("class = %s, want %s", event.Class, enums.StatusClassPartiallyPaid)
	}
	if event.RawStatus != "finished" {
		t.Fatalf("raw status = %q, want finished", event.RawStatus)
	}
}

func TestNormalizeCryptoFullPaymentStaysCompleted(t *testing.T) {
	raw := []byte(`{
		"payment_id": "982",
		"order_id": "ord_full",
		"payment_status": "finished",
		"pay_amount": "1.0",
		"actually_paid": "1.0",
		"pay_currency": "eth"
	}`)

	event, err := Normalize(enums.ProcessorCrypto, raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if event.Class != enums.StatusClassCompleted {
		t.Fatalf("class = %s, want %s", event.Class, enums.StatusClassCompleted)
	}
}

func TestNormalizeCryptoUnknownStatus(t *testing.T) {
	raw := []byte(`{
		"payment_id": "983",
		"order_id": "ord_x",
		"payment_status": "levitating",
		"pay_amount": "1.0",
		"actually_paid": "1.0",
		"pay_currency": "btc"
	}`)

	_, err := Normalize(enums.ProcessorCrypto, raw)
	if err == nil {
		t.Fatal("expected error for unknown status")
	}
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNormalizeCryptoMissingFields(t *testing.T) {
	cases := map[string]string{
		"no order id":   `{"payment_id": 1, "payment_status": "finished"}`,
		"no payment id": `{"order_id": "ord_1", "payment_status": "finished"}`,
		"no status":     `{"payment_id": 1, "order_id": "ord_1"}`,
		"not json":      `payment_status=finished`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Normalize(enums.ProcessorCrypto, []byte(raw))
			if err == nil {
				t.Fatal("expected error")
			}
			coded := pkgerrors.As(err)
			if coded == nil || coded.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestNormalizeCardStatusTable(t *testing.T) {
	cases := []struct {
		status string
		want   enums.StatusClass
	}{
		{"success", enums.StatusClassCompleted},
		{"pending", enums.StatusClassInProgress},
		{"ongoing", enums.StatusClassInProgress},
		{"processing", enums.StatusClassInProgress},
		{"queued", enums.StatusClassInProgress},
		{"failed", enums.StatusClassFailed},
		{"abandoned", enums.StatusClassFailed},
		{"reversed", enums.StatusClassFailed},
	}

	for _, tc := range cases {
		t.Run(tc.status, func(t *testing.T) {
			raw := fmt.Sprintf(`{
				"event": "charge.update",
				"data": {
					"id": 550912,
					"reference": "ord_card_1",
					"status": %q,
					"amount": 250000,
					"requested_amount": 250000,
					"currency": "ngn"
				}
			}`, tc.status)

			event, err := Normalize(enums.ProcessorCard, []byte(raw))
			if err != nil {
				t.Fatalf("normalize: %v", err)
			}
			if event.Class != tc.want {
				t.Fatalf("class = %s, want %s", event.Class, tc.want)
			}
			if event.PaymentID != "550912" {
				t.Fatalf("payment id = %q", event.PaymentID)
			}
			if event.OrderID != "ord_card_1" {
				t.Fatalf("order id = %q", event.OrderID)
			}
			if event.Currency != "NGN" {
				t.Fatalf("currency = %q", event.Currency)
			}
		})
	}
}

func TestNormalizeCardShortPaymentDowngrade(t *testing.T) {
	raw := []byte(`{
		"event": "charge.success",
		"data": {
			"id": 550913,
			"reference": "ord_card_short",
			"status": "success",
			"amount": 100000,
			"requested_amount": 250000,
			"currency": "NGN"
		}
	}`)

	event, err := Normalize(enums.ProcessorCard, raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if event.Class != enums.StatusClassPartiallyPaid {
		t.Fatalf("class = %s, want %s", event.Class, enums.StatusClassPartiallyPaid)
	}
	if event.PayAmount.String() != "250000" {
		t.Fatalf("pay amount = %s, want 250000", event.PayAmount)
	}
}

func TestNormalizeCardRequestedAmountFallback(t *testing.T) {
	raw := []byte(`{
		"event": "charge.success",
		"data": {
			"id": 550914,
			"reference": "ord_card_nofallback",
			"status": "success",
			"amount": 100000,
			"currency": "NGN"
		}
	}`)

	event, err := Normalize(enums.ProcessorCard, raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if event.Class != enums.StatusClassCompleted {
		t.Fatalf("class = %s, want %s", event.Class, enums.StatusClassCompleted)
	}
	if !event.PayAmount.Equal(event.ActuallyPaid) {
		t.Fatalf("expected pay amount to fall back to amount, got %s vs %s", event.PayAmount, event.ActuallyPaid)
	}
}

func TestNormalizeCardRejectsNonChargeEvents(t *testing.T) {
	// Transfer and refund events reuse the charge status vocabulary; a
	// colliding reference must never be classified as a completed payment.
	for _, eventName := range []string{"refund.processed", "transfer.success", "subscription.create"} {
		t.Run(eventName, func(t *testing.T) {
			raw := fmt.Sprintf(`{
				"event": %q,
				"data": {
					"id": 550915,
					"reference": "ord_card_1",
					"status": "success",
					"amount": 250000,
					"currency": "NGN"
				}
			}`, eventName)

			_, err := Normalize(enums.ProcessorCard, []byte(raw))
			if err == nil {
				t.Fatal("expected error for non-charge event")
			}
			coded := pkgerrors.As(err)
			if coded == nil || coded.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestNormalizeCardRequiresPaymentID(t *testing.T) {
	raw := []byte(`{
		"event": "charge.success",
		"data": {
			"reference": "ord_card_noid",
			"status": "success",
			"amount": 250000,
			"currency": "NGN"
		}
	}`)

	_, err := Normalize(enums.ProcessorCard, raw)
	if err == nil {
		t.Fatal("expected error for missing payment id")
	}
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNormalizeUnknownProcessor(t *testing.T) {
	_, err := Normalize(enums.Processor("wire"), []byte(`{}`))
	if err == nil {
		t.Fatal("expected error")
	}
}
