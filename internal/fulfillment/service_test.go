package fulfillment

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tundeajala/bookhaven-payments/internal/payments"
	"github.com/tundeajala/bookhaven-payments/pkg/db/models"
	"github.com/tundeajala/bookhaven-payments/pkg/enums"
	"github.com/tundeajala/bookhaven-payments/pkg/logger"
)

type stubRecordStore struct {
	byOrderID     map[string]*models.PaymentRecord
	byPaymentID   map[string]*models.PaymentRecord
	patches       []map[string]any
	claimResult   bool
	claimErr      error
	claims        int
	updateErr     error
}

func (s *stubRecordStore) FindByOrderIDWithTx(ctx context.Context, tx *gorm.DB, orderID string) (*models.PaymentRecord, error) {
	return s.byOrderID[orderID], nil
}

func (s *stubRecordStore) FindByProcessorPaymentIDWithTx(ctx context.Context, tx *gorm.DB, paymentID string) (*models.PaymentRecord, error) {
	return s.byPaymentID[paymentID], nil
}

func (s *stubRecordStore) UpdateWithTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, patch map[string]any) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.patches = append(s.patches, patch)
	return nil
}

func (s *stubRecordStore) ClaimFulfillmentWithTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, finishedAt time.Time) (bool, error) {
	s.claims++
	if s.claimErr != nil {
		return false, s.claimErr
	}
	return s.claimResult, nil
}

type stubBookingStore struct {
	confirmed      []uuid.UUID
	paymentFailed  []uuid.UUID
	confirmErr     error
	markFailedErr  error
}

func (s *stubBookingStore) ConfirmWithTx(ctx context.Context, tx *gorm.DB, requestType enums.RequestType, requestID uuid.UUID) error {
	if s.confirmErr != nil {
		return s.confirmErr
	}
	s.confirmed = append(s.confirmed, requestID)
	return nil
}

func (s *stubBookingStore) MarkPaymentFailedWithTx(ctx context.Context, tx *gorm.DB, requestType enums.RequestType, requestID uuid.UUID) error {
	if s.markFailedErr != nil {
		return s.markFailedErr
	}
	s.paymentFailed = append(s.paymentFailed, requestID)
	return nil
}

type trackingTxRunner struct {
	calls     int
	rollbacks int
}

func (s *trackingTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	s.calls++
	if err := fn(nil); err != nil {
		s.rollbacks++
		return err
	}
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func testRecord(orderID string) *models.PaymentRecord {
	return &models.PaymentRecord{
		ID:             uuid.New(),
		OrderID:        orderID,
		Processor:      enums.ProcessorCrypto,
		RequestType:    enums.RequestTypeHotelBooking,
		RequestID:      uuid.New(),
		Status:         "waiting",
		AmountExpected: decimal.RequireFromString("1.0"),
		Currency:       "BTC",
	}
}

func newTestService(t *testing.T, records *stubRecordStore, bookings *stubBookingStore, runner *trackingTxRunner) *Service {
	t.Helper()

	service, err := NewService(ServiceParams{
		Records:           records,
		Bookings:          bookings,
		TransactionRunner: runner,
		Logger:            testLogger(),
	})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	return service
}

func completedEvent(orderID, paymentID string) *payments.PaymentEvent {
	return &payments.PaymentEvent{
		Processor:    enums.ProcessorCrypto,
		PaymentID:    paymentID,
		OrderID:      orderID,
		RawStatus:    "finished",
		Class:        enums.StatusClassCompleted,
		PayAmount:    decimal.RequireFromString("1.0"),
		ActuallyPaid: decimal.RequireFromString("1.0"),
		Currency:     "BTC",
	}
}

func TestHandleCompletedFulfills(t *testing.T) {
	record := testRecord("ord_1")
	records := &stubRecordStore{
		byOrderID:   map[string]*models.PaymentRecord{"ord_1": record},
		claimResult: true,
	}
	bookings := &stubBookingStore{}
	runner := &trackingTxRunner{}
	service := newTestService(t, records, bookings, runner)

	outcome, err := service.Handle(context.Background(), completedEvent("ord_1", "npay_1"))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if outcome.Result != ResultFulfilled {
		t.Fatalf("result = %s, want %s", outcome.Result, ResultFulfilled)
	}
	if len(bookings.confirmed) != 1 || bookings.confirmed[0] != record.RequestID {
		t.Fatalf("booking not confirmed")
	}
	if outcome.Payout == nil || outcome.Payout.ProcessorPaymentID != "npay_1" {
		t.Fatalf("payout intent missing or wrong: %+v", outcome.Payout)
	}
	if len(outcome.Notifications) != 1 || outcome.Notifications[0].Kind != enums.NotificationPaymentFulfilled {
		t.Fatalf("fulfilled notification missing")
	}
	if runner.calls != 1 {
		t.Fatalf("expected a single transaction, got %d", runner.calls)
	}

	// Processor id is bound on first contact.
	found := false
	for _, patch := range records.patches {
		if pid, ok := patch["processor_payment_id"]; ok && pid == "npay_1" {
			found = true
		}
	}
	if !found {
		t.Fatal("processor payment id not assigned")
	}
}

func TestHandleCompletedDuplicateIsSwallowed(t *testing.T) {
	record := testRecord("ord_2")
	record.Fulfilled = true
	pid := "npay_2"
	record.ProcessorPaymentID = &pid
	records := &stubRecordStore{
		byOrderID: map[string]*models.PaymentRecord{"ord_2": record},
	}
	bookings := &stubBookingStore{}
	service := newTestService(t, records, bookings, &trackingTxRunner{})

	outcome, err := service.Handle(context.Background(), completedEvent("ord_2", "npay_2"))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if outcome.Result != ResultAlreadyProcessed {
		t.Fatalf("result = %s, want %s", outcome.Result, ResultAlreadyProcessed)
	}
	if outcome.Payout != nil {
		t.Fatal("duplicate must not re-trigger payout")
	}
	if len(outcome.Notifications) != 0 {
		t.Fatal("duplicate must not notify")
	}
	if len(bookings.confirmed) != 0 {
		t.Fatal("duplicate must not touch booking")
	}
	if records.claims != 0 {
		t.Fatal("fulfilled record should not attempt a claim")
	}
	// Telemetry still lands on the record.
	if len(records.patches) != 1 {
		t.Fatalf("expected one telemetry patch, got %d", len(records.patches))
	}
}

func TestHandleCompletedLosesClaimRace(t *testing.T) {
	record := testRecord("ord_3")
	records := &stubRecordStore{
		byOrderID:   map[string]*models.PaymentRecord{"ord_3": record},
		claimResult: false,
	}
	bookings := &stubBookingStore{}
	service := newTestService(t, records, bookings, &trackingTxRunner{})

	outcome, err := service.Handle(context.Background(), completedEvent("ord_3", "npay_3"))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if outcome.Result != ResultAlreadyProcessed {
		t.Fatalf("result = %s, want %s", outcome.Result, ResultAlreadyProcessed)
	}
	if outcome.Payout != nil {
		t.Fatal("losing claimer must not trigger payout")
	}
	if len(bookings.confirmed) != 0 {
		t.Fatal("losing claimer must not confirm booking")
	}
}

func TestHandleInProgressUpdatesStatusOnly(t *testing.T) {
	record := testRecord("ord_4")
	records := &stubRecordStore{
		byOrderID: map[string]*models.PaymentRecord{"ord_4": record},
	}
	bookings := &stubBookingStore{}
	service := newTestService(t, records, bookings, &trackingTxRunner{})

	event := &payments.PaymentEvent{
		Processor:    enums.ProcessorCrypto,
		PaymentID:    "npay_4",
		OrderID:      "ord_4",
		RawStatus:    "confirming",
		Class:        enums.StatusClassInProgress,
		PayAmount:    decimal.RequireFromString("1.0"),
		ActuallyPaid: decimal.RequireFromString("0.2"),
		Currency:     "BTC",
	}
	outcome, err := service.Handle(context.Background(), event)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if outcome.Result != ResultStatusUpdated {
		t.Fatalf("result = %s, want %s", outcome.Result, ResultStatusUpdated)
	}
	if outcome.Payout != nil || len(outcome.Notifications) != 0 {
		t.Fatal("progress update must not produce side effects")
	}
	if len(records.patches) != 1 {
		t.Fatalf("expected one patch, got %d", len(records.patches))
	}
	if records.patches[0]["status"] != "confirming" {
		t.Fatalf("status patch = %v", records.patches[0]["status"])
	}
}

func TestHandlePartialPayment(t *testing.T) {
	record := testRecord("ord_5")
	records := &stubRecordStore{
		byOrderID: map[string]*models.PaymentRecord{"ord_5": record},
	}
	bookings := &stubBookingStore{}
	service := newTestService(t, records, bookings, &trackingTxRunner{})

	event := &payments.PaymentEvent{
		Processor:    enums.ProcessorCrypto,
		PaymentID:    "npay_5",
		OrderID:      "ord_5",
		RawStatus:    "partially_paid",
		Class:        enums.StatusClassPartiallyPaid,
		PayAmount:    decimal.RequireFromString("1.0"),
		ActuallyPaid: decimal.RequireFromString("0.4"),
		Currency:     "BTC",
	}
	outcome, err := service.Handle(context.Background(), event)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if outcome.Result != ResultPartialPayment {
		t.Fatalf("result = %s, want %s", outcome.Result, ResultPartialPayment)
	}
	if outcome.Payout != nil {
		t.Fatal("partial payment must not trigger payout")
	}
	if len(bookings.confirmed) != 0 {
		t.Fatal("partial payment must not confirm booking")
	}
	if records.claims != 0 {
		t.Fatal("partial payment must not claim fulfillment")
	}

	note, ok := records.patches[0]["note"].(string)
	if !ok || !strings.Contains(note, "0.4") || !strings.Contains(note, "1") {
		t.Fatalf("note = %q, want received/expected amounts", note)
	}
	if len(outcome.Notifications) != 1 || outcome.Notifications[0].Kind != enums.NotificationPaymentPartiallyPaid {
		t.Fatal("partial payment notification missing")
	}
}

func TestHandleFailedMarksPaymentOnly(t *testing.T) {
	record := testRecord("ord_6")
	records := &stubRecordStore{
		byOrderID: map[string]*models.PaymentRecord{"ord_6": record},
	}
	bookings := &stubBookingStore{}
	service := newTestService(t, records, bookings, &trackingTxRunner{})

	event := &payments.PaymentEvent{
		Processor: enums.ProcessorCrypto,
		PaymentID: "npay_6",
		OrderID:   "ord_6",
		RawStatus: "expired",
		Class:     enums.StatusClassFailed,
		Currency:  "BTC",
	}
	outcome, err := service.Handle(context.Background(), event)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if outcome.Result != ResultStatusUpdated {
		t.Fatalf("result = %s, want %s", outcome.Result, ResultStatusUpdated)
	}
	if len(bookings.paymentFailed) != 1 || bookings.paymentFailed[0] != record.RequestID {
		t.Fatal("booking payment status not marked failed")
	}
	if len(bookings.confirmed) != 0 {
		t.Fatal("failure must not confirm booking")
	}
	if _, ok := records.patches[0]["failed_at"]; !ok {
		t.Fatal("failed_at not stamped")
	}
	if len(outcome.Notifications) != 1 || outcome.Notifications[0].Kind != enums.NotificationPaymentFailed {
		t.Fatal("failure notification missing")
	}
}

func TestHandleFailedAfterFulfillmentIsAnomaly(t *testing.T) {
	record := testRecord("ord_7")
	record.Fulfilled = true
	records := &stubRecordStore{
		byOrderID: map[string]*models.PaymentRecord{"ord_7": record},
	}
	bookings := &stubBookingStore{}
	service := newTestService(t, records, bookings, &trackingTxRunner{})

	event := &payments.PaymentEvent{
		Processor: enums.ProcessorCrypto,
		PaymentID: "npay_7",
		OrderID:   "ord_7",
		RawStatus: "refunded",
		Class:     enums.StatusClassFailed,
		Currency:  "BTC",
	}
	outcome, err := service.Handle(context.Background(), event)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if outcome.Result != ResultAlreadyProcessed {
		t.Fatalf("result = %s, want %s", outcome.Result, ResultAlreadyProcessed)
	}
	if len(records.patches) != 0 {
		t.Fatal("anomalous failure must not mutate the record")
	}
	if len(bookings.paymentFailed) != 0 {
		t.Fatal("anomalous failure must not touch the booking")
	}
}

func TestHandleUnknownRecord(t *testing.T) {
	records := &stubRecordStore{byOrderID: map[string]*models.PaymentRecord{}}
	bookings := &stubBookingStore{}
	service := newTestService(t, records, bookings, &trackingTxRunner{})

	outcome, err := service.Handle(context.Background(), completedEvent("ord_missing", "npay_missing"))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if outcome.Result != ResultNotFound {
		t.Fatalf("result = %s, want %s", outcome.Result, ResultNotFound)
	}
	if outcome.Record != nil || outcome.Payout != nil || len(outcome.Notifications) != 0 {
		t.Fatal("unknown record must produce a bare outcome")
	}
}

func TestHandleFallsBackToProcessorPaymentID(t *testing.T) {
	record := testRecord("ord_8")
	pid := "npay_8"
	record.ProcessorPaymentID = &pid
	records := &stubRecordStore{
		byOrderID:   map[string]*models.PaymentRecord{},
		byPaymentID: map[string]*models.PaymentRecord{"npay_8": record},
		claimResult: true,
	}
	bookings := &stubBookingStore{}
	service := newTestService(t, records, bookings, &trackingTxRunner{})

	outcome, err := service.Handle(context.Background(), completedEvent("ord_renamed", "npay_8"))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if outcome.Result != ResultFulfilled {
		t.Fatalf("result = %s, want %s", outcome.Result, ResultFulfilled)
	}
}

func TestHandleProcessorPaymentIDMismatchKeepsOriginal(t *testing.T) {
	record := testRecord("ord_9")
	pid := "npay_original"
	record.ProcessorPaymentID = &pid
	records := &stubRecordStore{
		byOrderID:   map[string]*models.PaymentRecord{"ord_9": record},
		claimResult: true,
	}
	service := newTestService(t, records, &stubBookingStore{}, &trackingTxRunner{})

	outcome, err := service.Handle(context.Background(), completedEvent("ord_9", "npay_other"))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if outcome.Result != ResultFulfilled {
		t.Fatalf("result = %s, want %s", outcome.Result, ResultFulfilled)
	}
	for _, patch := range records.patches {
		if _, ok := patch["processor_payment_id"]; ok {
			t.Fatal("mismatched id must not overwrite the original binding")
		}
	}
	if *record.ProcessorPaymentID != "npay_original" {
		t.Fatal("original binding lost")
	}
}

func TestHandleBookingConfirmFailureRollsBack(t *testing.T) {
	record := testRecord("ord_10")
	records := &stubRecordStore{
		byOrderID:   map[string]*models.PaymentRecord{"ord_10": record},
		claimResult: true,
	}
	bookings := &stubBookingStore{confirmErr: errors.New("booking table unavailable")}
	runner := &trackingTxRunner{}
	service := newTestService(t, records, bookings, runner)

	_, err := service.Handle(context.Background(), completedEvent("ord_10", "npay_10"))
	if err == nil {
		t.Fatal("expected error to propagate for redelivery")
	}
	if runner.rollbacks != 1 {
		t.Fatalf("expected rollback, got %d", runner.rollbacks)
	}
}

func TestHandleNilEvent(t *testing.T) {
	service := newTestService(t, &stubRecordStore{}, &stubBookingStore{}, &trackingTxRunner{})

	if _, err := service.Handle(context.Background(), nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewServiceValidation(t *testing.T) {
	logg := testLogger()
	cases := []ServiceParams{
		{Bookings: &stubBookingStore{}, TransactionRunner: &trackingTxRunner{}, Logger: logg},
		{Records: &stubRecordStore{}, TransactionRunner: &trackingTxRunner{}, Logger: logg},
		{Records: &stubRecordStore{}, Bookings: &stubBookingStore{}, Logger: logg},
		{Records: &stubRecordStore{}, Bookings: &stubBookingStore{}, TransactionRunner: &trackingTxRunner{}},
	}
	for i, params := range cases {
		if _, err := NewService(params); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}
