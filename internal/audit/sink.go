package audit

import (
	"context"
	"time"

	bq "github.com/tundeajala/bookhaven-payments/pkg/bigquery"
	pkgerrors "github.com/tundeajala/bookhaven-payments/pkg/errors"
)

// ReconEvent is one row in the reconciliation events table. Every
// handled webhook lands here, which is what makes month-end
// reconciliation against processor statements possible.
type ReconEvent struct {
	OrderID            string    `bigquery:"order_id"`
	ProcessorPaymentID string    `bigquery:"processor_payment_id"`
	Processor          string    `bigquery:"processor"`
	RawStatus          string    `bigquery:"raw_status"`
	StatusClass        string    `bigquery:"status_class"`
	Result             string    `bigquery:"result"`
	AmountExpected     string    `bigquery:"amount_expected"`
	AmountPaid         string    `bigquery:"amount_paid"`
	Currency           string    `bigquery:"currency"`
	OccurredAt         time.Time `bigquery:"occurred_at"`
}

// Sink writes reconciliation events somewhere durable.
type Sink interface {
	Record(ctx context.Context, event ReconEvent) error
}

type bigQueryClient interface {
	InsertRows(ctx context.Context, table string, rows []any) error
	ReconEventsTable() string
}

// BigQuerySink streams recon events into the analytics dataset.
type BigQuerySink struct {
	client bigQueryClient
}

var _ bigQueryClient = (*bq.Client)(nil)

func NewBigQuerySink(client bigQueryClient) (*BigQuerySink, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "bigquery client required")
	}
	return &BigQuerySink{client: client}, nil
}

func (s *BigQuerySink) Record(ctx context.Context, event ReconEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := s.client.InsertRows(ctx, s.client.ReconEventsTable(), []any{&event}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert recon event")
	}
	return nil
}
