package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tundeajala/bookhaven-payments/pkg/enums"
)

// PaymentRecord is one row per payment attempt, keyed by the
// caller-supplied order reference and, once assigned, the processor's
// payment id. Rows are never deleted; they are the reconciliation audit
// trail.
type PaymentRecord struct {
	ID                 uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID            string            `gorm:"column:order_id;not null;unique"`
	ProcessorPaymentID *string           `gorm:"column:processor_payment_id;unique"`
	Processor          enums.Processor   `gorm:"column:processor;not null"`
	RequestType        enums.RequestType `gorm:"column:request_type;not null"`
	RequestID          uuid.UUID         `gorm:"column:request_id;type:uuid;not null"`

	// Status keeps the processor's raw vocabulary; the state machine only
	// looks at its classification.
	Status    string `gorm:"column:status;not null;default:'created'"`
	Fulfilled bool   `gorm:"column:fulfilled;not null;default:false"`

	AmountExpected decimal.Decimal `gorm:"column:amount_expected;type:numeric(20,8);not null"`
	AmountPaid     decimal.Decimal `gorm:"column:amount_paid;type:numeric(20,8)"`
	Currency       string          `gorm:"column:currency;not null"`
	Note           *string         `gorm:"column:note"`

	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	FinishedAt *time.Time `gorm:"column:finished_at"`
	FailedAt   *time.Time `gorm:"column:failed_at"`
}

// TableName overrides the default pluralization.
func (PaymentRecord) TableName() string {
	return "payment_records"
}
