package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tundeajala/bookhaven-payments/pkg/enums"
)

// PayoutSplit records the outcome of a vendor split initiation against
// the external payout rail. One row per fulfillment; failed rows feed
// the out-of-band retry job.
type PayoutSplit struct {
	ID                 uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PaymentRecordID    uuid.UUID          `gorm:"column:payment_record_id;type:uuid;not null;index"`
	ProcessorPaymentID string             `gorm:"column:processor_payment_id;not null"`
	SplitID            *string            `gorm:"column:split_id"`
	Status             enums.PayoutStatus `gorm:"column:status;not null"`
	LastError          *string            `gorm:"column:last_error"`
	CreatedAt          time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (PayoutSplit) TableName() string {
	return "payout_splits"
}
