package enums

// NotificationKind names the alert types the pipeline emits.
type NotificationKind string

const (
	NotificationPaymentFulfilled     NotificationKind = "payment.fulfilled"
	NotificationPaymentPartiallyPaid NotificationKind = "payment.partially_paid"
	NotificationPaymentFailed        NotificationKind = "payment.failed"
	NotificationPayoutSplitFailed    NotificationKind = "payout.split_failed"
)

// String implements fmt.Stringer.
func (n NotificationKind) String() string {
	return string(n)
}
