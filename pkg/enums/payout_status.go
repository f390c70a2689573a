package enums

// PayoutStatus records the outcome of a split initiation attempt. Failed
// rows are picked up by a separate retry job.
type PayoutStatus string

const (
	PayoutStatusInitiated PayoutStatus = "initiated"
	PayoutStatusFailed    PayoutStatus = "failed"
)

// String implements fmt.Stringer.
func (p PayoutStatus) String() string {
	return string(p)
}
