package enums

// StatusClass buckets processor-reported payment statuses for the
// fulfillment state machine. Raw status strings stay on the record
// untouched; only the class drives transitions.
type StatusClass string

const (
	StatusClassInProgress    StatusClass = "in_progress"
	StatusClassCompleted     StatusClass = "completed"
	StatusClassPartiallyPaid StatusClass = "partially_paid"
	StatusClassFailed        StatusClass = "failed"
)

// String implements fmt.Stringer.
func (s StatusClass) String() string {
	return string(s)
}

// Terminal reports whether automatic processing stops at this class.
func (s StatusClass) Terminal() bool {
	switch s {
	case StatusClassCompleted, StatusClassPartiallyPaid, StatusClassFailed:
		return true
	default:
		return false
	}
}
