package enums

import "fmt"

// Processor identifies which payment rail reported an event.
type Processor string

const (
	ProcessorCard   Processor = "card"
	ProcessorCrypto Processor = "crypto"
)

var validProcessors = []Processor{
	ProcessorCard,
	ProcessorCrypto,
}

// String implements fmt.Stringer.
func (p Processor) String() string {
	return string(p)
}

// IsValid reports whether the value is a known Processor.
func (p Processor) IsValid() bool {
	for _, candidate := range validProcessors {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProcessor converts raw input into a Processor.
func ParseProcessor(value string) (Processor, error) {
	for _, candidate := range validProcessors {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid processor %q", value)
}
