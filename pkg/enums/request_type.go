package enums

import "fmt"

// RequestType tags which vertical a payment record pays for. The tag
// selects the domain table the fulfillment cascade writes to.
type RequestType string

const (
	RequestTypeLogistics        RequestType = "logistics"
	RequestTypeSecurity         RequestType = "security"
	RequestTypeHotelBooking     RequestType = "hotel_booking"
	RequestTypeApartmentBooking RequestType = "apartment_booking"
	RequestTypeEventBooking     RequestType = "event_booking"
)

var validRequestTypes = []RequestType{
	RequestTypeLogistics,
	RequestTypeSecurity,
	RequestTypeHotelBooking,
	RequestTypeApartmentBooking,
	RequestTypeEventBooking,
}

// String implements fmt.Stringer.
func (r RequestType) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RequestType.
func (r RequestType) IsValid() bool {
	for _, candidate := range validRequestTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRequestType converts raw input into a RequestType.
func ParseRequestType(value string) (RequestType, error) {
	for _, candidate := range validRequestTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid request type %q", value)
}
