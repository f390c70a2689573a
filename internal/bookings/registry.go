package bookings

import (
	"github.com/tundeajala/bookhaven-payments/pkg/enums"
	pkgerrors "github.com/tundeajala/bookhaven-payments/pkg/errors"
)

// target describes how one vertical's table receives payment outcomes.
// Every vertical carries the same three columns, so the cascade is a
// table lookup plus a generic update rather than five hand-written
// repositories.
type target struct {
	Table          string
	ConfirmedValue string
}

var targets = map[enums.RequestType]target{
	enums.RequestTypeLogistics:        {Table: "logistics_requests", ConfirmedValue: "confirmed"},
	enums.RequestTypeSecurity:         {Table: "security_requests", ConfirmedValue: "confirmed"},
	enums.RequestTypeHotelBooking:     {Table: "hotel_bookings", ConfirmedValue: "confirmed"},
	enums.RequestTypeApartmentBooking: {Table: "apartment_bookings", ConfirmedValue: "confirmed"},
	enums.RequestTypeEventBooking:     {Table: "event_bookings", ConfirmedValue: "confirmed"},
}

func targetFor(requestType enums.RequestType) (target, error) {
	tgt, ok := targets[requestType]
	if !ok {
		return target{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown request type").
			WithDetails(map[string]any{"request_type": requestType.String()})
	}
	return tgt, nil
}
