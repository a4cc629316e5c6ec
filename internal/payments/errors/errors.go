package errors

import "errors"

var (
	ErrNotFound = errors.New("payment not found")

	ErrBookingNotFound = errors.New("booking not found")

	// ErrBookingNotPayable is returned for bookings that no longer hold a spot.
	ErrBookingNotPayable = errors.New("booking is not in a payable status")

	ErrCurrencyMismatch = errors.New("payment currency differs from booking currency")
)
