package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrSpotUnavailable means an active booking already holds part of the
	// requested period on the spot.
	ErrSpotUnavailable = errors.New("spot unavailable for requested period")

	ErrSpotNotFound = errors.New("accommodation spot not found")

	ErrSpotInactive = errors.New("accommodation spot is not bookable")

	ErrSpotMismatch = errors.New("accommodation spot does not belong to the requested campsite or type")

	ErrCapacityExceeded = errors.New("guest count exceeds accommodation capacity")
)
