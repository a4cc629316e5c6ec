package model

import (
	"time"
)

type Booking struct {
	ID                  BookingID           `json:"id"`
	GuestID             GuestID             `json:"guest_id"`
	CampsiteID          CampsiteID          `json:"campsite_id"`
	AccommodationTypeID AccommodationTypeID `json:"accommodation_type_id"`
	SpotID              AccommodationSpotID `json:"spot_id"`
	Period              DateRange           `json:"period"`
	Status              BookingStatus       `json:"status"`
	BasePrice           Money               `json:"base_price"`
	TotalPrice          Money               `json:"total_price"`
	NumberOfGuests      int                 `json:"number_of_guests"`
	NumberOfAdults      int                 `json:"number_of_adults"`
	NumberOfChildren    int                 `json:"number_of_children"`
	SpecialRequests     string              `json:"special_requests,omitempty"`
	CancellationReason  string              `json:"cancellation_reason,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// BookingDraft holds everything needed to open a new booking on a spot.
type BookingDraft struct {
	ID                  BookingID
	GuestID             GuestID
	CampsiteID          CampsiteID
	AccommodationTypeID AccommodationTypeID
	SpotID              AccommodationSpotID
	Period              DateRange
	Pricing             Pricing
	Adults              int
	Children            int
	SpecialRequests     string
}

// NewBooking opens a booking in pending status and returns the event that
// records its creation.
func NewBooking(d BookingDraft, now time.Time) (*Booking, BookingCreated, error) {
	switch {
	case d.ID.IsZero():
		return nil, BookingCreated{}, newValidationError(KindInvalidIdentifier, "booking_id", d.ID, "must be assigned before creation")
	case d.GuestID.IsZero():
		return nil, BookingCreated{}, newValidationError(KindInvalidIdentifier, "guest_id", d.GuestID, "is required")
	case d.CampsiteID.IsZero():
		return nil, BookingCreated{}, newValidationError(KindInvalidIdentifier, "campsite_id", d.CampsiteID, "is required")
	case d.SpotID.IsZero():
		return nil, BookingCreated{}, newValidationError(KindInvalidIdentifier, "spot_id", d.SpotID, "is required")
	case d.Adults < 1:
		return nil, BookingCreated{}, newValidationError(KindInvalidField, "number_of_adults", d.Adults, "at least one adult is required")
	case d.Children < 0:
		return nil, BookingCreated{}, newValidationError(KindInvalidField, "number_of_children", d.Children, "must not be negative")
	case d.Period.Nights() < 1:
		return nil, BookingCreated{}, newValidationError(KindInvalidDateRange, "period", d.Period.String(), "must span at least one night")
	}

	now = now.UTC()
	b := &Booking{
		ID:                  d.ID,
		GuestID:             d.GuestID,
		CampsiteID:          d.CampsiteID,
		AccommodationTypeID: d.AccommodationTypeID,
		SpotID:              d.SpotID,
		Period:              d.Period,
		Status:              BookingStatusPending,
		BasePrice:           d.Pricing.Base,
		TotalPrice:          d.Pricing.Total,
		NumberOfGuests:      d.Adults + d.Children,
		NumberOfAdults:      d.Adults,
		NumberOfChildren:    d.Children,
		SpecialRequests:     d.SpecialRequests,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	evt := BookingCreated{
		EventMeta:           newEventMeta(EventBookingCreated, now),
		BookingID:           b.ID.Int64(),
		GuestID:             b.GuestID.Int64(),
		CampsiteID:          b.CampsiteID.Int64(),
		AccommodationTypeID: b.AccommodationTypeID.Int64(),
		SpotID:              b.SpotID.Int64(),
		StartDate:           b.Period.Start().Format(DateLayout),
		EndDate:             b.Period.End().Format(DateLayout),
		Nights:              b.Period.Nights(),
		Guests:              b.NumberOfGuests,
		TotalAmount:         b.TotalPrice.Decimal(),
		Currency:            b.TotalPrice.Currency(),
	}
	return b, evt, nil
}

func (b *Booking) transition(target BookingStatus, now time.Time) error {
	if !b.Status.CanTransitionTo(target) {
		return &TransitionError{Entity: "booking", From: b.Status.String(), To: target.String()}
	}
	b.Status = target
	b.UpdatedAt = now.UTC()
	return nil
}

func (b *Booking) Confirm(now time.Time) (BookingConfirmed, error) {
	if err := b.transition(BookingStatusConfirmed, now); err != nil {
		return BookingConfirmed{}, err
	}
	return BookingConfirmed{
		EventMeta:  newEventMeta(EventBookingConfirmed, now),
		BookingID:  b.ID.Int64(),
		GuestID:    b.GuestID.Int64(),
		CampsiteID: b.CampsiteID.Int64(),
		StartDate:  b.Period.Start().Format(DateLayout),
		EndDate:    b.Period.End().Format(DateLayout),
	}, nil
}

func (b *Booking) Cancel(reason string, now time.Time) (BookingCancelled, error) {
	previous := b.Status
	if err := b.transition(BookingStatusCancelled, now); err != nil {
		return BookingCancelled{}, err
	}
	b.CancellationReason = reason
	return BookingCancelled{
		EventMeta:      newEventMeta(EventBookingCancelled, now),
		BookingID:      b.ID.Int64(),
		GuestID:        b.GuestID.Int64(),
		SpotID:         b.SpotID.Int64(),
		PreviousStatus: previous.String(),
		Reason:         reason,
	}, nil
}

func (b *Booking) Complete(now time.Time) (BookingCompleted, error) {
	if err := b.transition(BookingStatusCompleted, now); err != nil {
		return BookingCompleted{}, err
	}
	return BookingCompleted{
		EventMeta: newEventMeta(EventBookingCompleted, now),
		BookingID: b.ID.Int64(),
		GuestID:   b.GuestID.Int64(),
	}, nil
}
