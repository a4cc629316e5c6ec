package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventBookingCompleted = "booking.completed"
	EventPaymentInitiated = "payment.initiated"
	EventPaymentCompleted = "payment.completed"
	EventPaymentFailed    = "payment.failed"
	EventPaymentRefunded  = "payment.refunded"
	EventUserCreated      = "user.created"
)

// Event is an immutable fact raised by an aggregate. Payloads hold scalars
// and identifiers only.
type Event interface {
	EventID() string
	EventType() string
	AggregateID() int64
	OccurredOn() time.Time
}

type EventMeta struct {
	ID       string    `json:"eventId"`
	Type     string    `json:"eventType"`
	Occurred time.Time `json:"occurredOn"`
}

func newEventMeta(eventType string, now time.Time) EventMeta {
	return EventMeta{
		ID:       uuid.NewString(),
		Type:     eventType,
		Occurred: now.UTC(),
	}
}

func (m EventMeta) EventID() string       { return m.ID }
func (m EventMeta) EventType() string     { return m.Type }
func (m EventMeta) OccurredOn() time.Time { return m.Occurred }

type BookingCreated struct {
	EventMeta
	BookingID           int64  `json:"bookingId"`
	GuestID             int64  `json:"guestId"`
	CampsiteID          int64  `json:"campsiteId"`
	AccommodationTypeID int64  `json:"accommodationTypeId"`
	SpotID              int64  `json:"spotId"`
	StartDate           string `json:"startDate"`
	EndDate             string `json:"endDate"`
	Nights              int    `json:"nights"`
	Guests              int    `json:"guests"`
	TotalAmount         string `json:"totalAmount"`
	Currency            string `json:"currency"`
}

func (e BookingCreated) AggregateID() int64 { return e.BookingID }

type BookingConfirmed struct {
	EventMeta
	BookingID  int64  `json:"bookingId"`
	GuestID    int64  `json:"guestId"`
	CampsiteID int64  `json:"campsiteId"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
}

func (e BookingConfirmed) AggregateID() int64 { return e.BookingID }

type BookingCancelled struct {
	EventMeta
	BookingID      int64  `json:"bookingId"`
	GuestID        int64  `json:"guestId"`
	SpotID         int64  `json:"spotId"`
	PreviousStatus string `json:"previousStatus"`
	Reason         string `json:"reason"`
}

func (e BookingCancelled) AggregateID() int64 { return e.BookingID }

type BookingCompleted struct {
	EventMeta
	BookingID int64 `json:"bookingId"`
	GuestID   int64 `json:"guestId"`
}

func (e BookingCompleted) AggregateID() int64 { return e.BookingID }

type PaymentInitiated struct {
	EventMeta
	PaymentID int64  `json:"paymentId"`
	BookingID int64  `json:"bookingId"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Method    string `json:"method"`
}

func (e PaymentInitiated) AggregateID() int64 { return e.PaymentID }

type PaymentCompleted struct {
	EventMeta
	PaymentID      int64  `json:"paymentId"`
	BookingID      int64  `json:"bookingId"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	TransactionRef string `json:"transactionRef"`
}

func (e PaymentCompleted) AggregateID() int64 { return e.PaymentID }

type PaymentFailed struct {
	EventMeta
	PaymentID int64  `json:"paymentId"`
	BookingID int64  `json:"bookingId"`
	Reason    string `json:"reason"`
}

func (e PaymentFailed) AggregateID() int64 { return e.PaymentID }

type PaymentRefunded struct {
	EventMeta
	PaymentID int64  `json:"paymentId"`
	BookingID int64  `json:"bookingId"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
}

func (e PaymentRefunded) AggregateID() int64 { return e.PaymentID }

type UserCreated struct {
	EventMeta
	UserID    int64  `json:"userId"`
	GuestID   int64  `json:"guestId,omitempty"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (e UserCreated) AggregateID() int64 { return e.UserID }
