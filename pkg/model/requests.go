package model

// ReservationRequest is the inbound shape of a reservation. Dates use
// DateLayout and the period is half-open.
type ReservationRequest struct {
	GuestID             int64  `json:"guest_id" validate:"required,gt=0"`
	CampsiteID          int64  `json:"campsite_id" validate:"required,gt=0"`
	AccommodationTypeID int64  `json:"accommodation_type_id" validate:"required,gt=0"`
	SpotID              int64  `json:"spot_id" validate:"required,gt=0"`
	StartDate           string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate             string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Adults              int    `json:"adults" validate:"required,min=1,max=20"`
	Children            int    `json:"children" validate:"min=0,max=20"`
	SpecialRequests     string `json:"special_requests,omitempty" validate:"max=1000"`
}

type CancellationRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type PaymentRequest struct {
	BookingID int64  `json:"booking_id" validate:"required,gt=0"`
	Amount    string `json:"amount" validate:"required,money_amount"`
	Currency  string `json:"currency" validate:"required,iso4217"`
	Method    string `json:"method" validate:"required,oneof=card cash bank_transfer paypal"`
}

type PaymentCompletion struct {
	TransactionRef string `json:"transaction_ref" validate:"required,max=128"`
}

type PaymentFailure struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type GuestRegistration struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	FirstName string `json:"first_name" validate:"required,min=1,max=100"`
	LastName  string `json:"last_name" validate:"required,min=1,max=100"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,e164"`
	Country   string `json:"country,omitempty" validate:"omitempty,iso3166_1_alpha2"`
}
