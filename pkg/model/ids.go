package model

import "strconv"

type (
	BookingID           int64
	UserID              int64
	GuestID             int64
	AdminID             int64
	StaffID             int64
	CampsiteID          int64
	AccommodationTypeID int64
	AccommodationSpotID int64
	PaymentID           int64
)

// parseID rejects negative values always and zero unless the entity has not
// been persisted yet.
func parseID[T ~int64](field string, v int64, allowZero bool) (T, error) {
	if v < 0 {
		return 0, newValidationError(KindInvalidIdentifier, field, v, "must not be negative")
	}
	if v == 0 && !allowZero {
		return 0, newValidationError(KindInvalidIdentifier, field, v, "must be positive")
	}
	return T(v), nil
}

func NewBookingID(v int64) (BookingID, error) { return parseID[BookingID]("booking_id", v, false) }
func NewUserID(v int64) (UserID, error)       { return parseID[UserID]("user_id", v, false) }
func NewGuestID(v int64) (GuestID, error)     { return parseID[GuestID]("guest_id", v, false) }
func NewAdminID(v int64) (AdminID, error)     { return parseID[AdminID]("admin_id", v, false) }
func NewStaffID(v int64) (StaffID, error)     { return parseID[StaffID]("staff_id", v, false) }
func NewCampsiteID(v int64) (CampsiteID, error) {
	return parseID[CampsiteID]("campsite_id", v, false)
}
func NewAccommodationTypeID(v int64) (AccommodationTypeID, error) {
	return parseID[AccommodationTypeID]("accommodation_type_id", v, false)
}
func NewAccommodationSpotID(v int64) (AccommodationSpotID, error) {
	return parseID[AccommodationSpotID]("accommodation_spot_id", v, false)
}
func NewPaymentID(v int64) (PaymentID, error) { return parseID[PaymentID]("payment_id", v, false) }

// Unsaved variants accept zero for entities that have no identity yet.

func UnsavedBookingID(v int64) (BookingID, error) { return parseID[BookingID]("booking_id", v, true) }
func UnsavedPaymentID(v int64) (PaymentID, error) { return parseID[PaymentID]("payment_id", v, true) }
func UnsavedUserID(v int64) (UserID, error)       { return parseID[UserID]("user_id", v, true) }

func (id BookingID) Int64() int64  { return int64(id) }
func (id BookingID) IsZero() bool  { return id == 0 }
func (id BookingID) String() string { return strconv.FormatInt(int64(id), 10) }

func (id UserID) Int64() int64  { return int64(id) }
func (id UserID) IsZero() bool  { return id == 0 }
func (id UserID) String() string { return strconv.FormatInt(int64(id), 10) }

func (id GuestID) Int64() int64  { return int64(id) }
func (id GuestID) IsZero() bool  { return id == 0 }
func (id GuestID) String() string { return strconv.FormatInt(int64(id), 10) }

func (id AdminID) Int64() int64  { return int64(id) }
func (id AdminID) String() string { return strconv.FormatInt(int64(id), 10) }

func (id StaffID) Int64() int64  { return int64(id) }
func (id StaffID) String() string { return strconv.FormatInt(int64(id), 10) }

func (id CampsiteID) Int64() int64  { return int64(id) }
func (id CampsiteID) IsZero() bool  { return id == 0 }
func (id CampsiteID) String() string { return strconv.FormatInt(int64(id), 10) }

func (id AccommodationTypeID) Int64() int64  { return int64(id) }
func (id AccommodationTypeID) IsZero() bool  { return id == 0 }
func (id AccommodationTypeID) String() string { return strconv.FormatInt(int64(id), 10) }

func (id AccommodationSpotID) Int64() int64  { return int64(id) }
func (id AccommodationSpotID) IsZero() bool  { return id == 0 }
func (id AccommodationSpotID) String() string { return strconv.FormatInt(int64(id), 10) }

func (id PaymentID) Int64() int64  { return int64(id) }
func (id PaymentID) IsZero() bool  { return id == 0 }
func (id PaymentID) String() string { return strconv.FormatInt(int64(id), 10) }
