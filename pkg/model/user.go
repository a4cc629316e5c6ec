package model

import (
	"strings"
	"time"
)

type Role string

const (
	RoleGuest Role = "guest"
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// User is stored once per person; role-specific data hangs off the role
// discriminator. Only guests carry a profile.
type User struct {
	ID        UserID        `json:"id"`
	Email     Email         `json:"email"`
	FirstName string        `json:"first_name"`
	LastName  string        `json:"last_name"`
	Role      Role          `json:"role"`
	Guest     *GuestProfile `json:"guest,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

type GuestProfile struct {
	GuestID GuestID `json:"guest_id"`
	Phone   string  `json:"phone,omitempty"`
	Country string  `json:"country,omitempty"`
}

type GuestDraft struct {
	UserID    UserID
	GuestID   GuestID
	Email     Email
	FirstName string
	LastName  string
	Phone     string
	Country   string
}

func NewGuest(d GuestDraft, now time.Time) (*User, UserCreated, error) {
	if d.UserID.IsZero() {
		return nil, UserCreated{}, newValidationError(KindInvalidIdentifier, "user_id", d.UserID, "must be assigned before creation")
	}
	if d.GuestID.IsZero() {
		return nil, UserCreated{}, newValidationError(KindInvalidIdentifier, "guest_id", d.GuestID, "must be assigned before creation")
	}
	if d.Email == "" {
		return nil, UserCreated{}, newValidationError(KindInvalidEmail, "email", d.Email, "is required")
	}
	first, last := strings.TrimSpace(d.FirstName), strings.TrimSpace(d.LastName)
	if first == "" {
		return nil, UserCreated{}, newValidationError(KindInvalidField, "first_name", d.FirstName, "is required")
	}
	if last == "" {
		return nil, UserCreated{}, newValidationError(KindInvalidField, "last_name", d.LastName, "is required")
	}

	now = now.UTC()
	u := &User{
		ID:        d.UserID,
		Email:     d.Email,
		FirstName: first,
		LastName:  last,
		Role:      RoleGuest,
		Guest: &GuestProfile{
			GuestID: d.GuestID,
			Phone:   d.Phone,
			Country: d.Country,
		},
		CreatedAt: now,
	}

	return u, UserCreated{
		EventMeta: newEventMeta(EventUserCreated, now),
		UserID:    u.ID.Int64(),
		GuestID:   d.GuestID.Int64(),
		Email:     u.Email.String(),
		Role:      string(u.Role),
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}, nil
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
