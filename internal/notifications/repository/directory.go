package repository

import (
	"context"
	"errors"
	"fmt"

	"campbook/pkg/db/postgres"

	"github.com/jackc/pgx/v5"
)

var ErrRecipientNotFound = errors.New("notification recipient not found")

// Recipient is the contact data a notification is addressed to.
type Recipient struct {
	GuestID int64
	Email   string
	Name    string
	Phone   string
}

type Directory interface {
	Guest(ctx context.Context, guestID int64) (Recipient, error)
	GuestForBooking(ctx context.Context, bookingID int64) (Recipient, error)
}

type pgDirectory struct {
	db postgres.DBTX
}

func NewPostgresDirectory(db postgres.DBTX) Directory {
	return &pgDirectory{db: db}
}

const recipientSelect = `
	SELECT g.id, u.email, u.first_name || ' ' || u.last_name, g.phone
	FROM guests g
	JOIN users u ON u.id = g.user_id`

func (d *pgDirectory) Guest(ctx context.Context, guestID int64) (Recipient, error) {
	return d.scan(d.db.QueryRow(ctx, recipientSelect+` WHERE g.id = $1`, guestID))
}

func (d *pgDirectory) GuestForBooking(ctx context.Context, bookingID int64) (Recipient, error) {
	return d.scan(d.db.QueryRow(ctx, recipientSelect+` JOIN bookings b ON b.guest_id = g.id WHERE b.id = $1`, bookingID))
}

func (d *pgDirectory) scan(row pgx.Row) (Recipient, error) {
	var r Recipient
	if err := row.Scan(&r.GuestID, &r.Email, &r.Name, &r.Phone); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Recipient{}, ErrRecipientNotFound
		}
		return Recipient{}, fmt.Errorf("load recipient: %w", postgres.MapError(err))
	}
	return r, nil
}
