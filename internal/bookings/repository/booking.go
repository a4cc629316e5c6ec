package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "campbook/internal/bookings/errors"
	"campbook/pkg/db/postgres"
	"campbook/pkg/model"

	"github.com/jackc/pgx/v5"
)

const bookingColumns = `id, guest_id, campsite_id, accommodation_type_id, spot_id,
	start_date, end_date, status, base_price_minor, total_price_minor, currency,
	number_of_adults, number_of_children, special_requests, cancellation_reason,
	created_at, updated_at`

// BookingRepository runs against whatever DBTX it is handed: the open
// transaction of a unit of work, or the pool for plain reads.
type BookingRepository interface {
	NextID(ctx context.Context, db postgres.DBTX) (model.BookingID, error)
	Insert(ctx context.Context, db postgres.DBTX, booking *model.Booking) error
	FindByID(ctx context.Context, db postgres.DBTX, id model.BookingID) (*model.Booking, error)
	FindByIDForUpdate(ctx context.Context, db postgres.DBTX, id model.BookingID) (*model.Booking, error)
	UpdateStatus(ctx context.Context, db postgres.DBTX, booking *model.Booking) error
	ExistsOverlapping(ctx context.Context, db postgres.DBTX, spotID model.AccommodationSpotID, period model.DateRange) (bool, error)
	FindSpot(ctx context.Context, db postgres.DBTX, spotID model.AccommodationSpotID) (*model.AccommodationSpot, error)
}

type pgBookingRepository struct{}

func NewPostgresBookingRepository() BookingRepository {
	return &pgBookingRepository{}
}

func (r *pgBookingRepository) NextID(ctx context.Context, db postgres.DBTX) (model.BookingID, error) {
	var id int64
	if err := db.QueryRow(ctx, `SELECT nextval('bookings_id_seq')`).Scan(&id); err != nil {
		return 0, fmt.Errorf("allocate booking id: %w", postgres.MapError(err))
	}
	return model.NewBookingID(id)
}

func (r *pgBookingRepository) Insert(ctx context.Context, db postgres.DBTX, b *model.Booking) error {
	_, err := db.Exec(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		b.ID.Int64(), b.GuestID.Int64(), b.CampsiteID.Int64(), b.AccommodationTypeID.Int64(), b.SpotID.Int64(),
		b.Period.Start(), b.Period.End(), b.Status.String(),
		b.BasePrice.MinorUnits(), b.TotalPrice.MinorUnits(), b.TotalPrice.Currency(),
		b.NumberOfAdults, b.NumberOfChildren, b.SpecialRequests, b.CancellationReason,
		b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		if postgres.IsExclusionViolation(err) {
			return fmt.Errorf("%w: %w", bookingserrors.ErrSpotUnavailable, err)
		}
		return fmt.Errorf("insert booking %s: %w", b.ID, postgres.MapError(err))
	}
	return nil
}

func (r *pgBookingRepository) FindByID(ctx context.Context, db postgres.DBTX, id model.BookingID) (*model.Booking, error) {
	row := db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id.Int64())
	return scanBooking(row, id)
}

// FindByIDForUpdate locks the booking row until the surrounding transaction
// ends.
func (r *pgBookingRepository) FindByIDForUpdate(ctx context.Context, db postgres.DBTX, id model.BookingID) (*model.Booking, error) {
	row := db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id.Int64())
	return scanBooking(row, id)
}

func (r *pgBookingRepository) UpdateStatus(ctx context.Context, db postgres.DBTX, b *model.Booking) error {
	tag, err := db.Exec(ctx, `
		UPDATE bookings
		SET status = $2, cancellation_reason = $3, updated_at = $4
		WHERE id = $1`,
		b.ID.Int64(), b.Status.String(), b.CancellationReason, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update booking %s: %w", b.ID, postgres.MapError(err))
	}
	if tag.RowsAffected() == 0 {
		return bookingserrors.ErrNotFound
	}
	return nil
}

// ExistsOverlapping reports whether an active booking on the spot intersects
// the half-open period. Under serializable isolation the predicate read is
// tracked, so a concurrent insert into the same range aborts one side.
func (r *pgBookingRepository) ExistsOverlapping(ctx context.Context, db postgres.DBTX, spotID model.AccommodationSpotID, period model.DateRange) (bool, error) {
	active := model.ActiveBookingStatuses()
	statuses := make([]string, len(active))
	for i, s := range active {
		statuses[i] = s.String()
	}

	var exists bool
	err := db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE spot_id = $1
			  AND status = ANY($2)
			  AND start_date < $4
			  AND end_date > $3
		)`,
		spotID.Int64(), statuses, period.Start(), period.End(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check availability of spot %s: %w", spotID, postgres.MapError(err))
	}
	return exists, nil
}

func (r *pgBookingRepository) FindSpot(ctx context.Context, db postgres.DBTX, spotID model.AccommodationSpotID) (*model.AccommodationSpot, error) {
	var (
		id, campsiteID, typeID, typeCampsiteID int64
		label, typeName, currency              string
		active                                 bool
		priceMinor, feeMinor                   int64
		capacity                               int
	)
	err := db.QueryRow(ctx, `
		SELECT s.id, s.campsite_id, s.label, s.active,
		       t.id, t.campsite_id, t.name, t.price_per_night_minor, t.cleaning_fee_minor, t.currency, t.capacity
		FROM accommodation_spots s
		JOIN accommodation_types t ON t.id = s.accommodation_type_id
		WHERE s.id = $1`,
		spotID.Int64(),
	).Scan(&id, &campsiteID, &label, &active, &typeID, &typeCampsiteID, &typeName, &priceMinor, &feeMinor, &currency, &capacity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, bookingserrors.ErrSpotNotFound
		}
		return nil, fmt.Errorf("load spot %s: %w", spotID, postgres.MapError(err))
	}

	price, err := model.NewMoney(priceMinor, currency)
	if err != nil {
		return nil, err
	}
	fee, err := model.NewMoney(feeMinor, currency)
	if err != nil {
		return nil, err
	}

	return &model.AccommodationSpot{
		ID:         model.AccommodationSpotID(id),
		CampsiteID: model.CampsiteID(campsiteID),
		Label:      label,
		Active:     active,
		Type: model.AccommodationType{
			ID:            model.AccommodationTypeID(typeID),
			CampsiteID:    model.CampsiteID(typeCampsiteID),
			Name:          typeName,
			PricePerNight: price,
			CleaningFee:   fee,
			Capacity:      capacity,
		},
	}, nil
}

func scanBooking(row pgx.Row, id model.BookingID) (*model.Booking, error) {
	var (
		bookingID, guestID, campsiteID, typeID, spotID int64
		start, end, createdAt, updatedAt               time.Time
		status, currency, requests, reason             string
		baseMinor, totalMinor                          int64
		adults, children                               int
	)
	err := row.Scan(
		&bookingID, &guestID, &campsiteID, &typeID, &spotID,
		&start, &end, &status, &baseMinor, &totalMinor, &currency,
		&adults, &children, &requests, &reason,
		&createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("load booking %s: %w", id, postgres.MapError(err))
	}

	period, err := model.NewDateRange(start, end)
	if err != nil {
		return nil, err
	}
	st, err := model.ParseBookingStatus(status)
	if err != nil {
		return nil, err
	}
	base, err := model.NewMoney(baseMinor, currency)
	if err != nil {
		return nil, err
	}
	total, err := model.NewMoney(totalMinor, currency)
	if err != nil {
		return nil, err
	}

	return &model.Booking{
		ID:                  model.BookingID(bookingID),
		GuestID:             model.GuestID(guestID),
		CampsiteID:          model.CampsiteID(campsiteID),
		AccommodationTypeID: model.AccommodationTypeID(typeID),
		SpotID:              model.AccommodationSpotID(spotID),
		Period:              period,
		Status:              st,
		BasePrice:           base,
		TotalPrice:          total,
		NumberOfGuests:      adults + children,
		NumberOfAdults:      adults,
		NumberOfChildren:    children,
		SpecialRequests:     requests,
		CancellationReason:  reason,
		CreatedAt:           createdAt.UTC(),
		UpdatedAt:           updatedAt.UTC(),
	}, nil
}
