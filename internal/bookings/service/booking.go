package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	bookingserrors "campbook/internal/bookings/errors"
	"campbook/internal/bookings/repository"
	"campbook/internal/bookings/validator"
	"campbook/pkg/db/postgres"
	apperrors "campbook/pkg/errors"
	"campbook/pkg/logger"
	"campbook/pkg/metrics"
	"campbook/pkg/model"
	"campbook/pkg/sanitizer"
)

type BookingService interface {
	Reserve(ctx context.Context, req *model.ReservationRequest) (*model.Booking, error)
	Confirm(ctx context.Context, id string) (*model.Booking, error)
	Cancel(ctx context.Context, id string, req *model.CancellationRequest) (*model.Booking, error)
	Complete(ctx context.Context, id string) (*model.Booking, error)
	Get(ctx context.Context, id string) (*model.Booking, error)
}

type bookingService struct {
	db        postgres.DBTX
	txm       postgres.TransactionManager
	repo      repository.BookingRepository
	validator *validator.BookingValidator
	metrics   *metrics.Metrics
	log       *logger.Logger
	now       func() time.Time
}

// NewBookingService wires the booking use cases. db serves reads outside a
// transaction; every mutation goes through txm.
func NewBookingService(
	db postgres.DBTX,
	txm postgres.TransactionManager,
	repo repository.BookingRepository,
	validator *validator.BookingValidator,
	m *metrics.Metrics,
	log *logger.Logger,
) BookingService {
	return &bookingService{
		db:        db,
		txm:       txm,
		repo:      repo,
		validator: validator,
		metrics:   m,
		log:       log,
		now:       time.Now,
	}
}

// Reserve creates a pending booking when no active booking on the spot
// overlaps the requested period. The availability check and the insert run
// in one serializable transaction, so of two racing requests at most one
// commits; the other fails with a retryable conflict.
func (s *bookingService) Reserve(ctx context.Context, req *model.ReservationRequest) (*model.Booking, error) {
	s.sanitizeReservation(req)

	if err := s.validator.ValidateReservation(req); err != nil {
		s.log.Warn("Reservation validation failed", "spot_id", req.SpotID, "error", err)
		return nil, apperrors.Validation("Reservation validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	draft, err := reservationDraft(req)
	if err != nil {
		return nil, s.domainError(err)
	}

	var booking *model.Booking
	err = s.txm.ExecuteTransaction(ctx, func(ctx context.Context, uow *postgres.UnitOfWork) error {
		tx, err := uow.Tx()
		if err != nil {
			return err
		}

		spot, err := s.repo.FindSpot(ctx, tx, draft.SpotID)
		if err != nil {
			return err
		}
		if err := checkSpot(spot, draft); err != nil {
			return err
		}

		overlapping, err := s.repo.ExistsOverlapping(ctx, tx, draft.SpotID, draft.Period)
		if err != nil {
			return err
		}
		if overlapping {
			return bookingserrors.ErrSpotUnavailable
		}

		if draft.Pricing, err = spot.Type.Quote(draft.Period); err != nil {
			return err
		}
		if draft.ID, err = s.repo.NextID(ctx, tx); err != nil {
			return err
		}

		b, created, err := model.NewBooking(draft, s.now())
		if err != nil {
			return err
		}
		if err := s.repo.Insert(ctx, tx, b); err != nil {
			return err
		}

		uow.Record(created)
		booking = b
		return nil
	})
	if err != nil {
		s.metrics.ReservationsTotal.WithLabelValues(reservationResult(err)).Inc()
		return nil, s.reservationError(err, draft)
	}

	s.metrics.ReservationsTotal.WithLabelValues("created").Inc()
	s.log.Info("Booking reserved",
		"booking_id", booking.ID.String(),
		"spot_id", booking.SpotID.String(),
		"period", booking.Period.String(),
		"total", booking.TotalPrice.String(),
	)
	return booking, nil
}

func (s *bookingService) Confirm(ctx context.Context, id string) (*model.Booking, error) {
	return s.transition(ctx, id, model.BookingStatusConfirmed, func(b *model.Booking, now time.Time) (model.Event, error) {
		return b.Confirm(now)
	})
}

func (s *bookingService) Cancel(ctx context.Context, id string, req *model.CancellationRequest) (*model.Booking, error) {
	if req == nil {
		req = &model.CancellationRequest{}
	}
	req.Reason = sanitizer.SanitizeFreeText(req.Reason)
	if err := s.validator.ValidateCancellation(req); err != nil {
		return nil, apperrors.Validation("Cancellation validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	return s.transition(ctx, id, model.BookingStatusCancelled, func(b *model.Booking, now time.Time) (model.Event, error) {
		return b.Cancel(req.Reason, now)
	})
}

func (s *bookingService) Complete(ctx context.Context, id string) (*model.Booking, error) {
	return s.transition(ctx, id, model.BookingStatusCompleted, func(b *model.Booking, now time.Time) (model.Event, error) {
		return b.Complete(now)
	})
}

func (s *bookingService) Get(ctx context.Context, id string) (*model.Booking, error) {
	bookingID, err := parseBookingID(id)
	if err != nil {
		return nil, err
	}

	booking, err := s.repo.FindByID(ctx, s.db, bookingID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		s.log.Error("Failed to load booking", "booking_id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

type transitionFunc func(b *model.Booking, now time.Time) (model.Event, error)

// transition locks the booking row, applies one state change and records its
// event in the same transaction.
func (s *bookingService) transition(ctx context.Context, id string, target model.BookingStatus, apply transitionFunc) (*model.Booking, error) {
	bookingID, err := parseBookingID(id)
	if err != nil {
		return nil, err
	}

	var booking *model.Booking
	err = s.txm.ExecuteTransaction(ctx, func(ctx context.Context, uow *postgres.UnitOfWork) error {
		tx, err := uow.Tx()
		if err != nil {
			return err
		}

		b, err := s.repo.FindByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		evt, err := apply(b, s.now())
		if err != nil {
			return err
		}
		if err := s.repo.UpdateStatus(ctx, tx, b); err != nil {
			return err
		}

		uow.Record(evt)
		booking = b
		return nil
	})
	if err != nil {
		return nil, s.transitionError(err, id, target)
	}

	s.metrics.BookingTransitions.WithLabelValues(target.String()).Inc()
	s.log.Info("Booking status changed", "booking_id", id, "status", target.String())
	return booking, nil
}

func (s *bookingService) sanitizeReservation(req *model.ReservationRequest) {
	req.SpecialRequests = sanitizer.SanitizeFreeText(req.SpecialRequests)
}

func reservationDraft(req *model.ReservationRequest) (model.BookingDraft, error) {
	guestID, err := model.NewGuestID(req.GuestID)
	if err != nil {
		return model.BookingDraft{}, err
	}
	campsiteID, err := model.NewCampsiteID(req.CampsiteID)
	if err != nil {
		return model.BookingDraft{}, err
	}
	typeID, err := model.NewAccommodationTypeID(req.AccommodationTypeID)
	if err != nil {
		return model.BookingDraft{}, err
	}
	spotID, err := model.NewAccommodationSpotID(req.SpotID)
	if err != nil {
		return model.BookingDraft{}, err
	}
	period, err := model.ParseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return model.BookingDraft{}, err
	}

	return model.BookingDraft{
		GuestID:             guestID,
		CampsiteID:          campsiteID,
		AccommodationTypeID: typeID,
		SpotID:              spotID,
		Period:              period,
		Adults:              req.Adults,
		Children:            req.Children,
		SpecialRequests:     req.SpecialRequests,
	}, nil
}

func checkSpot(spot *model.AccommodationSpot, draft model.BookingDraft) error {
	switch {
	case !spot.Active:
		return bookingserrors.ErrSpotInactive
	case spot.CampsiteID != draft.CampsiteID, spot.Type.ID != draft.AccommodationTypeID:
		return bookingserrors.ErrSpotMismatch
	case spot.Type.Capacity > 0 && draft.Adults+draft.Children > spot.Type.Capacity:
		return bookingserrors.ErrCapacityExceeded
	}
	return nil
}

func parseBookingID(raw string) (model.BookingID, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.InvalidInput("invalid booking ID: " + raw)
	}
	id, err := model.NewBookingID(v)
	if err != nil {
		return 0, apperrors.FromDomain(err)
	}
	return id, nil
}

func reservationResult(err error) string {
	switch {
	case errors.Is(err, bookingserrors.ErrSpotUnavailable):
		return "unavailable"
	case errors.Is(err, postgres.ErrConcurrencyConflict):
		return "conflict"
	case apperrors.FromDomain(err) != nil,
		errors.Is(err, bookingserrors.ErrSpotNotFound),
		errors.Is(err, bookingserrors.ErrSpotInactive),
		errors.Is(err, bookingserrors.ErrSpotMismatch),
		errors.Is(err, bookingserrors.ErrCapacityExceeded):
		return "rejected"
	}
	return "error"
}

func (s *bookingService) reservationError(err error, draft model.BookingDraft) error {
	spotID := draft.SpotID.String()

	switch {
	case errors.Is(err, bookingserrors.ErrSpotUnavailable):
		s.log.Info("Spot unavailable", "spot_id", spotID, "period", draft.Period.String())
		return apperrors.SpotUnavailable(spotID, draft.Period.String(), err)
	case errors.Is(err, postgres.ErrConcurrencyConflict):
		s.log.Warn("Reservation lost a concurrent update", "spot_id", spotID, "error", err)
		return apperrors.ConcurrencyConflict(err)
	case errors.Is(err, bookingserrors.ErrSpotNotFound):
		return apperrors.NotFoundWithID("Accommodation spot", spotID)
	case errors.Is(err, bookingserrors.ErrSpotInactive),
		errors.Is(err, bookingserrors.ErrSpotMismatch),
		errors.Is(err, bookingserrors.ErrCapacityExceeded):
		return apperrors.Validation(err.Error(), map[string]any{
			"spot_id": spotID,
		})
	}
	return s.domainError(err)
}

func (s *bookingService) transitionError(err error, id string, target model.BookingStatus) error {
	switch {
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, postgres.ErrConcurrencyConflict):
		s.log.Warn("Booking transition lost a concurrent update", "booking_id", id, "status", target.String(), "error", err)
		return apperrors.ConcurrencyConflict(err)
	case errors.Is(err, model.ErrInvalidStatusTransition):
		s.log.Info("Rejected booking transition", "booking_id", id, "error", err)
	}
	return s.domainError(err)
}

// domainError passes through errors that already carry a code and maps
// domain failures; anything else is an infrastructure failure.
func (s *bookingService) domainError(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if domainErr := apperrors.FromDomain(err); domainErr != nil {
		return domainErr
	}
	s.log.Error("Booking operation failed", "error", err)
	return apperrors.Internal("Booking operation failed", err)
}
