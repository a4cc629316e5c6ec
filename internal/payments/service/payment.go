package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	paymentserrors "campbook/internal/payments/errors"
	"campbook/internal/payments/repository"
	"campbook/internal/payments/validator"
	"campbook/pkg/db/postgres"
	apperrors "campbook/pkg/errors"
	"campbook/pkg/logger"
	"campbook/pkg/model"
	"campbook/pkg/sanitizer"
)

type PaymentService interface {
	Initiate(ctx context.Context, req *model.PaymentRequest) (*model.Payment, error)
	MarkCompleted(ctx context.Context, id string, req *model.PaymentCompletion) (*model.Payment, error)
	MarkFailed(ctx context.Context, id string, req *model.PaymentFailure) (*model.Payment, error)
	Retry(ctx context.Context, id string) (*model.Payment, error)
	Refund(ctx context.Context, id string) (*model.Payment, error)
	Get(ctx context.Context, id string) (*model.Payment, error)
}

type paymentService struct {
	db        postgres.DBTX
	txm       postgres.TransactionManager
	repo      repository.PaymentRepository
	validator *validator.PaymentValidator
	log       *logger.Logger
	now       func() time.Time
}

func NewPaymentService(
	db postgres.DBTX,
	txm postgres.TransactionManager,
	repo repository.PaymentRepository,
	validator *validator.PaymentValidator,
	log *logger.Logger,
) PaymentService {
	return &paymentService{
		db:        db,
		txm:       txm,
		repo:      repo,
		validator: validator,
		log:       log,
		now:       time.Now,
	}
}

// Initiate opens a pending payment against a booking that still holds its
// spot. The amount must be in the booking's currency.
func (s *paymentService) Initiate(ctx context.Context, req *model.PaymentRequest) (*model.Payment, error) {
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	req.Amount = strings.TrimSpace(req.Amount)

	if err := s.validator.ValidatePayment(req); err != nil {
		s.log.Warn("Payment validation failed", "booking_id", req.BookingID, "error", err)
		return nil, apperrors.Validation("Payment validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	bookingID, err := model.NewBookingID(req.BookingID)
	if err != nil {
		return nil, s.mapError(err, "")
	}
	amount, err := model.ParseMoney(req.Amount, req.Currency)
	if err != nil {
		return nil, s.mapError(err, "")
	}
	method, err := model.ParsePaymentMethod(req.Method)
	if err != nil {
		return nil, s.mapError(err, "")
	}

	var payment *model.Payment
	err = s.txm.ExecuteTransaction(ctx, func(ctx context.Context, uow *postgres.UnitOfWork) error {
		tx, err := uow.Tx()
		if err != nil {
			return err
		}

		status, currency, err := s.repo.BookingStatus(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if !status.IsActive() {
			return paymentserrors.ErrBookingNotPayable
		}
		if currency != amount.Currency() {
			return paymentserrors.ErrCurrencyMismatch
		}

		id, err := s.repo.NextID(ctx, tx)
		if err != nil {
			return err
		}
		p, initiated, err := model.NewPayment(id, bookingID, amount, method, s.now())
		if err != nil {
			return err
		}
		if err := s.repo.Insert(ctx, tx, p); err != nil {
			return err
		}

		uow.Record(initiated)
		payment = p
		return nil
	})
	if err != nil {
		return nil, s.mapError(err, bookingID.String())
	}

	s.log.Info("Payment initiated",
		"payment_id", payment.ID.String(),
		"booking_id", payment.BookingID.String(),
		"amount", payment.Amount.String(),
	)
	return payment, nil
}

func (s *paymentService) MarkCompleted(ctx context.Context, id string, req *model.PaymentCompletion) (*model.Payment, error) {
	req.TransactionRef = strings.TrimSpace(req.TransactionRef)
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.Validation("Payment completion validation failed", map[string]any{"error": err.Error()})
	}
	return s.transition(ctx, id, func(p *model.Payment, now time.Time) (model.Event, error) {
		return p.MarkCompleted(req.TransactionRef, now)
	})
}

func (s *paymentService) MarkFailed(ctx context.Context, id string, req *model.PaymentFailure) (*model.Payment, error) {
	req.Reason = sanitizer.SanitizeFreeText(req.Reason)
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.Validation("Payment failure validation failed", map[string]any{"error": err.Error()})
	}
	return s.transition(ctx, id, func(p *model.Payment, now time.Time) (model.Event, error) {
		return p.MarkFailed(req.Reason, now)
	})
}

func (s *paymentService) Retry(ctx context.Context, id string) (*model.Payment, error) {
	return s.transition(ctx, id, func(p *model.Payment, now time.Time) (model.Event, error) {
		return p.Retry(now)
	})
}

func (s *paymentService) Refund(ctx context.Context, id string) (*model.Payment, error) {
	return s.transition(ctx, id, func(p *model.Payment, now time.Time) (model.Event, error) {
		return p.Refund(now)
	})
}

func (s *paymentService) Get(ctx context.Context, id string) (*model.Payment, error) {
	paymentID, err := parsePaymentID(id)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.FindByID(ctx, s.db, paymentID)
	if err != nil {
		return nil, s.mapError(err, id)
	}
	return p, nil
}

func (s *paymentService) transition(ctx context.Context, id string, apply func(*model.Payment, time.Time) (model.Event, error)) (*model.Payment, error) {
	paymentID, err := parsePaymentID(id)
	if err != nil {
		return nil, err
	}

	var payment *model.Payment
	err = s.txm.ExecuteTransaction(ctx, func(ctx context.Context, uow *postgres.UnitOfWork) error {
		tx, err := uow.Tx()
		if err != nil {
			return err
		}
		p, err := s.repo.FindByIDForUpdate(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		evt, err := apply(p, s.now())
		if err != nil {
			return err
		}
		if err := s.repo.Update(ctx, tx, p); err != nil {
			return err
		}
		uow.Record(evt)
		payment = p
		return nil
	})
	if err != nil {
		return nil, s.mapError(err, id)
	}

	s.log.Info("Payment status changed", "payment_id", id, "status", payment.Status.String())
	return payment, nil
}

func parsePaymentID(raw string) (model.PaymentID, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.InvalidInput("invalid payment ID: " + raw)
	}
	id, err := model.NewPaymentID(v)
	if err != nil {
		return 0, apperrors.FromDomain(err)
	}
	return id, nil
}

func (s *paymentService) mapError(err error, id string) error {
	switch {
	case errors.Is(err, paymentserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Payment", id)
	case errors.Is(err, paymentserrors.ErrBookingNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, paymentserrors.ErrBookingNotPayable):
		return apperrors.Conflict("Booking is cancelled or completed and cannot take payments")
	case errors.Is(err, paymentserrors.ErrCurrencyMismatch):
		return apperrors.Validation(err.Error(), nil)
	case errors.Is(err, postgres.ErrConcurrencyConflict):
		s.log.Warn("Payment operation lost a concurrent update", "payment_id", id, "error", err)
		return apperrors.ConcurrencyConflict(err)
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if domainErr := apperrors.FromDomain(err); domainErr != nil {
		return domainErr
	}
	s.log.Error("Payment operation failed", "payment_id", id, "error", err)
	return apperrors.Internal("Payment operation failed", err)
}
