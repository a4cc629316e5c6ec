package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	userserrors "campbook/internal/users/errors"
	"campbook/internal/users/repository"
	"campbook/internal/users/validator"
	"campbook/pkg/db/postgres"
	apperrors "campbook/pkg/errors"
	"campbook/pkg/logger"
	"campbook/pkg/model"
	"campbook/pkg/sanitizer"
)

type UserService interface {
	RegisterGuest(ctx context.Context, reg *model.GuestRegistration) (*model.User, error)
	GetGuest(ctx context.Context, id string) (*model.User, error)
}

type userService struct {
	db        postgres.DBTX
	txm       postgres.TransactionManager
	repo      repository.UserRepository
	validator *validator.UserValidator
	log       *logger.Logger
	now       func() time.Time
}

func NewUserService(db postgres.DBTX, txm postgres.TransactionManager, repo repository.UserRepository, validator *validator.UserValidator, log *logger.Logger) UserService {
	return &userService{
		db:        db,
		txm:       txm,
		repo:      repo,
		validator: validator,
		log:       log,
		now:       time.Now,
	}
}

func (s *userService) RegisterGuest(ctx context.Context, reg *model.GuestRegistration) (*model.User, error) {
	s.sanitize(reg)

	if err := s.validator.ValidateGuest(reg); err != nil {
		s.log.Warn("Guest registration validation failed", "error", err)
		return nil, apperrors.Validation("Guest registration validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	email, err := model.NewEmail(reg.Email)
	if err != nil {
		return nil, s.mapError(err, "")
	}

	var user *model.User
	err = s.txm.ExecuteTransaction(ctx, func(ctx context.Context, uow *postgres.UnitOfWork) error {
		tx, err := uow.Tx()
		if err != nil {
			return err
		}
		userID, guestID, err := s.repo.NextIDs(ctx, tx)
		if err != nil {
			return err
		}

		u, created, err := model.NewGuest(model.GuestDraft{
			UserID:    userID,
			GuestID:   guestID,
			Email:     email,
			FirstName: reg.FirstName,
			LastName:  reg.LastName,
			Phone:     reg.Phone,
			Country:   reg.Country,
		}, s.now())
		if err != nil {
			return err
		}
		if err := s.repo.InsertGuest(ctx, tx, u); err != nil {
			return err
		}

		uow.Record(created)
		user = u
		return nil
	})
	if err != nil {
		return nil, s.mapError(err, "")
	}

	s.log.Info("Guest registered", "user_id", user.ID.String(), "guest_id", user.Guest.GuestID.String())
	return user, nil
}

func (s *userService) GetGuest(ctx context.Context, id string) (*model.User, error) {
	v, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid guest ID: " + id)
	}
	guestID, err := model.NewGuestID(v)
	if err != nil {
		return nil, apperrors.FromDomain(err)
	}

	u, err := s.repo.FindGuest(ctx, s.db, guestID)
	if err != nil {
		return nil, s.mapError(err, id)
	}
	return u, nil
}

func (s *userService) sanitize(reg *model.GuestRegistration) {
	reg.Email = sanitizer.NormalizeEmail(reg.Email)
	reg.FirstName = sanitizer.NormalizeName(reg.FirstName)
	reg.LastName = sanitizer.NormalizeName(reg.LastName)
	reg.Country = sanitizer.NormalizeCountry(reg.Country)
	// An unparseable phone is kept as typed so validation reports it.
	if phone := sanitizer.NormalizePhone(reg.Phone, reg.Country); phone != "" {
		reg.Phone = phone
	}
}

func (s *userService) mapError(err error, id string) error {
	switch {
	case errors.Is(err, userserrors.ErrGuestNotFound):
		return apperrors.NotFoundWithID("Guest", id)
	case errors.Is(err, userserrors.ErrEmailTaken):
		return apperrors.Conflict("A user with this email is already registered")
	case errors.Is(err, postgres.ErrConcurrencyConflict):
		return apperrors.ConcurrencyConflict(err)
	}
	if domainErr := apperrors.FromDomain(err); domainErr != nil {
		return domainErr
	}
	s.log.Error("User operation failed", "error", err)
	return apperrors.Internal("User operation failed", err)
}
