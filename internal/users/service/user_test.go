package service

import (
	"context"
	"testing"
	"time"

	userserrors "campbook/internal/users/errors"
	"campbook/internal/users/validator"
	"campbook/pkg/db/postgres"
	"campbook/pkg/db/postgres/pgtest"
	apperrors "campbook/pkg/errors"
	"campbook/pkg/logger"
	"campbook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryUserRepository struct {
	next   int64
	guests map[model.GuestID]*model.User
	emails map[model.Email]bool
}

func (r *memoryUserRepository) NextIDs(ctx context.Context, db postgres.DBTX) (model.UserID, model.GuestID, error) {
	r.next++
	return model.UserID(r.next), model.GuestID(r.next + 100), nil
}

func (r *memoryUserRepository) InsertGuest(ctx context.Context, db postgres.DBTX, u *model.User) error {
	if r.emails[u.Email] {
		return userserrors.ErrEmailTaken
	}
	r.emails[u.Email] = true
	r.guests[u.Guest.GuestID] = u
	return nil
}

func (r *memoryUserRepository) FindGuest(ctx context.Context, db postgres.DBTX, id model.GuestID) (*model.User, error) {
	u, ok := r.guests[id]
	if !ok {
		return nil, userserrors.ErrGuestNotFound
	}
	return u, nil
}

func newTestService(t *testing.T) (UserService, *pgtest.Sink) {
	t.Helper()
	log := logger.NewNop()
	sink := &pgtest.Sink{}
	repo := &memoryUserRepository{guests: map[model.GuestID]*model.User{}, emails: map[model.Email]bool{}}
	txm := postgres.NewTransactionManager(&pgtest.Beginner{}, &pgtest.Outbox{}, sink, log, time.Second)
	return NewUserService(nil, txm, repo, validator.NewUserValidator(), log), sink
}

func TestRegisterGuest(t *testing.T) {
	svc, sink := newTestService(t)

	u, err := svc.RegisterGuest(context.Background(), &model.GuestRegistration{
		Email:     "  Gale@Example.com ",
		FirstName: " Gale ",
		LastName:  "Storm",
		Phone:     "(212) 555-1234",
		Country:   "us",
	})
	require.NoError(t, err)
	assert.Equal(t, "gale@example.com", u.Email.String())
	assert.Equal(t, "Gale", u.FirstName)
	assert.Equal(t, model.RoleGuest, u.Role)
	require.NotNil(t, u.Guest)
	assert.Equal(t, "+12125551234", u.Guest.Phone)
	assert.Equal(t, "US", u.Guest.Country)

	events := sink.Events()
	require.Len(t, events, 1)
	created, ok := events[0].(model.UserCreated)
	require.True(t, ok)
	assert.Equal(t, u.Guest.GuestID.Int64(), created.GuestID)

	got, err := svc.GetGuest(context.Background(), u.Guest.GuestID.String())
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestRegisterGuest_Rejections(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RegisterGuest(ctx, &model.GuestRegistration{Email: "not-an-email", FirstName: "A", LastName: "B"})
	assert.Equal(t, apperrors.CodeValidation, apperrors.AsAppError(err).Code)

	_, err = svc.RegisterGuest(ctx, &model.GuestRegistration{Email: "a@b.io", FirstName: "A", LastName: "B", Phone: "call me"})
	assert.Equal(t, apperrors.CodeValidation, apperrors.AsAppError(err).Code)

	_, err = svc.RegisterGuest(ctx, &model.GuestRegistration{Email: "a@b.io", FirstName: "A", LastName: "B"})
	require.NoError(t, err)
	_, err = svc.RegisterGuest(ctx, &model.GuestRegistration{Email: "A@B.io", FirstName: "A", LastName: "B"})
	assert.Equal(t, apperrors.CodeConflict, apperrors.AsAppError(err).Code)

	_, err = svc.GetGuest(ctx, "999")
	assert.Equal(t, apperrors.CodeNotFound, apperrors.AsAppError(err).Code)
}
