package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	userserrors "campbook/internal/users/errors"
	"campbook/pkg/db/postgres"
	"campbook/pkg/model"

	"github.com/jackc/pgx/v5"
)

type UserRepository interface {
	NextIDs(ctx context.Context, db postgres.DBTX) (model.UserID, model.GuestID, error)
	InsertGuest(ctx context.Context, db postgres.DBTX, user *model.User) error
	FindGuest(ctx context.Context, db postgres.DBTX, id model.GuestID) (*model.User, error)
}

type pgUserRepository struct{}

func NewPostgresUserRepository() UserRepository {
	return &pgUserRepository{}
}

func (r *pgUserRepository) NextIDs(ctx context.Context, db postgres.DBTX) (model.UserID, model.GuestID, error) {
	var userID, guestID int64
	err := db.QueryRow(ctx, `SELECT nextval('users_id_seq'), nextval('guests_id_seq')`).Scan(&userID, &guestID)
	if err != nil {
		return 0, 0, fmt.Errorf("allocate user ids: %w", postgres.MapError(err))
	}
	uid, err := model.NewUserID(userID)
	if err != nil {
		return 0, 0, err
	}
	gid, err := model.NewGuestID(guestID)
	return uid, gid, err
}

// InsertGuest stores the shared user row and the guest profile keyed by it.
func (r *pgUserRepository) InsertGuest(ctx context.Context, db postgres.DBTX, u *model.User) error {
	_, err := db.Exec(ctx, `
		INSERT INTO users (id, email, first_name, last_name, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID.Int64(), u.Email.String(), u.FirstName, u.LastName, string(u.Role), u.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return userserrors.ErrEmailTaken
		}
		return fmt.Errorf("insert user %s: %w", u.ID, postgres.MapError(err))
	}

	_, err = db.Exec(ctx, `
		INSERT INTO guests (id, user_id, phone, country) VALUES ($1, $2, $3, $4)`,
		u.Guest.GuestID.Int64(), u.ID.Int64(), u.Guest.Phone, u.Guest.Country,
	)
	if err != nil {
		return fmt.Errorf("insert guest %s: %w", u.Guest.GuestID, postgres.MapError(err))
	}
	return nil
}

func (r *pgUserRepository) FindGuest(ctx context.Context, db postgres.DBTX, id model.GuestID) (*model.User, error) {
	var (
		userID, guestID                           int64
		email, first, last, role, phone, country string
		createdAt                                 time.Time
	)
	err := db.QueryRow(ctx, `
		SELECT u.id, g.id, u.email, u.first_name, u.last_name, u.role, g.phone, g.country, u.created_at
		FROM guests g
		JOIN users u ON u.id = g.user_id
		WHERE g.id = $1`,
		id.Int64(),
	).Scan(&userID, &guestID, &email, &first, &last, &role, &phone, &country, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, userserrors.ErrGuestNotFound
		}
		return nil, fmt.Errorf("load guest %s: %w", id, postgres.MapError(err))
	}

	addr, err := model.NewEmail(email)
	if err != nil {
		return nil, err
	}
	return &model.User{
		ID:        model.UserID(userID),
		Email:     addr,
		FirstName: first,
		LastName:  last,
		Role:      model.Role(role),
		Guest: &model.GuestProfile{
			GuestID: model.GuestID(guestID),
			Phone:   phone,
			Country: country,
		},
		CreatedAt: createdAt.UTC(),
	}, nil
}
