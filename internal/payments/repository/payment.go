package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	paymentserrors "campbook/internal/payments/errors"
	"campbook/pkg/db/postgres"
	"campbook/pkg/model"

	"github.com/jackc/pgx/v5"
)

const paymentColumns = `id, booking_id, amount_minor, currency, status, method,
	transaction_ref, failure_reason, created_at, updated_at`

type PaymentRepository interface {
	NextID(ctx context.Context, db postgres.DBTX) (model.PaymentID, error)
	Insert(ctx context.Context, db postgres.DBTX, payment *model.Payment) error
	FindByID(ctx context.Context, db postgres.DBTX, id model.PaymentID) (*model.Payment, error)
	FindByIDForUpdate(ctx context.Context, db postgres.DBTX, id model.PaymentID) (*model.Payment, error)
	Update(ctx context.Context, db postgres.DBTX, payment *model.Payment) error
	BookingStatus(ctx context.Context, db postgres.DBTX, id model.BookingID) (model.BookingStatus, string, error)
}

type pgPaymentRepository struct{}

func NewPostgresPaymentRepository() PaymentRepository {
	return &pgPaymentRepository{}
}

func (r *pgPaymentRepository) NextID(ctx context.Context, db postgres.DBTX) (model.PaymentID, error) {
	var id int64
	if err := db.QueryRow(ctx, `SELECT nextval('payments_id_seq')`).Scan(&id); err != nil {
		return 0, fmt.Errorf("allocate payment id: %w", postgres.MapError(err))
	}
	return model.NewPaymentID(id)
}

func (r *pgPaymentRepository) Insert(ctx context.Context, db postgres.DBTX, p *model.Payment) error {
	_, err := db.Exec(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID.Int64(), p.BookingID.Int64(), p.Amount.MinorUnits(), p.Amount.Currency(),
		p.Status.String(), string(p.Method), p.TransactionRef, p.FailureReason,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment %s: %w", p.ID, postgres.MapError(err))
	}
	return nil
}

func (r *pgPaymentRepository) FindByID(ctx context.Context, db postgres.DBTX, id model.PaymentID) (*model.Payment, error) {
	return scanPayment(db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id.Int64()), id)
}

func (r *pgPaymentRepository) FindByIDForUpdate(ctx context.Context, db postgres.DBTX, id model.PaymentID) (*model.Payment, error) {
	return scanPayment(db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id.Int64()), id)
}

func (r *pgPaymentRepository) Update(ctx context.Context, db postgres.DBTX, p *model.Payment) error {
	tag, err := db.Exec(ctx, `
		UPDATE payments
		SET status = $2, transaction_ref = $3, failure_reason = $4, updated_at = $5
		WHERE id = $1`,
		p.ID.Int64(), p.Status.String(), p.TransactionRef, p.FailureReason, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update payment %s: %w", p.ID, postgres.MapError(err))
	}
	if tag.RowsAffected() == 0 {
		return paymentserrors.ErrNotFound
	}
	return nil
}

// BookingStatus returns the status and currency of the booking a payment is
// raised against, locking it so it cannot be cancelled mid-payment.
func (r *pgPaymentRepository) BookingStatus(ctx context.Context, db postgres.DBTX, id model.BookingID) (model.BookingStatus, string, error) {
	var status, currency string
	err := db.QueryRow(ctx, `SELECT status, currency FROM bookings WHERE id = $1 FOR SHARE`, id.Int64()).Scan(&status, &currency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", paymentserrors.ErrBookingNotFound
		}
		return "", "", fmt.Errorf("load booking %s: %w", id, postgres.MapError(err))
	}
	st, err := model.ParseBookingStatus(status)
	return st, currency, err
}

func scanPayment(row pgx.Row, id model.PaymentID) (*model.Payment, error) {
	var (
		paymentID, bookingID, amountMinor              int64
		currency, status, method, txRef, failureReason string
		createdAt, updatedAt                           time.Time
	)
	err := row.Scan(&paymentID, &bookingID, &amountMinor, &currency, &status, &method, &txRef, &failureReason, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, paymentserrors.ErrNotFound
		}
		return nil, fmt.Errorf("load payment %s: %w", id, postgres.MapError(err))
	}

	amount, err := model.NewMoney(amountMinor, currency)
	if err != nil {
		return nil, err
	}
	st, err := model.ParsePaymentStatus(status)
	if err != nil {
		return nil, err
	}
	m, err := model.ParsePaymentMethod(method)
	if err != nil {
		return nil, err
	}

	return &model.Payment{
		ID:             model.PaymentID(paymentID),
		BookingID:      model.BookingID(bookingID),
		Amount:         amount,
		Status:         st,
		Method:         m,
		TransactionRef: txRef,
		FailureReason:  failureReason,
		CreatedAt:      createdAt.UTC(),
		UpdatedAt:      updatedAt.UTC(),
	}, nil
}
