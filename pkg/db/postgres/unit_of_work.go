package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"campbook/pkg/logger"
	"campbook/pkg/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Beginner opens transactions. *pgxpool.Pool satisfies it.
type Beginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// DBTX is the query surface shared by pgx.Tx and *pgxpool.Pool, so
// repositories work both inside and outside a unit of work.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// OutboxWriter persists events inside the transaction that produced them.
type OutboxWriter interface {
	Append(ctx context.Context, tx DBTX, events []model.Event) error
}

// EventSink receives events once their transaction has committed.
type EventSink interface {
	Forward(ctx context.Context, events []model.Event)
}

// UnitOfWork spans one transaction across any number of repositories. Events
// recorded on it are written to the outbox in the same transaction and
// handed to the sink after a successful commit.
type UnitOfWork struct {
	db           Beginner
	outbox       OutboxWriter
	sink         EventSink
	log          *logger.Logger
	beginTimeout time.Duration

	mu      sync.Mutex
	tx      pgx.Tx
	pending []model.Event
}

func (u *UnitOfWork) Begin(ctx context.Context, isoLevel pgx.TxIsoLevel) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.tx != nil {
		return ErrTransactionActive
	}

	beginCtx := ctx
	if u.beginTimeout > 0 {
		var cancel context.CancelFunc
		beginCtx, cancel = context.WithTimeout(ctx, u.beginTimeout)
		defer cancel()
	}

	tx, err := u.db.BeginTx(beginCtx, pgx.TxOptions{IsoLevel: isoLevel})
	if err != nil {
		if ctx.Err() == nil && isTimeout(beginCtx, err) {
			return fmt.Errorf("%w: could not open transaction within %s: %w", ErrConcurrencyConflict, u.beginTimeout, err)
		}
		return fmt.Errorf("begin transaction: %w", MapError(err))
	}

	u.tx = tx
	u.pending = nil
	return nil
}

// Tx returns the open transaction for repository calls.
func (u *UnitOfWork) Tx() (DBTX, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.tx == nil {
		return nil, ErrNoTransaction
	}
	return u.tx, nil
}

// Record appends events in the order they were raised.
func (u *UnitOfWork) Record(events ...model.Event) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.pending = append(u.pending, events...)
}

func (u *UnitOfWork) PendingEvents() []model.Event {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]model.Event(nil), u.pending...)
}

func (u *UnitOfWork) InTransaction() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.tx != nil
}

func (u *UnitOfWork) Commit(ctx context.Context) error {
	u.mu.Lock()
	tx, events := u.tx, u.pending
	if tx == nil {
		u.mu.Unlock()
		return ErrNoTransaction
	}
	u.tx, u.pending = nil, nil
	u.mu.Unlock()

	if len(events) > 0 && u.outbox != nil {
		if err := u.outbox.Append(ctx, tx, events); err != nil {
			u.abort(ctx, tx)
			return fmt.Errorf("write outbox: %w", MapError(err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		u.abort(ctx, tx)
		return fmt.Errorf("commit: %w", MapError(err))
	}

	if len(events) > 0 && u.sink != nil {
		u.sink.Forward(ctx, events)
	}
	return nil
}

// Rollback discards the transaction. Without an open transaction it is a no-op.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	u.mu.Lock()
	tx := u.tx
	u.tx, u.pending = nil, nil
	u.mu.Unlock()

	if tx == nil {
		return nil
	}
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// Close releases whatever is still open and is meant to be deferred right
// after Begin.
func (u *UnitOfWork) Close(ctx context.Context) {
	if err := u.Rollback(context.WithoutCancel(ctx)); err != nil {
		u.log.Error("Failed to roll back abandoned unit of work", "error", err)
	}
}

func (u *UnitOfWork) abort(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		u.log.Error("Failed to roll back after commit failure", "error", err)
	}
}
