package postgres

import (
	"context"
	"time"

	"campbook/pkg/logger"

	"github.com/jackc/pgx/v5"
)

type TransactionFunc func(ctx context.Context, uow *UnitOfWork) error

type TransactionManager interface {
	New() *UnitOfWork
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

type pgTransactionManager struct {
	db           Beginner
	outbox       OutboxWriter
	sink         EventSink
	log          *logger.Logger
	beginTimeout time.Duration
}

func NewTransactionManager(db Beginner, outbox OutboxWriter, sink EventSink, log *logger.Logger, beginTimeout time.Duration) TransactionManager {
	return &pgTransactionManager{
		db:           db,
		outbox:       outbox,
		sink:         sink,
		log:          log,
		beginTimeout: beginTimeout,
	}
}

func (m *pgTransactionManager) New() *UnitOfWork {
	return &UnitOfWork{
		db:           m.db,
		outbox:       m.outbox,
		sink:         m.sink,
		log:          m.log,
		beginTimeout: m.beginTimeout,
	}
}

// ExecuteTransaction runs fn in a serializable unit of work and commits it
// when fn succeeds. The unit of work is always closed on return.
func (m *pgTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	uow := m.New()
	if err := uow.Begin(ctx, pgx.Serializable); err != nil {
		return err
	}
	defer uow.Close(ctx)

	if err := fn(ctx, uow); err != nil {
		return err
	}
	return uow.Commit(ctx)
}
