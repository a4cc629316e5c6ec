package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"campbook/pkg/logger"
	"campbook/pkg/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTx implements the parts of pgx.Tx a unit of work touches.
type fakeTx struct {
	pgx.Tx
	commitErr error
	commits   int
	rollbacks int
	closed    bool
}

func (f *fakeTx) Commit(ctx context.Context) error {
	if f.closed {
		return pgx.ErrTxClosed
	}
	f.closed = true
	f.commits++
	return f.commitErr
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	if f.closed {
		return pgx.ErrTxClosed
	}
	f.closed = true
	f.rollbacks++
	return nil
}

type fakeBeginner struct {
	txs     []*fakeTx
	options []pgx.TxOptions
	block   bool
	err     error
}

func (b *fakeBeginner) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	if b.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if b.err != nil {
		return nil, b.err
	}
	tx := &fakeTx{}
	b.txs = append(b.txs, tx)
	b.options = append(b.options, opts)
	return tx, nil
}

type recordingOutbox struct {
	appended []model.Event
	err      error
}

func (o *recordingOutbox) Append(ctx context.Context, tx DBTX, events []model.Event) error {
	if o.err != nil {
		return o.err
	}
	o.appended = append(o.appended, events...)
	return nil
}

type recordingSink struct {
	mu        sync.Mutex
	forwarded []model.Event
}

func (s *recordingSink) Forward(ctx context.Context, events []model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forwarded = append(s.forwarded, events...)
}

type testEvent struct {
	model.EventMeta
	id int64
}

func (e testEvent) AggregateID() int64 { return e.id }

func newEvent(id string) model.Event {
	return testEvent{EventMeta: model.EventMeta{ID: id, Type: "test.happened", Occurred: time.Now()}, id: 1}
}

func newTestManager(b Beginner, outbox OutboxWriter, sink EventSink) TransactionManager {
	return NewTransactionManager(b, outbox, sink, logger.NewNop(), time.Second)
}

func TestUnitOfWork_BeginUsesRequestedIsolation(t *testing.T) {
	beginner := &fakeBeginner{}
	uow := newTestManager(beginner, nil, nil).New()

	require.NoError(t, uow.Begin(context.Background(), pgx.Serializable))
	assert.Equal(t, pgx.Serializable, beginner.options[0].IsoLevel)
	assert.True(t, uow.InTransaction())
}

func TestUnitOfWork_RejectsNestedBegin(t *testing.T) {
	uow := newTestManager(&fakeBeginner{}, nil, nil).New()
	ctx := context.Background()

	require.NoError(t, uow.Begin(ctx, pgx.Serializable))
	assert.ErrorIs(t, uow.Begin(ctx, pgx.Serializable), ErrTransactionActive)
}

func TestUnitOfWork_RollbackIsIdempotent(t *testing.T) {
	beginner := &fakeBeginner{}
	uow := newTestManager(beginner, nil, nil).New()
	ctx := context.Background()

	assert.NoError(t, uow.Rollback(ctx))

	require.NoError(t, uow.Begin(ctx, pgx.Serializable))
	uow.Record(newEvent("a"))
	assert.NoError(t, uow.Rollback(ctx))
	assert.NoError(t, uow.Rollback(ctx))
	assert.Equal(t, 1, beginner.txs[0].rollbacks)
	assert.Empty(t, uow.PendingEvents())
	assert.False(t, uow.InTransaction())

	_, err := uow.Tx()
	assert.ErrorIs(t, err, ErrNoTransaction)
}

func TestUnitOfWork_CommitWritesOutboxThenForwards(t *testing.T) {
	beginner := &fakeBeginner{}
	outbox := &recordingOutbox{}
	sink := &recordingSink{}
	uow := newTestManager(beginner, outbox, sink).New()
	ctx := context.Background()

	require.NoError(t, uow.Begin(ctx, pgx.Serializable))
	uow.Record(newEvent("first"), newEvent("second"))
	uow.Record(newEvent("third"))
	require.Len(t, uow.PendingEvents(), 3)

	require.NoError(t, uow.Commit(ctx))

	ids := func(events []model.Event) []string {
		out := make([]string, 0, len(events))
		for _, e := range events {
			out = append(out, e.EventID())
		}
		return out
	}
	assert.Equal(t, []string{"first", "second", "third"}, ids(outbox.appended))
	assert.Equal(t, []string{"first", "second", "third"}, ids(sink.forwarded))
	assert.Equal(t, 1, beginner.txs[0].commits)
	assert.Empty(t, uow.PendingEvents())
	assert.False(t, uow.InTransaction())

	// a new transaction can be opened on the same instance once the previous one closed
	require.NoError(t, uow.Begin(ctx, pgx.Serializable))
	uow.Close(ctx)
}

func TestUnitOfWork_CommitConflictRollsBackWithoutForwarding(t *testing.T) {
	beginner := &fakeBeginner{}
	sink := &recordingSink{}
	uow := newTestManager(beginner, &recordingOutbox{}, sink).New()
	ctx := context.Background()

	require.NoError(t, uow.Begin(ctx, pgx.Serializable))
	beginner.txs[0].commitErr = &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	uow.Record(newEvent("lost"))

	err := uow.Commit(ctx)
	assert.ErrorIs(t, err, ErrConcurrencyConflict)
	assert.Empty(t, sink.forwarded)
	assert.False(t, uow.InTransaction())
}

func TestUnitOfWork_OutboxFailureAborts(t *testing.T) {
	beginner := &fakeBeginner{}
	sink := &recordingSink{}
	uow := newTestManager(beginner, &recordingOutbox{err: errors.New("disk full")}, sink).New()
	ctx := context.Background()

	require.NoError(t, uow.Begin(ctx, pgx.Serializable))
	uow.Record(newEvent("x"))

	assert.Error(t, uow.Commit(ctx))
	assert.Equal(t, 0, beginner.txs[0].commits)
	assert.Equal(t, 1, beginner.txs[0].rollbacks)
	assert.Empty(t, sink.forwarded)
}

func TestUnitOfWork_CommitWithoutBegin(t *testing.T) {
	uow := newTestManager(&fakeBeginner{}, nil, nil).New()
	assert.ErrorIs(t, uow.Commit(context.Background()), ErrNoTransaction)
}

func TestUnitOfWork_BeginTimeoutIsRetryableConflict(t *testing.T) {
	m := NewTransactionManager(&fakeBeginner{block: true}, nil, nil, logger.NewNop(), 20*time.Millisecond)
	uow := m.New()

	err := uow.Begin(context.Background(), pgx.Serializable)
	assert.ErrorIs(t, err, ErrConcurrencyConflict)
	assert.False(t, uow.InTransaction())
}

func TestUnitOfWork_CallerCancellationIsNotAConflict(t *testing.T) {
	m := NewTransactionManager(&fakeBeginner{block: true}, nil, nil, logger.NewNop(), time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.New().Begin(ctx, pgx.Serializable)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrConcurrencyConflict)
}

func TestExecuteTransaction(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		beginner := &fakeBeginner{}
		sink := &recordingSink{}
		m := newTestManager(beginner, &recordingOutbox{}, sink)

		err := m.ExecuteTransaction(context.Background(), func(ctx context.Context, uow *UnitOfWork) error {
			uow.Record(newEvent("ok"))
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, beginner.txs[0].commits)
		assert.Len(t, sink.forwarded, 1)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		beginner := &fakeBeginner{}
		sink := &recordingSink{}
		m := newTestManager(beginner, &recordingOutbox{}, sink)
		boom := errors.New("boom")

		err := m.ExecuteTransaction(context.Background(), func(ctx context.Context, uow *UnitOfWork) error {
			uow.Record(newEvent("discarded"))
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 0, beginner.txs[0].commits)
		assert.Equal(t, 1, beginner.txs[0].rollbacks)
		assert.Empty(t, sink.forwarded)
	})
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, ErrConcurrencyConflict},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, ErrConcurrencyConflict},
		{"lock not available", &pgconn.PgError{Code: "55P03"}, ErrConcurrencyConflict},
		{"no rows", pgx.ErrNoRows, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, MapError(tt.err), tt.want)
		})
	}

	plain := errors.New("plain")
	assert.Equal(t, plain, MapError(plain))
	assert.Nil(t, MapError(nil))
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsExclusionViolation(&pgconn.PgError{Code: "23P01"}))
}
