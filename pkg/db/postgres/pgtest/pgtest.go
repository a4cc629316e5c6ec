// Package pgtest provides in-memory stand-ins for the transaction surface of
// pkg/db/postgres so services can be tested without a database.
package pgtest

import (
	"context"
	"sync"

	"campbook/pkg/db/postgres"
	"campbook/pkg/model"

	"github.com/jackc/pgx/v5"
)

// Tx records commits and rollbacks. Query methods are not implemented and
// panic if a test reaches them.
type Tx struct {
	pgx.Tx

	mu        sync.Mutex
	CommitErr error
	Commits   int
	Rollbacks int
	closed    bool
}

func (t *Tx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	t.Commits++
	return t.CommitErr
}

func (t *Tx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	t.Rollbacks++
	return nil
}

// Beginner hands out a fresh Tx per BeginTx call. CommitErrs are applied to
// the transactions in order.
type Beginner struct {
	mu         sync.Mutex
	Txs        []*Tx
	Options    []pgx.TxOptions
	CommitErrs []error
	BeginErr   error
}

func (b *Beginner) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.BeginErr != nil {
		return nil, b.BeginErr
	}
	tx := &Tx{}
	if len(b.CommitErrs) > 0 {
		tx.CommitErr, b.CommitErrs = b.CommitErrs[0], b.CommitErrs[1:]
	}
	b.Txs = append(b.Txs, tx)
	b.Options = append(b.Options, opts)
	return tx, nil
}

// Sink collects forwarded events.
type Sink struct {
	mu     sync.Mutex
	events []model.Event
}

func (s *Sink) Forward(ctx context.Context, events []model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
}

func (s *Sink) Events() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Event(nil), s.events...)
}

// Outbox collects appended events.
type Outbox struct {
	mu     sync.Mutex
	events []model.Event
	Err    error
}

func (o *Outbox) Append(ctx context.Context, tx postgres.DBTX, events []model.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return o.Err
	}
	o.events = append(o.events, events...)
	return nil
}

func (o *Outbox) Events() []model.Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]model.Event(nil), o.events...)
}
