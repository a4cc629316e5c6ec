package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campbook/internal/events"
	"campbook/pkg/db/postgres"
	"campbook/pkg/model"
	"campbook/pkg/tracing"

	"github.com/jackc/pgx/v5"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSent       Status = "sent"
	StatusDead       Status = "dead"
)

// DB is satisfied by *pgxpool.Pool
type DB interface {
	postgres.Beginner
	postgres.DBTX
}

// Store keeps events in the outbox table until they reach the bus
type Store struct {
	db DB
}

func NewStore(db DB) *Store {
	return &Store{db: db}
}

const insertOutboxSQL = `
	INSERT INTO outbox (event_id, event_type, aggregate_id, payload, traceparent, occurred_on)
	SELECT e, t, a, p::jsonb, tp, o
	FROM unnest($1::text[], $2::text[], $3::bigint[], $4::text[], $5::text[], $6::timestamptz[])
		AS u(e, t, a, p, tp, o)`

// Append implements postgres.OutboxWriter: events are stored in tx, in the
// order given, along with the caller's trace context.
func (s *Store) Append(ctx context.Context, tx postgres.DBTX, evts []model.Event) error {
	if len(evts) == 0 {
		return nil
	}

	carrier := map[string]string{}
	tracing.InjectHeaders(ctx, carrier)
	traceparent := carrier[tracing.TraceparentHeader]

	n := len(evts)
	ids, types, payloads := make([]string, 0, n), make([]string, 0, n), make([]string, 0, n)
	aggregates, parents, occurred := make([]int64, 0, n), make([]string, 0, n), make([]time.Time, 0, n)

	for _, e := range evts {
		env, err := events.Encode(e)
		if err != nil {
			return err
		}
		ids = append(ids, env.EventID)
		types = append(types, env.EventType)
		aggregates = append(aggregates, env.AggregateID)
		payloads = append(payloads, string(env.Payload))
		parents = append(parents, traceparent)
		occurred = append(occurred, env.OccurredOn)
	}

	if _, err := tx.Exec(ctx, insertOutboxSQL, ids, types, aggregates, payloads, parents, occurred); err != nil {
		return fmt.Errorf("insert outbox rows: %w", err)
	}
	return nil
}

const lockBatchSQL = `
	SELECT event_id, event_type, aggregate_id, payload, traceparent, occurred_on
	FROM outbox
	WHERE (status = 'pending' AND created_at < now() - make_interval(secs => $2))
	   OR (status = 'in_progress' AND lease_until < now())
	ORDER BY id
	LIMIT $1
	FOR UPDATE SKIP LOCKED`

// LockBatch leases up to limit rows to relayID. Fresh pending rows are left
// alone for one lease period so the post-commit publish gets the first try.
func (s *Store) LockBatch(ctx context.Context, relayID string, limit int, lease time.Duration) ([]events.Envelope, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	rows, err := tx.Query(ctx, lockBatchSQL, limit, lease.Seconds())
	if err != nil {
		return nil, fmt.Errorf("select outbox batch: %w", err)
	}

	var batch []events.Envelope
	for rows.Next() {
		var env events.Envelope
		var payload []byte
		if err := rows.Scan(&env.EventID, &env.EventType, &env.AggregateID, &payload, &env.Traceparent, &env.OccurredOn); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		env.Payload = payload
		batch = append(batch, env)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(batch) == 0 {
		return nil, tx.Commit(ctx)
	}

	ids := make([]string, 0, len(batch))
	for _, env := range batch {
		ids = append(ids, env.EventID)
	}

	_, err = tx.Exec(ctx, `
		UPDATE outbox
		SET status = 'in_progress', relay_id = $1, lease_until = now() + make_interval(secs => $2)
		WHERE event_id = ANY($3)`, relayID, lease.Seconds(), ids)
	if err != nil {
		return nil, fmt.Errorf("lease outbox batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return batch, nil
}

func (s *Store) MarkSent(ctx context.Context, eventIDs []string) error {
	if len(eventIDs) == 0 {
		return nil
	}
	_, err := s.db.Exec(ctx, `
		UPDATE outbox
		SET status = 'sent', sent_at = now(), relay_id = NULL, lease_until = NULL
		WHERE event_id = ANY($1) AND status <> 'sent'`, eventIDs)
	if err != nil {
		return fmt.Errorf("mark outbox rows sent: %w", err)
	}
	return nil
}

// MarkFailed records a failed publish. Once maxAttempts is reached the row is
// parked as dead and reported so.
func (s *Store) MarkFailed(ctx context.Context, eventID, reason string, maxAttempts int) (bool, error) {
	var status Status
	err := s.db.QueryRow(ctx, `
		UPDATE outbox
		SET attempts = attempts + 1,
			last_error = $2,
			status = CASE WHEN attempts + 1 >= $3 THEN 'dead' ELSE 'pending' END,
			relay_id = NULL,
			lease_until = NULL
		WHERE event_id = $1 AND status <> 'sent'
		RETURNING status`, eventID, reason, maxAttempts).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("mark outbox row failed: %w", err)
	}
	return status == StatusDead, nil
}

// Pending counts rows that still have to reach the bus
func (s *Store) Pending(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM outbox WHERE status IN ('pending', 'in_progress')`).Scan(&n)
	return n, err
}
