package outbox

import (
	"context"
	"time"

	"campbook/internal/events"
	"campbook/pkg/logger"
)

// RelayStore is the part of Store the relay drives
type RelayStore interface {
	LockBatch(ctx context.Context, relayID string, limit int, lease time.Duration) ([]events.Envelope, error)
	MarkSent(ctx context.Context, eventIDs []string) error
	MarkFailed(ctx context.Context, eventID, reason string, maxAttempts int) (bool, error)
}

type RelayConfig struct {
	ID          string
	BatchSize   int
	Interval    time.Duration
	Lease       time.Duration
	MaxAttempts int
}

// Relay republishes outbox rows whose post-commit publish never happened,
// e.g. because the process died between commit and publish.
type Relay struct {
	log       *logger.Logger
	store     RelayStore
	publisher *Publisher
	cfg       RelayConfig
}

func NewRelay(log *logger.Logger, store RelayStore, publisher *Publisher, cfg RelayConfig) *Relay {
	return &Relay{
		log:       log.With("relay_id", cfg.ID),
		store:     store,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (r *Relay) Run(ctx context.Context) error {
	t := time.NewTicker(r.cfg.Interval)
	defer t.Stop()

	r.log.Info("Outbox relay started", "interval", r.cfg.Interval, "batch_size", r.cfg.BatchSize)

	for {
		select {
		case <-ctx.Done():
			r.log.Info("Outbox relay stopping")
			return nil
		case <-t.C:
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				r.log.Error("Outbox relay cycle failed", "error", err)
			}
		}
	}
}

// RunOnce processes a single batch and returns how many rows were sent
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	batch, err := r.store.LockBatch(ctx, r.cfg.ID, r.cfg.BatchSize, r.cfg.Lease)
	if err != nil {
		return 0, err
	}
	if len(batch) == 0 {
		return 0, nil
	}

	sent := make([]string, 0, len(batch))
	for i, err := range r.publisher.PublishEnvelopes(ctx, batch) {
		env := batch[i]
		if err == nil {
			sent = append(sent, env.EventID)
			continue
		}

		dead, markErr := r.store.MarkFailed(ctx, env.EventID, err.Error(), r.cfg.MaxAttempts)
		switch {
		case markErr != nil:
			r.log.Error("Failed to record outbox publish failure", "event_id", env.EventID, "error", markErr)
		case dead:
			r.log.Error("Outbox event parked as dead after repeated publish failures",
				"event_id", env.EventID, "event_type", env.EventType, "error", err)
			r.publisher.count("dead", 1)
		default:
			r.log.Warn("Outbox event publish failed", "event_id", env.EventID, "error", err)
			r.publisher.count("failed", 1)
		}
	}

	if len(sent) > 0 {
		if err := r.store.MarkSent(ctx, sent); err != nil {
			return 0, err
		}
		r.publisher.count("sent", len(sent))
		r.log.Info("Outbox relay published events", "count", len(sent))
	}
	return len(sent), nil
}
