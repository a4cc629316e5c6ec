package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campbook/internal/events"
	"campbook/pkg/kafka"
	"campbook/pkg/logger"
	"campbook/pkg/metrics"
	"campbook/pkg/model"
	"campbook/pkg/retry"
	"campbook/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	defaultConcurrency = 8
	forwardTimeout     = 15 * time.Second
)

// MessagePublisher is satisfied by *kafka.Producer
type MessagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// SentMarker flags outbox rows once their event reached the bus
type SentMarker interface {
	MarkSent(ctx context.Context, eventIDs []string) error
}

type PublisherConfig struct {
	Source      string
	MaxAttempts int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
	Concurrency int
}

// Publisher ships domain events to the bus. Broker hiccups are retried with
// backoff; an event that cannot be serialized fails straight away.
type Publisher struct {
	producer    MessagePublisher
	store       SentMarker
	source      string
	policy      retry.Policy
	concurrency int
	log         *logger.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
}

func NewPublisher(producer MessagePublisher, store SentMarker, cfg PublisherConfig, log *logger.Logger, m *metrics.Metrics) *Publisher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Publisher{
		producer: producer,
		store:    store,
		source:   cfg.Source,
		policy: retry.Policy{
			MaxAttempts: cfg.MaxAttempts,
			BaseDelay:   cfg.BackoffMin,
			MaxDelay:    cfg.BackoffMax,
			Retryable:   func(err error) bool { return kafka.ClassifyError(err) == kafka.ErrorTypeTransient },
		},
		concurrency: cfg.Concurrency,
		log:         log,
		metrics:     m,
		tracer:      tracing.Tracer("campbook/outbox"),
	}
}

// Publish encodes and sends a single event
func (p *Publisher) Publish(ctx context.Context, event model.Event) error {
	env, err := events.Encode(event)
	if err != nil {
		return err
	}
	return p.publishEnvelope(ctx, env)
}

// PublishBatch sends events independently; one failure does not hold back
// the others. The returned error joins every per-event failure.
func (p *Publisher) PublishBatch(ctx context.Context, evts []model.Event) error {
	envs := make([]events.Envelope, 0, len(evts))
	var errs []error
	for _, e := range evts {
		env, err := events.Encode(e)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		envs = append(envs, env)
	}

	for i, err := range p.PublishEnvelopes(ctx, envs) {
		if err != nil {
			errs = append(errs, fmt.Errorf("event %s: %w", envs[i].EventID, err))
		}
	}
	return errors.Join(errs...)
}

// PublishEnvelopes sends already encoded events concurrently and returns one
// error slot per envelope, nil for the ones that were delivered.
func (p *Publisher) PublishEnvelopes(ctx context.Context, envs []events.Envelope) []error {
	results := make([]error, len(envs))

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i := range envs {
		g.Go(func() error {
			results[i] = p.publishEnvelope(ctx, envs[i])
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Forward implements postgres.EventSink. It runs right after commit, marks
// delivered rows as sent and leaves the rest to the relay.
func (p *Publisher) Forward(ctx context.Context, evts []model.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), forwardTimeout)
	defer cancel()

	envs := make([]events.Envelope, 0, len(evts))
	for _, e := range evts {
		env, err := events.Encode(e)
		if err != nil {
			// Append already encoded it once, so this cannot normally happen
			p.log.Error("Failed to encode committed event", "event_id", e.EventID(), "error", err)
			continue
		}
		envs = append(envs, env)
	}

	sent := make([]string, 0, len(envs))
	for i, err := range p.PublishEnvelopes(ctx, envs) {
		if err != nil {
			p.log.Warn("Event not published after commit, relay will retry",
				"event_id", envs[i].EventID, "event_type", envs[i].EventType, "error", err)
			continue
		}
		sent = append(sent, envs[i].EventID)
	}

	if len(sent) == 0 || p.store == nil {
		return
	}
	if err := p.store.MarkSent(ctx, sent); err != nil {
		p.log.Error("Failed to mark outbox rows sent", "count", len(sent), "error", err)
		return
	}
	p.count("sent", len(sent))
}

func (p *Publisher) publishEnvelope(ctx context.Context, env events.Envelope) error {
	ctx, span := p.tracer.Start(ctx, "publish "+env.EventType,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("event.type", env.EventType),
			attribute.String("event.id", env.EventID),
		),
	)
	defer span.End()

	msg, err := env.Message(ctx, p.source)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode failed")
		return err
	}

	policy := p.policy
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		p.log.Warn("Publish failed, retrying",
			"event_id", env.EventID, "attempt", attempt, "backoff", delay, "error", err)
	}

	attempts, err := retry.Do(ctx, policy, func(ctx context.Context, _ int) error {
		return p.producer.Publish(ctx, msg)
	})
	span.SetAttributes(attribute.Int("publish.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		return fmt.Errorf("publish %s after %d attempt(s): %w", env.EventType, attempts, err)
	}
	return nil
}

func (p *Publisher) count(result string, n int) {
	if p.metrics != nil {
		p.metrics.OutboxRows.WithLabelValues(result).Add(float64(n))
	}
}
