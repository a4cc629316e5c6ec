package events

import (
	"context"
	"errors"
	"fmt"

	"campbook/pkg/contracts"
	"campbook/pkg/kafka"
	"campbook/pkg/logger"
	"campbook/pkg/metrics"
	"campbook/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Dispatcher routes consumed messages to every handler that accepts their type.
// Messages that cannot be decoded, or that nobody handles, are acknowledged
// so they never block the partition.
type Dispatcher struct {
	handlers []contracts.EventHandler
	log      *logger.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

func NewDispatcher(log *logger.Logger, m *metrics.Metrics, handlers ...contracts.EventHandler) *Dispatcher {
	return &Dispatcher{
		handlers: handlers,
		log:      log,
		metrics:  m,
		tracer:   tracing.Tracer("campbook/events"),
	}
}

// Handle implements kafka.MessageHandler
func (d *Dispatcher) Handle(ctx context.Context, msg kafka.Message) error {
	ctx = tracing.ExtractHeaders(ctx, msg.Headers)
	ctx, span := d.tracer.Start(ctx, "dispatch "+msg.Key,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.destination", msg.Topic),
			attribute.Int64("messaging.kafka.offset", msg.Offset),
		),
	)
	defer span.End()

	event, err := Decode(msg.Value)
	if err != nil {
		reason := "malformed"
		if errors.Is(err, ErrUnknownEventType) {
			reason = "unknown_type"
		}
		d.log.Warn("Skipping undecodable message",
			"reason", reason,
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		d.skip(reason)
		return nil
	}

	span.SetAttributes(
		attribute.String("event.type", event.EventType()),
		attribute.String("event.id", event.EventID()),
	)

	var (
		matched int
		errs    []error
	)
	for _, h := range d.handlers {
		if !h.CanHandle(event.EventType()) {
			continue
		}
		matched++
		if err := h.Handle(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", h.Name(), err))
		}
	}

	if matched == 0 {
		d.log.Debug("No handler for event", "event_type", event.EventType(), "event_id", event.EventID())
		d.skip("unhandled")
		return nil
	}

	if len(errs) > 0 {
		err := errors.Join(errs...)
		span.RecordError(err)
		span.SetStatus(codes.Error, "handler failed")
		return err
	}

	return nil
}

func (d *Dispatcher) skip(reason string) {
	if d.metrics != nil {
		d.metrics.MessagesSkipped.WithLabelValues(reason).Inc()
	}
}
