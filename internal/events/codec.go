package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"campbook/pkg/kafka"
	"campbook/pkg/model"
	"campbook/pkg/tracing"

	"go.opentelemetry.io/otel/trace"
)

var (
	ErrUnknownEventType = errors.New("unknown event type")
	ErrMalformed        = errors.New("malformed event")
)

// Envelope is an encoded event plus the metadata needed to route and store it
type Envelope struct {
	EventID     string
	EventType   string
	AggregateID int64
	OccurredOn  time.Time
	Payload     json.RawMessage

	// Traceparent is the W3C trace context captured when the event was stored
	Traceparent string
}

type decoder func(data []byte) (model.Event, error)

var registry = map[string]decoder{}

func register[T model.Event](eventType string) {
	registry[eventType] = func(data []byte) (model.Event, error) {
		var e T
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	}
}

func init() {
	register[model.BookingCreated](model.EventBookingCreated)
	register[model.BookingConfirmed](model.EventBookingConfirmed)
	register[model.BookingCancelled](model.EventBookingCancelled)
	register[model.BookingCompleted](model.EventBookingCompleted)
	register[model.PaymentInitiated](model.EventPaymentInitiated)
	register[model.PaymentCompleted](model.EventPaymentCompleted)
	register[model.PaymentFailed](model.EventPaymentFailed)
	register[model.PaymentRefunded](model.EventPaymentRefunded)
	register[model.UserCreated](model.EventUserCreated)
}

// Known reports whether eventType has a registered decoder
func Known(eventType string) bool {
	_, ok := registry[eventType]
	return ok
}

// Encode serializes event together with its type tag
func Encode(event model.Event) (Envelope, error) {
	if event == nil {
		return Envelope{}, fmt.Errorf("%w: nil event", kafka.ErrSerialization)
	}
	if !Known(event.EventType()) {
		return Envelope{}, fmt.Errorf("%w: %w %q", kafka.ErrSerialization, ErrUnknownEventType, event.EventType())
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: %s: %w", kafka.ErrSerialization, event.EventType(), err)
	}

	return Envelope{
		EventID:     event.EventID(),
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredOn:  event.OccurredOn().UTC(),
		Payload:     payload,
	}, nil
}

// Decode rebuilds a typed event from its serialized form
func Decode(data []byte) (model.Event, error) {
	var probe struct {
		ID   string `json:"eventId"`
		Type string `json:"eventType"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return DecodeAs(probe.Type, data)
}

// DecodeAs decodes data as the event registered for eventType
func DecodeAs(eventType string, data []byte) (model.Event, error) {
	decode, ok := registry[eventType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, eventType)
	}

	event, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, eventType, err)
	}
	if event.EventID() == "" || event.EventType() != eventType || event.OccurredOn().IsZero() {
		return nil, fmt.Errorf("%w: %s: missing event metadata", ErrMalformed, eventType)
	}
	return event, nil
}

// Message turns env into a bus message keyed by its type tag, carrying the
// trace context of ctx, or the stored one when ctx has none.
func (env Envelope) Message(ctx context.Context, source string) (kafka.Message, error) {
	if env.Traceparent != "" && !trace.SpanContextFromContext(ctx).IsValid() {
		ctx = tracing.ExtractHeaders(ctx, map[string]string{tracing.TraceparentHeader: env.Traceparent})
	}

	msg, err := kafka.NewMessage().
		WithKey(env.EventType).
		WithRawValue(env.Payload).
		WithEventID(env.EventID).
		WithEventType(env.EventType).
		WithSource(source).
		WithTimestamp(env.OccurredOn).
		Build()
	if err != nil {
		return kafka.Message{}, err
	}
	tracing.InjectHeaders(ctx, msg.Headers)
	return msg, nil
}
