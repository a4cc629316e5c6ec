package kafka_middleware

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"campbook/pkg/kafka"
	"campbook/pkg/logger"
	"campbook/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func testMessage() kafka.Message {
	return kafka.Message{
		Topic:   "campbook.events",
		Key:     "booking.created",
		Value:   []byte(`{}`),
		Headers: map[string]string{kafka.HeaderEventID: "evt-1", kafka.HeaderEventType: "booking.created"},
	}
}

func TestLoggingConsumerMiddleware_LogsFailures(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Output: &buf, Level: logger.DEBUG})

	mw := LoggingConsumerMiddleware(log)
	err := mw(context.Background(), testMessage(), func(context.Context, kafka.Message) error {
		return errors.New("handler exploded")
	})

	assert.EqualError(t, err, "handler exploded")
	assert.Contains(t, buf.String(), "Failed to process message")
	assert.Contains(t, buf.String(), "evt-1")
}

func TestLoggingProducerMiddleware_PassesThrough(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Output: &buf, Level: logger.DEBUG})

	mw := LoggingProducerMiddleware(log)
	err := mw(context.Background(), testMessage(), func(context.Context, kafka.Message) error { return nil })

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Published message")
}

func TestMetricsConsumerMiddleware(t *testing.T) {
	m := metrics.NewNop()
	mw := MetricsConsumerMiddleware(m)

	_ = mw(context.Background(), testMessage(), func(context.Context, kafka.Message) error { return nil })
	_ = mw(context.Background(), testMessage(), func(context.Context, kafka.Message) error { return errors.New("boom") })

	ok := m.MessagesConsumed.WithLabelValues("campbook.events", "booking.created", metrics.OutcomeSuccess)
	failed := m.MessagesConsumed.WithLabelValues("campbook.events", "booking.created", metrics.OutcomeError)
	assert.Equal(t, float64(1), testutil.ToFloat64(ok))
	assert.Equal(t, float64(1), testutil.ToFloat64(failed))
}

func TestMetricsProducerMiddleware(t *testing.T) {
	m := metrics.NewNop()
	mw := MetricsProducerMiddleware(m)

	_ = mw(context.Background(), testMessage(), func(context.Context, kafka.Message) error { return nil })

	ok := m.MessagesPublished.WithLabelValues("campbook.events", "booking.created", metrics.OutcomeSuccess)
	assert.Equal(t, float64(1), testutil.ToFloat64(ok))
}
