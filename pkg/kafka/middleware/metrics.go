package kafka_middleware

import (
	"context"
	"time"

	"campbook/pkg/kafka"
	"campbook/pkg/metrics"
)

// MetricsProducerMiddleware records publish outcomes and latency per topic
func MetricsProducerMiddleware(m *metrics.Metrics) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()

		err := next(ctx, msg)

		m.PublishDuration.WithLabelValues(msg.Topic).Observe(time.Since(start).Seconds())
		m.MessagesPublished.WithLabelValues(msg.Topic, msg.GetEventType(), metrics.Outcome(err)).Inc()

		return err
	}
}

// MetricsConsumerMiddleware records handling outcomes and latency per topic
func MetricsConsumerMiddleware(m *metrics.Metrics) kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()

		err := next(ctx, msg)

		m.ConsumeDuration.WithLabelValues(msg.Topic).Observe(time.Since(start).Seconds())
		m.MessagesConsumed.WithLabelValues(msg.Topic, msg.GetEventType(), metrics.Outcome(err)).Inc()

		return err
	}
}
