package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics groups every collector the services export
type Metrics struct {
	// HTTP requests by method, route and status code
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Reservation attempts by result: success, spot_unavailable, conflict, invalid, error
	ReservationsTotal *prometheus.CounterVec

	// Booking status changes by target status
	BookingTransitions *prometheus.CounterVec

	// Bus traffic by topic, event type and outcome
	MessagesPublished *prometheus.CounterVec
	PublishDuration   *prometheus.HistogramVec
	MessagesConsumed  *prometheus.CounterVec
	ConsumeDuration   *prometheus.HistogramVec

	// Messages skipped by the dispatcher, by reason: malformed, unhandled, duplicate
	MessagesSkipped *prometheus.CounterVec

	// Outbox rows by result: sent, failed, dead
	OutboxRows *prometheus.CounterVec
}

// New registers the collectors with the default registry
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors with reg
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	latency := []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: latency,
			},
			[]string{"method", "path"},
		),
		ReservationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campbook_reservations_total",
				Help: "Total number of reservation attempts",
			},
			[]string{"result"},
		),
		BookingTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campbook_booking_transitions_total",
				Help: "Booking status transitions",
			},
			[]string{"status"},
		),
		MessagesPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campbook_messages_published_total",
				Help: "Messages written to the bus",
			},
			[]string{"topic", "event_type", "outcome"},
		),
		PublishDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "campbook_publish_duration_seconds",
				Help:    "Time spent writing a message to the bus",
				Buckets: latency,
			},
			[]string{"topic"},
		),
		MessagesConsumed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campbook_messages_consumed_total",
				Help: "Handler invocations for consumed messages",
			},
			[]string{"topic", "event_type", "outcome"},
		),
		ConsumeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "campbook_consume_duration_seconds",
				Help:    "Time spent handling a consumed message",
				Buckets: latency,
			},
			[]string{"topic"},
		),
		MessagesSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campbook_messages_skipped_total",
				Help: "Consumed messages acknowledged without handling",
			},
			[]string{"reason"},
		),
		OutboxRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campbook_outbox_rows_total",
				Help: "Outbox rows processed by the publisher",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ReservationsTotal,
		m.BookingTransitions,
		m.MessagesPublished,
		m.PublishDuration,
		m.MessagesConsumed,
		m.ConsumeDuration,
		m.MessagesSkipped,
		m.OutboxRows,
	)

	return m
}

// NewNop returns metrics bound to a private registry, for tests and tools
func NewNop() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// Outcome maps an operation error to the outcome label
func Outcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	var labeled interface{ MetricLabel() string }
	if errors.As(err, &labeled) {
		return labeled.MetricLabel()
	}
	return OutcomeError
}
