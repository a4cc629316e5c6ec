package outbox

import (
	"context"
	"sync"
	"time"

	"campbook/internal/events"
	"campbook/pkg/kafka"
	"campbook/pkg/model"
)

type fakeProducer struct {
	mu       sync.Mutex
	messages []kafka.Message
	calls    map[string]int
	// failures per event id: how many leading calls fail, and with what
	failFirst map[string]int
	failWith  error
}

func newFakeProducer() *fakeProducer {
	return &fakeProducer{calls: map[string]int{}, failFirst: map[string]int{}}
}

func (p *fakeProducer) Publish(_ context.Context, msg kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := msg.GetEventID()
	p.calls[id]++
	if p.calls[id] <= p.failFirst[id] {
		return p.failWith
	}
	p.messages = append(p.messages, msg)
	return nil
}

func (p *fakeProducer) Published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.messages))
	for _, m := range p.messages {
		ids = append(ids, m.GetEventID())
	}
	return ids
}

type fakeStore struct {
	mu       sync.Mutex
	batch    []events.Envelope
	sent     []string
	failed   map[string]int
	deadAt   int
	lockErr  error
	markErr  error
	relayIDs []string
}

func newFakeStore(batch ...events.Envelope) *fakeStore {
	return &fakeStore{batch: batch, failed: map[string]int{}}
}

func (s *fakeStore) LockBatch(_ context.Context, relayID string, limit int, _ time.Duration) ([]events.Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lockErr != nil {
		return nil, s.lockErr
	}
	s.relayIDs = append(s.relayIDs, relayID)
	n := min(limit, len(s.batch))
	out := s.batch[:n]
	s.batch = s.batch[n:]
	return out, nil
}

func (s *fakeStore) MarkSent(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return s.markErr
	}
	s.sent = append(s.sent, ids...)
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, id, _ string, maxAttempts int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[id]++
	return s.failed[id] >= maxAttempts, nil
}

func (s *fakeStore) Sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

var now = time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)

func bookingConfirmed(id string, bookingID int64) model.BookingConfirmed {
	return model.BookingConfirmed{
		EventMeta: model.EventMeta{ID: id, Type: model.EventBookingConfirmed, Occurred: now},
		BookingID: bookingID,
		GuestID:   7,
		StartDate: "2025-06-01",
		EndDate:   "2025-06-10",
	}
}

type unknownEvent struct{ model.EventMeta }

func (unknownEvent) AggregateID() int64 { return 1 }
