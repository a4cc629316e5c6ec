package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"campbook/internal/events"
	"campbook/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envelope(t *testing.T, id string, bookingID int64) events.Envelope {
	t.Helper()
	env, err := events.Encode(bookingConfirmed(id, bookingID))
	require.NoError(t, err)
	return env
}

func newTestRelay(store RelayStore, producer MessagePublisher, maxAttempts int) *Relay {
	return NewRelay(logger.NewNop(), store, newTestPublisher(producer, nil), RelayConfig{
		ID:          "relay-1",
		BatchSize:   10,
		Interval:    5 * time.Millisecond,
		Lease:       time.Second,
		MaxAttempts: maxAttempts,
	})
}

func TestRelay_RunOncePublishesAndMarks(t *testing.T) {
	store := newFakeStore(envelope(t, "evt-1", 1), envelope(t, "evt-2", 2))
	producer := newFakeProducer()

	n, err := newTestRelay(store, producer, 5).RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []string{"evt-1", "evt-2"}, store.Sent())
	assert.Equal(t, []string{"relay-1"}, store.relayIDs)
}

func TestRelay_FailedRowsAreRecorded(t *testing.T) {
	store := newFakeStore(envelope(t, "evt-1", 1), envelope(t, "evt-2", 2))
	producer := newFakeProducer()
	producer.failFirst["evt-2"] = 100
	producer.failWith = errBrokerDown

	n, err := newTestRelay(store, producer, 5).RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"evt-1"}, store.Sent())
	assert.Equal(t, 1, store.failed["evt-2"])
}

func TestRelay_DeadAfterMaxAttempts(t *testing.T) {
	env := envelope(t, "evt-1", 1)
	store := newFakeStore()
	producer := newFakeProducer()
	producer.failFirst["evt-1"] = 1000
	producer.failWith = errBrokerDown

	relay := newTestRelay(store, producer, 2)
	for range 2 {
		store.batch = []events.Envelope{env}
		_, err := relay.RunOnce(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, 2, store.failed["evt-1"])
	assert.Empty(t, store.Sent())
}

func TestRelay_EmptyBatch(t *testing.T) {
	n, err := newTestRelay(newFakeStore(), newFakeProducer(), 5).RunOnce(context.Background())

	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRelay_LockError(t *testing.T) {
	store := newFakeStore()
	store.lockErr = errors.New("connection refused")

	_, err := newTestRelay(store, newFakeProducer(), 5).RunOnce(context.Background())
	assert.ErrorIs(t, err, store.lockErr)
}

func TestRelay_RunStopsOnCancel(t *testing.T) {
	store := newFakeStore(envelope(t, "evt-1", 1))
	relay := newTestRelay(store, newFakeProducer(), 5)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	require.Eventually(t, func() bool { return len(store.Sent()) == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
