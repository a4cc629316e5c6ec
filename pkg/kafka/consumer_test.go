package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"campbook/pkg/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errHandler = errors.New("smtp unavailable")

func testPolicy(maxRetries int) retry.Policy {
	return retry.Policy{MaxAttempts: maxRetries + 1, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func startConsumer(t *testing.T, c *Consumer) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()
	t.Cleanup(cancel)
	return cancel, done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
		return nil
	}
}

func TestConsumer_CommitsOnlyAfterSuccessfulRetry(t *testing.T) {
	reader := newFakeReader(eventMessage(7, "evt-1"))
	dlq := &fakeWriter{}

	var calls atomic.Int32
	var mu sync.Mutex
	var delivered []string
	handler := func(_ context.Context, msg Message) error {
		if calls.Add(1) == 1 {
			assert.Empty(t, reader.Committed(), "nothing may be committed before the handler succeeds")
			return errHandler
		}
		mu.Lock()
		delivered = append(delivered, msg.GetEventID())
		mu.Unlock()
		return nil
	}

	c := newConsumer(reader, dlq, "campbook.events", "notifier", "campbook.events.dlq", testPolicy(3), handler, nil)
	cancel, done := startConsumer(t, c)

	require.Eventually(t, func() bool { return len(reader.Committed()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, waitDone(t, done), context.Canceled)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []string{"evt-1"}, delivered)
	assert.Equal(t, int64(7), reader.Committed()[0].Offset)
	assert.Empty(t, dlq.Written())
}

func TestConsumer_DeadLettersAfterRetriesThenCommits(t *testing.T) {
	reader := newFakeReader(eventMessage(3, "evt-2"))
	dlq := &fakeWriter{}

	var calls atomic.Int32
	handler := func(context.Context, Message) error {
		calls.Add(1)
		return errHandler
	}

	c := newConsumer(reader, dlq, "campbook.events", "notifier", "campbook.events.dlq", testPolicy(2), handler, nil)
	cancel, done := startConsumer(t, c)

	require.Eventually(t, func() bool { return len(reader.Committed()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	waitDone(t, done)

	assert.Equal(t, int32(3), calls.Load())

	written := dlq.Written()
	require.Len(t, written, 1)
	dead := written[0]
	assert.Equal(t, "booking.created", string(dead.Key))
	assert.Equal(t, "evt-2", headerValue(dead, HeaderEventID))
	assert.Equal(t, "campbook.events", headerValue(dead, HeaderOriginalTopic))
	assert.Equal(t, errHandler.Error(), headerValue(dead, HeaderDLQError))
	assert.Equal(t, "notifier", headerValue(dead, HeaderDLQGroup))
	assert.Equal(t, "3", headerValue(dead, HeaderDLQOffset))
	assert.Equal(t, "2", headerValue(dead, HeaderRetryCount))
}

func TestConsumer_PermanentErrorSkipsRetries(t *testing.T) {
	reader := newFakeReader(eventMessage(1, "evt-3"))
	dlq := &fakeWriter{}

	var calls atomic.Int32
	handler := func(context.Context, Message) error {
		calls.Add(1)
		return NewPermanentError("unknown guest", errHandler)
	}

	c := newConsumer(reader, dlq, "campbook.events", "notifier", "campbook.events.dlq", testPolicy(5), handler, nil)
	cancel, done := startConsumer(t, c)

	require.Eventually(t, func() bool { return len(reader.Committed()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	waitDone(t, done)

	assert.Equal(t, int32(1), calls.Load())
	assert.Len(t, dlq.Written(), 1)
}

func TestConsumer_DLQFailureLeavesOffsetUncommitted(t *testing.T) {
	reader := newFakeReader(eventMessage(9, "evt-4"), eventMessage(10, "evt-5"))
	dlq := &fakeWriter{err: errors.New("broker down")}

	handler := func(context.Context, Message) error { return errHandler }

	c := newConsumer(reader, dlq, "campbook.events", "notifier", "campbook.events.dlq", testPolicy(0), handler, nil)
	_, done := startConsumer(t, c)

	err := waitDone(t, done)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Empty(t, reader.Committed())
}

func TestConsumer_NoDLQStopsWithoutCommit(t *testing.T) {
	reader := newFakeReader(eventMessage(2, "evt-6"))
	handler := func(context.Context, Message) error { return errHandler }

	c := newConsumer(reader, nil, "campbook.events", "notifier", "", testPolicy(1), handler, nil)
	_, done := startConsumer(t, c)

	err := waitDone(t, done)
	assert.ErrorIs(t, err, errHandler)
	assert.Empty(t, reader.Committed())
}

func TestConsumer_ShutdownDuringBackoffAbandonsMessage(t *testing.T) {
	reader := newFakeReader(eventMessage(4, "evt-7"))
	dlq := &fakeWriter{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := func(context.Context, Message) error {
		cancel()
		return errHandler
	}

	policy := retry.Policy{MaxAttempts: 5, BaseDelay: time.Hour}
	c := newConsumer(reader, dlq, "campbook.events", "notifier", "campbook.events.dlq", policy, handler, nil)

	err := c.Start(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, reader.Committed())
	assert.Empty(t, dlq.Written())
}

func TestConsumer_InFlightSuccessCommitsDespiteShutdown(t *testing.T) {
	reader := newFakeReader(eventMessage(5, "evt-8"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := func(context.Context, Message) error {
		cancel()
		return nil
	}

	c := newConsumer(reader, nil, "campbook.events", "notifier", "", testPolicy(1), handler, nil)

	err := c.Start(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, reader.Committed(), 1)
	assert.Equal(t, int64(5), reader.Committed()[0].Offset)
}

func TestConsumer_MiddlewareOrder(t *testing.T) {
	reader := newFakeReader(eventMessage(0, "evt-9"))

	var mu sync.Mutex
	var order []string
	record := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, s)
	}

	handler := func(context.Context, Message) error {
		record("handler")
		return nil
	}

	c := newConsumer(reader, nil, "campbook.events", "notifier", "", testPolicy(0), handler, nil)
	for _, name := range []string{"outer", "inner"} {
		c.Use(func(ctx context.Context, msg Message, next MessageHandler) error {
			record(name)
			return next(ctx, msg)
		})
	}

	cancel, done := startConsumer(t, c)
	require.Eventually(t, func() bool { return len(reader.Committed()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	waitDone(t, done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestConsumer_ReaderClosed(t *testing.T) {
	reader := newFakeReader()
	reader.fetchErr = io.EOF

	c := newConsumer(reader, nil, "campbook.events", "notifier", "", testPolicy(0), func(context.Context, Message) error { return nil }, nil)

	assert.ErrorIs(t, c.Start(context.Background()), ErrConsumerClosed)
}

func TestConsumer_CloseWaitsAndReleases(t *testing.T) {
	reader := newFakeReader()
	dlq := &fakeWriter{}
	c := newConsumer(reader, dlq, "campbook.events", "notifier", "campbook.events.dlq", testPolicy(0), func(context.Context, Message) error { return nil }, nil)

	cancel, done := startConsumer(t, c)
	cancel()
	waitDone(t, done)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.True(t, reader.closed)
	assert.True(t, dlq.closed)
	assert.ErrorIs(t, c.Start(context.Background()), ErrConsumerClosed)
}

func TestNewConsumer_Validation(t *testing.T) {
	_, err := NewConsumer(nil, "t", "g", "", func(context.Context, Message) error { return nil }, nil)
	assert.Error(t, err)
}
