package kafka

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"campbook/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupervise_RestartsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	run := func(ctx context.Context) error {
		if runs.Add(1) < 3 {
			return errors.New("dlq unavailable")
		}
		<-ctx.Done()
		return ctx.Err()
	}

	done := make(chan struct{})
	go func() {
		Supervise(ctx, logger.NewNop(), "notifier", time.Millisecond, run)
		close(done)
	}()

	require.Eventually(t, func() bool { return runs.Load() == 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("supervisor did not stop")
	}
	assert.Equal(t, int32(3), runs.Load())
}

func TestSupervise_StopsDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var runs atomic.Int32
	run := func(context.Context) error {
		runs.Add(1)
		cancel()
		return nil
	}

	Supervise(ctx, logger.NewNop(), "notifier", time.Hour, run)
	assert.Equal(t, int32(1), runs.Load())
}
