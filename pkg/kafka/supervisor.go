package kafka

import (
	"context"
	"errors"
	"time"

	"campbook/pkg/logger"
	"campbook/pkg/retry"
)

const maxRestartBackoff = time.Minute

// RunFunc is one lifetime of a worker loop, typically building a Consumer and calling Start.
type RunFunc func(ctx context.Context) error

// Supervise keeps run alive until ctx is cancelled, restarting it with
// exponential backoff whenever it returns early. A run that lasted longer than
// the maximum backoff resets the delay.
func Supervise(ctx context.Context, log *logger.Logger, name string, backoff time.Duration, run RunFunc) {
	policy := retry.Policy{BaseDelay: backoff, MaxDelay: maxRestartBackoff}
	failures := 0

	for {
		started := time.Now()
		err := run(ctx)
		if ctx.Err() != nil {
			log.Info("Worker stopped", "worker", name)
			return
		}

		if time.Since(started) > maxRestartBackoff {
			failures = 0
		}
		failures++
		delay := policy.Delay(failures)

		if err == nil {
			err = errors.New("worker returned without error")
		}
		log.Error("Worker stopped unexpectedly, restarting",
			"worker", name, "error", err, "restart_in", delay, "failures", failures)

		if retry.Sleep(ctx, delay) != nil {
			log.Info("Worker stopped", "worker", name)
			return
		}
	}
}
