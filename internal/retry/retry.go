package retry

import (
	"context"
	"time"
)

// Do runs fn up to attempts times, sleeping baseDelay, 2*baseDelay,
// 4*baseDelay, ... between tries. Only errors for which retryable
// returns true are retried; anything else propagates immediately.
// Backoff sleeps abort when ctx is cancelled. onRetry, when set, is
// invoked before each backoff sleep.
func Do(ctx context.Context, attempts int, baseDelay time.Duration, retryable func(error) bool, onRetry func(attempt int, err error), fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	delay := baseDelay
	for attempt := 0; attempt < attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if retryable == nil || !retryable(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return err
}
