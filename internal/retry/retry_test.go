package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func TestSucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, time.Millisecond, func(error) bool { return true }, nil, func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetriesThenSucceeds(t *testing.T) {
	calls := 0
	retried := 0
	err := Do(context.Background(), 3, time.Millisecond,
		func(err error) bool { return errors.Is(err, errTransient) },
		func(int, error) { retried++ },
		func(context.Context) error {
			calls++
			if calls < 3 {
				return errTransient
			}
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, retried)
}

func TestNonRetryableFailsFast(t *testing.T) {
	fatal := errors.New("fatal")
	calls := 0
	err := Do(context.Background(), 3, time.Millisecond,
		func(err error) bool { return errors.Is(err, errTransient) }, nil,
		func(context.Context) error {
			calls++
			return fatal
		})
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, time.Millisecond,
		func(error) bool { return true }, nil,
		func(context.Context) error {
			calls++
			return errTransient
		})
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, calls)
}

func TestBackoffDoubles(t *testing.T) {
	start := time.Now()
	calls := 0
	_ = Do(context.Background(), 3, 10*time.Millisecond,
		func(error) bool { return true }, nil,
		func(context.Context) error {
			calls++
			return errTransient
		})
	// 10ms + 20ms of backoff between the three attempts.
	assert.Equal(t, 3, calls)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, 5, time.Hour, func(error) bool { return true }, nil, func(context.Context) error {
			calls++
			return errTransient
		})
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
