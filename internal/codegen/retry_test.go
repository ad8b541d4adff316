package codegen

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimhigh31/work-ten-sub018/internal/counter"
)

func TestRetryPolicy_Backoff(t *testing.T) {
	p := RetryPolicy{Attempts: 3, BaseDelay: 50 * time.Millisecond, MaxDelay: time.Second}

	assert.Equal(t, time.Duration(0), p.Backoff(0))
	assert.Equal(t, 50*time.Millisecond, p.Backoff(1))
	assert.Equal(t, 100*time.Millisecond, p.Backoff(2))
	assert.Equal(t, 200*time.Millisecond, p.Backoff(3))
	assert.Equal(t, 800*time.Millisecond, p.Backoff(5))
	assert.Equal(t, time.Second, p.Backoff(6))
	assert.Equal(t, time.Second, p.Backoff(200))

	for i := 0; i < 100; i++ {
		d := p.jitter(2)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 100*time.Millisecond)
	}
}

func unavailableErr() error {
	return fmt.Errorf("increment COST/2025: %w: %w", counter.ErrStoreUnavailable, errors.New("connection refused"))
}

func TestRetryUnavailable(t *testing.T) {
	fast := RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	ctx := context.Background()

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls, retries := 0, 0
		n, attempts, err := retryUnavailable(ctx, fast, func(context.Context) (int64, error) {
			calls++
			if calls < 3 {
				return 0, unavailableErr()
			}
			return 42, nil
		}, func(int, error, time.Duration) { retries++ })
		require.NoError(t, err)
		assert.Equal(t, int64(42), n)
		assert.Equal(t, 3, attempts)
		assert.Equal(t, 2, retries)
	})

	t.Run("gives up after the configured attempts", func(t *testing.T) {
		calls := 0
		_, attempts, err := retryUnavailable(ctx, fast, func(context.Context) (int64, error) {
			calls++
			return 0, unavailableErr()
		}, nil)
		require.ErrorIs(t, err, counter.ErrStoreUnavailable)
		assert.Equal(t, 3, calls)
		assert.Equal(t, 3, attempts)
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		for _, want := range []error{counter.ErrConflict, ErrInvalidInput, errors.New("syntax error")} {
			calls := 0
			_, _, err := retryUnavailable(ctx, fast, func(context.Context) (int64, error) {
				calls++
				return 0, want
			}, nil)
			assert.ErrorIs(t, err, want)
			assert.Equal(t, 1, calls)
		}
	})

	t.Run("cancellation aborts the wait", func(t *testing.T) {
		slow := RetryPolicy{Attempts: 3, BaseDelay: time.Hour, MaxDelay: time.Hour}
		cctx, cancel := context.WithCancel(ctx)
		calls := 0
		start := time.Now()
		_, _, err := retryUnavailable(cctx, slow, func(context.Context) (int64, error) {
			calls++
			cancel()
			return 0, unavailableErr()
		}, nil)
		assert.Less(t, time.Since(start), time.Minute)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled during the wait keeps both causes", func(t *testing.T) {
		slow := RetryPolicy{Attempts: 3, BaseDelay: time.Hour, MaxDelay: time.Hour}
		cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, attempts, err := retryUnavailable(cctx, slow, func(context.Context) (int64, error) {
			return 0, unavailableErr()
		}, nil)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.ErrorIs(t, err, counter.ErrStoreUnavailable)
		assert.Equal(t, 1, attempts)
	})
}
