package codegen

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/aimhigh31/work-ten-sub018/internal/counter"
)

// RetryPolicy is a bounded exponential backoff with full jitter.
// Attempts counts the first call, so Attempts=3 means at most two retries.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultRetryPolicy: 3 attempts, 50ms base, 1s cap.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, BaseDelay: 50 * time.Millisecond, MaxDelay: time.Second}
}

// Backoff returns the upper bound of the wait before retry number retry (1-based):
// BaseDelay * 2^(retry-1), capped at MaxDelay.
func (p RetryPolicy) Backoff(retry int) time.Duration {
	if retry < 1 || p.BaseDelay <= 0 {
		return 0
	}
	maxDelay := p.MaxDelay
	if maxDelay < p.BaseDelay {
		maxDelay = p.BaseDelay
	}
	shift := retry - 1
	if shift >= 62 || p.BaseDelay > maxDelay>>uint(shift) {
		return maxDelay
	}
	return p.BaseDelay << uint(shift)
}

// jitter picks a uniformly random wait in [0, Backoff(retry)].
func (p RetryPolicy) jitter(retry int) time.Duration {
	d := p.Backoff(retry)
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(d) + 1))
}

type retryFunc func(attempt int, err error, wait time.Duration)

// retryUnavailable calls fn until it succeeds, returns an error other than
// counter.ErrStoreUnavailable, or the attempts are used up. It reports how many
// attempts were made.
func retryUnavailable(ctx context.Context, p RetryPolicy, fn func(context.Context) (int64, error), onRetry retryFunc) (int64, int, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			wait := p.jitter(attempt - 1)
			if onRetry != nil {
				onRetry(attempt, lastErr, wait)
			}
			if err := sleep(ctx, wait); err != nil {
				return 0, attempt - 1, fmt.Errorf("retry aborted: %w (last error: %w)", err, lastErr)
			}
		}

		n, err := fn(ctx)
		if err == nil {
			return n, attempt, nil
		}
		if !errors.Is(err, counter.ErrStoreUnavailable) {
			return 0, attempt, err
		}
		lastErr = err
	}
	return 0, attempts, fmt.Errorf("gave up after %d attempts: %w", attempts, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
