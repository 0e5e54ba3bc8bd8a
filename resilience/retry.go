package resilience

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/hollowmap/cartographer/core"
)

// RetryConfig tunes Retry's exponential backoff.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	JitterEnabled bool
}

// DefaultRetryConfig matches the dispatcher's per-model budget S=3 from
// spec §4.1.c, with a 250ms starting backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   core.DefaultDispatchRetries,
		InitialDelay:  250 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
		JitterEnabled: true,
	}
}

// Retry calls fn up to config.MaxAttempts times, sleeping an exponentially
// growing, jittered delay between attempts. It stops early if ctx is
// cancelled or if fn returns a non-retryable error (checked with
// core.IsRetryable); a non-retryable error is returned immediately without
// being wrapped. Exhausting the attempt budget wraps the last error with
// core.ErrMaxRetriesExceeded.
func Retry(ctx context.Context, config RetryConfig, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !core.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == config.MaxAttempts-1 {
			break
		}

		delay := backoffDelay(config, attempt)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("resilience.Retry: %w: %v", core.ErrMaxRetriesExceeded, lastErr)
}

func backoffDelay(config RetryConfig, attempt int) time.Duration {
	delay := float64(config.InitialDelay) * math.Pow(config.BackoffFactor, float64(attempt))
	if config.JitterEnabled {
		delay = delay * (0.5 + rand.Float64()*0.5)
	}
	d := time.Duration(delay)
	if d > config.MaxDelay {
		d = config.MaxDelay
	}
	return d
}

// RetryWithCircuitBreaker runs fn through both Retry and a circuit breaker:
// the breaker is checked before each attempt and updated after, so an open
// breaker short-circuits the remaining retry budget instead of burning it.
func RetryWithCircuitBreaker(ctx context.Context, config RetryConfig, cb *CircuitBreaker, fn func() error) error {
	return Retry(ctx, config, func() error {
		return cb.Execute(ctx, fn)
	})
}
