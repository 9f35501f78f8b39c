package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrGenerationFailed is returned once every attempt was rate limited
var ErrGenerationFailed = errors.New("generation failed after retries")

// RetryPolicy controls Retry. Only rate-limit errors are retried.
type RetryPolicy struct {
	MaxAttempts int
	// Delay is used when the provider does not suggest a wait
	Delay time.Duration
	// MaxDelay caps provider-suggested waits. Zero means no cap.
	MaxDelay time.Duration
	// OnRetry is called before each sleep
	OnRetry func(attempt int, wait time.Duration, err error)
}

// DefaultRetryPolicy matches Groq's per-minute token window
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Delay:       30 * time.Second,
		MaxDelay:    2 * time.Minute,
	}
}

// Retry runs op until it succeeds, fails with a non rate-limit error, or
// runs out of attempts. Exhaustion returns ErrGenerationFailed wrapping the
// last error. Sleeping between attempts stops early when ctx is done.
func Retry[T any](ctx context.Context, policy RetryPolicy, op func(context.Context) (T, error)) (T, error) {
	var zero T

	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if !IsRateLimited(err) {
			return zero, err
		}
		lastErr = err

		if attempt == attempts {
			break
		}

		wait := policy.Delay
		if hint := RetryAfterHint(err); hint > 0 {
			wait = hint
			if policy.MaxDelay > 0 && wait > policy.MaxDelay {
				wait = policy.MaxDelay
			}
		}
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, wait, err)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, fmt.Errorf("%w: %w", ErrGenerationFailed, lastErr)
}
