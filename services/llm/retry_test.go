package llm

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond}
}

func TestRetrySucceedsAfterRateLimit(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastPolicy(), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &APIError{StatusCode: http.StatusTooManyRequests}
		}
		return "done", nil
	})
	if err != nil {
		t.Fatalf("Retry returned error: %v", err)
	}
	if got != "done" || calls != 3 {
		t.Fatalf("got %q after %d calls", got, calls)
	}
}

func TestRetryExhausted(t *testing.T) {
	calls := 0
	last := &APIError{StatusCode: http.StatusTooManyRequests, Body: "third"}
	_, err := Retry(context.Background(), fastPolicy(), func(ctx context.Context) (int, error) {
		calls++
		if calls == 3 {
			return 0, last
		}
		return 0, &APIError{StatusCode: http.StatusTooManyRequests}
	})
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr != last {
		t.Fatalf("expected last error to be wrapped, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestRetryDoesNotRetryOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(), func(ctx context.Context) (int, error) {
		calls++
		return 0, boom
	})
	if !errors.Is(err, boom) || errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected original error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestRetryUsesProviderHint(t *testing.T) {
	var waits []time.Duration
	policy := RetryPolicy{
		MaxAttempts: 2,
		Delay:       time.Hour,
		OnRetry: func(attempt int, wait time.Duration, err error) {
			waits = append(waits, wait)
		},
	}
	calls := 0
	_, err := Retry(context.Background(), policy, func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, &APIError{StatusCode: http.StatusTooManyRequests, RetryAfter: 2 * time.Millisecond}
		}
		return 1, nil
	})
	if err != nil {
		t.Fatalf("Retry returned error: %v", err)
	}
	if len(waits) != 1 || waits[0] != 2*time.Millisecond {
		t.Fatalf("unexpected waits %v", waits)
	}
}

func TestRetryCancelledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{
		MaxAttempts: 3,
		Delay:       time.Hour,
		OnRetry: func(int, time.Duration, error) {
			cancel()
		},
	}
	_, err := Retry(ctx, policy, func(ctx context.Context) (int, error) {
		return 0, &APIError{StatusCode: http.StatusTooManyRequests}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
