package services

import (
	"time"

	"github.com/sahilchouksey/ai-course-generator/services/llm"
	"github.com/sahilchouksey/ai-course-generator/utils"
)

const maxLoggedRaw = 2000

// retryWithLog returns a copy of policy that logs each rate-limited attempt
func retryWithLog(policy llm.RetryPolicy, log *utils.Logger) llm.RetryPolicy {
	next := policy.OnRetry
	policy.OnRetry = func(attempt int, wait time.Duration, err error) {
		log.Warn("rate limited by model provider, retrying",
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts,
			"wait", wait.String(),
			"error", err,
		)
		if next != nil {
			next(attempt, wait, err)
		}
	}
	return policy
}

func truncateRaw(raw string) string {
	if len(raw) <= maxLoggedRaw {
		return raw
	}
	return raw[:maxLoggedRaw] + "...(truncated)"
}
