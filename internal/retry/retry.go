// Package retry provides a small fixed-backoff retry policy for hardware
// access. The policy is pure data; Do applies it to an arbitrary operation.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy describes how many times an operation may be attempted and how long
// to wait between attempts.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration

	// Retryable, when set, limits retries to errors it reports true for.
	// Any other error fails immediately without consuming the remaining
	// attempts. Nil retries every failure.
	Retryable func(error) bool
}

// Default matches the scanner access policy: three attempts with a two
// second pause between them.
func Default() Policy {
	return Policy{MaxAttempts: 3, Backoff: 2 * time.Second}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Backoff < 0 {
		p.Backoff = 0
	}
	return p
}

// Do runs fn until it succeeds, the policy is exhausted, or the context is
// cancelled. The onRetry callback, when non-nil, is invoked before each
// re-attempt with the upcoming attempt number (2-based) and the previous
// error; it exists so callers can surface "waiting 2s before retry" messages.
func Do(ctx context.Context, policy Policy, fn func(context.Context) error, onRetry func(attempt int, err error)) error {
	policy = policy.normalized()

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if onRetry != nil {
				onRetry(attempt, lastErr)
			}
			timer := time.NewTimer(policy.Backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if policy.Retryable != nil && !policy.Retryable(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("after %d attempts: %w", policy.MaxAttempts, lastErr)
}
