// Package retry implements the single retry policy shared by the token
// exchange, diff fetching and review submission call sites. Each caller
// parameterizes attempts, delays and its own retryable predicate.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Policy describes one retry strategy: how many attempts, how delays grow,
// and which errors are worth another attempt.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64

	// Retryable decides whether an error is transient. A nil predicate
	// retries every error.
	Retryable func(error) bool
}

// DefaultPolicy returns the policy used when a call site has no special
// requirements: three attempts, exponential backoff from one second.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
	}
}

// Backoff calculates the wait before the given zero-based attempt with
// ±25% jitter: min(base * multiplier^attempt, max) ± 25%.
func (p Policy) Backoff(attempt int) time.Duration {
	backoff := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt))
	if backoff > float64(p.MaxDelay) {
		backoff = float64(p.MaxDelay)
	}

	jitterRange := 0.25 * backoff
	jitter := (rand.Float64() * 2 * jitterRange) - jitterRange
	result := backoff + jitter

	if result > float64(p.MaxDelay) {
		result = float64(p.MaxDelay)
	}
	if result < 0 {
		result = 0
	}
	return time.Duration(result)
}

// Do executes op until it succeeds, fails with a non-retryable error, the
// attempt budget is exhausted, or the context is cancelled. The last error
// is returned on exhaustion.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == p.MaxAttempts-1 {
			return err
		}

		select {
		case <-time.After(p.Backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
