// Package retry provides a bounded retry policy with exponential backoff.
// It replaces ad hoc sleep-then-retry loops with an explicit policy that
// reports a typed outcome instead of a bare error.
package retry

import (
	"context"
	"time"

	"leadrouter_backend/platform/apperr"

	"github.com/sethvargo/go-retry"
)

// Outcome classifies how a retried operation ended.
type Outcome int

const (
	// OutcomeSuccess means the operation eventually succeeded.
	OutcomeSuccess Outcome = iota
	// OutcomeConflict means every attempt lost a concurrent conflict.
	OutcomeConflict
	// OutcomeExhausted means attempts ran out on a retryable failure.
	OutcomeExhausted
	// OutcomeFailed means the operation hit a non-retryable error.
	OutcomeFailed
)

// String returns the outcome label.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeConflict:
		return "conflict"
	case OutcomeExhausted:
		return "exhausted"
	default:
		return "failed"
	}
}

// Result reports how the retried operation ended.
type Result struct {
	Outcome  Outcome
	Attempts int
	Err      error
}

// Policy bounds the retry loop. Conflict and unavailable errors are
// retried; any other error stops the loop immediately.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy is a sensible policy for external pushes.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 5, BaseDelay: 500 * time.Millisecond, MaxDelay: 10 * time.Second}
}

// Do runs fn under the policy and reports a typed result.
func (p Policy) Do(ctx context.Context, fn func(context.Context) error) Result {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	baseDelay := p.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	var backoff retry.Backoff = retry.NewExponential(baseDelay)
	if p.MaxDelay > 0 {
		backoff = retry.WithCappedDuration(p.MaxDelay, backoff)
	}
	backoff = retry.WithMaxRetries(uint64(maxAttempts-1), backoff)

	attempts := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		if err := fn(ctx); err != nil {
			if isRetryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})

	result := Result{Attempts: attempts, Err: err}
	switch {
	case err == nil:
		result.Outcome = OutcomeSuccess
	case apperr.Is(err, apperr.KindConflict):
		result.Outcome = OutcomeConflict
	case isRetryable(err) || ctx.Err() != nil:
		result.Outcome = OutcomeExhausted
	default:
		result.Outcome = OutcomeFailed
	}
	return result
}

func isRetryable(err error) bool {
	kind := apperr.GetKind(err)
	return kind == apperr.KindConflict || kind == apperr.KindUnavailable
}
