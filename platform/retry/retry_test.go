package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadrouter_backend/platform/apperr"
)

func testPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	result := testPolicy(3).Do(context.Background(), func(ctx context.Context) error {
		return nil
	})

	if result.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %s, want success", result.Outcome)
	}
	if result.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", result.Attempts)
	}
}

func TestDoRetriesUnavailableThenSucceeds(t *testing.T) {
	calls := 0
	result := testPolicy(5).Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return apperr.Unavailable("crm unreachable")
		}
		return nil
	})

	if result.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %s, want success", result.Outcome)
	}
	if result.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", result.Attempts)
	}
}

func TestDoPersistentConflictReportsConflict(t *testing.T) {
	result := testPolicy(3).Do(context.Background(), func(ctx context.Context) error {
		return apperr.Conflict("lost cas")
	})

	if result.Outcome != OutcomeConflict {
		t.Fatalf("outcome = %s, want conflict", result.Outcome)
	}
	if result.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", result.Attempts)
	}
}

func TestDoPersistentUnavailableReportsExhausted(t *testing.T) {
	result := testPolicy(2).Do(context.Background(), func(ctx context.Context) error {
		return apperr.Unavailable("still down")
	})

	if result.Outcome != OutcomeExhausted {
		t.Fatalf("outcome = %s, want exhausted", result.Outcome)
	}
}

func TestDoNonRetryableStopsImmediately(t *testing.T) {
	calls := 0
	result := testPolicy(5).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("boom")
	})

	if result.Outcome != OutcomeFailed {
		t.Fatalf("outcome = %s, want failed", result.Outcome)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
