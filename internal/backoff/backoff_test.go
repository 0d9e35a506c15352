package backoff

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCompute(t *testing.T) {
	policy := Policy{
		Initial: 100 * time.Millisecond,
		Max:     30 * time.Second,
		Factor:  2,
		Jitter:  0,
	}

	t.Run("grows exponentially", func(t *testing.T) {
		cases := map[int]time.Duration{
			1: 100 * time.Millisecond,
			2: 200 * time.Millisecond,
			3: 400 * time.Millisecond,
			4: 800 * time.Millisecond,
		}
		for attempt, want := range cases {
			if got := Compute(policy, attempt); got != want {
				t.Errorf("attempt %d: expected %v, got %v", attempt, want, got)
			}
		}
	})

	t.Run("caps at max", func(t *testing.T) {
		if got := Compute(policy, 20); got != policy.Max {
			t.Errorf("expected cap %v, got %v", policy.Max, got)
		}
	})

	t.Run("attempt zero behaves like first attempt", func(t *testing.T) {
		if got := Compute(policy, 0); got != 100*time.Millisecond {
			t.Errorf("expected 100ms, got %v", got)
		}
	})

	t.Run("jitter stays within bounds", func(t *testing.T) {
		jittered := policy
		jittered.Jitter = 0.5
		for random := 0.0; random <= 1.0; random += 0.25 {
			got := computeWithRand(jittered, 1, random)
			if got < 100*time.Millisecond || got > 150*time.Millisecond {
				t.Errorf("random %.2f: %v outside [100ms, 150ms]", random, got)
			}
		}
	})
}

func TestSleep(t *testing.T) {
	t.Run("returns after the backoff elapses", func(t *testing.T) {
		policy := Policy{Initial: time.Millisecond, Max: time.Millisecond, Factor: 1}
		if err := Sleep(context.Background(), policy, 1); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("returns context error when cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Sleep(ctx, Policy{Initial: time.Hour, Max: time.Hour, Factor: 1}, 1)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestRetry(t *testing.T) {
	fast := Policy{Initial: time.Millisecond, Max: time.Millisecond, Factor: 1}

	t.Run("returns nil on first success", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), fast, 3, func(attempt int) error {
			calls++
			return nil
		})
		if err != nil || calls != 1 {
			t.Errorf("expected 1 call and nil error, got %d calls and %v", calls, err)
		}
	})

	t.Run("retries until success", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), fast, 3, func(attempt int) error {
			calls++
			if attempt < 3 {
				return errors.New("transient")
			}
			return nil
		})
		if err != nil || calls != 3 {
			t.Errorf("expected 3 calls and nil error, got %d calls and %v", calls, err)
		}
	})

	t.Run("exhaustion wraps the last error", func(t *testing.T) {
		sentinel := errors.New("boom")
		err := Retry(context.Background(), fast, 2, func(attempt int) error {
			return sentinel
		})
		if !errors.Is(err, ErrMaxAttemptsExhausted) {
			t.Errorf("expected ErrMaxAttemptsExhausted, got %v", err)
		}
		if !errors.Is(err, sentinel) {
			t.Errorf("expected wrapped sentinel, got %v", err)
		}
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		calls := 0
		err := Retry(ctx, fast, 3, func(attempt int) error {
			calls++
			return errors.New("transient")
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if calls != 0 {
			t.Errorf("expected no calls after cancellation, got %d", calls)
		}
	})
}
