// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/jllopis/telos/pkg/errors"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	rc := DefaultRetryConfig().WithInitialDelay(time.Millisecond)
	attempts := 0
	err := rc.Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New(errors.CodeCapability, "flaky", nil).WithRecoverable(true)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryStopsOnNonRecoverable(t *testing.T) {
	rc := DefaultRetryConfig().WithInitialDelay(time.Millisecond)
	attempts := 0
	err := rc.Do(context.Background(), func() error {
		attempts++
		return errors.New(errors.CodeValidation, "bad payload", nil)
	})
	if !errors.Is(err, errors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("non-recoverable error must not retry, got %d attempts", attempts)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	rc := DefaultRetryConfig().WithMaxAttempts(2).WithInitialDelay(time.Millisecond)
	attempts := 0
	err := rc.Do(context.Background(), func() error {
		attempts++
		return errors.New(errors.CodeCapability, "always down", nil).WithRecoverable(true)
	})
	if !errors.Is(err, errors.CodeCapability) {
		t.Fatalf("expected last capability error, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rc := DefaultRetryConfig().WithInitialDelay(time.Minute)
	err := rc.Do(ctx, func() error {
		return errors.New(errors.CodeCapability, "fail once", nil).WithRecoverable(true)
	})
	if !errors.Is(err, errors.CodeTimeout) {
		t.Fatalf("expected timeout from canceled backoff wait, got %v", err)
	}
}

func TestWithTimeoutResult(t *testing.T) {
	got, err := WithTimeoutResult(context.Background(), time.Second, func(_ context.Context) (int, error) {
		return 42, nil
	})
	if err != nil || got != 42 {
		t.Fatalf("unexpected result: %d (%v)", got, err)
	}
}

func TestWithTimeoutExpires(t *testing.T) {
	err := WithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Minute):
			return nil
		}
	})
	if !errors.Is(err, errors.CodeTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	te := errors.AsError(err)
	if te == nil || !te.Recoverable {
		t.Fatal("timeouts should be marked recoverable")
	}
}

func TestWithTimeoutZeroMeansNoDeadline(t *testing.T) {
	err := WithTimeout(context.Background(), 0, func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); ok {
			t.Fatal("no deadline expected")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
