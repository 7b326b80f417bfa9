package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream failure")

func failingCalls(cb *CircuitBreaker, n int) {
	for i := 0; i < n; i++ {
		cb.Execute(context.Background(), func() error { return errUpstream })
	}
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cb := New("test", Config{FailureThreshold: 3, Cooldown: time.Minute})

	failingCalls(cb, 3)

	err := cb.Execute(context.Background(), func() error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestBreakerStaysClosedUnderThreshold(t *testing.T) {
	cb := New("test", Config{FailureThreshold: 3, Cooldown: time.Minute})

	failingCalls(cb, 2)

	called := false
	if err := cb.Execute(context.Background(), func() error { called = true; return nil }); err != nil {
		t.Errorf("Execute returned error: %v", err)
	}
	if !called {
		t.Error("function should have run")
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := New("test", Config{FailureThreshold: 3, Cooldown: time.Minute})

	failingCalls(cb, 2)
	cb.Execute(context.Background(), func() error { return nil })
	failingCalls(cb, 2)

	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := New("test", Config{
		FailureThreshold: 2,
		SuccessThreshold: 2,
		Cooldown:         10 * time.Millisecond,
	})

	failingCalls(cb, 2)
	time.Sleep(20 * time.Millisecond)

	if cb.State() != StateHalfOpen {
		t.Fatalf("state = %v, want half-open after cooldown", cb.State())
	}

	for i := 0; i < 2; i++ {
		if err := cb.Execute(context.Background(), func() error { return nil }); err != nil {
			t.Fatalf("probe %d failed: %v", i, err)
		}
	}

	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed after successful probes", cb.State())
	}
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	cb := New("test", Config{
		FailureThreshold: 2,
		Cooldown:         10 * time.Millisecond,
	})

	failingCalls(cb, 2)
	time.Sleep(20 * time.Millisecond)

	cb.Execute(context.Background(), func() error { return errUpstream })

	err := cb.Execute(context.Background(), func() error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen after failed probe, got %v", err)
	}
}

func TestBreakerCountsPanicsAsFailures(t *testing.T) {
	cb := New("test", Config{FailureThreshold: 1, Cooldown: time.Minute})

	func() {
		defer func() { recover() }()
		cb.Execute(context.Background(), func() error { panic("boom") })
	}()

	err := cb.Execute(context.Background(), func() error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen after panic, got %v", err)
	}
}
