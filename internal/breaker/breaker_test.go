package breaker

import (
	"errors"
	"testing"
	"time"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := New("test", 3, 50*time.Millisecond, nil)
	fail := errors.New("boom")

	for i := 0; i < 3; i++ {
		_ = b.Call(func() error { return fail })
	}
	if b.State() != Open {
		t.Fatalf("state = %v, want OPEN after 3 failures", b.State())
	}

	err := b.Call(func() error {
		t.Fatal("wrapped call should not run while OPEN")
		return nil
	})
	if err == nil {
		t.Fatal("expected CircuitOpen error")
	}
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	b := New("test2", 1, 10*time.Millisecond, nil)
	_ = b.Call(func() error { return errors.New("boom") })
	if b.State() != Open {
		t.Fatalf("expected OPEN, got %v", b.State())
	}
	time.Sleep(20 * time.Millisecond)
	if b.State() != HalfOpen {
		t.Fatalf("expected HALF_OPEN after timeout, got %v", b.State())
	}
	called := false
	_ = b.Call(func() error { called = true; return nil })
	if !called {
		t.Fatal("expected the probe call to run")
	}
	if b.State() != Closed {
		t.Fatalf("expected CLOSED after successful probe, got %v", b.State())
	}
}

func TestRegistrySingleton(t *testing.T) {
	r := NewRegistry(3, time.Minute, nil)
	a := r.Get("x")
	c := r.Get("x")
	if a != c {
		t.Fatal("expected same breaker instance for the same name")
	}
}
