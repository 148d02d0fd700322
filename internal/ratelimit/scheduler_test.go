package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestAcquireBlocksUntilTokenAvailable(t *testing.T) {
	s := New(5) // 5 tps, burst 5
	ctx := context.Background()

	// Drain the initial burst.
	for i := 0; i < 5; i++ {
		if err := s.Acquire(ctx); err != nil {
			t.Fatalf("Acquire #%d: %v", i, err)
		}
	}

	start := time.Now()
	if err := s.Acquire(ctx); err != nil {
		t.Fatalf("Acquire after burst: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Fatalf("expected Acquire to wait for a new token, only waited %s", elapsed)
	}
}

func TestAcquireCanceledWaiterDoesNotConsumeToken(t *testing.T) {
	s := New(1) // 1 tps, burst 1
	ctx := context.Background()

	if err := s.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	cancelCtx, cancel := context.WithCancel(ctx)
	cancel()
	if err := s.Acquire(cancelCtx); err == nil {
		t.Fatalf("expected Acquire on canceled context to fail")
	}

	if s.TryAcquire() {
		t.Fatalf("expected no token available immediately after bucket exhaustion, canceled wait should not have reserved one")
	}
}

func TestTryAcquireNonBlocking(t *testing.T) {
	s := New(2)
	if !s.TryAcquire() {
		t.Fatalf("expected first TryAcquire to succeed")
	}
}

func TestNewClampsNonPositiveTPS(t *testing.T) {
	s := New(0)
	if !s.TryAcquire() {
		t.Fatalf("expected clamped scheduler to still grant an initial permit")
	}
}
