package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/pollux-gateway/pollux/internal/credstore"
)

type countingRefresher struct {
	calls int
}

func (c *countingRefresher) Refresh(_ context.Context, _ string, _ *credstore.Credential) (string, time.Time, string, error) {
	c.calls++
	return "tok", time.Now().Add(time.Hour), "", nil
}

func TestGatedRefresherAcquiresProviderScheduler(t *testing.T) {
	inner := &countingRefresher{}
	schedulers := map[string]*Scheduler{"geminicli": New(100)}
	g := NewGatedRefresher(inner, schedulers)

	_, _, _, err := g.Refresh(context.Background(), "geminicli", &credstore.Credential{})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected exactly one delegated call, got %d", inner.calls)
	}
}

func TestGatedRefresherUngatedForUnknownProvider(t *testing.T) {
	inner := &countingRefresher{}
	g := NewGatedRefresher(inner, map[string]*Scheduler{})

	_, _, _, err := g.Refresh(context.Background(), "codex", &credstore.Credential{})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected the call to pass through, got %d calls", inner.calls)
	}
}

func TestGatedRefresherBlocksOnExhaustedBucket(t *testing.T) {
	inner := &countingRefresher{}
	schedulers := map[string]*Scheduler{"geminicli": New(1)}
	g := NewGatedRefresher(inner, schedulers)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	// Spend the single burst token immediately...
	if _, _, _, err := g.Refresh(context.Background(), "geminicli", &credstore.Credential{}); err != nil {
		t.Fatalf("first Refresh: %v", err)
	}
	// ...then a second refresh within the same instant should block until
	// the context deadline, since oauth_tps=1 only grants one token/second.
	if _, _, _, err := g.Refresh(ctx, "geminicli", &credstore.Credential{}); err == nil {
		t.Fatalf("expected the second refresh to be gated by the bucket")
	}
}
