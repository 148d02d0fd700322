package ratelimit

import (
	"context"
	"time"

	"github.com/pollux-gateway/pollux/internal/credstore"
)

// Refresher performs the provider-specific OAuth refresh-token exchange.
// Declared locally (structurally identical to credpool.Refresher) so this
// package never needs to import credpool.
type Refresher interface {
	Refresh(ctx context.Context, provider string, c *credstore.Credential) (accessToken string, expiresAt time.Time, project string, err error)
}

// GatedRefresher wraps a Refresher so every refresh attempt first acquires
// a permit from the calling provider's Scheduler, making the Scheduler the
// sole serialization point for outbound refresh calls. The
// permit is held for exactly the Acquire call; the HTTP exchange itself
// runs after the token has already been spent, matching "permit is
// consumed upon refresh attempt completion".
type GatedRefresher struct {
	next       Refresher
	schedulers map[string]*Scheduler
}

// NewGatedRefresher builds a GatedRefresher. schedulers maps provider key
// (e.g. "geminicli") to its Scheduler; a provider with no entry refreshes
// ungated.
func NewGatedRefresher(next Refresher, schedulers map[string]*Scheduler) *GatedRefresher {
	return &GatedRefresher{next: next, schedulers: schedulers}
}

// Refresh acquires the provider's scheduler permit, then delegates.
func (g *GatedRefresher) Refresh(ctx context.Context, provider string, c *credstore.Credential) (string, time.Time, string, error) {
	if sched := g.schedulers[provider]; sched != nil {
		if err := sched.Acquire(ctx); err != nil {
			return "", time.Time{}, "", err
		}
	}
	return g.next.Refresh(ctx, provider, c)
}
