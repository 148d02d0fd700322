// Package ratelimit implements the per-provider refresh scheduler: a
// token-bucket gate over outbound OAuth refresh calls.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Scheduler rate-limits refresh attempts for a single provider. It is the
// sole serialization point for outbound refresh requests; it does not
// perform the refresh itself, only gates when the caller may start one.
type Scheduler struct {
	limiter *rate.Limiter
}

// New builds a Scheduler configured at tps tokens/second with burst=tps.
// tps <= 0 clamps to 1 so a misconfigured provider still makes forward
// progress.
func New(tps float64) *Scheduler {
	if tps <= 0 {
		tps = 1
	}
	burst := int(tps)
	if burst < 1 {
		burst = 1
	}
	return &Scheduler{limiter: rate.NewLimiter(rate.Limit(tps), burst)}
}

// Acquire blocks until a permit is available or ctx is canceled. A canceled
// wait does not consume a token: rate.Limiter.Wait only removes the
// reservation's token if the wait actually completes.
func (s *Scheduler) Acquire(ctx context.Context) error {
	return s.limiter.Wait(ctx)
}

// TryAcquire attempts a non-blocking permit, used by callers that want to
// fail fast rather than queue (e.g. health checks).
func (s *Scheduler) TryAcquire() bool {
	return s.limiter.Allow()
}
