// Package credpool implements the in-memory credential pool actor: the
// single authoritative owner of credential state. All mutation
// flows through one goroutine's mailbox; nothing outside this package ever
// touches a Credential's fields directly.
package credpool

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pollux-gateway/pollux/internal/credstore"
	"github.com/pollux-gateway/pollux/internal/logging"
)

// Outcome classifies how a leased credential fared, reported via Return.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeUnauthorized
	OutcomeQuotaExhausted
	OutcomeRetryableFailure
	OutcomeFatalFailureUnsupportedModel
	OutcomeFatalFailureOther
)

// MaxConsecutiveFailures is the number of consecutive non-model-specific
// fatal failures after which a credential is marked dead.
const MaxConsecutiveFailures = 5

// ReturnParams carries the outcome-specific detail Return needs: ResetAt
// for QuotaExhausted, ModelBit for FatalFailureUnsupportedModel.
type ReturnParams struct {
	Outcome  Outcome
	ResetAt  time.Time // QuotaExhausted
	ModelBit uint64    // FatalFailureUnsupportedModel
	Reason   string
}

// Refresher performs the provider-specific OAuth refresh-token exchange.
// Implemented by internal/oauthflow; declared here to avoid an import cycle.
type Refresher interface {
	Refresh(ctx context.Context, provider string, c *credstore.Credential) (accessToken string, expiresAt time.Time, project string, err error)
}

// Pool is the actor's public handle. All methods enqueue a request onto the
// mailbox and block on a per-call reply channel; only the run goroutine ever
// reads or writes a credential's fields.
type Pool struct {
	mailbox   chan func()
	provider  string
	store     *credstore.Store
	refresher Refresher
	group     singleflight.Group

	creds map[string]*credstore.Credential
	order []string // stable insertion order, for deterministic Snapshot output

	coolBase time.Duration
	coolMax  time.Duration
}

// Lease is a credential handed out for the duration of one upstream call.
type Lease struct {
	ID          string
	AccessToken string
	Project     string
}

// Option configures a Pool at construction time.
type Option func(*Pool)

// WithCooldown overrides the exponential cooldown base/max (default 1s
// base doubling up to 5 minutes).
func WithCooldown(base, max time.Duration) Option {
	return func(p *Pool) {
		p.coolBase = base
		p.coolMax = max
	}
}

// New constructs a Pool scoped to provider, backed by store and refresher,
// hydrating it from any persisted rows matching that provider before
// returning. The store is shared by every provider's Pool, so rows
// belonging to other providers are skipped rather than loaded. The actor
// goroutine is started here and runs until ctx is canceled.
func New(ctx context.Context, provider string, store *credstore.Store, refresher Refresher, opts ...Option) (*Pool, error) {
	p := &Pool{
		mailbox:   make(chan func(), 64),
		provider:  provider,
		store:     store,
		refresher: refresher,
		creds:     make(map[string]*credstore.Credential),
		coolBase:  time.Second,
		coolMax:   5 * time.Minute,
	}
	for _, opt := range opts {
		opt(p)
	}

	if store != nil {
		rows, err := store.LoadAll(ctx)
		if err != nil {
			return nil, err
		}
		for _, c := range rows {
			if c.Provider != provider {
				continue
			}
			p.insert(c)
		}
	}

	go p.run(ctx)
	return p, nil
}

func (p *Pool) insert(c *credstore.Credential) {
	if _, exists := p.creds[c.ID]; !exists {
		p.order = append(p.order, c.ID)
	}
	p.creds[c.ID] = c
}

// run is the sole goroutine that ever reads or mutates p.creds. It drains
// the mailbox until ctx is canceled.
func (p *Pool) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-p.mailbox:
			fn()
		}
	}
}

// send enqueues fn on the mailbox and waits for it to execute, or for ctx to
// be canceled first.
func (p *Pool) send(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		fn()
		close(done)
	}
	select {
	case p.mailbox <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Lease selects the least-recently-used usable credential whose model mask
// covers modelMask (FIFO by oldest last_used_at, tie-broken by id), marks
// it in use, and returns a Lease. If the best eligible candidate is
// Healthy but its token has expired, Lease triggers (and awaits) a refresh
// before returning it. If nothing is eligible at all it returns ok=false;
// the caller maps that to perr.NoCapacity.
func (p *Pool) Lease(ctx context.Context, modelMask uint64) (Lease, bool, error) {
	if lease, ok, err := p.tryLease(ctx, modelMask); err != nil || ok {
		return lease, ok, err
	}

	staleID, found, err := p.findStaleCandidate(ctx, modelMask)
	if err != nil || !found {
		return Lease{}, false, err
	}
	if err = p.EnsureFresh(ctx, staleID); err != nil {
		return Lease{}, false, nil
	}
	return p.tryLease(ctx, modelMask)
}

func (p *Pool) tryLease(ctx context.Context, modelMask uint64) (Lease, bool, error) {
	var lease Lease
	var ok bool
	err := p.send(ctx, func() {
		now := time.Now()
		var best *credstore.Credential
		for _, id := range p.order {
			c := p.creds[id]
			if c == nil || !c.Usable(now) || c.ModelMask&modelMask != modelMask {
				continue
			}
			if best == nil || c.LastUsedAt.Before(best.LastUsedAt) || (c.LastUsedAt.Equal(best.LastUsedAt) && c.ID < best.ID) {
				best = c
			}
		}
		if best == nil {
			return
		}
		best.LastUsedAt = now
		lease = Lease{ID: best.ID, AccessToken: best.AccessToken, Project: best.Project}
		ok = true
	})
	return lease, ok, err
}

// findStaleCandidate finds the oldest-last-used Healthy-but-expired
// credential matching modelMask, the case Usable rejects but Lease should
// still refresh and serve.
func (p *Pool) findStaleCandidate(ctx context.Context, modelMask uint64) (string, bool, error) {
	var id string
	var found bool
	err := p.send(ctx, func() {
		now := time.Now()
		var best *credstore.Credential
		for _, cid := range p.order {
			c := p.creds[cid]
			if c == nil || c.State != credstore.StateHealthy || c.Usable(now) || c.ModelMask&modelMask != modelMask {
				continue
			}
			if best == nil || c.LastUsedAt.Before(best.LastUsedAt) || (c.LastUsedAt.Equal(best.LastUsedAt) && c.ID < best.ID) {
				best = c
			}
		}
		if best != nil {
			id = best.ID
			found = true
		}
	})
	return id, found, err
}

// Return reports the outcome of a leased credential back to the pool,
// applying the state transition table below. Unauthorized schedules an
// async refresh attempt outside the mailbox (EnsureFresh already owns that
// coalescing); if the refresh subsequently fails the credential dies.
func (p *Pool) Return(ctx context.Context, id string, params ReturnParams) error {
	var shouldRefresh bool
	err := p.send(ctx, func() {
		c := p.creds[id]
		if c == nil {
			return
		}
		switch params.Outcome {
		case OutcomeSuccess:
			c.State = credstore.StateHealthy
			c.ConsecutiveFailures = 0
		case OutcomeUnauthorized:
			c.State = credstore.StateRefreshing
			shouldRefresh = true
		case OutcomeQuotaExhausted:
			c.State = credstore.StateExhausted
			c.CoolingUntil = params.ResetAt
			c.CoolingReason = params.Reason
		case OutcomeRetryableFailure:
			c.ConsecutiveFailures++
			c.State = credstore.StateCooling
			c.CoolingUntil = time.Now().Add(p.backoff(c.ConsecutiveFailures))
			c.CoolingReason = params.Reason
		case OutcomeFatalFailureUnsupportedModel:
			c.ModelMask &^= params.ModelBit
			if c.ModelMask == 0 {
				c.State = credstore.StateDead
			}
		case OutcomeFatalFailureOther:
			c.ConsecutiveFailures++
			if c.ConsecutiveFailures >= MaxConsecutiveFailures {
				c.State = credstore.StateDead
			}
		}
		p.persist(context.Background(), c)
	})
	if err == nil && shouldRefresh && p.refresher != nil {
		go func() {
			if refreshErr := p.EnsureFresh(context.Background(), id); refreshErr != nil {
				_ = p.send(context.Background(), func() {
					if c := p.creds[id]; c != nil {
						c.State = credstore.StateDead
						p.persist(context.Background(), c)
					}
				})
			}
		}()
	}
	return err
}

func (p *Pool) backoff(failures int) time.Duration {
	d := p.coolBase
	for i := 1; i < failures; i++ {
		d *= 2
		if d >= p.coolMax {
			return p.coolMax
		}
	}
	if d > p.coolMax {
		return p.coolMax
	}
	return d
}

func (p *Pool) persist(ctx context.Context, c *credstore.Credential) {
	if p.store == nil {
		return
	}
	cp := *c
	if err := p.store.Upsert(ctx, &cp); err != nil {
		logging.FromContext(ctx).WithError(err).WithField("credential_id", c.ID).Warn("credpool: persist failed, continuing in-memory")
	}
}

// SubmitRefreshTokens ingests newly added refresh tokens from the
// resource:add route, deriving each id and inserting a fresh Cooling credential
// if it is not already known. Known ids are left untouched (idempotent add).
func (p *Pool) SubmitRefreshTokens(ctx context.Context, provider string, refreshTokens []string, modelMask uint64) error {
	return p.send(ctx, func() {
		now := time.Now()
		for _, rt := range refreshTokens {
			id := credstore.DeriveID(provider, rt)
			if _, exists := p.creds[id]; exists {
				continue
			}
			c := &credstore.Credential{
				ID:           id,
				Provider:     provider,
				RefreshToken: rt,
				ModelMask:    modelMask,
				State:        credstore.StateCooling,
				CoolingUntil: now,
				UpdatedAt:    now,
			}
			p.insert(c)
			p.persist(context.Background(), c)
		}
	})
}

// Snapshot is a read-only view of one credential, used for status endpoints
// and tests.
type Snapshot struct {
	ID        string
	Provider  string
	State     credstore.State
	ModelMask uint64
	LastUsed  time.Time
}

// Snapshot returns a stable-ordered view of every known credential.
func (p *Pool) Snapshot(ctx context.Context) ([]Snapshot, error) {
	var out []Snapshot
	err := p.send(ctx, func() {
		out = make([]Snapshot, 0, len(p.order))
		for _, id := range p.order {
			c := p.creds[id]
			out = append(out, Snapshot{ID: c.ID, Provider: c.Provider, State: c.State, ModelMask: c.ModelMask, LastUsed: c.LastUsedAt})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	})
	return out, err
}

// ReconcileCooldowns promotes Cooling and Exhausted credentials whose
// CoolingUntil has elapsed back to Healthy. Intended to be called
// periodically by the caller (cmd/pollux wires a ticker).
func (p *Pool) ReconcileCooldowns(ctx context.Context) error {
	return p.send(ctx, func() {
		now := time.Now()
		for _, id := range p.order {
			c := p.creds[id]
			if (c.State == credstore.StateCooling || c.State == credstore.StateExhausted) && !c.CoolingUntil.After(now) {
				c.State = credstore.StateHealthy
			}
		}
	})
}

// EnsureFresh refreshes the named credential's access token if it is not
// currently usable, coalescing concurrent callers for the same id via
// singleflight so a thundering herd of leases never issues duplicate
// refresh calls.
func (p *Pool) EnsureFresh(ctx context.Context, id string) error {
	if p.refresher == nil {
		return nil
	}
	_, err, _ := p.group.Do(id, func() (any, error) {
		var needsRefresh bool
		var cred credstore.Credential
		_ = p.send(ctx, func() {
			c := p.creds[id]
			if c == nil {
				return
			}
			if !c.Usable(time.Now()) {
				needsRefresh = true
				cred = *c
				c.State = credstore.StateRefreshing
			}
		})
		if !needsRefresh {
			return nil, nil
		}
		accessToken, expiresAt, project, rerr := p.refresher.Refresh(ctx, cred.Provider, &cred)
		_ = p.send(ctx, func() {
			c := p.creds[id]
			if c == nil {
				return
			}
			if rerr != nil {
				c.ConsecutiveFailures++
				c.State = credstore.StateCooling
				c.CoolingUntil = time.Now().Add(p.backoff(c.ConsecutiveFailures))
				c.CoolingReason = rerr.Error()
				return
			}
			c.AccessToken = accessToken
			c.ExpiresAt = expiresAt
			if project != "" {
				c.Project = project
			}
			c.State = credstore.StateHealthy
			c.ConsecutiveFailures = 0
			p.persist(context.Background(), c)
		})
		return nil, rerr
	})
	return err
}
