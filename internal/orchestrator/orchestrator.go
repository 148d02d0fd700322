// Package orchestrator implements component I: the per-request retry loop
// gluing the Credential Pool Actor, the Upstream HTTP Client, and the
// classification rules that decide whether a failure is retryable.
package orchestrator

import (
	"context"
	"io"
	"time"

	"github.com/pollux-gateway/pollux/internal/catalog"
	"github.com/pollux-gateway/pollux/internal/credpool"
	"github.com/pollux-gateway/pollux/internal/logging"
	"github.com/pollux-gateway/pollux/internal/perr"
	"github.com/pollux-gateway/pollux/internal/upstream"
)

// maxErrorBodyBytes bounds how much of a failed stream request's body gets
// buffered for classification; provider error bodies are small JSON
// envelopes, never full SSE payloads.
const maxErrorBodyBytes = 64 * 1024

// EndpointFunc resolves the upstream URL for a provider/model/stream combination.
type EndpointFunc func(provider, model string, stream bool) string

// Orchestrator is the entry point the router calls after preprocessing.
type Orchestrator struct {
	pool     *credpool.Pool
	client   *upstream.Client
	catalog  *catalog.Catalog
	endpoint EndpointFunc
	retryMax int
}

// New builds an Orchestrator. retryMax <= 0 clamps to the default of 3.
func New(pool *credpool.Pool, client *upstream.Client, cat *catalog.Catalog, endpoint EndpointFunc, retryMax int) *Orchestrator {
	if retryMax <= 0 {
		retryMax = 3
	}
	return &Orchestrator{pool: pool, client: client, catalog: cat, endpoint: endpoint, retryMax: retryMax}
}

// Execute runs the retry loop: lease a credential, call upstream,
// classify the result, report the outcome, and retry on anything
// retryable until the budget is spent. It returns the last successful
// upstream response, or a *perr.Error mapped for the inbound client.
func (o *Orchestrator) Execute(ctx context.Context, provider, model string, stream bool, body []byte) (*upstream.Response, error) {
	modelBit, _ := o.catalog.Mask(model)

	var lastErr error
	for attempt := 0; attempt <= o.retryMax; attempt++ {
		lease, ok, err := o.pool.Lease(ctx, modelBit)
		if err != nil {
			return nil, perr.Internal("credential lease failed")
		}
		if !ok {
			return nil, perr.NoCapacity()
		}

		resp, reqErr := o.client.Post(ctx, o.endpoint(provider, model, stream), lease.AccessToken, body, stream)
		if reqErr != nil {
			c := classifyNetworkError(reqErr)
			o.returnOutcome(ctx, lease.ID, c)
			lastErr = perr.Upstream(502, reqErr.Error())
			continue
		}

		respBody := resp.Body
		if stream && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			// A successful stream never gets buffered here; H sniffs and
			// forwards it chunk by chunk as it arrives.
		} else if stream {
			// Upstream rejected the call before ever framing an SSE
			// response; there is nothing to stream, so buffer the small
			// error body to classify it like any unary failure.
			respBody, _ = io.ReadAll(io.LimitReader(resp.Stream, maxErrorBodyBytes))
			_ = resp.Stream.Close()
		}
		c := classify(resp.StatusCode, respBody, modelBit)
		o.returnOutcome(ctx, lease.ID, c)

		switch c.outcome {
		case credpool.OutcomeSuccess:
			return resp, nil
		case credpool.OutcomeFatalFailureUnsupportedModel, credpool.OutcomeFatalFailureOther:
			return nil, mapFatal(c)
		default:
			lastErr = mapFatal(c)
			continue
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, perr.NoCapacity()
}

func (o *Orchestrator) returnOutcome(ctx context.Context, leaseID string, c classification) {
	params := credpool.ReturnParams{Outcome: c.outcome, ResetAt: c.resetAt, ModelBit: c.modelBit, Reason: c.reason}
	if err := o.pool.Return(ctx, leaseID, params); err != nil {
		logging.FromContext(ctx).WithError(err).WithField("credential_id", leaseID).Warn("orchestrator: failed to report lease outcome")
	}
}

// mapFatal renders a classification's underlying upstream failure as the
// error envelope shape the inbound client sees once retries are exhausted.
func mapFatal(c classification) error {
	if c.status == 0 {
		return perr.Upstream(502, c.reason)
	}
	return perr.Upstream(c.status, c.reason)
}

// retryDeadline is the per-request orchestrator deadline (default 10 min
// for streams, 60s unary); callers apply it via
// context.WithTimeout before calling Execute.
func retryDeadline(stream bool) time.Duration {
	if stream {
		return 10 * time.Minute
	}
	return 60 * time.Second
}

// RetryDeadline exposes retryDeadline for the router to apply.
func RetryDeadline(stream bool) time.Duration { return retryDeadline(stream) }
