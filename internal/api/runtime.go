// Package api implements component J: the thin Gin router and auth gate
// that parses inbound requests, hands them to a provider's Preprocessor /
// Orchestrator / Postprocessor trio, and renders the result back.
package api

import (
	"github.com/pollux-gateway/pollux/internal/catalog"
	"github.com/pollux-gateway/pollux/internal/credpool"
	"github.com/pollux-gateway/pollux/internal/orchestrator"
	"github.com/pollux-gateway/pollux/internal/postprocess"
	"github.com/pollux-gateway/pollux/internal/preprocess"
)

// ProviderRuntime bundles one provider's fully wired core components. One
// of these exists per configured provider (geminicli, antigravity, codex).
type ProviderRuntime struct {
	Name          string
	Pool          *credpool.Pool
	Orchestrator  *orchestrator.Orchestrator
	Preprocessor  *preprocess.Preprocessor
	Postprocessor *postprocess.Postprocessor
	// ResourceMask is the model mask newly ingested resource:add credentials
	// are assigned, derived from providers.<name>.model_list at startup.
	ResourceMask uint64
}

// Router dispatches inbound HTTP requests to the right ProviderRuntime.
type Router struct {
	polluxKey       string
	providers       map[string]*ProviderRuntime
	catalog         *catalog.Catalog
	defaultProvider string
}

// New builds a Router. polluxKey is the shared inbound API key every
// non-resource:add route requires via x-goog-api-key. defaultProvider
// serves the bare /v1/chat/completions path when no provider is named in
// the URL; it must be a key present in providers.
func New(polluxKey string, providers map[string]*ProviderRuntime, cat *catalog.Catalog, defaultProvider string) *Router {
	return &Router{polluxKey: polluxKey, providers: providers, catalog: cat, defaultProvider: defaultProvider}
}

func (rt *Router) runtime(provider string) (*ProviderRuntime, bool) {
	p, ok := rt.providers[provider]
	return p, ok
}
