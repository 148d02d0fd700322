// Package main provides the entry point for the Pollux gateway: an
// LLM reverse proxy that fronts Gemini CLI, Codex and Antigravity with a
// single inbound API key and a shared credential pool per provider.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/pollux-gateway/pollux/internal/api"
	"github.com/pollux-gateway/pollux/internal/catalog"
	"github.com/pollux-gateway/pollux/internal/config"
	"github.com/pollux-gateway/pollux/internal/credfile"
	"github.com/pollux-gateway/pollux/internal/credpool"
	"github.com/pollux-gateway/pollux/internal/credstore"
	"github.com/pollux-gateway/pollux/internal/logging"
	"github.com/pollux-gateway/pollux/internal/oauthflow"
	"github.com/pollux-gateway/pollux/internal/orchestrator"
	"github.com/pollux-gateway/pollux/internal/postprocess"
	"github.com/pollux-gateway/pollux/internal/preprocess"
	"github.com/pollux-gateway/pollux/internal/ratelimit"
	"github.com/pollux-gateway/pollux/internal/signature"
	"github.com/pollux-gateway/pollux/internal/upstream"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var providerNames = []string{"geminicli", "codex", "antigravity"}

func main() {
	var configPath string
	var credentialDir string
	flag.StringVar(&configPath, "config", "config.toml", "Configuration file path")
	flag.StringVar(&credentialDir, "credential-dir", "", "Directory of credential files to watch for hot-reload")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pollux: "+err.Error())
		os.Exit(1)
	}

	logging.Setup(cfg.Basic.LogLevel)
	if err := logging.ConfigureFileOutput(cfg.Basic.LogToFile, "logs"); err != nil {
		log.WithError(err).Warn("pollux: failed to configure file logging, continuing to stderr")
	}

	log.Infof("pollux version=%s commit=%s built=%s", Version, Commit, BuildDate)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := credstore.Open(ctx, cfg.Basic.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("pollux: failed to open credential store")
	}
	defer func() { _ = store.Close() }()

	cat, err := buildCatalog()
	if err != nil {
		log.WithError(err).Fatal("pollux: failed to build model catalog")
	}

	runtimes, err := buildProviderRuntimes(ctx, cfg, store, cat)
	if err != nil {
		log.WithError(err).Fatal("pollux: failed to wire provider runtimes")
	}

	ingestCredentialFiles(ctx, credentialDir, runtimes, cat)

	router := api.New(cfg.Basic.PolluxKey, runtimes, cat, "geminicli")

	watcher, err := startConfigWatcher(configPath, credentialDir, runtimes, cat)
	if err != nil {
		log.WithError(err).Warn("pollux: config hot-reload disabled")
	} else {
		defer func() { _ = watcher.Close() }()
	}

	stopReconcile := startCooldownReconciler(ctx, runtimes)
	defer stopReconcile()

	addr := fmt.Sprintf("%s:%d", cfg.Basic.ListenAddr, cfg.Basic.ListenPort)
	srv := &http.Server{Addr: addr, Handler: router.Engine()}

	go func() {
		log.Infof("pollux: listening on %s", addr)
		if serveErr := srv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			log.WithError(serveErr).Fatal("pollux: server stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	log.Info("pollux: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("pollux: graceful shutdown timed out")
	}
}

// buildCatalog registers the model set every provider runtime shares; the
// same name is carried by all three providers since Pollux speaks Gemini's
// generateContent shape to each of them.
func buildCatalog() (*catalog.Catalog, error) {
	return catalog.New([]catalog.Model{
		{
			Name:                       "gemini-2.5-pro",
			SupportedGenerationMethods: []string{"generateContent", "streamGenerateContent"},
			Limits:                     catalog.Limits{MaxInputTokens: 1048576, MaxOutputTokens: 65536},
		},
		{
			Name:                       "gemini-2.5-flash",
			SupportedGenerationMethods: []string{"generateContent", "streamGenerateContent"},
			Limits:                     catalog.Limits{MaxInputTokens: 1048576, MaxOutputTokens: 65536},
		},
	})
}

// buildProviderRuntimes assembles one fully wired api.ProviderRuntime per
// configured provider: a credential pool backed by the shared store, a
// rate-limit-gated OAuth refresher, an upstream client, and the
// preprocess/orchestrate/postprocess trio sharing a signature cache.
func buildProviderRuntimes(ctx context.Context, cfg *config.Config, store *credstore.Store, cat *catalog.Catalog) (map[string]*api.ProviderRuntime, error) {
	exchanger := oauthflow.New(nil)
	baseURLs := upstream.DefaultBaseURLs()

	providerConfigs := map[string]config.ProviderConfig{
		"geminicli":   cfg.Providers.GeminiCLI,
		"codex":       cfg.Providers.Codex,
		"antigravity": cfg.Providers.Antigravity,
	}

	schedulers := make(map[string]*ratelimit.Scheduler, len(providerNames))
	resolved := make(map[string]config.Resolved, len(providerNames))
	for _, name := range providerNames {
		r := providerConfigs[name].Resolve(cfg.Providers.Defaults)
		resolved[name] = r
		schedulers[name] = ratelimit.New(float64(r.OAuthTPS))
		if r.Proxy != "" {
			baseURLs[name] = r.Proxy
		}
	}
	refresher := ratelimit.NewGatedRefresher(exchanger, schedulers)
	endpoint := orchestrator.EndpointFunc(upstream.NewEndpointFunc(baseURLs))

	runtimes := make(map[string]*api.ProviderRuntime, len(providerNames))
	for _, name := range providerNames {
		r := resolved[name]

		pool, poolErr := credpool.New(ctx, name, store, refresher)
		if poolErr != nil {
			return nil, fmt.Errorf("%s: build credential pool: %w", name, poolErr)
		}
		mask := cat.MaskFromNames(r.ModelList)
		if mask == 0 {
			mask = cat.FullMask()
		}

		client := upstream.New(upstream.Config{
			Proxy:           r.Proxy,
			EnableMultiplex: r.EnableMultiplexing,
		})
		cache := signature.NewCache(0, 0)

		runtimes[name] = &api.ProviderRuntime{
			Name:          name,
			Pool:          pool,
			Orchestrator:  orchestrator.New(pool, client, cat, endpoint, r.RetryMaxTimes),
			Preprocessor:  preprocess.New(cache),
			Postprocessor: postprocess.New(cache),
			ResourceMask:  mask,
		}
	}
	return runtimes, nil
}

// startConfigWatcher watches configPath and logs a notice on change;
// credential pool transport settings are fixed at process start, so a
// config reload currently only confirms the file is readable. It
// separately watches credentialDir, when set, and re-runs credential file
// ingestion whenever a file there is added, changed, or removed.
func startConfigWatcher(configPath, credentialDir string, runtimes map[string]*api.ProviderRuntime, cat *catalog.Catalog) (*config.Watcher, error) {
	w, err := config.NewWatcher(configPath, credentialDir,
		func(cfg *config.Config) {
			log.Info("pollux: configuration file changed; per-provider transport settings take effect on next restart")
		},
		func() {
			ingestCredentialFiles(context.Background(), credentialDir, runtimes, cat)
		},
	)
	if err != nil {
		return nil, err
	}
	stop := make(chan struct{})
	go w.Run(stop)
	return w, nil
}

// ingestCredentialFiles scans credentialDir for *.json credential files and
// submits each provider's refresh tokens to its pool, mirroring the
// zero-trust resource:add endpoint but sourced from disk at startup and on
// every subsequent file-watch change. An unset credentialDir is a no-op; a
// file naming an unconfigured provider is skipped with a warning.
func ingestCredentialFiles(ctx context.Context, credentialDir string, runtimes map[string]*api.ProviderRuntime, cat *catalog.Catalog) {
	if credentialDir == "" {
		return
	}

	entries, err := credfile.LoadDir(credentialDir)
	if err != nil {
		log.WithError(err).WithField("dir", credentialDir).Warn("pollux: failed to scan credential directory")
		return
	}

	byProvider := make(map[string][]credfile.Entry, len(runtimes))
	for _, e := range entries {
		byProvider[e.Provider] = append(byProvider[e.Provider], e)
	}

	for provider, es := range byProvider {
		runtime, ok := runtimes[provider]
		if !ok {
			log.WithField("provider", provider).Warn("pollux: credential file names an unknown provider, skipping")
			continue
		}

		tokens := make([]string, 0, len(es))
		mask := runtime.ResourceMask
		for _, e := range es {
			tokens = append(tokens, e.RefreshToken)
			if len(e.ModelList) > 0 {
				if m := cat.MaskFromNames(e.ModelList); m != 0 {
					mask = m
				}
			}
		}

		if err := runtime.Pool.SubmitRefreshTokens(ctx, provider, tokens, mask); err != nil {
			log.WithError(err).WithField("provider", provider).Warn("pollux: credential file ingestion failed")
		}
	}
}

// startCooldownReconciler periodically promotes credentials whose cooldown
// has elapsed back to healthy, so a provider outage self-heals without a
// request needing to discover it.
func startCooldownReconciler(ctx context.Context, runtimes map[string]*api.ProviderRuntime) func() {
	ticker := time.NewTicker(30 * time.Second)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				close(done)
				return
			case <-ticker.C:
				for name, rt := range runtimes {
					if err := rt.Pool.ReconcileCooldowns(ctx); err != nil {
						log.WithError(err).WithField("provider", name).Warn("pollux: cooldown reconcile failed")
					}
				}
			}
		}
	}()
	return func() { <-done }
}
