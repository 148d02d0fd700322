package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
[basic]
pollux_key = "secret"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Basic.ListenAddr != "0.0.0.0" || cfg.Basic.ListenPort != 8188 {
		t.Fatalf("unexpected basic defaults: %+v", cfg.Basic)
	}
	if cfg.Basic.DatabaseURL != "sqlite://data.db" {
		t.Fatalf("database_url default = %q", cfg.Basic.DatabaseURL)
	}
	if cfg.Providers.Defaults.RetryMaxTimes != 3 {
		t.Fatalf("retry_max_times default = %d", cfg.Providers.Defaults.RetryMaxTimes)
	}
}

func TestLoadRejectsEmptyPolluxKey(t *testing.T) {
	path := writeTempConfig(t, `[basic]`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected an error for empty basic.pollux_key")
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("POLLUX_KEY", "from-env")
	cfg, err := Load(filepath.Join(dir, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Basic.PolluxKey != "from-env" {
		t.Fatalf("pollux_key = %q", cfg.Basic.PolluxKey)
	}
}

func TestProviderConfigResolveInheritsDefaults(t *testing.T) {
	defaults := ProviderDefaults{Proxy: "http://default:1080", EnableMultiplexing: false, RetryMaxTimes: 3}
	pc := ProviderConfig{}
	r := pc.Resolve(defaults)
	if r.Proxy != "http://default:1080" {
		t.Fatalf("proxy = %q", r.Proxy)
	}
	if r.OAuthTPS != 5 {
		t.Fatalf("oauth_tps default = %d", r.OAuthTPS)
	}
	if len(r.ModelList) != 1 || r.ModelList[0] != "gemini-2.5-pro" {
		t.Fatalf("model_list default = %v", r.ModelList)
	}
	if r.RetryMaxTimes != 3 {
		t.Fatalf("retry_max_times = %d", r.RetryMaxTimes)
	}
}

func TestProviderConfigResolveOverridesDefaults(t *testing.T) {
	defaults := ProviderDefaults{RetryMaxTimes: 3, EnableMultiplexing: false}
	multiplex := true
	retries := 7
	pc := ProviderConfig{Proxy: "http://own:1080", EnableMultiplexing: &multiplex, RetryMaxTimes: &retries}
	r := pc.Resolve(defaults)
	if r.Proxy != "http://own:1080" {
		t.Fatalf("proxy = %q", r.Proxy)
	}
	if !r.EnableMultiplexing {
		t.Fatalf("expected enable_multiplexing override to win")
	}
	if r.RetryMaxTimes != 7 {
		t.Fatalf("retry_max_times = %d", r.RetryMaxTimes)
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := writeTempConfig(t, `
[basic]
pollux_key = "from-file"
database_url = "sqlite://file.db"
`)
	t.Setenv("POLLUX_KEY", "from-env")
	t.Setenv("DATABASE_URL", "sqlite://env.db")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Basic.PolluxKey != "from-env" {
		t.Fatalf("pollux_key = %q", cfg.Basic.PolluxKey)
	}
	if cfg.Basic.DatabaseURL != "sqlite://env.db" {
		t.Fatalf("database_url = %q", cfg.Basic.DatabaseURL)
	}
}
