// Package config loads and resolves Pollux's TOML configuration. Defaults
// merge with config.toml, which a sibling .env can override for
// secret-bearing fields.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// ProviderDefaults holds the fallback values a per-provider table inherits
// from when its own field is unset.
type ProviderDefaults struct {
	Proxy              string `toml:"proxy"`
	EnableMultiplexing bool   `toml:"enable_multiplexing"`
	RetryMaxTimes      int    `toml:"retry_max_times"`
}

// ProviderConfig is one provider's table (providers.geminicli, .codex, .antigravity).
// Pointer fields distinguish "unset, inherit from defaults" from an
// explicit zero value.
type ProviderConfig struct {
	Proxy              string   `toml:"proxy"`
	OAuthTPS           int      `toml:"oauth_tps"`
	ModelList          []string `toml:"model_list"`
	EnableMultiplexing *bool    `toml:"enable_multiplexing"`
	RetryMaxTimes      *int     `toml:"retry_max_times"`
}

// Resolved is a ProviderConfig with every inheritable field already merged
// against ProviderDefaults, ready for cmd wiring to consume directly.
type Resolved struct {
	Proxy              string
	OAuthTPS           int
	ModelList          []string
	EnableMultiplexing bool
	RetryMaxTimes      int
}

// Resolve merges pc against defaults: an explicitly set field on pc wins,
// an unset pointer field inherits from defaults, and zero-value scalars
// (proxy, oauth_tps, model_list) fall back to defaults or a built-in
// minimum.
func (pc ProviderConfig) Resolve(defaults ProviderDefaults) Resolved {
	r := Resolved{
		Proxy:              pc.Proxy,
		OAuthTPS:           pc.OAuthTPS,
		ModelList:          pc.ModelList,
		EnableMultiplexing: defaults.EnableMultiplexing,
		RetryMaxTimes:      defaults.RetryMaxTimes,
	}
	if r.Proxy == "" {
		r.Proxy = defaults.Proxy
	}
	if r.OAuthTPS == 0 {
		r.OAuthTPS = 5
	}
	if len(r.ModelList) == 0 {
		r.ModelList = []string{"gemini-2.5-pro"}
	}
	if pc.EnableMultiplexing != nil {
		r.EnableMultiplexing = *pc.EnableMultiplexing
	}
	if pc.RetryMaxTimes != nil {
		r.RetryMaxTimes = *pc.RetryMaxTimes
	}
	return r
}

// ProvidersConfig is the providers.* TOML table.
type ProvidersConfig struct {
	Defaults    ProviderDefaults `toml:"defaults"`
	GeminiCLI   ProviderConfig   `toml:"geminicli"`
	Codex       ProviderConfig   `toml:"codex"`
	Antigravity ProviderConfig   `toml:"antigravity"`
}

// BasicConfig is the basic.* TOML table.
type BasicConfig struct {
	ListenAddr  string `toml:"listen_addr"`
	ListenPort  int    `toml:"listen_port"`
	DatabaseURL string `toml:"database_url"`
	LogLevel    string `toml:"loglevel"`
	LogToFile   bool   `toml:"log_to_file"`
	PolluxKey   string `toml:"pollux_key"`
}

// Config is the root config.toml shape.
type Config struct {
	Basic     BasicConfig     `toml:"basic"`
	Providers ProvidersConfig `toml:"providers"`
}

func defaultConfig() Config {
	return Config{
		Basic: BasicConfig{
			ListenAddr:  "0.0.0.0",
			ListenPort:  8188,
			DatabaseURL: "sqlite://data.db",
			LogLevel:    "info",
		},
		Providers: ProvidersConfig{
			Defaults: ProviderDefaults{RetryMaxTimes: 3},
		},
	}
}

// Load reads an optional .env sitting next to configPath, then merges
// configPath's TOML over the built-in defaults. A missing config file is
// not an error: the defaults (as overridden by .env) stand alone. It
// returns an error only
// for a malformed TOML file or an empty basic.pollux_key.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := defaultConfig()
	if data, err := os.ReadFile(configPath); err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: read %s: %w", configPath, err)
	}

	applyEnvOverrides(&cfg)

	if strings.TrimSpace(cfg.Basic.PolluxKey) == "" {
		return nil, fmt.Errorf("config: basic.pollux_key must be set and non-empty")
	}
	return &cfg, nil
}

// applyEnvOverrides lets POLLUX_KEY and DATABASE_URL win over both the TOML
// file and built-in defaults.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("POLLUX_KEY"); v != "" {
		cfg.Basic.PolluxKey = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Basic.DatabaseURL = v
	}
}
