package config

import (
	"fmt"
	"time"
)

// Config holds runtime settings for the ace client.
//
// Fields:
//   - APIBaseURL: base URL of the explorer backend.
//   - StoragePath: SQLite file shared by every client process of the user.
//   - LogLevel: debug, info, warn or error.
//   - OnlineCheckInterval: how often the client probes backend reachability.
//   - WatchInterval: how often the storage change log is polled.
//   - RequestTimeout: upper bound for a single backend request.
type Config struct {
	APIBaseURL          string        `env:"ACE_API_BASE_URL"`
	StoragePath         string        `env:"ACE_STORAGE_PATH"`
	LogLevel            string        `env:"ACE_LOG_LEVEL"`
	OnlineCheckInterval time.Duration `env:"ACE_ONLINE_CHECK_INTERVAL"`
	WatchInterval       time.Duration `env:"ACE_WATCH_INTERVAL"`
	RequestTimeout      time.Duration `env:"ACE_REQUEST_TIMEOUT"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8000"
	c.StoragePath = "ace.db"
	c.LogLevel = "info"
	c.OnlineCheckInterval = 3 * time.Second
	c.WatchInterval = 500 * time.Millisecond
	c.RequestTimeout = 30 * time.Second
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("api base url must be set")
	}
	if c.StoragePath == "" {
		return fmt.Errorf("storage path must be set")
	}
	if c.OnlineCheckInterval <= 0 {
		return fmt.Errorf("online check interval must be positive, got %s", c.OnlineCheckInterval)
	}
	if c.WatchInterval <= 0 {
		return fmt.Errorf("watch interval must be positive, got %s", c.WatchInterval)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment, JSON (if present) and command-line flags (if present).
// Later sources take precedence over earlier ones.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseJson(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
