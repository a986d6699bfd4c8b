// Package config loads relay/proxy configuration from a JSON file,
// with environment variables overriding secrets that should never live
// on disk.
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/brewlink/relay/pkg/logger"
)

// Config is the top-level configuration for the relay process.
type Config struct {
	Logging  logger.Config  `json:"logging"`
	Postgres PostgresConfig `json:"postgres"`
	NATS     NATSConfig     `json:"nats"`
	Relay    RelayConfig    `json:"relay"`
	Proxy    ProxyConfig    `json:"proxy"`
	HTTPAddr string         `json:"http_addr"`
}

// PostgresConfig describes the Credential/Ownership Store's backing database.
type PostgresConfig struct {
	DSN string `json:"dsn"`
}

// NATSConfig describes the optional device-lifecycle event publisher.
type NATSConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
	Stream  string `json:"stream"`
}

// RelayConfig controls Device Relay tunables. The relay and proxy
// share one HTTP listener (cfg.HTTPAddr), routed by path.
type RelayConfig struct {
	PingIntervalSeconds   int `json:"ping_interval_seconds"`
	MaxMissedPings        int `json:"max_missed_pings"`
	ReconcileIntervalSecs int `json:"reconcile_interval_seconds"`
}

// ProxyConfig controls Client Proxy tunables.
type ProxyConfig struct {
	PingIntervalSeconds int `json:"ping_interval_seconds"`
	MaxMissedPongs      int `json:"max_missed_pongs"`
	QueueCapacity       int `json:"queue_capacity"`
	QueueTTLSeconds     int `json:"queue_ttl_seconds"`
	CacheStaleSeconds   int `json:"cache_stale_seconds"`
}

// Default returns the out-of-the-box configuration for the relay plane.
func Default() Config {
	return Config{
		Logging:  logger.Config{Level: "info", Output: "stdout"},
		HTTPAddr: ":8080",
		Relay: RelayConfig{
			PingIntervalSeconds:   10,
			MaxMissedPings:        2,
			ReconcileIntervalSecs: 60,
		},
		Proxy: ProxyConfig{
			PingIntervalSeconds: 30,
			MaxMissedPongs:      2,
			QueueCapacity:       50,
			QueueTTLSeconds:     10,
			CacheStaleSeconds:   10,
		},
	}
}

// Load reads cfgPath as JSON over the defaults, then applies environment
// overrides for values operators should not have to put in a file.
func Load(ctx context.Context, cfgPath string) (Config, error) {
	cfg := Default()

	if cfgPath != "" {
		if err := (&FileLoader{}).Load(ctx, cfgPath, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("BREWRELAY_POSTGRES_DSN")); v != "" {
		cfg.Postgres.DSN = v
	}

	if v := strings.TrimSpace(os.Getenv("BREWRELAY_NATS_URL")); v != "" {
		cfg.NATS.URL = v
	}

	if v := strings.TrimSpace(os.Getenv("BREWRELAY_NATS_ENABLED")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.NATS.Enabled = b
		}
	}

	if v := strings.TrimSpace(os.Getenv("BREWRELAY_LOG_LEVEL")); v != "" {
		cfg.Logging.Level = v
	}
}

// ErrEmptyConfigPath is returned by FileLoader.Load when path is empty.
var ErrEmptyConfigPath = fmt.Errorf("config: path must not be empty")
