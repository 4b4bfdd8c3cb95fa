// Package config defines service and client configuration and its loading.
//
// Conventions:
// - Defaults live in New; Load layers a YAML file and WORMHOLE_* env vars on top.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration shared by the server and wormholectl.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// MetricsEnabled switches Prometheus recording on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`
	// MetricsRefreshInterval is how often polled gauges are refreshed.
	MetricsRefreshInterval time.Duration `koanf:"metrics_refresh_interval"`

	// QueueSize bounds the in-memory submission queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of submission workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize bounds the duplicate-submission cache.
	DedupeSize int `koanf:"dedupe_size"`

	// StoreDriver selects the wormhole store: memory or sqlite.
	StoreDriver string `koanf:"store_driver"`
	// ShardCount configures the number of shards in the memory store.
	ShardCount int `koanf:"shard_count"`
	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string `koanf:"sqlite_path"`

	// JWTSecret signs and verifies bearer tokens (HS256). It has no default;
	// the server refuses to start without one of at least MinJWTSecretLen bytes.
	JWTSecret string `koanf:"jwt_secret"`
	// TokenTTL is the lifetime of tokens minted by wormholectl.
	TokenTTL time.Duration `koanf:"token_ttl"`

	// DefaultLifetimeHours applies to wormhole types missing from TypeLifetimesHours.
	DefaultLifetimeHours float64 `koanf:"default_lifetime_hours"`
	// TypeLifetimesHours maps wormhole type codes to their maximum lifetime.
	TypeLifetimesHours map[string]float64 `koanf:"type_lifetimes_hours"`

	// BaseURL is the API root used by the request client.
	BaseURL string `koanf:"base_url"`
	// Token is the bearer token the request client sends.
	Token string `koanf:"token"`
	// Locale is sent as Accept-Language by the request client.
	Locale string `koanf:"locale"`
	// RequestTimeout bounds each client request.
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// MinJWTSecretLen is the shortest accepted jwt_secret, the HS256 key size.
const MinJWTSecretLen = 32

// Store drivers.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":9080",
		MetricsEnabled:         true,
		MetricsRefreshInterval: 10 * time.Second,
		QueueSize:              10_000,
		WorkerCount:            runtime.NumCPU() * 2,
		DedupeSize:             100_000,
		StoreDriver:            StoreMemory,
		ShardCount:             8,
		SQLitePath:             "wormhole.db",
		TokenTTL:               24 * time.Hour,
		DefaultLifetimeHours:   16,
		TypeLifetimesHours: map[string]float64{
			"K162": 16,
			"B274": 24,
			"C247": 16,
			"H296": 24,
			"N062": 24,
			"V753": 24,
			"X877": 16,
		},
		BaseURL:        "http://localhost:9080",
		Locale:         "en-US",
		RequestTimeout: 10 * time.Second,
	}
}
