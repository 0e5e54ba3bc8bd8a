// Package config loads the cartography engine's tunables: default values,
// overridden by environment variables, overridden again by functional
// options passed at construction time. This three-layer priority and the
// env-var-tag-as-documentation style follow the teacher framework's
// Config/NewConfig convention.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/hollowmap/cartographer/core"
)

// Config holds every tunable the engine's components read at construction
// time. Nothing here is mutated after Load returns.
type Config struct {
	// Dispatch (C1)
	ModelRetries     int           `env:"CARTO_MODEL_RETRIES" default:"3"`
	RateLimitFloor   time.Duration `env:"CARTO_RATE_LIMIT_FLOOR_MS" default:"5000ms"`
	RequestTimeout   time.Duration `env:"CARTO_REQUEST_TIMEOUT" default:"30s"`

	// Chain refinement (C6)
	ChainMaxRounds int `env:"CARTO_CHAIN_MAX_ROUNDS" default:"2"`

	// Logging
	LogLevel  string `env:"CARTO_LOG_LEVEL" default:"info"`
	LogFormat string `env:"CARTO_LOG_FORMAT" default:"text"`
}

// Option mutates a Config at construction time; the highest-priority layer.
type Option func(*Config)

// WithModelRetries overrides the per-model retry budget S (spec §4.1.c).
func WithModelRetries(n int) Option {
	return func(c *Config) { c.ModelRetries = n }
}

// WithRateLimitFloor overrides the dispatcher's global pacing floor.
func WithRateLimitFloor(d time.Duration) Option {
	return func(c *Config) { c.RateLimitFloor = d }
}

// WithRequestTimeout overrides the per-call HTTP timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Config) { c.RequestTimeout = d }
}

// WithChainMaxRounds overrides MAX_CHAIN_REFINEMENT_ROUNDS (spec §4.4).
func WithChainMaxRounds(n int) Option {
	return func(c *Config) { c.ChainMaxRounds = n }
}

// WithLogging overrides the log level/format.
func WithLogging(level, format string) Option {
	return func(c *Config) {
		if level != "" {
			c.LogLevel = level
		}
		if format != "" {
			c.LogFormat = format
		}
	}
}

func defaults() Config {
	return Config{
		ModelRetries:   core.DefaultDispatchRetries,
		RateLimitFloor: core.DefaultRateLimitFloor,
		RequestTimeout: core.DefaultRequestTimeout,
		ChainMaxRounds: core.DefaultChainMaxRounds,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

func loadFromEnv(c *Config) {
	if v := os.Getenv(core.EnvModelRetries); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.ModelRetries = n
		}
	}
	if v := os.Getenv(core.EnvRateLimitFloorMs); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			c.RateLimitFloor = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv(core.EnvChainMaxRounds); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.ChainMaxRounds = n
		}
	}
	if v := os.Getenv(core.EnvRequestTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RequestTimeout = d
		}
	}
	if v := os.Getenv(core.EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(core.EnvLogFormat); v != "" {
		c.LogFormat = v
	}
}

// Load builds a Config from defaults, then environment variables, then the
// supplied functional options, in that priority order.
func Load(opts ...Option) *Config {
	c := defaults()
	loadFromEnv(&c)
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}
