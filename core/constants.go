package core

import "time"

// Environment variable names read by config.Load. Kept in one place so the
// engine's tunables are discoverable without grepping every package.
const (
	EnvLogLevel          = "CARTO_LOG_LEVEL"
	EnvLogFormat         = "CARTO_LOG_FORMAT"
	EnvModelRetries      = "CARTO_MODEL_RETRIES"
	EnvRateLimitFloorMs  = "CARTO_RATE_LIMIT_FLOOR_MS"
	EnvChainMaxRounds    = "CARTO_CHAIN_MAX_ROUNDS"
	EnvRequestTimeout    = "CARTO_REQUEST_TIMEOUT"
)

// DefaultDispatchRetries is S from spec §4.1.c: per-model retry budget.
const DefaultDispatchRetries = 3

// DefaultRateLimitFloor is the 5000ms floor from spec §4.1.b.
const DefaultRateLimitFloor = 5000 * time.Millisecond

// DefaultChainMaxRounds is MAX_CHAIN_REFINEMENT_ROUNDS from spec §4.4.
const DefaultChainMaxRounds = 2

// DefaultRequestTimeout bounds a single model HTTP call.
const DefaultRequestTimeout = 30 * time.Second
