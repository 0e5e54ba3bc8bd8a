// Package resilience wraps outbound model calls with the two protections
// the dispatcher needs on top of typed retries: a circuit breaker that stops
// hammering a provider once it is clearly down, and a bounded exponential
// backoff for transient failures. Both follow the teacher framework's
// resilience package in shape, trimmed to the single-process scope this
// engine actually needs.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/hollowmap/cartographer/core"
)

// CircuitState is one of closed, open, or half-open.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreakerConfig tunes a single breaker instance.
type CircuitBreakerConfig struct {
	Name             string
	FailureThreshold int           // consecutive failures before opening
	SleepWindow      time.Duration // time spent open before trying half-open
	SuccessThreshold int           // consecutive half-open successes to close
	Logger           core.Logger
}

// DefaultCircuitBreakerConfig matches the teacher's defaults, scaled down:
// five consecutive failures opens the breaker for thirty seconds.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		SleepWindow:      30 * time.Second,
		SuccessThreshold: 2,
		Logger:           core.NoOpLogger{},
	}
}

// CircuitBreaker is a consecutive-failure breaker: no sliding windows or
// bucketed error rates, just a streak counter per model name. That matches
// the dispatcher's actual failure pattern (a provider is either answering or
// it isn't) without the bookkeeping a request-volume breaker needs.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu              sync.Mutex
	state           CircuitState
	consecutiveFail int
	consecutiveOK   int
	openedAt        time.Time
}

// NewCircuitBreaker creates a breaker in the closed state.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.Logger == nil {
		cfg.Logger = core.NoOpLogger{}
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	return &CircuitBreaker{cfg: cfg, state: StateClosed}
}

// CanExecute reports whether a call may proceed right now, transitioning
// open -> half-open once the sleep window has elapsed.
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Since(cb.openedAt) >= cb.cfg.SleepWindow {
			cb.state = StateHalfOpen
			cb.consecutiveOK = 0
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess registers a successful call.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFail = 0
	switch cb.state {
	case StateHalfOpen:
		cb.consecutiveOK++
		if cb.consecutiveOK >= cb.cfg.SuccessThreshold {
			cb.state = StateClosed
			cb.consecutiveOK = 0
		}
	case StateOpen:
		cb.state = StateClosed
	}
}

// RecordFailure registers a failed call, opening the breaker once the
// consecutive-failure threshold is reached (or immediately, from half-open).
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen {
		cb.open()
		return
	}

	cb.consecutiveFail++
	if cb.consecutiveFail >= cb.cfg.FailureThreshold {
		cb.open()
	}
}

func (cb *CircuitBreaker) open() {
	cb.state = StateOpen
	cb.openedAt = time.Now()
	cb.consecutiveFail = 0
	cb.consecutiveOK = 0
	cb.cfg.Logger.Warn("circuit breaker opened", map[string]interface{}{
		"breaker": cb.cfg.Name,
	})
}

// State returns the current state as a string, for logging and the debug
// trace.
func (cb *CircuitBreaker) State() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state.String()
}

// Execute runs fn if the breaker allows it, recording the outcome. It
// returns core.ErrCircuitOpen without calling fn when the breaker is open.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if !cb.CanExecute() {
		return core.ErrCircuitOpen
	}

	err := fn()
	if err != nil {
		cb.RecordFailure()
		return err
	}
	cb.RecordSuccess()
	return nil
}

var _ core.CircuitBreaker = (*CircuitBreaker)(nil)
