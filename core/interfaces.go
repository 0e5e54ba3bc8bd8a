// Package core provides the foundational abstractions shared by every
// subsystem of the cartography engine: structured logging, telemetry spans,
// and the circuit-breaker contract used around external model calls.
package core

import (
	"context"
	"time"
)

// Logger is the minimal structured-logging interface used throughout the
// engine. Fields are passed as a flat map so implementations can render them
// as JSON (production) or key=value pairs (local development) without the
// caller caring which.
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	Debug(msg string, fields map[string]interface{})

	InfoWithContext(ctx context.Context, msg string, fields map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, fields map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{})
	DebugWithContext(ctx context.Context, msg string, fields map[string]interface{})
}

// ComponentAwareLogger lets a subsystem stamp its own component tag onto a
// shared base logger, e.g. "dispatcher", "applier", "chainrefine". This keeps
// the debug trace's log lines attributable without threading a component
// string through every call site.
type ComponentAwareLogger interface {
	Logger
	WithComponent(component string) Logger
}

// Telemetry is the minimal tracing/metrics interface. It is optional: every
// entry point accepts a nil-safe NoOpTelemetry by default so the engine
// never depends on an observability backend being configured.
type Telemetry interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
	Counter(name string, value float64, labels map[string]string)
}

// Span represents a single unit of traced work.
type Span interface {
	End()
	SetAttribute(key string, value interface{})
	RecordError(err error)
}

// NoOpLogger discards everything. Used whenever a caller does not supply a
// logger; every subsystem must tolerate a nil logger by substituting this.
type NoOpLogger struct{}

func (NoOpLogger) Info(string, map[string]interface{})  {}
func (NoOpLogger) Warn(string, map[string]interface{})  {}
func (NoOpLogger) Error(string, map[string]interface{}) {}
func (NoOpLogger) Debug(string, map[string]interface{}) {}

func (NoOpLogger) InfoWithContext(context.Context, string, map[string]interface{})  {}
func (NoOpLogger) WarnWithContext(context.Context, string, map[string]interface{})  {}
func (NoOpLogger) ErrorWithContext(context.Context, string, map[string]interface{}) {}
func (NoOpLogger) DebugWithContext(context.Context, string, map[string]interface{}) {}

func (n NoOpLogger) WithComponent(string) Logger { return n }

// NoOpTelemetry discards spans and metrics.
type NoOpTelemetry struct{}

func (NoOpTelemetry) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, NoOpSpan{}
}
func (NoOpTelemetry) Counter(string, float64, map[string]string) {}

// NoOpSpan discards attributes and errors.
type NoOpSpan struct{}

func (NoOpSpan) End()                               {}
func (NoOpSpan) SetAttribute(string, interface{})   {}
func (NoOpSpan) RecordError(error)                  {}

// CircuitBreaker protects an external call (a model request) against
// cascading failure. The resilience package provides the implementation;
// this interface keeps callers (the dispatcher) decoupled from it.
type CircuitBreaker interface {
	Execute(ctx context.Context, fn func() error) error
	CanExecute() bool
	RecordSuccess()
	RecordFailure()
	State() string
}

// RateWindow tracks the last time a keyed resource (a model name) was used,
// for the dispatcher's global pacing rule (§4.1.b). Implementations must be
// safe for concurrent use: the counter is process-wide.
type RateWindow interface {
	// Observe returns how long the caller must wait before the window for
	// key is clear, and records the attempt as happening now + that wait.
	Observe(key string, floor, backoff time.Duration) time.Duration
}
