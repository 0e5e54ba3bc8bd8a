package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hollowmap/cartographer/core"
	"github.com/hollowmap/cartographer/resilience"
)

// ModelEntry binds a model name to the provider that serves it and the
// capability flags the dispatcher gates request-building on.
type ModelEntry struct {
	Name         string
	Provider     Provider
	Capabilities Capabilities
}

// Registry resolves model names to their entry. The dispatcher never talks
// to a provider it can't find here.
type Registry struct {
	entries map[string]ModelEntry
}

// NewRegistry builds a registry from entries, keyed by Name.
func NewRegistry(entries ...ModelEntry) *Registry {
	r := &Registry{entries: make(map[string]ModelEntry, len(entries))}
	for _, e := range entries {
		r.entries[e.Name] = e
	}
	return r
}

func (r *Registry) lookup(model string) (ModelEntry, bool) {
	e, ok := r.entries[model]
	return e, ok
}

// Dispatcher implements the Model Dispatcher (spec component C1): given a
// priority-ordered model list, it tries each in turn, retrying transient
// failures up to Retries times before falling through to the next model.
type Dispatcher struct {
	registry *Registry
	rate     core.RateWindow
	breakers map[string]*resilience.CircuitBreaker

	Retries        int
	RateLimitFloor time.Duration

	Logger    core.Logger
	Telemetry core.Telemetry
}

// NewDispatcher wires a dispatcher against registry. rate paces calls
// per-model (spec §4.1.b); retries is the per-model budget S.
func NewDispatcher(registry *Registry, rate core.RateWindow, retries int, floor time.Duration) *Dispatcher {
	if retries <= 0 {
		retries = core.DefaultDispatchRetries
	}
	if floor <= 0 {
		floor = core.DefaultRateLimitFloor
	}
	return &Dispatcher{
		registry:       registry,
		rate:           rate,
		breakers:       make(map[string]*resilience.CircuitBreaker),
		Retries:        retries,
		RateLimitFloor: floor,
		Logger:         core.NoOpLogger{},
		Telemetry:      core.NoOpTelemetry{},
	}
}

func (d *Dispatcher) breakerFor(model string) *resilience.CircuitBreaker {
	if cb, ok := d.breakers[model]; ok {
		return cb
	}
	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig(model))
	d.breakers[model] = cb
	return cb
}

// Send implements §4.1's contract: for each model in models, in order, it
// gates request-building on capability flags, paces the call, retries up to
// d.Retries times, and only falls through to the next model once that
// model's own retry budget (or circuit breaker) is exhausted. Any other
// error — an invalid credential, or a failure that isn't retryable and
// didn't come from running out of attempts — aborts the whole dispatch and
// bubbles up immediately rather than silently trying the next model (spec
// §4.1.e).
func (d *Dispatcher) Send(ctx context.Context, models []string, req Request, sink Sink) (*Response, error) {
	var lastErr error

	for _, model := range models {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry, ok := d.registry.lookup(model)
		if !ok {
			lastErr = fmt.Errorf("llm: unknown model %q", model)
			continue
		}

		resp, err := d.sendToModel(ctx, entry, req, sink)
		if err == nil {
			return resp, nil
		}
		if core.IsFatal(err) {
			return nil, err
		}
		if errors.Is(err, core.ErrMaxRetriesExceeded) || errors.Is(err, core.ErrCircuitOpen) {
			lastErr = err
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("llm.Send: %w: %v", core.ErrAllModelsExhausted, lastErr)
}

// sendToModel runs the attempt loop for a single model through
// resilience.RetryWithCircuitBreaker: each attempt is paced by d.rate before
// the call, and a fatal or otherwise non-retryable error is returned to the
// caller unwrapped (Retry's contract) rather than spending the rest of the
// attempt budget on it.
func (d *Dispatcher) sendToModel(ctx context.Context, entry ModelEntry, req Request, sink Sink) (*Response, error) {
	ctx, span := d.Telemetry.StartSpan(ctx, "llm.dispatch")
	defer span.End()
	span.SetAttribute("llm.model", entry.Name)
	span.SetAttribute("llm.label", req.Label)

	prompt, system := buildPrompt(entry.Capabilities, req)
	cb := d.breakerFor(entry.Name)

	// Backoff between attempts is d.rate's job (fed by backoffFor below, and
	// paced per-model by the RateWindow) rather than Retry's own, so the
	// config here only bounds the attempt count.
	config := resilience.RetryConfig{MaxAttempts: d.Retries}

	attempt := 0
	var resp *Response
	err := resilience.RetryWithCircuitBreaker(ctx, config, cb, func() error {
		wait := d.rate.Observe(entry.Name, d.RateLimitFloor, backoffFor(attempt))
		attempt++
		if wait > 0 {
			if err := sleep(ctx, wait); err != nil {
				return err
			}
		}

		start := time.Now()
		text, genErr := entry.Provider.Generate(ctx, entry.Name, req)
		duration := time.Since(start)

		attemptRecord := Attempt{
			Model:             entry.Name,
			Prompt:            prompt,
			SystemInstruction: system,
			Duration:          duration,
		}

		if genErr != nil {
			attemptRecord.Err = genErr
			if sink != nil {
				sink.Record(attemptRecord)
			}
			d.Telemetry.Counter("llm.attempt", 1, map[string]string{"model": entry.Name, "outcome": "error"})
			return genErr
		}

		attemptRecord.RawResponse = text
		if sink != nil {
			sink.Record(attemptRecord)
		}
		d.Telemetry.Counter("llm.attempt", 1, map[string]string{"model": entry.Name, "outcome": "success"})
		resp = &Response{
			Text:           text,
			Model:          entry.Name,
			ResolvedPrompt: prompt,
			ResolvedSystem: system,
		}
		return nil
	})

	if err != nil {
		span.RecordError(err)
		if core.IsFatal(err) || errors.Is(err, core.ErrMaxRetriesExceeded) || errors.Is(err, core.ErrCircuitOpen) {
			return nil, err
		}
		return nil, fmt.Errorf("llm.sendToModel[%s]: %w", entry.Name, err)
	}
	return resp, nil
}

func backoffFor(attempt int) time.Duration {
	if attempt == 0 {
		return 0
	}
	return time.Duration(attempt) * 500 * time.Millisecond
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// buildPrompt folds the schema into the system instruction when the model
// can't accept it structurally, per §4.1.a, then folds the system
// instruction into the prompt for models that don't support one at all.
func buildPrompt(caps Capabilities, req Request) (prompt, system string) {
	system = req.SystemInstruction
	if req.JSONSchema != nil && !caps.SupportsJSONSchema {
		if data, err := json.MarshalIndent(req.JSONSchema, "", "  "); err == nil {
			system = system + "\n\nRespond with JSON matching this schema:\n" + string(data)
		}
	}

	if !caps.SupportsSystemInstruction && system != "" {
		return system + "\n\n" + req.Prompt, ""
	}
	return req.Prompt, system
}
