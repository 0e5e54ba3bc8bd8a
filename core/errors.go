package core

import (
	"errors"
	"fmt"
)

// Sentinel errors corresponding to the error kinds of spec §7. Callers
// classify with errors.Is/errors.As rather than comparing strings.
var (
	// ErrInvalidCredential is fatal: it aborts the whole dispatch chain and
	// must be surfaced to the caller, never retried or failed over.
	ErrInvalidCredential = errors.New("invalid api credential")

	// ErrTransient covers network resets, timeouts, and other transport
	// failures that are retried in place before moving to the next model.
	ErrTransient = errors.New("transient transport error")

	// ErrServerOrClient covers HTTP 4xx/5xx responses from a model provider;
	// retried up to the per-model budget, then falls through to the next
	// model in the priority list.
	ErrServerOrClient = errors.New("retryable server or client error")

	// ErrParseFailure means the model's raw text could not be turned into
	// JSON at all. Recorded in the debug trace; the caller treats the
	// payload as null.
	ErrParseFailure = errors.New("could not parse json envelope")

	// ErrValidationFailure means JSON was parsed but failed schema
	// validation against the MapUpdate payload shape.
	ErrValidationFailure = errors.New("payload failed schema validation")

	// ErrStructuralConflict marks an internally-recovered graph conflict
	// (e.g. a same-type-parent cycle with no legal resolution). The applier
	// logs it and continues; it never aborts a turn.
	ErrStructuralConflict = errors.New("structural conflict in map graph")

	// ErrSoftRefusal marks an operation silently skipped because it would
	// violate a game-state invariant (e.g. removing a node holding an item).
	ErrSoftRefusal = errors.New("operation refused by invariant")

	// ErrMaxRetriesExceeded is wrapped into the final error once a model's
	// retry budget is exhausted.
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")

	// ErrAllModelsExhausted is returned once every model in a dispatch
	// request's priority list has failed.
	ErrAllModelsExhausted = errors.New("all models exhausted")

	// ErrCircuitOpen is returned by a circuit breaker refusing a call.
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// EngineError gives structured context to an error without losing the
// original cause: Op identifies the failing operation (e.g.
// "dispatcher.Send", "applier.P8"), Kind classifies it for log filtering,
// and Err is the wrapped sentinel or underlying cause.
type EngineError struct {
	Op      string
	Kind    string
	ID      string
	Message string
	Err     error
}

func (e *EngineError) Error() string {
	switch {
	case e.Op != "" && e.ID != "" && e.Err != nil:
		return fmt.Sprintf("%s [%s]: %v", e.Op, e.ID, e.Err)
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return fmt.Sprintf("%s error", e.Kind)
	}
}

func (e *EngineError) Unwrap() error { return e.Err }

// NewEngineError wraps err with operation/kind context.
func NewEngineError(op, kind string, err error) *EngineError {
	return &EngineError{Op: op, Kind: kind, Err: err}
}

// IsRetryable reports whether err is one of the two dispatcher-retryable
// kinds (transient transport or server/client HTTP failure).
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrServerOrClient)
}

// IsFatal reports whether err should abort the entire turn rather than be
// absorbed internally.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInvalidCredential)
}
