// Package llm implements the Model Dispatcher: delivery of a single text
// generation request against a priority-ordered list of models, with
// capability gating, global rate pacing, per-model retry, and typed-error
// classification. It follows the teacher framework's ai.ChainClient idiom —
// hand-rolled net/http provider clients behind a common interface, no
// official vendor SDKs.
package llm

import (
	"context"
	"time"
)

// Capabilities describes what a model supports, gating how the dispatcher
// builds a request for it.
type Capabilities struct {
	SupportsSystemInstruction bool
	SupportsThinking          bool
	SupportsJSONSchema        bool
}

// Request is a single generation request, independent of which model ends
// up serving it.
type Request struct {
	// Prompt is the user-turn content.
	Prompt string
	// SystemInstruction is optional; folded into the prompt for models that
	// don't support it separately.
	SystemInstruction string
	// JSONSchema, if non-nil, constrains the reply shape. Models without
	// SupportsJSONSchema get it serialized textually and appended to the
	// system instruction instead.
	JSONSchema interface{}
	// ThinkingBudget is an optional token budget for extended reasoning.
	// The dispatcher and the bundled provider clients do not send it to any
	// model, whatever its SupportsThinking flag.
	ThinkingBudget int
	// Label identifies the call site for telemetry (e.g. "cartography.update",
	// "correction.resolveIdentifier").
	Label string
	// Temperature controls sampling randomness.
	Temperature float32
}

// Response is what a successful model call returns.
type Response struct {
	Text              string
	Model             string
	ResolvedPrompt    string
	ResolvedSystem    string
}

// Attempt records one model call for the caller's debug sink, win or lose.
type Attempt struct {
	Model             string
	Prompt            string
	SystemInstruction string
	RawResponse       string
	Err               error
	Duration          time.Duration
}

// Sink receives every dispatch attempt, successful or not. Callers that
// don't care about per-attempt detail pass a nil sink.
type Sink interface {
	Record(Attempt)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Attempt)

func (f SinkFunc) Record(a Attempt) { f(a) }

// Provider is a single model backend: one HTTP API, potentially serving
// several model names.
type Provider interface {
	// Generate issues req against model and returns its raw text reply.
	Generate(ctx context.Context, model string, req Request) (string, error)
}
