// Package debug implements the debug packet threaded through every phase of
// a cartography turn (spec §4.5's closing note: "All phases write to the
// same debug trace"). It is a typed value, not a log string, so the
// (out-of-scope) UI can render it directly; grounded on the teacher's
// span/log field-map idiom in telemetry.Logger, generalized from "fields
// attached to one log line" to "a structured record attached to one turn."
package debug

import "github.com/hollowmap/cartographer/llm"

// ModelCall is one dispatcher attempt recorded into the trace, mirroring
// llm.Attempt as a separate type with the error flattened to a string and
// the duration in milliseconds (kept parallel rather than aliased,
// matching the teacher's preference for explicit per-package DTOs over
// cross-package type reuse in its own telemetry/ai boundary).
type ModelCall struct {
	Model       string
	Prompt      string
	System      string
	RawResponse string
	Err         string
	DurationMs  int64
}

// ChainRound captures one round of connector-chain refinement (spec §4.4).
type ChainRound struct {
	Round           int
	RequestsIn      int
	NodesAdded      int
	EdgesAdded      int
	RequestsDropped int
	Note            string
}

// Trace accumulates everything produced during a single applyMapUpdates
// call: the orchestrator's prompt/response, the parsed payload and any
// validation errors, every dispatcher attempt across C1/C5/C6, and the
// per-round connector-chain summaries, plus free-form warnings raised by
// the applier's phases.
type Trace struct {
	Prompt           string
	SystemInstr      string
	RawResponse      string
	ParsedPayload    string
	ValidationErrors []string
	ModelCalls       []ModelCall
	ChainRounds      []ChainRound
	Warnings         []string
}

// New returns an empty trace ready for phase-by-phase accumulation.
func New() *Trace {
	return &Trace{}
}

// RecordPrompt stamps the orchestrator's built prompt/system instruction.
func (t *Trace) RecordPrompt(prompt, system string) {
	t.Prompt = prompt
	t.SystemInstr = system
}

// RecordResponse stamps the raw and parsed payload once C1/C2 complete.
func (t *Trace) RecordResponse(raw, parsed string) {
	t.RawResponse = raw
	t.ParsedPayload = parsed
}

// RecordValidationError appends a schema/parse failure message.
func (t *Trace) RecordValidationError(msg string) {
	t.ValidationErrors = append(t.ValidationErrors, msg)
}

// Sink returns an llm.Sink that appends every dispatcher attempt onto this
// trace's ModelCalls, letting every Model Dispatcher call site (C1 itself,
// and every C5 correction service) share one recording contract.
func (t *Trace) Sink() llm.Sink {
	return llm.SinkFunc(func(a llm.Attempt) {
		errText := ""
		if a.Err != nil {
			errText = a.Err.Error()
		}
		t.ModelCalls = append(t.ModelCalls, ModelCall{
			Model:       a.Model,
			Prompt:      a.Prompt,
			System:      a.SystemInstruction,
			RawResponse: a.RawResponse,
			Err:         errText,
			DurationMs:  a.Duration.Milliseconds(),
		})
	})
}

// RecordChainRound appends one connector-chain refinement round's summary.
func (t *Trace) RecordChainRound(r ChainRound) {
	t.ChainRounds = append(t.ChainRounds, r)
}

// Warn appends a free-form warning (P1 name-collision drops, P6 soft
// refusals, P7 unresolved conflicts, and similar phase-level notices).
func (t *Trace) Warn(msg string) {
	t.Warnings = append(t.Warnings, msg)
}
