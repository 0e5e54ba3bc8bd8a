// Package cartography implements the Map Update Orchestrator (C8): the
// public entry point that builds the Storyteller-to-Cartographer prompt,
// dispatches it through the Model Dispatcher (C1), parses and validates the
// reply (C2), and hands the resulting payload off to the Update Applier
// (C7). Grounded on the teacher framework's top-level Agent.Process
// orchestration method — one public call that wires every collaborator
// together and returns a single result value, never a partially-built one.
package cartography

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hollowmap/cartographer/applier"
	"github.com/hollowmap/cartographer/chainrefine"
	"github.com/hollowmap/cartographer/core"
	"github.com/hollowmap/cartographer/correction"
	"github.com/hollowmap/cartographer/debug"
	"github.com/hollowmap/cartographer/envelope"
	"github.com/hollowmap/cartographer/graph"
	"github.com/hollowmap/cartographer/llm"
	"github.com/hollowmap/cartographer/mapupdate"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Engine bundles the full collaborator chain a turn needs: the dispatcher
// that talks to models, the correction services C7 falls back on, the chain
// refiner C7's P10 delegates to, and the compiled schema the reply is
// validated against.
type Engine struct {
	Dispatcher *llm.Dispatcher
	Correction *correction.Services
	Chain      *chainrefine.Refiner
	Applier    *applier.Applier

	// Models is the priority-ordered list C1 tries for the primary
	// map-update call (distinct from correction.Services.Models, which is
	// its own smaller/cheaper list per spec §6).
	Models []string

	schema *jsonschema.Schema
}

// mapUpdateSchemaObj is the decoded form of envelope.MapUpdateSchema, used
// as llm.Request.JSONSchema so the dispatcher can fold it into a model's
// request (natively or, for models without schema support, serialized into
// the system instruction) without re-parsing it per call.
var mapUpdateSchemaObj = mustDecodeSchema(envelope.MapUpdateSchema)

func mustDecodeSchema(raw string) interface{} {
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		panic(fmt.Sprintf("cartography: invalid embedded schema: %v", err))
	}
	return v
}

// NewEngine wires an Engine around store. It compiles the MapUpdate schema
// once at construction time rather than per call, matching
// envelope.CompileSchema's "compile once, reuse" contract.
func NewEngine(store *graph.Store, dispatcher *llm.Dispatcher, corr *correction.Services, models []string) (*Engine, error) {
	schema, err := envelope.CompileSchema(envelope.MapUpdateSchema)
	if err != nil {
		return nil, fmt.Errorf("cartography.NewEngine: %w", err)
	}
	chain := chainrefine.New(store, corr)
	return &Engine{
		Dispatcher: dispatcher,
		Correction: corr,
		Chain:      chain,
		Applier:    applier.New(store, corr, chain),
		Models:     models,
		schema:     schema,
	}, nil
}

// TurnInput bundles everything one applyMapUpdates call needs beyond the
// live graph itself.
type TurnInput struct {
	Prompt        PromptInputs
	CurrentNodeID string
	Inventory     []applier.Item
	NPCs          []applier.NPC
}

// TurnResult is what one turn produces: the updated graph on success, or
// nil on a null/invalid top-level payload (spec §7's "returns
// {updatedMapData: null, debug}" propagation policy) — the caller may then
// choose to retain the pre-turn graph. Trace is always populated.
type TurnResult struct {
	Graph      *graph.Store
	AddedNodes []*graph.Node
	AddedEdges []*graph.Edge
	Inventory  []applier.Item
	Trace      *debug.Trace
	Err        error
}

func itemNames(items []applier.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Name)
	}
	return out
}

func npcNames(npcs []applier.NPC) []string {
	out := make([]string, 0, len(npcs))
	for _, n := range npcs {
		out = append(out, n.Name)
	}
	return out
}

// ApplyTurn runs the full C8 → C1 → C2 → C7 pipeline for one turn: build the
// prompt, dispatch it, extract and validate the JSON reply (falling back to
// C5's RepairJSON once if extraction or validation fails), decode it into a
// MapUpdate, and apply it. A failure at any stage up through decode returns
// a nil Graph and a trace carrying the validation error, per spec §7 — it
// never panics and never returns a partially-applied graph.
func (e *Engine) ApplyTurn(ctx context.Context, store *graph.Store, in TurnInput) TurnResult {
	trace := debug.New()

	prompt := buildPrompt(store, in.Prompt, itemNames(in.Inventory), npcNames(in.NPCs))
	trace.RecordPrompt(prompt, systemInstruction)

	resp, err := e.Dispatcher.Send(ctx, e.Models, llm.Request{
		Prompt:            prompt,
		SystemInstruction: systemInstruction,
		JSONSchema:        mapUpdateSchemaObj,
		Label:             "cartography.update",
		Temperature:       0.7,
	}, trace.Sink())
	if err != nil {
		if core.IsFatal(err) {
			return TurnResult{Trace: trace, Err: err}
		}
		trace.RecordValidationError(fmt.Sprintf("dispatch exhausted: %v", err))
		return TurnResult{Trace: trace}
	}

	candidate, ok := e.extractAndValidate(ctx, resp.Text, trace)
	if !ok {
		return TurnResult{Trace: trace}
	}

	update, err := mapupdate.Decode(candidate)
	if err != nil {
		trace.RecordValidationError(fmt.Sprintf("decode failure: %v", err))
		return TurnResult{Trace: trace}
	}
	trace.RecordResponse(resp.Text, candidate)

	result := e.Applier.Apply(ctx, applier.Input{
		Update:           update,
		NarrativeContext: in.Prompt.SceneDescription,
		CurrentNodeID:    in.CurrentNodeID,
		Inventory:        in.Inventory,
		NPCs:             in.NPCs,
	})
	mergeTrace(trace, result.Trace)

	return TurnResult{
		Graph:      result.Graph,
		AddedNodes: result.AddedNodes,
		AddedEdges: result.AddedEdges,
		Inventory:  result.Inventory,
		Trace:      trace,
	}
}

// extractAndValidate implements spec §2/§7's parse-then-repair path: try
// C2's envelope.Extract and schema validation on the raw reply; on failure,
// ask C5's RepairJSON once and retry extraction/validation against the
// repaired text. Both failing is a ParseFailure/ValidationFailure, recorded
// and treated as a null payload.
func (e *Engine) extractAndValidate(ctx context.Context, raw string, trace *debug.Trace) (string, bool) {
	if candidate, ok := e.tryExtractValidate(raw, trace); ok {
		return candidate, true
	}

	if e.Correction == nil {
		return "", false
	}
	repaired, ok := e.Correction.RepairJSON(ctx, raw, envelope.MapUpdateSchema)
	if !ok {
		trace.RecordValidationError("repair pass did not produce parseable JSON")
		return "", false
	}
	return e.tryExtractValidate(repaired, trace)
}

func (e *Engine) tryExtractValidate(raw string, trace *debug.Trace) (string, bool) {
	candidate, ok := envelope.Extract(raw)
	if !ok {
		trace.RecordValidationError("no JSON value found in reply")
		return "", false
	}
	if err := envelope.Validate(e.schema, candidate); err != nil {
		trace.RecordValidationError(err.Error())
		return "", false
	}
	return candidate, true
}

// mergeTrace folds the applier's phase-level trace (warnings, chain rounds)
// into the orchestrator's trace, which already holds the prompt/response
// and C1's model-call records. Both traces were built independently since
// the applier has no visibility into the orchestrator's dispatch.
func mergeTrace(into, from *debug.Trace) {
	if from == nil {
		return
	}
	into.Warnings = append(into.Warnings, from.Warnings...)
	into.ChainRounds = append(into.ChainRounds, from.ChainRounds...)
	into.ModelCalls = append(into.ModelCalls, from.ModelCalls...)
}
