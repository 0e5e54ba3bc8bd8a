package envelope

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// CompileSchema compiles a JSON-Schema document (as a raw JSON string) into
// a reusable *jsonschema.Schema, grounded on the teacher ecosystem's
// compileSchema pattern (vsavkov-kilroy's internal/agent/tool_registry.go):
// a fresh compiler per call, a single in-memory named resource, no
// filesystem or network resolution.
func CompileSchema(schemaJSON string) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("payload.json", strings.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("envelope.CompileSchema: %w", err)
	}
	schema, err := c.Compile("payload.json")
	if err != nil {
		return nil, fmt.Errorf("envelope.CompileSchema: %w", err)
	}
	return schema, nil
}

// ValidationError wraps a jsonschema validation failure with the offending
// JSON text attached, so a caller (the applier's debug trace) can log both
// the error and the payload that triggered it without re-deriving it.
type ValidationError struct {
	Err  error
	JSON string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("envelope: payload failed schema validation: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validate decodes candidateJSON and validates it against schema. On
// failure it returns a *ValidationError; spec §7 classifies this as
// ValidationFailure — recorded in the debug trace, treated as a null
// payload, never fatal.
func Validate(schema *jsonschema.Schema, candidateJSON string) error {
	var v interface{}
	if err := json.Unmarshal([]byte(candidateJSON), &v); err != nil {
		return &ValidationError{Err: err, JSON: candidateJSON}
	}
	if err := schema.Validate(v); err != nil {
		return &ValidationError{Err: err, JSON: candidateJSON}
	}
	return nil
}

// MapUpdateSchema is the payload schema from spec §3/§6: a MapUpdate is a
// versionless object where every field is optional and absence means "no
// change of that kind."
const MapUpdateSchema = `{
  "type": "object",
  "properties": {
    "nodesToAdd": {"type": "array", "items": {"type": "object"}},
    "nodesToUpdate": {"type": "array", "items": {"type": "object"}},
    "nodesToRemove": {"type": "array", "items": {"type": ["string", "object"]}},
    "edgesToAdd": {"type": "array", "items": {"type": "object"}},
    "edgesToUpdate": {"type": "array", "items": {"type": "object"}},
    "edgesToRemove": {"type": "array", "items": {"type": ["string", "object"]}},
    "suggestedCurrentMapNodeId": {"type": ["string", "null"]},
    "observations": {"type": ["string", "null"]},
    "rationale": {"type": ["string", "null"]}
  },
  "additionalProperties": false
}`
