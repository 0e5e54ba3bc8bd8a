package mapupdate

import (
	"encoding/json"
	"fmt"
)

type rawEdgeRemove struct {
	asObject *EdgeRemove
	asString string
}

func (r *rawEdgeRemove) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.asString = s
		return nil
	}
	var obj EdgeRemove
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("mapupdate: edgesToRemove entry is neither string nor object: %w", err)
	}
	r.asObject = &obj
	return nil
}

func (r rawEdgeRemove) Resolve() EdgeRemove {
	if r.asObject != nil {
		return *r.asObject
	}
	return EdgeRemove{ID: r.asString}
}

// shadow mirrors MapUpdate but with tolerant remove-entry types, since the
// model emits nodesToRemove/edgesToRemove entries as either a bare
// identifier string or an {identifier} object interchangeably.
type shadow struct {
	NodesToAdd    []NodeAdd       `json:"nodesToAdd"`
	NodesToUpdate []NodeUpdate    `json:"nodesToUpdate"`
	NodesToRemove []rawNodeRemove `json:"nodesToRemove"`
	EdgesToAdd    []EdgeAdd       `json:"edgesToAdd"`
	EdgesToUpdate []EdgeUpdate    `json:"edgesToUpdate"`
	EdgesToRemove []rawEdgeRemove `json:"edgesToRemove"`

	SuggestedCurrentMapNodeID string `json:"suggestedCurrentMapNodeId"`
	Observations              string `json:"observations"`
	Rationale                 string `json:"rationale"`
}

// Decode parses candidateJSON (already extracted/validated by the envelope
// package) into a MapUpdate, folding the tolerant remove-entry shapes into
// their resolved form (spec §9's "dynamic payload shape" rule).
func Decode(candidateJSON string) (*MapUpdate, error) {
	var s shadow
	if err := json.Unmarshal([]byte(candidateJSON), &s); err != nil {
		return nil, fmt.Errorf("mapupdate.Decode: %w", err)
	}

	out := &MapUpdate{
		NodesToAdd:                s.NodesToAdd,
		NodesToUpdate:             s.NodesToUpdate,
		EdgesToAdd:                s.EdgesToAdd,
		EdgesToUpdate:             s.EdgesToUpdate,
		SuggestedCurrentMapNodeID: s.SuggestedCurrentMapNodeID,
		Observations:              s.Observations,
		Rationale:                 s.Rationale,
	}
	for _, r := range s.NodesToRemove {
		out.NodesToRemove = append(out.NodesToRemove, r.Resolve())
	}
	for _, r := range s.EdgesToRemove {
		out.EdgesToRemove = append(out.EdgesToRemove, r.Resolve())
	}
	return out, nil
}
