// Package mapupdate defines the wire-shape DTOs the Cartographer exchanges
// with the Storyteller LLM (spec §3's MapUpdate payload) and the fold step
// that normalizes the "dynamic payload shape" spec §9 calls out: a field
// the model sometimes emits as a single object and sometimes as an array of
// objects, modeled here as an explicit sum type with a Fold function rather
// than branching on the decoded value's underlying Go type everywhere it's
// consumed.
package mapupdate

import (
	"encoding/json"
	"fmt"
)

// NodeAdd is one entry of MapUpdate.nodesToAdd.
type NodeAdd struct {
	PlaceName    string   `json:"placeName"`
	Type         string   `json:"type"`
	Status       string   `json:"status,omitempty"`
	Description  string   `json:"description,omitempty"`
	Aliases      []string `json:"aliases,omitempty"`
	ParentNodeID string   `json:"parentNodeId,omitempty"`
	Visited      bool     `json:"visited,omitempty"`
}

// NodeUpdate is one entry of MapUpdate.nodesToUpdate. Identifier is
// whatever string the model used to refer to the target (id, name, or
// alias); resolution happens downstream via graph.Store.FindByIdentifier.
type NodeUpdate struct {
	Identifier     string   `json:"identifier"`
	NewPlaceName   string   `json:"newPlaceName,omitempty"`
	NewType        string   `json:"newType,omitempty"`
	NewStatus      string   `json:"newStatus,omitempty"`
	NewDescription string   `json:"newDescription,omitempty"`
	NewAliases     []string `json:"newAliases,omitempty"`
	NewParentID    string   `json:"newParentNodeId,omitempty"`
	Visited        *bool    `json:"visited,omitempty"`
}

// NodeRemove is one entry of MapUpdate.nodesToRemove; the model may emit
// either a bare identifier string or an object wrapping one.
type NodeRemove struct {
	Identifier string `json:"identifier"`
}

// EdgeAdd is one entry of MapUpdate.edgesToAdd, referring to endpoints by
// identifier rather than resolved id.
type EdgeAdd struct {
	SourceIdentifier string `json:"sourceNodeIdentifier"`
	TargetIdentifier string `json:"targetNodeIdentifier"`
	Type             string `json:"type"`
	Status           string `json:"status,omitempty"`
	Description      string `json:"description,omitempty"`
	TravelTime       string `json:"travelTime,omitempty"`
}

// EdgeUpdate is one entry of MapUpdate.edgesToUpdate.
type EdgeUpdate struct {
	SourceIdentifier string `json:"sourceNodeIdentifier"`
	TargetIdentifier string `json:"targetNodeIdentifier"`
	Type             string `json:"type,omitempty"`
	NewType          string `json:"newType,omitempty"`
	NewStatus        string `json:"newStatus,omitempty"`
	NewDescription   string `json:"newDescription,omitempty"`
	NewTravelTime    string `json:"newTravelTime,omitempty"`
}

// EdgeRemove is one entry of MapUpdate.edgesToRemove.
type EdgeRemove struct {
	ID               string `json:"id,omitempty"`
	SourceIdentifier string `json:"sourceNodeIdentifier,omitempty"`
	TargetIdentifier string `json:"targetNodeIdentifier,omitempty"`
	Type             string `json:"type,omitempty"`
}

// MapUpdate is the full payload of spec §3: every field optional, absence
// meaning "no change of that kind."
type MapUpdate struct {
	NodesToAdd    []NodeAdd    `json:"nodesToAdd,omitempty"`
	NodesToUpdate []NodeUpdate `json:"nodesToUpdate,omitempty"`
	NodesToRemove []NodeRemove `json:"nodesToRemove,omitempty"`
	EdgesToAdd    []EdgeAdd    `json:"edgesToAdd,omitempty"`
	EdgesToUpdate []EdgeUpdate `json:"edgesToUpdate,omitempty"`
	EdgesToRemove []EdgeRemove `json:"edgesToRemove,omitempty"`

	SuggestedCurrentMapNodeID string `json:"suggestedCurrentMapNodeId,omitempty"`
	Observations              string `json:"observations,omitempty"`
	Rationale                 string `json:"rationale,omitempty"`
}

// rawNodeRemove/rawEdgeRemove accept the bare-string-or-object shape the
// model uses interchangeably for remove ops.
type rawNodeRemove struct {
	asObject *NodeRemove
	asString string
}

func (r *rawNodeRemove) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.asString = s
		return nil
	}
	var obj NodeRemove
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("mapupdate: nodesToRemove entry is neither string nor object: %w", err)
	}
	r.asObject = &obj
	return nil
}

func (r rawNodeRemove) Resolve() NodeRemove {
	if r.asObject != nil {
		return *r.asObject
	}
	return NodeRemove{Identifier: r.asString}
}
