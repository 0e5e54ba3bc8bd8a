package applier

import (
	"fmt"
	"strings"

	"github.com/hollowmap/cartographer/chainrefine"
	"github.com/hollowmap/cartographer/graph"
	"github.com/hollowmap/cartographer/hierarchy"
	"github.com/hollowmap/cartographer/mapupdate"
)

// phase8EdgeOperations resolves and applies edgesToAdd/Update/Remove (spec
// §4.5 P8). The edge-add queue lives in a.pendingEdgeAdds, which also
// carries P4's internally-synthesized same-type-parent connectors.
func (a *apply) phase8EdgeOperations(updates []mapupdate.EdgeUpdate, removes []mapupdate.EdgeRemove) {
	processed := make(map[string]bool)

	for _, pending := range a.pendingEdgeAdds {
		a.applyOneEdgeAdd(pending.add, processed)
	}

	for _, u := range updates {
		a.applyEdgeUpdate(u)
	}

	for _, r := range removes {
		a.applyEdgeRemove(r)
	}
}

func (a *apply) applyOneEdgeAdd(add mapupdate.EdgeAdd, processed map[string]bool) {
	src, srcOK := a.store.FindByIdentifier(add.SourceIdentifier, a.currentNodeID)
	tgt, tgtOK := a.store.FindByIdentifier(add.TargetIdentifier, a.currentNodeID)
	if !srcOK {
		if resolved, ok := a.correctIdentifier(add.SourceIdentifier); ok {
			src, srcOK = resolved, true
		}
	}
	if !tgtOK {
		if resolved, ok := a.correctIdentifier(add.TargetIdentifier); ok {
			tgt, tgtOK = resolved, true
		}
	}
	if !srcOK || !tgtOK {
		a.trace.Warn(fmt.Sprintf("dropped edge add: could not resolve %q -> %q", add.SourceIdentifier, add.TargetIdentifier))
		return
	}

	key := pairIDKey(src.ID, tgt.ID, add.Type)
	if processed[key] {
		return
	}
	processed[key] = true

	edgeType := graph.EdgeType(add.Type)
	if !hierarchy.IsEdgeConnectionAllowed(a.store, src, tgt, edgeType) {
		req := chainrefine.Build(a.store, src, tgt, edgeType, resolveAddedEdgeStatus(add.Status, src, tgt), add.Description, add.TravelTime)
		a.chainQueue = append(a.chainQueue, req)
		return
	}

	if a.liveEdgeExists(src.ID, tgt.ID, edgeType) {
		return
	}

	e := &graph.Edge{
		ID:           "edge-" + src.ID + "-" + tgt.ID + "-" + add.Type,
		SourceNodeID: src.ID,
		TargetNodeID: tgt.ID,
		Type:         edgeType,
		Status:       resolveAddedEdgeStatus(add.Status, src, tgt),
		Description:  add.Description,
		TravelTime:   add.TravelTime,
	}
	a.store.AddEdge(e)
	a.addedEdges = append(a.addedEdges, e)
}

func (a *apply) correctIdentifier(identifier string) (*graph.Node, bool) {
	if a.corr == nil {
		return nil, false
	}
	resolved, ok := a.corr.ResolveIdentifier(a.ctx, identifier, a.candidateParentSummaries())
	if !ok {
		return nil, false
	}
	return a.store.FindByIdentifier(resolved, a.currentNodeID)
}

func (a *apply) liveEdgeExists(a1, b1 string, edgeType graph.EdgeType) bool {
	for _, e := range a.store.EdgesOf(a1) {
		if e.Type != edgeType {
			continue
		}
		if e.OtherEndpoint(a1) == b1 {
			return true
		}
	}
	return false
}

func resolveAddedEdgeStatus(status string, src, tgt *graph.Node) graph.EdgeStatus {
	if status != "" {
		return graph.EdgeStatus(status)
	}
	if src.Status == graph.NodeRumored || tgt.Status == graph.NodeRumored {
		return graph.EdgeRumoredSt
	}
	return graph.EdgeOpen
}

func pairIDKey(a, b, edgeType string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b + "|" + edgeType
}

func (a *apply) applyEdgeUpdate(u mapupdate.EdgeUpdate) {
	src, srcOK := a.store.FindByIdentifier(u.SourceIdentifier, a.currentNodeID)
	tgt, tgtOK := a.store.FindByIdentifier(u.TargetIdentifier, a.currentNodeID)
	if !srcOK || !tgtOK {
		a.trace.Warn(fmt.Sprintf("skipped edge update: could not resolve %q -> %q", u.SourceIdentifier, u.TargetIdentifier))
		return
	}

	var match *graph.Edge
	for _, e := range a.store.EdgesOf(src.ID) {
		if e.OtherEndpoint(src.ID) != tgt.ID {
			continue
		}
		if u.Type != "" && string(e.Type) != u.Type {
			continue
		}
		match = e
		break
	}
	if match == nil {
		a.trace.Warn(fmt.Sprintf("skipped edge update: no matching edge between %q and %q", u.SourceIdentifier, u.TargetIdentifier))
		return
	}

	newType := match.Type
	if u.NewType != "" {
		newType = graph.EdgeType(u.NewType)
	}
	if newType != match.Type && !hierarchy.IsEdgeConnectionAllowed(a.store, src, tgt, newType) {
		a.trace.Warn(fmt.Sprintf("skipped edge type change on %q: new type %q is not adjacency-legal", match.ID, u.NewType))
		return
	}

	match.Type = newType
	if u.NewStatus != "" {
		match.Status = graph.EdgeStatus(u.NewStatus)
	}
	if u.NewDescription != "" {
		match.Description = u.NewDescription
	}
	if u.NewTravelTime != "" {
		match.TravelTime = u.NewTravelTime
	}
}

func (a *apply) applyEdgeRemove(r mapupdate.EdgeRemove) {
	if r.ID != "" {
		for _, e := range a.store.Edges() {
			if e.ID == r.ID {
				a.checkEndpointMismatch(e, r)
				a.store.RemoveEdge(e.ID)
				return
			}
		}
	}

	if r.ID != "" {
		for _, e := range a.store.Edges() {
			if strings.Contains(e.ID, r.ID) {
				a.store.RemoveEdge(e.ID)
				return
			}
		}
	}

	src, srcOK := a.store.FindByIdentifier(r.SourceIdentifier, a.currentNodeID)
	tgt, tgtOK := a.store.FindByIdentifier(r.TargetIdentifier, a.currentNodeID)
	if !srcOK || !tgtOK {
		a.trace.Warn(fmt.Sprintf("could not resolve edge remove %q -> %q", r.SourceIdentifier, r.TargetIdentifier))
		return
	}
	for _, e := range a.store.EdgesOf(src.ID) {
		if e.OtherEndpoint(src.ID) != tgt.ID {
			continue
		}
		if r.Type != "" && string(e.Type) != r.Type {
			continue
		}
		a.store.RemoveEdge(e.ID)
		return
	}
}

func (a *apply) checkEndpointMismatch(e *graph.Edge, r mapupdate.EdgeRemove) {
	if r.SourceIdentifier == "" && r.TargetIdentifier == "" {
		return
	}
	src, srcOK := a.store.FindByIdentifier(r.SourceIdentifier, a.currentNodeID)
	tgt, tgtOK := a.store.FindByIdentifier(r.TargetIdentifier, a.currentNodeID)
	if srcOK && tgtOK {
		endpoints := map[string]bool{e.SourceNodeID: true, e.TargetNodeID: true}
		if !endpoints[src.ID] || !endpoints[tgt.ID] {
			a.trace.Warn(fmt.Sprintf("edge remove %q matched by id despite endpoint mismatch", e.ID))
		}
	}
}

// phase9PruneEdges drops any edge whose endpoints are not both live and
// rebuilds the adjacency index (spec §4.5 P9).
func (a *apply) phase9PruneEdges() {
	a.store.PruneDeadEdges()
}
