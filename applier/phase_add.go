package applier

import (
	"fmt"
	"strings"

	"github.com/hollowmap/cartographer/graph"
	"github.com/hollowmap/cartographer/hierarchy"
	"github.com/hollowmap/cartographer/mapupdate"
)

// phase4AddNodes resolves parents and materializes nodesToAdd, iterating
// until the queue drains, a guess-parent LLM pass is exhausted, or no
// further progress is possible (spec §4.5 P4).
func (a *apply) phase4AddNodes(adds []mapupdate.NodeAdd) {
	var pending []*pendingAdd
	for _, add := range adds {
		pending = append(pending, &pendingAdd{add: add})
	}

	pending = a.resolveAddBatch(pending)
	if len(pending) == 0 {
		return
	}

	// One-shot guess-parent pass against whatever's still unresolved.
	for _, p := range pending {
		candidates := a.candidateParentSummaries()
		guess, ok := "", false
		if a.corr != nil {
			guess, ok = a.corr.GuessParent(a.ctx, p.add.PlaceName, p.add.Type, candidates, "")
		}
		if ok {
			p.add.ParentNodeID = guess
		} else {
			p.add.ParentNodeID = graph.RootSentinel
		}
	}
	pending = a.resolveAddBatch(pending)

	for _, p := range pending {
		a.trace.Warn(fmt.Sprintf("dropped add %q: parent could not be resolved", p.add.PlaceName))
	}
}

// resolveAddBatch runs passes over pending until no pass makes progress,
// materializing every add it can resolve a parent for and returning
// whatever remains unresolved.
func (a *apply) resolveAddBatch(pending []*pendingAdd) []*pendingAdd {
	for {
		var unresolved []*pendingAdd
		progressed := false

		for _, p := range pending {
			parentID, sameType, ok := a.resolveParent(p.add.ParentNodeID, graph.NodeType(p.add.Type))
			if !ok {
				unresolved = append(unresolved, p)
				continue
			}
			progressed = true
			p.resolvedParent = parentID
			p.sameTypeParent = sameType
			a.materializeAdd(p)
		}

		pending = unresolved
		if !progressed || len(pending) == 0 {
			break
		}
	}
	return pending
}

// resolveParent implements spec §4.5 P4's parent-resolution rule: literal
// root sentinel or empty means no parent; otherwise the candidate is looked
// up in the live graph by exact id, then through Store.FindByIdentifier
// (which includes the "{base}-{4hex}" suffix match), then by normalized
// name among this batch's newly-added nodes. A found parent of the wrong
// rank is snapped to the closest legal ancestor.
func (a *apply) resolveParent(candidate string, childType graph.NodeType) (parentID string, sameTypeParent bool, ok bool) {
	if candidate == "" || candidate == graph.RootSentinel {
		return graph.RootSentinel, false, true
	}

	if n, found := a.store.Node(candidate); found {
		return a.classifyParent(n, childType)
	}
	if n, found := a.store.FindByIdentifier(candidate, a.currentNodeID); found {
		return a.classifyParent(n, childType)
	}
	if id, found := a.batchNameToID[normalizeName(candidate)]; found {
		if n, ok := a.store.Node(id); ok {
			return a.classifyParent(n, childType)
		}
	}
	return "", false, false
}

func (a *apply) classifyParent(parent *graph.Node, childType graph.NodeType) (string, bool, bool) {
	if parent.Type == childType {
		return parent.ID, true, true
	}
	if graph.Dominates(parent.Type, childType) {
		return parent.ID, false, true
	}
	if snapped, ok := hierarchy.FindClosestAllowedParent(a.store, parent.ID, childType); ok {
		return snapped, false, true
	}
	return graph.RootSentinel, false, true
}

// materializeAdd reuses a live node of the same name under the same
// resolved parent if one exists (merging aliases, backfilling an empty
// description); otherwise it creates a new node and indexes it.
func (a *apply) materializeAdd(p *pendingAdd) {
	add := p.add
	for _, n := range a.store.Nodes() {
		if n.ParentNodeID != p.resolvedParent {
			continue
		}
		if !strings.EqualFold(n.PlaceName, add.PlaceName) {
			continue
		}
		if n.Description == "" {
			n.Description = add.Description
		}
		a.store.UnionAliases(n.ID, add.Aliases)
		a.batchNameToID[normalizeName(add.PlaceName)] = n.ID
		return
	}

	uniqueName := a.ensureUniqueName(add.PlaceName, "")
	n := &graph.Node{
		ID:           graph.NewNodeID(uniqueName),
		PlaceName:    uniqueName,
		Type:         graph.NodeType(add.Type),
		Status:       nodeStatusOrDefault(add.Status),
		Description:  add.Description,
		Aliases:      append([]string(nil), add.Aliases...),
		ParentNodeID: p.resolvedParent,
		Visited:      add.Visited,
	}
	a.store.AddNode(n)
	a.batchNameToID[normalizeName(add.PlaceName)] = n.ID
	a.batchNameToID[normalizeName(uniqueName)] = n.ID
	a.addedNodes = append(a.addedNodes, n)

	if p.sameTypeParent && n.Type == graph.NodeFeature {
		a.pendingEdgeAdds = append(a.pendingEdgeAdds, pendingEdgeAdd{
			add: mapupdate.EdgeAdd{
				SourceIdentifier: n.ID,
				TargetIdentifier: p.resolvedParent,
				Type:             string(graph.EdgePath),
			},
			internal: true,
		})
	}
}

func nodeStatusOrDefault(s string) graph.NodeStatus {
	if s == "" {
		return graph.NodeDiscovered
	}
	return graph.NodeStatus(s)
}

// candidateParentSummaries builds a short "id: name (type)" list of live
// nodes for the one-shot guess-parent correction call.
func (a *apply) candidateParentSummaries() []string {
	nodes := a.store.Nodes()
	summaries := make([]string, 0, len(nodes))
	for _, n := range nodes {
		summaries = append(summaries, fmt.Sprintf("%s: %s (%s)", n.ID, n.PlaceName, n.Type))
	}
	return summaries
}
