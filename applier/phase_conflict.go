package applier

import (
	"fmt"

	"github.com/hollowmap/cartographer/graph"
	"github.com/hollowmap/cartographer/hierarchy"
)

// conflictCandidate is one simulated fix for a same-type-parent conflict,
// carrying enough to both describe it to a correction LLM and apply it for
// real once chosen.
type conflictCandidate struct {
	description string
	apply       func()
}

// phase7ResolveHierarchyConflicts finds every live node whose parent is the
// same type as it is, builds up to three candidate resolutions, simulates
// each against a cloned node list, and applies whichever survive
// simulation (spec §4.5 P7).
func (a *apply) phase7ResolveHierarchyConflicts() {
	for _, child := range a.store.Nodes() {
		parent, ok := a.store.Node(child.ParentNodeID)
		if !ok || parent.Type != child.Type {
			continue
		}
		a.resolveOneConflict(child, parent)
	}
}

func (a *apply) resolveOneConflict(child, parent *graph.Node) {
	baseline := cloneNodeList(a.store.Nodes())

	var candidates []conflictCandidate

	if downgraded, ok := hierarchy.SuggestNodeTypeDowngrade(child, parent.Type); ok {
		downgraded, childID := downgraded, child.ID
		if simulateConflict(baseline, func(sim map[string]*graph.Node) {
			sim[childID].Type = downgraded
		}) {
			candidates = append(candidates, conflictCandidate{
				description: fmt.Sprintf("downgrade %q to type %s", child.PlaceName, downgraded),
				apply:       func() { child.Type = downgraded },
			})
		}
	}

	grandparentID := parent.ParentNodeID
	if grandparentID == "" {
		grandparentID = graph.RootSentinel
	}
	if simulateConflict(baseline, func(sim map[string]*graph.Node) {
		sim[child.ID].ParentNodeID = grandparentID
	}) {
		candidates = append(candidates, conflictCandidate{
			description: fmt.Sprintf("reparent %q to %q", child.PlaceName, grandparentID),
			apply:       func() { child.ParentNodeID = grandparentID },
		})
	}

	if upgraded, ok := hierarchy.SuggestNodeTypeUpgrade(a.store.Nodes, parent); ok {
		upgraded, parentID := upgraded, parent.ID
		if simulateConflict(baseline, func(sim map[string]*graph.Node) {
			sim[parentID].Type = upgraded
		}) {
			candidates = append(candidates, conflictCandidate{
				description: fmt.Sprintf("upgrade %q to type %s", parent.PlaceName, upgraded),
				apply:       func() { parent.Type = upgraded },
			})
		}
	}

	switch len(candidates) {
	case 0:
		a.trace.Warn(fmt.Sprintf("hierarchy conflict between %q and parent %q left unresolved", child.PlaceName, parent.PlaceName))
	case 1:
		candidates[0].apply()
	default:
		descriptions := make([]string, len(candidates))
		for i, c := range candidates {
			descriptions[i] = c.description
		}
		idx := 0
		if a.corr != nil {
			if chosen, ok := a.corr.ChooseHierarchyResolution(a.ctx, descriptions); ok {
				idx = chosen
			}
		}
		candidates[idx].apply()
	}
}

func cloneNodeList(nodes []*graph.Node) map[string]*graph.Node {
	out := make(map[string]*graph.Node, len(nodes))
	for _, n := range nodes {
		cp := *n
		out[n.ID] = &cp
	}
	return out
}

func simulateConflict(baseline map[string]*graph.Node, mutate func(map[string]*graph.Node)) bool {
	sim := make(map[string]*graph.Node, len(baseline))
	for id, n := range baseline {
		cp := *n
		sim[id] = &cp
	}
	mutate(sim)

	list := make([]*graph.Node, 0, len(sim))
	for _, n := range sim {
		list = append(list, n)
	}
	return !hierarchy.MapHasHierarchyConflict(list)
}
