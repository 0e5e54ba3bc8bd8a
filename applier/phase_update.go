package applier

import (
	"fmt"

	"github.com/hollowmap/cartographer/graph"
	"github.com/hollowmap/cartographer/hierarchy"
	"github.com/hollowmap/cartographer/mapupdate"
)

// phase5UpdateNodes applies each nodesToUpdate entry field-wise, resolving
// the target by identifier (falling back to the C5 identifier-correction
// service) and handling reparent/rename specially (spec §4.5 P5).
func (a *apply) phase5UpdateNodes(updates []mapupdate.NodeUpdate) {
	for _, u := range updates {
		n, ok := a.resolveUpdateTarget(u.Identifier)
		if !ok {
			a.trace.Warn(fmt.Sprintf("skipped update: could not resolve identifier %q", u.Identifier))
			continue
		}

		if u.NewDescription != "" {
			n.Description = u.NewDescription
		}
		if u.NewAliases != nil {
			a.store.ReplaceAliases(n.ID, u.NewAliases)
		}
		if u.NewStatus != "" {
			n.Status = graph.NodeStatus(u.NewStatus)
		}
		if u.Visited != nil {
			n.Visited = *u.Visited
		}
		if u.NewType != "" {
			n.Type = graph.NodeType(u.NewType)
		}
		if u.NewParentID != "" {
			a.reparent(n, u.NewParentID)
		}
		if u.NewPlaceName != "" && u.NewPlaceName != n.PlaceName {
			uniqueName := a.ensureUniqueName(u.NewPlaceName, n.ID)
			a.store.RenameNode(n.ID, uniqueName)
			a.batchNameToID[normalizeName(u.NewPlaceName)] = n.ID
			a.batchNameToID[normalizeName(uniqueName)] = n.ID
		}
	}
}

func (a *apply) resolveUpdateTarget(identifier string) (*graph.Node, bool) {
	if n, ok := a.store.FindByIdentifier(identifier, a.currentNodeID); ok {
		return n, true
	}
	if a.corr == nil {
		return nil, false
	}
	resolved, ok := a.corr.ResolveIdentifier(a.ctx, identifier, a.candidateParentSummaries())
	if !ok {
		return nil, false
	}
	return a.store.FindByIdentifier(resolved, a.currentNodeID)
}

// reparent implements P5's reparent special case: a same-type new parent
// attempts a downgrade of the child; failing that, the child adopts the
// new parent's own parent (an implicit "sibling-ing") and the conflict is
// logged rather than silently swallowed.
func (a *apply) reparent(n *graph.Node, newParentIdentifier string) {
	parent, ok := a.store.FindByIdentifier(newParentIdentifier, a.currentNodeID)
	if !ok {
		a.trace.Warn(fmt.Sprintf("skipped reparent of %q: new parent %q not found", n.PlaceName, newParentIdentifier))
		return
	}

	if parent.Type != n.Type {
		if graph.Dominates(parent.Type, n.Type) {
			n.ParentNodeID = parent.ID
			return
		}
		if snapped, ok := hierarchy.FindClosestAllowedParent(a.store, parent.ID, n.Type); ok {
			n.ParentNodeID = snapped
			return
		}
		n.ParentNodeID = graph.RootSentinel
		return
	}

	if downgraded, ok := hierarchy.SuggestNodeTypeDowngrade(n, parent.Type); ok {
		n.Type = downgraded
		n.ParentNodeID = parent.ID
		return
	}

	grandparentID := parent.ParentNodeID
	if grandparentID == "" {
		grandparentID = graph.RootSentinel
	}
	n.ParentNodeID = grandparentID
	a.trace.Warn(fmt.Sprintf("reparent of %q left as a same-type-parent conflict under %q", n.PlaceName, grandparentID))
}
