// Package hierarchy implements the Hierarchy Rules (C4): pure, side-effect
// free predicates over the containment ranking and adjacency rules that
// govern which nodes may parent which, and which feature pairs may be
// connected by an edge. Every function here reads graph indexes but never
// mutates them — callers (the applier) own all state changes.
package hierarchy

import "github.com/hollowmap/cartographer/graph"

// nodeLookup is the minimal read access hierarchy rules need from the graph
// store; kept as an interface so this package never imports graph.Store
// directly and stays trivially testable with a plain map.
type nodeLookup interface {
	Node(id string) (*graph.Node, bool)
}

func parentOf(lookup nodeLookup, id string) (*graph.Node, bool) {
	n, ok := lookup.Node(id)
	if !ok || n.ParentNodeID == "" || n.ParentNodeID == graph.RootSentinel {
		return nil, false
	}
	return lookup.Node(n.ParentNodeID)
}

func sameParent(lookup nodeLookup, a, b *graph.Node) bool {
	pa := effectiveParentID(a)
	pb := effectiveParentID(b)
	return pa == pb
}

func effectiveParentID(n *graph.Node) string {
	if n.ParentNodeID == "" {
		return graph.RootSentinel
	}
	return n.ParentNodeID
}

func sameGrandparent(lookup nodeLookup, a, b *graph.Node) bool {
	ga, okA := grandparentOf(lookup, a)
	gb, okB := grandparentOf(lookup, b)
	if !okA || !okB {
		return false
	}
	return ga == gb
}

func grandparentOf(lookup nodeLookup, n *graph.Node) (string, bool) {
	p, ok := parentOf(lookup, n.ID)
	if !ok {
		return "", false
	}
	if p.ParentNodeID == "" || p.ParentNodeID == graph.RootSentinel {
		return graph.RootSentinel, true
	}
	return p.ParentNodeID, true
}

func isParentOfGrandparent(lookup nodeLookup, a, b *graph.Node) bool {
	// parentOf(a) == grandparentOf(b)
	pa := effectiveParentID(a)
	gb, ok := grandparentOf(lookup, b)
	return ok && pa == gb
}

func bothParentsAreRoot(a, b *graph.Node) bool {
	return effectiveParentID(a) == graph.RootSentinel && effectiveParentID(b) == graph.RootSentinel
}

// IsEdgeConnectionAllowed implements spec §4.2: both nodes must be feature,
// and (edgeType is shortcut, OR they share a parent, OR they share a
// grandparent, OR one's parent is the other's grandparent (either
// direction), OR both parents are the virtual root).
func IsEdgeConnectionAllowed(lookup nodeLookup, a, b *graph.Node, edgeType graph.EdgeType) bool {
	if a.Type != graph.NodeFeature || b.Type != graph.NodeFeature {
		return false
	}
	if edgeType == graph.EdgeShortcut {
		return true
	}
	if sameParent(lookup, a, b) {
		return true
	}
	if sameGrandparent(lookup, a, b) {
		return true
	}
	if isParentOfGrandparent(lookup, a, b) || isParentOfGrandparent(lookup, b, a) {
		return true
	}
	if bothParentsAreRoot(a, b) {
		return true
	}
	return false
}

// FindClosestAllowedParent walks up from candidateParentID until it finds
// the first ancestor whose type strictly dominates childType, returning
// that ancestor's id. Returns ("", false) if the root is reached first.
func FindClosestAllowedParent(lookup nodeLookup, candidateParentID string, childType graph.NodeType) (string, bool) {
	current := candidateParentID
	for current != "" && current != graph.RootSentinel {
		n, ok := lookup.Node(current)
		if !ok {
			return "", false
		}
		if graph.Dominates(n.Type, childType) {
			return n.ID, true
		}
		current = n.ParentNodeID
	}
	return "", false
}

// typeOrder lists containment types shallowest-first, used by the
// downgrade/upgrade suggestion functions to walk the ranking.
var typeOrder = []graph.NodeType{
	graph.NodeRegion, graph.NodeLocation, graph.NodeSettlement, graph.NodeDistrict,
	graph.NodeExterior, graph.NodeInterior, graph.NodeRoom, graph.NodeFeature,
}

// SuggestNodeTypeDowngrade proposes the deepest type still legal as a child
// of parentType (strictly dominated by it), which is feature for any
// non-feature parentType; child's current type is not consulted. Returns
// ("", false) if no type is strictly dominated by parentType (parentType is
// already feature).
func SuggestNodeTypeDowngrade(child *graph.Node, parentType graph.NodeType) (graph.NodeType, bool) {
	best, ok := graph.NodeType(""), false
	for _, t := range typeOrder {
		if graph.Dominates(parentType, t) {
			best, ok = t, true
		}
	}
	if !ok {
		return "", false
	}
	return best, true
}

// SuggestNodeTypeUpgrade proposes the shallowest type that would make
// parent a legal parent of every one of its current children, by scanning
// children for the shallowest (most constraining) child type.
func SuggestNodeTypeUpgrade(lookup func() []*graph.Node, parent *graph.Node) (graph.NodeType, bool) {
	shallowestChildRank := -1
	for _, n := range lookup() {
		if n.ParentNodeID == parent.ID {
			if r := graph.Rank(n.Type); shallowestChildRank < 0 || r < shallowestChildRank {
				shallowestChildRank = r
			}
		}
	}
	if shallowestChildRank < 0 {
		return "", false
	}
	for _, t := range typeOrder {
		if graph.Rank(t) < shallowestChildRank {
			return t, true
		}
	}
	return "", false
}

// MapHasHierarchyConflict scans nodes for any (child, parent) pair where
// both are feature, or parent.type doesn't strictly dominate child.type, or
// a feature node is someone's parent (spec §4.2).
func MapHasHierarchyConflict(nodes []*graph.Node) bool {
	byID := make(map[string]*graph.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	for _, child := range nodes {
		if child.ParentNodeID == "" || child.ParentNodeID == graph.RootSentinel {
			continue
		}
		parent, ok := byID[child.ParentNodeID]
		if !ok {
			continue
		}
		if parent.Type == graph.NodeFeature {
			return true
		}
		if child.Type == graph.NodeFeature && parent.Type == graph.NodeFeature {
			return true
		}
		if !graph.Dominates(parent.Type, child.Type) {
			return true
		}
	}
	return false
}
