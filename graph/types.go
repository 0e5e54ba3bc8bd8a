// Package graph implements the Graph Store (C3): the mutable in-memory map
// of nodes and edges, its derived indexes, and identifier resolution.
// Grounded on the teacher framework's core.MemoryStore for the
// mutex-guarded-map idiom, generalized from a flat key/value store to a
// structured node/edge graph with four coherent indexes.
package graph

// NodeType is the containment-ranking type of a node (spec §3).
type NodeType string

const (
	NodeRegion    NodeType = "region"
	NodeLocation  NodeType = "location"
	NodeSettlement NodeType = "settlement"
	NodeDistrict  NodeType = "district"
	NodeExterior  NodeType = "exterior"
	NodeInterior  NodeType = "interior"
	NodeRoom      NodeType = "room"
	NodeFeature   NodeType = "feature"
)

// containmentRank gives the increasing-depth ranking from spec §3: region <
// location < settlement < district < exterior < interior < room < feature.
var containmentRank = map[NodeType]int{
	NodeRegion:     0,
	NodeLocation:   1,
	NodeSettlement: 2,
	NodeDistrict:   3,
	NodeExterior:   4,
	NodeInterior:   5,
	NodeRoom:       6,
	NodeFeature:    7,
}

// Rank returns t's depth in the containment ranking. Unknown types rank
// below feature so they never spuriously dominate.
func Rank(t NodeType) int {
	if r, ok := containmentRank[t]; ok {
		return r
	}
	return len(containmentRank)
}

// Dominates reports whether a is strictly shallower (a legal parent type
// for) b.
func Dominates(a, b NodeType) bool {
	return Rank(a) < Rank(b)
}

// NodeStatus is a node's discovery/quest state.
type NodeStatus string

const (
	NodeUndiscovered NodeStatus = "undiscovered"
	NodeDiscovered   NodeStatus = "discovered"
	NodeRumored      NodeStatus = "rumored"
	NodeQuestTarget  NodeStatus = "quest_target"
	NodeBlocked      NodeStatus = "blocked"
)

// RootSentinel is the virtual root parent id used when a node has no
// concrete parentNodeId (spec §4.2).
const RootSentinel = "Universe"

// Position is a 2D layout hint the engine preserves but never interprets.
type Position struct {
	X float64
	Y float64
}

// Node is a single map location (spec §3's Node type).
type Node struct {
	ID           string
	PlaceName    string
	Type         NodeType
	Status       NodeStatus
	Description  string
	Aliases      []string
	ParentNodeID string
	Visited      bool
	Position     Position
}

// EdgeType is the kind of connection between two feature nodes.
type EdgeType string

const (
	EdgePath            EdgeType = "path"
	EdgeRoad            EdgeType = "road"
	EdgeSeaRoute        EdgeType = "sea route"
	EdgeDoor            EdgeType = "door"
	EdgeTeleporter      EdgeType = "teleporter"
	EdgeSecretPassage   EdgeType = "secret_passage"
	EdgeRiverCrossing   EdgeType = "river_crossing"
	EdgeTemporaryBridge EdgeType = "temporary_bridge"
	EdgeBoardingHook    EdgeType = "boarding_hook"
	EdgeShortcut        EdgeType = "shortcut"
)

// EdgeStatus is an edge's traversability state.
type EdgeStatus string

const (
	EdgeOpen       EdgeStatus = "open"
	EdgeAccessible EdgeStatus = "accessible"
	EdgeClosed     EdgeStatus = "closed"
	EdgeLocked     EdgeStatus = "locked"
	EdgeBlockedSt  EdgeStatus = "blocked"
	EdgeHidden     EdgeStatus = "hidden"
	EdgeRumoredSt  EdgeStatus = "rumored"
	EdgeOneWay     EdgeStatus = "one_way"
	EdgeCollapsed  EdgeStatus = "collapsed"
	EdgeRemoved    EdgeStatus = "removed"
	EdgeActive     EdgeStatus = "active"
	EdgeInactive   EdgeStatus = "inactive"
)

// Edge is a connection between two feature nodes (spec §3's Edge type).
type Edge struct {
	ID             string
	SourceNodeID   string
	TargetNodeID   string
	Type           EdgeType
	Status         EdgeStatus
	Description    string
	TravelTime     string
}

// OtherEndpoint returns the endpoint of e that isn't id, or "" if id isn't
// one of e's endpoints.
func (e Edge) OtherEndpoint(id string) string {
	switch id {
	case e.SourceNodeID:
		return e.TargetNodeID
	case e.TargetNodeID:
		return e.SourceNodeID
	default:
		return ""
	}
}
