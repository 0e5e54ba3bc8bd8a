package pathfind

import (
	"testing"

	"github.com/hollowmap/cartographer/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *graph.Store {
	s := graph.NewStore()
	s.AddNode(&graph.Node{ID: "room", PlaceName: "Room", Type: graph.NodeRoom})
	s.AddNode(&graph.Node{ID: "a", PlaceName: "A", Type: graph.NodeFeature, ParentNodeID: "room"})
	s.AddNode(&graph.Node{ID: "b", PlaceName: "B", Type: graph.NodeFeature, ParentNodeID: "room"})
	s.AddEdge(&graph.Edge{ID: "ab", SourceNodeID: "a", TargetNodeID: "b", Type: graph.EdgePath, Status: graph.EdgeOpen})
	return s
}

func TestRouteDirectOpenEdge(t *testing.T) {
	s := newTestStore()
	adj := Build(s)

	steps, ok := adj.Route("a", "b")
	require.True(t, ok)
	require.Len(t, steps, 2)
	assert.Equal(t, "a", steps[0].NodeID)
	assert.Equal(t, "b", steps[1].NodeID)
	assert.Equal(t, "ab", steps[1].Edge.ID)
}

func TestRouteSameNode(t *testing.T) {
	s := newTestStore()
	adj := Build(s)
	steps, ok := adj.Route("a", "a")
	require.True(t, ok)
	assert.Len(t, steps, 1)
}

func TestRouteUnreachableBlockedEdge(t *testing.T) {
	s := graph.NewStore()
	s.AddNode(&graph.Node{ID: "x", PlaceName: "X", Type: graph.NodeFeature})
	s.AddNode(&graph.Node{ID: "y", PlaceName: "Y", Type: graph.NodeFeature})
	s.AddEdge(&graph.Edge{ID: "xy", SourceNodeID: "x", TargetNodeID: "y", Type: graph.EdgePath, Status: graph.EdgeBlockedSt})

	adj := Build(s)
	_, ok := adj.Route("x", "y")
	assert.False(t, ok)
}

func TestRoutePrefersCheaperOpenOverRumoredPath(t *testing.T) {
	s := graph.NewStore()
	s.AddNode(&graph.Node{ID: "x", PlaceName: "X", Type: graph.NodeFeature})
	s.AddNode(&graph.Node{ID: "mid", PlaceName: "Mid", Type: graph.NodeFeature})
	s.AddNode(&graph.Node{ID: "y", PlaceName: "Y", Type: graph.NodeFeature})
	s.AddEdge(&graph.Edge{ID: "direct", SourceNodeID: "x", TargetNodeID: "y", Type: graph.EdgePath, Status: graph.EdgeRumoredSt})
	s.AddEdge(&graph.Edge{ID: "x-mid", SourceNodeID: "x", TargetNodeID: "mid", Type: graph.EdgePath, Status: graph.EdgeOpen})
	s.AddEdge(&graph.Edge{ID: "mid-y", SourceNodeID: "mid", TargetNodeID: "y", Type: graph.EdgePath, Status: graph.EdgeOpen})

	adj := Build(s)
	steps, ok := adj.Route("x", "y")
	require.True(t, ok)
	require.Len(t, steps, 3)
	assert.Equal(t, "mid", steps[1].NodeID)
}

func TestHierarchyPseudoEdgeConnectsFeatureAndRoomParent(t *testing.T) {
	s := newTestStore()
	adj := Build(s)

	steps, ok := adj.Route("a", "room")
	require.True(t, ok)
	assert.Equal(t, "room", steps[len(steps)-1].NodeID)
	assert.Nil(t, steps[len(steps)-1].Edge)
}

func TestHierarchyPseudoEdgeBetweenFeatureAndNonFeatureSibling(t *testing.T) {
	s := graph.NewStore()
	s.AddNode(&graph.Node{ID: "district", PlaceName: "District", Type: graph.NodeDistrict})
	s.AddNode(&graph.Node{ID: "feat", PlaceName: "Feat", Type: graph.NodeFeature, ParentNodeID: "district"})
	s.AddNode(&graph.Node{ID: "room", PlaceName: "Room", Type: graph.NodeRoom, ParentNodeID: "district"})

	adj := Build(s)
	steps, ok := adj.Route("feat", "room")
	require.True(t, ok)
	assert.Equal(t, 2, len(steps))
}

func TestHopsIsUnweightedBFS(t *testing.T) {
	s := graph.NewStore()
	s.AddNode(&graph.Node{ID: "x", PlaceName: "X", Type: graph.NodeFeature})
	s.AddNode(&graph.Node{ID: "mid", PlaceName: "Mid", Type: graph.NodeFeature})
	s.AddNode(&graph.Node{ID: "y", PlaceName: "Y", Type: graph.NodeFeature})
	s.AddEdge(&graph.Edge{ID: "direct", SourceNodeID: "x", TargetNodeID: "y", Type: graph.EdgePath, Status: graph.EdgeRumoredSt})
	s.AddEdge(&graph.Edge{ID: "x-mid", SourceNodeID: "x", TargetNodeID: "mid", Type: graph.EdgePath, Status: graph.EdgeOpen})
	s.AddEdge(&graph.Edge{ID: "mid-y", SourceNodeID: "mid", TargetNodeID: "y", Type: graph.EdgePath, Status: graph.EdgeOpen})

	adj := Build(s)
	hops, ok := adj.Hops("x", "y")
	require.True(t, ok)
	assert.Equal(t, 1, hops)
}

func TestHopsUnreachable(t *testing.T) {
	s := graph.NewStore()
	s.AddNode(&graph.Node{ID: "x", PlaceName: "X", Type: graph.NodeFeature})
	s.AddNode(&graph.Node{ID: "y", PlaceName: "Y", Type: graph.NodeFeature})

	adj := Build(s)
	_, ok := adj.Hops("x", "y")
	assert.False(t, ok)
}
