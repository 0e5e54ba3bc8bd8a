package applier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollowmap/cartographer/core"
	"github.com/hollowmap/cartographer/correction"
	"github.com/hollowmap/cartographer/graph"
	"github.com/hollowmap/cartographer/llm"
	"github.com/hollowmap/cartographer/mapupdate"
)

type stubProvider struct {
	response string
}

func (p *stubProvider) Generate(ctx context.Context, model string, req llm.Request) (string, error) {
	return p.response, nil
}

type rateWindowFunc func(key string, floor, backoff time.Duration) time.Duration

func (f rateWindowFunc) Observe(key string, floor, backoff time.Duration) time.Duration {
	return f(key, floor, backoff)
}

func noFloorClock() core.RateWindow {
	return rateWindowFunc(func(string, time.Duration, time.Duration) time.Duration { return 0 })
}

func newTestCorrection(t *testing.T, response string) *correction.Services {
	t.Helper()
	registry := llm.NewRegistry(llm.ModelEntry{
		Name:         "test-model",
		Provider:     &stubProvider{response: response},
		Capabilities: llm.Capabilities{SupportsSystemInstruction: true},
	})
	dispatcher := llm.NewDispatcher(registry, noFloorClock(), 1, time.Millisecond)
	return &correction.Services{Dispatcher: dispatcher, Models: []string{"test-model"}}
}

func newTestStore() *graph.Store {
	s := graph.NewStore()
	region := &graph.Node{ID: "region-1", PlaceName: "Whispering Woods", Type: graph.NodeRegion, Status: graph.NodeDiscovered}
	room := &graph.Node{ID: "room-1", PlaceName: "Old Shrine", Type: graph.NodeRoom, ParentNodeID: "region-1", Status: graph.NodeDiscovered}
	feature := &graph.Node{ID: "feature-1", PlaceName: "Stone Altar", Type: graph.NodeFeature, ParentNodeID: "room-1", Status: graph.NodeDiscovered}
	s.AddNode(region)
	s.AddNode(room)
	s.AddNode(feature)
	return s
}

func TestApplyAddsNodeUnderResolvedParent(t *testing.T) {
	store := newTestStore()
	a := New(store, nil, nil)

	update := &mapupdate.MapUpdate{
		NodesToAdd: []mapupdate.NodeAdd{
			{PlaceName: "Rusty Dagger Niche", Type: "feature", ParentNodeID: "room-1"},
		},
	}

	result := a.Apply(context.Background(), Input{Update: update})
	require.Len(t, result.AddedNodes, 1)
	assert.Equal(t, "room-1", result.AddedNodes[0].ParentNodeID)

	n, ok := result.Graph.FindByIdentifier("Rusty Dagger Niche", "")
	require.True(t, ok)
	assert.Equal(t, graph.NodeFeature, n.Type)
}

func TestApplyDoesNotMutateOriginalStore(t *testing.T) {
	store := newTestStore()
	a := New(store, nil, nil)

	update := &mapupdate.MapUpdate{
		NodesToAdd: []mapupdate.NodeAdd{{PlaceName: "New Thing", Type: "feature", ParentNodeID: "room-1"}},
	}
	a.Apply(context.Background(), Input{Update: update})

	_, ok := store.FindByIdentifier("New Thing", "")
	assert.False(t, ok, "the Applier's original store must be untouched")
}

func TestAnnihilationDropsMatchingAddAndRemove(t *testing.T) {
	store := newTestStore()
	a := New(store, nil, nil)

	update := &mapupdate.MapUpdate{
		NodesToAdd:    []mapupdate.NodeAdd{{PlaceName: "Stone Altar", Type: "feature", ParentNodeID: "room-1"}},
		NodesToRemove: []mapupdate.NodeRemove{{Identifier: "Stone Altar"}},
	}
	result := a.Apply(context.Background(), Input{Update: update})

	assert.Empty(t, result.AddedNodes)
	_, ok := result.Graph.FindByIdentifier("feature-1", "")
	assert.True(t, ok, "annihilated remove must not delete the live node either")
}

func TestAnnihilationDropsAddCollidingWithInventoryItem(t *testing.T) {
	store := newTestStore()
	a := New(store, nil, nil)

	update := &mapupdate.MapUpdate{
		NodesToAdd: []mapupdate.NodeAdd{{PlaceName: "Rusty Dagger", Type: "feature", ParentNodeID: "room-1"}},
	}
	result := a.Apply(context.Background(), Input{
		Update:    update,
		Inventory: []Item{{ID: "item-1", Name: "Rusty Dagger", Type: "weapon"}},
	})

	assert.Empty(t, result.AddedNodes)
	assert.NotEmpty(t, result.Trace.Warnings)
}

func TestRenameReconciliationProtectsBothNames(t *testing.T) {
	store := newTestStore()
	a := New(store, nil, nil)

	update := &mapupdate.MapUpdate{
		NodesToUpdate: []mapupdate.NodeUpdate{{Identifier: "Old Shrine", NewPlaceName: "New Shrine"}},
		NodesToRemove: []mapupdate.NodeRemove{{Identifier: "Old Shrine"}, {Identifier: "New Shrine"}},
	}
	result := a.Apply(context.Background(), Input{Update: update})

	n, ok := result.Graph.FindByIdentifier("room-1", "")
	require.True(t, ok, "rename target must survive since removes of either name are reconciled away")
	assert.Equal(t, "New Shrine", n.PlaceName)
	assert.Contains(t, n.Aliases, "Old Shrine")
}

func TestNodeRemovalIsSoftRefusedWhenHoldingNonJunkItem(t *testing.T) {
	store := newTestStore()
	a := New(store, nil, nil)

	update := &mapupdate.MapUpdate{
		NodesToRemove: []mapupdate.NodeRemove{{Identifier: "feature-1"}},
	}
	result := a.Apply(context.Background(), Input{
		Update:    update,
		Inventory: []Item{{ID: "item-1", Name: "Golden Key", Type: "key", HolderID: "feature-1"}},
	})

	_, ok := result.Graph.Node("feature-1")
	assert.True(t, ok, "removal must be refused while a non-junk item is held")
	assert.NotEmpty(t, result.Trace.Warnings)
}

func TestNodeRemovalSucceedsWhenOnlyJunkHeld(t *testing.T) {
	store := newTestStore()
	a := New(store, nil, nil)

	update := &mapupdate.MapUpdate{
		NodesToRemove: []mapupdate.NodeRemove{{Identifier: "feature-1"}},
	}
	result := a.Apply(context.Background(), Input{
		Update:    update,
		Inventory: []Item{{ID: "item-1", Name: "Pebble", Type: "misc", Tags: []string{"junk"}, HolderID: "feature-1"}},
	})

	_, ok := result.Graph.Node("feature-1")
	assert.False(t, ok)
}

func TestNodeRemovalIsSoftRefusedWhenItemTypeIsJunkButUntagged(t *testing.T) {
	store := newTestStore()
	a := New(store, nil, nil)

	update := &mapupdate.MapUpdate{
		NodesToRemove: []mapupdate.NodeRemove{{Identifier: "feature-1"}},
	}
	result := a.Apply(context.Background(), Input{
		Update:    update,
		Inventory: []Item{{ID: "item-1", Name: "Odd Trinket", Type: "junk", HolderID: "feature-1"}},
	})

	_, ok := result.Graph.Node("feature-1")
	assert.True(t, ok, "junk classification is the tag, not the item type")
}

func TestDuplicateAddNameUnderDifferentParentGetsMechanicalSuffixWithNoCorrection(t *testing.T) {
	store := newTestStore()
	otherRoom := &graph.Node{ID: "room-2", PlaceName: "Far Room", Type: graph.NodeRoom, ParentNodeID: "region-1"}
	store.AddNode(otherRoom)
	a := New(store, nil, nil) // corr == nil: must fall back to the mechanical suffix

	update := &mapupdate.MapUpdate{
		NodesToAdd: []mapupdate.NodeAdd{
			{PlaceName: "Stone Altar", Type: "feature", ParentNodeID: "room-2"},
		},
	}
	result := a.Apply(context.Background(), Input{Update: update})

	require.Len(t, result.AddedNodes, 1)
	assert.Equal(t, "Stone Altar (2)", result.AddedNodes[0].PlaceName,
		"a same-named live node under a different parent must trigger disambiguation")
	assert.NotEmpty(t, result.Trace.Warnings)

	original, ok := result.Graph.Node("feature-1")
	require.True(t, ok)
	assert.Equal(t, "Stone Altar", original.PlaceName, "the pre-existing node must keep its own name")
}

func TestDuplicateAddNameIsResolvedByRenameDisambiguator(t *testing.T) {
	store := newTestStore()
	otherRoom := &graph.Node{ID: "room-2", PlaceName: "Far Room", Type: graph.NodeRoom, ParentNodeID: "region-1"}
	store.AddNode(otherRoom)
	corr := newTestCorrection(t, "Weathered Altar")
	a := New(store, corr, nil)

	update := &mapupdate.MapUpdate{
		NodesToAdd: []mapupdate.NodeAdd{
			{PlaceName: "Stone Altar", Type: "feature", ParentNodeID: "room-2"},
		},
	}
	result := a.Apply(context.Background(), Input{Update: update})

	require.Len(t, result.AddedNodes, 1)
	assert.Equal(t, "Weathered Altar", result.AddedNodes[0].PlaceName,
		"the correction model's alternative must be used instead of a mechanical suffix")
}

func TestRenameToExistingLiveNameIsDisambiguated(t *testing.T) {
	store := newTestStore()
	other := &graph.Node{ID: "feature-2", PlaceName: "Cracked Urn", Type: graph.NodeFeature, ParentNodeID: "room-1"}
	store.AddNode(other)
	a := New(store, nil, nil)

	update := &mapupdate.MapUpdate{
		NodesToUpdate: []mapupdate.NodeUpdate{{Identifier: "feature-2", NewPlaceName: "Stone Altar"}},
	}
	result := a.Apply(context.Background(), Input{Update: update})

	renamed, ok := result.Graph.Node("feature-2")
	require.True(t, ok)
	assert.Equal(t, "Stone Altar (2)", renamed.PlaceName, "renaming onto a live name must disambiguate, not collide")

	untouched, ok := result.Graph.Node("feature-1")
	require.True(t, ok)
	assert.Equal(t, "Stone Altar", untouched.PlaceName)
}

func TestIdentifierTieBreakUsesHopDistanceViaPathfind(t *testing.T) {
	store := newTestStore()
	room2 := &graph.Node{ID: "room-2", PlaceName: "Annex", Type: graph.NodeRoom, ParentNodeID: "region-1", Status: graph.NodeDiscovered}
	altarShrine := &graph.Node{ID: "altar-shrine", PlaceName: "Shrine Altar", Type: graph.NodeFeature, ParentNodeID: "room-1", Status: graph.NodeDiscovered}
	altarTomb := &graph.Node{ID: "altar-tomb", PlaceName: "Tomb Altar", Type: graph.NodeFeature, ParentNodeID: "room-2", Status: graph.NodeDiscovered}
	store.AddNode(room2)
	store.AddNode(altarShrine)
	store.AddNode(altarTomb)
	store.AddEdge(&graph.Edge{ID: "e-room1-room2", SourceNodeID: "room-1", TargetNodeID: "room-2", Type: graph.EdgePath, Status: graph.EdgeOpen})
	store.AddEdge(&graph.Edge{ID: "e-room1-shrine", SourceNodeID: "room-1", TargetNodeID: "altar-shrine", Type: graph.EdgePath, Status: graph.EdgeOpen})
	store.AddEdge(&graph.Edge{ID: "e-room2-tomb", SourceNodeID: "room-2", TargetNodeID: "altar-tomb", Type: graph.EdgePath, Status: graph.EdgeOpen})

	a := New(store, nil, nil)
	update := &mapupdate.MapUpdate{
		NodesToRemove: []mapupdate.NodeRemove{{Identifier: "altar"}},
	}
	result := a.Apply(context.Background(), Input{Update: update, CurrentNodeID: "room-1"})

	_, shrineStillThere := result.Graph.Node("altar-shrine")
	assert.False(t, shrineStillThere, "an ambiguous identifier must resolve to the nearest candidate by hop distance")
	_, tombStillThere := result.Graph.Node("altar-tomb")
	assert.True(t, tombStillThere, "the farther candidate must be left untouched")
}

func TestEdgeAddBetweenSiblingFeaturesSucceeds(t *testing.T) {
	store := newTestStore()
	other := &graph.Node{ID: "feature-2", PlaceName: "Cracked Urn", Type: graph.NodeFeature, ParentNodeID: "room-1"}
	store.AddNode(other)
	a := New(store, nil, nil)

	update := &mapupdate.MapUpdate{
		EdgesToAdd: []mapupdate.EdgeAdd{{SourceIdentifier: "feature-1", TargetIdentifier: "feature-2", Type: "path"}},
	}
	result := a.Apply(context.Background(), Input{Update: update})
	require.Len(t, result.AddedEdges, 1)
	assert.Equal(t, graph.EdgeOpen, result.AddedEdges[0].Status)
}

func TestEdgeAddIllegalAdjacencyIsQueuedNotDroppedSilently(t *testing.T) {
	store := newTestStore()
	farRegion := &graph.Node{ID: "region-2", PlaceName: "Distant Region", Type: graph.NodeRegion}
	farRoom := &graph.Node{ID: "room-2", PlaceName: "Far Room", Type: graph.NodeRoom, ParentNodeID: "region-2"}
	farFeature := &graph.Node{ID: "feature-far", PlaceName: "Far Feature", Type: graph.NodeFeature, ParentNodeID: "room-2"}
	store.AddNode(farRegion)
	store.AddNode(farRoom)
	store.AddNode(farFeature)

	a := New(store, nil, nil) // no chain refiner wired
	update := &mapupdate.MapUpdate{
		EdgesToAdd: []mapupdate.EdgeAdd{{SourceIdentifier: "feature-1", TargetIdentifier: "feature-far", Type: "path"}},
	}
	result := a.Apply(context.Background(), Input{Update: update})

	assert.Empty(t, result.AddedEdges)
	assert.NotEmpty(t, result.Trace.Warnings)
}

func TestEdgePruningDropsDeadEdges(t *testing.T) {
	store := newTestStore()
	other := &graph.Node{ID: "feature-2", PlaceName: "Cracked Urn", Type: graph.NodeFeature, ParentNodeID: "room-1"}
	store.AddNode(other)
	store.AddEdge(&graph.Edge{ID: "e1", SourceNodeID: "feature-1", TargetNodeID: "feature-2", Type: graph.EdgePath, Status: graph.EdgeOpen})

	a := New(store, nil, nil)
	update := &mapupdate.MapUpdate{
		NodesToRemove: []mapupdate.NodeRemove{{Identifier: "feature-2"}},
	}
	result := a.Apply(context.Background(), Input{Update: update})
	assert.Empty(t, result.Graph.EdgesOf("feature-1"))
}

func TestCompanionOwnedItemIsFilteredFromInventory(t *testing.T) {
	store := newTestStore()
	a := New(store, nil, nil)

	result := a.Apply(context.Background(), Input{
		Update:    &mapupdate.MapUpdate{},
		Inventory: []Item{{ID: "item-1", Name: "Whiskers"}},
		NPCs:      []NPC{{ID: "npc-1", Name: "Whiskers"}},
	})
	assert.Empty(t, result.Inventory)
}

func TestSuggestedDestinationClearedWhenCurrentIsDescendant(t *testing.T) {
	store := newTestStore()
	a := New(store, nil, nil)

	update := &mapupdate.MapUpdate{SuggestedCurrentMapNodeID: "region-1"}
	result := a.Apply(context.Background(), Input{Update: update, CurrentNodeID: "feature-1"})
	_ = result
	assert.Equal(t, "", update.SuggestedCurrentMapNodeID)
}
