package chainrefine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollowmap/cartographer/core"
	"github.com/hollowmap/cartographer/correction"
	"github.com/hollowmap/cartographer/debug"
	"github.com/hollowmap/cartographer/graph"
	"github.com/hollowmap/cartographer/llm"
)

type stubProvider struct {
	response string
}

func (s *stubProvider) Generate(ctx context.Context, model string, req llm.Request) (string, error) {
	return s.response, nil
}

type rateWindowFunc func(key string, floor, backoff time.Duration) time.Duration

func (f rateWindowFunc) Observe(key string, floor, backoff time.Duration) time.Duration {
	return f(key, floor, backoff)
}

func noFloorClock() core.RateWindow {
	return rateWindowFunc(func(string, time.Duration, time.Duration) time.Duration { return 0 })
}

func newTestRefiner(t *testing.T, reply string) (*Refiner, *graph.Store) {
	t.Helper()
	store := graph.NewStore()

	region := &graph.Node{ID: "region-1", Type: graph.NodeRegion}
	settlementA := &graph.Node{ID: "settlement-a", Type: graph.NodeSettlement, ParentNodeID: "region-1"}
	settlementB := &graph.Node{ID: "settlement-b", Type: graph.NodeSettlement, ParentNodeID: "region-1"}
	roomA := &graph.Node{ID: "room-a", PlaceName: "Room A", Type: graph.NodeRoom, ParentNodeID: "settlement-a"}
	roomB := &graph.Node{ID: "room-b", PlaceName: "Room B", Type: graph.NodeRoom, ParentNodeID: "settlement-b"}
	featureA := &graph.Node{ID: "feature-a", PlaceName: "Altar", Type: graph.NodeFeature, ParentNodeID: "room-a"}
	featureB := &graph.Node{ID: "feature-b", PlaceName: "Shrine", Type: graph.NodeFeature, ParentNodeID: "room-b"}
	for _, n := range []*graph.Node{region, settlementA, settlementB, roomA, roomB, featureA, featureB} {
		store.AddNode(n)
	}

	p := &stubProvider{response: reply}
	registry := llm.NewRegistry(llm.ModelEntry{Name: "small-model", Provider: p})
	dispatcher := llm.NewDispatcher(registry, noFloorClock(), 1, 0)
	corr := &correction.Services{Dispatcher: dispatcher, Models: []string{"small-model"}}

	return New(store, corr), store
}

func TestRefineAppliesSingleObjectReply(t *testing.T) {
	reply := `{
		"nodesToAdd": [{"placeName": "Settlement Bridge", "type": "feature", "parentNodeId": "settlement-a"}],
		"edgesToAdd": [{"sourceNodeIdentifier": "feature-a", "targetNodeIdentifier": "settlement-bridge", "type": "path"}]
	}`
	refiner, store := newTestRefiner(t, reply)

	featureA, _ := store.Node("feature-a")
	featureB, _ := store.Node("feature-b")
	req := Build(store, featureA, featureB, graph.EdgePath, graph.EdgeOpen, "a long corridor", "")

	trace := debug.New()
	result := refiner.Refine(context.Background(), []*ChainRequest{req}, "map context", trace)

	require.NotEmpty(t, result.AddedNodes)
	assert.Equal(t, "Settlement Bridge", result.AddedNodes[0].PlaceName)
	require.Len(t, trace.ChainRounds, 1)
}

func TestRefineDropsAfterMaxRoundsOnUnparseableReply(t *testing.T) {
	refiner, store := newTestRefiner(t, "not json at all")
	featureA, _ := store.Node("feature-a")
	featureB, _ := store.Node("feature-b")
	req := Build(store, featureA, featureB, graph.EdgePath, graph.EdgeOpen, "", "")

	trace := debug.New()
	result := refiner.Refine(context.Background(), []*ChainRequest{req}, "map context", trace)

	assert.Empty(t, result.AddedNodes)
	assert.Len(t, result.Dropped, 1)
	assert.NotEmpty(t, trace.Warnings)
}

func TestRefineDoesNotDoubleCountANodeReusedAcrossChainsInOneRound(t *testing.T) {
	reply := `{
		"nodesToAdd": [{"placeName": "Settlement Bridge", "type": "feature", "parentNodeId": "settlement-a"}],
		"edgesToAdd": []
	}`
	refiner, store := newTestRefiner(t, reply)

	settlementC := &graph.Node{ID: "settlement-c", Type: graph.NodeSettlement, ParentNodeID: "region-1"}
	roomC := &graph.Node{ID: "room-c", PlaceName: "Room C", Type: graph.NodeRoom, ParentNodeID: "settlement-c"}
	featureD := &graph.Node{ID: "feature-d", PlaceName: "Well", Type: graph.NodeFeature, ParentNodeID: "room-c"}
	store.AddNode(settlementC)
	store.AddNode(roomC)
	store.AddNode(featureD)

	featureA, _ := store.Node("feature-a")
	featureB, _ := store.Node("feature-b")
	reqOne := Build(store, featureA, featureB, graph.EdgePath, graph.EdgeOpen, "", "")
	reqTwo := Build(store, featureD, featureB, graph.EdgePath, graph.EdgeOpen, "", "")

	trace := debug.New()
	result := refiner.Refine(context.Background(), []*ChainRequest{reqOne, reqTwo}, "map context", trace)

	count := 0
	for _, n := range result.AddedNodes {
		if n.PlaceName == "Settlement Bridge" {
			count++
		}
	}
	assert.Equal(t, 1, count, "a node reused across multiple chains in one round must be counted once")
}

func TestRefineReusesExistingNodeUnderSameParent(t *testing.T) {
	reply := `{
		"nodesToAdd": [{"placeName": "Altar", "type": "feature", "parentNodeId": "room-a"}],
		"edgesToAdd": []
	}`
	refiner, store := newTestRefiner(t, reply)
	featureA, _ := store.Node("feature-a")
	featureB, _ := store.Node("feature-b")
	req := Build(store, featureA, featureB, graph.EdgePath, graph.EdgeOpen, "", "")

	before := len(store.Nodes())
	refiner.Refine(context.Background(), []*ChainRequest{req}, "", debug.New())
	after := len(store.Nodes())

	assert.Equal(t, before, after, "reusing an existing node must not create a duplicate")
}
