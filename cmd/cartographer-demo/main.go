// Command cartographer-demo drives one cartography turn against a fixture
// narrative with a canned model reply, no network calls, and prints the
// resulting map plus the full debug trace. Grounded on the teacher
// framework's examples/basic-agent's NewFramework/InitializeAgent
// wiring-then-run shape, adapted from an HTTP agent's startup sequence to a
// single one-shot CLI call.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hollowmap/cartographer/applier"
	"github.com/hollowmap/cartographer/cartography"
	"github.com/hollowmap/cartographer/config"
	"github.com/hollowmap/cartographer/core"
	"github.com/hollowmap/cartographer/correction"
	"github.com/hollowmap/cartographer/graph"
	"github.com/hollowmap/cartographer/llm"
)

// fixtureProvider is a canned llm.Provider that never touches the network;
// it always returns the same Storyteller-shaped reply regardless of what
// was asked, which is all a deterministic demo needs.
type fixtureProvider struct {
	reply string
}

func (f *fixtureProvider) Generate(ctx context.Context, model string, req llm.Request) (string, error) {
	return f.reply, nil
}

// demoRateWindow never makes a caller wait; a real deployment wires
// core.NewRateClock instead.
type demoRateWindow struct{}

func (demoRateWindow) Observe(key string, floor, backoff time.Duration) time.Duration { return 0 }

func seedStore() *graph.Store {
	store := graph.NewStore()
	store.AddNode(&graph.Node{
		ID: "region-1", PlaceName: "Whispering Woods", Type: graph.NodeRegion, Status: graph.NodeDiscovered,
	})
	store.AddNode(&graph.Node{
		ID: "room-1", PlaceName: "Old Shrine", Type: graph.NodeRoom, ParentNodeID: "region-1", Status: graph.NodeDiscovered,
	})
	return store
}

const fixtureReply = `{
  "nodesToAdd": [
    {"placeName": "Stone Altar", "type": "feature", "parentNodeId": "room-1", "description": "A moss-covered altar."},
    {"placeName": "Cracked Urn", "type": "feature", "parentNodeId": "room-1", "description": "Sits beside the altar."}
  ],
  "edgesToAdd": [
    {"sourceNodeIdentifier": "Stone Altar", "targetNodeIdentifier": "Cracked Urn", "type": "path", "status": "open"}
  ],
  "observations": "The party finds a shrine with an altar and urn."
}`

func main() {
	cfg := config.Load()

	store := seedStore()

	registry := llm.NewRegistry(llm.ModelEntry{
		Name:         "demo-model",
		Provider:     &fixtureProvider{reply: fixtureReply},
		Capabilities: llm.Capabilities{SupportsSystemInstruction: true, SupportsJSONSchema: true},
	})
	dispatcher := llm.NewDispatcher(registry, demoRateWindow{}, cfg.ModelRetries, 0)
	dispatcher.Logger = core.NoOpLogger{}

	corr := &correction.Services{Dispatcher: dispatcher, Models: []string{"demo-model"}}

	engine, err := cartography.NewEngine(store, dispatcher, corr, []string{"demo-model"})
	if err != nil {
		log.Fatalf("cartographer-demo: failed to build engine: %v", err)
	}

	result := engine.ApplyTurn(context.Background(), store, cartography.TurnInput{
		Prompt: cartography.PromptInputs{
			SceneDescription: "You push open the creaking door and step into a dusty shrine room.",
			LogMessage:       "Entered the Old Shrine.",
			LocalPlace:       "Old Shrine",
			ThemeName:        "forgotten ruins",
			ThemeGuidance:    "quiet dread, overgrown stonework",
			PreviousNodeID:   "region-1",
		},
		CurrentNodeID: "room-1",
		Inventory:     []applier.Item{{ID: "item-1", Name: "Rusty Dagger", Type: "weapon"}},
		NPCs:          nil,
	})

	if result.Err != nil {
		log.Fatalf("cartographer-demo: turn failed: %v", result.Err)
	}
	if result.Graph == nil {
		fmt.Println("turn produced no map update; validation errors:")
		for _, e := range result.Trace.ValidationErrors {
			fmt.Println(" -", e)
		}
		return
	}

	fmt.Println("=== Updated map ===")
	for _, n := range result.Graph.Nodes() {
		fmt.Printf("%s [%s] %q (parent=%s, status=%s)\n", n.ID, n.Type, n.PlaceName, n.ParentNodeID, n.Status)
	}
	for _, e := range result.Graph.Edges() {
		fmt.Printf("edge %s: %s -> %s (%s, %s)\n", e.ID, e.SourceNodeID, e.TargetNodeID, e.Type, e.Status)
	}

	fmt.Println("\n=== Debug trace ===")
	fmt.Println("model calls:", len(result.Trace.ModelCalls))
	fmt.Println("warnings:", result.Trace.Warnings)
	fmt.Println("chain rounds:", len(result.Trace.ChainRounds))
}
