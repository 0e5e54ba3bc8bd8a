// Package applier implements the Update Applier (C7): the top-level
// pipeline that takes a validated mapupdate.MapUpdate and the current
// graph and runs it through the eleven ordered phases of spec §4.5 —
// annihilation, dedup, rename reconciliation, node addition, node update,
// node removal, hierarchy conflict resolution, edge operations, pruning,
// connector-chain refinement, and post-pass cleanup. Every phase writes to
// the same debug.Trace so a turn's full story survives the call.
package applier

import (
	"context"

	"github.com/hollowmap/cartographer/chainrefine"
	"github.com/hollowmap/cartographer/correction"
	"github.com/hollowmap/cartographer/debug"
	"github.com/hollowmap/cartographer/graph"
	"github.com/hollowmap/cartographer/mapupdate"
	"github.com/hollowmap/cartographer/pathfind"
)

// Applier wires the graph store and the correction/chain-refinement
// collaborators a turn needs. One Applier is reused across turns; Apply
// itself is not safe for concurrent use on the same Store without the
// caller's own mutex (spec §5: "callers enforce this with a mutex around
// the whole applyMapUpdates entry point").
type Applier struct {
	Store      *graph.Store
	Correction *correction.Services
	Chain      *chainrefine.Refiner
}

// New builds an Applier. chain may be nil, in which case P10 is skipped
// entirely and any queued chain requests are dropped with a warning —
// useful for callers that want edge-legality enforcement without paying
// for connector synthesis.
func New(store *graph.Store, corr *correction.Services, chain *chainrefine.Refiner) *Applier {
	return &Applier{Store: store, Correction: corr, Chain: chain}
}

// Input bundles everything Apply needs beyond the payload itself.
type Input struct {
	Update           *mapupdate.MapUpdate
	NarrativeContext string
	CurrentNodeID    string
	Inventory        []Item
	NPCs             []NPC
}

// Result is what one Apply call produces: the mutated graph (a clone of
// the store the Applier was built with — the caller decides whether to
// keep it or roll back by discarding it, per spec §4.3's structuredClone
// rollback contract), the nodes/edges newly added this turn, the
// post-cleanup inventory snapshot (P11's companion filter may drop
// entries), and the accumulated debug trace.
type Result struct {
	Graph      *graph.Store
	AddedNodes []*graph.Node
	AddedEdges []*graph.Edge
	Inventory  []Item
	Trace      *debug.Trace
}

// pendingAdd tracks one not-yet-resolved node-add through P4's iterative
// queue.
type pendingAdd struct {
	add            mapupdate.NodeAdd
	sameTypeParent bool
	resolvedParent string
}

// pendingEdgeAdd tracks one edge-add through P8, including ones
// synthesized internally by P4 (same-type-parent connector requests).
type pendingEdgeAdd struct {
	add      mapupdate.EdgeAdd
	internal bool
}

// apply is the mutable working state threaded through every phase.
type apply struct {
	ctx           context.Context
	store         *graph.Store
	corr          *correction.Services
	chain         *chainrefine.Refiner
	trace         *debug.Trace
	inventory     []Item
	npcs          []NPC
	currentNodeID string

	batchNameToID map[string]string // placeName(norm) -> id, for this turn's new nodes

	addedNodes []*graph.Node
	addedEdges []*graph.Edge

	pendingEdgeAdds []pendingEdgeAdd
	chainQueue      []*chainrefine.ChainRequest
}

// Apply runs the full eleven-phase pipeline against a clone of a.Store and
// returns the result. The live store a.Store was built with is never
// mutated directly.
func (a *Applier) Apply(ctx context.Context, in Input) Result {
	trace := debug.New()
	work := &apply{
		ctx:           ctx,
		store:         a.Store.Clone(),
		corr:          a.Correction,
		chain:         a.Chain,
		trace:         trace,
		inventory:     append([]Item(nil), in.Inventory...),
		npcs:          in.NPCs,
		currentNodeID: in.CurrentNodeID,
		batchNameToID: make(map[string]string),
	}
	// Built fresh each turn against the working clone for tie-breaking
	// (spec §4.3's "fewest hops from currentNodeId"). It is built once,
	// before P1-P9 run, so it does not reflect this turn's own edits.
	work.store.Distances = pathfind.Build(work.store)
	if a.Chain != nil {
		// Chain refinement must mutate the same working clone every other
		// phase mutates, not the Applier's long-lived Store.
		a.Chain.Store = work.store
	}

	update := in.Update
	if update == nil {
		update = &mapupdate.MapUpdate{}
	}

	nodeAdds, nodeRemoves := work.phase1Annihilation(update.NodesToAdd, update.NodesToRemove)
	edgeAdds := work.phase2DedupeEdgeAdds(update.EdgesToAdd)
	nodeRemoves = work.phase3RenameReconciliation(update.NodesToUpdate, nodeRemoves)

	work.phase4AddNodes(nodeAdds)
	work.phase5UpdateNodes(update.NodesToUpdate)
	work.phase6RemoveNodes(nodeRemoves)
	work.phase7ResolveHierarchyConflicts()

	for _, ea := range edgeAdds {
		work.pendingEdgeAdds = append(work.pendingEdgeAdds, pendingEdgeAdd{add: ea})
	}
	work.phase8EdgeOperations(update.EdgesToUpdate, update.EdgesToRemove)
	work.phase9PruneEdges()
	work.phase10ChainRefinement(in.NarrativeContext)
	work.phase11Cleanup(in.CurrentNodeID, update)

	return Result{
		Graph:      work.store,
		AddedNodes: work.addedNodes,
		AddedEdges: work.addedEdges,
		Inventory:  work.inventory,
		Trace:      trace,
	}
}
