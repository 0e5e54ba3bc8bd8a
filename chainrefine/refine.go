package chainrefine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hollowmap/cartographer/core"
	"github.com/hollowmap/cartographer/correction"
	"github.com/hollowmap/cartographer/debug"
	"github.com/hollowmap/cartographer/envelope"
	"github.com/hollowmap/cartographer/graph"
	"github.com/hollowmap/cartographer/hierarchy"
	"github.com/hollowmap/cartographer/mapupdate"
)

// chainReplySchema constrains the correction LLM's reply to feature-only
// adds and feature-to-feature edge adds (spec §4.4 step 3).
const chainReplySchema = `{
  "type": "object",
  "properties": {
    "nodesToAdd": {"type": "array", "items": {"type": "object"}},
    "edgesToAdd": {"type": "array", "items": {"type": "object"}}
  },
  "additionalProperties": false
}`

// chainReply is the per-chain shape of a correction reply; the top-level
// reply may be one object or an array of these (spec §9's dynamic payload
// shape note, called out explicitly for the connector-chain reply).
type chainReply struct {
	NodesToAdd []mapupdate.NodeAdd `json:"nodesToAdd"`
	EdgesToAdd []mapupdate.EdgeAdd `json:"edgesToAdd"`
}

// Refiner drives the connector-chain synthesis loop (spec §4.4).
type Refiner struct {
	Store      *graph.Store
	Correction *correction.Services
	MaxRounds  int
}

// New builds a Refiner with spec §4.4's default round budget.
func New(store *graph.Store, corr *correction.Services) *Refiner {
	return &Refiner{Store: store, Correction: corr, MaxRounds: core.DefaultChainMaxRounds}
}

// Result summarizes what one Refine call produced.
type Result struct {
	AddedNodes []*graph.Node
	AddedEdges []*graph.Edge
	Dropped    []*ChainRequest
}

// Refine drains pending until satisfied or the round budget is exhausted
// (spec §4.4 steps 2-5). Unresolved requests after the final round are
// returned in Result.Dropped with no partially-connected state left behind
// — every node/edge this function does add is fully legal on return.
func (r *Refiner) Refine(ctx context.Context, pending []*ChainRequest, mapContext string, trace *debug.Trace) Result {
	maxRounds := r.MaxRounds
	if maxRounds <= 0 {
		maxRounds = core.DefaultChainMaxRounds
	}

	queue := AggregateAndDedupe(pending)
	var result Result
	processedEdgeKeys := make(map[string]bool)
	addedNodeIDs := make(map[string]bool)

	for round := 1; round <= maxRounds && len(queue) > 0; round++ {
		summary := debug.ChainRound{Round: round, RequestsIn: len(queue)}

		replies, ok := r.callCorrectionLLM(ctx, queue, mapContext)
		if !ok {
			summary.RequestsDropped = len(queue)
			summary.Note = "no parseable reply from correction model"
			if trace != nil {
				trace.RecordChainRound(summary)
			}
			continue
		}

		nodesBefore, edgesBefore := len(result.AddedNodes), len(result.AddedEdges)
		var nextQueue []*ChainRequest
		for _, chain := range queue {
			if !r.applyChainReplies(replies, chain, processedEdgeKeys, addedNodeIDs, &result) {
				nextQueue = append(nextQueue, chain)
			}
		}
		summary.NodesAdded = len(result.AddedNodes) - nodesBefore
		summary.EdgesAdded = len(result.AddedEdges) - edgesBefore
		summary.RequestsDropped = len(nextQueue)
		if trace != nil {
			trace.RecordChainRound(summary)
		}
		queue = nextQueue
	}

	result.Dropped = queue
	if trace != nil {
		for _, d := range result.Dropped {
			trace.Warn(fmt.Sprintf("chain refinement gave up on %s -> %s after %d rounds", d.SourceID, d.TargetID, maxRounds))
		}
	}
	return result
}

func (r *Refiner) callCorrectionLLM(ctx context.Context, queue []*ChainRequest, mapContext string) ([]chainReply, bool) {
	var b strings.Builder
	b.WriteString("The following connector chains need intermediate feature nodes and edges so each request satisfies the adjacency rule:\n")
	for _, c := range queue {
		fmt.Fprintf(&b, "- %s -> %s via ancestors: %s\n", c.SourceID, c.TargetID, strings.Join(c.OrderedParents, " > "))
	}
	b.WriteString("\nMap context:\n")
	b.WriteString(mapContext)

	raw, ok := r.Correction.RepairJSON(ctx, b.String(), chainReplySchema)
	if !ok {
		return nil, false
	}

	candidate, extracted := envelope.Extract(raw)
	if !extracted {
		candidate = raw
	}

	var folded mapupdate.OneOrMany[chainReply]
	if err := json.Unmarshal([]byte(candidate), &folded); err != nil {
		return nil, false
	}
	return folded.Items, true
}

func (r *Refiner) applyChainReplies(replies []chainReply, chain *ChainRequest, processedEdgeKeys, addedNodeIDs map[string]bool, result *Result) bool {
	progressed := false
	for _, reply := range replies {
		for _, na := range reply.NodesToAdd {
			if !strings.EqualFold(na.Type, string(graph.NodeFeature)) {
				continue
			}
			n, isNew := r.reuseOrCreate(na)
			if n == nil {
				continue
			}
			progressed = true
			// A node reused across several queued chains in the same round
			// (or across rounds) must only appear once in the turn's added-
			// node list.
			if isNew && !addedNodeIDs[n.ID] {
				addedNodeIDs[n.ID] = true
				result.AddedNodes = append(result.AddedNodes, n)
			}
		}
		for _, ea := range reply.EdgesToAdd {
			src, srcOK := r.Store.FindByIdentifier(ea.SourceIdentifier, "")
			tgt, tgtOK := r.Store.FindByIdentifier(ea.TargetIdentifier, "")
			if !srcOK || !tgtOK {
				continue
			}
			key := pairKey(src.ID, tgt.ID, ea.Type)
			if processedEdgeKeys[key] {
				continue
			}
			processedEdgeKeys[key] = true

			if !hierarchy.IsEdgeConnectionAllowed(r.Store, src, tgt, graph.EdgeType(ea.Type)) {
				continue
			}
			e := &graph.Edge{
				ID:           "edge-" + chain.Key() + "-" + key,
				SourceNodeID: src.ID,
				TargetNodeID: tgt.ID,
				Type:         graph.EdgeType(ea.Type),
				Status:       resolveEdgeStatus(ea.Status),
				Description:  ea.Description,
				TravelTime:   ea.TravelTime,
			}
			r.Store.AddEdge(e)
			result.AddedEdges = append(result.AddedEdges, e)
			progressed = true
		}
	}
	return progressed
}

// reuseOrCreate reuses a live node of the same name under the same parent
// if one exists, reporting isNew=false so the caller doesn't recount it as
// newly added; otherwise it creates and indexes a fresh feature node.
func (r *Refiner) reuseOrCreate(na mapupdate.NodeAdd) (n *graph.Node, isNew bool) {
	parentID := na.ParentNodeID
	if parentID == "" {
		parentID = graph.RootSentinel
	}
	for _, existing := range r.Store.Nodes() {
		if existing.ParentNodeID == parentID && strings.EqualFold(existing.PlaceName, na.PlaceName) {
			if existing.Description == "" {
				existing.Description = na.Description
			}
			r.Store.UnionAliases(existing.ID, na.Aliases)
			return existing, false
		}
	}
	n = &graph.Node{
		ID:           graph.NewNodeID(na.PlaceName),
		PlaceName:    na.PlaceName,
		Type:         graph.NodeFeature,
		Status:       resolveNodeStatus(na.Status),
		Description:  na.Description,
		Aliases:      append([]string(nil), na.Aliases...),
		ParentNodeID: parentID,
		Visited:      na.Visited,
	}
	r.Store.AddNode(n)
	return n, true
}

func pairKey(a, b, edgeType string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b + "|" + edgeType
}

func resolveEdgeStatus(s string) graph.EdgeStatus {
	if s == "" {
		return graph.EdgeOpen
	}
	return graph.EdgeStatus(s)
}

func resolveNodeStatus(s string) graph.NodeStatus {
	if s == "" {
		return graph.NodeDiscovered
	}
	return graph.NodeStatus(s)
}
