// Package chainrefine implements the Connector-Chain Refiner (C6): given a
// payload edge request between two feature nodes whose parents violate the
// §4.2 adjacency rule, it synthesizes a chain of intermediate feature
// siblings, one per ancestor step, so the resulting graph contains a valid
// walk from source to target where every hop is adjacency-legal.
package chainrefine

import (
	"encoding/hex"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/hollowmap/cartographer/graph"
)

type nodeLookup interface {
	Node(id string) (*graph.Node, bool)
}

// ChainRequest is one pending connector-chain synthesis job: the failed edge
// request between SourceID and TargetID, plus the ordered ancestor walk
// between them that intermediate feature connectors must be threaded
// through (spec §4.4 step 1).
type ChainRequest struct {
	SourceID string
	TargetID string

	// OrderedParents is the deduplicated ancestor walk from SourceID's
	// immediate parent through the nearest common ancestor to TargetID's
	// immediate parent, A-side order then reversed B-side order.
	OrderedParents []string

	EdgeType        graph.EdgeType
	EdgeStatus      graph.EdgeStatus
	EdgeDescription string
	EdgeTravelTime  string
}

func ancestorChain(lookup nodeLookup, id string) []string {
	var chain []string
	visited := map[string]bool{id: true}
	cur := id
	for {
		n, ok := lookup.Node(cur)
		if !ok {
			break
		}
		parent := n.ParentNodeID
		if parent == "" {
			parent = graph.RootSentinel
		}
		if visited[parent] {
			break
		}
		visited[parent] = true
		chain = append(chain, parent)
		if parent == graph.RootSentinel {
			break
		}
		cur = parent
	}
	return chain
}

func reverseStrings(in []string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}

func indexOf(list []string, v string) int {
	for i, x := range list {
		if x == v {
			return i
		}
	}
	return -1
}

// Build walks the ancestor chains of a and b and interleaves them into
// OrderedParents, truncating at the nearest common ancestor so the walk
// doesn't climb past the point where the two sides already meet (spec §4.4
// step 1's "interleaved ordered parents, deduplicated").
func Build(lookup nodeLookup, a, b *graph.Node, edgeType graph.EdgeType, status graph.EdgeStatus, description, travelTime string) *ChainRequest {
	aChain := ancestorChain(lookup, a.ID)
	bChain := ancestorChain(lookup, b.ID)

	common := ""
	commonIdxA := -1
	for i, p := range aChain {
		if indexOf(bChain, p) >= 0 {
			common = p
			commonIdxA = i
			break
		}
	}

	var ordered []string
	if commonIdxA >= 0 {
		ordered = append(ordered, aChain[:commonIdxA+1]...)
		commonIdxB := indexOf(bChain, common)
		ordered = append(ordered, reverseStrings(bChain[:commonIdxB])...)
	} else {
		ordered = append(ordered, aChain...)
		ordered = append(ordered, reverseStrings(bChain)...)
	}

	seen := make(map[string]bool, len(ordered))
	deduped := ordered[:0]
	for _, p := range ordered {
		if seen[p] {
			continue
		}
		seen[p] = true
		deduped = append(deduped, p)
	}

	return &ChainRequest{
		SourceID:        a.ID,
		TargetID:        b.ID,
		OrderedParents:  deduped,
		EdgeType:        edgeType,
		EdgeStatus:      status,
		EdgeDescription: description,
		EdgeTravelTime:  travelTime,
	}
}

// Key returns a stable short hash of r's ordered parents and edge type.
// Refine uses it as part of the id of every edge it adds for r; sub-chain
// elimination (IsSubChainOf) and edge dedup (pairKey) do not use it.
// Grounded on the teacher corpus's blake3 content-hash idiom (vsavkov-kilroy's CXDB blob sink), applied here to a structural key
// instead of file bytes.
func (r *ChainRequest) Key() string {
	sum := blake3.Sum256([]byte(strings.Join(r.OrderedParents, "|") + "|" + string(r.EdgeType)))
	return hex.EncodeToString(sum[:])[:16]
}

func isContiguousSubsequence(sub, full []string) bool {
	if len(sub) == 0 || len(sub) > len(full) {
		return false
	}
	for start := 0; start+len(sub) <= len(full); start++ {
		match := true
		for i, v := range sub {
			if full[start+i] != v {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// IsSubChainOf reports whether r's ordered-parent walk, forward or
// reversed, is a contiguous subsequence of other's — spec §4.4 step 2's
// "eliminate any chain that is a (possibly reversed) sub-chain of another
// by a parent-id equality match."
func (r *ChainRequest) IsSubChainOf(other *ChainRequest) bool {
	if r == other {
		return false
	}
	return isContiguousSubsequence(r.OrderedParents, other.OrderedParents) ||
		isContiguousSubsequence(reverseStrings(r.OrderedParents), other.OrderedParents)
}

// AggregateAndDedupe drops any request that is a sub-chain of another
// request in the same batch (spec §4.4 step 2).
func AggregateAndDedupe(requests []*ChainRequest) []*ChainRequest {
	out := make([]*ChainRequest, 0, len(requests))
	for _, r := range requests {
		redundant := false
		for _, other := range requests {
			if r.IsSubChainOf(other) {
				redundant = true
				break
			}
		}
		if !redundant {
			out = append(out, r)
		}
	}
	return out
}
