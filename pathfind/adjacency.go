// Package pathfind implements Travel Pathfinding (C9): a weighted shortest
// path over the live graph, combining literal edges (weighted by
// traversability status) with synthetic "hierarchy pseudo-edges" so a
// traveler can step between a room and its parent, or between sibling
// features and non-feature containers, even when no explicit edge models
// that step. Grounded on the teacher's ai/providers weighted-retry-table
// idiom generalized into a weighted-graph shortest-path, since the teacher
// has no native graph/pathfinding package to adapt directly.
package pathfind

import (
	"container/heap"
	"math"

	"github.com/hollowmap/cartographer/graph"
)

const (
	weightTraversable = 1.0
	weightRumored     = 5.0
	weightBlocked     = math.Inf(1)
	weightHierarchy   = 20.0
)

// nodeLookup is the minimal read access pathfind needs from graph.Store.
type nodeLookup interface {
	Node(id string) (*graph.Node, bool)
	Nodes() []*graph.Node
	EdgesOf(id string) []*graph.Edge
}

// neighbor is one hop out of a node: either across a live edge, or across a
// synthetic hierarchy pseudo-edge.
type neighbor struct {
	toNode string
	weight float64
	edge   *graph.Edge // nil for a hierarchy pseudo-edge
}

// Adjacency is a prebuilt, reusable weighted adjacency list over a graph
// snapshot. Build once per turn and reuse across multiple Route and Hops
// calls (spec §4.6: "a prebuilt adjacency can be reused across multiple
// queries").
type Adjacency struct {
	store     nodeLookup
	neighbors map[string][]neighbor
}

// Build constructs the full adjacency list: one entry per live edge (status
// weighted per statusWeight) plus the two classes of hierarchy pseudo-edge
// from spec §4.6.
func Build(store nodeLookup) *Adjacency {
	a := &Adjacency{store: store, neighbors: make(map[string][]neighbor)}
	a.addEdgeAdjacency()
	a.addHierarchyPseudoEdges()
	return a
}

func (a *Adjacency) link(from, to string, weight float64, edge *graph.Edge) {
	a.neighbors[from] = append(a.neighbors[from], neighbor{toNode: to, weight: weight, edge: edge})
}

func statusWeight(status graph.EdgeStatus) float64 {
	switch status {
	case graph.EdgeOpen, graph.EdgeAccessible, graph.EdgeActive, graph.EdgeOneWay:
		return weightTraversable
	case graph.EdgeRumoredSt:
		return weightRumored
	default:
		return weightBlocked
	}
}

func (a *Adjacency) addEdgeAdjacency() {
	seen := make(map[string]bool)
	for _, n := range a.store.Nodes() {
		for _, e := range a.store.EdgesOf(n.ID) {
			if seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			w := statusWeight(e.Status)
			if math.IsInf(w, 1) {
				continue
			}
			a.link(e.SourceNodeID, e.TargetNodeID, w, e)
			if e.Status != graph.EdgeOneWay {
				a.link(e.TargetNodeID, e.SourceNodeID, w, e)
			}
		}
	}
}

// addHierarchyPseudoEdges wires spec §4.6's two pseudo-edge rules:
// (a) a node and its parent, when the parent has at least one other
// traversable child besides the path's start — approximated here per-node
// at build time as "the parent has at least one other child"; and
// (b) any feature sibling and any non-feature sibling under the same
// parent.
func (a *Adjacency) addHierarchyPseudoEdges() {
	childrenOf := make(map[string][]*graph.Node)
	for _, n := range a.store.Nodes() {
		parent := n.ParentNodeID
		if parent == "" {
			parent = graph.RootSentinel
		}
		childrenOf[parent] = append(childrenOf[parent], n)
	}

	for _, n := range a.store.Nodes() {
		parent := n.ParentNodeID
		if parent == "" || parent == graph.RootSentinel {
			continue
		}
		siblings := childrenOf[parent]
		if len(siblings) > 1 {
			a.link(n.ID, parent, weightHierarchy, nil)
			a.link(parent, n.ID, weightHierarchy, nil)
		}
	}

	for parent, siblings := range childrenOf {
		if parent == graph.RootSentinel {
			continue
		}
		for _, s1 := range siblings {
			if s1.Type != graph.NodeFeature {
				continue
			}
			for _, s2 := range siblings {
				if s2.Type == graph.NodeFeature || s2.ID == s1.ID {
					continue
				}
				a.link(s1.ID, s2.ID, weightHierarchy, nil)
				a.link(s2.ID, s1.ID, weightHierarchy, nil)
			}
		}
	}
}

// Step is one hop of a resolved route: alternating node and edge entries
// per spec §4.6 ("returns a sequence alternating node and edge steps").
type Step struct {
	NodeID string
	Edge   *graph.Edge // nil on the first step and on hierarchy pseudo-hops
}

// pqItem and priorityQueue implement a min-heap over (nodeID, distance) for
// Dijkstra's algorithm.
type pqItem struct {
	nodeID string
	dist   float64
	index  int
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].dist < pq[j].dist }
func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index, pq[j].index = i, j
}
func (pq *priorityQueue) Push(x interface{}) {
	item := x.(*pqItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return item
}

// Route runs Dijkstra from `from` to `to` over the prebuilt adjacency and
// returns the alternating node/edge step sequence, or ok=false if
// unreachable.
func (a *Adjacency) Route(from, to string) ([]Step, bool) {
	if from == to {
		return []Step{{NodeID: from}}, true
	}

	dist := map[string]float64{from: 0}
	prevNode := map[string]string{}
	prevEdge := map[string]*graph.Edge{}
	visited := map[string]bool{}

	pq := &priorityQueue{{nodeID: from, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*pqItem)
		if visited[cur.nodeID] {
			continue
		}
		visited[cur.nodeID] = true
		if cur.nodeID == to {
			break
		}

		for _, nb := range a.neighbors[cur.nodeID] {
			if visited[nb.toNode] {
				continue
			}
			next := cur.dist + nb.weight
			if existing, ok := dist[nb.toNode]; !ok || next < existing {
				dist[nb.toNode] = next
				prevNode[nb.toNode] = cur.nodeID
				prevEdge[nb.toNode] = nb.edge
				heap.Push(pq, &pqItem{nodeID: nb.toNode, dist: next})
			}
		}
	}

	if _, ok := dist[to]; !ok {
		return nil, false
	}

	var steps []Step
	for at := to; ; {
		steps = append([]Step{{NodeID: at, Edge: prevEdge[at]}}, steps...)
		p, ok := prevNode[at]
		if !ok {
			break
		}
		at = p
	}
	return steps, true
}

// Hops implements graph.HopDistancer: an unweighted BFS hop count, used by
// the graph store to break identifier-resolution ties by proximity rather
// than by Dijkstra's traversal-cost weighting (spec §4.3's "fewest hops").
func (a *Adjacency) Hops(from, to string) (int, bool) {
	if from == to {
		return 0, true
	}
	visited := map[string]bool{from: true}
	queue := []string{from}
	depth := map[string]int{from: 0}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, nb := range a.neighbors[cur] {
			if visited[nb.toNode] {
				continue
			}
			visited[nb.toNode] = true
			depth[nb.toNode] = depth[cur] + 1
			if nb.toNode == to {
				return depth[nb.toNode], true
			}
			queue = append(queue, nb.toNode)
		}
	}
	return 0, false
}

var _ graph.HopDistancer = (*Adjacency)(nil)
