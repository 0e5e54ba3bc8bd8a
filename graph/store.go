package graph

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// HopDistancer breaks ties among multiple identifier-resolution candidates
// by path distance from a current node (spec §4.3's "fewest hops" rule).
// The pathfind package's Adjacency implements this; Store is injected with
// one rather than importing pathfind directly, to keep C3 and C9 decoupled
// the way the teacher keeps its core/ package free of its ai/ dependents.
type HopDistancer interface {
	Hops(from, to string) (int, bool)
}

// Store is the mutable in-memory graph plus its four derived indexes,
// grounded on the teacher's core.MemoryStore mutex-guarded-map pattern.
type Store struct {
	mu sync.RWMutex

	nodes        map[string]*Node
	edgesByNode  map[string][]*Edge
	byName       map[string]*Node // normalized placeName -> node
	byAlias      map[string]*Node // normalized alias -> node, first-wins

	Distances HopDistancer
}

// NewStore creates an empty graph.
func NewStore() *Store {
	return &Store{
		nodes:       make(map[string]*Node),
		edgesByNode: make(map[string][]*Edge),
		byName:      make(map[string]*Node),
		byAlias:     make(map[string]*Node),
	}
}

var punctuation = regexp.MustCompile(`[^a-z0-9]+`)

func normalize(s string) string {
	return strings.Trim(punctuation.ReplaceAllString(strings.ToLower(s), ""), "")
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = regexp.MustCompile(`[^a-z0-9]+`).ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// NewNodeID slugs name and appends a 4-hex-char suffix (spec §3's "slugged
// place name with a short random suffix").
func NewNodeID(name string) string {
	suffix := uuid.New().String()
	suffix = strings.ReplaceAll(suffix, "-", "")
	return slug(name) + "-" + suffix[:4]
}

// AddNode inserts node and rebuilds the name/alias index entries for it. It
// does not check for reuse or hierarchy legality — that is the applier's
// responsibility (spec §4.5 P4).
func (s *Store) AddNode(n *Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addNodeLocked(n)
}

func (s *Store) addNodeLocked(n *Node) {
	s.nodes[n.ID] = n
	s.byName[normalize(n.PlaceName)] = n
	for _, a := range n.Aliases {
		key := normalize(a)
		if _, exists := s.byAlias[key]; !exists {
			s.byAlias[key] = n
		}
	}
}

// Node returns the live node by id.
func (s *Store) Node(id string) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	return n, ok
}

// Nodes returns every live node, in no particular order.
func (s *Store) Nodes() []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n)
	}
	return out
}

// RemoveNode deletes n and cascades: every edge touching it is removed and
// all index entries referencing it are purged (spec §4.5 P6).
func (s *Store) RemoveNode(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return
	}
	delete(s.nodes, id)
	if s.byName[normalize(n.PlaceName)] == n {
		delete(s.byName, normalize(n.PlaceName))
	}
	for _, a := range n.Aliases {
		key := normalize(a)
		if s.byAlias[key] == n {
			delete(s.byAlias, key)
		}
	}

	for _, e := range append([]*Edge(nil), s.edgesByNode[id]...) {
		s.removeEdgeLocked(e.ID)
	}
}

// RenameNode changes n's placeName cleanly: the old name is appended to
// aliases and the name index is rebuilt (spec §4.5 P5).
func (s *Store) RenameNode(id, newName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return
	}
	old := n.PlaceName
	if old != "" && normalize(old) != normalize(newName) {
		if !containsFold(n.Aliases, old) {
			n.Aliases = append(n.Aliases, old)
			key := normalize(old)
			if _, exists := s.byAlias[key]; !exists {
				s.byAlias[key] = n
			}
		}
	}
	delete(s.byName, normalize(old))
	n.PlaceName = newName
	s.byName[normalize(newName)] = n
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if normalize(s) == normalize(v) {
			return true
		}
	}
	return false
}

// UnionAliases adds any of newAliases not already present (case-insensitive)
// to n's alias list and reindexes them.
func (s *Store) UnionAliases(id string, newAliases []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return
	}
	for _, a := range newAliases {
		if a == "" || containsFold(n.Aliases, a) {
			continue
		}
		n.Aliases = append(n.Aliases, a)
		key := normalize(a)
		if _, exists := s.byAlias[key]; !exists {
			s.byAlias[key] = n
		}
	}
}

// ReplaceAliases overwrites n's alias list wholesale and rebuilds the alias
// index entries for it, removing any stale entry the old list held (spec
// §4.5 P5's "aliases (replace)" field-wise update, distinct from
// UnionAliases's additive merge used during node-reuse).
func (s *Store) ReplaceAliases(id string, aliases []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return
	}
	for _, a := range n.Aliases {
		key := normalize(a)
		if s.byAlias[key] == n {
			delete(s.byAlias, key)
		}
	}
	n.Aliases = append([]string(nil), aliases...)
	for _, a := range n.Aliases {
		key := normalize(a)
		if _, exists := s.byAlias[key]; !exists {
			s.byAlias[key] = n
		}
	}
}

// AddEdge inserts e and indexes it under both endpoints.
func (s *Store) AddEdge(e *Edge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addEdgeLocked(e)
}

func (s *Store) addEdgeLocked(e *Edge) {
	s.edgesByNode[e.SourceNodeID] = append(s.edgesByNode[e.SourceNodeID], e)
	s.edgesByNode[e.TargetNodeID] = append(s.edgesByNode[e.TargetNodeID], e)
}

// EdgesOf returns every edge touching nodeID.
func (s *Store) EdgesOf(nodeID string) []*Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Edge, len(s.edgesByNode[nodeID]))
	copy(out, s.edgesByNode[nodeID])
	return out
}

// Edges returns every live edge, deduplicated (each edge appears under two
// node keys internally).
func (s *Store) Edges() []*Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	var out []*Edge
	for _, list := range s.edgesByNode {
		for _, e := range list {
			if seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			out = append(out, e)
		}
	}
	return out
}

// RemoveEdge deletes the edge by id from both endpoint index lists.
func (s *Store) RemoveEdge(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeEdgeLocked(id)
}

func (s *Store) removeEdgeLocked(id string) {
	for node, list := range s.edgesByNode {
		filtered := list[:0]
		for _, e := range list {
			if e.ID != id {
				filtered = append(filtered, e)
			}
		}
		s.edgesByNode[node] = filtered
	}
}

// PruneDeadEdges drops any edge whose endpoints are not both live and
// rebuilds the adjacency index (spec §4.5 P9).
func (s *Store) PruneDeadEdges() {
	s.mu.Lock()
	defer s.mu.Unlock()

	rebuilt := make(map[string][]*Edge)
	seen := make(map[string]bool)
	for _, list := range s.edgesByNode {
		for _, e := range list {
			if seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			_, srcOK := s.nodes[e.SourceNodeID]
			_, tgtOK := s.nodes[e.TargetNodeID]
			if srcOK && tgtOK {
				rebuilt[e.SourceNodeID] = append(rebuilt[e.SourceNodeID], e)
				rebuilt[e.TargetNodeID] = append(rebuilt[e.TargetNodeID], e)
			}
		}
	}
	s.edgesByNode = rebuilt
}

// Clone produces a deep copy of the graph so a caller can roll back a turn
// by discarding it (spec §4.3's structuredClone).
func (s *Store) Clone() *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clone := NewStore()
	for _, n := range s.nodes {
		cp := *n
		cp.Aliases = append([]string(nil), n.Aliases...)
		clone.addNodeLocked(&cp)
	}
	seen := make(map[string]bool)
	for _, list := range s.edgesByNode {
		for _, e := range list {
			if seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			cp := *e
			clone.addEdgeLocked(&cp)
		}
	}
	clone.Distances = s.Distances
	return clone
}

// FindByIdentifier implements spec §4.3's findNodeByIdentifier: exact id,
// exact name, exact alias, the "{base}-{4hex}" suffix pattern when base
// uniquely matches one live node, substring on id, then name/alias derived
// from a dehyphenated base. currentNodeID, if non-empty, breaks ties among
// multiple name/alias matches by fewest hops via Distances.
func (s *Store) FindByIdentifier(identifier, currentNodeID string) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n, ok := s.nodes[identifier]; ok {
		return n, true
	}

	norm := normalize(identifier)
	if n, ok := s.byName[norm]; ok {
		return n, true
	}
	if n, ok := s.byAlias[norm]; ok {
		return n, true
	}

	if base, ok := suffixBase(identifier); ok {
		if matches := s.matchByIDPrefix(base); len(matches) == 1 {
			return matches[0], true
		}
	}

	var substringMatches []*Node
	for id, n := range s.nodes {
		if strings.Contains(id, identifier) {
			substringMatches = append(substringMatches, n)
		}
	}
	if len(substringMatches) == 1 {
		return substringMatches[0], true
	}
	if len(substringMatches) > 1 {
		return s.breakTie(substringMatches, currentNodeID), true
	}

	if base, ok := suffixBase(identifier); ok {
		dehyphenated := strings.ReplaceAll(base, "-", " ")
		normBase := normalize(dehyphenated)
		var candidates []*Node
		if n, ok := s.byName[normBase]; ok {
			candidates = append(candidates, n)
		}
		if n, ok := s.byAlias[normBase]; ok && !containsNode(candidates, n) {
			candidates = append(candidates, n)
		}
		if len(candidates) == 1 {
			return candidates[0], true
		}
		if len(candidates) > 1 {
			return s.breakTie(candidates, currentNodeID), true
		}
	}

	return nil, false
}

func containsNode(list []*Node, n *Node) bool {
	for _, x := range list {
		if x == n {
			return true
		}
	}
	return false
}

var suffixPattern = regexp.MustCompile(`^(.+)-([0-9a-f]{4})$`)

func suffixBase(identifier string) (string, bool) {
	m := suffixPattern.FindStringSubmatch(identifier)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func (s *Store) matchByIDPrefix(base string) []*Node {
	var out []*Node
	for id, n := range s.nodes {
		if strings.HasPrefix(id, base+"-") {
			out = append(out, n)
		}
	}
	return out
}

// breakTie picks, among candidates, the one fewest hops from
// currentNodeID. With no distancer or no current node, it returns the
// first candidate in a stable (id-sorted) order.
func (s *Store) breakTie(candidates []*Node, currentNodeID string) *Node {
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })
	if currentNodeID == "" || s.Distances == nil {
		return candidates[0]
	}

	best := candidates[0]
	bestHops, ok := s.Distances.Hops(currentNodeID, best.ID)
	if !ok {
		bestHops = int(^uint(0) >> 1)
	}
	for _, c := range candidates[1:] {
		hops, ok := s.Distances.Hops(currentNodeID, c.ID)
		if !ok {
			continue
		}
		if hops < bestHops {
			best = c
			bestHops = hops
		}
	}
	return best
}
