package cartography

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hollowmap/cartographer/graph"
)

// systemInstruction enumerates the node/edge/hierarchy vocabularies and the
// imperative rules the model must follow (spec §6's "system instruction
// enumerates node/edge/hierarchy vocabularies and imperative rules").
const systemInstruction = `You are the Cartographer for a text adventure. Given narrative context and
the current map state, emit a single JSON object describing how the map
should change this turn.

Node types (shallowest to deepest): region, location, settlement, district,
exterior, interior, room, feature. A node's parent must be strictly
shallower than the node itself, or the virtual root "Universe".

Node statuses: undiscovered, discovered, rumored, quest_target, blocked.

Edge types (feature-to-feature only): path, road, sea route, door,
teleporter, secret_passage, river_crossing, temporary_bridge, boarding_hook,
shortcut.

Edge statuses: open, accessible, closed, locked, blocked, hidden, rumored,
one_way, collapsed, removed, active, inactive.

Rules:
- Only add nodes/edges the narrative actually introduces; never invent
  scenery the text doesn't support.
- An edge's two endpoints must already be adjacent in the hierarchy (same
  parent, or parent/grandparent of one another); if the narrative implies a
  long-distance connection, emit it anyway — the engine synthesizes the
  intermediate nodes.
- Never propose a node whose name collides with a known inventory item or
  NPC name.
- Prefer updates over add+remove pairs when a node is merely changing.
- Respond with application/json: a single MapUpdate object, no commentary.`

// renderGraphText renders a short text summary of the live graph for the
// prompt's "text rendering of current map nodes/edges" input (spec §6).
func renderGraphText(store *graph.Store) string {
	nodes := store.Nodes()
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	var b strings.Builder
	b.WriteString("Nodes:\n")
	for _, n := range nodes {
		fmt.Fprintf(&b, "- %s [%s] %q (type=%s, status=%s, parent=%s)\n",
			n.ID, n.Type, n.PlaceName, n.Type, n.Status, n.ParentNodeID)
	}

	b.WriteString("Edges:\n")
	seen := make(map[string]bool)
	for _, n := range nodes {
		for _, e := range store.EdgesOf(n.ID) {
			if seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			fmt.Fprintf(&b, "- %s: %s -> %s (type=%s, status=%s)\n",
				e.ID, e.SourceNodeID, e.TargetNodeID, e.Type, e.Status)
		}
	}
	return b.String()
}

// mainPlaceNames lists the place names of every non-feature node — the
// "known main place names" prompt input (spec §6).
func mainPlaceNames(store *graph.Store) []string {
	var names []string
	for _, n := range store.Nodes() {
		if n.Type != graph.NodeFeature {
			names = append(names, n.PlaceName)
		}
	}
	sort.Strings(names)
	return names
}

// PromptInputs bundles the Storyteller-supplied narrative fields that feed
// the built prompt (spec §6's full input list, minus what's derived from the
// graph/collaborators directly).
type PromptInputs struct {
	SceneDescription string
	LogMessage       string
	LocalPlace       string
	MapHint          string
	ThemeName        string
	ThemeGuidance    string
	PreviousNodeID   string
}

// buildPrompt assembles the Storyteller-to-Cartographer prompt (spec §6):
// scene description, log message, localPlace, map hint, current theme,
// previous node id, a text rendering of current map nodes/edges, known main
// place names, current inventory item names, known NPC names.
func buildPrompt(store *graph.Store, in PromptInputs, itemNames, npcNames []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Scene description:\n%s\n\n", in.SceneDescription)
	if in.LogMessage != "" {
		fmt.Fprintf(&b, "Log message:\n%s\n\n", in.LogMessage)
	}
	if in.LocalPlace != "" {
		fmt.Fprintf(&b, "Local place: %s\n\n", in.LocalPlace)
	}
	if in.MapHint != "" {
		fmt.Fprintf(&b, "Map hint:\n%s\n\n", in.MapHint)
	}
	fmt.Fprintf(&b, "Theme: %s\nTheme guidance: %s\n\n", in.ThemeName, in.ThemeGuidance)
	fmt.Fprintf(&b, "Previous node id: %s\n\n", in.PreviousNodeID)

	b.WriteString("Current map:\n")
	b.WriteString(renderGraphText(store))
	b.WriteString("\n")

	fmt.Fprintf(&b, "Known main place names: %s\n\n", strings.Join(mainPlaceNames(store), ", "))
	fmt.Fprintf(&b, "Current inventory item names: %s\n\n", strings.Join(itemNames, ", "))
	fmt.Fprintf(&b, "Known NPC names: %s\n", strings.Join(npcNames, ", "))

	return b.String()
}
