package applier

import (
	"strings"

	"github.com/hollowmap/cartographer/graph"
	"github.com/hollowmap/cartographer/mapupdate"
)

// phase11Cleanup is the final safety-net pass (spec §4.5 P11): re-prune,
// sweep any item/NPC name collision that slipped P1, filter the inventory
// for companion-ownership conflicts, and clear a suggested destination
// that the player's current position already contains.
func (a *apply) phase11Cleanup(currentNodeID string, update *mapupdate.MapUpdate) {
	a.store.PruneDeadEdges()

	a.sweepCollaboratorCollisions()
	a.inventory = a.filterCompanionOwnedItems()

	if currentNodeID != "" && update.SuggestedCurrentMapNodeID != "" {
		if a.isDescendantOrEqual(currentNodeID, update.SuggestedCurrentMapNodeID) {
			update.SuggestedCurrentMapNodeID = ""
		}
	}
}

// sweepCollaboratorCollisions deletes any live node whose name exactly
// matches an inventory item or NPC name — a safety net for payloads that
// slipped past P1's check (spec §4.5 P11(i)).
func (a *apply) sweepCollaboratorCollisions() {
	for _, n := range a.store.Nodes() {
		collides := false
		for _, item := range a.inventory {
			if strings.EqualFold(n.PlaceName, item.Name) {
				collides = true
				break
			}
		}
		if !collides {
			for _, npc := range a.npcs {
				if strings.EqualFold(n.PlaceName, npc.Name) {
					collides = true
					break
				}
			}
		}
		if collides {
			a.store.RemoveNode(n.ID)
		}
	}
}

// filterCompanionOwnedItems drops any inventory item whose name matches a
// companion NPC's name (spec §4.5 P11(ii)'s "ownership-conflict resolution
// dictated by upstream semantics"). The caller's inventory snapshot is
// never mutated in place; a new slice is returned via Result.Inventory.
func (a *apply) filterCompanionOwnedItems() []Item {
	out := make([]Item, 0, len(a.inventory))
	for _, item := range a.inventory {
		owned := false
		for _, npc := range a.npcs {
			if strings.EqualFold(item.Name, npc.Name) {
				owned = true
				break
			}
		}
		if !owned {
			out = append(out, item)
		}
	}
	return out
}

// isDescendantOrEqual reports whether nodeID is destinationID or a
// descendant of it, walking parentNodeId links up to the root sentinel.
func (a *apply) isDescendantOrEqual(nodeID, destinationID string) bool {
	cur := nodeID
	visited := map[string]bool{}
	for cur != "" && cur != graph.RootSentinel {
		if cur == destinationID {
			return true
		}
		if visited[cur] {
			return false
		}
		visited[cur] = true
		n, ok := a.store.Node(cur)
		if !ok {
			return false
		}
		cur = n.ParentNodeID
		if cur == "" {
			cur = graph.RootSentinel
		}
	}
	return cur == destinationID
}
