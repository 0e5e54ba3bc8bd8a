package applier

import (
	"fmt"

	"github.com/hollowmap/cartographer/mapupdate"
)

// phase1Annihilation drops add/remove pairs targeting the same name within
// one payload (the storyteller "redrawing" a node) and drops any add that
// collides with a live inventory item or NPC name (spec §4.5 P1).
func (a *apply) phase1Annihilation(adds []mapupdate.NodeAdd, removes []mapupdate.NodeRemove) ([]mapupdate.NodeAdd, []mapupdate.NodeRemove) {
	removedNames := make(map[string]bool, len(removes))
	for _, r := range removes {
		removedNames[normalizeName(r.Identifier)] = true
	}

	var keptAdds []mapupdate.NodeAdd
	annihilated := make(map[string]bool)
	for _, add := range adds {
		if removedNames[normalizeName(add.PlaceName)] {
			a.trace.Warn(fmt.Sprintf("annihilated add/remove pair for %q", add.PlaceName))
			annihilated[normalizeName(add.PlaceName)] = true
			continue
		}
		if a.collidesWithCollaborator(add.PlaceName) {
			a.trace.Warn(fmt.Sprintf("dropped add %q: collides with an inventory item or NPC name", add.PlaceName))
			continue
		}
		keptAdds = append(keptAdds, add)
	}

	var keptRemoves []mapupdate.NodeRemove
	for _, r := range removes {
		if annihilated[normalizeName(r.Identifier)] {
			continue
		}
		keptRemoves = append(keptRemoves, r)
	}

	return keptAdds, keptRemoves
}

func (a *apply) collidesWithCollaborator(name string) bool {
	for _, item := range a.inventory {
		if item.Type == "vehicle" {
			continue
		}
		if namesCollide(name, item.Name) {
			return true
		}
	}
	for _, npc := range a.npcs {
		if namesCollide(name, npc.Name) {
			return true
		}
		for _, alias := range npc.Aliases {
			if namesCollide(name, alias) {
				return true
			}
		}
	}
	return false
}

// phase2DedupeEdgeAdds collapses duplicate edge-add entries by
// (min(endpointName), max(endpointName), type) (spec §4.5 P2).
func (a *apply) phase2DedupeEdgeAdds(adds []mapupdate.EdgeAdd) []mapupdate.EdgeAdd {
	seen := make(map[string]bool, len(adds))
	var out []mapupdate.EdgeAdd
	for _, e := range adds {
		key := pairNameKey(e.SourceIdentifier, e.TargetIdentifier, e.Type)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}

func pairNameKey(a, b, edgeType string) string {
	na, nb := normalizeName(a), normalizeName(b)
	if na > nb {
		na, nb = nb, na
	}
	return na + "|" + nb + "|" + edgeType
}

// phase3RenameReconciliation drops any remove op targeting either side of
// a rename (X -> Y): a rename is not a destruction (spec §4.5 P3).
func (a *apply) phase3RenameReconciliation(updates []mapupdate.NodeUpdate, removes []mapupdate.NodeRemove) []mapupdate.NodeRemove {
	protected := make(map[string]bool)
	for _, u := range updates {
		if u.NewPlaceName == "" {
			continue
		}
		protected[normalizeName(u.Identifier)] = true
		protected[normalizeName(u.NewPlaceName)] = true
	}

	var out []mapupdate.NodeRemove
	for _, r := range removes {
		if protected[normalizeName(r.Identifier)] {
			a.trace.Warn(fmt.Sprintf("dropped remove of %q: target of a rename this turn", r.Identifier))
			continue
		}
		out = append(out, r)
	}
	return out
}
