package applier

import (
	"fmt"
	"strings"

	"github.com/hollowmap/cartographer/mapupdate"
)

// phase6RemoveNodes deletes each resolved target unless it currently holds
// a non-junk inventory item, in which case the removal is a soft refusal
// (spec §4.5 P6).
func (a *apply) phase6RemoveNodes(removes []mapupdate.NodeRemove) {
	for _, r := range removes {
		n, ok := a.store.FindByIdentifier(r.Identifier, a.currentNodeID)
		if !ok {
			continue
		}
		if holder := a.nonJunkHolder(n.ID); holder != "" {
			a.trace.Warn(fmt.Sprintf("refused to remove %q: holds non-junk item %q", n.PlaceName, holder))
			continue
		}
		a.store.RemoveNode(n.ID)
	}
}

func (a *apply) nonJunkHolder(nodeID string) string {
	for _, item := range a.inventory {
		if item.HolderID == nodeID && !hasTag(item.Tags, "junk") {
			return item.Name
		}
	}
	return ""
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}
