package applier

import "fmt"

// phase10ChainRefinement hands every queued connector-chain request to C6
// until it drains or gives up (spec §4.5 P10). With no Chain collaborator
// wired, every pending request is dropped with a warning instead of
// silently vanishing.
func (a *apply) phase10ChainRefinement(narrativeContext string) {
	if len(a.chainQueue) == 0 {
		return
	}
	if a.chain == nil {
		for _, req := range a.chainQueue {
			a.trace.Warn(fmt.Sprintf("dropped connector-chain request %s -> %s: no chain refiner configured", req.SourceID, req.TargetID))
		}
		a.chainQueue = nil
		return
	}

	result := a.chain.Refine(a.ctx, a.chainQueue, narrativeContext, a.trace)
	a.addedNodes = append(a.addedNodes, result.AddedNodes...)
	a.addedEdges = append(a.addedEdges, result.AddedEdges...)
	a.chainQueue = nil
}
