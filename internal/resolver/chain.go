package resolver

import "implindex/internal/index"

// InitialMarker is the pseudo-state that precedes every entry point.
const InitialMarker = "initial"

// ChainFor resolves a prerequisite path ending in target by walking
// transitions backwards. At each step the first incoming transition in
// insertion order is followed; other predecessors are ignored. The walk
// stops at a state with no incoming transition, at InitialMarker, at a
// state flagged initial, or when it would revisit a state.
//
// Results are memoized on the snapshot, so repeated calls are cheap and
// always agree. Unknown states yield a ChainNotFound result.
func ChainFor(idx *index.Index, target string) index.Chain {
	if idx == nil {
		return index.Chain{Target: target, Status: index.ChainNotFound}
	}
	if c, ok := idx.CachedChain(target); ok {
		return c
	}
	if _, ok := idx.ByState[target]; !ok {
		return index.Chain{Target: target, Status: index.ChainNotFound}
	}

	c := index.Chain{
		Target: target,
		Status: index.ChainFound,
		Steps:  walk(idx, target, make(map[string]bool)),
	}
	idx.StoreChain(target, c)
	return c
}

func walk(idx *index.Index, state string, visited map[string]bool) []string {
	visited[state] = true
	if s, ok := idx.ByState[state]; ok && s.Initial {
		return []string{state}
	}

	incoming := idx.Incoming(state)
	if len(incoming) == 0 {
		return []string{state}
	}
	pred := incoming[0].From
	if pred == InitialMarker || visited[pred] {
		return []string{state}
	}
	return append(walk(idx, pred, visited), state)
}
