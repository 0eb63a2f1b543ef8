package graph

// StateDegree is the edge count of one state.
type StateDegree struct {
	State    string `json:"state"`
	Incoming int    `json:"incoming"`
	Outgoing int    `json:"outgoing"`
}

// Summary describes the shape of a linked graph.
type Summary struct {
	States     int                      `json:"states"`
	Edges      int                      `json:"edges"`
	Unresolved map[UnresolvedReason]int `json:"unresolved"`
	Degrees    []StateDegree            `json:"degrees"`
}

// UnresolvedReasonCounts tallies dangling transitions by why they failed
// to link.
func (g *Graph) UnresolvedReasonCounts() map[UnresolvedReason]int {
	counts := make(map[UnresolvedReason]int)
	if g == nil {
		return counts
	}
	for _, u := range g.Unresolved {
		counts[u.Reason]++
	}
	return counts
}

// Degree returns the resolved incoming and declared outgoing transition
// counts of state id.
func (g *Graph) Degree(id string) (in, out int) {
	if g == nil {
		return 0, 0
	}
	return len(g.incoming[id]), len(g.outgoing[id])
}

// Summarize reports edge totals and per-state degrees in state order.
func (g *Graph) Summarize() Summary {
	s := Summary{
		Unresolved: g.UnresolvedReasonCounts(),
		Degrees:    []StateDegree{},
	}
	if g == nil {
		return s
	}
	s.States, s.Edges = len(g.order), len(g.Edges)
	for _, id := range g.order {
		in, out := g.Degree(id)
		s.Degrees = append(s.Degrees, StateDegree{State: id, Incoming: in, Outgoing: out})
	}
	return s
}
