package graph

import "implindex/internal/extractor"

// UnresolvedReason explains why a transition target has no node.
type UnresolvedReason string

const (
	ReasonNoCandidate UnresolvedReason = "no_candidate"
	ReasonEmptyTarget UnresolvedReason = "empty_target"
)

// Node is one state definition taken from discovery.
type Node struct {
	ID        string            `json:"id"`
	ClassName string            `json:"className,omitempty"`
	Filepath  string            `json:"filepath"`
	Record    *extractor.Record `json:"record,omitempty"`
}

// Terminal reports whether the state is explicitly flagged final.
func (n *Node) Terminal() bool {
	return n.Record != nil && n.Record.Meta.Terminal
}

// Initial reports whether the state is explicitly flagged as an entry point.
func (n *Node) Initial() bool {
	return n.Record != nil && n.Record.Meta.Initial
}

// Edge is a declared transition. Target is the raw declared name; To is
// the resolved node id, empty when the target is unknown.
type Edge struct {
	From      string   `json:"from"`
	Event     string   `json:"event"`
	Target    string   `json:"target"`
	To        string   `json:"to,omitempty"`
	Platforms []string `json:"platforms,omitempty"`
}

// UnresolvedEdge is an edge whose target matched no node.
type UnresolvedEdge struct {
	Edge
	Reason UnresolvedReason `json:"reason"`
}
