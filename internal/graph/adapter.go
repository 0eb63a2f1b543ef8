package graph

import (
	"implindex/internal/crawler"
	"implindex/internal/extractor"
)

// FromEntry converts a discovery entry into a graph Node. Entries without
// a record or status yield nil.
func FromEntry(e crawler.Entry) *Node {
	if e.Record == nil || e.Record.Meta.Status == "" {
		return nil
	}
	className := e.Record.ClassName
	if className == "" {
		className = e.Metadata.ClassName
	}
	return &Node{
		ID:        e.Record.Meta.Status,
		ClassName: className,
		Filepath:  e.Path,
		Record:    e.Record,
	}
}

// FromManifest builds and links the state graph of a discovery result.
// Transitions recorded directly in the manifest are added when the same
// (from, event) pair was not already declared by a file.
func FromManifest(m *crawler.Manifest) *Graph {
	g := NewGraph()
	if m == nil {
		return g
	}

	seen := make(map[string]bool)
	for _, e := range m.Files {
		n := FromEntry(e)
		if !g.AddNode(n) {
			continue
		}
		for _, t := range n.Record.Transitions {
			g.AddEdge(edgeFrom(n.ID, t))
			seen[n.ID+"."+t.Event] = true
		}
	}
	for _, t := range m.Transitions {
		key := t.From + "." + t.Event
		if seen[key] || !g.Has(t.From) {
			continue
		}
		seen[key] = true
		g.AddEdge(Edge{From: t.From, Event: t.Event, Target: extractor.NormalizeTarget(t.To), Platforms: t.Platforms})
	}

	g.Link()
	return g
}

func edgeFrom(from string, t extractor.Transition) Edge {
	return Edge{From: from, Event: t.Event, Target: t.Target, Platforms: t.Platforms}
}
