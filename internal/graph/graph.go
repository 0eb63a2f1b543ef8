package graph

import (
	"strings"
	"unicode"
)

// Graph holds states and the transitions between them.
type Graph struct {
	Nodes      map[string]*Node
	Edges      []Edge
	Unresolved []UnresolvedEdge

	order []string

	// Index for faster lookup: name variant -> node ID.
	// Used to resolve aliased transition targets to actual IDs.
	nameIndex map[string]string

	outgoing map[string][]int
	incoming map[string][]int
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes:     make(map[string]*Node),
		nameIndex: make(map[string]string),
		outgoing:  make(map[string][]int),
		incoming:  make(map[string][]int),
	}
}

// AddNode adds a state and indexes its names. A second node with the same
// ID is ignored and false is returned.
func (g *Graph) AddNode(n *Node) bool {
	if n == nil || n.ID == "" {
		return false
	}
	if _, exists := g.Nodes[n.ID]; exists {
		return false
	}
	g.Nodes[n.ID] = n
	g.order = append(g.order, n.ID)

	for _, name := range nameVariants(n) {
		if _, taken := g.nameIndex[name]; !taken {
			g.nameIndex[name] = n.ID
		}
	}
	return true
}

// States returns nodes in insertion order.
func (g *Graph) States() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.Nodes[id])
	}
	return out
}

// StateIDs returns node ids in insertion order.
func (g *Graph) StateIDs() []string {
	return append([]string(nil), g.order...)
}

// Has reports whether id names a node exactly.
func (g *Graph) Has(id string) bool {
	_, ok := g.Nodes[id]
	return ok
}

// Resolve maps a declared target name to a node id. Names are tried as
// declared, then with a leading '#' removed, then against class names and
// case or separator variants.
func (g *Graph) Resolve(raw string) (string, bool) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", false
	}

	// 1. Try exact id
	if _, ok := g.Nodes[name]; ok {
		return name, true
	}

	// 2. Try normalized id
	clean := strings.TrimPrefix(name, "#")
	if _, ok := g.Nodes[clean]; ok {
		return clean, true
	}

	// 3. Try indexed aliases
	for _, key := range []string{clean, normalizeName(clean)} {
		if id, ok := g.nameIndex[key]; ok {
			return id, true
		}
	}
	return "", false
}

// Link resolves every edge target, recording dangling ones in Unresolved.
func (g *Graph) Link() {
	g.Unresolved = nil
	g.incoming = make(map[string][]int)
	for i := range g.Edges {
		e := &g.Edges[i]
		e.To = ""
		if strings.TrimSpace(e.Target) == "" {
			g.Unresolved = append(g.Unresolved, UnresolvedEdge{Edge: *e, Reason: ReasonEmptyTarget})
			continue
		}
		id, ok := g.Resolve(e.Target)
		if !ok {
			g.Unresolved = append(g.Unresolved, UnresolvedEdge{Edge: *e, Reason: ReasonNoCandidate})
			continue
		}
		e.To = id
		g.incoming[id] = append(g.incoming[id], i)
	}
}

// AddEdge appends a transition. Call Link after the last edge is added.
func (g *Graph) AddEdge(e Edge) {
	g.outgoing[e.From] = append(g.outgoing[e.From], len(g.Edges))
	g.Edges = append(g.Edges, e)
}

// Outgoing returns the edges declared by id.
func (g *Graph) Outgoing(id string) []Edge {
	return g.collect(g.outgoing[id])
}

// Incoming returns the linked edges that resolve to id.
func (g *Graph) Incoming(id string) []Edge {
	return g.collect(g.incoming[id])
}

func (g *Graph) collect(idx []int) []Edge {
	out := make([]Edge, 0, len(idx))
	for _, i := range idx {
		out = append(out, g.Edges[i])
	}
	return out
}

func nameVariants(n *Node) []string {
	names := []string{n.ID, normalizeName(n.ID)}
	if n.ClassName != "" {
		names = append(names, n.ClassName, normalizeName(n.ClassName))
		if base := strings.TrimSuffix(n.ClassName, "Implications"); base != "" && base != n.ClassName {
			names = append(names, base, normalizeName(base))
		}
	}
	return names
}

// normalizeName lowercases a name and converts camel case, spaces and
// dashes to snake case.
func normalizeName(s string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range s {
		switch {
		case r == '-' || r == ' ' || r == '_' || r == '.':
			if b.Len() > 0 {
				b.WriteByte('_')
			}
			prevLower = false
		case unicode.IsUpper(r):
			if prevLower {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prevLower = false
		default:
			b.WriteRune(r)
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		}
	}
	return strings.Trim(b.String(), "_")
}
