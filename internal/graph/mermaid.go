package graph

import (
	"fmt"
	"regexp"
	"strings"
)

var mermaidUnsafe = regexp.MustCompile(`[^a-z0-9_]`)

// Mermaid renders the state graph as a mermaid flowchart. Unresolved
// targets are drawn as dashed nodes so broken transitions stay visible.
func (g *Graph) Mermaid() string {
	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("graph TD\n")

	for _, n := range g.States() {
		shape := "[%q]"
		if n.Terminal() {
			shape = "([%q])"
		}
		sb.WriteString(fmt.Sprintf("    %s"+shape+"\n", sanitizeMermaidID(n.ID), n.ID))
	}

	dangling := make(map[string]bool)
	for _, e := range g.Edges {
		if strings.TrimSpace(e.Target) == "" {
			continue
		}
		to, arrow := e.To, "-->"
		if to == "" {
			to, arrow = "missing_"+e.Target, "-.->"
			if !dangling[to] {
				dangling[to] = true
				sb.WriteString(fmt.Sprintf("    %s{{%q}}\n", sanitizeMermaidID(to), e.Target+"?"))
			}
		}
		sb.WriteString(fmt.Sprintf("    %s %s|%s| %s\n", sanitizeMermaidID(e.From), arrow, e.Event, sanitizeMermaidID(to)))
	}

	sb.WriteString("```\n")
	return sb.String()
}

// MermaidChain renders an ordered path of states as a left-to-right chart.
func MermaidChain(steps []string) string {
	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("graph LR\n")
	for i, s := range steps {
		id := sanitizeMermaidID(s)
		sb.WriteString(fmt.Sprintf("    %s[%q]\n", id, s))
		if i > 0 {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", sanitizeMermaidID(steps[i-1]), id))
		}
	}
	sb.WriteString("```\n")
	return sb.String()
}

func sanitizeMermaidID(v string) string {
	v = strings.TrimSpace(strings.ToLower(v))
	if v == "" {
		return "node"
	}
	v = mermaidUnsafe.ReplaceAllString(strings.ReplaceAll(v, "-", "_"), "_")
	if v[0] >= '0' && v[0] <= '9' {
		v = "n_" + v
	}
	return v
}
