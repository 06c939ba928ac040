package domain

import (
	"fmt"
	"strings"
)

// DOT exports the graph as Graphviz DOT text. Nodes appear in build order.
func (g *Graph) DOT() string {
	var b strings.Builder
	b.WriteString("digraph stall {\n")
	b.WriteString("  rankdir=LR;\n")

	aliases := g.aliases()
	for _, label := range g.executionOrder {
		r := g.resources[label]
		fmt.Fprintf(&b, "  %s [label=\"%s\\n(%s)\"];\n", aliases[label], escapeQuotes(label.String()), r.Kind)
	}
	for _, label := range g.executionOrder {
		for _, dep := range g.dependencies[label] {
			fmt.Fprintf(&b, "  %s -> %s;\n", aliases[label], aliases[dep])
		}
	}
	b.WriteString("}\n")
	return b.String()
}

// Mermaid exports the graph as Mermaid flowchart text. Nodes appear in build order.
func (g *Graph) Mermaid() string {
	var b strings.Builder
	b.WriteString("graph TD\n")

	aliases := g.aliases()
	for _, label := range g.executionOrder {
		r := g.resources[label]
		fmt.Fprintf(&b, "    %s[\"%s<br/>(%s)\"]\n", aliases[label], escapeQuotes(label.String()), r.Kind)
	}
	for _, label := range g.executionOrder {
		for _, dep := range g.dependencies[label] {
			fmt.Fprintf(&b, "    %s --> %s\n", aliases[label], aliases[dep])
		}
	}
	return b.String()
}

func (g *Graph) aliases() map[InternedString]string {
	aliases := make(map[InternedString]string, len(g.executionOrder))
	for i, label := range g.executionOrder {
		aliases[label] = fmt.Sprintf("n%d", i)
	}
	return aliases
}

func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, "\"", "\\\"")
}
