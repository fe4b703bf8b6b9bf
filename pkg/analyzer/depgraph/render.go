package depgraph

import (
	"fmt"
	"path"
	"strings"
)

// cycleOf maps every node on a cycle to the index of its cycle.
func (r *Analysis) cycleOf() map[string]int {
	m := make(map[string]int)
	for i, c := range r.Cycles {
		for _, name := range c {
			m[name] = i
		}
	}
	return m
}

func (r *Analysis) isCycleEdge(cycleOf map[string]int, e Edge) bool {
	from, ok := cycleOf[e.From]
	if !ok {
		return false
	}
	to, ok := cycleOf[e.To]
	return ok && from == to
}

// nodeIDs assigns N0, N1, ... to nodes in sorted name order.
func (r *Analysis) nodeIDs() ([]string, map[string]string) {
	names := r.Graph.Names()
	ids := make(map[string]string, len(names))
	for i, name := range names {
		ids[name] = fmt.Sprintf("N%d", i)
	}
	return names, ids
}

// Mermaid renders the graph as a Mermaid flowchart. Edges inside a cycle
// are dashed and labelled, and cycle nodes are highlighted.
func (r *Analysis) Mermaid() string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	names, ids := r.nodeIDs()
	for _, name := range names {
		label := strings.ReplaceAll(path.Base(name), `"`, "#quot;")
		fmt.Fprintf(&sb, "    %s[\"%s\"]\n", ids[name], label)
	}

	cycleOf := r.cycleOf()
	for _, e := range r.Graph.Edges() {
		from, to := ids[e.From], ids[e.To]
		if from == "" || to == "" {
			continue
		}
		if r.isCycleEdge(cycleOf, e) {
			fmt.Fprintf(&sb, "    %s -.->|cycle| %s\n", from, to)
		} else {
			fmt.Fprintf(&sb, "    %s --> %s\n", from, to)
		}
	}

	if len(r.Cycles) > 0 {
		sb.WriteString("\n    classDef cycleNode fill:#f96\n")
		for _, c := range r.Cycles {
			for _, name := range c {
				if id, ok := ids[name]; ok {
					fmt.Fprintf(&sb, "    class %s cycleNode\n", id)
				}
			}
		}
	}
	return sb.String()
}

// DOT renders the graph in Graphviz format with cycle edges in red.
func (r *Analysis) DOT() string {
	var sb strings.Builder
	sb.WriteString("digraph dependencies {\n")
	sb.WriteString("    rankdir=LR;\n")
	sb.WriteString("    node [shape=box];\n\n")

	names, ids := r.nodeIDs()
	for _, name := range names {
		label := strings.ReplaceAll(path.Base(name), `"`, `\"`)
		fmt.Fprintf(&sb, "    %s [label=\"%s\"];\n", ids[name], label)
	}
	sb.WriteString("\n")

	cycleOf := r.cycleOf()
	for _, e := range r.Graph.Edges() {
		from, to := ids[e.From], ids[e.To]
		if from == "" || to == "" {
			continue
		}
		fmt.Fprintf(&sb, "    %s -> %s", from, to)
		if r.isCycleEdge(cycleOf, e) {
			sb.WriteString(` [color=red, penwidth=2.0, label="cycle"]`)
		}
		sb.WriteString(";\n")
	}

	sb.WriteString("}\n")
	return sb.String()
}
