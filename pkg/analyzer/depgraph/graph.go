package depgraph

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
)

// Graph is a directed include graph. An edge from A to B means A
// includes B.
type Graph struct {
	nodes map[string]*FileNode
	edges []Edge
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[string]*FileNode)}
}

// Build creates a graph from edges. System edges are dropped unless
// showSystem is set.
func Build(edges []Edge, showSystem bool) *Graph {
	g := NewGraph()
	for _, e := range edges {
		if e.IsSystem && !showSystem {
			continue
		}
		g.AddEdge(e)
	}
	return g
}

// AddNode ensures a node named name exists and returns it.
func (g *Graph) AddNode(name string, system bool) *FileNode {
	if n, ok := g.nodes[name]; ok {
		return n
	}
	n := &FileNode{
		File:       name,
		Includes:   []string{},
		IncludedBy: []string{},
		IsSystem:   system,
	}
	g.nodes[name] = n
	return n
}

// AddEdge inserts e, creating both endpoints as needed.
func (g *Graph) AddEdge(e Edge) {
	from := g.AddNode(e.From, false)
	to := g.AddNode(e.To, e.IsSystem)
	from.Includes = append(from.Includes, e.To)
	to.IncludedBy = append(to.IncludedBy, e.From)
	g.edges = append(g.edges, e)
}

// Node returns the node named name.
func (g *Graph) Node(name string) (*FileNode, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Edges returns the edges in insertion order.
func (g *Graph) Edges() []Edge { return g.edges }

// Names returns the node names in sorted order.
func (g *Graph) Names() []string {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type tarjan struct {
	g       *Graph
	index   int
	indices map[string]int
	lowlink map[string]int
	onStack map[string]bool
	stack   []string
	sccs    [][]string
}

// StronglyConnected returns every strongly connected component using
// Tarjan's algorithm. Roots are visited in sorted name order and
// successors in include order, so the result is deterministic.
func (g *Graph) StronglyConnected() [][]string {
	t := &tarjan{
		g:       g,
		indices: make(map[string]int, len(g.nodes)),
		lowlink: make(map[string]int, len(g.nodes)),
		onStack: make(map[string]bool, len(g.nodes)),
	}
	for _, name := range g.Names() {
		if _, seen := t.indices[name]; !seen {
			t.strongConnect(name)
		}
	}
	return t.sccs
}

func (t *tarjan) strongConnect(v string) {
	t.indices[v] = t.index
	t.lowlink[v] = t.index
	t.index++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	if n, ok := t.g.nodes[v]; ok {
		for _, w := range n.Includes {
			if _, seen := t.indices[w]; !seen {
				t.strongConnect(w)
				t.lowlink[v] = min(t.lowlink[v], t.lowlink[w])
			} else if t.onStack[w] {
				t.lowlink[v] = min(t.lowlink[v], t.indices[w])
			}
		}
	}

	if t.lowlink[v] != t.indices[v] {
		return
	}
	var scc []string
	for {
		w := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[w] = false
		scc = append(scc, w)
		if w == v {
			break
		}
	}
	t.sccs = append(t.sccs, scc)
}

// Cycles returns the strongly connected components with more than one
// member. A file that includes itself is not reported.
func (g *Graph) Cycles() [][]string {
	cycles := [][]string{}
	for _, scc := range g.StronglyConnected() {
		if len(scc) > 1 {
			cycles = append(cycles, scc)
		}
	}
	return cycles
}

// Layers assigns every node reachable in topological order a layer: 0
// for nodes nothing includes, otherwise one more than the deepest node
// including it. Nodes on or below a cycle never become ready and are
// absent from the result.
func (g *Graph) Layers() map[int][]string {
	layers := make(map[int][]string)
	inDegree := make(map[string]int, len(g.nodes))
	layer := make(map[string]int, len(g.nodes))

	var queue []string
	for _, name := range g.Names() {
		inDegree[name] = len(g.nodes[name].IncludedBy)
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		l := layer[cur]
		layers[l] = append(layers[l], cur)

		for _, dep := range g.nodes[cur].Includes {
			if l+1 > layer[dep] {
				layer[dep] = l + 1
			}
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}
	return layers
}

// FilterByDepth keeps the nodes within maxDepth include steps of any root
// present in the graph; -1 keeps everything reachable. Adjacency and
// edges are trimmed to the kept nodes.
func (g *Graph) FilterByDepth(roots []string, maxDepth int) *Graph {
	names := g.Names()
	ids := make(map[string]uint32, len(names))
	for i, name := range names {
		ids[name] = uint32(i)
	}

	type item struct {
		name  string
		depth int
	}
	visited := roaring.New()
	var queue []item
	for _, root := range roots {
		id, ok := ids[root]
		if !ok || visited.Contains(id) {
			continue
		}
		visited.Add(id)
		queue = append(queue, item{root, 0})
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if maxDepth >= 0 && cur.depth >= maxDepth {
			continue
		}
		for _, dep := range g.nodes[cur.name].Includes {
			id := ids[dep]
			if visited.Contains(id) {
				continue
			}
			visited.Add(id)
			queue = append(queue, item{dep, cur.depth + 1})
		}
	}

	keep := func(name string) bool {
		id, ok := ids[name]
		return ok && visited.Contains(id)
	}
	out := NewGraph()
	it := visited.Iterator()
	for it.HasNext() {
		src := g.nodes[names[it.Next()]]
		out.AddNode(src.File, src.IsSystem)
	}
	for _, e := range g.edges {
		if keep(e.From) && keep(e.To) {
			out.AddEdge(e)
		}
	}
	return out
}

// PageRank scores every node by include centrality. Self includes are
// ignored.
func (g *Graph) PageRank() map[string]float64 {
	names := g.Names()
	ids := make(map[string]int64, len(names))
	dg := simple.NewDirectedGraph()
	for i, name := range names {
		ids[name] = int64(i)
		dg.AddNode(simple.Node(int64(i)))
	}
	for _, e := range g.edges {
		from, to := ids[e.From], ids[e.To]
		if from == to {
			continue
		}
		dg.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
	}

	ranks := network.PageRank(dg, 0.85, 1e-6)
	out := make(map[string]float64, len(ranks))
	for id, r := range ranks {
		out[names[id]] = r
	}
	return out
}
