// Package depgraph builds include and import dependency graphs, detects
// cycles and assigns topological layers.
package depgraph

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/panbanda/tsmcp/internal/cache"
	"github.com/panbanda/tsmcp/pkg/analyzer"
	"github.com/panbanda/tsmcp/pkg/parser"
	"github.com/panbanda/tsmcp/pkg/query"
)

const includePattern = `(preproc_include path: (_) @include_path)`

// Analyzer extracts dependency graphs over a shared analysis session.
type Analyzer struct {
	session *analyzer.Analyzer
}

// New creates a dependency graph analyzer backed by session's parse cache.
func New(session *analyzer.Analyzer) *Analyzer {
	return &Analyzer{session: session}
}

// Analysis is a computed graph with its cycles and layers. Every output
// format is rendered from one Analysis.
type Analysis struct {
	Graph          *Graph
	Cycles         [][]string
	Layers         map[int][]string
	FilesProcessed int
	FilesFailed    int
	// Dependencies counts every directive found, including filtered ones.
	Dependencies int

	pageRank map[string]float64
}

// Analyze extracts the include or import edges of every file and computes
// the graph.
func (a *Analyzer) Analyze(ctx context.Context, files []string, opts Options) (*Analysis, error) {
	logger := a.session.Logger()
	base := opts.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		base = wd
	}

	res := &Analysis{}
	var edges []Edge
	roots := make([]string, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		found, err := a.extract(ctx, path, base)
		if err != nil {
			logger.Warn("failed to extract includes", "path", path, "error", err)
			res.FilesFailed++
			continue
		}
		res.FilesProcessed++
		roots = append(roots, normalizePath(path, base))
		edges = append(edges, found...)
	}
	res.Dependencies = len(edges)

	g := Build(edges, opts.ShowSystemIncludes)
	// Files without any directive still appear as nodes.
	for _, root := range roots {
		g.AddNode(root, false)
	}
	if opts.MaxDepth >= 0 {
		g = g.FilterByDepth(roots, opts.MaxDepth)
	}
	res.Graph = g

	res.Cycles = [][]string{}
	if opts.DetectCycles {
		res.Cycles = g.Cycles()
	}
	res.Layers = g.Layers()
	if opts.IncludeMetrics {
		res.pageRank = g.PageRank()
	}

	logger.Debug("built dependency graph", "nodes", g.Len(), "edges", len(g.Edges()), "cycles", len(res.Cycles))
	return res, nil
}

// JSON returns the json rendering.
func (r *Analysis) JSON() *Result {
	layerOf := make(map[string]int)
	layers := make(map[string][]string, len(r.Layers))
	for l, names := range r.Layers {
		layers[strconv.Itoa(l)] = names
		for _, name := range names {
			layerOf[name] = l
		}
	}

	names := r.Graph.Names()
	nodes := make([]FileNode, 0, len(names))
	for _, name := range names {
		n, _ := r.Graph.Node(name)
		out := *n
		if l, ok := layerOf[name]; ok {
			out.Layer = &l
		}
		if pr, ok := r.pageRank[name]; ok {
			out.PageRank = &pr
		}
		nodes = append(nodes, out)
	}

	edges := r.Graph.Edges()
	if edges == nil {
		edges = []Edge{}
	}
	return &Result{
		Nodes:             nodes,
		Edges:             edges,
		Cycles:            r.Cycles,
		Layers:            layers,
		TotalFiles:        r.FilesProcessed,
		FilesFailed:       r.FilesFailed,
		TotalDependencies: r.Dependencies,
		CyclesFound:       len(r.Cycles),
		Success:           true,
	}
}

// Render returns the rendering for format: a *Result for json, a
// *Rendered for mermaid and dot.
func (r *Analysis) Render(format Format) any {
	var content string
	switch format {
	case FormatMermaid:
		content = r.Mermaid()
	case FormatDOT:
		content = r.DOT()
	default:
		return r.JSON()
	}
	return &Rendered{
		Format:            format,
		Content:           content,
		TotalFiles:        r.FilesProcessed,
		TotalDependencies: r.Dependencies,
		CyclesFound:       len(r.Cycles),
		Success:           true,
	}
}

func (a *Analyzer) extract(ctx context.Context, path, base string) ([]Edge, error) {
	e, err := a.session.Parse(ctx, path, "")
	if err != nil {
		return nil, err
	}
	from := normalizePath(path, base)

	switch e.Language {
	case parser.LangCPP:
		return a.cppIncludes(e, path, from, base)
	case parser.LangPython:
		return a.pythonImports(e, from)
	}
	return nil, nil
}

func (a *Analyzer) cppIncludes(e *cache.Entry, path, from, base string) ([]Edge, error) {
	q, err := a.session.Queries().Compile(includePattern, parser.LangCPP)
	if err != nil {
		return nil, err
	}

	var edges []Edge
	for _, m := range query.Execute(e.Root(), q, e.Source(), query.WithLogger(a.session.Logger())) {
		if m.CaptureName != "include_path" || len(m.Text) < 2 {
			continue
		}
		system := m.Text[0] == '<'
		target := m.Text
		if target[0] == '"' || target[0] == '<' {
			target = target[1 : len(target)-1]
		}
		if !system {
			target = resolveLocal(path, target, base)
		}
		edges = append(edges, Edge{
			From:     from,
			To:       target,
			IsSystem: system,
			Line:     m.Line + 1,
		})
	}
	return edges, nil
}

func (a *Analyzer) pythonImports(e *cache.Entry, from string) ([]Edge, error) {
	matches, ok, err := a.session.RunNodes(e, parser.QueryIncludes)
	if !ok || err != nil {
		return nil, err
	}

	src := e.Source()
	var edges []Edge
	for _, m := range matches {
		var module string
		switch m.Node.Type() {
		case "import_from_statement":
			module = parser.GetNodeText(m.Node.ChildByFieldName("module_name"), src)
		case "import_statement":
			if name := m.Node.ChildByFieldName("name"); name != nil {
				if name.Type() == "aliased_import" {
					name = name.ChildByFieldName("name")
				}
				module = parser.GetNodeText(name, src)
			}
		}
		if module == "" {
			module = firstImportToken(m.Text)
		}
		if module == "" {
			continue
		}
		edges = append(edges, Edge{
			From: from,
			To:   module,
			Line: m.Line + 1,
		})
	}
	return edges, nil
}

// firstImportToken returns the first module token after "import".
func firstImportToken(stmt string) string {
	i := strings.Index(stmt, "import")
	if i < 0 {
		return ""
	}
	rest := strings.TrimLeft(stmt[i+len("import"):], " \t")
	if j := strings.IndexAny(rest, " \t,\n"); j >= 0 {
		rest = rest[:j]
	}
	return rest
}

// resolveLocal maps a quoted include to the node name of the file it
// refers to when that file exists next to the including file. Otherwise
// the include text itself names the node.
func resolveLocal(from, include, base string) string {
	candidate := filepath.Join(filepath.Dir(from), filepath.FromSlash(include))
	if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
		return normalizePath(candidate, base)
	}
	return include
}

// normalizePath names a file relative to base when it lies under base,
// and by its base name otherwise.
func normalizePath(path, base string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Base(path)
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}
