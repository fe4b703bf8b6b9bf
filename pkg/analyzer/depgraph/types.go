package depgraph

import "fmt"

// Format selects the rendering of a dependency graph.
type Format string

const (
	FormatJSON    Format = "json"
	FormatMermaid Format = "mermaid"
	FormatDOT     Format = "dot"
)

// ParseFormat maps a user supplied name to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatMermaid:
		return FormatMermaid, nil
	case FormatDOT:
		return FormatDOT, nil
	}
	return "", fmt.Errorf("unknown output format %q (want json, mermaid or dot)", s)
}

// Edge is one include or import directive.
type Edge struct {
	From     string `json:"from" toon:"from"`
	To       string `json:"to" toon:"to"`
	IsSystem bool   `json:"is_system" toon:"is_system"`
	Line     uint32 `json:"line" toon:"line"` // 1-based
}

// FileNode is a file or module in the graph.
type FileNode struct {
	File       string   `json:"file" toon:"file"`
	Includes   []string `json:"includes" toon:"includes"`
	IncludedBy []string `json:"included_by" toon:"included_by"`
	IsSystem   bool     `json:"is_system" toon:"is_system"`
	// Layer is absent for nodes inside or below a cycle.
	Layer    *int     `json:"layer,omitempty" toon:"layer,omitempty"`
	PageRank *float64 `json:"pagerank,omitempty" toon:"pagerank,omitempty"`
}

// Options control a dependency graph request.
type Options struct {
	// ShowSystemIncludes keeps <...> includes in the graph.
	ShowSystemIncludes bool
	// DetectCycles runs strongly connected component detection.
	DetectCycles bool
	// MaxDepth limits the graph to nodes within MaxDepth include steps of
	// the analyzed files; -1 is unlimited.
	MaxDepth int
	// IncludeMetrics attaches a PageRank score to every node.
	IncludeMetrics bool
	// BaseDir is the directory node paths are made relative to. Empty
	// means the working directory.
	BaseDir string
}

// DefaultOptions returns the defaults used by the get_dependency_graph tool.
func DefaultOptions() Options {
	return Options{DetectCycles: true, MaxDepth: -1}
}

// Result is the json rendering of a graph.
type Result struct {
	Nodes             []FileNode          `json:"nodes" toon:"nodes"`
	Edges             []Edge              `json:"edges" toon:"edges"`
	Cycles            [][]string          `json:"cycles" toon:"cycles"`
	Layers            map[string][]string `json:"layers" toon:"layers"`
	TotalFiles        int                 `json:"total_files" toon:"total_files"`
	FilesFailed       int                 `json:"files_failed" toon:"files_failed"`
	TotalDependencies int                 `json:"total_dependencies" toon:"total_dependencies"`
	CyclesFound       int                 `json:"cycles_found" toon:"cycles_found"`
	Success           bool                `json:"success" toon:"success"`
}

// Rendered is the mermaid or dot rendering of a graph.
type Rendered struct {
	Format            Format `json:"format" toon:"format"`
	Content           string `json:"content" toon:"content"`
	TotalFiles        int    `json:"total_files" toon:"total_files"`
	TotalDependencies int    `json:"total_dependencies" toon:"total_dependencies"`
	CyclesFound       int    `json:"cycles_found" toon:"cycles_found"`
	Success           bool   `json:"success" toon:"success"`
}
