package summary

import (
	"encoding/json"

	"github.com/panbanda/tsmcp/pkg/parser"
)

// Options select the optional parts of a summary.
type Options struct {
	IncludeComplexity bool
	IncludeComments   bool
	IncludeDocstrings bool
}

// DefaultOptions enables everything.
func DefaultOptions() Options {
	return Options{
		IncludeComplexity: true,
		IncludeComments:   true,
		IncludeDocstrings: true,
	}
}

// Metrics are the per-line counts of a file.
type Metrics struct {
	TotalLines   int `json:"total_lines" toon:"total_lines"`
	CodeLines    int `json:"code_lines" toon:"code_lines"`
	CommentLines int `json:"comment_lines" toon:"comment_lines"`
	BlankLines   int `json:"blank_lines" toon:"blank_lines"`
}

// Parameter is one entry of a parameter list. Type is empty for untyped
// Python parameters.
type Parameter struct {
	Type string `json:"type" toon:"type"`
	Name string `json:"name" toon:"name"`
}

// Function is a function signature with its metrics.
type Function struct {
	Name       string      `json:"name" toon:"name"`
	ReturnType string      `json:"return_type" toon:"return_type"`
	Line       int         `json:"line" toon:"line"`
	Complexity int         `json:"complexity,omitempty" toon:"complexity,omitempty"`
	Parameters []Parameter `json:"parameters,omitempty" toon:"parameters,omitempty"`
	Docstring  string      `json:"docstring,omitempty" toon:"docstring,omitempty"`
	IsVirtual  bool        `json:"is_virtual,omitempty" toon:"is_virtual,omitempty"`
	IsStatic   bool        `json:"is_static,omitempty" toon:"is_static,omitempty"`
	IsAsync    bool        `json:"is_async,omitempty" toon:"is_async,omitempty"`
}

// Class is a class name capture. Line is 0-based like every query match.
type Class struct {
	Name string `json:"name" toon:"name"`
	Line int    `json:"line" toon:"line"`
}

// Import is an include directive or import statement.
type Import struct {
	Path     string
	Line     int
	IsSystem bool
	Module   string
	lang     parser.Language
}

// MarshalJSON reports is_system for C++ and module for Python.
func (i Import) MarshalJSON() ([]byte, error) {
	m := map[string]any{
		"path": i.Path,
		"line": i.Line,
	}
	switch i.lang {
	case parser.LangPython:
		if i.Module != "" {
			m["module"] = i.Module
		}
	default:
		m["is_system"] = i.IsSystem
	}
	return json.Marshal(m)
}

// Marker is a TODO-style comment marker.
type Marker struct {
	Type    string `json:"type" toon:"type"`
	Text    string `json:"text" toon:"text"`
	Line    int    `json:"line" toon:"line"`
	Context string `json:"context,omitempty" toon:"context,omitempty"`
}

// Result is the get_file_summary payload for one file.
type Result struct {
	Filepath  string
	Language  parser.Language
	Metrics   Metrics
	Functions []Function
	Classes   []Class
	Imports   []Import
	Markers   []Marker

	// AverageComplexity is set when complexity was requested and the file
	// has at least one function.
	AverageComplexity *float64

	opts  Options
	Error string
}

// Failed reports whether the file could not be summarized.
func (r *Result) Failed() bool { return r.Error != "" }

// Fields returns the result as a flat JSON object.
func (r *Result) Fields() map[string]any {
	if r.Failed() {
		return map[string]any{
			"error":    r.Error,
			"filepath": r.Filepath,
			"success":  false,
		}
	}

	functions := r.Functions
	if functions == nil {
		functions = []Function{}
	}
	classes := r.Classes
	if classes == nil {
		classes = []Class{}
	}
	imports := r.Imports
	if imports == nil {
		imports = []Import{}
	}

	m := map[string]any{
		"filepath":       r.Filepath,
		"language":       r.Language.String(),
		"success":        true,
		"metrics":        r.Metrics,
		"functions":      functions,
		"function_count": len(functions),
		"classes":        classes,
		"class_count":    len(classes),
		"imports":        imports,
		"import_count":   len(imports),
	}
	if r.opts.IncludeComments {
		markers := r.Markers
		if markers == nil {
			markers = []Marker{}
		}
		m["comment_markers"] = markers
		m["marker_count"] = len(markers)
	}
	if r.AverageComplexity != nil {
		m["average_complexity"] = *r.AverageComplexity
	}
	return m
}

// MarshalJSON emits the flat object form with keys in sorted order.
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Fields())
}
