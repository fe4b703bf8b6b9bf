package iface

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/panbanda/tsmcp/pkg/analyzer"
	"github.com/panbanda/tsmcp/pkg/parser"
)

// Format is an interface output format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatHeader   Format = "header"
	FormatMarkdown Format = "markdown"
)

// ErrInvalidFormat is returned for an unknown output format.
var ErrInvalidFormat = errors.New("invalid output format")

// ParseFormat validates an output_format value. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatHeader, FormatMarkdown:
		return Format(s), nil
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidFormat, s)
}

// Options control interface extraction.
type Options struct {
	IncludePrivate  bool
	IncludeComments bool
	Format          Format
}

// DefaultOptions returns the extract_interface defaults.
func DefaultOptions() Options {
	return Options{IncludeComments: true, Format: FormatJSON}
}

// Function is a function or method signature without its body.
type Function struct {
	Signature  string   `json:"signature" toon:"signature"`
	Line       int      `json:"line" toon:"line"`
	Column     int      `json:"column" toon:"column"`
	Access     string   `json:"access,omitempty" toon:"access,omitempty"`
	Comment    string   `json:"comment,omitempty" toon:"comment,omitempty"`
	Docstring  string   `json:"docstring,omitempty" toon:"docstring,omitempty"`
	Decorators []string `json:"decorators,omitempty" toon:"decorators,omitempty"`
}

// Member is a data member declaration.
type Member struct {
	Declaration string `json:"declaration" toon:"declaration"`
	Line        int    `json:"line" toon:"line"`
	Access      string `json:"access,omitempty" toon:"access,omitempty"`
}

// Class is the public face of a class.
type Class struct {
	Name        string     `json:"name" toon:"name"`
	Kind        string     `json:"kind" toon:"kind"` // class or struct
	Line        int        `json:"line" toon:"line"`
	Comment     string     `json:"comment,omitempty" toon:"comment,omitempty"`
	Docstring   string     `json:"docstring,omitempty" toon:"docstring,omitempty"`
	BaseClasses []string   `json:"base_classes,omitempty" toon:"base_classes,omitempty"`
	Decorators  []string   `json:"decorators,omitempty" toon:"decorators,omitempty"`
	Methods     []Function `json:"methods" toon:"methods"`
	Members     []Member   `json:"members" toon:"members"`
}

// Namespace is a named C++ namespace.
type Namespace struct {
	Name string `json:"name" toon:"name"`
	Line int    `json:"line" toon:"line"`
}

// Interface is everything extracted from one file.
type Interface struct {
	Filepath   string
	Language   parser.Language
	Functions  []Function
	Classes    []Class
	Namespaces []Namespace
}

// Result is the extract_interface payload for one file.
type Result struct {
	Interface
	Format Format
	Error  string
}

// Failed reports whether extraction failed.
func (r *Result) Failed() bool { return r.Error != "" }

// Fields returns the result as a flat JSON object. Header and markdown
// results carry the rendered text under "content".
func (r *Result) Fields() map[string]any {
	if r.Failed() {
		return map[string]any{
			"error":    r.Error,
			"filepath": r.Filepath,
			"success":  false,
		}
	}

	switch r.Format {
	case FormatHeader, FormatMarkdown:
		var buf bytes.Buffer
		if r.Format == FormatHeader {
			_ = r.RenderHeader(&buf)
		} else {
			_ = r.RenderMarkdown(&buf)
		}
		return map[string]any{
			"filepath": r.Filepath,
			"format":   string(r.Format),
			"content":  buf.String(),
			"success":  true,
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
	namespaces := r.Namespaces
	if namespaces == nil {
		namespaces = []Namespace{}
	}
	m := map[string]any{
		"filepath":        r.Filepath,
		"language":        r.Language.String(),
		"success":         true,
		"functions":       functions,
		"classes":         classes,
		"namespaces":      namespaces,
		"total_functions": len(functions),
		"total_classes":   len(classes),
	}
	if r.Language == parser.LangCPP {
		m["total_namespaces"] = len(namespaces)
	}
	return m
}

// MarshalJSON emits the flat object form with keys in sorted order.
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Fields())
}

// Batch is the multi-file result. Results are always in JSON form.
type Batch struct {
	*analyzer.Batch
	OutputFormat Format `json:"output_format" toon:"output_format"`
}
