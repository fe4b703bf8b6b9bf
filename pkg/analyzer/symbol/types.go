package symbol

import "encoding/json"

// Kind tags what a located symbol is.
type Kind string

const (
	KindFunction Kind = "function"
	KindMethod   Kind = "method"
	KindClass    Kind = "class"
)

// Location is where a symbol's definition lives in a file.
type Location struct {
	Name      string
	Kind      Kind
	Filepath  string
	StartLine int // 1-based
	EndLine   int // 1-based
	StartByte uint32
	EndByte   uint32
}

// Definition is the extracted source of a located symbol.
type Definition struct {
	Name        string `json:"name" toon:"name"`
	Type        Kind   `json:"type" toon:"type"`
	Filepath    string `json:"filepath" toon:"filepath"`
	StartLine   int    `json:"start_line" toon:"start_line"`
	EndLine     int    `json:"end_line" toon:"end_line"`
	Signature   string `json:"signature" toon:"signature"`
	FullCode    string `json:"full_code" toon:"full_code"`
	ParentClass string `json:"parent_class,omitempty" toon:"parent_class,omitempty"`
}

// UsedSymbol is a name referenced inside a definition.
type UsedSymbol struct {
	Name    string `json:"name" toon:"name"`
	Type    string `json:"type" toon:"type"`       // type, function, qualified
	Context string `json:"context" toon:"context"` // how it was used
}

// Dependency is a resolved type used by the target symbol.
type Dependency struct {
	Name      string `json:"name" toon:"name"`
	Type      Kind   `json:"type" toon:"type"`
	Filepath  string `json:"filepath" toon:"filepath"`
	StartLine int    `json:"start_line" toon:"start_line"`
	EndLine   int    `json:"end_line" toon:"end_line"`
	Signature string `json:"signature" toon:"signature"`
	// Definition is the full source, set when external resolution is on.
	Definition string `json:"definition,omitempty" toon:"definition,omitempty"`
}

// UsageExample is a call site of the target symbol.
type UsageExample struct {
	Filepath    string   `json:"filepath" toon:"filepath"`
	Line        int      `json:"line" toon:"line"`
	Context     []string `json:"context" toon:"context"`
	ParentScope string   `json:"parent_scope" toon:"parent_scope"`
}

// Options control a symbol context request.
type Options struct {
	IncludeDependencies  bool
	MaxDependencies      int
	ResolveExternalTypes bool
	IncludeUsageExamples bool
	ContextLines         int
	MaxUsageExamples     int
	// SearchPaths overrides the directories searched for external types.
	SearchPaths []string
}

// DefaultOptions returns the defaults used by the get_symbol_context tool.
func DefaultOptions() Options {
	return Options{
		IncludeDependencies: true,
		MaxDependencies:     10,
		ContextLines:        3,
		MaxUsageExamples:    5,
	}
}

// Result is the get_symbol_context payload.
type Result struct {
	Symbol *Definition
	// Dependencies and the counters are only reported when dependencies
	// were requested.
	WithDependencies   bool
	Dependencies       []Dependency
	RequiredIncludes   []string
	UsageExamples      []UsageExample
	UsedSymbolsCount   int
	DependenciesFound  int
	UsageExamplesFound int

	Error       string
	SymbolName  string
	Filepath    string
	Suggestions []string
}

// Failed reports whether the request failed.
func (r *Result) Failed() bool { return r.Error != "" }

// Fields returns the result as a flat JSON object.
func (r *Result) Fields() map[string]any {
	if r.Failed() {
		m := map[string]any{
			"error":    r.Error,
			"filepath": r.Filepath,
			"success":  false,
		}
		if r.SymbolName != "" {
			m["symbol_name"] = r.SymbolName
		}
		if len(r.Suggestions) > 0 {
			m["suggestions"] = r.Suggestions
		}
		return m
	}

	m := map[string]any{
		"symbol":  r.Symbol,
		"success": true,
	}
	if !r.WithDependencies {
		return m
	}
	deps := r.Dependencies
	if deps == nil {
		deps = []Dependency{}
	}
	m["dependencies"] = deps
	if len(r.RequiredIncludes) > 0 {
		m["required_includes"] = r.RequiredIncludes
	}
	if len(r.UsageExamples) > 0 {
		m["usage_examples"] = r.UsageExamples
	}
	m["used_symbols_count"] = r.UsedSymbolsCount
	m["dependencies_found"] = r.DependenciesFound
	m["usage_examples_found"] = r.UsageExamplesFound
	return m
}

// MarshalJSON emits the flat object form with keys in sorted order.
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Fields())
}
