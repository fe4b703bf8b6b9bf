package mcpserver

import (
	"encoding/json"
	"slices"

	"github.com/google/jsonschema-go/jsonschema"
)

func defaultValue(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

func boolProp(def bool, desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "boolean", Default: defaultValue(def), Description: desc}
}

func intProp(def int, desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Default: defaultValue(def), Description: desc}
}

func stringProp(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc}
}

func enumProp(def string, values []string, desc string) *jsonschema.Schema {
	enum := make([]any, len(values))
	for i, v := range values {
		enum[i] = v
	}
	return &jsonschema.Schema{Type: "string", Enum: enum, Default: defaultValue(def), Description: desc}
}

func stringsProp(def []string, desc string) *jsonschema.Schema {
	p := &jsonschema.Schema{
		Type:        "array",
		Items:       &jsonschema.Schema{Type: "string"},
		Description: desc,
	}
	if def != nil {
		p.Default = defaultValue(def)
	}
	return p
}

func filepathProp() *jsonschema.Schema {
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{Type: "string", Description: "Single file or directory path"},
			{Type: "array", Items: &jsonschema.Schema{Type: "string"}, Description: "Multiple file or directory paths"},
		},
	}
}

// pathsSchema is the object schema shared by every multi-file tool:
// filepath, recursive, file_patterns and format, plus extra properties.
func (s *Server) pathsSchema(patterns []string, extra map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	props := map[string]*jsonschema.Schema{
		"filepath":      filepathProp(),
		"recursive":     boolProp(s.config.Resolver.Recursive, "Recursively scan directories"),
		"file_patterns": stringsProp(patterns, "File name patterns to include (* and ? wildcards)"),
		"format":        enumProp("json", []string{"json", "toon"}, "Encoding of the tool result"),
	}
	for k, v := range extra {
		props[k] = v
	}
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

// cppPatterns are the file patterns of the C++ oriented tools.
func (s *Server) cppPatterns() []string {
	return s.config.Patterns()
}

// allPatterns adds Python sources to the C++ patterns.
func (s *Server) allPatterns() []string {
	patterns := s.config.Patterns()
	if !slices.Contains(patterns, "*.py") {
		patterns = append(slices.Clone(patterns), "*.py")
	}
	return patterns
}

func (s *Server) parseFileSchema() any {
	return s.pathsSchema(s.cppPatterns(), nil, "filepath")
}

func (s *Server) findClassesSchema() any {
	return s.pathsSchema(s.cppPatterns(), nil, "filepath")
}

func (s *Server) findFunctionsSchema() any {
	return s.pathsSchema(s.cppPatterns(), nil, "filepath")
}

func (s *Server) executeQuerySchema() any {
	return s.pathsSchema(s.cppPatterns(), map[string]*jsonschema.Schema{
		"query": stringProp("Tree-sitter S-expression query, e.g. (class_specifier name: (type_identifier) @name)"),
	}, "filepath", "query")
}

func (s *Server) classHierarchySchema() any {
	return s.pathsSchema(s.cppPatterns(), map[string]*jsonschema.Schema{
		"class_name":        stringProp("Focus on the hierarchy connected to this class"),
		"show_methods":      boolProp(true, "Include virtual method details"),
		"show_virtual_only": boolProp(false, "Only report classes with virtual methods"),
		"max_depth":         intProp(-1, "Traversal depth from class_name, -1 for unlimited"),
	}, "filepath")
}

func (s *Server) dependencyGraphSchema() any {
	return s.pathsSchema(s.allPatterns(), map[string]*jsonschema.Schema{
		"show_system_includes": boolProp(false, "Keep <...> system includes in the graph"),
		"detect_cycles":        boolProp(true, "Detect circular dependencies"),
		"max_depth":            intProp(-1, "Include steps from the analyzed files, -1 for unlimited"),
		"output_format":        enumProp("json", []string{"json", "mermaid", "dot"}, "Graph rendering"),
		"include_metrics":      boolProp(false, "Attach a PageRank score to every node"),
	}, "filepath")
}

func (s *Server) symbolContextSchema() any {
	sym := s.config.Symbol
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"symbol_name":            stringProp("Function, class or Class::method name"),
			"filepath":               stringProp("File that defines the symbol"),
			"include_dependencies":   boolProp(true, "Report the types and functions the symbol uses"),
			"max_dependencies":       intProp(sym.MaxDependencies, "Maximum number of dependencies"),
			"resolve_external_types": boolProp(false, "Search project headers for dependency definitions"),
			"include_usage_examples": boolProp(false, "Collect call sites of the symbol"),
			"context_lines":          intProp(sym.ContextLines, "Lines of context around each usage example"),
			"search_paths":           stringsProp(nil, "Directories searched for external types"),
			"format":                 enumProp("json", []string{"json", "toon"}, "Encoding of the tool result"),
		},
		Required: []string{"symbol_name", "filepath"},
	}
}

func (s *Server) fileSummarySchema() any {
	return s.pathsSchema(s.allPatterns(), map[string]*jsonschema.Schema{
		"include_complexity": boolProp(true, "Compute cyclomatic complexity per function"),
		"include_comments":   boolProp(true, "Report TODO, FIXME and similar markers"),
		"include_docstrings": boolProp(true, "Attach docstrings and doc comments to functions"),
	}, "filepath")
}

func (s *Server) extractInterfaceSchema() any {
	return s.pathsSchema(s.allPatterns(), map[string]*jsonschema.Schema{
		"include_private":  boolProp(false, "Include private members and methods"),
		"include_comments": boolProp(true, "Keep doc comments and docstrings"),
		"output_format":    enumProp("json", []string{"json", "header", "markdown"}, "Interface rendering"),
	}, "filepath")
}

func (s *Server) findReferencesSchema() any {
	schema := s.pathsSchema(s.allPatterns(), map[string]*jsonschema.Schema{
		"symbol": stringProp("Identifier to search for"),
		"reference_types": {
			Type: "array",
			Items: &jsonschema.Schema{
				Type: "string",
				Enum: []any{"call", "declaration", "definition", "member_access", "type_usage", "unknown", "all"},
			},
			Default:     defaultValue([]string{"all"}),
			Description: "Reference kinds to report",
		},
		"include_context": boolProp(true, "Attach the source line and enclosing scope"),
	}, "symbol")
	schema.Properties["filepath"].Description = "Files or directories to search, defaults to the working directory"
	return schema
}

func (s *Server) cacheInfoSchema() any {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"clear":  boolProp(false, "Drop every cached parse"),
			"format": enumProp("json", []string{"json", "toon"}, "Encoding of the tool result"),
		},
	}
}
