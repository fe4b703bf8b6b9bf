package mcpserver

import (
	"context"
	"errors"
	"time"

	"github.com/panbanda/tsmcp/pkg/analyzer/depgraph"
	"github.com/panbanda/tsmcp/pkg/analyzer/hierarchy"
	"github.com/panbanda/tsmcp/pkg/analyzer/iface"
	"github.com/panbanda/tsmcp/pkg/analyzer/references"
	"github.com/panbanda/tsmcp/pkg/analyzer/summary"
	"github.com/panbanda/tsmcp/pkg/analyzer/symbol"
)

// resolve expands the filepath argument into files. The second return is
// an error payload when the argument is missing or malformed.
func (s *Server) resolve(a args, patterns []string) ([]string, map[string]any) {
	if !a.has("filepath") {
		return nil, missing("filepath")
	}
	inputs, ok := a.filepaths()
	if !ok {
		return nil, failure(errFilepathType)
	}
	recursive := a.boolean("recursive", s.config.Resolver.Recursive)
	patterns = a.strs("file_patterns", patterns)
	return s.scanner.Resolve(inputs, recursive, patterns), nil
}

// perFile runs single for one file and batch for several, the shape the
// basic tools have always returned.
func (s *Server) perFile(a args, single func(string) any, batch func([]string) any) any {
	files, bad := s.resolve(a, s.cppPatterns())
	if bad != nil {
		return bad
	}
	switch len(files) {
	case 0:
		return failure(errNoCppFiles)
	case 1:
		return single(files[0])
	}
	return batch(files)
}

func (s *Server) handleParseFile(ctx context.Context, a args) any {
	return s.perFile(a,
		func(f string) any { return s.session.AnalyzeFile(ctx, f, "") },
		func(fs []string) any { return s.session.AnalyzeFiles(ctx, fs) },
	)
}

func (s *Server) handleFindClasses(ctx context.Context, a args) any {
	return s.perFile(a,
		func(f string) any { return s.session.FindClasses(ctx, f, "") },
		func(fs []string) any { return s.session.FindClassesInFiles(ctx, fs) },
	)
}

func (s *Server) handleFindFunctions(ctx context.Context, a args) any {
	return s.perFile(a,
		func(f string) any { return s.session.FindFunctions(ctx, f, "") },
		func(fs []string) any { return s.session.FindFunctionsInFiles(ctx, fs) },
	)
}

func (s *Server) handleExecuteQuery(ctx context.Context, a args) any {
	if !a.has("filepath") {
		return missing("filepath")
	}
	pattern, ok := a["query"].(string)
	if !ok {
		return missing("query")
	}
	return s.perFile(a,
		func(f string) any { return s.session.ExecuteQuery(ctx, f, pattern, "") },
		func(fs []string) any { return s.session.ExecuteQueryOnFiles(ctx, fs, pattern) },
	)
}

func (s *Server) handleClassHierarchy(ctx context.Context, a args) any {
	files, bad := s.resolve(a, s.cppPatterns())
	if bad != nil {
		return bad
	}
	if len(files) == 0 {
		return failure(errNoFilesResolved)
	}

	opts := hierarchy.Options{
		ClassName:       a.str("class_name", ""),
		ShowMethods:     a.boolean("show_methods", true),
		ShowVirtualOnly: a.boolean("show_virtual_only", false),
		MaxDepth:        a.integer("max_depth", -1),
	}
	res, err := hierarchy.New(s.session).Analyze(ctx, files, opts)
	if err != nil {
		var notFound *hierarchy.ClassNotFoundError
		if errors.As(err, &notFound) {
			out := failure(notFound.Error())
			if len(notFound.Suggestions) > 0 {
				out["suggestions"] = notFound.Suggestions
			}
			return out
		}
		return failure("Internal error: " + err.Error())
	}
	return res
}

func (s *Server) handleDependencyGraph(ctx context.Context, a args) any {
	files, bad := s.resolve(a, s.allPatterns())
	if bad != nil {
		return bad
	}
	if len(files) == 0 {
		return failure(errNoFilesResolved)
	}

	name := a.str("output_format", "json")
	format, err := depgraph.ParseFormat(name)
	if err != nil {
		return failure("Invalid output_format: " + name)
	}
	opts := depgraph.Options{
		ShowSystemIncludes: a.boolean("show_system_includes", false),
		DetectCycles:       a.boolean("detect_cycles", true),
		MaxDepth:           a.integer("max_depth", -1),
		IncludeMetrics:     a.boolean("include_metrics", false),
	}
	res, err := depgraph.New(s.session).Analyze(ctx, files, opts)
	if err != nil {
		return failure("Internal error: " + err.Error())
	}
	return res.Render(format)
}

func (s *Server) handleSymbolContext(ctx context.Context, a args) any {
	name, ok := a["symbol_name"].(string)
	if !ok {
		return missing("symbol_name")
	}
	if !a.has("filepath") {
		return missing("filepath")
	}
	path, ok := a["filepath"].(string)
	if !ok {
		return failure("filepath must be a string")
	}

	cfg := s.config.Symbol
	opts := symbol.Options{
		IncludeDependencies:  a.boolean("include_dependencies", true),
		MaxDependencies:      a.integer("max_dependencies", cfg.MaxDependencies),
		ResolveExternalTypes: a.boolean("resolve_external_types", false),
		IncludeUsageExamples: a.boolean("include_usage_examples", false),
		ContextLines:         a.integer("context_lines", cfg.ContextLines),
		MaxUsageExamples:     cfg.MaxUsageExamples,
		SearchPaths:          a.strs("search_paths", nil),
	}
	return symbol.New(s.session, symbol.WithScanner(s.scanner)).Resolve(ctx, name, path, opts)
}

func (s *Server) handleFileSummary(ctx context.Context, a args) any {
	files, bad := s.resolve(a, s.allPatterns())
	if bad != nil {
		return bad
	}
	opts := summary.Options{
		IncludeComplexity: a.boolean("include_complexity", true),
		IncludeComments:   a.boolean("include_comments", true),
		IncludeDocstrings: a.boolean("include_docstrings", true),
	}

	sum := summary.New(s.session)
	switch len(files) {
	case 0:
		return failure(errNoFilesMatched)
	case 1:
		return sum.Summarize(ctx, files[0], opts)
	}
	return sum.SummarizeFiles(ctx, files, opts)
}

func (s *Server) handleExtractInterface(ctx context.Context, a args) any {
	files, bad := s.resolve(a, s.allPatterns())
	if bad != nil {
		return bad
	}
	if len(files) == 0 {
		return failure(errNoFilesMatched)
	}

	name := a.str("output_format", "json")
	format, err := iface.ParseFormat(name)
	if err != nil {
		return failure("Invalid output_format: " + name)
	}
	opts := iface.Options{
		IncludePrivate:  a.boolean("include_private", false),
		IncludeComments: a.boolean("include_comments", true),
		Format:          format,
	}

	x := iface.New(s.session)
	if len(files) == 1 {
		return x.Extract(ctx, files[0], opts)
	}
	return x.ExtractFiles(ctx, files, opts)
}

func (s *Server) handleFindReferences(ctx context.Context, a args) any {
	name, ok := a["symbol"].(string)
	if !ok {
		// symbol_name matches the parameter of get_symbol_context
		if name, ok = a["symbol_name"].(string); !ok {
			return missing("symbol")
		}
	}
	if !a.has("filepath") {
		a["filepath"] = "."
	}
	files, bad := s.resolve(a, s.allPatterns())
	if bad != nil {
		return bad
	}
	if len(files) == 0 {
		return failure(errNoFilesMatched)
	}

	kinds, err := references.ParseKinds(a.strs("reference_types", nil))
	if err != nil {
		var invalid *references.InvalidKindError
		if errors.As(err, &invalid) {
			return failure("Invalid reference_types: " + invalid.Value)
		}
		return failure(err.Error())
	}
	opts := references.Options{
		Kinds:          kinds,
		IncludeContext: a.boolean("include_context", true),
	}
	return references.New(s.session).Find(ctx, name, files, opts)
}

type cacheEntry struct {
	Path     string    `json:"path" toon:"path"`
	Language string    `json:"language" toon:"language"`
	Hash     string    `json:"hash" toon:"hash"`
	ModTime  time.Time `json:"mod_time" toon:"mod_time"`
	ParsedAt time.Time `json:"parsed_at" toon:"parsed_at"`
	HasError bool      `json:"has_errors" toon:"has_errors"`
}

func (s *Server) handleCacheInfo(_ context.Context, a args) any {
	c := s.session.Cache()
	out := map[string]any{"success": true}

	if a.boolean("clear", false) {
		evicted := c.Len()
		s.session.ClearCache()
		out["cleared"] = true
		out["evicted"] = evicted
	} else {
		out["cleared"] = false
	}

	entries := []cacheEntry{}
	for _, e := range c.Entries() {
		entries = append(entries, cacheEntry{
			Path:     e.Path,
			Language: e.Language.String(),
			Hash:     e.Hash,
			ModTime:  e.ModTime,
			ParsedAt: e.ParsedAt,
			HasError: e.Result.HasError(),
		})
	}
	out["entries"] = entries
	out["size"] = len(entries)
	out["stats"] = c.Stats()
	return out
}
