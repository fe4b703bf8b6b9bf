// Package analyzer is the session object shared by every analysis: it owns
// the parse cache and the compiled query cache, and answers the basic
// per-file questions (counts, classes, functions, includes, raw queries).
package analyzer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/panbanda/tsmcp/internal/cache"
	"github.com/panbanda/tsmcp/pkg/parser"
	"github.com/panbanda/tsmcp/pkg/query"
)

// Analyzer holds the state that outlives a single request.
type Analyzer struct {
	cache   *cache.Cache
	queries *query.Cache
	logger  *slog.Logger
	maxSize int
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// WithCache uses an existing parse cache.
func WithCache(c *cache.Cache) Option {
	return func(a *Analyzer) {
		a.cache = c
	}
}

// WithMaxCacheEntries bounds the parse cache (0 = unbounded). Ignored
// when WithCache is also given.
func WithMaxCacheEntries(n int) Option {
	return func(a *Analyzer) {
		a.maxSize = n
	}
}

// New creates a new analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		queries: query.NewCache(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.cache == nil {
		a.cache = cache.New(
			cache.WithLogger(a.logger),
			cache.WithMaxEntries(a.maxSize),
		)
	}
	a.logger.Debug("analyzer created")
	return a
}

// Logger returns the analyzer's logger.
func (a *Analyzer) Logger() *slog.Logger { return a.logger }

// Cache returns the parse cache.
func (a *Analyzer) Cache() *cache.Cache { return a.cache }

// Queries returns the compiled query cache.
func (a *Analyzer) Queries() *query.Cache { return a.queries }

// DetectLanguage picks the language for path. An override always wins;
// an unrecognized extension falls back to C++.
func (a *Analyzer) DetectLanguage(path string, override parser.Language) parser.Language {
	if override != "" {
		return override
	}
	lang := parser.DetectLanguage(path)
	if lang == parser.LangUnknown {
		a.logger.Warn("unknown file extension, defaulting to C++", "path", path)
		return parser.LangCPP
	}
	return lang
}

// Parse returns the cached parse of path, parsing it if needed.
func (a *Analyzer) Parse(ctx context.Context, path string, override parser.Language) (*cache.Entry, error) {
	lang := a.DetectLanguage(path, override)
	e, err := a.cache.GetOrParse(ctx, path, lang)
	if err != nil {
		a.logger.Error("failed to parse file", "path", path, "error", err)
		return nil, err
	}
	return e, nil
}

// Run executes the predefined query kind against an entry. ok is false
// when the catalog has no pattern for the entry's language.
func (a *Analyzer) Run(e *cache.Entry, kind parser.QueryKind) (matches []query.Match, ok bool, err error) {
	q, ok, err := a.queries.Predefined(kind, e.Language)
	if !ok || err != nil {
		return nil, ok, err
	}
	return query.Execute(e.Root(), q, e.Source(), query.WithLogger(a.logger)), true, nil
}

// RunNodes is Run that keeps the captured nodes. The nodes are valid while
// e is referenced.
func (a *Analyzer) RunNodes(e *cache.Entry, kind parser.QueryKind) (matches []query.NodeMatch, ok bool, err error) {
	q, ok, err := a.queries.Predefined(kind, e.Language)
	if !ok || err != nil {
		return nil, ok, err
	}
	return query.ExecuteNodes(e.Root(), q, e.Source(), query.WithLogger(a.logger)), true, nil
}

// AnalyzeFile reports parse status and class, function and include counts.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string, lang parser.Language) *Result {
	lang = a.DetectLanguage(path, lang)
	r := newResult(path, lang)

	e, err := a.Parse(ctx, path, lang)
	if err != nil {
		r.Error = ErrParseFailed
		return r
	}

	count := func(kind parser.QueryKind) int {
		matches, ok, err := a.Run(e, kind)
		if !ok || err != nil {
			return 0
		}
		return len(matches)
	}

	r.Success = true
	r.Stats = &FileStats{
		HasErrors:     e.Result.HasError(),
		ClassCount:    count(parser.QueryClasses),
		FunctionCount: count(parser.QueryFunctions),
		IncludeCount:  count(parser.QueryIncludes),
	}
	a.logger.Debug("analyzed file", "path", path, "language", e.Language,
		"classes", r.Stats.ClassCount, "functions", r.Stats.FunctionCount)
	return r
}

// FindClasses returns every class name capture in path.
func (a *Analyzer) FindClasses(ctx context.Context, path string, lang parser.Language) *Result {
	return a.findKind(ctx, path, lang, parser.QueryClasses, "classes", "Classes")
}

// FindFunctions returns every function capture in path.
func (a *Analyzer) FindFunctions(ctx context.Context, path string, lang parser.Language) *Result {
	return a.findKind(ctx, path, lang, parser.QueryFunctions, "functions", "Functions")
}

// FindIncludes returns every include or import capture in path.
func (a *Analyzer) FindIncludes(ctx context.Context, path string, lang parser.Language) *Result {
	return a.findKind(ctx, path, lang, parser.QueryIncludes, "includes", "Includes")
}

func (a *Analyzer) findKind(ctx context.Context, path string, lang parser.Language, kind parser.QueryKind, key, label string) *Result {
	lang = a.DetectLanguage(path, lang)
	r := newResult(path, lang)

	e, err := a.Parse(ctx, path, lang)
	if err != nil {
		r.Error = ErrParseFailed
		return r
	}

	matches, ok, err := a.Run(e, kind)
	switch {
	case !ok:
		r.Error = fmt.Sprintf("%s query not supported for this language", label)
		return r
	case err != nil:
		a.logger.Error("failed to compile predefined query", "kind", kind, "language", e.Language, "error", err)
		r.Error = ErrCompileFailed
		return r
	}

	r.Success = true
	r.setMatches(key, matches)
	return r
}

// ExecuteQuery compiles pattern for path's language and runs it.
func (a *Analyzer) ExecuteQuery(ctx context.Context, path, pattern string, lang parser.Language) *Result {
	lang = a.DetectLanguage(path, lang)
	r := newResult(path, lang)

	e, err := a.Parse(ctx, path, lang)
	if err != nil {
		r.Error = ErrParseFailed
		return r
	}

	q, err := a.queries.Compile(pattern, e.Language)
	if err != nil {
		a.logger.Warn("failed to compile query", "path", path, "error", err)
		r.Error = ErrCompileFailed
		r.Detail = err.Error()
		return r
	}

	r.Success = true
	r.setMatches("matches", query.Execute(e.Root(), q, e.Source(), query.WithLogger(a.logger)))
	return r
}

// AnalyzeFiles runs AnalyzeFile over paths.
func (a *Analyzer) AnalyzeFiles(ctx context.Context, paths []string) *Batch {
	return RunBatch(ctx, paths, func(path string) *Result {
		return a.AnalyzeFile(ctx, path, "")
	})
}

// FindClassesInFiles runs FindClasses over paths.
func (a *Analyzer) FindClassesInFiles(ctx context.Context, paths []string) *Batch {
	return RunBatch(ctx, paths, func(path string) *Result {
		return a.FindClasses(ctx, path, "")
	})
}

// FindFunctionsInFiles runs FindFunctions over paths.
func (a *Analyzer) FindFunctionsInFiles(ctx context.Context, paths []string) *Batch {
	return RunBatch(ctx, paths, func(path string) *Result {
		return a.FindFunctions(ctx, path, "")
	})
}

// ExecuteQueryOnFiles runs ExecuteQuery over paths.
func (a *Analyzer) ExecuteQueryOnFiles(ctx context.Context, paths []string, pattern string) *Batch {
	return RunBatch(ctx, paths, func(path string) *Result {
		return a.ExecuteQuery(ctx, path, pattern, "")
	})
}

// ClearCache drops every cached parse.
func (a *Analyzer) ClearCache() {
	a.cache.Clear()
	a.logger.Debug("cache cleared")
}

// CacheSize returns the number of cached files.
func (a *Analyzer) CacheSize() int {
	return a.cache.Len()
}

// Close releases pooled parsers.
func (a *Analyzer) Close() {
	a.cache.Close()
}
