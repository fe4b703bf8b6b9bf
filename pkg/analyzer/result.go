package analyzer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/panbanda/tsmcp/pkg/parser"
	"github.com/panbanda/tsmcp/pkg/query"
	"github.com/sourcegraph/conc/panics"
)

// Error strings reported in result objects.
const (
	ErrParseFailed   = "Failed to parse file"
	ErrCompileFailed = "Failed to compile query"
)

// FileStats is the parse_file payload.
type FileStats struct {
	HasErrors     bool `json:"has_errors" toon:"has_errors"`
	ClassCount    int  `json:"class_count" toon:"class_count"`
	FunctionCount int  `json:"function_count" toon:"function_count"`
	IncludeCount  int  `json:"include_count" toon:"include_count"`
}

// Result is the single-file result of the basic analyses. Exactly one
// payload is set on success: Stats for AnalyzeFile, or a match list
// stored under MatchKey ("classes", "functions", "includes", "matches").
type Result struct {
	Filepath string
	Success  bool
	Language parser.Language
	Error    string
	// Detail carries the compiler diagnostic for a failed query.
	Detail string

	Stats    *FileStats
	MatchKey string
	Matches  []query.Match
}

func newResult(path string, lang parser.Language) *Result {
	return &Result{Filepath: path, Language: lang}
}

func (r *Result) setMatches(key string, matches []query.Match) {
	if matches == nil {
		matches = []query.Match{}
	}
	r.MatchKey = key
	r.Matches = matches
}

// Fields returns the result as a flat JSON object.
func (r *Result) Fields() map[string]any {
	m := map[string]any{
		"filepath": r.Filepath,
		"success":  r.Success,
	}
	if r.Language != "" {
		m["language"] = r.Language.String()
	}
	if r.Error != "" {
		m["error"] = r.Error
	}
	if r.Detail != "" {
		m["details"] = r.Detail
	}
	if r.Stats != nil {
		m["has_errors"] = r.Stats.HasErrors
		m["class_count"] = r.Stats.ClassCount
		m["function_count"] = r.Stats.FunctionCount
		m["include_count"] = r.Stats.IncludeCount
	}
	if r.MatchKey != "" {
		m[r.MatchKey] = r.Matches
	}
	return m
}

// MarshalJSON emits the flat object form with keys in sorted order.
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Fields())
}

// Failed reports whether the result counts as a failure in a batch.
func (r *Result) Failed() bool { return !r.Success }

// Outcome is anything a batch can aggregate.
type Outcome interface {
	Failed() bool
}

// Batch is the multi-file result shape.
type Batch struct {
	Success        bool  `json:"success" toon:"success"`
	TotalFiles     int   `json:"total_files" toon:"total_files"`
	ProcessedFiles int   `json:"processed_files" toon:"processed_files"`
	FailedFiles    int   `json:"failed_files" toon:"failed_files"`
	Results        []any `json:"results" toon:"results"`
}

// Failed reports whether any file failed.
func (b *Batch) Failed() bool { return !b.Success }

// ErrorEntry is the result entry for a file whose analysis panicked.
type ErrorEntry struct {
	Filepath string `json:"filepath" toon:"filepath"`
	Error    string `json:"error" toon:"error"`
	Success  bool   `json:"success" toon:"success"`
}

// Failed is always true.
func (ErrorEntry) Failed() bool { return true }

// RunBatch applies fn to every path in order. A panic inside fn is
// recovered and recorded as an error entry for that path only. Finished
// files are reported to the tracker carried by ctx.
func RunBatch[T Outcome](ctx context.Context, paths []string, fn func(path string) T) *Batch {
	b := &Batch{
		TotalFiles: len(paths),
		Results:    make([]any, 0, len(paths)),
	}
	tracker := TrackerFromContext(ctx)
	if tracker != nil {
		tracker.Add(len(paths))
	}

	for _, path := range paths {
		var (
			out T
			pc  panics.Catcher
		)
		pc.Try(func() { out = fn(path) })

		if rec := pc.Recovered(); rec != nil {
			b.Results = append(b.Results, ErrorEntry{
				Filepath: path,
				Error:    fmt.Sprint(rec.Value),
			})
			b.FailedFiles++
			if tracker != nil {
				tracker.Tick(path, true)
			}
			continue
		}
		if out.Failed() {
			b.FailedFiles++
		}
		b.Results = append(b.Results, out)
		if tracker != nil {
			tracker.Tick(path, out.Failed())
		}
	}

	b.ProcessedFiles = b.TotalFiles - b.FailedFiles
	b.Success = b.FailedFiles == 0
	return b
}
