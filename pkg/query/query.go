// Package query compiles declarative tree-sitter patterns and runs them
// against parsed trees.
package query

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/panbanda/tsmcp/pkg/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

// ErrorKind categorizes a pattern compilation failure.
type ErrorKind string

const (
	ErrorSyntax    ErrorKind = "syntax"
	ErrorNodeType  ErrorKind = "node_type"
	ErrorField     ErrorKind = "field"
	ErrorCapture   ErrorKind = "capture"
	ErrorStructure ErrorKind = "structure"
	ErrorLanguage  ErrorKind = "language"
	ErrorUnknown   ErrorKind = "unknown"
)

// CompileError reports where and why a pattern failed to compile.
type CompileError struct {
	Offset  uint32
	Kind    ErrorKind
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("query %s error at offset %d: %s", e.Kind, e.Offset, e.Message)
}

// Query is a pattern compiled for exactly one language.
type Query struct {
	q       *sitter.Query
	lang    parser.Language
	pattern string
}

// Language returns the language the query was compiled for.
func (q *Query) Language() parser.Language { return q.lang }

// Pattern returns the source pattern.
func (q *Query) Pattern() string { return q.pattern }

// CaptureCount returns the number of distinct capture names in the pattern.
func (q *Query) CaptureCount() uint32 { return q.q.CaptureCount() }

// Match is one captured node. It holds copies of everything it reports,
// so it remains valid after the tree it came from is gone.
type Match struct {
	CaptureName string `json:"capture_name"`
	Line        uint32 `json:"line"`
	Column      uint32 `json:"column"`
	Text        string `json:"text"`
}

// NodeMatch is a Match that also carries the captured node. The node is
// only usable while the tree and source it came from are alive.
type NodeMatch struct {
	Match
	Node *sitter.Node
	// Pattern is the index of the pattern that produced the capture.
	Pattern uint16
	// MatchID groups captures produced by the same pattern match.
	MatchID uint32
}

// Compile compiles pattern against lang's grammar.
func Compile(pattern string, lang parser.Language) (*Query, error) {
	tsLang, err := parser.GetTreeSitterLanguage(lang)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, lang)
	}
	q, err := sitter.NewQuery([]byte(pattern), tsLang)
	if err != nil {
		return nil, toCompileError(err)
	}
	return &Query{q: q, lang: lang, pattern: pattern}, nil
}

func toCompileError(err error) error {
	var qe *sitter.QueryError
	if !errors.As(err, &qe) {
		return &CompileError{Kind: ErrorUnknown, Message: err.Error()}
	}
	kind := ErrorUnknown
	switch qe.Type {
	case sitter.QueryErrorSyntax:
		kind = ErrorSyntax
	case sitter.QueryErrorNodeType:
		kind = ErrorNodeType
	case sitter.QueryErrorField:
		kind = ErrorField
	case sitter.QueryErrorCapture:
		kind = ErrorCapture
	case sitter.QueryErrorStructure:
		kind = ErrorStructure
	case sitter.QueryErrorLanguage:
		kind = ErrorLanguage
	}
	return &CompileError{Offset: qe.Offset, Kind: kind, Message: qe.Message}
}

// ExecOption configures Execute and ExecuteNodes.
type ExecOption func(*execConfig)

type execConfig struct {
	logger *slog.Logger
}

// WithLogger sets the logger that receives capture range warnings.
// Without it they go to slog.Default().
func WithLogger(logger *slog.Logger) ExecOption {
	return func(c *execConfig) {
		c.logger = logger
	}
}

// Execute runs q over the tree rooted at root and returns one Match per
// capture, in the order the engine yields them.
func Execute(root *sitter.Node, q *Query, source []byte, opts ...ExecOption) []Match {
	nodes := ExecuteNodes(root, q, source, opts...)
	out := make([]Match, len(nodes))
	for i, nm := range nodes {
		out[i] = nm.Match
	}
	return out
}

// ExecuteNodes is Execute that keeps the captured nodes. Text predicates
// such as #match? and #eq? are applied.
func ExecuteNodes(root *sitter.Node, q *Query, source []byte, opts ...ExecOption) []NodeMatch {
	if root == nil || q == nil {
		return nil
	}
	cfg := execConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q.q, root)

	var out []NodeMatch
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		m = qc.FilterPredicates(m, source)
		for _, c := range m.Captures {
			text, valid := parser.NodeText(c.Node, source)
			if !valid {
				cfg.logger.Warn("capture byte range outside source",
					"capture", q.q.CaptureNameForId(c.Index),
					"start", c.Node.StartByte(),
					"end", c.Node.EndByte(),
					"source_len", len(source))
			}
			start := c.Node.StartPoint()
			out = append(out, NodeMatch{
				Match: Match{
					CaptureName: q.q.CaptureNameForId(c.Index),
					Line:        start.Row,
					Column:      start.Column,
					Text:        text,
				},
				Node:    c.Node,
				Pattern: m.PatternIndex,
				MatchID: m.ID,
			})
		}
	}
	return out
}
