package parser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// ErrNilTree is returned when the engine produced no tree at all. A tree
// that merely contains error nodes is not a failure.
var ErrNilTree = errors.New("parser returned no tree")

// Parser wraps a tree-sitter parser bound to a single language.
type Parser struct {
	parser *sitter.Parser
	lang   Language
}

// ParseResult couples a tree with the exact source it was produced from.
// Node offsets are only meaningful against Source, so the two travel together.
type ParseResult struct {
	Tree     *sitter.Tree
	Language Language
	Source   []byte
	Path     string
}

// Root returns the root node of the tree.
func (r *ParseResult) Root() *sitter.Node {
	return r.Tree.RootNode()
}

// HasError reports whether any node in the tree is an error or missing node.
func (r *ParseResult) HasError() bool {
	return r.Tree.RootNode().HasError()
}

// Text returns the source text of a node of this result.
func (r *ParseResult) Text(node *sitter.Node) string {
	return GetNodeText(node, r.Source)
}

// Edit describes a byte-range edit applied to previously parsed source.
type Edit struct {
	StartByte   uint32
	OldEndByte  uint32
	NewEndByte  uint32
	StartPoint  sitter.Point
	OldEndPoint sitter.Point
	NewEndPoint sitter.Point
}

// New creates a parser for lang. It fails for languages without a grammar.
func New(lang Language) (*Parser, error) {
	tsLang, err := GetTreeSitterLanguage(lang)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, lang)
	}
	p := sitter.NewParser()
	p.SetLanguage(tsLang)
	return &Parser{parser: p, lang: lang}, nil
}

// Language returns the language the parser is bound to.
func (p *Parser) Language() Language {
	return p.lang
}

// Parse parses a full source buffer.
func (p *Parser) Parse(ctx context.Context, source []byte) (*sitter.Tree, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse: %w", err)
	}
	if tree == nil {
		return nil, ErrNilTree
	}
	return tree, nil
}

// ParseIncremental applies edit to old in place and reparses newSource,
// reusing the subtrees the edit did not touch.
func (p *Parser) ParseIncremental(ctx context.Context, old *sitter.Tree, newSource []byte, edit Edit) (*sitter.Tree, error) {
	if old == nil {
		return p.Parse(ctx, newSource)
	}
	old.Edit(sitter.EditInput{
		StartIndex:  edit.StartByte,
		OldEndIndex: edit.OldEndByte,
		NewEndIndex: edit.NewEndByte,
		StartPoint:  edit.StartPoint,
		OldEndPoint: edit.OldEndPoint,
		NewEndPoint: edit.NewEndPoint,
	})
	tree, err := p.parser.ParseCtx(ctx, old, newSource)
	if err != nil {
		return nil, fmt.Errorf("failed to reparse: %w", err)
	}
	if tree == nil {
		return nil, ErrNilTree
	}
	return tree, nil
}

// ParseResult parses source and wraps it with its metadata.
func (p *Parser) ParseResult(ctx context.Context, source []byte, path string) (*ParseResult, error) {
	tree, err := p.Parse(ctx, source)
	if err != nil {
		return nil, err
	}
	return &ParseResult{Tree: tree, Language: p.lang, Source: source, Path: path}, nil
}

// Close releases parser resources.
func (p *Parser) Close() {
	p.parser.Close()
}

// Pool holds one parser per language. Parsers are created lazily and
// each is used by one caller at a time.
type Pool struct {
	mu      sync.Mutex
	parsers map[Language]*pooledParser
}

type pooledParser struct {
	mu sync.Mutex
	p  *Parser
}

// NewPool creates an empty parser pool.
func NewPool() *Pool {
	return &Pool{parsers: make(map[Language]*pooledParser)}
}

func (pl *Pool) get(lang Language) (*pooledParser, error) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if pp, ok := pl.parsers[lang]; ok {
		return pp, nil
	}
	p, err := New(lang)
	if err != nil {
		return nil, err
	}
	pp := &pooledParser{p: p}
	pl.parsers[lang] = pp
	return pp, nil
}

// Parse parses source with the pooled parser for lang.
func (pl *Pool) Parse(ctx context.Context, lang Language, source []byte, path string) (*ParseResult, error) {
	pp, err := pl.get(lang)
	if err != nil {
		return nil, err
	}
	pp.mu.Lock()
	defer pp.mu.Unlock()
	return pp.p.ParseResult(ctx, source, path)
}

// Len returns the number of parsers created so far.
func (pl *Pool) Len() int {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return len(pl.parsers)
}

// Close releases every pooled parser.
func (pl *Pool) Close() {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	for lang, pp := range pl.parsers {
		pp.mu.Lock()
		pp.p.Close()
		pp.mu.Unlock()
		delete(pl.parsers, lang)
	}
}

// ParseFile reads and parses a file with a freshly created parser.
// Used by code paths that work outside the analysis cache.
func ParseFile(ctx context.Context, path string, lang Language) (*ParseResult, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if lang == "" {
		lang = DetectLanguage(path)
	}
	p, err := New(lang)
	if err != nil {
		return nil, err
	}
	defer p.Close()
	return p.ParseResult(ctx, source, path)
}
