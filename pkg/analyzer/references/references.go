// Package references finds every syntactic occurrence of a symbol and
// classifies each one by the construct it appears in.
package references

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/panbanda/tsmcp/pkg/analyzer"
	"github.com/panbanda/tsmcp/pkg/analyzer/summary"
	"github.com/panbanda/tsmcp/pkg/parser"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/sourcegraph/conc/panics"
)

var identifierTypes = []string{"identifier", "type_identifier", "field_identifier"}

// Finder searches files through the session's parse cache.
type Finder struct {
	session *analyzer.Analyzer
}

// New creates a reference finder.
func New(session *analyzer.Analyzer) *Finder {
	return &Finder{session: session}
}

// Find searches files for symbol. Files in no supported language, files
// that cannot be parsed and files whose search panics count as failed.
func (f *Finder) Find(ctx context.Context, symbol string, files []string, opts Options) *Result {
	r := &Result{
		Symbol:        symbol,
		FilesSearched: len(files),
		References:    []Reference{},
		Success:       true,
	}
	tracker := analyzer.TrackerFromContext(ctx)
	if tracker != nil {
		tracker.Add(len(files))
	}

	for _, path := range files {
		var (
			refs []Reference
			err  error
			pc   panics.Catcher
		)
		pc.Try(func() { refs, err = f.findInFile(ctx, symbol, path, opts) })
		if rec := pc.Recovered(); rec != nil {
			err = fmt.Errorf("panic: %v", rec.Value)
		}
		if tracker != nil {
			tracker.Tick(path, err != nil)
		}
		if err != nil {
			f.session.Logger().Warn("failed to search file", "path", path, "error", err)
			r.FilesFailed++
			continue
		}
		r.FilesProcessed++
		r.References = append(r.References, refs...)
	}

	r.TotalReferences = len(r.References)
	f.session.Logger().Debug("found references", "symbol", symbol,
		"files", len(files), "references", r.TotalReferences)
	return r
}

func (f *Finder) findInFile(ctx context.Context, symbol, path string, opts Options) ([]Reference, error) {
	lang := parser.DetectLanguage(path)
	if lang == parser.LangUnknown {
		return nil, parser.ErrUnsupportedLanguage
	}

	// Files that never mention the symbol are not parsed.
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if symbol == "" || !bytes.Contains(raw, []byte(symbol)) {
		return nil, nil
	}

	e, err := f.session.Parse(ctx, path, lang)
	if err != nil {
		return nil, err
	}
	src := e.Source()

	var refs []Reference
	for _, node := range parser.FindNodesByType(e.Root(), src, identifierTypes...) {
		if parser.GetNodeText(node, src) != symbol {
			continue
		}
		kind := Classify(node)
		if opts.Kinds != nil && !opts.Kinds[kind] {
			continue
		}
		ref := Reference{
			Filepath: path,
			Line:     parser.Line(node),
			Column:   int(node.StartPoint().Column) + 1,
			Type:     kind,
			NodeType: node.Type(),
		}
		if opts.IncludeContext {
			ref.Context = lineAt(src, int(node.StartPoint().Row))
			ref.ParentScope = parentScope(node, src)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// Classify decides how node uses its name from the surrounding syntax.
func Classify(node *sitter.Node) Kind {
	parent := node.Parent()
	if parent == nil {
		return KindUnknown
	}
	grand := parent.Parent()

	switch parent.Type() {
	case "call_expression", "call":
		if isField(parent, "function", node) {
			return KindCall
		}
	case "field_expression", "attribute":
		// obj.method() calls through the member expression
		if grand != nil && (grand.Type() == "call_expression" || grand.Type() == "call") &&
			isField(grand, "function", parent) && !isField(parent, "argument", node) && !isField(parent, "object", node) {
			return KindCall
		}
		return KindMemberAccess
	case "qualified_identifier":
		if grand != nil && grand.Type() == "function_declarator" && isField(parent, "name", node) {
			return definitionOrDeclaration(grand.Parent())
		}
		return KindMemberAccess
	case "function_declarator":
		return definitionOrDeclaration(grand)
	case "class_specifier", "struct_specifier", "class_definition", "function_definition":
		if isField(parent, "name", node) {
			return KindDefinition
		}
	case "init_declarator", "parameter_declaration", "optional_parameter_declaration",
		"declaration", "field_declaration", "pointer_declarator", "reference_declarator",
		"array_declarator", "typed_parameter", "default_parameter", "typed_default_parameter", "parameters":
		if node.Type() != "type_identifier" {
			return KindDeclaration
		}
	case "type":
		return KindTypeUsage
	}

	if node.Type() == "type_identifier" {
		return KindTypeUsage
	}
	return KindUnknown
}

func definitionOrDeclaration(owner *sitter.Node) Kind {
	if owner != nil && owner.Type() == "function_definition" {
		return KindDefinition
	}
	return KindDeclaration
}

func isField(parent *sitter.Node, field string, node *sitter.Node) bool {
	child := parent.ChildByFieldName(field)
	return child != nil && child.StartByte() == node.StartByte() && child.EndByte() == node.EndByte()
}

// lineAt returns the trimmed source line at the 0-based row.
func lineAt(src []byte, row int) string {
	for range row {
		i := bytes.IndexByte(src, '\n')
		if i < 0 {
			return ""
		}
		src = src[i+1:]
	}
	if i := bytes.IndexByte(src, '\n'); i >= 0 {
		src = src[:i]
	}
	return strings.TrimSpace(string(src))
}

// parentScope names the closest enclosing function or class.
func parentScope(node *sitter.Node, src []byte) string {
	for p := node.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "function_definition":
			if name := p.ChildByFieldName("name"); name != nil {
				return parser.GetNodeText(name, src)
			}
			if decl := summary.FunctionDeclarator(p); decl != nil {
				return parser.GetNodeText(decl.ChildByFieldName("declarator"), src)
			}
		case "class_specifier", "struct_specifier", "class_definition":
			if name := p.ChildByFieldName("name"); name != nil {
				return parser.GetNodeText(name, src)
			}
		}
	}
	return ""
}
