// Package summary produces per-file overviews: line metrics, function
// signatures with cyclomatic complexity, classes, imports and comment
// markers.
package summary

import (
	"context"
	"slices"
	"strings"

	"github.com/panbanda/tsmcp/internal/cache"
	"github.com/panbanda/tsmcp/pkg/analyzer"
	"github.com/panbanda/tsmcp/pkg/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

// ErrUnsupportedFile is reported for files in no supported language.
const ErrUnsupportedFile = "Unsupported file type"

// Summarizer builds file summaries from the session's parse cache.
type Summarizer struct {
	session *analyzer.Analyzer
}

// New creates a summarizer.
func New(session *analyzer.Analyzer) *Summarizer {
	return &Summarizer{session: session}
}

// Summarize summarizes one file.
func (s *Summarizer) Summarize(ctx context.Context, path string, opts Options) *Result {
	r := &Result{Filepath: path, opts: opts}

	lang := parser.DetectLanguage(path)
	if lang == parser.LangUnknown {
		r.Error = ErrUnsupportedFile
		return r
	}
	r.Language = lang

	e, err := s.session.Parse(ctx, path, lang)
	if err != nil {
		r.Error = analyzer.ErrParseFailed
		return r
	}
	src := e.Source()

	r.Metrics = LineMetrics(string(src), lang)
	r.Functions = s.functions(e, opts)
	r.Classes = s.classes(e)
	r.Imports = Imports(e.Root(), src, lang)
	if opts.IncludeComments {
		r.Markers = Markers(string(src))
	}

	if opts.IncludeComplexity && len(r.Functions) > 0 {
		total := 0
		for _, fn := range r.Functions {
			total += fn.Complexity
		}
		avg := float64(total) / float64(len(r.Functions))
		r.AverageComplexity = &avg
	}

	s.session.Logger().Debug("summarized file", "path", path,
		"functions", len(r.Functions), "classes", len(r.Classes))
	return r
}

// SummarizeFiles summarizes every path in order.
func (s *Summarizer) SummarizeFiles(ctx context.Context, paths []string, opts Options) *analyzer.Batch {
	return analyzer.RunBatch(ctx, paths, func(path string) *Result {
		return s.Summarize(ctx, path, opts)
	})
}

func (s *Summarizer) functions(e *cache.Entry, opts Options) []Function {
	matches, ok, err := s.session.RunNodes(e, parser.QueryFunctions)
	if !ok || err != nil {
		return nil
	}
	p, _ := parser.ProfileFor(e.Language)
	fnTypes := p.FunctionNodeTypes()

	src := e.Source()
	var out []Function
	for _, m := range matches {
		node := m.Node
		if !slices.Contains(fnTypes, node.Type()) {
			node = parser.Ancestor(node, fnTypes...)
			if node == nil {
				continue
			}
		}

		fn := Signature(node, src, e.Language)
		if opts.IncludeDocstrings {
			fn.Docstring = Docstring(node, src, e.Language)
		}
		if opts.IncludeComplexity {
			fn.Complexity = Complexity(node, src, e.Language)
		}
		out = append(out, fn)
	}
	return out
}

func (s *Summarizer) classes(e *cache.Entry) []Class {
	matches, ok, err := s.session.Run(e, parser.QueryClasses)
	if !ok || err != nil {
		return nil
	}
	out := make([]Class, 0, len(matches))
	for _, m := range matches {
		out = append(out, Class{Name: m.Text, Line: int(m.Line)})
	}
	return out
}

// Signature extracts the name, return type, parameters and flags of a
// function definition node.
func Signature(node *sitter.Node, src []byte, lang parser.Language) Function {
	fn := Function{Line: parser.Line(node)}

	switch lang {
	case parser.LangPython:
		for i := range int(node.ChildCount()) {
			if node.Child(i).Type() == "async" {
				fn.IsAsync = true
				break
			}
		}
		fn.Name = parser.GetNodeText(node.ChildByFieldName("name"), src)
		fn.ReturnType = parser.GetNodeText(node.ChildByFieldName("return_type"), src)
		fn.Parameters = pythonParameters(node.ChildByFieldName("parameters"), src)

	default:
		for i := range int(node.ChildCount()) {
			child := node.Child(i)
			switch child.Type() {
			case "virtual", "virtual_function_specifier":
				fn.IsVirtual = true
			case "storage_class_specifier":
				if parser.GetNodeText(child, src) == "static" {
					fn.IsStatic = true
				}
			default:
				if parser.GetNodeText(child, src) == "virtual" {
					fn.IsVirtual = true
				}
			}
		}
		fn.ReturnType = parser.GetNodeText(node.ChildByFieldName("type"), src)
		if decl := FunctionDeclarator(node); decl != nil {
			fn.Name = parser.GetNodeText(decl.ChildByFieldName("declarator"), src)
			fn.Parameters = cppParameters(decl.ChildByFieldName("parameters"), src)
		}
	}
	return fn
}

// FunctionDeclarator finds the function_declarator under a definition or
// declaration, looking through pointer and reference declarators.
func FunctionDeclarator(node *sitter.Node) *sitter.Node {
	d := node.ChildByFieldName("declarator")
	for d != nil {
		switch d.Type() {
		case "function_declarator":
			return d
		case "pointer_declarator", "reference_declarator":
			next := d.ChildByFieldName("declarator")
			if next == nil && d.NamedChildCount() > 0 {
				next = d.NamedChild(int(d.NamedChildCount()) - 1)
			}
			d = next
		default:
			return nil
		}
	}
	return nil
}

func cppParameters(list *sitter.Node, src []byte) []Parameter {
	if list == nil {
		return nil
	}
	var params []Parameter
	for i := range int(list.NamedChildCount()) {
		p := list.NamedChild(i)
		switch p.Type() {
		case "parameter_declaration", "optional_parameter_declaration":
		default:
			continue
		}
		params = append(params, Parameter{
			Type: parser.GetNodeText(p.ChildByFieldName("type"), src),
			Name: parser.GetNodeText(p.ChildByFieldName("declarator"), src),
		})
	}
	return params
}

func pythonParameters(list *sitter.Node, src []byte) []Parameter {
	if list == nil {
		return nil
	}
	var params []Parameter
	for i := range int(list.NamedChildCount()) {
		p := list.NamedChild(i)
		switch p.Type() {
		case "identifier":
			params = append(params, Parameter{Name: parser.GetNodeText(p, src)})
		case "typed_parameter":
			// name: type, where the name may be a splat pattern
			text := parser.GetNodeText(p, src)
			name, typ, _ := strings.Cut(text, ":")
			params = append(params, Parameter{
				Type: strings.TrimSpace(typ),
				Name: strings.TrimSpace(name),
			})
		case "default_parameter", "typed_default_parameter":
			params = append(params, Parameter{
				Type: parser.GetNodeText(p.ChildByFieldName("type"), src),
				Name: parser.GetNodeText(p.ChildByFieldName("name"), src),
			})
		}
	}
	return params
}

// Docstring returns the documentation attached to a function or class.
// Python uses a leading string statement in the body with the triple
// quotes removed; C++ uses an immediately preceding comment with its
// delimiters removed.
func Docstring(node *sitter.Node, src []byte, lang parser.Language) string {
	if lang == parser.LangPython {
		body := node.ChildByFieldName("body")
		if body == nil || body.NamedChildCount() == 0 {
			return ""
		}
		first := body.NamedChild(0)
		if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
			return ""
		}
		expr := first.NamedChild(0)
		if expr.Type() != "string" {
			return ""
		}
		doc := parser.GetNodeText(expr, src)
		for _, q := range []string{`"""`, `'''`} {
			if len(doc) >= 6 && strings.HasPrefix(doc, q) && strings.HasSuffix(doc, q) {
				return doc[3 : len(doc)-3]
			}
		}
		return doc
	}

	prev := node.PrevSibling()
	if prev == nil || prev.Type() != "comment" {
		return ""
	}
	comment := parser.GetNodeText(prev, src)
	switch {
	case strings.HasPrefix(comment, "//"):
		comment = comment[2:]
	case strings.HasPrefix(comment, "/*") && strings.HasSuffix(comment, "*/") && len(comment) >= 4:
		comment = comment[2 : len(comment)-2]
	}
	return strings.TrimSpace(comment)
}

// Imports lists include directives (C++) or import statements (Python)
// in source order with 1-based lines.
func Imports(root *sitter.Node, src []byte, lang parser.Language) []Import {
	var out []Import
	switch lang {
	case parser.LangPython:
		for _, n := range parser.FindNodesByType(root, src, "import_statement", "import_from_statement") {
			out = append(out, Import{
				Path:   parser.GetNodeText(n, src),
				Line:   parser.Line(n),
				Module: importModule(n, src),
				lang:   lang,
			})
		}
	default:
		for _, n := range parser.FindNodesByType(root, src, "preproc_include") {
			path := parser.GetNodeText(n.ChildByFieldName("path"), src)
			if path == "" {
				continue
			}
			imp := Import{Line: parser.Line(n), IsSystem: path[0] == '<', lang: lang}
			// Macro includes such as `#include HDR` keep their text.
			if len(path) >= 2 && (path[0] == '"' || path[0] == '<') {
				path = path[1 : len(path)-1]
			}
			imp.Path = path
			out = append(out, imp)
		}
	}
	return out
}

// importModule names the module an import statement refers to.
func importModule(n *sitter.Node, src []byte) string {
	var name *sitter.Node
	if n.Type() == "import_from_statement" {
		name = n.ChildByFieldName("module_name")
	} else {
		name = n.ChildByFieldName("name")
		if name != nil && name.Type() == "aliased_import" {
			name = name.ChildByFieldName("name")
		}
	}
	return parser.GetNodeText(name, src)
}
