// Package iface extracts the interface of a source file: free function
// signatures, classes with their methods and members, and namespaces,
// all without implementation bodies.
package iface

import (
	"context"
	"strings"

	"github.com/panbanda/tsmcp/internal/cache"
	"github.com/panbanda/tsmcp/pkg/analyzer"
	"github.com/panbanda/tsmcp/pkg/analyzer/summary"
	"github.com/panbanda/tsmcp/pkg/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

// ErrUnsupportedFile is reported for files in no supported language.
const ErrUnsupportedFile = "Unsupported file type"

// Extractor builds interfaces from the session's parse cache.
type Extractor struct {
	session *analyzer.Analyzer
}

// New creates an extractor.
func New(session *analyzer.Analyzer) *Extractor {
	return &Extractor{session: session}
}

// Extract extracts the interface of one file.
func (x *Extractor) Extract(ctx context.Context, path string, opts Options) *Result {
	r := &Result{Interface: Interface{Filepath: path}, Format: opts.Format}
	if r.Format == "" {
		r.Format = FormatJSON
	}

	lang := parser.DetectLanguage(path)
	if lang == parser.LangUnknown {
		r.Error = ErrUnsupportedFile
		return r
	}
	r.Language = lang

	e, err := x.session.Parse(ctx, path, lang)
	if err != nil {
		r.Error = analyzer.ErrParseFailed
		return r
	}

	ex := &extraction{e: e, src: e.Source(), opts: opts}
	ex.collect(e.Root())
	r.Functions = ex.functions
	r.Classes = ex.classes
	if lang == parser.LangCPP {
		r.Namespaces = x.namespaces(e)
	}

	x.session.Logger().Debug("extracted interface", "path", path,
		"functions", len(r.Functions), "classes", len(r.Classes))
	return r
}

// ExtractFiles extracts every path. Batch results are always JSON.
func (x *Extractor) ExtractFiles(ctx context.Context, paths []string, opts Options) *Batch {
	format := opts.Format
	if format == "" {
		format = FormatJSON
	}
	opts.Format = FormatJSON
	b := analyzer.RunBatch(ctx, paths, func(path string) *Result {
		return x.Extract(ctx, path, opts)
	})
	return &Batch{Batch: b, OutputFormat: format}
}

func (x *Extractor) namespaces(e *cache.Entry) []Namespace {
	matches, ok, err := x.session.Run(e, parser.QueryNamespaces)
	if !ok || err != nil {
		return nil
	}
	out := make([]Namespace, 0, len(matches))
	for _, m := range matches {
		out = append(out, Namespace{Name: m.Text, Line: int(m.Line) + 1})
	}
	return out
}

type extraction struct {
	e    *cache.Entry
	src  []byte
	opts Options

	functions []Function
	classes   []Class
}

// collect walks the tree. Functions nested in other functions are not
// part of the interface; classes are collected at any depth.
func (ex *extraction) collect(node *sitter.Node) {
	for i := range int(node.NamedChildCount()) {
		child := node.NamedChild(i)
		switch child.Type() {
		case "function_definition":
			ex.functions = append(ex.functions, ex.function(child, ""))
		case "class_specifier", "struct_specifier", "class_definition":
			if child.ChildByFieldName("body") != nil {
				ex.class(child)
			}
		case "declaration":
			// prototypes are part of a header's interface
			if summary.FunctionDeclarator(child) != nil {
				ex.functions = append(ex.functions, ex.function(child, ""))
				continue
			}
			ex.collect(child)
		case "decorated_definition", "namespace_definition", "declaration_list",
			"template_declaration", "linkage_specification",
			"preproc_if", "preproc_ifdef", "preproc_else", "preproc_elif":
			ex.collect(child)
		}
	}
}

func (ex *extraction) class(node *sitter.Node) {
	lang := ex.e.Language
	c := Class{
		Name:    parser.GetNodeText(node.ChildByFieldName("name"), ex.src),
		Kind:    "class",
		Line:    parser.Line(node),
		Methods: []Function{},
		Members: []Member{},
	}
	if node.Type() == "struct_specifier" {
		c.Kind = "struct"
	}
	if ex.opts.IncludeComments {
		c.Comment = precedingComment(anchor(node), ex.src)
		if lang == parser.LangPython {
			c.Docstring = strings.TrimSpace(summary.Docstring(node, ex.src, lang))
		}
	}
	c.BaseClasses = baseClasses(node, ex.src)
	c.Decorators = decorators(node, ex.src)

	body := node.ChildByFieldName("body")
	if lang == parser.LangPython {
		ex.pythonMembers(&c, body)
	} else {
		ex.cppMembers(&c, body)
	}
	ex.classes = append(ex.classes, c)

	// nested classes
	for i := range int(body.NamedChildCount()) {
		member := body.NamedChild(i)
		if member.Type() == "field_declaration" {
			member = parser.ChildOfType(member, "class_specifier", "struct_specifier")
			if member == nil {
				continue
			}
		}
		if member.Type() == "decorated_definition" {
			member = member.ChildByFieldName("definition")
		}
		switch member.Type() {
		case "class_specifier", "struct_specifier", "class_definition":
			if member.ChildByFieldName("body") != nil {
				ex.class(member)
			}
		}
	}
}

func (ex *extraction) cppMembers(c *Class, body *sitter.Node) {
	access := "private"
	if c.Kind == "struct" {
		access = "public"
	}

	for i := range int(body.ChildCount()) {
		member := body.Child(i)
		switch member.Type() {
		case "access_specifier":
			access = strings.TrimSuffix(strings.TrimSpace(parser.GetNodeText(member, ex.src)), ":")
			continue
		case "function_definition", "field_declaration", "declaration", "template_declaration":
		default:
			continue
		}
		if !ex.opts.IncludePrivate && access == "private" {
			continue
		}
		if member.Type() == "template_declaration" {
			member = parser.ChildOfType(member, "function_definition", "declaration", "field_declaration")
			if member == nil {
				continue
			}
		}

		if member.Type() == "function_definition" || summary.FunctionDeclarator(member) != nil {
			fn := ex.function(member, access)
			c.Methods = append(c.Methods, fn)
			continue
		}
		if member.Type() != "field_declaration" {
			continue
		}
		if parser.ChildOfType(member, "class_specifier", "struct_specifier") != nil && member.ChildByFieldName("declarator") == nil {
			continue
		}
		decl := strings.TrimRight(parser.GetNodeText(member, ex.src), "; \t\r\n")
		c.Members = append(c.Members, Member{
			Declaration: decl,
			Line:        parser.Line(member),
			Access:      access,
		})
	}
}

func (ex *extraction) pythonMembers(c *Class, body *sitter.Node) {
	for i := range int(body.NamedChildCount()) {
		member := body.NamedChild(i)
		def := member
		if member.Type() == "decorated_definition" {
			def = member.ChildByFieldName("definition")
		}

		switch def.Type() {
		case "function_definition":
			name := parser.GetNodeText(def.ChildByFieldName("name"), ex.src)
			access := pythonAccess(name)
			if !ex.opts.IncludePrivate && access == "private" {
				continue
			}
			c.Methods = append(c.Methods, ex.function(def, access))

		case "expression_statement":
			assign := parser.ChildOfType(def, "assignment")
			if assign == nil {
				continue
			}
			name := parser.GetNodeText(assign.ChildByFieldName("left"), ex.src)
			access := pythonAccess(name)
			if !ex.opts.IncludePrivate && access == "private" {
				continue
			}
			c.Members = append(c.Members, Member{
				Declaration: strings.TrimSpace(parser.GetNodeText(assign, ex.src)),
				Line:        parser.Line(def),
				Access:      access,
			})
		}
	}
}

func (ex *extraction) function(node *sitter.Node, access string) Function {
	lang := ex.e.Language
	fn := Function{
		Signature: signatureText(node, ex.src, lang),
		Line:      parser.Line(node),
		Column:    int(node.StartPoint().Column),
		Access:    access,
	}
	if ex.opts.IncludeComments {
		fn.Comment = precedingComment(anchor(node), ex.src)
		if lang == parser.LangPython {
			fn.Docstring = strings.TrimSpace(summary.Docstring(node, ex.src, lang))
		}
	}
	fn.Decorators = decorators(node, ex.src)
	return fn
}

// signatureText renders a definition without its body. C++ signatures end
// with ";" and Python headers keep their trailing ":".
func signatureText(node *sitter.Node, src []byte, lang parser.Language) string {
	end := node.EndByte()
	if body := node.ChildByFieldName("body"); body != nil {
		end = body.StartByte()
	}
	if init := parser.ChildOfType(node, "field_initializer_list"); init != nil && init.StartByte() < end {
		end = init.StartByte()
	}
	if end > uint32(len(src)) || node.StartByte() > end {
		return ""
	}
	sig := strings.TrimSpace(string(src[node.StartByte():end]))

	if lang == parser.LangPython {
		if !strings.HasSuffix(sig, ":") {
			sig += ":"
		}
		return sig
	}
	sig = strings.TrimRight(sig, "; \t\r\n")
	return sig + ";"
}

// anchor is the node whose siblings hold the comment and decorators of a
// definition.
func anchor(node *sitter.Node) *sitter.Node {
	if p := node.Parent(); p != nil {
		switch p.Type() {
		case "decorated_definition", "template_declaration":
			return p
		}
	}
	return node
}

func precedingComment(node *sitter.Node, src []byte) string {
	prev := node.PrevSibling()
	if prev == nil || prev.Type() != "comment" {
		return ""
	}
	return parser.GetNodeText(prev, src)
}

// decorators returns the decorators of a Python definition in source order.
func decorators(node *sitter.Node, src []byte) []string {
	p := node.Parent()
	if p == nil || p.Type() != "decorated_definition" {
		return nil
	}
	var out []string
	for _, d := range parser.ChildrenOfType(p, "decorator") {
		out = append(out, parser.GetNodeText(d, src))
	}
	return out
}

func baseClasses(node *sitter.Node, src []byte) []string {
	var bases []string
	if clause := parser.ChildOfType(node, "base_class_clause"); clause != nil {
		for i := range int(clause.NamedChildCount()) {
			b := clause.NamedChild(i)
			switch b.Type() {
			case "type_identifier", "qualified_identifier", "template_type":
				bases = append(bases, parser.GetNodeText(b, src))
			}
		}
		return bases
	}
	if args := node.ChildByFieldName("superclasses"); args != nil {
		for i := range int(args.NamedChildCount()) {
			b := args.NamedChild(i)
			if b.Type() == "keyword_argument" {
				continue
			}
			bases = append(bases, parser.GetNodeText(b, src))
		}
	}
	return bases
}

// pythonAccess classifies a Python name by convention. Dunder names are
// public; a single leading underscore marks private.
func pythonAccess(name string) string {
	if strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") {
		return "public"
	}
	if strings.HasPrefix(name, "_") {
		return "private"
	}
	return "public"
}
