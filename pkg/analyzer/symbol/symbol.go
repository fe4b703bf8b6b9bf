// Package symbol gathers the context of one symbol: its definition, the
// names it uses, where those are defined and how the symbol is called.
package symbol

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/panbanda/tsmcp/internal/cache"
	"github.com/panbanda/tsmcp/internal/scanner"
	"github.com/panbanda/tsmcp/pkg/analyzer"
	"github.com/panbanda/tsmcp/pkg/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

// Error strings reported in results.
const (
	ErrUnsupportedFile = "Unsupported file type"
	ErrNotFound        = "Symbol not found"
)

const maxSuggestions = 5

// Resolver answers symbol context requests over a shared analysis session.
type Resolver struct {
	session *analyzer.Analyzer
	scanner *scanner.Scanner
}

// Option is a functional option for configuring Resolver.
type Option func(*Resolver)

// WithScanner sets the scanner used to enumerate search directories.
func WithScanner(s *scanner.Scanner) Option {
	return func(r *Resolver) {
		r.scanner = s
	}
}

// New creates a symbol resolver.
func New(session *analyzer.Analyzer, opts ...Option) *Resolver {
	r := &Resolver{session: session}
	for _, opt := range opts {
		opt(r)
	}
	if r.scanner == nil {
		r.scanner = scanner.NewScanner(nil, session.Logger())
	}
	return r
}

// Resolve locates name in path and, when asked, collects its
// dependencies and usage examples. Unresolved dependencies are left out;
// only a missing primary symbol is an error.
func (r *Resolver) Resolve(ctx context.Context, name, path string, opts Options) *Result {
	logger := r.session.Logger()
	lang := parser.DetectLanguage(path)
	if lang == parser.LangUnknown {
		return &Result{Error: ErrUnsupportedFile, Filepath: path}
	}
	logger.Debug("resolving symbol context", "symbol", name, "path", path,
		"external", opts.ResolveExternalTypes, "usage_examples", opts.IncludeUsageExamples)

	e, err := r.session.Parse(ctx, path, lang)
	if err != nil {
		return &Result{Error: analyzer.ErrParseFailed, SymbolName: name, Filepath: path}
	}

	loc, node := Locate(e.Root(), e.Source(), lang, name, path)
	if loc == nil {
		return &Result{
			Error:       ErrNotFound,
			SymbolName:  name,
			Filepath:    path,
			Suggestions: analyzer.Suggest(name, Names(e.Root(), e.Source(), lang), maxSuggestions),
		}
	}

	def := Extract(loc, node, e.Source(), lang)
	res := &Result{Symbol: def}
	if !opts.IncludeDependencies {
		return res
	}

	used := Dependencies(node, e.Source(), lang, def.Name)
	res.WithDependencies = true
	res.UsedSymbolsCount = len(used)
	res.RequiredIncludes = includes(e)

	searchPaths := opts.SearchPaths
	if len(searchPaths) == 0 && opts.ResolveExternalTypes {
		searchPaths = autoSearchPaths(path)
	}

	for _, u := range used {
		if u.Type != "type" {
			continue
		}
		dep, ok := findDefinition(u.Name, e, lang, path)
		if !ok && opts.ResolveExternalTypes && len(searchPaths) > 0 {
			dep, ok = r.searchPaths(ctx, u.Name, searchPaths, lang)
		}
		if !ok {
			continue
		}
		d := Dependency{
			Name:      dep.Name,
			Type:      dep.Type,
			Filepath:  dep.Filepath,
			StartLine: dep.StartLine,
			EndLine:   dep.EndLine,
			Signature: dep.Signature,
		}
		if opts.ResolveExternalTypes {
			d.Definition = dep.FullCode
		}
		res.Dependencies = append(res.Dependencies, d)
	}
	res.DependenciesFound = len(res.Dependencies)
	if opts.MaxDependencies >= 0 && len(res.Dependencies) > opts.MaxDependencies {
		res.Dependencies = res.Dependencies[:opts.MaxDependencies]
	}

	if opts.IncludeUsageExamples {
		res.UsageExamples = r.usageExamples(ctx, usageNeedle(name, lang), projectBase(path), lang, opts)
		res.UsageExamplesFound = len(res.UsageExamples)
	}

	logger.Debug("resolved symbol context", "symbol", name,
		"used", len(used), "dependencies", res.DependenciesFound, "examples", res.UsageExamplesFound)
	return res
}

// splitQualified splits "Class::member" (or "Class.member" for Python).
func splitQualified(name string, lang parser.Language) (class, member string, ok bool) {
	if i := strings.Index(name, "::"); i >= 0 {
		return name[:i], name[i+2:], true
	}
	if lang == parser.LangPython {
		if i := strings.LastIndex(name, "."); i >= 0 {
			return name[:i], name[i+1:], true
		}
	}
	return "", "", false
}

func isClassNode(nodeType string, lang parser.Language) bool {
	if lang == parser.LangPython {
		return nodeType == "class_definition"
	}
	return nodeType == "class_specifier" || nodeType == "struct_specifier"
}

// functionName renders a function definition's name. For C++ this is the
// declarator text up to its parameter list, which may carry a scope or
// pointer prefix.
func functionName(node *sitter.Node, src []byte, lang parser.Language) string {
	if lang == parser.LangPython {
		return parser.GetNodeText(node.ChildByFieldName("name"), src)
	}
	decl := node.ChildByFieldName("declarator")
	if decl == nil {
		return ""
	}
	text := parser.GetNodeText(decl, src)
	if i := strings.IndexByte(text, '('); i >= 0 {
		text = text[:i]
	}
	return text
}

func location(node *sitter.Node, name string, kind Kind, path string) *Location {
	return &Location{
		Name:      name,
		Kind:      kind,
		Filepath:  path,
		StartLine: parser.Line(node),
		EndLine:   parser.EndLine(node),
		StartByte: node.StartByte(),
		EndByte:   node.EndByte(),
	}
}

// Locate finds the first definition of name in a depth-first walk. A
// function matches when its name equals or contains name; a class must
// match exactly. "Class::member" looks for member inside Class's body.
func Locate(root *sitter.Node, src []byte, lang parser.Language, name, path string) (*Location, *sitter.Node) {
	className, member, qualified := splitQualified(name, lang)

	var search func(n *sitter.Node) (*Location, *sitter.Node)
	search = func(n *sitter.Node) (*Location, *sitter.Node) {
		nodeType := n.Type()

		if nodeType == "function_definition" {
			fn := functionName(n, src, lang)
			if fn != "" && strings.Contains(fn, name) {
				return location(n, name, KindFunction, path), n
			}
		}

		if isClassNode(nodeType, lang) {
			cls := parser.GetNodeText(n.ChildByFieldName("name"), src)
			switch {
			case qualified && cls == className:
				if m := findMember(n, src, lang, member); m != nil {
					return location(m, name, KindMethod, path), m
				}
			case cls != "" && cls == name:
				return location(n, name, KindClass, path), n
			}
		}

		for i := range int(n.ChildCount()) {
			if loc, node := search(n.Child(i)); loc != nil {
				return loc, node
			}
		}
		return nil, nil
	}

	if root == nil || name == "" {
		return nil, nil
	}
	return search(root)
}

func findMember(class *sitter.Node, src []byte, lang parser.Language, member string) *sitter.Node {
	body := class.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	for i := range int(body.ChildCount()) {
		child := body.Child(i)
		switch child.Type() {
		case "function_definition", "field_declaration", "declaration":
			if lang == parser.LangPython {
				if strings.Contains(functionName(child, src, lang), member) {
					return child
				}
				continue
			}
			if decl := child.ChildByFieldName("declarator"); decl != nil &&
				strings.Contains(parser.GetNodeText(decl, src), member) {
				return child
			}
		case "decorated_definition":
			fn := child.ChildByFieldName("definition")
			if fn != nil && fn.Type() == "function_definition" &&
				strings.Contains(functionName(fn, src, lang), member) {
				return fn
			}
		}
	}
	return nil
}

// Extract slices a located symbol's source and derives its signature.
func Extract(loc *Location, node *sitter.Node, src []byte, lang parser.Language) *Definition {
	def := &Definition{
		Name:      loc.Name,
		Type:      loc.Kind,
		Filepath:  loc.Filepath,
		StartLine: loc.StartLine,
		EndLine:   loc.EndLine,
		Signature: Signature(node, src, lang),
	}
	if loc.StartByte <= loc.EndByte && int(loc.EndByte) <= len(src) {
		def.FullCode = string(src[loc.StartByte:loc.EndByte])
	}
	if loc.Kind == KindMethod {
		if class, _, ok := splitQualified(loc.Name, lang); ok {
			def.ParentClass = class
		}
	}
	return def
}

// Signature renders a declaration-only form of node: a function without
// its body, or a class header with its bases.
func Signature(node *sitter.Node, src []byte, lang parser.Language) string {
	if lang == parser.LangPython {
		switch node.Type() {
		case "function_definition", "class_definition":
			body := node.ChildByFieldName("body")
			if body == nil {
				return parser.GetNodeText(node, src)
			}
			head := string(src[node.StartByte():body.StartByte()])
			return strings.TrimSuffix(strings.TrimSpace(head), ":")
		}
		return parser.GetNodeText(node, src)
	}

	switch node.Type() {
	case "function_definition":
		var sig string
		if t := node.ChildByFieldName("type"); t != nil {
			sig = parser.GetNodeText(t, src) + " "
		}
		sig += parser.GetNodeText(node.ChildByFieldName("declarator"), src)
		return sig + ";"
	case "class_specifier", "struct_specifier":
		keyword := "class"
		if node.Type() == "struct_specifier" {
			keyword = "struct"
		}
		sig := keyword + " " + parser.GetNodeText(node.ChildByFieldName("name"), src)
		if base := parser.ChildOfType(node, "base_class_clause"); base != nil {
			sig += " " + parser.GetNodeText(base, src)
		}
		return sig + ";"
	}
	return parser.GetNodeText(node, src)
}

// Dependencies lists the distinct names used inside node: types, called
// functions and qualified references, in first-seen order. self is left
// out so a class does not depend on itself.
func Dependencies(node *sitter.Node, src []byte, lang parser.Language, self string) []UsedSymbol {
	seen := map[string]bool{self: true}
	var used []UsedSymbol
	add := func(name, kind, context string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		used = append(used, UsedSymbol{Name: name, Type: kind, Context: context})
	}

	parser.WalkTyped(node, src, func(n *sitter.Node, nodeType string, src []byte) bool {
		switch nodeType {
		case "type_identifier":
			add(parser.GetNodeText(n, src), "type", "variable type")
		case "type":
			if lang == parser.LangPython {
				add(parser.GetNodeText(n, src), "type", "variable type")
			}
		case "call_expression", "call":
			add(parser.GetNodeText(n.ChildByFieldName("function"), src), "function", "function call")
		case "qualified_identifier":
			add(parser.GetNodeText(n, src), "qualified", "qualified access")
		}
		return true
	})
	return used
}

// Names lists every function and class name defined in a tree.
func Names(root *sitter.Node, src []byte, lang parser.Language) []string {
	var names []string
	parser.WalkTyped(root, src, func(n *sitter.Node, nodeType string, src []byte) bool {
		switch {
		case nodeType == "function_definition":
			name := strings.TrimLeft(functionName(n, src, lang), "*& ")
			if name != "" {
				names = append(names, name)
			}
		case isClassNode(nodeType, lang):
			if name := parser.GetNodeText(n.ChildByFieldName("name"), src); name != "" {
				names = append(names, name)
			}
		}
		return true
	})
	return names
}

func includes(e *cache.Entry) []string {
	types := []string{"preproc_include"}
	if e.Language == parser.LangPython {
		types = []string{"import_statement", "import_from_statement"}
	}
	var out []string
	for _, n := range parser.FindNodesByType(e.Root(), e.Source(), types...) {
		out = append(out, strings.TrimSpace(parser.GetNodeText(n, e.Source())))
	}
	return out
}

func findDefinition(name string, e *cache.Entry, lang parser.Language, path string) (*Definition, bool) {
	loc, node := Locate(e.Root(), e.Source(), lang, name, path)
	if loc == nil {
		return nil, false
	}
	return Extract(loc, node, e.Source(), lang), true
}

func headerPatterns(lang parser.Language) []string {
	if lang == parser.LangPython {
		return []string{"*.py"}
	}
	return []string{"*.hpp", "*.h"}
}

func sourcePatterns(lang parser.Language) []string {
	if lang == parser.LangPython {
		return []string{"*.py"}
	}
	return []string{"*.cpp", "*.hpp", "*.h"}
}

// searchPaths looks for name in the headers below each directory.
func (r *Resolver) searchPaths(ctx context.Context, name string, dirs []string, lang parser.Language) (*Definition, bool) {
	for _, dir := range dirs {
		for _, file := range r.scanner.Resolve([]string{dir}, true, headerPatterns(lang)) {
			fileLang := parser.DetectLanguage(file)
			if fileLang == parser.LangUnknown {
				continue
			}
			e, err := r.session.Parse(ctx, file, fileLang)
			if err != nil {
				continue
			}
			if def, ok := findDefinition(name, e, fileLang, file); ok {
				r.session.Logger().Debug("found external type", "symbol", name, "path", file)
				return def, true
			}
		}
	}
	return nil, false
}

// findProjectRoot walks up from path's directory to the first directory
// holding a src or include directory.
func findProjectRoot(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	dir := filepath.Dir(abs)
	for {
		for _, sub := range []string{"src", "include"} {
			if info, err := os.Stat(filepath.Join(dir, sub)); err == nil && info.IsDir() {
				return dir, true
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func autoSearchPaths(path string) []string {
	if root, ok := findProjectRoot(path); ok {
		return []string{filepath.Join(root, "include"), filepath.Join(root, "src")}
	}
	return []string{filepath.Dir(path)}
}

func projectBase(path string) string {
	if root, ok := findProjectRoot(path); ok {
		return root
	}
	return filepath.Dir(path)
}

// usageNeedle is the text searched for in call sites. Calls name a
// member without its class, so only the member part of a qualified name
// is used.
func usageNeedle(name string, lang parser.Language) string {
	if _, member, ok := splitQualified(name, lang); ok {
		return member
	}
	return name
}

func (r *Resolver) usageExamples(ctx context.Context, needle, base string, lang parser.Language, opts Options) []UsageExample {
	limit := opts.MaxUsageExamples
	if limit <= 0 {
		return nil
	}

	var examples []UsageExample
	for _, file := range r.scanner.Resolve([]string{base}, true, sourcePatterns(lang)) {
		if len(examples) >= limit {
			break
		}
		fileLang := parser.DetectLanguage(file)
		if fileLang == parser.LangUnknown {
			continue
		}
		e, err := r.session.Parse(ctx, file, fileLang)
		if err != nil {
			continue
		}
		src := e.Source()
		lines := strings.Split(string(src), "\n")

		parser.WalkTyped(e.Root(), src, func(n *sitter.Node, nodeType string, src []byte) bool {
			if len(examples) >= limit {
				return false
			}
			if nodeType != "call_expression" && nodeType != "call" {
				return true
			}
			fn := parser.GetNodeText(n.ChildByFieldName("function"), src)
			if fn == "" || !strings.Contains(fn, needle) {
				return true
			}
			line := parser.Line(n)
			ex := UsageExample{
				Filepath: file,
				Line:     line,
				Context:  window(lines, line, opts.ContextLines),
			}
			if scope := parser.Ancestor(n, "function_definition"); scope != nil {
				ex.ParentScope = functionName(scope, src, fileLang)
			}
			examples = append(examples, ex)
			return true
		})
	}
	return examples
}

// window returns the lines within n of the 1-based center line.
func window(lines []string, center, n int) []string {
	start := max(1, center-n)
	end := min(len(lines), center+n)
	if start > end {
		return []string{}
	}
	out := make([]string, 0, end-start+1)
	for i := start; i <= end; i++ {
		out = append(out, lines[i-1])
	}
	return out
}
