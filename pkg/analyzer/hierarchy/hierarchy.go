// Package hierarchy extracts C++ class inheritance and virtual method
// information and assembles it into a navigable hierarchy.
package hierarchy

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/panbanda/tsmcp/internal/cache"
	"github.com/panbanda/tsmcp/pkg/analyzer"
	"github.com/panbanda/tsmcp/pkg/parser"
	"github.com/panbanda/tsmcp/pkg/query"
	sitter "github.com/smacker/go-tree-sitter"
)

// classPattern captures every class name along with its optional base
// clause.
const classPattern = `(class_specifier
  name: (type_identifier) @class_name
  (base_class_clause)? @base_clause)`

// maxSuggestions bounds the class names offered when a focus class is missing.
const maxSuggestions = 5

var pureVirtualTail = regexp.MustCompile(`=\s*0\s*;?\s*$`)

// Analyzer builds class hierarchies over a shared analysis session.
type Analyzer struct {
	session *analyzer.Analyzer
}

// New creates a hierarchy analyzer backed by session's parse cache.
func New(session *analyzer.Analyzer) *Analyzer {
	return &Analyzer{session: session}
}

// Analyze extracts classes from every C++ file in files and builds the
// hierarchy. Files in other languages are skipped without counting as
// failures. A missing focus class yields a *ClassNotFoundError.
func (a *Analyzer) Analyze(ctx context.Context, files []string, opts Options) (*Result, error) {
	logger := a.session.Logger()
	res := &Result{TotalFiles: len(files)}
	classes := make(map[string]*ClassInfo)

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if parser.DetectLanguage(path) != parser.LangCPP {
			continue
		}
		e, err := a.session.Parse(ctx, path, parser.LangCPP)
		if err != nil {
			res.FilesFailed++
			continue
		}
		found, err := a.extract(e, path)
		if err != nil {
			logger.Error("failed to run class query", "path", path, "error", err)
			res.FilesFailed++
			continue
		}
		res.FilesProcessed++
		for _, c := range found {
			merge(classes, c)
		}
	}

	if opts.ShowVirtualOnly {
		for name, c := range classes {
			if len(c.VirtualMethods) == 0 {
				delete(classes, name)
			}
		}
	}

	h := Build(classes)

	if opts.ClassName != "" {
		// The focus must be declared in a scanned file. Bases that only
		// appear in base clauses are graph nodes but not classes.
		if _, ok := classes[opts.ClassName]; !ok {
			return nil, &ClassNotFoundError{
				Name:        opts.ClassName,
				Suggestions: analyzer.Suggest(opts.ClassName, sortedKeys(classes), maxSuggestions),
			}
		}
		keep := Filter(h, opts.ClassName, opts.MaxDepth)
		for name := range classes {
			if !keep[name] {
				delete(classes, name)
			}
		}
		h = Build(classes)
	}

	names := make([]string, 0, len(classes))
	for name := range classes {
		names = append(names, name)
	}
	sort.Strings(names)

	res.Classes = make([]ClassInfo, 0, len(names))
	for _, name := range names {
		c := *classes[name]
		c.hideMethods = !opts.ShowMethods
		res.Classes = append(res.Classes, c)
	}
	res.TotalClasses = len(res.Classes)
	res.Hierarchy = h
	res.Success = true

	logger.Debug("built class hierarchy", "files", res.FilesProcessed, "classes", res.TotalClasses)
	return res, nil
}

// extract returns the classes declared in one parsed file. Within a file a
// later declaration of the same name replaces an earlier one.
func (a *Analyzer) extract(e *cache.Entry, path string) ([]*ClassInfo, error) {
	q, err := a.session.Queries().Compile(classPattern, parser.LangCPP)
	if err != nil {
		return nil, err
	}

	src := e.Source()
	byName := make(map[string]*ClassInfo)
	var order []string
	for _, m := range query.ExecuteNodes(e.Root(), q, src, query.WithLogger(a.session.Logger())) {
		if m.CaptureName != "class_name" {
			continue
		}
		spec := m.Node.Parent()
		if spec == nil || spec.Type() != "class_specifier" {
			continue
		}
		info := &ClassInfo{
			Name:        m.Text,
			Line:        m.Line,
			File:        path,
			BaseClasses: baseClasses(spec, src),
		}
		if body := spec.ChildByFieldName("body"); body != nil {
			info.VirtualMethods = virtualMethods(body, src)
		}
		for _, vm := range info.VirtualMethods {
			if vm.IsPureVirtual {
				info.IsAbstract = true
				break
			}
		}
		if _, seen := byName[info.Name]; !seen {
			order = append(order, info.Name)
		}
		byName[info.Name] = info
	}

	out := make([]*ClassInfo, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out, nil
}

func baseClasses(spec *sitter.Node, src []byte) []string {
	bases := []string{}
	clause := parser.ChildOfType(spec, "base_class_clause")
	if clause == nil {
		return bases
	}
	for i := range int(clause.ChildCount()) {
		child := clause.Child(i)
		switch child.Type() {
		case "type_identifier", "qualified_identifier", "template_type":
			bases = append(bases, parser.GetNodeText(child, src))
		case "base_class_specifier":
			// Older grammars wrap each base in its own node.
			if name := parser.ChildOfType(child, "type_identifier", "qualified_identifier", "template_type"); name != nil {
				bases = append(bases, parser.GetNodeText(name, src))
			}
		}
	}
	return bases
}

func virtualMethods(body *sitter.Node, src []byte) []VirtualMethod {
	var methods []VirtualMethod
	access := "private"

	for i := range int(body.ChildCount()) {
		member := body.Child(i)
		switch member.Type() {
		case "access_specifier":
			text := parser.GetNodeText(member, src)
			switch {
			case strings.Contains(text, "public"):
				access = "public"
			case strings.Contains(text, "protected"):
				access = "protected"
			case strings.Contains(text, "private"):
				access = "private"
			}
			continue
		case "function_definition", "field_declaration", "declaration":
		default:
			continue
		}

		decl := functionDeclarator(member)
		if decl == nil {
			continue
		}

		text := parser.GetNodeText(member, src)
		vm := VirtualMethod{
			Line:       uint32(parser.Line(member)),
			Access:     access,
			IsOverride: strings.Contains(text, "override"),
			IsFinal:    strings.Contains(text, "final"),
		}
		virtual := vm.IsOverride || vm.IsFinal
		for j := range int(member.ChildCount()) {
			child := member.Child(j)
			switch child.Type() {
			case "virtual", "virtual_function_specifier":
				virtual = true
			case "pure_virtual_clause":
				vm.IsPureVirtual = true
			}
			if !virtual && parser.GetNodeText(child, src) == "virtual" {
				virtual = true
			}
		}
		if !vm.IsPureVirtual && member.Type() != "function_definition" && pureVirtualTail.MatchString(text) {
			vm.IsPureVirtual = true
		}
		if !virtual && !vm.IsPureVirtual {
			continue
		}

		vm.Name = parser.GetNodeText(decl.ChildByFieldName("declarator"), src)
		sig := parser.GetNodeText(decl, src)
		if vm.IsOverride && !strings.Contains(sig, "override") {
			sig += " override"
		}
		if vm.IsFinal && !strings.Contains(sig, "final") {
			sig += " final"
		}
		if vm.IsPureVirtual {
			sig += " = 0"
		}
		vm.Signature = sig
		methods = append(methods, vm)
	}
	return methods
}

// functionDeclarator finds the function declarator of a member, looking
// through pointer and reference declarators.
func functionDeclarator(member *sitter.Node) *sitter.Node {
	d := member.ChildByFieldName("declarator")
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

// merge folds c into classes. Base classes are de-duplicated and virtual
// methods appended; the first declaration keeps its file and line.
func merge(classes map[string]*ClassInfo, c *ClassInfo) {
	existing, ok := classes[c.Name]
	if !ok {
		classes[c.Name] = c
		return
	}
	for _, base := range c.BaseClasses {
		dup := false
		for _, have := range existing.BaseClasses {
			if have == base {
				dup = true
				break
			}
		}
		if !dup {
			existing.BaseClasses = append(existing.BaseClasses, base)
		}
	}
	existing.VirtualMethods = append(existing.VirtualMethods, c.VirtualMethods...)
	existing.IsAbstract = existing.IsAbstract || c.IsAbstract
}

// Build derives the hierarchy map from classes. Base classes that were
// never declared still get an entry so the graph stays connected.
func Build(classes map[string]*ClassInfo) map[string]Node {
	children := make(map[string]map[string]bool)
	ensure := func(name string) {
		if children[name] == nil {
			children[name] = make(map[string]bool)
		}
	}
	for name, c := range classes {
		ensure(name)
		for _, base := range c.BaseClasses {
			ensure(base)
			children[base][name] = true
		}
	}

	h := make(map[string]Node, len(children))
	for name, set := range children {
		node := Node{
			Children: make([]string, 0, len(set)),
			Parents:  []string{},
		}
		for child := range set {
			node.Children = append(node.Children, child)
		}
		sort.Strings(node.Children)
		if c, ok := classes[name]; ok {
			node.Parents = append(node.Parents, c.BaseClasses...)
			node.IsAbstract = c.IsAbstract
		}
		h[name] = node
	}
	return h
}

// Filter returns the classes reachable from root by following children
// and parents. With maxDepth >= 0, classes farther than maxDepth steps
// from root are not expanded further.
func Filter(h map[string]Node, root string, maxDepth int) map[string]bool {
	names := sortedKeys(h)
	ids := make(map[string]uint32, len(names))
	for i, name := range names {
		ids[name] = uint32(i)
	}

	visited := roaring.New()
	type item struct {
		name  string
		depth int
	}
	queue := []item{{root, 0}}
	visited.Add(ids[root])

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if maxDepth >= 0 && cur.depth >= maxDepth {
			continue
		}
		node := h[cur.name]
		for _, group := range [][]string{node.Children, node.Parents} {
			for _, next := range group {
				id, ok := ids[next]
				if !ok || visited.Contains(id) {
					continue
				}
				visited.Add(id)
				queue = append(queue, item{next, cur.depth + 1})
			}
		}
	}

	keep := make(map[string]bool, visited.GetCardinality())
	it := visited.Iterator()
	for it.HasNext() {
		keep[names[it.Next()]] = true
	}
	return keep
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for name := range m {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
