package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/panbanda/tsmcp/internal/output"
	"github.com/panbanda/tsmcp/pkg/analyzer"
	"github.com/panbanda/tsmcp/pkg/analyzer/depgraph"
	"github.com/panbanda/tsmcp/pkg/analyzer/hierarchy"
	"github.com/panbanda/tsmcp/pkg/analyzer/iface"
	"github.com/panbanda/tsmcp/pkg/analyzer/references"
	"github.com/panbanda/tsmcp/pkg/analyzer/summary"
	"github.com/panbanda/tsmcp/pkg/analyzer/symbol"
)

const maxCell = 80

func itoa(n int) string { return strconv.Itoa(n) }

func jsonText(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err.Error()
	}
	return string(data)
}

// rel shortens path relative to the working directory for display.
func rel(path string) string {
	wd, err := os.Getwd()
	if err != nil || !filepath.IsAbs(path) {
		return path
	}
	if r, err := filepath.Rel(wd, path); err == nil && !strings.HasPrefix(r, "..") {
		return r
	}
	return path
}

// basicResults flattens a single result or a batch.
func basicResults(v any) (ok []*analyzer.Result, failed [][]string) {
	var items []any
	switch r := v.(type) {
	case *analyzer.Result:
		items = []any{r}
	case *analyzer.Batch:
		items = r.Results
	}
	for _, item := range items {
		switch r := item.(type) {
		case *analyzer.Result:
			if r.Success {
				ok = append(ok, r)
				continue
			}
			msg := r.Error
			if r.Detail != "" {
				msg += ": " + r.Detail
			}
			failed = append(failed, []string{rel(r.Filepath), msg})
		case analyzer.ErrorEntry:
			failed = append(failed, []string{rel(r.Filepath), r.Error})
		}
	}
	return ok, failed
}

func failureTable(failed [][]string) output.Renderable {
	return output.NewTable("Failed", []string{"File", "Error"}, failed, nil, nil)
}

func statsView(v any) output.Renderable {
	results, failed := basicResults(v)
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			rel(r.Filepath),
			r.Language.String(),
			output.Mark(r.Stats.HasErrors),
			itoa(r.Stats.ClassCount),
			itoa(r.Stats.FunctionCount),
			itoa(r.Stats.IncludeCount),
		})
	}
	report := &output.Report{
		Title: "Parse Results",
		Parts: []output.Renderable{
			output.NewTable("", []string{"File", "Language", "Syntax Errors", "Classes", "Functions", "Includes"}, rows, nil, nil),
		},
		Data: v,
	}
	if len(failed) > 0 {
		report.Parts = append(report.Parts, failureTable(failed))
	}
	return report
}

func matchesView(title string, v any) output.Renderable {
	results, failed := basicResults(v)
	var rows [][]string
	for _, r := range results {
		for _, m := range r.Matches {
			rows = append(rows, []string{
				rel(r.Filepath),
				itoa(int(m.Line) + 1),
				m.CaptureName,
				truncate(m.Text, maxCell),
			})
		}
	}
	report := &output.Report{
		Title: title,
		Parts: []output.Renderable{
			output.NewTable("", []string{"File", "Line", "Capture", "Text"}, rows, []string{"", "", "Total", itoa(len(rows))}, nil),
		},
		Data: v,
	}
	if len(failed) > 0 {
		report.Parts = append(report.Parts, failureTable(failed))
	}
	return report
}

func hierarchyView(r *hierarchy.Result) output.Renderable {
	rows := make([][]string, 0, len(r.Classes))
	var methods [][]string
	for _, c := range r.Classes {
		rows = append(rows, []string{
			c.Name,
			fmt.Sprintf("%s:%d", rel(c.File), c.Line+1),
			strings.Join(c.BaseClasses, ", "),
			strings.Join(r.Hierarchy[c.Name].Children, ", "),
			output.Mark(c.IsAbstract),
		})
		for _, m := range c.VirtualMethods {
			flags := make([]string, 0, 3)
			if m.IsPureVirtual {
				flags = append(flags, "pure")
			}
			if m.IsOverride {
				flags = append(flags, "override")
			}
			if m.IsFinal {
				flags = append(flags, "final")
			}
			methods = append(methods, []string{c.Name, truncate(m.Signature, maxCell), m.Access, strings.Join(flags, " ")})
		}
	}

	parts := []output.Renderable{
		output.NewTable("Classes", []string{"Class", "Location", "Bases", "Derived", "Abstract"}, rows, nil, nil),
	}
	if len(methods) > 0 {
		parts = append(parts, output.NewTable("Virtual Methods", []string{"Class", "Signature", "Access", "Flags"}, methods, nil, nil))
	}
	return &output.Report{Title: "Class Hierarchy", Parts: parts, Data: r}
}

func graphView(a *depgraph.Analysis, format depgraph.Format) output.Renderable {
	rendered := a.Render(format)
	if g, ok := rendered.(*depgraph.Rendered); ok {
		return &output.Section{
			Title:   "Dependency Graph",
			Lang:    string(g.Format),
			Content: g.Content,
			Data:    g,
		}
	}

	r := rendered.(*depgraph.Result)
	nodes := make([][]string, 0, len(r.Nodes))
	for _, n := range r.Nodes {
		if n.IsSystem {
			continue
		}
		layer := ""
		if n.Layer != nil {
			layer = itoa(*n.Layer)
		}
		rank := ""
		if n.PageRank != nil {
			rank = fmt.Sprintf("%.4f", *n.PageRank)
		}
		nodes = append(nodes, []string{rel(n.File), layer, itoa(len(n.Includes)), itoa(len(n.IncludedBy)), rank})
	}
	cycles := make([][]string, 0, len(r.Cycles))
	for i, c := range r.Cycles {
		names := make([]string, len(c))
		for j, f := range c {
			names[j] = rel(f)
		}
		cycles = append(cycles, []string{itoa(i + 1), strings.Join(names, " -> ")})
	}

	return &output.Report{
		Title: "Dependency Graph",
		Parts: []output.Renderable{
			output.NewTable("Files", []string{"File", "Layer", "Includes", "Included By", "PageRank"}, nodes,
				[]string{"", "", itoa(r.TotalDependencies), "", ""}, nil),
			output.NewTable("Cycles", []string{"#", "Files"}, cycles, nil, nil),
		},
		Data: rendered,
	}
}

func symbolView(r *symbol.Result) output.Renderable {
	if r.Failed() {
		content := r.Error
		if len(r.Suggestions) > 0 {
			content += "\nDid you mean: " + strings.Join(r.Suggestions, ", ")
		}
		return &output.Section{Title: "Symbol " + r.SymbolName, Content: content, Data: r}
	}

	def := r.Symbol
	lang := "cpp"
	if strings.HasSuffix(def.Filepath, ".py") {
		lang = "python"
	}
	parts := []output.Renderable{
		&output.Section{
			Title:   fmt.Sprintf("%s %s (%s:%d-%d)", def.Type, def.Name, rel(def.Filepath), def.StartLine, def.EndLine),
			Lang:    lang,
			Content: def.FullCode,
		},
	}
	if r.WithDependencies {
		deps := make([][]string, 0, len(r.Dependencies))
		for _, d := range r.Dependencies {
			deps = append(deps, []string{d.Name, string(d.Type), fmt.Sprintf("%s:%d", rel(d.Filepath), d.StartLine), truncate(d.Signature, maxCell)})
		}
		parts = append(parts, output.NewTable("Dependencies", []string{"Name", "Kind", "Location", "Signature"}, deps, nil, nil))
	}
	if len(r.RequiredIncludes) > 0 {
		parts = append(parts, &output.Section{Title: "Required Includes", Content: strings.Join(r.RequiredIncludes, "\n")})
	}
	if len(r.UsageExamples) > 0 {
		examples := make([][]string, 0, len(r.UsageExamples))
		for _, u := range r.UsageExamples {
			examples = append(examples, []string{fmt.Sprintf("%s:%d", rel(u.Filepath), u.Line), u.ParentScope})
		}
		parts = append(parts, output.NewTable("Usage Examples", []string{"Location", "Scope"}, examples, nil, nil))
	}
	return &output.Report{Title: "Symbol Context", Parts: parts, Data: r}
}

func summaryView(v any) output.Renderable {
	var results []*summary.Result
	switch r := v.(type) {
	case *summary.Result:
		results = []*summary.Result{r}
	case *analyzer.Batch:
		for _, item := range r.Results {
			if s, ok := item.(*summary.Result); ok {
				results = append(results, s)
			}
		}
	}

	report := &output.Report{Title: "File Summary", Data: v}
	for _, r := range results {
		if r.Failed() {
			report.Parts = append(report.Parts, &output.Section{Title: rel(r.Filepath), Content: r.Error})
			continue
		}
		m := r.Metrics
		report.Parts = append(report.Parts, &output.Section{
			Title: rel(r.Filepath),
			Content: fmt.Sprintf("%s, %d lines: %d code, %d comment, %d blank",
				r.Language, m.TotalLines, m.CodeLines, m.CommentLines, m.BlankLines),
		})

		fns := make([][]string, 0, len(r.Functions))
		for _, f := range r.Functions {
			cx := ""
			if f.Complexity > 0 {
				cx = output.ComplexityColor(f.Complexity, itoa(f.Complexity))
			}
			fns = append(fns, []string{f.Name, itoa(f.Line), f.ReturnType, itoa(len(f.Parameters)), cx})
		}
		footer := []string{"", "", "", "", ""}
		if r.AverageComplexity != nil {
			footer = []string{"", "", "", "Average", fmt.Sprintf("%.1f", *r.AverageComplexity)}
		}
		report.Parts = append(report.Parts, output.NewTable("Functions", []string{"Name", "Line", "Returns", "Params", "Complexity"}, fns, footer, nil))

		if len(r.Markers) > 0 {
			markers := make([][]string, 0, len(r.Markers))
			for _, mk := range r.Markers {
				markers = append(markers, []string{mk.Type, itoa(mk.Line), truncate(mk.Text, maxCell)})
			}
			report.Parts = append(report.Parts, output.NewTable("Comment Markers", []string{"Type", "Line", "Text"}, markers, nil, nil))
		}
	}
	return report
}

// interfaceView prints header and markdown renderings verbatim; json goes
// through the formatter.
func interfaceView(v any, format iface.Format) output.Renderable {
	r, single := v.(*iface.Result)
	if !single || r.Failed() || format == iface.FormatJSON {
		return &output.Section{Title: "Interface", Content: jsonText(v), Data: v}
	}

	var buf bytes.Buffer
	lang := "cpp"
	if format == iface.FormatHeader {
		_ = r.RenderHeader(&buf)
		if strings.HasSuffix(r.Filepath, ".py") {
			lang = "python"
		}
	} else {
		_ = r.RenderMarkdown(&buf)
		lang = ""
	}
	return &output.Section{Lang: lang, Content: buf.String(), Data: v}
}

func referencesView(r *references.Result) output.Renderable {
	rows := make([][]string, 0, len(r.References))
	counts := map[references.Kind]int{}
	for _, ref := range r.References {
		counts[ref.Type]++
		rows = append(rows, []string{
			fmt.Sprintf("%s:%d:%d", rel(ref.Filepath), ref.Line, ref.Column),
			string(ref.Type),
			ref.ParentScope,
			truncate(ref.Context, maxCell),
		})
	}

	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	byKind := make([][]string, 0, len(kinds))
	for _, k := range kinds {
		byKind = append(byKind, []string{k, itoa(counts[references.Kind(k)])})
	}

	return &output.Report{
		Title: fmt.Sprintf("References to %s", r.Symbol),
		Parts: []output.Renderable{
			output.NewTable("", []string{"Location", "Type", "Scope", "Context"}, rows, nil, nil),
			output.NewTable("By Type", []string{"Type", "Count"}, byKind,
				[]string{"Files", fmt.Sprintf("%d/%d", r.FilesProcessed, r.FilesSearched)}, nil),
		},
		Data: r,
	}
}
