package analyzer

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/panbanda/tsmcp/internal/testutil"
	"github.com/panbanda/tsmcp/pkg/parser"
	"github.com/panbanda/tsmcp/pkg/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const calculatorCPP = `#include <iostream>
#include <vector>
#include "calculator.h"
#include "utils/math.h"

class Calculator {
public:
    int add(int a, int b) { return a + b; }
    int subtract(int a, int b) { return a - b; }
};
`

func toMap(t *testing.T, v any) map[string]any {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestAnalyzeFile(t *testing.T) {
	path := testutil.WriteFile(t, filepath.Join(testutil.TempDir(t), "calc.cpp"), calculatorCPP)
	a := New()
	defer a.Close()

	r := a.AnalyzeFile(context.Background(), path, "")
	require.True(t, r.Success)

	m := toMap(t, r)
	assert.Equal(t, []string{
		"class_count", "filepath", "function_count", "has_errors",
		"include_count", "language", "success",
	}, keys(m))
	assert.Equal(t, path, m["filepath"])
	assert.Equal(t, "cpp", m["language"])
	assert.Equal(t, false, m["has_errors"])
	assert.EqualValues(t, 1, m["class_count"])
	assert.EqualValues(t, 2, m["function_count"])
	assert.EqualValues(t, 4, m["include_count"])
}

func TestAnalyzeFilePython(t *testing.T) {
	path := testutil.Fixture(t, "simple_class.py")
	a := New()

	r := a.AnalyzeFile(context.Background(), path, "")
	require.True(t, r.Success)
	assert.Equal(t, parser.LangPython, r.Language)
	assert.Equal(t, 2, r.Stats.ClassCount)
	assert.Equal(t, 7, r.Stats.FunctionCount)
	assert.Equal(t, 0, r.Stats.IncludeCount)
}

func TestFindClasses(t *testing.T) {
	path := testutil.WriteFile(t, filepath.Join(testutil.TempDir(t), "calc.cpp"), calculatorCPP)
	a := New()

	r := a.FindClasses(context.Background(), path, "")
	require.True(t, r.Success)
	require.Len(t, r.Matches, 1)
	assert.Equal(t, "class_name", r.Matches[0].CaptureName)
	assert.Equal(t, "Calculator", r.Matches[0].Text)

	m := toMap(t, r)
	classes, ok := m["classes"].([]any)
	require.True(t, ok, "classes should be a JSON array")
	first := classes[0].(map[string]any)
	assert.Equal(t, []string{"capture_name", "column", "line", "text"}, keys(first))
}

func TestFindFunctions(t *testing.T) {
	path := testutil.WriteFile(t, filepath.Join(testutil.TempDir(t), "calc.cpp"), calculatorCPP)
	a := New()

	r := a.FindFunctions(context.Background(), path, "")
	require.True(t, r.Success)
	assert.Len(t, r.Matches, 2)
	assert.Equal(t, "func_def", r.Matches[0].CaptureName)
	assert.Contains(t, toMap(t, r), "functions")
}

func TestFindIncludes(t *testing.T) {
	path := testutil.Fixture(t, "with_imports.py")
	a := New()

	r := a.FindIncludes(context.Background(), path, "")
	require.True(t, r.Success)
	assert.Len(t, r.Matches, 7)
	assert.Contains(t, toMap(t, r), "includes")
}

func TestFindClassesEmptyFileIsEmptyArray(t *testing.T) {
	path := testutil.WriteFile(t, filepath.Join(testutil.TempDir(t), "empty.cpp"), "int main() { return 0; }\n")
	a := New()

	m := toMap(t, a.FindClasses(context.Background(), path, ""))
	classes, ok := m["classes"].([]any)
	require.True(t, ok, "classes should be an array, got %T", m["classes"])
	assert.Empty(t, classes)
}

func TestExecuteQuery(t *testing.T) {
	path := testutil.WriteFile(t, filepath.Join(testutil.TempDir(t), "calc.cpp"), calculatorCPP)
	a := New()

	r := a.ExecuteQuery(context.Background(), path, "(preproc_include) @include", "")
	require.True(t, r.Success)
	require.Len(t, r.Matches, 4)
	assert.Equal(t, "include", r.Matches[0].CaptureName)
	assert.Contains(t, toMap(t, r), "matches")
}

func TestExecuteQueryInvalidPattern(t *testing.T) {
	dir := testutil.TempDir(t)
	for _, name := range []string{"calc.cpp", "calc.py"} {
		path := testutil.WriteFile(t, filepath.Join(dir, name), "x = 1\n")
		a := New()

		r := a.ExecuteQuery(context.Background(), path, "invalid(((", "")
		assert.False(t, r.Success, name)
		assert.Equal(t, ErrCompileFailed, r.Error, name)
		assert.NotEmpty(t, r.Detail, name)

		m := toMap(t, r)
		assert.Contains(t, m, "error")
		assert.NotContains(t, m, "matches")
	}
}

func TestAnalyzeFileNonexistent(t *testing.T) {
	a := New()
	path := filepath.Join(testutil.TempDir(t), "nonexistent.cpp")

	r := a.AnalyzeFile(context.Background(), path, "")
	assert.False(t, r.Success)
	assert.Equal(t, ErrParseFailed, r.Error)

	m := toMap(t, r)
	assert.Equal(t, []string{"error", "filepath", "language", "success"}, keys(m))
}

func TestFindClassesUnsupportedKind(t *testing.T) {
	path := testutil.WriteFile(t, filepath.Join(testutil.TempDir(t), "x.py"), "x = 1\n")
	a := New()

	// Templates only exist for C++, so the Python catalog has no entry.
	r := a.findKind(context.Background(), path, "", parser.QueryTemplates, "templates", "Templates")
	assert.False(t, r.Success)
	assert.Equal(t, "Templates query not supported for this language", r.Error)
}

func TestDetectLanguageFallsBackToCPP(t *testing.T) {
	a := New()
	assert.Equal(t, parser.LangCPP, a.DetectLanguage("notes.txt", ""))
	assert.Equal(t, parser.LangPython, a.DetectLanguage("x.py", ""))
	assert.Equal(t, parser.LangPython, a.DetectLanguage("x.cpp", parser.LangPython))
}

func TestCacheBehavior(t *testing.T) {
	path := testutil.WriteFile(t, filepath.Join(testutil.TempDir(t), "calc.cpp"), calculatorCPP)
	a := New()
	ctx := context.Background()

	assert.Equal(t, 0, a.CacheSize())

	r1 := a.AnalyzeFile(ctx, path, "")
	require.True(t, r1.Success)
	assert.Equal(t, 1, a.CacheSize())

	first, err := a.Parse(ctx, path, "")
	require.NoError(t, err)

	r2 := a.AnalyzeFile(ctx, path, "")
	require.True(t, r2.Success)
	assert.Equal(t, 1, a.CacheSize())
	assert.Equal(t, r1.Stats, r2.Stats)

	again, err := a.Parse(ctx, path, "")
	require.NoError(t, err)
	assert.Same(t, first, again, "unchanged file should reuse the cached parse")

	// Rewrite identical content with a new mtime.
	testutil.WriteFile(t, path, calculatorCPP)
	testutil.Touch(t, path, time.Now().Add(time.Hour))
	touched, err := a.Parse(ctx, path, "")
	require.NoError(t, err)
	assert.NotSame(t, first, touched, "mtime change should force a re-parse")
	assert.Equal(t, 1, a.CacheSize())

	a.ClearCache()
	assert.Equal(t, 0, a.CacheSize())

	r3 := a.AnalyzeFile(ctx, path, "")
	require.True(t, r3.Success)
	assert.Equal(t, 1, a.CacheSize())
}

func TestBatchIsolation(t *testing.T) {
	dir := testutil.TempDir(t)
	files := []string{
		testutil.WriteFile(t, filepath.Join(dir, "a.cpp"), "class A {};\n"),
		filepath.Join(dir, "missing.cpp"),
		testutil.WriteFile(t, filepath.Join(dir, "c.cpp"), "class C {}; class D {};\n"),
	}
	a := New()

	b := a.AnalyzeFiles(context.Background(), files)
	assert.False(t, b.Success)
	assert.Equal(t, 3, b.TotalFiles)
	assert.Equal(t, 2, b.ProcessedFiles)
	assert.Equal(t, 1, b.FailedFiles)

	m := toMap(t, b)
	assert.Equal(t, []string{"failed_files", "processed_files", "results", "success", "total_files"}, keys(m))

	results := m["results"].([]any)
	require.Len(t, results, 3)
	second := results[1].(map[string]any)
	assert.Contains(t, second, "error")
	assert.Equal(t, files[1], second["filepath"])

	for _, i := range []int{0, 2} {
		entry := results[i].(map[string]any)
		assert.NotContains(t, entry, "error")
		assert.Equal(t, true, entry["success"])
		assert.Contains(t, entry, "class_count")
	}
	assert.EqualValues(t, 2, results[2].(map[string]any)["class_count"])
}

func TestBatchVariants(t *testing.T) {
	dir := testutil.TempDir(t)
	files := []string{
		testutil.WriteFile(t, filepath.Join(dir, "a.cpp"), "class A {}; void f() {}\n"),
		testutil.WriteFile(t, filepath.Join(dir, "b.py"), "class B:\n    def g(self):\n        pass\n"),
	}
	a := New()
	ctx := context.Background()

	for name, b := range map[string]*Batch{
		"classes":   a.FindClassesInFiles(ctx, files),
		"functions": a.FindFunctionsInFiles(ctx, files),
		"query":     a.ExecuteQueryOnFiles(ctx, files, "(identifier) @id"),
	} {
		assert.True(t, b.Success, name)
		assert.Equal(t, 2, b.ProcessedFiles, name)
	}

	// A C++-only node type fails to compile for the Python file only.
	b := a.ExecuteQueryOnFiles(ctx, files, "(class_specifier) @c")
	assert.Equal(t, 1, b.FailedFiles)
	assert.Equal(t, 1, b.ProcessedFiles)
}

type fakeOutcome struct{ ok bool }

func (f fakeOutcome) Failed() bool { return !f.ok }

func TestRunBatchRecoversPanics(t *testing.T) {
	b := RunBatch(context.Background(), []string{"one", "boom", "three"}, func(path string) fakeOutcome {
		if path == "boom" {
			panic("exploded")
		}
		return fakeOutcome{ok: true}
	})

	assert.Equal(t, 3, b.TotalFiles)
	assert.Equal(t, 2, b.ProcessedFiles)
	assert.Equal(t, 1, b.FailedFiles)
	entry, ok := b.Results[1].(ErrorEntry)
	require.True(t, ok)
	assert.Equal(t, "boom", entry.Filepath)
	assert.Equal(t, "exploded", entry.Error)
	assert.False(t, entry.Success)
}

func TestRunBatchEmpty(t *testing.T) {
	b := RunBatch(context.Background(), nil, func(string) *Result { return nil })
	assert.True(t, b.Success)
	assert.Equal(t, 0, b.TotalFiles)
	assert.NotNil(t, b.Results)
}

func TestRunReturnsCatalogAbsence(t *testing.T) {
	path := testutil.WriteFile(t, filepath.Join(testutil.TempDir(t), "x.py"), "@d\ndef f():\n    pass\n")
	a := New()
	e, err := a.Parse(context.Background(), path, "")
	require.NoError(t, err)

	_, ok, err := a.Run(e, parser.QueryTemplates)
	assert.False(t, ok)
	assert.NoError(t, err)

	var nodes []query.NodeMatch
	nodes, ok, err = a.RunNodes(e, parser.QueryDecorators)
	require.True(t, ok)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "decorator", nodes[0].Node.Type())
}
