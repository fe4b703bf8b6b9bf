package symbol

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/panbanda/tsmcp/internal/testutil"
	"github.com/panbanda/tsmcp/pkg/analyzer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shapesCPP = `#include <string>
#include "point.h"

struct Point {
    int x;
    int y;
};

class Shape {
public:
    virtual double area() const = 0;
};

class Circle : public Shape {
public:
    double area() const override { return 3.14 * radius * radius; }
    Point center() const { return origin; }
private:
    Point origin;
    double radius;
};

double total_area(Shape* shapes[], int n) {
    double sum = 0;
    for (int i = 0; i < n; i++) {
        sum += shapes[i]->area();
    }
    return sum;
}

int main() {
    Circle c;
    Point p = make_point();
    return static_cast<int>(total_area(nullptr, 0));
}
`

const appCPP = `double total_area(Shape* shapes[], int n);
void report() {
    double a = total_area(nullptr, 0);
}
`

func writeShapes(t *testing.T) string {
	t.Helper()
	return testutil.WriteFile(t, filepath.Join(testutil.TempDir(t), "shapes.cpp"), shapesCPP)
}

func fieldKeys(r *Result) []string {
	var keys []string
	for k := range r.Fields() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestResolveFunction(t *testing.T) {
	path := writeShapes(t)
	r := New(analyzer.New())

	res := r.Resolve(context.Background(), "total_area", path, DefaultOptions())
	require.False(t, res.Failed(), res.Error)

	def := res.Symbol
	assert.Equal(t, "total_area", def.Name)
	assert.Equal(t, KindFunction, def.Type)
	assert.Equal(t, path, def.Filepath)
	assert.Equal(t, 23, def.StartLine)
	assert.Equal(t, 29, def.EndLine)
	assert.Equal(t, "double total_area(Shape* shapes[], int n);", def.Signature)
	assert.True(t, strings.HasPrefix(def.FullCode, "double total_area("))
	assert.True(t, strings.HasSuffix(def.FullCode, "return sum;\n}"))
	assert.Empty(t, def.ParentClass)

	assert.Equal(t, 2, res.UsedSymbolsCount)
	require.Len(t, res.Dependencies, 1)
	assert.Equal(t, "Shape", res.Dependencies[0].Name)
	assert.Equal(t, KindClass, res.Dependencies[0].Type)
	assert.Equal(t, "class Shape;", res.Dependencies[0].Signature)
	assert.Empty(t, res.Dependencies[0].Definition)
	assert.Equal(t, []string{`#include <string>`, `#include "point.h"`}, res.RequiredIncludes)

	assert.Equal(t, []string{
		"dependencies", "dependencies_found", "required_includes", "success",
		"symbol", "usage_examples_found", "used_symbols_count",
	}, fieldKeys(res))
}

func TestResolveQualifiedMethod(t *testing.T) {
	path := writeShapes(t)
	r := New(analyzer.New())

	res := r.Resolve(context.Background(), "Circle::area", path, DefaultOptions())
	require.False(t, res.Failed(), res.Error)
	assert.Equal(t, KindMethod, res.Symbol.Type)
	assert.Equal(t, "Circle", res.Symbol.ParentClass)
	assert.Equal(t, 16, res.Symbol.StartLine)
	assert.Contains(t, res.Symbol.Signature, "area() const")
	assert.True(t, strings.HasSuffix(res.Symbol.Signature, ";"))
}

func TestResolveClass(t *testing.T) {
	path := writeShapes(t)
	r := New(analyzer.New())

	res := r.Resolve(context.Background(), "Circle", path, DefaultOptions())
	require.False(t, res.Failed(), res.Error)
	assert.Equal(t, KindClass, res.Symbol.Type)
	assert.Equal(t, "class Circle : public Shape;", res.Symbol.Signature)
	assert.Equal(t, 14, res.Symbol.StartLine)
	assert.Equal(t, 21, res.Symbol.EndLine)

	var names []string
	for _, d := range res.Dependencies {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"Shape", "Point"}, names)
	assert.Equal(t, 2, res.DependenciesFound)
}

func TestResolveCapsDependencies(t *testing.T) {
	path := writeShapes(t)
	r := New(analyzer.New())

	opts := DefaultOptions()
	opts.MaxDependencies = 1
	res := r.Resolve(context.Background(), "Circle", path, opts)
	require.False(t, res.Failed())
	assert.Len(t, res.Dependencies, 1)
	assert.Equal(t, 2, res.DependenciesFound)
}

func TestResolveWithoutDependencies(t *testing.T) {
	path := writeShapes(t)
	r := New(analyzer.New())

	opts := DefaultOptions()
	opts.IncludeDependencies = false
	res := r.Resolve(context.Background(), "main", path, opts)
	require.False(t, res.Failed())
	assert.Equal(t, []string{"success", "symbol"}, fieldKeys(res))
}

func TestResolveNotFound(t *testing.T) {
	path := writeShapes(t)
	r := New(analyzer.New())

	res := r.Resolve(context.Background(), "Circel", path, DefaultOptions())
	require.True(t, res.Failed())
	assert.Equal(t, ErrNotFound, res.Error)
	assert.Contains(t, res.Suggestions, "Circle")

	data, err := json.Marshal(res)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "Symbol not found", m["error"])
	assert.Equal(t, "Circel", m["symbol_name"])
	assert.Equal(t, path, m["filepath"])
	assert.Equal(t, false, m["success"])
}

func TestResolveUnsupportedFile(t *testing.T) {
	path := testutil.WriteFile(t, filepath.Join(testutil.TempDir(t), "notes.txt"), "hello\n")
	r := New(analyzer.New())

	res := r.Resolve(context.Background(), "hello", path, DefaultOptions())
	assert.Equal(t, ErrUnsupportedFile, res.Error)
	assert.Equal(t, path, res.Filepath)
}

func TestResolveMissingFile(t *testing.T) {
	r := New(analyzer.New())
	res := r.Resolve(context.Background(), "x", filepath.Join(testutil.TempDir(t), "gone.cpp"), DefaultOptions())
	assert.Equal(t, analyzer.ErrParseFailed, res.Error)
}

func TestResolveUsageExamples(t *testing.T) {
	dir := testutil.TempDir(t)
	testutil.CreateFileTree(t, dir, map[string]string{
		"src/shapes.cpp": shapesCPP,
		"src/app.cpp":    appCPP,
	})
	r := New(analyzer.New())

	opts := DefaultOptions()
	opts.IncludeUsageExamples = true
	opts.ContextLines = 1
	res := r.Resolve(context.Background(), "total_area", filepath.Join(dir, "src", "shapes.cpp"), opts)
	require.False(t, res.Failed(), res.Error)

	require.Len(t, res.UsageExamples, 2)
	assert.Equal(t, 2, res.UsageExamplesFound)

	first := res.UsageExamples[0]
	assert.Equal(t, filepath.Join(dir, "src", "app.cpp"), first.Filepath)
	assert.Equal(t, 3, first.Line)
	assert.Equal(t, "report", first.ParentScope)
	assert.Equal(t, []string{
		"void report() {",
		"    double a = total_area(nullptr, 0);",
		"}",
	}, first.Context)

	second := res.UsageExamples[1]
	assert.Equal(t, 34, second.Line)
	assert.Equal(t, "main", second.ParentScope)

	opts.MaxUsageExamples = 1
	res = r.Resolve(context.Background(), "total_area", filepath.Join(dir, "src", "shapes.cpp"), opts)
	assert.Len(t, res.UsageExamples, 1)
}

func TestResolveExternalTypes(t *testing.T) {
	dir := testutil.TempDir(t)
	testutil.CreateFileTree(t, dir, map[string]string{
		"include/vec.h": "struct Vec {\n    float x;\n};\n",
		"src/user.cpp":  "#include \"vec.h\"\nfloat length(Vec v) { return v.x; }\n",
	})
	user := filepath.Join(dir, "src", "user.cpp")
	r := New(analyzer.New())
	ctx := context.Background()

	res := r.Resolve(ctx, "length", user, DefaultOptions())
	require.False(t, res.Failed(), res.Error)
	assert.Empty(t, res.Dependencies)
	assert.Equal(t, 1, res.UsedSymbolsCount)

	opts := DefaultOptions()
	opts.ResolveExternalTypes = true
	res = r.Resolve(ctx, "length", user, opts)
	require.Len(t, res.Dependencies, 1)
	dep := res.Dependencies[0]
	assert.Equal(t, "Vec", dep.Name)
	assert.Equal(t, filepath.Join(dir, "include", "vec.h"), dep.Filepath)
	assert.Equal(t, "struct Vec;", dep.Signature)
	assert.Contains(t, dep.Definition, "float x;")

	opts.SearchPaths = []string{filepath.Join(dir, "src")}
	res = r.Resolve(ctx, "length", user, opts)
	assert.Empty(t, res.Dependencies)
}

func TestResolvePython(t *testing.T) {
	path := testutil.Fixture(t, "simple_class.py")
	r := New(analyzer.New())
	ctx := context.Background()

	res := r.Resolve(ctx, "Calculator.divide", path, DefaultOptions())
	require.False(t, res.Failed(), res.Error)
	assert.Equal(t, KindMethod, res.Symbol.Type)
	assert.Equal(t, "Calculator", res.Symbol.ParentClass)
	assert.Equal(t, 23, res.Symbol.StartLine)
	assert.Equal(t, "def divide(self, x, y)", res.Symbol.Signature)
	assert.Equal(t, 1, res.UsedSymbolsCount)

	res = r.Resolve(ctx, "ScientificCalculator", path, DefaultOptions())
	require.False(t, res.Failed(), res.Error)
	assert.Equal(t, KindClass, res.Symbol.Type)
	assert.Equal(t, "class ScientificCalculator(Calculator)", res.Symbol.Signature)
}

func TestLocateSubstringMatch(t *testing.T) {
	path := writeShapes(t)
	a := analyzer.New()
	e, err := a.Parse(context.Background(), path, "")
	require.NoError(t, err)

	loc, node := Locate(e.Root(), e.Source(), e.Language, "total", path)
	require.NotNil(t, loc)
	assert.Equal(t, "function_definition", node.Type())
	assert.Equal(t, 23, loc.StartLine)

	loc, _ = Locate(e.Root(), e.Source(), e.Language, "", path)
	assert.Nil(t, loc)
}

func TestWindow(t *testing.T) {
	lines := []string{"a", "b", "c", "d"}
	assert.Equal(t, []string{"a", "b"}, window(lines, 1, 1))
	assert.Equal(t, []string{"b", "c", "d"}, window(lines, 3, 1))
	assert.Equal(t, []string{"c"}, window(lines, 3, 0))
}
