package iface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/panbanda/tsmcp/internal/testutil"
	"github.com/panbanda/tsmcp/pkg/analyzer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shapesHPP = `#include <string>

namespace geo {

// A drawable shape.
class Shape {
public:
    // Area in square units.
    virtual double area() const = 0;
    std::string name() const { return name_; }
protected:
    int id;
private:
    std::string name_;
    void reset();
};

struct Point {
    int x;
    int y;
};

class Circle : public Shape {
public:
    Circle(double r) : r_(r) {}
    double area() const override { return 3.14 * r_ * r_; }
private:
    double r_;
};

// Distance between two points.
double distance(Point a, Point b);

int helper(int x) {
    return x * 2;
}

}
`

const accountPY = `class Account:
    rate = 0.5
    _secret = 1

    def deposit(self, amount: int) -> None:
        pass

    def _audit(self):
        pass

    def __repr__(self):
        return "Account"
`

func writeSource(t *testing.T, name, src string) string {
	t.Helper()
	return testutil.WriteFile(t, filepath.Join(testutil.TempDir(t), name), src)
}

func signatures(fns []Function) []string {
	out := make([]string, 0, len(fns))
	for _, fn := range fns {
		out = append(out, fn.Signature)
	}
	return out
}

func TestExtractCPP(t *testing.T) {
	path := writeSource(t, "shapes.hpp", shapesHPP)
	r := New(analyzer.New()).Extract(context.Background(), path, DefaultOptions())
	require.False(t, r.Failed(), r.Error)

	assert.Equal(t, []Namespace{{Name: "geo", Line: 3}}, r.Namespaces)

	require.Len(t, r.Classes, 3)
	shape := r.Classes[0]
	assert.Equal(t, "Shape", shape.Name)
	assert.Equal(t, "class", shape.Kind)
	assert.Equal(t, 6, shape.Line)
	assert.Equal(t, "// A drawable shape.", shape.Comment)
	assert.Equal(t, []string{
		"virtual double area() const = 0;",
		"std::string name() const;",
	}, signatures(shape.Methods))
	assert.Equal(t, "public", shape.Methods[0].Access)
	assert.Equal(t, "// Area in square units.", shape.Methods[0].Comment)
	assert.Equal(t, []Member{{Declaration: "int id", Line: 12, Access: "protected"}}, shape.Members)

	point := r.Classes[1]
	assert.Equal(t, "struct", point.Kind)
	assert.Empty(t, point.Methods)
	assert.Equal(t, []Member{
		{Declaration: "int x", Line: 19, Access: "public"},
		{Declaration: "int y", Line: 20, Access: "public"},
	}, point.Members)

	circle := r.Classes[2]
	assert.Equal(t, []string{"Shape"}, circle.BaseClasses)
	assert.Equal(t, []string{
		"Circle(double r);",
		"double area() const override;",
	}, signatures(circle.Methods))
	assert.Empty(t, circle.Members)

	assert.Equal(t, []string{
		"double distance(Point a, Point b);",
		"int helper(int x);",
	}, signatures(r.Functions))
	assert.Equal(t, "// Distance between two points.", r.Functions[0].Comment)
	assert.Equal(t, 34, r.Functions[1].Line)
	assert.Empty(t, r.Functions[1].Access)
}

func TestExtractIncludePrivate(t *testing.T) {
	path := writeSource(t, "shapes.hpp", shapesHPP)
	opts := DefaultOptions()
	opts.IncludePrivate = true
	r := New(analyzer.New()).Extract(context.Background(), path, opts)
	require.False(t, r.Failed(), r.Error)

	shape := r.Classes[0]
	assert.Contains(t, signatures(shape.Methods), "void reset();")
	require.Len(t, shape.Members, 2)
	assert.Equal(t, "std::string name_", shape.Members[1].Declaration)
	assert.Equal(t, "private", shape.Members[1].Access)

	assert.Equal(t, []Member{{Declaration: "double r_", Line: 28, Access: "private"}}, r.Classes[2].Members)
}

func TestExtractWithoutComments(t *testing.T) {
	path := writeSource(t, "shapes.hpp", shapesHPP)
	opts := DefaultOptions()
	opts.IncludeComments = false
	r := New(analyzer.New()).Extract(context.Background(), path, opts)

	assert.Empty(t, r.Classes[0].Comment)
	assert.Empty(t, r.Classes[0].Methods[0].Comment)
	assert.Empty(t, r.Functions[0].Comment)
}

func TestExtractJSONShape(t *testing.T) {
	path := writeSource(t, "shapes.hpp", shapesHPP)
	r := New(analyzer.New()).Extract(context.Background(), path, DefaultOptions())

	data, err := json.Marshal(r)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))

	assert.Equal(t, true, m["success"])
	assert.Equal(t, "cpp", m["language"])
	assert.Equal(t, float64(2), m["total_functions"])
	assert.Equal(t, float64(3), m["total_classes"])
	assert.Equal(t, float64(1), m["total_namespaces"])
}

func TestExtractPython(t *testing.T) {
	path := testutil.Fixture(t, "with_decorators.py")
	r := New(analyzer.New()).Extract(context.Background(), path, DefaultOptions())
	require.False(t, r.Failed(), r.Error)

	assert.Empty(t, r.Namespaces)
	assert.Equal(t, []string{
		"def timer(func):",
		"def retry(max_attempts=3):",
		"def complex_operation(x, y):",
	}, signatures(r.Functions))

	op := r.Functions[2]
	assert.Equal(t, 60, op.Line)
	assert.Equal(t, []string{"@timer", "@retry(max_attempts=3)"}, op.Decorators)
	assert.Equal(t, "Function with multiple decorators.", op.Docstring)

	require.Len(t, r.Classes, 1)
	dp := r.Classes[0]
	assert.Equal(t, "DataProcessor", dp.Name)
	assert.Equal(t, "Class with decorated methods.", dp.Docstring)
	require.Len(t, dp.Methods, 3)
	assert.Equal(t, "def process_data(data):", dp.Methods[0].Signature)
	assert.Equal(t, 41, dp.Methods[0].Line)
	assert.Equal(t, []string{"@staticmethod", "@timer"}, dp.Methods[0].Decorators)
	assert.Equal(t, []string{"@property"}, dp.Methods[2].Decorators)

	assert.NotContains(t, r.Fields(), "total_namespaces")
}

func TestExtractPythonAccess(t *testing.T) {
	path := writeSource(t, "account.py", accountPY)
	x := New(analyzer.New())

	r := x.Extract(context.Background(), path, DefaultOptions())
	require.Len(t, r.Classes, 1)
	acct := r.Classes[0]
	assert.Equal(t, []string{
		"def deposit(self, amount: int) -> None:",
		"def __repr__(self):",
	}, signatures(acct.Methods))
	assert.Equal(t, []Member{{Declaration: "rate = 0.5", Line: 2, Access: "public"}}, acct.Members)

	opts := DefaultOptions()
	opts.IncludePrivate = true
	r = x.Extract(context.Background(), path, opts)
	assert.Len(t, r.Classes[0].Methods, 3)
	assert.Len(t, r.Classes[0].Members, 2)
	assert.Equal(t, "private", r.Classes[0].Methods[1].Access)
}

func TestRenderHeader(t *testing.T) {
	path := writeSource(t, "shapes.hpp", shapesHPP)
	opts := DefaultOptions()
	opts.Format = FormatHeader
	r := New(analyzer.New()).Extract(context.Background(), path, opts)

	fields := r.Fields()
	assert.Equal(t, "header", fields["format"])
	content := fields["content"].(string)

	assert.Contains(t, content, "#pragma once\n\n")
	assert.Contains(t, content, "// Extracted interface from: "+path+"\n")
	assert.Contains(t, content, "namespace geo {\n")
	assert.Contains(t, content, "// A drawable shape.\nclass Shape {\npublic:\n    virtual double area() const = 0;\n")
	assert.Contains(t, content, "protected:\n    int id;\n};\n")
	assert.Contains(t, content, "struct Point {\npublic:\n    int x;\n    int y;\n};\n")
	assert.Contains(t, content, "class Circle : public Shape {\npublic:\n    Circle(double r);\n")
	assert.Contains(t, content, "// Distance between two points.\ndouble distance(Point a, Point b);\n")
	assert.Contains(t, content, "} // namespace geo\n")
}

func TestRenderPythonStub(t *testing.T) {
	path := testutil.Fixture(t, "with_decorators.py")
	r := New(analyzer.New()).Extract(context.Background(), path, DefaultOptions())

	var buf bytes.Buffer
	require.NoError(t, r.RenderHeader(&buf))
	out := buf.String()
	assert.Contains(t, out, "# Language: python\n")
	assert.Contains(t, out, "class DataProcessor:\n")
	assert.Contains(t, out, "    @staticmethod\n    @timer\n    def process_data(data): ...\n")
	assert.Contains(t, out, "@timer\n@retry(max_attempts=3)\ndef complex_operation(x, y): ...\n")
}

func TestRenderMarkdown(t *testing.T) {
	path := writeSource(t, "shapes.hpp", shapesHPP)
	r := New(analyzer.New()).Extract(context.Background(), path, DefaultOptions())

	var buf bytes.Buffer
	require.NoError(t, r.RenderMarkdown(&buf))
	md := buf.String()
	assert.Contains(t, md, "# Interface: shapes.hpp\n")
	assert.Contains(t, md, "- **Classes:** 3\n- **Functions:** 2\n- **Namespaces:** 1\n")
	assert.Contains(t, md, "- `geo` (line 3)\n")
	assert.Contains(t, md, "### `Circle`\n")
	assert.Contains(t, md, "**Inherits from:** `Shape`\n")
	assert.Contains(t, md, "- `double area() const override;` (public)\n")
	assert.Contains(t, md, "```cpp\nint helper(int x);\n```\n\n**Line:** 34\n")
}

func TestExtractErrors(t *testing.T) {
	x := New(analyzer.New())
	notes := writeSource(t, "notes.md", "# nothing\n")

	r := x.Extract(context.Background(), notes, DefaultOptions())
	assert.Equal(t, ErrUnsupportedFile, r.Error)
	assert.Equal(t, map[string]any{"error": ErrUnsupportedFile, "filepath": notes, "success": false}, r.Fields())

	r = x.Extract(context.Background(), filepath.Join(testutil.TempDir(t), "gone.hpp"), DefaultOptions())
	assert.Equal(t, analyzer.ErrParseFailed, r.Error)
}

func TestExtractFilesBatch(t *testing.T) {
	dir := testutil.TempDir(t)
	a := testutil.WriteFile(t, filepath.Join(dir, "a.hpp"), "int a();\n")
	b := testutil.WriteFile(t, filepath.Join(dir, "b.py"), "def b():\n    pass\n")

	opts := DefaultOptions()
	opts.Format = FormatMarkdown
	batch := New(analyzer.New()).ExtractFiles(context.Background(), []string{a, b}, opts)
	assert.True(t, batch.Success)
	assert.Equal(t, FormatMarkdown, batch.OutputFormat)

	data, err := json.Marshal(batch)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "markdown", m["output_format"])
	assert.Equal(t, float64(2), m["processed_files"])

	first := m["results"].([]any)[0].(map[string]any)
	assert.Contains(t, first, "functions")
	assert.NotContains(t, first, "content")
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("header")
	require.NoError(t, err)
	assert.Equal(t, FormatHeader, f)

	_, err = ParseFormat("yaml")
	assert.True(t, errors.Is(err, ErrInvalidFormat))
}
