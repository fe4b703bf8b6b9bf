package query

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/panbanda/tsmcp/pkg/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, lang parser.Language, src string) *parser.ParseResult {
	t.Helper()
	p, err := parser.New(lang)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	res, err := p.ParseResult(context.Background(), []byte(src), "test")
	require.NoError(t, err)
	return res
}

func TestPredefinedQueriesCompile(t *testing.T) {
	for _, lang := range parser.Languages() {
		for _, kind := range Kinds {
			pattern, ok := Get(kind, lang)
			if !ok {
				continue
			}
			t.Run(string(lang)+"/"+string(kind), func(t *testing.T) {
				_, err := Compile(pattern, lang)
				assert.NoError(t, err)
			})
		}
	}
}

func TestCatalogAbsenceIsNotAnError(t *testing.T) {
	tests := []struct {
		kind parser.QueryKind
		lang parser.Language
		want bool
	}{
		{parser.QueryTemplates, parser.LangCPP, true},
		{parser.QueryTemplates, parser.LangPython, false},
		{parser.QueryDecorators, parser.LangPython, true},
		{parser.QueryDecorators, parser.LangCPP, false},
		{parser.QueryAsyncFunctions, parser.LangCPP, false},
		{parser.QueryClasses, parser.LangUnknown, false},
	}
	for _, tt := range tests {
		_, ok := Get(tt.kind, tt.lang)
		assert.Equal(t, tt.want, ok, "%s/%s", tt.kind, tt.lang)
	}
}

func TestClassQueryRoundTrip(t *testing.T) {
	res := parse(t, parser.LangCPP, `class Calculator {
public:
    int add(int a, int b) { return a + b; }
};
`)
	pattern, ok := Get(parser.QueryClasses, parser.LangCPP)
	require.True(t, ok)
	q, err := Compile(pattern, parser.LangCPP)
	require.NoError(t, err)

	matches := Execute(res.Root(), q, res.Source)
	require.Len(t, matches, 1)
	assert.Equal(t, "class_name", matches[0].CaptureName)
	assert.Equal(t, "Calculator", matches[0].Text)
	assert.Equal(t, uint32(0), matches[0].Line)
	assert.Equal(t, uint32(6), matches[0].Column)
}

func TestPythonQueries(t *testing.T) {
	res := parse(t, parser.LangPython, `import os
from typing import List

@dataclass
class Point:
    x: int

async def fetch(url):
    return url

def plain():
    pass
`)
	run := func(kind parser.QueryKind) []Match {
		pattern, ok := Get(kind, parser.LangPython)
		require.True(t, ok)
		q, err := Compile(pattern, parser.LangPython)
		require.NoError(t, err)
		return Execute(res.Root(), q, res.Source)
	}

	classes := run(parser.QueryClasses)
	require.Len(t, classes, 1)
	assert.Equal(t, "Point", classes[0].Text)

	funcs := run(parser.QueryFunctions)
	require.Len(t, funcs, 2)
	assert.Equal(t, "fetch", funcs[0].Text)
	assert.Equal(t, "plain", funcs[1].Text)

	imports := run(parser.QueryIncludes)
	require.Len(t, imports, 2)
	assert.Equal(t, "import", imports[0].CaptureName)
	assert.Equal(t, "import_from", imports[1].CaptureName)

	decorators := run(parser.QueryDecorators)
	require.Len(t, decorators, 1)
	assert.Equal(t, "@dataclass", strings.TrimSpace(decorators[0].Text))

	async := run(parser.QueryAsyncFunctions)
	var names []string
	for _, m := range async {
		if m.CaptureName == "async_func_name" {
			names = append(names, m.Text)
		}
	}
	assert.Equal(t, []string{"fetch"}, names)
}

func TestVirtualFunctionQuery(t *testing.T) {
	res := parse(t, parser.LangCPP, `class Base {
public:
    virtual void process() {}
    void helper() {}
};
class Derived : public Base {
public:
    void process() override {}
};
`)
	pattern, _ := Get(parser.QueryVirtualFunctions, parser.LangCPP)
	q, err := Compile(pattern, parser.LangCPP)
	require.NoError(t, err)

	matches := Execute(res.Root(), q, res.Source)
	require.Len(t, matches, 2)
	assert.Contains(t, matches[0].Text, "virtual void process")
	assert.Contains(t, matches[1].Text, "override")
}

func TestCompileInvalidPattern(t *testing.T) {
	for _, lang := range parser.Languages() {
		_, err := Compile("invalid(((", lang)
		require.Error(t, err)
		var ce *CompileError
		require.ErrorAs(t, err, &ce)
		assert.NotEqual(t, ErrorKind(""), ce.Kind)
		assert.Contains(t, ce.Error(), "offset")
	}
}

func TestCompileAgainstWrongGrammar(t *testing.T) {
	cppPattern, _ := Get(parser.QueryClasses, parser.LangCPP)
	_, err := Compile(cppPattern, parser.LangPython)
	require.Error(t, err)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrorNodeType, ce.Kind)
}

func TestCompileUnsupportedLanguage(t *testing.T) {
	_, err := Compile("(identifier) @id", parser.LangUnknown)
	assert.ErrorIs(t, err, parser.ErrUnsupportedLanguage)
}

func TestExecuteOrderFollowsTraversal(t *testing.T) {
	res := parse(t, parser.LangCPP, "class Zeta {};\nclass Alpha {};\nclass Mid {};\n")
	pattern, _ := Get(parser.QueryClasses, parser.LangCPP)
	q, err := Compile(pattern, parser.LangCPP)
	require.NoError(t, err)

	var texts []string
	for _, m := range Execute(res.Root(), q, res.Source) {
		texts = append(texts, m.Text)
	}
	assert.Equal(t, []string{"Zeta", "Alpha", "Mid"}, texts)
}

func TestExecuteNodesOutOfRangeSource(t *testing.T) {
	res := parse(t, parser.LangCPP, "class Calculator {};")
	pattern, _ := Get(parser.QueryClasses, parser.LangCPP)
	q, err := Compile(pattern, parser.LangCPP)
	require.NoError(t, err)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	matches := Execute(res.Root(), q, res.Source[:5], WithLogger(logger))
	require.Len(t, matches, 1)
	assert.Empty(t, matches[0].Text)
	assert.Contains(t, logs.String(), "capture byte range outside source")
	assert.Contains(t, logs.String(), "capture=class_name")
}

func TestCacheReusesCompiledQueries(t *testing.T) {
	c := NewCache()
	q1, err := c.Compile("(identifier) @id", parser.LangPython)
	require.NoError(t, err)
	q2, err := c.Compile("(identifier) @id", parser.LangPython)
	require.NoError(t, err)
	assert.Same(t, q1, q2)

	q3, err := c.Compile("(identifier) @id", parser.LangCPP)
	require.NoError(t, err)
	assert.NotSame(t, q1, q3)
	assert.Equal(t, 2, c.Len())

	_, err = c.Compile("invalid(((", parser.LangCPP)
	assert.Error(t, err)
	assert.Equal(t, 2, c.Len())

	_, ok, err := c.Predefined(parser.QueryTemplates, parser.LangPython)
	assert.False(t, ok)
	assert.NoError(t, err)
}
