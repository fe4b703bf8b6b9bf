package parser

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

type pythonProfile struct{}

var pythonQueries = map[QueryKind]string{
	QueryClasses:        `(class_definition name: (identifier) @class_name)`,
	QueryFunctions:      `(function_definition name: (identifier) @func_name)`,
	QueryIncludes:       `[(import_statement) @import (import_from_statement) @import_from]`,
	QueryDecorators:     `(decorator) @decorator`,
	QueryAsyncFunctions: `(function_definition "async" @async_keyword name: (identifier) @async_func_name)`,
}

func (pythonProfile) Language() Language { return LangPython }

func (pythonProfile) Extensions() []string {
	return []string{".py", ".pyi", ".pyw"}
}

func (pythonProfile) Aliases() []string {
	return []string{"python", "py"}
}

func (pythonProfile) Grammar() *sitter.Language { return python.GetLanguage() }

func (pythonProfile) Query(kind QueryKind) (string, bool) {
	q, ok := pythonQueries[kind]
	return q, ok
}

func (pythonProfile) FunctionNodeTypes() []string {
	return []string{"function_definition"}
}

func (pythonProfile) ClassNodeTypes() []string {
	return []string{"class_definition"}
}

func (pythonProfile) DecisionNodeTypes() []string {
	return []string{
		"if_statement",
		"elif_clause",
		"for_statement",
		"while_statement",
		"except_clause",
		"conditional_expression",
		"case_clause",
	}
}

func (pythonProfile) LineCommentPrefix() string { return "#" }
