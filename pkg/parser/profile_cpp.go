package parser

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"
)

type cppProfile struct{}

var cppQueries = map[QueryKind]string{
	QueryClasses:   `(class_specifier name: (type_identifier) @class_name)`,
	QueryFunctions: `(function_definition) @func_def`,
	QueryIncludes:  `(preproc_include) @include`,
	// virtual, override and final are context-sensitive in the grammar, so
	// the match is done on the rendered definition text.
	QueryVirtualFunctions: `((function_definition) @virtual_func (#match? @virtual_func "^virtual|override|final"))`,
	QueryNamespaces:       `(namespace_definition name: (namespace_identifier) @namespace_name)`,
	QueryStructs:          `(struct_specifier name: (type_identifier) @struct_name)`,
	QueryTemplates:        `(template_declaration) @template_decl`,
}

func (cppProfile) Language() Language { return LangCPP }

func (cppProfile) Extensions() []string {
	return []string{".cpp", ".cxx", ".cc", ".c++", ".hpp", ".hxx", ".hh", ".h++", ".h", ".c"}
}

func (cppProfile) Aliases() []string {
	return []string{"cpp", "c++", "cxx", "cplusplus", "c"}
}

func (cppProfile) Grammar() *sitter.Language { return cpp.GetLanguage() }

func (cppProfile) Query(kind QueryKind) (string, bool) {
	q, ok := cppQueries[kind]
	return q, ok
}

func (cppProfile) FunctionNodeTypes() []string {
	return []string{"function_definition"}
}

func (cppProfile) ClassNodeTypes() []string {
	return []string{"class_specifier", "struct_specifier"}
}

func (cppProfile) DecisionNodeTypes() []string {
	return []string{
		"if_statement",
		"for_statement",
		"for_range_loop",
		"while_statement",
		"do_statement",
		"case_statement",
		"catch_clause",
		"conditional_expression",
	}
}

func (cppProfile) LineCommentPrefix() string { return "//" }
