package parser

import (
	"errors"
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Language represents a supported programming language.
type Language string

const (
	LangCPP     Language = "cpp"
	LangPython  Language = "python"
	LangUnknown Language = "unknown"
)

// ErrUnsupportedLanguage is returned when no grammar is registered for a language.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// String returns the canonical name of the language.
func (l Language) String() string {
	if _, ok := profiles[l]; ok {
		return string(l)
	}
	return string(LangUnknown)
}

// Supported reports whether the language has a registered profile.
func (l Language) Supported() bool {
	_, ok := profiles[l]
	return ok
}

// QueryKind names a semantic query intent from the predefined catalog.
type QueryKind string

const (
	QueryClasses          QueryKind = "classes"
	QueryFunctions        QueryKind = "functions"
	QueryIncludes         QueryKind = "includes"
	QueryVirtualFunctions QueryKind = "virtual_functions"
	QueryNamespaces       QueryKind = "namespaces"
	QueryStructs          QueryKind = "structs"
	QueryTemplates        QueryKind = "templates"
	QueryDecorators       QueryKind = "decorators"
	QueryAsyncFunctions   QueryKind = "async_functions"
)

// Profile describes everything language specific the analyses need:
// file extensions, name aliases, the grammar, the predefined query
// table and the node types that drive structural extraction.
type Profile interface {
	Language() Language
	Extensions() []string
	Aliases() []string
	Grammar() *sitter.Language
	Query(kind QueryKind) (string, bool)

	// FunctionNodeTypes lists node types that represent function definitions.
	FunctionNodeTypes() []string
	// ClassNodeTypes lists node types that represent class-like definitions.
	ClassNodeTypes() []string
	// DecisionNodeTypes lists node types that add one to cyclomatic complexity.
	DecisionNodeTypes() []string
	// LineCommentPrefix is the prefix of a single-line comment.
	LineCommentPrefix() string
}

var (
	profiles    = map[Language]Profile{}
	extensions  = map[string]Language{}
	aliases     = map[string]Language{}
	registerOrd []Language
)

func register(p Profile) {
	lang := p.Language()
	profiles[lang] = p
	registerOrd = append(registerOrd, lang)
	for _, ext := range p.Extensions() {
		extensions[strings.ToLower(ext)] = lang
	}
	for _, alias := range p.Aliases() {
		aliases[strings.ToLower(alias)] = lang
	}
}

func init() {
	register(cppProfile{})
	register(pythonProfile{})
}

// ProfileFor returns the profile of a language.
func ProfileFor(lang Language) (Profile, bool) {
	p, ok := profiles[lang]
	return p, ok
}

// Languages returns all supported languages in registration order.
func Languages() []Language {
	out := make([]Language, len(registerOrd))
	copy(out, registerOrd)
	return out
}

// Extensions returns every known extension for a language, sorted.
func Extensions(lang Language) []string {
	p, ok := profiles[lang]
	if !ok {
		return nil
	}
	exts := append([]string(nil), p.Extensions()...)
	sort.Strings(exts)
	return exts
}

// DetectLanguage determines the language from a file path's extension.
func DetectLanguage(path string) Language {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return LangUnknown
	}
	if lang, ok := extensions[ext]; ok {
		return lang
	}
	return LangUnknown
}

// Detect returns override when one is given, otherwise the language
// detected from the extension.
func Detect(path string, override Language) Language {
	if override != "" {
		return override
	}
	return DetectLanguage(path)
}

// ParseLanguage maps a human readable name or alias to a Language.
// Unrecognized input yields LangUnknown.
func ParseLanguage(s string) Language {
	if lang, ok := aliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return lang
	}
	return LangUnknown
}

// GetTreeSitterLanguage returns the tree-sitter grammar for a Language.
func GetTreeSitterLanguage(lang Language) (*sitter.Language, error) {
	p, ok := profiles[lang]
	if !ok {
		return nil, ErrUnsupportedLanguage
	}
	return p.Grammar(), nil
}
