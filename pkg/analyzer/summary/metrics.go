package summary

import (
	"regexp"
	"strings"

	"github.com/panbanda/tsmcp/pkg/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

var markerPattern = regexp.MustCompile(`(?i)\b(TODO|FIXME|HACK|NOTE|WARNING|BUG|OPTIMIZE)[:\s]+(.+)`)

// splitLines splits source into lines. A trailing newline does not start
// an extra line.
func splitLines(source string) []string {
	if source == "" {
		return nil
	}
	lines := strings.Split(source, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// LineMetrics classifies every line of source as blank, comment or code.
// Block comments are tracked across lines; for Python a line opening a
// triple-quoted string starts a docstring block, which counts as comment.
func LineMetrics(source string, lang parser.Language) Metrics {
	lineComment := "//"
	if p, ok := parser.ProfileFor(lang); ok {
		lineComment = p.LineCommentPrefix()
	}

	var (
		m          Metrics
		blockClose string
	)
	for _, line := range splitLines(source) {
		m.TotalLines++
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			m.BlankLines++
		case blockClose != "":
			m.CommentLines++
			if strings.Contains(trimmed, blockClose) {
				blockClose = ""
			}
		case lang != parser.LangPython && strings.HasPrefix(trimmed, "/*"):
			m.CommentLines++
			if !strings.Contains(trimmed[2:], "*/") {
				blockClose = "*/"
			}
		case lang == parser.LangPython && (strings.HasPrefix(trimmed, `"""`) || strings.HasPrefix(trimmed, `'''`)):
			m.CommentLines++
			delim := trimmed[:3]
			if !strings.Contains(trimmed[3:], delim) {
				blockClose = delim
			}
		case strings.HasPrefix(trimmed, lineComment):
			m.CommentLines++
		default:
			m.CodeLines++
		}
	}
	return m
}

// Complexity is the cyclomatic complexity of node: 1 plus one for every
// branching node and every short-circuit logical operator in its subtree.
func Complexity(node *sitter.Node, source []byte, lang parser.Language) int {
	if node == nil {
		return 1
	}
	p, ok := parser.ProfileFor(lang)
	if !ok {
		return 1
	}
	decisions := make(map[string]bool)
	for _, t := range p.DecisionNodeTypes() {
		decisions[t] = true
	}

	complexity := 1
	parser.WalkTyped(node, source, func(n *sitter.Node, nodeType string, _ []byte) bool {
		switch {
		case decisions[nodeType]:
			complexity++
		case nodeType == "boolean_operator":
			complexity++
		case nodeType == "binary_expression" && isLogical(n):
			complexity++
		}
		return true
	})
	return complexity
}

func isLogical(n *sitter.Node) bool {
	op := n.ChildByFieldName("operator")
	if op == nil {
		return false
	}
	switch op.Type() {
	case "&&", "||", "and", "or":
		return true
	}
	return false
}

// Markers scans source line by line for TODO-style markers. The scan is
// textual, so markers are found in any comment style.
func Markers(source string) []Marker {
	var markers []Marker
	for i, line := range splitLines(source) {
		match := markerPattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		markers = append(markers, Marker{
			Type:    strings.ToUpper(match[1]),
			Text:    strings.TrimSpace(match[2]),
			Line:    i + 1,
			Context: strings.TrimSpace(line),
		})
	}
	return markers
}
