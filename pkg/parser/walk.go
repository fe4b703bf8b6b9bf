package parser

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// NodeVisitor is a function that visits AST nodes. Returning false skips
// the node's children.
type NodeVisitor func(node *sitter.Node, source []byte) bool

// TypedNodeVisitor visits AST nodes with the node type already resolved.
type TypedNodeVisitor func(node *sitter.Node, nodeType string, source []byte) bool

// Walk traverses the AST depth-first, pre-order.
func Walk(node *sitter.Node, source []byte, visitor NodeVisitor) {
	if node == nil {
		return
	}
	if !visitor(node, source) {
		return
	}
	for i := range int(node.ChildCount()) {
		Walk(node.Child(i), source, visitor)
	}
}

// WalkTyped traverses the AST caching each node's type once.
func WalkTyped(node *sitter.Node, source []byte, visitor TypedNodeVisitor) {
	if node == nil {
		return
	}
	nodeType := node.Type()
	if !visitor(node, nodeType, source) {
		return
	}
	for i := range int(node.ChildCount()) {
		WalkTyped(node.Child(i), source, visitor)
	}
}

// FindNodes returns all nodes matching a predicate in pre-order.
func FindNodes(root *sitter.Node, source []byte, predicate func(*sitter.Node) bool) []*sitter.Node {
	var results []*sitter.Node
	Walk(root, source, func(node *sitter.Node, _ []byte) bool {
		if predicate(node) {
			results = append(results, node)
		}
		return true
	})
	return results
}

// FindNodesByType returns all nodes of the given types in pre-order.
func FindNodesByType(root *sitter.Node, source []byte, nodeTypes ...string) []*sitter.Node {
	set := makeSet(nodeTypes)
	var results []*sitter.Node
	WalkTyped(root, source, func(node *sitter.Node, nodeType string, _ []byte) bool {
		if set[nodeType] {
			results = append(results, node)
		}
		return true
	})
	return results
}

// GetNodeText extracts the source text for a node.
// Returns empty string if node is nil or byte offsets are out of bounds.
func GetNodeText(node *sitter.Node, source []byte) string {
	text, _ := NodeText(node, source)
	return text
}

// NodeText is GetNodeText that also reports whether the node's byte
// range was consistent with source.
func NodeText(node *sitter.Node, source []byte) (string, bool) {
	if node == nil {
		return "", false
	}
	start := node.StartByte()
	end := node.EndByte()
	if start > end || end > uint32(len(source)) {
		return "", false
	}
	return string(source[start:end]), true
}

// Line returns the 1-based start line of a node.
func Line(node *sitter.Node) int {
	return int(node.StartPoint().Row) + 1
}

// EndLine returns the 1-based end line of a node.
func EndLine(node *sitter.Node) int {
	return int(node.EndPoint().Row) + 1
}

// ChildOfType returns the first direct child of one of the given types.
func ChildOfType(node *sitter.Node, nodeTypes ...string) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := range int(node.ChildCount()) {
		child := node.Child(i)
		for _, t := range nodeTypes {
			if child.Type() == t {
				return child
			}
		}
	}
	return nil
}

// ChildrenOfType returns every direct child of one of the given types.
func ChildrenOfType(node *sitter.Node, nodeTypes ...string) []*sitter.Node {
	if node == nil {
		return nil
	}
	set := makeSet(nodeTypes)
	var out []*sitter.Node
	for i := range int(node.ChildCount()) {
		child := node.Child(i)
		if set[child.Type()] {
			out = append(out, child)
		}
	}
	return out
}

// Ancestor returns the closest ancestor of one of the given types.
func Ancestor(node *sitter.Node, nodeTypes ...string) *sitter.Node {
	if node == nil {
		return nil
	}
	set := makeSet(nodeTypes)
	for p := node.Parent(); p != nil; p = p.Parent() {
		if set[p.Type()] {
			return p
		}
	}
	return nil
}

func makeSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
