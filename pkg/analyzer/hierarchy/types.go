package hierarchy

import (
	"encoding/json"
	"fmt"
)

// VirtualMethod describes a virtual member function of a class.
type VirtualMethod struct {
	Name          string `json:"name" toon:"name"`
	Signature     string `json:"signature" toon:"signature"`
	Line          uint32 `json:"line" toon:"line"` // 1-based
	IsPureVirtual bool   `json:"is_pure_virtual" toon:"is_pure_virtual"`
	IsOverride    bool   `json:"is_override" toon:"is_override"`
	IsFinal       bool   `json:"is_final" toon:"is_final"`
	Access        string `json:"access" toon:"access"` // public, protected, private
}

// ClassInfo is one class declaration, possibly merged from several files.
type ClassInfo struct {
	Name           string          `json:"name" toon:"name"`
	Line           uint32          `json:"line" toon:"line"` // 0-based, as reported by the query
	File           string          `json:"file" toon:"file"`
	BaseClasses    []string        `json:"base_classes" toon:"base_classes"`
	IsAbstract     bool            `json:"is_abstract" toon:"is_abstract"`
	VirtualMethods []VirtualMethod `json:"virtual_methods" toon:"virtual_methods"`

	hideMethods bool
}

// MarshalJSON drops virtual_methods when methods were not requested.
func (c ClassInfo) MarshalJSON() ([]byte, error) {
	type plain ClassInfo
	if !c.hideMethods {
		if c.VirtualMethods == nil {
			c.VirtualMethods = []VirtualMethod{}
		}
		return json.Marshal(plain(c))
	}
	return json.Marshal(struct {
		plain
		VirtualMethods []VirtualMethod `json:"virtual_methods,omitempty"`
	}{plain: plain(c)})
}

// Node is one entry of the hierarchy map.
type Node struct {
	Children   []string `json:"children" toon:"children"`
	Parents    []string `json:"parents" toon:"parents"`
	IsAbstract bool     `json:"is_abstract" toon:"is_abstract"`
}

// Options control a hierarchy request.
type Options struct {
	// ClassName focuses the result on one class's connected hierarchy.
	ClassName string
	// ShowMethods includes virtual method details.
	ShowMethods bool
	// ShowVirtualOnly drops classes without virtual methods.
	ShowVirtualOnly bool
	// MaxDepth bounds the focus traversal; -1 is unlimited.
	MaxDepth int
}

// DefaultOptions returns the defaults used by the get_class_hierarchy tool.
func DefaultOptions() Options {
	return Options{ShowMethods: true, MaxDepth: -1}
}

// Result is the get_class_hierarchy payload.
type Result struct {
	TotalFiles     int             `json:"total_files" toon:"total_files"`
	FilesProcessed int             `json:"files_processed" toon:"files_processed"`
	FilesFailed    int             `json:"files_failed" toon:"files_failed"`
	TotalClasses   int             `json:"total_classes" toon:"total_classes"`
	Classes        []ClassInfo     `json:"classes" toon:"classes"`
	Hierarchy      map[string]Node `json:"hierarchy" toon:"hierarchy"`
	Success        bool            `json:"success" toon:"success"`
}

// ClassNotFoundError reports a focus class absent from the analyzed files.
type ClassNotFoundError struct {
	Name        string
	Suggestions []string
}

func (e *ClassNotFoundError) Error() string {
	return fmt.Sprintf("Class not found: %s", e.Name)
}
