package references

// Kind classifies how a reference uses the symbol.
type Kind string

const (
	KindCall         Kind = "call"
	KindDeclaration  Kind = "declaration"
	KindDefinition   Kind = "definition"
	KindMemberAccess Kind = "member_access"
	KindTypeUsage    Kind = "type_usage"
	KindUnknown      Kind = "unknown"
)

// ParseKinds validates a reference_types filter. "all" or an empty list
// selects every kind and yields a nil filter.
func ParseKinds(values []string) (map[Kind]bool, error) {
	if len(values) == 0 {
		return nil, nil
	}
	filter := make(map[Kind]bool, len(values))
	for _, v := range values {
		switch Kind(v) {
		case "all":
			return nil, nil
		case KindCall, KindDeclaration, KindDefinition, KindMemberAccess, KindTypeUsage, KindUnknown:
			filter[Kind(v)] = true
		default:
			return nil, &InvalidKindError{Value: v}
		}
	}
	return filter, nil
}

// InvalidKindError reports an unknown reference type.
type InvalidKindError struct {
	Value string
}

func (e *InvalidKindError) Error() string {
	return "invalid reference type: " + e.Value
}

// Reference is one occurrence of the symbol. Line and Column are 1-based.
type Reference struct {
	Filepath    string `json:"filepath" toon:"filepath"`
	Line        int    `json:"line" toon:"line"`
	Column      int    `json:"column" toon:"column"`
	Type        Kind   `json:"type" toon:"type"`
	Context     string `json:"context,omitempty" toon:"context,omitempty"`
	ParentScope string `json:"parent_scope,omitempty" toon:"parent_scope,omitempty"`
	NodeType    string `json:"node_type" toon:"node_type"`
}

// Options control a reference search.
type Options struct {
	// Kinds restricts the reported reference types; nil reports all.
	Kinds map[Kind]bool
	// IncludeContext adds the source line and enclosing scope.
	IncludeContext bool
}

// DefaultOptions reports every kind with context.
func DefaultOptions() Options {
	return Options{IncludeContext: true}
}

// Result is the find_references payload.
type Result struct {
	Symbol          string      `json:"symbol" toon:"symbol"`
	TotalReferences int         `json:"total_references" toon:"total_references"`
	FilesSearched   int         `json:"files_searched" toon:"files_searched"`
	FilesProcessed  int         `json:"files_processed" toon:"files_processed"`
	FilesFailed     int         `json:"files_failed" toon:"files_failed"`
	References      []Reference `json:"references" toon:"references"`
	Success         bool        `json:"success" toon:"success"`
}
