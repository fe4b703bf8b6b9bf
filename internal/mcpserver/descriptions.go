package mcpserver

// Tool descriptions with usage guidance for LLMs. Each one says what the
// tool does, when to reach for it and what comes back.

func describeParseFile() string {
	return `Parses C++ or Python files and reports parse status with structure counts.

USE WHEN:
- Checking that files parse cleanly before deeper analysis
- Getting a quick size overview of a file or directory

RETURNS:
- Single file: filepath, language, has_errors, class_count, function_count, include_count
- Several files: {success, total_files, processed_files, failed_files, results}
- has_errors is true when the syntax tree contains error nodes; counts are still reported`
}

func describeFindClasses() string {
	return `Lists every class declaration in C++ or Python files.

USE WHEN:
- Discovering the types a file or module defines
- Locating a class before asking for its hierarchy or context

RETURNS:
- classes: [{capture_name, line, column, text}] with 0-based line and column
- Batch shape for several files`
}

func describeFindFunctions() string {
	return `Lists every function definition in C++ or Python files.

USE WHEN:
- Inventorying functions before refactoring
- Finding where behavior is implemented

RETURNS:
- functions: [{capture_name, line, column, text}] with 0-based line and column
- C++ captures hold the whole definition; Python captures hold the name
- Batch shape for several files`
}

func describeExecuteQuery() string {
	return `Runs a custom tree-sitter S-expression query against C++ or Python files.

USE WHEN:
- The predefined tools do not cover the structure you need
- Searching for syntactic patterns such as specific call shapes

RETURNS:
- matches: one entry per capture, {capture_name, line, column, text}
- A query that does not compile yields error "Failed to compile query" with details
- Node names are grammar specific: a C++ pattern does not compile for Python files`
}

func describeClassHierarchy() string {
	return `Builds the C++ class inheritance hierarchy with virtual method details.

USE WHEN:
- Understanding polymorphism and base class contracts
- Finding every implementation of an abstract interface
- Checking which methods a subclass overrides

RETURNS:
- classes: name, file, base_classes, is_abstract, virtual_methods
- hierarchy: name to {parents, children, is_abstract}
- class_name focuses on one class; max_depth bounds the traversal
- An unknown class_name returns "Class not found" with suggestions`
}

func describeDependencyGraph() string {
	return `Builds the include and import graph of C++ and Python files.

USE WHEN:
- Finding circular includes
- Planning build order or module extraction
- Rendering the architecture as Mermaid or Graphviz

RETURNS:
- json: nodes, edges, cycles, layers, total_files, total_dependencies, cycles_found
- mermaid/dot: the rendered graph in content, cycle edges highlighted
- layers are topological levels; files inside a cycle have no layer
- include_metrics adds a PageRank score per node (higher means more depended upon)`
}

func describeSymbolContext() string {
	return `Extracts the definition of a function, method or class with the context needed to use it.

USE WHEN:
- Explaining or modifying one symbol without reading the whole file
- Gathering the types and functions a symbol depends on
- Finding real call sites to use as examples

RETURNS:
- symbol: name, type, signature, full code, line range
- dependencies: used types and functions, resolved in the file or project headers
- required_includes and usage_examples when requested
- An unknown symbol returns "Symbol not found" with suggestions`
}

func describeFileSummary() string {
	return `Summarizes C++ and Python files: line metrics, functions, classes, imports and comment markers.

USE WHEN:
- Getting oriented in an unfamiliar file
- Spotting complex functions and outstanding TODO or FIXME notes

RETURNS:
- metrics: total, code, comment and blank lines
- functions with signature details, cyclomatic complexity and docstrings
- classes, imports, comment_markers and average_complexity
- Complexity above 10 suggests a function worth splitting`
}

func describeExtractInterface() string {
	return `Extracts the public interface of C++ and Python files without implementation bodies.

USE WHEN:
- Reviewing an API surface
- Giving another tool or model a compact view of a module

RETURNS:
- json: functions, classes with methods and members, namespaces
- header: a declaration-only C++ header or Python stub in content
- markdown: API documentation in content
- Several files always produce json results with the requested output_format recorded`
}

func describeFindReferences() string {
	return `Finds every occurrence of an identifier and classifies how it is used.

USE WHEN:
- Assessing the impact of renaming or changing a symbol
- Finding call sites, declarations and type usages

RETURNS:
- references: filepath, 1-based line and column, type, context, parent_scope, node_type
- type is one of call, declaration, definition, member_access, type_usage, unknown
- Matching is syntactic: every identifier with the same text is reported`
}

func describeCacheInfo() string {
	return `Reports the parse cache contents and statistics, optionally clearing it.

USE WHEN:
- Diagnosing stale results
- Freeing memory after analyzing a large tree

RETURNS:
- entries: path, language, content hash, modification time
- stats: hits, misses, invalidations
- clear: true drops every cached parse first`
}
