package iface

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/panbanda/tsmcp/pkg/parser"
)

// RenderHeader writes the interface as a declaration-only header: a C++
// header for C++ files and a stub module for Python files.
func (i *Interface) RenderHeader(w io.Writer) error {
	if i.Language == parser.LangPython {
		return i.renderStub(w)
	}

	fmt.Fprint(w, "#pragma once\n\n")
	fmt.Fprintf(w, "// Extracted interface from: %s\n", i.Filepath)
	fmt.Fprintf(w, "// Language: %s\n\n", i.Language)

	for _, ns := range i.Namespaces {
		fmt.Fprintf(w, "namespace %s {\n\n", ns.Name)
	}

	for _, c := range i.Classes {
		if c.Comment != "" {
			fmt.Fprintln(w, c.Comment)
		}
		fmt.Fprintf(w, "%s %s", c.Kind, c.Name)
		if len(c.BaseClasses) > 0 {
			bases := make([]string, len(c.BaseClasses))
			for j, b := range c.BaseClasses {
				bases[j] = "public " + b
			}
			fmt.Fprintf(w, " : %s", strings.Join(bases, ", "))
		}
		fmt.Fprint(w, " {\n")

		current := ""
		section := func(access string) {
			if access != current {
				fmt.Fprintf(w, "%s:\n", access)
				current = access
			}
		}
		for _, m := range c.Methods {
			section(m.Access)
			fmt.Fprintf(w, "    %s\n", m.Signature)
		}
		for _, m := range c.Members {
			section(m.Access)
			fmt.Fprintf(w, "    %s;\n", m.Declaration)
		}
		fmt.Fprint(w, "};\n\n")
	}

	for _, fn := range i.Functions {
		if fn.Comment != "" {
			fmt.Fprintln(w, fn.Comment)
		}
		fmt.Fprintf(w, "%s\n\n", fn.Signature)
	}

	for j := len(i.Namespaces) - 1; j >= 0; j-- {
		fmt.Fprintf(w, "} // namespace %s\n", i.Namespaces[j].Name)
	}
	return nil
}

func (i *Interface) renderStub(w io.Writer) error {
	fmt.Fprintf(w, "# Extracted interface from: %s\n", i.Filepath)
	fmt.Fprintf(w, "# Language: %s\n\n", i.Language)

	writeDef := func(indent string, fn Function) {
		if fn.Comment != "" {
			fmt.Fprintf(w, "%s%s\n", indent, fn.Comment)
		}
		for _, d := range fn.Decorators {
			fmt.Fprintf(w, "%s%s\n", indent, d)
		}
		fmt.Fprintf(w, "%s%s ...\n", indent, fn.Signature)
	}

	for _, c := range i.Classes {
		if c.Comment != "" {
			fmt.Fprintln(w, c.Comment)
		}
		for _, d := range c.Decorators {
			fmt.Fprintln(w, d)
		}
		fmt.Fprintf(w, "class %s", c.Name)
		if len(c.BaseClasses) > 0 {
			fmt.Fprintf(w, "(%s)", strings.Join(c.BaseClasses, ", "))
		}
		fmt.Fprint(w, ":\n")
		if len(c.Methods) == 0 && len(c.Members) == 0 {
			fmt.Fprint(w, "    ...\n")
		}
		for _, m := range c.Members {
			fmt.Fprintf(w, "    %s\n", m.Declaration)
		}
		for _, m := range c.Methods {
			writeDef("    ", m)
		}
		fmt.Fprintln(w)
	}

	for _, fn := range i.Functions {
		writeDef("", fn)
		fmt.Fprintln(w)
	}
	return nil
}

// RenderMarkdown writes the interface as markdown documentation.
func (i *Interface) RenderMarkdown(w io.Writer) error {
	isCPP := i.Language == parser.LangCPP

	fmt.Fprintf(w, "# Interface: %s\n\n", filepath.Base(i.Filepath))
	fmt.Fprintf(w, "**Language:** %s  \n", i.Language)
	fmt.Fprintf(w, "**File:** `%s`\n\n", i.Filepath)

	fmt.Fprint(w, "## Summary\n\n")
	fmt.Fprintf(w, "- **Classes:** %d\n", len(i.Classes))
	fmt.Fprintf(w, "- **Functions:** %d\n", len(i.Functions))
	if isCPP {
		fmt.Fprintf(w, "- **Namespaces:** %d\n", len(i.Namespaces))
	}
	fmt.Fprintln(w)

	if isCPP && len(i.Namespaces) > 0 {
		fmt.Fprint(w, "## Namespaces\n\n")
		for _, ns := range i.Namespaces {
			fmt.Fprintf(w, "- `%s` (line %d)\n", ns.Name, ns.Line)
		}
		fmt.Fprintln(w)
	}

	if len(i.Classes) > 0 {
		fmt.Fprint(w, "## Classes\n\n")
		for _, c := range i.Classes {
			fmt.Fprintf(w, "### `%s`\n\n", c.Name)
			if doc := firstNonEmpty(c.Docstring, c.Comment); doc != "" {
				fmt.Fprintf(w, "%s\n\n", doc)
			}
			fmt.Fprintf(w, "**Location:** Line %d\n\n", c.Line)

			if len(c.BaseClasses) > 0 {
				quoted := make([]string, len(c.BaseClasses))
				for j, b := range c.BaseClasses {
					quoted[j] = "`" + b + "`"
				}
				fmt.Fprintf(w, "**Inherits from:** %s\n\n", strings.Join(quoted, ", "))
			}

			if len(c.Methods) > 0 {
				fmt.Fprint(w, "**Methods:**\n\n")
				for _, m := range c.Methods {
					fmt.Fprintf(w, "- `%s`", m.Signature)
					if m.Access != "" {
						fmt.Fprintf(w, " (%s)", m.Access)
					}
					fmt.Fprintln(w)
				}
				fmt.Fprintln(w)
			}

			if len(c.Members) > 0 {
				fmt.Fprint(w, "**Members:**\n\n")
				for _, m := range c.Members {
					fmt.Fprintf(w, "- `%s`", m.Declaration)
					if m.Access != "" {
						fmt.Fprintf(w, " (%s)", m.Access)
					}
					fmt.Fprintln(w)
				}
				fmt.Fprintln(w)
			}
		}
	}

	if len(i.Functions) > 0 {
		fmt.Fprint(w, "## Functions\n\n")
		for _, fn := range i.Functions {
			if doc := firstNonEmpty(fn.Docstring, fn.Comment); doc != "" {
				fmt.Fprintf(w, "%s\n\n", doc)
			}
			fmt.Fprintf(w, "```%s\n%s\n```\n\n", i.Language, fn.Signature)
			fmt.Fprintf(w, "**Line:** %d\n\n", fn.Line)
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
