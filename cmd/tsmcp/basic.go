package main

import (
	"context"

	"github.com/panbanda/tsmcp/internal/output"
	"github.com/panbanda/tsmcp/pkg/analyzer"
	"github.com/panbanda/tsmcp/pkg/config"
	"github.com/urfave/cli/v2"
)

func parseCmd() *cli.Command {
	return &cli.Command{
		Name:      "parse",
		Usage:     "Check that files parse and count their classes, functions and includes",
		ArgsUsage: "[path...]",
		Flags:     pathFlags(config.DefaultPatterns...),
		Action: basicAction("Parsing", statsView,
			func(ctx context.Context, a *analyzer.Analyzer, path string) any { return a.AnalyzeFile(ctx, path, "") },
			func(ctx context.Context, a *analyzer.Analyzer, paths []string) any { return a.AnalyzeFiles(ctx, paths) },
		),
	}
}

func classesCmd() *cli.Command {
	return &cli.Command{
		Name:      "classes",
		Usage:     "List class declarations",
		ArgsUsage: "[path...]",
		Flags:     pathFlags(config.DefaultPatterns...),
		Action: basicAction("Finding classes", titled("Classes"),
			func(ctx context.Context, a *analyzer.Analyzer, path string) any { return a.FindClasses(ctx, path, "") },
			func(ctx context.Context, a *analyzer.Analyzer, paths []string) any { return a.FindClassesInFiles(ctx, paths) },
		),
	}
}

func functionsCmd() *cli.Command {
	return &cli.Command{
		Name:      "functions",
		Aliases:   []string{"fn"},
		Usage:     "List function definitions",
		ArgsUsage: "[path...]",
		Flags:     pathFlags(config.DefaultPatterns...),
		Action: basicAction("Finding functions", titled("Functions"),
			func(ctx context.Context, a *analyzer.Analyzer, path string) any { return a.FindFunctions(ctx, path, "") },
			func(ctx context.Context, a *analyzer.Analyzer, paths []string) any { return a.FindFunctionsInFiles(ctx, paths) },
		),
	}
}

func queryCmd() *cli.Command {
	return &cli.Command{
		Name:      "query",
		Usage:     "Run a tree-sitter S-expression query",
		ArgsUsage: "<pattern> [path...]",
		Description: `Compiles the pattern for each file's language and prints every capture.

Examples:
  tsmcp query '(class_specifier name: (type_identifier) @name)' src/
  tsmcp query -p '*.py' '(decorator) @d' app/`,
		Flags: pathFlags(config.DefaultPatterns...),
		Action: func(c *cli.Context) error {
			if c.Args().Len() == 0 {
				return cli.ShowSubcommandHelp(c)
			}
			pattern := c.Args().First()
			return runBasic(c, c.Args().Tail(), "Running query", titled("Matches"),
				func(ctx context.Context, a *analyzer.Analyzer, path string) any {
					return a.ExecuteQuery(ctx, path, pattern, "")
				},
				func(ctx context.Context, a *analyzer.Analyzer, paths []string) any {
					return a.ExecuteQueryOnFiles(ctx, paths, pattern)
				},
			)
		},
	}
}

type (
	singleFunc func(ctx context.Context, a *analyzer.Analyzer, path string) any
	batchFunc  func(ctx context.Context, a *analyzer.Analyzer, paths []string) any
	viewFunc   func(v any) output.Renderable
)

func titled(title string) viewFunc {
	return func(v any) output.Renderable { return matchesView(title, v) }
}

func basicAction(label string, view viewFunc, single singleFunc, batch batchFunc) cli.ActionFunc {
	return func(c *cli.Context) error {
		return runBasic(c, getPaths(c), label, view, single, batch)
	}
}

// runBasic runs one of the per-file analyses: a single result for one
// file, the batch shape for several.
func runBasic(c *cli.Context, paths []string, label string, view viewFunc, single singleFunc, batch batchFunc) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	if len(paths) == 0 {
		paths = []string{"."}
	}
	files := e.resolveAll(c, paths, false)
	if len(files) == 0 {
		return errNoFiles(false)
	}

	if len(files) == 1 {
		return e.emit(c, view(single(c.Context, e.session, files[0])))
	}
	ctx, done := track(c, label)
	result := batch(ctx, e.session, files)
	done()
	return e.emit(c, view(result))
}
