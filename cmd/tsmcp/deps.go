package main

import (
	"github.com/panbanda/tsmcp/pkg/analyzer/depgraph"
	"github.com/urfave/cli/v2"
)

func depsCmd() *cli.Command {
	return &cli.Command{
		Name:      "deps",
		Aliases:   []string{"graph"},
		Usage:     "Build the include and import graph with cycles and layers",
		ArgsUsage: "[path...]",
		Description: `Builds the dependency graph of C++ includes and Python imports.

Examples:
  tsmcp deps src/                     # files, layers and cycles
  tsmcp deps --graph mermaid src/     # Mermaid diagram
  tsmcp deps --graph dot src/ | dot -Tsvg > deps.svg`,
		Flags: append(pathFlags(),
			&cli.StringFlag{
				Name:  "graph",
				Value: "json",
				Usage: "Graph rendering: json, mermaid, dot",
			},
			&cli.BoolFlag{
				Name:  "system",
				Usage: "Keep <...> system includes",
			},
			&cli.BoolFlag{
				Name:  "no-cycles",
				Usage: "Skip cycle detection",
			},
			&cli.IntFlag{
				Name:  "max-depth",
				Value: -1,
				Usage: "Include steps from the analyzed files, -1 for unlimited",
			},
			&cli.BoolFlag{
				Name:  "metrics",
				Usage: "Compute PageRank per file",
			},
		),
		Action: runDepsCmd,
	}
}

func runDepsCmd(c *cli.Context) error {
	format, err := depgraph.ParseFormat(c.String("graph"))
	if err != nil {
		return err
	}

	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	files := e.resolve(c, true)
	if len(files) == 0 {
		return errNoFiles(true)
	}

	opts := depgraph.Options{
		ShowSystemIncludes: c.Bool("system"),
		DetectCycles:       !c.Bool("no-cycles"),
		MaxDepth:           c.Int("max-depth"),
		IncludeMetrics:     c.Bool("metrics"),
	}
	analysis, err := depgraph.New(e.session).Analyze(c.Context, files, opts)
	if err != nil {
		return err
	}
	return e.emit(c, graphView(analysis, format))
}
