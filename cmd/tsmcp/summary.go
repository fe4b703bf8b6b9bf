package main

import (
	"github.com/panbanda/tsmcp/pkg/analyzer/summary"
	"github.com/urfave/cli/v2"
)

func summaryCmd() *cli.Command {
	return &cli.Command{
		Name:      "summary",
		Usage:     "Summarize line metrics, functions, classes, imports and TODO markers",
		ArgsUsage: "[path...]",
		Flags: append(pathFlags(),
			&cli.BoolFlag{
				Name:  "no-complexity",
				Usage: "Skip cyclomatic complexity",
			},
			&cli.BoolFlag{
				Name:  "no-comments",
				Usage: "Skip TODO, FIXME and similar markers",
			},
			&cli.BoolFlag{
				Name:  "no-docstrings",
				Usage: "Skip docstrings and doc comments",
			},
		),
		Action: runSummaryCmd,
	}
}

func runSummaryCmd(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	files := e.resolve(c, true)
	if len(files) == 0 {
		return errNoFiles(true)
	}

	opts := summary.Options{
		IncludeComplexity: !c.Bool("no-complexity"),
		IncludeComments:   !c.Bool("no-comments"),
		IncludeDocstrings: !c.Bool("no-docstrings"),
	}
	s := summary.New(e.session)
	if len(files) == 1 {
		return e.emit(c, summaryView(s.Summarize(c.Context, files[0], opts)))
	}

	ctx, done := track(c, "Summarizing")
	batch := s.SummarizeFiles(ctx, files, opts)
	done()
	return e.emit(c, summaryView(batch))
}
