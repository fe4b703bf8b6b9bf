package main

import (
	"errors"

	"github.com/panbanda/tsmcp/pkg/analyzer/symbol"
	"github.com/urfave/cli/v2"
)

func contextCmd() *cli.Command {
	return &cli.Command{
		Name:      "context",
		Aliases:   []string{"symbol"},
		Usage:     "Show a symbol's definition with its dependencies and usages",
		ArgsUsage: "<symbol> <file>",
		Description: `Extracts the definition of a function, class or Class::method and the
types and functions it relies on.

Examples:
  tsmcp context Shape::area src/shape.cpp
  tsmcp context --external --usages Parser src/parser.h`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-deps",
				Usage: "Skip dependency analysis",
			},
			&cli.IntFlag{
				Name:  "max-deps",
				Usage: "Maximum number of dependencies (default from config)",
			},
			&cli.BoolFlag{
				Name:  "external",
				Usage: "Search project headers for dependency definitions",
			},
			&cli.BoolFlag{
				Name:  "usages",
				Usage: "Collect call sites of the symbol",
			},
			&cli.IntFlag{
				Name:  "context-lines",
				Usage: "Lines around each usage (default from config)",
			},
			&cli.StringSliceFlag{
				Name:  "search-path",
				Usage: "Directory searched for external types, repeatable",
			},
		},
		Action: runContextCmd,
	}
}

func runContextCmd(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return errors.New("context takes a symbol name and a file")
	}

	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	cfg := e.cfg.Symbol
	opts := symbol.Options{
		IncludeDependencies:  !c.Bool("no-deps"),
		MaxDependencies:      cfg.MaxDependencies,
		ResolveExternalTypes: c.Bool("external"),
		IncludeUsageExamples: c.Bool("usages"),
		ContextLines:         cfg.ContextLines,
		MaxUsageExamples:     cfg.MaxUsageExamples,
		SearchPaths:          c.StringSlice("search-path"),
	}
	if c.IsSet("max-deps") {
		opts.MaxDependencies = c.Int("max-deps")
	}
	if c.IsSet("context-lines") {
		opts.ContextLines = c.Int("context-lines")
	}

	res := symbol.New(e.session, symbol.WithScanner(e.scanner)).
		Resolve(c.Context, c.Args().Get(0), c.Args().Get(1), opts)
	if err := e.emit(c, symbolView(res)); err != nil {
		return err
	}
	if res.Failed() {
		return errors.New(res.Error)
	}
	return nil
}
