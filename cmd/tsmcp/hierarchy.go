package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/panbanda/tsmcp/pkg/analyzer/hierarchy"
	"github.com/panbanda/tsmcp/pkg/config"
	"github.com/urfave/cli/v2"
)

func hierarchyCmd() *cli.Command {
	return &cli.Command{
		Name:      "hierarchy",
		Usage:     "Show C++ class inheritance with virtual methods",
		ArgsUsage: "[path...]",
		Flags: append(pathFlags(config.DefaultPatterns...),
			&cli.StringFlag{
				Name:  "class",
				Usage: "Focus on the hierarchy connected to this class",
			},
			&cli.BoolFlag{
				Name:  "no-methods",
				Usage: "Omit virtual method details",
			},
			&cli.BoolFlag{
				Name:  "virtual-only",
				Usage: "Only report classes with virtual methods",
			},
			&cli.IntFlag{
				Name:  "max-depth",
				Value: -1,
				Usage: "Traversal depth from --class, -1 for unlimited",
			},
		),
		Action: runHierarchyCmd,
	}
}

func runHierarchyCmd(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	files := e.resolve(c, false)
	if len(files) == 0 {
		return errNoFiles(false)
	}

	opts := hierarchy.Options{
		ClassName:       c.String("class"),
		ShowMethods:     !c.Bool("no-methods"),
		ShowVirtualOnly: c.Bool("virtual-only"),
		MaxDepth:        c.Int("max-depth"),
	}
	res, err := hierarchy.New(e.session).Analyze(c.Context, files, opts)
	if err != nil {
		var notFound *hierarchy.ClassNotFoundError
		if errors.As(err, &notFound) && len(notFound.Suggestions) > 0 {
			return fmt.Errorf("%w (did you mean %s?)", err, strings.Join(notFound.Suggestions, ", "))
		}
		return err
	}
	return e.emit(c, hierarchyView(res))
}
