package main

import (
	"errors"

	"github.com/panbanda/tsmcp/pkg/analyzer/references"
	"github.com/urfave/cli/v2"
)

func referencesCmd() *cli.Command {
	return &cli.Command{
		Name:      "references",
		Aliases:   []string{"refs"},
		Usage:     "Find and classify every occurrence of an identifier",
		ArgsUsage: "<symbol> [path...]",
		Flags: append(pathFlags(),
			&cli.StringSliceFlag{
				Name:    "type",
				Aliases: []string{"t"},
				Usage:   "Reference type to keep: call, declaration, definition, member_access, type_usage, unknown",
			},
			&cli.BoolFlag{
				Name:  "no-context",
				Usage: "Omit source lines and enclosing scopes",
			},
		),
		Action: runReferencesCmd,
	}
}

func runReferencesCmd(c *cli.Context) error {
	if c.Args().Len() == 0 {
		return errors.New("references takes a symbol name")
	}
	kinds, err := references.ParseKinds(c.StringSlice("type"))
	if err != nil {
		return err
	}

	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	paths := c.Args().Tail()
	if len(paths) == 0 {
		paths = []string{"."}
	}
	files := e.resolveAll(c, paths, true)
	if len(files) == 0 {
		return errNoFiles(true)
	}

	opts := references.Options{
		Kinds:          kinds,
		IncludeContext: !c.Bool("no-context"),
	}
	ctx, done := track(c, "Searching")
	res := references.New(e.session).Find(ctx, c.Args().First(), files, opts)
	done()
	return e.emit(c, referencesView(res))
}
