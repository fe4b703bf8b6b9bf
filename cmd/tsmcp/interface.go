package main

import (
	"github.com/panbanda/tsmcp/pkg/analyzer/iface"
	"github.com/urfave/cli/v2"
)

func interfaceCmd() *cli.Command {
	return &cli.Command{
		Name:      "interface",
		Aliases:   []string{"api"},
		Usage:     "Extract the public interface without implementation bodies",
		ArgsUsage: "[path...]",
		Description: `Extracts functions, classes and namespaces.

Examples:
  tsmcp interface --as header src/engine.cpp    # declaration-only header
  tsmcp interface --as markdown lib/api.py      # API documentation`,
		Flags: append(pathFlags(),
			&cli.StringFlag{
				Name:  "as",
				Value: "json",
				Usage: "Interface rendering: json, header, markdown",
			},
			&cli.BoolFlag{
				Name:  "private",
				Usage: "Include private members",
			},
			&cli.BoolFlag{
				Name:  "no-comments",
				Usage: "Drop doc comments and docstrings",
			},
		),
		Action: runInterfaceCmd,
	}
}

func runInterfaceCmd(c *cli.Context) error {
	format, err := iface.ParseFormat(c.String("as"))
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

	opts := iface.Options{
		IncludePrivate:  c.Bool("private"),
		IncludeComments: !c.Bool("no-comments"),
		Format:          format,
	}
	x := iface.New(e.session)
	if len(files) == 1 {
		return e.emit(c, interfaceView(x.Extract(c.Context, files[0], opts), format))
	}

	ctx, done := track(c, "Extracting interfaces")
	batch := x.ExtractFiles(ctx, files, opts)
	done()
	return e.emit(c, interfaceView(batch, format))
}
