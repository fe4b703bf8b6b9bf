package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/panbanda/tsmcp/internal/output"
	"github.com/panbanda/tsmcp/internal/progress"
	"github.com/panbanda/tsmcp/internal/scanner"
	"github.com/panbanda/tsmcp/pkg/analyzer"
	"github.com/panbanda/tsmcp/pkg/config"
	"github.com/urfave/cli/v2"
)

// env is the state one command invocation works with.
type env struct {
	cfg     *config.Config
	source  string
	logger  *slog.Logger
	session *analyzer.Analyzer
	scanner *scanner.Scanner
}

func setup(c *cli.Context) (*env, error) {
	var opts []config.LoadOption
	if path := c.String("config"); path != "" {
		opts = append(opts, config.WithPath(path))
	}
	loaded, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config

	level := cfg.Log.Level
	if l := c.String("log-level"); l != "" {
		level = l
	}
	logger, err := newLogger(stderr(c), level)
	if err != nil {
		return nil, err
	}
	if loaded.Source != "" {
		logger.Debug("loaded config", "path", loaded.Source)
	}

	return &env{
		cfg:    cfg,
		source: loaded.Source,
		logger: logger,
		session: analyzer.New(
			analyzer.WithLogger(logger),
			analyzer.WithMaxCacheEntries(cfg.Cache.MaxEntries),
		),
		scanner: scanner.NewScanner(cfg, logger),
	}, nil
}

func (e *env) close() {
	e.session.Close()
}

// newLogger creates a text logger. Logs never go to stdout, which carries
// results and, for the mcp command, the protocol.
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

func stdout(c *cli.Context) io.Writer {
	if c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

func stderr(c *cli.Context) io.Writer {
	if c.App.ErrWriter != nil {
		return c.App.ErrWriter
	}
	return os.Stderr
}

// getPaths returns paths from positional args, defaulting to ["."].
func getPaths(c *cli.Context) []string {
	if c.Args().Len() > 0 {
		return c.Args().Slice()
	}
	return []string{"."}
}

func (e *env) formatter(c *cli.Context) (*output.Formatter, error) {
	name := e.cfg.Output.Format
	if f := c.String("format"); f != "" {
		name = f
	}
	format := output.ParseFormat(name)
	colored := e.cfg.Output.Color && !color.NoColor && !c.Bool("no-color")

	if path := c.String("output"); path != "" {
		return output.NewFormatter(format, path, false)
	}
	return output.NewWriterFormatter(format, stdout(c), colored), nil
}

// pathFlags are the resolution flags shared by the file commands.
func pathFlags(patterns ...string) []cli.Flag {
	usage := "File name pattern to include, repeatable"
	if len(patterns) > 0 {
		usage += " (default " + strings.Join(patterns, ", ") + ")"
	}
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "recursive",
			Aliases: []string{"r"},
			Usage:   "Recurse into directories (default from config)",
		},
		&cli.StringSliceFlag{
			Name:    "pattern",
			Aliases: []string{"p"},
			Usage:   usage,
		},
	}
}

// resolve expands the positional paths into files.
func (e *env) resolve(c *cli.Context, python bool) []string {
	return e.resolveAll(c, getPaths(c), python)
}

// resolveAll expands paths with the command's resolution flags. python adds
// Python sources to the default patterns.
func (e *env) resolveAll(c *cli.Context, paths []string, python bool) []string {
	recursive := e.cfg.Resolver.Recursive
	if c.IsSet("recursive") {
		recursive = c.Bool("recursive")
	}
	patterns := c.StringSlice("pattern")
	if len(patterns) == 0 {
		patterns = e.cfg.Patterns()
		if python && !slices.Contains(patterns, "*.py") {
			patterns = append(slices.Clone(patterns), "*.py")
		}
	}
	return e.scanner.Resolve(paths, recursive, patterns)
}

// track attaches a progress bar to ctx for multi-file work and returns
// the function that clears it.
func track(c *cli.Context, label string) (context.Context, func()) {
	if c.Bool("no-progress") {
		return c.Context, func() {}
	}
	bar := progress.New(label, stderr(c))
	tracker := bar.Tracker()
	return analyzer.WithTracker(c.Context, tracker), func() { bar.FinishFailed(tracker) }
}

// emit writes data with a fresh formatter.
func (e *env) emit(c *cli.Context, data any) error {
	f, err := e.formatter(c)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Output(data)
}

func errNoFiles(python bool) error {
	if python {
		return errors.New("no C++ or Python files found at the given paths")
	}
	return errors.New("no C++ files found at the given paths")
}

// truncate shortens s to its first line and at most maxLen bytes.
func truncate(s string, maxLen int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + " ..."
	}
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 4 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
