package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/panbanda/tsmcp/internal/mcpserver"
	"github.com/panbanda/tsmcp/pkg/watch"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start the MCP (Model Context Protocol) server over stdio",
		Description: `Starts an MCP server over stdio that exposes the analyses as tools.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "tsmcp": {
        "command": "tsmcp",
        "args": ["mcp", "--watch"]
      }
    }
  }

Available tools:
  - parse_file            Parse status and structure counts
  - find_classes          Class declarations
  - find_functions        Function definitions
  - execute_query         Custom tree-sitter queries
  - get_class_hierarchy   C++ inheritance and virtual methods
  - get_dependency_graph  Include/import graph, cycles and layers
  - get_symbol_context    Symbol definition with dependencies
  - get_file_summary      Line metrics, complexity and markers
  - extract_interface     Public API without bodies
  - find_references       Classified identifier occurrences
  - cache_info            Parse cache contents and statistics`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Evict cached parses when files under --root change (default from config)",
			},
			&cli.StringFlag{
				Name:  "root",
				Value: ".",
				Usage: "Directory watched with --watch",
			},
			&cli.BoolFlag{
				Name:  "manifest",
				Usage: "Print the registry server.json manifest and exit",
			},
		},
		Action: runMCPCmd,
	}
}

func runMCPCmd(c *cli.Context) error {
	if c.Bool("manifest") {
		data, err := mcpserver.GenerateManifest(version)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout(c), string(data))
		return err
	}

	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	server := mcpserver.NewServer(version,
		mcpserver.WithSession(e.session),
		mcpserver.WithConfig(e.cfg),
		mcpserver.WithLogger(e.logger),
	)

	watching := e.cfg.Watch.Enabled
	if c.IsSet("watch") {
		watching = c.Bool("watch")
	}
	if !watching {
		return server.Run(c.Context)
	}

	cache := e.session.Cache()
	w, err := watch.NewWatcher(c.String("root"), e.cfg, e.logger, func(path string) {
		if cache.Invalidate(path) {
			e.logger.Debug("evicted changed file", "path", path)
		}
	})
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := w.Start(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		// The watcher stops once the client disconnects.
		defer cancel()
		return server.Run(ctx)
	})
	return g.Wait()
}
