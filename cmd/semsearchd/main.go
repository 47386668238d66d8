// Command semsearchd is the long-running daemon: it loads configuration,
// reconciles the vector repository, starts the file watcher, and serves the
// operation surface as MCP tools over stdio until a termination signal
// arrives. Intended to run under a process supervisor (systemd, launchd)
// with stdio wired to the calling MCP client, the same foreground-process
// contract the prior "cortex mcp" subcommand runs under.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mvp-joe/semsearchd/internal/config"
	"github.com/mvp-joe/semsearchd/internal/daemon"
)

func main() {
	rootDir := flag.String("root", "", "root directory to load .semsearch/config.yml from (default: current directory)")
	flag.Parse()

	if err := run(*rootDir); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(rootDir string) error {
	if rootDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		rootDir = wd
	}

	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := context.Background()
	d, err := daemon.New(ctx, rootDir, cfg)
	if err != nil {
		return fmt.Errorf("building daemon: %w", err)
	}
	defer d.Close()

	return d.Serve(ctx)
}
