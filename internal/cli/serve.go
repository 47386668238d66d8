package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/semsearchd/internal/config"
	"github.com/mvp-joe/semsearchd/internal/daemon"
)

// serveCmd starts the long-running daemon, grounded on the prior mcp
// command (internal/cli/mcp.go): load config, build the server, serve until
// a shutdown signal arrives. Generalized from the prior read-only SQLite
// cache handoff to the live daemon.Daemon, which owns the watcher alongside
// the MCP transport.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the semsearchd daemon (MCP over stdio, live index)",
	Long: `Serve starts the daemon: it reconciles the vector repository against
every configured source, starts the file watcher if enabled, and exposes the
full operation surface as MCP tools over stdio.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rootDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	fmt.Fprintf(os.Stderr, "semsearchd starting, %d source(s) configured\n", len(cfg.Sources))

	d, err := daemon.New(ctx, rootDir, cfg)
	if err != nil {
		return fmt.Errorf("building daemon: %w", err)
	}
	defer d.Close()

	if err := d.Serve(ctx); err != nil {
		return fmt.Errorf("daemon error: %w", err)
	}
	return nil
}
