package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/mvp-joe/semsearchd/internal/api"
	"github.com/mvp-joe/semsearchd/internal/config"
	"github.com/mvp-joe/semsearchd/internal/daemon"
)

// buildService loads configuration rooted at the current working directory
// and constructs a daemon for one-off commands (stats, search, orphans,
// links, duplicates) that need the operation surface but never start the
// watcher or MCP transport. Callers must call the returned closer when done.
func buildService(ctx context.Context) (*api.Service, func(), error) {
	rootDir, err := os.Getwd()
	if err != nil {
		return nil, nil, fmt.Errorf("getting working directory: %w", err)
	}

	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	d, err := daemon.New(ctx, rootDir, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("building daemon: %w", err)
	}
	return d.Service(), func() { d.Close() }, nil
}
