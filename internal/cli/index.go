package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/semsearchd/internal/config"
	"github.com/mvp-joe/semsearchd/internal/daemon"
)

var (
	indexQuiet bool
	indexForce bool
)

// indexCmd represents the index command, grounded on the prior index
// command (internal/cli/index.go): load config, build the daemon's
// collaborators, run one pass, print a summary, all under ctrl-C
// cancellation. Reduced from the prior three-stage discover/embed/graph
// pipeline to the one IndexAll pass the indexer owns end to end.
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index every configured source",
	Long: `Index walks every configured source, chunks changed files, embeds
them, and upserts the result into the vector repository, skipping files whose
content hash is unchanged unless --force is set.`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVarP(&indexQuiet, "quiet", "q", false, "disable the progress bar")
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "reindex every file regardless of content hash")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted, cancelling...")
		cancel()
	}()

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

	d, err := daemon.New(ctx, rootDir, cfg)
	if err != nil {
		return fmt.Errorf("building daemon: %w", err)
	}
	defer d.Close()

	total, err := d.CountFiles()
	if err != nil {
		return fmt.Errorf("discovering files: %w", err)
	}

	progress := newIndexProgressBar(indexQuiet, total)
	d.Indexer().SetProgressHook(progress.hook)

	stats, err := d.Indexer().IndexAll(ctx, indexForce)
	progress.finish()
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	printStatsSummary(indexQuiet, stats)
	return nil
}
