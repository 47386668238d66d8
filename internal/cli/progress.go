package cli

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/semsearchd/internal/indexer"
)

// indexProgressBar renders a single progressbar.ProgressBar over a file
// count, grounded on the prior CLIProgressReporter
// (internal/cli/progress.go): same option set (width, counts, rate, throttle,
// finish-on-completion), collapsed to the one bar semsearchd's single-pass
// IndexAll/Reconcile needs instead of the prior separate file/embedding/
// graph bars for its three-stage pipeline.
type indexProgressBar struct {
	quiet bool
	bar   *progressbar.ProgressBar
}

func newIndexProgressBar(quiet bool, total int) *indexProgressBar {
	p := &indexProgressBar{quiet: quiet}
	if quiet || total <= 0 {
		return p
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Indexing"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() { fmt.Println() }),
	)
	return p
}

// hook is passed to indexer.SetProgressHook.
func (p *indexProgressBar) hook(sourceID, relativePath string) {
	if p.bar != nil {
		p.bar.Add(1)
	}
}

func (p *indexProgressBar) finish() {
	if p.bar != nil {
		p.bar.Finish()
	}
}

// printStatsSummary reports an indexer.Stats the way the prior
// CLIProgressReporter.OnComplete reports ProcessingStats: totals first, a
// breakdown beneath, suppressed entirely in quiet mode save for one line.
func printStatsSummary(quiet bool, stats indexer.Stats) {
	if quiet {
		fmt.Printf("Indexing complete: %d chunks in %.1fs\n", stats.ChunksCreated, stats.Duration.Seconds())
		return
	}
	fmt.Println()
	fmt.Printf("Indexing complete: %d chunks in %.1fs\n", stats.ChunksCreated, stats.Duration.Seconds())
	fmt.Printf("  Processed: %d\n", stats.Processed)
	fmt.Printf("  Skipped:   %d\n", stats.Skipped)
	if len(stats.Errors) > 0 {
		fmt.Printf("  Errors:    %d\n", len(stats.Errors))
		for _, e := range stats.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}
}
