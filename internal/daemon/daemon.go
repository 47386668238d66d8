// Package daemon owns the long-running process lifecycle: construct every
// collaborator from a loaded Config, start the watcher, serve the MCP
// surface on stdio, and shut down cleanly on signal. Grounded on the prior
// MCPServer (internal/mcp/server.go): one struct holding every
// collaborator, a constructor that wires them in dependency order, a Serve
// that starts background watchers before blocking on ServeStdio with
// signal-driven graceful shutdown, and a Close that tears everything back
// down. Generalized from the prior fixed searcher/graph/watcher set to
// this service's sources, indexer, query service, and link-analytics index, and
// from two purpose-built file watchers to the one multi-source Watcher
// already built in internal/watch.
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/semsearchd/internal/api"
	"github.com/mvp-joe/semsearchd/internal/chunk"
	"github.com/mvp-joe/semsearchd/internal/config"
	"github.com/mvp-joe/semsearchd/internal/embed"
	"github.com/mvp-joe/semsearchd/internal/graph"
	"github.com/mvp-joe/semsearchd/internal/hash"
	"github.com/mvp-joe/semsearchd/internal/indexer"
	"github.com/mvp-joe/semsearchd/internal/ledger"
	"github.com/mvp-joe/semsearchd/internal/logging"
	"github.com/mvp-joe/semsearchd/internal/query"
	"github.com/mvp-joe/semsearchd/internal/rerank"
	"github.com/mvp-joe/semsearchd/internal/source"
	"github.com/mvp-joe/semsearchd/internal/vectorstore"
	"github.com/mvp-joe/semsearchd/internal/watch"
)

// Daemon owns every collaborator for the running service: the sources, the
// vector repository, the indexer, the watcher, the link-analytics index,
// and the MCP transport that exposes the operation surface.
type Daemon struct {
	cfg        *config.Config
	instanceID string
	sources    []*source.Source
	store      *vectorstore.Store
	ledger     *ledger.Ledger
	indexer    *indexer.Indexer
	watcher    *watch.Watcher
	svc        *api.Service
	mcp        *server.MCPServer
	log        logging.Logger
}

// New constructs a Daemon from a loaded, validated Config rooted at
// rootDir. It builds every Source, opens the vector repository and ledger,
// wires the embedder/reranker/chunker, and registers the MCP tool surface,
// but does not start the watcher or serve traffic — call Serve for that.
func New(ctx context.Context, rootDir string, cfg *config.Config) (*Daemon, error) {
	instanceID := uuid.New().String()
	logger := logging.New(fmt.Sprintf("semsearchd[%s]: ", instanceID[:8]))

	sources := make([]*source.Source, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		kind := source.Kind(sc.Kind)
		if kind == "" {
			kind = source.KindText
		}
		src, err := source.New(sc.ID, sc.Name, sc.Path, kind, sc.Include, sc.Exclude)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}

	storePath := cfg.VectorStore.Path
	if !filepath.IsAbs(storePath) {
		storePath = filepath.Join(rootDir, storePath)
	}
	embedder := embed.NewHTTPClient(cfg.Embedding.Endpoint, cfg.Embedding.Model, cfg.Embedding.APIKey, cfg.Embedding.Dimensions)

	store, err := vectorstore.Open(storePath, cfg.Embedding.Model, embedder.Dimensions())
	if err != nil {
		return nil, fmt.Errorf("opening vector repository: %w", err)
	}

	ledgerPath := filepath.Join(filepath.Dir(storePath), "ledger.db")
	led, err := ledger.Open(ledgerPath)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	tokenCounter, err := hash.NewTokenCounter(0)
	if err != nil {
		led.Close()
		return nil, fmt.Errorf("building token counter: %w", err)
	}
	chunker := chunk.New(chunk.Thresholds{
		Target: cfg.Chunk.Target,
		Max:    cfg.Chunk.Max,
		Min:    cfg.Chunk.Min,
	}, tokenCounter.Estimate)

	idx := indexer.New(sources, store, led, embedder, chunker, indexer.DefaultConcurrency, cfg.Embedding.BatchSize, logger)

	var reranker rerank.Reranker
	if cfg.Rerank.Enabled {
		reranker = rerank.NewHTTPClient(cfg.Rerank.Endpoint, cfg.Rerank.Model)
	}
	q := query.New(store, embedder, reranker, cfg.Rerank.Enabled)

	g := graph.New(sources, store)
	svc := api.New(sources, q, idx, g, store)

	mcpServer := server.NewMCPServer("semsearchd", "0.1.0", server.WithToolCapabilities(true))
	api.RegisterTools(mcpServer, svc)

	var watcher *watch.Watcher
	if cfg.Watch.Enabled {
		debounce := time.Duration(cfg.Watch.DebounceSeconds) * time.Second
		handler := func(ev watch.Event) {
			ctx := context.Background()
			switch ev.Kind {
			case watch.KindChanged:
				if _, err := idx.IndexSingle(ctx, ev.SourceID, ev.RelativePath, false); err != nil {
					logger.Errorf("indexing %s/%s: %v", ev.SourceID, ev.RelativePath, err)
				}
			case watch.KindRemoved:
				if err := idx.RemoveFile(ctx, ev.SourceID, ev.RelativePath); err != nil {
					logger.Errorf("removing %s/%s: %v", ev.SourceID, ev.RelativePath, err)
				}
			}
		}
		w, err := watch.New(sources, debounce, handler, logger)
		if err != nil {
			led.Close()
			return nil, fmt.Errorf("starting watcher: %w", err)
		}
		watcher = w
	}

	d := &Daemon{
		cfg:        cfg,
		instanceID: instanceID,
		sources:    sources,
		store:      store,
		ledger:     led,
		indexer:    idx,
		watcher:    watcher,
		svc:        svc,
		mcp:        mcpServer,
		log:        logger,
	}
	return d, nil
}

// Serve runs an initial reconcile pass, starts the watcher, and blocks
// serving the MCP surface on stdio until ctx is cancelled or a termination
// signal arrives.
func (d *Daemon) Serve(ctx context.Context) error {
	if _, err := d.indexer.Reconcile(ctx); err != nil {
		d.log.Errorf("startup reconcile: %v", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if d.watcher != nil {
		d.watcher.Start(ctx)
		defer d.watcher.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("semsearchd[%s]: serving MCP surface on stdio", d.instanceID[:8])
		if err := server.ServeStdio(d.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
		}
	}()

	select {
	case <-sigCh:
		log.Printf("semsearchd[%s]: received shutdown signal", d.instanceID[:8])
		cancel()
		return nil
	case err := <-errCh:
		cancel()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the watcher and ledger. The vector repository is a
// chromem-go persistent collection that flushes on every write and exposes
// no handle to close.
func (d *Daemon) Close() error {
	if d.watcher != nil {
		d.watcher.Stop()
	}
	if d.ledger != nil {
		return d.ledger.Close()
	}
	return nil
}

// InstanceID returns the unique identifier generated for this daemon
// process at startup, used to tag its log lines so multiple instances
// running against different source trees can be told apart.
func (d *Daemon) InstanceID() string { return d.instanceID }

// Service exposes the operation surface for CLI commands that run without
// the MCP transport (index, stats, search, orphans, links, duplicates).
func (d *Daemon) Service() *api.Service { return d.svc }

// Indexer exposes the indexer directly for CLI commands that need to attach
// a progress hook or run a bare IndexAll/Reconcile pass.
func (d *Daemon) Indexer() *indexer.Indexer { return d.indexer }

// CountFiles sums the discoverable file count across every configured
// source, used by the CLI to size its progress bar before an index run.
func (d *Daemon) CountFiles() (int, error) {
	total := 0
	for _, src := range d.sources {
		rels, err := src.Discover()
		if err != nil {
			return 0, err
		}
		total += len(rels)
	}
	return total, nil
}
