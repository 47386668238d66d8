// Package indexer implements the per-file indexing pipeline and its
// concurrency model: discover, hash, compare against the ledger, chunk,
// extract metadata, embed, and upsert. Grounded on the prior IndexerV2
// (internal/indexer/indexer_v2.go) for the overall
// discover-changes-then-process-changes shape and on processor.go for the
// per-file parse/chunk/embed/write pipeline, generalized from a single
// code-vault orchestration to multiple named Sources, a persistent SQLite
// ledger instead of an in-process map, and an explicit per-path mutex map
// plus a golang.org/x/sync/semaphore-bounded worker pool in place of
// sequential for-loops (per-file serialization with cross-file parallelism
// is required here, which the prior single-threaded processor never
// needed).
package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"gopkg.in/yaml.v3"

	"github.com/mvp-joe/semsearchd/internal/apperr"
	"github.com/mvp-joe/semsearchd/internal/chunk"
	"github.com/mvp-joe/semsearchd/internal/embed"
	"github.com/mvp-joe/semsearchd/internal/hash"
	"github.com/mvp-joe/semsearchd/internal/ledger"
	"github.com/mvp-joe/semsearchd/internal/logging"
	"github.com/mvp-joe/semsearchd/internal/meta"
	"github.com/mvp-joe/semsearchd/internal/source"
	"github.com/mvp-joe/semsearchd/internal/vectorstore"
)

// DefaultConcurrency is the default cross-file parallelism ceiling: small,
// enough to pipeline embedding calls without overwhelming the endpoint.
const DefaultConcurrency = 4

// embedRetryAttempts, embedRetryBase are the backoff parameters used for
// embedding calls: base 1s, factor 2, up to 3 attempts. Rerank calls are not
// retried.
const (
	embedRetryAttempts = 3
	embedRetryBase     = time.Second
)

// Stats summarizes one IndexAll/Reconcile pass, the shape returned by
// reindex_vault.
type Stats struct {
	Processed     int
	Skipped       int
	ChunksCreated int
	Duration      time.Duration
	Errors        []string
}

// frontmatterDoc is the subset of YAML frontmatter the indexer reads: tags.
type frontmatterDoc struct {
	Tags []string `yaml:"tags"`
}

// Indexer orchestrates indexing across a fixed set of Sources, serializing
// per-(source, path) work and bounding cross-file concurrency.
type Indexer struct {
	sources  map[string]*source.Source
	store    *vectorstore.Store
	ledger   *ledger.Ledger
	embedder embed.Embedder
	chunker  chunk.Chunker
	log      logging.Logger

	concurrency int
	batchSize   int

	pathLocksMu sync.Mutex
	pathLocks   map[string]*sync.Mutex

	progress func(sourceID, relativePath string)
}

// SetProgressHook registers fn to be called once per file after IndexAll or
// Reconcile processes it (whether indexed, skipped, or errored), the seam
// the CLI's progress bar hangs off of. A nil fn disables reporting.
func (idx *Indexer) SetProgressHook(fn func(sourceID, relativePath string)) {
	idx.progress = fn
}

// New builds an Indexer. concurrency <= 0 uses DefaultConcurrency. batchSize
// <= 0 sends every file's chunks to the embedder in a single call; otherwise
// a file's chunk texts are split into groups of at most batchSize texts per
// embedding call.
func New(
	sources []*source.Source,
	store *vectorstore.Store,
	led *ledger.Ledger,
	embedder embed.Embedder,
	chunker chunk.Chunker,
	concurrency int,
	batchSize int,
	log logging.Logger,
) *Indexer {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if log == nil {
		log = logging.Nop{}
	}

	bySourceID := make(map[string]*source.Source, len(sources))
	for _, s := range sources {
		bySourceID[s.ID] = s
	}

	return &Indexer{
		sources:     bySourceID,
		store:       store,
		ledger:      led,
		embedder:    embedder,
		chunker:     chunker,
		log:         log,
		concurrency: concurrency,
		batchSize:   batchSize,
		pathLocks:   make(map[string]*sync.Mutex),
	}
}

func (idx *Indexer) pathLock(sourceID, relativePath string) *sync.Mutex {
	key := sourceID + "::" + relativePath
	idx.pathLocksMu.Lock()
	defer idx.pathLocksMu.Unlock()
	m, ok := idx.pathLocks[key]
	if !ok {
		m = &sync.Mutex{}
		idx.pathLocks[key] = m
	}
	return m
}

// IndexAll walks every configured source and reindexes it, per file,
// skipping files whose content hash is unchanged from the ledger unless
// force is set. It is cancellable at file boundaries: a cancelled pass
// leaves every file that completed in a valid state.
func (idx *Indexer) IndexAll(ctx context.Context, force bool) (Stats, error) {
	start := time.Now()

	type job struct {
		sourceID string
		relPath  string
	}
	var jobs []job
	for sourceID, src := range idx.sources {
		rels, err := src.Discover()
		if err != nil {
			return Stats{}, err
		}
		for _, rel := range rels {
			jobs = append(jobs, job{sourceID: sourceID, relPath: rel})
		}
	}
	// Deterministic ordering keeps IndexAll reproducible across runs for
	// the same file set, useful for tests and progress reporting alike.
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].sourceID != jobs[j].sourceID {
			return jobs[i].sourceID < jobs[j].sourceID
		}
		return jobs[i].relPath < jobs[j].relPath
	})

	stats := Stats{}
	var statsMu sync.Mutex

	sem := semaphore.NewWeighted(int64(idx.concurrency))
	var wg sync.WaitGroup

	for _, j := range jobs {
		if err := sem.Acquire(ctx, 1); err != nil {
			// ctx was cancelled while waiting for a slot; every job already
			// dispatched still runs to completion below.
			break
		}
		wg.Add(1)
		go func(j job) {
			defer wg.Done()
			defer sem.Release(1)

			result, err := idx.IndexSingle(ctx, j.sourceID, j.relPath, force)
			if idx.progress != nil {
				idx.progress(j.sourceID, j.relPath)
			}

			statsMu.Lock()
			defer statsMu.Unlock()
			switch {
			case err != nil:
				stats.Errors = append(stats.Errors, fmt.Sprintf("%s/%s: %v", j.sourceID, j.relPath, err))
			case result.skipped:
				stats.Skipped++
			default:
				stats.Processed++
				stats.ChunksCreated += result.chunksCreated
			}
		}(j)
	}
	wg.Wait()

	stats.Duration = time.Since(start)
	return stats, nil
}

// indexResult is IndexSingle's internal outcome, used to aggregate Stats.
type indexResult struct {
	skipped       bool
	chunksCreated int
}

// IndexSingle reindexes exactly one file: hash, compare to the ledger,
// chunk, extract metadata, embed, and upsert. Concurrent calls for the same
// (sourceID, relativePath) are serialized through a per-path mutex, so at
// most one delete/upsert pair is ever in flight for a given file.
func (idx *Indexer) IndexSingle(ctx context.Context, sourceID, relativePath string, force bool) (indexResult, error) {
	if err := ctx.Err(); err != nil {
		return indexResult{}, apperr.Wrap(apperr.Cancelled, err, "index cancelled")
	}

	src, ok := idx.sources[sourceID]
	if !ok {
		return indexResult{}, apperr.New(apperr.NotFound, "unknown source %s", sourceID)
	}

	lock := idx.pathLock(sourceID, relativePath)
	lock.Lock()
	defer lock.Unlock()

	abs, err := src.ResolvePath(relativePath)
	if err != nil {
		return indexResult{}, err
	}

	content, modTime, err := readFileWithModTime(abs)
	if err != nil {
		return indexResult{}, apperr.Wrap(apperr.IOError, err, "reading %s", abs)
	}

	contentHash := hash.ContentHash(content)

	if !force {
		if rec, found, err := idx.ledger.Get(ctx, sourceID, relativePath); err == nil && found && rec.ContentHash == contentHash {
			return indexResult{skipped: true}, nil
		}
	}

	body, frontmatterLines := chunk.StripFrontmatter(string(content))

	var fm frontmatterDoc
	if len(frontmatterLines) > 0 {
		_ = yaml.Unmarshal([]byte(strings.Join(frontmatterLines, "\n")), &fm)
	}

	chunks, warnings := idx.chunker.ChunkText(body)
	for _, w := range warnings {
		idx.log.Warnf("chunking %s/%s: %s", sourceID, relativePath, w)
	}

	tags := meta.ExtractTags(fm.Tags, body)
	folder := filepath.ToSlash(filepath.Dir(relativePath))
	if folder == "." {
		folder = ""
	}

	if len(chunks) == 0 {
		if err := idx.store.DeleteByFile(ctx, sourceID, relativePath); err != nil {
			return indexResult{}, err
		}
		if err := idx.ledger.Put(ctx, ledger.Record{
			SourceID:     sourceID,
			RelativePath: relativePath,
			ContentHash:  contentHash,
			ModTime:      modTime,
		}); err != nil {
			return indexResult{}, apperr.Wrap(apperr.IOError, err, "updating ledger for %s/%s", sourceID, relativePath)
		}
		return indexResult{}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := idx.embedAll(ctx, texts)
	if err != nil {
		return indexResult{}, err
	}

	// Delete only after embedding succeeds, so a transient embedding
	// failure leaves the file's existing chunks in place instead of
	// wiping them ahead of an upsert that never happens.
	if err := idx.store.DeleteByFile(ctx, sourceID, relativePath); err != nil {
		return indexResult{}, err
	}

	storeChunks := make([]vectorstore.Chunk, len(chunks))
	for i, c := range chunks {
		storeChunks[i] = vectorstore.Chunk{
			ID:            fmt.Sprintf("%s::%s::%d", sourceID, relativePath, i),
			SourceID:      sourceID,
			RelativePath:  relativePath,
			ChunkIndex:    i,
			Text:          c.Text,
			Embedding:     vectors[i],
			HeaderContext: c.HeaderContext,
			Folder:        folder,
			Tags:          tags,
		}
	}

	if err := idx.store.Upsert(ctx, storeChunks); err != nil {
		return indexResult{}, err
	}

	if err := idx.ledger.Put(ctx, ledger.Record{
		SourceID:     sourceID,
		RelativePath: relativePath,
		ContentHash:  contentHash,
		ModTime:      modTime,
	}); err != nil {
		return indexResult{}, apperr.Wrap(apperr.IOError, err, "updating ledger for %s/%s", sourceID, relativePath)
	}

	return indexResult{chunksCreated: len(storeChunks)}, nil
}

// IndexSingleChunks reindexes one file with force=false and returns only the
// chunk count, the shape index_note and write_note need.
func (idx *Indexer) IndexSingleChunks(ctx context.Context, sourceID, relativePath string) (int, error) {
	result, err := idx.IndexSingle(ctx, sourceID, relativePath, false)
	if err != nil {
		return 0, err
	}
	return result.chunksCreated, nil
}

// RemoveFile deletes a file's chunks and ledger record, used both by
// delete_note and by the watcher's immediate-dispatch delete handling.
func (idx *Indexer) RemoveFile(ctx context.Context, sourceID, relativePath string) error {
	lock := idx.pathLock(sourceID, relativePath)
	lock.Lock()
	defer lock.Unlock()

	if err := idx.store.DeleteByFile(ctx, sourceID, relativePath); err != nil {
		return err
	}
	return idx.ledger.Delete(ctx, sourceID, relativePath)
}

// Reconcile restores full ledger/source consistency after a watcher gap or
// a cancelled reindex: every ledger record whose file no longer exists (or
// whose source no longer has it within the include/exclude scope) is
// removed, and every discoverable file is passed through IndexSingle so a
// missed debounce window is eventually caught.
func (idx *Indexer) Reconcile(ctx context.Context) (Stats, error) {
	start := time.Now()
	stats := Stats{}

	for sourceID, src := range idx.sources {
		knownPaths, err := idx.ledger.ListBySource(ctx, sourceID)
		if err != nil {
			return Stats{}, err
		}
		discovered, err := src.Discover()
		if err != nil {
			return Stats{}, err
		}
		onDisk := make(map[string]bool, len(discovered))
		for _, rel := range discovered {
			onDisk[rel] = true
		}

		for _, rel := range knownPaths {
			if !onDisk[rel] {
				if err := idx.RemoveFile(ctx, sourceID, rel); err != nil {
					stats.Errors = append(stats.Errors, fmt.Sprintf("%s/%s: %v", sourceID, rel, err))
					continue
				}
				stats.Processed++
			}
		}

		for _, rel := range discovered {
			if ctx.Err() != nil {
				break
			}
			result, err := idx.IndexSingle(ctx, sourceID, rel, false)
			if idx.progress != nil {
				idx.progress(sourceID, rel)
			}
			if err != nil {
				stats.Errors = append(stats.Errors, fmt.Sprintf("%s/%s: %v", sourceID, rel, err))
				continue
			}
			if result.skipped {
				stats.Skipped++
			} else {
				stats.Processed++
				stats.ChunksCreated += result.chunksCreated
			}
		}
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

// readFileWithModTime reads a file's content alongside its on-disk
// modification time, recorded in the ledger for diagnostic purposes
// alongside the authoritative content hash.
func readFileWithModTime(path string) ([]byte, time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	return content, info.ModTime(), nil
}

// embedAll splits texts into groups of at most idx.batchSize (the whole
// slice in one group when batchSize <= 0) and embeds each group through
// embedWithRetry, concatenating the resulting vectors back into the
// original order.
func (idx *Indexer) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	if idx.batchSize <= 0 || len(texts) <= idx.batchSize {
		return idx.embedWithRetry(ctx, texts)
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += idx.batchSize {
		end := start + idx.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := idx.embedWithRetry(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// embedWithRetry wraps Embedder.Embed with exponential backoff for upstream
// embedding calls: base 1s, factor 2, up to 3 attempts, retrying only
// transient UpstreamUnavailable failures.
func (idx *Indexer) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	wait := embedRetryBase
	for attempt := 1; attempt <= embedRetryAttempts; attempt++ {
		vectors, err := idx.embedder.Embed(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err

		kind, _ := apperr.KindOf(err)
		if kind != apperr.UpstreamUnavailable || attempt == embedRetryAttempts {
			return nil, err
		}

		idx.log.Warnf("embedding attempt %d/%d failed: %v, retrying in %s", attempt, embedRetryAttempts, err, wait)
		select {
		case <-ctx.Done():
			return nil, apperr.Wrap(apperr.Cancelled, ctx.Err(), "embed retry cancelled")
		case <-time.After(wait):
		}
		wait *= 2
	}
	return nil, lastErr
}
