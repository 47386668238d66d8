package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/semsearchd/internal/apperr"
	"github.com/mvp-joe/semsearchd/internal/chunk"
	"github.com/mvp-joe/semsearchd/internal/ledger"
	"github.com/mvp-joe/semsearchd/internal/logging"
	"github.com/mvp-joe/semsearchd/internal/source"
	"github.com/mvp-joe/semsearchd/internal/vectorstore"
)

type fakeEmbedder struct {
	calls      int
	fail       int // number of leading calls to fail with UpstreamUnavailable
	batchSizes []int
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	f.batchSizes = append(f.batchSizes, len(texts))
	if f.calls <= f.fail {
		return nil, apperr.New(apperr.UpstreamUnavailable, "transient failure")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}
func (f *fakeEmbedder) Dimensions() int  { return 3 }
func (f *fakeEmbedder) ModelID() string { return "fake" }

func newTestIndexer(t *testing.T, embedder *fakeEmbedder) (*Indexer, *source.Source, string) {
	t.Helper()
	root := t.TempDir()
	src, err := source.New("vault", "Vault", root, source.KindMarkdown, []string{"**/*.md"}, nil)
	require.NoError(t, err)

	store, err := vectorstore.Open(t.TempDir(), "fake", 3)
	require.NoError(t, err)

	led, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { led.Close() })

	chunker := chunk.New(chunk.DefaultThresholds(), func(s string) int { return len(s) / 4 })

	idx := New([]*source.Source{src}, store, led, embedder, chunker, 2, 0, logging.Nop{})
	return idx, src, root
}

func TestIndexSingle_EmbedsAndStoresChunks(t *testing.T) {
	embedder := &fakeEmbedder{}
	idx, _, root := newTestIndexer(t, embedder)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.md"), []byte("# Title\n\nSome content here."), 0o644))

	ctx := context.Background()
	result, err := idx.IndexSingle(ctx, "vault", "a.md", false)
	require.NoError(t, err)
	assert.False(t, result.skipped)
	assert.Greater(t, result.chunksCreated, 0)
}

func TestIndexSingle_SkipsUnchangedContent(t *testing.T) {
	embedder := &fakeEmbedder{}
	idx, _, root := newTestIndexer(t, embedder)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.md"), []byte("# Title\n\nSome content."), 0o644))

	ctx := context.Background()
	_, err := idx.IndexSingle(ctx, "vault", "a.md", false)
	require.NoError(t, err)

	result, err := idx.IndexSingle(ctx, "vault", "a.md", false)
	require.NoError(t, err)
	assert.True(t, result.skipped)
}

func TestEmbedAll_SplitsLargeFilesIntoBatches(t *testing.T) {
	embedder := &fakeEmbedder{}
	idx, _, _ := newTestIndexer(t, embedder)
	idx.batchSize = 2

	texts := []string{"a", "b", "c", "d", "e"}
	vectors, err := idx.embedAll(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, vectors, len(texts))
	assert.Equal(t, []int{2, 2, 1}, embedder.batchSizes)
}

func TestEmbedAll_NoBatchSizeSendsOneCall(t *testing.T) {
	embedder := &fakeEmbedder{}
	idx, _, _ := newTestIndexer(t, embedder)

	texts := []string{"a", "b", "c"}
	vectors, err := idx.embedAll(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, vectors, len(texts))
	assert.Equal(t, []int{3}, embedder.batchSizes)
}

func TestIndexSingle_ForceReindexesUnchangedContent(t *testing.T) {
	embedder := &fakeEmbedder{}
	idx, _, root := newTestIndexer(t, embedder)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.md"), []byte("# Title\n\nSome content."), 0o644))

	ctx := context.Background()
	_, err := idx.IndexSingle(ctx, "vault", "a.md", false)
	require.NoError(t, err)

	result, err := idx.IndexSingle(ctx, "vault", "a.md", true)
	require.NoError(t, err)
	assert.False(t, result.skipped)
}

func TestIndexAll_ProcessesAllDiscoveredFiles(t *testing.T) {
	embedder := &fakeEmbedder{}
	idx, _, root := newTestIndexer(t, embedder)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.md"), []byte("content a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.md"), []byte("content b"), 0o644))

	stats, err := idx.IndexAll(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Processed)
	assert.Empty(t, stats.Errors)
}

func TestIndexSingle_RetriesTransientEmbedFailures(t *testing.T) {
	embedder := &fakeEmbedder{fail: 1}
	idx, _, root := newTestIndexer(t, embedder)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.md"), []byte("content that needs embedding"), 0o644))

	result, err := idx.IndexSingle(context.Background(), "vault", "a.md", false)
	require.NoError(t, err)
	assert.Greater(t, result.chunksCreated, 0)
	assert.Equal(t, 2, embedder.calls)
}

func TestRemoveFile_DeletesFromStoreAndLedger(t *testing.T) {
	embedder := &fakeEmbedder{}
	idx, _, root := newTestIndexer(t, embedder)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.md"), []byte("content"), 0o644))
	ctx := context.Background()
	_, err := idx.IndexSingle(ctx, "vault", "a.md", false)
	require.NoError(t, err)

	require.NoError(t, idx.RemoveFile(ctx, "vault", "a.md"))

	_, found, err := idx.ledger.Get(ctx, "vault", "a.md")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestReconcile_RemovesLedgerEntriesForDeletedFiles(t *testing.T) {
	embedder := &fakeEmbedder{}
	idx, _, root := newTestIndexer(t, embedder)

	path := filepath.Join(root, "a.md")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))
	ctx := context.Background()
	_, err := idx.IndexSingle(ctx, "vault", "a.md", false)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))

	stats, err := idx.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)

	_, found, err := idx.ledger.Get(ctx, "vault", "a.md")
	require.NoError(t, err)
	assert.False(t, found)
}
