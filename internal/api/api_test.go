package api

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/semsearchd/internal/chunk"
	"github.com/mvp-joe/semsearchd/internal/graph"
	"github.com/mvp-joe/semsearchd/internal/indexer"
	"github.com/mvp-joe/semsearchd/internal/ledger"
	"github.com/mvp-joe/semsearchd/internal/logging"
	"github.com/mvp-joe/semsearchd/internal/query"
	"github.com/mvp-joe/semsearchd/internal/source"
	"github.com/mvp-joe/semsearchd/internal/vectorstore"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}
func (fakeEmbedder) Dimensions() int  { return 3 }
func (fakeEmbedder) ModelID() string { return "fake" }

func newTestService(t *testing.T) (*Service, *source.Source, string) {
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
	idx := indexer.New([]*source.Source{src}, store, led, fakeEmbedder{}, chunker, 2, 0, logging.Nop{})
	q := query.New(store, fakeEmbedder{}, nil, false)
	g := graph.New([]*source.Source{src}, store)

	svc := New([]*source.Source{src}, q, idx, g, store)
	return svc, src, root
}

func TestService_WriteThenReadNote(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	result, err := svc.WriteNote(ctx, "vault/note.md", "# Hello\n\nWorld", true)
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Greater(t, result.Chunks, 0)

	read, err := svc.ReadNote("vault/note.md")
	require.NoError(t, err)
	assert.Contains(t, read.Content, "Hello")
}

func TestService_AppendToNote(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.WriteNote(ctx, "vault/note.md", "line one\n", true)
	require.NoError(t, err)

	result, err := svc.AppendToNote(ctx, "vault/note.md", "line two\n")
	require.NoError(t, err)
	assert.Equal(t, len("line one\nline two\n"), result.Size)
}

func TestService_DeleteNote(t *testing.T) {
	svc, _, root := newTestService(t)
	ctx := context.Background()

	_, err := svc.WriteNote(ctx, "vault/note.md", "content", true)
	require.NoError(t, err)

	result, err := svc.DeleteNote(ctx, "vault/note.md")
	require.NoError(t, err)
	assert.True(t, result.Deleted)

	_, err = os.Stat(filepath.Join(root, "note.md"))
	assert.True(t, os.IsNotExist(err))
}

func TestService_SearchNotes(t *testing.T) {
	svc, _, root := newTestService(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "alpha.md"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "beta.md"), []byte("b"), 0o644))

	matches, err := svc.SearchNotes("*.md", "")
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestService_GetVaultStructure(t *testing.T) {
	svc, _, root := newTestService(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "note.md"), []byte("x"), 0o644))

	tree, err := svc.GetVaultStructure("", 0)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, "vault", tree[0].Name)
}

func TestService_GetOrphanedNotes(t *testing.T) {
	svc, _, root := newTestService(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.md"), []byte("no links"), 0o644))

	orphans, err := svc.GetOrphanedNotes()
	require.NoError(t, err)
	assert.Contains(t, orphans, "a.md")
}

func TestService_SemanticSearch(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.WriteNote(ctx, "vault/note.md", "semantic content", true)
	require.NoError(t, err)

	hits, err := svc.SemanticSearch(ctx, "semantic", 5, "", "", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, hits)
}
