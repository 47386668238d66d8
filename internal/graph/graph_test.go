package graph

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/semsearchd/internal/source"
	"github.com/mvp-joe/semsearchd/internal/vectorstore"
)

func writeNote(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func newVaultSource(t *testing.T) (*source.Source, string) {
	t.Helper()
	root := t.TempDir()
	s, err := source.New("vault", "Vault", root, source.KindMarkdown, []string{"**/*.md"}, nil)
	require.NoError(t, err)
	return s, root
}

func TestIndex_Orphans(t *testing.T) {
	src, root := newVaultSource(t)
	writeNote(t, root, "a.md", "links to [[b]]")
	writeNote(t, root, "b.md", "no outbound links")
	writeNote(t, root, "c.md", "also no outbound links")

	store, err := vectorstore.Open(t.TempDir(), "fake", 2)
	require.NoError(t, err)

	idx := New([]*source.Source{src}, store)
	orphans, err := idx.Orphans()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.md", "c.md"}, orphans)
}

func TestIndex_MostLinked(t *testing.T) {
	src, root := newVaultSource(t)
	writeNote(t, root, "a.md", "see [[target]]")
	writeNote(t, root, "b.md", "see [[target]] and [[other]]")
	writeNote(t, root, "target.md", "")
	writeNote(t, root, "other.md", "")

	store, err := vectorstore.Open(t.TempDir(), "fake", 2)
	require.NoError(t, err)

	idx := New([]*source.Source{src}, store)
	counts, err := idx.MostLinked()
	require.NoError(t, err)
	require.NotEmpty(t, counts)
	assert.Equal(t, "target", counts[0].Title)
	assert.Equal(t, 2, counts[0].Count)
}

func TestIndex_SuggestLinks_ExcludesExistingLink(t *testing.T) {
	src, root := newVaultSource(t)
	writeNote(t, root, "source.md", "already linked to [[target]]")
	writeNote(t, root, "target.md", "target content")
	writeNote(t, root, "other.md", "other content")

	store, err := vectorstore.Open(t.TempDir(), "fake", 3)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []vectorstore.Chunk{
		{ID: "vault::source.md::0", SourceID: "vault", RelativePath: "source.md", Text: "already linked to target", Embedding: []float32{1, 0, 0}},
		{ID: "vault::target.md::0", SourceID: "vault", RelativePath: "target.md", Text: "target content", Embedding: []float32{0.99, 0.01, 0}, HeaderContext: "Target"},
		{ID: "vault::other.md::0", SourceID: "vault", RelativePath: "other.md", Text: "other content", Embedding: []float32{0.95, 0.05, 0}, HeaderContext: "Other"},
	}))

	idx := New([]*source.Source{src}, store)
	candidates, err := idx.SuggestLinks(ctx, "vault", "source.md", 5, 0)
	require.NoError(t, err)

	for _, c := range candidates {
		assert.NotEqual(t, "target.md", c.RelativePath)
	}
}

func TestIndex_Duplicates_IdenticalCentroidsAboveThreshold(t *testing.T) {
	store, err := vectorstore.Open(t.TempDir(), "fake", 3)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []vectorstore.Chunk{
		{ID: "vault::a.md::0", SourceID: "vault", RelativePath: "a.md", Text: "same content", Embedding: []float32{1, 0, 0}},
		{ID: "vault::b.md::0", SourceID: "vault", RelativePath: "b.md", Text: "same content", Embedding: []float32{1, 0, 0}},
		{ID: "vault::c.md::0", SourceID: "vault", RelativePath: "c.md", Text: "different", Embedding: []float32{0, 1, 0}},
	}))

	idx := New(nil, store)
	pairs, err := idx.Duplicates(ctx, 0.95)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.ElementsMatch(t, []string{"vault::a.md", "vault::b.md"}, []string{pairs[0].A, pairs[0].B})
	assert.InDelta(t, 1.0, pairs[0].Similarity, 1e-6)
}
