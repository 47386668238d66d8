package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/semsearchd/internal/vectorstore"
)

type fakeEmbedder struct {
	vector []float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}
func (f *fakeEmbedder) Dimensions() int  { return len(f.vector) }
func (f *fakeEmbedder) ModelID() string { return "fake" }

type fakeReranker struct {
	scoreFor map[string]float64
}

func (f *fakeReranker) Score(ctx context.Context, query string, docs []string) ([]float64, error) {
	scores := make([]float64, len(docs))
	for i, d := range docs {
		scores[i] = f.scoreFor[d]
	}
	return scores, nil
}
func (f *fakeReranker) ModelID() string { return "fake-rerank" }

func newStoreWithChunks(t *testing.T) *vectorstore.Store {
	t.Helper()
	s, err := vectorstore.Open(t.TempDir(), "fake", 3)
	require.NoError(t, err)

	require.NoError(t, s.Upsert(context.Background(), []vectorstore.Chunk{
		{ID: "v::a.md::0", SourceID: "v", RelativePath: "a.md", Text: "alpha content", Embedding: []float32{1, 0, 0}, Tags: []string{"work"}},
		{ID: "v::b.md::0", SourceID: "v", RelativePath: "b.md", Text: "beta content", Embedding: []float32{0.9, 0.1, 0}, Tags: []string{"personal"}},
		{ID: "v::c.md::0", SourceID: "v", RelativePath: "c.md", Text: "gamma content", Embedding: []float32{0.8, 0.2, 0}, Tags: []string{"work"}},
	}))
	return s
}

func TestService_Search_NoRerank(t *testing.T) {
	store := newStoreWithChunks(t)
	svc := New(store, &fakeEmbedder{vector: []float32{1, 0, 0}}, nil, false)

	hits, err := svc.Search(context.Background(), "query", 2, Filters{})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "alpha content", hits[0].Text)
}

func TestService_Search_WithRerankReorders(t *testing.T) {
	store := newStoreWithChunks(t)
	reranker := &fakeReranker{scoreFor: map[string]float64{
		"alpha content": 0.1,
		"beta content":  0.9,
		"gamma content": 0.5,
	}}
	svc := New(store, &fakeEmbedder{vector: []float32{1, 0, 0}}, reranker, true)

	hits, err := svc.Search(context.Background(), "query", 3, Filters{})
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "beta content", hits[0].Text)
	assert.Equal(t, "gamma content", hits[1].Text)
	assert.Equal(t, "alpha content", hits[2].Text)
}

func TestService_Search_TagsFilter(t *testing.T) {
	store := newStoreWithChunks(t)
	svc := New(store, &fakeEmbedder{vector: []float32{1, 0, 0}}, nil, false)

	hits, err := svc.Search(context.Background(), "query", 5, Filters{Tags: []string{"work"}})
	require.NoError(t, err)
	for _, h := range hits {
		assert.Contains(t, h.Metadata["tags"], "work")
	}
}
