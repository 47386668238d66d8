// Package query implements the query service: embed once, over-fetch from
// the vector repository, optionally rerank, and return the top k hits.
// Grounded on the prior chromemSearcher.Query
// (internal/mcp/chromem_searcher.go) for the embed-then-retrieve shape,
// generalized with an explicit reranking stage the prior searcher never
// performed.
package query

import (
	"context"
	"sort"

	"github.com/mvp-joe/semsearchd/internal/apperr"
	"github.com/mvp-joe/semsearchd/internal/embed"
	"github.com/mvp-joe/semsearchd/internal/rerank"
	"github.com/mvp-joe/semsearchd/internal/vectorstore"
)

// unrerankedMultiplier and rerankedMultiplier are the over-fetch factors F:
// fetch k*F candidates from the repository before the (optional) rerank
// pass narrows back down to k.
const (
	unrerankedMultiplier = 1
	rerankedMultiplier   = 5
)

// Filters narrows a search to a subset of the corpus; it is the API-facing
// counterpart of vectorstore.Where.
type Filters struct {
	SourceID string
	Folder   string
	Tags     []string
}

// Hit is one ranked search result.
type Hit struct {
	Text       string
	Similarity float32
	Metadata   map[string]string
}

// Service answers semantic_search requests.
type Service struct {
	store         *vectorstore.Store
	embedder      embed.Embedder
	reranker      rerank.Reranker
	rerankEnabled bool
}

// New builds a Service. reranker may be nil when rerankEnabled is false.
func New(store *vectorstore.Store, embedder embed.Embedder, reranker rerank.Reranker, rerankEnabled bool) *Service {
	return &Service{store: store, embedder: embedder, reranker: reranker, rerankEnabled: rerankEnabled}
}

// Search runs the full pipeline: embed query once, retrieve k*F candidates
// under filters, rerank if enabled, and return the top k.
func (s *Service) Search(ctx context.Context, queryText string, k int, filters Filters) ([]Hit, error) {
	if k <= 0 {
		k = 10
	}

	vectors, err := s.embedder.Embed(ctx, []string{queryText})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, apperr.New(apperr.UpstreamUnavailable, "embedding client returned no vector for query")
	}

	multiplier := unrerankedMultiplier
	if s.rerankEnabled && s.reranker != nil {
		multiplier = rerankedMultiplier
	}

	candidates, err := s.store.Query(ctx, vectors[0], k*multiplier, vectorstore.Where{
		SourceID: filters.SourceID,
		Folder:   filters.Folder,
		Tags:     filters.Tags,
	})
	if err != nil {
		return nil, err
	}

	if !s.rerankEnabled || s.reranker == nil || len(candidates) == 0 {
		return toHits(candidates, k), nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}

	scores, err := s.reranker.Score(ctx, queryText, texts)
	if err != nil {
		return nil, err
	}

	type scored struct {
		hit   vectorstore.Hit
		score float64
	}
	ranked := make([]scored, len(candidates))
	for i, c := range candidates {
		ranked[i] = scored{hit: c, score: scores[i]}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	// Replace each hit's vector similarity with the reranker's score: once
	// reranking runs, the emitted Similarity is on the reranker's scale,
	// not the original cosine-similarity scale candidates were fetched on.
	ordered := make([]vectorstore.Hit, len(ranked))
	for i, r := range ranked {
		r.hit.Similarity = float32(r.score)
		ordered[i] = r.hit
	}
	return toHits(ordered, k), nil
}

func toHits(candidates []vectorstore.Hit, k int) []Hit {
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	hits := make([]Hit, len(candidates))
	for i, c := range candidates {
		hits[i] = Hit{Text: c.Text, Similarity: c.Similarity, Metadata: c.Metadata}
	}
	return hits
}
