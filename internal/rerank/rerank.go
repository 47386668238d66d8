// Package rerank provides the Reranker interface and an HTTP-backed
// cross-encoder implementation, mirroring internal/embed's transport
// pattern since both are external-model collaborators.
package rerank

import "context"

// Reranker scores a query against a set of candidate documents, returning
// one score per document in the same order. Higher scores rank first.
type Reranker interface {
	Score(ctx context.Context, query string, docs []string) ([]float64, error)
	ModelID() string
}
