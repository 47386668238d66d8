// Package embed provides the Embedder interface and an HTTP-backed
// implementation. Embedding is treated as a pure external function: the
// core never bundles a model runtime.
package embed

import "context"

// Embedder turns text into vectors. Implementations must be safe for
// concurrent use; the indexer calls Embed from multiple goroutines during a
// batch reindex.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelID() string
}

// CredentialRotator is the external collaborator credential rotation needs:
// when an Embedder reports QuotaExhausted, the caller invokes Rotate to
// obtain a fresh credential and retries once. Rotation policy (the ring of
// credentials, the audit log) lives outside the core; this interface is the
// seam.
type CredentialRotator interface {
	Rotate(ctx context.Context) (credential string, ok bool)
}
