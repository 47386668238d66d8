// Package vectorstore implements the vector repository on top of
// chromem-go, grounded on the prior chromemSearcher
// (internal/mcp/chromem_searcher.go): one collection, AddDocument/
// QueryEmbedding/Delete as the primitive operations, native WHERE-clause
// equality filtering plus a post-filter pass for predicates chromem-go
// cannot express natively (tags membership-in-joined-string).
package vectorstore

import (
	"context"
	"fmt"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/mvp-joe/semsearchd/internal/apperr"
)

const collectionName = "semsearchd_chunks"

// overfetchMultiplier controls how many extra candidates are pulled from
// chromem-go's native KNN before the tags post-filter is applied, the same
// over-fetch-then-post-filter shape the prior implementation uses for multi-tag AND
// queries.
const overfetchMultiplier = 5

// Chunk is the unit the repository persists: one embedded text span plus
// its metadata, keyed by a literal chunk id format
// "{source_id}::{relative_path}::{chunk_index}".
type Chunk struct {
	ID            string
	SourceID      string
	RelativePath  string
	ChunkIndex    int
	Text          string
	Embedding     []float32
	HeaderContext string
	Folder        string
	Tags          []string
}

// Hit is one ranked result from Query.
type Hit struct {
	ID         string
	Text       string
	Distance   float32
	Similarity float32
	Metadata   map[string]string
	Embedding  []float32
}

// Where is the metadata predicate Query and ScanMetadata accept: SourceID
// and Folder are equality filters, Tags is membership-in-joined-string
// (a hit matches if it carries ALL listed tags).
type Where struct {
	SourceID string
	Folder   string
	Tags     []string
}

// Stats reports repository-wide counts for get_index_stats.
type Stats struct {
	ChunkCount int
	FileCount  int
	Model      string
}

// Store is the Vector Repository. It is safe for concurrent use: chromem-go
// collections serialize their own document map internally, and Store also
// holds its own mutex for the whole of each write (Upsert, DeleteByFile,
// DeleteByID), while reads take it only briefly to fetch the collection.
type Store struct {
	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
	model      string
	dimensions int
}

// Open creates or loads a persistent chromem-go database rooted at path —
// the store owns that directory outright, and its on-disk schema is
// opaque — and ensures the single chunks collection exists.
// dimensions must match the configured embedding model's output size; it is
// used only to build the all-ones probe vector full-scan operations
// (GetByPath, ScanMetadata) issue against chromem-go's KNN index.
func Open(path, embeddingModel string, dimensions int) (*Store, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, apperr.Wrap(apperr.IOError, err, "opening vector store at %s", path)
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.IOError, err, "creating collection %s", collectionName)
	}

	return &Store{db: db, collection: collection, model: embeddingModel, dimensions: dimensions}, nil
}

// probeVector returns a non-degenerate unit-ish vector of the store's
// configured dimensionality, used to drive full-collection scans through
// QueryEmbedding: chromem-go exposes no native "list all documents"
// operation, so a scan is a KNN query wide enough to return every document,
// where the probe's direction is irrelevant because every document is
// requested (nResults == collection size).
func (s *Store) probeVector() []float32 {
	v := make([]float32, s.dimensions)
	for i := range v {
		v[i] = 1
	}
	return v
}

func toMetadata(c Chunk) map[string]string {
	return map[string]string{
		"source_id":      c.SourceID,
		"relative_path":  c.RelativePath,
		"chunk_index":    fmt.Sprintf("%d", c.ChunkIndex),
		"header_context": c.HeaderContext,
		"folder":         c.Folder,
		"tags":           strings.Join(c.Tags, ","),
	}
}

// Upsert inserts or overwrites chunks by primary key, idempotent on ID.
// chromem-go has no native upsert, so each document is deleted (ignoring
// not-found) before being re-added, mirroring the prior UpdateIncremental
// delete-then-add pattern.
func (s *Store) Upsert(ctx context.Context, chunks []Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range chunks {
		_ = s.collection.Delete(ctx, nil, nil, c.ID)
		doc := chromem.Document{
			ID:        c.ID,
			Content:   c.Text,
			Embedding: c.Embedding,
			Metadata:  toMetadata(c),
		}
		if err := s.collection.AddDocument(ctx, doc); err != nil {
			return apperr.Wrap(apperr.IOError, err, "upserting chunk %s", c.ID)
		}
	}
	return nil
}

// DeleteByFile removes all chunks belonging to one file, required to be
// called prior to re-inserting that file's chunks.
func (s *Store) DeleteByFile(ctx context.Context, sourceID, relativePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	where := map[string]string{"source_id": sourceID, "relative_path": relativePath}
	if err := s.collection.Delete(ctx, where, nil); err != nil {
		return apperr.Wrap(apperr.IOError, err, "deleting chunks for %s/%s", sourceID, relativePath)
	}
	return nil
}

// DeleteByID removes chunks by primary key.
func (s *Store) DeleteByID(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.collection.Delete(ctx, nil, nil, ids...); err != nil {
		return apperr.Wrap(apperr.IOError, err, "deleting %d chunks by id", len(ids))
	}
	return nil
}

// Query runs cosine k-NN against queryVector, applying where as a
// pre-filter (native equality on source_id/folder, with tags membership
// applied as a post-filter since chromem-go's WHERE clause only supports
// per-key equality). Results are ordered by ascending distance.
func (s *Store) Query(ctx context.Context, queryVector []float32, k int, where Where) ([]Hit, error) {
	s.mu.RLock()
	collection := s.collection
	s.mu.RUnlock()

	native := map[string]string{}
	if where.SourceID != "" {
		native["source_id"] = where.SourceID
	}
	if where.Folder != "" {
		native["folder"] = where.Folder
	}

	fetch := k
	if len(where.Tags) > 0 {
		fetch = k * overfetchMultiplier
	}
	if fetch > collection.Count() {
		fetch = collection.Count()
	}
	if fetch <= 0 {
		return nil, nil
	}

	docs, err := collection.QueryEmbedding(ctx, queryVector, fetch, native, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.IOError, err, "querying vector store")
	}

	hits := make([]Hit, 0, k)
	for _, doc := range docs {
		if len(where.Tags) > 0 && !hasAllTags(doc.Metadata["tags"], where.Tags) {
			continue
		}
		hits = append(hits, Hit{
			ID:         doc.ID,
			Text:       doc.Content,
			Distance:   1 - doc.Similarity,
			Similarity: doc.Similarity,
			Metadata:   doc.Metadata,
		})
		if len(hits) >= k {
			break
		}
	}
	return hits, nil
}

func hasAllTags(joined string, required []string) bool {
	if joined == "" {
		return false
	}
	present := make(map[string]bool)
	for _, t := range strings.Split(joined, ",") {
		present[t] = true
	}
	for _, r := range required {
		if !present[r] {
			return false
		}
	}
	return true
}

// GetByPath returns every chunk (with vectors and metadata) stored for one
// file, used by suggest_links to avoid re-embedding a file already indexed.
func (s *Store) GetByPath(ctx context.Context, sourceID, relativePath string) ([]Hit, error) {
	s.mu.RLock()
	collection := s.collection
	count := s.collection.Count()
	probe := s.probeVector()
	s.mu.RUnlock()

	if count == 0 {
		return nil, nil
	}

	where := map[string]string{"source_id": sourceID, "relative_path": relativePath}
	docs, err := collection.QueryEmbedding(ctx, probe, count, where, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.IOError, err, "scanning chunks for %s/%s", sourceID, relativePath)
	}

	hits := make([]Hit, 0, len(docs))
	for _, doc := range docs {
		hits = append(hits, Hit{ID: doc.ID, Text: doc.Content, Metadata: doc.Metadata, Embedding: doc.Embedding})
	}
	return hits, nil
}

// ScanMetadata returns the metadata (and vectors) of every stored chunk, the
// full projection link analytics and duplicate detection need.
func (s *Store) ScanMetadata(ctx context.Context) ([]Hit, error) {
	s.mu.RLock()
	collection := s.collection
	count := s.collection.Count()
	probe := s.probeVector()
	s.mu.RUnlock()

	if count == 0 {
		return nil, nil
	}

	docs, err := collection.QueryEmbedding(ctx, probe, count, nil, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.IOError, err, "scanning vector store metadata")
	}

	hits := make([]Hit, 0, len(docs))
	for _, doc := range docs {
		hits = append(hits, Hit{ID: doc.ID, Text: doc.Content, Metadata: doc.Metadata, Embedding: doc.Embedding})
	}
	return hits, nil
}

// Stats reports chunk count, distinct file count, and the embedding model
// identifier this store was opened with.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	chunkCount := s.collection.Count()
	s.mu.RUnlock()

	hits, err := s.ScanMetadata(ctx)
	if err != nil {
		return Stats{}, err
	}

	files := make(map[string]bool)
	for _, h := range hits {
		files[h.Metadata["source_id"]+"::"+h.Metadata["relative_path"]] = true
	}
	return Stats{
		ChunkCount: chunkCount,
		FileCount:  len(files),
		Model:      s.model,
	}, nil
}
