// Package graph implements link analytics: suggest_links, orphan
// detection, most-linked ranking, and duplicate-content detection.
// Grounded on the prior searcher (internal/graph/searcher.go) for the
// dominikbraun/graph wiring — a directed graph keyed by note title, with
// orphan detection read off graph.PredecessorMap the way the prior
// implementation reads its reverse indexes off the same library.
// Suggest-links and duplicate detection have no prior analogue (that graph
// is a call graph over Go symbols, not a semantic similarity graph) and are
// built fresh, reusing the vectorstore and source packages already
// grounded elsewhere.
package graph

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	dgraph "github.com/dominikbraun/graph"

	"github.com/mvp-joe/semsearchd/internal/apperr"
	"github.com/mvp-joe/semsearchd/internal/meta"
	"github.com/mvp-joe/semsearchd/internal/source"
	"github.com/mvp-joe/semsearchd/internal/vectorstore"
)

// nCandidatesPerChunk bounds the per-chunk k-NN fan-out suggest_links issues
// before aggregating by target file.
const nCandidatesPerChunk = 20

// titleOf returns a file's link-matching title: its base name without
// extension ("matching of title to file is by filename
// without extension").
func titleOf(relativePath string) string {
	base := filepath.Base(relativePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// fileRef identifies one file within one source.
type fileRef struct {
	sourceID     string
	relativePath string
}

// Index builds and answers link analytics queries over a set of sources. It
// reads on-disk content directly for link extraction rather than threading
// outbound_links through vector-store metadata, since disk is always the
// authoritative copy.
type Index struct {
	sources []*source.Source
	store   *vectorstore.Store
}

// New builds a Link Analytics Index over sources, backed by store for
// vector queries.
func New(sources []*source.Source, store *vectorstore.Store) *Index {
	return &Index{sources: sources, store: store}
}

// fileLinks is everything the Index needs about one file to answer orphan,
// most-linked, and suggest-links queries: its title and the titles it
// links out to.
type fileLinks struct {
	ref   fileRef
	title string
	links []string
}

func (idx *Index) scanFiles() ([]fileLinks, error) {
	var files []fileLinks
	for _, src := range idx.sources {
		rels, err := src.Discover()
		if err != nil {
			return nil, err
		}
		for _, rel := range rels {
			abs, err := src.ResolvePath(rel)
			if err != nil {
				return nil, err
			}
			content, err := os.ReadFile(abs)
			if err != nil {
				return nil, apperr.Wrap(apperr.IOError, err, "reading %s for link analytics", abs)
			}
			files = append(files, fileLinks{
				ref:   fileRef{sourceID: src.ID, relativePath: rel},
				title: titleOf(rel),
				links: meta.ExtractLinks(string(content)),
			})
		}
	}
	return files, nil
}

// buildTitleGraph constructs a directed graph over file titles, one vertex
// per discovered file plus one edge per outbound link, mirroring the prior
// graph.New(..., graph.Directed()) construction. Edges to titles
// with no matching file are still added (target vertex created on demand)
// so orphan/most-linked counting sees links to notes that don't exist yet.
func buildTitleGraph(files []fileLinks) dgraph.Graph[string, string] {
	g := dgraph.New(dgraph.StringHash, dgraph.Directed())

	for _, f := range files {
		_ = g.AddVertex(f.title)
	}
	for _, f := range files {
		for _, target := range f.links {
			_ = g.AddVertex(target) // no-op if it already exists
			_ = g.AddEdge(f.title, target)
		}
	}
	return g
}

// Orphans returns the relative paths of files whose title never appears as
// an outbound-link target anywhere in the corpus: the file
// set minus the set of linked-to titles.
func (idx *Index) Orphans() ([]string, error) {
	files, err := idx.scanFiles()
	if err != nil {
		return nil, err
	}

	g := buildTitleGraph(files)
	predecessors, err := g.PredecessorMap()
	if err != nil {
		return nil, apperr.Wrap(apperr.Inconsistency, err, "computing predecessor map")
	}

	var orphans []string
	for _, f := range files {
		if len(predecessors[f.title]) == 0 {
			orphans = append(orphans, f.ref.relativePath)
		}
	}
	sort.Strings(orphans)
	return orphans, nil
}

// LinkCount is one (title, occurrence count) pair for get_most_linked_notes.
type LinkCount struct {
	Title string
	Count int
}

// MostLinked aggregates outbound-link occurrences across every file, grouped
// by target title, sorted by count descending.
func (idx *Index) MostLinked() ([]LinkCount, error) {
	files, err := idx.scanFiles()
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, f := range files {
		for _, target := range f.links {
			counts[target]++
		}
	}

	out := make([]LinkCount, 0, len(counts))
	for title, count := range counts {
		out = append(out, LinkCount{Title: title, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}

// Candidate is one suggest_links result.
type Candidate struct {
	RelativePath  string
	Score         float64
	HeaderContext string
}

// SuggestLinks implements the five-step suggest_links algorithm
// for the file at relativePath within sourceID.
func (idx *Index) SuggestLinks(ctx context.Context, sourceID, relativePath string, n int, minSimilarity float64) ([]Candidate, error) {
	if n <= 0 {
		n = 5
	}

	var src *source.Source
	for _, s := range idx.sources {
		if s.ID == sourceID {
			src = s
			break
		}
	}
	if src == nil {
		return nil, apperr.New(apperr.NotFound, "unknown source %s", sourceID)
	}

	abs, err := src.ResolvePath(relativePath)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, apperr.Wrap(apperr.IOError, err, "reading %s", abs)
	}
	existingLinks := make(map[string]bool)
	for _, l := range meta.ExtractLinks(string(content)) {
		existingLinks[l] = true
	}

	chunks, err := idx.store.GetByPath(ctx, sourceID, relativePath)
	if err != nil {
		return nil, err
	}

	type agg struct {
		maxSim        float64
		sumSim        float64
		count         int
		headerContext string
	}
	byFile := make(map[string]*agg)

	for _, chunk := range chunks {
		hits, err := idx.store.Query(ctx, chunk.Embedding, nCandidatesPerChunk, vectorstore.Where{})
		if err != nil {
			return nil, err
		}
		for _, hit := range hits {
			if hit.Metadata["source_id"] == sourceID && hit.Metadata["relative_path"] == relativePath {
				continue // exclude the source file itself
			}
			key := hit.Metadata["source_id"] + "::" + hit.Metadata["relative_path"]
			a, ok := byFile[key]
			if !ok {
				a = &agg{}
				byFile[key] = a
			}
			sim := float64(hit.Similarity)
			if sim > a.maxSim {
				a.maxSim = sim
				a.headerContext = hit.Metadata["header_context"]
			}
			a.sumSim += sim
			a.count++
		}
	}

	candidates := make([]Candidate, 0, len(byFile))
	for key, a := range byFile {
		parts := strings.SplitN(key, "::", 2)
		if len(parts) != 2 {
			continue
		}
		targetRelPath := parts[1]
		if existingLinks[titleOf(targetRelPath)] {
			continue
		}
		meanSim := a.sumSim / float64(a.count)
		score := 0.7*a.maxSim + 0.3*meanSim
		if score < minSimilarity {
			continue
		}
		candidates = append(candidates, Candidate{
			RelativePath:  targetRelPath,
			Score:         score,
			HeaderContext: a.headerContext,
		})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates, nil
}

// DuplicatePair is one pair of files whose content centroids are
// near-identical.
type DuplicatePair struct {
	A, B       string
	Similarity float64
}

// DefaultDuplicateThreshold is the default similarity floor for
// get_duplicate_content.
const DefaultDuplicateThreshold = 0.95

// Duplicates computes each file's L2-normalized centroid vector (the mean of
// its chunk vectors, normalized) and emits every pair whose cosine
// similarity is at least threshold. The Gram matrix is batched — computed
// once over the full centroid set — rather than issuing one query per pair.
func (idx *Index) Duplicates(ctx context.Context, threshold float64) ([]DuplicatePair, error) {
	if threshold <= 0 {
		threshold = DefaultDuplicateThreshold
	}

	hits, err := idx.store.ScanMetadata(ctx)
	if err != nil {
		return nil, err
	}

	sums := make(map[string][]float64)
	counts := make(map[string]int)
	var order []string

	for _, h := range hits {
		key := h.Metadata["source_id"] + "::" + h.Metadata["relative_path"]
		sum, ok := sums[key]
		if !ok {
			sum = make([]float64, len(h.Embedding))
			order = append(order, key)
		}
		for i, v := range h.Embedding {
			sum[i] += float64(v)
		}
		sums[key] = sum
		counts[key]++
	}

	centroids := make([][]float64, len(order))
	for i, key := range order {
		sum := sums[key]
		n := float64(counts[key])
		centroid := make([]float64, len(sum))
		for j, v := range sum {
			centroid[j] = v / n
		}
		centroids[i] = l2Normalize(centroid)
	}

	var pairs []DuplicatePair
	for i := 0; i < len(order); i++ {
		for j := i + 1; j < len(order); j++ {
			sim := dot(centroids[i], centroids[j])
			if sim >= threshold {
				pairs = append(pairs, DuplicatePair{A: order[i], B: order[j], Similarity: sim})
			}
		}
	}
	return pairs, nil
}

func l2Normalize(v []float64) []float64 {
	var sumSq float64
	for _, x := range v {
		sumSq += x * x
	}
	if sumSq == 0 {
		return v
	}
	norm := math.Sqrt(sumSq)
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func dot(a, b []float64) float64 {
	var sum float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
