// Package api implements the operation surface: one method per named
// operation (semantic_search, reindex_vault, index_note, ...), each
// returning a plain Go value or an *apperr.Error, with the {success, error,
// detail} envelope applied once at the transport boundary in mcp.go.
// Grounded on the prior MCPServer (internal/mcp/server.go) for
// the "one struct owning every collaborator, one method per tool" shape,
// generalized from the prior fixed code-search/graph/files/pattern tool
// set to this service's vault-oriented operation list.
package api

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/mvp-joe/semsearchd/internal/apperr"
	"github.com/mvp-joe/semsearchd/internal/graph"
	"github.com/mvp-joe/semsearchd/internal/indexer"
	"github.com/mvp-joe/semsearchd/internal/meta"
	"github.com/mvp-joe/semsearchd/internal/query"
	"github.com/mvp-joe/semsearchd/internal/source"
	"github.com/mvp-joe/semsearchd/internal/vectorstore"
)

// Service implements every operation in operation surface.
type Service struct {
	sources map[string]*source.Source
	query   *query.Service
	indexer *indexer.Indexer
	graph   *graph.Index
	store   *vectorstore.Store
}

// New builds a Service over a fixed set of Sources.
func New(sources []*source.Source, q *query.Service, idx *indexer.Indexer, g *graph.Index, store *vectorstore.Store) *Service {
	bySourceID := make(map[string]*source.Source, len(sources))
	for _, s := range sources {
		bySourceID[s.ID] = s
	}
	return &Service{sources: bySourceID, query: q, indexer: idx, graph: g, store: store}
}

// resolve splits a path of the form "source_id/relative/path" into its
// Source and the path relative to that source's root. When the leading
// segment doesn't name a configured source and exactly one source is
// configured, the whole path is taken as relative to it.
func (s *Service) resolve(sourceID, relativePath string) (*source.Source, string, error) {
	if sourceID != "" {
		src, ok := s.sources[sourceID]
		if !ok {
			return nil, "", apperr.New(apperr.InvalidPath, "unknown source %s", sourceID)
		}
		return src, relativePath, nil
	}

	parts := strings.SplitN(relativePath, "/", 2)
	if len(parts) == 2 {
		if src, ok := s.sources[parts[0]]; ok {
			return src, parts[1], nil
		}
	}
	if len(s.sources) == 1 {
		for _, src := range s.sources {
			return src, relativePath, nil
		}
	}
	return nil, "", apperr.New(apperr.InvalidPath, "path %q does not resolve to a configured source", relativePath)
}

// SearchHit is one semantic_search result.
type SearchHit struct {
	Text       string            `json:"text"`
	Similarity float32           `json:"similarity"`
	Metadata   map[string]string `json:"metadata"`
}

// SemanticSearch implements semantic_search(query, n_results, folder?, tags?, source?).
func (s *Service) SemanticSearch(ctx context.Context, queryText string, nResults int, folder, sourceID string, tags []string) ([]SearchHit, error) {
	hits, err := s.query.Search(ctx, queryText, nResults, query.Filters{SourceID: sourceID, Folder: folder, Tags: tags})
	if err != nil {
		return nil, err
	}
	out := make([]SearchHit, len(hits))
	for i, h := range hits {
		out[i] = SearchHit{Text: h.Text, Similarity: h.Similarity, Metadata: h.Metadata}
	}
	return out, nil
}

// ReindexVault implements reindex_vault(force) -> {processed, skipped,
// chunks_created, duration, errors}.
func (s *Service) ReindexVault(ctx context.Context, force bool) (indexer.Stats, error) {
	return s.indexer.IndexAll(ctx, force)
}

// IndexNoteResult is index_note's return shape.
type IndexNoteResult struct {
	Success bool `json:"success"`
	Chunks  int  `json:"chunks"`
}

// IndexNote implements index_note(path) -> {success, chunks}.
func (s *Service) IndexNote(ctx context.Context, path string) (IndexNoteResult, error) {
	src, rel, err := s.resolve("", path)
	if err != nil {
		return IndexNoteResult{}, err
	}
	chunks, err := s.indexer.IndexSingleChunks(ctx, src.ID, rel)
	if err != nil {
		return IndexNoteResult{}, err
	}
	return IndexNoteResult{Success: true, Chunks: chunks}, nil
}

// IndexStats is get_index_stats's return shape.
type IndexStats struct {
	Chunks int    `json:"chunks"`
	Files  int    `json:"files"`
	Model  string `json:"model"`
}

// GetIndexStats implements get_index_stats() -> {chunks, files, model, ...}.
func (s *Service) GetIndexStats(ctx context.Context) (IndexStats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return IndexStats{}, err
	}
	return IndexStats{Chunks: stats.ChunkCount, Files: stats.FileCount, Model: stats.Model}, nil
}

// SuggestLinks implements suggest_links(path, n, min_similarity) -> [candidates].
// It takes no exclude_current argument: the file at path is always left out
// of its own candidates.
func (s *Service) SuggestLinks(ctx context.Context, path string, n int, minSimilarity float64) ([]graph.Candidate, error) {
	src, rel, err := s.resolve("", path)
	if err != nil {
		return nil, err
	}
	return s.graph.SuggestLinks(ctx, src.ID, rel, n, minSimilarity)
}

// ReadNoteResult is read_note's return shape.
type ReadNoteResult struct {
	Content string            `json:"content"`
	Tags    []string          `json:"tags"`
	Links   []string          `json:"links"`
	Extra   map[string]string `json:"metadata,omitempty"`
}

// ReadNote implements read_note(path) -> {content, metadata}.
func (s *Service) ReadNote(path string) (ReadNoteResult, error) {
	src, rel, err := s.resolve("", path)
	if err != nil {
		return ReadNoteResult{}, err
	}
	abs, err := src.ResolvePath(rel)
	if err != nil {
		return ReadNoteResult{}, err
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return ReadNoteResult{}, apperr.Wrap(apperr.IOError, err, "reading %s", abs)
	}
	body, _ := splitFrontmatter(string(content))
	return ReadNoteResult{
		Content: string(content),
		Tags:    meta.ExtractTags(nil, body),
		Links:   meta.ExtractLinks(body),
	}, nil
}

// WriteNoteResult is write_note's return shape.
type WriteNoteResult struct {
	Created bool `json:"created"`
	Size    int  `json:"size"`
	Chunks  int  `json:"chunks"`
}

// WriteNote implements write_note(path, content, create_dirs) -> {created,
// size, chunks}: writes the file then runs index_single.
func (s *Service) WriteNote(ctx context.Context, path, content string, createDirs bool) (WriteNoteResult, error) {
	src, rel, err := s.resolve("", path)
	if err != nil {
		return WriteNoteResult{}, err
	}
	abs, err := src.ResolvePath(rel)
	if err != nil {
		return WriteNoteResult{}, err
	}

	_, statErr := os.Stat(abs)
	created := os.IsNotExist(statErr)

	if createDirs {
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return WriteNoteResult{}, apperr.Wrap(apperr.IOError, err, "creating directories for %s", abs)
		}
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return WriteNoteResult{}, apperr.Wrap(apperr.IOError, err, "writing %s", abs)
	}

	chunks, err := s.indexer.IndexSingleChunks(ctx, src.ID, rel)
	if err != nil {
		return WriteNoteResult{}, err
	}
	return WriteNoteResult{Created: created, Size: len(content), Chunks: chunks}, nil
}

// AppendToNoteResult is append_to_note's return shape.
type AppendToNoteResult struct {
	Size   int `json:"size"`
	Chunks int `json:"chunks"`
}

// AppendToNote implements append_to_note(path, content) -> {size, chunks}.
func (s *Service) AppendToNote(ctx context.Context, path, content string) (AppendToNoteResult, error) {
	src, rel, err := s.resolve("", path)
	if err != nil {
		return AppendToNoteResult{}, err
	}
	abs, err := src.ResolvePath(rel)
	if err != nil {
		return AppendToNoteResult{}, err
	}

	existing, err := os.ReadFile(abs)
	if err != nil && !os.IsNotExist(err) {
		return AppendToNoteResult{}, apperr.Wrap(apperr.IOError, err, "reading %s", abs)
	}

	combined := string(existing) + content
	if err := os.WriteFile(abs, []byte(combined), 0o644); err != nil {
		return AppendToNoteResult{}, apperr.Wrap(apperr.IOError, err, "writing %s", abs)
	}

	chunks, err := s.indexer.IndexSingleChunks(ctx, src.ID, rel)
	if err != nil {
		return AppendToNoteResult{}, err
	}
	return AppendToNoteResult{Size: len(combined), Chunks: chunks}, nil
}

// DeleteNoteResult is delete_note's return shape.
type DeleteNoteResult struct {
	Deleted bool `json:"deleted"`
}

// DeleteNote implements delete_note(path) -> {deleted}: removes from the
// repository first, then from disk.
func (s *Service) DeleteNote(ctx context.Context, path string) (DeleteNoteResult, error) {
	src, rel, err := s.resolve("", path)
	if err != nil {
		return DeleteNoteResult{}, err
	}
	if err := s.indexer.RemoveFile(ctx, src.ID, rel); err != nil {
		return DeleteNoteResult{}, err
	}
	abs, err := src.ResolvePath(rel)
	if err != nil {
		return DeleteNoteResult{}, err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return DeleteNoteResult{}, apperr.Wrap(apperr.IOError, err, "deleting %s", abs)
	}
	return DeleteNoteResult{Deleted: true}, nil
}

// SearchNotes implements search_notes(pattern, root?) -> [paths]: a glob
// match over every configured source's discovered files.
func (s *Service) SearchNotes(pattern, root string) ([]string, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidPath, err, "compiling search pattern %q", pattern)
	}

	var matches []string
	for sourceID, src := range s.sources {
		rels, err := src.Discover()
		if err != nil {
			return nil, err
		}
		for _, rel := range rels {
			if root != "" && !strings.HasPrefix(rel, root) {
				continue
			}
			if g.Match(rel) {
				matches = append(matches, sourceID+"/"+rel)
			}
		}
	}
	sort.Strings(matches)
	return matches, nil
}

// TreeNode is one entry in get_vault_structure's tree.
type TreeNode struct {
	Name     string      `json:"name"`
	IsDir    bool        `json:"is_dir"`
	Children []*TreeNode `json:"children,omitempty"`
}

// GetVaultStructure implements get_vault_structure(root?, depth?) -> tree.
// depth <= 0 means unlimited.
func (s *Service) GetVaultStructure(root string, depth int) ([]*TreeNode, error) {
	if depth <= 0 {
		depth = -1
	}
	var roots []*TreeNode
	for _, src := range s.sources {
		rels, err := src.Discover()
		if err != nil {
			return nil, err
		}
		node := &TreeNode{Name: src.ID, IsDir: true}
		for _, rel := range rels {
			if root != "" && !strings.HasPrefix(rel, root) {
				continue
			}
			insertPath(node, strings.Split(rel, "/"), depth)
		}
		roots = append(roots, node)
	}
	return roots, nil
}

func insertPath(node *TreeNode, segments []string, depth int) {
	if len(segments) == 0 || depth == 0 {
		return
	}
	name := segments[0]
	if depth > 0 {
		depth--
	}

	var child *TreeNode
	for _, c := range node.Children {
		if c.Name == name {
			child = c
			break
		}
	}
	if child == nil {
		child = &TreeNode{Name: name, IsDir: len(segments) > 1}
		node.Children = append(node.Children, child)
	}
	if len(segments) > 1 {
		insertPath(child, segments[1:], depth)
	}
}

// GetOrphanedNotes implements get_orphaned_notes() -> [paths].
func (s *Service) GetOrphanedNotes() ([]string, error) {
	return s.graph.Orphans()
}

// GetMostLinkedNotes implements get_most_linked_notes(n) -> [(title, count)].
func (s *Service) GetMostLinkedNotes(n int) ([]graph.LinkCount, error) {
	counts, err := s.graph.MostLinked()
	if err != nil {
		return nil, err
	}
	if n > 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts, nil
}

// GetDuplicateContent implements get_duplicate_content(threshold) -> [(a, b, similarity)].
func (s *Service) GetDuplicateContent(ctx context.Context, threshold float64) ([]graph.DuplicatePair, error) {
	return s.graph.Duplicates(ctx, threshold)
}

func splitFrontmatter(text string) (body string, frontmatter []string) {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return text, nil
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.Join(lines[i+1:], "\n"), lines[1:i]
		}
	}
	return text, nil
}
