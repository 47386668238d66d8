// Package source discovers the files under one configured Source, grounded
// on the prior FileDiscovery (internal/indexer/discovery.go): compile
// include/exclude globs once, then walk the root applying them, generalized
// from the prior fixed code/docs pattern pair to a single include/exclude
// list per named source root.
package source

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/mvp-joe/semsearchd/internal/apperr"
)

// Kind is the content kind a source holds, informing which extractors the
// indexer applies.
type Kind string

const (
	KindMarkdown Kind = "markdown"
	KindCode     Kind = "code"
	KindText     Kind = "text"
)

// Source is a named, typed root for ingestion.
type Source struct {
	ID          string
	DisplayName string
	RootPath    string
	Kind        Kind
	Include     []string
	Exclude     []string

	includeGlobs []glob.Glob
	excludeGlobs []glob.Glob
}

// New compiles a Source's include/exclude globs once at construction, so
// every later Discover call reuses the compiled patterns.
func New(id, displayName, rootPath string, kind Kind, include, exclude []string) (*Source, error) {
	s := &Source{
		ID:          id,
		DisplayName: displayName,
		RootPath:    rootPath,
		Kind:        kind,
		Include:     include,
		Exclude:     exclude,
	}

	for _, pattern := range include {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, apperr.Wrap(apperr.InvalidPath, err, "compiling include pattern %q for source %s", pattern, id)
		}
		s.includeGlobs = append(s.includeGlobs, g)
		// gobwas/glob's "**/" needs at least one directory, so "**/*.md"
		// alone would miss top-level files; match the remainder too.
		if rest := strings.TrimPrefix(pattern, "**/"); rest != pattern {
			if g, err := glob.Compile(rest, '/'); err == nil {
				s.includeGlobs = append(s.includeGlobs, g)
			}
		}
	}
	for _, pattern := range exclude {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, apperr.Wrap(apperr.InvalidPath, err, "compiling exclude pattern %q for source %s", pattern, id)
		}
		s.excludeGlobs = append(s.excludeGlobs, g)
	}

	return s, nil
}

// Discover walks the source root and returns the relative paths (forward
// slash separated) of every file matching an include pattern and no
// exclude pattern.
func (s *Source) Discover() ([]string, error) {
	var matched []string

	err := filepath.Walk(s.RootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(s.RootPath, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if s.excluded(relPath) {
			return nil
		}
		if s.included(relPath) {
			matched = append(matched, relPath)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.IOError, err, "discovering files under source %s", s.ID)
	}

	return matched, nil
}

func (s *Source) included(relPath string) bool {
	if len(s.includeGlobs) == 0 {
		return true
	}
	for _, g := range s.includeGlobs {
		if g.Match(relPath) {
			return true
		}
	}
	return false
}

func (s *Source) excluded(relPath string) bool {
	for _, g := range s.excludeGlobs {
		if g.Match(relPath) {
			return true
		}
	}
	// A directory-scoped exclude like "node_modules/**" should also exclude
	// the directory entry itself when walked as a bare name.
	for _, g := range s.excludeGlobs {
		if g.Match(relPath + "/**") {
			return true
		}
	}
	return false
}

// ResolvePath validates that relativePath, joined to the source root, does
// not escape it, returning InvalidPath if it would, and returns the
// resolved absolute path.
func (s *Source) ResolvePath(relativePath string) (string, error) {
	cleaned := filepath.Clean(relativePath)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return "", apperr.New(apperr.InvalidPath, "path %q escapes source %s", relativePath, s.ID)
	}

	abs := filepath.Join(s.RootPath, cleaned)
	rootWithSep := s.RootPath
	if !strings.HasSuffix(rootWithSep, string(filepath.Separator)) {
		rootWithSep += string(filepath.Separator)
	}
	if abs != s.RootPath && !strings.HasPrefix(abs, rootWithSep) {
		return "", apperr.New(apperr.InvalidPath, "path %q escapes source %s", relativePath, s.ID)
	}
	return abs, nil
}
