// Package chunk implements the structure-aware Markdown chunker: a pure
// function from UTF-8 text to an ordered, finite sequence of chunks, grounded
// on the prior internal/indexer/chunker.go section/paragraph/sentence
// cascade and generalized to all six ATX header levels, table atomicity, and
// the small-chunk merge pass the prior chunker does not perform.
package chunk

// Chunk is one emitted piece of a chunked document, prior to the indexer
// attaching addressing metadata (source_id, file_path, content_hash, ...).
type Chunk struct {
	HeaderContext string
	Text          string
	TokenCount    int
	Oversized     bool // true if this chunk intrinsically exceeds Max and could not be split further
}

// TokenFunc estimates a model-compatible token count for a string. The
// chunker is a pure function of its input and this injected function.
type TokenFunc func(string) int

// Thresholds carries the chunk size policy in tokens: Target (T), Max (M),
// Min (m).
type Thresholds struct {
	Target int
	Max    int
	Min    int
}

// DefaultThresholds returns the named defaults: T=1000, M=2000, m=100.
func DefaultThresholds() Thresholds {
	return Thresholds{Target: 1000, Max: 2000, Min: 100}
}

type unit struct {
	text   string
	atomic bool
}

type segment struct {
	headerContext string
	units         []unit
}
