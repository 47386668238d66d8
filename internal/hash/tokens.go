package hash

import (
	"github.com/maypok86/otter"
)

// TokenCounter estimates a model-compatible token count for a chunk of text.
// A "token" is whatever the injected embedding-model tokenizer defines; in
// the absence of a real tokenizer this uses the chars/4 heuristic the
// prior chunker relies on (internal/indexer/chunker.go's estimateTokens),
// memoized per content hash through an otter cache so the chunker's
// backtracking merge pass (the chunking algorithm) does not re-estimate the
// same atomic region's size repeatedly.
type TokenCounter struct {
	cache otter.Cache[string, int]
}

// NewTokenCounter builds a token counter with a bounded memoization cache.
func NewTokenCounter(capacity int) (*TokenCounter, error) {
	if capacity <= 0 {
		capacity = 4096
	}
	cache, err := otter.MustBuilder[string, int](capacity).Build()
	if err != nil {
		return nil, err
	}
	return &TokenCounter{cache: cache}, nil
}

// Estimate returns the estimated token count of text.
func (t *TokenCounter) Estimate(text string) int {
	key := ContentHash([]byte(text))
	if v, ok := t.cache.Get(key); ok {
		return v
	}
	v := estimateTokens(text)
	t.cache.Set(key, v)
	return v
}

// Func adapts Estimate to the TokenFunc signature the chunker accepts, so
// callers can inject either this memoized counter or a test stub.
func (t *TokenCounter) Func() func(string) int {
	return t.Estimate
}

// estimateTokens approximates a tokenizer with a chars/4 heuristic, the same
// rough ratio the prior chunker applies to English prose.
func estimateTokens(text string) int {
	n := len(text) / 4
	if n == 0 && len(text) > 0 {
		n = 1
	}
	return n
}
