package chunk

import (
	"fmt"
	"strings"
)

// Chunker splits already-frontmatter-stripped UTF-8 text into an ordered,
// finite sequence of chunks. It is a pure function of its input and the
// injected TokenFunc.
type Chunker interface {
	ChunkText(text string) (chunks []Chunk, warnings []string)
}

type chunker struct {
	thresholds Thresholds
	tokenFn    TokenFunc
}

// New creates a chunker with the given size policy and token estimator,
// mirroring the prior NewChunker(targetSize, overlap) constructor shape
// (internal/indexer/chunker.go) adapted to the richer Thresholds this
// service defines (Target/Max/Min rather than a single target plus an
// overlap no caller needs).
func New(thresholds Thresholds, tokenFn TokenFunc) Chunker {
	return &chunker{thresholds: thresholds, tokenFn: tokenFn}
}

func (c *chunker) ChunkText(text string) ([]Chunk, []string) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	segments := parseSegments(text)

	var raw []Chunk
	for _, seg := range segments {
		if len(seg.units) == 0 {
			continue
		}

		total := 0
		for _, u := range seg.units {
			total += c.tokenFn(u.text)
		}

		if total <= c.thresholds.Max {
			joined := joinUnits(seg.units)
			if strings.TrimSpace(joined) == "" {
				continue
			}
			raw = append(raw, Chunk{HeaderContext: seg.headerContext, Text: joined, TokenCount: c.tokenFn(joined)})
			continue
		}

		raw = append(raw, subdivideSegment(seg, c.thresholds.Target, c.thresholds.Max, c.tokenFn)...)
	}

	var warnings []string
	for _, ch := range raw {
		if ch.Oversized {
			warnings = append(warnings, fmt.Sprintf(
				"atomic region of %d tokens exceeds max %d in header context %q; emitted verbatim",
				ch.TokenCount, c.thresholds.Max, ch.HeaderContext))
		}
	}

	merged := mergeChunks(raw, c.thresholds, c.tokenFn)
	return merged, warnings
}

func joinUnits(units []unit) string {
	parts := make([]string, 0, len(units))
	for _, u := range units {
		t := strings.TrimSpace(u.text)
		if t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}

// mergeChunks runs the small-chunk merge pass: adjacent chunks sharing a
// header_context whose combined size fits within Target are merged; any
// remaining chunk smaller than Min is then folded into an adjacent sibling
// with the same header_context when one exists. Oversized chunks never
// participate — they are emitted verbatim by definition.
func mergeChunks(chunks []Chunk, th Thresholds, tokenFn TokenFunc) []Chunk {
	chunks = mergeBySameContext(chunks, func(a, b Chunk) bool {
		return tokenFn(joinTwo(a.Text, b.Text)) <= th.Target
	}, tokenFn)

	changed := true
	for changed {
		changed = false
		for i := range chunks {
			if chunks[i].Oversized || chunks[i].TokenCount >= th.Min {
				continue
			}
			if i+1 < len(chunks) && !chunks[i+1].Oversized && chunks[i+1].HeaderContext == chunks[i].HeaderContext {
				chunks = spliceMerge(chunks, i, i+1, tokenFn)
				changed = true
				break
			}
			if i > 0 && !chunks[i-1].Oversized && chunks[i-1].HeaderContext == chunks[i].HeaderContext {
				chunks = spliceMerge(chunks, i-1, i, tokenFn)
				changed = true
				break
			}
		}
	}
	return chunks
}

func mergeBySameContext(chunks []Chunk, fits func(a, b Chunk) bool, tokenFn TokenFunc) []Chunk {
	var out []Chunk
	i := 0
	for i < len(chunks) {
		cur := chunks[i]
		j := i + 1
		for j < len(chunks) && !cur.Oversized && !chunks[j].Oversized &&
			chunks[j].HeaderContext == cur.HeaderContext && fits(cur, chunks[j]) {
			cur = Chunk{
				HeaderContext: cur.HeaderContext,
				Text:          joinTwo(cur.Text, chunks[j].Text),
				TokenCount:    tokenFn(joinTwo(cur.Text, chunks[j].Text)),
			}
			j++
		}
		out = append(out, cur)
		i = j
	}
	return out
}

func spliceMerge(chunks []Chunk, a, b int, tokenFn TokenFunc) []Chunk {
	merged := Chunk{
		HeaderContext: chunks[a].HeaderContext,
		Text:          joinTwo(chunks[a].Text, chunks[b].Text),
	}
	merged.TokenCount = tokenFn(merged.Text)

	out := make([]Chunk, 0, len(chunks)-1)
	out = append(out, chunks[:a]...)
	out = append(out, merged)
	out = append(out, chunks[b+1:]...)
	return out
}

func joinTwo(a, b string) string {
	return a + "\n\n" + b
}
