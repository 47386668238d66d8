package chunk

import (
	"regexp"
	"strings"
)

// blankLineRe splits a text run into paragraphs on one or more blank lines.
var blankLineRe = regexp.MustCompile(`\n\s*\n+`)

// sentenceRe splits on sentence-ending punctuation followed by whitespace.
// It deliberately does not special-case abbreviations beyond a short
// deny-list that keeps "Dr. Smith" and "e.g. this" from being treated as
// sentence boundaries.
var sentenceRe = regexp.MustCompile(`([.!?]+)(\s+)`)

var commonAbbreviations = map[string]bool{
	"dr": true, "mr": true, "mrs": true, "ms": true, "prof": true,
	"sr": true, "jr": true, "vs": true, "etc": true, "e.g": true,
	"i.e": true, "fig": true, "no": true, "approx": true,
}

// piece is one candidate unit for packing into a chunk: either a paragraph
// (splittable further if oversized) or an atomic region (never split).
type piece struct {
	text   string
	atomic bool
}

func flattenToPieces(units []unit) []piece {
	var pieces []piece
	for _, u := range units {
		if u.atomic {
			t := strings.TrimSpace(u.text)
			if t != "" {
				pieces = append(pieces, piece{text: u.text, atomic: true})
			}
			continue
		}
		for _, para := range blankLineRe.Split(u.text, -1) {
			t := strings.TrimSpace(para)
			if t != "" {
				pieces = append(pieces, piece{text: t, atomic: false})
			}
		}
	}
	return pieces
}

// splitSentences splits text into sentences, declining to split after a
// token that looks like a common abbreviation.
func splitSentences(text string) []string {
	idxs := sentenceRe.FindAllStringSubmatchIndex(text, -1)
	if len(idxs) == 0 {
		return []string{text}
	}

	var sentences []string
	last := 0
	for _, m := range idxs {
		// m[2:4] is the punctuation group, m[0] the match start.
		before := strings.TrimSpace(text[last:m[0]])
		lastWord := lastWord(before)
		if commonAbbreviations[strings.ToLower(strings.TrimRight(lastWord, "."))] {
			continue
		}
		end := m[3] // end of punctuation group; the next sentence's leading whitespace is trimmed
		sentences = append(sentences, strings.TrimSpace(text[last:end]))
		last = end
	}
	if last < len(text) {
		sentences = append(sentences, strings.TrimSpace(text[last:]))
	}

	out := sentences[:0]
	for _, s := range sentences {
		if s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return []string{text}
	}
	return out
}

func lastWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

func splitWords(text string) []string {
	return strings.Fields(text)
}

// pack greedily packs items into chunks bounded by target tokens, calling
// oversize to further subdivide any single item that alone exceeds max.
func pack(items []string, headerContext string, atomic func(string) bool, target, max int, tokenFn TokenFunc, oversize func(string, string, int, int, TokenFunc) []Chunk) []Chunk {
	var chunks []Chunk
	var cur []string
	curSize := 0
	sep := " "

	flush := func() {
		if len(cur) == 0 {
			return
		}
		text := strings.Join(cur, sep)
		chunks = append(chunks, Chunk{HeaderContext: headerContext, Text: text, TokenCount: tokenFn(text)})
		cur = nil
		curSize = 0
	}

	for _, item := range items {
		sz := tokenFn(item)

		if sz > max {
			flush()
			if atomic(item) {
				chunks = append(chunks, Chunk{HeaderContext: headerContext, Text: item, TokenCount: sz, Oversized: true})
				continue
			}
			chunks = append(chunks, oversize(item, headerContext, target, max, tokenFn)...)
			continue
		}

		if curSize > 0 && curSize+sz > target {
			flush()
		}
		cur = append(cur, item)
		curSize += sz
	}
	flush()
	return chunks
}

func subdivideByWords(text, headerContext string, target, max int, tokenFn TokenFunc) []Chunk {
	words := splitWords(text)
	if len(words) == 0 {
		return []Chunk{{HeaderContext: headerContext, Text: text, TokenCount: tokenFn(text), Oversized: true}}
	}
	return pack(words, headerContext, func(string) bool { return false }, target, max, tokenFn,
		func(item, ctx string, _, _ int, tf TokenFunc) []Chunk {
			// A single word that alone exceeds Max cannot be reduced
			// further; emit it verbatim, same as an oversized atomic
			// region.
			return []Chunk{{HeaderContext: ctx, Text: item, TokenCount: tf(item), Oversized: true}}
		})
}

func subdivideBySentences(text, headerContext string, target, max int, tokenFn TokenFunc) []Chunk {
	sentences := splitSentences(text)
	if len(sentences) <= 1 {
		return subdivideByWords(text, headerContext, target, max, tokenFn)
	}
	return pack(sentences, headerContext, func(string) bool { return false }, target, max, tokenFn, subdivideByWordsAdapter)
}

func subdivideByWordsAdapter(item, ctx string, target, max int, tokenFn TokenFunc) []Chunk {
	return subdivideByWords(item, ctx, target, max, tokenFn)
}

// subdivideSegment packs a segment's atomic/non-atomic pieces into chunks
// targeting Target tokens, escalating any paragraph that alone exceeds Max
// to sentence- then word-level splitting. Atomic pieces (code fences,
// tables) are packed like any other paragraph but are never split
// internally; one that alone exceeds Max is emitted as its own oversized
// chunk verbatim.
func subdivideSegment(seg segment, target, max int, tokenFn TokenFunc) []Chunk {
	pieces := flattenToPieces(seg.units)
	if len(pieces) == 0 {
		return nil
	}

	texts := make([]string, len(pieces))
	atomicSet := make(map[string]bool, len(pieces))
	for i, p := range pieces {
		texts[i] = p.text
		if p.atomic {
			atomicSet[p.text] = true
		}
	}

	return pack(texts, seg.headerContext, func(t string) bool { return atomicSet[t] }, target, max, tokenFn,
		func(item, ctx string, target, max int, tf TokenFunc) []Chunk {
			return subdivideBySentences(item, ctx, target, max, tf)
		})
}
