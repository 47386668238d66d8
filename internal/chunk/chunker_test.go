package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countTokens(s string) int {
	n := len(s) / 4
	if n == 0 && len(s) > 0 {
		n = 1
	}
	return n
}

func TestChunkText_EmptyFile(t *testing.T) {
	c := New(DefaultThresholds(), countTokens)
	chunks, warnings := c.ChunkText("")
	assert.Empty(t, chunks)
	assert.Empty(t, warnings)
}

func TestChunkText_Deterministic(t *testing.T) {
	text := "# Title\n\nSome intro text.\n\n## Section\n\nMore body text here that is reasonably long to form a chunk.\n"
	c := New(DefaultThresholds(), countTokens)
	a, _ := c.ChunkText(text)
	b, _ := c.ChunkText(text)
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].HeaderContext, b[i].HeaderContext)
		assert.Equal(t, a[i].Text, b[i].Text)
	}
}

func TestChunkText_HeaderContext(t *testing.T) {
	text := "# A\n\nintro\n\n## B\n\nbody under B\n\n### C\n\ndeep body under C\n"
	c := New(DefaultThresholds(), countTokens)
	chunks, _ := c.ChunkText(text)
	require.NotEmpty(t, chunks)

	var contexts []string
	for _, ch := range chunks {
		contexts = append(contexts, ch.HeaderContext)
	}
	assert.Contains(t, contexts, "A")
	assert.Contains(t, contexts, "A/B")
	assert.Contains(t, contexts, "A/B/C")
}

func TestChunkText_NeverCutsCodeBlock(t *testing.T) {
	fence := "```go\n" + strings.Repeat("line of code here\n", 5) + "```"
	text := "# Heading\n\nSome prose before.\n\n" + fence + "\n\nSome prose after.\n"
	c := New(DefaultThresholds(), countTokens)
	chunks, _ := c.ChunkText(text)

	found := false
	for _, ch := range chunks {
		if strings.Contains(ch.Text, "```go") {
			assert.True(t, strings.Contains(ch.Text, "```go\n") && strings.Count(ch.Text, "```") >= 2,
				"fenced block must appear with both its fences intact: %q", ch.Text)
			found = true
		}
	}
	assert.True(t, found, "expected a chunk containing the fenced code block")
}

func TestChunkText_OversizedCodeBlockIsVerbatim(t *testing.T) {
	// Build a code block whose estimated token count exceeds Max (2000),
	// i.e. more than 8000 characters of body.
	body := strings.Repeat("x", 9000)
	fence := "```\n" + body + "\n```"
	text := "# Heading\n\n" + fence + "\n"

	c := New(DefaultThresholds(), countTokens)
	chunks, warnings := c.ChunkText(text)

	require.NotEmpty(t, warnings)

	var oversized *Chunk
	for i := range chunks {
		if chunks[i].Oversized {
			oversized = &chunks[i]
		}
	}
	require.NotNil(t, oversized, "expected an oversized chunk")
	assert.Equal(t, fence, oversized.Text)
	assert.LessOrEqual(t, oversized.TokenCount, countTokens(oversized.Text)+1)
}

func TestChunkText_NeverCutsTable(t *testing.T) {
	table := "| a | b |\n| - | - |\n| 1 | 2 |\n| 3 | 4 |"
	text := "# Heading\n\nIntro text.\n\n" + table + "\n\nOutro text.\n"
	c := New(DefaultThresholds(), countTokens)
	chunks, _ := c.ChunkText(text)

	found := false
	for _, ch := range chunks {
		if strings.Contains(ch.Text, "| a | b |") {
			assert.Contains(t, ch.Text, "| 3 | 4 |")
			found = true
		}
	}
	assert.True(t, found)
}

func TestChunkText_MergeInvariant(t *testing.T) {
	// Many small adjacent sections under the same top header should merge
	// rather than produce many tiny chunks.
	var sb strings.Builder
	sb.WriteString("# Notes\n\n")
	for i := 0; i < 20; i++ {
		sb.WriteString("## Item\n\nshort line\n\n")
	}
	c := New(DefaultThresholds(), countTokens)
	chunks, _ := c.ChunkText(sb.String())

	for i := 0; i+1 < len(chunks); i++ {
		if chunks[i].HeaderContext == chunks[i+1].HeaderContext {
			combined := countTokens(chunks[i].Text + "\n\n" + chunks[i+1].Text)
			assert.Greater(t, combined, DefaultThresholds().Target,
				"adjacent chunks with identical header_context should have been merged")
		}
	}
}

func TestChunkText_MaxTokenBound(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("# Doc\n\n")
	for i := 0; i < 50; i++ {
		sb.WriteString(strings.Repeat("word ", 40))
		sb.WriteString("\n\n")
	}
	c := New(DefaultThresholds(), countTokens)
	chunks, _ := c.ChunkText(sb.String())

	for _, ch := range chunks {
		if !ch.Oversized {
			assert.LessOrEqual(t, ch.TokenCount, DefaultThresholds().Max)
		}
	}
}

func TestChunkText_ExactMaxSizeSingleChunk(t *testing.T) {
	// A file whose total size lands exactly at Max should produce one chunk.
	th := DefaultThresholds()
	body := strings.Repeat("a", th.Max*4)
	c := New(th, countTokens)
	chunks, _ := c.ChunkText(body)
	require.Len(t, chunks, 1)
}

func TestStripFrontmatter(t *testing.T) {
	text := "---\ntags: [a, b]\ntitle: X\n---\n# Body\n\ncontent\n"
	body, fm := StripFrontmatter(text)
	require.Len(t, fm, 2)
	assert.Contains(t, body, "# Body")
	assert.NotContains(t, body, "tags:")
}

func TestStripFrontmatter_NoFrontmatter(t *testing.T) {
	text := "# Body\n\ncontent\n"
	body, fm := StripFrontmatter(text)
	assert.Nil(t, fm)
	assert.Equal(t, text, body)
}
