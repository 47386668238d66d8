package chunk

import "strings"

// StripFrontmatter removes a leading "---"-fenced YAML block and returns the
// remaining body plus the raw frontmatter lines (without the fences), so the
// metadata extractor can still pull frontmatter tags from content the
// chunker itself never sees. A file with no frontmatter fence returns the
// original text unchanged and a nil frontmatter slice.
func StripFrontmatter(text string) (body string, frontmatter []string) {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return text, nil
	}

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			frontmatter = lines[1:i]
			body = strings.Join(lines[i+1:], "\n")
			return body, frontmatter
		}
	}

	// Unterminated fence: treat the whole file as body, not frontmatter.
	return text, nil
}
