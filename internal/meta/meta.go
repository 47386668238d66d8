// Package meta extracts per-chunk metadata: the tag union (frontmatter plus
// inline hashtags) and outbound wiki-links.
package meta

import (
	"regexp"
	"strings"
)

var (
	inlineTagRe = regexp.MustCompile(`(^|\s)#([A-Za-z][\w/-]*)`)
	wikiLinkRe  = regexp.MustCompile(`\[\[([^\]|#]+)(?:[|#][^\]]+)?\]\]`)
	fenceLineRe = regexp.MustCompile("^ {0,3}(```+|~~~+)")
)

// stripCodeFences removes fenced code blocks so inline hashtag matching
// never fires inside them.
// It is intentionally narrower than the chunker's own fence/table scanner:
// metadata extraction only needs fenced code excluded, not a full segment
// tree.
func stripCodeFences(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	inFence := false
	for _, line := range lines {
		if fenceLineRe.MatchString(line) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// ExtractTags returns the case-preserved, deduplicated union of frontmatter
// tags and inline #tag occurrences found in body. Inline matching excludes
// fenced code blocks.
func ExtractTags(frontmatterTags []string, body string) []string {
	seen := make(map[string]bool)
	var out []string

	add := func(tag string) {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			return
		}
		seen[tag] = true
		out = append(out, tag)
	}

	for _, t := range frontmatterTags {
		add(t)
	}
	for _, m := range inlineTagRe.FindAllStringSubmatch(stripCodeFences(body), -1) {
		add(m[2])
	}

	return out
}

// ExtractLinks returns the outbound wiki-link targets in body, in the order
// they appear, with anchors and display text discarded.
func ExtractLinks(body string) []string {
	matches := wikiLinkRe.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}
	links := make([]string, 0, len(matches))
	for _, m := range matches {
		links = append(links, strings.TrimSpace(m[1]))
	}
	return links
}

// JoinTags renders a tag slice as the comma-joined string the vector
// repository stores and filters against ("tags" field).
func JoinTags(tags []string) string {
	return strings.Join(tags, ",")
}
