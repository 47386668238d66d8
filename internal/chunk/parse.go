package chunk

import (
	"regexp"
	"strings"
)

var (
	fenceRe  = regexp.MustCompile("^ {0,3}(```+|~~~+)")
	headerRe = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*\s*$`)
)

type headerEntry struct {
	level int
	text  string
}

// parseSegments walks text line by line, identifying atomic regions (fenced
// code blocks and contiguous pipe-table rows) and ATX headers, and returns
// the ordered sequence of header-delimited segments. Atomic regions are
// never split across segment boundaries: a fence or table that straddles a
// header line cannot occur in valid Markdown, since the header regex itself
// never matches inside one (the scanner tracks fence/table state first).
func parseSegments(text string) []segment {
	lines := strings.Split(text, "\n")

	var segments []segment
	var headerStack []headerEntry
	cur := segment{headerContext: ""}

	var pendingText []string
	var fenceLines []string
	var tableLines []string
	inFence := false
	inTable := false

	flushPendingText := func() {
		if len(pendingText) == 0 {
			return
		}
		joined := strings.Join(pendingText, "\n")
		if strings.TrimSpace(joined) != "" {
			cur.units = append(cur.units, unit{text: joined, atomic: false})
		}
		pendingText = nil
	}
	flushTable := func() {
		if len(tableLines) == 0 {
			return
		}
		cur.units = append(cur.units, unit{text: strings.Join(tableLines, "\n"), atomic: true})
		tableLines = nil
		inTable = false
	}
	flushFence := func() {
		if len(fenceLines) == 0 {
			return
		}
		cur.units = append(cur.units, unit{text: strings.Join(fenceLines, "\n"), atomic: true})
		fenceLines = nil
		inFence = false
	}

	for _, line := range lines {
		if inFence {
			fenceLines = append(fenceLines, line)
			if fenceRe.MatchString(line) {
				flushFence()
			}
			continue
		}

		if fenceRe.MatchString(line) {
			flushPendingText()
			flushTable()
			inFence = true
			fenceLines = []string{line}
			continue
		}

		trimmed := strings.TrimSpace(line)
		isTableLine := trimmed != "" && strings.HasPrefix(trimmed, "|")

		if isTableLine {
			if !inTable {
				flushPendingText()
				inTable = true
			}
			tableLines = append(tableLines, line)
			continue
		}
		if inTable {
			flushTable()
		}

		if trimmed == "" {
			pendingText = append(pendingText, line)
			continue
		}

		if m := headerRe.FindStringSubmatch(line); m != nil {
			flushPendingText()
			segments = append(segments, cur)

			level := len(m[1])
			title := strings.TrimSpace(m[2])

			for len(headerStack) > 0 && headerStack[len(headerStack)-1].level >= level {
				headerStack = headerStack[:len(headerStack)-1]
			}
			headerStack = append(headerStack, headerEntry{level: level, text: title})

			ctx := make([]string, len(headerStack))
			for i, h := range headerStack {
				ctx[i] = h.text
			}
			cur = segment{headerContext: strings.Join(ctx, "/")}
			continue
		}

		pendingText = append(pendingText, line)
	}

	// Unterminated atomic regions still become atomic units; an
	// unterminated fence or table at EOF is the author's mistake, not
	// ours to compound by silently reflowing it.
	flushFence()
	flushTable()
	flushPendingText()
	segments = append(segments, cur)

	return segments
}
