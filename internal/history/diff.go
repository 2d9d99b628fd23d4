package history

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMaxDiffBytes is the default byte budget of a diff summary.
	DefaultMaxDiffBytes = 10_000

	// TruncationMarker is appended to diff summaries cut at the byte budget.
	TruncationMarker = "\n... (truncated)"
)

// RenderChanges keeps only the inserted and removed lines of a unified diff.
// File headers, hunk headers and lines that are not valid UTF-8 are dropped.
func RenderChanges(patch string) string {
	var b strings.Builder
	inHeader := false

	for _, line := range strings.Split(patch, "\n") {
		switch {
		case strings.HasPrefix(line, "diff --git "):
			inHeader = true
			continue
		case strings.HasPrefix(line, "@@"):
			inHeader = false
			continue
		}
		if inHeader || line == "" {
			continue
		}
		if line[0] != '+' && line[0] != '-' {
			continue
		}
		if !utf8.ValidString(line) {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	return b.String()
}

// Truncate cuts s to at most budget bytes on a character boundary and appends
// TruncationMarker. Strings within the budget are returned unchanged.
func Truncate(s string, budget int) string {
	if budget < 0 {
		budget = 0
	}
	if len(s) <= budget {
		return s
	}

	cut := budget
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + TruncationMarker
}
