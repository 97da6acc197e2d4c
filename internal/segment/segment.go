package segment

import (
	"regexp"
	"strings"
)

var boundary = regexp.MustCompile(`[.!?]\s+`)

// Sentences splits cleaned text into trimmed sentence fragments, breaking
// after '.', '!' or '?' followed by whitespace. Empty fragments are dropped;
// empty or whitespace-only input yields nil.
func Sentences(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var out []string
	start := 0
	for _, loc := range boundary.FindAllStringIndex(text, -1) {
		frag := strings.TrimSpace(text[start : loc[0]+1])
		if frag != "" {
			out = append(out, frag)
		}
		start = loc[1]
	}

	if tail := strings.TrimSpace(text[start:]); tail != "" {
		out = append(out, tail)
	}

	return out
}
