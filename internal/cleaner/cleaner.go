// Package cleaner normalizes raw social-media text before segmentation:
// URLs, mentions, retweet markers and emojis are stripped, hashtag words are
// kept without the symbol, and whitespace/punctuation runs are collapsed.
package cleaner

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	urlExpr         = regexp.MustCompile(`https?://\S+`)
	mentionExpr     = regexp.MustCompile(`@\w+`)
	hashtagExpr     = regexp.MustCompile(`#\w+`)
	retweetExpr     = regexp.MustCompile(`\bRT\b`)
	multiSpaceExpr  = regexp.MustCompile(`\s+`)
	punctRepeatExpr = regexp.MustCompile(`([!?.]){2,}`)
	emojiExpr       = regexp.MustCompile(`[\x{1F300}-\x{1F5FF}\x{1F600}-\x{1F64F}\x{1F680}-\x{1F6FF}\x{1F700}-\x{1F77F}\x{1F780}-\x{1F7FF}\x{1F800}-\x{1F8FF}\x{1F900}-\x{1F9FF}\x{1FA00}-\x{1FAFF}]+`)
)

// Hashtags returns hashtag words from raw text, lowercased, without '#'.
func Hashtags(text string) []string {
	matches := hashtagExpr.FindAllString(text, -1)
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, strings.ToLower(m[1:]))
	}
	return tags
}

// Emojis returns emoji runs found in raw text.
func Emojis(text string) []string {
	return emojiExpr.FindAllString(text, -1)
}

// Clean runs the cleaning pipeline over raw text.
func Clean(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	text = norm.NFKC.String(text)
	text = urlExpr.ReplaceAllString(text, "")
	text = emojiExpr.ReplaceAllString(text, "")
	text = mentionExpr.ReplaceAllString(text, "")
	text = retweetExpr.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "#", "")
	text = multiSpaceExpr.ReplaceAllString(text, " ")
	text = punctRepeatExpr.ReplaceAllString(text, "$1")

	return strings.TrimSpace(text)
}

// Process extracts hashtags and emojis from raw text and returns them with
// the cleaned copy.
func Process(textRaw string) (clean string, hashtags, emojis []string) {
	hashtags = Hashtags(textRaw)
	emojis = Emojis(textRaw)
	clean = Clean(textRaw)
	return clean, hashtags, emojis
}
