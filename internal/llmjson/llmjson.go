// Package llmjson decodes untrusted model output at the pipeline boundary.
package llmjson

import (
	"encoding/json"
	"regexp"
	"strings"
)

var objectExpr = regexp.MustCompile(`(?s)\{.*\}`)

// ExtractObject locates the first greedy brace-delimited span in text and
// decodes it as a JSON object. Returns nil when no span exists or decoding
// fails; it never panics or returns an error.
func ExtractObject(text string) map[string]any {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	span := objectExpr.FindString(text)
	if span == "" {
		return nil
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(span), &obj); err != nil {
		return nil
	}
	return obj
}

// NormalizeField coerces a decoded JSON value to a DB-safe scalar. Only
// non-empty strings pass; objects, arrays, numbers and booleans become nil
// so structurally unexpected model output never reaches storage.
func NormalizeField(value any) *string {
	s, ok := value.(string)
	if !ok {
		return nil
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
