package anthropic

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// DecodeJSON extracts the first JSON value from a model reply into v.
// Replies wrapped in markdown fences or surrounded by prose are accepted.
func DecodeJSON(text string, v any) error {
	raw := ExtractJSON(text)
	if raw == "" {
		return eris.New("anthropic: no json in response")
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return eris.Wrap(err, "anthropic: decode json response")
	}
	return nil
}

// ExtractJSON returns the outermost JSON object or array in text, or ""
// when none is found.
func ExtractJSON(text string) string {
	t := strings.TrimSpace(text)
	if i := strings.Index(t, "```"); i >= 0 {
		rest := t[i+3:]
		rest = strings.TrimPrefix(rest, "json")
		if j := strings.Index(rest, "```"); j >= 0 {
			t = strings.TrimSpace(rest[:j])
		}
	}

	start := strings.IndexAny(t, "{[")
	if start < 0 {
		return ""
	}
	open := t[start]
	closing := byte('}')
	if open == '[' {
		closing = ']'
	}
	end := strings.LastIndexByte(t, closing)
	if end <= start {
		return ""
	}
	return t[start : end+1]
}
