// Package jsonutil holds small JSON-manipulation helpers used by the
// structured-output decoder.
package jsonutil

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// StripCodeFence removes a leading/trailing ```json or ``` fence, returning
// the inner text unchanged if no fence is present. Models frequently wrap
// structured output in a markdown fence even when asked not to.
func StripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return s
	}
	t = strings.TrimPrefix(t, "```")
	if nl := strings.IndexByte(t, '\n'); nl >= 0 {
		firstLine := strings.TrimSpace(t[:nl])
		if firstLine == "" || strings.EqualFold(firstLine, "json") {
			t = t[nl+1:]
		}
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}

// ExtractBalancedJSON scans s for the first balanced top-level JSON object
// or array and returns it, ignoring braces/brackets inside string literals.
// Used as a last resort when a model answer mixes prose with JSON and the
// whole string doesn't parse on its own.
func ExtractBalancedJSON(s string) (string, bool) {
	start := -1
	var open, close byte
	for i := 0; i < len(s); i++ {
		if s[i] == '{' || s[i] == '[' {
			start = i
			if s[i] == '{' {
				open, close = '{', '}'
			} else {
				open, close = '[', ']'
			}
			break
		}
	}
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// GetPath reads a dotted gjson path from a raw JSON document.
func GetPath(json, path string) gjson.Result {
	return gjson.Get(json, path)
}

// SetPath writes value at a dotted sjson path, returning the updated
// document.
func SetPath(json, path string, value any) (string, error) {
	return sjson.Set(json, path, value)
}
