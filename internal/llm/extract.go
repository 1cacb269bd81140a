package llm

import (
	"encoding/json"
	"strings"
)

// ExtractJSON returns the first balanced JSON object embedded in free-form
// model output. Absence of a valid object is not an error: the second return
// is false and the caller decides whether a retry or second pass is wanted.
func ExtractJSON(text string) (json.RawMessage, bool) {
	start := strings.IndexByte(text, '{')
	for start != -1 {
		if candidate, ok := balancedObject(text[start:]); ok {
			if json.Valid([]byte(candidate)) {
				return json.RawMessage(candidate), true
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next == -1 {
			break
		}
		start += 1 + next
	}
	return nil, false
}

// balancedObject returns the shortest prefix of s that forms a balanced
// brace pair, honoring string literals and escapes.
func balancedObject(s string) (string, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}
