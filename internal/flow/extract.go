package flow

import (
	"encoding/json"
	"strings"
)

// extractJSON recovers the first complete top-level JSON object from raw
// model output. Models occasionally wrap structured output in markdown
// fences or surround it with prose; both are stripped before the object
// is located with a byte-level scan that respects strings and escapes.
//
// ASCII delimiter bytes ({, }, ", \) never appear inside multi-byte UTF-8
// sequences, so byte iteration is safe.
func extractJSON(raw string) (json.RawMessage, bool) {
	s := stripFences(raw)

	var depth int
	start := -1
	var inString, escape bool

	for i := 0; i < len(s); i++ {
		b := s[i]

		if escape {
			escape = false
			continue
		}
		if inString {
			if b == '\\' {
				escape = true
			} else if b == '"' {
				inString = false
			}
			continue
		}

		switch b {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					candidate := s[start : i+1]
					if json.Valid([]byte(candidate)) {
						return json.RawMessage(candidate), true
					}
					start = -1
				}
			}
		}
	}
	return nil, false
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// Drop the language tag line (```json).
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
