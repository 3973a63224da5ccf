package prompt

import (
	"fmt"
	"strings"
	"text/template"
)

// NotAnswered is the sentinel rendered when an index lookup reaches past
// the end of a sibling array (a student skipped the question).
const NotAnswered = "Not answered"

// Seq converts a zero-based range index into display numbering.
func Seq(i int) int { return i + 1 }

// Join renders an array value as a comma-separated display string.
func Join(v any, sep string) string {
	items, ok := v.([]any)
	if !ok {
		return Normalize(v)
	}
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = Normalize(item)
	}
	return strings.Join(parts, sep)
}

// Lookup indexes into a sibling array by iteration position. Out-of-range
// or non-array values yield the NotAnswered sentinel, never a failure.
func Lookup(v any, i int) any {
	items, ok := v.([]any)
	if !ok || i < 0 || i >= len(items) {
		return NotAnswered
	}
	if items[i] == nil {
		return NotAnswered
	}
	return items[i]
}

// EqFold reports whether two string-like values are equal after trimming
// whitespace and folding case. Non-string values are compared through
// their printed form, so a numeric answer matches its string spelling.
func EqFold(a, b any) bool {
	return strings.EqualFold(Normalize(a), Normalize(b))
}

// RoleLabel maps a conversation role onto its display branch. "user"
// always lands in the student branch; anything unrecognized, including a
// missing role, falls through to the participant branch.
func RoleLabel(role any) string {
	switch strings.ToLower(Normalize(role)) {
	case "user":
		return "User"
	case "assistant":
		return "Tutor"
	default:
		return "Participant"
	}
}

// Normalize flattens any value into a trimmed string.
func Normalize(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// StandardHelpers returns a fresh copy of the common helper set. Each
// variant receives its own map; mutating one variant's helpers cannot
// affect another.
func StandardHelpers() template.FuncMap {
	return template.FuncMap{
		"seq":       Seq,
		"join":      Join,
		"lookup":    Lookup,
		"eqFold":    EqFold,
		"roleLabel": RoleLabel,
	}
}
