package flows

import (
	"strings"

	"studyflow/internal/flow"
	"studyflow/internal/prompt"
	"studyflow/internal/schema"
	"studyflow/internal/variant"
)

const tutorSystem = `You are a patient, encouraging study tutor. Answer the
student's latest question using the conversation so far. Explain concepts
step by step at the student's level and end with a short check question.`

const tutorTemplate = `Conversation so far:
{{range .history}}{{roleLabel .role}}: {{.content}}
{{end}}
Reply to the latest student message.`

// TutorFlow answers one turn of a tutoring conversation.
func TutorFlow() *flow.Flow {
	return &flow.Flow{
		Name:        "tutor-reply",
		Description: "Generate the tutor's reply to a student chat message",
		Input: schema.Object(
			schema.Field{Name: "history", Shape: &schema.Shape{
				Kind:     schema.TypeArray,
				MinItems: 1,
				Items: schema.Object(
					schema.Field{Name: "role", Shape: schema.String(), Optional: true},
					schema.Field{Name: "content", Shape: schema.Text(1)},
				),
			}},
		),
		Output: schema.Object(
			schema.Field{Name: "response", Shape: schema.Text(1)},
		),
		Normalize: normalizeHistory,
		Variants: variant.MustRegistry(variant.Variant{
			Name:     "chat",
			System:   tutorSystem,
			Template: tutorTemplate,
			Helpers:  prompt.StandardHelpers(),
			Config: variant.Config{
				Temperature:  0.7,
				OutputFormat: variant.FormatStructured,
			},
		}),
	}
}

// normalizeHistory produces a cleaned copy of the conversation: trimmed
// content, canonical lowercase roles. The caller's value is never
// mutated.
func normalizeHistory(input map[string]any) map[string]any {
	out := make(map[string]any, len(input))
	for k, v := range input {
		out[k] = v
	}
	history, ok := input["history"].([]any)
	if !ok {
		return out
	}
	cleaned := make([]any, len(history))
	for i, raw := range history {
		turn, ok := raw.(map[string]any)
		if !ok {
			cleaned[i] = raw
			continue
		}
		ct := map[string]any{
			"content": prompt.Normalize(turn["content"]),
		}
		if role, ok := turn["role"]; ok {
			ct["role"] = canonicalRole(role)
		}
		cleaned[i] = ct
	}
	out["history"] = cleaned
	return out
}

func canonicalRole(role any) string {
	return strings.ToLower(prompt.Normalize(role))
}
