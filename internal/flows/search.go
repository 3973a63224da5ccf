package flows

import (
	"fmt"

	"studyflow/internal/flow"
	"studyflow/internal/prompt"
	"studyflow/internal/schema"
	"studyflow/internal/variant"
)

const searchSystem = `You answer questions strictly from the attached
document. Quote the passages that answer the question. If the document
does not contain the answer, say so via status "not_found" with an empty
results array. Never answer from outside knowledge.`

const searchTemplate = `Question: {{.question}}

Search the attached document for passages that answer the question.
{{media .fileDataUri}}`

// SearchFlow answers a question from inside an uploaded document.
// A question the document cannot answer is a successful generation with
// status "not_found", not a fault.
func SearchFlow() *flow.Flow {
	return &flow.Flow{
		Name:        "document-search",
		Description: "Find passages in an uploaded document that answer a question",
		Input: schema.Object(
			schema.Field{Name: "fileDataUri", Shape: &schema.Shape{
				Kind:        schema.TypeString,
				DataURI:     true,
				MIMEAllowed: documentMIMETypes,
			}},
			schema.Field{Name: "question", Shape: schema.Text(5)},
		),
		Output: schema.Object(
			schema.Field{Name: "status", Shape: schema.StringEnum("success", "not_found", "error")},
			schema.Field{Name: "results", Shape: schema.Array(schema.Object(
				schema.Field{Name: "snippet", Shape: schema.Text(1)},
				schema.Field{Name: "context", Shape: schema.String(), Optional: true},
				schema.Field{Name: "page", Shape: &schema.Shape{Kind: schema.TypeInteger, Min: schema.Bound(1)}, Optional: true},
			))},
		),
		Check: checkSearchContent,
		Variants: variant.MustRegistry(variant.Variant{
			Name:     "default",
			System:   searchSystem,
			Template: searchTemplate,
			Helpers:  prompt.StandardHelpers(),
			Config: variant.Config{
				Temperature:  0.1,
				OutputFormat: variant.FormatStructured,
			},
		}),
	}
}

// checkSearchContent keeps status and results consistent with each other.
func checkSearchContent(output map[string]any) error {
	status, _ := output["status"].(string)
	results, _ := output["results"].([]any)
	if status == "success" && len(results) == 0 {
		return fmt.Errorf("status success with no results")
	}
	if status == "not_found" && len(results) > 0 {
		return fmt.Errorf("status not_found with %d results", len(results))
	}
	return nil
}
