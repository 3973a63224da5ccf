package flows

import (
	"studyflow/internal/flow"
	"studyflow/internal/prompt"
	"studyflow/internal/schema"
	"studyflow/internal/variant"
)

const explainSystem = `You are a study assistant. Explain the attached
document for a student: a thorough written explanation, a script suitable
for reading aloud as audio, and a mind map in indented outline form.`

const explainTemplate = `Explain the attached document in full.
{{media .fileDataUri}}

Produce all three parts: the written explanation, the audio script, and
the mind map outline.`

// ExplainFlow produces a three-part explanation of a PDF document.
func ExplainFlow() *flow.Flow {
	return &flow.Flow{
		Name:        "document-explanation",
		Description: "Explain an uploaded PDF as text, audio script, and mind map",
		Input: schema.Object(
			schema.Field{Name: "fileDataUri", Shape: &schema.Shape{
				Kind:        schema.TypeString,
				DataURI:     true,
				MIMEAllowed: []string{"application/pdf"},
			}},
		),
		Output: schema.Object(
			schema.Field{Name: "textExplanation", Shape: schema.Text(100)},
			schema.Field{Name: "audioExplanationScript", Shape: schema.Text(50)},
			schema.Field{Name: "mindMapExplanation", Shape: schema.Text(20)},
		),
		Variants: variant.MustRegistry(variant.Variant{
			Name:     "pdf",
			System:   explainSystem,
			Template: explainTemplate,
			Helpers:  prompt.StandardHelpers(),
			Config: variant.Config{
				Temperature:  0.3,
				OutputFormat: variant.FormatStructured,
			},
		}),
	}
}

const summarizeSystem = `You are a study assistant. Summarize the attached
material for a student: a written summary, a script suitable for reading
aloud as audio, and a mind map in indented outline form. Cover only what
the material actually says.`

const summarizeDocumentTemplate = `Summarize the attached document.
{{media .fileDataUri}}

Produce all three parts: the written summary, the audio script, and the
mind map outline.`

const summarizeImageTemplate = `Summarize the attached image. Describe
what it shows and what a student should learn from it.
{{media .fileDataUri}}

Produce all three parts: the written summary, the audio script, and the
mind map outline.`

// SummarizeFlow condenses an uploaded document or image. Variant
// selection dispatches on the declared MIME type: images take the vision
// variant, everything else the document variant.
func SummarizeFlow() *flow.Flow {
	return &flow.Flow{
		Name:        "document-summarization",
		Description: "Summarize an uploaded document or image",
		Input: schema.Object(
			schema.Field{Name: "fileDataUri", Shape: &schema.Shape{
				Kind:        schema.TypeString,
				DataURI:     true,
				MIMEAllowed: documentMIMETypes,
			}},
			schema.Field{Name: "fileType", Shape: &schema.Shape{
				Kind:        schema.TypeString,
				MIMEAllowed: documentMIMETypes,
			}},
		),
		Output: schema.Object(
			schema.Field{Name: "textSummary", Shape: schema.Text(100)},
			schema.Field{Name: "audioSummary", Shape: schema.Text(50)},
			schema.Field{Name: "mindMap", Shape: schema.Text(20)},
		),
		Variants: variant.MustRegistry(
			variant.Variant{
				Name: "vision",
				Match: func(input map[string]any) bool {
					mime, _ := input["fileType"].(string)
					return isImageMIME(mime)
				},
				System:   summarizeSystem,
				Template: summarizeImageTemplate,
				Helpers:  prompt.StandardHelpers(),
				Config: variant.Config{
					Temperature:  0.3,
					OutputFormat: variant.FormatStructured,
				},
			},
			variant.Variant{
				Name:     "document",
				System:   summarizeSystem,
				Template: summarizeDocumentTemplate,
				Helpers:  prompt.StandardHelpers(),
				Config: variant.Config{
					Temperature:  0.3,
					OutputFormat: variant.FormatStructured,
				},
			},
		),
	}
}
