// Package flow composes the pipeline stages behind a single façade.
// Each registered flow runs Validating → Rendering → Invoking →
// ValidatingOutput; the only failure shape that ever leaves Run is a
// *taxonomy.Error, and validation failures never reach the backend.
package flow

import (
	"studyflow/internal/schema"
	"studyflow/internal/variant"
)

// Flow is one named generation pipeline with a fixed input/output
// contract. Flows are registered once at startup and never mutated.
type Flow struct {
	Name        string
	Description string

	Input  *schema.Shape
	Output *schema.Shape

	Variants *variant.Registry

	// Normalize, when set, rewrites the validated input into a cleaned
	// copy (for example canonical conversation roles). It must not
	// mutate its argument.
	Normalize func(input map[string]any) map[string]any

	// PreCheck, when set, may answer the request from the input alone.
	// Returning ok=true short-circuits the pipeline: the payload is
	// validated against Output and returned without contacting the
	// backend.
	PreCheck func(input map[string]any) (payload map[string]any, ok bool)

	// Check, when set, runs flow-specific minimum-content and semantic
	// checks after the output passes shape validation. A non-nil error
	// rejects the whole result; outputs are never partially accepted.
	Check func(output map[string]any) error

	// TextField receives the raw completion when the selected variant
	// requests plain text output instead of structured JSON.
	TextField string
}
