// Package variant holds the per-flow table of prompt variants and picks
// exactly one for each request. Registries are built once at startup and
// never mutated, so concurrent selection needs no locking.
package variant

import (
	"errors"
	"fmt"
	"text/template"
)

// OutputFormat controls how the backend is asked to respond.
type OutputFormat string

const (
	// FormatStructured requests JSON constrained by the flow's output schema.
	FormatStructured OutputFormat = "structured"
	// FormatText requests free-form text.
	FormatText OutputFormat = "text"
)

// Config is the model configuration attached to one variant.
type Config struct {
	Model           string
	Temperature     float64
	OutputFormat    OutputFormat
	MaxOutputTokens int
}

// Variant is one template + configuration combination. Match decides
// whether this variant handles a given (already validated) input;
// a nil Match matches everything.
type Variant struct {
	Name     string
	Match    func(input map[string]any) bool
	System   string
	Template string
	Helpers  template.FuncMap
	Config   Config
}

// ErrNoVariant reports that no registered variant matched. Inputs are
// shape-validated before selection, so this is an internal-consistency
// fault, not a caller mistake.
var ErrNoVariant = errors.New("no prompt variant matched input")

// Registry is an ordered, immutable set of variants for one flow.
type Registry struct {
	variants []Variant
}

// NewRegistry builds a registry. At least one variant is required and
// every variant needs a name and a template.
func NewRegistry(variants ...Variant) (*Registry, error) {
	if len(variants) == 0 {
		return nil, fmt.Errorf("registry needs at least one variant")
	}
	seen := make(map[string]bool, len(variants))
	for _, v := range variants {
		if v.Name == "" {
			return nil, fmt.Errorf("variant without a name")
		}
		if seen[v.Name] {
			return nil, fmt.Errorf("duplicate variant %q", v.Name)
		}
		seen[v.Name] = true
		if v.Template == "" {
			return nil, fmt.Errorf("variant %q has no template", v.Name)
		}
	}
	return &Registry{variants: variants}, nil
}

// MustRegistry is NewRegistry for statically declared variant tables.
func MustRegistry(variants ...Variant) *Registry {
	r, err := NewRegistry(variants...)
	if err != nil {
		panic(err)
	}
	return r
}

// Select walks the variants in registration order and returns the first
// whose predicate accepts the input.
func (r *Registry) Select(input map[string]any) (*Variant, error) {
	for i := range r.variants {
		v := &r.variants[i]
		if v.Match == nil || v.Match(input) {
			return v, nil
		}
	}
	return nil, ErrNoVariant
}

// Names lists the registered variant names in order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.variants))
	for i, v := range r.variants {
		names[i] = v.Name
	}
	return names
}
