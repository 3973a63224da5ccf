// Package prompt renders structured flow input into the text and media
// parts sent to the generative backend. Templates are standard
// text/template; every variant carries its own helper set, so a helper
// referenced by one flow can never leak into another.
package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"studyflow/internal/schema"
)

// Media is one binary attachment extracted during rendering.
type Media struct {
	MIME string
	Data []byte
}

// Rendered is the fully assembled prompt for one backend call.
type Rendered struct {
	Text  string
	Media []Media
}

// TemplateError wraps any template parse or execution failure, including
// references to helpers that are not registered for the active variant.
// It must never reach a caller unclassified.
type TemplateError struct {
	Template string
	Err      error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template %q: %v", e.Template, e.Err)
}

func (e *TemplateError) Unwrap() error { return e.Err }

// Render executes tmpl against data with the variant's helper set.
// The built-in "media" helper is always available: it decodes a base64
// data URI, attaches the bytes to the result, and leaves a short
// placeholder in the text instead of the raw payload.
func Render(name, tmpl string, data any, helpers template.FuncMap) (*Rendered, error) {
	out := &Rendered{}

	funcs := template.FuncMap{
		"media": func(v any) (string, error) {
			uri, ok := v.(string)
			if !ok {
				return "", fmt.Errorf("media: expected data URI string, got %T", v)
			}
			mime, raw, err := schema.DataURI(uri)
			if err != nil {
				return "", fmt.Errorf("media: %w", err)
			}
			out.Media = append(out.Media, Media{MIME: mime, Data: raw})
			return fmt.Sprintf("[attached %s]", mime), nil
		},
	}
	for fname, fn := range helpers {
		funcs[fname] = fn
	}

	t, err := template.New(name).Funcs(funcs).Parse(tmpl)
	if err != nil {
		return nil, &TemplateError{Template: name, Err: err}
	}

	var buf strings.Builder
	if err := t.Execute(&buf, data); err != nil {
		return nil, &TemplateError{Template: name, Err: err}
	}

	out.Text = strings.TrimSpace(buf.String())
	return out, nil
}
