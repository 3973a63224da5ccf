package schema

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// FieldError is a single path-qualified validation failure.
type FieldError struct {
	Path    string
	Message string
}

func (e FieldError) String() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationError aggregates the field errors found for one value.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.String()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Paths returns the qualified messages, one per failing field.
func (e *ValidationError) Paths() []string {
	out := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		out[i] = fe.String()
	}
	return out
}

// Validate checks value against shape and returns a cleaned copy: defaults
// applied to missing optional fields, unknown object members dropped.
// Validation is pure and idempotent; validating an already-clean value
// returns an equal value, and the same invalid value always yields the
// same error paths.
func Validate(shape *Shape, value any) (any, error) {
	v := &validator{}
	cleaned := v.check(shape, value, "")
	if len(v.errs) > 0 {
		return nil, &ValidationError{Errors: v.errs}
	}
	return cleaned, nil
}

type validator struct {
	errs []FieldError
}

func (v *validator) fail(path, format string, args ...any) {
	v.errs = append(v.errs, FieldError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) check(shape *Shape, value any, path string) any {
	if shape == nil {
		v.fail(path, "internal: nil shape")
		return nil
	}
	switch shape.Kind {
	case TypeString:
		return v.checkString(shape, value, path)
	case TypeNumber, TypeInteger:
		return v.checkNumber(shape, value, path)
	case TypeBool:
		b, ok := value.(bool)
		if !ok {
			v.fail(path, "must be a boolean")
			return nil
		}
		return b
	case TypeArray:
		return v.checkArray(shape, value, path)
	case TypeObject:
		return v.checkObject(shape, value, path)
	default:
		v.fail(path, "internal: unknown shape kind %q", shape.Kind)
		return nil
	}
}

func (v *validator) checkString(shape *Shape, value any, path string) any {
	s, ok := value.(string)
	if !ok {
		v.fail(path, "must be a string")
		return nil
	}
	if shape.MinLen > 0 && len(s) < shape.MinLen {
		v.fail(path, "must be at least %d characters", shape.MinLen)
		return s
	}
	if shape.MaxLen > 0 && len(s) > shape.MaxLen {
		v.fail(path, "must be at most %d characters", shape.MaxLen)
		return s
	}
	if len(shape.Enum) > 0 && !contains(shape.Enum, s) {
		v.fail(path, "must be one of %s", strings.Join(shape.Enum, ", "))
		return s
	}
	if shape.DataURI {
		mime, err := dataURIMIME(s)
		if err != nil {
			v.fail(path, "must be a base64 data URI")
			return s
		}
		if len(shape.MIMEAllowed) > 0 && !contains(shape.MIMEAllowed, mime) {
			v.fail(path, "media type %s is not supported", mime)
		}
		return s
	}
	if len(shape.MIMEAllowed) > 0 && !contains(shape.MIMEAllowed, s) {
		v.fail(path, "file type %s is not supported", s)
	}
	return s
}

func (v *validator) checkNumber(shape *Shape, value any, path string) any {
	var f float64
	switch n := value.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		v.fail(path, "must be a number")
		return nil
	}
	if shape.Kind == TypeInteger && f != float64(int64(f)) {
		v.fail(path, "must be an integer")
		return value
	}
	if shape.Min != nil && f < *shape.Min {
		v.fail(path, "must be at least %v", *shape.Min)
		return value
	}
	if shape.Max != nil && f > *shape.Max {
		v.fail(path, "must be at most %v", *shape.Max)
		return value
	}
	return value
}

func (v *validator) checkArray(shape *Shape, value any, path string) any {
	arr, ok := value.([]any)
	if !ok {
		v.fail(path, "must be an array")
		return nil
	}
	if shape.MinItems > 0 && len(arr) < shape.MinItems {
		v.fail(path, "must have at least %d items", shape.MinItems)
		return arr
	}
	if shape.MaxItems > 0 && len(arr) > shape.MaxItems {
		v.fail(path, "must have at most %d items", shape.MaxItems)
		return arr
	}
	cleaned := make([]any, len(arr))
	for i, item := range arr {
		cleaned[i] = v.check(shape.Items, item, fmt.Sprintf("%s[%d]", path, i))
	}
	return cleaned
}

func (v *validator) checkObject(shape *Shape, value any, path string) any {
	obj, ok := value.(map[string]any)
	if !ok {
		v.fail(path, "must be an object")
		return nil
	}
	cleaned := make(map[string]any, len(shape.Fields))
	for _, field := range shape.Fields {
		fieldPath := field.Name
		if path != "" {
			fieldPath = path + "." + field.Name
		}
		raw, present := obj[field.Name]
		if !present || raw == nil {
			if field.Optional {
				if field.Default != nil {
					cleaned[field.Name] = field.Default
				}
				continue
			}
			v.fail(fieldPath, "is required")
			continue
		}
		cleaned[field.Name] = v.check(field.Shape, raw, fieldPath)
	}
	// Unknown members are dropped, not rejected.
	return cleaned
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// dataURIMIME extracts the declared MIME type from a data URI and verifies
// the payload is decodable base64. Format: data:<mime>;base64,<payload>.
func dataURIMIME(uri string) (string, error) {
	const prefix = "data:"
	if !strings.HasPrefix(uri, prefix) {
		return "", fmt.Errorf("missing data: prefix")
	}
	rest := uri[len(prefix):]
	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return "", fmt.Errorf("missing payload separator")
	}
	meta, payload := rest[:comma], rest[comma+1:]
	mime := meta
	if semi := strings.IndexByte(meta, ';'); semi >= 0 {
		mime = meta[:semi]
		if !strings.Contains(meta[semi:], "base64") {
			return "", fmt.Errorf("only base64 data URIs are supported")
		}
	} else {
		return "", fmt.Errorf("only base64 data URIs are supported")
	}
	if mime == "" {
		return "", fmt.Errorf("missing media type")
	}
	if _, err := decodeBase64Payload(payload); err != nil {
		return "", fmt.Errorf("payload is not valid base64: %w", err)
	}
	return mime, nil
}

// decodeBase64Payload accepts both padded and unpadded payloads; browser
// FileReader output is padded, but hand-built URIs often are not.
func decodeBase64Payload(payload string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(payload)
}

// DataURI decodes a base64 data URI into its MIME type and raw bytes.
func DataURI(uri string) (mime string, data []byte, err error) {
	mime, err = dataURIMIME(uri)
	if err != nil {
		return "", nil, err
	}
	comma := strings.IndexByte(uri, ',')
	data, err = decodeBase64Payload(uri[comma+1:])
	if err != nil {
		return "", nil, err
	}
	return mime, data, nil
}
