// Package schema defines the typed shapes that cross the flow engine
// boundary. Every flow registers one input shape and one output shape;
// the same shape machinery validates caller input, validates model output,
// and is emitted as a JSON Schema for structured-output enforcement.
package schema

// Type identifies the kind of value a Shape describes.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBool    Type = "boolean"
	TypeArray   Type = "array"
	TypeObject  Type = "object"
)

// Shape is one node in a shape tree.
//
// Only the constraint fields matching Kind are consulted: MinLen/MaxLen/
// Enum/MIMEAllowed/DataURI for strings, Min/Max for numbers, Items/
// MinItems/MaxItems for arrays, Fields for objects. A zero constraint
// means unconstrained.
type Shape struct {
	Kind        Type
	Description string

	// String constraints.
	MinLen      int
	MaxLen      int
	Enum        []string
	DataURI     bool     // value must be a decodable data: URI
	MIMEAllowed []string // allowed MIME types (data URI payload or plain MIME field)

	// Number constraints. Nil bound means unbounded.
	Min *float64
	Max *float64

	// Array constraints.
	Items    *Shape
	MinItems int
	MaxItems int

	// Object fields, in declaration order.
	Fields []Field
}

// Field is one named member of an object shape.
type Field struct {
	Name     string
	Shape    *Shape
	Optional bool
	// Default is substituted when an optional field is absent.
	Default any
}

// Bound returns a *float64 for numeric Min/Max literals.
func Bound(v float64) *float64 { return &v }

// String returns a bare string shape.
func String() *Shape { return &Shape{Kind: TypeString} }

// Text returns a string shape with a minimum length.
func Text(minLen int) *Shape { return &Shape{Kind: TypeString, MinLen: minLen} }

// StringEnum returns a string shape constrained to the given members.
func StringEnum(members ...string) *Shape {
	return &Shape{Kind: TypeString, Enum: members}
}

// IntRange returns an integer shape bounded to [min, max].
func IntRange(min, max float64) *Shape {
	return &Shape{Kind: TypeInteger, Min: Bound(min), Max: Bound(max)}
}

// Array returns an array shape over the given element shape.
func Array(items *Shape) *Shape { return &Shape{Kind: TypeArray, Items: items} }

// Object returns an object shape with the given fields, in order.
func Object(fields ...Field) *Shape { return &Shape{Kind: TypeObject, Fields: fields} }
