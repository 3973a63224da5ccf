package schema

// JSONSchema renders a shape as a JSON Schema document suitable for the
// Gemini generationConfig.responseJsonSchema field. Defaults and data-URI
// constraints are engine-side concerns and are not emitted; the backend
// only needs the structural contract.
func JSONSchema(shape *Shape) map[string]any {
	if shape == nil {
		return map[string]any{"type": "object"}
	}
	doc := map[string]any{}
	if shape.Description != "" {
		doc["description"] = shape.Description
	}
	switch shape.Kind {
	case TypeString:
		doc["type"] = "string"
		if shape.MinLen > 0 {
			doc["minLength"] = shape.MinLen
		}
		if shape.MaxLen > 0 {
			doc["maxLength"] = shape.MaxLen
		}
		if len(shape.Enum) > 0 {
			doc["enum"] = shape.Enum
		}
	case TypeNumber:
		doc["type"] = "number"
		addBounds(doc, shape)
	case TypeInteger:
		doc["type"] = "integer"
		addBounds(doc, shape)
	case TypeBool:
		doc["type"] = "boolean"
	case TypeArray:
		doc["type"] = "array"
		doc["items"] = JSONSchema(shape.Items)
		if shape.MinItems > 0 {
			doc["minItems"] = shape.MinItems
		}
		if shape.MaxItems > 0 {
			doc["maxItems"] = shape.MaxItems
		}
	case TypeObject:
		doc["type"] = "object"
		props := map[string]any{}
		var required []string
		for _, field := range shape.Fields {
			props[field.Name] = JSONSchema(field.Shape)
			if !field.Optional {
				required = append(required, field.Name)
			}
		}
		doc["properties"] = props
		if len(required) > 0 {
			doc["required"] = required
		}
	}
	return doc
}

func addBounds(doc map[string]any, shape *Shape) {
	if shape.Min != nil {
		doc["minimum"] = *shape.Min
	}
	if shape.Max != nil {
		doc["maximum"] = *shape.Max
	}
}
