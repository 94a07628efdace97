// Package validator checks decoded agent output against a caller-declared
// shape: field presence, type conformance, and numeric ranges. A shape
// mismatch is a deterministic contract violation, never a transient fault,
// so validation errors must not be retried.
package validator

import (
	"encoding/json"
	"fmt"
	"math"
)

// FieldType enumerates the types a shape field may declare.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeInteger FieldType = "integer"
	TypeBoolean FieldType = "boolean"
	TypeObject  FieldType = "object"
	TypeArray   FieldType = "array"
	// TypeAny accepts any JSON value; useful with Required for presence-only checks.
	TypeAny FieldType = "any"
)

// FieldSpec declares the expected shape of one field.
type FieldSpec struct {
	Type     FieldType `json:"type"`
	Required bool      `json:"required,omitempty"`

	// Min and Max bound numeric fields (inclusive). Nil means unbounded.
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`

	// Fields declares a nested shape for object fields.
	Fields Shape `json:"fields,omitempty"`
}

// Shape maps field names to their expected specs. A nil Shape skips
// validation entirely.
type Shape map[string]FieldSpec

// Validate checks data against shape and returns a *SchemaValidationError
// listing every violation, or nil if the data conforms.
func Validate(data json.RawMessage, shape Shape) error {
	if shape == nil {
		return nil
	}

	verr := &SchemaValidationError{}

	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		verr.add("", fmt.Sprintf("output is not valid JSON: %v", err))
		return verr
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		verr.add("", fmt.Sprintf("expected object, got %s", jsonTypeName(decoded)))
		return verr
	}

	validateObject(verr, "", obj, shape)
	return verr.orNil()
}

func validateObject(verr *SchemaValidationError, prefix string, obj map[string]any, shape Shape) {
	for name, spec := range shape {
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}

		value, exists := obj[name]
		if !exists {
			if spec.Required {
				verr.add(path, "field is required")
			}
			continue
		}

		validateValue(verr, path, value, spec)
	}
}

func validateValue(verr *SchemaValidationError, path string, value any, spec FieldSpec) {
	switch spec.Type {
	case TypeAny, "":
		return

	case TypeString:
		if _, ok := value.(string); !ok {
			verr.add(path, fmt.Sprintf("expected string, got %s", jsonTypeName(value)))
		}

	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			verr.add(path, fmt.Sprintf("expected boolean, got %s", jsonTypeName(value)))
		}

	case TypeNumber, TypeInteger:
		num, ok := value.(float64)
		if !ok {
			verr.add(path, fmt.Sprintf("expected %s, got %s", spec.Type, jsonTypeName(value)))
			return
		}
		if spec.Type == TypeInteger && num != math.Trunc(num) {
			verr.add(path, fmt.Sprintf("expected integer, got %g", num))
			return
		}
		if spec.Min != nil && num < *spec.Min {
			verr.add(path, fmt.Sprintf("must be >= %g, got %g", *spec.Min, num))
		}
		if spec.Max != nil && num > *spec.Max {
			verr.add(path, fmt.Sprintf("must be <= %g, got %g", *spec.Max, num))
		}

	case TypeArray:
		if _, ok := value.([]any); !ok {
			verr.add(path, fmt.Sprintf("expected array, got %s", jsonTypeName(value)))
		}

	case TypeObject:
		nested, ok := value.(map[string]any)
		if !ok {
			verr.add(path, fmt.Sprintf("expected object, got %s", jsonTypeName(value)))
			return
		}
		if spec.Fields != nil {
			validateObject(verr, path, nested, spec.Fields)
		}

	default:
		verr.add(path, fmt.Sprintf("unknown field type %q in shape", spec.Type))
	}
}

// jsonTypeName names a decoded JSON value's type for error messages.
func jsonTypeName(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", value)
	}
}
