package validator

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func f64(v float64) *float64 { return &v }

func TestValidate_NilShapeSkips(t *testing.T) {
	if err := Validate(json.RawMessage(`not even json`), nil); err != nil {
		t.Errorf("nil shape should skip validation, got %v", err)
	}
}

func TestValidate_Conforming(t *testing.T) {
	shape := Shape{
		"answer":     {Type: TypeString, Required: true},
		"confidence": {Type: TypeNumber, Min: f64(0), Max: f64(1)},
		"count":      {Type: TypeInteger},
		"done":       {Type: TypeBoolean},
		"tags":       {Type: TypeArray},
		"anything":   {Type: TypeAny},
	}
	data := json.RawMessage(`{
		"answer": "yes",
		"confidence": 0.9,
		"count": 4,
		"done": true,
		"tags": ["a"],
		"anything": null
	}`)

	if err := Validate(data, shape); err != nil {
		t.Errorf("Validate failed on conforming data: %v", err)
	}
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name      string
		shape     Shape
		data      string
		wantField string
		wantMsg   string
	}{
		{
			name:      "missing required field",
			shape:     Shape{"answer": {Type: TypeString, Required: true}},
			data:      `{}`,
			wantField: "answer",
			wantMsg:   "required",
		},
		{
			name:      "wrong type",
			shape:     Shape{"answer": {Type: TypeString}},
			data:      `{"answer": 42}`,
			wantField: "answer",
			wantMsg:   "expected string, got number",
		},
		{
			name:      "non-integer number",
			shape:     Shape{"count": {Type: TypeInteger}},
			data:      `{"count": 1.5}`,
			wantField: "count",
			wantMsg:   "expected integer",
		},
		{
			name:      "below minimum",
			shape:     Shape{"score": {Type: TypeNumber, Min: f64(0)}},
			data:      `{"score": -1}`,
			wantField: "score",
			wantMsg:   "must be >= 0",
		},
		{
			name:      "above maximum",
			shape:     Shape{"score": {Type: TypeNumber, Max: f64(10)}},
			data:      `{"score": 11}`,
			wantField: "score",
			wantMsg:   "must be <= 10",
		},
		{
			name:      "boolean expected",
			shape:     Shape{"done": {Type: TypeBoolean}},
			data:      `{"done": "true"}`,
			wantField: "done",
			wantMsg:   "expected boolean",
		},
		{
			name:      "array expected",
			shape:     Shape{"tags": {Type: TypeArray}},
			data:      `{"tags": {}}`,
			wantField: "tags",
			wantMsg:   "expected array",
		},
		{
			name:      "unknown type in shape",
			shape:     Shape{"x": {Type: "uuid"}},
			data:      `{"x": 1}`,
			wantField: "x",
			wantMsg:   "unknown field type",
		},
		{
			name:      "top level not object",
			shape:     Shape{"x": {Type: TypeString}},
			data:      `[1, 2]`,
			wantField: "",
			wantMsg:   "expected object, got array",
		},
		{
			name:      "invalid json",
			shape:     Shape{"x": {Type: TypeString}},
			data:      `{broken`,
			wantField: "",
			wantMsg:   "not valid JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(json.RawMessage(tt.data), tt.shape)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}

			var verr *SchemaValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %T, want *SchemaValidationError", err)
			}
			if len(verr.Violations) != 1 {
				t.Fatalf("got %d violations, want 1: %v", len(verr.Violations), verr)
			}
			v := verr.Violations[0]
			if v.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", v.Field, tt.wantField)
			}
			if !strings.Contains(v.Message, tt.wantMsg) {
				t.Errorf("Message = %q, want it to contain %q", v.Message, tt.wantMsg)
			}
		})
	}
}

func TestValidate_NestedObjects(t *testing.T) {
	shape := Shape{
		"result": {
			Type:     TypeObject,
			Required: true,
			Fields: Shape{
				"title": {Type: TypeString, Required: true},
				"meta": {
					Type:   TypeObject,
					Fields: Shape{"pages": {Type: TypeInteger, Min: f64(1)}},
				},
			},
		},
	}

	data := json.RawMessage(`{"result": {"meta": {"pages": 0}}}`)
	err := Validate(data, shape)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}

	var verr *SchemaValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %T, want *SchemaValidationError", err)
	}
	if len(verr.Violations) != 2 {
		t.Fatalf("got %d violations, want 2: %v", len(verr.Violations), verr)
	}

	paths := make(map[string]bool)
	for _, v := range verr.Violations {
		paths[v.Field] = true
	}
	if !paths["result.title"] {
		t.Errorf("missing dotted path result.title in %v", verr.Violations)
	}
	if !paths["result.meta.pages"] {
		t.Errorf("missing dotted path result.meta.pages in %v", verr.Violations)
	}
}

func TestValidate_OptionalFieldAbsent(t *testing.T) {
	shape := Shape{"note": {Type: TypeString}}
	if err := Validate(json.RawMessage(`{}`), shape); err != nil {
		t.Errorf("absent optional field should pass, got %v", err)
	}
}

func TestValidate_ExtraFieldsIgnored(t *testing.T) {
	shape := Shape{"answer": {Type: TypeString, Required: true}}
	data := json.RawMessage(`{"answer": "x", "extra": [1,2,3]}`)
	if err := Validate(data, shape); err != nil {
		t.Errorf("undeclared fields should be ignored, got %v", err)
	}
}

func TestSchemaValidationError_MessageFormat(t *testing.T) {
	verr := &SchemaValidationError{}
	verr.add("a", "field is required")
	if got := verr.Error(); got != "schema validation failed: a: field is required" {
		t.Errorf("single violation message = %q", got)
	}

	verr.add("b", "expected string, got number")
	got := verr.Error()
	if !strings.Contains(got, "2 violations") {
		t.Errorf("multi-violation message %q missing count", got)
	}
	if !strings.Contains(got, "a: field is required") || !strings.Contains(got, "b: expected string") {
		t.Errorf("multi-violation message %q missing details", got)
	}
}
