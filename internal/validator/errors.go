package validator

import (
	"fmt"
	"strings"
)

// Violation is one specific shape violation with its field path.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	if v.Field == "" {
		return v.Message
	}
	return v.Field + ": " + v.Message
}

// SchemaValidationError carries every violation found in one validation pass.
// It indicates a contract mismatch between the agent's output and the
// caller's expected shape; it propagates to the caller without retry.
type SchemaValidationError struct {
	Violations []Violation
}

func (e *SchemaValidationError) Error() string {
	switch len(e.Violations) {
	case 0:
		return "schema validation failed"
	case 1:
		return "schema validation failed: " + e.Violations[0].String()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "schema validation failed: %d violations", len(e.Violations))
	for _, v := range e.Violations {
		sb.WriteString("\n  - ")
		sb.WriteString(v.String())
	}
	return sb.String()
}

func (e *SchemaValidationError) add(field, message string) {
	e.Violations = append(e.Violations, Violation{Field: field, Message: message})
}

func (e *SchemaValidationError) orNil() error {
	if len(e.Violations) == 0 {
		return nil
	}
	return e
}
