package plan

import (
	"errors"
	"strings"
)

// ErrSchema is the sentinel all schema validation failures wrap.
// Test with errors.Is; inspect individual issues with errors.As on
// *SchemaError.
var ErrSchema = errors.New("plan: model output violates action schema")

// SchemaError aggregates every schema violation found in one model
// response. Parse never returns a partial Plan alongside it.
type SchemaError struct {
	Issues []string
}

func (e *SchemaError) Error() string {
	return ErrSchema.Error() + ": " + strings.Join(e.Issues, "; ")
}

func (e *SchemaError) Unwrap() error {
	return ErrSchema
}

func newSchemaError(issues []string) *SchemaError {
	return &SchemaError{Issues: issues}
}
