// Package plan defines the typed contract for model output.
//
// A language model call produces raw JSON that must parse into a Plan,
// an ordered list of device Actions plus an explanation, before any
// part of it can reach device execution. Validation is all-or-nothing:
// every violation in the payload is collected into one SchemaError and
// no partial Plan survives.
//
// Action data values are typed scalars (string, number, boolean) with
// no coercion between them. Nested structures and null are rejected at
// the schema boundary rather than at device-call time.
package plan
