package scenario

import "fmt"

// SchemaError describes an input table violating the scenario schema:
// a missing table, a malformed cell, or a broken cross-table reference.
type SchemaError struct {
	Table  string
	Key    string
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("table %q", e.Table)
	if e.Key != "" {
		msg += fmt.Sprintf(", row %q", e.Key)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(", field %q", e.Field)
	}
	return msg + ": " + e.Reason
}

func schemaErrf(table, key, field, format string, args ...any) *SchemaError {
	return &SchemaError{
		Table:  table,
		Key:    key,
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	}
}
