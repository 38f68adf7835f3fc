// Package schema defines the target-record contract consumed by the
// ingestion pipeline: the field list of the destination schema, the column
// identity used for schema-aware cleaning, and the Codec capability that
// decodes a cleaned field slice into a typed record.
//
// The pipeline only ever calls the three Codec operations (Arity, ColumnOf,
// Decode); it never inspects the target type's internals. Decode failures are
// classified into the four-way taxonomy in this package and surfaced by the
// pipeline as side-channel error lines, never as panics.
package schema

import "fmt"

// Record is a decoded, typed record keyed by column name. Values are one of
// nil, string, int64, float64, bool, or time.Time depending on the declared
// column type.
type Record map[string]any

// Field declares one column of the target schema.
type Field struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"` // "int" | "float" | "bool" | "date" | "text"
	Required bool     `json:"required,omitempty"`
	Enum     []string `json:"enum,omitempty"`
	Layout   string   `json:"layout,omitempty"` // date layout
	Truthy   []string `json:"truthy,omitempty"` // bool parsing
	Falsy    []string `json:"falsy,omitempty"`
}

// Contract is the full target schema: an ordered field list plus an optional
// contract name used in logs and metrics.
type Contract struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// Column identifies one schema position. Cleaners receive it so they can
// special-case a column by name or type.
type Column struct {
	Index int
	Name  string
	Type  string
}

// Codec decodes a cleaned field slice into the target typed record.
//
// Arity is the exact number of fields Decode expects; ColumnOf reports the
// identity of position i. Implementations must return a *DecodeError (never
// panic) for any malformed input, including arity mismatches.
type Codec interface {
	Arity() int
	ColumnOf(i int) Column
	Decode(fields []string) (Record, *DecodeError)
}

// ErrorKind classifies a decode failure.
type ErrorKind int

const (
	// TypeMismatch: the field value cannot be coerced to the column's type.
	TypeMismatch ErrorKind = iota
	// ParseError: the value structurally cannot be parsed for the column.
	ParseError
	// NotEnoughInput: fewer fields than the schema arity.
	NotEnoughInput
	// TooMuchInput: more fields than the schema arity.
	TooMuchInput
)

// String returns the stable name of the kind used in error lines and metrics.
func (k ErrorKind) String() string {
	switch k {
	case TypeMismatch:
		return "type_mismatch"
	case ParseError:
		return "parse_error"
	case NotEnoughInput:
		return "not_enough_input"
	case TooMuchInput:
		return "too_much_input"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// DecodeError describes a single rejected record. For TypeMismatch and
// ParseError, Column, Value and Expected identify the offending field; for
// the arity kinds, Required and Present carry the field counts.
type DecodeError struct {
	Kind     ErrorKind
	Column   Column
	Value    string
	Expected string // expected type or format
	Cause    error  // underlying parse failure, if any
	Required int
	Present  int
}

// Error renders the reject as a single human-readable line.
func (e *DecodeError) Error() string {
	switch e.Kind {
	case NotEnoughInput:
		return fmt.Sprintf("not enough input: %d fields required, %d present", e.Required, e.Present)
	case TooMuchInput:
		return fmt.Sprintf("too much input: %d fields required, %d present", e.Required, e.Present)
	case ParseError:
		if e.Cause != nil {
			return fmt.Sprintf("column %q: cannot parse %q as %s: %v", e.Column.Name, e.Value, e.Expected, e.Cause)
		}
		return fmt.Sprintf("column %q: cannot parse %q as %s", e.Column.Name, e.Value, e.Expected)
	default:
		return fmt.Sprintf("column %q: value %q is not a valid %s", e.Column.Name, e.Value, e.Expected)
	}
}
