// Contract-backed Codec implementation.
//
// Decoding follows the teacher pattern of a precompiled per-column plan: the
// Contract is walked once at construction time and each column gets a small
// closure, so the per-record hot path performs no map lookups and no type
// switching on the declaration strings.
package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// isoLayout is the fallback date layout tried after a field's own layout.
const isoLayout = "2006-01-02"

// ContractCodec decodes cleaned field slices against a Contract. It is
// immutable after construction and safe for concurrent use by all partition
// workers of a run.
type ContractCodec struct {
	contract Contract
	columns  []Column
	decoders []func(dst Record, col Column, s string) *DecodeError
}

// NewCodec compiles a Contract into a ContractCodec. Unknown field types are
// rejected here, at configuration time, rather than per record.
func NewCodec(c Contract) (*ContractCodec, error) {
	if len(c.Fields) == 0 {
		return nil, fmt.Errorf("schema: contract %q has no fields", c.Name)
	}

	cc := &ContractCodec{
		contract: c,
		columns:  make([]Column, len(c.Fields)),
		decoders: make([]func(Record, Column, string) *DecodeError, len(c.Fields)),
	}
	for i, f := range c.Fields {
		cc.columns[i] = Column{Index: i, Name: f.Name, Type: normalizeKind(f.Type)}
		dec, err := compileDecoder(f)
		if err != nil {
			return nil, err
		}
		cc.decoders[i] = dec
	}
	return cc, nil
}

// Arity implements Codec.
func (c *ContractCodec) Arity() int { return len(c.columns) }

// ColumnOf implements Codec. i must be in [0, Arity).
func (c *ContractCodec) ColumnOf(i int) Column { return c.columns[i] }

// Columns returns the ordered column identities of the contract.
func (c *ContractCodec) Columns() []Column { return c.columns }

// Decode implements Codec. The arity check runs first so that a field-count
// mismatch is always reported as NotEnoughInput/TooMuchInput and decoding
// never indexes out of range.
func (c *ContractCodec) Decode(fields []string) (Record, *DecodeError) {
	if len(fields) < len(c.columns) {
		return nil, &DecodeError{Kind: NotEnoughInput, Required: len(c.columns), Present: len(fields)}
	}
	if len(fields) > len(c.columns) {
		return nil, &DecodeError{Kind: TooMuchInput, Required: len(c.columns), Present: len(fields)}
	}

	rec := make(Record, len(c.columns))
	for i, s := range fields {
		if derr := c.decoders[i](rec, c.columns[i], s); derr != nil {
			return nil, derr
		}
	}
	return rec, nil
}

// compileDecoder builds the per-column decode closure for one field.
//
// Typed columns treat the empty string as NULL (nil); required-ness is a
// business rule and belongs to the validator, not the codec. Text columns
// pass the value through verbatim, including the empty string, so that an
// identity pipeline round-trips its input.
func compileDecoder(f Field) (func(Record, Column, string) *DecodeError, error) {
	switch normalizeKind(f.Type) {
	case "int":
		return func(dst Record, col Column, s string) *DecodeError {
			if s == "" {
				dst[col.Name] = nil
				return nil
			}
			v, ok := toInt(s)
			if !ok {
				return &DecodeError{Kind: TypeMismatch, Column: col, Value: s, Expected: "int"}
			}
			dst[col.Name] = v
			return nil
		}, nil

	case "float":
		return func(dst Record, col Column, s string) *DecodeError {
			if s == "" {
				dst[col.Name] = nil
				return nil
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return &DecodeError{Kind: TypeMismatch, Column: col, Value: s, Expected: "float"}
			}
			dst[col.Name] = v
			return nil
		}, nil

	case "bool":
		truthy := lowerSet(f.Truthy)
		falsy := lowerSet(f.Falsy)
		return func(dst Record, col Column, s string) *DecodeError {
			if s == "" {
				dst[col.Name] = nil
				return nil
			}
			v, ok := toBool(s, truthy, falsy)
			if !ok {
				return &DecodeError{Kind: TypeMismatch, Column: col, Value: s, Expected: "bool"}
			}
			dst[col.Name] = v
			return nil
		}, nil

	case "date":
		layout := f.Layout
		return func(dst Record, col Column, s string) *DecodeError {
			if s == "" {
				dst[col.Name] = nil
				return nil
			}
			t, err := parseDate(s, layout)
			if err != nil {
				expected := layout
				if expected == "" {
					expected = isoLayout
				}
				return &DecodeError{Kind: ParseError, Column: col, Value: s, Expected: "date " + expected, Cause: err}
			}
			dst[col.Name] = t
			return nil
		}, nil

	case "text":
		return func(dst Record, col Column, s string) *DecodeError {
			dst[col.Name] = s
			return nil
		}, nil

	default:
		return nil, fmt.Errorf("schema: field %q has unsupported type %q", f.Name, f.Type)
	}
}

// toInt parses integers, falling back to integral floats ("42.0") only when
// a dot is present.
func toInt(s string) (int64, bool) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	if strings.IndexByte(s, '.') >= 0 {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
			return int64(f), true
		}
	}
	return 0, false
}

// defaultTruthy and defaultFalsy are the vocabularies used when a field does
// not declare its own.
var (
	defaultTruthy = map[string]struct{}{"1": {}, "t": {}, "true": {}, "yes": {}, "y": {}}
	defaultFalsy  = map[string]struct{}{"0": {}, "f": {}, "false": {}, "no": {}, "n": {}}
)

func toBool(s string, truthy, falsy map[string]struct{}) (bool, bool) {
	ls := strings.ToLower(s)
	if truthy == nil && falsy == nil {
		truthy, falsy = defaultTruthy, defaultFalsy
	}
	if _, ok := truthy[ls]; ok {
		return true, true
	}
	if _, ok := falsy[ls]; ok {
		return false, true
	}
	return false, false
}

// parseDate tries the field layout first, then ISO-8601 date.
func parseDate(s, layout string) (time.Time, error) {
	if layout != "" {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Parse(isoLayout, s)
}

// lowerSet builds a lowercased membership set; empty input returns nil so
// callers can detect "use defaults" cheaply.
func lowerSet(in []string) map[string]struct{} {
	if len(in) == 0 {
		return nil
	}
	m := make(map[string]struct{}, len(in))
	for _, s := range in {
		m[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	return m
}

// normalizeKind maps declaration type strings onto the small set of codec
// kinds, accepting database-ish aliases.
func normalizeKind(t string) string {
	switch strings.ToLower(t) {
	case "bigint", "int8", "integer", "int4", "int2", "int":
		return "int"
	case "real", "double", "float", "float8", "numeric":
		return "float"
	case "boolean", "bool":
		return "bool"
	case "date", "timestamp", "timestamptz", "datetime":
		return "date"
	case "text", "string", "":
		return "text"
	default:
		return strings.ToLower(t)
	}
}
