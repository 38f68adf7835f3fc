// Package rules applies business rules to decoded records. Validation runs
// after schema decoding; a record either passes unchanged or is rejected with
// a non-empty list of violation messages which the pipeline joins into one
// error line.
package rules

import (
	"fmt"
	"strconv"
	"time"

	"bulkingest/internal/schema"
)

// Validator checks one decoded record. An empty result means the record is
// valid; otherwise every returned string describes one rule violation.
type Validator interface {
	Validate(rec schema.Record) []string
}

// AcceptAll passes every record.
type AcceptAll struct{}

// Validate implements Validator.
func (AcceptAll) Validate(schema.Record) []string { return nil }

// Func adapts a plain function to the Validator interface.
type Func func(rec schema.Record) []string

// Validate implements Validator.
func (f Func) Validate(rec schema.Record) []string { return f(rec) }

// ContractValidator enforces the declarative rules carried on a Contract:
// required fields must be present and non-nil, and enum fields must hold one
// of the allowed values. It is immutable after construction and safe for
// concurrent use.
type ContractValidator struct {
	checks []fieldCheck
}

type fieldCheck struct {
	name     string
	required bool
	enumSet  map[string]struct{}
	enumList []string
}

// NewContractValidator precomputes per-field metadata so the per-record path
// does no contract walking.
func NewContractValidator(c schema.Contract) *ContractValidator {
	v := &ContractValidator{}
	for _, f := range c.Fields {
		if !f.Required && len(f.Enum) == 0 {
			continue
		}
		fc := fieldCheck{name: f.Name, required: f.Required}
		if len(f.Enum) > 0 {
			fc.enumSet = make(map[string]struct{}, len(f.Enum))
			for _, e := range f.Enum {
				fc.enumSet[e] = struct{}{}
			}
			fc.enumList = append(fc.enumList, f.Enum...)
		}
		v.checks = append(v.checks, fc)
	}
	return v
}

// Validate implements Validator.
func (v *ContractValidator) Validate(rec schema.Record) []string {
	var violations []string
	for i := range v.checks {
		fc := &v.checks[i]
		val, exists := rec[fc.name]
		empty := !exists || val == nil || val == ""

		if fc.required && empty {
			violations = append(violations, fmt.Sprintf("required field %q missing", fc.name))
			continue
		}
		if empty {
			continue
		}
		if fc.enumSet != nil {
			s := asString(val)
			if _, ok := fc.enumSet[s]; !ok {
				violations = append(violations, fmt.Sprintf("field %q: %q not in enum %v", fc.name, s, fc.enumList))
			}
		}
	}
	return violations
}

// asString renders common decoded value types without fmt.Sprint overhead.
func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}
