// Package rowfilter implements the predicate/projection stage that runs on a
// field slice right after splitting. A filter that returns ok=false drops the
// record before any further processing: the record never reaches the error
// sink and is not counted as an error.
package rowfilter

import (
	"strings"

	"github.com/zeebo/xxh3"
)

// Filter inspects (and may transform) a field slice. Returning ok=false
// drops the record silently. Whatever slice a filter returns feeds arity
// checking unmodified; filters are not a projection escape hatch around the
// schema's field count.
type Filter func(fields []string) (out []string, ok bool)

// KeepAll passes every record through unchanged.
func KeepAll(fields []string) ([]string, bool) { return fields, true }

// DropBlank drops records whose fields are all empty after trimming.
func DropBlank(fields []string) ([]string, bool) {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return fields, true
		}
	}
	return nil, false
}

// Distinct drops records whose field slice has been seen before within one
// partition. Fields are fingerprinted with xxh3 over a NUL-joined rendering,
// so memory stays at 8 bytes per distinct record instead of the full row.
//
// A Distinct value is worker-local state: allocate one per partition with
// NewDistinct and never share it across concurrently running workers.
type Distinct struct {
	seen map[uint64]struct{}
	buf  []byte
}

// NewDistinct returns an empty Distinct filter.
func NewDistinct() *Distinct {
	return &Distinct{seen: make(map[uint64]struct{})}
}

// Filter implements the Filter contract for d.
func (d *Distinct) Filter(fields []string) ([]string, bool) {
	d.buf = d.buf[:0]
	for i, f := range fields {
		if i > 0 {
			d.buf = append(d.buf, 0)
		}
		d.buf = append(d.buf, f...)
	}
	h := xxh3.Hash(d.buf)
	if _, dup := d.seen[h]; dup {
		return nil, false
	}
	d.seen[h] = struct{}{}
	return fields, true
}

// Chain composes filters left to right; the first drop wins.
func Chain(fs ...Filter) Filter {
	return func(fields []string) ([]string, bool) {
		for _, f := range fs {
			var ok bool
			fields, ok = f(fields)
			if !ok {
				return nil, false
			}
		}
		return fields, true
	}
}
