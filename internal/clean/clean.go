// Package clean normalizes individual field values after each field has been
// paired with its schema column and before decoding. Cleaners are pure
// value-to-value functions; they never drop records.
package clean

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"bulkingest/internal/schema"
)

// Cleaner normalizes one field value given its column identity. Cleaning is
// schema-aware: implementations may special-case a column by name or type.
type Cleaner func(value string, col schema.Column) string

// Identity returns the value unchanged.
func Identity(value string, _ schema.Column) string { return value }

// Trim strips leading and trailing whitespace.
func Trim(value string, _ schema.Column) string { return strings.TrimSpace(value) }

// deaccent decomposes to NFD, drops combining marks, and recomposes to NFC.
var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Deaccent folds accented characters to their base form ("Škoda" -> "Skoda").
// Transform errors leave the value unchanged; a cleaner has no failure mode.
func Deaccent(value string, _ schema.Column) string {
	out, _, err := transform.String(deaccent, value)
	if err != nil {
		return value
	}
	return out
}

// Chain composes cleaners left to right.
func Chain(cs ...Cleaner) Cleaner {
	return func(value string, col schema.Column) string {
		for _, c := range cs {
			value = c(value, col)
		}
		return value
	}
}

// ForColumns restricts c to the named columns; other columns pass through.
func ForColumns(c Cleaner, names ...string) Cleaner {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return func(value string, col schema.Column) string {
		if _, ok := set[col.Name]; ok {
			return c(value, col)
		}
		return value
	}
}
