// Package split turns one raw text line into an ordered sequence of field
// strings. Two strategies exist: delimiter-based and fixed column widths.
// Splitters never modify field content; cleaning is a separate stage.
package split

import "strings"

// Splitter produces the positional fields of a single line.
type Splitter interface {
	Split(line string) []string
}

// Delimited splits on every literal occurrence of Sep. An empty line yields a
// single empty field, matching strings.Split semantics.
type Delimited struct {
	Sep string
}

// Split implements Splitter.
func (d Delimited) Split(line string) []string {
	return strings.Split(line, d.Sep)
}

// FixedWidth consumes successive column widths from the start of the line.
//
// The result always has exactly len(Widths) elements: short lines yield
// empty or partial trailing fields, and characters beyond the sum of widths
// are discarded. Widths are byte counts, matching the fixed-layout exports
// this mode is meant for.
type FixedWidth struct {
	Widths []int
}

// Split implements Splitter.
func (f FixedWidth) Split(line string) []string {
	out := make([]string, len(f.Widths))
	pos := 0
	for i, w := range f.Widths {
		if w < 0 {
			w = 0
		}
		if pos >= len(line) {
			out[i] = ""
			continue
		}
		end := pos + w
		if end > len(line) {
			end = len(line)
		}
		out[i] = line[pos:end]
		pos = end
	}
	return out
}
