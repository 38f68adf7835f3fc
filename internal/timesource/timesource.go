// Package timesource supplies the per-path time stamp appended to every raw
// record before splitting.
package timesource

// Source yields a time-stamp string for a source path. It is a closed
// variant type with exactly two cases (constant, or a function of the path);
// construct values with Predetermined or FromPath.
type Source struct {
	value string
	fn    func(path string) string
}

// Predetermined returns a Source that yields value for every path.
func Predetermined(value string) Source {
	return Source{value: value}
}

// FromPath returns a Source that applies fn to the path string. Paths fn
// does not handle are the caller's responsibility; fn must not be nil.
func FromPath(fn func(path string) string) Source {
	return Source{fn: fn}
}

// For returns the time stamp for path. Pure, no failure mode.
func (s Source) For(path string) string {
	if s.fn != nil {
		return s.fn(path)
	}
	return s.value
}
