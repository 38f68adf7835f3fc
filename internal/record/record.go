// Package record defines the small data model shared by the ingestion
// pipeline stages: the raw line plus its appended derived fields, and the
// per-line position context supplied by the partitioned reader.
package record

// Raw is one input line together with its appended derived values.
//
// Extra holds values the pipeline derives before splitting: the time stamp
// first, and the record key second when key generation is enabled. The order
// is fixed and never reordered; downstream arity checks count on it.
type Raw struct {
	Line  string
	Extra []string
}

// Fields returns the full positional field slice for r: the split fields
// followed by the extra fields, in order.
func (r Raw) Fields(split []string) []string {
	if len(r.Extra) == 0 {
		return split
	}
	out := make([]string, 0, len(split)+len(r.Extra))
	out = append(out, split...)
	out = append(out, r.Extra...)
	return out
}

// PartitionContext identifies where a line came from. It is valid only while
// that one line is being processed.
type PartitionContext struct {
	// Path is the source path identifier the partition belongs to.
	Path string

	// Index is the partition index assigned by the partitioned reader.
	Index int32

	// Offset is the byte offset of the line within the source file.
	Offset int64
}
