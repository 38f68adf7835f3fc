// Partitioned line reading for local files.
//
// A partition is a contiguous byte range of one source file, processed
// independently by one worker. Ranges are planned up front from the file
// size; line boundaries are resolved at read time with the usual convention
// that a line belongs to the partition its first byte falls in. A worker
// whose range starts mid-line skips forward to the next line start, and a
// line that begins inside the range is consumed fully even when it crosses
// the range end, so every line is read exactly once across all partitions.
package file

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Partition identifies a byte range of one source file.
type Partition struct {
	Path  string
	Index int32
	Start int64 // inclusive
	End   int64 // exclusive; lines starting in [Start, End) belong here
}

// PlanPartitions slices the file at path into up to n byte ranges of roughly
// equal size. Fewer ranges are returned for small files (at least one byte
// per range); an empty file yields a single empty partition so the path still
// appears in the run.
func PlanPartitions(path string, n int) ([]Partition, error) {
	if n <= 0 {
		n = 1
	}
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	size := fi.Size()
	if size == 0 {
		return []Partition{{Path: path, Index: 0}}, nil
	}
	if int64(n) > size {
		n = int(size)
	}

	parts := make([]Partition, 0, n)
	chunk := size / int64(n)
	var start int64
	for i := 0; i < n; i++ {
		end := start + chunk
		if i == n-1 {
			end = size
		}
		parts = append(parts, Partition{Path: path, Index: int32(i), Start: start, End: end})
		start = end
	}
	return parts, nil
}

// LineFunc receives one line (without its trailing newline) and the byte
// offset of the line's first byte within the file.
type LineFunc func(line string, offset int64) error

// ReadLines streams the lines of partition p to fn, strictly in file order.
// It returns fn's first error, a read error, or ctx.Err() on cancellation.
//
// Offsets always refer to the raw byte position of the line start, so key
// generation downstream is independent of partition planning.
func ReadLines(ctx context.Context, p Partition, fn LineFunc) error {
	f, err := os.Open(p.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", p.Path, err)
	}
	defer f.Close()

	offset := p.Start
	if offset > 0 {
		if _, err := f.Seek(offset-1, io.SeekStart); err != nil {
			return fmt.Errorf("seek %s: %w", p.Path, err)
		}
	}

	r := bufio.NewReaderSize(f, 256*1024)

	// A range starting past byte 0 may begin mid-line; that partial line
	// belongs to the previous partition. Backing up one byte tells us whether
	// we landed exactly on a line start.
	if offset > 0 {
		skipped, err := r.ReadString('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", p.Path, err)
		}
		offset += int64(len(skipped)) - 1
	}

	for offset < p.End {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		raw, err := r.ReadString('\n')
		if raw != "" {
			line := strings.TrimSuffix(raw, "\n")
			line = strings.TrimSuffix(line, "\r")
			if ferr := fn(line, offset); ferr != nil {
				return ferr
			}
			offset += int64(len(raw))
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", p.Path, err)
		}
	}
	return nil
}
