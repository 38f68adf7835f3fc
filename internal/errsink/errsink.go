// Package errsink routes formatted rejection messages to a destination
// separate from the accepted-record stream. One line per rejected record.
package errsink

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"sync"
)

// Sink receives rejection lines. Implementations must be safe for concurrent
// Write calls from multiple partition workers.
type Sink interface {
	Write(ctx context.Context, line string) error
	Close() error
}

// Discard drops every line. Useful in tests and dry runs.
type Discard struct{}

// Write implements Sink.
func (Discard) Write(context.Context, string) error { return nil }

// Close implements Sink.
func (Discard) Close() error { return nil }

// Logger writes each line through the standard logger.
type Logger struct{}

// Write implements Sink.
func (Logger) Write(_ context.Context, line string) error {
	log.Printf("reject: %s", line)
	return nil
}

// Close implements Sink.
func (Logger) Close() error { return nil }

// File appends lines to a local file through a buffered writer. Writes are
// serialized with a mutex so partition workers can share one sink.
type File struct {
	mu sync.Mutex
	f  *os.File
	w  *bufio.Writer
}

// NewFile creates (or truncates) path and returns a File sink.
func NewFile(path string) (*File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("errsink: create %s: %w", path, err)
	}
	return &File{f: f, w: bufio.NewWriterSize(f, 64*1024)}, nil
}

// Write implements Sink.
func (s *File) Write(ctx context.Context, line string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.WriteString(line); err != nil {
		return err
	}
	return s.w.WriteByte('\n')
}

// Close flushes and closes the underlying file.
func (s *File) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Flush(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}
