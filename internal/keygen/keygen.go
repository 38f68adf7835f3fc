// Package keygen derives a deterministic, globally-unique 256-bit identifier
// for every ingested record without any cross-worker coordination.
//
// The layout of a key is fixed:
//
//	PathFingerprint (8B) || partitionIndex (4B BE) || byteOffset (8B BE) || LineFingerprint (12B)
//
// rendered as 64 lowercase hex characters. PathFingerprint is the tail of
// SHA1(seed || path) and LineFingerprint the tail of SHA1(line). The only
// shared input is the 4-byte run seed, drawn once per run from a
// cryptographically secure source; everything else is local to the worker
// processing the line, so re-running a partition reproduces its keys exactly.
//
// Keys are fingerprints for uniqueness and partitioning, not security tokens.
// Two runs can collide only when their seeds coincide (probability 2^-32), an
// accepted trade-off.
package keygen

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"sync"
)

const (
	// SeedSize is the run seed length in bytes.
	SeedSize = 4

	// KeySize is the raw key length in bytes; hex rendering doubles it.
	KeySize = 32

	pathFPSize = 8
	lineFPSize = 12
)

// Seed is the run-scoped random value shared read-only by all workers.
type Seed [SeedSize]byte

// NewSeed draws a seed from crypto/rand. Call it exactly once per run, on the
// coordinating goroutine, before any partition work starts.
func NewSeed() (Seed, error) {
	var s Seed
	if _, err := rand.Read(s[:]); err != nil {
		return Seed{}, fmt.Errorf("keygen: read seed: %w", err)
	}
	return s, nil
}

// Generator owns the run seed and the per-path fingerprint cache. The cache
// is written under a mutex when a path is first seen and is effectively
// read-only afterwards; a Generator may be shared by every worker of a run.
type Generator struct {
	seed Seed

	mu    sync.Mutex
	paths map[string][pathFPSize]byte
}

// New returns a Generator for the given run seed.
func New(seed Seed) *Generator {
	return &Generator{seed: seed, paths: make(map[string][pathFPSize]byte)}
}

// PathFingerprint returns the 8-byte fingerprint of path for this run: the
// last 8 bytes of SHA1(seed || path). The value is computed once per distinct
// path and cached for all lines of that path.
func (g *Generator) PathFingerprint(path string) [pathFPSize]byte {
	g.mu.Lock()
	fp, ok := g.paths[path]
	g.mu.Unlock()
	if ok {
		return fp
	}

	h := sha1.New()
	h.Write(g.seed[:])
	h.Write([]byte(path))
	sum := h.Sum(nil)
	copy(fp[:], sum[sha1.Size-pathFPSize:])

	g.mu.Lock()
	g.paths[path] = fp
	g.mu.Unlock()
	return fp
}

// Scratch holds the mutable per-worker state for key assembly: one reusable
// digest plus fixed-size buffers. Allocate one Scratch per worker at task
// start, reuse it for every line that worker processes sequentially, and
// never share it between concurrently executing workers.
type Scratch struct {
	h   hash.Hash
	sum [sha1.Size]byte
	key [KeySize]byte
	out [2 * KeySize]byte
}

// NewScratch returns a fresh worker-local Scratch.
func NewScratch() *Scratch {
	return &Scratch{h: sha1.New()}
}

// Key assembles the 64-character hex key for one line. pathFP must come from
// Generator.PathFingerprint for the line's source path.
func (s *Scratch) Key(pathFP [pathFPSize]byte, partition int32, offset int64, line string) string {
	copy(s.key[:pathFPSize], pathFP[:])
	binary.BigEndian.PutUint32(s.key[pathFPSize:], uint32(partition))
	binary.BigEndian.PutUint64(s.key[pathFPSize+4:], uint64(offset))

	s.h.Reset()
	s.h.Write([]byte(line))
	sum := s.h.Sum(s.sum[:0])
	copy(s.key[KeySize-lineFPSize:], sum[sha1.Size-lineFPSize:])

	hex.Encode(s.out[:], s.key[:])
	return string(s.out[:])
}
