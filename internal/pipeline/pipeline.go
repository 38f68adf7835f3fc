// Package pipeline orchestrates the per-record transformation sequence:
// time-stamping, key generation, splitting, filtering, schema-aware field
// cleaning, decoding, and rule validation. Output is partitioned into a
// stream of accepted typed records and a side-channel of one-line rejection
// messages; a malformed record never aborts the run (failure isolation).
package pipeline

import (
	"fmt"
	"strings"
	"sync/atomic"

	"bulkingest/internal/clean"
	"bulkingest/internal/keygen"
	"bulkingest/internal/record"
	"bulkingest/internal/rowfilter"
	"bulkingest/internal/rules"
	"bulkingest/internal/schema"
	"bulkingest/internal/split"
	"bulkingest/internal/timesource"
)

// Config assembles the pluggable capabilities of a run. Split and Codec are
// required; every other capability has a neutral default.
type Config struct {
	// Split turns one line into positional fields.
	Split split.Splitter

	// NewFilter returns the row filter for one partition. It is called once
	// per partition so stateful filters (e.g. rowfilter.NewDistinct) stay
	// worker-local. nil keeps every record.
	NewFilter func() rowfilter.Filter

	// Clean normalizes each field after it has been paired with its schema
	// column and before decoding. nil is the identity.
	Clean clean.Cleaner

	// Codec decodes cleaned fields into the target typed record.
	Codec schema.Codec

	// Validate applies business rules to decoded records. nil accepts all.
	Validate rules.Validator

	// Time supplies the per-path time stamp appended as the first extra field.
	Time timesource.Source

	// Keys, when non-nil, enables key generation: the 64-hex record key is
	// appended as the second extra field, after the time value. The Generator
	// is shared read-only across all partitions of the run.
	Keys *keygen.Generator
}

// Pipeline is an immutable, validated Config. One Pipeline serves all
// partitions of a run; per-worker mutable state lives in Worker.
type Pipeline struct {
	cfg Config
}

// New validates cfg and returns a Pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Split == nil {
		return nil, fmt.Errorf("pipeline: Split is required")
	}
	if cfg.Codec == nil {
		return nil, fmt.Errorf("pipeline: Codec is required")
	}
	if cfg.Clean == nil {
		cfg.Clean = clean.Identity
	}
	if cfg.Validate == nil {
		cfg.Validate = rules.AcceptAll{}
	}
	return &Pipeline{cfg: cfg}, nil
}

// Stats aggregates record counts across all partitions of a run. All fields
// are updated atomically by concurrently running workers.
type Stats struct {
	Lines         atomic.Int64 // lines entering the pipeline
	Filtered      atomic.Int64 // silent filter drops (not errors)
	DecodeRejects atomic.Int64 // four-way taxonomy rejects
	RuleRejects   atomic.Int64 // validation-rule rejects
	Accepted      atomic.Int64 // records on the accepted stream
}

// Disposition classifies the outcome of one processed line.
type Disposition int

const (
	// Accepted: the decoded record passed validation.
	Accepted Disposition = iota
	// Dropped: the row filter removed the record; terminal and silent.
	Dropped
	// RejectedDecode: the codec reported one of the four decode reasons.
	RejectedDecode
	// RejectedRules: the record decoded but failed one or more business rules.
	RejectedRules
)

// Worker holds the mutable per-partition state: the filter instance, the key
// scratch, and the precomputed per-path values. Workers must not be shared
// between concurrently executing partitions; allocate one per partition with
// Pipeline.NewWorker and discard it at partition end.
type Worker struct {
	p         *Pipeline
	filter    rowfilter.Filter
	scratch   *keygen.Scratch
	pathFP    [8]byte
	timeValue string
	nExtra    int
}

// NewWorker prepares a Worker for one partition of path. The path
// fingerprint and time value are fixed for every line of the partition.
func (p *Pipeline) NewWorker(path string) *Worker {
	w := &Worker{p: p, timeValue: p.cfg.Time.For(path), nExtra: 1}
	if p.cfg.NewFilter != nil {
		w.filter = p.cfg.NewFilter()
	}
	if p.cfg.Keys != nil {
		w.scratch = keygen.NewScratch()
		w.pathFP = p.cfg.Keys.PathFingerprint(path)
		w.nExtra = 2
	}
	return w
}

// Process runs one line through the full stage sequence.
//
// On Accepted, rec is the decoded typed record. On Rejected, errLine is the
// formatted single-line rejection message for the error side-channel. On
// Dropped, both results are zero: filter drops are not errors and are never
// reported.
func (w *Worker) Process(pc record.PartitionContext, line string) (rec schema.Record, errLine string, d Disposition) {
	raw := record.Raw{Line: line, Extra: make([]string, 0, w.nExtra)}
	raw.Extra = append(raw.Extra, w.timeValue)
	if w.scratch != nil {
		raw.Extra = append(raw.Extra, w.scratch.Key(w.pathFP, pc.Index, pc.Offset, line))
	}

	fields := raw.Fields(w.p.cfg.Split.Split(line))

	if w.filter != nil {
		var ok bool
		fields, ok = w.filter(fields)
		if !ok {
			return nil, "", Dropped
		}
	}

	// Pair each field with its column identity and clean it. When the field
	// count disagrees with the schema arity there is no identity to pair
	// with, so cleaning is skipped and Decode reports the arity mismatch.
	codec := w.p.cfg.Codec
	if len(fields) == codec.Arity() {
		cleaned := make([]string, len(fields))
		for i, v := range fields {
			cleaned[i] = w.p.cfg.Clean(v, codec.ColumnOf(i))
		}
		fields = cleaned
	}

	decoded, derr := codec.Decode(fields)
	if derr != nil {
		return nil, rejectLine(pc, derr.Error()), RejectedDecode
	}

	if violations := w.p.cfg.Validate.Validate(decoded); len(violations) > 0 {
		return nil, rejectLine(pc, strings.Join(violations, ", ")), RejectedRules
	}

	return decoded, "", Accepted
}

// rejectLine renders one side-channel line. Path and byte offset make the
// line attributable without relying on any output ordering.
func rejectLine(pc record.PartitionContext, msg string) string {
	return fmt.Sprintf("%s: offset=%d: %s", pc.Path, pc.Offset, msg)
}
