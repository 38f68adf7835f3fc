// Partition scheduling for a run.
//
// Scheduling model: data-parallel, partition-per-worker, no inter-worker
// communication in steady state. Each partition is a contiguous byte range of
// one source file; within a partition lines are processed strictly
// sequentially, and no ordering holds across partitions or sources. Because
// every stage is a pure function of its inputs plus the run-scoped seed,
// re-running a partition is idempotent: identical keys, identical outcomes.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"bulkingest/internal/datasource/file"
	"bulkingest/internal/errsink"
	"bulkingest/internal/metrics"
	"bulkingest/internal/record"
	"bulkingest/internal/schema"
)

// RunOptions configures one end-to-end execution over a set of sources.
type RunOptions struct {
	// Sources lists the input paths. Their line streams form an unordered
	// union; nothing is merged or interleaved deterministically.
	Sources []string

	// PartitionsPerSource is the number of byte-range partitions per file.
	// Values < 1 mean one partition per file.
	PartitionsPerSource int

	// Workers bounds how many partitions run concurrently. Values < 1 mean
	// one worker per partition.
	Workers int

	// Job labels metrics and log lines. Empty defaults to a run-scoped ID.
	Job string
}

// Run processes every partition of every source, sending accepted records to
// out and one formatted line per rejected record to sink. It closes out when
// all partitions are done.
//
// A malformed record never fails the run; only infrastructure errors (source
// open/read failures, sink write failures, cancellation) do. The returned
// Stats are valid even when Run returns an error.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions, out chan<- schema.Record, sink errsink.Sink) (*Stats, error) {
	job := opts.Job
	if job == "" {
		job = "ingest-" + uuid.NewString()[:8]
	}

	var parts []file.Partition
	for _, src := range opts.Sources {
		pp, err := file.PlanPartitions(src, opts.PartitionsPerSource)
		if err != nil {
			close(out)
			return &Stats{}, fmt.Errorf("plan %s: %w", src, err)
		}
		parts = append(parts, pp...)
	}

	workers := opts.Workers
	if workers < 1 {
		workers = len(parts)
	}
	log.Printf("run %s: sources=%d partitions=%d workers=%d keys=%v",
		job, len(opts.Sources), len(parts), workers, p.cfg.Keys != nil)

	stats := &Stats{}
	agg := newRejectAgg(summaryRejects)
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, part := range parts {
		part := part
		g.Go(func() error {
			w := p.NewWorker(part.Path)
			return file.ReadLines(ctx, part, func(line string, offset int64) error {
				stats.Lines.Add(1)
				pc := record.PartitionContext{Path: part.Path, Index: part.Index, Offset: offset}

				rec, errLine, disp := w.Process(pc, line)
				switch disp {
				case Dropped:
					stats.Filtered.Add(1)
					return nil

				case RejectedDecode:
					stats.DecodeRejects.Add(1)
				case RejectedRules:
					stats.RuleRejects.Add(1)

				case Accepted:
					select {
					case out <- rec:
						stats.Accepted.Add(1)
						return nil
					case <-ctx.Done():
						return ctx.Err()
					}
				}

				agg.add(errLine)
				if err := sink.Write(ctx, errLine); err != nil {
					return fmt.Errorf("error sink: %w", err)
				}
				return nil
			})
		})
	}

	err := g.Wait()
	close(out)

	agg.logSummary()
	logRunSummary(job, stats, time.Since(start))

	metrics.RecordRow(job, "lines", stats.Lines.Load())
	metrics.RecordRow(job, "filtered", stats.Filtered.Load())
	metrics.RecordRow(job, "decode_rejects", stats.DecodeRejects.Load())
	metrics.RecordRow(job, "rule_rejects", stats.RuleRejects.Load())
	metrics.RecordRow(job, "accepted", stats.Accepted.Load())
	metrics.RecordStep(job, "run", err, time.Since(start))

	return stats, err
}

// logRunSummary prints the final aggregated statistics for the run.
//
// For every run: lines == accepted + filtered + decode_rejects + rule_rejects.
func logRunSummary(job string, s *Stats, elapsed time.Duration) {
	log.Printf(
		"run %s summary: lines=%d accepted=%d filtered=%d decode_rejects=%d rule_rejects=%d elapsed=%s",
		job,
		s.Lines.Load(),
		s.Accepted.Load(),
		s.Filtered.Load(),
		s.DecodeRejects.Load(),
		s.RuleRejects.Load(),
		elapsed.Truncate(time.Millisecond),
	)
}

// summaryRejects caps how many reject lines the end-of-run summary repeats.
const summaryRejects = 3

// rejectAgg keeps the first few reject lines for the summary log. The sink
// still receives every line; this is purely operator convenience.
type rejectAgg struct {
	mu    sync.Mutex
	limit int
	count int
	first []string
}

func newRejectAgg(limit int) *rejectAgg {
	return &rejectAgg{limit: limit}
}

func (a *rejectAgg) add(line string) {
	a.mu.Lock()
	if a.count < a.limit {
		a.first = append(a.first, line)
	}
	a.count++
	a.mu.Unlock()
}

func (a *rejectAgg) logSummary() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.count == 0 {
		return
	}
	log.Printf("rejects: %d (showing first %d)", a.count, len(a.first))
	for i, s := range a.first {
		log.Printf("  #%03d: %s", i+1, s)
	}
}
