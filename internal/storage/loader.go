// Batched loading of accepted records.
//
// The loader drains typed records from a channel, projects each onto the
// ordered destination columns, and invokes the backend's bulk insert per
// batch. On every successful flush a progress line is logged with running
// totals and instantaneous rows/sec since the previous flush.
package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"bulkingest/internal/metrics"
	"bulkingest/internal/schema"
)

// CopyFn abstracts a backend's bulk insert capability. Implementations insert
// the provided rows (aligned to the columns order), return the number of rows
// inserted, and cancel promptly when ctx is done.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadRecords drains records from in, projects each onto columns, groups them
// into batches of batchSize, and calls copyFn per non-empty batch. A record
// field absent from the map loads as NULL. It returns the total number of
// rows reported by copyFn and the first error encountered.
//
// Cancellation returns (total, ctx.Err()). The job label tags metrics only.
func LoadRecords(
	ctx context.Context,
	job string,
	columns []string,
	in <-chan schema.Record,
	batchSize int,
	copyFn CopyFn,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("copyFn must not be nil")
	}

	var (
		total       int64
		batches     int64
		batch       = make([][]any, 0, batchSize)
		start       = time.Now()
		lastFlushTS = start
		lastTotal   int64
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		total += n

		// Reuse allocated slice; keep capacity to avoid churn.
		batch = batch[:0]

		if err != nil {
			log.Printf("loader: copy failed after=%d total=%d err=%v", n, total, err)
			return err
		}

		batches++
		now := time.Now()
		sinceLast := now.Sub(lastFlushTS)
		loadedSinceLast := total - lastTotal
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(loadedSinceLast) / sinceLast.Seconds()
		}
		log.Printf(
			"batch #%d: rps=%.0f loaded=%d total_loaded=%d elapsed=%s since_last=%s",
			batches,
			rps,
			n,
			total,
			now.Sub(start).Truncate(time.Millisecond),
			sinceLast.Truncate(time.Millisecond),
		)
		lastFlushTS = now
		lastTotal = total

		metrics.RecordBatches(job, 1)
		metrics.RecordRow(job, "loaded", n)
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()

		case rec, ok := <-in:
			if !ok {
				// Channel closed: flush remaining rows.
				if err := flush(); err != nil {
					return total, err
				}
				log.Printf("loader: input closed, total_loaded=%d", total)
				return total, nil
			}
			row := make([]any, len(columns))
			for i, c := range columns {
				row[i] = rec[c]
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}
}
