// Wiring of the configured pipeline: sources, splitting, filtering, cleaning,
// decoding, validation, key generation, and batched loading into the
// configured storage backend. This file keeps the CLI layer thin: it depends
// only on storage-agnostic interfaces and never imports database drivers or
// backend-specific packages directly.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"bulkingest/internal/clean"
	"bulkingest/internal/config"
	"bulkingest/internal/datasource/file"
	"bulkingest/internal/errsink"
	"bulkingest/internal/keygen"
	"bulkingest/internal/pipeline"
	"bulkingest/internal/rowfilter"
	"bulkingest/internal/rules"
	"bulkingest/internal/schema"
	"bulkingest/internal/split"
	"bulkingest/internal/storage"
	"bulkingest/internal/timesource"
)

// runtimeConfig contains the resolved concurrency and buffering configuration
// for a run. Values are derived from the pipeline spec with optional
// environment variable overrides (12-factor style).
type runtimeConfig struct {
	partitions int
	workers    int
	batchSize  int
	bufferSize int
}

// newRuntimeConfig resolves the runtime configuration from the pipeline and
// environment-variable fallbacks.
func newRuntimeConfig(spec config.Pipeline) runtimeConfig {
	return runtimeConfig{
		partitions: pickInt(spec.Runtime.PartitionsPerSource, getenvInt("INGEST_PARTITIONS", 1)),
		workers:    pickInt(spec.Runtime.Workers, getenvInt("INGEST_WORKERS", 4)),
		batchSize:  pickInt(spec.Runtime.BatchSize, getenvInt("INGEST_BATCH_SIZE", 10000)),
		bufferSize: pickInt(spec.Runtime.ChannelBuffer, getenvInt("INGEST_CH_BUFFER", 4096)),
	}
}

// Function variables used to introduce test seams. In production these point
// to real implementations; tests can override them.
var (
	newRepositoryFn = func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return storage.New(ctx, cfg)
	}

	newSeedFn = keygen.NewSeed
)

// run executes a full split → filter → clean → decode → validate → load
// pipeline over every configured source.
//
// Malformed records are diverted to the error sink and never abort the run;
// only infrastructure errors (source, sink, storage) do. Back-pressure is
// enforced via the bounded record channel so peak memory stays around
// O(batchSize + bufferSize).
func run(ctx context.Context, spec config.Pipeline) error {
	rt := newRuntimeConfig(spec)

	log.Printf("runtime: partitions=%d workers=%d batch=%d buffer=%d",
		rt.partitions, rt.workers, rt.batchSize, rt.bufferSize)

	sources, err := resolveSources(spec.Sources)
	if err != nil {
		return err
	}

	codec, err := schema.NewCodec(spec.Contract)
	if err != nil {
		return fmt.Errorf("contract: %w", err)
	}

	cleaner, err := buildCleaner(spec.Clean)
	if err != nil {
		return err
	}
	filterFactory, err := buildFilterFactory(spec.Filter)
	if err != nil {
		return err
	}
	keys, err := buildKeys(spec.Keys)
	if err != nil {
		return err
	}

	pipe, err := pipeline.New(pipeline.Config{
		Split:     buildSplitter(spec.Split),
		NewFilter: filterFactory,
		Clean:     cleaner,
		Codec:     codec,
		Validate:  rules.NewContractValidator(spec.Contract),
		Time:      buildTimeSource(spec.Time),
		Keys:      keys,
	})
	if err != nil {
		return err
	}

	sink, err := buildSink(spec.Errors)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			log.Printf("error sink close: %v", err)
		}
	}()

	columns := columnNames(codec)
	out := make(chan schema.Record, rt.bufferSize)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	// Loader: drains accepted records into storage, or counts and discards
	// them when no storage backend is configured (dry run).
	g.Go(func() error {
		if spec.Storage.Kind == "" {
			var n int64
			for range out {
				n++
			}
			log.Printf("dry run: storage disabled, %d accepted records discarded", n)
			return nil
		}

		repo, err := newRepositoryFn(ctx, storage.Config{
			Kind:    spec.Storage.Kind,
			DSN:     spec.Storage.DB.DSN,
			Table:   spec.Storage.DB.Table,
			Columns: columns,
		})
		if err != nil {
			return fmt.Errorf("init repo: %w", err)
		}
		defer repo.Close()

		if spec.Storage.DB.AutoCreateTable {
			if err := storage.EnsureTable(ctx, spec.Storage.Kind, repo, spec.Contract, spec.Storage.DB.Table); err != nil {
				return fmt.Errorf("apply DDL: %w", err)
			}
		}

		_, err = storage.LoadRecords(ctx, spec.Job, columns, out, rt.batchSize, repo.CopyFrom)
		return err
	})

	// Producer: processes every partition of every source, closing out when
	// all partitions are done.
	g.Go(func() error {
		_, err := pipe.Run(ctx, pipeline.RunOptions{
			Sources:             sources,
			PartitionsPerSource: rt.partitions,
			Workers:             rt.workers,
			Job:                 spec.Job,
		}, out, sink)
		return err
	})

	return g.Wait()
}

// resolveSources combines the inline path list with the optional list file.
func resolveSources(s config.Sources) ([]string, error) {
	sources := append([]string(nil), s.Paths...)
	if s.ListFile != "" {
		listed, err := file.ReadList(s.ListFile)
		if err != nil {
			return nil, fmt.Errorf("source list: %w", err)
		}
		sources = append(sources, listed...)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no sources configured")
	}
	return sources, nil
}

func buildSplitter(s config.Split) split.Splitter {
	if s.Mode == "fixed_width" {
		return split.FixedWidth{Widths: s.Widths}
	}
	return split.Delimited{Sep: s.Delimiter}
}

// buildFilterFactory compiles the filter chain into a per-partition factory.
// Stateful filters (distinct) get a fresh instance per partition so workers
// never share mutable state.
func buildFilterFactory(steps []config.Step) (func() rowfilter.Filter, error) {
	if len(steps) == 0 {
		return nil, nil
	}
	makers := make([]func() rowfilter.Filter, 0, len(steps))
	for _, s := range steps {
		switch s.Kind {
		case "drop_blank":
			makers = append(makers, func() rowfilter.Filter { return rowfilter.DropBlank })
		case "distinct":
			makers = append(makers, func() rowfilter.Filter { return rowfilter.NewDistinct().Filter })
		default:
			return nil, fmt.Errorf("unsupported filter.kind=%s", s.Kind)
		}
	}
	return func() rowfilter.Filter {
		fs := make([]rowfilter.Filter, len(makers))
		for i, mk := range makers {
			fs[i] = mk()
		}
		return rowfilter.Chain(fs...)
	}, nil
}

// buildCleaner compiles the cleaner chain. A step with a "columns" option
// applies only to the named columns.
func buildCleaner(steps []config.Step) (clean.Cleaner, error) {
	if len(steps) == 0 {
		return nil, nil
	}
	cs := make([]clean.Cleaner, 0, len(steps))
	for _, s := range steps {
		var c clean.Cleaner
		switch s.Kind {
		case "trim":
			c = clean.Trim
		case "deaccent":
			c = clean.Deaccent
		default:
			return nil, fmt.Errorf("unsupported clean.kind=%s", s.Kind)
		}
		if cols := s.Options.StringSlice("columns"); len(cols) > 0 {
			c = clean.ForColumns(c, cols...)
		}
		cs = append(cs, c)
	}
	return clean.Chain(cs...), nil
}

func buildTimeSource(t config.Time) timesource.Source {
	if t.Mode == "mtime" {
		return timesource.FromPath(func(path string) string {
			fi, err := os.Stat(path)
			if err != nil {
				log.Printf("time source: stat %s: %v", path, err)
				return ""
			}
			return fi.ModTime().UTC().Format(time.RFC3339)
		})
	}
	return timesource.Predetermined(t.Value)
}

// buildKeys returns a key generator when key generation is enabled, seeded
// from the config or drawn at random. The effective seed is logged so a run's
// keys can be reproduced later.
func buildKeys(k config.Keys) (*keygen.Generator, error) {
	if !k.Enabled {
		return nil, nil
	}
	var seed keygen.Seed
	if k.Seed != "" {
		b, err := hex.DecodeString(k.Seed)
		if err != nil || len(b) != keygen.SeedSize {
			return nil, fmt.Errorf("keys.seed: expected %d hex bytes", keygen.SeedSize)
		}
		copy(seed[:], b)
	} else {
		var err error
		seed, err = newSeedFn()
		if err != nil {
			return nil, fmt.Errorf("keys: draw seed: %w", err)
		}
	}
	log.Printf("keys: seed=%s", hex.EncodeToString(seed[:]))
	return keygen.New(seed), nil
}

func buildSink(e config.Errors) (errsink.Sink, error) {
	switch e.Sink {
	case "", "discard":
		return errsink.Discard{}, nil
	case "log":
		return errsink.Logger{}, nil
	case "file":
		return errsink.NewFile(e.Path)
	default:
		return nil, fmt.Errorf("unsupported errors.sink=%s", e.Sink)
	}
}

// columnNames lists the destination columns in contract order.
func columnNames(codec *schema.ContractCodec) []string {
	cols := codec.Columns()
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

// getenvInt reads an int from environment, returning def when unset/invalid.
func getenvInt(k string, def int) int {
	if s := os.Getenv(k); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

// pickInt chooses the first positive value 'a', otherwise returns 'b'.
func pickInt(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}
