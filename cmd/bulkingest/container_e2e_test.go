package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"bulkingest/internal/config"
	"bulkingest/internal/schema"
	"bulkingest/internal/storage"
)

// captureRepo records every row handed to CopyFrom so end-to-end tests can
// assert on the loaded data without a real database.
type captureRepo struct {
	mu      sync.Mutex
	columns []string
	rows    [][]any
	ddl     []string
}

func (r *captureRepo) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.columns = columns
	r.rows = append(r.rows, rows...)
	return int64(len(rows)), nil
}

func (r *captureRepo) Exec(ctx context.Context, sql string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ddl = append(r.ddl, sql)
	return nil
}

func (r *captureRepo) Close() {}

// installCaptureRepo swaps the repository seam for the test's lifetime.
func installCaptureRepo(t *testing.T) *captureRepo {
	t.Helper()
	repo := &captureRepo{}
	orig := newRepositoryFn
	newRepositoryFn = func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return repo, nil
	}
	t.Cleanup(func() { newRepositoryFn = orig })
	return repo
}

func e2ePipeline(sourcePath, rejectPath string) config.Pipeline {
	return config.Pipeline{
		Job:     "e2e",
		Sources: config.Sources{Paths: []string{sourcePath}},
		Split:   config.Split{Mode: "delimited", Delimiter: ","},
		Filter:  []config.Step{{Kind: "drop_blank"}},
		Clean:   []config.Step{{Kind: "trim"}},
		Time:    config.Time{Mode: "fixed", Value: "2026-02-03"},
		Keys:    config.Keys{Enabled: true, Seed: "deadbeef"},
		Contract: schema.Contract{
			Name: "events",
			Fields: []schema.Field{
				{Name: "id", Type: "int", Required: true},
				{Name: "name", Type: "text"},
				{Name: "ingested_at", Type: "text"},
				{Name: "record_key", Type: "text"},
			},
		},
		Errors: config.Errors{Sink: "file", Path: rejectPath},
		Storage: config.Storage{
			Kind: "postgres",
			DB:   config.DBConfig{DSN: "stub", Table: "events", AutoCreateTable: true},
		},
		Runtime: config.RuntimeConfig{PartitionsPerSource: 1, Workers: 2, BatchSize: 2, ChannelBuffer: 8},
	}
}

// TestRun_EndToEnd drives a full run against a real source file with a fake
// repository: accepted rows reach storage with time and key appended, and
// rejects land in the error sink file.
func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "events.csv")
	rejects := filepath.Join(dir, "rejects.log")

	lines := []string{
		"1, alpha",
		",",           // id empty after split: required-field reject
		"2,beta",
		"x,gamma",     // id not an int: decode reject
		"3,delta,huh", // too many fields: decode reject
	}
	if err := os.WriteFile(src, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	repo := installCaptureRepo(t)
	spec := e2ePipeline(src, rejects)

	if err := run(context.Background(), spec); err != nil {
		t.Fatalf("run error: %v", err)
	}

	if len(repo.ddl) != 1 || !strings.Contains(repo.ddl[0], "CREATE TABLE IF NOT EXISTS") {
		t.Fatalf("DDL = %v, want one CREATE TABLE IF NOT EXISTS", repo.ddl)
	}
	wantCols := []string{"id", "name", "ingested_at", "record_key"}
	if len(repo.columns) != len(wantCols) {
		t.Fatalf("columns = %v, want %v", repo.columns, wantCols)
	}
	for i, c := range wantCols {
		if repo.columns[i] != c {
			t.Fatalf("columns = %v, want %v", repo.columns, wantCols)
		}
	}

	if len(repo.rows) != 2 {
		t.Fatalf("loaded %d rows, want 2: %v", len(repo.rows), repo.rows)
	}
	for _, row := range repo.rows {
		if row[2] != "2026-02-03" {
			t.Fatalf("ingested_at = %v, want 2026-02-03", row[2])
		}
		key, ok := row[3].(string)
		if !ok || len(key) != 64 {
			t.Fatalf("record_key = %v, want 64-char hex string", row[3])
		}
	}
	// Cleaning trimmed " alpha" before decoding.
	if repo.rows[0][0] != int64(1) || repo.rows[0][1] != "alpha" {
		t.Fatalf("first row = %v, want [1 alpha ...]", repo.rows[0])
	}

	b, err := os.ReadFile(rejects)
	if err != nil {
		t.Fatalf("read rejects: %v", err)
	}
	got := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(got) != 3 {
		t.Fatalf("reject lines = %d, want 3:\n%s", len(got), b)
	}
	for _, line := range got {
		if !strings.HasPrefix(line, src+": offset=") {
			t.Fatalf("reject line %q missing path/offset prefix", line)
		}
	}
}

// TestRun_DeterministicKeys runs the same source twice with the same seed and
// expects identical record keys.
func TestRun_DeterministicKeys(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "events.csv")
	if err := os.WriteFile(src, []byte("1,alpha\n2,beta\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	keysOf := func() []string {
		repo := installCaptureRepo(t)
		spec := e2ePipeline(src, filepath.Join(t.TempDir(), "rejects.log"))
		if err := run(context.Background(), spec); err != nil {
			t.Fatalf("run error: %v", err)
		}
		keys := make([]string, 0, len(repo.rows))
		for _, row := range repo.rows {
			keys = append(keys, row[3].(string))
		}
		return keys
	}

	first := keysOf()
	second := keysOf()
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("key counts = %d/%d, want 2/2", len(first), len(second))
	}

	seen := map[string]bool{}
	for _, k := range first {
		if seen[k] {
			t.Fatalf("duplicate key within run: %s", k)
		}
		seen[k] = true
	}
	for _, k := range second {
		if !seen[k] {
			t.Fatalf("key %s not reproduced across runs", k)
		}
	}
}

// TestRun_DryRun verifies that an empty storage kind discards accepted
// records without touching the repository seam.
func TestRun_DryRun(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "events.csv")
	if err := os.WriteFile(src, []byte("1,alpha\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	orig := newRepositoryFn
	newRepositoryFn = func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		t.Fatal("repository must not be opened in dry run")
		return nil, nil
	}
	t.Cleanup(func() { newRepositoryFn = orig })

	spec := e2ePipeline(src, filepath.Join(dir, "rejects.log"))
	spec.Storage = config.Storage{}

	if err := run(context.Background(), spec); err != nil {
		t.Fatalf("run error: %v", err)
	}
}
