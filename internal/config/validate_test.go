package config

import (
	"strings"
	"testing"

	"bulkingest/internal/schema"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

// validPipeline returns a pipeline that lints clean; tests mutate one aspect
// at a time.
func validPipeline() Pipeline {
	return Pipeline{
		Job:     "hr-events",
		Sources: Sources{Paths: []string{"data/part-00.txt"}},
		Split:   Split{Mode: "delimited", Delimiter: ","},
		Filter:  []Step{{Kind: "drop_blank"}},
		Clean:   []Step{{Kind: "trim"}},
		Time:    Time{Mode: "fixed", Value: "2026-01-02"},
		Keys:    Keys{Enabled: true, Seed: "deadbeef"},
		Contract: schema.Contract{
			Name: "hr_events",
			Fields: []schema.Field{
				{Name: "id", Type: "int", Required: true},
				{Name: "name", Type: "text"},
				{Name: "ingested_at", Type: "text"},
				{Name: "record_key", Type: "text"},
			},
		},
		Errors: Errors{Sink: "file", Path: "rejects.log"},
		Storage: Storage{
			Kind: "sqlite",
			DB:   DBConfig{DSN: ":memory:", Table: "hr_events"},
		},
		Runtime: RuntimeConfig{PartitionsPerSource: 2, Workers: 4, BatchSize: 100, ChannelBuffer: 64},
	}
}

func TestValidatePipeline_ValidMinimal(t *testing.T) {
	t.Parallel()

	issues := ValidatePipeline(validPipeline())
	if len(issues) != 0 {
		t.Fatalf("expected no issues, got: %+v", issues)
	}
	if HasErrors(issues) {
		t.Fatalf("HasErrors = true for clean pipeline")
	}
}

func TestValidatePipeline_EmptyJobWarns(t *testing.T) {
	t.Parallel()

	p := validPipeline()
	p.Job = ""
	issues := ValidatePipeline(p)
	if !hasIssue(t, issues, SeverityWarning, "job", "run-scoped ID") {
		t.Fatalf("expected warning for empty job; got: %+v", issues)
	}
	if HasErrors(issues) {
		t.Fatalf("empty job must not be an error; got: %+v", issues)
	}
}

func TestValidatePipeline_Sources(t *testing.T) {
	t.Parallel()

	p := validPipeline()
	p.Sources = Sources{}
	issues := ValidatePipeline(p)
	if !hasIssue(t, issues, SeverityError, "sources", "at least one") {
		t.Fatalf("expected error for no sources; got: %+v", issues)
	}

	p = validPipeline()
	p.Sources.Paths = []string{""}
	issues = ValidatePipeline(p)
	if !hasIssue(t, issues, SeverityError, "sources.paths[0]", "must not be empty") {
		t.Fatalf("expected error for empty path; got: %+v", issues)
	}
}

func TestValidatePipeline_Split(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		split    Split
		wantSev  IssueSeverity
		wantPath string
	}{
		{"empty mode", Split{}, SeverityError, "split.mode"},
		{"unknown mode", Split{Mode: "regex"}, SeverityError, "split.mode"},
		{"delimited without delimiter", Split{Mode: "delimited"}, SeverityError, "split.delimiter"},
		{"delimited with widths", Split{Mode: "delimited", Delimiter: ",", Widths: []int{3}}, SeverityWarning, "split.widths"},
		{"fixed_width without widths", Split{Mode: "fixed_width"}, SeverityError, "split.widths"},
		{"fixed_width non-positive width", Split{Mode: "fixed_width", Widths: []int{3, 0}}, SeverityError, "split.widths[1]"},
		{"fixed_width with delimiter", Split{Mode: "fixed_width", Widths: []int{3}, Delimiter: ","}, SeverityWarning, "split.delimiter"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			issues := validateSplit(tt.split)
			if !hasIssue(t, issues, tt.wantSev, tt.wantPath, "") {
				t.Fatalf("expected %s at %s; got: %+v", tt.wantSev, tt.wantPath, issues)
			}
		})
	}
}

func TestValidatePipeline_StepKinds(t *testing.T) {
	t.Parallel()

	p := validPipeline()
	p.Filter = []Step{{Kind: "unknown_filter"}}
	issues := ValidatePipeline(p)
	if !hasIssue(t, issues, SeverityError, "filter[0].kind", "unknown filter kind") {
		t.Fatalf("expected error for unknown filter; got: %+v", issues)
	}

	p = validPipeline()
	p.Clean = []Step{{Kind: ""}}
	issues = ValidatePipeline(p)
	if !hasIssue(t, issues, SeverityError, "clean[0].kind", "must not be empty") {
		t.Fatalf("expected error for empty cleaner kind; got: %+v", issues)
	}
}

func TestValidatePipeline_Keys(t *testing.T) {
	t.Parallel()

	p := validPipeline()
	p.Keys.Seed = "zz"
	issues := ValidatePipeline(p)
	if !hasIssue(t, issues, SeverityError, "keys.seed", "8 hex characters") {
		t.Fatalf("expected error for bad seed; got: %+v", issues)
	}

	p = validPipeline()
	p.Keys = Keys{Enabled: false, Seed: "deadbeef"}
	issues = ValidatePipeline(p)
	if !hasIssue(t, issues, SeverityWarning, "keys.seed", "disabled") {
		t.Fatalf("expected warning for seed without enabled; got: %+v", issues)
	}
}

func TestValidatePipeline_Contract(t *testing.T) {
	t.Parallel()

	p := validPipeline()
	p.Contract.Fields = nil
	issues := ValidatePipeline(p)
	if !hasIssue(t, issues, SeverityError, "contract.fields", "at least one field") {
		t.Fatalf("expected error for empty contract; got: %+v", issues)
	}

	p = validPipeline()
	p.Contract.Fields = append(p.Contract.Fields, schema.Field{Name: "id", Type: "text"})
	issues = ValidatePipeline(p)
	if !hasIssue(t, issues, SeverityError, "contract.fields[4].name", "duplicate field name") {
		t.Fatalf("expected error for duplicate field; got: %+v", issues)
	}
}

// TestValidatePipeline_FixedWidthArity checks the cross-section arity rule:
// widths plus extras must equal the number of contract fields.
func TestValidatePipeline_FixedWidthArity(t *testing.T) {
	t.Parallel()

	p := validPipeline()
	p.Split = Split{Mode: "fixed_width", Widths: []int{3, 5}} // 2 + 2 extras = 4 fields, matches
	issues := ValidatePipeline(p)
	if HasErrors(issues) {
		t.Fatalf("expected clean lint for matching arity; got: %+v", issues)
	}

	p.Split.Widths = []int{3, 5, 7} // 3 + 2 extras = 5 != 4
	issues = ValidatePipeline(p)
	if !hasIssue(t, issues, SeverityError, "contract.fields", "fixed_width split plus extras") {
		t.Fatalf("expected arity error; got: %+v", issues)
	}
}

func TestValidatePipeline_Errors(t *testing.T) {
	t.Parallel()

	p := validPipeline()
	p.Errors = Errors{Sink: "file"}
	issues := ValidatePipeline(p)
	if !hasIssue(t, issues, SeverityError, "errors.path", "non-empty path") {
		t.Fatalf("expected error for file sink without path; got: %+v", issues)
	}

	p.Errors = Errors{Sink: "kafka"}
	issues = ValidatePipeline(p)
	if !hasIssue(t, issues, SeverityError, "errors.sink", "unknown error sink") {
		t.Fatalf("expected error for unknown sink; got: %+v", issues)
	}
}

func TestValidatePipeline_Storage(t *testing.T) {
	t.Parallel()

	// Empty kind disables loading and must lint clean.
	p := validPipeline()
	p.Storage = Storage{}
	if issues := ValidatePipeline(p); HasErrors(issues) {
		t.Fatalf("empty storage kind should not error; got: %+v", issues)
	}

	p = validPipeline()
	p.Storage = Storage{Kind: "postgres"}
	issues := ValidatePipeline(p)
	if !hasIssue(t, issues, SeverityError, "storage.db.dsn", "must not be empty") {
		t.Fatalf("expected error for empty DSN; got: %+v", issues)
	}
	if !hasIssue(t, issues, SeverityError, "storage.db.table", "must not be empty") {
		t.Fatalf("expected error for empty table; got: %+v", issues)
	}

	p = validPipeline()
	p.Storage.Kind = "oracle"
	issues = ValidatePipeline(p)
	if !hasIssue(t, issues, SeverityWarning, "storage.kind", "unknown storage kind") {
		t.Fatalf("expected warning for unknown backend; got: %+v", issues)
	}
}

func TestValidatePipeline_Runtime(t *testing.T) {
	t.Parallel()

	p := validPipeline()
	p.Runtime = RuntimeConfig{PartitionsPerSource: -1, Workers: -2, BatchSize: -3, ChannelBuffer: -4}
	issues := ValidatePipeline(p)
	for _, path := range []string{
		"runtime.partitions_per_source",
		"runtime.workers",
		"runtime.batch_size",
		"runtime.channel_buffer",
	} {
		if !hasIssue(t, issues, SeverityError, path, "must not be negative") {
			t.Fatalf("expected error at %s; got: %+v", path, issues)
		}
	}
}

func TestIssue_Error(t *testing.T) {
	t.Parallel()

	iss := Issue{Severity: SeverityError, Path: "split.mode", Message: "boom"}
	if got, want := iss.Error(), "error at split.mode: boom"; got != want {
		t.Fatalf("Issue.Error() = %q, want %q", got, want)
	}
}
