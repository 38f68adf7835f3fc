// Lightweight linter/validator for Pipeline values. It performs static checks
// over a decoded Pipeline and returns a list of issues (errors and warnings)
// that callers can surface in a CLI or tests.
package config

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "split.mode",
// "filter[1].kind"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue in the list has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidatePipeline performs static validation / linting of a Pipeline.
//
// It does not mutate the pipeline. Instead it returns a slice of Issue
// values; callers decide whether to treat warnings as fatal.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "job",
			Message:  "job is empty; a run-scoped ID will be generated for metrics labeling",
		})
	}
	issues = append(issues, validateSources(p.Sources)...)
	issues = append(issues, validateSplit(p.Split)...)
	issues = append(issues, validateSteps("filter", p.Filter, knownFilters)...)
	issues = append(issues, validateSteps("clean", p.Clean, knownCleaners)...)
	issues = append(issues, validateTime(p.Time)...)
	issues = append(issues, validateKeys(p.Keys)...)
	issues = append(issues, validateContract(p)...)
	issues = append(issues, validateErrors(p.Errors)...)
	issues = append(issues, validateStorage(p.Storage)...)
	issues = append(issues, validateRuntime(p.Runtime)...)

	return issues
}

func validateSources(s Sources) []Issue {
	var issues []Issue
	if len(s.Paths) == 0 && strings.TrimSpace(s.ListFile) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "sources",
			Message:  "at least one of sources.paths and sources.list_file is required",
		})
	}
	for i, p := range s.Paths {
		if strings.TrimSpace(p) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("sources.paths[%d]", i),
				Message:  "source path must not be empty",
			})
		}
	}
	return issues
}

func validateSplit(s Split) []Issue {
	var issues []Issue

	switch s.Mode {
	case "delimited":
		if s.Delimiter == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "split.delimiter",
				Message:  "delimited mode requires a non-empty delimiter",
			})
		}
		if len(s.Widths) > 0 {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "split.widths",
				Message:  "widths are ignored in delimited mode",
			})
		}
	case "fixed_width":
		if len(s.Widths) == 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "split.widths",
				Message:  "fixed_width mode requires at least one width",
			})
		}
		for i, w := range s.Widths {
			if w <= 0 {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     fmt.Sprintf("split.widths[%d]", i),
					Message:  fmt.Sprintf("width must be positive, got %d", w),
				})
			}
		}
		if s.Delimiter != "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "split.delimiter",
				Message:  "delimiter is ignored in fixed_width mode",
			})
		}
	case "":
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "split.mode",
			Message:  "split.mode must not be empty",
		})
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "split.mode",
			Message:  fmt.Sprintf("unknown split mode %q; expected \"delimited\" or \"fixed_width\"", s.Mode),
		})
	}

	return issues
}

var knownFilters = map[string]struct{}{
	"drop_blank": {},
	"distinct":   {},
}

var knownCleaners = map[string]struct{}{
	"trim":     {},
	"deaccent": {},
}

// validateSteps validates a filter or cleaner chain. Unknown kinds are
// errors: unlike storage backends there is no runtime registry to supply
// additional implementations.
func validateSteps(section string, steps []Step, known map[string]struct{}) []Issue {
	var issues []Issue
	for i, s := range steps {
		path := fmt.Sprintf("%s[%d].kind", section, i)
		if strings.TrimSpace(s.Kind) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  "kind must not be empty",
			})
			continue
		}
		if _, ok := known[s.Kind]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  fmt.Sprintf("unknown %s kind %q", section, s.Kind),
			})
		}
	}
	return issues
}

func validateTime(t Time) []Issue {
	var issues []Issue
	switch t.Mode {
	case "", "fixed":
		if t.Value == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "time.value",
				Message:  "fixed time mode with empty value; every record gets an empty time field",
			})
		}
	case "mtime":
		if t.Value != "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "time.value",
				Message:  "value is ignored in mtime mode",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "time.mode",
			Message:  fmt.Sprintf("unknown time mode %q; expected \"fixed\" or \"mtime\"", t.Mode),
		})
	}
	return issues
}

func validateKeys(k Keys) []Issue {
	var issues []Issue
	if k.Seed != "" {
		b, err := hex.DecodeString(k.Seed)
		if err != nil || len(b) != 4 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "keys.seed",
				Message:  "seed must be exactly 8 hex characters",
			})
		}
		if !k.Enabled {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "keys.seed",
				Message:  "seed is set but key generation is disabled",
			})
		}
	}
	return issues
}

func validateContract(p Pipeline) []Issue {
	var issues []Issue

	c := p.Contract
	if len(c.Fields) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "contract.fields",
			Message:  "contract must define at least one field",
		})
		return issues
	}

	seen := map[string]int{}
	for i, f := range c.Fields {
		path := fmt.Sprintf("contract.fields[%d]", i)
		if strings.TrimSpace(f.Name) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".name",
				Message:  "field name must not be empty",
			})
		}
		if prev, dup := seen[f.Name]; dup {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".name",
				Message:  fmt.Sprintf("duplicate field name %q (first at fields[%d])", f.Name, prev),
			})
		}
		seen[f.Name] = i
	}

	// The contract arity must cover the split fields plus the appended
	// extras (time, and the key when enabled).
	extras := 1
	if p.Keys.Enabled {
		extras = 2
	}
	if p.Split.Mode == "fixed_width" && len(p.Split.Widths) > 0 {
		if want := len(p.Split.Widths) + extras; len(c.Fields) != want {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "contract.fields",
				Message: fmt.Sprintf(
					"contract has %d fields but fixed_width split plus extras yields %d (widths=%d, extras=%d)",
					len(c.Fields), want, len(p.Split.Widths), extras),
			})
		}
	}

	return issues
}

func validateErrors(e Errors) []Issue {
	var issues []Issue
	switch e.Sink {
	case "", "discard", "log":
	case "file":
		if strings.TrimSpace(e.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "errors.path",
				Message:  "file sink requires a non-empty path",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "errors.sink",
			Message:  fmt.Sprintf("unknown error sink %q; expected \"discard\", \"log\", or \"file\"", e.Sink),
		})
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue

	// Empty kind disables loading entirely; that is a valid dry-run setup.
	if strings.TrimSpace(s.Kind) == "" {
		return issues
	}

	known := map[string]struct{}{
		"postgres": {},
		"sqlite":   {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
		})
	}

	if strings.TrimSpace(s.DB.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.dsn",
			Message:  "storage.db.dsn must not be empty",
		})
	}
	if strings.TrimSpace(s.DB.Table) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.table",
			Message:  "storage.db.table must not be empty",
		})
	}

	return issues
}

// validateRuntime validates RuntimeConfig for obvious misconfigurations
// (negative values, zero-sized batches, etc.).
func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue

	if r.PartitionsPerSource < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.partitions_per_source",
			Message:  "partitions_per_source must not be negative",
		})
	}
	if r.Workers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.workers",
			Message:  "workers must not be negative",
		})
	}
	if r.BatchSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.batch_size",
			Message:  "batch_size must not be negative",
		})
	}
	if r.ChannelBuffer < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.channel_buffer",
			Message:  "channel_buffer must not be negative",
		})
	}

	return issues
}
