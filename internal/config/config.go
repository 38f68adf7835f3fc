// Package config defines the canonical, JSON-serializable configuration model
// for an ingestion run. It is intentionally small, explicit, and dependency-
// free so that pipeline files can be loaded from disk and passed through the
// program without additional glue code.
//
// Design goals:
//
//  1. Stability: Changes to this package should be additive and backwards-
//     compatible whenever possible.
//  2. Clarity: Field names in Go mirror the JSON structure used in pipeline
//     files under configs/*.json.
//  3. Minimalism: Decoding is performed by the standard library, with a light
//     Options helper for typed access to free-form option bags.
//
// Example (trimmed):
//
//	{
//	  "job":      "hr-events",
//	  "sources":  { "paths": ["data/part-00.txt"] },
//	  "split":    { "mode": "delimited", "delimiter": "," },
//	  "contract": { "name": "hr_events", "fields": [...] },
//	  "storage":  { "kind": "postgres", "db": { "dsn": "...", "table": "public.hr_events" } }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"bulkingest/internal/schema"
)

// Pipeline describes a full ingestion run in JSON. It is the top-level object
// decoded from a pipeline file.
type Pipeline struct {
	// Job labels metrics and log lines for this run.
	Job string `json:"job"`

	// Sources describes where input lines come from.
	Sources Sources `json:"sources"`

	// Split configures how one line becomes positional fields.
	Split Split `json:"split"`

	// Filter lists the ordered row filters applied to split fields. Each
	// filter has a kind and an options bag interpreted by the implementation.
	Filter []Step `json:"filter"`

	// Clean lists the ordered field cleaners applied before decoding.
	Clean []Step `json:"clean"`

	// Time configures the per-path time value appended to every record.
	Time Time `json:"time"`

	// Keys configures deterministic record key generation.
	Keys Keys `json:"keys"`

	// Contract is the record schema: ordered fields, types, and rules.
	Contract schema.Contract `json:"contract"`

	// Errors selects the destination for rejected-record lines.
	Errors Errors `json:"errors"`

	// Storage describes where accepted records are written.
	Storage Storage `json:"storage"`

	Runtime RuntimeConfig `json:"runtime"`
}

// Load reads and decodes a pipeline file.
func Load(path string) (Pipeline, error) {
	var p Pipeline
	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return p, nil
}

// Sources identifies the input files. Paths and ListFile may be combined;
// ListFile names a text file with one source path per line (blank lines and
// lines starting with # are skipped).
type Sources struct {
	Paths    []string `json:"paths"`
	ListFile string   `json:"list_file"`
}

// Split selects the line splitting mode. Exactly one mode applies.
type Split struct {
	// Mode is "delimited" or "fixed_width".
	Mode string `json:"mode"`

	// Delimiter is the separator string for "delimited" mode.
	Delimiter string `json:"delimiter"`

	// Widths are the byte widths per field for "fixed_width" mode.
	Widths []int `json:"widths"`
}

// Step defines one filter or cleaner in a chain. Implementations define
// their own option shapes.
type Step struct {
	// Kind selects the implementation (e.g. "drop_blank", "distinct" for
	// filters; "trim", "deaccent" for cleaners).
	Kind string `json:"kind"`

	// Options is a free-form map interpreted by the selected implementation.
	Options Options `json:"options"`
}

// Time configures the time value stamped onto every record of a source.
type Time struct {
	// Mode is "fixed" (use Value for every path) or "mtime" (use the source
	// file's modification time). Empty defaults to "fixed".
	Mode string `json:"mode"`

	// Value is the predetermined time string for "fixed" mode.
	Value string `json:"value"`
}

// Keys configures record key generation.
type Keys struct {
	// Enabled turns key generation on; the 64-hex key is appended to every
	// record after the time value.
	Enabled bool `json:"enabled"`

	// Seed is the run seed as 8 hex characters. Empty means a random seed is
	// drawn at startup; set it explicitly to reproduce keys across runs.
	Seed string `json:"seed"`
}

// Errors selects the rejected-record sink.
type Errors struct {
	// Sink is "discard", "log", or "file".
	Sink string `json:"sink"`

	// Path is the output file for the "file" sink.
	Path string `json:"path"`
}

// Storage selects the sink used to persist accepted records.
type Storage struct {
	// Kind selects the storage backend, e.g. "postgres" or "sqlite".
	// Empty disables loading; accepted records are counted and discarded.
	Kind string `json:"kind"`

	// DB carries options shared by the database backends.
	DB DBConfig `json:"db"`
}

// DBConfig configures a database sink.
type DBConfig struct {
	// DSN is the backend connection string (e.g. postgresql://... for pgx).
	DSN string `json:"dsn"`

	// Table is the destination table, possibly schema-qualified.
	Table string `json:"table"`

	// AutoCreateTable creates the destination table from the contract before
	// loading starts.
	AutoCreateTable bool `json:"auto_create_table"`
}

// RuntimeConfig controls concurrency, partitioning, batching, and channel
// buffer sizes.
type RuntimeConfig struct {
	PartitionsPerSource int `json:"partitions_per_source"`
	Workers             int `json:"workers"`
	BatchSize           int `json:"batch_size"`
	ChannelBuffer       int `json:"channel_buffer"`
}

// Options is a small helper to fetch typed values from arbitrary JSON maps
// without introducing third-party configuration libraries. It purposefully
// performs only minimal type coercion and returns provided defaults when a
// key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers are decoded as
// float64 by encoding/json, so this method accepts float64 and casts to int.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// StringSlice returns a []string for key when the value is an array of
// strings (or an array of interface values containing strings). Returns nil
// when the key is missing or the value is not an array.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// Any returns the raw value for key (which may itself be a nested
// map[string]any, []any, or primitive).
func (o Options) Any(key string) any {
	if v, ok := o[key]; ok {
		return v
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler so that a missing or null
// "options" object in JSON decodes to a non-nil, empty Options map. This
// removes the need to nil-check Options values at call sites.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
