package main

import (
	"reflect"
	"testing"

	"bulkingest/internal/config"
	"bulkingest/internal/schema"
	"bulkingest/internal/split"
)

func TestBuildSplitter(t *testing.T) {
	t.Parallel()

	s := buildSplitter(config.Split{Mode: "delimited", Delimiter: "|"})
	if got := s.Split("a|b"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("delimited split = %v, want [a b]", got)
	}

	s = buildSplitter(config.Split{Mode: "fixed_width", Widths: []int{2, 3}})
	if _, ok := s.(split.FixedWidth); !ok {
		t.Fatalf("fixed_width mode built %T, want split.FixedWidth", s)
	}
}

func TestBuildFilterFactory(t *testing.T) {
	t.Parallel()

	f, err := buildFilterFactory(nil)
	if err != nil || f != nil {
		t.Fatalf("empty chain = (%p, %v), want (nil, nil)", f, err)
	}

	f, err = buildFilterFactory([]config.Step{{Kind: "drop_blank"}, {Kind: "distinct"}})
	if err != nil {
		t.Fatalf("buildFilterFactory error: %v", err)
	}

	filter := f()
	if _, ok := filter([]string{"", ""}); ok {
		t.Fatal("blank row passed drop_blank")
	}
	if _, ok := filter([]string{"a"}); !ok {
		t.Fatal("first occurrence dropped")
	}
	if _, ok := filter([]string{"a"}); ok {
		t.Fatal("duplicate passed distinct")
	}

	// A fresh factory call must not share distinct state.
	if _, ok := f()([]string{"a"}); !ok {
		t.Fatal("distinct state leaked across factory calls")
	}

	if _, err := buildFilterFactory([]config.Step{{Kind: "nope"}}); err == nil {
		t.Fatal("expected error for unknown filter kind")
	}
}

func TestBuildCleaner(t *testing.T) {
	t.Parallel()

	c, err := buildCleaner([]config.Step{
		{Kind: "trim"},
		{Kind: "deaccent", Options: config.Options{"columns": []any{"name"}}},
	})
	if err != nil {
		t.Fatalf("buildCleaner error: %v", err)
	}

	nameCol := schema.Column{Index: 0, Name: "name", Type: "text"}
	otherCol := schema.Column{Index: 1, Name: "other", Type: "text"}

	if got := c("  café  ", nameCol); got != "cafe" {
		t.Fatalf("clean(name) = %q, want %q", got, "cafe")
	}
	// deaccent is scoped to the "name" column; "other" only gets trimmed.
	if got := c("  café  ", otherCol); got != "café" {
		t.Fatalf("clean(other) = %q, want %q", got, "café")
	}

	if _, err := buildCleaner([]config.Step{{Kind: "nope"}}); err == nil {
		t.Fatal("expected error for unknown cleaner kind")
	}
}

func TestBuildTimeSource(t *testing.T) {
	t.Parallel()

	src := buildTimeSource(config.Time{Mode: "fixed", Value: "2026-01-02"})
	if got := src.For("/any/path"); got != "2026-01-02" {
		t.Fatalf("fixed time = %q, want 2026-01-02", got)
	}

	src = buildTimeSource(config.Time{Mode: "mtime"})
	if got := src.For("/does/not/exist"); got != "" {
		t.Fatalf("mtime of missing path = %q, want empty", got)
	}
}

func TestBuildKeys(t *testing.T) {
	t.Parallel()

	g, err := buildKeys(config.Keys{Enabled: false})
	if err != nil || g != nil {
		t.Fatalf("disabled keys = (%v, %v), want (nil, nil)", g, err)
	}

	g, err = buildKeys(config.Keys{Enabled: true, Seed: "deadbeef"})
	if err != nil {
		t.Fatalf("buildKeys error: %v", err)
	}
	if g == nil {
		t.Fatal("enabled keys returned nil generator")
	}

	if _, err := buildKeys(config.Keys{Enabled: true, Seed: "xyz"}); err == nil {
		t.Fatal("expected error for malformed seed")
	}
}

func TestResolveSources_Empty(t *testing.T) {
	t.Parallel()

	if _, err := resolveSources(config.Sources{}); err == nil {
		t.Fatal("expected error for empty sources")
	}
}

func TestPickIntAndGetenvInt(t *testing.T) {
	if got := pickInt(3, 9); got != 3 {
		t.Fatalf("pickInt(3,9) = %d, want 3", got)
	}
	if got := pickInt(0, 9); got != 9 {
		t.Fatalf("pickInt(0,9) = %d, want 9", got)
	}

	t.Setenv("INGEST_TEST_INT", "17")
	if got := getenvInt("INGEST_TEST_INT", 1); got != 17 {
		t.Fatalf("getenvInt = %d, want 17", got)
	}
	t.Setenv("INGEST_TEST_INT", "not-a-number")
	if got := getenvInt("INGEST_TEST_INT", 1); got != 1 {
		t.Fatalf("getenvInt invalid = %d, want fallback 1", got)
	}
}
