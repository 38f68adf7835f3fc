package timesource

import (
	"path/filepath"
	"testing"
)

func TestPredetermined(t *testing.T) {
	t.Parallel()

	src := Predetermined("20240101")
	if got := src.For("/data/a.txt"); got != "20240101" {
		t.Fatalf("For(a) = %q; want 20240101", got)
	}
	if got := src.For("/data/b.txt"); got != "20240101" {
		t.Fatalf("For(b) = %q; want same value for every path", got)
	}
}

func TestFromPath(t *testing.T) {
	t.Parallel()

	src := FromPath(func(path string) string {
		return filepath.Base(path)
	})
	if got := src.For("/data/part-03.txt"); got != "part-03.txt" {
		t.Fatalf("For = %q; want part-03.txt", got)
	}
}

func TestZeroValue(t *testing.T) {
	t.Parallel()

	var src Source
	if got := src.For("/data/a.txt"); got != "" {
		t.Fatalf("zero Source.For = %q; want empty", got)
	}
}
