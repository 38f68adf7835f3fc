package record

import (
	"reflect"
	"testing"
)

func TestRawFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		raw   Raw
		split []string
		want  []string
	}{
		{
			name:  "no extras returns split as is",
			raw:   Raw{Line: "a,b"},
			split: []string{"a", "b"},
			want:  []string{"a", "b"},
		},
		{
			name:  "time extra appended after split fields",
			raw:   Raw{Line: "a,b", Extra: []string{"2026-01-01"}},
			split: []string{"a", "b"},
			want:  []string{"a", "b", "2026-01-01"},
		},
		{
			name:  "time then key, order preserved",
			raw:   Raw{Line: "a", Extra: []string{"2026-01-01", "deadbeef"}},
			split: []string{"a"},
			want:  []string{"a", "2026-01-01", "deadbeef"},
		},
		{
			name:  "empty split still carries extras",
			raw:   Raw{Extra: []string{"t"}},
			split: []string{""},
			want:  []string{"", "t"},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.raw.Fields(tt.split); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Fields = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestRawFields_DoesNotAliasSplit(t *testing.T) {
	t.Parallel()

	split := []string{"a", "b"}
	raw := Raw{Extra: []string{"t"}}
	out := raw.Fields(split)
	out[0] = "mutated"
	if split[0] != "a" {
		t.Fatal("Fields with extras must copy, not alias, the split slice")
	}
}
