package performance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func refs(ids ...string) []Reference {
	out := make([]Reference, len(ids))
	for i, id := range ids {
		out[i] = Reference{PerformanceID: id}
	}
	return out
}

func ids(refs []Reference) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.PerformanceID
	}
	return out
}

func TestMoveReference(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		from int
		to   int
		want []string
	}{
		{"forward", []string{"a", "b", "c", "d"}, 0, 2, []string{"b", "c", "a", "d"}},
		{"backward", []string{"a", "b", "c", "d"}, 3, 1, []string{"a", "d", "b", "c"}},
		{"same index", []string{"a", "b"}, 1, 1, []string{"a", "b"}},
		{"swap of two", []string{"a", "b"}, 0, 1, []string{"b", "a"}},
		{"from clamped high", []string{"a", "b", "c"}, 10, 0, []string{"c", "a", "b"}},
		{"from clamped low", []string{"a", "b", "c"}, -1, 2, []string{"b", "c", "a"}},
		{"to clamped high", []string{"a", "b", "c"}, 0, 99, []string{"b", "c", "a"}},
		{"to clamped low", []string{"a", "b", "c"}, 2, -5, []string{"c", "a", "b"}},
		{"single element", []string{"a"}, 0, 0, []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MoveReference(refs(tt.in...), tt.from, tt.to)
			assert.Equal(t, tt.want, ids(got))
			assert.Len(t, got, len(tt.in))
		})
	}
}

func TestMoveReferenceEmpty(t *testing.T) {
	assert.Empty(t, MoveReference(nil, 0, 1))
}
