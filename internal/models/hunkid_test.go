package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHunkID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  HunkID
	}{
		{"simple", "src/main.rs:2", HunkID{Path: "src/main.rs", Index: 2}},
		{"zero", "README.md:0", HunkID{Path: "README.md", Index: 0}},
		{"colon in path", "dir/a:b.txt:3", HunkID{Path: "dir/a:b.txt", Index: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHunkID(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestParseHunkIDInvalid(t *testing.T) {
	for _, input := range []string{"bad", ":1", "file.go:", "file.go:x", "file.go:-1"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseHunkID(input)
			require.Error(t, err)

			var idErr *InvalidHunkIDError
			require.ErrorAs(t, err, &idErr)
			assert.Equal(t, input, idErr.Value)
		})
	}
}

func TestParseHunkIDsStopsAtFirstError(t *testing.T) {
	_, err := ParseHunkIDs([]string{"a.go:0", "bad", "b.go:1"})

	var idErr *InvalidHunkIDError
	require.ErrorAs(t, err, &idErr)
	assert.Equal(t, "bad", idErr.Value)
}

func TestGroupHunkIDs(t *testing.T) {
	ids, err := ParseHunkIDs([]string{"b.go:2", "a.go:1", "b.go:0", "b.go:2"})
	require.NoError(t, err)

	paths, byPath := GroupHunkIDs(ids)
	assert.Equal(t, []string{"b.go", "a.go"}, paths)
	assert.Equal(t, []int{0, 2}, byPath["b.go"])
	assert.Equal(t, []int{1}, byPath["a.go"])
}
