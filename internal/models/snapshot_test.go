package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hunk(index int, changes ...DiffLine) Hunk {
	return Hunk{Index: index, Lines: changes}
}

func TestNewDiffSnapshotRejectsDuplicatePaths(t *testing.T) {
	_, err := NewDiffSnapshot(StrategyIndexToWorkdir, 3,
		&FileDiff{Path: "a.go"},
		&FileDiff{Path: "a.go"},
	)
	assert.Error(t, err)
}

func TestConsumeHunks(t *testing.T) {
	s, err := NewDiffSnapshot(StrategyIndexToWorkdir, 3,
		&FileDiff{Path: "a.go", Hunks: []Hunk{hunk(0), hunk(1), hunk(2)}},
		&FileDiff{Path: "b.go", Hunks: []Hunk{hunk(0)}},
	)
	require.NoError(t, err)

	s.ConsumeHunks("a.go", 0, 2)
	f, ok := s.File("a.go")
	require.True(t, ok)
	require.Len(t, f.Hunks, 1)
	assert.Equal(t, 1, f.Hunks[0].Index)

	s.ConsumeHunks("b.go", 0)
	_, ok = s.File("b.go")
	assert.False(t, ok, "file without hunks should leave the snapshot")

	s.ConsumeHunks("missing.go", 0)
	assert.Equal(t, []string{"a.go"}, s.Paths())
}

func TestConsumeHunksKeepsModeChange(t *testing.T) {
	s, err := NewDiffSnapshot(StrategyIndexToWorkdir, 3,
		&FileDiff{Path: "run.sh", ModeChanged: true, Hunks: []Hunk{hunk(0)}},
	)
	require.NoError(t, err)

	s.ConsumeHunks("run.sh", 0)
	assert.Equal(t, []string{"run.sh"}, s.Paths())
	assert.Equal(t, []Unapplied{{Path: "run.sh", HunkIndex: -1}}, s.Unapplied())

	s.RemoveFile("run.sh")
	assert.True(t, s.IsEmpty())
}

func TestUnapplied(t *testing.T) {
	s, err := NewDiffSnapshot(StrategyIndexToWorkdir, 3,
		&FileDiff{Path: "a.go", Hunks: []Hunk{hunk(1), hunk(3)}},
		&FileDiff{Path: "logo.png", Binary: true},
	)
	require.NoError(t, err)

	got := s.Unapplied()
	require.Len(t, got, 3)
	assert.Equal(t, "a.go:1", got[0].String())
	assert.Equal(t, "a.go:3", got[1].String())
	assert.True(t, got[2].WholeFile())
	assert.Equal(t, "logo.png", got[2].String())

	s.RemoveFile("a.go")
	s.RemoveFile("logo.png")
	assert.True(t, s.IsEmpty())
	assert.Empty(t, s.Unapplied())
}

func TestSameChangesIgnoresContext(t *testing.T) {
	a := hunk(0,
		DiffLine{Content: "ctx", Type: LineUnchanged, Position: DiffLinePosition{Old: 1, New: 1}},
		DiffLine{Content: "old", Type: LineDelete, Position: DiffLinePosition{Old: 2}},
		DiffLine{Content: "new", Type: LineAdd, Position: DiffLinePosition{New: 2}},
	)
	b := hunk(4,
		DiffLine{Content: "old", Type: LineDelete, Position: DiffLinePosition{Old: 10}},
		DiffLine{Content: "new", Type: LineAdd, Position: DiffLinePosition{New: 10}},
		DiffLine{Content: "other ctx", Type: LineUnchanged, Position: DiffLinePosition{Old: 11, New: 11}},
	)
	c := hunk(1,
		DiffLine{Content: "new", Type: LineAdd, Position: DiffLinePosition{New: 2}},
		DiffLine{Content: "old", Type: LineDelete, Position: DiffLinePosition{Old: 2}},
	)

	assert.True(t, a.SameChanges(b))
	assert.False(t, a.SameChanges(c), "order of changes matters")
}

func TestFileDiffWholeFileOnly(t *testing.T) {
	assert.False(t, (&FileDiff{Path: "a"}).WholeFileOnly())
	assert.True(t, (&FileDiff{Path: "a", Untracked: true}).WholeFileOnly())
	assert.True(t, (&FileDiff{Path: "a", Deleted: true}).WholeFileOnly())
	assert.True(t, (&FileDiff{Path: "a", Binary: true}).WholeFileOnly())
}

func TestLineTypeMarshalsByName(t *testing.T) {
	out, err := json.Marshal(DiffLine{Content: "x", Type: LineAdd, Position: DiffLinePosition{New: 3}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":"x","type":"add","position":{"new_lineno":3}}`, string(out))
}

func TestStagingModeAndStrategy(t *testing.T) {
	assert.True(t, ModeHunks.IsValid())
	assert.False(t, StagingMode("patch").IsValid())
	assert.True(t, StrategyHeadToWorkdir.IncludesWorkdir())
	assert.False(t, StrategyHeadToIndex.IncludesWorkdir())
	assert.False(t, DiffStrategy("worktree").IsValid())
}
