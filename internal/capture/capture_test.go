package capture

import (
	"context"
	"testing"

	"github.com/pders01/git-splice/internal/git"
	"github.com/pders01/git-splice/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) Diff(ctx context.Context, strategy models.DiffStrategy, opts git.DiffOptions) (string, error) {
	args := m.Called(strategy, opts)
	return args.String(0), args.Error(1)
}

func (m *mockSource) Untracked(ctx context.Context, paths []string) ([]string, error) {
	args := m.Called(paths)
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockSource) ReadWorkFile(path string) ([]byte, error) {
	args := m.Called(path)
	return args.Get(0).([]byte), args.Error(1)
}

const modifiedPatch = `diff --git a/a.txt b/a.txt
index 1111111..2222222 100644
--- a/a.txt
+++ b/a.txt
@@ -1,3 +1,3 @@
 1
-2
+2b
 3
`

const twoHunkPatch = `diff --git a/list.txt b/list.txt
index 1111111..2222222 100644
--- a/list.txt
+++ b/list.txt
@@ -1,2 +1,2 @@
-a
+A
 b
@@ -9,2 +9,2 @@
 i
-j
+J
`

const noNewlinePatch = `diff --git a/b.txt b/b.txt
index 1111111..2222222 100644
--- a/b.txt
+++ b/b.txt
@@ -1 +1 @@
-old
\ No newline at end of file
+new
\ No newline at end of file
`

const mixedPatch = `diff --git a/gone.txt b/gone.txt
deleted file mode 100644
index 1111111..0000000
--- a/gone.txt
+++ /dev/null
@@ -1 +0,0 @@
-bye
diff --git a/logo.png b/logo.png
index 4444444..5555555 100644
Binary files a/logo.png and b/logo.png differ
diff --git a/vendor/lib.go b/vendor/lib.go
index 1111111..2222222 100644
--- a/vendor/lib.go
+++ b/vendor/lib.go
@@ -1 +1 @@
-x
+y
`

func TestParseModifiedFile(t *testing.T) {
	files, err := Parse(modifiedPatch)
	require.NoError(t, err)
	require.Len(t, files, 1)

	f := files[0]
	assert.Equal(t, "a.txt", f.Path)
	assert.False(t, f.WholeFileOnly())
	require.Len(t, f.Hunks, 1)

	h := f.Hunks[0]
	assert.Equal(t, models.HunkHeader{OldStart: 1, OldLines: 3, NewStart: 1, NewLines: 3}, h.Header)
	require.Len(t, h.Lines, 4)

	assert.Equal(t, models.DiffLine{Content: "1", Raw: "1", Type: models.LineUnchanged, Position: models.DiffLinePosition{Old: 1, New: 1}}, h.Lines[0])
	assert.Equal(t, models.DiffLine{Content: "2", Raw: "2", Type: models.LineDelete, Position: models.DiffLinePosition{Old: 2}}, h.Lines[1])
	assert.Equal(t, models.DiffLine{Content: "2b", Raw: "2b", Type: models.LineAdd, Position: models.DiffLinePosition{New: 2}}, h.Lines[2])
	assert.Equal(t, models.DiffLinePosition{Old: 3, New: 3}, h.Lines[3].Position)
	assert.Equal(t, 4, f.LineCount)
}

func TestParseModeChange(t *testing.T) {
	files, err := Parse(`diff --git a/run.sh b/run.sh
old mode 100644
new mode 100755
index 1111111..2222222
--- a/run.sh
+++ b/run.sh
@@ -1,3 +1,3 @@
 1
-2
+2b
 3
`)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, files[0].ModeChanged)
	assert.Len(t, files[0].Hunks, 1)

	plain, err := Parse(modifiedPatch)
	require.NoError(t, err)
	assert.False(t, plain[0].ModeChanged)
}

func TestParseNumbersHunksPerFile(t *testing.T) {
	files, err := Parse(twoHunkPatch)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Len(t, files[0].Hunks, 2)

	assert.Equal(t, 0, files[0].Hunks[0].Index)
	assert.Equal(t, 1, files[0].Hunks[1].Index)
	assert.Equal(t, models.DiffLinePosition{Old: 10}, files[0].Hunks[1].Lines[1].Position)
	assert.Equal(t, models.DiffLinePosition{New: 10}, files[0].Hunks[1].Lines[2].Position)
}

func TestParseNoNewlineMarker(t *testing.T) {
	files, err := Parse(noNewlinePatch)
	require.NoError(t, err)
	require.Len(t, files, 1)

	lines := files[0].Hunks[0].Lines
	require.Len(t, lines, 4)
	assert.Equal(t, models.LineDelete, lines[0].Type)
	assert.Equal(t, models.LineNoNewline, lines[1].Type)
	assert.Equal(t, models.LineAdd, lines[2].Type)
	assert.Equal(t, "new", lines[2].Content)
	assert.Equal(t, models.LineNoNewline, lines[3].Type)
}

func TestParseDeletedAndBinary(t *testing.T) {
	files, err := Parse(mixedPatch)
	require.NoError(t, err)
	require.Len(t, files, 3)

	assert.Equal(t, "gone.txt", files[0].Path)
	assert.True(t, files[0].Deleted)
	assert.Equal(t, "logo.png", files[1].Path)
	assert.True(t, files[1].Binary)
	assert.Empty(t, files[1].Hunks)
}

func TestUntrackedFile(t *testing.T) {
	f := UntrackedFile("new.txt", []byte("x\ny\n"))

	assert.True(t, f.Untracked)
	require.Len(t, f.Hunks, 1)
	h := f.Hunks[0]
	assert.Equal(t, models.HunkHeader{OldStart: 0, OldLines: 0, NewStart: 1, NewLines: 2}, h.Header)
	require.Len(t, h.Lines, 2)
	for i, l := range h.Lines {
		assert.Equal(t, models.LineAdd, l.Type)
		assert.Equal(t, i+1, l.Position.New)
		assert.False(t, l.Position.HasOld())
	}
	assert.Equal(t, "x", h.Lines[0].Content)
	assert.Equal(t, "y", h.Lines[1].Content)
}

func TestUntrackedFileEdgeCases(t *testing.T) {
	empty := UntrackedFile("empty.txt", nil)
	assert.True(t, empty.Untracked)
	assert.Empty(t, empty.Hunks)

	bin := UntrackedFile("blob.bin", []byte{0x89, 'P', 'N', 'G', 0x00, 0x01})
	assert.True(t, bin.Binary)
	assert.Empty(t, bin.Hunks)

	noEOL := UntrackedFile("tail.txt", []byte("a\r\nb"))
	require.Len(t, noEOL.Hunks, 1)
	lines := noEOL.Hunks[0].Lines
	require.Len(t, lines, 3)
	assert.Equal(t, "a\r", lines[0].Raw)
	assert.Equal(t, "a", lines[0].Content)
	assert.Equal(t, models.LineNoNewline, lines[2].Type)
}

func TestCaptureAddsUntrackedAndSkipsIgnored(t *testing.T) {
	src := new(mockSource)
	src.On("Diff", models.StrategyIndexToWorkdir, git.DiffOptions{ContextLines: 3}).Return(modifiedPatch+mixedPatch, nil)
	src.On("Untracked", []string(nil)).Return([]string{"new.txt", "vendor/extra.go"}, nil)
	src.On("ReadWorkFile", "new.txt").Return([]byte("x\ny\n"), nil)

	snapshot, err := Capture(context.Background(), src, Options{
		Strategy:         models.StrategyIndexToWorkdir,
		ContextLines:     DefaultContextLines,
		IncludeUntracked: true,
		Ignored:          []string{"vendor/", "*.png"},
		Logger:           zaptest.NewLogger(t),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.txt", "gone.txt", "new.txt"}, snapshot.Paths())
	f, ok := snapshot.File("new.txt")
	require.True(t, ok)
	assert.True(t, f.Untracked)
	src.AssertExpectations(t)
}

func TestCaptureStagedSkipsUntracked(t *testing.T) {
	src := new(mockSource)
	src.On("Diff", models.StrategyHeadToIndex, git.DiffOptions{ContextLines: 1}).Return(modifiedPatch, nil)

	snapshot, err := Capture(context.Background(), src, Options{
		Strategy:         models.StrategyHeadToIndex,
		ContextLines:     1,
		IncludeUntracked: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.txt"}, snapshot.Paths())
	assert.Equal(t, 1, snapshot.ContextLines)
	src.AssertNotCalled(t, "Untracked", mock.Anything)
}

func TestCaptureRejectsBadOptions(t *testing.T) {
	src := new(mockSource)

	_, err := Capture(context.Background(), src, Options{Strategy: "worktree"})
	assert.Error(t, err)

	_, err = Capture(context.Background(), src, Options{ContextLines: -1})
	assert.Error(t, err)
}

func TestCaptureFileWithoutChanges(t *testing.T) {
	src := new(mockSource)
	src.On("Diff", models.StrategyIndexToWorkdir, git.DiffOptions{Paths: []string{"a.txt"}, ContextLines: 3}).Return("", nil)

	f, err := CaptureFile(context.Background(), src, "a.txt", 3)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", f.Path)
	assert.Empty(t, f.Hunks)
}

func TestIsIgnored(t *testing.T) {
	ignored := []string{"go.sum", "dist/", "*.lock"}

	assert.True(t, isIgnored("go.sum", ignored))
	assert.True(t, isIgnored("dist/app.js", ignored))
	assert.True(t, isIgnored("web/yarn.lock", ignored))
	assert.False(t, isIgnored("distribution.go", ignored))
	assert.False(t, isIgnored("main.go", ignored))
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, SplitLines(""))
	assert.Equal(t, []string{""}, SplitLines("\n"))
	assert.Equal(t, []string{"a", "b"}, SplitLines("a\nb\n"))
	assert.Equal(t, []string{"a", "b"}, SplitLines("a\nb"))
}
