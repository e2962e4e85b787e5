// Package capture turns the output of git diff into an addressable
// snapshot of files, hunks and lines.
package capture

import (
	"bytes"
	"context"
	"path"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
	"github.com/cockroachdb/errors"
	"github.com/pders01/git-splice/internal/git"
	"github.com/pders01/git-splice/internal/models"
	"go.uber.org/zap"
)

// DefaultContextLines is the context width of every capture unless configured
const DefaultContextLines = 3

const noNewlineMarker = `\ No newline at end of file`

// Source produces raw diffs and working tree content
type Source interface {
	Diff(ctx context.Context, strategy models.DiffStrategy, opts git.DiffOptions) (string, error)
	Untracked(ctx context.Context, paths []string) ([]string, error)
	ReadWorkFile(path string) ([]byte, error)
}

// Options controls a capture
type Options struct {
	Strategy         models.DiffStrategy
	ContextLines     int
	IncludeUntracked bool
	// Ignored holds paths, directories or glob patterns left out of the snapshot
	Ignored []string
	// Paths restricts the capture; empty means the whole tree
	Paths  []string
	Logger *zap.Logger
}

// Capture builds a snapshot of the changes selected by opts
func Capture(ctx context.Context, src Source, opts Options) (*models.DiffSnapshot, error) {
	if opts.Strategy == "" {
		opts.Strategy = models.StrategyIndexToWorkdir
	}
	if !opts.Strategy.IsValid() {
		return nil, errors.Newf("unknown diff strategy: %s", opts.Strategy)
	}
	if opts.ContextLines < 0 {
		return nil, errors.Newf("context lines must not be negative: %d", opts.ContextLines)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	patch, err := src.Diff(ctx, opts.Strategy, git.DiffOptions{Paths: opts.Paths, ContextLines: opts.ContextLines})
	if err != nil {
		return nil, err
	}

	files, err := Parse(patch)
	if err != nil {
		return nil, err
	}

	snapshot, err := models.NewDiffSnapshot(opts.Strategy, opts.ContextLines)
	if err != nil {
		return nil, err
	}

	for _, f := range files {
		if isIgnored(f.Path, opts.Ignored) {
			logger.Debug("skipping ignored file", zap.String("path", f.Path))
			continue
		}
		if err := snapshot.Add(f); err != nil {
			return nil, err
		}
	}

	if opts.IncludeUntracked && opts.Strategy.IncludesWorkdir() {
		untracked, err := src.Untracked(ctx, opts.Paths)
		if err != nil {
			return nil, err
		}
		for _, p := range untracked {
			if isIgnored(p, opts.Ignored) {
				continue
			}
			if _, ok := snapshot.File(p); ok {
				continue
			}
			content, err := src.ReadWorkFile(p)
			if err != nil {
				return nil, err
			}
			if err := snapshot.Add(UntrackedFile(p, content)); err != nil {
				return nil, err
			}
		}
	}

	logger.Debug("captured snapshot",
		zap.String("strategy", string(opts.Strategy)),
		zap.Int("files", len(snapshot.Files)),
	)
	return snapshot, nil
}

// CaptureFile re-derives the index to working tree diff of a single path.
// It returns a FileDiff without hunks when the path has no changes left.
func CaptureFile(ctx context.Context, src Source, filePath string, contextLines int) (*models.FileDiff, error) {
	snapshot, err := Capture(ctx, src, Options{
		Strategy:     models.StrategyIndexToWorkdir,
		ContextLines: contextLines,
		Paths:        []string{filePath},
	})
	if err != nil {
		return nil, err
	}
	if f, ok := snapshot.File(filePath); ok {
		return f, nil
	}
	return &models.FileDiff{Path: filePath}, nil
}

// Parse converts a unified patch into file diffs, numbering hunks per file
func Parse(patch string) ([]*models.FileDiff, error) {
	files, _, err := gitdiff.Parse(strings.NewReader(patch))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse diff")
	}

	out := make([]*models.FileDiff, 0, len(files))
	for _, f := range files {
		name := f.NewName
		if f.IsDelete || name == "" {
			name = f.OldName
		}

		fd := &models.FileDiff{
			Path:        name,
			Untracked:   f.IsNew,
			Deleted:     f.IsDelete,
			Binary:      f.IsBinary,
			ModeChanged: !f.IsNew && !f.IsDelete &&
				f.OldMode != 0 && f.NewMode != 0 && f.OldMode != f.NewMode,
		}
		for i, frag := range f.TextFragments {
			fd.Hunks = append(fd.Hunks, convertFragment(i, frag))
		}
		fd.LineCount = models.CountLines(fd.Hunks)
		out = append(out, fd)
	}
	return out, nil
}

func convertFragment(index int, frag *gitdiff.TextFragment) models.Hunk {
	h := models.Hunk{
		Index: index,
		Header: models.HunkHeader{
			OldStart: int(frag.OldPosition),
			OldLines: int(frag.OldLines),
			NewStart: int(frag.NewPosition),
			NewLines: int(frag.NewLines),
		},
	}

	oldNo, newNo := h.Header.OldStart, h.Header.NewStart
	for _, l := range frag.Lines {
		line := models.DiffLine{
			Raw:     strings.TrimSuffix(l.Line, "\n"),
			Content: TrimNewline(l.Line),
		}

		switch l.Op {
		case gitdiff.OpAdd:
			line.Type = models.LineAdd
			line.Position = models.DiffLinePosition{New: newNo}
			newNo++
		case gitdiff.OpDelete:
			line.Type = models.LineDelete
			line.Position = models.DiffLinePosition{Old: oldNo}
			oldNo++
		default:
			line.Type = models.LineUnchanged
			line.Position = models.DiffLinePosition{Old: oldNo, New: newNo}
			oldNo++
			newNo++
		}
		h.Lines = append(h.Lines, line)

		if !strings.HasSuffix(l.Line, "\n") {
			h.Lines = append(h.Lines, noNewline())
		}
	}
	return h
}

// UntrackedFile diffs content against an empty buffer: one hunk, every line added
func UntrackedFile(filePath string, content []byte) *models.FileDiff {
	fd := &models.FileDiff{Path: filePath, Untracked: true}
	if isBinary(content) {
		fd.Binary = true
		return fd
	}

	lines := SplitLines(string(content))
	if len(lines) == 0 {
		return fd
	}

	h := models.Hunk{
		Index:  0,
		Header: models.HunkHeader{OldStart: 0, OldLines: 0, NewStart: 1, NewLines: len(lines)},
	}
	for i, l := range lines {
		h.Lines = append(h.Lines, models.DiffLine{
			Raw:      l,
			Content:  TrimNewline(l),
			Type:     models.LineAdd,
			Position: models.DiffLinePosition{New: i + 1},
		})
	}
	if !bytes.HasSuffix(content, []byte("\n")) {
		h.Lines = append(h.Lines, noNewline())
	}

	fd.Hunks = []models.Hunk{h}
	fd.LineCount = len(h.Lines)
	return fd
}

// SplitLines splits text into lines without their "\n" terminators.
// A trailing newline does not start a new line; carriage returns are kept.
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// TrimNewline strips trailing line terminators
func TrimNewline(s string) string {
	return strings.TrimRight(s, "\r\n")
}

func noNewline() models.DiffLine {
	return models.DiffLine{Type: models.LineNoNewline, Content: noNewlineMarker}
}

// isBinary applies git's heuristic: a NUL byte in the first 8000 bytes
func isBinary(content []byte) bool {
	n := len(content)
	if n > 8000 {
		n = 8000
	}
	return bytes.IndexByte(content[:n], 0) >= 0
}

func isIgnored(filePath string, ignored []string) bool {
	for _, pattern := range ignored {
		pattern = strings.TrimSuffix(pattern, "/")
		if filePath == pattern || strings.HasPrefix(filePath, pattern+"/") {
			return true
		}
		if ok, _ := path.Match(pattern, filePath); ok {
			return true
		}
		if ok, _ := path.Match(pattern, path.Base(filePath)); ok {
			return true
		}
	}
	return false
}
