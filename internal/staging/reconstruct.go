package staging

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pders01/git-splice/internal/capture"
	"github.com/pders01/git-splice/internal/models"
)

// Selection is the set of diff lines to apply
type Selection map[models.DiffLinePosition]bool

// NewSelection collects the addition and deletion positions of hunks
func NewSelection(hunks ...models.Hunk) Selection {
	s := make(Selection)
	for _, h := range hunks {
		for _, l := range h.Changes() {
			s[l.Position] = true
		}
	}
	return s
}

// Reconstruct replays hunks over the old file content, applying only the
// selected lines. Unselected deletions and context are kept from the old
// content and unselected additions are dropped, so the result is the old
// file with exactly the selected changes.
func Reconstruct(oldContent string, hunks []models.Hunk, selected Selection) (string, error) {
	r := &rebuilder{
		old:    capture.SplitLines(oldContent),
		oldEOL: oldContent == "" || strings.HasSuffix(oldContent, "\n"),
	}

	ordered := append([]models.Hunk(nil), hunks...)
	models.SortHunksByOldStart(ordered)

	active := false
	for _, h := range ordered {
		if !active {
			active = touches(h, selected)
		}
		if !active {
			continue
		}

		// a hunk without old lines inserts after OldStart
		through := h.Header.OldStart - 1
		if h.Header.OldLines == 0 {
			through = h.Header.OldStart
		}
		r.catchUp(through)

		for i, l := range h.Lines {
			if l.Type == models.LineNoNewline || l.Type == models.LineHeader {
				continue
			}

			if selected[l.Position] {
				switch l.Type {
				case models.LineAdd:
					r.emit(l.Raw, !missingNewline(h.Lines, i))
				case models.LineDelete:
					r.skipOld()
				default:
					r.copyOld()
				}
			} else if l.Type != models.LineAdd {
				r.copyOld()
			}
		}

		if r.err != nil {
			return "", errors.Wrapf(r.err, "hunk at old line %d", h.Header.OldStart)
		}
	}

	return r.finish(), nil
}

// missingNewline reports whether line i is followed by the no-newline marker
func missingNewline(lines []models.DiffLine, i int) bool {
	return i+1 < len(lines) && lines[i+1].Type == models.LineNoNewline
}

func touches(h models.Hunk, selected Selection) bool {
	for _, l := range h.Lines {
		if selected[l.Position] {
			return true
		}
	}
	return false
}

type rebuilder struct {
	old    []string
	oldEOL bool
	cursor int
	lines  []string
	// eol is whether the last emitted line ends with a newline
	eol    bool
	err    error
}

func (r *rebuilder) emit(line string, eol bool) {
	r.lines = append(r.lines, line)
	r.eol = eol
}

func (r *rebuilder) skipOld() {
	if r.cursor >= len(r.old) {
		r.fail()
		return
	}
	r.cursor++
}

func (r *rebuilder) copyOld() {
	if r.cursor >= len(r.old) {
		r.fail()
		return
	}
	r.emit(r.old[r.cursor], r.cursor < len(r.old)-1 || r.oldEOL)
	r.cursor++
}

// catchUp copies unchanged old lines until the cursor has passed line n
func (r *rebuilder) catchUp(n int) {
	for r.cursor < n && r.err == nil {
		r.copyOld()
	}
}

func (r *rebuilder) fail() {
	if r.err == nil {
		r.err = errors.Newf("diff runs past end of old content (%d lines)", len(r.old))
	}
}

func (r *rebuilder) finish() string {
	if r.cursor < len(r.old) {
		r.lines = append(r.lines, r.old[r.cursor:]...)
		r.eol = r.oldEOL
	}
	if len(r.lines) == 0 {
		return ""
	}
	out := strings.Join(r.lines, "\n")
	if r.eol {
		out += "\n"
	}
	return out
}
