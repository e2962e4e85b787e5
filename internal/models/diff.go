package models

import "sort"

// LineType is the origin of a single diff line
type LineType int

const (
	LineUnchanged LineType = iota
	LineHeader
	LineAdd
	LineDelete
	// LineNoNewline marks that the preceding line has no trailing newline
	LineNoNewline
)

func (t LineType) String() string {
	switch t {
	case LineHeader:
		return "header"
	case LineAdd:
		return "add"
	case LineDelete:
		return "delete"
	case LineNoNewline:
		return "eofnl"
	default:
		return "unchanged"
	}
}

// MarshalText renders the line type by name
func (t LineType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Prefix returns the unified diff prefix for the line type
func (t LineType) Prefix() string {
	switch t {
	case LineAdd:
		return "+"
	case LineDelete:
		return "-"
	case LineNoNewline:
		return "\\"
	default:
		return " "
	}
}

// IsChange reports whether the line is an addition or a deletion
func (t LineType) IsChange() bool {
	return t == LineAdd || t == LineDelete
}

// DiffLinePosition anchors a line to the old and new file.
// Line numbers are 1-based; zero means the line does not exist on that side.
type DiffLinePosition struct {
	Old int `json:"old_lineno,omitempty"`
	New int `json:"new_lineno,omitempty"`
}

// HasOld reports whether the line exists in the old file
func (p DiffLinePosition) HasOld() bool { return p.Old > 0 }

// HasNew reports whether the line exists in the new file
func (p DiffLinePosition) HasNew() bool { return p.New > 0 }

// DiffLine is one line of a hunk
type DiffLine struct {
	// Content is the line text trimmed of trailing newline and carriage return
	Content  string           `json:"content"`
	Type     LineType         `json:"type"`
	Position DiffLinePosition `json:"position"`

	// Raw is the line as it appears in the file, without the trailing "\n"
	Raw string `json:"-"`
}

// HunkHeader holds the ranges that anchor a hunk at capture time
type HunkHeader struct {
	OldStart int `json:"old_start"`
	OldLines int `json:"old_lines"`
	NewStart int `json:"new_start"`
	NewLines int `json:"new_lines"`
}

// Hunk is a contiguous block of changes within one file
type Hunk struct {
	// Index is the zero-based position of the hunk in its file at capture time
	Index  int        `json:"index"`
	Header HunkHeader `json:"header"`
	Lines  []DiffLine `json:"lines"`
}

// Changes returns the addition and deletion lines of the hunk in order.
// Context lines are left out since they can shift between captures.
func (h Hunk) Changes() []DiffLine {
	var changes []DiffLine
	for _, l := range h.Lines {
		if l.Type.IsChange() {
			changes = append(changes, l)
		}
	}
	return changes
}

// SameChanges reports whether two hunks add and delete the same lines
func (h Hunk) SameChanges(other Hunk) bool {
	a, b := h.Changes(), other.Changes()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Type != b[i].Type || a[i].Content != b[i].Content {
			return false
		}
	}
	return true
}

// FileDiff describes every change to one path
type FileDiff struct {
	Path      string `json:"path"`
	Hunks     []Hunk `json:"hunks"`
	LineCount int    `json:"line_count"`
	// Untracked files have no prior version and are diffed against an empty buffer
	Untracked bool `json:"untracked,omitempty"`
	Deleted   bool `json:"deleted,omitempty"`
	Binary    bool `json:"binary,omitempty"`
	// ModeChanged files keep a pending change once every hunk is consumed,
	// since hunk staging preserves the indexed mode
	ModeChanged bool `json:"mode_changed,omitempty"`
}

// WholeFileOnly reports whether the file can only be staged as a unit
func (f *FileDiff) WholeFileOnly() bool {
	return f.Untracked || f.Deleted || f.Binary
}

// Hunk returns the hunk captured at the given index
func (f *FileDiff) Hunk(index int) (Hunk, bool) {
	for _, h := range f.Hunks {
		if h.Index == index {
			return h, true
		}
	}
	return Hunk{}, false
}

// RemoveHunks drops the hunks with the given capture indices
func (f *FileDiff) RemoveHunks(indices ...int) {
	drop := make(map[int]bool, len(indices))
	for _, i := range indices {
		drop[i] = true
	}
	kept := f.Hunks[:0]
	for _, h := range f.Hunks {
		if !drop[h.Index] {
			kept = append(kept, h)
		}
	}
	f.Hunks = kept
}

// CountLines returns the number of lines over all hunks
func CountLines(hunks []Hunk) int {
	n := 0
	for _, h := range hunks {
		n += len(h.Lines)
	}
	return n
}

// SortHunksByOldStart orders hunks the way they appear in the old file
func SortHunksByOldStart(hunks []Hunk) {
	sort.SliceStable(hunks, func(i, j int) bool {
		return hunks[i].Header.OldStart < hunks[j].Header.OldStart
	})
}
