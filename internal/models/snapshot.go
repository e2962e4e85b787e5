package models

import (
	"github.com/cockroachdb/errors"
)

// DiffStrategy selects which two states of the repository are compared
type DiffStrategy string

const (
	StrategyIndexToWorkdir DiffStrategy = "index-workdir"
	StrategyHeadToIndex    DiffStrategy = "head-index"
	StrategyHeadToWorkdir  DiffStrategy = "head-workdir"
)

// IsValid reports whether the strategy is known
func (s DiffStrategy) IsValid() bool {
	switch s {
	case StrategyIndexToWorkdir, StrategyHeadToIndex, StrategyHeadToWorkdir:
		return true
	default:
		return false
	}
}

// IncludesWorkdir reports whether the new side of the comparison is the working tree
func (s DiffStrategy) IncludesWorkdir() bool {
	return s == StrategyIndexToWorkdir || s == StrategyHeadToWorkdir
}

// DiffSnapshot is the set of changes captured at the start of a run.
// Staging consumes files and hunks from it; whatever is left at the end
// was never assigned to a commit.
type DiffSnapshot struct {
	Strategy     DiffStrategy `json:"strategy"`
	ContextLines int          `json:"context_lines"`
	Files        []*FileDiff  `json:"files"`
}

// NewDiffSnapshot builds a snapshot, rejecting duplicate paths
func NewDiffSnapshot(strategy DiffStrategy, contextLines int, files ...*FileDiff) (*DiffSnapshot, error) {
	s := &DiffSnapshot{Strategy: strategy, ContextLines: contextLines}
	for _, f := range files {
		if err := s.Add(f); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add appends a file diff; paths must be unique
func (s *DiffSnapshot) Add(f *FileDiff) error {
	if _, ok := s.File(f.Path); ok {
		return errors.Newf("duplicate path in snapshot: %s", f.Path)
	}
	s.Files = append(s.Files, f)
	return nil
}

// File looks up the diff for a path
func (s *DiffSnapshot) File(path string) (*FileDiff, bool) {
	for _, f := range s.Files {
		if f.Path == path {
			return f, true
		}
	}
	return nil, false
}

// RemoveFile drops a path from the snapshot
func (s *DiffSnapshot) RemoveFile(path string) {
	kept := s.Files[:0]
	for _, f := range s.Files {
		if f.Path != path {
			kept = append(kept, f)
		}
	}
	s.Files = kept
}

// ConsumeHunks removes hunks from a file and drops the file once it has none
// left. A file with a mode change stays behind as a whole-file leftover.
func (s *DiffSnapshot) ConsumeHunks(path string, indices ...int) {
	f, ok := s.File(path)
	if !ok {
		return
	}
	f.RemoveHunks(indices...)
	f.LineCount = CountLines(f.Hunks)
	if len(f.Hunks) == 0 && !f.ModeChanged {
		s.RemoveFile(path)
	}
}

// Paths returns the captured paths in order
func (s *DiffSnapshot) Paths() []string {
	paths := make([]string, 0, len(s.Files))
	for _, f := range s.Files {
		paths = append(paths, f.Path)
	}
	return paths
}

// IsEmpty reports whether every change has been consumed
func (s *DiffSnapshot) IsEmpty() bool {
	return len(s.Files) == 0
}

// Unapplied lists what is still left in the snapshot.
// Files without hunks (binary, empty or a pending mode change) are reported with a HunkIndex of -1.
func (s *DiffSnapshot) Unapplied() []Unapplied {
	var out []Unapplied
	for _, f := range s.Files {
		if len(f.Hunks) == 0 {
			out = append(out, Unapplied{Path: f.Path, HunkIndex: -1})
			continue
		}
		for _, h := range f.Hunks {
			out = append(out, Unapplied{Path: f.Path, HunkIndex: h.Index})
		}
	}
	return out
}

// Unapplied names a hunk that no commit in the plan consumed
type Unapplied struct {
	Path      string `json:"path"`
	HunkIndex int    `json:"hunk_index"`
}

// WholeFile reports whether the entry stands for an entire file
func (u Unapplied) WholeFile() bool {
	return u.HunkIndex < 0
}

func (u Unapplied) String() string {
	if u.WholeFile() {
		return u.Path
	}
	return HunkID{Path: u.Path, Index: u.HunkIndex}.String()
}
