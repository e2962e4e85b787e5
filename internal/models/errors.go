package models

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	// ErrInvalidPlan is returned for plans that cannot run under the chosen mode
	ErrInvalidPlan = errors.New("invalid commit plan")
	// ErrUnsupportedStrategy is returned when a diff strategy cannot serve a staging mode
	ErrUnsupportedStrategy = errors.New("diff strategy not supported for staging mode")
)

// BackendError is a failure reported by the version-control layer
type BackendError struct {
	Op   string
	Path string
	Err  error
}

func (e *BackendError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("git %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("git %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// InvalidHunkIDError is returned for identifiers not shaped like "path:index"
type InvalidHunkIDError struct {
	Value  string
	Reason string
}

func (e *InvalidHunkIDError) Error() string {
	return fmt.Sprintf("invalid hunk id %q: %s", e.Value, e.Reason)
}

// UnknownPathError is returned when a plan names a path missing from the snapshot
type UnknownPathError struct {
	Path string
}

func (e *UnknownPathError) Error() string {
	return fmt.Sprintf("path not in snapshot: %s", e.Path)
}

// UnknownHunkError is returned when a hunk index is not (or no longer) in the snapshot
type UnknownHunkError struct {
	Path      string
	HunkIndex int
}

func (e *UnknownHunkError) Error() string {
	return fmt.Sprintf("hunk not in snapshot: %s", HunkID{Path: e.Path, Index: e.HunkIndex})
}

// NoMatchingHunkError is returned when a hunk's changes no longer appear in
// the working tree diff for its file
type NoMatchingHunkError struct {
	Path      string
	HunkIndex int
}

func (e *NoMatchingHunkError) Error() string {
	return fmt.Sprintf("no matching hunk in current diff for %s", HunkID{Path: e.Path, Index: e.HunkIndex})
}

// AmbiguousMatchError is returned under the unique match policy when more
// than one regenerated hunk carries the same changes
type AmbiguousMatchError struct {
	Path       string
	HunkIndex  int
	Candidates []int
}

func (e *AmbiguousMatchError) Error() string {
	idx := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		idx[i] = fmt.Sprint(c)
	}
	return fmt.Sprintf("ambiguous match for %s: candidates %s",
		HunkID{Path: e.Path, Index: e.HunkIndex}, strings.Join(idx, ","))
}

// EmptySelectionError is returned when a hunk-mode commit selects no lines in a file
type EmptySelectionError struct {
	Path string
}

func (e *EmptySelectionError) Error() string {
	return fmt.Sprintf("no lines selected for %s", e.Path)
}

// CommitError ties a failure to the commit and hunk it happened in
type CommitError struct {
	Commit int
	Path   string
	HunkID string
	Err    error
}

func (e *CommitError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "commit %d", e.Commit+1)
	if e.HunkID != "" {
		fmt.Fprintf(&b, " (%s)", e.HunkID)
	} else if e.Path != "" {
		fmt.Fprintf(&b, " (%s)", e.Path)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *CommitError) Unwrap() error { return e.Err }
