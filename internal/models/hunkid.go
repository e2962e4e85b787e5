package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// HunkID identifies one hunk within one file at capture time.
// Format: <path>:<index>
type HunkID struct {
	Path  string `json:"path"`
	Index int    `json:"index"`
}

func (id HunkID) String() string {
	return fmt.Sprintf("%s:%d", id.Path, id.Index)
}

// ParseHunkID parses a "path:index" identifier.
// The last colon separates the index so paths may contain colons.
func ParseHunkID(s string) (HunkID, error) {
	sep := strings.LastIndex(s, ":")
	if sep < 0 {
		return HunkID{}, &InvalidHunkIDError{Value: s, Reason: "missing ':' separator"}
	}

	path, num := s[:sep], s[sep+1:]
	if path == "" {
		return HunkID{}, &InvalidHunkIDError{Value: s, Reason: "empty path"}
	}

	index, err := strconv.Atoi(num)
	if err != nil {
		return HunkID{}, &InvalidHunkIDError{Value: s, Reason: fmt.Sprintf("invalid hunk index %q", num)}
	}
	if index < 0 {
		return HunkID{}, &InvalidHunkIDError{Value: s, Reason: "hunk index must not be negative"}
	}

	return HunkID{Path: path, Index: index}, nil
}

// ParseHunkIDs parses a list of identifiers, failing on the first malformed one
func ParseHunkIDs(values []string) ([]HunkID, error) {
	ids := make([]HunkID, 0, len(values))
	for _, v := range values {
		id, err := ParseHunkID(v)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// GroupHunkIDs groups indices by path, keeping first-seen path order and
// dropping duplicates
func GroupHunkIDs(ids []HunkID) (paths []string, byPath map[string][]int) {
	byPath = make(map[string][]int)
	seen := make(map[HunkID]bool)
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := byPath[id.Path]; !ok {
			paths = append(paths, id.Path)
		}
		byPath[id.Path] = append(byPath[id.Path], id.Index)
	}
	for _, p := range paths {
		sort.Ints(byPath[p])
	}
	return paths, byPath
}
