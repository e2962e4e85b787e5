package staging

import (
	"github.com/pders01/git-splice/internal/models"
)

// MatchPolicy decides what happens when several regenerated hunks carry
// the same changes
type MatchPolicy string

const (
	// MatchFirst picks the first unused candidate
	MatchFirst MatchPolicy = "first"
	// MatchUnique fails unless exactly one unused candidate matches
	MatchUnique MatchPolicy = "unique"
)

// IsValid reports whether the policy is known
func (p MatchPolicy) IsValid() bool {
	return p == MatchFirst || p == MatchUnique
}

// MatchHunk finds the candidate whose additions and deletions equal those
// of target, skipping candidates already used in this pass. Context lines
// are not compared.
func MatchHunk(target models.Hunk, candidates []models.Hunk, used map[int]bool) (int, bool) {
	for i, c := range candidates {
		if used[i] {
			continue
		}
		if target.SameChanges(c) {
			return i, true
		}
	}
	return -1, false
}

// matchAll returns every unused candidate matching target
func matchAll(target models.Hunk, candidates []models.Hunk, used map[int]bool) []int {
	var found []int
	for i, c := range candidates {
		if !used[i] && target.SameChanges(c) {
			found = append(found, i)
		}
	}
	return found
}

// matchHunks maps each requested captured hunk to a distinct regenerated
// hunk, in the order given
func matchHunks(path string, targets []models.Hunk, candidates []models.Hunk, policy MatchPolicy) ([]models.Hunk, error) {
	used := make(map[int]bool, len(targets))
	matched := make([]models.Hunk, 0, len(targets))

	for _, target := range targets {
		var idx int
		switch policy {
		case MatchUnique:
			found := matchAll(target, candidates, used)
			if len(found) > 1 {
				return nil, &models.AmbiguousMatchError{Path: path, HunkIndex: target.Index, Candidates: found}
			}
			if len(found) == 0 {
				return nil, &models.NoMatchingHunkError{Path: path, HunkIndex: target.Index}
			}
			idx = found[0]
		default:
			var ok bool
			idx, ok = MatchHunk(target, candidates, used)
			if !ok {
				return nil, &models.NoMatchingHunkError{Path: path, HunkIndex: target.Index}
			}
		}
		used[idx] = true
		matched = append(matched, candidates[idx])
	}

	return matched, nil
}
