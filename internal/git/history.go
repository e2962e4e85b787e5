package git

import (
	"strings"

	"github.com/cockroachdb/errors"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// FileStat is the line count change of one file in a commit
type FileStat struct {
	Path      string `json:"path"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// CommitSummary describes a commit created by a plan run
type CommitSummary struct {
	ID      string     `json:"id"`
	Subject string     `json:"subject"`
	Files   []FileStat `json:"files"`
}

// CommitSummaries reads commits back from the object store
func CommitSummaries(dir string, ids ...string) ([]CommitSummary, error) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open repository at %s", dir)
	}

	summaries := make([]CommitSummary, 0, len(ids))
	for _, id := range ids {
		commit, err := repo.CommitObject(plumbing.NewHash(id))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read commit %s", id)
		}

		stats, err := commit.Stats()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to compute stats for %s", id)
		}

		subject, _, _ := strings.Cut(commit.Message, "\n")
		summary := CommitSummary{ID: id, Subject: subject}
		for _, s := range stats {
			summary.Files = append(summary.Files, FileStat{
				Path:      s.Name,
				Additions: s.Addition,
				Deletions: s.Deletion,
			})
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}
