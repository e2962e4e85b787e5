package models

import "strings"

// StagingMode defines how the changes of a commit are staged
type StagingMode string

const (
	// ModeHunks stages individual hunks of a file
	ModeHunks StagingMode = "hunks"
	// ModeFiles stages whole files, one group of files per commit
	ModeFiles StagingMode = "files"
	// ModeAll stages every captured change into a single commit
	ModeAll StagingMode = "all"
)

// IsValid reports whether the mode is known
func (m StagingMode) IsValid() bool {
	switch m {
	case ModeHunks, ModeFiles, ModeAll:
		return true
	default:
		return false
	}
}

// CommitDescriptor is one proposed commit
type CommitDescriptor struct {
	Message string   `json:"message" yaml:"message"`
	Files   []string `json:"files,omitempty" yaml:"files,omitempty"`
	HunkIDs []string `json:"hunk_ids,omitempty" yaml:"hunk_ids,omitempty"`
}

// CommitPlan is an ordered list of commits applied in sequence
type CommitPlan struct {
	Mode    StagingMode        `json:"mode"`
	Commits []CommitDescriptor `json:"commits"`
}

// CommitState tracks a commit through staging
type CommitState string

const (
	StatePending   CommitState = "pending"
	StateStaged    CommitState = "staged"
	StateCommitted CommitState = "committed"
	StateFailed    CommitState = "failed"
)

// CommitResult reports the outcome of one commit of a plan
type CommitResult struct {
	Index    int         `json:"index"`
	Message  string      `json:"message"`
	State    CommitState `json:"state"`
	CommitID string      `json:"commit_id,omitempty"`
	Err      error       `json:"-"`
	Error    string      `json:"error,omitempty"`
}

// Subject returns the first line of the commit message
func (r CommitResult) Subject() string {
	subject, _, _ := strings.Cut(r.Message, "\n")
	return subject
}

// PlanReport is the outcome of a whole plan run
type PlanReport struct {
	RunID     string         `json:"run_id"`
	Mode      StagingMode    `json:"mode"`
	Results   []CommitResult `json:"results"`
	Unapplied []Unapplied    `json:"unapplied"`
}

// Failed returns the results that did not end in a commit
func (r *PlanReport) Failed() []CommitResult {
	var failed []CommitResult
	for _, res := range r.Results {
		if res.State == StateFailed {
			failed = append(failed, res)
		}
	}
	return failed
}

// Committed returns the ids of the commits created, in order
func (r *PlanReport) Committed() []string {
	var ids []string
	for _, res := range r.Results {
		if res.State == StateCommitted {
			ids = append(ids, res.CommitID)
		}
	}
	return ids
}
