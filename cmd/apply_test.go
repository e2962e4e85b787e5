package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pders01/git-splice/internal/testutil"
)

func resetApplyFlags() {
	applyMode = ""
	applyStrategy = ""
	applyContext = -1
	applyMatch = ""
	applyContinue = false
	applyRollback = false
	applyJSON = false
	applyToon = false
}

func writePlan(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write plan: %v", err)
	}
	return path
}

func TestApplyHunkPlan(t *testing.T) {
	repo := testutil.NewTempGitRepo(t)
	defer repo.Cleanup()

	oldWd, _ := os.Getwd()
	os.Chdir(repo.Path)
	defer os.Chdir(oldWd)

	repo.CreateFile("list.txt", "a\nb\nc\nd\ne\nf\ng\nh\ni\nj\n")
	repo.Commit("add list")
	repo.CreateFile("list.txt", "A\nb\nc\nd\ne\nf\ng\nh\ni\nJ\n")
	repo.CreateFile("notes.txt", "todo\n")

	plan := writePlan(t, `mode: hunks
commits:
  - prefix: fix
    header: uppercase last entry
    hunk_ids: ["list.txt:1"]
  - message: "fix: uppercase first entry"
    hunk_ids: ["list.txt:0"]
`)

	resetApplyFlags()
	defer resetApplyFlags()
	if err := runApply(nil, []string{plan}); err != nil {
		t.Fatalf("apply command failed: %v", err)
	}

	subjects := repo.Subjects(2)
	if len(subjects) != 2 || subjects[0] != "fix: uppercase first entry" || subjects[1] != "fix: uppercase last entry" {
		t.Errorf("unexpected commits: %v", subjects)
	}

	if got := repo.GetFileContent("HEAD~1", "list.txt"); !strings.HasPrefix(got, "a\n") || !strings.HasSuffix(got, "J\n") {
		t.Errorf("first commit should only change the last line, got %q", got)
	}

	// notes.txt was not in the plan
	if repo.FileExists("HEAD", "notes.txt") {
		t.Error("unassigned file was committed")
	}
}

func TestApplyFailedCommitReturnsError(t *testing.T) {
	repo := testutil.NewTempGitRepo(t)
	defer repo.Cleanup()

	oldWd, _ := os.Getwd()
	os.Chdir(repo.Path)
	defer os.Chdir(oldWd)

	repo.CreateFile("README.md", "# Changed\n")

	plan := writePlan(t, `commits:
  - message: "docs: missing file"
    files: [nope.txt]
  - message: "docs: readme"
    files: [README.md]
`)

	resetApplyFlags()
	applyJSON = true
	defer resetApplyFlags()

	err := runApply(nil, []string{plan})
	if err == nil {
		t.Fatal("expected error for unknown path")
	}
	if !strings.Contains(err.Error(), "nope.txt") {
		t.Errorf("error should name the path, got: %v", err)
	}

	if repo.CommitCount() != 1 {
		t.Error("no commit should be created after the first failure")
	}
}

func TestApplyContinueFlag(t *testing.T) {
	repo := testutil.NewTempGitRepo(t)
	defer repo.Cleanup()

	oldWd, _ := os.Getwd()
	os.Chdir(repo.Path)
	defer os.Chdir(oldWd)

	repo.CreateFile("README.md", "# Changed\n")

	plan := writePlan(t, `commits:
  - message: "docs: missing file"
    files: [nope.txt]
  - message: "docs: readme"
    files: [README.md]
`)

	resetApplyFlags()
	applyContinue = true
	applyMode = "files"
	defer resetApplyFlags()

	if err := runApply(nil, []string{plan}); err == nil {
		t.Fatal("expected the failed commit to be reported")
	}
	if repo.CommitCount() != 2 {
		t.Errorf("expected the second commit to be created, have %d commits", repo.CommitCount())
	}
}

func TestApplyNothingToCommit(t *testing.T) {
	repo := testutil.NewTempGitRepo(t)
	defer repo.Cleanup()

	oldWd, _ := os.Getwd()
	os.Chdir(repo.Path)
	defer os.Chdir(oldWd)

	plan := writePlan(t, "commits:\n  - message: noop\n")

	resetApplyFlags()
	if err := runApply(nil, []string{plan}); err != nil {
		t.Fatalf("apply on a clean tree should succeed: %v", err)
	}
	if repo.CommitCount() != 1 {
		t.Error("no commit expected on a clean tree")
	}
}

func TestApplyInvalidMode(t *testing.T) {
	repo := testutil.NewTempGitRepo(t)
	defer repo.Cleanup()

	oldWd, _ := os.Getwd()
	os.Chdir(repo.Path)
	defer os.Chdir(oldWd)

	plan := writePlan(t, "commits:\n  - message: noop\n")

	resetApplyFlags()
	applyMode = "patch"
	defer resetApplyFlags()

	if err := runApply(nil, []string{plan}); err == nil {
		t.Error("expected error for unknown mode")
	}
}
