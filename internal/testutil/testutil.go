package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// TempGitRepo creates a temporary git repository for testing
type TempGitRepo struct {
	Path string
	T    *testing.T
}

// NewTempGitRepo creates a new temporary git repository with one commit
func NewTempGitRepo(t *testing.T) *TempGitRepo {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "splice-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	setup := [][]string{
		{"init", "-q"},
		{"config", "user.name", "Test User"},
		{"config", "user.email", "test@example.com"},
		{"config", "core.autocrlf", "false"},
		{"config", "commit.gpgsign", "false"},
	}
	for _, args := range setup {
		cmd := exec.Command("git", args...)
		cmd.Dir = tmpDir
		if err := cmd.Run(); err != nil {
			os.RemoveAll(tmpDir)
			t.Fatalf("failed to set up git repo (git %s): %v", strings.Join(args, " "), err)
		}
	}

	r := &TempGitRepo{Path: tmpDir, T: t}
	r.CreateFile("README.md", "# Test Repository\n")
	r.Commit("Initial commit")
	return r
}

// Cleanup removes the temporary git repository
func (r *TempGitRepo) Cleanup() {
	r.T.Helper()
	if err := os.RemoveAll(r.Path); err != nil {
		r.T.Errorf("failed to cleanup temp repo: %v", err)
	}
}

// Git runs a git command in the repository and returns its trimmed output
func (r *TempGitRepo) Git(args ...string) string {
	r.T.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = r.Path
	output, err := cmd.CombinedOutput()
	if err != nil {
		r.T.Fatalf("git %s failed: %v\n%s", strings.Join(args, " "), err, output)
	}
	return strings.TrimSpace(string(output))
}

// CreateFile creates or overwrites a file in the working tree
func (r *TempGitRepo) CreateFile(name, content string) {
	r.T.Helper()
	path := filepath.Join(r.Path, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		r.T.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		r.T.Fatalf("failed to create file: %v", err)
	}
}

// RemoveFile deletes a file from the working tree
func (r *TempGitRepo) RemoveFile(name string) {
	r.T.Helper()
	if err := os.Remove(filepath.Join(r.Path, name)); err != nil {
		r.T.Fatalf("failed to remove file: %v", err)
	}
}

// Commit stages and commits all changes
func (r *TempGitRepo) Commit(message string) {
	r.T.Helper()
	r.Git("add", "-A")
	r.Git("commit", "-q", "-m", message)
}

// CommitCount returns the number of commits reachable from HEAD
func (r *TempGitRepo) CommitCount() int {
	r.T.Helper()
	n, err := strconv.Atoi(r.Git("rev-list", "--count", "HEAD"))
	if err != nil {
		r.T.Fatalf("failed to count commits: %v", err)
	}
	return n
}

// FileExists checks if a file exists in a revision
func (r *TempGitRepo) FileExists(rev, file string) bool {
	r.T.Helper()

	cmd := exec.Command("git", "cat-file", "-e", rev+":"+file)
	cmd.Dir = r.Path
	return cmd.Run() == nil
}

// GetFileContent retrieves file content from a revision; "" as rev reads the index
func (r *TempGitRepo) GetFileContent(rev, file string) string {
	r.T.Helper()

	cmd := exec.Command("git", "show", rev+":"+file)
	cmd.Dir = r.Path
	output, err := cmd.Output()
	if err != nil {
		r.T.Fatalf("failed to read %s at %q: %v", file, rev, err)
	}

	return string(output)
}

// Subjects returns the subjects of the last n commits, newest first
func (r *TempGitRepo) Subjects(n int) []string {
	r.T.Helper()
	out := r.Git("log", "-n", strconv.Itoa(n), "--format=%s")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

// IsClean reports whether the working tree and index match HEAD
func (r *TempGitRepo) IsClean() bool {
	r.T.Helper()
	return r.Git("status", "--porcelain") == ""
}
