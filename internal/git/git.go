package git

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pders01/git-splice/internal/models"
	"go.uber.org/zap"
)

// EmptyTree is the id of the tree with no entries
const EmptyTree = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// CommandError carries the output of a failed git invocation
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// ExitCode returns the exit status of git, or -1 if it did not run
func (e *CommandError) ExitCode() int {
	var exitErr *exec.ExitError
	if errors.As(e.Err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// Repo runs git plumbing against one working tree
type Repo struct {
	Dir    string
	logger *zap.Logger
}

// Option configures a Repo
type Option func(*Repo)

// WithLogger sets the logger used for command tracing
func WithLogger(logger *zap.Logger) Option {
	return func(r *Repo) { r.logger = logger }
}

// Open resolves the top level of the working tree containing dir
func Open(dir string, opts ...Option) (*Repo, error) {
	r := &Repo{Dir: dir, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}

	out, err := r.run(context.Background(), nil, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, backendErr("rev-parse", "", err)
	}
	r.Dir = strings.TrimSpace(string(out))
	return r, nil
}

// IsGitRepo checks if current directory is a git repository
func IsGitRepo() bool {
	cmd := exec.Command("git", "rev-parse", "--git-dir")
	return cmd.Run() == nil
}

func (r *Repo) run(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Dir
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("git", zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		return nil, &CommandError{Args: args, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return stdout.Bytes(), nil
}

func backendErr(op, path string, err error) error {
	return &models.BackendError{Op: op, Path: path, Err: err}
}

// CurrentBranch returns the current branch name
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	out, err := r.run(ctx, nil, "symbolic-ref", "--short", "-q", "HEAD")
	if err != nil {
		return "", backendErr("symbolic-ref", "", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// HeadCommit returns the commit HEAD points to, or "" on an unborn branch
func (r *Repo) HeadCommit(ctx context.Context) (string, error) {
	out, err := r.run(ctx, nil, "rev-parse", "-q", "--verify", "HEAD^{commit}")
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && cmdErr.ExitCode() == 1 {
			return "", nil
		}
		return "", backendErr("rev-parse", "HEAD", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// HasUncommittedChanges checks if there are uncommitted changes
func (r *Repo) HasUncommittedChanges(ctx context.Context) (bool, error) {
	out, err := r.run(ctx, nil, "status", "--porcelain")
	if err != nil {
		return false, backendErr("status", "", err)
	}
	return len(strings.TrimSpace(string(out))) > 0, nil
}

// DiffOptions narrows a diff
type DiffOptions struct {
	Paths        []string
	ContextLines int
}

// Diff returns the unified patch for the given comparison
func (r *Repo) Diff(ctx context.Context, strategy models.DiffStrategy, opts DiffOptions) (string, error) {
	args := []string{
		"-c", "core.quotepath=off",
		"diff", "--no-color", "--no-ext-diff", "--no-textconv", "--no-renames",
		"--src-prefix=a/", "--dst-prefix=b/",
		fmt.Sprintf("--unified=%d", opts.ContextLines),
	}

	switch strategy {
	case models.StrategyIndexToWorkdir:
	case models.StrategyHeadToIndex, models.StrategyHeadToWorkdir:
		base, err := r.HeadCommit(ctx)
		if err != nil {
			return "", err
		}
		if base == "" {
			base = EmptyTree
		}
		if strategy == models.StrategyHeadToIndex {
			args = append(args, "--cached")
		}
		args = append(args, base)
	default:
		return "", errors.Newf("unknown diff strategy: %s", strategy)
	}

	args = append(args, "--")
	args = append(args, opts.Paths...)

	out, err := r.run(ctx, nil, args...)
	if err != nil {
		return "", backendErr("diff", strings.Join(opts.Paths, " "), err)
	}
	return string(out), nil
}

// Untracked lists untracked, non-ignored files under the given paths
func (r *Repo) Untracked(ctx context.Context, paths []string) ([]string, error) {
	args := append([]string{"ls-files", "--others", "--exclude-standard", "-z", "--"}, paths...)
	out, err := r.run(ctx, nil, args...)
	if err != nil {
		return nil, backendErr("ls-files", "", err)
	}
	return splitNul(out), nil
}

// ReadWorkFile returns the working tree content of a path.
// A symlink yields its target, the way git stores it.
func (r *Repo) ReadWorkFile(path string) ([]byte, error) {
	full := filepath.Join(r.Dir, path)
	info, err := os.Lstat(full)
	if err != nil {
		return nil, backendErr("read", path, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(full)
		if err != nil {
			return nil, backendErr("readlink", path, err)
		}
		return []byte(target), nil
	}
	content, err := os.ReadFile(full)
	if err != nil {
		return nil, backendErr("read", path, err)
	}
	return content, nil
}

// IndexEntry is the stage-0 index record of a path
type IndexEntry struct {
	Mode string
	ID   string
	Path string
}

// IndexEntry looks up a path in the index
func (r *Repo) IndexEntry(ctx context.Context, path string) (IndexEntry, error) {
	out, err := r.run(ctx, nil, "ls-files", "-s", "-z", "--", path)
	if err != nil {
		return IndexEntry{}, backendErr("ls-files", path, err)
	}

	for _, rec := range splitNul(out) {
		// <mode> <object> <stage>\t<path>
		meta, name, ok := strings.Cut(rec, "\t")
		if !ok || name != path {
			continue
		}
		fields := strings.Fields(meta)
		if len(fields) != 3 || fields[2] != "0" {
			continue
		}
		return IndexEntry{Mode: fields[0], ID: fields[1], Path: name}, nil
	}
	return IndexEntry{}, backendErr("ls-files", path, errors.New("path is not in the index"))
}

// ReadBlob returns the raw content of a blob
func (r *Repo) ReadBlob(ctx context.Context, id string) ([]byte, error) {
	out, err := r.run(ctx, nil, "cat-file", "blob", id)
	if err != nil {
		return nil, backendErr("cat-file", id, err)
	}
	return out, nil
}

// IndexedContent returns the content of the blob the index holds for path
func (r *Repo) IndexedContent(ctx context.Context, path string) ([]byte, IndexEntry, error) {
	entry, err := r.IndexEntry(ctx, path)
	if err != nil {
		return nil, IndexEntry{}, err
	}
	content, err := r.ReadBlob(ctx, entry.ID)
	if err != nil {
		return nil, IndexEntry{}, err
	}
	return content, entry, nil
}

// WriteBlob stores content in the object database without applying filters
func (r *Repo) WriteBlob(ctx context.Context, content []byte) (string, error) {
	out, err := r.run(ctx, content, "hash-object", "-w", "--stdin")
	if err != nil {
		return "", backendErr("hash-object", "", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// UpdateIndexEntry points the index entry for path at a blob
func (r *Repo) UpdateIndexEntry(ctx context.Context, path, mode, id string) error {
	info := fmt.Sprintf("%s,%s,%s", mode, id, path)
	if _, err := r.run(ctx, nil, "update-index", "--cacheinfo", info); err != nil {
		return backendErr("update-index", path, err)
	}
	return nil
}

// StagePaths stages the working tree state of whole paths, including removals
func (r *Repo) StagePaths(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	args := append([]string{"add", "-A", "--"}, paths...)
	if _, err := r.run(ctx, nil, args...); err != nil {
		return backendErr("add", strings.Join(paths, " "), err)
	}
	return nil
}

// WriteTree writes the index as a tree object
func (r *Repo) WriteTree(ctx context.Context) (string, error) {
	out, err := r.run(ctx, nil, "write-tree")
	if err != nil {
		return "", backendErr("write-tree", "", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// ReadTree replaces the index with the content of a tree
func (r *Repo) ReadTree(ctx context.Context, tree string) error {
	if _, err := r.run(ctx, nil, "read-tree", tree); err != nil {
		return backendErr("read-tree", tree, err)
	}
	return nil
}

// ResetIndex points the index back at HEAD, or empties it on an unborn
// branch. The working tree is left alone.
func (r *Repo) ResetIndex(ctx context.Context) error {
	head, err := r.HeadCommit(ctx)
	if err != nil {
		return err
	}
	args := []string{"read-tree", "--empty"}
	if head != "" {
		args = []string{"read-tree", head}
	}
	if _, err := r.run(ctx, nil, args...); err != nil {
		return backendErr("read-tree", head, err)
	}
	return nil
}

// CommitIndex creates a commit from the current index on top of HEAD and
// advances HEAD to it
func (r *Repo) CommitIndex(ctx context.Context, message string) (string, error) {
	tree, err := r.WriteTree(ctx)
	if err != nil {
		return "", err
	}

	parent, err := r.HeadCommit(ctx)
	if err != nil {
		return "", err
	}

	args := []string{"commit-tree", tree}
	if parent != "" {
		args = append(args, "-p", parent)
	}
	args = append(args, "-F", "-")

	out, err := r.run(ctx, []byte(message), args...)
	if err != nil {
		return "", backendErr("commit-tree", "", err)
	}
	id := strings.TrimSpace(string(out))

	subject, _, _ := strings.Cut(message, "\n")
	refArgs := []string{"update-ref", "-m", "commit: " + subject, "HEAD", id}
	if parent != "" {
		refArgs = append(refArgs, parent)
	}
	if _, err := r.run(ctx, nil, refArgs...); err != nil {
		return "", backendErr("update-ref", "HEAD", err)
	}

	r.logger.Debug("created commit", zap.String("id", id), zap.String("tree", tree))
	return id, nil
}

func splitNul(out []byte) []string {
	var items []string
	for _, item := range strings.Split(string(out), "\x00") {
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
