// Package staging applies a commit plan to a repository, one commit at a
// time, staging whole files or individual hunks from a captured snapshot.
package staging

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pders01/git-splice/internal/capture"
	"github.com/pders01/git-splice/internal/git"
	"github.com/pders01/git-splice/internal/models"
	"go.uber.org/zap"
)

// Backend is the version-control surface the coordinator drives
type Backend interface {
	capture.Source
	IndexedContent(ctx context.Context, path string) ([]byte, git.IndexEntry, error)
	WriteBlob(ctx context.Context, content []byte) (string, error)
	UpdateIndexEntry(ctx context.Context, path, mode, id string) error
	StagePaths(ctx context.Context, paths ...string) error
	WriteTree(ctx context.Context) (string, error)
	ReadTree(ctx context.Context, tree string) error
	ResetIndex(ctx context.Context) error
	CommitIndex(ctx context.Context, message string) (string, error)
}

// Coordinator owns a snapshot for the length of one plan run. Commits are
// applied strictly in order since each one changes the index the next one
// is matched against.
type Coordinator struct {
	backend  Backend
	snapshot *models.DiffSnapshot
	mode     models.StagingMode

	policy          MatchPolicy
	rollback        bool
	continueOnError bool
	logger          *zap.Logger

	// unstaged is set once the index has been reset to HEAD
	unstaged bool

	// regenerate re-derives the current hunks of one path
	regenerate func(ctx context.Context, path string) ([]models.Hunk, error)
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithMatchPolicy sets how duplicate regenerated hunks are resolved
func WithMatchPolicy(p MatchPolicy) Option {
	return func(c *Coordinator) { c.policy = p }
}

// WithRollback restores the index tree when a commit fails
func WithRollback(enabled bool) Option {
	return func(c *Coordinator) { c.rollback = enabled }
}

// WithContinueOnError keeps applying later commits after a failure
func WithContinueOnError(enabled bool) Option {
	return func(c *Coordinator) { c.continueOnError = enabled }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// NewCoordinator takes ownership of snapshot; callers must not touch it
// until the run is over
func NewCoordinator(backend Backend, snapshot *models.DiffSnapshot, mode models.StagingMode, opts ...Option) (*Coordinator, error) {
	if !mode.IsValid() {
		return nil, errors.Wrapf(models.ErrInvalidPlan, "unknown staging mode %q", mode)
	}
	if snapshot.Strategy == models.StrategyHeadToIndex && mode != models.ModeAll {
		return nil, errors.Wrapf(models.ErrUnsupportedStrategy, "%s with %s", snapshot.Strategy, mode)
	}

	c := &Coordinator{
		backend:  backend,
		snapshot: snapshot,
		mode:     mode,
		policy:   MatchFirst,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if !c.policy.IsValid() {
		return nil, errors.Newf("unknown match policy %q", c.policy)
	}

	contextLines := snapshot.ContextLines
	c.regenerate = func(ctx context.Context, path string) ([]models.Hunk, error) {
		f, err := capture.CaptureFile(ctx, c.backend, path, contextLines)
		if err != nil {
			return nil, err
		}
		return f.Hunks, nil
	}
	return c, nil
}

// Snapshot returns the changes not yet committed
func (c *Coordinator) Snapshot() *models.DiffSnapshot {
	return c.snapshot
}

// Unapplied lists every hunk that no commit has consumed
func (c *Coordinator) Unapplied() []models.Unapplied {
	return c.snapshot.Unapplied()
}

// Apply runs every commit of the plan in order. By default it stops at the
// first failed commit; commits never attempted are reported as pending.
func (c *Coordinator) Apply(ctx context.Context, commits []models.CommitDescriptor) (*models.PlanReport, error) {
	if len(commits) == 0 {
		return nil, errors.Wrap(models.ErrInvalidPlan, "plan has no commits")
	}
	if c.mode == models.ModeAll && len(commits) != 1 {
		return nil, errors.Wrapf(models.ErrInvalidPlan, "mode %s takes exactly one commit, got %d", c.mode, len(commits))
	}

	report := &models.PlanReport{RunID: uuid.NewString(), Mode: c.mode}
	logger := c.logger.With(zap.String("run", report.RunID))
	logger.Info("applying plan", zap.Int("commits", len(commits)), zap.String("mode", string(c.mode)))

	var errs *multierror.Error
	stopped := false
	for i, d := range commits {
		if stopped {
			report.Results = append(report.Results, models.CommitResult{Index: i, Message: d.Message, State: models.StatePending})
			continue
		}

		res := c.ApplyCommit(ctx, i, d)
		report.Results = append(report.Results, res)
		if res.State != models.StateFailed {
			continue
		}

		logger.Warn("commit failed", zap.Int("commit", i), zap.Error(res.Err))
		errs = multierror.Append(errs, res.Err)
		if !c.continueOnError {
			stopped = true
		}
	}

	report.Unapplied = c.snapshot.Unapplied()
	if len(report.Unapplied) > 0 {
		logger.Info("changes left unapplied", zap.Int("hunks", len(report.Unapplied)))
	}

	if errs == nil {
		return report, nil
	}
	if len(errs.Errors) == 1 {
		return report, errs.Errors[0]
	}
	return report, errs.ErrorOrNil()
}

// consumption is what a staged commit takes out of the snapshot
type consumption struct {
	path  string
	whole bool
	hunks []int
}

// ApplyCommit stages and commits one descriptor. The snapshot only gives up
// the consumed files and hunks once the commit object exists, so a failed
// commit leaves them available for a retry.
func (c *Coordinator) ApplyCommit(ctx context.Context, index int, d models.CommitDescriptor) models.CommitResult {
	res := models.CommitResult{Index: index, Message: d.Message, State: models.StatePending}
	logger := c.logger.With(zap.Int("commit", index))

	fail := func(err error) models.CommitResult {
		var commitErr *models.CommitError
		if !errors.As(err, &commitErr) {
			err = &models.CommitError{Commit: index, Err: err}
		}
		res.State = models.StateFailed
		res.Err = err
		res.Error = err.Error()
		return res
	}

	if strings.TrimSpace(d.Message) == "" {
		return fail(errors.Wrap(models.ErrInvalidPlan, "empty commit message"))
	}

	if err := c.unstage(ctx, logger); err != nil {
		return fail(err)
	}

	var checkpoint string
	if c.rollback {
		tree, err := c.backend.WriteTree(ctx)
		if err != nil {
			return fail(err)
		}
		checkpoint = tree
	}

	consumed, err := c.stage(ctx, index, d, logger)
	if err == nil {
		res.State = models.StateStaged
		res.CommitID, err = c.backend.CommitIndex(ctx, d.Message)
	}
	if err != nil {
		if checkpoint != "" {
			if rerr := c.backend.ReadTree(ctx, checkpoint); rerr != nil {
				logger.Error("failed to restore index", zap.String("tree", checkpoint), zap.Error(rerr))
			} else {
				logger.Info("restored index", zap.String("tree", checkpoint))
			}
		}
		return fail(err)
	}

	for _, cons := range consumed {
		if cons.whole {
			c.snapshot.RemoveFile(cons.path)
		} else {
			c.snapshot.ConsumeHunks(cons.path, cons.hunks...)
		}
	}

	res.State = models.StateCommitted
	logger.Info("committed", zap.String("id", res.CommitID), zap.String("subject", res.Subject()))
	return res
}

// unstage resets the index to HEAD before the first commit of a head-workdir
// run. Hunks are re-derived against the index, so anything already staged
// would otherwise ride along in the first commit and never match again.
func (c *Coordinator) unstage(ctx context.Context, logger *zap.Logger) error {
	if c.unstaged || c.mode == models.ModeAll || c.snapshot.Strategy != models.StrategyHeadToWorkdir {
		return nil
	}
	if err := c.backend.ResetIndex(ctx); err != nil {
		return err
	}
	c.unstaged = true
	logger.Debug("reset index to HEAD")
	return nil
}

func (c *Coordinator) stage(ctx context.Context, index int, d models.CommitDescriptor, logger *zap.Logger) ([]consumption, error) {
	wrap := func(path, hunkID string, err error) error {
		return &models.CommitError{Commit: index, Path: path, HunkID: hunkID, Err: err}
	}

	switch c.mode {
	case models.ModeAll:
		paths := c.snapshot.Paths()
		// a staged-only snapshot is already in the index
		if c.snapshot.Strategy != models.StrategyHeadToIndex {
			if err := c.backend.StagePaths(ctx, paths...); err != nil {
				return nil, wrap("", "", err)
			}
		}
		consumed := make([]consumption, 0, len(paths))
		for _, p := range paths {
			consumed = append(consumed, consumption{path: p, whole: true})
		}
		return consumed, nil

	case models.ModeFiles:
		ids, err := models.ParseHunkIDs(d.HunkIDs)
		if err != nil {
			return nil, wrap("", "", err)
		}
		files := append([]string(nil), d.Files...)
		idPaths, _ := models.GroupHunkIDs(ids)
		files = append(files, idPaths...)
		return c.stageFiles(ctx, dedupe(files), wrap, logger)

	default:
		ids, err := models.ParseHunkIDs(d.HunkIDs)
		if err != nil {
			return nil, wrap("", "", err)
		}
		if len(ids) == 0 && len(d.Files) == 0 {
			return nil, wrap("", "", errors.Wrap(models.ErrInvalidPlan, "commit names no files or hunks"))
		}

		files := dedupe(d.Files)
		consumed, err := c.stageFiles(ctx, files, wrap, logger)
		if err != nil {
			return nil, err
		}

		whole := make(map[string]bool, len(files))
		for _, f := range files {
			whole[f] = true
		}

		paths, byPath := models.GroupHunkIDs(ids)
		for _, p := range paths {
			if whole[p] {
				continue
			}
			cons, err := c.stageHunks(ctx, p, byPath[p], wrap, logger)
			if err != nil {
				return nil, err
			}
			consumed = append(consumed, cons)
		}
		return consumed, nil
	}
}

func (c *Coordinator) stageFiles(ctx context.Context, paths []string, wrap func(string, string, error) error, logger *zap.Logger) ([]consumption, error) {
	consumed := make([]consumption, 0, len(paths))
	for _, p := range paths {
		if _, ok := c.snapshot.File(p); !ok {
			return nil, wrap(p, "", &models.UnknownPathError{Path: p})
		}
		if err := c.backend.StagePaths(ctx, p); err != nil {
			return nil, wrap(p, "", err)
		}
		logger.Debug("staged file", zap.String("path", p))
		consumed = append(consumed, consumption{path: p, whole: true})
	}
	return consumed, nil
}

func (c *Coordinator) stageHunks(ctx context.Context, path string, indices []int, wrap func(string, string, error) error, logger *zap.Logger) (consumption, error) {
	f, ok := c.snapshot.File(path)
	if !ok {
		return consumption{}, wrap(path, "", &models.UnknownPathError{Path: path})
	}

	// hunk selection needs a prior version to select against
	if f.WholeFileOnly() {
		if err := c.backend.StagePaths(ctx, path); err != nil {
			return consumption{}, wrap(path, "", err)
		}
		logger.Debug("staged whole file", zap.String("path", path),
			zap.Bool("untracked", f.Untracked), zap.Bool("deleted", f.Deleted), zap.Bool("binary", f.Binary))
		return consumption{path: path, whole: true}, nil
	}

	targets := make([]models.Hunk, 0, len(indices))
	for _, i := range indices {
		h, ok := f.Hunk(i)
		if !ok {
			return consumption{}, wrap(path, hunkID(path, i), &models.UnknownHunkError{Path: path, HunkIndex: i})
		}
		targets = append(targets, h)
	}

	regenerated, err := c.regenerate(ctx, path)
	if err != nil {
		return consumption{}, wrap(path, "", err)
	}

	matched, err := matchHunks(path, targets, regenerated, c.policy)
	if err != nil {
		return consumption{}, wrap(path, failedHunkID(err), err)
	}

	selected := NewSelection(matched...)
	if len(selected) == 0 {
		return consumption{}, wrap(path, "", &models.EmptySelectionError{Path: path})
	}

	old, entry, err := c.backend.IndexedContent(ctx, path)
	if err != nil {
		return consumption{}, wrap(path, "", err)
	}

	content, err := Reconstruct(string(old), regenerated, selected)
	if err != nil {
		return consumption{}, wrap(path, "", err)
	}

	blob, err := c.backend.WriteBlob(ctx, []byte(content))
	if err != nil {
		return consumption{}, wrap(path, "", err)
	}
	if err := c.backend.UpdateIndexEntry(ctx, path, entry.Mode, blob); err != nil {
		return consumption{}, wrap(path, "", err)
	}

	logger.Debug("staged hunks",
		zap.String("path", path),
		zap.Ints("hunks", indices),
		zap.Int("lines", len(selected)),
		zap.String("blob", blob),
	)
	return consumption{path: path, hunks: indices}, nil
}

func hunkID(path string, index int) string {
	return models.HunkID{Path: path, Index: index}.String()
}

func failedHunkID(err error) string {
	var noMatch *models.NoMatchingHunkError
	if errors.As(err, &noMatch) {
		return hunkID(noMatch.Path, noMatch.HunkIndex)
	}
	var ambiguous *models.AmbiguousMatchError
	if errors.As(err, &ambiguous) {
		return hunkID(ambiguous.Path, ambiguous.HunkIndex)
	}
	return ""
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}
