package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alpkeskin/gotoon"
	"github.com/pders01/git-splice/internal/capture"
	"github.com/pders01/git-splice/internal/config"
	"github.com/pders01/git-splice/internal/git"
	"github.com/pders01/git-splice/internal/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	snapshotStrategy string
	snapshotContext  int
	snapshotJSON     bool
	snapshotToon     bool
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [paths...]",
	Short: "Show the current changes with their hunk ids",
	Long: `Capture the uncommitted changes and print every file and hunk.

Each hunk is addressed as path:index, the id a commit plan uses to assign
that hunk to a commit. Ids stay stable as long as the working tree does not
change between 'splice snapshot' and 'splice apply'.

Strategies:
  index-workdir (default) - unstaged changes and untracked files
  head-index              - staged changes only
  head-workdir            - everything since HEAD

Examples:
  splice snapshot
  splice snapshot src/ --json
  splice snapshot --toon`,
	RunE: runSnapshot,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)

	snapshotCmd.Flags().StringVar(&snapshotStrategy, "strategy", "", "Diff strategy: index-workdir|head-index|head-workdir")
	snapshotCmd.Flags().IntVarP(&snapshotContext, "context", "U", -1, "Context lines around each hunk")
	snapshotCmd.Flags().BoolVar(&snapshotJSON, "json", false, "Output as JSON")
	snapshotCmd.Flags().BoolVar(&snapshotToon, "toon", false, "Output in LLM-friendly toon format")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	repo, err := git.Open(".", git.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("not a git repository: %w", err)
	}

	snapshot, err := captureSnapshot(context.Background(), repo, snapshotStrategy, snapshotContext, args, logger)
	if err != nil {
		return err
	}

	if snapshotJSON {
		output, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if snapshotToon {
		output, err := gotoon.Encode(snapshot)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Println(output)
		return nil
	}

	if snapshot.IsEmpty() {
		fmt.Println("No changes")
		return nil
	}

	for _, f := range snapshot.Files {
		printFileDiff(f)
	}
	return nil
}

// captureSnapshot applies configured defaults to flag values and captures
func captureSnapshot(ctx context.Context, repo *git.Repo, strategy string, contextLines int, paths []string, logger *zap.Logger) (*models.DiffSnapshot, error) {
	s := models.DiffStrategy(strategy)
	if s == "" {
		s = config.GetDiffStrategy()
	}
	if !s.IsValid() {
		return nil, fmt.Errorf("invalid strategy: %s (must be: index-workdir, head-index, head-workdir)", s)
	}
	if contextLines < 0 {
		contextLines = config.GetContextLines()
	}

	snapshot, err := capture.Capture(ctx, repo, capture.Options{
		Strategy:         s,
		ContextLines:     contextLines,
		IncludeUntracked: config.GetIncludeUntracked(),
		Ignored:          config.GetIgnoredFiles(),
		Paths:            paths,
		Logger:           logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to capture changes: %w", err)
	}
	return snapshot, nil
}

func printFileDiff(f *models.FileDiff) {
	var flags string
	switch {
	case f.Untracked:
		flags = " [untracked]"
	case f.Deleted:
		flags = " [deleted]"
	}
	if f.Binary {
		flags += " [binary]"
	}

	fmt.Printf("%s%s (%d hunks)\n", f.Path, flags, len(f.Hunks))
	for _, h := range f.Hunks {
		id := models.HunkID{Path: f.Path, Index: h.Index}
		fmt.Printf("  %s  @@ -%d,%d +%d,%d @@\n", id,
			h.Header.OldStart, h.Header.OldLines, h.Header.NewStart, h.Header.NewLines)
		for _, l := range h.Lines {
			fmt.Printf("    %s%s\n", l.Type.Prefix(), l.Content)
		}
	}
	fmt.Println()
}
