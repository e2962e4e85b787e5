package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alpkeskin/gotoon"
	"github.com/pders01/git-splice/internal/config"
	"github.com/pders01/git-splice/internal/git"
	"github.com/pders01/git-splice/internal/models"
	"github.com/pders01/git-splice/internal/plan"
	"github.com/pders01/git-splice/internal/staging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	applyMode     string
	applyStrategy string
	applyContext  int
	applyMatch    string
	applyContinue bool
	applyRollback bool
	applyJSON     bool
	applyToon     bool
)

var applyCmd = &cobra.Command{
	Use:   "apply <plan-file>",
	Short: "Apply a commit plan to the working tree",
	Long: `Capture the current changes and create one commit per entry of the plan.

The plan is a YAML or JSON file ("-" reads stdin):

  mode: hunks
  commits:
    - message: "fix: handle empty input"
      hunk_ids: ["src/parse.go:0", "src/parse.go:2"]
    - prefix: feat
      scope: cli
      header: add --json flag
      files: ["cmd/list.go"]

Modes:
  hunks - stage the named hunks line by line (files are staged whole)
  files - stage whole files per commit (default)
  all   - stage everything into a single commit

Commits run in order. The run stops at the first failed commit unless
--continue is set. Changes no commit consumed are listed as not applied.`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().StringVar(&applyMode, "mode", "", "Staging mode: hunks|files|all (overrides the plan)")
	applyCmd.Flags().StringVar(&applyStrategy, "strategy", "", "Diff strategy: index-workdir|head-index|head-workdir")
	applyCmd.Flags().IntVarP(&applyContext, "context", "U", -1, "Context lines around each hunk")
	applyCmd.Flags().StringVar(&applyMatch, "match", "", "Hunk match policy: first|unique")
	applyCmd.Flags().BoolVar(&applyContinue, "continue", false, "Keep applying commits after a failure")
	applyCmd.Flags().BoolVar(&applyRollback, "rollback", false, "Restore the index when a commit fails")
	applyCmd.Flags().BoolVar(&applyJSON, "json", false, "Output as JSON")
	applyCmd.Flags().BoolVar(&applyToon, "toon", false, "Output in LLM-friendly toon format")
}

type applyOutput struct {
	Report  *models.PlanReport  `json:"report"`
	Commits []git.CommitSummary `json:"commits,omitempty"`
}

func runApply(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := context.Background()

	repo, err := git.Open(".", git.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("not a git repository: %w", err)
	}

	p, err := plan.Load(args[0], config.GetMessageStyle())
	if err != nil {
		return err
	}

	mode := resolveMode(p)
	if !mode.IsValid() {
		return fmt.Errorf("invalid mode: %s (must be: hunks, files, all)", mode)
	}

	snapshot, err := captureSnapshot(ctx, repo, applyStrategy, applyContext, nil, logger)
	if err != nil {
		return err
	}
	if snapshot.IsEmpty() {
		fmt.Println("No changes to commit")
		return nil
	}

	policy := staging.MatchPolicy(applyMatch)
	if policy == "" {
		policy = config.GetMatchPolicy()
	}

	coordinator, err := staging.NewCoordinator(repo, snapshot, mode,
		staging.WithMatchPolicy(policy),
		staging.WithRollback(applyRollback || config.GetRollbackOnFailure()),
		staging.WithContinueOnError(applyContinue || config.GetContinueOnError()),
		staging.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	report, applyErr := coordinator.Apply(ctx, p.Commits)
	if report == nil {
		return applyErr
	}

	out := applyOutput{Report: report}
	if ids := report.Committed(); len(ids) > 0 {
		summaries, err := git.CommitSummaries(repo.Dir, ids...)
		if err != nil {
			logger.Warn("failed to read created commits", zap.Error(err))
		}
		out.Commits = summaries
	}

	if err := printApplyOutput(out); err != nil {
		return err
	}

	if applyErr != nil {
		return fmt.Errorf("plan not fully applied: %w", applyErr)
	}
	return nil
}

func resolveMode(p *models.CommitPlan) models.StagingMode {
	if applyMode != "" {
		return models.StagingMode(applyMode)
	}
	if p.Mode != "" {
		return p.Mode
	}
	return config.GetStagingMode()
}

func printApplyOutput(out applyOutput) error {
	if applyJSON {
		output, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if applyToon {
		output, err := gotoon.Encode(out)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Println(output)
		return nil
	}

	stats := make(map[string]git.CommitSummary, len(out.Commits))
	for _, s := range out.Commits {
		stats[s.ID] = s
	}

	fmt.Printf("Applied plan (%s mode)\n\n", out.Report.Mode)
	for _, res := range out.Report.Results {
		switch res.State {
		case models.StateCommitted:
			fmt.Printf("✓ %s %s\n", shortID(res.CommitID), res.Subject())
			for _, f := range stats[res.CommitID].Files {
				fmt.Printf("    %s (+%d -%d)\n", f.Path, f.Additions, f.Deletions)
			}
		case models.StateFailed:
			fmt.Printf("✗ %s\n    %s\n", res.Subject(), res.Error)
		default:
			fmt.Printf("- %s (not attempted)\n", res.Subject())
		}
	}

	if len(out.Report.Unapplied) > 0 {
		fmt.Println("\nNot applied:")
		for _, u := range out.Report.Unapplied {
			fmt.Printf("  %s\n", u)
		}
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
