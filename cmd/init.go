package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pders01/git-splice/internal/git"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the default splice configuration",
	Long: `Write a default config file to ~/.config/splice/config.toml.

An existing config is left untouched unless --force is given. Every key can
also be set through the environment, e.g. SPLICE_DIFF_CONTEXT_LINES=5.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}

const defaultConfig = `[diff]
strategy = "index-workdir"
context_lines = 3
include_untracked = true
ignored_files = []

[commit]
staging_mode = "files"
capitalize_prefix = false
include_scope = true
include_breaking = true
breaking_symbol = "!"

[staging]
match_policy = "first"
rollback_on_failure = false
continue_on_error = false

[log]
level = "warn"
`

func runInit(cmd *cobra.Command, args []string) error {
	if !git.IsGitRepo() {
		return fmt.Errorf("not a git repository")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(home, ".config", "splice")
	configPath := filepath.Join(configDir, "config.toml")

	if _, err := os.Stat(configPath); err == nil && !initForce {
		fmt.Printf("Config already exists: %s\n", configPath)
		return nil
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0644); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	fmt.Printf("✓ Created default config: %s\n", configPath)
	fmt.Println("  Next: splice snapshot, then splice apply <plan>")
	return nil
}
