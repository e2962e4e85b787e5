package config

import (
	"github.com/pders01/git-splice/internal/models"
	"github.com/pders01/git-splice/internal/plan"
	"github.com/pders01/git-splice/internal/staging"
	"github.com/spf13/viper"
)

// SetDefaults registers the default value of every key
func SetDefaults() {
	viper.SetDefault("diff.strategy", string(models.StrategyIndexToWorkdir))
	viper.SetDefault("diff.context_lines", 3)
	viper.SetDefault("diff.include_untracked", true)
	viper.SetDefault("diff.ignored_files", []string{})
	viper.SetDefault("commit.staging_mode", string(models.ModeFiles))
	viper.SetDefault("commit.capitalize_prefix", false)
	viper.SetDefault("commit.include_scope", true)
	viper.SetDefault("commit.include_breaking", true)
	viper.SetDefault("commit.breaking_symbol", "!")
	viper.SetDefault("staging.match_policy", string(staging.MatchFirst))
	viper.SetDefault("staging.rollback_on_failure", false)
	viper.SetDefault("staging.continue_on_error", false)
	viper.SetDefault("log.level", "warn")
}

// GetDiffStrategy returns the comparison used for captures
func GetDiffStrategy() models.DiffStrategy {
	return models.DiffStrategy(viper.GetString("diff.strategy"))
}

// GetContextLines returns the context width of every capture
func GetContextLines() int {
	return viper.GetInt("diff.context_lines")
}

// GetIncludeUntracked reports whether untracked files are captured
func GetIncludeUntracked() bool {
	return viper.GetBool("diff.include_untracked")
}

// GetIgnoredFiles returns paths left out of captures
func GetIgnoredFiles() []string {
	return viper.GetStringSlice("diff.ignored_files")
}

// GetStagingMode returns the default staging mode
func GetStagingMode() models.StagingMode {
	return models.StagingMode(viper.GetString("commit.staging_mode"))
}

// GetMessageStyle returns how composed commit messages are rendered
func GetMessageStyle() plan.MessageStyle {
	return plan.MessageStyle{
		CapitalizePrefix: viper.GetBool("commit.capitalize_prefix"),
		IncludeScope:     viper.GetBool("commit.include_scope"),
		IncludeBreaking:  viper.GetBool("commit.include_breaking"),
		BreakingSymbol:   viper.GetString("commit.breaking_symbol"),
	}
}

// GetMatchPolicy returns how duplicate hunks are matched
func GetMatchPolicy() staging.MatchPolicy {
	return staging.MatchPolicy(viper.GetString("staging.match_policy"))
}

// GetRollbackOnFailure reports whether the index is restored after a failed commit
func GetRollbackOnFailure() bool {
	return viper.GetBool("staging.rollback_on_failure")
}

// GetContinueOnError reports whether later commits run after a failed one
func GetContinueOnError() bool {
	return viper.GetBool("staging.continue_on_error")
}

// GetLogLevel returns the log level name
func GetLogLevel() string {
	return viper.GetString("log.level")
}
