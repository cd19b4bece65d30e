package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/examkit/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "examkit",
	Short: "Exam and training sessions over a multiple-choice question bank",
	Long: "examkit builds tests, exams and trainers from a question bank, tracks answers " +
		"under mistake and time limits, and records each learner's mistakes and passes.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides EXAMKIT_DB env var)")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory with export files and progress (overrides EXAMKIT_DATA_DIR env var)")
	rootCmd.PersistentFlags().String("user", "", "Learner id (overrides EXAMKIT_USER env var)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(answerCmd)
	rootCmd.AddCommand(gotoCmd)
	rootCmd.AddCommand(finishCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(topicsCmd)
	rootCmd.AddCommand(theoryCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveConfig reads the environment, then applies persistent flags,
// which take priority.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return cfg, err
	}

	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v, _ := cmd.Flags().GetString("db"); v != "" {
		cfg.DBPath = v
	}
	if v, _ := cmd.Flags().GetString("user"); v != "" {
		cfg.UserID = v
	}
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Resolve(); err != nil {
		return cfg, fmt.Errorf("resolve paths: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger writes text logs to stderr at the configured level.
func newLogger(cfg config.Config) *slog.Logger {
	lvl, _ := config.ParseLevel(cfg.LogLevel)
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
