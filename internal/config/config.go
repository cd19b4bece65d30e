// Package config resolves examkit settings from defaults and the
// environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abhisek/examkit/internal/progress"
	"github.com/abhisek/examkit/internal/store"
)

// DefaultCutoffTopic is the last topic kept from the tests export.
const DefaultCutoffTopic = "ДОДАТКОВІ ПИТАННЯ ЩОДО КАТЕГОРІЙ В1, В (БУДОВА І ТЕРМІНИ)"

// Progress backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config holds all examkit settings.
type Config struct {
	// DataDir holds the export files, database and progress records unless
	// a more specific path is set. Default: $XDG_DATA_HOME/examkit.
	DataDir string

	QuestionsPath string // Default: <DataDir>/questions_export.json
	TestsPath     string // Default: <DataDir>/tests_export.json

	// CutoffTopic truncates the tests export after the first entry with
	// this topic. Empty keeps every entry.
	CutoffTopic string

	DBPath string // Default: <DataDir>/examkit.db

	// ProgressBackend selects where progress records live.
	// Values: "file", "sqlite"
	ProgressBackend string
	ProgressDir     string // Default: <DataDir>/progress
	LockTimeout     time.Duration

	// UserID identifies the learner for CLI commands.
	UserID string

	Addr        string
	CORSOrigins []string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// DefaultConfig returns a Config with sensible defaults. Paths derived from
// DataDir are filled in by Resolve.
func DefaultConfig() Config {
	return Config{
		CutoffTopic:     DefaultCutoffTopic,
		ProgressBackend: BackendFile,
		LockTimeout:     progress.DefaultLockTimeout,
		UserID:          "local",
		Addr:            ":8080",
		CORSOrigins:     []string{"*"},
		LogLevel:        "info",
	}
}

// FromEnv builds a Config from environment variables, falling back to
// defaults for unset values.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("EXAMKIT_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("EXAMKIT_QUESTIONS"); v != "" {
		cfg.QuestionsPath = v
	}
	if v := os.Getenv("EXAMKIT_TESTS"); v != "" {
		cfg.TestsPath = v
	}
	if v, ok := os.LookupEnv("EXAMKIT_CUTOFF_TOPIC"); ok {
		cfg.CutoffTopic = v
	}
	if v := os.Getenv("EXAMKIT_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("EXAMKIT_PROGRESS_BACKEND"); v != "" {
		cfg.ProgressBackend = strings.ToLower(v)
	}
	if v := os.Getenv("EXAMKIT_PROGRESS_DIR"); v != "" {
		cfg.ProgressDir = v
	}
	if v := os.Getenv("EXAMKIT_LOCK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("EXAMKIT_LOCK_TIMEOUT: %w", err)
		}
		cfg.LockTimeout = d
	}
	if v := os.Getenv("EXAMKIT_USER"); v != "" {
		cfg.UserID = v
	}
	if v := os.Getenv("EXAMKIT_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("EXAMKIT_CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("EXAMKIT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	return cfg, nil
}

// Resolve fills empty paths from DataDir.
func (c *Config) Resolve() error {
	if c.DataDir == "" {
		dir, err := store.DefaultDataDir()
		if err != nil {
			return err
		}
		c.DataDir = dir
	}
	if c.QuestionsPath == "" {
		c.QuestionsPath = filepath.Join(c.DataDir, "questions_export.json")
	}
	if c.TestsPath == "" {
		c.TestsPath = filepath.Join(c.DataDir, "tests_export.json")
	}
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "examkit.db")
	}
	if c.ProgressDir == "" {
		c.ProgressDir = filepath.Join(c.DataDir, "progress")
	}
	return nil
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	switch c.ProgressBackend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("unknown progress backend: %q", c.ProgressBackend)
	}
	if c.LockTimeout <= 0 {
		return fmt.Errorf("lock timeout must be positive, got %s", c.LockTimeout)
	}
	if strings.TrimSpace(c.UserID) == "" {
		return fmt.Errorf("user id is required")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level: %q", s)
	}
	return lvl, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
