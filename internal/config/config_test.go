package config

import (
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"EXAMKIT_DATA_DIR", "EXAMKIT_QUESTIONS", "EXAMKIT_TESTS", "EXAMKIT_DB",
		"EXAMKIT_PROGRESS_BACKEND", "EXAMKIT_PROGRESS_DIR", "EXAMKIT_LOCK_TIMEOUT",
		"EXAMKIT_USER", "EXAMKIT_ADDR", "EXAMKIT_CORS_ORIGINS", "EXAMKIT_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.ProgressBackend != BackendFile {
		t.Errorf("ProgressBackend = %q, want %q", cfg.ProgressBackend, BackendFile)
	}
	if cfg.LockTimeout != 2*time.Second {
		t.Errorf("LockTimeout = %s, want 2s", cfg.LockTimeout)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Addr)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("EXAMKIT_DATA_DIR", "/srv/examkit")
	t.Setenv("EXAMKIT_CUTOFF_TOPIC", "")
	t.Setenv("EXAMKIT_PROGRESS_BACKEND", "SQLite")
	t.Setenv("EXAMKIT_LOCK_TIMEOUT", "750ms")
	t.Setenv("EXAMKIT_USER", "alice")
	t.Setenv("EXAMKIT_CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("EXAMKIT_LOG_LEVEL", "DEBUG")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.CutoffTopic != "" {
		t.Errorf("CutoffTopic = %q, want empty", cfg.CutoffTopic)
	}
	if cfg.ProgressBackend != BackendSQLite {
		t.Errorf("ProgressBackend = %q, want sqlite", cfg.ProgressBackend)
	}
	if cfg.LockTimeout != 750*time.Millisecond {
		t.Errorf("LockTimeout = %s, want 750ms", cfg.LockTimeout)
	}
	if cfg.UserID != "alice" {
		t.Errorf("UserID = %q, want alice", cfg.UserID)
	}
	want := []string{"https://a.example", "https://b.example"}
	if !slices.Equal(cfg.CORSOrigins, want) {
		t.Errorf("CORSOrigins = %v, want %v", cfg.CORSOrigins, want)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	if err := cfg.Resolve(); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if want := filepath.Join("/srv/examkit", "questions_export.json"); cfg.QuestionsPath != want {
		t.Errorf("QuestionsPath = %q, want %q", cfg.QuestionsPath, want)
	}
	if want := filepath.Join("/srv/examkit", "progress"); cfg.ProgressDir != want {
		t.Errorf("ProgressDir = %q, want %q", cfg.ProgressDir, want)
	}
}

func TestFromEnv_BadLockTimeout(t *testing.T) {
	clearEnv(t)
	t.Setenv("EXAMKIT_LOCK_TIMEOUT", "soon")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for unparsable lock timeout")
	}
}

func TestResolve_KeepsExplicitPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/data"
	cfg.DBPath = "/elsewhere/x.db"

	if err := cfg.Resolve(); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.DBPath != "/elsewhere/x.db" {
		t.Errorf("DBPath = %q, want explicit path kept", cfg.DBPath)
	}
	if want := filepath.Join("/data", "tests_export.json"); cfg.TestsPath != want {
		t.Errorf("TestsPath = %q, want %q", cfg.TestsPath, want)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.ProgressBackend = "redis" }},
		{"zero lock timeout", func(c *Config) { c.LockTimeout = 0 }},
		{"blank user", func(c *Config) { c.UserID = "  " }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
