package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.WorkNormMinutes != 450 || cfg.Port != "8080" || cfg.TokenTTL().Hours() != 72 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.LockPath != cfg.DBPath+".lock" {
		t.Fatalf("unexpected lock path %q", cfg.LockPath)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worklog.toml")
	contents := `
db_path = "/tmp/worklog-test.db"
work_norm_minutes = 480
timezone = "UTC"
cors_origins = ["http://example.test"]
log_format = "json"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WORKLOG_WORK_NORM_MINUTES", "420")
	t.Setenv("WORKLOG_CORS_ORIGINS", "http://a.test, http://b.test")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBPath != "/tmp/worklog-test.db" || cfg.LogFormat != "json" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.WorkNormMinutes != 420 {
		t.Fatalf("env must override file, got %d", cfg.WorkNormMinutes)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.test" {
		t.Fatalf("unexpected origins %v", cfg.CORSOrigins)
	}
	if loc, err := cfg.Location(); err != nil || loc.String() != "UTC" {
		t.Fatalf("unexpected location %v, %v", loc, err)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"norm too small", "WORKLOG_WORK_NORM_MINUTES", "0", "work_norm_minutes"},
		{"norm too large", "WORKLOG_WORK_NORM_MINUTES", "1441", "work_norm_minutes"},
		{"not a number", "WORKLOG_WORK_NORM_MINUTES", "lots", "parse env"},
		{"bad timezone", "WORKLOG_TIMEZONE", "Mars/Olympus", "timezone"},
		{"bad log format", "WORKLOG_LOG_FORMAT", "xml", "log_format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := LoadFile("")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
