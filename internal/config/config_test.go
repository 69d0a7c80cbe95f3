package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFile_OverlaysValues(t *testing.T) {
	path := writeConfigFile(t, `
port: "9000"
dataDir: /var/demographics/data
fetchInterval: 30m
processInterval: 1h30m
schedulerEnabled: false
workers: 10
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}

	if cfg.Port != "9000" {
		t.Errorf("expected port 9000, got %s", cfg.Port)
	}
	if cfg.DataDir != "/var/demographics/data" {
		t.Errorf("unexpected data dir %s", cfg.DataDir)
	}
	if cfg.FetchInterval != 30*time.Minute {
		t.Errorf("expected 30m fetch interval, got %s", cfg.FetchInterval)
	}
	if cfg.ProcessInterval != 90*time.Minute {
		t.Errorf("expected 1h30m process interval, got %s", cfg.ProcessInterval)
	}
	if cfg.SchedulerEnabled {
		t.Error("expected scheduler disabled by explicit false")
	}
	if cfg.Workers != 10 {
		t.Errorf("expected 10 workers, got %d", cfg.Workers)
	}
	// Keys absent from the file keep their defaults.
	if cfg.DBPath != Load().DBPath {
		t.Errorf("db path should keep its default, got %s", cfg.DBPath)
	}
}

func TestLoadFile_AbsentKeysKeepDefaults(t *testing.T) {
	path := writeConfigFile(t, `port: "9000"`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}

	defaults := Load()
	if !cfg.SchedulerEnabled {
		t.Error("absent schedulerEnabled key must not disable the scheduler")
	}
	if cfg.FetchInterval != defaults.FetchInterval {
		t.Errorf("expected default fetch interval, got %s", cfg.FetchInterval)
	}
}

func TestLoadFile_RejectsBadDuration(t *testing.T) {
	path := writeConfigFile(t, `fetchInterval: thirty minutes`)

	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for unparseable duration")
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
