package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Executor.PollIntervalMs != 500 {
		t.Errorf("Expected default poll interval 500, got %d", cfg.Executor.PollIntervalMs)
	}
	if cfg.Matcher.MinScore != 0.8 {
		t.Errorf("Expected default min score 0.8, got %v", cfg.Matcher.MinScore)
	}
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tapflow.toml")
	content := `
data_dir = "/tmp/tapflow-test"
device = "emulator-5554"

[executor]
poll_interval_ms = 250

[matcher]
min_score = 0.6
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DataDir != "/tmp/tapflow-test" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.Device != "emulator-5554" {
		t.Errorf("Device = %q", cfg.Device)
	}
	if cfg.Executor.PollIntervalMs != 250 {
		t.Errorf("PollIntervalMs = %d", cfg.Executor.PollIntervalMs)
	}
	if cfg.Matcher.MinScore != 0.6 {
		t.Errorf("MinScore = %v", cfg.Matcher.MinScore)
	}
	// Untouched sections keep defaults
	if cfg.Replay.Speed != 1.0 {
		t.Errorf("Replay.Speed = %v", cfg.Replay.Speed)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tapflow.yaml")
	content := "adb_path: /opt/adb\nlog:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AdbPath != "/opt/adb" {
		t.Errorf("AdbPath = %q", cfg.AdbPath)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TAPFLOW_DEVICE", "serial-1")
	t.Setenv("TAPFLOW_POLL_INTERVAL_MS", "100")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Device != "serial-1" {
		t.Errorf("Device = %q", cfg.Device)
	}
	if cfg.Executor.PollIntervalMs != 100 {
		t.Errorf("PollIntervalMs = %d", cfg.Executor.PollIntervalMs)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Executor.PollIntervalMs = 0
	cfg.Matcher.MinScore = 1.5

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "poll_interval_ms") || !strings.Contains(msg, "min_score") {
		t.Errorf("Expected both problems reported, got: %s", msg)
	}
}
