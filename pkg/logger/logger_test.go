package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.Level != LevelInfo {
		t.Errorf("Expected default level Info, got %d", config.Level)
	}
	if !config.Console {
		t.Error("Expected console output to be enabled by default")
	}
	if config.File {
		t.Error("Expected file output to be disabled by default")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"nonsense", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.expected {
			t.Errorf("ParseLevel(%q) = %d, want %d", tt.in, got, tt.expected)
		}
	}
}

func TestModuleField(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Output = &buf
	cfg.Level = LevelDebug
	if err := Init(cfg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer Init(DefaultConfig())

	LogDebug("recorder").Int("actions", 3).Msg("debug line")
	LogWarn("executor").Msg("warn line")

	output := buf.String()
	for _, want := range []string{"debug line", "warn line", "recorder", "executor", "actions"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in output, got: %s", want, output)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Output = &buf
	cfg.Level = LevelWarn
	if err := Init(cfg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer Init(DefaultConfig())

	LogInfo("test").Msg("should be hidden")
	LogError("test").Msg("should be shown")

	output := buf.String()
	if strings.Contains(output, "should be hidden") {
		t.Error("Info line written below warn level")
	}
	if !strings.Contains(output, "should be shown") {
		t.Error("Error line missing")
	}
}

func TestPersistentLoggerRotation(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		FilePath:   filepath.Join(dir, "tapflow.log"),
		MaxSizeMB:  1,
		MaxBackups: 10,
	}

	pl, err := NewPersistentLogger(cfg)
	if err != nil {
		t.Fatalf("NewPersistentLogger failed: %v", err)
	}
	defer pl.Close()

	chunk := bytes.Repeat([]byte("x"), 600*1024)
	if _, err := pl.Write(chunk); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if _, err := pl.Write(chunk); err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	rotated, _ := filepath.Glob(filepath.Join(dir, "tapflow_*.log"))
	if len(rotated) != 1 {
		t.Fatalf("Expected 1 rotated file, got %d", len(rotated))
	}

	info, err := os.Stat(cfg.FilePath)
	if err != nil {
		t.Fatalf("current log missing: %v", err)
	}
	if info.Size() != int64(len(chunk)) {
		t.Errorf("Expected current file size %d, got %d", len(chunk), info.Size())
	}
}

func TestFileConfigInit(t *testing.T) {
	dir := t.TempDir()
	cfg := FileConfig(dir)
	cfg.Console = false
	if err := Init(cfg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer func() {
		Close()
		Init(DefaultConfig())
	}()

	LogInfo("test").Msg("to file")

	if FilePath() != cfg.FilePath {
		t.Errorf("FilePath() = %q, want %q", FilePath(), cfg.FilePath)
	}
	data, err := os.ReadFile(cfg.FilePath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("Expected message in log file, got: %s", data)
	}
}

func TestOperationTimer(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Output = &buf
	if err := Init(cfg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer Init(DefaultConfig())

	StartOperation("store", "save_session").AddDetail("id", "abc").End()

	output := buf.String()
	if !strings.Contains(output, "save_session") || !strings.Contains(output, "abc") {
		t.Errorf("Expected operation fields in output, got: %s", output)
	}
}
