// Package config handles configuration loading and validation for Tapflow.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration
type Config struct {
	DataDir    string         `toml:"data_dir" json:"dataDir" yaml:"data_dir"`
	ScriptsDir string         `toml:"scripts_dir" json:"scriptsDir" yaml:"scripts_dir"`
	AdbPath    string         `toml:"adb_path" json:"adbPath" yaml:"adb_path"`
	Device     string         `toml:"device" json:"device" yaml:"device"`
	Log        LogConfig      `toml:"log" json:"log" yaml:"log"`
	Executor   ExecutorConfig `toml:"executor" json:"executor" yaml:"executor"`
	Matcher    MatcherConfig  `toml:"matcher" json:"matcher" yaml:"matcher"`
	Replay     ReplayConfig   `toml:"replay" json:"replay" yaml:"replay"`
}

// LogConfig controls logging output
type LogConfig struct {
	Level      string `toml:"level" json:"level" yaml:"level"`
	File       bool   `toml:"file" json:"file" yaml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb" json:"maxSizeMb" yaml:"max_size_mb"`
	MaxAgeDays int    `toml:"max_age_days" json:"maxAgeDays" yaml:"max_age_days"`
	MaxBackups int    `toml:"max_backups" json:"maxBackups" yaml:"max_backups"`
}

// ExecutorConfig tunes the script executor
type ExecutorConfig struct {
	PollIntervalMs int `toml:"poll_interval_ms" json:"pollIntervalMs" yaml:"poll_interval_ms"`
}

// MatcherConfig tunes text matching and target watching
type MatcherConfig struct {
	MinScore        float64 `toml:"min_score" json:"minScore" yaml:"min_score"`
	WatchIntervalMs int     `toml:"watch_interval_ms" json:"watchIntervalMs" yaml:"watch_interval_ms"`
}

// ReplayConfig tunes session replay
type ReplayConfig struct {
	Speed float64 `toml:"speed" json:"speed" yaml:"speed"`
}

// DefaultConfig returns the configuration used when no file exists
func DefaultConfig() *Config {
	dataDir := defaultDataDir()
	return &Config{
		DataDir:    dataDir,
		ScriptsDir: filepath.Join(dataDir, "scripts"),
		AdbPath:    "adb",
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxAgeDays: 7,
			MaxBackups: 5,
		},
		Executor: ExecutorConfig{PollIntervalMs: 500},
		Matcher: MatcherConfig{
			MinScore:        0.8,
			WatchIntervalMs: 500,
		},
		Replay: ReplayConfig{Speed: 1.0},
	}
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "Tapflow")
}

// Load reads path, applies environment overrides and validates the result.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

func loadConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch filepath.Ext(path) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	return cfg, nil
}

// ApplyEnvOverrides lets TAPFLOW_* variables override file values
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("TAPFLOW_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("TAPFLOW_SCRIPTS_DIR"); v != "" {
		c.ScriptsDir = v
	}
	if v := os.Getenv("TAPFLOW_ADB_PATH"); v != "" {
		c.AdbPath = v
	}
	if v := os.Getenv("TAPFLOW_DEVICE"); v != "" {
		c.Device = v
	}
	if v := os.Getenv("TAPFLOW_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("TAPFLOW_POLL_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Executor.PollIntervalMs = n
		}
	}
	if v := os.Getenv("TAPFLOW_MIN_SCORE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Matcher.MinScore = f
		}
	}
}

// Validate checks value ranges
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DataDir) == "" {
		errs = append(errs, errors.New("data_dir must not be empty"))
	}
	if c.Executor.PollIntervalMs <= 0 {
		errs = append(errs, fmt.Errorf("executor.poll_interval_ms must be positive, got %d", c.Executor.PollIntervalMs))
	}
	if c.Matcher.MinScore < 0 || c.Matcher.MinScore > 1 {
		errs = append(errs, fmt.Errorf("matcher.min_score must be in [0,1], got %v", c.Matcher.MinScore))
	}
	if c.Matcher.WatchIntervalMs <= 0 {
		errs = append(errs, fmt.Errorf("matcher.watch_interval_ms must be positive, got %d", c.Matcher.WatchIntervalMs))
	}
	if c.Replay.Speed <= 0 {
		errs = append(errs, fmt.Errorf("replay.speed must be positive, got %v", c.Replay.Speed))
	}
	return errors.Join(errs...)
}

// DatabasePath is the SQLite file holding sessions
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "tapflow.db")
}
