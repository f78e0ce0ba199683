package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"Tapflow/pkg/adb"
	"Tapflow/pkg/config"
	"Tapflow/pkg/engine"
	"Tapflow/pkg/logger"
	"Tapflow/pkg/scriptfile"
	"Tapflow/pkg/store"

	"github.com/urfave/cli/v2"
)

// appRuntime holds everything a command needs. Fields are set by the setup
// helpers that the command calls.
type appRuntime struct {
	cfg     *config.Config
	db      *store.SQLite
	host    *adb.Host
	library *scriptfile.Library
	engine  *engine.Engine
}

// loadConfig resolves the config file, initializes logging and returns a
// runtime with only cfg set
func loadConfig(c *cli.Context) (*appRuntime, error) {
	path := c.String("config")
	if path == "" {
		path = filepath.Join(config.DefaultConfig().DataDir, "tapflow.toml")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if d := c.String("device"); d != "" {
		cfg.Device = d
	}

	logCfg := logger.DefaultConfig()
	if cfg.Log.File {
		logCfg = logger.FileConfig(cfg.DataDir)
		logCfg.MaxSizeMB = cfg.Log.MaxSizeMB
		logCfg.MaxAgeDays = cfg.Log.MaxAgeDays
		logCfg.MaxBackups = cfg.Log.MaxBackups
	}
	logCfg.Level = logger.ParseLevel(cfg.Log.Level)
	if c.Bool("verbose") {
		logCfg.Level = logger.LevelDebug
	}
	if err := logger.Init(logCfg); err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	logger.LogDebug("main").Str("config", path).Str("dataDir", cfg.DataDir).Msg("Config loaded")
	return &appRuntime{cfg: cfg}, nil
}

// openStore opens the session database
func (rt *appRuntime) openStore() error {
	if err := os.MkdirAll(rt.cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	db, err := store.OpenSQLite(rt.cfg.DatabasePath())
	if err != nil {
		return err
	}
	rt.db = db
	return nil
}

// connect resolves the target device and creates the adb host
func (rt *appRuntime) connect(ctx context.Context) error {
	client, err := adb.NewClient(rt.cfg.AdbPath, rt.cfg.Device)
	if err != nil {
		return err
	}

	if client.Serial() == "" {
		devices, err := client.Devices(ctx)
		if err != nil {
			return err
		}
		var online []adb.Device
		for _, d := range devices {
			if d.State == "device" {
				online = append(online, d)
			}
		}
		switch len(online) {
		case 0:
			return fmt.Errorf("no device attached")
		case 1:
			client, err = adb.NewClient(rt.cfg.AdbPath, online[0].Serial)
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("%d devices attached, pick one with --device", len(online))
		}
	}

	logger.LogInfo("main").Str("device", client.Serial()).Msg("Using device")
	rt.host = adb.NewHost(client)
	return nil
}

// loadLibrary loads the script library directory
func (rt *appRuntime) loadLibrary() error {
	lib := scriptfile.NewLibrary(rt.cfg.ScriptsDir)
	if err := lib.Load(); err != nil {
		return err
	}
	rt.library = lib
	return nil
}

// start opens the store, connects to the device and builds the engine
func (rt *appRuntime) start(ctx context.Context) error {
	if err := rt.openStore(); err != nil {
		return err
	}
	if err := rt.connect(ctx); err != nil {
		return err
	}
	if err := rt.loadLibrary(); err != nil {
		return err
	}

	e, err := engine.New(engine.Options{
		Host:          rt.host,
		Store:         rt.db,
		Scripts:       rt.library,
		PollInterval:  time.Duration(rt.cfg.Executor.PollIntervalMs) * time.Millisecond,
		WatchInterval: time.Duration(rt.cfg.Matcher.WatchIntervalMs) * time.Millisecond,
		MinScore:      rt.cfg.Matcher.MinScore,
		ReplaySpeed:   rt.cfg.Replay.Speed,
	})
	if err != nil {
		return err
	}
	rt.engine = e
	return nil
}

// close releases everything start opened
func (rt *appRuntime) close() {
	if rt.engine != nil {
		rt.engine.Close()
	}
	if rt.library != nil {
		rt.library.Close()
	}
	if rt.db != nil {
		rt.db.Close()
	}
	logger.Close()
}

// sessionsOnly opens just the store, for commands that never touch a device
func (rt *appRuntime) sessionsOnly() (*store.Sessions, error) {
	if err := rt.openStore(); err != nil {
		return nil, err
	}
	return store.NewSessions(rt.db), nil
}
