package scriptfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"Tapflow/pkg/logger"
)

const debounceDelay = 300 * time.Millisecond

// Library is the set of scripts found in one directory
type Library struct {
	dir string

	mu      sync.RWMutex
	scripts map[string]*Script

	watchMu sync.Mutex
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
}

// NewLibrary creates a library over dir. Call Load to read it.
func NewLibrary(dir string) *Library {
	return &Library{dir: dir, scripts: make(map[string]*Script)}
}

// Dir returns the scripts directory
func (l *Library) Dir() string {
	return l.dir
}

func isScriptFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// Load (re)reads every script file. Files that fail to parse are logged and
// skipped; a missing directory yields an empty library.
func (l *Library) Load() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read scripts directory: %w", err)
	}

	scripts := make(map[string]*Script)
	for _, entry := range entries {
		if entry.IsDir() || !isScriptFile(entry.Name()) {
			continue
		}
		script, err := LoadFile(filepath.Join(l.dir, entry.Name()))
		if err != nil {
			logger.LogWarn("scriptfile").Err(err).Str("file", entry.Name()).Msg("Skipping unreadable script")
			continue
		}
		scripts[script.Name] = script
	}

	l.mu.Lock()
	l.scripts = scripts
	l.mu.Unlock()

	logger.LogDebug("scriptfile").Str("dir", l.dir).Int("scripts", len(scripts)).Msg("Scripts loaded")
	return nil
}

// Get returns the script with the given name
func (l *Library) Get(name string) (*Script, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.scripts[name]
	return s, ok
}

// List returns all scripts sorted by name
func (l *Library) List() []*Script {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*Script, 0, len(l.scripts))
	for _, s := range l.scripts {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Watch reloads the library when files in the directory change. onChange,
// when set, is called after each reload.
func (l *Library) Watch(onChange func()) error {
	l.watchMu.Lock()
	defer l.watchMu.Unlock()

	if l.watcher != nil {
		return nil
	}

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("failed to create scripts directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(l.dir); err != nil {
		watcher.Close()
		return err
	}

	l.watcher = watcher
	l.stopCh = make(chan struct{})
	logger.LogInfo("scriptfile").Str("path", l.dir).Msg("Started watching scripts directory")

	go l.watch(watcher, l.stopCh, onChange)
	return nil
}

// Close stops watching
func (l *Library) Close() {
	l.watchMu.Lock()
	defer l.watchMu.Unlock()

	if l.watcher != nil {
		close(l.stopCh)
		l.watcher.Close()
		l.watcher = nil
		logger.LogInfo("scriptfile").Msg("Stopped watching scripts directory")
	}
}

func (l *Library) watch(watcher *fsnotify.Watcher, stopCh chan struct{}, onChange func()) {
	var debounceTimer *time.Timer

	reload := func() {
		select {
		case <-stopCh:
			return
		default:
		}
		if err := l.Load(); err != nil {
			logger.LogError("scriptfile").Err(err).Msg("Reload failed")
			return
		}
		if onChange != nil {
			onChange()
		}
	}

	for {
		select {
		case <-stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !isScriptFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			logger.LogDebug("scriptfile").Str("file", filepath.Base(event.Name)).Str("op", event.Op.String()).Msg("Script file changed")
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, reload)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.LogError("scriptfile").Err(err).Msg("Watcher error")
		}
	}
}
