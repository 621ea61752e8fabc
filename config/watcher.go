package config

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/givani30/waybar-vd/logging"
	"github.com/givani30/waybar-vd/pkg/paths"
	"github.com/sirupsen/logrus"
)

// Watcher watches the config directory and reloads the file on change.
// Only display options take effect live; the retry policy is read at
// connect time and picks up changes on the next reconnect.
type Watcher struct {
	watcher    *fsnotify.Watcher
	debounceMs int
	lastChange time.Time
	mu         sync.Mutex
	logger     *logrus.Entry
	onReload   func(cfg *Config)
}

// NewWatcher creates a watcher over the XDG config directory. The onReload
// callback receives the freshly loaded configuration; load or validation
// failures keep the previous configuration and are logged, not fatal.
func NewWatcher(debounceMs int, onReload func(cfg *Config)) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := logging.NewLogger("config-watcher")
	configDir := paths.ConfigDir()

	// Watch the directory, not the file: editors replace files on save and
	// a file-level watch dies with the inode.
	if err := watcher.Add(configDir); err != nil {
		watcher.Close()
		return nil, err
	}

	if debounceMs <= 0 {
		debounceMs = 100
	}

	return &Watcher{
		watcher:    watcher,
		debounceMs: debounceMs,
		logger:     logger,
		onReload:   onReload,
	}, nil
}

// Start begins watching for config changes. It blocks until the context is
// cancelled.
func (w *Watcher) Start(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !strings.HasSuffix(event.Name, ".yml") && !strings.HasSuffix(event.Name, ".yaml") {
				continue
			}
			w.handleChange(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("Watcher error: %v", err)
		case <-ctx.Done():
			w.watcher.Close()
			return
		}
	}
}

// handleChange reloads the config with debouncing.
func (w *Watcher) handleChange(file string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	elapsed := time.Since(w.lastChange)
	if elapsed < time.Duration(w.debounceMs)*time.Millisecond {
		w.logger.Debugf("Debounced: %s (only %v since last change)", filepath.Base(file), elapsed)
		return
	}
	w.lastChange = time.Now()

	w.logger.Infof("Config changed: %s", filepath.Base(file))

	cfg, err := LoadDefault()
	if err != nil {
		w.logger.WithError(err).Warn("Config reload failed, keeping previous configuration")
		return
	}

	if w.onReload != nil {
		w.onReload(cfg)
	}
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
