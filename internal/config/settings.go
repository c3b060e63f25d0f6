package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/abelbrown/newsbell/internal/logging"
)

// Settings holds the live configuration. Readers always see a complete
// Config; Set swaps it atomically.
type Settings struct {
	cur atomic.Pointer[Config]
}

// NewSettings returns a holder for cfg. A nil cfg uses the defaults.
func NewSettings(cfg *Config) *Settings {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s := &Settings{}
	s.cur.Store(cfg)
	return s
}

// Get returns the current config. Callers must not modify it.
func (s *Settings) Get() *Config { return s.cur.Load() }

// Set replaces the current config.
func (s *Settings) Set(cfg *Config) { s.cur.Store(cfg) }

// NotificationsEnabled reads the global flag.
func (s *Settings) NotificationsEnabled() bool { return s.Get().NotificationsEnabled }

// NotificationCount reads the per-cycle cap.
func (s *Settings) NotificationCount() int { return s.Get().NotificationCount }

// NotificationDelay reads the pause between notifications.
func (s *Settings) NotificationDelay() time.Duration { return s.Get().Delay() }

// Location reads the reference zone.
func (s *Settings) Location() *time.Location { return s.Get().Location() }

// debounce collapses the burst of events editors produce on save.
const debounce = 100 * time.Millisecond

// Watch reloads path whenever it changes and passes each successfully parsed
// config to onChange. A file that fails to parse is logged and ignored, so
// the previous config stays in effect. Watch blocks until ctx is done.
//
// The parent directory is watched rather than the file, since most editors
// save by renaming a temporary file over the original.
func Watch(ctx context.Context, path string, logger *log.Logger, onChange func(*Config)) error {
	logger = logging.OrNop(logger)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	path = filepath.Clean(path)
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				timer.Reset(debounce)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "err", err)

		case <-timer.C:
			if _, err := os.Stat(path); err != nil {
				continue // moved away; wait for the replacement
			}
			cfg, err := Load(path)
			if err != nil {
				logger.Warn("config reload rejected, keeping previous", "path", path, "err", err)
				continue
			}
			logger.Info("config reloaded", "path", path)
			onChange(cfg)
		}
	}
}
