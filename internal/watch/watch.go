// Package watch re-runs an export when the Day One database changes on disk.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the burst of writes the app makes on every save.
const DefaultDebounce = 2 * time.Second

// ChangeFunc is called once per settled burst of database changes.
type ChangeFunc func(ctx context.Context) error

// Watch starts an fsnotify watcher on the directory holding dbPath and calls
// onChange after writes to the database or its write-ahead log have been
// quiet for debounce. It blocks until ctx is cancelled. Errors returned by
// onChange are logged and do not stop the watcher.
func Watch(ctx context.Context, dbPath string, debounce time.Duration, logger *slog.Logger, onChange ChangeFunc) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(dbPath)
	if err := w.Add(dir); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("dir", dir), slog.Duration("debounce", debounce))

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			fire = timer.C
			return
		}
		timer.Reset(debounce)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			logger.Info("watcher: database changed, exporting")
			if err := onChange(ctx); err != nil {
				logger.Error("watcher: export failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(dbPath, ev) {
				continue
			}
			logger.Debug("watcher: event", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// relevant reports whether ev changes the database content. The shared
// memory file is skipped: readers touch it too, including our own export.
func relevant(dbPath string, ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Base(ev.Name)
	base := filepath.Base(dbPath)
	if !strings.HasPrefix(name, base) {
		return false
	}
	suffix := strings.TrimPrefix(name, base)
	return suffix == "" || suffix == "-wal" || suffix == "-journal"
}
