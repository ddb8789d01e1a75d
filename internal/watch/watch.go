// Package watch reloads file-backed configuration sources when their files
// change on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Reloader re-reads a named source and publishes it.
type Reloader interface {
	Reload(ctx context.Context, name string) error
}

// Watcher watches the directories of settings files. Editors often replace
// files by rename, so directories are watched and events filtered by path.
type Watcher struct {
	fs       *fsnotify.Watcher
	files    map[string]string
	reloader Reloader
	debounce time.Duration
	logger   *zap.Logger

	// pending maps source name -> time of the latest event; only Run touches it.
	pending map[string]time.Time
}

// New starts watching files, a map of file path -> source name.
func New(files map[string]string, reloader Reloader, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	w := &Watcher{
		fs:       fsw,
		files:    make(map[string]string, len(files)),
		reloader: reloader,
		debounce: debounce,
		logger:   logger,
		pending:  make(map[string]time.Time),
	}

	dirs := make(map[string]struct{})
	for path, name := range files {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = filepath.Clean(path)
		}
		w.files[abs] = name
		dirs[filepath.Dir(abs)] = struct{}{}
	}

	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Warn("settings directory missing, not watching", zap.String("dir", dir))
				continue
			}
			_ = fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	return w, nil
}

// Run dispatches reloads until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.tick())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", zap.Error(err))

		case now := <-ticker.C:
			w.flush(ctx, now)
		}
	}
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	name, ok := w.files[filepath.Clean(event.Name)]
	if !ok {
		return
	}
	w.pending[name] = time.Now()
}

func (w *Watcher) flush(ctx context.Context, now time.Time) {
	for name, changed := range w.pending {
		if now.Sub(changed) < w.debounce {
			continue
		}
		delete(w.pending, name)

		if err := w.reloader.Reload(ctx, name); err != nil {
			w.logger.Warn("reload failed, keeping previous entries",
				zap.String("source", name),
				zap.Error(err),
			)
			continue
		}
		w.logger.Info("configuration source reloaded", zap.String("source", name))
	}
}

func (w *Watcher) tick() time.Duration {
	const (
		minTick = 10 * time.Millisecond
		maxTick = 100 * time.Millisecond
	)
	return min(max(w.debounce/2, minTick), maxTick)
}
