// Package watch reruns a callback when Python sources under a directory
// change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long a burst of events must settle before the
// callback runs.
const DefaultDebounce = 200 * time.Millisecond

var skipDirs = map[string]bool{".git": true, "__pycache__": true, ".venv": true, "venv": true}

// Watcher watches a directory tree.
type Watcher struct {
	root     string
	debounce time.Duration
	logger   *zap.Logger
}

// New returns a Watcher for root. root may be a single file, in which
// case its directory is watched and only that file triggers.
func New(root string, debounce time.Duration, logger *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{root: root, debounce: debounce, logger: logger}
}

// Run calls onChange once, then again after each settled burst of changes
// to .py files, until ctx is done. Callback errors are logged and do not
// stop the watch.
func (w *Watcher) Run(ctx context.Context, onChange func(context.Context) error) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsw.Close()

	info, err := os.Stat(w.root)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", w.root, err)
	}
	only := ""
	dir := w.root
	if !info.IsDir() {
		only = filepath.Clean(w.root)
		dir = filepath.Dir(w.root)
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	} else if err := w.addTree(fsw, dir); err != nil {
		return err
	}

	w.run(ctx, onChange)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) && only == "" {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := w.addTree(fsw, ev.Name); err != nil {
						w.logger.Warn("failed to watch new directory", zap.String("dir", ev.Name), zap.Error(err))
					}
					continue
				}
			}
			if !w.relevant(ev, only) {
				continue
			}
			w.logger.Debug("source changed", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", zap.Error(err))

		case <-timer.C:
			w.run(ctx, onChange)
		}
	}
}

func (w *Watcher) run(ctx context.Context, onChange func(context.Context) error) {
	if err := onChange(ctx); err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Error("regeneration failed", zap.Error(err))
	}
}

func (w *Watcher) relevant(ev fsnotify.Event, only string) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	if only != "" {
		return filepath.Clean(ev.Name) == only
	}
	return strings.HasSuffix(ev.Name, ".py")
}

func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
