// Package watcher reports when the source file of a dataset changes on
// disk, so the shell can reload it.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher maps watched files to dataset names and calls back, debounced,
// with the dataset whose file changed.
type Watcher struct {
	fs       *fsnotify.Watcher
	mu       sync.Mutex
	sources  map[string]string
	dirs     map[string]int
	timers   map[string]*time.Timer
	debounce time.Duration
	onChange func(dataset string)
	log      *slog.Logger
}

// New creates a watcher. onChange runs on a timer goroutine.
func New(debounce time.Duration, onChange func(dataset string), log *slog.Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Watcher{
		fs:       fs,
		sources:  make(map[string]string),
		dirs:     make(map[string]int),
		timers:   make(map[string]*time.Timer),
		debounce: debounce,
		onChange: onChange,
		log:      log,
	}, nil
}

// Watch follows path on behalf of dataset. The parent directory is
// watched so editors that replace the file by rename are seen too.
func (w *Watcher) Watch(dataset, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watcher: resolve %s: %w", path, err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.sources[abs]; ok {
		w.sources[abs] = dataset
		return nil
	}
	dir := filepath.Dir(abs)
	if w.dirs[dir] == 0 {
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("watcher: watch %s: %w", dir, err)
		}
	}
	w.dirs[dir]++
	w.sources[abs] = dataset
	return nil
}

// Unwatch stops following every file registered for dataset.
func (w *Watcher) Unwatch(dataset string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for abs, ds := range w.sources {
		if ds != dataset {
			continue
		}
		delete(w.sources, abs)
		if t, ok := w.timers[abs]; ok {
			t.Stop()
			delete(w.timers, abs)
		}
		dir := filepath.Dir(abs)
		if w.dirs[dir]--; w.dirs[dir] <= 0 {
			delete(w.dirs, dir)
			if err := w.fs.Remove(dir); err != nil {
				w.log.Debug("unwatch failed", "dir", dir, "error", err)
			}
		}
	}
}

// Watched returns the dataset registered for path, if any.
func (w *Watcher) Watched(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	ds, ok := w.sources[abs]
	return ds, ok
}

// Start consumes events until ctx is done or the watcher is closed.
func (w *Watcher) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.fs.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
					w.handle(ev.Name)
				}
			case err, ok := <-w.fs.Errors:
				if !ok {
					return
				}
				w.log.Warn("watcher error", "error", err)
			}
		}
	}()
}

// handle restarts the debounce timer for a changed file.
func (w *Watcher) handle(name string) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	dataset, ok := w.sources[abs]
	if !ok {
		return
	}
	if prev, ok := w.timers[abs]; ok {
		prev.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		if w.timers[abs] == t {
			delete(w.timers, abs)
		}
		w.mu.Unlock()
		w.log.Info("source changed", "dataset", dataset, "path", abs)
		w.onChange(dataset)
	})
	w.timers[abs] = t
}

// Close stops all timers and releases the OS watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	for _, t := range w.timers {
		t.Stop()
	}
	w.timers = make(map[string]*time.Timer)
	w.mu.Unlock()
	return w.fs.Close()
}
