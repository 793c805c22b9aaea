package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeEvent represents a single filesystem change to a watched file.
type ChangeEvent struct {
	Path string
	Op   fsnotify.Op
}

// Filter decides whether changes to path are reported.
type Filter func(path string) bool

// RubySources accepts Ruby source files.
func RubySources(path string) bool {
	switch filepath.Ext(path) {
	case ".rb", ".rake", ".ru", ".gemspec":
		return true
	}
	return false
}

// File accepts only the file at path.
func File(path string) Filter {
	clean := filepath.Clean(path)
	return func(p string) bool { return filepath.Clean(p) == clean }
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithFilter replaces the default RubySources filter.
func WithFilter(f Filter) Option {
	return func(w *Watcher) { w.filter = f }
}

// NonRecursive watches only rootPath itself, not its subdirectories.
func NonRecursive() Option {
	return func(w *Watcher) { w.recursive = false }
}

// Watcher watches a directory tree for file changes and emits debounced batches.
type Watcher struct {
	rootPath  string
	debounce  time.Duration
	logger    *slog.Logger
	fsw       *fsnotify.Watcher
	filter    Filter
	recursive bool
}

// NewWatcher creates a Watcher for rootPath. By default it recurses into
// subdirectories, skipping hidden directories and vendor, and reports Ruby
// source files.
func NewWatcher(rootPath string, debounce time.Duration, logger *slog.Logger, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		rootPath:  rootPath,
		debounce:  debounce,
		logger:    logger,
		fsw:       fsw,
		filter:    RubySources,
		recursive: true,
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.addDirs(); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	return w, nil
}

// addDirs adds rootPath and, when recursive, every non-hidden, non-vendor
// directory below it.
func (w *Watcher) addDirs() error {
	if !w.recursive {
		return w.fsw.Add(w.rootPath)
	}
	return filepath.WalkDir(w.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != w.rootPath && (strings.HasPrefix(name, ".") || name == "vendor") {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// Run is the main event loop. It reads fsnotify events, applies the filter,
// debounces rapid edits, and sends batched ChangeEvents to out.
// It blocks until ctx is cancelled or the fsnotify watcher is closed.
func (w *Watcher) Run(ctx context.Context, out chan<- []ChangeEvent) error {
	pending := make(map[string]fsnotify.Op)
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.accept(ev) {
				pending[ev.Name] = ev.Op
				timer.Reset(w.debounce)
			}
			if w.recursive && ev.Op&fsnotify.Create != 0 {
				w.maybeAddDir(ev.Name)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("fsnotify error", "err", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			batch := make([]ChangeEvent, 0, len(pending))
			for p, op := range pending {
				batch = append(batch, ChangeEvent{Path: p, Op: op})
			}
			pending = make(map[string]fsnotify.Op)

			select {
			case out <- batch:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Close shuts down the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) accept(ev fsnotify.Event) bool {
	if !w.filter(ev.Name) {
		return false
	}
	return ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}

// maybeAddDir adds path to the watch set if it is a directory.
func (w *Watcher) maybeAddDir(path string) {
	// Errors for plain files and symlinks are expected.
	if err := w.fsw.Add(path); err != nil {
		w.logger.Debug("could not add to watch", "path", path, "err", err)
	}
}
