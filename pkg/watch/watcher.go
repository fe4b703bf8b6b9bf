// Package watch evicts parse cache entries when source files change on
// disk, ahead of the cache's own modification time check.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/panbanda/tsmcp/pkg/config"
	"github.com/panbanda/tsmcp/pkg/parser"
)

// DefaultDebounce is used when no positive debounce is configured.
const DefaultDebounce = 100 * time.Millisecond

// Watcher monitors a directory tree and reports changed source files once
// they have been quiet for the debounce period.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	config    *config.Config
	logger    *slog.Logger
	debounce  time.Duration
	root      string
	onChange  func(path string)

	mu      sync.Mutex
	pending map[string]time.Time
}

// NewWatcher creates a watcher rooted at root. The root is made absolute
// and symlink-free so reported paths match the resolver's canonical form.
func NewWatcher(root string, cfg *config.Config, logger *slog.Logger, onChange func(path string)) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	debounce := time.Duration(cfg.Watch.DebounceMs) * time.Millisecond
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		config:    cfg,
		logger:    logger,
		debounce:  debounce,
		root:      abs,
		onChange:  onChange,
		pending:   make(map[string]time.Time),
	}, nil
}

// Root returns the canonical watched root.
func (w *Watcher) Root() string { return w.root }

// Start registers every non-excluded directory under the root and
// processes events until ctx is cancelled or the watcher is stopped.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addTree(w.root); err != nil {
		return err
	}
	w.logger.Info("watching for changes", "root", w.root, "directories", len(w.fsWatcher.WatchList()))

	done := make(chan struct{})
	defer close(done)
	go w.processDebounced(ctx, done)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.config.ShouldExcludeDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	// New directories join the watch so files created inside them are seen.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.addTree(path); err != nil {
				w.logger.Warn("failed to watch directory", "path", path, "error", err)
			}
			return
		}
	}

	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	if parser.DetectLanguage(path) == parser.LangUnknown {
		return
	}
	if rel, err := filepath.Rel(w.root, path); err == nil && w.config.ShouldExclude(rel) {
		return
	}

	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

// processDebounced flushes settled changes until ctx is cancelled or
// Start returns.
func (w *Watcher) processDebounced(ctx context.Context, done <-chan struct{}) {
	tick := w.debounce / 2
	if tick <= 0 {
		tick = time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) flush() {
	now := time.Now()

	w.mu.Lock()
	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range ready {
		w.logger.Debug("file changed", "path", path)
		if w.onChange != nil {
			w.onChange(path)
		}
	}
}

// Stop releases the underlying watcher. A running Start returns.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// WatchedDirs returns the directories currently registered.
func (w *Watcher) WatchedDirs() []string {
	return w.fsWatcher.WatchList()
}
