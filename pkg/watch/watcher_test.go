package watch

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/panbanda/tsmcp/internal/testutil"
	"github.com/panbanda/tsmcp/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) record(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

func (r *recorder) seen(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.paths {
		if p == path {
			return true
		}
	}
	return false
}

func TestNewWatcherDebounce(t *testing.T) {
	tests := []struct {
		name       string
		debounceMs int
		want       time.Duration
	}{
		{"zero uses default", 0, DefaultDebounce},
		{"negative uses default", -5, DefaultDebounce},
		{"configured", 250, 250 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Watch.DebounceMs = tt.debounceMs

			w, err := NewWatcher(testutil.TempDir(t), cfg, nil, nil)
			require.NoError(t, err)
			defer w.Stop()

			assert.Equal(t, tt.want, w.debounce)
			assert.NotNil(t, w.pending)
		})
	}
}

func TestNewWatcherCanonicalRoot(t *testing.T) {
	dir := testutil.TempDir(t)
	w, err := NewWatcher(filepath.Join(dir, "."), nil, nil, nil)
	require.NoError(t, err)
	defer w.Stop()

	assert.Equal(t, dir, w.Root())
}

func TestHandleEvent(t *testing.T) {
	dir := testutil.TempDir(t)
	cfg := config.DefaultConfig()
	cfg.Exclude.Dirs = append(cfg.Exclude.Dirs, "build")

	w, err := NewWatcher(dir, cfg, nil, nil)
	require.NoError(t, err)
	defer w.Stop()

	tests := []struct {
		name        string
		event       fsnotify.Event
		wantPending bool
	}{
		{"write cpp", fsnotify.Event{Name: filepath.Join(dir, "a.cpp"), Op: fsnotify.Write}, true},
		{"create python", fsnotify.Event{Name: filepath.Join(dir, "b.py"), Op: fsnotify.Create}, true},
		{"remove header", fsnotify.Event{Name: filepath.Join(dir, "c.hpp"), Op: fsnotify.Remove}, true},
		{"rename source", fsnotify.Event{Name: filepath.Join(dir, "d.cc"), Op: fsnotify.Rename}, true},
		{"chmod ignored", fsnotify.Event{Name: filepath.Join(dir, "e.cpp"), Op: fsnotify.Chmod}, false},
		{"unsupported file ignored", fsnotify.Event{Name: filepath.Join(dir, "notes.txt"), Op: fsnotify.Write}, false},
		{"excluded dir ignored", fsnotify.Event{Name: filepath.Join(dir, "build", "gen.cpp"), Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w.handleEvent(tt.event)

			w.mu.Lock()
			_, pending := w.pending[tt.event.Name]
			w.mu.Unlock()
			assert.Equal(t, tt.wantPending, pending)
		})
	}
}

func TestFlushWaitsForDebounce(t *testing.T) {
	dir := testutil.TempDir(t)
	rec := &recorder{}
	w, err := NewWatcher(dir, nil, nil, rec.record)
	require.NoError(t, err)
	defer w.Stop()

	settled := filepath.Join(dir, "settled.cpp")
	fresh := filepath.Join(dir, "fresh.cpp")
	w.pending[settled] = time.Now().Add(-time.Second)
	w.pending[fresh] = time.Now().Add(time.Hour)

	w.flush()

	assert.True(t, rec.seen(settled))
	assert.False(t, rec.seen(fresh))
	assert.NotContains(t, w.pending, settled)
	assert.Contains(t, w.pending, fresh)
}

func TestStartReportsChangedFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := testutil.TempDir(t)
	path := testutil.WriteFile(t, filepath.Join(dir, "widget.cpp"), "int a;\n")

	cfg := config.DefaultConfig()
	cfg.Watch.DebounceMs = 10
	rec := &recorder{}
	w, err := NewWatcher(dir, cfg, nil, rec.record)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Start(ctx) }()

	require.Eventually(t, func() bool { return len(w.WatchedDirs()) > 0 }, 2*time.Second, 10*time.Millisecond)

	testutil.WriteFile(t, path, "int b;\n")
	assert.Eventually(t, func() bool { return rec.seen(path) }, 2*time.Second, 10*time.Millisecond)

	sub := filepath.Join(dir, "sub")
	testutil.WriteFile(t, filepath.Join(sub, "keep.txt"), "")
	assert.Eventually(t, func() bool {
		for _, d := range w.WatchedDirs() {
			if d == sub {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
	require.NoError(t, w.Stop())
}

func TestStopEndsStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	w, err := NewWatcher(testutil.TempDir(t), nil, nil, nil)
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() { errc <- w.Start(context.Background()) }()
	require.Eventually(t, func() bool { return len(w.WatchedDirs()) > 0 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, w.Stop())
	assert.NoError(t, <-errc)
}
