package analyzer

import (
	"context"
	"sync/atomic"
)

// ProgressFunc receives the number of finished files, the batch size and
// the file just finished.
type ProgressFunc func(done, total int, path string)

// Tracker counts finished files across the batches of one request. It is
// safe for concurrent use.
type Tracker struct {
	total    atomic.Int64
	done     atomic.Int64
	failed   atomic.Int64
	callback ProgressFunc
}

// NewTracker creates a tracker that calls fn after every file. fn may be nil.
func NewTracker(fn ProgressFunc) *Tracker {
	return &Tracker{callback: fn}
}

// Add grows the expected total by n.
func (t *Tracker) Add(n int) {
	t.total.Add(int64(n))
}

// Tick records one finished file.
func (t *Tracker) Tick(path string, failed bool) {
	if failed {
		t.failed.Add(1)
	}
	done := int(t.done.Add(1))
	if t.callback != nil {
		t.callback(done, int(t.total.Load()), path)
	}
}

// Done returns the number of finished files.
func (t *Tracker) Done() int { return int(t.done.Load()) }

// Failed returns the number of files that failed.
func (t *Tracker) Failed() int { return int(t.failed.Load()) }

// Total returns the expected number of files.
func (t *Tracker) Total() int { return int(t.total.Load()) }

type trackerKey struct{}

// WithTracker returns a context whose batches report to t.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// TrackerFromContext returns the tracker carried by ctx, or nil.
func TrackerFromContext(ctx context.Context) *Tracker {
	if t, ok := ctx.Value(trackerKey{}).(*Tracker); ok {
		return t
	}
	return nil
}
