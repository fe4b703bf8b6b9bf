// Package progress draws analysis progress bars on stderr.
package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/panbanda/tsmcp/pkg/analyzer"
	"github.com/schollz/progressbar/v3"
)

// minFiles is the smallest batch worth drawing a bar for.
const minFiles = 2

// Bar renders the progress of an analyzer.Tracker. The bar is created on
// the first tick, once the batch size is known.
type Bar struct {
	mu    sync.Mutex
	w     io.Writer
	label string
	bar   *progressbar.ProgressBar
}

// New creates a bar writing to w. A nil w disables drawing.
func New(label string, w io.Writer) *Bar {
	return &Bar{w: w, label: label}
}

// Tracker returns a tracker that advances the bar.
func (b *Bar) Tracker() *analyzer.Tracker {
	if b.w == nil {
		return analyzer.NewTracker(nil)
	}
	return analyzer.NewTracker(b.update)
}

func (b *Bar) update(done, total int, _ string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if total < minFiles {
		return
	}
	if b.bar == nil {
		b.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(b.w),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionSetDescription(b.label),
			progressbar.OptionUseANSICodes(true),
			progressbar.OptionSetElapsedTime(false),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
	} else if int64(total) != b.bar.GetMax64() {
		b.bar.ChangeMax(total)
	}
	_ = b.bar.Set(done)
}

// Drawn reports whether a bar was shown.
func (b *Bar) Drawn() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bar != nil
}

// Finish clears the bar.
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bar == nil {
		return
	}
	_ = b.bar.Finish()
	_ = b.bar.Clear()
}

// FinishFailed clears the bar and reports how many files failed.
func (b *Bar) FinishFailed(t *analyzer.Tracker) {
	b.Finish()
	if b.w != nil && t.Failed() > 0 {
		fmt.Fprintf(b.w, "  %s: %d of %d files failed\n", b.label, t.Failed(), t.Total())
	}
}
