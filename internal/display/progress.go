// Package display renders encode progress on a terminal.
package display

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// ProgressBar draws a frame counter with percentage and ETA. With an
// unknown total it shows a spinner and the running count instead.
type ProgressBar struct {
	w           io.Writer
	description string
	width       int
	throttle    time.Duration

	mu       sync.Mutex
	bar      *progressbar.ProgressBar
	current  int64
	finished bool
	stopped  bool
}

// NewProgressBar returns a bar writing to w.
func NewProgressBar(w io.Writer, description string) *ProgressBar {
	return &ProgressBar{
		w:           w,
		description: description,
		width:       40,
		throttle:    65 * time.Millisecond,
	}
}

// Start creates the bar. total <= 0 selects the indeterminate spinner.
func (p *ProgressBar) Start(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if total <= 0 {
		total = -1
	}
	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetDescription(p.description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "▐",
			BarEnd:        "▌",
		}),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("frames"),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetWidth(p.width),
		progressbar.OptionThrottle(p.throttle),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Update moves the bar to completed. A changed total resizes the bar.
func (p *ProgressBar) Update(completed, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil || p.stopped {
		return
	}
	if total > 0 && total != p.bar.GetMax64() {
		p.bar.ChangeMax64(total)
	}
	if total > 0 && completed > total {
		completed = total
	}
	if completed < p.current {
		return
	}
	p.current = completed
	_ = p.bar.Set64(completed)
	if total > 0 && completed == total {
		p.finished = true
	}
}

// Stop closes the bar. Calls after the first are ignored.
func (p *ProgressBar) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil || p.stopped {
		return
	}
	p.stopped = true
	if p.finished {
		_ = p.bar.Finish()
	}
	fmt.Fprintln(p.w)
}

// Current returns the last completed count shown.
func (p *ProgressBar) Current() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}
