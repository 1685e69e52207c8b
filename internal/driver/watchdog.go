package driver

import (
	"image"
	"sync"
	"time"
)

// watchdog tracks the time elapsed since the last framebuffer update (or
// reset), used by the handle loop to decide when a full refresh is due
// (spec.md §4.1 step 4/5).
type watchdog struct {
	mu   sync.Mutex
	last time.Time
}

func newWatchdog() *watchdog {
	return &watchdog{last: time.Now()}
}

func (w *watchdog) reset() {
	w.mu.Lock()
	w.last = time.Now()
	w.mu.Unlock()
}

func (w *watchdog) elapsed() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return time.Since(w.last)
}

func rectAt(x, y, w, h int) image.Rectangle {
	return image.Rect(x, y, x+w, y+h)
}
