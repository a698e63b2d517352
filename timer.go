package btstack

import (
	"sync"
	"time"
)

// TimerSource is the one-shot timer collaborator consumed by both engines
// (§6, "Timer source"). At most one firing is ever pending per handle;
// scheduling a new one implicitly replaces any pending firing on that handle.
type TimerSource interface {
	// SetOneshot arranges for cb to run after d, tagged with handle. Calling it
	// again on the same handle cancels the previous pending firing.
	SetOneshot(handle uint32, d time.Duration, cb func())
	// Cancel cancels any pending firing on handle. Safe to call when none is pending.
	Cancel(handle uint32)
}

// Wheel is the default TimerSource, a thin wrapper over time.AfterFunc that
// tracks one *time.Timer per handle so SetOneshot can cancel-and-replace.
// It never invokes cb directly from the timer goroutine's own stack frame
// into engine state; callers are expected to post cb's work back onto their
// own single-goroutine event loop (see avdtp.Manager / smp.Manager), which
// is what keeps §5's "never re-enter a handler" rule intact.
type Wheel struct {
	mu     sync.Mutex
	timers map[uint32]*time.Timer
}

// NewWheel creates an empty Wheel.
func NewWheel() *Wheel {
	return &Wheel{timers: make(map[uint32]*time.Timer)}
}

func (w *Wheel) SetOneshot(handle uint32, d time.Duration, cb func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[handle]; ok {
		t.Stop()
	}
	w.timers[handle] = time.AfterFunc(d, cb)
}

func (w *Wheel) Cancel(handle uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[handle]; ok {
		t.Stop()
		delete(w.timers, handle)
	}
}
