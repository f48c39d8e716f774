package engine

import (
	"log/slog"
	"time"
)

// DefaultResizeDebounce coalesces bursts of resize events.
const DefaultResizeDebounce = 100 * time.Millisecond

// Runloop listens for viewport changes after the intro has started and
// applies the last one once the burst settles. Applying happens through the
// scheduler, so it runs on the frame goroutine.
type Runloop struct {
	source   ViewportSource
	sched    Scheduler
	debounce time.Duration
	apply    func(Viewport)

	unsubscribe func()
	cancel      func()
	pending     Viewport
	stopped     bool
	applied     int
}

func NewRunloop(source ViewportSource, sched Scheduler, debounce time.Duration, apply func(Viewport)) *Runloop {
	if debounce <= 0 {
		debounce = DefaultResizeDebounce
	}
	return &Runloop{
		source:   source,
		sched:    sched,
		debounce: debounce,
		apply:    apply,
	}
}

func (r *Runloop) Start() {
	if r.unsubscribe != nil || r.stopped {
		return
	}
	r.unsubscribe = r.source.Subscribe(r.onChange)
}

func (r *Runloop) onChange(vp Viewport) {
	if r.stopped {
		return
	}
	r.pending = vp
	if r.cancel != nil {
		r.cancel()
	}
	r.cancel = r.sched.AfterFunc(r.debounce, r.fire)
}

func (r *Runloop) fire() {
	r.cancel = nil
	if r.stopped {
		return
	}
	r.applied++
	slog.Debug("viewport changed", "width", r.pending.Width, "height", r.pending.Height)
	r.apply(r.pending)
}

// Applied is the number of debounced viewport changes delivered so far.
func (r *Runloop) Applied() int { return r.applied }

// Stop removes the listeners and drops any pending change.
func (r *Runloop) Stop() {
	if r.stopped {
		return
	}
	r.stopped = true
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
}
