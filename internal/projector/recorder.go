package projector

import "sync"

// Recorder is an OverlaySink that remembers every placement. Headless runs
// use it to composite the overlay; tests use it to assert on it.
type Recorder struct {
	mu         sync.Mutex
	history    []OverlayGeometry
	fullscreen bool
}

func (r *Recorder) SetGeometry(g OverlayGeometry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, g)
}

func (r *Recorder) SetFullscreen() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fullscreen = true
	r.history = append(r.history, Fullscreen())
}

// Current is the last placement, if any.
func (r *Recorder) Current() (OverlayGeometry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.history) == 0 {
		return OverlayGeometry{}, false
	}
	return r.history[len(r.history)-1], true
}

func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.history)
}

func (r *Recorder) Fullscreen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fullscreen
}

// History returns a copy of all placements in order.
func (r *Recorder) History() []OverlayGeometry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]OverlayGeometry(nil), r.history...)
}
