package engine

import (
	"sync"

	"github.com/ivlev/tabletintro/internal/projector"
)

// Viewport is the visible page area in CSS pixels.
type Viewport struct {
	Width      int
	Height     int
	PixelRatio float64
}

// MaxPixelRatio caps the backing store density of render surfaces.
const MaxPixelRatio = 2

func (v Viewport) Aspect() float32 {
	if v.Width <= 0 || v.Height <= 0 {
		return 1
	}
	return float32(v.Width) / float32(v.Height)
}

// RenderScale is the device pixel ratio clamped to [1, MaxPixelRatio].
func (v Viewport) RenderScale() float64 {
	switch {
	case !(v.PixelRatio > 1):
		return 1
	case v.PixelRatio > MaxPixelRatio:
		return MaxPixelRatio
	}
	return v.PixelRatio
}

// Rect is the full viewport in page coordinates.
func (v Viewport) Rect() projector.Rect {
	return projector.Rect{Width: float64(v.Width), Height: float64(v.Height)}
}

// ViewportSource reports the current viewport and its changes (window
// resize and orientation change).
type ViewportSource interface {
	Viewport() Viewport
	Subscribe(fn func(Viewport)) (unsubscribe func())
}

// ManualViewport is a ViewportSource whose changes are driven by the caller.
type ManualViewport struct {
	mu        sync.Mutex
	vp        Viewport
	nextID    int
	listeners map[int]func(Viewport)
}

func NewManualViewport(vp Viewport) *ManualViewport {
	return &ManualViewport{vp: vp, listeners: make(map[int]func(Viewport))}
}

func (m *ManualViewport) Viewport() Viewport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vp
}

func (m *ManualViewport) Subscribe(fn func(Viewport)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// Listeners is the number of active subscriptions.
func (m *ManualViewport) Listeners() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners)
}

// Resize sets a new size and notifies listeners.
func (m *ManualViewport) Resize(width, height int) {
	m.mu.Lock()
	m.vp.Width, m.vp.Height = width, height
	m.mu.Unlock()
	m.notify()
}

// Rotate swaps width and height, like an orientation change.
func (m *ManualViewport) Rotate() {
	m.mu.Lock()
	m.vp.Width, m.vp.Height = m.vp.Height, m.vp.Width
	m.mu.Unlock()
	m.notify()
}

func (m *ManualViewport) notify() {
	m.mu.Lock()
	vp := m.vp
	fns := make([]func(Viewport), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(vp)
	}
}
