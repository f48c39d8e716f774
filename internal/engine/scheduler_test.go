package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVirtualSchedulerFrames(t *testing.T) {
	s := NewVirtualScheduler(10 * time.Millisecond)

	var times []time.Duration
	var tick FrameFunc
	tick = func(now time.Duration) {
		times = append(times, now)
		if len(times) < 4 {
			s.RequestFrame(tick)
		}
	}
	h1 := s.RequestFrame(tick)
	assert.Equal(t, 4, s.Run(100))
	assert.Equal(t, []time.Duration{0, 10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond}, times)

	h2 := s.RequestFrame(func(time.Duration) {})
	assert.Greater(t, h2, h1)
}

func TestVirtualSchedulerCancelFrame(t *testing.T) {
	s := NewVirtualScheduler(10 * time.Millisecond)
	ran := false
	h := s.RequestFrame(func(time.Duration) { ran = true })
	s.CancelFrame(h)
	assert.Equal(t, 0, s.Pending())
	assert.False(t, s.Step())
	assert.False(t, ran)
}

func TestVirtualSchedulerTimers(t *testing.T) {
	s := NewVirtualScheduler(10 * time.Millisecond)

	var order []string
	s.AfterFunc(30*time.Millisecond, func() { order = append(order, "b") })
	s.AfterFunc(5*time.Millisecond, func() { order = append(order, "a") })
	cancel := s.AfterFunc(20*time.Millisecond, func() { order = append(order, "never") })
	s.AfterFunc(30*time.Millisecond, func() { order = append(order, "c") })
	cancel()

	s.RunUntil(25 * time.Millisecond)
	assert.Equal(t, []string{"a"}, order)
	assert.Equal(t, 25*time.Millisecond, s.Now())

	s.RunUntil(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, 0, s.Pending())
}

func TestVirtualSchedulerTimerBeforeFrame(t *testing.T) {
	s := NewVirtualScheduler(10 * time.Millisecond)

	var order []string
	s.RequestFrame(func(time.Duration) {
		order = append(order, "frame0")
		s.AfterFunc(10*time.Millisecond, func() { order = append(order, "timer") })
		s.RequestFrame(func(time.Duration) { order = append(order, "frame1") })
	})
	s.Run(10)
	require.Len(t, order, 3)
	assert.Equal(t, []string{"frame0", "timer", "frame1"}, order)
}

func TestFrameRate(t *testing.T) {
	assert.Equal(t, time.Second/30, FrameRate(30))
	assert.Equal(t, time.Second/60, FrameRate(0))
}

func TestRunloopDebounce(t *testing.T) {
	s := NewVirtualScheduler(0)
	vp := NewManualViewport(Viewport{Width: 1280, Height: 720})

	var got []Viewport
	r := NewRunloop(vp, s, 0, func(v Viewport) { got = append(got, v) })
	r.Start()
	assert.Equal(t, 1, vp.Listeners())

	vp.Resize(1000, 700)
	s.RunUntil(50 * time.Millisecond)
	vp.Rotate()
	s.RunUntil(120 * time.Millisecond)
	assert.Empty(t, got)

	s.RunUntil(200 * time.Millisecond)
	require.Len(t, got, 1)
	assert.Equal(t, Viewport{Width: 700, Height: 1000}, got[0])

	vp.Resize(10, 10)
	r.Stop()
	r.Stop()
	s.RunUntil(time.Second)
	assert.Len(t, got, 1)
	assert.Equal(t, 0, vp.Listeners())
}

func TestViewportRenderScale(t *testing.T) {
	assert.Equal(t, 1.0, Viewport{PixelRatio: 0}.RenderScale())
	assert.Equal(t, 1.5, Viewport{PixelRatio: 1.5}.RenderScale())
	assert.Equal(t, 2.0, Viewport{PixelRatio: 3}.RenderScale())
	assert.Equal(t, float32(1), Viewport{}.Aspect())
}
