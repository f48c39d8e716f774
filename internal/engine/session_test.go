package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/tabletintro/internal/camera"
	"github.com/ivlev/tabletintro/internal/config"
	"github.com/ivlev/tabletintro/internal/director"
	"github.com/ivlev/tabletintro/internal/projector"
	"github.com/ivlev/tabletintro/internal/scene"
)

type fakeSurface struct {
	bounds   projector.Rect
	hidden   bool
	renders  int
	resized  []Viewport
	disposed bool
}

func (f *fakeSurface) Bounds() projector.Rect {
	if f.hidden {
		return projector.Rect{}
	}
	return f.bounds
}

func (f *fakeSurface) Resize(vp Viewport) {
	f.bounds = vp.Rect()
	f.resized = append(f.resized, vp)
}

func (f *fakeSurface) Render(*scene.Graph, *camera.Rig) error {
	f.renders++
	return nil
}

func (f *fakeSurface) Dispose() { f.disposed = true }

type fakeContainer struct {
	surface *fakeSurface
	err     error
}

func (c *fakeContainer) NewSurface(vp Viewport) (Surface, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.surface = &fakeSurface{bounds: vp.Rect()}
	return c.surface, nil
}

type gateFunc func(ctx context.Context) error

func (g gateFunc) Wait(ctx context.Context) error { return g(ctx) }

type harness struct {
	session   *Session
	sched     *VirtualScheduler
	container *fakeContainer
	overlay   *projector.Recorder
	viewport  *ManualViewport
	reveals   []time.Duration
}

func newHarness(profile config.DeviceProfile, width, height int) *harness {
	h := &harness{
		sched:     NewVirtualScheduler(FrameRate(60)),
		container: &fakeContainer{},
		overlay:   &projector.Recorder{},
		viewport:  NewManualViewport(Viewport{Width: width, Height: height, PixelRatio: 1}),
	}
	h.session = NewSession(Options{
		Container: h.container,
		Overlay:   h.overlay,
		Profile:   profile,
		Scheduler: h.sched,
		Viewport:  h.viewport,
		OnReveal:  func() { h.reveals = append(h.reveals, h.sched.Now()) },
	})
	return h
}

func TestSetupErrors(t *testing.T) {
	sched := NewVirtualScheduler(0)
	vp := NewManualViewport(Viewport{Width: 100, Height: 100})

	s := NewSession(Options{Overlay: &projector.Recorder{}, Scheduler: sched, Viewport: vp, Profile: config.DesktopProfile()})
	assert.ErrorIs(t, s.Start(context.Background()), ErrNoContainer)

	s = NewSession(Options{Container: &fakeContainer{}, Scheduler: sched, Viewport: vp, Profile: config.DesktopProfile()})
	assert.ErrorIs(t, s.Start(context.Background()), ErrNoOverlay)

	boom := errors.New("boom")
	s = NewSession(Options{Container: &fakeContainer{err: boom}, Overlay: &projector.Recorder{}, Scheduler: sched, Viewport: vp, Profile: config.DesktopProfile()})
	assert.ErrorIs(t, s.Start(context.Background()), boom)

	bad := config.DesktopProfile()
	bad.DurationRotation = 0
	s = NewSession(Options{Container: &fakeContainer{}, Overlay: &projector.Recorder{}, Scheduler: sched, Viewport: vp, Profile: bad})
	assert.ErrorIs(t, s.Start(context.Background()), config.ErrBadDuration)

	assert.Equal(t, 0, sched.Pending(), "no frame is scheduled on setup errors")
}

func TestGateErrorStopsStart(t *testing.T) {
	h := newHarness(config.DesktopProfile(), 1280, 720)
	offline := errors.New("offline")
	h.session.opts.Gate = gateFunc(func(context.Context) error { return offline })

	err := h.session.Start(context.Background())
	assert.ErrorIs(t, err, offline)
	assert.Nil(t, h.container.surface)
	assert.Equal(t, 0, h.sched.Pending())
	assert.ErrorIs(t, h.session.Start(context.Background()), ErrStarted)
}

func TestDesktopIntroReveals(t *testing.T) {
	h := newHarness(config.DesktopProfile(), 1280, 720)
	require.NoError(t, h.session.Start(context.Background()))
	assert.Equal(t, director.Idle, h.session.Phase())
	assert.True(t, h.session.Running())

	h.sched.RunUntil(5 * time.Second)

	assert.True(t, h.session.Revealed())
	assert.Equal(t, director.Revealed, h.session.Phase())
	assert.False(t, h.session.Running())
	require.Len(t, h.reveals, 1)
	assert.InDelta(t, 2.1, h.reveals[0].Seconds(), 0.02)

	geo, ok := h.overlay.Current()
	require.True(t, ok)
	assert.Equal(t, projector.ModeProjected, geo.Mode)
	assert.InDelta(t, 640, geo.Left, 1)
	assert.InDelta(t, 360, geo.Top, 1)
	assert.Greater(t, geo.Width, 0.0)
	assert.False(t, h.overlay.Fullscreen())

	rig := h.session.Rig()
	assert.Equal(t, float32(35), rig.FOV)
	assert.InDelta(t, camera.FitDistance(4, 6, 35, 1280.0/720, camera.DefaultFitMargin), rig.Position.Z, 1e-4)
	assert.InDelta(t, 229, h.session.Frames(), 2)
	assert.Equal(t, 0, h.sched.Pending())
}

func TestMobileIntroGoesFullscreen(t *testing.T) {
	h := newHarness(config.MobileProfile(), 390, 844)
	require.NoError(t, h.session.Start(context.Background()))

	h.sched.RunUntil(2200 * time.Millisecond)
	assert.Equal(t, director.SecondZoom, h.session.Phase())
	assert.False(t, h.session.Revealed(), "fullscreen waits for the reveal delay")

	h.sched.RunUntil(5 * time.Second)
	assert.True(t, h.session.Revealed())
	assert.Equal(t, director.Revealed, h.session.Phase())
	require.Len(t, h.reveals, 1)
	assert.InDelta(t, 2.4, h.reveals[0].Seconds(), 0.05)

	assert.True(t, h.overlay.Fullscreen())
	for _, g := range h.overlay.History() {
		assert.Equal(t, projector.ModeFullscreen, g.Mode, "phones never get a projected overlay")
	}

	rig := h.session.Rig()
	assert.Equal(t, float32(28), rig.FOV)
	assert.InDelta(t, scene.ScreenOffset+0.6, rig.Position.Z, 1e-4)
}

func TestCloseDuringAnimation(t *testing.T) {
	h := newHarness(config.DesktopProfile(), 1280, 720)
	require.NoError(t, h.session.Start(context.Background()))
	h.sched.RunUntil(time.Second)
	require.True(t, h.session.Running())

	h.session.Close()
	h.session.Close()

	assert.Equal(t, 0, h.sched.Pending())
	assert.Equal(t, 0, h.sched.Run(1000))
	assert.True(t, h.container.surface.disposed)
	assert.True(t, h.session.Graph().Disposed())
	assert.Equal(t, 0, h.viewport.Listeners())
	assert.False(t, h.session.Revealed())
	assert.Equal(t, 0, h.overlay.Count())

	h.viewport.Resize(800, 600)
	h.sched.RunUntil(2 * time.Second)
	assert.Empty(t, h.container.surface.resized)
}

func TestCloseFromRevealCallback(t *testing.T) {
	h := newHarness(config.DesktopProfile(), 1280, 720)
	renders := -1
	h.session.opts.OnReveal = func() {
		renders = h.container.surface.renders
		h.session.Close()
	}
	require.NoError(t, h.session.Start(context.Background()))

	h.sched.RunUntil(5 * time.Second)
	require.GreaterOrEqual(t, renders, 0)
	assert.Equal(t, renders, h.container.surface.renders, "no render after teardown")
	assert.True(t, h.container.surface.disposed)
	assert.False(t, h.session.Running())
	assert.Equal(t, 0, h.sched.Pending())
}

func TestCloseFromFrameCallback(t *testing.T) {
	h := newHarness(config.DesktopProfile(), 1280, 720)
	h.session.opts.OnFrame = func(director.FrameCommands) { h.session.Close() }
	require.NoError(t, h.session.Start(context.Background()))

	h.sched.RunUntil(time.Second)
	// the initial pose plus the first animation frame
	assert.Equal(t, 2, h.container.surface.renders)
	assert.Equal(t, 1, h.session.Frames())
	assert.Equal(t, 0, h.sched.Pending())
}

func TestCloseBeforeFullscreenTimer(t *testing.T) {
	h := newHarness(config.MobileProfile(), 390, 844)
	require.NoError(t, h.session.Start(context.Background()))
	h.sched.RunUntil(2200 * time.Millisecond)
	require.Equal(t, director.SecondZoom, h.session.Phase())

	h.session.Close()
	h.sched.RunUntil(5 * time.Second)

	assert.False(t, h.overlay.Fullscreen())
	assert.False(t, h.session.Revealed())
	assert.Empty(t, h.reveals)
}

func TestResizeAfterIntroRefits(t *testing.T) {
	h := newHarness(config.DesktopProfile(), 1280, 720)
	require.NoError(t, h.session.Start(context.Background()))
	h.sched.RunUntil(5 * time.Second)
	before := h.overlay.Count()
	renders := h.container.surface.renders

	h.viewport.Resize(900, 900)
	h.viewport.Resize(850, 850)
	h.viewport.Resize(800, 800)
	h.sched.RunUntil(5*time.Second + 50*time.Millisecond)
	assert.Empty(t, h.container.surface.resized, "debounced")

	h.sched.RunUntil(5*time.Second + 200*time.Millisecond)
	require.Len(t, h.container.surface.resized, 1)
	assert.Equal(t, 800, h.container.surface.resized[0].Width)
	assert.Equal(t, 1, h.session.runloop.Applied())

	rig := h.session.Rig()
	assert.InDelta(t, 1, rig.Aspect, 1e-6)
	assert.InDelta(t, camera.FitDistance(4, 6, 35, 1, camera.DefaultFitMargin), rig.Position.Z, 1e-4)
	assert.Equal(t, renders+1, h.container.surface.renders)

	assert.Equal(t, before+1, h.overlay.Count())
	geo, _ := h.overlay.Current()
	assert.InDelta(t, 400, geo.Left, 1)
	assert.InDelta(t, 400, geo.Top, 1)
}

func TestResizeDuringIntroMovesEndPosition(t *testing.T) {
	h := newHarness(config.DesktopProfile(), 1280, 720)
	require.NoError(t, h.session.Start(context.Background()))
	h.sched.RunUntil(500 * time.Millisecond)

	h.viewport.Rotate()
	h.sched.RunUntil(5 * time.Second)

	rig := h.session.Rig()
	assert.InDelta(t, 720.0/1280, rig.Aspect, 1e-5)
	assert.InDelta(t, camera.FitDistance(4, 6, 35, 720.0/1280, camera.DefaultFitMargin), rig.Position.Z, 1e-4)
}

func TestDesktopProfileSurvivesNarrowResize(t *testing.T) {
	h := newHarness(config.DesktopProfile(), 1280, 720)
	require.NoError(t, h.session.Start(context.Background()))
	h.sched.RunUntil(500 * time.Millisecond)

	// below the mobile breakpoint, but the profile was chosen at start
	h.viewport.Resize(390, 844)
	h.sched.RunUntil(6 * time.Second)

	require.Len(t, h.reveals, 1)
	assert.InDelta(t, 2.1, h.reveals[0].Seconds(), 0.02)
	assert.False(t, h.overlay.Fullscreen())
	for _, g := range h.overlay.History() {
		assert.Equal(t, projector.ModeProjected, g.Mode)
	}
	assert.Equal(t, director.Revealed, h.session.Phase())

	rig := h.session.Rig()
	assert.Equal(t, float32(35), rig.FOV, "no second zoom")
	assert.InDelta(t, 390.0/844, rig.Aspect, 1e-5)
	assert.InDelta(t, camera.FitDistance(4, 6, 35, 390.0/844, camera.DefaultFitMargin), rig.Position.Z, 1e-4)
	assert.False(t, h.session.opts.Profile.Mobile)
}

func TestHiddenSurfaceDefersClock(t *testing.T) {
	h := newHarness(config.DesktopProfile(), 1280, 720)
	require.NoError(t, h.session.Start(context.Background()))
	h.container.surface.hidden = true

	h.sched.RunUntil(time.Second)
	assert.Equal(t, director.Idle, h.session.Phase())
	assert.Equal(t, 0, h.session.Frames())
	assert.True(t, h.session.Running())

	h.container.surface.hidden = false
	h.sched.RunUntil(7 * time.Second)
	require.Len(t, h.reveals, 1)
	assert.InDelta(t, 3.1, h.reveals[0].Seconds(), 0.05)
}
