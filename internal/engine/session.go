// Package engine runs the tablet intro: it owns the frame loop, the timers
// and every piece of mutable state of one intro run.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	cerrors "cogentcore.org/core/base/errors"
	"cogentcore.org/core/math32"

	"github.com/ivlev/tabletintro/internal/camera"
	"github.com/ivlev/tabletintro/internal/config"
	"github.com/ivlev/tabletintro/internal/director"
	"github.com/ivlev/tabletintro/internal/projector"
	"github.com/ivlev/tabletintro/internal/scene"
)

var (
	ErrNoContainer = errors.New("no render container mounted")
	ErrNoOverlay   = errors.New("no overlay element mounted")
	ErrNoViewport  = errors.New("no viewport source")
	ErrNoScheduler = errors.New("no frame scheduler")
	ErrStarted     = errors.New("session already started")
	ErrClosed      = errors.New("session closed")
)

// Surface is a render target attached to the page, such as a canvas.
type Surface interface {
	// Bounds is the surface rectangle in page coordinates. An empty rect
	// means the surface is not laid out yet.
	Bounds() projector.Rect
	Resize(vp Viewport)
	Render(g *scene.Graph, rig *camera.Rig) error
	Dispose()
}

// Container creates the render surface.
type Container interface {
	NewSurface(vp Viewport) (Surface, error)
}

// Preloader blocks until the assets the intro depends on are ready.
type Preloader interface {
	Wait(ctx context.Context) error
}

type Options struct {
	Container Container
	Overlay   projector.OverlaySink
	Profile   config.DeviceProfile
	Scheduler Scheduler
	Gate      Preloader // optional
	Viewport  ViewportSource

	// OnReveal runs once, when the overlay content becomes visible.
	OnReveal func()
	// OnFrame runs after every rendered animation frame.
	OnFrame func(director.FrameCommands)

	ResizeDebounce time.Duration
}

// Session is one run of the intro. Start, Close and Phase must be called
// from the scheduler's goroutine; Revealed may be called from anywhere.
type Session struct {
	opts  Options
	sched Scheduler

	surface  Surface
	graph    *scene.Graph
	rig      *camera.Rig
	timeline *director.Timeline
	runloop  *Runloop

	frameHandle  FrameHandle
	framePending bool
	clockStarted bool
	startTime    time.Duration
	frames       int

	timerSeq uint64
	timers   map[uint64]func()

	started  bool
	revealed atomic.Bool
	closed   atomic.Bool
}

func NewSession(opts Options) *Session {
	return &Session{
		opts:   opts,
		sched:  opts.Scheduler,
		timers: make(map[uint64]func()),
	}
}

// Start waits for the preload gate, builds the scene and schedules the first
// frame. Setup errors are returned before any frame is scheduled.
func (s *Session) Start(ctx context.Context) error {
	switch {
	case s.started:
		return ErrStarted
	case s.closed.Load():
		return ErrClosed
	case s.opts.Container == nil:
		return ErrNoContainer
	case s.opts.Overlay == nil:
		return ErrNoOverlay
	case s.opts.Viewport == nil:
		return ErrNoViewport
	case s.sched == nil:
		return ErrNoScheduler
	}
	profile := s.opts.Profile
	if err := profile.Validate(); err != nil {
		return err
	}
	s.started = true

	if s.opts.Gate != nil {
		if err := s.opts.Gate.Wait(ctx); err != nil {
			return fmt.Errorf("preload assets: %w", err)
		}
	}
	if s.closed.Load() {
		return ErrClosed
	}

	vp := s.opts.Viewport.Viewport()
	surface, err := s.opts.Container.NewSurface(vp)
	if err != nil {
		return fmt.Errorf("create surface: %w", err)
	}
	s.surface = surface
	s.graph = scene.Build(profile.Mobile)
	s.rig = camera.New(profile.StartFOV, vp.Aspect(), profile.StartPos)
	s.timeline = director.New(profile)
	s.refit()
	s.rig.PointAt(s.graph.Tablet.Pos)
	cerrors.Log(s.surface.Render(s.graph, s.rig))

	s.runloop = NewRunloop(s.opts.Viewport, s.sched, s.opts.ResizeDebounce, s.handleResize)
	s.runloop.Start()

	slog.Info("intro started", "profile", profile.Name, "width", vp.Width, "height", vp.Height)
	s.requestFrame()
	return nil
}

func (s *Session) requestFrame() {
	s.frameHandle = s.sched.RequestFrame(s.frame)
	s.framePending = true
}

// frame is one animation tick: advance, apply, reveal, render, re-project.
func (s *Session) frame(now time.Duration) {
	s.framePending = false
	if s.closed.Load() {
		return
	}
	if s.surface == nil || s.graph == nil || s.rig == nil || s.surface.Bounds().Empty() {
		s.requestFrame()
		return
	}

	if !s.clockStarted {
		s.clockStarted = true
		s.startTime = now
	}
	elapsed := (now - s.startTime).Seconds()

	cmd := s.timeline.Advance(elapsed, s.graph.ScreenWorldPositionAt)
	s.graph.SetTabletRotationY(cmd.TabletRotationY)
	s.rig.Position = cmd.CameraPosition
	s.rig.FOV = cmd.CameraFOV
	s.rig.PointAt(s.graph.Tablet.Pos)

	if cmd.Reveal {
		s.project()
		s.markRevealed()
		// OnReveal may tear the session down
		if s.closed.Load() {
			return
		}
	}
	if cmd.ScheduleFullscreen {
		s.after(cmd.FullscreenDelay, s.fullscreen)
	}

	s.render()
	s.frames++
	if cmd.Project {
		s.project()
	}
	if s.opts.OnFrame != nil {
		s.opts.OnFrame(cmd)
		if s.closed.Load() {
			return
		}
	}

	if cmd.Continue {
		s.requestFrame()
		return
	}
	if cmd.FinalReproject {
		s.project()
		s.after(0, s.project)
	}
	slog.Info("intro animation finished", "elapsed", elapsed, "frames", s.frames)
}

func (s *Session) render() {
	if err := s.surface.Render(s.graph, s.rig); err != nil {
		cerrors.Log(fmt.Errorf("render frame: %w", err))
	}
}

func (s *Session) project() {
	if s.closed.Load() || s.graph == nil {
		return
	}
	s.opts.Overlay.SetGeometry(projector.Project(s.graph.Screen, s.rig, s.surface.Bounds()))
}

func (s *Session) fullscreen() {
	if s.closed.Load() {
		return
	}
	s.opts.Overlay.SetFullscreen()
	s.timeline.Reveal()
	s.markRevealed()
}

func (s *Session) markRevealed() {
	if !s.revealed.CompareAndSwap(false, true) {
		return
	}
	slog.Info("overlay revealed", "profile", s.opts.Profile.Name)
	if s.opts.OnReveal != nil {
		s.opts.OnReveal()
	}
}

// after runs fn on the scheduler after d unless the session closes first.
func (s *Session) after(d time.Duration, fn func()) {
	s.timerSeq++
	id := s.timerSeq
	s.timers[id] = s.sched.AfterFunc(d, func() {
		delete(s.timers, id)
		fn()
	})
}

// refit moves the end of the first zoom so the tablet fits the current aspect.
func (s *Session) refit() {
	p := s.timeline.Profile()
	d := s.rig.FitToTablet(p.EndFOV, p.FitMargin)
	s.timeline.SetEndPosition(math32.Vec3(0, 0, d))
}

func (s *Session) handleResize(vp Viewport) {
	if s.closed.Load() || s.surface == nil {
		return
	}
	s.surface.Resize(vp)
	s.rig.SetAspect(vp.Aspect())
	s.refit()

	p := s.timeline.Profile()
	if p.Mobile {
		// The fullscreen overlay follows the viewport through CSS.
		return
	}
	if s.timeline.Finished() {
		s.rig.Position = s.timeline.EndPosition()
		s.rig.FOV = p.EndFOV
		s.rig.PointAt(s.graph.Tablet.Pos)
		s.render()
	}
	if s.revealed.Load() {
		s.project()
	}
}

// Revealed reports whether the overlay content has been shown.
func (s *Session) Revealed() bool { return s.revealed.Load() }

func (s *Session) Phase() director.Phase {
	if s.timeline == nil {
		return director.Idle
	}
	return s.timeline.Phase()
}

// Frames is the number of animation frames rendered so far.
func (s *Session) Frames() int { return s.frames }

// Rig exposes the camera for inspection; nil before Start.
func (s *Session) Rig() *camera.Rig { return s.rig }

// Graph exposes the scene for inspection; nil before Start.
func (s *Session) Graph() *scene.Graph { return s.graph }

// Running reports whether an animation frame is still requested.
func (s *Session) Running() bool { return s.framePending && !s.closed.Load() }

// Close cancels the pending frame and timers, removes the resize listeners
// and releases the scene. It is safe to call more than once, and nothing is
// written to the overlay afterwards.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if s.framePending {
		s.sched.CancelFrame(s.frameHandle)
		s.framePending = false
	}
	for id, cancel := range s.timers {
		cancel()
		delete(s.timers, id)
	}
	if s.runloop != nil {
		s.runloop.Stop()
	}
	if s.surface != nil {
		s.surface.Dispose()
	}
	if s.graph != nil {
		s.graph.Dispose()
	}
	slog.Debug("intro session closed", "frames", s.frames)
}
