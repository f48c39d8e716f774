package director

import (
	"time"

	"cogentcore.org/core/math32"

	"github.com/ivlev/tabletintro/internal/config"
	"github.com/ivlev/tabletintro/internal/renderer"
)

// Phase is the coarse state of the intro. It only ever moves forward.
type Phase int

const (
	Idle Phase = iota
	RotatingZoomingIn
	SecondZoom
	Revealed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case RotatingZoomingIn:
		return "rotating_zooming_in"
	case SecondZoom:
		return "second_zoom"
	case Revealed:
		return "revealed"
	}
	return "unknown"
}

// ScreenLocator returns the world position of the tablet screen once the
// tablet has been turned to rotY.
type ScreenLocator func(rotY float32) math32.Vector3

// FrameCommands is everything the session has to apply for one frame.
type FrameCommands struct {
	Elapsed float64
	Phase   Phase

	TabletRotationY float32
	CameraPosition  math32.Vector3
	CameraFOV       float32

	// Project asks for the overlay to be re-projected after rendering.
	Project bool
	// Reveal is set on the single frame where the overlay becomes visible.
	Reveal bool

	// ScheduleFullscreen is set once, when the second zoom has settled.
	ScheduleFullscreen bool
	FullscreenDelay    time.Duration

	// Continue is false once no more animation frames are needed.
	Continue bool
	// FinalReproject is set on the first frame that does not continue, on
	// desktop only.
	FinalReproject bool
}

// Timeline turns elapsed seconds into frame commands. It keeps only the
// latches the intro needs (zoom start, reveal, second zoom) and otherwise
// derives everything from absolute elapsed time.
type Timeline struct {
	profile config.DeviceProfile
	endPos  math32.Vector3

	phase       Phase
	started     bool
	zoomDelay   float64
	lastElapsed float64

	revealed            bool
	secondZoom          bool
	secondStart         float64
	endPos2             math32.Vector3
	fullscreenScheduled bool
	finished            bool
}

func New(profile config.DeviceProfile) *Timeline {
	return &Timeline{
		profile: profile,
		endPos:  profile.EndPos,
	}
}

func (t *Timeline) Profile() config.DeviceProfile { return t.profile }

func (t *Timeline) Phase() Phase { return t.phase }

// Finished reports whether a non-continuing frame has been produced.
func (t *Timeline) Finished() bool { return t.finished }

// EndPosition is where the first zoom settles.
func (t *Timeline) EndPosition() math32.Vector3 { return t.endPos }

// SetEndPosition moves the first zoom's target, normally after a refit.
func (t *Timeline) SetEndPosition(p math32.Vector3) { t.endPos = p }

// SecondZoomTarget is the camera target of the mobile second zoom, valid
// once the phase has reached SecondZoom.
func (t *Timeline) SecondZoomTarget() (math32.Vector3, bool) {
	return t.endPos2, t.secondZoom
}

// Reveal marks the overlay as shown. The session calls it when the mobile
// fullscreen timer fires.
func (t *Timeline) Reveal() {
	if t.revealed {
		return
	}
	t.revealed = true
	t.phase = Revealed
}

// Advance computes the frame at elapsed seconds since the first frame.
// locate may be nil, in which case the tablet origin is used for the second
// zoom target.
func (t *Timeline) Advance(elapsed float64, locate ScreenLocator) FrameCommands {
	p := &t.profile

	if !t.started {
		t.started = true
		t.zoomDelay = elapsed
		t.phase = RotatingZoomingIn
	}
	if elapsed < t.lastElapsed {
		elapsed = t.lastElapsed
	}
	t.lastElapsed = elapsed

	rot := p.Spin * math32.Pi * renderer.Fraction(elapsed, 0, p.DurationRotation)

	f := renderer.Fraction(elapsed, t.zoomDelay, p.DurationCameraZoom)
	cmd := FrameCommands{
		Elapsed:         elapsed,
		TabletRotationY: rot,
		CameraPosition:  renderer.LerpVector3(p.StartPos, t.endPos, f),
		CameraFOV:       renderer.Lerp(p.StartFOV, p.EndFOV, f),
	}

	if !t.revealed && elapsed > p.RevealAt() {
		switch {
		case !p.Mobile:
			t.revealed = true
			t.phase = Revealed
			cmd.Reveal = true
		case !t.secondZoom:
			var screen math32.Vector3
			if locate != nil {
				screen = locate(rot)
			}
			t.endPos2 = screen.Add(math32.Vec3(0, 0, p.SecondZoomMargin))
			t.secondStart = elapsed
			t.secondZoom = true
			t.phase = SecondZoom
		}
	}

	if p.Mobile && t.secondZoom {
		f2 := renderer.Fraction(elapsed, t.secondStart, p.SecondZoomDuration)
		cmd.CameraPosition = renderer.LerpVector3(t.endPos, t.endPos2, f2)
		cmd.CameraFOV = renderer.Lerp(p.EndFOV, p.SecondZoomFOV, f2)
		if f2 >= 1 && !t.revealed && !t.fullscreenScheduled {
			t.fullscreenScheduled = true
			cmd.ScheduleFullscreen = true
			cmd.FullscreenDelay = time.Duration(p.RevealDelay * float64(time.Second))
		}
	}

	cmd.Project = !p.Mobile && t.revealed

	inSecondZoom := p.Mobile && t.secondZoom && elapsed-t.secondStart < p.SecondZoomDuration
	cmd.Continue = elapsed < p.TotalDuration() || inSecondZoom
	if !cmd.Continue && !t.finished {
		t.finished = true
		cmd.FinalReproject = !p.Mobile
	}

	cmd.Phase = t.phase
	return cmd
}
