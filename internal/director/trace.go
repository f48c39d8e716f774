package director

import (
	"errors"
	"fmt"

	"cogentcore.org/core/math32"

	"github.com/ivlev/tabletintro/internal/camera"
	"github.com/ivlev/tabletintro/internal/config"
	"github.com/ivlev/tabletintro/internal/scene"
)

// Trace is a sampled run of the timeline, suitable for diffing profiles or
// driving an external renderer.
type Trace struct {
	Version   string     `yaml:"version"`
	Profile   string     `yaml:"profile"`
	FPS       int        `yaml:"fps"`
	Aspect    float32    `yaml:"aspect"`
	Duration  float64    `yaml:"duration"` // seconds until the last keyframe
	Keyframes []Keyframe `yaml:"keyframes"`
}

// Keyframe is the camera and tablet pose at one sampled instant.
type Keyframe struct {
	Time      float64        `yaml:"time"`
	Phase     string         `yaml:"phase"`
	Camera    math32.Vector3 `yaml:"camera"`
	FOV       float32        `yaml:"fov"`
	RotationY float32        `yaml:"rotation_y"`
	Events    []string       `yaml:"events,omitempty"`
}

// Frame-level events recorded in keyframes.
const (
	EventReveal         = "reveal"
	EventFullscreen     = "fullscreen"
	EventFinalReproject = "final_reproject"
)

var ErrBadFPS = errors.New("fps must be positive")

// Sample runs a fresh timeline for profile at a fixed frame rate, against a
// freshly built scene so the mobile second zoom sees the real screen
// position. The end position is fitted to aspect first.
func Sample(profile config.DeviceProfile, fps int, aspect float32) (*Trace, error) {
	if fps <= 0 {
		return nil, ErrBadFPS
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("sample: %w", err)
	}

	g := scene.Build(profile.Mobile)
	defer g.Dispose()

	tl := New(profile)
	d := camera.FitDistance(camera.TabletHalfWidth, camera.TabletHalfHeight, profile.EndFOV, aspect, profile.FitMargin)
	tl.SetEndPosition(math32.Vec3(0, 0, d))

	tr := &Trace{
		Version: "1.0",
		Profile: profile.Name,
		FPS:     fps,
		Aspect:  aspect,
	}

	fullscreenAt := -1.0
	for i := 0; ; i++ {
		elapsed := float64(i) / float64(fps)

		var events []string
		if fullscreenAt >= 0 && elapsed >= fullscreenAt {
			tl.Reveal()
			fullscreenAt = -1
			events = append(events, EventFullscreen)
		}

		cmd := tl.Advance(elapsed, g.ScreenWorldPositionAt)
		if cmd.Reveal {
			events = append(events, EventReveal)
		}
		if cmd.ScheduleFullscreen {
			fullscreenAt = elapsed + cmd.FullscreenDelay.Seconds()
		}
		if cmd.FinalReproject {
			events = append(events, EventFinalReproject)
		}

		tr.Keyframes = append(tr.Keyframes, Keyframe{
			Time:      elapsed,
			Phase:     cmd.Phase.String(),
			Camera:    cmd.CameraPosition,
			FOV:       cmd.CameraFOV,
			RotationY: cmd.TabletRotationY,
			Events:    events,
		})
		tr.Duration = elapsed

		if !cmd.Continue && fullscreenAt < 0 {
			break
		}
	}
	return tr, nil
}

// At returns the last keyframe at or before elapsed.
func (tr *Trace) At(elapsed float64) (Keyframe, bool) {
	var kf Keyframe
	found := false
	for _, k := range tr.Keyframes {
		if k.Time > elapsed {
			break
		}
		kf, found = k, true
	}
	return kf, found
}

// FirstEvent returns the time of the first keyframe carrying event.
func (tr *Trace) FirstEvent(event string) (float64, bool) {
	for _, k := range tr.Keyframes {
		for _, e := range k.Events {
			if e == event {
				return k.Time, true
			}
		}
	}
	return 0, false
}
