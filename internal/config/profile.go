package config

import (
	"errors"
	"fmt"
	"os"

	"cogentcore.org/core/math32"
	"gopkg.in/yaml.v3"
)

// MobileBreakpoint is the max-width (CSS px) at or below which the mobile
// profile is used.
const MobileBreakpoint = 420

// DeviceProfile holds every animation constant that differs between phones
// and larger screens. It is chosen once per intro run and never mutated.
type DeviceProfile struct {
	Name   string `yaml:"name"`
	Mobile bool   `yaml:"mobile"`

	DurationRotation   float64 `yaml:"duration_rotation"`    // seconds
	DurationCameraZoom float64 `yaml:"duration_camera_zoom"` // seconds
	Spin               float32 `yaml:"spin"`                 // half-turns of the tablet

	StartPos math32.Vector3 `yaml:"start_pos"`
	EndPos   math32.Vector3 `yaml:"end_pos"`
	StartFOV float32        `yaml:"start_fov"`
	EndFOV   float32        `yaml:"end_fov"`

	// RevealLeadTime shows the overlay this long before the zoom settles.
	RevealLeadTime float64 `yaml:"reveal_lead_time"`

	SecondZoomDuration float64 `yaml:"second_zoom_duration"`
	SecondZoomFOV      float32 `yaml:"second_zoom_fov"`
	SecondZoomMargin   float32 `yaml:"second_zoom_margin"`
	RevealDelay        float64 `yaml:"reveal_delay"` // seconds between second zoom end and fullscreen

	FitMargin float32 `yaml:"fit_margin"`
}

// TotalDuration is the length of the rotation plus camera zoom phases.
func (p DeviceProfile) TotalDuration() float64 {
	return p.DurationRotation + p.DurationCameraZoom
}

// RevealAt is the elapsed time after which the overlay is revealed (desktop)
// or the second zoom starts (mobile).
func (p DeviceProfile) RevealAt() float64 {
	return p.TotalDuration() - p.RevealLeadTime
}

var (
	ErrBadDuration = errors.New("profile durations must be positive")
	ErrBadFOV      = errors.New("profile field of view must be in (0, 180)")
)

// Validate checks the constants that would otherwise produce NaNs in the
// timeline.
func (p DeviceProfile) Validate() error {
	if p.DurationRotation <= 0 || p.DurationCameraZoom <= 0 {
		return fmt.Errorf("%s: %w", p.Name, ErrBadDuration)
	}
	if p.Mobile && p.SecondZoomDuration <= 0 {
		return fmt.Errorf("%s second zoom: %w", p.Name, ErrBadDuration)
	}
	for _, fov := range []float32{p.StartFOV, p.EndFOV} {
		if fov <= 0 || fov >= 180 {
			return fmt.Errorf("%s: %w", p.Name, ErrBadFOV)
		}
	}
	if p.Mobile && (p.SecondZoomFOV <= 0 || p.SecondZoomFOV >= 180) {
		return fmt.Errorf("%s second zoom: %w", p.Name, ErrBadFOV)
	}
	return nil
}

func DesktopProfile() DeviceProfile {
	return DeviceProfile{
		Name:               "desktop",
		DurationRotation:   1.7,
		DurationCameraZoom: 2.1,
		Spin:               2,
		StartPos:           math32.Vec3(-15, 30, -30),
		EndPos:             math32.Vec3(0, 0, 20),
		StartFOV:           75,
		EndFOV:             35,
		RevealLeadTime:     1.7,
		FitMargin:          1.15,
	}
}

func MobileProfile() DeviceProfile {
	return DeviceProfile{
		Name:               "mobile",
		Mobile:             true,
		DurationRotation:   1.8,
		DurationCameraZoom: 1.6,
		Spin:               0,
		StartPos:           math32.Vec3(-15, 30, 30),
		EndPos:             math32.Vec3(0, 0, 20),
		StartFOV:           75,
		EndFOV:             35,
		RevealLeadTime:     1.7,
		SecondZoomDuration: 0.3,
		SecondZoomFOV:      28,
		SecondZoomMargin:   0.6,
		RevealDelay:        0.4,
		FitMargin:          1.15,
	}
}

// Profiles is the on-disk YAML document with both device variants.
type Profiles struct {
	Version string        `yaml:"version"`
	Desktop DeviceProfile `yaml:"desktop"`
	Mobile  DeviceProfile `yaml:"mobile"`
}

func DefaultProfiles() Profiles {
	return Profiles{
		Version: "1.0",
		Desktop: DesktopProfile(),
		Mobile:  MobileProfile(),
	}
}

// Select applies the breakpoint to a viewport width. The result is a copy, so
// later edits to ps do not leak into a running intro.
func (ps Profiles) Select(viewportWidth int) DeviceProfile {
	if viewportWidth <= MobileBreakpoint {
		return ps.Mobile
	}
	return ps.Desktop
}

// SelectProfile is Select over the built-in profiles.
func SelectProfile(viewportWidth int) DeviceProfile {
	return DefaultProfiles().Select(viewportWidth)
}

// WriteProfiles writes profiles to a YAML file
func WriteProfiles(ps *Profiles, path string) error {
	data, err := yaml.Marshal(ps)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ReadProfiles reads profiles from a YAML file. Missing keys keep their
// built-in defaults.
func ReadProfiles(path string) (*Profiles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	ps := DefaultProfiles()
	if err := yaml.Unmarshal(data, &ps); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	ps.Desktop.Mobile = false
	ps.Mobile.Mobile = true

	if err := ps.Desktop.Validate(); err != nil {
		return nil, err
	}
	if err := ps.Mobile.Validate(); err != nil {
		return nil, err
	}
	return &ps, nil
}
