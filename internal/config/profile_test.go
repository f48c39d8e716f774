package config

import (
	"os"
	"path/filepath"
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectBreakpoint(t *testing.T) {
	tests := []struct {
		width  int
		mobile bool
	}{
		{320, true},
		{420, true},
		{421, false},
		{1920, false},
	}

	for _, tt := range tests {
		p := SelectProfile(tt.width)
		assert.Equal(t, tt.mobile, p.Mobile, "width %d", tt.width)
	}
}

func TestProfileDurations(t *testing.T) {
	d := DesktopProfile()
	assert.InDelta(t, 3.8, d.TotalDuration(), 1e-9)
	assert.InDelta(t, 2.1, d.RevealAt(), 1e-9)

	m := MobileProfile()
	assert.InDelta(t, 3.4, m.TotalDuration(), 1e-9)
	assert.InDelta(t, 1.7, m.RevealAt(), 1e-9)
}

func TestSelectReturnsCopy(t *testing.T) {
	ps := DefaultProfiles()
	p := ps.Select(1280)
	ps.Desktop.Spin = 7
	assert.Equal(t, float32(2), p.Spin)
}

func TestValidate(t *testing.T) {
	require.NoError(t, DesktopProfile().Validate())
	require.NoError(t, MobileProfile().Validate())

	bad := DesktopProfile()
	bad.DurationCameraZoom = 0
	assert.ErrorIs(t, bad.Validate(), ErrBadDuration)

	bad = MobileProfile()
	bad.SecondZoomFOV = 0
	assert.ErrorIs(t, bad.Validate(), ErrBadFOV)
}

func TestProfilesWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")

	ps := DefaultProfiles()
	ps.Desktop.StartPos = math32.Vec3(-10, 20, -25)
	require.NoError(t, WriteProfiles(&ps, path))

	got, err := ReadProfiles(path)
	require.NoError(t, err)
	assert.Equal(t, ps.Desktop.StartPos, got.Desktop.StartPos)
	assert.Equal(t, ps.Mobile.SecondZoomFOV, got.Mobile.SecondZoomFOV)
	assert.True(t, got.Mobile.Mobile)
}

func TestReadProfilesPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	doc := "version: \"1.0\"\ndesktop:\n  spin: 4\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	got, err := ReadProfiles(path)
	require.NoError(t, err)
	assert.Equal(t, float32(4), got.Desktop.Spin)
	assert.Equal(t, float32(75), got.Desktop.StartFOV)
	assert.Equal(t, MobileProfile(), got.Mobile)
}
