package director

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/tabletintro/internal/config"
)

func TestSampleDesktop(t *testing.T) {
	tr, err := Sample(config.DesktopProfile(), 60, 16.0/9)
	require.NoError(t, err)
	require.NotEmpty(t, tr.Keyframes)

	assert.Equal(t, "desktop", tr.Profile)
	assert.Equal(t, RotatingZoomingIn.String(), tr.Keyframes[0].Phase)

	reveal, ok := tr.FirstEvent(EventReveal)
	require.True(t, ok)
	assert.InDelta(t, 2.1, reveal, 1.0/60+1e-9)

	final, ok := tr.FirstEvent(EventFinalReproject)
	require.True(t, ok)
	assert.InDelta(t, 3.8, final, 1.0/60+1e-9)
	assert.Equal(t, final, tr.Duration)

	_, ok = tr.FirstEvent(EventFullscreen)
	assert.False(t, ok)

	last := tr.Keyframes[len(tr.Keyframes)-1]
	assert.Equal(t, Revealed.String(), last.Phase)
	assert.Greater(t, last.Camera.Z, float32(15), "end position is fitted to the aspect")
}

func TestSampleMobile(t *testing.T) {
	tr, err := Sample(config.MobileProfile(), 60, 390.0/844)
	require.NoError(t, err)

	fs, ok := tr.FirstEvent(EventFullscreen)
	require.True(t, ok)
	assert.Greater(t, fs, 2.4)
	assert.Less(t, fs, 2.6)

	kf, ok := tr.At(fs)
	require.True(t, ok)
	assert.Equal(t, Revealed.String(), kf.Phase)
	assert.Equal(t, float32(28), kf.FOV)
	assert.InDelta(t, 0.61, kf.Camera.Z, 1e-4, "second zoom stops 0.6 in front of the screen")

	_, ok = tr.FirstEvent(EventReveal)
	assert.False(t, ok)
}

func TestSampleRejectsBadFPS(t *testing.T) {
	_, err := Sample(config.DesktopProfile(), 0, 1)
	assert.ErrorIs(t, err, ErrBadFPS)
}

func TestTraceWriteRead(t *testing.T) {
	tr, err := Sample(config.DesktopProfile(), 10, 1.5)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "trace.yaml")
	require.NoError(t, WriteTrace(tr, path))

	got, err := ReadTrace(path)
	require.NoError(t, err)
	assert.Equal(t, tr.Version, got.Version)
	require.Len(t, got.Keyframes, len(tr.Keyframes))
	assert.InDelta(t, tr.Keyframes[5].Camera.Z, got.Keyframes[5].Camera.Z, 1e-5)
	assert.Equal(t, tr.Keyframes[len(tr.Keyframes)-1].Events, got.Keyframes[len(got.Keyframes)-1].Events)
}

func TestGenerateTracePath(t *testing.T) {
	path := GenerateTracePath("traces", "mobile")
	assert.True(t, strings.HasPrefix(path, filepath.Join("traces", "trace_mobile_")))
	assert.True(t, strings.HasSuffix(path, ".yaml"))
}

func TestFindLatestTrace(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		filepath.Join(dir, "trace_desktop_2026-02-12_10-00-00.yaml"),
		filepath.Join(dir, "trace_desktop_2026-02-13_01-00-00.yaml"),
		filepath.Join(dir, "trace_mobile_2026-02-11_15-30-00.yaml"),
	}
	for i, f := range files {
		require.NoError(t, os.WriteFile(f, []byte("version: \"1.0\"\n"), 0644))
		modTime := time.Now().Add(time.Duration(i) * time.Hour)
		require.NoError(t, os.Chtimes(f, modTime, modTime))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0644))

	latest, err := FindLatestTrace(dir)
	require.NoError(t, err)
	assert.Equal(t, files[len(files)-1], latest)

	_, err = FindLatestTrace(t.TempDir())
	assert.Error(t, err)
}
