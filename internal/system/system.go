// Package system holds host helpers for the preview tool: encoder probing,
// file discovery, resource stats and a frame buffer pool.
package system

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// hardwareEncoders in order of preference. libx264 is the fallback.
var hardwareEncoders = []string{"h264_videotoolbox", "h264_nvenc"}

const SoftwareEncoder = "libx264"

// GetBestH264Encoder asks ffmpeg which encoders it has and returns the best
// available one.
func GetBestH264Encoder(ctx context.Context) string {
	out, err := exec.CommandContext(ctx, "ffmpeg", "-hide_banner", "-encoders").CombinedOutput()
	if err != nil {
		return SoftwareEncoder
	}
	return pickEncoder(string(out))
}

func pickEncoder(encoders string) string {
	for _, name := range hardwareEncoders {
		if strings.Contains(encoders, name) {
			return name
		}
	}
	return SoftwareEncoder
}

// HasFFmpeg reports whether an ffmpeg binary is on PATH.
func HasFFmpeg() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// FindLatest returns the most recently modified file in dir whose extension
// is one of exts (case-insensitive).
func FindLatest(dir string, exts ...string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !hasExt(f.Name(), exts) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if latestFile == "" || info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("no %s files in %s", strings.Join(exts, "/"), dir)
	}
	return latestFile, nil
}

// FindLatestProfile picks the newest device profile document in dir.
func FindLatestProfile(dir string) (string, error) {
	return FindLatest(dir, ".yaml", ".yml")
}

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
