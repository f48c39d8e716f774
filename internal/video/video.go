package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

// FrameWriter consumes preview frames in presentation order.
type FrameWriter interface {
	WriteFrame(img image.Image) error
	Close() error
}

var ErrFrameSize = errors.New("frame size does not match stream")

// StreamParams describes the raw RGBA stream fed to the encoder.
type StreamParams struct {
	Width   int
	Height  int
	FPS     int
	Encoder string
	Quality int
}

type FFmpegEncoder struct {
	// Binary defaults to "ffmpeg" on PATH.
	Binary string
}

// Open starts ffmpeg reading raw frames from stdin and writing videoPath.
func (e *FFmpegEncoder) Open(ctx context.Context, videoPath string, params StreamParams) (*Stream, error) {
	bin := e.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	if err := os.MkdirAll(filepath.Dir(videoPath), 0755); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, bin, BuildFFmpegArgs(videoPath, params)...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}

	return newStream(stdin, func() error {
		if err := cmd.Wait(); err != nil {
			return fmt.Errorf("ffmpeg wait error: %w\nLog: %s", err, out.String())
		}
		return nil
	}, params.Width, params.Height), nil
}

// BuildFFmpegArgs returns the ffmpeg command line for a raw RGBA stdin stream.
func BuildFFmpegArgs(videoPath string, params StreamParams) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", params.Width, params.Height),
		"-framerate", fmt.Sprintf("%d", params.FPS),
		"-i", "-",
		"-r", fmt.Sprintf("%d", params.FPS),
		"-pix_fmt", "yuv420p",
		"-c:v", params.Encoder,
	}
	args = append(args, QualityArgs(params.Encoder, params.Quality)...)
	args = append(args, videoPath)
	return args
}

// QualityArgs maps one quality number onto each encoder's own knob.
func QualityArgs(encoder string, quality int) []string {
	switch encoder {
	case "h264_videotoolbox":
		// VideoToolbox ignores -q:v on some builds, so use bitrate. 75 -> 7.5Mbit/s
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return []string{"-cq", fmt.Sprintf("%d", quality)}
	default: // libx264
		return []string{"-crf", fmt.Sprintf("%d", quality), "-preset", "medium"}
	}
}

// DefaultQuality is used when the caller passes 0.
func DefaultQuality(encoder string) int {
	switch encoder {
	case "h264_videotoolbox":
		return 75
	case "h264_nvenc":
		return 28
	default:
		return 23
	}
}

// Stream pipes frames to a running encoder.
type Stream struct {
	w             io.WriteCloser
	wait          func() error
	width, height int
	frames        int
	closed        bool
}

func newStream(w io.WriteCloser, wait func() error, width, height int) *Stream {
	return &Stream{w: w, wait: wait, width: width, height: height}
}

func (s *Stream) WriteFrame(img image.Image) error {
	b := img.Bounds()
	if b.Dx() != s.width || b.Dy() != s.height {
		return fmt.Errorf("%w: got %dx%d, want %dx%d", ErrFrameSize, b.Dx(), b.Dy(), s.width, s.height)
	}
	if err := writeRawRGBA(s.w, img); err != nil {
		return fmt.Errorf("write raw error: %w", err)
	}
	s.frames++
	return nil
}

func (s *Stream) Frames() int { return s.frames }

// Close ends the input and waits for the encoder to finish the file.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.w.Close()
	if s.wait == nil {
		return nil
	}
	return s.wait()
}

func writeRawRGBA(w io.Writer, img image.Image) error {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || rgba.Rect.Min.X != 0 || rgba.Rect.Min.Y != 0 {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	_, err := w.Write(rgba.Pix)
	return err
}

// PNGSequence writes frames as numbered PNG files, for inspection without
// ffmpeg.
type PNGSequence struct {
	Dir    string
	Prefix string
	frames int
}

func NewPNGSequence(dir, prefix string) (*PNGSequence, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = "frame"
	}
	return &PNGSequence{Dir: dir, Prefix: prefix}, nil
}

// FramePath is the file the n-th frame is written to.
func (p *PNGSequence) FramePath(n int) string {
	return filepath.Join(p.Dir, fmt.Sprintf("%s_%05d.png", p.Prefix, n))
}

func (p *PNGSequence) WriteFrame(img image.Image) error {
	f, err := os.Create(p.FramePath(p.frames))
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	p.frames++
	return f.Close()
}

func (p *PNGSequence) Frames() int { return p.frames }

func (p *PNGSequence) Close() error { return nil }

// Tee writes every frame to all writers and closes them all.
type Tee []FrameWriter

func (t Tee) WriteFrame(img image.Image) error {
	for _, w := range t {
		if err := w.WriteFrame(img); err != nil {
			return err
		}
	}
	return nil
}

func (t Tee) Close() error {
	var errs []error
	for _, w := range t {
		errs = append(errs, w.Close())
	}
	return errors.Join(errs...)
}
