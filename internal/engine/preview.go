package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"cogentcore.org/core/math32"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/tabletintro/internal/analyzer"
	"github.com/ivlev/tabletintro/internal/camera"
	"github.com/ivlev/tabletintro/internal/config"
	"github.com/ivlev/tabletintro/internal/director"
	"github.com/ivlev/tabletintro/internal/effects"
	"github.com/ivlev/tabletintro/internal/projector"
	"github.com/ivlev/tabletintro/internal/renderer"
	"github.com/ivlev/tabletintro/internal/scene"
	"github.com/ivlev/tabletintro/internal/system"
	"github.com/ivlev/tabletintro/internal/video"
)

const (
	// HoldTime keeps recording after the intro settles so the revealed
	// overlay is visible in the output.
	HoldTime = time.Second
	// MaxPreviewTime bounds a capture whose intro never settles.
	MaxPreviewTime = 20 * time.Second
)

var ErrNoFrames = errors.New("preview captured no frames")

// Snapshot is everything needed to redraw one captured frame.
type Snapshot struct {
	config.RenderParams

	Phase     director.Phase
	RotationY float32
	Camera    math32.Vector3
	FOV       float32
	Revealed  bool
	Overlay   projector.OverlayGeometry
}

func (s Snapshot) viewport() Viewport {
	return Viewport{Width: s.Width, Height: s.Height, PixelRatio: s.PixelRatio}
}

// PreviewResult summarizes one headless run.
type PreviewResult struct {
	Frames      int
	RevealFrame int // -1 if the overlay never appeared
	RevealAt    time.Duration
	Alignment   *analyzer.Drift
	Stats       *system.Summary

	CaptureTime time.Duration
	RenderTime  time.Duration
}

// Preview plays the intro headless: a real Session runs on a virtual clock,
// every frame is rasterized in software, the overlay content is composited
// and the frames go to Output in order.
type Preview struct {
	Config   *config.Config
	Profile  config.DeviceProfile
	Gate     Preloader
	Effect   effects.Effect
	Output   video.FrameWriter
	Detector analyzer.Detector
}

func NewPreview(cfg *config.Config, profile config.DeviceProfile, gate Preloader, eff effects.Effect, out video.FrameWriter) *Preview {
	return &Preview{
		Config:   cfg,
		Profile:  profile,
		Gate:     gate,
		Effect:   eff,
		Output:   out,
		Detector: analyzer.NewTabletDetector(),
	}
}

func (p *Preview) Run(ctx context.Context) (*PreviewResult, error) {
	startTime := time.Now()
	var monitor *system.Monitor
	if p.Config.ShowStats {
		monitor = system.StartMonitor(ctx, 250*time.Millisecond)
	}

	fmt.Println("--- [TABLET INTRO: PREVIEW] ---")
	fmt.Printf("[*] Профиль: %s | Вьюпорт: %dx%d @ %.1fx | %d FPS\n",
		p.Profile.Name, p.Config.Width, p.Config.Height, p.Config.PixelRatio, p.Config.FPS)
	fmt.Println("-----------------------------")

	shots, err := p.Capture(ctx)
	if err != nil {
		if monitor != nil {
			monitor.Stop()
		}
		return nil, err
	}
	captureTime := time.Since(startTime)

	res := &PreviewResult{Frames: len(shots), RevealFrame: -1, CaptureTime: captureTime}
	for i, s := range shots {
		if s.Revealed {
			res.RevealFrame = i
			res.RevealAt = time.Duration(s.Elapsed * float64(time.Second))
			break
		}
	}
	fmt.Printf("[*] Захвачено кадров: %d (раскрытие на кадре %d)\n", len(shots), res.RevealFrame)

	renderStart := time.Now()
	drift, err := p.renderAll(ctx, shots)
	if err != nil {
		if monitor != nil {
			monitor.Stop()
		}
		return nil, err
	}
	res.Alignment = drift
	res.RenderTime = time.Since(renderStart)

	if monitor != nil {
		sum := monitor.Stop()
		res.Stats = &sum
	}
	if p.Config.ShowStats {
		p.report(res, time.Since(startTime))
	}
	return res, nil
}

// Capture runs the session on a virtual clock and records one snapshot per
// frame until the intro has settled for HoldTime.
func (p *Preview) Capture(ctx context.Context) ([]Snapshot, error) {
	cfg := p.Config
	sched := NewVirtualScheduler(FrameRate(cfg.FPS))
	vp := NewManualViewport(Viewport{Width: cfg.Width, Height: cfg.Height, PixelRatio: cfg.PixelRatio})
	overlay := &projector.Recorder{}

	session := NewSession(Options{
		Container: captureContainer{},
		Overlay:   overlay,
		Profile:   p.Profile,
		Scheduler: sched,
		Gate:      p.Gate,
		Viewport:  vp,
	})
	if err := session.Start(ctx); err != nil {
		return nil, err
	}
	defer session.Close()

	if cfg.ResizeAt > 0 && cfg.ResizeWidth > 0 && cfg.ResizeHeight > 0 {
		sched.AfterFunc(time.Duration(cfg.ResizeAt*float64(time.Second)), func() {
			vp.Resize(cfg.ResizeWidth, cfg.ResizeHeight)
		})
	}

	var (
		shots     []Snapshot
		settledAt time.Duration = -1
		done      bool
	)
	var capture FrameFunc
	capture = func(now time.Duration) {
		shots = append(shots, p.snapshot(len(shots), now, session, vp.Viewport(), overlay))

		settled := session.Revealed() && !session.Running()
		if settled && settledAt < 0 {
			settledAt = now
		}
		if (settledAt >= 0 && now-settledAt >= HoldTime) || now >= MaxPreviewTime {
			done = true
			return
		}
		sched.RequestFrame(capture)
	}
	sched.RequestFrame(capture)

	for !done {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !sched.Step() {
			break
		}
	}
	if len(shots) == 0 {
		return nil, ErrNoFrames
	}
	return shots, nil
}

func (p *Preview) snapshot(i int, now time.Duration, s *Session, vp Viewport, overlay *projector.Recorder) Snapshot {
	rig, g := s.Rig(), s.Graph()
	geo, _ := overlay.Current()
	return Snapshot{
		RenderParams: config.RenderParams{
			Width:      vp.Width,
			Height:     vp.Height,
			PixelRatio: vp.PixelRatio,
			FrameIndex: i,
			Elapsed:    now.Seconds(),
		},
		Phase:     s.Phase(),
		RotationY: g.Tablet.RotationY(),
		Camera:    rig.Position,
		FOV:       rig.FOV,
		Revealed:  s.Revealed(),
		Overlay:   geo,
	}
}

type renderResult struct {
	index int
	img   *image.RGBA
}

// renderAll rasterizes snapshots on a worker pool and writes them in order.
func (p *Preview) renderAll(ctx context.Context, shots []Snapshot) (*analyzer.Drift, error) {
	first := shots[0].viewport()
	scale := first.RenderScale()
	outW, outH := EvenSize(float64(first.Width)*scale), EvenSize(float64(first.Height)*scale)

	checkIndex := -1
	if p.Config.CheckAlignment && p.Detector != nil && !p.Profile.Mobile {
		// last frame with a projected overlay
		for i := len(shots) - 1; i >= 0; i-- {
			if shots[i].Revealed && shots[i].Overlay.Mode == projector.ModeProjected {
				checkIndex = i
				break
			}
		}
	}

	workers := p.Config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(shots))

	eg, ctx := errgroup.WithContext(ctx)
	jobs := make(chan int)
	results := make(chan renderResult, workers)
	var drift *analyzer.Drift

	eg.Go(func() error {
		defer close(jobs)
		for i := range shots {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	var wgRender sync.WaitGroup
	wgRender.Add(workers)
	go func() {
		wgRender.Wait()
		close(results)
	}()
	for w := 0; w < workers; w++ {
		eg.Go(func() error {
			defer wgRender.Done()
			fw := newFrameWorker(p.Profile.Mobile)
			for i := range jobs {
				img, d, err := fw.render(shots[i], outW, outH, p.Effect, p.Detector, i == checkIndex)
				if err != nil {
					return fmt.Errorf("frame %d: %w", i, err)
				}
				if d != nil {
					drift = d
				}
				select {
				case results <- renderResult{index: i, img: img}:
				case <-ctx.Done():
					system.PutImage(img)
					return ctx.Err()
				}
			}
			return nil
		})
	}

	eg.Go(func() error {
		pending := make(map[int]*image.RGBA)
		next := 0
		for r := range results {
			pending[r.index] = r.img
			for img, ok := pending[next]; ok; img, ok = pending[next] {
				delete(pending, next)
				err := p.Output.WriteFrame(img)
				system.PutImage(img)
				if err != nil {
					return fmt.Errorf("write frame %d: %w", next, err)
				}
				next++
				if next%30 == 0 || next == len(shots) {
					fmt.Printf("[>] Ready: %d/%d\n", next, len(shots))
				}
			}
		}
		for _, img := range pending {
			system.PutImage(img)
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return drift, nil
}

// frameWorker owns the scene and rasterizer of one render goroutine.
type frameWorker struct {
	graph *scene.Graph
	rast  *renderer.Rasterizer
}

func newFrameWorker(mobile bool) *frameWorker {
	return &frameWorker{graph: scene.Build(mobile), rast: renderer.NewRasterizer(1, 1)}
}

func (w *frameWorker) render(s Snapshot, outW, outH int, eff effects.Effect, det analyzer.Detector, check bool) (*image.RGBA, *analyzer.Drift, error) {
	vp := s.viewport()
	scale := vp.RenderScale()
	pw, ph := EvenSize(float64(vp.Width)*scale), EvenSize(float64(vp.Height)*scale)

	w.graph.SetTabletRotationY(s.RotationY)
	rig := camera.New(s.FOV, vp.Aspect(), s.Camera)
	rig.PointAt(w.graph.Tablet.Pos)

	img := system.GetImage(pw, ph)
	if err := w.rast.Render(img, w.graph, rig); err != nil {
		system.PutImage(img)
		return nil, nil, err
	}

	var drift *analyzer.Drift
	if check {
		overlay := s.Overlay.Bounds(vp.Rect()).Image(scale)
		if d, err := analyzer.CheckAlignment(det, img, overlay); err == nil {
			drift = &d
		} else {
			fmt.Printf("[!] Проверка выравнивания не удалась: %v\n", err)
		}
	}

	if eff != nil {
		eff.Apply(img, effects.Frame{Revealed: s.Revealed, Geometry: s.Overlay, Viewport: vp.Rect(), Scale: scale})
	}

	if pw == outW && ph == outH {
		return img, drift, nil
	}
	// viewport changed mid-run; letterbox into the output size
	out := system.GetImage(outW, outH)
	draw.Draw(out, out.Bounds(), image.NewUniform(scene.Background), image.Point{}, draw.Src)
	draw.ApproxBiLinear.Scale(out, effects.ContainRect(img.Bounds().Size(), out.Bounds()), img, img.Bounds(), draw.Src, nil)
	system.PutImage(img)
	return out, drift, nil
}

// EvenSize rounds to the nearest even size, which yuv420p requires.
func EvenSize(v float64) int {
	n := int(math.Round(v))
	if n%2 != 0 {
		n++
	}
	return max(n, 2)
}

func (p *Preview) report(res *PreviewResult, total time.Duration) {
	fps := float64(res.Frames) / total.Seconds()
	report := fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.2fs\n"+
			"Capture (virtual clock): %.2fs\n"+
			"Rendering (CPU): %.2fs\n"+
			"Frames: %d\n"+
			"Effective FPS: %.2f\n",
		p.Config.BuildVersion, total.Seconds(), res.CaptureTime.Seconds(), res.RenderTime.Seconds(), res.Frames, fps,
	)
	if res.Stats != nil {
		report += res.Stats.String() + "\n"
	}
	report += "----------------------------\n"
	fmt.Print(report)

	logEntry := fmt.Sprintf("[%s] Build: %s | Profile: %s | Frames: %d | Total: %.2fs | Render: %.2fs | FPS: %.2f\n",
		time.Now().Format("2006-01-02 15:04:05"),
		p.Config.BuildVersion,
		p.Profile.Name,
		res.Frames,
		total.Seconds(),
		res.RenderTime.Seconds(),
		fps,
	)
	if err := appendBenchmark(p.benchmarkDir(), logEntry); err != nil {
		fmt.Printf("[!] Не удалось записать benchmark.log: %v\n", err)
	}
}

// benchmarkDir keeps benchmark.log next to the run's output.
func (p *Preview) benchmarkDir() string {
	switch {
	case p.Config.OutputVideo != "":
		return filepath.Dir(p.Config.OutputVideo)
	case p.Config.FramesDir != "":
		return p.Config.FramesDir
	}
	return "."
}

func appendBenchmark(dir, entry string) error {
	f, err := os.OpenFile(filepath.Join(dir, "benchmark.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(entry); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// captureContainer hands out surfaces that only track layout; the pixels are
// produced later by the worker pool.
type captureContainer struct{}

func (captureContainer) NewSurface(vp Viewport) (Surface, error) {
	return &captureSurface{vp: vp}, nil
}

type captureSurface struct {
	vp       Viewport
	disposed bool
}

func (s *captureSurface) Bounds() projector.Rect {
	if s.disposed {
		return projector.Rect{}
	}
	return s.vp.Rect()
}

func (s *captureSurface) Resize(vp Viewport)                     { s.vp = vp }
func (s *captureSurface) Render(*scene.Graph, *camera.Rig) error { return nil }
func (s *captureSurface) Dispose()                               { s.disposed = true }
