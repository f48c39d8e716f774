// Package projector places the HTML overlay over the tablet screen by
// projecting the screen mesh into page coordinates.
package projector

import (
	"fmt"
	"image"
	"log/slog"
	"math"
	"strings"

	"cogentcore.org/core/math32"

	"github.com/ivlev/tabletintro/internal/camera"
	"github.com/ivlev/tabletintro/internal/scene"
)

// Overlay insets in CSS pixels. The height loses three times the width inset
// so the overlay clears the thicker top and bottom bezels.
const (
	WidthInset  = 5
	HeightInset = 3 * WidthInset
)

// Rect is a rectangle in page (CSS pixel) coordinates, like a DOM bounding
// client rect.
type Rect struct {
	Left, Top, Width, Height float64
}

func (r Rect) Empty() bool { return !(r.Width > 0 && r.Height > 0) }

// Image converts the rect to integer pixels, scaled by ratio.
func (r Rect) Image(ratio float64) image.Rectangle {
	return image.Rect(
		int(math.Round(r.Left*ratio)), int(math.Round(r.Top*ratio)),
		int(math.Round((r.Left+r.Width)*ratio)), int(math.Round((r.Top+r.Height)*ratio)))
}

type Mode int

const (
	ModeProjected Mode = iota
	ModeFullscreen
)

func (m Mode) String() string {
	if m == ModeFullscreen {
		return "fullscreen"
	}
	return "projected"
}

// OverlayGeometry is where the overlay element goes. In projected mode Left
// and Top are the center of the element.
type OverlayGeometry struct {
	Mode   Mode
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// Bounds is the box covered by the overlay in page coordinates. viewport is
// used for fullscreen mode.
func (g OverlayGeometry) Bounds(viewport Rect) Rect {
	if g.Mode == ModeFullscreen {
		return Rect{Width: viewport.Width, Height: viewport.Height}
	}
	return Rect{
		Left:   g.Left - g.Width/2,
		Top:    g.Top - g.Height/2,
		Width:  g.Width,
		Height: g.Height,
	}
}

// Style renders the geometry as inline CSS declarations.
func (g OverlayGeometry) Style() string {
	var decl [][2]string
	if g.Mode == ModeFullscreen {
		decl = [][2]string{
			{"position", "fixed"},
			{"left", "0"},
			{"top", "0"},
			{"width", "100%"},
			{"height", "var(--app-height)"},
			{"transform", "none"},
		}
	} else {
		decl = [][2]string{
			{"position", "absolute"},
			{"left", px(g.Left)},
			{"top", px(g.Top)},
			{"width", px(g.Width)},
			{"height", px(g.Height)},
			{"transform", "translate(-50%, -50%)"},
		}
	}

	var b strings.Builder
	for i, d := range decl {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s: %s;", d[0], d[1])
	}
	return b.String()
}

func px(v float64) string {
	return fmt.Sprintf("%gpx", math.Round(v*100)/100)
}

// OverlaySink receives overlay placements, typically a DOM element.
type OverlaySink interface {
	SetGeometry(OverlayGeometry)
	SetFullscreen()
}

// Fullscreen is the mobile placement: the overlay covers the whole viewport.
func Fullscreen() OverlayGeometry {
	return OverlayGeometry{Mode: ModeFullscreen}
}

// Project maps the screen mesh through rig onto canvas and returns the
// overlay geometry in page coordinates. Degenerate projections never produce
// negative sizes.
func Project(screen *scene.Node, rig *camera.Rig, canvas Rect) OverlayGeometry {
	w, h := screen.Mesh.Size.X, screen.Mesh.Size.Y
	screen.UpdateWorldMatrix()

	center := rig.Project(screen.WorldPoint(math32.Vector3{}))
	topLeft := rig.Project(screen.WorldPoint(math32.Vec3(-w/2, h/2, 0)))
	bottomRight := rig.Project(screen.WorldPoint(math32.Vec3(w/2, -h/2, 0)))

	halfW, halfH := canvas.Width/2, canvas.Height/2
	cx, cy := toCanvas(center, halfW, halfH)
	x1, y1 := toCanvas(topLeft, halfW, halfH)
	x2, y2 := toCanvas(bottomRight, halfW, halfH)

	g := OverlayGeometry{
		Mode:   ModeProjected,
		Left:   canvas.Left + cx,
		Top:    canvas.Top + cy,
		Width:  floor0(math.Abs(x2-x1) - WidthInset),
		Height: floor0(math.Abs(y2-y1) - HeightInset),
	}
	if !finite(g.Left) || !finite(g.Top) {
		slog.Debug("degenerate overlay projection", "center", center)
		g.Left, g.Top = canvas.Left+halfW, canvas.Top+halfH
	}
	return g
}

func toCanvas(ndc math32.Vector3, halfW, halfH float64) (x, y float64) {
	return float64(ndc.X)*halfW + halfW, -float64(ndc.Y)*halfH + halfH
}

// floor0 clamps to zero and maps NaN to zero.
func floor0(v float64) float64 {
	if !(v > 0) {
		return 0
	}
	if math.IsInf(v, 1) {
		return 0
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
