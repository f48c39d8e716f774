// Package effects paints the HTML overlay's content into rendered preview
// frames, at the rectangle the projector chose.
package effects

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/ivlev/tabletintro/internal/projector"
)

// Effect post-processes one rendered frame.
type Effect interface {
	Apply(dst *image.RGBA, f Frame)
}

// Frame is the overlay state that goes with one rendered image.
type Frame struct {
	Revealed bool
	Geometry projector.OverlayGeometry
	// Viewport is the page area in CSS pixels; Scale maps it to dst pixels.
	Viewport projector.Rect
	Scale    float64
}

// Compositor draws Content letterboxed inside the overlay rectangle once the
// overlay is revealed.
type Compositor struct {
	Content    image.Image
	Background color.RGBA
	// Padding in CSS pixels between the overlay edge and the content.
	Padding float64
	Scaler  draw.Scaler
}

func NewCompositor(content image.Image) *Compositor {
	return &Compositor{
		Content:    content,
		Background: color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		Padding:    8,
		Scaler:     draw.ApproxBiLinear,
	}
}

func (c *Compositor) Apply(dst *image.RGBA, f Frame) {
	if !f.Revealed {
		return
	}
	scale := f.Scale
	if scale <= 0 {
		scale = 1
	}

	box := f.Geometry.Bounds(f.Viewport).Image(scale).Intersect(dst.Bounds())
	if box.Empty() {
		return
	}
	draw.Draw(dst, box, image.NewUniform(c.Background), image.Point{}, draw.Src)

	if c.Content == nil {
		return
	}
	pad := int(c.Padding * scale)
	inner := box.Inset(pad)
	if inner.Empty() {
		return
	}
	target := ContainRect(c.Content.Bounds().Size(), inner)
	if target.Empty() {
		return
	}
	scaler := c.Scaler
	if scaler == nil {
		scaler = draw.ApproxBiLinear
	}
	scaler.Scale(dst, target, c.Content, c.Content.Bounds(), draw.Over, nil)
}

// ContainRect is the largest rectangle with src's aspect ratio centered in
// box.
func ContainRect(src image.Point, box image.Rectangle) image.Rectangle {
	if src.X <= 0 || src.Y <= 0 || box.Empty() {
		return image.Rectangle{}
	}
	bw, bh := box.Dx(), box.Dy()
	w, h := bw, src.Y*bw/src.X
	if h > bh {
		w, h = src.X*bh/src.Y, bh
	}
	x := box.Min.X + (bw-w)/2
	y := box.Min.Y + (bh-h)/2
	return image.Rect(x, y, x+w, y+h)
}
