package analyzer

import (
	"errors"
	"image"
	"image/color"
)

var ErrNotFound = errors.New("tablet not found")

// TabletDetector flood-fills from the frame center over pixels close to the
// center color. At the end of the intro that region is the tablet face.
type TabletDetector struct {
	// Tolerance is the largest per-channel distance (0-255) still counted
	// as the same surface.
	Tolerance int
	MinArea   int
}

func NewTabletDetector() *TabletDetector {
	return &TabletDetector{Tolerance: 24, MinArea: 64}
}

func (d *TabletDetector) Detect(img image.Image) ([]Block, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, ErrNotFound
	}
	colors := newPlane[color.RGBA](b)
	for y := 0; y < colors.h; y++ {
		for x := 0; x < colors.w; x++ {
			colors.set(x, y, color.RGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA))
		}
	}

	seed := image.Pt(colors.w/2, colors.h/2)
	ref := colors.at(seed.X, seed.Y)
	same := func(c color.RGBA) bool {
		return near(c.R, ref.R, d.Tolerance) && near(c.G, ref.G, d.Tolerance) && near(c.B, ref.B, d.Tolerance)
	}

	c := floodFill(colors, make([]bool, len(colors.v)), seed, same)
	if c.pixels < d.MinArea || c.rect.Eq(b) {
		// touching every edge means the seed hit the background
		return nil, ErrNotFound
	}
	return []Block{{Rect: c.rect, Type: "tablet", Confidence: c.fill()}}, nil
}

func near(a, b uint8, tol int) bool {
	d := int(a) - int(b)
	return d <= tol && -d <= tol
}
