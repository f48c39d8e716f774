package analyzer

import (
	"fmt"
	"image"
)

// DefaultTolerance is the largest center offset, in pixels, still reported
// as aligned.
const DefaultTolerance = 2

// Drift compares the overlay rectangle with the tablet detected in a frame.
type Drift struct {
	Detected image.Rectangle
	Overlay  image.Rectangle
	DX, DY   int // overlay center minus detected center
	Inside   bool
}

func (d Drift) Aligned(tolerance int) bool {
	return d.Inside && abs(d.DX) <= tolerance && abs(d.DY) <= tolerance
}

func (d Drift) String() string {
	return fmt.Sprintf("tablet %v overlay %v drift (%+d,%+d) inside=%t", d.Detected, d.Overlay, d.DX, d.DY, d.Inside)
}

// CheckAlignment runs det on img and measures overlay against the largest
// detected block.
func CheckAlignment(det Detector, img image.Image, overlay image.Rectangle) (Drift, error) {
	blocks, err := det.Detect(img)
	if err != nil {
		return Drift{}, err
	}
	if len(blocks) == 0 {
		return Drift{}, ErrNotFound
	}
	best := blocks[0]
	for _, b := range blocks[1:] {
		if area(b.Rect) > area(best.Rect) {
			best = b
		}
	}

	dc, oc := center(best.Rect), center(overlay)
	return Drift{
		Detected: best.Rect,
		Overlay:  overlay,
		DX:       oc.X - dc.X,
		DY:       oc.Y - dc.Y,
		Inside:   overlay.In(best.Rect),
	}, nil
}

func center(r image.Rectangle) image.Point {
	return image.Pt((r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2)
}

func area(r image.Rectangle) int { return r.Dx() * r.Dy() }

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
