// Package analyzer inspects rendered preview frames. Its main job is to
// confirm that the overlay placed by the projector sits on the tablet the
// rasterizer actually drew.
package analyzer

import "image"

// Block is a detected region of a frame.
type Block struct {
	Rect       image.Rectangle
	Type       string  // "tablet", "edge"
	Confidence float64 // 0.0-1.0, how much of Rect the region fills
}

// Detector finds regions of interest in a frame.
type Detector interface {
	Detect(img image.Image) ([]Block, error)
}
