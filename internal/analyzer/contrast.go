package analyzer

import (
	"image"
	"math"
)

// ContrastDetector finds silhouettes by thresholding the Sobel gradient,
// dilating the edge map and taking the bounding box of each component.
type ContrastDetector struct {
	MinBlockArea  int     // pixels²
	EdgeThreshold float64 // gradient magnitude
	DilateRadius  int
}

func NewContrastDetector() *ContrastDetector {
	return &ContrastDetector{
		MinBlockArea:  500,
		EdgeThreshold: 30.0,
		DilateRadius:  2,
	}
}

func (d *ContrastDetector) Detect(img image.Image) ([]Block, error) {
	lum := luminance(img)
	edges := sobel(lum, d.EdgeThreshold)
	edges = dilate(edges, d.DilateRadius)

	var blocks []Block
	for _, c := range components(edges, func(v bool) bool { return v }) {
		if c.rect.Dx()*c.rect.Dy() < d.MinBlockArea {
			continue
		}
		blocks = append(blocks, Block{Rect: c.rect, Type: "edge", Confidence: c.fill()})
	}
	return blocks, nil
}

// plane is a single-channel view of a frame in frame-local coordinates.
type plane[T any] struct {
	w, h int
	min  image.Point
	v    []T
}

func newPlane[T any](b image.Rectangle) *plane[T] {
	return &plane[T]{w: b.Dx(), h: b.Dy(), min: b.Min, v: make([]T, b.Dx()*b.Dy())}
}

func (p *plane[T]) at(x, y int) T     { return p.v[y*p.w+x] }
func (p *plane[T]) set(x, y int, t T) { p.v[y*p.w+x] = t }

// luminance uses the Rec. 601 weights, 0-255.
func luminance(img image.Image) *plane[float64] {
	b := img.Bounds()
	out := newPlane[float64](b)
	for y := 0; y < out.h; y++ {
		for x := 0; x < out.w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out.set(x, y, (0.299*float64(r)+0.587*float64(g)+0.114*float64(bl))/257)
		}
	}
	return out
}

func sobel(lum *plane[float64], threshold float64) *plane[bool] {
	edges := &plane[bool]{w: lum.w, h: lum.h, min: lum.min, v: make([]bool, len(lum.v))}
	for y := 1; y < lum.h-1; y++ {
		for x := 1; x < lum.w-1; x++ {
			gx := lum.at(x+1, y-1) + 2*lum.at(x+1, y) + lum.at(x+1, y+1) -
				lum.at(x-1, y-1) - 2*lum.at(x-1, y) - lum.at(x-1, y+1)
			gy := lum.at(x-1, y+1) + 2*lum.at(x, y+1) + lum.at(x+1, y+1) -
				lum.at(x-1, y-1) - 2*lum.at(x, y-1) - lum.at(x+1, y-1)
			edges.set(x, y, math.Hypot(gx, gy) > threshold)
		}
	}
	return edges
}

// dilate grows set pixels by radius in a square neighborhood.
func dilate(in *plane[bool], radius int) *plane[bool] {
	if radius <= 0 {
		return in
	}
	out := &plane[bool]{w: in.w, h: in.h, min: in.min, v: make([]bool, len(in.v))}
	for y := 0; y < in.h; y++ {
		for x := 0; x < in.w; x++ {
			if !in.at(x, y) {
				continue
			}
			for dy := max(0, y-radius); dy <= min(in.h-1, y+radius); dy++ {
				for dx := max(0, x-radius); dx <= min(in.w-1, x+radius); dx++ {
					out.set(dx, dy, true)
				}
			}
		}
	}
	return out
}

type component struct {
	rect   image.Rectangle // frame coordinates
	pixels int
}

func (c component) fill() float64 {
	area := c.rect.Dx() * c.rect.Dy()
	if area == 0 {
		return 0
	}
	return float64(c.pixels) / float64(area)
}

// components labels 4-connected regions whose pixels satisfy member.
func components[T any](p *plane[T], member func(T) bool) []component {
	visited := make([]bool, len(p.v))
	var out []component
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			if visited[y*p.w+x] || !member(p.at(x, y)) {
				continue
			}
			out = append(out, floodFill(p, visited, image.Pt(x, y), member))
		}
	}
	return out
}

// floodFill grows a region from start and returns its bounding box.
func floodFill[T any](p *plane[T], visited []bool, start image.Point, member func(T) bool) component {
	minX, minY, maxX, maxY := start.X, start.Y, start.X, start.Y
	pixels := 0

	stack := []image.Point{start}
	for len(stack) > 0 {
		pt := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := pt.X, pt.Y
		if x < 0 || x >= p.w || y < 0 || y >= p.h {
			continue
		}
		i := y*p.w + x
		if visited[i] || !member(p.v[i]) {
			continue
		}
		visited[i] = true
		pixels++

		minX, maxX = min(minX, x), max(maxX, x)
		minY, maxY = min(minY, y), max(maxY, y)

		stack = append(stack,
			image.Pt(x+1, y), image.Pt(x-1, y),
			image.Pt(x, y+1), image.Pt(x, y-1),
		)
	}

	r := image.Rect(minX, minY, maxX+1, maxY+1).Add(p.min)
	return component{rect: r, pixels: pixels}
}
