package renderer

import (
	"errors"
	"image"
	"image/color"
	"sort"

	"cogentcore.org/core/math32"

	"github.com/ivlev/tabletintro/internal/camera"
	"github.com/ivlev/tabletintro/internal/scene"
)

// AmbientIntensity lights every surface uniformly, like a scene ambient light.
const AmbientIntensity = 0.4

// nearW is the clip-space w below which geometry is clipped away.
const nearW = 1e-3

var ErrDisposed = errors.New("scene graph disposed")

// Rasterizer draws a scene graph into an RGBA image with flat per-face
// shading and a reciprocal-depth buffer. It is not safe for concurrent use;
// give each worker its own.
type Rasterizer struct {
	width, height int
	depth         []float32 // 1/w, larger is closer, 0 is empty
	zeroDepth     []float32
}

func NewRasterizer(width, height int) *Rasterizer {
	r := &Rasterizer{}
	r.Resize(width, height)
	return r
}

func (r *Rasterizer) Resize(width, height int) {
	if width == r.width && height == r.height {
		return
	}
	r.width, r.height = width, height
	r.depth = make([]float32, width*height)
	r.zeroDepth = make([]float32, width*height)
}

func (r *Rasterizer) Width() int  { return r.width }
func (r *Rasterizer) Height() int { return r.height }

// ClearDepth resets the depth buffer.
func (r *Rasterizer) ClearDepth() {
	copy(r.depth, r.zeroDepth)
}

// drawItem is one world-space triangle ready to be shaded.
type drawItem struct {
	v      [3]math32.Vector3
	normal math32.Vector3
	color  color.RGBA
	alpha  float32
	dist   float32
}

// Render clears dst to the scene background and draws every visible mesh of
// g as seen through rig. The rasterizer follows the size of dst.
func (r *Rasterizer) Render(dst *image.RGBA, g *scene.Graph, rig *camera.Rig) error {
	if g == nil || g.Disposed() || g.Root == nil {
		return ErrDisposed
	}
	b := dst.Bounds()
	r.Resize(b.Dx(), b.Dy())
	r.ClearDepth()
	fill(dst, scene.Background)

	g.Root.UpdateWorldMatrix()
	eye := rig.Position

	var opaque, transparent []drawItem
	for _, n := range g.Meshes() {
		mat := n.Mesh.Material
		for _, f := range n.Mesh.Faces() {
			var it drawItem
			for i := range 3 {
				it.v[i] = n.WorldPoint(f.V[i])
			}
			it.normal = it.v[1].Sub(it.v[0]).Cross(it.v[2].Sub(it.v[0])).Normal()
			// back faces
			if it.normal.Dot(eye.Sub(it.v[0])) <= 0 {
				continue
			}
			it.color = shade(mat, centroid(it.v), it.normal, g.Lights)
			it.alpha = 1
			if mat.Transparent {
				it.alpha = math32.Clamp(mat.Opacity, 0, 1)
				it.dist = centroid(it.v).Sub(eye).Length()
				transparent = append(transparent, it)
				continue
			}
			opaque = append(opaque, it)
		}
	}

	for _, it := range opaque {
		r.drawTriangle(dst, it, rig, true)
	}
	// far to near so nearer layers blend last
	sort.SliceStable(transparent, func(i, j int) bool { return transparent[i].dist > transparent[j].dist })
	for _, it := range transparent {
		r.drawTriangle(dst, it, rig, false)
	}
	return nil
}

type clipVertex struct {
	x, y, z, w float32
}

func (r *Rasterizer) drawTriangle(dst *image.RGBA, it drawItem, rig *camera.Rig, writeDepth bool) {
	var poly []clipVertex
	allBehind := true
	for i := range 3 {
		c := math32.Vector4FromVector3(it.v[i], 1).MulMatrix4(&rig.ViewProjection)
		if c.W > nearW {
			allBehind = false
		}
		poly = append(poly, clipVertex{c.X, c.Y, c.Z, c.W})
	}
	if allBehind {
		return
	}
	poly = clipNear(poly)
	if len(poly) < 3 {
		return
	}

	type screenVertex struct{ x, y, invW float32 }
	sv := make([]screenVertex, len(poly))
	fw, fh := float32(r.width), float32(r.height)
	for i, c := range poly {
		sv[i] = screenVertex{
			x:    (c.x/c.w + 1) * 0.5 * fw,
			y:    (1 - c.y/c.w) * 0.5 * fh, // Y flipped
			invW: 1 / c.w,
		}
	}

	for i := 1; i+1 < len(sv); i++ {
		a, b, c := sv[0], sv[i], sv[i+1]
		area := edge(a.x, a.y, b.x, b.y, c.x, c.y)
		if area == 0 {
			continue
		}
		minX := max(0, int(math32.Floor(min(a.x, b.x, c.x))))
		maxX := min(r.width-1, int(math32.Ceil(max(a.x, b.x, c.x))))
		minY := max(0, int(math32.Floor(min(a.y, b.y, c.y))))
		maxY := min(r.height-1, int(math32.Ceil(max(a.y, b.y, c.y))))

		for y := minY; y <= maxY; y++ {
			for x := minX; x <= maxX; x++ {
				px, py := float32(x)+0.5, float32(y)+0.5
				w0 := edge(b.x, b.y, c.x, c.y, px, py) / area
				w1 := edge(c.x, c.y, a.x, a.y, px, py) / area
				w2 := edge(a.x, a.y, b.x, b.y, px, py) / area
				if w0 < 0 || w1 < 0 || w2 < 0 {
					continue
				}
				invW := w0*a.invW + w1*b.invW + w2*c.invW
				idx := y*r.width + x
				if invW <= r.depth[idx] {
					continue
				}
				if writeDepth {
					r.depth[idx] = invW
				}
				blend(dst, dst.Rect.Min.X+x, dst.Rect.Min.Y+y, it.color, it.alpha)
			}
		}
	}
}

// clipNear clips a convex clip-space polygon against w = nearW.
func clipNear(in []clipVertex) []clipVertex {
	var out []clipVertex
	for i := range in {
		cur, next := in[i], in[(i+1)%len(in)]
		curIn, nextIn := cur.w > nearW, next.w > nearW
		if curIn {
			out = append(out, cur)
		}
		if curIn != nextIn {
			t := (nearW - cur.w) / (next.w - cur.w)
			out = append(out, clipVertex{
				x: cur.x + (next.x-cur.x)*t,
				y: cur.y + (next.y-cur.y)*t,
				z: cur.z + (next.z-cur.z)*t,
				w: nearW,
			})
		}
	}
	return out
}

func edge(ax, ay, bx, by, px, py float32) float32 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

func centroid(v [3]math32.Vector3) math32.Vector3 {
	return v[0].Add(v[1]).Add(v[2]).DivScalar(3)
}

// shade computes the flat color of a face: ambient plus Lambert diffuse
// from every spot light, with cone and distance falloff.
func shade(mat scene.Material, p, normal math32.Vector3, lights []*scene.SpotLight) color.RGBA {
	if mat.Unlit {
		return mat.Color
	}
	level := float32(AmbientIntensity)
	for _, l := range lights {
		toLight := l.Pos.Sub(p)
		dist := toLight.Length()
		if dist == 0 {
			continue
		}
		ldir := toLight.DivScalar(dist)
		ndotl := normal.Dot(ldir)
		if ndotl <= 0 {
			continue
		}
		level += l.Intensity * ndotl * spotFactor(l, ldir) * distanceFalloff(l, dist)
	}
	level = math32.Clamp(level, 0, 1)
	return color.RGBA{
		R: uint8(float32(mat.Color.R) * level),
		G: uint8(float32(mat.Color.G) * level),
		B: uint8(float32(mat.Color.B) * level),
		A: 0xff,
	}
}

// spotFactor fades from 1 inside the penumbra to 0 at the cone edge.
func spotFactor(l *scene.SpotLight, ldir math32.Vector3) float32 {
	cosTheta := l.Direction().Dot(ldir.Negate())
	outer := math32.Cos(l.Angle)
	inner := math32.Cos(l.Angle * (1 - l.Penumbra))
	return smoothstep(outer, inner, cosTheta)
}

func distanceFalloff(l *scene.SpotLight, dist float32) float32 {
	f := math32.Pow(dist, l.Decay)
	if f < 0.01 {
		f = 0.01
	}
	att := 1 / f
	if l.Distance > 0 {
		cut := 1 - math32.Pow(dist/l.Distance, 4)
		if cut <= 0 {
			return 0
		}
		att *= cut * cut
	}
	return att
}

func smoothstep(lo, hi, x float32) float32 {
	if hi == lo {
		if x >= hi {
			return 1
		}
		return 0
	}
	t := Clamp01((x - lo) / (hi - lo))
	return t * t * (3 - 2*t)
}

// fill assumes dst owns its whole pixel buffer, as images from the pool do.
func fill(dst *image.RGBA, c color.RGBA) {
	if len(dst.Pix) < 4 {
		return
	}
	dst.Pix[0], dst.Pix[1], dst.Pix[2], dst.Pix[3] = c.R, c.G, c.B, c.A
	for n := 4; n < len(dst.Pix); n *= 2 {
		copy(dst.Pix[n:], dst.Pix[:n])
	}
}

func blend(dst *image.RGBA, x, y int, c color.RGBA, alpha float32) {
	i := dst.PixOffset(x, y)
	p := dst.Pix[i : i+4 : i+4]
	if alpha >= 1 {
		p[0], p[1], p[2], p[3] = c.R, c.G, c.B, 0xff
		return
	}
	mix := func(s, d uint8) uint8 {
		return uint8(float32(s)*alpha + float32(d)*(1-alpha) + 0.5)
	}
	p[0], p[1], p[2], p[3] = mix(c.R, p[0]), mix(c.G, p[1]), mix(c.B, p[2]), 0xff
}
