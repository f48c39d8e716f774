package scene

import (
	"cogentcore.org/core/math32"
)

type Shape int

const (
	ShapeBox Shape = iota
	ShapePlane
)

// Mesh is box or plane geometry centered on its node's origin. Planes lie in
// the local XY plane facing +Z.
type Mesh struct {
	Shape    Shape
	Size     math32.Vector3
	Bevel    float32 // corner radius of rounded boxes, informational only
	Material Material

	CastShadow    bool
	ReceiveShadow bool
}

func NewBox(w, h, d, bevel float32, mat Material) *Mesh {
	return &Mesh{Shape: ShapeBox, Size: math32.Vec3(w, h, d), Bevel: bevel, Material: mat}
}

func NewPlane(w, h float32, mat Material) *Mesh {
	return &Mesh{Shape: ShapePlane, Size: math32.Vec3(w, h, 0), Material: mat}
}

// Face is a local-space triangle with its outward normal.
type Face struct {
	V      [3]math32.Vector3
	Normal math32.Vector3
}

// Faces triangulates the mesh in local space.
func (m *Mesh) Faces() []Face {
	hx, hy, hz := m.Size.X/2, m.Size.Y/2, m.Size.Z/2
	if m.Shape == ShapePlane {
		return quad(
			math32.Vec3(-hx, -hy, 0), math32.Vec3(hx, -hy, 0),
			math32.Vec3(hx, hy, 0), math32.Vec3(-hx, hy, 0),
			math32.Vec3(0, 0, 1))
	}

	var faces []Face
	faces = append(faces, quad( // +Z
		math32.Vec3(-hx, -hy, hz), math32.Vec3(hx, -hy, hz),
		math32.Vec3(hx, hy, hz), math32.Vec3(-hx, hy, hz),
		math32.Vec3(0, 0, 1))...)
	faces = append(faces, quad( // -Z
		math32.Vec3(hx, -hy, -hz), math32.Vec3(-hx, -hy, -hz),
		math32.Vec3(-hx, hy, -hz), math32.Vec3(hx, hy, -hz),
		math32.Vec3(0, 0, -1))...)
	faces = append(faces, quad( // +X
		math32.Vec3(hx, -hy, hz), math32.Vec3(hx, -hy, -hz),
		math32.Vec3(hx, hy, -hz), math32.Vec3(hx, hy, hz),
		math32.Vec3(1, 0, 0))...)
	faces = append(faces, quad( // -X
		math32.Vec3(-hx, -hy, -hz), math32.Vec3(-hx, -hy, hz),
		math32.Vec3(-hx, hy, hz), math32.Vec3(-hx, hy, -hz),
		math32.Vec3(-1, 0, 0))...)
	faces = append(faces, quad( // +Y
		math32.Vec3(-hx, hy, hz), math32.Vec3(hx, hy, hz),
		math32.Vec3(hx, hy, -hz), math32.Vec3(-hx, hy, -hz),
		math32.Vec3(0, 1, 0))...)
	faces = append(faces, quad( // -Y
		math32.Vec3(-hx, -hy, -hz), math32.Vec3(hx, -hy, -hz),
		math32.Vec3(hx, -hy, hz), math32.Vec3(-hx, -hy, hz),
		math32.Vec3(0, -1, 0))...)
	return faces
}

func quad(a, b, c, d, n math32.Vector3) []Face {
	return []Face{
		{V: [3]math32.Vector3{a, b, c}, Normal: n},
		{V: [3]math32.Vector3{a, c, d}, Normal: n},
	}
}
