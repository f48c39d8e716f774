package scene

import (
	"image/color"

	"cogentcore.org/core/math32"
)

// Node is one element of the scene tree. Groups and markers have no Mesh.
type Node struct {
	Name string

	Pos   math32.Vector3
	Quat  math32.Quat
	Scale math32.Vector3

	// Visible false keeps the node in the tree (so its transform is usable)
	// but out of the rendered output.
	Visible bool
	Mesh    *Mesh

	Parent   *Node
	Children []*Node

	LocalMatrix math32.Matrix4
	WorldMatrix math32.Matrix4

	rotY float32
}

func NewNode(name string) *Node {
	n := &Node{
		Name:    name,
		Scale:   math32.Vec3(1, 1, 1),
		Visible: true,
	}
	n.Quat.SetIdentity()
	n.LocalMatrix.SetIdentity()
	n.WorldMatrix.SetIdentity()
	return n
}

func NewMeshNode(name string, mesh *Mesh) *Node {
	n := NewNode(name)
	n.Mesh = mesh
	return n
}

// Add attaches children to n.
func (n *Node) Add(children ...*Node) *Node {
	for _, c := range children {
		c.Parent = n
		n.Children = append(n.Children, c)
	}
	return n
}

func (n *Node) SetPos(x, y, z float32) *Node {
	n.Pos = math32.Vec3(x, y, z)
	return n
}

// SetEulerRotation sets the rotation in Euler angles (radians).
func (n *Node) SetEulerRotation(x, y, z float32) *Node {
	n.Quat = math32.NewQuatEuler(math32.Vec3(x, y, z))
	n.rotY = y
	return n
}

// SetRotationY replaces the rotation with a pure rotation about the Y axis.
func (n *Node) SetRotationY(rad float32) {
	n.Quat.SetFromAxisAngle(math32.Vec3(0, 1, 0), rad)
	n.rotY = rad
}

// RotationY is the angle last set through SetRotationY or SetEulerRotation.
func (n *Node) RotationY() float32 {
	return n.rotY
}

// Clone copies the node and its mesh reference, without parent or children.
func (n *Node) Clone(name string) *Node {
	c := *n
	c.Name = name
	c.Parent = nil
	c.Children = nil
	return &c
}

// UpdateWorldMatrix recomputes the world matrix of n from the root down, then
// refreshes all descendants.
func (n *Node) UpdateWorldMatrix() {
	var chain []*Node
	for p := n; p != nil; p = p.Parent {
		chain = append(chain, p)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		chain[i].refresh()
	}
	for _, c := range n.Children {
		c.updateDown()
	}
}

func (n *Node) updateDown() {
	n.refresh()
	for _, c := range n.Children {
		c.updateDown()
	}
}

func (n *Node) refresh() {
	n.LocalMatrix.SetTransform(n.Pos, n.Quat, n.Scale)
	if n.Parent == nil {
		n.WorldMatrix.CopyFrom(&n.LocalMatrix)
		return
	}
	n.WorldMatrix.MulMatrices(&n.Parent.WorldMatrix, &n.LocalMatrix)
}

// WorldPoint transforms a point from n's local space using the current world
// matrix. Call UpdateWorldMatrix first if transforms changed.
func (n *Node) WorldPoint(local math32.Vector3) math32.Vector3 {
	v := math32.Vector4FromVector3(local, 1).MulMatrix4(&n.WorldMatrix)
	return math32.Vec3(v.X, v.Y, v.Z)
}

// WorldPosition is the world-space position of n's local origin.
func (n *Node) WorldPosition() math32.Vector3 {
	return n.WorldPoint(math32.Vector3{})
}

// Walk visits n and its descendants depth first.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Material is the flat shading description used by the renderers.
type Material struct {
	Color       color.RGBA
	Metalness   float32
	Roughness   float32
	Opacity     float32
	Transparent bool
	// Unlit materials ignore the lights (a basic material).
	Unlit bool
}

func Hex(c uint32) color.RGBA {
	return color.RGBA{R: uint8(c >> 16), G: uint8(c >> 8), B: uint8(c), A: 0xff}
}
