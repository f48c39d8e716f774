package scene

import (
	"image/color"
	"log/slog"

	"cogentcore.org/core/math32"
)

// Tablet dimensions in world units.
const (
	OuterWidth          = 8
	OuterHeight         = 12
	FrameDepth          = 0.2
	BaseDepth           = 0.6
	HorizontalThickness = 1.5 // top/bottom bars
	VerticalThickness   = 0.3 // left/right bars
	BevelThickness      = 0.3

	ScreenWidth  = OuterWidth - BevelThickness*2
	ScreenHeight = OuterHeight - 2 - BevelThickness*2

	BackPlateOffset = -0.11
	ScreenOffset    = 0.01
)

// Room dimensions in world units.
const (
	RoomSize   = 100
	WallHeight = 100
	FloorY     = -7
)

var (
	RoomColor  = Hex(0x126cfc)
	LightColor = Hex(0xfffcfe)
	Background = Hex(0x000000)
)

// SpotLight is a cone light aimed at a target node.
type SpotLight struct {
	Name       string
	Pos        math32.Vector3
	Target     *Node
	Color      color.RGBA
	Intensity  float32
	Distance   float32
	Angle      float32 // radians, half-angle of the cone
	Penumbra   float32
	Decay      float32
	CastShadow bool
}

// Direction is the unit vector from the light towards its target.
func (l *SpotLight) Direction() math32.Vector3 {
	var to math32.Vector3
	if l.Target != nil {
		to = l.Target.WorldPosition()
	}
	return to.Sub(l.Pos).Normal()
}

// Graph is the complete intro world. It is owned by a single session.
type Graph struct {
	Root         *Node
	Room         []*Node
	Tablet       *Node
	Screen       *Node
	ScreenTarget *Node
	Lights       []*SpotLight

	disposed bool
}

// Build constructs the room, the tablet and its lights. Phones start with the
// tablet turned around; the timeline takes over the Y rotation afterwards.
func Build(mobile bool) *Graph {
	g := &Graph{Root: NewNode("scene")}
	g.buildRoom()
	g.buildTablet(mobile)
	g.addTopSpotLights()
	g.Root.UpdateWorldMatrix()

	slog.Debug("scene built", "nodes", g.NodeCount(), "lights", len(g.Lights), "mobile", mobile)
	return g
}

func (g *Graph) buildRoom() {
	mat := Material{Color: RoomColor, Roughness: 1, Opacity: 1}

	floor := NewMeshNode("floor", NewPlane(RoomSize, RoomSize, mat))
	floor.SetEulerRotation(-math32.Pi/2, 0, 0)
	floor.Pos.Y = FloorY
	floor.Mesh.ReceiveShadow = true

	back := NewMeshNode("wall-back", NewPlane(RoomSize, WallHeight, mat))
	back.SetPos(0, WallHeight/2+FloorY, -RoomSize/2)

	front := back.Clone("wall-front")
	front.SetEulerRotation(0, math32.Pi, 0)
	front.Pos.Z = RoomSize / 2

	right := NewMeshNode("wall-right", NewPlane(RoomSize, WallHeight, mat))
	right.SetEulerRotation(0, -math32.Pi/2, 0)
	right.SetPos(RoomSize/2, WallHeight/2+FloorY, 0)

	left := right.Clone("wall-left")
	left.Pos.X = -RoomSize / 2
	left.SetEulerRotation(0, math32.Pi/2, 0)

	g.Room = []*Node{floor, back, front, right, left}
	g.Root.Add(g.Room...)
}

func (g *Graph) buildTablet(mobile bool) {
	frameMat := Material{Color: Hex(0xffffff), Metalness: 0.8, Roughness: 0.2, Opacity: 1}

	top := NewMeshNode("frame-top", NewBox(OuterWidth-0.2, HorizontalThickness-0.2, FrameDepth, BevelThickness, frameMat))
	top.Pos.Y = OuterHeight/2 - HorizontalThickness/2
	bottom := NewMeshNode("frame-bottom", top.Mesh)
	bottom.Pos.Y = -(OuterHeight / 2) + HorizontalThickness/2

	left := NewMeshNode("frame-left", NewBox(VerticalThickness-0.2, OuterHeight-0.2, FrameDepth, BevelThickness, frameMat))
	left.Pos.X = -(OuterWidth / 2) + VerticalThickness/2
	right := NewMeshNode("frame-right", left.Mesh)
	right.Pos.X = OuterWidth/2 - VerticalThickness/2

	backPlate := NewMeshNode("back-plate", NewBox(OuterWidth, OuterHeight, BaseDepth, BevelThickness, frameMat))
	backPlate.Pos.Z = BackPlateOffset

	screenMat := Material{Color: Hex(0x000000), Opacity: 0.7, Transparent: true, Unlit: true}
	screen := NewMeshNode("screen", NewBox(ScreenWidth, ScreenHeight, FrameDepth, BevelThickness, screenMat))
	screen.Pos.Z = ScreenOffset

	target := NewNode("screen-target")
	target.Pos = screen.Pos
	target.Visible = false

	tablet := NewNode("tablet")
	tablet.Add(top, bottom, left, right, backPlate, screen, target)
	tablet.Walk(func(n *Node) {
		if n.Mesh != nil {
			n.Mesh.CastShadow = true
			n.Mesh.ReceiveShadow = true
		}
	})
	if mobile {
		tablet.SetEulerRotation(0, math32.Pi, 0)
	}

	g.Tablet = tablet
	g.Screen = screen
	g.ScreenTarget = target
	g.Root.Add(tablet)
}

func (g *Graph) addTopSpotLights() {
	const (
		xLight    = 30
		yLight    = 30
		zLight    = -20
		intensity = 500
		distance  = 100
		angle     = math32.Pi / 12
		penumbra  = 0.2
		decay     = 2
	)

	spot := func(name string, pos math32.Vector3, shadow bool) *SpotLight {
		return &SpotLight{
			Name:       name,
			Pos:        pos,
			Target:     g.Tablet,
			Color:      LightColor,
			Intensity:  intensity,
			Distance:   distance,
			Angle:      angle,
			Penumbra:   penumbra,
			Decay:      decay,
			CastShadow: shadow,
		}
	}

	g.Lights = []*SpotLight{
		spot("left", math32.Vec3(-xLight, 45, zLight), true),
		spot("center", math32.Vec3(0, yLight, 0), false), // fill
		spot("right", math32.Vec3(xLight, yLight, zLight), true),
	}
}

// SetTabletRotationY turns the tablet group about Y and refreshes the world
// matrices underneath it.
func (g *Graph) SetTabletRotationY(rad float32) {
	g.Tablet.SetRotationY(rad)
	g.Tablet.UpdateWorldMatrix()
}

// ScreenWorldPosition is the world-space center of the screen mesh.
func (g *Graph) ScreenWorldPosition() math32.Vector3 {
	g.Screen.UpdateWorldMatrix()
	return g.Screen.WorldPosition()
}

// ScreenWorldPositionAt applies the tablet rotation first, so the answer
// matches what the next rendered frame will show.
func (g *Graph) ScreenWorldPositionAt(rotY float32) math32.Vector3 {
	g.SetTabletRotationY(rotY)
	return g.Screen.WorldPosition()
}

// ScreenSize is the width and height of the screen panel in local units.
func (g *Graph) ScreenSize() (w, h float32) {
	return g.Screen.Mesh.Size.X, g.Screen.Mesh.Size.Y
}

// Meshes returns every visible mesh node.
func (g *Graph) Meshes() []*Node {
	var out []*Node
	if g.Root == nil {
		return out
	}
	g.Root.Walk(func(n *Node) {
		if n.Visible && n.Mesh != nil {
			out = append(out, n)
		}
	})
	return out
}

func (g *Graph) NodeCount() int {
	count := 0
	if g.Root != nil {
		g.Root.Walk(func(*Node) { count++ })
	}
	return count
}

// Dispose drops all geometry. It is safe to call more than once.
func (g *Graph) Dispose() {
	if g.disposed {
		return
	}
	g.disposed = true
	g.Root = nil
	g.Room = nil
	g.Lights = nil
}

func (g *Graph) Disposed() bool {
	return g.disposed
}
