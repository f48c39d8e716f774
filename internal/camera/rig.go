// Package camera holds the perspective camera that flies into the tablet.
package camera

import (
	"errors"

	"cogentcore.org/core/math32"
)

const (
	DefaultNear = 0.1
	DefaultFar  = 100

	// DefaultFitMargin leaves a little room around the tablet when fitted.
	DefaultFitMargin = 1.15
)

// Tablet half extents used by FitToTablet.
const (
	TabletHalfWidth  = 4
	TabletHalfHeight = 6
)

var ErrSingular = errors.New("camera matrix is not invertible")

// Rig is a perspective camera. After any change of Position, FOV or Aspect
// call PointAt (or Update) before projecting.
type Rig struct {
	Position math32.Vector3
	Target   math32.Vector3
	Up       math32.Vector3

	FOV    float32 // vertical, degrees
	Aspect float32
	Near   float32
	Far    float32

	ViewMatrix       math32.Matrix4
	ProjectionMatrix math32.Matrix4
	ViewProjection   math32.Matrix4

	invViewProjection math32.Matrix4
	invertible        bool
}

// New returns a rig at pos looking at the origin.
func New(fov, aspect float32, pos math32.Vector3) *Rig {
	r := &Rig{
		Position: pos,
		Up:       math32.Vec3(0, 1, 0),
		FOV:      fov,
		Aspect:   aspect,
		Near:     DefaultNear,
		Far:      DefaultFar,
	}
	r.PointAt(math32.Vector3{})
	return r
}

// PointAt aims the camera at target and rebuilds all matrices.
func (r *Rig) PointAt(target math32.Vector3) {
	r.Target = target
	r.Update()
}

// SetAspect changes the viewport aspect ratio. Non-positive values are ignored.
func (r *Rig) SetAspect(aspect float32) {
	if !(aspect > 0) {
		return
	}
	r.Aspect = aspect
	r.Update()
}

// Update rebuilds the view and projection matrices from the current fields.
// A camera sitting on its own target keeps the previous view.
func (r *Rig) Update() {
	if r.Position != r.Target {
		var lookq math32.Quat
		lookq.SetFromRotationMatrix(math32.NewLookAt(r.Position, r.Target, r.Up))
		var cview math32.Matrix4
		cview.SetTransform(r.Position, lookq, math32.Vec3(1, 1, 1))
		if view, err := cview.Inverse(); err == nil {
			r.ViewMatrix = *view
		}
	}

	aspect := r.Aspect
	if !(aspect > 0) {
		aspect = 1
	}
	r.ProjectionMatrix.SetPerspective(r.FOV, aspect, r.Near, r.Far)
	r.ViewProjection.MulMatrices(&r.ProjectionMatrix, &r.ViewMatrix)

	inv, err := r.ViewProjection.Inverse()
	r.invertible = err == nil
	if r.invertible {
		r.invViewProjection = *inv
	}
}

// Project maps a world point to normalized device coordinates. Points in
// front of the camera inside the frustum land in [-1,1] on every axis.
func (r *Rig) Project(world math32.Vector3) math32.Vector3 {
	return math32.Vector4FromVector3(world, 1).MulMatrix4(&r.ViewProjection).PerspDiv()
}

// Unproject maps normalized device coordinates back to world space.
func (r *Rig) Unproject(ndc math32.Vector3) (math32.Vector3, error) {
	if !r.invertible {
		return math32.Vector3{}, ErrSingular
	}
	return math32.Vector4FromVector3(ndc, 1).MulMatrix4(&r.invViewProjection).PerspDiv(), nil
}

// InFront reports whether world lies on the visible side of the near plane.
func (r *Rig) InFront(world math32.Vector3) bool {
	v := math32.Vector4FromVector3(world, 1).MulMatrix4(&r.ViewProjection)
	return v.W > 0
}

// FitDistance is the camera distance at which a halfW x halfH rectangle
// fits entirely in a view with the given vertical FOV (degrees) and aspect.
func FitDistance(halfW, halfH, fov, aspect, margin float32) float32 {
	if !(aspect > 0) {
		aspect = 1
	}
	tan := math32.Tan(math32.DegToRad(fov) / 2)
	distHeight := halfH / tan
	distWidth := halfW / (tan * aspect)
	return math32.Max(distHeight, distWidth) * margin
}

// FitToTablet returns the end-of-zoom distance on +Z for the current aspect.
// fov is the FOV the camera will have once the zoom settles.
func (r *Rig) FitToTablet(fov, margin float32) float32 {
	return FitDistance(TabletHalfWidth, TabletHalfHeight, fov, r.Aspect, margin)
}
