package renderer

import (
	"cogentcore.org/core/math32"
)

// Fraction returns how far elapsed is into a window of the given duration,
// clamped to [0,1]. A non-positive duration is treated as already complete.
func Fraction(elapsed, start, duration float64) float32 {
	if duration <= 0 {
		if elapsed >= start {
			return 1
		}
		return 0
	}
	return Clamp01(float32((elapsed - start) / duration))
}

// Clamp01 keeps t inside [0,1]; NaN collapses to 0.
func Clamp01(t float32) float32 {
	if !(t > 0) {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// Lerp performs linear interpolation between a and b
func Lerp(a, b, t float32) float32 {
	if t >= 1 {
		return b
	}
	return a + (b-a)*t
}

// LerpVector3 interpolates component-wise and returns exactly b at t >= 1.
func LerpVector3(a, b math32.Vector3, t float32) math32.Vector3 {
	if t >= 1 {
		return b
	}
	return math32.Vec3(Lerp(a.X, b.X, t), Lerp(a.Y, b.Y, t), Lerp(a.Z, b.Z, t))
}
