package math

import "math"

// Quat represents a quaternion for 3D rotations.
// Components are stored as X, Y, Z, W where W is the scalar part.
type Quat struct {
	X, Y, Z, W float32
}

// QuatIdentity returns an identity quaternion (no rotation).
func QuatIdentity() Quat {
	return Quat{X: 0, Y: 0, Z: 0, W: 1}
}

// QuatFromXYZ rebuilds a unit quaternion from its vector part, choosing a
// non-negative W. Packed rotation formats only store X, Y and Z.
func QuatFromXYZ(x, y, z float32) Quat {
	w2 := 1 - (x*x + y*y + z*z)
	if w2 < 0 {
		return Quat{X: x, Y: y, Z: z}.Normalize()
	}
	return Quat{X: x, Y: y, Z: z, W: float32(math.Sqrt(float64(w2)))}
}

// Normalize returns a normalized quaternion.
func (q Quat) Normalize() Quat {
	length := float32(math.Sqrt(float64(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)))
	if length < 0.0001 {
		return QuatIdentity()
	}
	invLen := 1.0 / length
	return Quat{
		X: q.X * invLen,
		Y: q.Y * invLen,
		Z: q.Z * invLen,
		W: q.W * invLen,
	}
}

// Canonical returns the normalized quaternion with W >= 0. q and -q encode
// the same rotation.
func (q Quat) Canonical() Quat {
	q = q.Normalize()
	if q.W < 0 {
		return Quat{X: -q.X, Y: -q.Y, Z: -q.Z, W: -q.W}
	}
	return q
}
