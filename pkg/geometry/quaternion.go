package geometry

import (
	"fmt"
	"math"
)

// Quaternion is a rotation in 3D space. W is the scalar part.
type Quaternion struct {
	X, Y, Z, W float64
}

// Identity is the rotation that leaves vectors unchanged.
var Identity = Quaternion{W: 1}

// AngleAxis builds a rotation of degrees around axis.
// A degenerate axis yields Identity.
func AngleAxis(degrees float64, axis Vector3D) Quaternion {
	n := axis.Normalize()
	if n.LenSqr() == 0 {
		return Identity
	}
	half := degrees * math.Pi / 360
	s := math.Sin(half)
	return Quaternion{X: n.X * s, Y: n.Y * s, Z: n.Z * s, W: math.Cos(half)}
}

func (q Quaternion) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f, %.3f)", q.X, q.Y, q.Z, q.W)
}

// Mul composes two rotations: the result applies other first, then q.
func (q Quaternion) Mul(other Quaternion) Quaternion {
	return Quaternion{
		X: q.W*other.X + q.X*other.W + q.Y*other.Z - q.Z*other.Y,
		Y: q.W*other.Y - q.X*other.Z + q.Y*other.W + q.Z*other.X,
		Z: q.W*other.Z + q.X*other.Y - q.Y*other.X + q.Z*other.W,
		W: q.W*other.W - q.X*other.X - q.Y*other.Y - q.Z*other.Z,
	}
}

// Dot returns the 4D dot product of the two quaternions.
func (q Quaternion) Dot(other Quaternion) float64 {
	return q.X*other.X + q.Y*other.Y + q.Z*other.Z + q.W*other.W
}

// Normalize returns q scaled to unit length, or Identity when q is degenerate.
func (q Quaternion) Normalize() Quaternion {
	l := math.Sqrt(q.Dot(q))
	if l < Epsilon {
		return Identity
	}
	return Quaternion{q.X / l, q.Y / l, q.Z / l, q.W / l}
}

// Rotate applies the rotation to v.
func (q Quaternion) Rotate(v Vector3D) Vector3D {
	u := Vector3D{q.X, q.Y, q.Z}
	// v' = v + 2w(u x v) + 2(u x (u x v))
	t := u.Cross(v).Mul(2)
	return v.Add(t.Mul(q.W)).Add(u.Cross(t))
}

// LookRotation returns the rotation whose forward (+Z) axis points along forward and whose
// up (+Y) axis is as close as possible to up. A degenerate forward yields Identity; a forward
// parallel to up falls back to a different reference axis.
func LookRotation(forward, up Vector3D) Quaternion {
	z := forward.Normalize()
	if z.LenSqr() == 0 {
		return Identity
	}
	x := up.Cross(z)
	if x.LenSqr() < Epsilon {
		x = Right.Cross(z)
		if x.LenSqr() < Epsilon {
			x = Forward.Cross(z)
		}
	}
	x = x.Normalize()
	y := z.Cross(x)

	// Rotation matrix with columns x, y, z converted to a quaternion.
	m00, m01, m02 := x.X, y.X, z.X
	m10, m11, m12 := x.Y, y.Y, z.Y
	m20, m21, m22 := x.Z, y.Z, z.Z

	var q Quaternion
	trace := m00 + m11 + m22
	switch {
	case trace > 0:
		s := math.Sqrt(trace+1) * 2
		q = Quaternion{X: (m21 - m12) / s, Y: (m02 - m20) / s, Z: (m10 - m01) / s, W: 0.25 * s}
	case m00 > m11 && m00 > m22:
		s := math.Sqrt(1+m00-m11-m22) * 2
		q = Quaternion{X: 0.25 * s, Y: (m01 + m10) / s, Z: (m02 + m20) / s, W: (m21 - m12) / s}
	case m11 > m22:
		s := math.Sqrt(1+m11-m00-m22) * 2
		q = Quaternion{X: (m01 + m10) / s, Y: 0.25 * s, Z: (m12 + m21) / s, W: (m02 - m20) / s}
	default:
		s := math.Sqrt(1+m22-m00-m11) * 2
		q = Quaternion{X: (m02 + m20) / s, Y: (m12 + m21) / s, Z: 0.25 * s, W: (m10 - m01) / s}
	}
	return q.Normalize()
}

// Angle returns the angle in degrees between two rotations.
func (q Quaternion) Angle(other Quaternion) float64 {
	d := math.Min(math.Abs(q.Normalize().Dot(other.Normalize())), 1)
	return 2 * math.Acos(d) * 180 / math.Pi
}

// Slerp spherically interpolates from q to other by t in [0, 1] along the shortest arc.
func (q Quaternion) Slerp(other Quaternion, t float64) Quaternion {
	a, b := q.Normalize(), other.Normalize()
	d := a.Dot(b)
	if d < 0 {
		b = Quaternion{-b.X, -b.Y, -b.Z, -b.W}
		d = -d
	}
	if d > 1-Epsilon {
		return Quaternion{
			X: a.X + (b.X-a.X)*t,
			Y: a.Y + (b.Y-a.Y)*t,
			Z: a.Z + (b.Z-a.Z)*t,
			W: a.W + (b.W-a.W)*t,
		}.Normalize()
	}
	theta := math.Acos(d)
	sinTheta := math.Sin(theta)
	wa := math.Sin((1-t)*theta) / sinTheta
	wb := math.Sin(t*theta) / sinTheta
	return Quaternion{
		X: a.X*wa + b.X*wb,
		Y: a.Y*wa + b.Y*wb,
		Z: a.Z*wa + b.Z*wb,
		W: a.W*wa + b.W*wb,
	}
}

// RotateTowards rotates q toward target by at most maxDegrees.
func (q Quaternion) RotateTowards(target Quaternion, maxDegrees float64) Quaternion {
	angle := q.Angle(target)
	if angle <= maxDegrees || angle < Epsilon {
		return target.Normalize()
	}
	if maxDegrees <= 0 {
		return q.Normalize()
	}
	return q.Slerp(target, maxDegrees/angle)
}
