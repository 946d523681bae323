package geometry

import "math"

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min Vector3D `json:"min"`
	Max Vector3D `json:"max"`
}

// NewAABB builds a box from a center and half extents.
func NewAABB(center, halfExtents Vector3D) AABB {
	return AABB{Min: center.Sub(halfExtents), Max: center.Add(halfExtents)}
}

// Center returns the middle of the box.
func (b AABB) Center() Vector3D {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size returns the extent of the box along each axis.
func (b AABB) Size() Vector3D {
	return b.Max.Sub(b.Min)
}

// ClosestPoint clamps p onto the box. Points inside the box are returned unchanged.
func (b AABB) ClosestPoint(p Vector3D) Vector3D {
	return Vector3D{
		X: math.Max(b.Min.X, math.Min(p.X, b.Max.X)),
		Y: math.Max(b.Min.Y, math.Min(p.Y, b.Max.Y)),
		Z: math.Max(b.Min.Z, math.Min(p.Z, b.Max.Z)),
	}
}

// ContainsPoint reports whether p lies inside or on the box.
func (b AABB) ContainsPoint(p Vector3D) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Contains reports whether other lies entirely inside b.
func (b AABB) Contains(other AABB) bool {
	return b.ContainsPoint(other.Min) && b.ContainsPoint(other.Max)
}

// Intersects reports whether two boxes overlap (touching counts).
func (b AABB) Intersects(other AABB) bool {
	return b.Min.X <= other.Max.X && b.Max.X >= other.Min.X &&
		b.Min.Y <= other.Max.Y && b.Max.Y >= other.Min.Y &&
		b.Min.Z <= other.Max.Z && b.Max.Z >= other.Min.Z
}

// IntersectsSphere reports whether the sphere touches the box.
func (b AABB) IntersectsSphere(center Vector3D, radius float64) bool {
	return b.ClosestPoint(center).DistanceSquaredTo(center) <= radius*radius
}

// Expand grows the box by margin on every side.
func (b AABB) Expand(margin float64) AABB {
	m := Vector3D{margin, margin, margin}
	return AABB{Min: b.Min.Sub(m), Max: b.Max.Add(m)}
}
