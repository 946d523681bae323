package simulation

import (
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/geometry"
)

// boxObstacle is an axis-aligned box used as a fake scene collider.
type boxObstacle struct {
	id     uint64
	bounds geometry.AABB
}

func (b boxObstacle) ID() uint64 { return b.id }

func (b boxObstacle) ClosestPointOnBounds(p geometry.Vector3D) geometry.Vector3D {
	return b.bounds.ClosestPoint(p)
}

// fakeSpatial returns every obstacle that touches the query sphere.
type fakeSpatial struct {
	obstacles []Obstacle
	queries   int
}

func (f *fakeSpatial) OverlapSphere(center geometry.Vector3D, radius float64) []Obstacle {
	f.queries++
	var hits []Obstacle
	for _, o := range f.obstacles {
		if o.ClosestPointOnBounds(center).DistanceSquaredTo(center) <= radius*radius {
			hits = append(hits, o)
		}
	}
	return hits
}

// fakeNav is a flat surface at height y. Points within maxDistance of the plane project onto it.
type fakeNav struct {
	y        float64
	path     NavPath
	err      error
	requests int
	// offSurface rejects samples near these points.
	offSurface []geometry.Vector3D
}

func (f *fakeNav) SamplePosition(p geometry.Vector3D, maxDistance float64) (geometry.Vector3D, bool) {
	for _, off := range f.offSurface {
		if off.DistanceSquaredTo(p) < 1e-9 {
			return geometry.Zero, false
		}
	}
	d := p.Y - f.y
	if d*d > maxDistance*maxDistance {
		return geometry.Zero, false
	}
	return geometry.Vector3D{X: p.X, Y: f.y, Z: p.Z}, true
}

func (f *fakeNav) CalculatePath(start, end geometry.Vector3D) (NavPath, error) {
	f.requests++
	return f.path, f.err
}

type placement struct {
	i          int
	position   geometry.Vector3D
	look       geometry.Vector3D
	maxDegrees float64
}

// fakePresenter records placements and owns a body for each listed boid.
type fakePresenter struct {
	bodies     map[int]uint64
	placements []placement
}

func (f *fakePresenter) BodyID(i int) (uint64, bool) {
	id, ok := f.bodies[i]
	return id, ok
}

func (f *fakePresenter) Place(i int, position, look geometry.Vector3D, maxDegrees float64) {
	f.placements = append(f.placements, placement{i, position, look, maxDegrees})
}

func twoCornerPath(a, b geometry.Vector3D) NavPath {
	return NavPath{Corners: []geometry.Vector3D{a, b}, Status: PathComplete}
}
