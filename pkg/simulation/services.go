package simulation

import "github.com/lao-tseu-is-alive/go-swarm-flock/pkg/geometry"

// Obstacle is a piece of world geometry returned by a SpatialQuery.
type Obstacle interface {
	// ID identifies the obstacle. A boid's own body reports the same ID as Presenter.BodyID.
	ID() uint64
	// ClosestPointOnBounds returns the point of the obstacle's bounds nearest to p.
	ClosestPointOnBounds(p geometry.Vector3D) geometry.Vector3D
}

// SpatialQuery finds obstacles overlapping a sphere.
type SpatialQuery interface {
	OverlapSphere(center geometry.Vector3D, radius float64) []Obstacle
}

// PathStatus tells whether a planned path reaches its destination.
type PathStatus int

const (
	PathInvalid PathStatus = iota
	PathPartial
	PathComplete
)

func (s PathStatus) String() string {
	switch s {
	case PathComplete:
		return "complete"
	case PathPartial:
		return "partial"
	default:
		return "invalid"
	}
}

// NavPath is the result of a path request: ordered corners from start to end.
type NavPath struct {
	Corners []geometry.Vector3D
	Status  PathStatus
}

// NavSurface is the navigable surface the leader plans on.
type NavSurface interface {
	// SamplePosition returns the point of the surface nearest to p within maxDistance.
	SamplePosition(p geometry.Vector3D, maxDistance float64) (geometry.Vector3D, bool)
	// CalculatePath plans between two points already on the surface.
	// A non-nil error always comes with a non-complete status.
	CalculatePath(start, end geometry.Vector3D) (NavPath, error)
}

// Presenter mirrors the flock into an external scene.
type Presenter interface {
	// BodyID returns the identity of boid i's representation, if it has one in the scene.
	BodyID(i int) (uint64, bool)
	// Place moves boid i's representation to position and turns it toward look by at most maxDegrees.
	Place(i int, position, look geometry.Vector3D, maxDegrees float64)
}
