package navigation

import (
	"errors"

	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/geometry"
)

// Scene bundles the obstacle index and the walkable surface built from the same boxes.
type Scene struct {
	Obstacles *ObstacleField
	NavMesh   *GridNavMesh
}

// NewScene indexes boxes inside bounds and blocks their columns on a mesh at navHeight.
// Every rejected box is reported; none of them is kept.
func NewScene(bounds geometry.AABB, navHeight, cellSize float64, boxes ...Box) (*Scene, error) {
	mesh, err := NewGridNavMesh(bounds, navHeight, cellSize)
	if err != nil {
		return nil, err
	}
	field := NewObstacleField(bounds)
	var errs []error
	for _, b := range boxes {
		if err := field.Add(b); err != nil {
			errs = append(errs, err)
			continue
		}
		mesh.Block(b.Bounds)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &Scene{Obstacles: field, NavMesh: mesh}, nil
}
