package simulation

import "github.com/lao-tseu-is-alive/go-swarm-flock/pkg/geometry"

// Transform is the headless stand-in for a boid's scene object.
type Transform struct {
	Position geometry.Vector3D
	Rotation geometry.Quaternion
}

// TransformPresenter keeps one Transform per boid and turns it like a scene object would.
// It has no bodies in the scene, so it never shadows obstacle queries.
type TransformPresenter struct {
	transforms []Transform
}

// NewTransformPresenter places one transform per boid, looking along the boid's heading.
func NewTransformPresenter(boids []Boid) *TransformPresenter {
	p := &TransformPresenter{transforms: make([]Transform, len(boids))}
	for i, b := range boids {
		p.transforms[i] = Transform{
			Position: b.Position,
			Rotation: geometry.LookRotation(b.Forward, geometry.Up),
		}
	}
	return p
}

func (p *TransformPresenter) BodyID(int) (uint64, bool) {
	return 0, false
}

func (p *TransformPresenter) Place(i int, position, look geometry.Vector3D, maxDegrees float64) {
	if i < 0 || i >= len(p.transforms) {
		return
	}
	t := &p.transforms[i]
	t.Position = position
	target := geometry.LookRotation(look.Normalize(), geometry.Up)
	t.Rotation = t.Rotation.RotateTowards(target, maxDegrees)
}

// Transform returns the transform of boid i.
func (p *TransformPresenter) Transform(i int) Transform {
	return p.transforms[i]
}
