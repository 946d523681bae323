package navigation

import (
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/simulation"
)

// BodyPresenter gives every boid a small box in an ObstacleField, so boids avoid
// each other's bodies the way they avoid the scenery. The engine skips a boid's
// own body through BodyID.
type BodyPresenter struct {
	*simulation.TransformPresenter
	field  *ObstacleField
	ids    []uint64
	inside []bool
	half   geometry.Vector3D
}

// NewBodyPresenter registers one cube of the given half size per boid, with ids
// firstID, firstID+1, ... Bodies spawned outside the field are added once they enter it.
func NewBodyPresenter(field *ObstacleField, boids []simulation.Boid, firstID uint64, halfSize float64) (*BodyPresenter, error) {
	p := &BodyPresenter{
		TransformPresenter: simulation.NewTransformPresenter(boids),
		field:              field,
		ids:                make([]uint64, len(boids)),
		inside:             make([]bool, len(boids)),
		half:               geometry.Vector3D{X: halfSize, Y: halfSize, Z: halfSize},
	}
	for i, b := range boids {
		p.ids[i] = firstID + uint64(i)
		bounds := geometry.NewAABB(b.Position, p.half)
		if !field.Bounds().Contains(bounds) {
			continue
		}
		if err := field.Add(NewBox(p.ids[i], bounds)); err != nil {
			return nil, err
		}
		p.inside[i] = true
	}
	return p, nil
}

func (p *BodyPresenter) BodyID(i int) (uint64, bool) {
	if i < 0 || i >= len(p.ids) {
		return 0, false
	}
	return p.ids[i], true
}

func (p *BodyPresenter) Place(i int, position, look geometry.Vector3D, maxDegrees float64) {
	p.TransformPresenter.Place(i, position, look, maxDegrees)
	if i < 0 || i >= len(p.ids) {
		return
	}
	bounds := geometry.NewAABB(position, p.half)
	if p.inside[i] {
		// Move drops the body when it leaves the field
		p.inside[i] = p.field.Move(p.ids[i], bounds) == nil
		return
	}
	p.inside[i] = p.field.Add(NewBox(p.ids[i], bounds)) == nil
}

// Inside reports whether boid i currently has a body in the field.
func (p *BodyPresenter) Inside(i int) bool {
	return p.inside[i]
}
