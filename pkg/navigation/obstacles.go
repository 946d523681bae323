package navigation

import (
	"errors"
	"fmt"
	"slices"

	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/simulation"
)

const (
	// maxBoxesPerNode defines when an octree node splits.
	maxBoxesPerNode = 8
	maxOctreeDepth  = 8
)

var (
	ErrOutOfBounds = errors.New("box lies outside the obstacle field")
	ErrDuplicateID = errors.New("obstacle id already in use")
	ErrUnknownID   = errors.New("unknown obstacle id")
)

// Box is a static axis-aligned obstacle.
type Box struct {
	id     uint64
	Bounds geometry.AABB
}

func NewBox(id uint64, bounds geometry.AABB) Box {
	return Box{id: id, Bounds: bounds}
}

func (b Box) ID() uint64 { return b.id }

func (b Box) ClosestPointOnBounds(p geometry.Vector3D) geometry.Vector3D {
	return b.Bounds.ClosestPoint(p)
}

// ObstacleField indexes boxes in an octree and answers sphere overlap queries.
// It is not safe for concurrent use.
type ObstacleField struct {
	bounds geometry.AABB
	boxes  map[uint64]Box
	root   *octNode
}

type octNode struct {
	bounds   geometry.AABB
	boxes    []Box
	children [8]*octNode
	depth    int
}

// NewObstacleField creates an empty field covering bounds.
func NewObstacleField(bounds geometry.AABB) *ObstacleField {
	return &ObstacleField{
		bounds: bounds,
		boxes:  make(map[uint64]Box),
		root:   &octNode{bounds: bounds},
	}
}

func (f *ObstacleField) Bounds() geometry.AABB { return f.bounds }

func (f *ObstacleField) Len() int { return len(f.boxes) }

// Add inserts b. The box must fit inside the field and its id must be unused.
func (f *ObstacleField) Add(b Box) error {
	if !f.bounds.Contains(b.Bounds) {
		return fmt.Errorf("%w: box %d spans %s..%s", ErrOutOfBounds, b.id, b.Bounds.Min, b.Bounds.Max)
	}
	if _, exists := f.boxes[b.id]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicateID, b.id)
	}
	f.boxes[b.id] = b
	f.root.insert(b)
	return nil
}

// Remove deletes the box with the given id.
func (f *ObstacleField) Remove(id uint64) error {
	b, exists := f.boxes[id]
	if !exists {
		return fmt.Errorf("%w: %d", ErrUnknownID, id)
	}
	delete(f.boxes, id)
	f.root.remove(b)
	return nil
}

// Move re-indexes box id with new bounds. When the new bounds leave the field
// the box is removed and ErrOutOfBounds is returned.
func (f *ObstacleField) Move(id uint64, bounds geometry.AABB) error {
	if err := f.Remove(id); err != nil {
		return err
	}
	return f.Add(NewBox(id, bounds))
}

// Box returns the box with the given id.
func (f *ObstacleField) Box(id uint64) (Box, bool) {
	b, ok := f.boxes[id]
	return b, ok
}

// Query returns every box touching area, ordered by id.
func (f *ObstacleField) Query(area geometry.AABB) []Box {
	var out []Box
	f.root.query(area, &out)
	slices.SortFunc(out, func(a, b Box) int {
		switch {
		case a.id < b.id:
			return -1
		case a.id > b.id:
			return 1
		}
		return 0
	})
	return out
}

// OverlapSphere returns every box touching the sphere, ordered by id.
func (f *ObstacleField) OverlapSphere(center geometry.Vector3D, radius float64) []simulation.Obstacle {
	r := geometry.Vector3D{X: radius, Y: radius, Z: radius}
	candidates := f.Query(geometry.AABB{Min: center.Sub(r), Max: center.Add(r)})
	var out []simulation.Obstacle
	for _, b := range candidates {
		if b.Bounds.IntersectsSphere(center, radius) {
			out = append(out, b)
		}
	}
	return out
}

func (n *octNode) insert(b Box) {
	if i := n.childFor(b.Bounds); i >= 0 {
		n.children[i].insert(b)
		return
	}
	n.boxes = append(n.boxes, b)
	if len(n.boxes) > maxBoxesPerNode && n.depth < maxOctreeDepth && n.children[0] == nil {
		n.split()
	}
}

// remove follows the same descent as insert, so it finds b where insert left it.
func (n *octNode) remove(b Box) {
	if i := n.childFor(b.Bounds); i >= 0 {
		n.children[i].remove(b)
		return
	}
	n.boxes = slices.DeleteFunc(n.boxes, func(o Box) bool { return o.id == b.id })
}

func (n *octNode) query(area geometry.AABB, out *[]Box) {
	for _, b := range n.boxes {
		if b.Bounds.Intersects(area) {
			*out = append(*out, b)
		}
	}
	if n.children[0] == nil {
		return
	}
	for _, c := range n.children {
		if c.bounds.Intersects(area) {
			c.query(area, out)
		}
	}
}

// split creates the eight octants. Bit 0 of the index is +X, bit 1 is +Y, bit 2 is +Z.
func (n *octNode) split() {
	mid := n.bounds.Center()
	for i := range n.children {
		b := n.bounds
		if i&1 != 0 {
			b.Min.X = mid.X
		} else {
			b.Max.X = mid.X
		}
		if i&2 != 0 {
			b.Min.Y = mid.Y
		} else {
			b.Max.Y = mid.Y
		}
		if i&4 != 0 {
			b.Min.Z = mid.Z
		} else {
			b.Max.Z = mid.Z
		}
		n.children[i] = &octNode{bounds: b, depth: n.depth + 1}
	}

	kept := n.boxes[:0]
	for _, b := range n.boxes {
		if i := n.childFor(b.Bounds); i >= 0 {
			n.children[i].insert(b)
		} else {
			kept = append(kept, b)
		}
	}
	clear(n.boxes[len(kept):])
	n.boxes = kept
}

// childFor returns the octant fully containing bounds, or -1.
func (n *octNode) childFor(bounds geometry.AABB) int {
	if n.children[0] == nil {
		return -1
	}
	for i, c := range n.children {
		if c.bounds.Contains(bounds) {
			return i
		}
	}
	return -1
}
