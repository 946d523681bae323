package simulation

import (
	"math"
	"slices"

	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/geometry"
)

// minCellSize keeps the grid from degenerating into tiny cells.
const minCellSize = 0.5

type gridKey struct {
	x, y, z int
}

// neighbourGrid is a spatial hash over boid indices. A cell is at least as wide as the
// neighbour distance, so every neighbour of a boid sits in the 3x3x3 block around its cell.
type neighbourGrid struct {
	cellSize float64
	cells    map[gridKey][]int
	scratch  []int
}

func newNeighbourGrid(neighbourDistance float64) *neighbourGrid {
	return &neighbourGrid{
		cellSize: math.Max(neighbourDistance, minCellSize),
		cells:    make(map[gridKey][]int),
	}
}

func (g *neighbourGrid) key(p geometry.Vector3D) gridKey {
	return gridKey{
		x: int(math.Floor(p.X / g.cellSize)),
		y: int(math.Floor(p.Y / g.cellSize)),
		z: int(math.Floor(p.Z / g.cellSize)),
	}
}

// rebuild re-buckets every boid. Slices are truncated rather than dropped,
// so steady-state ticks reuse the same backing arrays.
func (g *neighbourGrid) rebuild(boids []Boid) {
	for k := range g.cells {
		g.cells[k] = g.cells[k][:0]
	}
	for i := range boids {
		k := g.key(boids[i].Position)
		g.cells[k] = append(g.cells[k], i)
	}
}

// candidates returns the indices in the 27 cells around p, sorted ascending so that
// callers accumulate in the same order as a full scan. The slice is reused between calls.
func (g *neighbourGrid) candidates(p geometry.Vector3D) []int {
	c := g.key(p)
	g.scratch = g.scratch[:0]
	for x := c.x - 1; x <= c.x+1; x++ {
		for y := c.y - 1; y <= c.y+1; y++ {
			for z := c.z - 1; z <= c.z+1; z++ {
				if ids, ok := g.cells[gridKey{x, y, z}]; ok {
					g.scratch = append(g.scratch, ids...)
				}
			}
		}
	}
	slices.Sort(g.scratch)
	return g.scratch
}
