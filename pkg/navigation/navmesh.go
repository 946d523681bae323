package navigation

import (
	"container/heap"
	"errors"
	"fmt"
	"math"

	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/simulation"
)

// DefaultMaxNodes bounds the number of cells one search may expand.
const DefaultMaxNodes = 10000

var (
	ErrOffMesh = errors.New("position is outside the walkable grid")
	ErrBlocked = errors.New("position is on a blocked cell")
)

// GridNavMesh is a flat walkable surface at a fixed height, cut into square cells.
// A cell is blocked when an obstacle overlaps its column inside the mesh area.
type GridNavMesh struct {
	area       geometry.AABB
	height     float64
	cellSize   float64
	cols, rows int
	blocked    []bool
	maxNodes   int
}

type MeshOption func(*GridNavMesh)

// WithMaxNodes caps a search. Paths cut short by the cap come back partial.
func WithMaxNodes(n int) MeshOption {
	return func(m *GridNavMesh) { m.maxNodes = n }
}

// NewGridNavMesh covers the XZ extent of area with cells of cellSize at the given height.
// The vertical extent of area is the clearance checked against obstacles.
func NewGridNavMesh(area geometry.AABB, height, cellSize float64, opts ...MeshOption) (*GridNavMesh, error) {
	if !(cellSize > 0) {
		return nil, fmt.Errorf("cell size must be > 0, got %v", cellSize)
	}
	size := area.Size()
	if !(size.X > 0 && size.Z > 0) {
		return nil, fmt.Errorf("mesh area %s..%s has no horizontal extent", area.Min, area.Max)
	}
	if height < area.Min.Y || height > area.Max.Y {
		return nil, fmt.Errorf("mesh height %v outside area [%v, %v]", height, area.Min.Y, area.Max.Y)
	}
	m := &GridNavMesh{
		area:     area,
		height:   height,
		cellSize: cellSize,
		cols:     int(math.Ceil(size.X / cellSize)),
		rows:     int(math.Ceil(size.Z / cellSize)),
		maxNodes: DefaultMaxNodes,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.blocked = make([]bool, m.cols*m.rows)
	return m, nil
}

func (m *GridNavMesh) Height() float64 { return m.height }

// Block marks every cell whose column overlaps b and returns how many were newly blocked.
func (m *GridNavMesh) Block(b geometry.AABB) int {
	if !(b.Min.Y < m.area.Max.Y && b.Max.Y > m.area.Min.Y) {
		return 0
	}
	c0 := max(0, int(math.Floor((b.Min.X-m.area.Min.X)/m.cellSize)))
	c1 := min(m.cols-1, int(math.Ceil((b.Max.X-m.area.Min.X)/m.cellSize))-1)
	r0 := max(0, int(math.Floor((b.Min.Z-m.area.Min.Z)/m.cellSize)))
	r1 := min(m.rows-1, int(math.Ceil((b.Max.Z-m.area.Min.Z)/m.cellSize))-1)
	n := 0
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			if i := r*m.cols + c; !m.blocked[i] {
				m.blocked[i] = true
				n++
			}
		}
	}
	return n
}

// Walkable reports whether the XZ position of p falls on an unblocked cell.
func (m *GridNavMesh) Walkable(p geometry.Vector3D) bool {
	cell, ok := m.cellAt(p)
	return ok && !m.blocked[cell]
}

// SamplePosition returns the nearest walkable cell center within maxDistance of p.
func (m *GridNavMesh) SamplePosition(p geometry.Vector3D, maxDistance float64) (geometry.Vector3D, bool) {
	if !(maxDistance >= 0) {
		return geometry.Zero, false
	}
	maxSqr := maxDistance * maxDistance
	if dy := p.Y - m.height; dy*dy > maxSqr {
		return geometry.Zero, false
	}
	c0 := max(0, int(math.Floor((p.X-maxDistance-m.area.Min.X)/m.cellSize)))
	c1 := min(m.cols-1, int(math.Floor((p.X+maxDistance-m.area.Min.X)/m.cellSize)))
	r0 := max(0, int(math.Floor((p.Z-maxDistance-m.area.Min.Z)/m.cellSize)))
	r1 := min(m.rows-1, int(math.Floor((p.Z+maxDistance-m.area.Min.Z)/m.cellSize)))

	best, bestSqr := -1, math.Inf(1)
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			i := r*m.cols + c
			if m.blocked[i] {
				continue
			}
			if d := m.center(i).DistanceSquaredTo(p); d <= maxSqr && d < bestSqr {
				best, bestSqr = i, d
			}
		}
	}
	if best < 0 {
		return geometry.Zero, false
	}
	return m.center(best), true
}

// CalculatePath plans from start to end over walkable cells and returns the corners
// where the path changes direction, start and end included. When end cannot be
// reached the path is partial and ends at the explored cell closest to end.
func (m *GridNavMesh) CalculatePath(start, end geometry.Vector3D) (simulation.NavPath, error) {
	s, err := m.walkableCell(start)
	if err != nil {
		return simulation.NavPath{Status: simulation.PathInvalid}, fmt.Errorf("start %s: %w", start, err)
	}
	e, err := m.walkableCell(end)
	if err != nil {
		return simulation.NavPath{Status: simulation.PathInvalid}, fmt.Errorf("end %s: %w", end, err)
	}

	cells, reached := m.search(s, e)
	if !reached {
		return simulation.NavPath{
			Corners: m.corners(cells, start, m.center(cells[len(cells)-1])),
			Status:  simulation.PathPartial,
		}, nil
	}
	return simulation.NavPath{Corners: m.corners(cells, start, end), Status: simulation.PathComplete}, nil
}

func (m *GridNavMesh) walkableCell(p geometry.Vector3D) (int, error) {
	cell, ok := m.cellAt(p)
	if !ok {
		return 0, ErrOffMesh
	}
	if m.blocked[cell] {
		return 0, ErrBlocked
	}
	return cell, nil
}

func (m *GridNavMesh) cellAt(p geometry.Vector3D) (int, bool) {
	c := int(math.Floor((p.X - m.area.Min.X) / m.cellSize))
	r := int(math.Floor((p.Z - m.area.Min.Z) / m.cellSize))
	if c < 0 || c >= m.cols || r < 0 || r >= m.rows {
		return 0, false
	}
	return r*m.cols + c, true
}

func (m *GridNavMesh) center(cell int) geometry.Vector3D {
	c, r := cell%m.cols, cell/m.cols
	return geometry.Vector3D{
		X: m.area.Min.X + (float64(c)+0.5)*m.cellSize,
		Y: m.height,
		Z: m.area.Min.Z + (float64(r)+0.5)*m.cellSize,
	}
}

type gridStep struct {
	dc, dr int
	cost   float64
}

var gridSteps = [8]gridStep{
	{0, 1, 1}, {1, 0, 1}, {0, -1, 1}, {-1, 0, 1},
	{1, 1, math.Sqrt2}, {1, -1, math.Sqrt2}, {-1, -1, math.Sqrt2}, {-1, 1, math.Sqrt2},
}

// neighbour applies step to cell. Diagonal steps need both orthogonal cells free.
func (m *GridNavMesh) neighbour(cell int, s gridStep) (int, bool) {
	c, r := cell%m.cols, cell/m.cols
	if !m.free(c+s.dc, r+s.dr) {
		return 0, false
	}
	if s.dc != 0 && s.dr != 0 && !(m.free(c+s.dc, r) && m.free(c, r+s.dr)) {
		return 0, false
	}
	return (r+s.dr)*m.cols + c + s.dc, true
}

func (m *GridNavMesh) free(c, r int) bool {
	return c >= 0 && c < m.cols && r >= 0 && r < m.rows && !m.blocked[r*m.cols+c]
}

// octile is the exact cost of an unobstructed 8-connected walk, in cells.
func (m *GridNavMesh) octile(a, b int) float64 {
	dc := math.Abs(float64(a%m.cols - b%m.cols))
	dr := math.Abs(float64(a/m.cols - b/m.cols))
	return math.Max(dc, dr) + (math.Sqrt2-1)*math.Min(dc, dr)
}

// search runs A* from s to e. It returns the cells from s to e, or to the closest
// explored cell when e was not reached within the node cap.
func (m *GridNavMesh) search(s, e int) ([]int, bool) {
	nodes := make(map[int]*searchNode)
	open := &nodeQueue{}
	heap.Init(open)

	first := &searchNode{cell: s, h: m.octile(s, e)}
	first.f = first.h
	heap.Push(open, first)
	nodes[s] = first
	closest := first

	for explored := 0; open.Len() > 0 && explored < m.maxNodes; explored++ {
		cur := heap.Pop(open).(*searchNode)
		cur.closed = true
		if cur.cell == e {
			return trace(cur), true
		}
		if cur.h < closest.h || (cur.h == closest.h && cur.g < closest.g) {
			closest = cur
		}
		for _, step := range gridSteps {
			next, ok := m.neighbour(cur.cell, step)
			if !ok {
				continue
			}
			g := cur.g + step.cost
			n, seen := nodes[next]
			if !seen {
				n = &searchNode{cell: next, g: g, h: m.octile(next, e), parent: cur}
				n.f = n.g + n.h
				heap.Push(open, n)
				nodes[next] = n
				continue
			}
			// octile never overestimates, so closed cells are final
			if n.closed || g >= n.g {
				continue
			}
			n.g, n.f, n.parent = g, g+n.h, cur
			heap.Fix(open, n.index)
		}
	}
	return trace(closest), false
}

func trace(n *searchNode) []int {
	var cells []int
	for ; n != nil; n = n.parent {
		cells = append(cells, n.cell)
	}
	for i, j := 0, len(cells)-1; i < j; i, j = i+1, j-1 {
		cells[i], cells[j] = cells[j], cells[i]
	}
	return cells
}

// corners keeps the cells where the walk turns, between from and to.
func (m *GridNavMesh) corners(cells []int, from, to geometry.Vector3D) []geometry.Vector3D {
	out := []geometry.Vector3D{from}
	for i := 1; i < len(cells)-1; i++ {
		if m.direction(cells[i-1], cells[i]) != m.direction(cells[i], cells[i+1]) {
			out = append(out, m.center(cells[i]))
		}
	}
	return append(out, to)
}

func (m *GridNavMesh) direction(a, b int) [2]int {
	return [2]int{b%m.cols - a%m.cols, b/m.cols - a/m.cols}
}
