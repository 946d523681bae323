package navigation

import (
	"testing"

	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/simulation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const navHeight = 2.0

func newTestMesh(t *testing.T, opts ...MeshOption) *GridNavMesh {
	t.Helper()
	m, err := NewGridNavMesh(testBounds, navHeight, 1, opts...)
	require.NoError(t, err)
	return m
}

func column(minX, minZ, maxX, maxZ float64) geometry.AABB {
	return geometry.AABB{
		Min: geometry.Vector3D{X: minX, Y: 0, Z: minZ},
		Max: geometry.Vector3D{X: maxX, Y: 6, Z: maxZ},
	}
}

func at(x, z float64) geometry.Vector3D {
	return geometry.Vector3D{X: x, Y: navHeight, Z: z}
}

// requireWalkableCorners walks every segment in small steps and fails on a blocked sample.
func requireWalkableCorners(t *testing.T, m *GridNavMesh, corners []geometry.Vector3D) {
	t.Helper()
	for i := 1; i < len(corners); i++ {
		a, b := corners[i-1], corners[i]
		steps := int(a.DistanceTo(b)/0.05) + 1
		for s := 0; s <= steps; s++ {
			p := a.Lerp(b, float64(s)/float64(steps))
			require.True(t, m.Walkable(p), "segment %d crosses a blocked cell at %s", i, p)
		}
	}
}

func TestNewGridNavMesh_Rejects(t *testing.T) {
	_, err := NewGridNavMesh(testBounds, navHeight, 0)
	assert.Error(t, err)
	_, err = NewGridNavMesh(testBounds, 7, 1)
	assert.Error(t, err)
	flat := testBounds
	flat.Max.X = flat.Min.X
	_, err = NewGridNavMesh(flat, navHeight, 1)
	assert.Error(t, err)
}

func TestGridNavMesh_Block(t *testing.T) {
	m := newTestMesh(t)
	assert.Equal(t, 4, m.Block(column(0, 0, 2, 2)))
	assert.Equal(t, 0, m.Block(column(0.5, 0.5, 1.5, 1.5)), "already blocked")
	assert.False(t, m.Walkable(at(1.5, 1.5)))
	assert.True(t, m.Walkable(at(2.5, 1.5)))

	// Above the mesh clearance: no effect.
	high := geometry.AABB{Min: geometry.Vector3D{X: 4, Y: 7, Z: 4}, Max: geometry.Vector3D{X: 5, Y: 8, Z: 5}}
	assert.Zero(t, m.Block(high))
	assert.True(t, m.Walkable(at(4.5, 4.5)))

	// Clipped to the grid.
	assert.Equal(t, 2, m.Block(column(9, -12, 12, -8)))
	assert.False(t, m.Walkable(at(20, 0)), "outside the grid")
}

func TestGridNavMesh_SamplePosition(t *testing.T) {
	m := newTestMesh(t)
	m.Block(column(1, 0, 2, 1))

	got, ok := m.SamplePosition(geometry.Vector3D{X: 0.4, Y: 2.6, Z: 0.7}, 1)
	require.True(t, ok)
	assert.Equal(t, at(0.5, 0.5), got)

	_, ok = m.SamplePosition(geometry.Vector3D{X: 0.5, Y: 3.2, Z: 0.5}, 1)
	assert.False(t, ok, "too far above the surface")

	// Over a blocked cell: one of the four free neighbours, one unit away.
	got, ok = m.SamplePosition(at(1.5, 0.5), 1.2)
	require.True(t, ok)
	assert.InDelta(t, 1.0, got.DistanceTo(at(1.5, 0.5)), 1e-12)
	assert.True(t, m.Walkable(got))

	_, ok = m.SamplePosition(at(1.5, 0.5), 0.9)
	assert.False(t, ok, "no free cell center in range")

	_, ok = m.SamplePosition(at(14, 0), 2)
	assert.False(t, ok, "outside the grid")
	got, ok = m.SamplePosition(at(10.2, 0.5), 1)
	require.True(t, ok)
	assert.Equal(t, at(9.5, 0.5), got)
}

func TestGridNavMesh_StraightPath(t *testing.T) {
	m := newTestMesh(t)
	start, end := at(-5.5, 0.5), at(4.5, 0.5)
	path, err := m.CalculatePath(start, end)
	require.NoError(t, err)
	assert.Equal(t, simulation.PathComplete, path.Status)
	assert.Equal(t, []geometry.Vector3D{start, end}, path.Corners)
}

func TestGridNavMesh_SameCell(t *testing.T) {
	m := newTestMesh(t)
	start, end := at(0.2, 0.2), at(0.8, 0.7)
	path, err := m.CalculatePath(start, end)
	require.NoError(t, err)
	assert.Equal(t, simulation.PathComplete, path.Status)
	assert.Equal(t, []geometry.Vector3D{start, end}, path.Corners)
}

func TestGridNavMesh_NoCornerCutting(t *testing.T) {
	m := newTestMesh(t)
	m.Block(column(1, 0, 2, 1))
	start, end := at(0.5, 0.5), at(1.5, 1.5)

	path, err := m.CalculatePath(start, end)
	require.NoError(t, err)
	assert.Equal(t, simulation.PathComplete, path.Status)
	assert.Equal(t, []geometry.Vector3D{start, at(0.5, 1.5), end}, path.Corners)
}

func TestGridNavMesh_AroundWall(t *testing.T) {
	m := newTestMesh(t)
	m.Block(column(0, -10, 1, 5))
	start, end := at(-5.5, 0.5), at(5.5, 0.5)

	path, err := m.CalculatePath(start, end)
	require.NoError(t, err)
	require.Equal(t, simulation.PathComplete, path.Status)
	require.GreaterOrEqual(t, len(path.Corners), 3)
	assert.Equal(t, start, path.Corners[0])
	assert.Equal(t, end, path.Corners[len(path.Corners)-1])

	maxZ := path.Corners[0].Z
	for _, c := range path.Corners {
		maxZ = max(maxZ, c.Z)
		assert.Equal(t, navHeight, c.Y)
	}
	assert.Greater(t, maxZ, 5.0, "the path goes through the gap")
	requireWalkableCorners(t, m, path.Corners)
}

func TestGridNavMesh_Unreachable(t *testing.T) {
	m := newTestMesh(t)
	m.Block(column(0, -10, 1, 10))

	path, err := m.CalculatePath(at(-5.5, 0.5), at(5.5, 0.5))
	require.NoError(t, err)
	assert.Equal(t, simulation.PathPartial, path.Status)
	require.NotEmpty(t, path.Corners)
	assert.Equal(t, at(-0.5, 0.5), path.Corners[len(path.Corners)-1])
	requireWalkableCorners(t, m, path.Corners)
}

func TestGridNavMesh_NodeCap(t *testing.T) {
	m := newTestMesh(t, WithMaxNodes(5))
	path, err := m.CalculatePath(at(-9.5, -9.5), at(9.5, 9.5))
	require.NoError(t, err)
	assert.Equal(t, simulation.PathPartial, path.Status)
}

func TestGridNavMesh_InvalidEndpoints(t *testing.T) {
	m := newTestMesh(t)
	m.Block(column(1, 0, 2, 1))

	path, err := m.CalculatePath(at(20, 0), at(0.5, 0.5))
	assert.ErrorIs(t, err, ErrOffMesh)
	assert.Equal(t, simulation.PathInvalid, path.Status)
	assert.Empty(t, path.Corners)

	path, err = m.CalculatePath(at(0.5, 0.5), at(1.5, 0.5))
	assert.ErrorIs(t, err, ErrBlocked)
	assert.Equal(t, simulation.PathInvalid, path.Status)
}

func TestNewScene(t *testing.T) {
	s, err := NewScene(testBounds, navHeight, 1,
		cube(1, geometry.Vector3D{X: 2, Y: 3, Z: 2}, 0.5),
		cube(2, geometry.Vector3D{X: -2, Y: 3, Z: 2}, 0.5),
	)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Obstacles.Len())
	assert.False(t, s.NavMesh.Walkable(at(2, 2)))
	assert.True(t, s.NavMesh.Walkable(at(0, 0)))

	_, err = NewScene(testBounds, navHeight, 1,
		cube(1, geometry.Vector3D{X: 2, Y: 3, Z: 2}, 0.5),
		cube(1, geometry.Vector3D{X: -2, Y: 3, Z: 2}, 0.5),
		cube(3, geometry.Vector3D{X: 20, Y: 3, Z: 2}, 0.5),
	)
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestPathFollower_OnGridNavMesh(t *testing.T) {
	m := newTestMesh(t)
	m.Block(column(0, -10, 1, 5))
	p := simulation.NewPathFollower(m)

	require.NoError(t, p.SetGoal(geometry.Vector3D{X: -5.5, Y: 3, Z: 0.5}, at(5.5, 0.5)))
	corners := p.Corners()
	require.GreaterOrEqual(t, len(corners), 3)

	// Hop exactly onto every corner in turn.
	for i, c := range corners {
		require.Equal(t, i, p.CurrentCorner())
		_, ok := p.Advance(c)
		if i < len(corners)-1 {
			require.True(t, ok)
		} else {
			require.False(t, ok)
		}
	}
	assert.Equal(t, simulation.Idle, p.State())
}
