package simulation

import (
	"math/rand/v2"
	"testing"

	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDt = 0.02

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Seed = 42
	cfg.UseSpatialGrid = false
	return cfg
}

func newTestEngine(t testing.TB, cfg *Config, boids []Boid, opts ...Option) *SteeringEngine {
	t.Helper()
	opts = append([]Option{WithFlock(&FlockState{Boids: boids})}, opts...)
	e, err := NewSteeringEngine(cfg, opts...)
	require.NoError(t, err)
	return e
}

func TestNewSteeringEngine_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSpeed = 0
	_, err := NewSteeringEngine(cfg)
	require.Error(t, err)
}

func TestNewSteeringEngine_SpawnsFlock(t *testing.T) {
	cfg := testConfig()
	cfg.NumberOfBoids = 25
	e, err := NewSteeringEngine(cfg)
	require.NoError(t, err)
	assert.Equal(t, 25, e.Len())

	// Same seed, same flock.
	again, err := NewSteeringEngine(cfg)
	require.NoError(t, err)
	assert.Equal(t, e.Boids(), again.Boids())
}

func TestTick_EmptyFlock(t *testing.T) {
	cfg := testConfig()
	cfg.NumberOfBoids = 0
	e, err := NewSteeringEngine(cfg)
	require.NoError(t, err)

	e.Tick(testDt)
	assert.Zero(t, e.Ticks())
	assert.ErrorIs(t, e.SetGoal(geometry.Vector3D{}), ErrNoLeader)
	_, ok := e.Leader()
	assert.False(t, ok)
}

func TestTick_ForwardFacingNeighbour(t *testing.T) {
	// A looks at B one unit away. B looks away from A. Both are stationary.
	cfg := testConfig()
	cfg.NeighbourDistance = 2.0
	a := Boid{Position: geometry.Vector3D{X: 0, Y: 2, Z: 0}, Forward: geometry.Right}
	b := Boid{Position: geometry.Vector3D{X: 1, Y: 2, Z: 0}, Forward: geometry.Right}
	e := newTestEngine(t, cfg, []Boid{a, b})

	e.Tick(testDt)

	gotA, gotB := e.Boid(0), e.Boid(1)
	assert.Equal(t, 1, gotA.Neighbours)
	assert.True(t, gotA.Cohesion.Eq(geometry.Right), "cohesion %v", gotA.Cohesion)
	assert.True(t, gotA.Separation.Eq(geometry.Right.Neg()), "separation %v", gotA.Separation)
	// B does not move, so the mean neighbour velocity has no direction.
	assert.Equal(t, geometry.Zero, gotA.Alignment)
	assert.Equal(t, geometry.Zero, gotA.Wander)

	assert.Zero(t, gotB.Neighbours)
	assert.Equal(t, geometry.Zero, gotB.Alignment)
	assert.Equal(t, geometry.Zero, gotB.Cohesion)
	assert.Equal(t, geometry.Zero, gotB.Separation)
	assert.Equal(t, geometry.Right, gotB.Wander, "stationary boid wanders along its heading")
}

func TestTick_AlignmentFollowsNeighbourVelocity(t *testing.T) {
	cfg := testConfig()
	a := Boid{Position: geometry.Vector3D{X: 0, Y: 2, Z: 0}, Forward: geometry.Right}
	b := Boid{Position: geometry.Vector3D{X: 1, Y: 2, Z: 0}, Forward: geometry.Forward, Velocity: geometry.Forward.Mul(3)}
	e := newTestEngine(t, cfg, []Boid{a, b})

	e.Tick(testDt)
	assert.True(t, e.Boid(0).Alignment.Eq(geometry.Forward), "alignment %v", e.Boid(0).Alignment)
}

func TestNeighbourRelation_IsNotSymmetric(t *testing.T) {
	cfg := testConfig()
	a := Boid{Position: geometry.Vector3D{X: 0, Y: 2, Z: 0}, Forward: geometry.Right}
	b := Boid{Position: geometry.Vector3D{X: 1, Y: 2, Z: 0}, Forward: geometry.Right}
	e := newTestEngine(t, cfg, []Boid{a, b})

	assert.Equal(t, []int{1}, e.NeighboursOf(0))
	assert.Empty(t, e.NeighboursOf(1))
}

func TestNeighbourRelation_DistanceLimit(t *testing.T) {
	cfg := testConfig()
	cfg.NeighbourDistance = 2.0
	boids := []Boid{
		{Position: geometry.Vector3D{X: 0, Y: 2, Z: 0}, Forward: geometry.Right},
		{Position: geometry.Vector3D{X: 2, Y: 2, Z: 0}, Forward: geometry.Right},   // exactly at the limit
		{Position: geometry.Vector3D{X: 2.01, Y: 2, Z: 0}, Forward: geometry.Right}, // just beyond
		{Position: geometry.Vector3D{X: 0, Y: 2, Z: 1}, Forward: geometry.Right},   // beside, not in front
	}
	e := newTestEngine(t, cfg, boids)
	assert.Equal(t, []int{1}, e.NeighboursOf(0))
}

func TestTick_CoincidentNeighbourSkipsSeparation(t *testing.T) {
	cfg := testConfig()
	p := geometry.Vector3D{X: 0, Y: 2, Z: 0}
	boids := []Boid{
		{Position: p, Forward: geometry.Right},
		{Position: p.Add(geometry.Vector3D{X: 1e-4}), Forward: geometry.Right},
	}
	e := newTestEngine(t, cfg, boids)
	e.Tick(testDt)

	got := e.Boid(0)
	assert.Equal(t, 1, got.Neighbours)
	assert.Equal(t, geometry.Zero, got.Separation)
}

func TestTick_BoundaryPush(t *testing.T) {
	tests := []struct {
		name string
		pos  geometry.Vector3D
		want geometry.Vector3D
	}{
		{"beyond +x", geometry.Vector3D{X: 9, Y: 2, Z: 0}, geometry.Vector3D{X: -1}},
		{"beyond -x", geometry.Vector3D{X: -9, Y: 2, Z: 0}, geometry.Vector3D{X: 1}},
		{"beyond +z", geometry.Vector3D{X: 0, Y: 2, Z: 9}, geometry.Vector3D{Z: -1}},
		{"beyond -z", geometry.Vector3D{X: 0, Y: 2, Z: -9}, geometry.Vector3D{Z: 1}},
		{"above ceiling", geometry.Vector3D{X: 0, Y: 5, Z: 0}, geometry.Vector3D{Y: -1}},
		{"below floor", geometry.Vector3D{X: 0, Y: 0.5, Z: 0}, geometry.Vector3D{Y: 1}},
		{"inside", geometry.Vector3D{X: 0, Y: 2, Z: 0}, geometry.Zero},
		{"corner", geometry.Vector3D{X: 9, Y: 5, Z: -9}, geometry.Vector3D{X: -1, Y: -1, Z: 1}.Normalize()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, testConfig(), []Boid{{Position: tt.pos, Forward: geometry.Forward}})
			e.Tick(testDt)
			got := e.Boid(0).Obstacle
			assert.True(t, got.Eq(tt.want), "obstacle %v; want %v", got, tt.want)
		})
	}
}

func TestTick_ObstacleAvoidance(t *testing.T) {
	cfg := testConfig()
	cfg.ObstacleCheckRadius = 1.0
	pos := geometry.Vector3D{X: 0, Y: 2, Z: 0}
	spatial := &fakeSpatial{obstacles: []Obstacle{
		// wall to the right of the boid
		boxObstacle{id: 1, bounds: geometry.AABB{Min: geometry.Vector3D{X: 0.5, Y: 0, Z: -1}, Max: geometry.Vector3D{X: 1, Y: 4, Z: 1}}},
		// the boid's own body, centered on it
		boxObstacle{id: 99, bounds: geometry.NewAABB(pos.Add(geometry.Vector3D{Z: 0.3}), geometry.Vector3D{X: 0.1, Y: 0.1, Z: 0.1})},
		// far away, never returned
		boxObstacle{id: 2, bounds: geometry.NewAABB(geometry.Vector3D{X: 5, Y: 2}, geometry.Vector3D{X: 0.5, Y: 0.5, Z: 0.5})},
	}}
	presenter := &fakePresenter{bodies: map[int]uint64{0: 99}}
	e := newTestEngine(t, cfg, []Boid{{Position: pos, Forward: geometry.Forward}},
		WithSpatialQuery(spatial), WithPresenter(presenter))

	e.Tick(testDt)
	got := e.Boid(0).Obstacle
	assert.True(t, got.Eq(geometry.Right.Neg()), "obstacle %v", got)
	assert.Equal(t, 1, spatial.queries)
}

func TestTick_ObstacleWithoutSelfBody(t *testing.T) {
	// Without a presenter body the boid's own collider counts as an obstacle.
	cfg := testConfig()
	pos := geometry.Vector3D{X: 0, Y: 2, Z: 0}
	spatial := &fakeSpatial{obstacles: []Obstacle{
		boxObstacle{id: 99, bounds: geometry.NewAABB(pos.Add(geometry.Vector3D{Z: 0.5}), geometry.Vector3D{X: 0.1, Y: 0.1, Z: 0.1})},
	}}
	e := newTestEngine(t, cfg, []Boid{{Position: pos, Forward: geometry.Forward}}, WithSpatialQuery(spatial))

	e.Tick(testDt)
	got := e.Boid(0).Obstacle
	assert.True(t, got.Eq(geometry.Forward.Neg()), "obstacle %v", got)
}

func TestTick_ForceBlendWithoutNeighbours(t *testing.T) {
	cfg := testConfig()
	v := geometry.Vector3D{X: 1, Y: 0, Z: 0}
	e := newTestEngine(t, cfg, []Boid{{Position: geometry.Vector3D{Y: 2}, Forward: geometry.Right, Velocity: v}})

	e.Tick(testDt)
	got := e.Boid(0)

	wander := geometry.Right
	want := wander.Mul(cfg.BoidForceScale).Sub(v).Mul(cfg.WanderWeight).
		Add(geometry.Zero.Sub(v).Mul(cfg.ObstacleWeight))
	assert.True(t, got.CurrentTotalForce.EqTol(want, 1e-12), "force %v; want %v", got.CurrentTotalForce, want)
	assert.True(t, got.Wander.Eq(wander))

	wantVel := v.Add(want.Mul(testDt)).ClampLen(cfg.MaxSpeed)
	assert.True(t, got.Velocity.EqTol(wantVel, 1e-12), "velocity %v; want %v", got.Velocity, wantVel)
	assert.True(t, got.Position.EqTol(geometry.Vector3D{Y: 2}.Add(wantVel.Mul(testDt)), 1e-12))
	assert.True(t, got.Forward.EqTol(wantVel.Normalize(), 1e-12))
}

func TestTick_ForceBlendWithNeighbours(t *testing.T) {
	cfg := testConfig()
	va := geometry.Vector3D{X: 0.5}
	vb := geometry.Vector3D{Z: 2}
	a := Boid{Position: geometry.Vector3D{X: 0, Y: 2, Z: 0}, Forward: geometry.Right, Velocity: va}
	b := Boid{Position: geometry.Vector3D{X: 1, Y: 2, Z: 0}, Forward: geometry.Forward, Velocity: vb}
	e := newTestEngine(t, cfg, []Boid{a, b})

	e.Tick(testDt)
	got := e.Boid(0)

	sep, align, coh := geometry.Right.Neg(), geometry.Forward, geometry.Right
	want := sep.Mul(cfg.BoidForceScale).Sub(va).Mul(cfg.SeparationWeight).
		Add(align.Mul(cfg.BoidForceScale).Sub(va).Mul(cfg.AlignmentWeight)).
		Add(coh.Mul(cfg.BoidForceScale).Sub(va).Mul(cfg.CohesionWeight)).
		Add(geometry.Zero.Sub(va).Mul(cfg.ObstacleWeight))
	assert.True(t, got.CurrentTotalForce.EqTol(want, 1e-12), "force %v; want %v", got.CurrentTotalForce, want)
}

func TestTick_StationaryBoidKeepsHeading(t *testing.T) {
	cfg := testConfig()
	cfg.WanderWeight = 0
	cfg.ObstacleWeight = 0
	heading := geometry.Vector3D{X: 1, Z: 1}.Normalize()
	e := newTestEngine(t, cfg, []Boid{{Position: geometry.Vector3D{Y: 2}, Forward: heading}})

	e.Tick(testDt)
	got := e.Boid(0)
	assert.Equal(t, geometry.Zero, got.Velocity)
	assert.Equal(t, heading, got.Forward)
}

func TestTick_SpeedNeverExceedsMax(t *testing.T) {
	cfg := testConfig()
	cfg.NumberOfBoids = 60
	cfg.BoidForceScale = 200
	cfg.InitializationRadius = 3
	e, err := NewSteeringEngine(cfg)
	require.NoError(t, err)

	for tick := 0; tick < 300; tick++ {
		e.Tick(testDt)
		for i, b := range e.Boids() {
			require.LessOrEqual(t, b.Velocity.Len(), cfg.MaxSpeed*(1+1e-12), "tick %d boid %d", tick, i)
			require.InDelta(t, 1.0, b.Forward.Len(), 1e-9, "tick %d boid %d forward", tick, i)
		}
	}
}

func TestTick_RulesAreExclusive(t *testing.T) {
	cfg := testConfig()
	cfg.NumberOfBoids = 80
	cfg.InitializationRadius = 4
	cfg.NeighbourDistance = 1.2
	e, err := NewSteeringEngine(cfg)
	require.NoError(t, err)

	sawNeighbours, sawAlone := false, false
	for tick := 0; tick < 100; tick++ {
		e.Tick(testDt)
		for i, b := range e.Boids() {
			if b.Neighbours == 0 {
				sawAlone = true
				require.Equal(t, geometry.Zero, b.Alignment, "boid %d", i)
				require.Equal(t, geometry.Zero, b.Cohesion, "boid %d", i)
				require.Equal(t, geometry.Zero, b.Separation, "boid %d", i)
				require.InDelta(t, 1.0, b.Wander.Len(), 1e-9, "boid %d", i)
			} else {
				sawNeighbours = true
				require.Equal(t, geometry.Zero, b.Wander, "boid %d", i)
			}
		}
	}
	assert.True(t, sawNeighbours)
	assert.True(t, sawAlone)
}

func TestTick_SpatialGridMatchesFullScan(t *testing.T) {
	cfg := testConfig()
	cfg.NumberOfBoids = 120
	cfg.InitializationRadius = 5
	full, err := NewSteeringEngine(cfg)
	require.NoError(t, err)

	gridCfg := *cfg
	gridCfg.UseSpatialGrid = true
	grid, err := NewSteeringEngine(&gridCfg)
	require.NoError(t, err)
	require.Equal(t, full.Boids(), grid.Boids())

	for tick := 0; tick < 200; tick++ {
		full.Tick(testDt)
		grid.Tick(testDt)
		require.Equal(t, full.Boids(), grid.Boids(), "diverged at tick %d", tick)
	}
}

func TestTick_ComputesBeforeIntegrating(t *testing.T) {
	// Reversing the array must give the same motion: no boid sees another's
	// updated position within the same tick.
	cfg := testConfig()
	cfg.NumberOfBoids = 40
	cfg.InitializationRadius = 2
	forward, err := NewSteeringEngine(cfg)
	require.NoError(t, err)

	boids := forward.Boids()
	reversed := make([]Boid, len(boids))
	for i, b := range boids {
		reversed[len(boids)-1-i] = b
	}
	// keep the leader in place, it is the only index-sensitive boid
	reversed[0], reversed[len(reversed)-1] = reversed[len(reversed)-1], reversed[0]
	backward := newTestEngine(t, cfg, reversed)

	index := func(i int) int {
		switch j := len(boids) - 1 - i; j {
		case 0:
			return len(boids) - 1
		case len(boids) - 1:
			return 0
		default:
			return j
		}
	}
	for tick := 0; tick < 20; tick++ {
		forward.Tick(testDt)
		backward.Tick(testDt)
	}
	for i := range boids {
		a, b := forward.Boid(i), backward.Boid(index(i))
		require.True(t, a.Position.EqTol(b.Position, 1e-9), "boid %d: %v vs %v", i, a.Position, b.Position)
		require.True(t, a.Velocity.EqTol(b.Velocity, 1e-9), "boid %d: %v vs %v", i, a.Velocity, b.Velocity)
	}
}

func TestTick_PresenterPlacement(t *testing.T) {
	cfg := testConfig()
	cfg.RotationSpeed = 90
	presenter := &fakePresenter{}
	boids := []Boid{
		{Position: geometry.Vector3D{Y: 2}, Forward: geometry.Right, Velocity: geometry.Right},
		{Position: geometry.Vector3D{X: -3, Y: 2}, Forward: geometry.Forward},
	}
	e := newTestEngine(t, cfg, boids, WithPresenter(presenter))

	e.Tick(testDt)
	require.Len(t, presenter.placements, 2)
	for i, p := range presenter.placements {
		assert.Equal(t, i, p.i)
		assert.Equal(t, e.Boid(i).Position, p.position)
		assert.InDelta(t, cfg.RotationSpeed*testDt, p.maxDegrees, 1e-12)
		assert.Equal(t, e.Boid(i).Velocity, p.look)
	}
}

func TestTransformPresenter_TurnRateIsBounded(t *testing.T) {
	boids := []Boid{{Position: geometry.Vector3D{Y: 2}, Forward: geometry.Forward}}
	p := NewTransformPresenter(boids)

	p.Place(0, geometry.Vector3D{X: 1, Y: 2}, geometry.Right, 10)
	tr := p.Transform(0)
	assert.Equal(t, geometry.Vector3D{X: 1, Y: 2}, tr.Position)
	assert.InDelta(t, 10, geometry.Identity.Angle(tr.Rotation), 1e-4)

	for i := 0; i < 20; i++ {
		p.Place(0, tr.Position, geometry.Right, 10)
	}
	assert.True(t, p.Transform(0).Rotation.Rotate(geometry.Forward).EqTol(geometry.Right, 1e-6))
	_, ok := p.BodyID(0)
	assert.False(t, ok)
}

func BenchmarkTick_FullScan(b *testing.B) {
	benchmarkTick(b, false)
}

func BenchmarkTick_SpatialGrid(b *testing.B) {
	benchmarkTick(b, true)
}

func benchmarkTick(b *testing.B, useGrid bool) {
	cfg := testConfig()
	cfg.NumberOfBoids = 300
	cfg.InitializationRadius = 6
	cfg.UseSpatialGrid = useGrid
	e, err := NewSteeringEngine(cfg, WithRand(rand.New(rand.NewPCG(7, 8))))
	require.NoError(b, err)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Tick(testDt)
	}
}
