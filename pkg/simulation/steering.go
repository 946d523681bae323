package simulation

import (
	"errors"
	"math/rand/v2"

	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/geometry"
	golog "github.com/tochemey/goakt/v3/log"
)

// separationMinSqr skips the inverse-square push for coincident boids.
const separationMinSqr = 1e-6

// LeaderIndex is the only boid that follows paths.
const LeaderIndex = 0

var ErrNoLeader = errors.New("flock is empty, there is no leader")

// softBoundary are the planes past which a boid is pushed back with a unit force.
var softBoundary = geometry.AABB{
	Min: geometry.Vector3D{X: -8, Y: 1, Z: -8},
	Max: geometry.Vector3D{X: 8, Y: 4, Z: 8},
}

// SteeringEngine advances the flock one fixed step at a time.
// It is single-threaded: Tick and SetGoal must not run concurrently.
type SteeringEngine struct {
	cfg       Config
	flock     *FlockState
	leader    *PathFollower
	spatial   SpatialQuery
	nav       NavSurface
	presenter Presenter
	grid      *neighbourGrid
	rng       *rand.Rand
	logger    golog.Logger

	sqrNeighbourDistance float64
	ticks                uint64
}

type Option func(*SteeringEngine)

// WithSpatialQuery sets the obstacle lookup. Without it only the soft boundary applies.
func WithSpatialQuery(q SpatialQuery) Option {
	return func(e *SteeringEngine) { e.spatial = q }
}

// WithNavSurface sets the surface the leader plans on. Without it SetGoal always fails.
func WithNavSurface(nav NavSurface) Option {
	return func(e *SteeringEngine) { e.nav = nav }
}

// WithPresenter mirrors every integrated boid into p.
func WithPresenter(p Presenter) Option {
	return func(e *SteeringEngine) { e.presenter = p }
}

func WithLogger(l golog.Logger) Option {
	return func(e *SteeringEngine) { e.logger = l }
}

// WithRand replaces the random source used to spawn the flock.
func WithRand(rng *rand.Rand) Option {
	return func(e *SteeringEngine) { e.rng = rng }
}

// WithFlock uses an already placed flock instead of spawning one.
func WithFlock(f *FlockState) Option {
	return func(e *SteeringEngine) { e.flock = f }
}

func NewSteeringEngine(cfg *Config, opts ...Option) (*SteeringEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &SteeringEngine{
		cfg:                  *cfg,
		logger:               golog.DiscardLogger,
		sqrNeighbourDistance: cfg.NeighbourDistance * cfg.NeighbourDistance,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = NewRand(cfg.Seed)
	}
	if e.flock == nil {
		e.flock = NewFlockState(&e.cfg, e.rng)
	}
	if cfg.UseSpatialGrid {
		e.grid = newNeighbourGrid(cfg.NeighbourDistance)
	}
	e.leader = NewPathFollower(e.nav)
	return e, nil
}

// Tick runs one step of length dt seconds: reset, steer every boid, steer the leader
// toward its corner, then integrate every boid. No boid moves before all forces are known.
func (e *SteeringEngine) Tick(dt float64) {
	n := e.flock.Len()
	if n == 0 {
		return
	}
	e.flock.Reset()
	if e.grid != nil {
		e.grid.rebuild(e.flock.Boids)
	}
	for i := 0; i < n; i++ {
		e.steer(i)
	}
	e.seekGoal()
	for i := 0; i < n; i++ {
		e.integrate(i, dt)
	}
	e.ticks++
}

type neighbourhood struct {
	count      int
	velocity   geometry.Vector3D
	position   geometry.Vector3D
	separation geometry.Vector3D
}

// isNeighbour reports whether j is within range of i and in front of it.
func (e *SteeringEngine) isNeighbour(i, j int) (geometry.Vector3D, float64, bool) {
	if i == j {
		return geometry.Zero, 0, false
	}
	bi, bj := &e.flock.Boids[i], &e.flock.Boids[j]
	toN := bj.Position.Sub(bi.Position)
	sqrD := toN.LenSqr()
	if sqrD > e.sqrNeighbourDistance || toN.Dot(bi.Forward) <= 0 {
		return geometry.Zero, 0, false
	}
	return toN, sqrD, true
}

func (e *SteeringEngine) gather(i, j int, nb *neighbourhood) {
	toN, sqrD, ok := e.isNeighbour(i, j)
	if !ok {
		return
	}
	other := &e.flock.Boids[j]
	nb.count++
	nb.velocity = nb.velocity.Add(other.Velocity)
	nb.position = nb.position.Add(other.Position)
	if sqrD > separationMinSqr {
		nb.separation = nb.separation.Add(toN.Neg().Mul(1 / sqrD))
	}
}

func (e *SteeringEngine) scan(i int) neighbourhood {
	var nb neighbourhood
	if e.grid != nil {
		for _, j := range e.grid.candidates(e.flock.Boids[i].Position) {
			e.gather(i, j, &nb)
		}
		return nb
	}
	for j := range e.flock.Boids {
		e.gather(i, j, &nb)
	}
	return nb
}

// steer computes the rule directions of boid i and accumulates their forces.
func (e *SteeringEngine) steer(i int) {
	nb := e.scan(i)
	b := &e.flock.Boids[i]

	if nb.count > 0 {
		inv := 1 / float64(nb.count)
		b.Alignment = nb.velocity.Mul(inv).NormalizeGuarded()
		b.Cohesion = nb.position.Mul(inv).Sub(b.Position).NormalizeGuarded()
		b.Separation = nb.separation.NormalizeGuarded()
	} else if b.Velocity.IsNegligible() {
		b.Wander = b.Forward
	} else {
		b.Wander = b.Velocity.Normalize()
	}
	b.Neighbours = nb.count
	b.Obstacle = e.avoidObstacles(i, b.Position)

	if nb.count > 0 {
		b.CurrentTotalForce = b.CurrentTotalForce.
			Add(e.steerForce(e.cfg.SeparationWeight, b.Separation, b.Velocity)).
			Add(e.steerForce(e.cfg.AlignmentWeight, b.Alignment, b.Velocity)).
			Add(e.steerForce(e.cfg.CohesionWeight, b.Cohesion, b.Velocity))
	} else {
		b.CurrentTotalForce = b.CurrentTotalForce.
			Add(e.steerForce(e.cfg.WanderWeight, b.Wander, b.Velocity))
	}
	b.CurrentTotalForce = b.CurrentTotalForce.
		Add(e.steerForce(e.cfg.ObstacleWeight, b.Obstacle, b.Velocity))
}

// steerForce turns a unit rule direction into a force toward the matching desired velocity.
func (e *SteeringEngine) steerForce(weight float64, rule, velocity geometry.Vector3D) geometry.Vector3D {
	return rule.Mul(e.cfg.BoidForceScale).Sub(velocity).Mul(weight)
}

func (e *SteeringEngine) avoidObstacles(i int, pos geometry.Vector3D) geometry.Vector3D {
	var sum geometry.Vector3D
	if e.spatial != nil {
		self, hasBody := e.bodyID(i)
		for _, o := range e.spatial.OverlapSphere(pos, e.cfg.ObstacleCheckRadius) {
			if hasBody && o.ID() == self {
				continue
			}
			away := pos.Sub(o.ClosestPointOnBounds(pos))
			if !away.IsNegligible() {
				sum = sum.Add(away.Normalize())
			}
		}
	}
	sum = sum.Add(boundaryPush(pos))
	return sum.NormalizeGuarded()
}

func boundaryPush(pos geometry.Vector3D) geometry.Vector3D {
	var push geometry.Vector3D
	if pos.X > softBoundary.Max.X {
		push.X -= 1
	}
	if pos.X < softBoundary.Min.X {
		push.X += 1
	}
	if pos.Z > softBoundary.Max.Z {
		push.Z -= 1
	}
	if pos.Z < softBoundary.Min.Z {
		push.Z += 1
	}
	if pos.Y > softBoundary.Max.Y {
		push.Y -= 1
	}
	if pos.Y < softBoundary.Min.Y {
		push.Y += 1
	}
	return push
}

func (e *SteeringEngine) bodyID(i int) (uint64, bool) {
	if e.presenter == nil {
		return 0, false
	}
	return e.presenter.BodyID(i)
}

// seekGoal advances the leader's path and adds the goal force toward the current corner.
func (e *SteeringEngine) seekGoal() {
	wasNavigating := e.leader.State() == Navigating
	leader := &e.flock.Boids[LeaderIndex]
	corner, ok := e.leader.Advance(leader.Position)
	if !ok {
		if wasNavigating && e.leader.State() == Idle {
			e.logger.Infof("leader reached goal %s at %s (tick %d)", e.leader.Goal(), leader.Position, e.ticks)
		}
		return
	}
	goal := corner.Sub(leader.Position).NormalizeGuarded()
	leader.CurrentTotalForce = leader.CurrentTotalForce.
		Add(e.steerForce(e.cfg.GoalWeight, goal, leader.Velocity))
}

func (e *SteeringEngine) integrate(i int, dt float64) {
	b := &e.flock.Boids[i]
	b.Velocity = b.Velocity.Add(b.CurrentTotalForce.Mul(dt)).ClampLen(e.cfg.MaxSpeed)
	b.Position = b.Position.Add(b.Velocity.Mul(dt))
	moving := !b.Velocity.IsNegligible()
	if e.presenter != nil {
		look := b.Forward
		if moving {
			look = b.Velocity
		}
		e.presenter.Place(i, b.Position, look, e.cfg.RotationSpeed*dt)
	}
	if moving {
		b.Forward = b.Velocity.Normalize()
	}
}

// SetGoal asks the leader to plan a path to goal. It is a no-op returning
// ErrAlreadyNavigating while a path is being followed.
func (e *SteeringEngine) SetGoal(goal geometry.Vector3D) error {
	if e.flock.Len() == 0 {
		return ErrNoLeader
	}
	from := e.flock.Boids[LeaderIndex].Position
	if err := e.leader.SetGoal(from, goal); err != nil {
		e.logger.Debugf("goal %s rejected from %s: %v", goal, from, err)
		return err
	}
	e.logger.Infof("leader navigating to %s through %d corners", goal, len(e.leader.path.Corners))
	return nil
}

// ---------------------------------------------------------------------
// Read-only accessors
// ---------------------------------------------------------------------

func (e *SteeringEngine) Len() int { return e.flock.Len() }

// Boid returns a copy of boid i.
func (e *SteeringEngine) Boid(i int) Boid { return e.flock.Boids[i] }

// Boids returns a copy of the whole flock.
func (e *SteeringEngine) Boids() []Boid {
	out := make([]Boid, len(e.flock.Boids))
	copy(out, e.flock.Boids)
	return out
}

// NeighboursOf lists the boids that boid i currently sees, in index order.
func (e *SteeringEngine) NeighboursOf(i int) []int {
	var out []int
	for j := range e.flock.Boids {
		if _, _, ok := e.isNeighbour(i, j); ok {
			out = append(out, j)
		}
	}
	return out
}

// Leader returns a copy of boid 0, false for an empty flock.
func (e *SteeringEngine) Leader() (Boid, bool) {
	if e.flock.Len() == 0 {
		return Boid{}, false
	}
	return e.flock.Boids[0], true
}

func (e *SteeringEngine) LeaderPath() []geometry.Vector3D { return e.leader.Corners() }
func (e *SteeringEngine) LeaderState() FollowState        { return e.leader.State() }
func (e *SteeringEngine) Navigating() bool                { return e.leader.State() == Navigating }
func (e *SteeringEngine) CurrentCorner() int              { return e.leader.CurrentCorner() }
func (e *SteeringEngine) Goal() geometry.Vector3D         { return e.leader.Goal() }
func (e *SteeringEngine) Ticks() uint64                   { return e.ticks }
func (e *SteeringEngine) Config() Config                  { return e.cfg }
