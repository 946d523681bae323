package simulation

import (
	"math/rand/v2"

	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/geometry"
)

// Boid is the authoritative state of one flock member.
// Boids is an artificial life program, developed by Craig Reynolds in 1986,
// which simulates the flocking behaviour of birds. https://en.wikipedia.org/wiki/Boids
type Boid struct {
	Position geometry.Vector3D
	Forward  geometry.Vector3D // unit heading
	Velocity geometry.Vector3D

	// Rule directions of the last tick, kept for introspection.
	Alignment  geometry.Vector3D
	Cohesion   geometry.Vector3D
	Separation geometry.Vector3D
	Wander     geometry.Vector3D
	Obstacle   geometry.Vector3D

	CurrentTotalForce geometry.Vector3D
	Neighbours        int
}

// FlockState owns the boid array. Agents are never added or removed after creation.
type FlockState struct {
	Boids []Boid
}

// NewFlockState spawns cfg.NumberOfBoids boids inside a sphere of cfg.InitializationRadius
// around cfg.Origin, each heading along a randomly yawed and pitched forward axis
// at half of cfg.MaxSpeed.
func NewFlockState(cfg *Config, rng *rand.Rand) *FlockState {
	f := &FlockState{Boids: make([]Boid, cfg.NumberOfBoids)}
	r := cfg.InitializationForwardRandomRange
	for i := range f.Boids {
		local := insideUnitSphere(rng).Mul(cfg.InitializationRadius)
		yaw := geometry.AngleAxis(uniform(rng, -r, r), geometry.Up)
		pitch := geometry.AngleAxis(uniform(rng, -r, r), geometry.Right)
		fwd := yaw.Mul(pitch).Rotate(geometry.Forward).Normalize()
		f.Boids[i] = Boid{
			Position: cfg.Origin.Add(local),
			Forward:  fwd,
			Velocity: fwd.Mul(0.5 * cfg.MaxSpeed),
		}
	}
	return f
}

// Len returns the number of boids.
func (f *FlockState) Len() int {
	return len(f.Boids)
}

// Reset clears the per-tick rule and force fields, keeping position, heading and velocity.
func (f *FlockState) Reset() {
	for i := range f.Boids {
		b := &f.Boids[i]
		b.Alignment = geometry.Zero
		b.Cohesion = geometry.Zero
		b.Separation = geometry.Zero
		b.Wander = geometry.Zero
		b.Obstacle = geometry.Zero
		b.CurrentTotalForce = geometry.Zero
		b.Neighbours = 0
	}
}

// NewRand returns the generator a flock is spawned from. Seed 0 picks a random seed.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func insideUnitSphere(rng *rand.Rand) geometry.Vector3D {
	for {
		p := geometry.Vector3D{
			X: rng.Float64()*2 - 1,
			Y: rng.Float64()*2 - 1,
			Z: rng.Float64()*2 - 1,
		}
		if p.LenSqr() <= 1 {
			return p
		}
	}
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
