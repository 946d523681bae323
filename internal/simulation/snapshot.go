package simulation

import (
	"time"

	"github.com/google/uuid"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/simulation"
)

// WorldSnapshot is a copy of the flock after one tick, safe to read from any goroutine.
type WorldSnapshot struct {
	RunID   uuid.UUID
	Tick    uint64
	SimTime time.Duration
	Boids   []simulation.Boid

	LeaderPath    []geometry.Vector3D
	CurrentCorner int
	Navigating    bool
	Goal          geometry.Vector3D

	// MaxSpeed is the fastest boid of this tick.
	MaxSpeed float64
}

func newSnapshot(runID uuid.UUID, tick uint64, simTime time.Duration, e *simulation.SteeringEngine) *WorldSnapshot {
	s := &WorldSnapshot{
		RunID:         runID,
		Tick:          tick,
		SimTime:       simTime,
		Boids:         e.Boids(),
		LeaderPath:    e.LeaderPath(),
		CurrentCorner: e.CurrentCorner(),
		Navigating:    e.Navigating(),
		Goal:          e.Goal(),
	}
	for _, b := range s.Boids {
		s.MaxSpeed = max(s.MaxSpeed, b.Velocity.Len())
	}
	return s
}

// Leader returns the path-following boid, if the flock is not empty.
func (s *WorldSnapshot) Leader() (simulation.Boid, bool) {
	if len(s.Boids) == 0 {
		return simulation.Boid{}, false
	}
	return s.Boids[simulation.LeaderIndex], true
}

// Centroid is the mean boid position.
func (s *WorldSnapshot) Centroid() geometry.Vector3D {
	if len(s.Boids) == 0 {
		return geometry.Zero
	}
	var sum geometry.Vector3D
	for _, b := range s.Boids {
		sum = sum.Add(b.Position)
	}
	return sum.Mul(1 / float64(len(s.Boids)))
}
