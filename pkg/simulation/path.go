package simulation

import (
	"errors"
	"fmt"

	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/geometry"
)

const (
	startSampleRadius  = 5.0
	goalSampleRadius   = 2.0
	cornerSampleRadius = 1.0
	// cornerArrivalSqr is generous on purpose: sampled positions are projected onto the surface.
	cornerArrivalSqr = 1.0
)

var (
	ErrAlreadyNavigating = errors.New("leader is already navigating")
	ErrNoNavSurface      = errors.New("no navigable surface configured")
	ErrStartOffSurface   = errors.New("leader is not near the navigable surface")
	ErrGoalOffSurface    = errors.New("goal is not near the navigable surface")
	ErrPathIncomplete    = errors.New("no complete path to goal")
)

// FollowState is the PathFollower state.
type FollowState int

const (
	Idle FollowState = iota
	Navigating
)

func (s FollowState) String() string {
	if s == Navigating {
		return "navigating"
	}
	return "idle"
}

// PathFollower walks the leader along the corners of a planned path.
// It is not safe for concurrent use; callers serialize SetGoal with Advance.
type PathFollower struct {
	nav           NavSurface
	goal          geometry.Vector3D
	path          NavPath
	currentCorner int
	navigating    bool
}

func NewPathFollower(nav NavSurface) *PathFollower {
	return &PathFollower{nav: nav}
}

// SetGoal plans a path from the leader position to goal.
// It is ignored while a path is being followed.
func (p *PathFollower) SetGoal(from, goal geometry.Vector3D) error {
	if p.navigating {
		return ErrAlreadyNavigating
	}
	if p.nav == nil {
		return ErrNoNavSurface
	}
	p.goal = goal

	start, ok := p.nav.SamplePosition(from, startSampleRadius)
	if !ok {
		return fmt.Errorf("%w: %s", ErrStartOffSurface, from)
	}
	end, ok := p.nav.SamplePosition(goal, goalSampleRadius)
	if !ok {
		return fmt.Errorf("%w: %s", ErrGoalOffSurface, goal)
	}

	p.path = NavPath{}
	path, err := p.nav.CalculatePath(start, end)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPathIncomplete, err)
	}
	if path.Status != PathComplete || len(path.Corners) < 2 {
		return fmt.Errorf("%w: status %s with %d corners", ErrPathIncomplete, path.Status, len(path.Corners))
	}
	p.path = path
	p.currentCorner = 0
	p.navigating = true
	return nil
}

// Advance moves to the next corner once the leader, sampled onto the surface,
// is close to the current one. It returns the corner to steer toward, or false
// when there is nothing to follow (idle, or the last corner was just reached).
func (p *PathFollower) Advance(position geometry.Vector3D) (geometry.Vector3D, bool) {
	if !p.following() {
		return geometry.Zero, false
	}
	if hit, ok := p.nav.SamplePosition(position, cornerSampleRadius); ok {
		if hit.DistanceSquaredTo(p.path.Corners[p.currentCorner]) < cornerArrivalSqr {
			p.currentCorner++
			if p.currentCorner >= len(p.path.Corners) {
				p.path = NavPath{}
				p.navigating = false
				p.currentCorner = 0
				return geometry.Zero, false
			}
		}
	}
	return p.path.Corners[p.currentCorner], true
}

func (p *PathFollower) following() bool {
	return p.navigating && p.nav != nil &&
		p.path.Status == PathComplete && len(p.path.Corners) > 1
}

// State reports whether a path is being followed.
func (p *PathFollower) State() FollowState {
	if p.navigating {
		return Navigating
	}
	return Idle
}

// Goal returns the last requested destination.
func (p *PathFollower) Goal() geometry.Vector3D {
	return p.goal
}

// CurrentCorner returns the index of the corner being steered toward.
func (p *PathFollower) CurrentCorner() int {
	return p.currentCorner
}

// Corners returns a copy of the current path corners.
func (p *PathFollower) Corners() []geometry.Vector3D {
	out := make([]geometry.Vector3D, len(p.path.Corners))
	copy(out, p.path.Corners)
	return out
}
