package simulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/simulation"
	"github.com/tochemey/goakt/v3/actor"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	snapshotBuffer = 10
	askTimeout     = 5 * time.Second
)

// Game drives a FlockActor from a fixed-step loop, without any rendering.
type Game struct {
	ctx        context.Context
	System     actor.ActorSystem
	flockPID   *actor.PID
	runID      uuid.UUID
	snapshotCh chan *WorldSnapshot
	lastState  *WorldSnapshot
	sent       uint64

	realtime bool
	observe  func(*WorldSnapshot)

	// Timing instrumentation
	lastUpdateDuration time.Duration
	updateAvg          float64 // Rolling average in ms
}

type GameOption func(*Game)

// WithRealtime paces Run to wall-clock time instead of running as fast as possible.
func WithRealtime(on bool) GameOption {
	return func(g *Game) { g.realtime = on }
}

// WithObserver is called by Run with every snapshot it waits for.
func WithObserver(fn func(*WorldSnapshot)) GameOption {
	return func(g *Game) { g.observe = fn }
}

// NewGame spawns a FlockActor on system. engineOpts are handed to the steering engine.
func NewGame(ctx context.Context, system actor.ActorSystem, cfg *simulation.Config, engineOpts []simulation.Option, opts ...GameOption) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	g := &Game{
		ctx:        ctx,
		System:     system,
		runID:      uuid.New(),
		snapshotCh: make(chan *WorldSnapshot, snapshotBuffer),
	}
	for _, opt := range opts {
		opt(g)
	}
	flock := NewFlockActor(g.runID, cfg, g.snapshotCh, engineOpts...)
	pid, err := system.Spawn(ctx, "flock-"+g.runID.String(), flock)
	if err != nil {
		return nil, fmt.Errorf("failed to spawn flock: %w", err)
	}
	g.flockPID = pid
	return g, nil
}

func (g *Game) RunID() uuid.UUID { return g.runID }

// LastState is the newest snapshot seen by Update, Step or Run. It is nil before the first tick.
func (g *Game) LastState() *WorldSnapshot { return g.lastState }

// UpdateAvg is the rolling average of Update in milliseconds.
func (g *Game) UpdateAvg() float64 { return g.updateAvg }

// Update picks up the latest snapshot without waiting and sends the next tick.
func (g *Game) Update(dt time.Duration) error {
	start := time.Now()
	defer func() {
		g.lastUpdateDuration = time.Since(start)
		// Rolling average (exponential moving average)
		g.updateAvg = g.updateAvg*0.95 + float64(g.lastUpdateDuration.Microseconds())/1000.0*0.05
	}()

	g.drain()
	return g.sendTick(dt)
}

// Step sends one tick and waits for its snapshot.
func (g *Game) Step(ctx context.Context, dt time.Duration) (*WorldSnapshot, error) {
	if err := g.sendTick(dt); err != nil {
		return nil, err
	}
	return g.await(ctx, g.sent)
}

// Run steps the flock ticks times. With WithRealtime it sleeps so that one tick takes dt.
func (g *Game) Run(ctx context.Context, ticks int, dt time.Duration) (*WorldSnapshot, error) {
	var pace <-chan time.Time
	if g.realtime {
		ticker := time.NewTicker(dt)
		defer ticker.Stop()
		pace = ticker.C
	}
	for i := 0; i < ticks; i++ {
		if pace != nil {
			select {
			case <-pace:
			case <-ctx.Done():
				return g.lastState, ctx.Err()
			}
		}
		snap, err := g.Step(ctx, dt)
		if err != nil {
			return g.lastState, err
		}
		if g.observe != nil {
			g.observe(snap)
		}
	}
	return g.lastState, nil
}

// RequestGoal asks the leader to navigate to p and reports why it refused.
func (g *Game) RequestGoal(ctx context.Context, p geometry.Vector3D) error {
	reply, err := actor.Ask(ctx, g.flockPID, NewGoalMessage(p), askTimeout)
	if err != nil {
		return fmt.Errorf("goal request failed: %w", err)
	}
	v, ok := reply.(*wrapperspb.StringValue)
	if !ok {
		return fmt.Errorf("goal request: unexpected reply %T", reply)
	}
	if v.GetValue() != "" {
		return fmt.Errorf("%w: %s", ErrGoalRejected, v.GetValue())
	}
	return nil
}

func (g *Game) sendTick(dt time.Duration) error {
	if dt <= 0 {
		return errors.New("tick duration must be positive")
	}
	if err := actor.Tell(g.ctx, g.flockPID, NewTickMessage(dt)); err != nil {
		return fmt.Errorf("failed to send tick: %w", err)
	}
	g.sent++
	return nil
}

// drain keeps the newest snapshot already delivered. Use previous state if none is ready.
func (g *Game) drain() {
	for {
		select {
		case snap := <-g.snapshotCh:
			g.lastState = snap
		default:
			return
		}
	}
}

// await blocks until a snapshot of at least tick arrives.
func (g *Game) await(ctx context.Context, tick uint64) (*WorldSnapshot, error) {
	if g.lastState != nil && g.lastState.Tick >= tick {
		return g.lastState, nil
	}
	for {
		select {
		case snap := <-g.snapshotCh:
			g.lastState = snap
			if snap.Tick >= tick {
				return snap, nil
			}
		case <-ctx.Done():
			return g.lastState, fmt.Errorf("waiting for tick %d: %w", tick, ctx.Err())
		}
	}
}
