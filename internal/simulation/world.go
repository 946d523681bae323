package simulation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/simulation"
	"github.com/tochemey/goakt/v3/actor"
	"github.com/tochemey/goakt/v3/goaktpb"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/structpb"
)

// FlockActor owns the steering engine. Its mailbox serializes ticks and goal
// requests, so the engine never sees a goal in the middle of a tick.
//
// Messages:
//   - *durationpb.Duration: advance the flock by that duration (Tell)
//   - *structpb.Struct{x,y,z}: leader goal, answered with a *wrapperspb.StringValue (Ask)
type FlockActor struct {
	runID  uuid.UUID
	cfg    *simulation.Config
	opts   []simulation.Option
	engine *simulation.SteeringEngine
	// Communication with the game loop
	snapshotCh chan *WorldSnapshot

	ticks   uint64
	simTime time.Duration

	// --- Benchmark Stats ---
	tickCount   int
	goalCount   int
	lastLogTime time.Time
}

// NewFlockActor creates the flock logic unit. The engine is built in PreStart.
func NewFlockActor(runID uuid.UUID, cfg *simulation.Config, snapshotCh chan *WorldSnapshot, opts ...simulation.Option) *FlockActor {
	return &FlockActor{
		runID:       runID,
		cfg:         cfg,
		opts:        opts,
		snapshotCh:  snapshotCh,
		lastLogTime: time.Now(),
	}
}

func (w *FlockActor) PreStart(ctx *actor.Context) error {
	opts := append([]simulation.Option{simulation.WithLogger(ctx.ActorSystem().Logger())}, w.opts...)
	engine, err := simulation.NewSteeringEngine(w.cfg, opts...)
	if err != nil {
		return fmt.Errorf("flock %s: %w", w.runID, err)
	}
	w.engine = engine
	return nil
}

func (w *FlockActor) Receive(ctx *actor.ReceiveContext) {
	switch msg := ctx.Message().(type) {
	case *goaktpb.PostStart:
		ctx.Logger().Infof("flock %s started with %d boids", w.runID, w.engine.Len())

	case *durationpb.Duration:
		w.tick(ctx, msg)

	case *structpb.Struct:
		w.goalCount++
		goal, err := goalFromMessage(msg)
		if err == nil {
			err = w.engine.SetGoal(goal)
		}
		if err != nil {
			ctx.Logger().Debugf("flock %s: %v", w.runID, err)
		}
		ctx.Response(goalReply(err))

	default:
		ctx.Unhandled()
	}
}

func (w *FlockActor) tick(ctx *actor.ReceiveContext, msg *durationpb.Duration) {
	if err := msg.CheckValid(); err != nil {
		ctx.Logger().Warnf("flock %s: invalid tick: %v", w.runID, err)
		return
	}
	dt := msg.AsDuration()
	if dt <= 0 {
		ctx.Logger().Warnf("flock %s: ignoring tick of %s", w.runID, dt)
		return
	}

	// 1. Telemetry
	w.tickCount++
	w.logBenchmarks(ctx)

	// 2. Physics
	w.engine.Tick(dt.Seconds())
	w.ticks++
	w.simTime += dt

	// 3. Game loop update
	w.pushSnapshot(newSnapshot(w.runID, w.ticks, w.simTime, w.engine))
}

func (w *FlockActor) logBenchmarks(ctx *actor.ReceiveContext) {
	if time.Since(w.lastLogTime) >= time.Second {
		ctx.Logger().Infof("MSG RATE: %d ticks/sec, %d goals | boids: %d | sim time: %s",
			w.tickCount, w.goalCount, w.engine.Len(), w.simTime)
		w.tickCount = 0
		w.goalCount = 0
		w.lastLogTime = time.Now()
	}
}

// pushSnapshot never blocks the actor. When the game loop lags, the stalest
// snapshot is evicted so the newest one is always delivered.
func (w *FlockActor) pushSnapshot(s *WorldSnapshot) {
	if w.snapshotCh == nil {
		return
	}
	for {
		select {
		case w.snapshotCh <- s:
			return
		default:
			select {
			case <-w.snapshotCh:
			default:
			}
		}
	}
}

func (w *FlockActor) PostStop(ctx *actor.Context) error {
	ctx.ActorSystem().Logger().Infof("flock %s stopped after %d ticks (%s simulated)", w.runID, w.ticks, w.simTime)
	return nil
}
