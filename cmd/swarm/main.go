package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/lao-tseu-is-alive/go-swarm-flock/internal/simulation"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/navigation"
	flock "github.com/lao-tseu-is-alive/go-swarm-flock/pkg/simulation"
	"github.com/tochemey/goakt/v3/actor"
	golog "github.com/tochemey/goakt/v3/log"
)

const (
	navCellSize = 0.5
	// boid bodies take ids after the scenery
	firstBodyID  = 1000
	bodyHalfSize = 0.1
)

var sceneBounds = geometry.AABB{
	Min: geometry.Vector3D{X: -10, Y: 0, Z: -10},
	Max: geometry.Vector3D{X: 10, Y: 6, Z: 10},
}

type options struct {
	configFile string
	schemaFile string
	ticks      int
	dt         time.Duration
	goal       string
	realtime   bool
	bodies     bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configFile, "config", "", "JSON configuration file (defaults when empty)")
	flag.StringVar(&opts.schemaFile, "schema", "", "JSON schema for the configuration (embedded schema when empty)")
	flag.IntVar(&opts.ticks, "ticks", 1500, "number of simulation steps")
	flag.DurationVar(&opts.dt, "dt", 20*time.Millisecond, "length of one simulation step")
	flag.StringVar(&opts.goal, "goal", "5,2.5,5", "leader goal as x,y,z, empty for none")
	flag.BoolVar(&opts.realtime, "realtime", false, "pace the steps to wall-clock time")
	flag.BoolVar(&opts.bodies, "bodies", true, "give every boid a body the others avoid")
	verbose := flag.Bool("verbose", false, "debug logging")
	flag.Parse()

	level := golog.InfoLevel
	if *verbose {
		level = golog.DebugLevel
	}
	logger := golog.New(level, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, logger, opts); err != nil && !errors.Is(err, context.Canceled) {
		logger.Errorf("swarm: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger golog.Logger, opts options) error {
	if opts.dt <= 0 {
		return fmt.Errorf("-dt must be positive, got %s", opts.dt)
	}
	cfg := flock.DefaultConfig()
	if opts.configFile != "" {
		loaded, err := flock.LoadConfig(opts.configFile, opts.schemaFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if cfg.Seed == 0 {
		cfg.Seed = rand.Uint64()
	}
	logger.Infof("config: %d boids, seed %d, neighbour distance %.2f, spatial grid %t",
		cfg.NumberOfBoids, cfg.Seed, cfg.NeighbourDistance, cfg.UseSpatialGrid)

	scene, err := navigation.NewScene(sceneBounds, cfg.Origin.Y, navCellSize, pillars()...)
	if err != nil {
		return fmt.Errorf("failed to build scene: %w", err)
	}
	engineOpts := []flock.Option{
		flock.WithSpatialQuery(scene.Obstacles),
		flock.WithNavSurface(scene.NavMesh),
	}
	if opts.bodies {
		boids := flock.NewFlockState(cfg, flock.NewRand(cfg.Seed))
		bodies, err := navigation.NewBodyPresenter(scene.Obstacles, boids.Boids, firstBodyID, bodyHalfSize)
		if err != nil {
			return fmt.Errorf("failed to register boid bodies: %w", err)
		}
		engineOpts = append(engineOpts, flock.WithFlock(boids), flock.WithPresenter(bodies))
	}

	system, err := actor.NewActorSystem("SwarmFlock",
		actor.WithLogger(logger),
		actor.WithActorInitMaxRetries(3))
	if err != nil {
		return err
	}
	if err := system.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = system.Stop(context.Background()) }()

	perSecond := max(1, int(time.Second/opts.dt))
	game, err := simulation.NewGame(ctx, system, cfg, engineOpts,
		simulation.WithRealtime(opts.realtime),
		simulation.WithObserver(func(s *simulation.WorldSnapshot) {
			if s.Tick%uint64(perSecond) == 0 {
				logSnapshot(logger, s)
			}
		}))
	if err != nil {
		return err
	}
	logger.Infof("run %s: %d steps of %s", game.RunID(), opts.ticks, opts.dt)

	if opts.goal != "" {
		goal, err := parseVector(opts.goal)
		if err != nil {
			return fmt.Errorf("bad -goal: %w", err)
		}
		if err := game.RequestGoal(ctx, goal); err != nil {
			logger.Warnf("leader stays idle: %v", err)
		}
	}

	final, err := game.Run(ctx, opts.ticks, opts.dt)
	if final != nil {
		logger.Infof("finished at step %d (%s simulated)", final.Tick, final.SimTime)
		logSnapshot(logger, final)
	}
	return err
}

// pillars is the demo scenery: four columns around the spawn point.
func pillars() []navigation.Box {
	var boxes []navigation.Box
	id := uint64(1)
	for _, x := range []float64{-3, 3} {
		for _, z := range []float64{-3, 3} {
			boxes = append(boxes, navigation.NewBox(id, geometry.AABB{
				Min: geometry.Vector3D{X: x - 0.5, Y: 0, Z: z - 0.5},
				Max: geometry.Vector3D{X: x + 0.5, Y: 6, Z: z + 0.5},
			}))
			id++
		}
	}
	return boxes
}

func logSnapshot(logger golog.Logger, s *simulation.WorldSnapshot) {
	leader, ok := s.Leader()
	if !ok {
		logger.Infof("t=%s empty flock", s.SimTime)
		return
	}
	state := "idle"
	if s.Navigating {
		state = fmt.Sprintf("corner %d/%d toward %s", s.CurrentCorner, len(s.LeaderPath), s.Goal)
	}
	logger.Infof("t=%s leader at %s (%s) | centroid %s | max speed %.2f",
		s.SimTime, leader.Position, state, s.Centroid(), s.MaxSpeed)
}

func parseVector(s string) (geometry.Vector3D, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return geometry.Zero, fmt.Errorf("want x,y,z, got %q", s)
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geometry.Zero, err
		}
		v[i] = f
	}
	return geometry.Vector3D{X: v[0], Y: v[1], Z: v[2]}, nil
}
