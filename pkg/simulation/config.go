package simulation

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/geometry"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed config.schema.json
var configSchema string

const configSchemaURL = "config.schema.json"

type Config struct {
	// Population
	NumberOfBoids int `json:"numberOfBoids"`

	// Physics
	BoidForceScale float64 `json:"boidForceScale"` // unit rule direction -> target speed
	MaxSpeed       float64 `json:"maxSpeed"`
	RotationSpeed  float64 `json:"rotationSpeed"` // degrees per second for the visual transform

	// Perception
	ObstacleCheckRadius float64 `json:"obstacleCheckRadius"`
	NeighbourDistance   float64 `json:"neighbourDistance"`

	// Rule weights, summed as-is (never renormalized)
	SeparationWeight float64 `json:"separationWeight"`
	AlignmentWeight  float64 `json:"alignmentWeight"`
	CohesionWeight   float64 `json:"cohesionWeight"`
	GoalWeight       float64 `json:"goalWeight"`
	ObstacleWeight   float64 `json:"obstacleWeight"`
	WanderWeight     float64 `json:"wanderWeight"`

	// Spawning
	InitializationRadius             float64           `json:"initializationRadius"`
	InitializationForwardRandomRange float64           `json:"initializationForwardRandomRange"` // degrees
	Origin                           geometry.Vector3D `json:"origin"`
	Seed                             uint64            `json:"seed"` // 0 picks a random seed

	// UseSpatialGrid narrows the neighbour scan with a hash grid. Results are identical to the full scan.
	UseSpatialGrid bool `json:"useSpatialGrid"`
}

func DefaultConfig() *Config {
	return &Config{
		NumberOfBoids:                    200,
		BoidForceScale:                   20,
		MaxSpeed:                         5.0,
		RotationSpeed:                    40.0,
		ObstacleCheckRadius:              1.0,
		SeparationWeight:                 1.1,
		AlignmentWeight:                  0.5,
		CohesionWeight:                   1.0,
		GoalWeight:                       1.0,
		ObstacleWeight:                   0.9,
		WanderWeight:                     0.3,
		NeighbourDistance:                2.0,
		InitializationRadius:             1.0,
		InitializationForwardRandomRange: 50,
		Origin:                           geometry.Vector3D{Y: 2.5},
		UseSpatialGrid:                   true,
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	var errs []error
	if c.NumberOfBoids < 0 {
		errs = append(errs, fmt.Errorf("numberOfBoids must be >= 0, got %d", c.NumberOfBoids))
	}
	if !(c.MaxSpeed > 0) {
		errs = append(errs, fmt.Errorf("maxSpeed must be > 0, got %v", c.MaxSpeed))
	}
	if !(c.NeighbourDistance > 0) {
		errs = append(errs, fmt.Errorf("neighbourDistance must be > 0, got %v", c.NeighbourDistance))
	}
	nonNegative := []struct {
		name string
		v    float64
	}{
		{"boidForceScale", c.BoidForceScale},
		{"rotationSpeed", c.RotationSpeed},
		{"obstacleCheckRadius", c.ObstacleCheckRadius},
		{"initializationRadius", c.InitializationRadius},
		{"initializationForwardRandomRange", c.InitializationForwardRandomRange},
	}
	for _, f := range nonNegative {
		if !(f.v >= 0) || math.IsInf(f.v, 0) {
			errs = append(errs, fmt.Errorf("%s must be a finite value >= 0, got %v", f.name, f.v))
		}
	}
	weights := []struct {
		name string
		v    float64
	}{
		{"separationWeight", c.SeparationWeight},
		{"alignmentWeight", c.AlignmentWeight},
		{"cohesionWeight", c.CohesionWeight},
		{"goalWeight", c.GoalWeight},
		{"obstacleWeight", c.ObstacleWeight},
		{"wanderWeight", c.WanderWeight},
	}
	for _, w := range weights {
		if math.IsNaN(w.v) || math.IsInf(w.v, 0) {
			errs = append(errs, fmt.Errorf("%s must be finite, got %v", w.name, w.v))
		}
	}
	return errors.Join(errs...)
}

// LoadConfig loads configuration from a JSON file and validates it against the schema.
// An empty schemaFile selects the schema embedded in this package.
// Fields absent from the file keep their DefaultConfig values.
func LoadConfig(configFile string, schemaFile string) (*Config, error) {
	// 1. Compile Schema
	sch, err := compileSchema(schemaFile)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	// 2. Read Config File
	b, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	return parseConfig(b, sch)
}

// ParseConfig validates raw JSON against the embedded schema and decodes it over the defaults.
func ParseConfig(data []byte) (*Config, error) {
	sch, err := compileSchema("")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return parseConfig(data, sch)
}

func compileSchema(schemaFile string) (*jsonschema.Schema, error) {
	if schemaFile == "" {
		return jsonschema.CompileString(configSchemaURL, configSchema)
	}
	return jsonschema.Compile(schemaFile)
}

func parseConfig(data []byte, sch *jsonschema.Schema) (*Config, error) {
	// 3. Validate
	var v interface{}
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode config json: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// 4. Unmarshal into Struct, on top of the defaults
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
