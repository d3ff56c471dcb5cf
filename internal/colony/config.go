package colony

import (
	"fmt"
	"math"
)

const defaultObstacleIrregularity = 0.2

// AntParams holds the tunables of the per-ant steering pipeline.
type AntParams struct {
	// Movement limits
	MaxSpeed     float64 `json:"max_speed" toml:"max_speed"`
	ReturnSpeed  float64 `json:"return_speed" toml:"return_speed"`
	Acceleration float64 `json:"acceleration" toml:"acceleration"`
	MaxTurnRate  float64 `json:"max_turn_rate" toml:"max_turn_rate"`

	// Momentum blend weights per state (fraction of the blended direction
	// taken from the smoothed momentum vector).
	MomentumWeightExploring float64 `json:"momentum_weight_exploring" toml:"momentum_weight_exploring"`
	MomentumWeightReturning float64 `json:"momentum_weight_returning" toml:"momentum_weight_returning"`

	// Forward sensor cone
	SensorRange      float64 `json:"sensor_range" toml:"sensor_range"`
	SensorHalfAngle  float64 `json:"sensor_half_angle" toml:"sensor_half_angle"`
	SensorSamples    int     `json:"sensor_samples" toml:"sensor_samples"`
	SensorNoise      float64 `json:"sensor_noise" toml:"sensor_noise"`
	SensorThreshold  float64 `json:"sensor_threshold" toml:"sensor_threshold"`
	SensorAngleNoise float64 `json:"sensor_angle_noise" toml:"sensor_angle_noise"`

	// Ranges
	VisualRange      float64 `json:"visual_range" toml:"visual_range"`
	NestHomingRadius float64 `json:"nest_homing_radius" toml:"nest_homing_radius"`

	// Trail deposits
	DepositAmount float64 `json:"deposit_amount" toml:"deposit_amount"`

	// Obstacle interaction
	AvoidRadius       float64 `json:"avoid_radius" toml:"avoid_radius"`
	CollisionDistance float64 `json:"collision_distance" toml:"collision_distance"`
	BounceSpeed       float64 `json:"bounce_speed" toml:"bounce_speed"`

	// Boundary response
	BoundaryMargin float64 `json:"boundary_margin" toml:"boundary_margin"`
	Restitution    float64 `json:"restitution" toml:"restitution"`

	// Path buffer
	PathMinStep float64 `json:"path_min_step" toml:"path_min_step"`
	PathMaxLen  int     `json:"path_max_len" toml:"path_max_len"`

	// Mortal-colony variant. When Mortal is false the lifecycle fields
	// are ignored and ants never die.
	Mortal        bool    `json:"mortal" toml:"mortal"`
	Lifespan      int64   `json:"lifespan" toml:"lifespan"`
	InitialEnergy float64 `json:"initial_energy" toml:"initial_energy"`
	EnergyDrain   float64 `json:"energy_drain" toml:"energy_drain"`
	EnergyPerFood float64 `json:"energy_per_food" toml:"energy_per_food"`
}

// Config describes a complete world layout and its behavioural tunables.
// It is plain data: JSON for the HTTP API and snapshots, TOML for scenario
// files consumed by the headless runner.
type Config struct {
	Name string `json:"name,omitempty" toml:"name"`

	// Arena
	Width    float64 `json:"width" toml:"width"`
	Height   float64 `json:"height" toml:"height"`
	CellSize float64 `json:"cell_size" toml:"cell_size"`

	// Field
	EvaporationRate float64 `json:"evaporation_rate" toml:"evaporation_rate"`

	// Population
	NumAnts int `json:"num_ants" toml:"num_ants"`

	// Food
	NumFood       int     `json:"num_food" toml:"num_food"`
	FoodAmount    int     `json:"food_amount" toml:"food_amount"`
	FoodRadius    float64 `json:"food_radius" toml:"food_radius"`
	ReplenishFood bool    `json:"replenish_food" toml:"replenish_food"`

	// Obstacles
	NumObstacles         int     `json:"num_obstacles" toml:"num_obstacles"`
	ObstacleMinRadius    float64 `json:"obstacle_min_radius" toml:"obstacle_min_radius"`
	ObstacleMaxRadius    float64 `json:"obstacle_max_radius" toml:"obstacle_max_radius"`
	ObstacleVertices     int     `json:"obstacle_vertices" toml:"obstacle_vertices"`
	ObstacleIrregularity float64 `json:"obstacle_irregularity" toml:"obstacle_irregularity"`

	// Nest
	NestRadius float64 `json:"nest_radius" toml:"nest_radius"`

	// Seed for the world's random source. Zero means seed from the clock.
	Seed int64 `json:"seed,omitempty" toml:"seed"`

	Ant AntParams `json:"ant" toml:"ant"`
}

// DefaultConfig returns the baseline configuration: an 800x600 arena with
// a moderate colony and the steering constants the simulation was tuned with.
func DefaultConfig() Config {
	return Config{
		Width:    800,
		Height:   600,
		CellSize: 10,

		EvaporationRate: 0.01,

		NumAnts: 100,

		NumFood:       3,
		FoodAmount:    500,
		FoodRadius:    20,
		ReplenishFood: true,

		NumObstacles:         5,
		ObstacleMinRadius:    30,
		ObstacleMaxRadius:    60,
		ObstacleVertices:     12,
		ObstacleIrregularity: defaultObstacleIrregularity,

		NestRadius: 25,

		Ant: AntParams{
			MaxSpeed:     2.0,
			ReturnSpeed:  1.6,
			Acceleration: 0.15,
			MaxTurnRate:  0.3,

			MomentumWeightExploring: 0.5,
			MomentumWeightReturning: 0.25,

			SensorRange:      40,
			SensorHalfAngle:  math.Pi / 3,
			SensorSamples:    7,
			SensorNoise:      5,
			SensorThreshold:  1.0,
			SensorAngleNoise: 0.1,

			VisualRange:      200,
			NestHomingRadius: 100,

			DepositAmount: 8,

			AvoidRadius:       60,
			CollisionDistance: 6,
			BounceSpeed:       2.0,

			BoundaryMargin: 5,
			Restitution:    0.5,

			PathMinStep: 8,
			PathMaxLen:  100,

			Mortal:        false,
			Lifespan:      10000,
			InitialEnergy: 1000,
			EnergyDrain:   0.1,
			EnergyPerFood: 50,
		},
	}
}

// ValidateConfig checks a configuration for values the simulation cannot
// run with. Zero-valued optional fields are allowed; structural fields
// (arena size, cell size, rates) must be sane.
func ValidateConfig(cfg Config) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("arena size must be positive, got %gx%g", cfg.Width, cfg.Height)
	}
	if cfg.CellSize <= 0 {
		return fmt.Errorf("cell size must be positive, got %g", cfg.CellSize)
	}
	if cfg.EvaporationRate < 0 || cfg.EvaporationRate >= 1 {
		return fmt.Errorf("evaporation rate must be in [0,1), got %g", cfg.EvaporationRate)
	}
	if cfg.NumAnts < 0 {
		return fmt.Errorf("ant count cannot be negative, got %d", cfg.NumAnts)
	}
	if cfg.NumFood < 0 {
		return fmt.Errorf("food source count cannot be negative, got %d", cfg.NumFood)
	}
	if cfg.NumFood > 0 && cfg.FoodAmount <= 0 {
		return fmt.Errorf("food amount must be positive, got %d", cfg.FoodAmount)
	}
	if cfg.NumFood > 0 && cfg.FoodRadius <= 0 {
		return fmt.Errorf("food radius must be positive, got %g", cfg.FoodRadius)
	}
	if cfg.NumObstacles < 0 {
		return fmt.Errorf("obstacle count cannot be negative, got %d", cfg.NumObstacles)
	}
	if cfg.NumObstacles > 0 {
		if cfg.ObstacleMinRadius <= 0 || cfg.ObstacleMaxRadius < cfg.ObstacleMinRadius {
			return fmt.Errorf("obstacle radius range [%g,%g] is invalid", cfg.ObstacleMinRadius, cfg.ObstacleMaxRadius)
		}
		if cfg.ObstacleVertices < 3 {
			return fmt.Errorf("obstacles need at least 3 vertices, got %d", cfg.ObstacleVertices)
		}
	}
	if cfg.NestRadius <= 0 {
		return fmt.Errorf("nest radius must be positive, got %g", cfg.NestRadius)
	}
	if err := validateAntParams(cfg.Ant); err != nil {
		return err
	}
	return nil
}

func validateAntParams(p AntParams) error {
	if p.MaxSpeed <= 0 {
		return fmt.Errorf("ant max speed must be positive, got %g", p.MaxSpeed)
	}
	if p.MaxTurnRate <= 0 {
		return fmt.Errorf("ant max turn rate must be positive, got %g", p.MaxTurnRate)
	}
	if p.SensorRange <= 0 {
		return fmt.Errorf("sensor range must be positive, got %g", p.SensorRange)
	}
	if p.SensorSamples < 1 {
		return fmt.Errorf("sensor needs at least one sample, got %d", p.SensorSamples)
	}
	if p.SensorHalfAngle <= 0 || p.SensorHalfAngle > math.Pi {
		return fmt.Errorf("sensor half angle must be in (0,π], got %g", p.SensorHalfAngle)
	}
	if p.PathMaxLen < 1 {
		return fmt.Errorf("path buffer length must be at least 1, got %d", p.PathMaxLen)
	}
	if p.Mortal {
		if p.Lifespan <= 0 {
			return fmt.Errorf("mortal ants need a positive lifespan, got %d", p.Lifespan)
		}
		if p.InitialEnergy <= 0 {
			return fmt.Errorf("mortal ants need positive initial energy, got %g", p.InitialEnergy)
		}
	}
	return nil
}
