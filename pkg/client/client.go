// Package client provides a Go API for driving a vibeants server: a fluent
// builder for world scenarios and HTTP helpers for the world endpoints.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ozlphrt/vibeants/internal/colony"
)

// ScenarioBuilder provides a fluent API for building world configurations.
// It starts from the simulation defaults; each method overrides one aspect.
type ScenarioBuilder struct {
	cfg colony.Config
}

// NewScenario creates a scenario builder with the given name and default
// configuration.
func NewScenario(name string) *ScenarioBuilder {
	cfg := colony.DefaultConfig()
	cfg.Name = name
	return &ScenarioBuilder{cfg: cfg}
}

// Arena sets the arena dimensions.
func (b *ScenarioBuilder) Arena(width, height float64) *ScenarioBuilder {
	b.cfg.Width = width
	b.cfg.Height = height
	return b
}

// CellSize sets the pheromone grid cell size.
func (b *ScenarioBuilder) CellSize(size float64) *ScenarioBuilder {
	b.cfg.CellSize = size
	return b
}

// Evaporation sets the per-tick field evaporation rate, in [0,1).
func (b *ScenarioBuilder) Evaporation(rate float64) *ScenarioBuilder {
	b.cfg.EvaporationRate = rate
	return b
}

// Ants sets the target colony population.
func (b *ScenarioBuilder) Ants(count int) *ScenarioBuilder {
	b.cfg.NumAnts = count
	return b
}

// Food sets the number of food sources and the units each one starts with.
func (b *ScenarioBuilder) Food(count, amount int) *ScenarioBuilder {
	b.cfg.NumFood = count
	b.cfg.FoodAmount = amount
	return b
}

// Replenish controls whether depleted food sources respawn elsewhere.
func (b *ScenarioBuilder) Replenish(enabled bool) *ScenarioBuilder {
	b.cfg.ReplenishFood = enabled
	return b
}

// Obstacles sets the obstacle count and radius range.
func (b *ScenarioBuilder) Obstacles(count int, minRadius, maxRadius float64) *ScenarioBuilder {
	b.cfg.NumObstacles = count
	b.cfg.ObstacleMinRadius = minRadius
	b.cfg.ObstacleMaxRadius = maxRadius
	return b
}

// NoObstacles removes all obstacles (open arena).
func (b *ScenarioBuilder) NoObstacles() *ScenarioBuilder {
	b.cfg.NumObstacles = 0
	return b
}

// Seed fixes the world's random seed for reproducible runs.
func (b *ScenarioBuilder) Seed(seed int64) *ScenarioBuilder {
	b.cfg.Seed = seed
	return b
}

// Mortal enables the mortal-colony variant with the given lifespan in
// ticks and initial energy.
func (b *ScenarioBuilder) Mortal(lifespan int64, energy float64) *ScenarioBuilder {
	b.cfg.Ant.Mortal = true
	b.cfg.Ant.Lifespan = lifespan
	b.cfg.Ant.InitialEnergy = energy
	return b
}

// Build returns the assembled configuration.
func (b *ScenarioBuilder) Build() colony.Config {
	return b.cfg
}

func do(ctx context.Context, method, u string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, msg)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func worldURL(baseURL, worldID string, parts ...string) (string, error) {
	segments := append([]string{"world", worldID}, parts...)
	u, err := url.JoinPath(baseURL, segments...)
	if err != nil {
		return "", fmt.Errorf("failed to build URL: %w", err)
	}
	return u, nil
}

// CreateWorld creates a world on the server from the scenario.
func CreateWorld(ctx context.Context, baseURL, worldID string, scenario *ScenarioBuilder) error {
	u, err := worldURL(baseURL, worldID)
	if err != nil {
		return err
	}
	return do(ctx, http.MethodPost, u, scenario.Build(), nil)
}

// DeleteWorld removes a world from the server.
func DeleteWorld(ctx context.Context, baseURL, worldID string) error {
	u, err := worldURL(baseURL, worldID)
	if err != nil {
		return err
	}
	return do(ctx, http.MethodDelete, u, nil, nil)
}

// Tick advances the world by steps ticks and returns the new tick count.
func Tick(ctx context.Context, baseURL, worldID string, steps int) (int64, error) {
	u, err := worldURL(baseURL, worldID, "tick")
	if err != nil {
		return 0, err
	}
	u += "?steps=" + strconv.Itoa(steps)
	var out struct {
		Tick int64 `json:"tick"`
	}
	if err := do(ctx, http.MethodPost, u, nil, &out); err != nil {
		return 0, err
	}
	return out.Tick, nil
}

// Frame fetches the world's current render state. Field cells below
// threshold are omitted.
func Frame(ctx context.Context, baseURL, worldID string, threshold float64) (colony.Frame, error) {
	u, err := worldURL(baseURL, worldID, "frame")
	if err != nil {
		return colony.Frame{}, err
	}
	u += "?threshold=" + strconv.FormatFloat(threshold, 'g', -1, 64)
	var frame colony.Frame
	if err := do(ctx, http.MethodGet, u, nil, &frame); err != nil {
		return colony.Frame{}, err
	}
	return frame, nil
}

// Stats fetches the world's counters.
func Stats(ctx context.Context, baseURL, worldID string) (colony.Stats, error) {
	u, err := worldURL(baseURL, worldID, "stats")
	if err != nil {
		return colony.Stats{}, err
	}
	var stats colony.Stats
	if err := do(ctx, http.MethodGet, u, nil, &stats); err != nil {
		return colony.Stats{}, err
	}
	return stats, nil
}

// Run starts the world ticking on the server at the given interval.
func Run(ctx context.Context, baseURL, worldID string, intervalMS int) error {
	u, err := worldURL(baseURL, worldID, "run")
	if err != nil {
		return err
	}
	body := map[string]int{"interval_ms": intervalMS}
	return do(ctx, http.MethodPost, u, body, nil)
}

// Stop halts a running world.
func Stop(ctx context.Context, baseURL, worldID string) error {
	u, err := worldURL(baseURL, worldID, "stop")
	if err != nil {
		return err
	}
	return do(ctx, http.MethodPost, u, nil, nil)
}

// Reset regenerates the world's layout from its configuration.
func Reset(ctx context.Context, baseURL, worldID string) error {
	u, err := worldURL(baseURL, worldID, "reset")
	if err != nil {
		return err
	}
	return do(ctx, http.MethodPost, u, nil, nil)
}

// SetPopulation changes the world's target ant count.
func SetPopulation(ctx context.Context, baseURL, worldID string, count int) error {
	u, err := worldURL(baseURL, worldID, "population")
	if err != nil {
		return err
	}
	body := map[string]int{"count": count}
	return do(ctx, http.MethodPost, u, body, nil)
}
