package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/ozlphrt/vibeants/internal/colony"
)

func main() {
	var (
		configFile  = flag.String("config", "", "path to a scenario file, TOML or JSON (optional; defaults used otherwise)")
		ticks       = flag.Int("ticks", 5000, "number of ticks to run")
		seed        = flag.Int64("seed", 0, "random seed override (0 keeps the scenario's seed)")
		worldID     = flag.String("world-id", "simulation", "world ID")
		snapshotOut = flag.String("snapshot-out", "", "optional directory to write a final snapshot into")
		reportEvery = flag.Int("report-every", 0, "print a progress line every N ticks (0 disables)")
	)
	flag.Parse()

	cfg, err := loadScenario(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading scenario: %v\n", err)
		os.Exit(1)
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}

	world, err := colony.NewWorld(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating world: %v\n", err)
		os.Exit(1)
	}
	world.SetID(colony.WorldID(*worldID))

	for i := 0; i < *ticks; i++ {
		world.Step()
		if *reportEvery > 0 && (i+1)%*reportEvery == 0 {
			st := world.Stats()
			nest := world.Nest()
			fmt.Printf("tick %d: deliveries=%d stored=%d/%d efficiency=%.2f\n",
				i+1, st.Deliveries, nest.FoodStored, nest.MaxCapacity, nest.Efficiency)
		}
	}

	printSummary(cfg.Name, *ticks, world)

	if *snapshotOut != "" {
		path, err := world.SaveSnapshot(*snapshotOut)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error writing snapshot: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Snapshot written to %s\n", path)
	}
}

// loadScenario reads a scenario file. TOML and JSON are both accepted,
// keyed off the file extension; a missing path yields the defaults.
func loadScenario(path string) (colony.Config, error) {
	cfg := colony.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return colony.Config{}, fmt.Errorf("parsing scenario TOML: %w", err)
		}
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return colony.Config{}, fmt.Errorf("reading scenario file: %w", err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return colony.Config{}, fmt.Errorf("parsing scenario JSON: %w", err)
		}
	}

	if err := colony.ValidateConfig(cfg); err != nil {
		return colony.Config{}, fmt.Errorf("validating scenario: %w", err)
	}
	return cfg, nil
}

func printSummary(name string, ticks int, world *colony.World) {
	st := world.Stats()
	nest := world.Nest()
	deliveries := world.Deliveries()

	if name == "" {
		name = "default"
	}
	fmt.Printf("Simulation finished (scenario=%s, ticks=%d)\n", name, ticks)
	fmt.Printf("  pickups:         %d\n", st.Pickups)
	fmt.Printf("  deliveries:      %d\n", st.Deliveries)
	fmt.Printf("  units delivered: %d\n", st.UnitsDelivered)
	fmt.Printf("  food wasted:     %d\n", st.FoodWasted)
	fmt.Printf("  ants died:       %d\n", st.AntsDied)
	fmt.Printf("  nest stored:     %d/%d (full=%v)\n", nest.FoodStored, nest.MaxCapacity, nest.Full)
	fmt.Printf("  nest efficiency: %.3f\n", nest.Efficiency)

	// Trip-length trend across the first and last tenth of the run shows
	// whether routes converged.
	if len(deliveries) >= 10 {
		window := int64(ticks) / 10
		early := meanPathLen(deliveries, 0, window)
		late := meanPathLen(deliveries, int64(ticks)-window, int64(ticks)+1)
		if early > 0 && late > 0 {
			fmt.Printf("  mean trip path:  early=%.1f late=%.1f\n", early, late)
		}
	}
}

func meanPathLen(records []colony.DeliveryRecord, fromTick, toTick int64) float64 {
	sum, n := 0.0, 0
	for _, r := range records {
		if r.Tick >= fromTick && r.Tick < toTick {
			sum += r.PathLen
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
