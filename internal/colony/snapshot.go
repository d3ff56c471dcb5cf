package colony

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// AntSnapshot is the persisted state of one ant. Transient steering state
// (momentum, trail buffer) is not persisted; a restored ant re-derives it
// within a few ticks.
type AntSnapshot struct {
	ID     string   `json:"id"`
	Pos    Vec2     `json:"pos"`
	Vel    Vec2     `json:"vel"`
	State  AntState `json:"state"`
	Age    int64    `json:"age,omitempty"`
	Energy float64  `json:"energy,omitempty"`
}

// Snapshot is a point-in-time capture of a world's plain-data state:
// configuration, layout entities, ants and counters. It is a pass-through
// serialization of the entities a host already reads each tick.
type Snapshot struct {
	WorldID    WorldID          `json:"world_id"`
	Tick       int64            `json:"tick"`
	Config     Config           `json:"config"`
	Ants       []AntSnapshot    `json:"ants"`
	Obstacles  []Obstacle       `json:"obstacles"`
	Food       []FoodSource     `json:"food"`
	Nest       Nest             `json:"nest"`
	Stats      Stats            `json:"stats"`
	Deliveries []DeliveryRecord `json:"deliveries,omitempty"`
}

// ValidateSnapshot performs structural checks on a snapshot:
//   - the embedded config is runnable
//   - ant IDs are non-empty and unique
//   - ant states are known
//   - obstacles keep at least 3 vertices
//   - food amounts respect 0 <= amount <= original
//   - the nest respects its capacity invariant
func ValidateSnapshot(s Snapshot) error {
	if err := ValidateConfig(s.Config); err != nil {
		return fmt.Errorf("snapshot config: %w", err)
	}

	seen := make(map[string]struct{})
	for i, a := range s.Ants {
		if a.ID == "" {
			return fmt.Errorf("ant at index %d has empty ID", i)
		}
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("duplicate ant ID: %s", a.ID)
		}
		seen[a.ID] = struct{}{}
		if a.State != StateExploring && a.State != StateReturning && a.State != StateDead {
			return fmt.Errorf("ant %s has unknown state %d", a.ID, a.State)
		}
	}

	for i, o := range s.Obstacles {
		if len(o.Points) < 3 {
			return fmt.Errorf("obstacle at index %d has %d vertices, need at least 3", i, len(o.Points))
		}
	}

	for i, fs := range s.Food {
		if fs.Amount < 0 || fs.Amount > fs.OriginalAmount {
			return fmt.Errorf("food at index %d has amount %d outside [0,%d]", i, fs.Amount, fs.OriginalAmount)
		}
	}

	if s.Nest.FoodStored > s.Nest.MaxCapacity {
		return fmt.Errorf("nest stores %d over capacity %d", s.Nest.FoodStored, s.Nest.MaxCapacity)
	}

	return nil
}

// EncodeSnapshotJSON encodes a snapshot to JSON.
func EncodeSnapshotJSON(s Snapshot) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshotJSON decodes a snapshot from JSON.
func DecodeSnapshotJSON(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return s, nil
}

// Snapshot captures the world's current plain-data state.
func (w *World) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshotLocked()
}

func (w *World) snapshotLocked() Snapshot {
	ants := make([]AntSnapshot, 0, len(w.ants))
	for _, a := range w.ants {
		ants = append(ants, AntSnapshot{
			ID:     a.ID,
			Pos:    a.Pos,
			Vel:    a.Vel,
			State:  a.State,
			Age:    a.Age,
			Energy: a.Energy,
		})
	}

	obstacles := make([]Obstacle, 0, len(w.obstacles))
	for _, o := range w.obstacles {
		points := make([]Vec2, len(o.Points))
		copy(points, o.Points)
		obstacles = append(obstacles, Obstacle{Center: o.Center, Radius: o.Radius, Points: points})
	}

	food := make([]FoodSource, 0, len(w.food))
	for _, fs := range w.food {
		food = append(food, *fs)
	}

	deliveries := make([]DeliveryRecord, len(w.deliveries))
	copy(deliveries, w.deliveries)

	return Snapshot{
		WorldID:    w.id,
		Tick:       w.tick,
		Config:     w.cfg,
		Ants:       ants,
		Obstacles:  obstacles,
		Food:       food,
		Nest:       *w.nest,
		Stats:      w.stats,
		Deliveries: deliveries,
	}
}

// Restore replaces the world's state with the snapshot's. The pheromone
// field restarts empty; trails rebuild from live deposits.
func (w *World) Restore(s Snapshot) error {
	if err := ValidateSnapshot(s); err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.cfg = s.Config
	w.tick = s.Tick
	w.stats = s.Stats
	w.deliveries = make([]DeliveryRecord, len(s.Deliveries))
	copy(w.deliveries, s.Deliveries)

	w.field = NewPheromoneField(s.Config.Width, s.Config.Height, s.Config.CellSize)

	nest := s.Nest
	w.nest = &nest

	w.food = make([]*FoodSource, 0, len(s.Food))
	for _, fs := range s.Food {
		f := fs
		w.food = append(w.food, &f)
	}

	w.obstacles = make([]*Obstacle, 0, len(s.Obstacles))
	for _, o := range s.Obstacles {
		points := make([]Vec2, len(o.Points))
		copy(points, o.Points)
		w.obstacles = append(w.obstacles, &Obstacle{Center: o.Center, Radius: o.Radius, Points: points})
	}

	w.ants = make([]*Ant, 0, len(s.Ants))
	for _, as := range s.Ants {
		a := &Ant{
			ID:     as.ID,
			Pos:    as.Pos,
			Vel:    as.Vel,
			State:  as.State,
			Age:    as.Age,
			Energy: as.Energy,
		}
		a.momentum = a.heading(w.rand)
		a.tripStart = s.Tick
		w.ants = append(w.ants, a)
	}

	return nil
}

// SaveSnapshot writes the world's snapshot into dir and returns the file
// path. Files are named <worldID>-<tick>.json.
func (w *World) SaveSnapshot(dir string) (string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.saveSnapshotLocked(dir)
}

func (w *World) saveSnapshotLocked(dir string) (string, error) {
	s := w.snapshotLocked()
	data, err := EncodeSnapshotJSON(s)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	name := fmt.Sprintf("%s-%d.json", s.WorldID, s.Tick)
	if s.WorldID == "" {
		name = fmt.Sprintf("world-%d.json", s.Tick)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	return path, nil
}

// LoadSnapshotFile reads and decodes a snapshot from a file.
func LoadSnapshotFile(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read snapshot file: %w", err)
	}
	return DecodeSnapshotJSON(data)
}
