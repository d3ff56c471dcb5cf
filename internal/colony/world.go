package colony

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// WorldID is a unique identifier for a world.
type WorldID string

// Stats accumulates per-world counters since creation or last reset.
type Stats struct {
	Ticks          int64 `json:"ticks"`
	Pickups        int64 `json:"pickups"`
	Deliveries     int64 `json:"deliveries"`
	UnitsDelivered int64 `json:"units_delivered"`
	FoodWasted     int64 `json:"food_wasted"`
	AntsDied       int64 `json:"ants_died"`
	FoodDepletions int64 `json:"food_depletions"`
	FoodRespawns   int64 `json:"food_respawns"`
}

// DeliveryRecord captures one completed delivery for trend analysis:
// path lengths shrinking over time is the emergent-optimization signal.
type DeliveryRecord struct {
	Tick      int64   `json:"tick"`
	PathLen   float64 `json:"path_len"`
	TripTicks int64   `json:"trip_ticks"`
}

// World owns the authoritative simulation state: the pheromone field and
// the collections of ants, obstacles and food sources, plus the nest.
// A single mutex serializes ticks and external mutations, so ants within a
// tick observe each other's deposits in iteration order. That in-tick
// coupling is a property of the model, not an accident; do not parallelize
// ant updates without deciding on snapshot-or-serialize semantics first.
type World struct {
	mu   sync.RWMutex
	id   WorldID
	cfg  Config
	tick int64

	field     *PheromoneField
	ants      []*Ant
	obstacles []*Obstacle
	food      []*FoodSource
	nest      *Nest

	rand      *rand.Rand
	stopCh    chan struct{}
	isRunning bool
	logger    Logger

	events      *EventManager
	notifierIDs []string

	snapshotDir   string
	snapshotEvery int

	stats      Stats
	deliveries []DeliveryRecord
}

// NewWorld creates a world from cfg and generates its initial layout.
// A zero cfg.Seed seeds the random source from the clock.
func NewWorld(cfg Config) (*World, error) {
	return NewWorldWithLogger(cfg, NewNoOpLogger())
}

// NewWorldWithLogger is NewWorld with an injected logger.
func NewWorldWithLogger(cfg Config, logger Logger) (*World, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	w := &World{
		cfg:    cfg,
		rand:   rand.New(rand.NewSource(seed)),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	w.generateLayout()
	return w, nil
}

// ID returns the world's identifier.
func (w *World) ID() WorldID {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.id
}

// SetID assigns the world's identifier, used to tag events and snapshots.
func (w *World) SetID(id WorldID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.id = id
}

// SetEventManager wires the world to an event manager; events raised during
// ticks are forwarded to the given notifier IDs.
func (w *World) SetEventManager(mgr *EventManager, notifierIDs ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = mgr
	w.notifierIDs = notifierIDs
}

// SetSnapshotDir sets the directory periodic snapshots are written to.
func (w *World) SetSnapshotDir(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.snapshotDir = dir
}

// SetSnapshotEveryNTicks sets how often a snapshot is written; zero
// disables periodic snapshots.
func (w *World) SetSnapshotEveryNTicks(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.snapshotEvery = n
}

// Config returns a copy of the world's configuration.
func (w *World) Config() Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cfg
}

// Tick returns the current simulation time.
func (w *World) Tick() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.tick
}

// generateLayout builds nest, food, obstacles, field and ants from scratch.
// Caller must hold the write lock (or own the world exclusively).
func (w *World) generateLayout() {
	cfg := w.cfg

	// Nest somewhere in the central region of the arena.
	w.nest = NewNest(Vec2{
		X: cfg.Width * (0.25 + 0.5*w.rand.Float64()),
		Y: cfg.Height * (0.25 + 0.5*w.rand.Float64()),
	}, cfg.NestRadius, 0)

	w.food = make([]*FoodSource, 0, cfg.NumFood)
	capacity := 0
	for i := 0; i < cfg.NumFood; i++ {
		w.food = append(w.food, NewFoodSource(w.randomFoodPos(), cfg.FoodRadius, cfg.FoodAmount))
		capacity += cfg.FoodAmount
	}
	// Capacity is fixed to the initial total stock; respawned sources do
	// not raise it.
	w.nest.MaxCapacity = capacity

	w.obstacles = make([]*Obstacle, 0, cfg.NumObstacles)
	for i := 0; i < cfg.NumObstacles; i++ {
		radius := cfg.ObstacleMinRadius + w.rand.Float64()*(cfg.ObstacleMaxRadius-cfg.ObstacleMinRadius)
		center := w.randomObstaclePos(radius)
		w.obstacles = append(w.obstacles, NewObstacle(w.rand, center, radius, cfg.ObstacleVertices, cfg.ObstacleIrregularity))
	}

	w.field = NewPheromoneField(cfg.Width, cfg.Height, cfg.CellSize)

	w.ants = make([]*Ant, 0, cfg.NumAnts)
	for i := 0; i < cfg.NumAnts; i++ {
		w.ants = append(w.ants, w.spawnAnt())
	}
}

func (w *World) spawnAnt() *Ant {
	offset := RandomUnit(w.rand).Scale(w.rand.Float64() * w.nest.Radius)
	return NewAnt(w.rand, w.nest.Pos.Add(offset), w.cfg.Ant)
}

// randomFoodPos picks a spot away from the arena edges and not on top of
// the nest.
func (w *World) randomFoodPos() Vec2 {
	cfg := w.cfg
	margin := cfg.FoodRadius + 10
	minNestDist := cfg.NestRadius + cfg.FoodRadius + 50
	for attempt := 0; attempt < 50; attempt++ {
		pos := Vec2{
			X: margin + w.rand.Float64()*(cfg.Width-2*margin),
			Y: margin + w.rand.Float64()*(cfg.Height-2*margin),
		}
		if pos.Sub(w.nest.Pos).Len() >= minNestDist {
			return pos
		}
	}
	// Crowded arena: accept whatever the last attempt produced.
	return Vec2{
		X: margin + w.rand.Float64()*(cfg.Width-2*margin),
		Y: margin + w.rand.Float64()*(cfg.Height-2*margin),
	}
}

// randomObstaclePos picks a center that leaves the nest approachable.
func (w *World) randomObstaclePos(radius float64) Vec2 {
	cfg := w.cfg
	minNestDist := cfg.NestRadius + radius + 40
	for attempt := 0; attempt < 50; attempt++ {
		pos := Vec2{
			X: radius + w.rand.Float64()*(cfg.Width-2*radius),
			Y: radius + w.rand.Float64()*(cfg.Height-2*radius),
		}
		if pos.Sub(w.nest.Pos).Len() >= minNestDist {
			return pos
		}
	}
	return Vec2{X: radius, Y: radius}
}

// Step advances the simulation by one tick: every ant updates in order
// against the live field, population maintenance runs, then one global
// evaporation pass.
func (w *World) Step() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.step()
}

// StepN advances the simulation by n ticks under a single lock acquisition.
func (w *World) StepN(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := 0; i < n; i++ {
		w.step()
	}
}

func (w *World) step() {
	w.tick++
	w.stats.Ticks = w.tick

	env := &Env{
		Field:     w.field,
		Obstacles: w.obstacles,
		Food:      w.food,
		Nest:      w.nest,
		Width:     w.cfg.Width,
		Height:    w.cfg.Height,
		Rand:      w.rand,
		Params:    w.cfg.Ant,
		Tick:      w.tick,
		Emit:      w.handleEvent,
	}

	for _, a := range w.ants {
		a.Update(env)
	}

	w.maintainPopulation(env)

	w.field.Evaporate(w.cfg.EvaporationRate)

	w.maybeSnapshot()
}

// maintainPopulation prunes dead ants, tops the colony back up to the
// configured population, and replaces depleted food sources when
// replenishment is enabled.
func (w *World) maintainPopulation(env *Env) {
	alive := w.ants[:0]
	for _, a := range w.ants {
		if a.State != StateDead {
			alive = append(alive, a)
		}
	}
	w.ants = alive

	for len(w.ants) < w.cfg.NumAnts {
		w.ants = append(w.ants, w.spawnAnt())
	}
	if len(w.ants) > w.cfg.NumAnts {
		w.ants = w.ants[:w.cfg.NumAnts]
	}

	if w.cfg.ReplenishFood {
		for i, fs := range w.food {
			if !fs.IsDepleted() {
				continue
			}
			w.food[i] = NewFoodSource(w.randomFoodPos(), w.cfg.FoodRadius, w.cfg.FoodAmount)
			w.handleEvent(Event{
				Type:      EventFoodRespawned,
				Tick:      w.tick,
				Timestamp: time.Now().Unix(),
				FoodIndex: i,
			})
		}
	}
}

// handleEvent updates world statistics and forwards the event to the
// configured notifiers. Called with the write lock held.
func (w *World) handleEvent(ev Event) {
	ev.WorldID = w.id

	switch ev.Type {
	case EventPickup:
		w.stats.Pickups++
	case EventDelivery:
		w.stats.Deliveries++
		w.stats.UnitsDelivered += int64(ev.Units)
		w.deliveries = append(w.deliveries, DeliveryRecord{
			Tick:      ev.Tick,
			PathLen:   ev.PathLen,
			TripTicks: ev.TripTicks,
		})
	case EventDeliveryRejected:
		w.stats.FoodWasted++
	case EventAntDied:
		w.stats.AntsDied++
	case EventFoodDepleted:
		w.stats.FoodDepletions++
	case EventFoodRespawned:
		w.stats.FoodRespawns++
	}

	if w.events != nil {
		w.events.Enqueue(ev, w.notifierIDs)
	}
}

func (w *World) maybeSnapshot() {
	if w.snapshotDir == "" || w.snapshotEvery <= 0 {
		return
	}
	if w.tick%int64(w.snapshotEvery) != 0 {
		return
	}
	path, err := w.saveSnapshotLocked(w.snapshotDir)
	if err != nil {
		w.logger.Errorf("periodic snapshot failed: world=%s tick=%d error=%v", w.id, w.tick, err)
		return
	}
	w.logger.Debugf("snapshot written: world=%s tick=%d path=%s", w.id, w.tick, path)
}

// Run starts the world on its own ticker until Stop is called. It can be
// called again after stopping.
func (w *World) Run(interval time.Duration) {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return
	}
	w.stopCh = make(chan struct{})
	w.isRunning = true
	w.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				w.Step()
			case <-w.stopCh:
				w.mu.Lock()
				w.isRunning = false
				w.mu.Unlock()
				return
			}
		}
	}()
}

// Stop signals the run goroutine to exit. Run can be called afterwards to
// restart.
func (w *World) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.isRunning {
		return
	}
	close(w.stopCh)
}

// IsRunning reports whether the world is ticking on its own goroutine.
func (w *World) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.isRunning
}

// Reset discards and regenerates the entire layout: field, obstacles, food,
// nest and ants. Time and statistics restart from zero.
func (w *World) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tick = 0
	w.stats = Stats{}
	w.deliveries = nil
	w.generateLayout()
	w.handleEvent(Event{Type: EventWorldReset, Tick: 0, Timestamp: time.Now().Unix()})
}

// SetPopulation changes the target ant count. Extra ants are removed
// immediately; missing ones spawn near the nest.
func (w *World) SetPopulation(n int) error {
	if n < 0 {
		return fmt.Errorf("population cannot be negative, got %d", n)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cfg.NumAnts = n
	for len(w.ants) < n {
		w.ants = append(w.ants, w.spawnAnt())
	}
	if len(w.ants) > n {
		w.ants = w.ants[:n]
	}
	return nil
}

// TranslateObstacle moves an obstacle by delta, preserving its shape.
func (w *World) TranslateObstacle(i int, delta Vec2) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if i < 0 || i >= len(w.obstacles) {
		return fmt.Errorf("obstacle index %d out of range", i)
	}
	w.obstacles[i].Translate(delta)
	return nil
}

// RegenerateObstacle replaces an obstacle with a freshly generated blob at
// the given center and radius.
func (w *World) RegenerateObstacle(i int, center Vec2, radius float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if i < 0 || i >= len(w.obstacles) {
		return fmt.Errorf("obstacle index %d out of range", i)
	}
	if radius <= 0 {
		return fmt.Errorf("obstacle radius must be positive, got %g", radius)
	}
	w.obstacles[i].Regenerate(w.rand, center, radius)
	return nil
}

// MoveFood repositions a food source.
func (w *World) MoveFood(i int, pos Vec2) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if i < 0 || i >= len(w.food) {
		return fmt.Errorf("food index %d out of range", i)
	}
	w.food[i].Pos = pos
	return nil
}

// MoveNest repositions the nest.
func (w *World) MoveNest(pos Vec2) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nest.Pos = pos
}

// Stats returns a copy of the world's counters.
func (w *World) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// Deliveries returns a copy of the delivery log.
func (w *World) Deliveries() []DeliveryRecord {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]DeliveryRecord, len(w.deliveries))
	copy(out, w.deliveries)
	return out
}

// Nest returns the live nest record. Mutating it bypasses the world lock;
// intended for tests and tick-boundary host interaction.
func (w *World) Nest() *Nest {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.nest
}

// Field returns the live pheromone field, for the same audience as Nest.
func (w *World) Field() *PheromoneField {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.field
}
