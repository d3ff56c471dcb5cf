package colony

import (
	"testing"
	"time"
)

func testWorldConfig(seed int64) Config {
	cfg := DefaultConfig()
	cfg.Seed = seed
	cfg.NumAnts = 20
	cfg.NumObstacles = 2
	return cfg
}

func TestNewWorld_Layout(t *testing.T) {
	cfg := testWorldConfig(42)
	w, err := NewWorld(cfg)
	if err != nil {
		t.Fatalf("NewWorld failed: %v", err)
	}

	if len(w.ants) != cfg.NumAnts {
		t.Errorf("Expected %d ants, got %d", cfg.NumAnts, len(w.ants))
	}
	if len(w.food) != cfg.NumFood {
		t.Errorf("Expected %d food sources, got %d", cfg.NumFood, len(w.food))
	}
	if len(w.obstacles) != cfg.NumObstacles {
		t.Errorf("Expected %d obstacles, got %d", cfg.NumObstacles, len(w.obstacles))
	}

	// Nest capacity is fixed to the initial total stock.
	wantCap := cfg.NumFood * cfg.FoodAmount
	if w.nest.MaxCapacity != wantCap {
		t.Errorf("Expected nest capacity %d, got %d", wantCap, w.nest.MaxCapacity)
	}

	// Ants spawn around the nest.
	for i, a := range w.ants {
		if d := a.Pos.Sub(w.nest.Pos).Len(); d > cfg.NestRadius+1e-9 {
			t.Errorf("Ant %d spawned %g from the nest center", i, d)
		}
		if a.State != StateExploring {
			t.Errorf("Ant %d spawned in state %v", i, a.State)
		}
	}
}

func TestNewWorld_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width = -1
	if _, err := NewWorld(cfg); err == nil {
		t.Error("Expected an error for a negative arena width")
	}
}

func TestWorld_Step_AdvancesTick(t *testing.T) {
	w, err := NewWorld(testWorldConfig(1))
	if err != nil {
		t.Fatalf("NewWorld failed: %v", err)
	}

	w.Step()
	w.Step()
	if got := w.Tick(); got != 2 {
		t.Errorf("Expected tick 2, got %d", got)
	}
	if got := w.Stats().Ticks; got != 2 {
		t.Errorf("Expected stats ticks 2, got %d", got)
	}

	w.StepN(10)
	if got := w.Tick(); got != 12 {
		t.Errorf("Expected tick 12, got %d", got)
	}
}

func TestWorld_SeededRunsAreDeterministic(t *testing.T) {
	cfg := testWorldConfig(777)

	w1, err := NewWorld(cfg)
	if err != nil {
		t.Fatalf("NewWorld failed: %v", err)
	}
	w2, err := NewWorld(cfg)
	if err != nil {
		t.Fatalf("NewWorld failed: %v", err)
	}

	w1.StepN(200)
	w2.StepN(200)

	if len(w1.ants) != len(w2.ants) {
		t.Fatalf("Populations diverged: %d vs %d", len(w1.ants), len(w2.ants))
	}
	for i := range w1.ants {
		if w1.ants[i].Pos != w2.ants[i].Pos {
			t.Fatalf("Ant %d diverged: %v vs %v", i, w1.ants[i].Pos, w2.ants[i].Pos)
		}
	}
	if w1.Stats() != w2.Stats() {
		t.Errorf("Stats diverged: %+v vs %+v", w1.Stats(), w2.Stats())
	}
}

func TestWorld_SetPopulation(t *testing.T) {
	w, err := NewWorld(testWorldConfig(2))
	if err != nil {
		t.Fatalf("NewWorld failed: %v", err)
	}

	if err := w.SetPopulation(5); err != nil {
		t.Fatalf("SetPopulation failed: %v", err)
	}
	if len(w.ants) != 5 {
		t.Errorf("Expected 5 ants, got %d", len(w.ants))
	}

	if err := w.SetPopulation(30); err != nil {
		t.Fatalf("SetPopulation failed: %v", err)
	}
	if len(w.ants) != 30 {
		t.Errorf("Expected 30 ants, got %d", len(w.ants))
	}

	// The new target survives population maintenance.
	w.Step()
	if len(w.ants) != 30 {
		t.Errorf("Expected 30 ants after a step, got %d", len(w.ants))
	}

	if err := w.SetPopulation(-1); err == nil {
		t.Error("Expected an error for a negative population")
	}
}

func TestWorld_Reset(t *testing.T) {
	w, err := NewWorld(testWorldConfig(3))
	if err != nil {
		t.Fatalf("NewWorld failed: %v", err)
	}

	w.StepN(50)
	w.Reset()

	if got := w.Tick(); got != 0 {
		t.Errorf("Expected tick 0 after reset, got %d", got)
	}
	if got := w.Stats(); got != (Stats{}) {
		t.Errorf("Expected zero stats after reset, got %+v", got)
	}
	if got := len(w.Deliveries()); got != 0 {
		t.Errorf("Expected empty delivery log after reset, got %d", got)
	}
	if cells := w.Field().Cells(0); len(cells) != 0 {
		t.Errorf("Expected an empty field after reset, got %d cells", len(cells))
	}
}

func TestWorld_RunStop(t *testing.T) {
	w, err := NewWorld(testWorldConfig(4))
	if err != nil {
		t.Fatalf("NewWorld failed: %v", err)
	}

	w.Run(time.Millisecond)
	if !w.IsRunning() {
		t.Fatal("Expected the world to be running")
	}
	// Run is idempotent while running.
	w.Run(time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for w.Tick() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if w.Tick() == 0 {
		t.Fatal("Expected ticks to advance while running")
	}

	w.Stop()
	for w.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if w.IsRunning() {
		t.Fatal("Expected the world to stop")
	}

	// Restart after stop works.
	w.Run(time.Millisecond)
	if !w.IsRunning() {
		t.Error("Expected the world to restart")
	}
	w.Stop()
}

func TestWorld_MortalPopulationIsMaintained(t *testing.T) {
	cfg := testWorldConfig(5)
	cfg.NumObstacles = 0
	cfg.Ant.Mortal = true
	cfg.Ant.Lifespan = 3
	w, err := NewWorld(cfg)
	if err != nil {
		t.Fatalf("NewWorld failed: %v", err)
	}

	w.StepN(20)

	if got := w.Stats().AntsDied; got == 0 {
		t.Error("Expected deaths with a 3-tick lifespan")
	}
	if len(w.ants) != cfg.NumAnts {
		t.Errorf("Expected population topped back up to %d, got %d", cfg.NumAnts, len(w.ants))
	}
	for i, a := range w.ants {
		if a.State == StateDead {
			t.Errorf("Dead ant %d survived pruning", i)
		}
	}
}

func TestWorld_ReplenishFood(t *testing.T) {
	cfg := testWorldConfig(6)
	cfg.ReplenishFood = true
	w, err := NewWorld(cfg)
	if err != nil {
		t.Fatalf("NewWorld failed: %v", err)
	}

	em := NewEventManager()
	defer em.Close()
	stub := &stubNotifier{id: "s1"}
	if err := em.RegisterNotifier(stub); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	w.SetEventManager(em, "s1")

	w.food[0].Amount = 0
	w.Step()

	if w.food[0].IsDepleted() {
		t.Error("Expected the depleted source to be replaced")
	}
	if w.food[0].Amount != cfg.FoodAmount {
		t.Errorf("Expected a fresh source with %d units, got %d", cfg.FoodAmount, w.food[0].Amount)
	}
	if got := w.Stats().FoodRespawns; got != 1 {
		t.Errorf("Expected one respawn counted, got %d", got)
	}

	var respawn *Event
	for _, ev := range waitForEvents(t, stub, 1) {
		if ev.Type == EventFoodRespawned {
			respawn = &ev
			break
		}
	}
	if respawn == nil {
		t.Fatal("Expected a respawn event to be delivered")
	}
	if respawn.Timestamp == 0 {
		t.Error("Expected the respawn event to carry a timestamp")
	}
	if respawn.FoodIndex != 0 {
		t.Errorf("Expected food index 0, got %d", respawn.FoodIndex)
	}

	// Capacity does not grow with respawns.
	if w.nest.MaxCapacity != cfg.NumFood*cfg.FoodAmount {
		t.Errorf("Nest capacity changed to %d", w.nest.MaxCapacity)
	}
}

func TestWorld_NoReplenishLeavesDepleted(t *testing.T) {
	cfg := testWorldConfig(7)
	cfg.ReplenishFood = false
	w, err := NewWorld(cfg)
	if err != nil {
		t.Fatalf("NewWorld failed: %v", err)
	}

	w.food[0].Amount = 0
	w.Step()

	if !w.food[0].IsDepleted() {
		t.Error("Expected the depleted source to stay depleted")
	}
}

func TestWorld_ObstacleAndEntityMutation(t *testing.T) {
	w, err := NewWorld(testWorldConfig(8))
	if err != nil {
		t.Fatalf("NewWorld failed: %v", err)
	}

	before := w.obstacles[0].Center
	if err := w.TranslateObstacle(0, Vec2{10, -5}); err != nil {
		t.Fatalf("TranslateObstacle failed: %v", err)
	}
	if got := w.obstacles[0].Center; got != before.Add(Vec2{10, -5}) {
		t.Errorf("Expected translated center, got %v", got)
	}
	if err := w.TranslateObstacle(99, Vec2{1, 1}); err == nil {
		t.Error("Expected an error for an out-of-range obstacle index")
	}

	if err := w.RegenerateObstacle(0, Vec2{200, 200}, 40); err != nil {
		t.Fatalf("RegenerateObstacle failed: %v", err)
	}
	if w.obstacles[0].Center != (Vec2{200, 200}) || w.obstacles[0].Radius != 40 {
		t.Errorf("Expected regenerated obstacle at (200,200) r=40, got %v r=%g",
			w.obstacles[0].Center, w.obstacles[0].Radius)
	}
	if err := w.RegenerateObstacle(0, Vec2{200, 200}, -1); err == nil {
		t.Error("Expected an error for a non-positive radius")
	}

	if err := w.MoveFood(0, Vec2{111, 222}); err != nil {
		t.Fatalf("MoveFood failed: %v", err)
	}
	if w.food[0].Pos != (Vec2{111, 222}) {
		t.Errorf("Expected moved food, got %v", w.food[0].Pos)
	}
	if err := w.MoveFood(99, Vec2{}); err == nil {
		t.Error("Expected an error for an out-of-range food index")
	}

	w.MoveNest(Vec2{321, 123})
	if w.nest.Pos != (Vec2{321, 123}) {
		t.Errorf("Expected moved nest, got %v", w.nest.Pos)
	}
}

// TestWorld_ForagingConverges runs a seeded open-arena scenario long enough
// for trails to form and checks the emergent signal: delivered paths in the
// final tenth of the run are shorter, on average, than in the first tenth.
// The run is fully deterministic for a fixed seed, so the comparison is
// exact.
func TestWorld_ForagingConverges(t *testing.T) {
	if testing.Short() {
		t.Skip("long scenario run")
	}

	cfg := DefaultConfig()
	cfg.Seed = 20240817
	cfg.NumAnts = 60
	cfg.NumObstacles = 0
	cfg.NumFood = 1
	cfg.FoodAmount = 50000
	cfg.ReplenishFood = false

	w, err := NewWorld(cfg)
	if err != nil {
		t.Fatalf("NewWorld failed: %v", err)
	}

	const ticks = 5000
	w.StepN(ticks)

	st := w.Stats()
	if st.Deliveries == 0 {
		t.Fatal("Expected at least one delivery in 5000 ticks")
	}
	if w.Nest().FoodStored == 0 {
		t.Error("Expected food stored in the nest")
	}

	var earlyCount, lateCount int
	var earlyPath, latePath float64
	for _, r := range w.Deliveries() {
		switch {
		case r.Tick < ticks/10:
			earlyCount++
			earlyPath += r.PathLen
		case r.Tick >= ticks*9/10:
			lateCount++
			latePath += r.PathLen
		}
	}
	if earlyCount == 0 || lateCount == 0 {
		t.Fatalf("Empty comparison window: early=%d late=%d deliveries", earlyCount, lateCount)
	}

	earlyMean := earlyPath / float64(earlyCount)
	lateMean := latePath / float64(lateCount)
	if lateMean >= earlyMean {
		t.Errorf("Routes did not shorten: early mean %g, late mean %g", earlyMean, lateMean)
	}
}
