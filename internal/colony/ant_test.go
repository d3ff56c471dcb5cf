package colony

import (
	"math"
	"math/rand"
	"testing"
)

// newTestEnv builds a minimal environment for single-ant tests: an open
// 800x600 arena with a nest in the middle and default parameters.
func newTestEnv(seed int64) (*Env, *[]Event) {
	events := &[]Event{}
	env := &Env{
		Field:  NewPheromoneField(800, 600, 10),
		Nest:   NewNest(Vec2{400, 300}, 25, 100),
		Width:  800,
		Height: 600,
		Rand:   rand.New(rand.NewSource(seed)),
		Params: DefaultConfig().Ant,
		Tick:   1,
		Emit:   func(ev Event) { *events = append(*events, ev) },
	}
	return env, events
}

func eventsOfType(events []Event, t EventType) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func TestAnt_Update_ZeroValueAntIsTotal(t *testing.T) {
	env, _ := newTestEnv(1)
	a := &Ant{ID: "a1", Pos: Vec2{400, 300}}

	for i := 0; i < 10; i++ {
		env.Tick++
		a.Update(env)
		if math.IsNaN(a.Pos.X) || math.IsNaN(a.Pos.Y) {
			t.Fatal("Position became NaN")
		}
		if math.IsNaN(a.Vel.X) || math.IsNaN(a.Vel.Y) {
			t.Fatal("Velocity became NaN")
		}
	}
	if a.Vel.IsZero() {
		t.Error("Expected the ant to start moving from rest")
	}
}

func TestAnt_Update_StaysInsideArena(t *testing.T) {
	env, _ := newTestEnv(2)
	rng := rand.New(rand.NewSource(2))
	a := NewAnt(rng, Vec2{10, 10}, env.Params)

	for i := 0; i < 2000; i++ {
		env.Tick++
		a.Update(env)
		if a.Pos.X < 0 || a.Pos.X > env.Width || a.Pos.Y < 0 || a.Pos.Y > env.Height {
			t.Fatalf("Ant escaped the arena at tick %d: %v", i, a.Pos)
		}
	}
}

func TestAnt_Update_TurnRateClamped(t *testing.T) {
	env, _ := newTestEnv(3)
	rng := rand.New(rand.NewSource(3))

	// Returning ant headed directly away from the nest: the desired
	// direction is a full reversal, which the clamp must spread over ticks.
	a := NewAnt(rng, Vec2{600, 300}, env.Params)
	a.State = StateReturning
	a.Vel = Vec2{2, 0}
	a.momentum = Vec2{1, 0}

	for i := 0; i < 20; i++ {
		before := a.Vel.Angle()
		env.Tick++
		a.Update(env)
		if a.Vel.IsZero() {
			continue
		}
		turned := math.Abs(angleDiff(before, a.Vel.Angle()))
		if turned > env.Params.MaxTurnRate+1e-9 {
			t.Fatalf("Tick %d turned %g, exceeds max turn rate %g", i, turned, env.Params.MaxTurnRate)
		}
	}
}

func TestAnt_Update_SpeedBounded(t *testing.T) {
	env, _ := newTestEnv(4)
	rng := rand.New(rand.NewSource(4))
	a := NewAnt(rng, Vec2{400, 300}, env.Params)

	for i := 0; i < 500; i++ {
		env.Tick++
		a.Update(env)
		// Wall reflections add jitter, so allow headroom beyond MaxSpeed but
		// catch runaway velocities.
		if a.Vel.Len() > 2*env.Params.MaxSpeed {
			t.Fatalf("Velocity ran away at tick %d: %g", i, a.Vel.Len())
		}
	}
}

func TestAnt_Update_DeadAntDoesNothing(t *testing.T) {
	env, events := newTestEnv(5)
	a := &Ant{ID: "a1", Pos: Vec2{100, 100}, State: StateDead}

	a.Update(env)
	if a.Pos.X != 100 || a.Pos.Y != 100 {
		t.Errorf("Dead ant moved to %v", a.Pos)
	}
	if len(*events) != 0 {
		t.Errorf("Dead ant emitted %d events", len(*events))
	}
}

func TestAnt_Update_MortalDiesWhenEnergyRunsOut(t *testing.T) {
	env, events := newTestEnv(6)
	env.Params.Mortal = true
	env.Params.EnergyDrain = 1.0

	rng := rand.New(rand.NewSource(6))
	a := NewAnt(rng, Vec2{400, 300}, env.Params)
	a.Energy = 0.5

	env.Tick++
	a.Update(env)
	if a.State != StateDead {
		t.Fatalf("Expected dead ant, got state %v", a.State)
	}
	if !a.Vel.IsZero() {
		t.Error("Expected zero velocity after death")
	}
	if got := eventsOfType(*events, EventAntDied); len(got) != 1 {
		t.Errorf("Expected one ant_died event, got %d", len(got))
	}
}

func TestAnt_Update_MortalDiesAtLifespan(t *testing.T) {
	env, _ := newTestEnv(7)
	env.Params.Mortal = true
	env.Params.Lifespan = 10

	rng := rand.New(rand.NewSource(7))
	a := NewAnt(rng, Vec2{400, 300}, env.Params)

	for i := 0; i < 20 && a.State != StateDead; i++ {
		env.Tick++
		a.Update(env)
	}
	if a.State != StateDead {
		t.Error("Expected the ant to die of old age")
	}
	if a.Age != env.Params.Lifespan+1 {
		t.Errorf("Expected death at age %d, got %d", env.Params.Lifespan+1, a.Age)
	}
}

func TestAnt_Update_PickupFlipsStateSameTick(t *testing.T) {
	env, events := newTestEnv(8)
	env.Food = []*FoodSource{NewFoodSource(Vec2{200, 200}, 20, 1)}

	rng := rand.New(rand.NewSource(8))
	a := NewAnt(rng, Vec2{200, 200}, env.Params)

	env.Tick++
	a.Update(env)

	if a.State != StateReturning {
		t.Fatalf("Expected returning state after pickup, got %v", a.State)
	}
	if !env.Food[0].IsDepleted() {
		t.Error("Expected the single unit to be taken")
	}
	if got := eventsOfType(*events, EventPickup); len(got) != 1 {
		t.Errorf("Expected one pickup event, got %d", len(got))
	}
	// Taking the last unit also reports depletion, in the same tick.
	if got := eventsOfType(*events, EventFoodDepleted); len(got) != 1 {
		t.Errorf("Expected one food_depleted event, got %d", len(got))
	}
}

func TestAnt_Update_SecondAntCannotTakeDepletedUnit(t *testing.T) {
	env, _ := newTestEnv(9)
	env.Food = []*FoodSource{NewFoodSource(Vec2{200, 200}, 20, 1)}

	rng := rand.New(rand.NewSource(9))
	first := NewAnt(rng, Vec2{200, 200}, env.Params)
	second := NewAnt(rng, Vec2{201, 200}, env.Params)

	env.Tick++
	first.Update(env)
	second.Update(env)

	if first.State != StateReturning {
		t.Fatalf("Expected first ant to pick up, got %v", first.State)
	}
	if second.State != StateExploring {
		t.Errorf("Expected second ant to stay exploring, got %v", second.State)
	}
}

func TestAnt_Update_DeliveryCreditsNest(t *testing.T) {
	env, events := newTestEnv(10)
	rng := rand.New(rand.NewSource(10))

	a := NewAnt(rng, env.Nest.Pos, env.Params)
	a.State = StateReturning
	a.tripStart = 1
	env.Tick = 5

	a.Update(env)

	if a.State != StateExploring {
		t.Fatalf("Expected exploring after delivery, got %v", a.State)
	}
	if env.Nest.FoodStored == 0 {
		t.Error("Expected the nest to be credited")
	}
	deliveries := eventsOfType(*events, EventDelivery)
	if len(deliveries) != 1 {
		t.Fatalf("Expected one delivery event, got %d", len(deliveries))
	}
	ev := deliveries[0]
	if ev.Units <= 0 {
		t.Errorf("Expected positive delivered units, got %d", ev.Units)
	}
	if ev.Efficiency < 0.5 || ev.Efficiency > 1.5 {
		t.Errorf("Efficiency %g outside [0.5,1.5]", ev.Efficiency)
	}
	if ev.TripTicks <= 0 {
		t.Errorf("Expected positive trip duration, got %d", ev.TripTicks)
	}
}

func TestAnt_Update_FullNestRejectsDelivery(t *testing.T) {
	env, events := newTestEnv(11)
	env.Nest.Store(env.Nest.MaxCapacity)
	if !env.Nest.Full {
		t.Fatal("Setup: nest should be full")
	}

	rng := rand.New(rand.NewSource(11))
	a := NewAnt(rng, env.Nest.Pos, env.Params)
	a.State = StateReturning
	a.path = append(a.path, a.Pos)

	env.Tick++
	a.Update(env)

	if a.State != StateExploring {
		t.Fatalf("Expected exploring after rejection, got %v", a.State)
	}
	if len(a.path) != 0 {
		t.Error("Expected the path to be discarded on rejection")
	}
	if env.Nest.FoodStored != env.Nest.MaxCapacity {
		t.Errorf("Expected stored to stay at capacity, got %d", env.Nest.FoodStored)
	}
	if got := eventsOfType(*events, EventDeliveryRejected); len(got) != 1 {
		t.Errorf("Expected one delivery_rejected event, got %d", len(got))
	}
	if got := eventsOfType(*events, EventDelivery); len(got) != 0 {
		t.Errorf("Expected no delivery event, got %d", len(got))
	}
}

func TestAnt_Update_ExploringDepositsHomeTrail(t *testing.T) {
	env, _ := newTestEnv(12)
	rng := rand.New(rand.NewSource(12))
	a := NewAnt(rng, Vec2{400, 300}, env.Params)

	env.Tick++
	a.Update(env)

	if got := env.Field.Sample(Vec2{400, 300}, ChannelHome); got <= 0 {
		t.Error("Expected a home deposit at the ant's position")
	}
	if got := env.Field.Sample(Vec2{400, 300}, ChannelFood); got != 0 {
		t.Errorf("Expected no food deposit while exploring, got %g", got)
	}
}

func TestAnt_Update_ReturningDepositsFoodTrail(t *testing.T) {
	env, _ := newTestEnv(13)
	rng := rand.New(rand.NewSource(13))
	a := NewAnt(rng, Vec2{700, 500}, env.Params)
	a.State = StateReturning
	a.tripStart = 1
	env.Tick = 2

	a.Update(env)

	if got := env.Field.Sample(Vec2{700, 500}, ChannelFood); got <= 0 {
		t.Error("Expected a food deposit at the ant's position")
	}
}

func TestAnt_Sense_ThresholdGate(t *testing.T) {
	env, _ := newTestEnv(14)
	rng := rand.New(rand.NewSource(14))
	a := NewAnt(rng, Vec2{400, 300}, env.Params)

	// Empty field: nothing to sense.
	if _, _, ok := a.sense(env, ChannelFood); ok {
		t.Error("Expected no reading on an empty field")
	}

	// A strong trail directly ahead clears the threshold.
	a.Vel = Vec2{2, 0}
	a.momentum = Vec2{1, 0}
	target := a.Pos.Add(Vec2{env.Params.SensorRange, 0})
	env.Field.Deposit(target, ChannelFood, 800, 2)

	dir, strength, ok := a.sense(env, ChannelFood)
	if !ok {
		t.Fatal("Expected a reading near a strong trail")
	}
	if strength < env.Params.SensorThreshold {
		t.Errorf("Reading %g below threshold %g was accepted", strength, env.Params.SensorThreshold)
	}
	// The steering direction points into the forward half-plane.
	if dir.Dot(Vec2{1, 0}) <= 0 {
		t.Errorf("Expected a forward-pointing direction, got %v", dir)
	}
}

func TestAnt_AvoidObstacles_Averaged(t *testing.T) {
	env, _ := newTestEnv(15)
	rng := rand.New(rand.NewSource(15))

	// Two obstacles straight ahead at the same spot: the averaged force
	// must not double compared to a single obstacle.
	single := NewObstacle(rng, Vec2{450, 300}, 30, 12, 0)
	a := NewAnt(rng, Vec2{400, 300}, env.Params)

	env.Obstacles = []*Obstacle{single}
	one := a.avoidObstacles(env)

	env.Obstacles = []*Obstacle{single, single}
	two := a.avoidObstacles(env)

	if math.Abs(one.Len()-two.Len()) > 1e-9 {
		t.Errorf("Averaged repulsion changed with duplicate obstacles: %g vs %g", one.Len(), two.Len())
	}
	if one.X >= 0 {
		t.Errorf("Expected push away from the obstacle (-X), got %v", one)
	}
}

func TestAnt_RecordPathPoint(t *testing.T) {
	p := DefaultConfig().Ant
	a := &Ant{Pos: Vec2{100, 100}}

	a.recordPathPoint(p)
	if len(a.path) != 1 {
		t.Fatalf("Expected first point recorded, got %d", len(a.path))
	}

	// Small moves are not recorded.
	a.Pos = Vec2{101, 100}
	a.recordPathPoint(p)
	if len(a.path) != 1 {
		t.Errorf("Expected sub-step move to be skipped, got %d points", len(a.path))
	}

	// The buffer is bounded: old points fall off the front.
	for i := 0; i < 3*p.PathMaxLen; i++ {
		a.Pos = a.Pos.Add(Vec2{p.PathMinStep + 1, 0})
		a.recordPathPoint(p)
	}
	if len(a.path) > p.PathMaxLen {
		t.Errorf("Path buffer grew past %d: %d", p.PathMaxLen, len(a.path))
	}
	if a.pathLen <= 0 {
		t.Error("Expected accumulated path length")
	}
}

func TestAntState_String(t *testing.T) {
	cases := map[AntState]string{
		StateExploring: "exploring",
		StateReturning: "returning",
		StateDead:      "dead",
		AntState(99):   "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	}
}
