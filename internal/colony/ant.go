package colony

import (
	"math"
	"math/rand"
	"time"
)

// AntState is the explicit behaviour state of an ant. The carrying flag of
// the original boolean design is folded into the state so that invalid
// combinations (dead-and-returning) cannot arise.
type AntState int

const (
	// StateExploring: not carrying food, searching for a source.
	StateExploring AntState = iota
	// StateReturning: carrying one unit of food back to the nest.
	StateReturning
	// StateDead: terminal; the ant no longer updates and is pruned by the
	// owning world. Only reachable in the mortal variant.
	StateDead
)

func (s AntState) String() string {
	switch s {
	case StateExploring:
		return "exploring"
	case StateReturning:
		return "returning"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// Env is the per-tick handle an ant updates against: the shared field and
// entity collections plus the world's random source and tunables. The world
// builds one Env per tick and passes it to every ant in sequence, which
// keeps the read-after-write coupling between ants within a tick explicit.
type Env struct {
	Field     *PheromoneField
	Obstacles []*Obstacle
	Food      []*FoodSource
	Nest      *Nest
	Width     float64
	Height    float64
	Rand      *rand.Rand
	Params    AntParams
	Tick      int64

	// Emit reports a domain event. May be nil.
	Emit func(Event)
}

func (env *Env) emit(ev Event) {
	if env.Emit != nil {
		ev.Tick = env.Tick
		ev.Timestamp = time.Now().Unix()
		env.Emit(ev)
	}
}

// Ant is a single foraging agent.
type Ant struct {
	ID    string
	Pos   Vec2
	Vel   Vec2
	State AntState

	// Lifecycle (mortal variant only).
	Age    int64
	Energy float64

	momentum  Vec2
	speed     float64
	path      []Vec2
	pathLen   float64
	tripStart int64
}

// NewAnt creates an exploring ant at pos with a random initial heading.
func NewAnt(rng *rand.Rand, pos Vec2, p AntParams) *Ant {
	a := &Ant{
		ID:     NewRandomID(),
		Pos:    pos,
		State:  StateExploring,
		Energy: p.InitialEnergy,
	}
	a.momentum = RandomUnit(rng)
	a.Vel = a.momentum.Scale(p.MaxSpeed * 0.5)
	a.speed = p.MaxSpeed * 0.5
	return a
}

// Path returns the ant's recorded trail points. The slice is the ant's own
// buffer; callers must not retain it across updates.
func (a *Ant) Path() []Vec2 {
	return a.path
}

// heading returns the ant's current facing for sensor purposes: velocity
// if moving, momentum otherwise, random as a last resort.
func (a *Ant) heading(rng *rand.Rand) Vec2 {
	if !a.Vel.IsZero() {
		return a.Vel.Norm()
	}
	if !a.momentum.IsZero() {
		return a.momentum.Norm()
	}
	return RandomUnit(rng)
}

// Update advances the ant by one tick against the given environment.
// Every branch produces a usable direction; the steering math has no
// error paths.
func (a *Ant) Update(env *Env) {
	if a.State == StateDead {
		return
	}
	p := env.Params

	if p.Mortal {
		a.Age++
		a.Energy -= p.EnergyDrain
		if a.Age > p.Lifespan || a.Energy <= 0 {
			a.State = StateDead
			a.Vel = Vec2{}
			env.emit(Event{Type: EventAntDied, AntID: a.ID})
			return
		}
	}

	// 1. State-dependent steering, including trail deposits.
	var desired Vec2
	if a.State == StateReturning {
		desired = a.steerReturning(env)
	} else {
		desired = a.steerExploring(env)
	}

	// 2. Obstacle avoidance: inverse-distance repulsion from every obstacle
	// within range, averaged so dense fields do not produce runaway forces.
	avoid := a.avoidObstacles(env)
	dir := desired.Add(avoid)

	// 3. Totality: a degenerate combined direction becomes a random one.
	dir = dir.Norm()
	if dir.IsZero() {
		dir = RandomUnit(env.Rand)
	}

	// 4. Momentum blend, weighted less while returning to reduce circling
	// near the nest.
	a.momentum = a.momentum.Scale(0.7).Add(dir.Scale(0.3)).Norm()
	if a.momentum.IsZero() {
		a.momentum = dir
	}
	w := p.MomentumWeightExploring
	if a.State == StateReturning {
		w = p.MomentumWeightReturning
	}
	dir = dir.Scale(1 - w).Add(a.momentum.Scale(w)).Norm()
	if dir.IsZero() {
		dir = RandomUnit(env.Rand)
	}

	// 5. Turn-rate limit relative to the current velocity.
	if !a.Vel.IsZero() {
		cur := a.Vel.Angle()
		d := angleDiff(cur, dir.Angle())
		if d > p.MaxTurnRate {
			d = p.MaxTurnRate
		} else if d < -p.MaxTurnRate {
			d = -p.MaxTurnRate
		}
		dir = FromAngle(cur + d)
	}

	// 6. Speed toward the state-dependent target.
	target := p.MaxSpeed
	if a.State == StateReturning {
		target = p.ReturnSpeed
	}
	maxSpeed := p.MaxSpeed
	if p.Mortal && p.InitialEnergy > 0 {
		// Tired ants slow down.
		frac := clamp(a.Energy/p.InitialEnergy, 0, 1)
		maxSpeed *= 0.5 + 0.5*frac
		if target > maxSpeed {
			target = maxSpeed
		}
	}
	step := clamp(target-a.speed, -p.Acceleration, p.Acceleration)
	a.speed = clamp(a.speed+step, 0, maxSpeed)
	a.Vel = dir.Scale(a.speed)

	// 7. Integrate, with a hard bounce off any obstacle the prospective
	// position would land inside of.
	next := a.Pos.Add(a.Vel)
	for _, o := range env.Obstacles {
		away, dist := o.Repulse(next, env.Rand)
		if dist < p.CollisionDistance {
			a.Vel = away.Scale(p.BounceSpeed)
			next = a.Pos.Add(a.Vel)
		}
	}

	// 8. Boundary clamp with damped reflection and perpendicular jitter so
	// ants do not slide along walls.
	next = a.bounceOffWalls(env, next)
	a.Pos = next

	// 9. Sparse path bookkeeping.
	a.recordPathPoint(p)

	// 10. Pickup / delivery transactions against shared state.
	if a.State == StateExploring {
		a.tryPickup(env)
	} else if a.State == StateReturning {
		a.tryDeliver(env)
	}
}

// steerReturning computes the steering direction while carrying food and
// deposits onto the food channel, rewarded by trip speed and effort.
func (a *Ant) steerReturning(env *Env) Vec2 {
	p := env.Params
	toNest := env.Nest.Pos.Sub(a.Pos)
	dist := toNest.Len()
	direct := toNest.Norm()
	if direct.IsZero() {
		direct = RandomUnit(env.Rand)
	}

	// Reward signal: faster trips deposit stronger food trails, with a mild
	// bonus for accumulated effort.
	duration := float64(env.Tick - a.tripStart)
	timeFactor := clamp(2-duration/600, 0.5, 2)
	lengthBonus := math.Min(a.pathLen*0.001, 0.5)
	env.Field.Deposit(a.Pos, ChannelFood, p.DepositAmount, timeFactor+lengthBonus)

	if dist < p.NestHomingRadius {
		// Near field: increasingly direct homing, never perfectly straight.
		t := dist / p.NestHomingRadius
		return direct.Scale(1 - 0.4*t).Add(RandomUnit(env.Rand).Scale(0.4 * t)).Norm()
	}

	if dir, _, ok := a.sense(env, ChannelHome); ok {
		return direct.Scale(0.5).Add(dir.Scale(0.5)).Norm()
	}
	return direct.Scale(0.8).Add(RandomUnit(env.Rand).Scale(0.2)).Norm()
}

// steerExploring computes the steering direction while searching and
// deposits onto the home channel so the ant (and others) can find the way
// back.
func (a *Ant) steerExploring(env *Env) Vec2 {
	p := env.Params

	lengthBonus := math.Min(a.pathLen*0.0005, 0.5)
	env.Field.Deposit(a.Pos, ChannelHome, p.DepositAmount, 1+lengthBonus)

	// Visible food wins over trail following.
	if fs, dist := nearestFood(env.Food, a.Pos, p.VisualRange); fs != nil {
		direct := fs.Pos.Sub(a.Pos).Norm()
		if direct.IsZero() {
			return RandomUnit(env.Rand)
		}
		if dist < 2*fs.Radius {
			// Close in: go straight at it.
			return direct
		}
		t := dist / p.VisualRange
		return direct.Scale(1 - 0.5*t).Add(RandomUnit(env.Rand).Scale(0.5 * t)).Norm()
	}

	if dir, strength, ok := a.sense(env, ChannelFood); ok {
		attraction := clamp(strength/100, 0.2, 1)
		d := dir.Scale(0.5 + 0.5*attraction).Add(RandomUnit(env.Rand).Scale(0.3)).Norm()
		if !d.IsZero() {
			return d
		}
	}

	// Random walk blended with momentum.
	return a.momentum.Scale(0.7).Add(RandomUnit(env.Rand).Scale(0.3)).Norm()
}

// sense samples the target channel across a forward cone at fixed range,
// each sample perturbed by positional noise and weighted by distance
// falloff. It returns the direction of the strongest sample (with a small
// angular jitter) and its strength, or ok=false when nothing clears the
// detection threshold. Readings below the threshold are treated as noise.
func (a *Ant) sense(env *Env, ch Channel) (Vec2, float64, bool) {
	p := env.Params
	heading := a.heading(env.Rand).Angle()

	var best Vec2
	bestStrength := -1.0

	for i := 0; i < p.SensorSamples; i++ {
		var offset float64
		if p.SensorSamples == 1 {
			offset = 0
		} else {
			offset = -p.SensorHalfAngle + 2*p.SensorHalfAngle*float64(i)/float64(p.SensorSamples-1)
		}
		sample := a.Pos.Add(FromAngle(heading + offset).Scale(p.SensorRange))
		sample.X += (env.Rand.Float64()*2 - 1) * p.SensorNoise
		sample.Y += (env.Rand.Float64()*2 - 1) * p.SensorNoise

		strength := env.Field.Sample(sample, ch)
		if ch == ChannelFood {
			// Reinforced routes read slightly hotter than their raw trail
			// strength.
			strength *= 1 + env.Field.SampleSuccess(sample)/200
		}

		dist := sample.Sub(a.Pos).Len()
		falloff := clamp(1-dist/(1.5*p.SensorRange), 0, 1)
		strength *= falloff

		if strength > bestStrength {
			bestStrength = strength
			best = sample
		}
	}

	if bestStrength < p.SensorThreshold {
		return Vec2{}, 0, false
	}

	dir := best.Sub(a.Pos).Norm()
	if dir.IsZero() {
		return Vec2{}, 0, false
	}
	jitter := (env.Rand.Float64()*2 - 1) * p.SensorAngleNoise
	return dir.Rotate(jitter), bestStrength, true
}

// avoidObstacles returns the average inverse-distance repulsion from every
// obstacle within the avoidance radius, with a distance floor so forces
// stay finite right at the boundary.
func (a *Ant) avoidObstacles(env *Env) Vec2 {
	p := env.Params
	var sum Vec2
	count := 0
	for _, o := range env.Obstacles {
		away, dist := o.Repulse(a.Pos, env.Rand)
		if dist > p.AvoidRadius {
			continue
		}
		if dist < 1 {
			dist = 1
		}
		sum = sum.Add(away.Scale(p.AvoidRadius / dist * 0.1))
		count++
	}
	if count == 0 {
		return Vec2{}
	}
	return sum.Scale(1 / float64(count))
}

// bounceOffWalls clamps next inside the arena margin, reflecting the
// corresponding velocity component with damping and jittering the
// perpendicular one.
func (a *Ant) bounceOffWalls(env *Env, next Vec2) Vec2 {
	p := env.Params
	m := p.BoundaryMargin

	if next.X < m {
		next.X = m
		a.Vel.X = -a.Vel.X * p.Restitution
		a.Vel.Y += (env.Rand.Float64() - 0.5) * p.MaxSpeed * 0.5
	} else if next.X > env.Width-m {
		next.X = env.Width - m
		a.Vel.X = -a.Vel.X * p.Restitution
		a.Vel.Y += (env.Rand.Float64() - 0.5) * p.MaxSpeed * 0.5
	}
	if next.Y < m {
		next.Y = m
		a.Vel.Y = -a.Vel.Y * p.Restitution
		a.Vel.X += (env.Rand.Float64() - 0.5) * p.MaxSpeed * 0.5
	} else if next.Y > env.Height-m {
		next.Y = env.Height - m
		a.Vel.Y = -a.Vel.Y * p.Restitution
		a.Vel.X += (env.Rand.Float64() - 0.5) * p.MaxSpeed * 0.5
	}
	return next
}

// recordPathPoint appends the current position to the trail buffer when it
// has moved far enough from the last recorded point. The buffer is a sparse
// simplification of the trajectory, bounded in length.
func (a *Ant) recordPathPoint(p AntParams) {
	if len(a.path) > 0 {
		step := a.Pos.Sub(a.path[len(a.path)-1]).Len()
		if step < p.PathMinStep {
			return
		}
		a.pathLen += step
	}
	a.path = append(a.path, a.Pos)
	if len(a.path) > p.PathMaxLen {
		a.path = a.path[1:]
	}
}

func (a *Ant) resetPath() {
	a.path = a.path[:0]
	a.pathLen = 0
}

// tryPickup attempts to take one unit from the nearest food source in
// visual range. On success the ant flips to Returning, aims its momentum
// home, and rewards the route that led here.
func (a *Ant) tryPickup(env *Env) {
	p := env.Params
	fs, idx := nearestFoodIndexed(env.Food, a.Pos, p.VisualRange)
	if fs == nil {
		return
	}
	if !fs.Take(a.Pos) {
		return
	}

	a.State = StateReturning
	a.tripStart = env.Tick
	if toNest := env.Nest.Pos.Sub(a.Pos).Norm(); !toNest.IsZero() {
		a.momentum = toNest
	}
	if p.Mortal {
		a.Energy += p.EnergyPerFood
	}
	if len(a.path) >= 3 {
		env.Field.ReinforcePath(a.path, 5)
	}
	a.resetPath()

	env.emit(Event{Type: EventPickup, AntID: a.ID, FoodIndex: idx})
	if fs.IsDepleted() {
		env.emit(Event{Type: EventFoodDepleted, AntID: a.ID, FoodIndex: idx})
	}
}

// deliverySlack is the extra reach beyond the nest radius within which a
// returning ant counts as arrived.
const deliverySlack = 5.0

// tryDeliver completes the return trip when the ant reaches the nest.
// A full nest rejects the delivery and the food is wasted; otherwise the
// delivery is scored, credited and the route reinforced in proportion to
// its efficiency. Either way the ant reverts to exploring.
func (a *Ant) tryDeliver(env *Env) {
	if a.Pos.Sub(env.Nest.Pos).Len() >= env.Nest.Radius+deliverySlack {
		return
	}

	if env.Nest.Full {
		env.emit(Event{Type: EventDeliveryRejected, AntID: a.ID, NestStored: env.Nest.FoodStored})
		a.State = StateExploring
		a.resetPath()
		a.tripStart = env.Tick
		return
	}

	duration := float64(env.Tick - a.tripStart)
	if duration < 1 {
		duration = 1
	}
	pathLen := a.pathLen
	if pathLen < 1 {
		pathLen = 1
	}

	// Shorter paths and faster trips score higher; both floors keep the
	// efficiency from ever zeroing out.
	referenceLen := env.Nest.Radius + env.Params.VisualRange
	lengthScore := math.Max(0.5, math.Min(1.5, referenceLen/pathLen))
	durationScore := math.Max(0.5, math.Min(1.5, 300/duration))
	efficiency := (lengthScore + durationScore) / 2

	env.Nest.RecordDelivery(efficiency)
	gained := int(1 + efficiency)
	accepted := env.Nest.Store(gained)
	env.Field.ReinforcePath(a.path, 2*efficiency)

	env.emit(Event{
		Type:       EventDelivery,
		AntID:      a.ID,
		Units:      accepted,
		Efficiency: efficiency,
		NestStored: env.Nest.FoodStored,
		PathLen:    pathLen,
		TripTicks:  int64(duration),
	})
	if env.Nest.Full {
		env.emit(Event{Type: EventNestFull, NestStored: env.Nest.FoodStored})
	}

	a.State = StateExploring
	a.resetPath()
	a.momentum = RandomUnit(env.Rand)
	a.tripStart = env.Tick
}

// nearestFood returns the closest non-depleted source within maxDist.
func nearestFood(food []*FoodSource, pos Vec2, maxDist float64) (*FoodSource, float64) {
	var best *FoodSource
	bestDist := maxDist
	for _, fs := range food {
		if fs.IsDepleted() {
			continue
		}
		d := fs.Pos.Sub(pos).Len()
		if d < bestDist {
			bestDist = d
			best = fs
		}
	}
	return best, bestDist
}

func nearestFoodIndexed(food []*FoodSource, pos Vec2, maxDist float64) (*FoodSource, int) {
	var best *FoodSource
	bestIdx := -1
	bestDist := maxDist
	for i, fs := range food {
		if fs.IsDepleted() {
			continue
		}
		d := fs.Pos.Sub(pos).Len()
		if d < bestDist {
			bestDist = d
			best = fs
			bestIdx = i
		}
	}
	return best, bestIdx
}
