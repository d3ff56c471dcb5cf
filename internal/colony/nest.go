package colony

// Nest is the capacity-bounded accumulator ants deliver food to.
// MaxCapacity is fixed at layout time to the total stock of the initial
// food sources. Once full, it stays full until the layout is reset.
type Nest struct {
	Pos         Vec2    `json:"pos"`
	Radius      float64 `json:"radius"`
	FoodStored  int     `json:"food_stored"`
	MaxCapacity int     `json:"max_capacity"`
	Full        bool    `json:"full"`

	// Efficiency is an exponential moving average of per-delivery
	// efficiency scores, clamped to [0,2].
	Efficiency float64 `json:"efficiency"`
}

// NewNest creates an empty nest with the given capacity.
func NewNest(pos Vec2, radius float64, maxCapacity int) *Nest {
	return &Nest{
		Pos:         pos,
		Radius:      radius,
		MaxCapacity: maxCapacity,
		Efficiency:  1.0,
	}
}

// Store adds up to units food to the nest, clamping at MaxCapacity and
// marking the nest full when the cap is reached. Returns the number of
// units actually credited; a full nest accepts zero.
func (n *Nest) Store(units int) int {
	if n.Full || units <= 0 {
		return 0
	}
	accepted := units
	if n.FoodStored+accepted >= n.MaxCapacity {
		accepted = n.MaxCapacity - n.FoodStored
		n.FoodStored = n.MaxCapacity
		n.Full = true
		return accepted
	}
	n.FoodStored += accepted
	return accepted
}

// RecordDelivery folds one delivery's efficiency score into the moving
// average: 0.95 decay, 0.05 new sample, clamped to [0,2].
func (n *Nest) RecordDelivery(efficiency float64) {
	n.Efficiency = clamp(n.Efficiency*0.95+efficiency*0.05, 0, 2)
}

// FillFraction reports how full the nest is, in [0,1].
func (n *Nest) FillFraction() float64 {
	if n.MaxCapacity <= 0 {
		return 0
	}
	return float64(n.FoodStored) / float64(n.MaxCapacity)
}
