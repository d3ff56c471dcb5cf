package colony

// FoodSource is a depletable circular resource. Units are taken one at a
// time, which naturally rate-limits extraction to one unit per ant per tick
// of overlap.
type FoodSource struct {
	Pos            Vec2    `json:"pos"`
	Radius         float64 `json:"radius"`
	Amount         int     `json:"amount"`
	OriginalAmount int     `json:"original_amount"`
}

// NewFoodSource creates a source holding amount units.
func NewFoodSource(pos Vec2, radius float64, amount int) *FoodSource {
	return &FoodSource{
		Pos:            pos,
		Radius:         radius,
		Amount:         amount,
		OriginalAmount: amount,
	}
}

// Take removes exactly one unit if the source still has any and pos lies
// within the source radius. Returns whether a unit was taken. There are no
// partial takes and the amount never goes negative.
func (fs *FoodSource) Take(pos Vec2) bool {
	if fs.Amount <= 0 {
		return false
	}
	if pos.Sub(fs.Pos).Len() >= fs.Radius {
		return false
	}
	fs.Amount--
	return true
}

func (fs *FoodSource) IsDepleted() bool {
	return fs.Amount <= 0
}

// FractionRemaining reports how much of the original stock is left, in [0,1].
func (fs *FoodSource) FractionRemaining() float64 {
	if fs.OriginalAmount <= 0 {
		return 0
	}
	return float64(fs.Amount) / float64(fs.OriginalAmount)
}
