package colony

import "math"

// Channel selects one of the two trail channels in a PheromoneField.
type Channel int

const (
	// ChannelHome is deposited by exploring ants and followed by returning ants.
	ChannelHome Channel = iota
	// ChannelFood is deposited by returning ants and followed by exploring ants.
	ChannelFood
)

const (
	maxTrail   = 1000.0
	maxSuccess = 100.0

	// Values below this are snapped to exactly zero after decay so that the
	// field converges to a truly sparse state instead of drifting in tiny floats.
	trailFloor = 0.01

	// The success grid decays slower than raw trail strength.
	successDecayFactor = 0.3

	// Minimum gradient magnitude treated as a usable direction.
	gradientThreshold = 0.1
)

// PheromoneField stores two independently decaying scalar trail grids
// ("home" and "food") plus an auxiliary success grid over a uniform
// discretization of the arena. All spatial queries clamp into the grid,
// so there is no invalid position by construction.
type PheromoneField struct {
	CellSize   float64
	GridWidth  int
	GridHeight int

	home    []float64
	food    []float64
	success []float64
}

// NewPheromoneField creates a field covering an arena of the given size.
// Grid dimensions are ceil(size/cellSize), with a minimum of one cell.
func NewPheromoneField(width, height, cellSize float64) *PheromoneField {
	gw := int(math.Ceil(width / cellSize))
	gh := int(math.Ceil(height / cellSize))
	if gw < 1 {
		gw = 1
	}
	if gh < 1 {
		gh = 1
	}
	return &PheromoneField{
		CellSize:   cellSize,
		GridWidth:  gw,
		GridHeight: gh,
		home:       make([]float64, gw*gh),
		food:       make([]float64, gw*gh),
		success:    make([]float64, gw*gh),
	}
}

// Index maps a continuous position to a grid cell, clamped into the grid.
// Positions outside the arena (including negative coordinates) always map
// to a valid cell; sensor sampling relies on this.
func (f *PheromoneField) Index(pos Vec2) (int, int) {
	gx := int(math.Floor(pos.X / f.CellSize))
	gy := int(math.Floor(pos.Y / f.CellSize))
	if gx < 0 {
		gx = 0
	}
	if gx >= f.GridWidth {
		gx = f.GridWidth - 1
	}
	if gy < 0 {
		gy = 0
	}
	if gy >= f.GridHeight {
		gy = f.GridHeight - 1
	}
	return gx, gy
}

func (f *PheromoneField) cell(gx, gy int) int {
	return gy*f.GridWidth + gx
}

func (f *PheromoneField) channel(ch Channel) []float64 {
	if ch == ChannelFood {
		return f.food
	}
	return f.home
}

// Deposit adds amount*successBonus to the channel at the cell containing pos,
// clamped to the channel maximum. A smaller weighted share spills into the
// 8 neighbouring cells so trails come out smooth rather than blocky.
// A fraction of the bonus also accumulates into the success grid at the
// primary cell only.
func (f *PheromoneField) Deposit(pos Vec2, ch Channel, amount, successBonus float64) {
	grid := f.channel(ch)
	gx, gy := f.Index(pos)
	total := amount * successBonus

	i := f.cell(gx, gy)
	grid[i] = math.Min(grid[i]+total, maxTrail)

	// Neighbour spread: linear falloff over 1.5 cells keeps the diagonals
	// contributing a small positive share.
	const spreadRadius = 1.5
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := gx+dx, gy+dy
			if nx < 0 || nx >= f.GridWidth || ny < 0 || ny >= f.GridHeight {
				continue
			}
			d := math.Hypot(float64(dx), float64(dy))
			w := (1 - d/spreadRadius) * 0.3
			if w <= 0 {
				continue
			}
			j := f.cell(nx, ny)
			grid[j] = math.Min(grid[j]+total*w, maxTrail)
		}
	}

	f.success[i] = math.Min(f.success[i]+successBonus*0.1, maxSuccess)
}

// Sample returns the raw channel value at the cell containing pos.
// No interpolation is performed.
func (f *PheromoneField) Sample(pos Vec2, ch Channel) float64 {
	gx, gy := f.Index(pos)
	return f.channel(ch)[f.cell(gx, gy)]
}

// SampleSuccess returns the success grid value at the cell containing pos.
func (f *PheromoneField) SampleSuccess(pos Vec2) float64 {
	gx, gy := f.Index(pos)
	return f.success[f.cell(gx, gy)]
}

// Gradient estimates the local ascent direction of a channel at pos using
// 8 directional samples: 4 axis-aligned at one cell offset and 4 diagonal
// at 0.7x offset. Axis differences weigh 0.5, diagonal cross-differences
// 0.25. Returns the zero vector when the estimate is too weak to be a
// usable direction, otherwise a unit vector.
func (f *PheromoneField) Gradient(pos Vec2, ch Channel) Vec2 {
	h := f.CellSize
	d := 0.7 * h

	xp := f.Sample(Vec2{pos.X + h, pos.Y}, ch)
	xm := f.Sample(Vec2{pos.X - h, pos.Y}, ch)
	yp := f.Sample(Vec2{pos.X, pos.Y + h}, ch)
	ym := f.Sample(Vec2{pos.X, pos.Y - h}, ch)

	pp := f.Sample(Vec2{pos.X + d, pos.Y + d}, ch)
	mm := f.Sample(Vec2{pos.X - d, pos.Y - d}, ch)
	pm := f.Sample(Vec2{pos.X + d, pos.Y - d}, ch)
	mp := f.Sample(Vec2{pos.X - d, pos.Y + d}, ch)

	g := Vec2{
		X: 0.5*(xp-xm) + 0.25*((pp-mm)+(pm-mp)),
		Y: 0.5*(yp-ym) + 0.25*((pp-mm)-(pm-mp)),
	}
	if g.Len() <= gradientThreshold {
		return Vec2{}
	}
	return g.Norm()
}

// Evaporate applies one global decay pass: trail channels are multiplied by
// (1-rate), the success grid by (1-rate*0.3). Any value that falls below
// the floor is snapped to exactly zero.
func (f *PheromoneField) Evaporate(rate float64) {
	trailKeep := 1 - rate
	successKeep := 1 - rate*successDecayFactor
	for i := range f.home {
		f.home[i] *= trailKeep
		if f.home[i] < trailFloor {
			f.home[i] = 0
		}
		f.food[i] *= trailKeep
		if f.food[i] < trailFloor {
			f.food[i] = 0
		}
		f.success[i] *= successKeep
		if f.success[i] < trailFloor {
			f.success[i] = 0
		}
	}
}

// ReinforcePath adds strength to the success grid at the cell of every
// point, clamped to the success maximum. Used to reward a route that led
// to a food discovery or an efficient delivery, independent of ongoing
// trail deposits.
func (f *PheromoneField) ReinforcePath(points []Vec2, strength float64) {
	for _, p := range points {
		gx, gy := f.Index(p)
		i := f.cell(gx, gy)
		f.success[i] = math.Min(f.success[i]+strength, maxSuccess)
	}
}

// FieldCell is one non-empty cell of the field, as exposed to renderers.
type FieldCell struct {
	GX      int     `json:"gx"`
	GY      int     `json:"gy"`
	Home    float64 `json:"home,omitempty"`
	Food    float64 `json:"food,omitempty"`
	Success float64 `json:"success,omitempty"`
}

// Cells returns every cell where any channel exceeds the display threshold.
// The snap-to-zero rule in Evaporate keeps this sparse on quiet fields.
func (f *PheromoneField) Cells(threshold float64) []FieldCell {
	out := make([]FieldCell, 0)
	for gy := 0; gy < f.GridHeight; gy++ {
		for gx := 0; gx < f.GridWidth; gx++ {
			i := f.cell(gx, gy)
			if f.home[i] > threshold || f.food[i] > threshold || f.success[i] > threshold {
				out = append(out, FieldCell{
					GX: gx, GY: gy,
					Home: f.home[i], Food: f.food[i], Success: f.success[i],
				})
			}
		}
	}
	return out
}
