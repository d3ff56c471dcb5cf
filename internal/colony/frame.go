package colony

// AntView is the per-ant data a rendering layer needs: position, heading
// and carrying state.
type AntView struct {
	ID     string  `json:"id"`
	Pos    Vec2    `json:"pos"`
	Vel    Vec2    `json:"vel"`
	State  string  `json:"state"`
	Food   bool    `json:"food"`
	Energy float64 `json:"energy,omitempty"`
}

// FoodView is the render view of a food source.
type FoodView struct {
	Pos       Vec2    `json:"pos"`
	Radius    float64 `json:"radius"`
	Amount    int     `json:"amount"`
	Remaining float64 `json:"remaining"`
}

// NestView is the render view of the nest.
type NestView struct {
	Pos        Vec2    `json:"pos"`
	Radius     float64 `json:"radius"`
	Stored     int     `json:"stored"`
	Capacity   int     `json:"capacity"`
	Full       bool    `json:"full"`
	Fill       float64 `json:"fill"`
	Efficiency float64 `json:"efficiency"`
}

// Frame is a point-in-time view of everything a renderer draws. It is plain
// data; producing one does not disturb the simulation.
type Frame struct {
	WorldID    WorldID     `json:"world_id"`
	Tick       int64       `json:"tick"`
	Width      float64     `json:"width"`
	Height     float64     `json:"height"`
	CellSize   float64     `json:"cell_size"`
	GridWidth  int         `json:"grid_width"`
	GridHeight int         `json:"grid_height"`
	Ants       []AntView   `json:"ants"`
	Cells      []FieldCell `json:"cells"`
	Obstacles  []Obstacle  `json:"obstacles"`
	Food       []FoodView  `json:"food"`
	Nest       NestView    `json:"nest"`
	Stats      Stats       `json:"stats"`
}

// DefaultDisplayThreshold hides cells whose trail values are too faint to
// be worth drawing.
const DefaultDisplayThreshold = 0.5

// Frame captures the current render state. Field cells below threshold are
// omitted; the evaporation snap-to-zero rule keeps the result sparse.
func (w *World) Frame(threshold float64) Frame {
	w.mu.RLock()
	defer w.mu.RUnlock()

	ants := make([]AntView, 0, len(w.ants))
	for _, a := range w.ants {
		av := AntView{
			ID:    a.ID,
			Pos:   a.Pos,
			Vel:   a.Vel,
			State: a.State.String(),
			Food:  a.State == StateReturning,
		}
		if w.cfg.Ant.Mortal {
			av.Energy = a.Energy
		}
		ants = append(ants, av)
	}

	obstacles := make([]Obstacle, 0, len(w.obstacles))
	for _, o := range w.obstacles {
		points := make([]Vec2, len(o.Points))
		copy(points, o.Points)
		obstacles = append(obstacles, Obstacle{Center: o.Center, Radius: o.Radius, Points: points})
	}

	food := make([]FoodView, 0, len(w.food))
	for _, fs := range w.food {
		food = append(food, FoodView{
			Pos:       fs.Pos,
			Radius:    fs.Radius,
			Amount:    fs.Amount,
			Remaining: fs.FractionRemaining(),
		})
	}

	return Frame{
		WorldID:    w.id,
		Tick:       w.tick,
		Width:      w.cfg.Width,
		Height:     w.cfg.Height,
		CellSize:   w.field.CellSize,
		GridWidth:  w.field.GridWidth,
		GridHeight: w.field.GridHeight,
		Ants:       ants,
		Cells:      w.field.Cells(threshold),
		Obstacles:  obstacles,
		Food:       food,
		Nest: NestView{
			Pos:        w.nest.Pos,
			Radius:     w.nest.Radius,
			Stored:     w.nest.FoodStored,
			Capacity:   w.nest.MaxCapacity,
			Full:       w.nest.Full,
			Fill:       w.nest.FillFraction(),
			Efficiency: w.nest.Efficiency,
		},
		Stats: w.stats,
	}
}
