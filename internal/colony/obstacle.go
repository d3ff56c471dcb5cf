package colony

import (
	"math"
	"math/rand"
)

// Obstacle is an irregular closed polygon ("blob") approximating a disk.
// The polygon is implicitly closed: the last vertex connects back to the
// first. Shape is static after generation; external interactions either
// translate it (shape preserved) or regenerate it (new shape).
type Obstacle struct {
	Center       Vec2    `json:"center"`
	Radius       float64 `json:"radius"`
	Irregularity float64 `json:"irregularity"`
	Points       []Vec2  `json:"points"`
}

// NewObstacle generates a blob around center by perturbing vertices on a
// circle of the given radius. irregularity bounds the radial perturbation
// as a fraction of the radius. At least 3 vertices are always produced.
func NewObstacle(rng *rand.Rand, center Vec2, radius float64, vertices int, irregularity float64) *Obstacle {
	o := &Obstacle{}
	o.generate(rng, center, radius, vertices, irregularity)
	return o
}

func (o *Obstacle) generate(rng *rand.Rand, center Vec2, radius float64, vertices int, irregularity float64) {
	if vertices < 3 {
		vertices = 3
	}
	points := make([]Vec2, vertices)
	for i := 0; i < vertices; i++ {
		angle := 2 * math.Pi * float64(i) / float64(vertices)
		r := radius * (1 + irregularity*(2*rng.Float64()-1))
		points[i] = Vec2{
			X: center.X + r*math.Cos(angle),
			Y: center.Y + r*math.Sin(angle),
		}
	}
	o.Center = center
	o.Radius = radius
	o.Irregularity = irregularity
	o.Points = points
}

// Regenerate replaces the polygon with a freshly perturbed blob at the
// given center and radius. Vertex count and irregularity of the previous
// shape are kept.
func (o *Obstacle) Regenerate(rng *rand.Rand, center Vec2, radius float64) {
	o.generate(rng, center, radius, len(o.Points), o.Irregularity)
}

// Translate moves every vertex (and the center) by delta, preserving the
// shape. Used by drag interactions.
func (o *Obstacle) Translate(delta Vec2) {
	o.Center = o.Center.Add(delta)
	for i := range o.Points {
		o.Points[i] = o.Points[i].Add(delta)
	}
}

// Centroid returns the vertex average of the polygon.
func (o *Obstacle) Centroid() Vec2 {
	var c Vec2
	for _, p := range o.Points {
		c = c.Add(p)
	}
	return c.Scale(1 / float64(len(o.Points)))
}

const repulseEpsilon = 1e-9

// Repulse returns the unit direction pushing a point at pos away from the
// obstacle, together with the minimum distance from pos to the polygon
// boundary. The direction is never zero or NaN: if pos sits exactly on the
// boundary the push falls back to pointing away from the centroid, and if
// pos is the centroid itself a random unit direction is used.
func (o *Obstacle) Repulse(pos Vec2, rng *rand.Rand) (Vec2, float64) {
	minDist := math.MaxFloat64
	var closest Vec2
	n := len(o.Points)
	for i := 0; i < n; i++ {
		a := o.Points[i]
		b := o.Points[(i+1)%n]
		p := closestOnSegment(pos, a, b)
		d := pos.Sub(p).Len()
		if d < minDist {
			minDist = d
			closest = p
		}
	}

	away := pos.Sub(closest)
	if away.Len() > repulseEpsilon {
		return away.Norm(), minDist
	}

	away = pos.Sub(o.Centroid())
	if away.Len() > repulseEpsilon {
		return away.Norm(), minDist
	}
	return RandomUnit(rng), minDist
}

// closestOnSegment projects p onto segment ab, clamped to the segment.
// A zero-length segment yields a.
func closestOnSegment(p, a, b Vec2) Vec2 {
	ab := b.Sub(a)
	lenSqr := ab.LenSqr()
	if lenSqr == 0 {
		return a
	}
	t := clamp(p.Sub(a).Dot(ab)/lenSqr, 0, 1)
	return a.Add(ab.Scale(t))
}
