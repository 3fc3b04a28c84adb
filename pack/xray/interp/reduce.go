package interp

import "math"

// DefaultEpsilon is the reduction tolerance used when none is given
const DefaultEpsilon = 1e-4

// Point is a key candidate for reduction. Shape belongs to the segment ending at the point.
type Point struct {
	Time  float64
	Value float64
	Shape Shape
}

// Reducer drops keys that are reproducible from their neighbours within Epsilon.
// Points are pushed in time order and processed in one forward pass:
// the run from the last committed point grows while every skipped point stays
// within Epsilon of the straight (or stepped) segment to the newest point.
// Reducing the output again may drop more points near Epsilon.
type Reducer struct {
	Epsilon float64

	out       []Point
	candidate Point
	has       bool
	// allowed slope range of anchor->endpoint line for linear runs
	slopeLow  float64
	slopeHigh float64
}

func NewReducer(epsilon float64) *Reducer {
	if epsilon < 0 {
		epsilon = 0
	}
	r := &Reducer{Epsilon: epsilon}
	r.resetCone()
	return r
}

func (r *Reducer) resetCone() {
	r.slopeLow = math.Inf(-1)
	r.slopeHigh = math.Inf(1)
}

func (r *Reducer) anchor() *Point {
	return &r.out[len(r.out)-1]
}

// tryExtend checks that candidate can be dropped if run ends at p instead
func (r *Reducer) tryExtend(p Point) bool {
	a := r.anchor()
	c := &r.candidate
	if c.Shape != p.Shape {
		return false
	}

	switch c.Shape {
	case ShapeStepped:
		return math.Abs(c.Value-a.Value) <= r.Epsilon
	case ShapeLinear:
		dtc := c.Time - a.Time
		dtp := p.Time - a.Time
		if dtc <= 0 || dtp <= 0 {
			return false
		}
		low := math.Max(r.slopeLow, (c.Value-r.Epsilon-a.Value)/dtc)
		high := math.Min(r.slopeHigh, (c.Value+r.Epsilon-a.Value)/dtc)
		slope := (p.Value - a.Value) / dtp
		if slope < low || slope > high {
			return false
		}
		r.slopeLow, r.slopeHigh = low, high
		return true
	default:
		return false
	}
}

// Push adds next point. Points must come in non decreasing time order.
func (r *Reducer) Push(p Point) {
	if len(r.out) == 0 {
		r.out = append(r.out, p)
		return
	}
	if !r.has {
		r.candidate, r.has = p, true
		return
	}
	if !r.tryExtend(p) {
		r.out = append(r.out, r.candidate)
		r.resetCone()
	}
	r.candidate = p
}

// Finish commits the last point and returns reduced sequence.
// Reducer is reset and can be reused.
func (r *Reducer) Finish() []Point {
	if r.has {
		r.out = append(r.out, r.candidate)
	}
	out := r.out
	r.out, r.has = nil, false
	r.resetCone()
	return out
}

// Reduce runs Reducer over points
func Reduce(points []Point, epsilon float64) []Point {
	r := NewReducer(epsilon)
	for _, p := range points {
		r.Push(p)
	}
	return r.Finish()
}
