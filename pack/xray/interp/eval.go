package interp

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	bezier2DTimeEpsilon = 1e-4
	bezier2DIterations  = 64
	bezier2DMinHandle   = 1e-5
)

func effective(s Shape) Shape {
	if !s.Known() {
		return ShapeUnknownReplacement
	}
	return s
}

func hermite(t float64) (h1, h2, h3, h4 float64) {
	t2 := t * t
	t3 := t * t2
	h2 = 3.0*t2 - t3 - t3
	h1 = 1.0 - h2
	h4 = t3 - t2
	h3 = h4 - t2 + t
	return
}

// outgoing tangent of keys[i0] on segment keys[i0]..keys[i0+1]
func outgoing(keys []Key, i0 int) float64 {
	k0, k1 := &keys[i0], &keys[i0+1]
	var prev *Key
	if i0 > 0 {
		prev = &keys[i0-1]
	}

	switch effective(k0.Shape) {
	case ShapeTCB:
		tension, continuity, bias := float64(k0.Tension), float64(k0.Continuity), float64(k0.Bias)
		a := (1.0 - tension) * (1.0 + continuity) * (1.0 + bias)
		b := (1.0 - tension) * (1.0 - continuity) * (1.0 - bias)
		d := float64(k1.Value - k0.Value)
		if prev != nil {
			t := float64(k1.Time-k0.Time) / float64(k1.Time-prev.Time)
			return t * (a*float64(k0.Value-prev.Value) + b*d)
		}
		return b * d
	case ShapeLinear:
		d := float64(k1.Value - k0.Value)
		if prev != nil {
			t := float64(k1.Time-k0.Time) / float64(k1.Time-prev.Time)
			return t * (float64(k0.Value-prev.Value) + d)
		}
		return d
	case ShapeBezier1D, ShapeHermite:
		out := float64(k0.Params[1])
		if prev != nil {
			out *= float64(k1.Time-k0.Time) / float64(k1.Time-prev.Time)
		}
		return out
	case ShapeBezier2D:
		out := float64(k0.Params[3]) * float64(k1.Time-k0.Time)
		if math.Abs(float64(k0.Params[2])) > bezier2DMinHandle {
			return out / float64(k0.Params[2])
		}
		return out * 1e5
	default:
		return 0
	}
}

// incoming tangent of keys[i1] on segment keys[i1-1]..keys[i1]
func incoming(keys []Key, i1 int) float64 {
	k0, k1 := &keys[i1-1], &keys[i1]
	var next *Key
	if i1+1 < len(keys) {
		next = &keys[i1+1]
	}

	switch effective(k1.Shape) {
	case ShapeLinear:
		d := float64(k1.Value - k0.Value)
		if next != nil {
			t := float64(k1.Time-k0.Time) / float64(next.Time-k0.Time)
			return t * (float64(next.Value-k1.Value) + d)
		}
		return d
	case ShapeTCB:
		tension, continuity, bias := float64(k1.Tension), float64(k1.Continuity), float64(k1.Bias)
		a := (1.0 - tension) * (1.0 - continuity) * (1.0 + bias)
		b := (1.0 - tension) * (1.0 + continuity) * (1.0 - bias)
		d := float64(k1.Value - k0.Value)
		if next != nil {
			t := float64(k1.Time-k0.Time) / float64(next.Time-k0.Time)
			return t * (b*float64(next.Value-k1.Value) + a*d)
		}
		return a * d
	case ShapeBezier1D, ShapeHermite:
		in := float64(k1.Params[0])
		if next != nil {
			in *= float64(k1.Time-k0.Time) / float64(next.Time-k0.Time)
		}
		return in
	case ShapeBezier2D:
		in := float64(k1.Params[1]) * float64(k1.Time-k0.Time)
		if math.Abs(float64(k1.Params[0])) > bezier2DMinHandle {
			return in / float64(k1.Params[0])
		}
		return in * 1e5
	default:
		return 0
	}
}

// bezier2D evaluates segment as 2d curve (time, value), where time axis solved by bisection
func bezier2D(k0, k1 *Key, time float64) float64 {
	p0 := mgl64.Vec2{float64(k0.Time), float64(k0.Value)}
	p3 := mgl64.Vec2{float64(k1.Time), float64(k1.Value)}
	p2 := mgl64.Vec2{float64(k1.Time + k1.Params[0]), float64(k1.Value + k1.Params[1])}

	var p1 mgl64.Vec2
	if effective(k0.Shape) == ShapeBezier2D {
		p1 = mgl64.Vec2{float64(k0.Time + k0.Params[2]), float64(k0.Value + k0.Params[3])}
	} else {
		p1 = mgl64.Vec2{float64(k0.Time) + float64(k1.Time-k0.Time)/3.0, float64(k0.Value) + float64(k0.Params[1])/3.0}
	}

	t0, t1 := 0.0, 1.0
	t := 0.5
	for i := 0; i < bezier2DIterations; i++ {
		t = t0 + (t1-t0)*0.5
		x := mgl64.CubicBezierCurve2D(t, p0, p1, p2, p3).X()
		if math.Abs(time-x) <= bezier2DTimeEpsilon {
			break
		}
		if x > time {
			t1 = t
		} else {
			t0 = t
		}
	}
	return mgl64.CubicBezierCurve2D(t, p0, p1, p2, p3).Y()
}

// Segment evaluates segment keys[i1-1]..keys[i1] at normalized position u in [0, 1].
// Segment shape is shape of the ending key.
func Segment(keys []Key, i1 int, u float64) float64 {
	k0, k1 := &keys[i1-1], &keys[i1]
	switch effective(k1.Shape) {
	case ShapeStepped:
		return float64(k0.Value)
	case ShapeLinear:
		return float64(k0.Value) + u*float64(k1.Value-k0.Value)
	case ShapeBezier2D:
		return bezier2D(k0, k1, float64(k0.Time)+u*float64(k1.Time-k0.Time))
	default:
		out := outgoing(keys, i1-1)
		in := incoming(keys, i1)
		h1, h2, h3, h4 := hermite(u)
		return h1*float64(k0.Value) + h2*float64(k1.Value) + h3*out + h4*in
	}
}

// Evaluate returns envelope value at time (in frames).
// Outside of keys range value of the boundary key is used.
// Keys with equal time resolve to the later one.
func Evaluate(keys []Key, time float64) float64 {
	switch len(keys) {
	case 0:
		return 0
	case 1:
		return float64(keys[0].Value)
	}

	// last key with key.Time <= time
	j := sort.Search(len(keys), func(i int) bool {
		return float64(keys[i].Time) > time
	}) - 1

	if j < 0 {
		return float64(keys[0].Value)
	}
	if j == len(keys)-1 || float64(keys[j].Time) == time {
		return float64(keys[j].Value)
	}

	dt := float64(keys[j+1].Time - keys[j].Time)
	if dt <= 0 {
		return float64(keys[j+1].Value)
	}
	return Segment(keys, j+1, (time-float64(keys[j].Time))/dt)
}
