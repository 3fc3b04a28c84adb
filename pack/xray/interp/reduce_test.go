package interp

import (
	"math"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mogaika/xray_motion_browser/utils"
)

func ramp(n int, slope float64, shape Shape) []Point {
	points := make([]Point, n)
	for i := range points {
		points[i] = Point{Time: float64(i) / 30.0, Value: float64(i) * slope, Shape: shape}
	}
	return points
}

// valueAt reconstructs reduced curve at time
func valueAt(points []Point, time float64) float64 {
	for i := 1; i < len(points); i++ {
		p0, p1 := points[i-1], points[i]
		if time > p1.Time {
			continue
		}
		if p1.Shape == ShapeStepped {
			if time == p1.Time {
				return p1.Value
			}
			return p0.Value
		}
		if p1.Time == p0.Time {
			return p1.Value
		}
		return p0.Value + (p1.Value-p0.Value)*(time-p0.Time)/(p1.Time-p0.Time)
	}
	return points[len(points)-1].Value
}

func TestReduceRamp(t *testing.T) {
	points := ramp(100, 0.37, ShapeLinear)
	reduced := Reduce(points, DefaultEpsilon)
	if len(reduced) != 2 {
		t.Fatalf("ramp reduced to %d points, expected 2: %v", len(reduced), utils.SDump(reduced))
	}
	assert.Equal(t, points[0], reduced[0])
	assert.Equal(t, points[99], reduced[1])
}

func TestReduceKeepsCorners(t *testing.T) {
	var points []Point
	for i := 0; i <= 60; i++ {
		v := float64(i)
		if i > 30 {
			v = 60 - v
		}
		points = append(points, Point{Time: float64(i), Value: v, Shape: ShapeLinear})
	}
	reduced := Reduce(points, DefaultEpsilon)
	assert.Equal(t, []Point{points[0], points[30], points[60]}, reduced)
}

func TestReduceWithinEpsilon(t *testing.T) {
	const eps = 0.01
	var points []Point
	for i := 0; i < 500; i++ {
		time := float64(i) / 30
		points = append(points, Point{Time: time, Value: math.Sin(time) * 3, Shape: ShapeLinear})
	}
	reduced := Reduce(points, eps)
	if len(reduced) >= len(points) || len(reduced) < 3 {
		t.Fatalf("unexpected reduced size %d of %d", len(reduced), len(points))
	}
	for _, p := range points {
		if d := math.Abs(valueAt(reduced, p.Time) - p.Value); d > eps+1e-12 {
			t.Errorf("point %+v drifted by %v", p, d)
		}
	}
}

// Repeated reduction is stable only when every corner deviates from its
// neighbours line by more than epsilon.
func TestReduceIdempotentCorners(t *testing.T) {
	var points []Point
	values := []float64{0, 1, 2, 3, 3, 3, 3, 1, -1, -3, -3, 5, 6, 7, 8}
	for i, v := range values {
		points = append(points, Point{Time: float64(i) * 0.5, Value: v, Shape: ShapeLinear})
	}
	tests := [][]Point{
		points,
		ramp(100, 1, ShapeLinear),
		ramp(10, 0, ShapeStepped),
	}
	for _, test := range tests {
		once := Reduce(test, DefaultEpsilon)
		twice := Reduce(once, DefaultEpsilon)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("reduce is not idempotent:\n%v\n%v", utils.SDump(once), utils.SDump(twice))
		}
	}
}

func TestReduceNearEpsilon(t *testing.T) {
	// dropped points narrow the slope window of the first pass only
	points := []Point{
		{Time: 0, Value: 0, Shape: ShapeStepped},
		{Time: 1, Value: 9e-5, Shape: ShapeLinear},
		{Time: 2, Value: 0, Shape: ShapeLinear},
		{Time: 3, Value: -1e-4, Shape: ShapeLinear},
	}
	once := Reduce(points, DefaultEpsilon)
	twice := Reduce(once, DefaultEpsilon)
	assert.LessOrEqual(t, len(twice), len(once))
	for _, p := range twice {
		for _, q := range points {
			if q.Time == p.Time {
				assert.Equal(t, q.Value, p.Value)
			}
		}
	}
	assert.Equal(t, points[0], twice[0])
	assert.Equal(t, points[len(points)-1], twice[len(twice)-1])
}

func TestReduceStepped(t *testing.T) {
	points := []Point{
		{Time: 0, Value: 1, Shape: ShapeStepped},
		{Time: 1, Value: 1, Shape: ShapeStepped},
		{Time: 2, Value: 1, Shape: ShapeStepped},
		{Time: 3, Value: 4, Shape: ShapeStepped},
		{Time: 4, Value: 4, Shape: ShapeStepped},
	}
	reduced := Reduce(points, DefaultEpsilon)
	// the jump happens at points[3], so points[1] and points[2] are redundant
	assert.Equal(t, []Point{points[0], points[3], points[4]}, reduced)
}

func TestReduceDoesNotMergeShapes(t *testing.T) {
	points := []Point{
		{Time: 0, Value: 0, Shape: ShapeStepped},
		{Time: 1, Value: 1, Shape: ShapeLinear},
		{Time: 2, Value: 2, Shape: ShapeTCB},
		{Time: 3, Value: 3, Shape: ShapeTCB},
		{Time: 4, Value: 4, Shape: ShapeLinear},
	}
	assert.Equal(t, points, Reduce(points, DefaultEpsilon))
}

func TestReduceShort(t *testing.T) {
	assert.Nil(t, Reduce(nil, DefaultEpsilon))
	one := []Point{{Time: 1, Value: 2}}
	assert.Equal(t, one, Reduce(one, DefaultEpsilon))
	two := ramp(2, 1, ShapeLinear)
	assert.Equal(t, two, Reduce(two, DefaultEpsilon))
}
