// Package interp implements keyframe interpolation of engine envelopes:
// segment shapes and their evaluation, per frame resampling and key reduction.
package interp

import (
	"strconv"

	"github.com/pkg/errors"
)

// Shape is an interpolation kind of the segment that ends at the key
type Shape uint8

const (
	ShapeTCB      Shape = 0
	ShapeHermite  Shape = 1
	ShapeBezier1D Shape = 2
	ShapeLinear   Shape = 3
	ShapeStepped  Shape = 4
	ShapeBezier2D Shape = 5
)

// Replacement for shapes that are not known
const ShapeUnknownReplacement = ShapeBezier2D

var shapeNames = map[Shape]string{
	ShapeTCB:      "TCB",
	ShapeHermite:  "HERMITE",
	ShapeBezier1D: "BEZIER_1D",
	ShapeLinear:   "LINEAR",
	ShapeStepped:  "STEPPED",
	ShapeBezier2D: "BEZIER_2D",
}

func (s Shape) Known() bool {
	_, ok := shapeNames[s]
	return ok
}

// String returns shape name, or decimal wire value for unknown shapes
func (s Shape) String() string {
	if name, ok := shapeNames[s]; ok {
		return name
	}
	return strconv.Itoa(int(s))
}

func (s Shape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Shape) UnmarshalText(text []byte) error {
	for shape, name := range shapeNames {
		if name == string(text) {
			*s = shape
			return nil
		}
	}
	v, err := strconv.ParseUint(string(text), 10, 8)
	if err != nil {
		return errors.Errorf("Unknown shape %q", text)
	}
	*s = Shape(v)
	return nil
}

// Interpolated reports whether the segment needs spline evaluation
func (s Shape) Interpolated() bool {
	return s != ShapeLinear && s != ShapeStepped
}

// Mode returns closest host interpolation mode
func (s Shape) Mode() Mode {
	switch s {
	case ShapeStepped:
		return ModeConstant
	case ShapeLinear:
		return ModeLinear
	default:
		return ModeSmooth
	}
}

// Mode is a host curve interpolation mode of the segment that starts at the key
type Mode uint8

const (
	ModeConstant Mode = iota
	ModeLinear
	ModeSmooth
)

var modeNames = [...]string{"CONSTANT", "LINEAR", "SMOOTH"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "MODE_" + strconv.Itoa(int(m))
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	for i, name := range modeNames {
		if name == string(text) {
			*m = Mode(i)
			return nil
		}
	}
	return errors.Errorf("Unknown mode %q", text)
}

// Shape converts host mode into engine shape.
// Modes without engine equivalent return ok == false.
func (m Mode) Shape() (s Shape, ok bool) {
	switch m {
	case ModeConstant:
		return ShapeStepped, true
	case ModeLinear:
		return ShapeLinear, true
	default:
		return ShapeTCB, false
	}
}

// Behavior is out of range extrapolation of envelope
type Behavior uint32

const (
	BehaviorReset        Behavior = 0
	BehaviorConstant     Behavior = 1
	BehaviorRepeat       Behavior = 2
	BehaviorOscillate    Behavior = 3
	BehaviorOffsetRepeat Behavior = 4
	BehaviorLinear       Behavior = 5
)

var behaviorNames = [...]string{"RESET", "CONSTANT", "REPEAT", "OSCILLATE", "OFFSET_REPEAT", "LINEAR"}

func (b Behavior) String() string {
	if int(b) < len(behaviorNames) {
		return behaviorNames[b]
	}
	return strconv.Itoa(int(b))
}

func (b Behavior) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// Supported reports whether host curves can express the behavior
func (b Behavior) Supported() bool {
	return b == BehaviorConstant || b == BehaviorLinear
}

// Key is a single envelope keyframe. Time is in frames.
type Key struct {
	Time       float32
	Value      float32
	Shape      Shape
	Tension    float32
	Continuity float32
	Bias       float32
	Params     [4]float32
}
