package envelope

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/xray_motion_browser/pack/xray/interp"
	"github.com/mogaika/xray_motion_browser/utils"
)

const (
	legacyVersion  Version = 3
	compactVersion Version = 7
	testFPS                = 30
	quantStep              = 64.0 / 65535.0
)

type rawKey struct {
	value, time float32
	shape       uint8
	block       [7]float32
}

// buildEnvelope writes envelope bytes by hand, times given in seconds
func buildEnvelope(ver Version, bhv [2]uint32, keys ...rawKey) []byte {
	w := utils.NewBufWriter()
	for _, b := range bhv {
		if ver.Compact() {
			w.WriteU8(uint8(b))
		} else {
			w.WriteLU32(b)
		}
	}
	if ver.Compact() {
		w.WriteLU16(uint16(len(keys)))
	} else {
		w.WriteLU32(uint32(len(keys)))
	}
	for _, k := range keys {
		w.WriteLF(k.value)
		w.WriteLF(k.time)
		if ver.Compact() {
			w.WriteU8(k.shape)
			if interp.Shape(k.shape) != interp.ShapeStepped {
				for _, v := range k.block {
					w.WriteQ16F(v, utils.QuantLow, utils.QuantHigh)
				}
			}
		} else {
			w.WriteLU32(uint32(k.shape))
			for _, v := range k.block {
				w.WriteLF(v)
			}
		}
	}
	return w.Bytes()
}

func testOptions() Options {
	return Options{FPS: testFPS}
}

func TestDecodeEmpty(t *testing.T) {
	for _, ver := range []Version{legacyVersion, compactVersion} {
		res, err := Decode(buildEnvelope(ver, [2]uint32{1, 1}), ver, testOptions())
		require.NoError(t, err)
		assert.Empty(t, res.Curve.Keys)
		assert.Empty(t, res.Envelope.Keys)
		assert.False(t, res.Resampled)
		assert.Equal(t, 0, res.Diagnostics.Len())
	}
}

func TestDecodeSingleKey(t *testing.T) {
	for _, shape := range []interp.Shape{interp.ShapeStepped, interp.ShapeTCB} {
		data := buildEnvelope(compactVersion, [2]uint32{1, 1}, rawKey{value: 2.5, time: 0.5, shape: uint8(shape)})
		res, err := Decode(data, compactVersion, testOptions())
		require.NoError(t, err)
		require.Len(t, res.Curve.Keys, 1, "shape %v", shape)
		assert.Equal(t, 15.0, res.Curve.Keys[0].Frame)
		assert.Equal(t, 2.5, res.Curve.Keys[0].Value)
		assert.Equal(t, 2.5, res.Curve.Evaluate(-100))
		assert.Equal(t, 2.5, res.Curve.Evaluate(100))
	}
}

func TestDecodeLegacyBehaviorMismatch(t *testing.T) {
	data := buildEnvelope(legacyVersion, [2]uint32{uint32(interp.BehaviorConstant), uint32(interp.BehaviorLinear)},
		rawKey{value: 1, time: 0, shape: uint8(interp.ShapeLinear)},
		rawKey{value: 2, time: 1, shape: uint8(interp.ShapeLinear)},
	)
	res, err := Decode(data, legacyVersion, testOptions())
	require.NoError(t, err)

	assert.Equal(t, [2]interp.Behavior{interp.BehaviorConstant, interp.BehaviorConstant}, res.Envelope.Behavior)
	assert.Equal(t, ExtrapolationConstant, res.Curve.Extrapolate)
	mismatch := res.Diagnostics.Filter(BehaviorMismatch)
	require.Len(t, mismatch, 1)
	assert.Equal(t, []string{"LINEAR"}, mismatch[0].Values)
	assert.Equal(t, "CONSTANT", mismatch[0].Replacement)
}

func TestDecodeUnsupportedBehavior(t *testing.T) {
	repeat := uint32(interp.BehaviorRepeat)
	res, err := Decode(buildEnvelope(compactVersion, [2]uint32{repeat, repeat}), compactVersion, testOptions())
	require.NoError(t, err)
	assert.Equal(t, [2]interp.Behavior{interp.BehaviorConstant, interp.BehaviorConstant}, res.Envelope.Behavior)
	require.Len(t, res.Diagnostics.Filter(BehaviorMismatch), 1)

	linear := uint32(interp.BehaviorLinear)
	res, err = Decode(buildEnvelope(compactVersion, [2]uint32{linear, linear}), compactVersion, testOptions())
	require.NoError(t, err)
	assert.Equal(t, ExtrapolationLinear, res.Curve.Extrapolate)
	assert.Equal(t, 0, res.Diagnostics.Len())
}

func TestDecodeCompactSteppedLinear(t *testing.T) {
	data := buildEnvelope(compactVersion, [2]uint32{1, 1},
		rawKey{value: 1, time: 0, shape: uint8(interp.ShapeStepped)},
		rawKey{value: 3, time: 10.0 / testFPS, shape: uint8(interp.ShapeLinear)},
		rawKey{value: -2, time: 20.0 / testFPS, shape: uint8(interp.ShapeStepped)},
	)
	// stepped keys do not carry params block
	assert.Len(t, data, 2+2+9+(9+14)+9)

	res, err := Decode(data, compactVersion, testOptions())
	require.NoError(t, err)
	assert.False(t, res.Resampled)
	require.Len(t, res.Curve.Keys, 3)

	nativeModes := make([]interp.Mode, 0, 3)
	for _, k := range res.Envelope.Keys {
		nativeModes = append(nativeModes, k.Shape.Mode())
	}
	assert.Equal(t, []interp.Mode{interp.ModeConstant, interp.ModeLinear, interp.ModeConstant}, nativeModes)

	// host mode belongs to the segment starting at the key
	curveModes := make([]interp.Mode, 0, 3)
	for _, k := range res.Curve.Keys {
		curveModes = append(curveModes, k.Mode)
	}
	assert.Equal(t, []interp.Mode{interp.ModeLinear, interp.ModeConstant, interp.ModeConstant}, curveModes)

	values := []float64{1, 3, -2}
	frames := []float64{0, 10, 20}
	for i, k := range res.Curve.Keys {
		assert.Equal(t, values[i], k.Value)
		assert.InDelta(t, frames[i], k.Frame, 1e-4)
	}
	assert.Empty(t, res.Diagnostics.Filter(ShapeDowngraded))
}

func TestDecodeUnknownShape(t *testing.T) {
	data := buildEnvelope(compactVersion, [2]uint32{1, 1},
		rawKey{value: 0, time: 0, shape: 99},
		rawKey{value: 1, time: 0.5, shape: 99},
		rawKey{value: 0, time: 1, shape: uint8(interp.ShapeLinear)},
	)
	res, err := Decode(data, compactVersion, testOptions())
	require.NoError(t, err)

	assert.Equal(t, interp.ShapeBezier2D, res.Envelope.Keys[0].Shape)
	assert.Equal(t, interp.ShapeBezier2D, res.Envelope.Keys[1].Shape)
	assert.True(t, res.Resampled)
	assert.Len(t, res.Curve.Keys, 31)

	unsupported := res.Diagnostics.Filter(UnsupportedShape)
	require.Len(t, unsupported, 1)
	assert.Equal(t, []string{"99"}, unsupported[0].Values)
	assert.Equal(t, "BEZIER_2D", unsupported[0].Replacement)
	assert.Equal(t, []string{"99", "LINEAR"}, res.Diagnostics.Shapes())
}

func TestDecodeResampled(t *testing.T) {
	data := buildEnvelope(legacyVersion, [2]uint32{5, 5},
		rawKey{value: 0, time: 0.125, shape: uint8(interp.ShapeTCB)},
		rawKey{value: 2, time: 0.5, shape: uint8(interp.ShapeTCB), block: [7]float32{0.3, 0, 0}},
		rawKey{value: 1, time: 1.0, shape: uint8(interp.ShapeLinear)},
	)
	res, err := Decode(data, legacyVersion, Options{FPS: testFPS, ValueScale: -2})
	require.NoError(t, err)
	assert.True(t, res.Resampled)
	assert.Equal(t, ExtrapolationLinear, res.Curve.Extrapolate)

	// frames 3..30
	require.Len(t, res.Curve.Keys, 28)
	for i, k := range res.Curve.Keys {
		assert.Equal(t, float64(3+i), k.Frame)
		assert.Equal(t, interp.ModeLinear, k.Mode)
		assert.Equal(t, interp.Evaluate(res.Envelope.Keys, k.Frame)*-2, k.Value)
	}
	assert.InDelta(t, -4.0, res.Curve.Keys[12].Value, 1e-5)
}

func TestDecodeDisableResampling(t *testing.T) {
	data := buildEnvelope(compactVersion, [2]uint32{1, 1},
		rawKey{value: 0, time: 0, shape: uint8(interp.ShapeStepped)},
		rawKey{value: 2, time: 0.5, shape: uint8(interp.ShapeHermite)},
		rawKey{value: 1, time: 1.0, shape: uint8(interp.ShapeTCB)},
	)
	res, err := Decode(data, compactVersion, Options{FPS: testFPS, DisableResampling: true})
	require.NoError(t, err)
	assert.False(t, res.Resampled)
	require.Len(t, res.Curve.Keys, 3)
	for _, k := range res.Curve.Keys {
		assert.Equal(t, interp.ModeSmooth, k.Mode)
	}
	downgraded := res.Diagnostics.Filter(ShapeDowngraded)
	require.Len(t, downgraded, 1)
	assert.Equal(t, []string{"HERMITE", "TCB"}, downgraded[0].Values)
}

func TestDecodeDegenerateSegment(t *testing.T) {
	data := buildEnvelope(compactVersion, [2]uint32{1, 1},
		rawKey{value: 0, time: 0, shape: uint8(interp.ShapeLinear)},
		rawKey{value: 1, time: 0.5, shape: uint8(interp.ShapeLinear)},
		rawKey{value: 5, time: 0.5, shape: uint8(interp.ShapeTCB)},
		rawKey{value: 5, time: 1, shape: uint8(interp.ShapeTCB)},
	)
	res, err := Decode(data, compactVersion, testOptions())
	require.NoError(t, err)
	require.Len(t, res.Diagnostics.Filter(DegenerateSegment), 1)
	assert.True(t, res.Resampled)
	assert.Equal(t, 5.0, res.Curve.Keys[15].Value)
}

func TestDecodeDecreasingTime(t *testing.T) {
	data := buildEnvelope(compactVersion, [2]uint32{1, 1},
		rawKey{value: 0, time: 0, shape: uint8(interp.ShapeLinear)},
		rawKey{value: 1, time: 0.5, shape: uint8(interp.ShapeLinear)},
		rawKey{value: 2, time: 0.25, shape: uint8(interp.ShapeLinear)},
	)
	res, err := Decode(data, compactVersion, testOptions())
	require.NoError(t, err)
	require.Len(t, res.Envelope.Keys, 3)
	assert.Equal(t, float32(15), res.Envelope.Keys[2].Time)
	degenerate := res.Diagnostics.Filter(DegenerateSegment)
	require.Len(t, degenerate, 1)
	assert.Equal(t, []string{"7.5"}, degenerate[0].Values)
}

func TestDecodeBadKeyTimes(t *testing.T) {
	nan, inf := float32(math.NaN()), float32(math.Inf(1))
	for _, tc := range []struct {
		name        string
		first, last float32
	}{
		{"nan", nan, 1},
		{"inf", 0, inf},
		{"negative inf", -inf, 0},
		{"overflow", 0, math.MaxFloat32},
		{"huge span", 0, 1e12},
	} {
		t.Run(tc.name, func(t *testing.T) {
			for _, ver := range []Version{legacyVersion, compactVersion} {
				data := buildEnvelope(ver, [2]uint32{1, 1},
					rawKey{value: 0, time: tc.first, shape: uint8(interp.ShapeTCB)},
					rawKey{value: 1, time: tc.last, shape: uint8(interp.ShapeTCB)},
				)
				_, err := Decode(data, ver, testOptions())
				assert.Error(t, err, "version %d", ver)
				assert.False(t, IsTruncated(err))
			}
		})
	}

	// long envelopes are fine while not resampled
	data := buildEnvelope(compactVersion, [2]uint32{1, 1},
		rawKey{value: 0, time: 0, shape: uint8(interp.ShapeLinear)},
		rawKey{value: 1, time: 1e12, shape: uint8(interp.ShapeLinear)},
	)
	res, err := Decode(data, compactVersion, testOptions())
	require.NoError(t, err)
	assert.Len(t, res.Curve.Keys, 2)
}

func TestDecodeTruncated(t *testing.T) {
	for _, ver := range []Version{legacyVersion, compactVersion} {
		data := buildEnvelope(ver, [2]uint32{1, 1},
			rawKey{value: 0, time: 0, shape: uint8(interp.ShapeStepped)},
			rawKey{value: 1, time: 1, shape: uint8(interp.ShapeTCB)},
		)
		for size := 0; size < len(data); size++ {
			_, err := Decode(data[:size], ver, testOptions())
			if !IsTruncated(err) {
				t.Fatalf("version %d size %d/%d: expected truncated error, got %v", ver, size, len(data), err)
			}
		}
		_, err := Decode(data, ver, testOptions())
		assert.NoError(t, err)
	}
}

func TestDecodeHugeCount(t *testing.T) {
	w := utils.NewBufWriter()
	w.WriteLU32(1)
	w.WriteLU32(1)
	w.WriteLU32(0xffffffff)
	_, err := Decode(w.Bytes(), legacyVersion, testOptions())
	assert.True(t, IsTruncated(err))
}

func TestDecodeQuantizedParams(t *testing.T) {
	block := [7]float32{0.5, -0.25, 1, 3.3, -31.9, 0, 12}
	data := buildEnvelope(compactVersion, [2]uint32{1, 1},
		rawKey{value: 0, time: 0, shape: uint8(interp.ShapeHermite), block: block},
	)
	res, err := Decode(data, compactVersion, testOptions())
	require.NoError(t, err)
	k := res.Envelope.Keys[0]
	got := [7]float32{k.Tension, k.Continuity, k.Bias, k.Params[0], k.Params[1], k.Params[2], k.Params[3]}
	for i := range block {
		assert.InDelta(t, block[i], got[i], quantStep)
	}
}
