package envelope

import (
	"math"
	"strconv"

	"github.com/pkg/errors"

	"github.com/mogaika/xray_motion_browser/pack/xray/interp"
	"github.com/mogaika/xray_motion_browser/utils"
)

// Codec converts envelopes with fixed options.
// Diagnostics of every call are appended to Diagnostics.
type Codec struct {
	Options     Options
	Diagnostics *Diagnostics
}

func NewCodec(opts Options, diag *Diagnostics) *Codec {
	if diag == nil {
		diag = NewDiagnostics()
	}
	return &Codec{Options: opts.withDefaults(), Diagnostics: diag}
}

func readBehaviors(bs *utils.BufStack, ver Version) (b [2]interp.Behavior, err error) {
	for i := range b {
		if ver.Compact() {
			var v byte
			v, err = bs.ReadByte()
			b[i] = interp.Behavior(v)
		} else {
			var v uint32
			v, err = bs.ReadLU32()
			b[i] = interp.Behavior(v)
		}
		if err != nil {
			return b, errors.Wrapf(err, "behavior %d", i)
		}
	}
	return b, nil
}

func (c *Codec) coerceBehaviors(b [2]interp.Behavior, name string) [2]interp.Behavior {
	if b[0] != b[1] {
		c.Diagnostics.Add(Diagnostic{
			Kind:        BehaviorMismatch,
			Envelope:    name,
			Values:      []string{b[1].String()},
			Replacement: b[0].String(),
		})
		b[1] = b[0]
	}
	if !b[0].Supported() {
		c.Diagnostics.Add(Diagnostic{
			Kind:        BehaviorMismatch,
			Envelope:    name,
			Values:      []string{b[0].String()},
			Replacement: interp.BehaviorConstant.String(),
		})
		b[0], b[1] = interp.BehaviorConstant, interp.BehaviorConstant
	}
	return b
}

func readKey(bs *utils.BufStack, ver Version) (k interp.Key, err error) {
	if k.Value, err = bs.ReadLF(); err != nil {
		return k, errors.Wrapf(err, "value")
	}
	if k.Time, err = bs.ReadLF(); err != nil {
		return k, errors.Wrapf(err, "time")
	}

	if ver.Compact() {
		var shape byte
		if shape, err = bs.ReadByte(); err != nil {
			return k, errors.Wrapf(err, "shape")
		}
		k.Shape = interp.Shape(shape)
		if k.Shape == interp.ShapeStepped {
			return k, nil
		}

		var q [7]float32
		for i := range q {
			if q[i], err = bs.ReadQ16F(utils.QuantLow, utils.QuantHigh); err != nil {
				return k, errors.Wrapf(err, "params")
			}
		}
		k.Tension, k.Continuity, k.Bias = q[0], q[1], q[2]
		copy(k.Params[:], q[3:])
	} else {
		var shape uint32
		if shape, err = bs.ReadLU32(); err != nil {
			return k, errors.Wrapf(err, "shape")
		}
		k.Shape = interp.Shape(shape & 0xff)

		var tcb [3]float32
		if err = bs.ReadLFs(tcb[:]); err != nil {
			return k, errors.Wrapf(err, "tcb")
		}
		k.Tension, k.Continuity, k.Bias = tcb[0], tcb[1], tcb[2]
		if err = bs.ReadLFs(k.Params[:]); err != nil {
			return k, errors.Wrapf(err, "params")
		}
	}
	return k, nil
}

// Read decodes envelope. Key times are converted to frames,
// unknown shapes are replaced with interp.ShapeUnknownReplacement.
func (c *Codec) Read(bs *utils.BufStack, ver Version, name string) (*Envelope, error) {
	fps := c.Options.FPS

	bhv, err := readBehaviors(bs, ver)
	if err != nil {
		return nil, errors.Wrapf(err, "envelope %q", name)
	}
	env := &Envelope{Behavior: c.coerceBehaviors(bhv, name)}

	var count uint32
	if ver.Compact() {
		var c16 uint16
		c16, err = bs.ReadLU16()
		count = uint32(c16)
	} else {
		count, err = bs.ReadLU32()
	}
	if err != nil {
		return nil, errors.Wrapf(err, "envelope %q keys count", name)
	}
	// every key takes at least 9 bytes, do not trust count for allocation
	if int64(count)*9 > int64(bs.Left()) {
		return nil, errors.Wrapf(utils.ErrTruncatedData, "envelope %q: %d keys do not fit into %d bytes", name, count, bs.Left())
	}

	unsupported := make(map[string]struct{})
	degenerate := make(map[string]struct{})
	env.Keys = make([]interp.Key, count)
	for i := range env.Keys {
		k, err := readKey(bs, ver)
		if err != nil {
			return nil, errors.Wrapf(err, "envelope %q key %d", name, i)
		}

		c.Diagnostics.seeShape(k.Shape.String())
		if !k.Shape.Known() {
			unsupported[k.Shape.String()] = struct{}{}
			k.Shape = interp.ShapeUnknownReplacement
		}

		if math.IsNaN(float64(k.Time)) || math.IsInf(float64(k.Time), 0) {
			return nil, errors.Errorf("envelope %q key %d: invalid time %v", name, i, k.Time)
		}
		k.Time *= fps
		if math.IsInf(float64(k.Time), 0) {
			return nil, errors.Errorf("envelope %q key %d: time overflows at %v fps", name, i, fps)
		}
		if k.Shape == interp.ShapeBezier2D {
			// time handles
			k.Params[0] *= fps
			k.Params[2] *= fps
		}

		if i > 0 && k.Time <= env.Keys[i-1].Time {
			degenerate[strconv.FormatFloat(float64(k.Time), 'g', -1, 32)] = struct{}{}
			// keep keys sorted, decreasing time is moved up to previous key
			if k.Time < env.Keys[i-1].Time {
				k.Time = env.Keys[i-1].Time
			}
		}

		c.Options.Logger.Printf("envelope %q key %d: %+v", name, i, k)
		env.Keys[i] = k
	}

	c.Diagnostics.addSet(UnsupportedShape, name, unsupported, interp.ShapeUnknownReplacement.String())
	c.Diagnostics.addSet(DegenerateSegment, name, degenerate, "")
	return env, nil
}

// Materialize pushes envelope into host curve.
// Interpolated envelopes are sampled every frame with linear keys,
// otherwise keys are passed one to one. Returns true if envelope was resampled.
// Direct keys take mode of the next key shape (segment starting at the key),
// native mode of every key is env.Keys[i].Shape.Mode().
// Fails when resampled range is longer than interp.MaxFrameSpan.
func (c *Codec) Materialize(env *Envelope, name string, sink CurveSink) (bool, error) {
	switch env.Behavior[0] {
	case interp.BehaviorLinear:
		sink.SetExtrapolation(ExtrapolationLinear)
	default:
		sink.SetExtrapolation(ExtrapolationConstant)
	}

	scale := float64(c.Options.ValueScale)

	if interp.NeedsResampling(env.Keys) && !c.Options.DisableResampling {
		samples, err := interp.Resample(env.Keys)
		if err != nil {
			return false, errors.Wrapf(err, "envelope %q", name)
		}
		for _, s := range samples {
			sink.InsertKey(CurveKey{Frame: float64(s.Frame), Value: s.Value * scale, Mode: interp.ModeLinear})
		}
		return true, nil
	}

	downgraded := make(map[string]struct{})
	for i, k := range env.Keys {
		// engine shape describes segment ending at the key, host mode the segment starting at it
		outShape := k.Shape
		if i+1 < len(env.Keys) {
			outShape = env.Keys[i+1].Shape
		}
		mode := outShape.Mode()
		if mode == interp.ModeSmooth {
			downgraded[outShape.String()] = struct{}{}
		}
		sink.InsertKey(CurveKey{Frame: float64(k.Time), Value: float64(k.Value) * scale, Mode: mode})
	}
	c.Diagnostics.addSet(ShapeDowngraded, name, downgraded, interp.ModeSmooth.String())
	return false, nil
}

// Import reads envelope and materializes it into sink
func (c *Codec) Import(bs *utils.BufStack, ver Version, name string, sink CurveSink) (*Envelope, bool, error) {
	env, err := c.Read(bs, ver, name)
	if err != nil {
		return nil, false, err
	}
	resampled, err := c.Materialize(env, name, sink)
	if err != nil {
		return nil, false, err
	}
	return env, resampled, nil
}

// Result of Decode
type Result struct {
	Envelope    *Envelope
	Curve       *Curve
	Resampled   bool
	Diagnostics *Diagnostics
}

// Decode imports envelope from data. Trailing bytes are ignored.
func Decode(data []byte, ver Version, opts Options) (*Result, error) {
	c := NewCodec(opts, nil)
	curve := &Curve{}
	env, resampled, err := c.Import(utils.NewBufStack("envelope", data), ver, "envelope", curve)
	if err != nil {
		return nil, err
	}
	return &Result{Envelope: env, Curve: curve, Resampled: resampled, Diagnostics: c.Diagnostics}, nil
}
