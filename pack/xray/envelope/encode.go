package envelope

import (
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/mogaika/xray_motion_browser/pack/xray/interp"
	"github.com/mogaika/xray_motion_browser/utils"
)

// Exported with keys created from host modes that have no engine shape
const ShapeUnsupportedModeReplacement = interp.ShapeTCB

func writeBehaviors(w *utils.BufWriter, ver Version, b [2]interp.Behavior) {
	for _, v := range b {
		if ver.Compact() {
			w.WriteU8(byte(v))
		} else {
			w.WriteLU32(uint32(v))
		}
	}
}

func writeCount(w *utils.BufWriter, ver Version, count int) error {
	if ver.Compact() {
		if count > math.MaxUint16 {
			return errors.Wrapf(ErrTooManyKeys, "%d keys for version %d", count, ver)
		}
		w.WriteLU16(uint16(count))
	} else {
		if int64(count) > math.MaxUint32 {
			return errors.Wrapf(ErrTooManyKeys, "%d keys for version %d", count, ver)
		}
		w.WriteLU32(uint32(count))
	}
	return nil
}

// writeKey writes key with time already in seconds
func writeKey(w *utils.BufWriter, ver Version, k *interp.Key) {
	w.WriteLF(k.Value)
	w.WriteLF(k.Time)

	block := [7]float32{k.Tension, k.Continuity, k.Bias, k.Params[0], k.Params[1], k.Params[2], k.Params[3]}
	if ver.Compact() {
		w.WriteU8(byte(k.Shape))
		if k.Shape != interp.ShapeStepped {
			for _, v := range block {
				w.WriteQ16F(v, utils.QuantLow, utils.QuantHigh)
			}
		}
	} else {
		w.WriteLU32(uint32(k.Shape))
		for _, v := range block {
			w.WriteLF(v)
		}
	}
}

// Write encodes envelope as is, converting key times from frames back to seconds
func (c *Codec) Write(w *utils.BufWriter, ver Version, env *Envelope) error {
	fps := c.Options.FPS

	writeBehaviors(w, ver, env.Behavior)
	if err := writeCount(w, ver, len(env.Keys)); err != nil {
		return err
	}
	for i := range env.Keys {
		k := env.Keys[i]
		k.Time /= fps
		if k.Shape == interp.ShapeBezier2D {
			k.Params[0] /= fps
			k.Params[2] /= fps
		}
		writeKey(w, ver, &k)
	}
	return nil
}

func (c *Codec) exportBehavior(src CurveSource, name string) interp.Behavior {
	switch src.Extrapolation() {
	case ExtrapolationConstant:
		return interp.BehaviorConstant
	case ExtrapolationLinear:
		return interp.BehaviorLinear
	default:
		c.Diagnostics.Add(Diagnostic{
			Kind:        UnsupportedExtrapolation,
			Envelope:    name,
			Values:      []string{string(src.Extrapolation())},
			Replacement: interp.BehaviorLinear.String(),
		})
		return interp.BehaviorLinear
	}
}

// Reduce converts host curve into reduced engine keys (times in seconds, stored values)
func (c *Codec) Reduce(src CurveSource, name string) []interp.Point {
	keys := make([]CurveKey, src.KeysCount())
	for i := range keys {
		keys[i] = src.Key(i)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		return keys[i].Frame < keys[j].Frame
	})

	fps := float64(c.Options.FPS)
	scale := float64(c.Options.ValueScale)
	unsupported := make(map[string]struct{})

	reducer := interp.NewReducer(c.Options.Epsilon)
	for i, k := range keys {
		shape := interp.ShapeStepped
		if i > 0 {
			var ok bool
			if shape, ok = keys[i-1].Mode.Shape(); !ok {
				unsupported[keys[i-1].Mode.String()] = struct{}{}
				shape = ShapeUnsupportedModeReplacement
			}
		}
		reducer.Push(interp.Point{Time: k.Frame / fps, Value: k.Value / scale, Shape: shape})
	}

	c.Diagnostics.addSet(UnsupportedInterpolation, name, unsupported, ShapeUnsupportedModeReplacement.String())
	return reducer.Finish()
}

// Export writes host curve as envelope. Returns count of written keys.
func (c *Codec) Export(w *utils.BufWriter, ver Version, name string, src CurveSource) (int, error) {
	bhv := c.exportBehavior(src, name)
	points := c.Reduce(src, name)

	writeBehaviors(w, ver, [2]interp.Behavior{bhv, bhv})
	if err := writeCount(w, ver, len(points)); err != nil {
		return 0, errors.Wrapf(err, "envelope %q", name)
	}
	for _, p := range points {
		writeKey(w, ver, &interp.Key{Time: float32(p.Time), Value: float32(p.Value), Shape: p.Shape})
	}
	c.Options.Logger.Printf("envelope %q: exported %d of %d keys", name, len(points), src.KeysCount())
	return len(points), nil
}

// Encode exports host curve into a new buffer
func Encode(src CurveSource, ver Version, opts Options) ([]byte, *Diagnostics, error) {
	c := NewCodec(opts, nil)
	w := utils.NewBufWriter()
	if _, err := c.Export(w, ver, "envelope", src); err != nil {
		return nil, c.Diagnostics, err
	}
	return w.Bytes(), c.Diagnostics, nil
}
