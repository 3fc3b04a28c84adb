// Package envelope reads and writes engine envelopes (single animated scalar channel)
// and converts them into host curves and back.
//
// Wire layout, little endian:
//
//	                 legacy (version <= 3)     compact (version > 3)
//	behavior x2      u32 x2                    u8 x2
//	key count        u32                       u16
//	key value        f32                       f32
//	key time         f32 (seconds)             f32 (seconds)
//	key shape        u32 (low byte)            u8
//	t, c, b, p[4]    f32 x7 always             q16 x7, only if shape != STEPPED
package envelope

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/mogaika/xray_motion_browser/pack/xray/interp"
	"github.com/mogaika/xray_motion_browser/utils"
)

// Version is the motion format revision the envelope is stored with
type Version uint16

const (
	VersionLegacyMax Version = 3
	VersionCurrent   Version = 7
)

// Compact reports whether 1/2 byte header fields and quantized params are used
func (v Version) Compact() bool {
	return v > VersionLegacyMax
}

const (
	DefaultFPS        = 30.0
	DefaultValueScale = 1.0
)

var ErrTooManyKeys = errors.New("too many keys")

// IsTruncated reports whether err was caused by unexpected end of data
func IsTruncated(err error) bool {
	return errors.Cause(err) == utils.ErrTruncatedData
}

// Envelope is a decoded key list. Key times are in frames.
type Envelope struct {
	Behavior [2]interp.Behavior
	Keys     []interp.Key
}

type Extrapolation string

const (
	ExtrapolationConstant Extrapolation = "CONSTANT"
	ExtrapolationLinear   Extrapolation = "LINEAR"
)

// CurveKey is a host curve key. Mode applies to the segment starting at the key.
type CurveKey struct {
	Frame float64     `json:"frame" yaml:"frame"`
	Value float64     `json:"value" yaml:"value"`
	Mode  interp.Mode `json:"mode" yaml:"mode"`
}

// CurveSink receives imported curve
type CurveSink interface {
	SetExtrapolation(e Extrapolation)
	InsertKey(k CurveKey)
}

// CurveSource provides curve for export
type CurveSource interface {
	Extrapolation() Extrapolation
	KeysCount() int
	Key(i int) CurveKey
}

// Curve is in-memory host curve, usable both as sink and source
type Curve struct {
	Extrapolate Extrapolation `json:"extrapolation" yaml:"extrapolation"`
	Keys        []CurveKey    `json:"keys" yaml:"keys"`
}

func (c *Curve) SetExtrapolation(e Extrapolation) {
	c.Extrapolate = e
}

func (c *Curve) InsertKey(k CurveKey) {
	c.Keys = append(c.Keys, k)
}

func (c *Curve) Extrapolation() Extrapolation {
	return c.Extrapolate
}

func (c *Curve) KeysCount() int {
	return len(c.Keys)
}

func (c *Curve) Key(i int) CurveKey {
	return c.Keys[i]
}

// Evaluate samples curve the way host does for constant and linear modes
func (c *Curve) Evaluate(frame float64) float64 {
	if len(c.Keys) == 0 {
		return 0
	}
	j := sort.Search(len(c.Keys), func(i int) bool {
		return c.Keys[i].Frame > frame
	}) - 1
	if j < 0 {
		return c.Keys[0].Value
	}
	if j == len(c.Keys)-1 {
		return c.Keys[j].Value
	}
	k0, k1 := c.Keys[j], c.Keys[j+1]
	if k0.Mode == interp.ModeConstant || k1.Frame == k0.Frame {
		return k0.Value
	}
	return k0.Value + (k1.Value-k0.Value)*(frame-k0.Frame)/(k1.Frame-k0.Frame)
}

// Options of the envelope conversion
type Options struct {
	// frames per second, key times are stored in seconds
	FPS float32
	// host value = stored value * ValueScale
	ValueScale float32
	// key reduction tolerance on export
	Epsilon float64
	// import interpolated envelopes key by key with smooth mode instead of per frame samples
	DisableResampling bool
	Logger            *utils.Logger
}

func (o Options) withDefaults() Options {
	if o.FPS == 0 {
		o.FPS = DefaultFPS
	}
	if o.ValueScale == 0 {
		o.ValueScale = DefaultValueScale
	}
	if o.Epsilon <= 0 {
		o.Epsilon = interp.DefaultEpsilon
	}
	return o
}
