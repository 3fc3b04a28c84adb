package interp

import (
	"math"

	"github.com/pkg/errors"
)

// MaxFrameSpan limits count of frames produced by resampling
const MaxFrameSpan = 1 << 20

var ErrFrameSpan = errors.New("Frame span too long")

// Sample is an envelope value at integer frame
type Sample struct {
	Frame int
	Value float64
}

// FrameRange returns [floor(first.Time), ceil(last.Time)] of sorted keys.
// Fails on non-finite times and on ranges longer than MaxFrameSpan.
func FrameRange(keys []Key) (start, end int, err error) {
	if len(keys) == 0 {
		return 0, -1, nil
	}
	first, last := float64(keys[0].Time), float64(keys[len(keys)-1].Time)
	if math.IsNaN(first) || math.IsInf(first, 0) || math.IsNaN(last) || math.IsInf(last, 0) {
		return 0, -1, errors.Errorf("Non-finite key time %v..%v", first, last)
	}
	lo, hi := math.Floor(first), math.Ceil(last)
	if math.Abs(lo) > MaxFrameSpan || math.Abs(hi) > MaxFrameSpan || hi-lo > MaxFrameSpan {
		return 0, -1, errors.Wrapf(ErrFrameSpan, "frames %v..%v", lo, hi)
	}
	return int(lo), int(hi), nil
}

// Resample evaluates keys at every integer frame of FrameRange.
// Keys must be sorted by time.
func Resample(keys []Key) ([]Sample, error) {
	start, end, err := FrameRange(keys)
	if err != nil {
		return nil, err
	}
	return ResampleRange(keys, start, end)
}

// ResampleRange evaluates keys at every integer frame in [start, end]
func ResampleRange(keys []Key, start, end int) ([]Sample, error) {
	if end < start {
		return nil, nil
	}
	if int64(end)-int64(start) > MaxFrameSpan {
		return nil, errors.Wrapf(ErrFrameSpan, "frames %d..%d", start, end)
	}
	samples := make([]Sample, 0, end-start+1)
	for frame := start; frame <= end; frame++ {
		samples = append(samples, Sample{
			Frame: frame,
			Value: Evaluate(keys, float64(frame)),
		})
	}
	return samples, nil
}

// NeedsResampling reports whether at least one key uses spline interpolation
func NeedsResampling(keys []Key) bool {
	for i := range keys {
		if keys[i].Shape.Interpolated() {
			return true
		}
	}
	return false
}
