package utils

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Range of quantized tension/continuity/bias/params values
const (
	QuantLow  float32 = -32.0
	QuantHigh float32 = 32.0
)

func DecodeQuant16(raw uint16, lo, hi float32) float32 {
	return lo + float32(raw)/65535.0*(hi-lo)
}

func EncodeQuant16(v, lo, hi float32) uint16 {
	if math.IsNaN(float64(v)) {
		v = lo
	}
	v = mgl32.Clamp(v, lo, hi)
	return uint16(math.Round(float64(v-lo) / float64(hi-lo) * 65535.0))
}
