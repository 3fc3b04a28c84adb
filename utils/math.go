package utils

import (
	"github.com/go-gl/mathgl/mgl32"
)

// YawPitchRollToQuat converts engine bone rotation (radians) into a quaternion.
// Axis order is Y (yaw), X (pitch), Z (roll).
func YawPitchRollToQuat(yaw, pitch, roll float32) mgl32.Quat {
	return mgl32.AnglesToQuat(yaw, pitch, roll, mgl32.YXZ).Normalize()
}
