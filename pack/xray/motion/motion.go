// Package motion reads and writes skeletal motions (.skl, .skls),
// every bone animated by six envelopes.
package motion

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/mogaika/xray_motion_browser/config"
	"github.com/mogaika/xray_motion_browser/pack/xray/envelope"
	"github.com/mogaika/xray_motion_browser/pack/xray/interp"
	"github.com/mogaika/xray_motion_browser/utils"
)

const (
	VersionMin     = 6
	VersionMarkers = 7
	VersionCurrent = VersionMarkers

	// .skl chunk holding single motion
	ChunkMotion = 0x1200
	// chunk id flag of compressed payload
	ChunkCompressed = 0x80000000
)

var ErrUnsupportedVersion = errors.New("unsupported motion version")

const (
	EnvelopePosX = iota
	EnvelopePosY
	EnvelopePosZ
	EnvelopeRotYaw
	EnvelopeRotPitch
	EnvelopeRotRoll
	EnvelopeCount
)

var EnvelopeNames = [EnvelopeCount]string{"pos_x", "pos_y", "pos_z", "rot_yaw", "rot_pitch", "rot_roll"}

type MarkerInterval struct {
	Start float32 `json:"start" yaml:"start"`
	End   float32 `json:"end" yaml:"end"`
}

type MarkerSet struct {
	Name      string           `json:"name" yaml:"name"`
	Intervals []MarkerInterval `json:"intervals" yaml:"intervals"`
}

type Bone struct {
	Name  string `json:"name" yaml:"name"`
	Flags uint8  `json:"flags" yaml:"flags"`
	// host curves, used for export
	Curves [EnvelopeCount]*envelope.Curve `json:"curves" yaml:"curves"`
	// as read from file, nil for bones created from curves
	Envelopes [EnvelopeCount]*envelope.Envelope `json:"-" yaml:"-"`
}

type Motion struct {
	Name       string      `json:"name" yaml:"name"`
	FrameStart uint32      `json:"frame_start" yaml:"frame_start"`
	FrameEnd   uint32      `json:"frame_end" yaml:"frame_end"`
	FPS        float32     `json:"fps" yaml:"fps"`
	Version    uint16      `json:"version" yaml:"version"`
	Flags      uint8       `json:"flags" yaml:"flags"`
	BonePart   uint16      `json:"bone_part" yaml:"bone_part"`
	Speed      float32     `json:"speed" yaml:"speed"`
	Accrue     float32     `json:"accrue" yaml:"accrue"`
	Falloff    float32     `json:"falloff" yaml:"falloff"`
	Power      float32     `json:"power" yaml:"power"`
	Bones      []*Bone     `json:"bones" yaml:"bones"`
	Markers    []MarkerSet `json:"markers,omitempty" yaml:"markers,omitempty"`
}

// Length in frames
func (m *Motion) Length() int {
	if m.FrameEnd < m.FrameStart {
		return 0
	}
	return int(m.FrameEnd - m.FrameStart)
}

// checkLength rejects frame ranges too long to be sampled
func (m *Motion) checkLength() error {
	if m.Length() > interp.MaxFrameSpan {
		return errors.Wrapf(interp.ErrFrameSpan, "motion %q frames %d..%d", m.Name, m.FrameStart, m.FrameEnd)
	}
	return nil
}

func (m *Motion) Bone(name string) *Bone {
	for _, b := range m.Bones {
		if b.Name == name {
			return b
		}
	}
	return nil
}

func envelopeName(m *Motion, b *Bone, i int) string {
	return fmt.Sprintf("%s/%s/%s", m.Name, b.Name, EnvelopeNames[i])
}

func checkVersion(ver uint16) error {
	if ver < VersionMin {
		return errors.Wrapf(ErrUnsupportedVersion, "version %d, minimum is %d", ver, VersionMin)
	}
	return nil
}

type Options struct {
	Envelope envelope.Options
	// used instead of motion fps when non zero
	FPSOverride float32
	// written motion version, zero keeps version of motion
	Version uint16
}

func OptionsFromSettings(s *config.Settings, logger *utils.Logger) Options {
	return Options{
		Envelope: envelope.Options{
			ValueScale:        s.ValueScale,
			Epsilon:           s.Epsilon,
			DisableResampling: s.DisableResampling,
			Logger:            logger,
		},
		FPSOverride: s.FpsOverride,
		Version:     s.EnvelopeVersion,
	}
}

func (o Options) codec(fps float32, diag *envelope.Diagnostics) *envelope.Codec {
	eo := o.Envelope
	eo.FPS = fps
	if o.FPSOverride != 0 {
		eo.FPS = o.FPSOverride
	}
	return envelope.NewCodec(eo, diag)
}
