package motion

import (
	"math"

	"github.com/pkg/errors"

	"github.com/mogaika/xray_motion_browser/pack/xray/envelope"
	"github.com/mogaika/xray_motion_browser/utils"
)

var emptyCurve = &envelope.Curve{Extrapolate: envelope.ExtrapolationConstant}

// Write encodes motion, every bone curve is exported through envelope reducer
func (m *Motion) Write(w *utils.BufWriter, opts Options, diag *envelope.Diagnostics) error {
	ver := m.Version
	if opts.Version != 0 {
		ver = opts.Version
	}
	if err := checkVersion(ver); err != nil {
		return errors.Wrapf(err, "motion %q", m.Name)
	}
	if len(m.Bones) > math.MaxUint16 {
		return errors.Errorf("motion %q: too many bones %d", m.Name, len(m.Bones))
	}

	fps := m.FPS
	if opts.FPSOverride != 0 {
		fps = opts.FPSOverride
	}

	w.WriteZString(m.Name)
	w.WriteLU32(m.FrameStart)
	w.WriteLU32(m.FrameEnd)
	w.WriteLF(fps)
	w.WriteLU16(ver)
	w.WriteU8(m.Flags)
	w.WriteLU16(m.BonePart)
	w.WriteLF(m.Speed)
	w.WriteLF(m.Accrue)
	w.WriteLF(m.Falloff)
	w.WriteLF(m.Power)

	w.WriteLU16(uint16(len(m.Bones)))
	codec := opts.codec(fps, diag)
	for _, b := range m.Bones {
		w.WriteZString(b.Name)
		w.WriteU8(b.Flags)
		for i, curve := range b.Curves {
			if curve == nil {
				curve = emptyCurve
			}
			if _, err := codec.Export(w, envelope.Version(ver), envelopeName(m, b, i), curve); err != nil {
				return errors.Wrapf(err, "motion %q bone %q", m.Name, b.Name)
			}
		}
	}

	if ver >= VersionMarkers {
		w.WriteLU32(uint32(len(m.Markers)))
		for _, set := range m.Markers {
			w.WriteZString(set.Name)
			w.WriteLU32(uint32(len(set.Intervals)))
			for _, interval := range set.Intervals {
				w.WriteLF(interval.Start)
				w.WriteLF(interval.End)
			}
		}
	}
	return nil
}

func (m *Motion) Marshal(opts Options, diag *envelope.Diagnostics) ([]byte, error) {
	w := utils.NewBufWriter()
	if err := m.Write(w, opts, diag); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// MarshalSkl encodes motion as .skl file
func (m *Motion) MarshalSkl(opts Options, diag *envelope.Diagnostics) ([]byte, error) {
	payload, err := m.Marshal(opts, diag)
	if err != nil {
		return nil, err
	}
	w := utils.NewBufWriter()
	w.WriteChunk(ChunkMotion, payload)
	return w.Bytes(), nil
}

// MarshalSkls encodes motion list
func MarshalSkls(motions []*Motion, opts Options, diag *envelope.Diagnostics) ([]byte, error) {
	w := utils.NewBufWriter()
	w.WriteLU32(uint32(len(motions)))
	for _, m := range motions {
		if err := m.Write(w, opts, diag); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}
