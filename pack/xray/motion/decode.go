package motion

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/mogaika/xray_motion_browser/pack/xray/envelope"
	"github.com/mogaika/xray_motion_browser/utils"
)

// empty name, header and zero bones
const minMotionSize = 1 + 4 + 4 + 4 + 2 + 1 + 2 + 4*4 + 2

func readMarkers(bs *utils.BufStack) ([]MarkerSet, error) {
	count, err := bs.ReadLU32()
	if err != nil {
		return nil, errors.Wrapf(err, "markers count")
	}
	// name terminator and intervals count
	if int64(count)*5 > int64(bs.Left()) {
		return nil, errors.Wrapf(utils.ErrTruncatedData, "%d marker sets do not fit into %d bytes", count, bs.Left())
	}

	sets := make([]MarkerSet, count)
	for i := range sets {
		set := &sets[i]
		if set.Name, err = bs.ReadZString(); err != nil {
			return nil, errors.Wrapf(err, "marker set %d name", i)
		}
		intervals, err := bs.ReadLU32()
		if err != nil {
			return nil, errors.Wrapf(err, "marker set %q", set.Name)
		}
		if int64(intervals)*8 > int64(bs.Left()) {
			return nil, errors.Wrapf(utils.ErrTruncatedData, "marker set %q: %d intervals", set.Name, intervals)
		}
		set.Intervals = make([]MarkerInterval, intervals)
		for j := range set.Intervals {
			var pair [2]float32
			if err := bs.ReadLFs(pair[:]); err != nil {
				return nil, errors.Wrapf(err, "marker set %q interval %d", set.Name, j)
			}
			set.Intervals[j] = MarkerInterval{Start: pair[0], End: pair[1]}
		}
	}
	return sets, nil
}

func (m *Motion) readBone(bs *utils.BufStack, codec *envelope.Codec) (*Bone, error) {
	b := &Bone{}
	var err error
	if b.Name, err = bs.ReadZString(); err != nil {
		return nil, errors.Wrapf(err, "name")
	}
	if b.Flags, err = bs.ReadByte(); err != nil {
		return nil, errors.Wrapf(err, "bone %q flags", b.Name)
	}
	for i := range b.Envelopes {
		curve := &envelope.Curve{}
		env, _, err := codec.Import(bs, envelope.Version(m.Version), envelopeName(m, b, i), curve)
		if err != nil {
			return nil, errors.Wrapf(err, "bone %q", b.Name)
		}
		b.Envelopes[i] = env
		b.Curves[i] = curve
	}
	return b, nil
}

// Read decodes single motion. Envelope diagnostics are added to diag.
func Read(bs *utils.BufStack, opts Options, diag *envelope.Diagnostics) (*Motion, error) {
	m := &Motion{}
	var err error

	if m.Name, err = bs.ReadZString(); err != nil {
		return nil, errors.Wrapf(err, "motion name")
	}
	wrap := func(err error, what string) error {
		return errors.Wrapf(err, "motion %q %s", m.Name, what)
	}

	if m.FrameStart, err = bs.ReadLU32(); err != nil {
		return nil, wrap(err, "frame start")
	}
	if m.FrameEnd, err = bs.ReadLU32(); err != nil {
		return nil, wrap(err, "frame end")
	}
	if err := m.checkLength(); err != nil {
		return nil, err
	}
	if m.FPS, err = bs.ReadLF(); err != nil {
		return nil, wrap(err, "fps")
	}
	if m.Version, err = bs.ReadLU16(); err != nil {
		return nil, wrap(err, "version")
	}
	if err := checkVersion(m.Version); err != nil {
		return nil, wrap(err, "header")
	}
	if m.Flags, err = bs.ReadByte(); err != nil {
		return nil, wrap(err, "flags")
	}
	if m.BonePart, err = bs.ReadLU16(); err != nil {
		return nil, wrap(err, "bone part")
	}
	var params [4]float32
	if err := bs.ReadLFs(params[:]); err != nil {
		return nil, wrap(err, "params")
	}
	m.Speed, m.Accrue, m.Falloff, m.Power = params[0], params[1], params[2], params[3]

	bones, err := bs.ReadLU16()
	if err != nil {
		return nil, wrap(err, "bones count")
	}

	codec := opts.codec(m.FPS, diag)
	m.Bones = make([]*Bone, 0, bones)
	for i := 0; i < int(bones); i++ {
		b, err := m.readBone(bs, codec)
		if err != nil {
			return nil, wrap(err, "bone")
		}
		m.Bones = append(m.Bones, b)
	}

	if m.Version >= VersionMarkers {
		if m.Markers, err = readMarkers(bs); err != nil {
			return nil, wrap(err, "markers")
		}
	}
	opts.Envelope.Logger.Printf("motion %q: %d bones, frames %d..%d", m.Name, len(m.Bones), m.FrameStart, m.FrameEnd)
	return m, nil
}

// ReadSkl decodes .skl file, motion is stored in ChunkMotion
func ReadSkl(data []byte, opts Options, diag *envelope.Diagnostics) (*Motion, error) {
	bs := utils.NewBufStack("skl", data)
	for bs.Left() > 0 {
		id, err := bs.ReadLU32()
		if err != nil {
			return nil, errors.Wrapf(err, "chunk id")
		}
		size, err := bs.ReadLU32()
		if err != nil {
			return nil, errors.Wrapf(err, "chunk 0x%x size", id)
		}
		chunk, err := bs.SubBufFollowing("chunk", int(size))
		if err != nil {
			return nil, errors.Wrapf(err, "chunk 0x%x", id)
		}
		if id&ChunkCompressed != 0 {
			return nil, errors.Errorf("Compressed chunk 0x%x is not supported", id)
		}
		if id == ChunkMotion {
			return Read(chunk.SetName("motion"), opts, diag)
		}
	}
	return nil, errors.Errorf("Chunk 0x%x not found", ChunkMotion)
}

// ReadSkls decodes motion list
func ReadSkls(data []byte, opts Options, diag *envelope.Diagnostics) ([]*Motion, error) {
	bs := utils.NewBufStack("skls", data)
	count, err := bs.ReadLU32()
	if err != nil {
		return nil, errors.Wrapf(err, "motions count")
	}
	if int64(count)*minMotionSize > int64(bs.Left()) {
		return nil, errors.Wrapf(utils.ErrTruncatedData, "%d motions do not fit into %d bytes", count, bs.Left())
	}

	motions := make([]*Motion, 0, count)
	for i := 0; i < int(count); i++ {
		m, err := Read(bs, opts, diag)
		if err != nil {
			return nil, errors.Wrapf(err, "motion %d", i)
		}
		motions = append(motions, m)
	}
	return motions, nil
}

func IsMotionFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".skl", ".skls":
		return true
	}
	return false
}

// Open decodes .skl or .skls file by name extension
func Open(name string, data []byte, opts Options, diag *envelope.Diagnostics) ([]*Motion, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".skl":
		m, err := ReadSkl(data, opts, diag)
		if err != nil {
			return nil, errors.Wrapf(err, "%q", name)
		}
		return []*Motion{m}, nil
	case ".skls":
		motions, err := ReadSkls(data, opts, diag)
		if err != nil {
			return nil, errors.Wrapf(err, "%q", name)
		}
		return motions, nil
	default:
		return nil, errors.Errorf("Unknown motion file extension %q", name)
	}
}
