package motion

import (
	"io"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/xray_motion_browser/pack/xray/envelope"
	"github.com/mogaika/xray_motion_browser/pack/xray/interp"
	"github.com/mogaika/xray_motion_browser/utils"
	"github.com/mogaika/xray_motion_browser/utils/gltfutils"
)

// sample returns channel value at every frame of [start, end]
func (b *Bone) sample(channel, start, end int, scale float32) ([]float32, error) {
	if env := b.Envelopes[channel]; env != nil {
		samples, err := interp.ResampleRange(env.Keys, start, end)
		if err != nil {
			return nil, errors.Wrapf(err, "bone %q %s", b.Name, EnvelopeNames[channel])
		}
		values := make([]float32, 0, len(samples))
		for _, s := range samples {
			values = append(values, float32(s.Value)*scale)
		}
		return values, nil
	}

	curve := b.Curves[channel]
	if curve == nil {
		curve = emptyCurve
	}
	values := make([]float32, 0, end-start+1)
	for frame := start; frame <= end; frame++ {
		values = append(values, float32(curve.Evaluate(float64(frame))))
	}
	return values, nil
}

// GLTFExporter writes motions as animations of one document.
// Bones with equal names share node.
type GLTFExporter struct {
	Doc   *gltf.Document
	Opts  Options
	nodes map[string]uint32
}

func NewGLTFExporter(opts Options) *GLTFExporter {
	return &GLTFExporter{
		Doc:   gltfutils.NewDocument(),
		Opts:  opts,
		nodes: make(map[string]uint32),
	}
}

func (e *GLTFExporter) node(name string) uint32 {
	if idx, ok := e.nodes[name]; ok {
		return idx
	}
	idx := gltfutils.AddNode(e.Doc, name)
	e.nodes[name] = idx
	return idx
}

// Add appends motion as animation with translation and rotation channel per bone
func (e *GLTFExporter) Add(m *Motion) (*gltf.Animation, error) {
	if err := m.checkLength(); err != nil {
		return nil, err
	}
	fps := m.FPS
	if e.Opts.FPSOverride != 0 {
		fps = e.Opts.FPSOverride
	}
	if fps <= 0 {
		fps = envelope.DefaultFPS
	}
	scale := e.Opts.Envelope.ValueScale
	if scale == 0 {
		scale = envelope.DefaultValueScale
	}

	start, end := int(m.FrameStart), int(m.FrameStart)+m.Length()
	times := make([]float32, 0, end-start+1)
	for frame := start; frame <= end; frame++ {
		times = append(times, float32(frame-start)/fps)
	}

	anim := &gltf.Animation{Name: m.Name}
	input := gltfutils.WriteTimes(e.Doc, times)

	for _, b := range m.Bones {
		var channels [EnvelopeCount][]float32
		for i := range channels {
			var err error
			if channels[i], err = b.sample(i, start, end, scale); err != nil {
				return nil, errors.Wrapf(err, "motion %q", m.Name)
			}
		}

		translations := make([][3]float32, len(times))
		rotations := make([][4]float32, len(times))
		for f := range times {
			translations[f] = [3]float32{channels[EnvelopePosX][f], channels[EnvelopePosY][f], channels[EnvelopePosZ][f]}
			q := utils.YawPitchRollToQuat(channels[EnvelopeRotYaw][f], channels[EnvelopeRotPitch][f], channels[EnvelopeRotRoll][f])
			rotations[f] = [4]float32{q.X(), q.Y(), q.Z(), q.W}
		}

		node := e.node(b.Name)
		gltfutils.AddLinearChannel(anim, node, gltf.TRSTranslation, input, gltfutils.WriteVec3(e.Doc, translations))
		gltfutils.AddLinearChannel(anim, node, gltf.TRSRotation, input, gltfutils.WriteVec4(e.Doc, rotations))
	}

	e.Doc.Animations = append(e.Doc.Animations, anim)
	return anim, nil
}

func (e *GLTFExporter) Export(w io.Writer) error {
	return gltfutils.ExportBinary(w, e.Doc)
}

// ExportGLTF writes motions into binary gltf
func ExportGLTF(w io.Writer, motions []*Motion, opts Options) error {
	e := NewGLTFExporter(opts)
	for _, m := range motions {
		if _, err := e.Add(m); err != nil {
			return err
		}
	}
	return e.Export(w)
}
