package gltfutils

import (
	"io"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

func NewDocument() *gltf.Document {
	return gltf.NewDocument()
}

// ExportBinary puts every root node into default scene and writes .glb
func ExportBinary(w io.Writer, doc *gltf.Document) error {
	isChild := make(map[uint32]bool)
	for _, node := range doc.Nodes {
		for _, child := range node.Children {
			isChild[child] = true
		}
	}
	for iNode := range doc.Nodes {
		if !isChild[uint32(iNode)] {
			doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(iNode))
		}
	}

	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	return encoder.Encode(doc)
}

// WriteTimes adds animation input accessor, min and max are required by viewers
func WriteTimes(doc *gltf.Document, times []float32) uint32 {
	idx := modeler.WriteAccessor(doc, gltf.TargetNone, times)
	if len(times) != 0 {
		min, max := times[0], times[0]
		for _, t := range times {
			if t < min {
				min = t
			}
			if t > max {
				max = t
			}
		}
		doc.Accessors[idx].Min = []float32{min}
		doc.Accessors[idx].Max = []float32{max}
	}
	return idx
}

func WriteVec3(doc *gltf.Document, data [][3]float32) uint32 {
	return modeler.WriteAccessor(doc, gltf.TargetNone, data)
}

func WriteVec4(doc *gltf.Document, data [][4]float32) uint32 {
	return modeler.WriteAccessor(doc, gltf.TargetNone, data)
}

// AddNode appends node with identity transform and returns its index
func AddNode(doc *gltf.Document, name string) uint32 {
	doc.Nodes = append(doc.Nodes, &gltf.Node{
		Name:     name,
		Rotation: [4]float32{0, 0, 0, 1},
		Scale:    [3]float32{1, 1, 1},
	})
	return uint32(len(doc.Nodes) - 1)
}

// AddLinearChannel adds sampler and channel animating node property
func AddLinearChannel(anim *gltf.Animation, node uint32, path gltf.TRSProperty, input, output uint32) {
	anim.Samplers = append(anim.Samplers, &gltf.AnimationSampler{
		Input:         gltf.Index(input),
		Output:        gltf.Index(output),
		Interpolation: gltf.InterpolationLinear,
	})
	anim.Channels = append(anim.Channels, &gltf.Channel{
		Sampler: gltf.Index(uint32(len(anim.Samplers) - 1)),
		Target: gltf.ChannelTarget{
			Node: gltf.Index(node),
			Path: path,
		},
	})
}
