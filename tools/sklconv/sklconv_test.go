package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mogaika/xray_motion_browser/pack/xray/envelope"
	"github.com/mogaika/xray_motion_browser/pack/xray/interp"
	"github.com/mogaika/xray_motion_browser/pack/xray/motion"
)

func writeTestMotion(t *testing.T, dir, name string) {
	m := &motion.Motion{Name: name, FrameEnd: 20, FPS: 30, Version: motion.VersionCurrent}
	b := &motion.Bone{Name: "bip01"}
	b.Curves[motion.EnvelopePosY] = &envelope.Curve{
		Extrapolate: envelope.ExtrapolationConstant,
		Keys: []envelope.CurveKey{
			{Frame: 0, Value: 1, Mode: interp.ModeLinear},
			{Frame: 20, Value: 2, Mode: interp.ModeLinear},
		},
	}
	m.Bones = append(m.Bones, b)

	data, err := m.MarshalSkl(motion.Options{}, nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".skl"), data, 0644))
}

func TestConvertDirectory(t *testing.T) {
	in := t.TempDir()
	writeTestMotion(t, in, "idle")
	writeTestMotion(t, in, "run")
	require.NoError(t, os.WriteFile(filepath.Join(in, "bad.skls"), []byte{0xff}, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "notes.txt"), []byte("-"), 0644))

	files, err := collectInputs(in)
	require.NoError(t, err)
	assert.Len(t, files, 3)

	for _, format := range []string{FormatSkls, FormatGLTF, FormatYaml} {
		out := t.TempDir()
		c := &converter{outDir: out, format: format}
		assert.Equal(t, 1, c.run(files, 2), format)

		for _, name := range []string{"idle", "run"} {
			_, err := os.Stat(filepath.Join(out, name+formatExtensions[format]))
			assert.NoError(t, err, format)
		}
	}
}

func TestConvertSkls(t *testing.T) {
	in := t.TempDir()
	writeTestMotion(t, in, "idle")
	out := t.TempDir()

	c := &converter{outDir: out, format: FormatSkls}
	path := filepath.Join(in, "idle.skl")
	_, err := c.convert(path, c.outputPath(path))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(out, "idle.skls"))
	require.NoError(t, err)
	motions, err := motion.ReadSkls(data, motion.Options{}, nil)
	require.NoError(t, err)
	require.Len(t, motions, 1)
	assert.InDelta(t, 1.5, motions[0].Bones[0].Curves[motion.EnvelopePosY].Evaluate(10), 1e-5)
}

func TestConvertYaml(t *testing.T) {
	in := t.TempDir()
	writeTestMotion(t, in, "idle")

	c := &converter{outDir: in, format: FormatYaml}
	path := filepath.Join(in, "idle.skl")
	_, err := c.convert(path, c.outputPath(path))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(in, "idle.yaml"))
	require.NoError(t, err)
	var motions []*motion.Motion
	require.NoError(t, yaml.Unmarshal(data, &motions))
	require.Len(t, motions, 1)
	assert.Equal(t, "idle", motions[0].Name)
	assert.Equal(t, "bip01", motions[0].Bones[0].Name)
}

func TestConvertOverwrite(t *testing.T) {
	in := t.TempDir()
	writeTestMotion(t, in, "idle")
	c := &converter{outDir: in, format: FormatSkls}
	path := filepath.Join(in, "idle.skl")
	_, err := c.convert(path, c.outputPath(path))
	require.NoError(t, err)

	// idle.skls now exists next to input and would be rewritten by itself
	path = filepath.Join(in, "idle.skls")
	_, err = c.convert(path, c.outputPath(path))
	assert.Error(t, err)
}

func TestConvertOutputConflicts(t *testing.T) {
	in := t.TempDir()
	writeTestMotion(t, in, "walk")
	writeTestMotion(t, in, "idle")
	// walk.skl and walk.skls both convert into walk.skls
	sklsPath := filepath.Join(in, "walk.skls")
	require.NoError(t, os.WriteFile(sklsPath, []byte{0, 0, 0, 0, 0, 0}, 0644))

	files, err := collectInputs(in)
	require.NoError(t, err)
	require.Len(t, files, 3)

	c := &converter{outDir: in, format: FormatSkls}
	outputs, conflicts := c.plan(files)
	assert.Len(t, conflicts, 2)
	assert.Contains(t, conflicts, filepath.Join(in, "walk.skl"))
	assert.Contains(t, conflicts, sklsPath)
	assert.Equal(t, map[string]string{filepath.Join(in, "idle.skl"): sklsPathFor(in, "idle")}, outputs)

	assert.Equal(t, 2, c.run(files, 2))
	data, err := os.ReadFile(sklsPath)
	require.NoError(t, err)
	assert.Len(t, data, 6)
	_, err = os.Stat(sklsPathFor(in, "idle"))
	assert.NoError(t, err)

	// different inputs with the same output name
	out := t.TempDir()
	c = &converter{outDir: out, format: FormatGLTF}
	_, conflicts = c.plan([]string{filepath.Join(in, "walk.skl"), filepath.Join(in, "walk.skls")})
	assert.Len(t, conflicts, 2)
	assert.Equal(t, 2, c.run([]string{filepath.Join(in, "walk.skl"), filepath.Join(in, "walk.skls")}, 1))
	_, err = os.Stat(filepath.Join(out, "walk.glb"))
	assert.True(t, os.IsNotExist(err))
}

func sklsPathFor(dir, name string) string {
	return filepath.Join(dir, name+".skls")
}
