package main

import (
	"bytes"
	"flag"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/mogaika/xray_motion_browser/config"
	"github.com/mogaika/xray_motion_browser/pack/xray/envelope"
	"github.com/mogaika/xray_motion_browser/pack/xray/motion"
	"github.com/mogaika/xray_motion_browser/utils"
)

const (
	FormatSkls = "skls"
	FormatGLTF = "gltf"
	FormatYaml = "yaml"
)

var formatExtensions = map[string]string{
	FormatSkls: ".skls",
	FormatGLTF: ".glb",
	FormatYaml: ".yaml",
}

type converter struct {
	outDir string
	format string
	dump   bool
	opts   motion.Options
}

// collectInputs returns motion files of in, or in itself when it is a file
func collectInputs(in string) ([]string, error) {
	stat, err := os.Stat(in)
	if err != nil {
		return nil, errors.Wrapf(err, "Stat error")
	}
	if !stat.IsDir() {
		return []string{in}, nil
	}

	var files []string
	err = filepath.Walk(in, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && motion.IsMotionFile(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, errors.Wrapf(err, "Failed to walk %q", in)
}

func (c *converter) encode(motions []*motion.Motion, diag *envelope.Diagnostics) ([]byte, error) {
	switch c.format {
	case FormatSkls:
		return motion.MarshalSkls(motions, c.opts, diag)
	case FormatGLTF:
		var buf bytes.Buffer
		if err := motion.ExportGLTF(&buf, motions, c.opts); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatYaml:
		return yaml.Marshal(motions)
	default:
		return nil, errors.Errorf("Unknown format %q", c.format)
	}
}

func (c *converter) outputPath(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return filepath.Join(c.outDir, base+formatExtensions[c.format])
}

func cleanPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// plan maps every input to its output. Inputs whose output is another
// input or is shared with other inputs are returned as conflicts.
func (c *converter) plan(files []string) (map[string]string, map[string]error) {
	inputs := make(map[string]string, len(files))
	for _, path := range files {
		inputs[cleanPath(path)] = path
	}
	writers := make(map[string][]string)
	outputs := make(map[string]string, len(files))
	for _, path := range files {
		out := c.outputPath(path)
		outputs[path] = out
		writers[cleanPath(out)] = append(writers[cleanPath(out)], path)
	}

	conflicts := make(map[string]error)
	for out, paths := range writers {
		if input, ok := inputs[out]; ok {
			for _, path := range paths {
				conflicts[path] = errors.Errorf("Output %q overwrites input %q", outputs[path], input)
			}
		} else if len(paths) > 1 {
			for _, path := range paths {
				conflicts[path] = errors.Errorf("Output %q is shared by %d inputs %v", outputs[path], len(paths), paths)
			}
		}
	}
	for path := range conflicts {
		delete(outputs, path)
	}
	return outputs, conflicts
}

func (c *converter) convert(path, outPath string) (*envelope.Diagnostics, error) {
	diag := envelope.NewDiagnostics()
	if cleanPath(outPath) == cleanPath(path) {
		return diag, errors.Errorf("Output %q overwrites input", outPath)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return diag, errors.Wrapf(err, "Failed to read")
	}

	motions, err := motion.Open(path, data, c.opts, diag)
	if err != nil {
		return diag, err
	}
	if c.dump {
		utils.Dump(motions)
	}

	out, err := c.encode(motions, diag)
	if err != nil {
		return diag, errors.Wrapf(err, "Failed to encode %q", path)
	}

	if err := os.WriteFile(outPath, out, 0666); err != nil {
		return diag, errors.Wrapf(err, "Failed to write %q", outPath)
	}
	log.Printf("[sklconv] %s -> %s: %d motions, %d diagnostics", path, outPath, len(motions), diag.Len())
	return diag, nil
}

// run converts every file with at most jobs workers. Returns count of failed files.
// Files with conflicting outputs are not converted and count as failed.
func (c *converter) run(files []string, jobs int) int {
	outputs, conflicts := c.plan(files)
	failed := int32(len(conflicts))
	for _, path := range files {
		if err, ok := conflicts[path]; ok {
			log.Printf("[sklconv] %s: %v", path, err)
		}
	}

	var g errgroup.Group
	g.SetLimit(jobs)
	for _, path := range files {
		path := path
		outPath, ok := outputs[path]
		if !ok {
			continue
		}
		g.Go(func() error {
			diag, err := c.convert(path, outPath)
			for _, d := range diag.List {
				log.Printf("[sklconv] %s: %v", path, d)
			}
			if err != nil {
				log.Printf("[sklconv] %s: %v", path, err)
				atomic.AddInt32(&failed, 1)
			}
			return nil
		})
	}
	g.Wait()
	return int(failed)
}

func main() {
	var in, out, format, settingsPath string
	var dump, verbose bool
	var jobs int
	flag.StringVar(&in, "in", "", "Motion file or directory with .skl/.skls files")
	flag.StringVar(&out, "out", "", "Output directory (default: same as input)")
	flag.StringVar(&format, "format", FormatSkls, "Output format: skls, gltf or yaml")
	flag.StringVar(&settingsPath, "settings", "", "Path to yaml settings file")
	flag.BoolVar(&dump, "dump", false, "Dump decoded motions to stdout")
	flag.BoolVar(&verbose, "v", false, "Trace every envelope key")
	flag.IntVar(&jobs, "j", runtime.NumCPU(), "Count of parallel conversions")
	flag.Parse()

	if in == "" {
		flag.PrintDefaults()
		return
	}
	if _, ok := formatExtensions[format]; !ok {
		log.Fatalf("[sklconv] Unknown format %q", format)
	}
	if jobs < 1 {
		jobs = 1
	}

	settings, err := config.LoadSettings(settingsPath)
	if err != nil {
		log.Fatal(err)
	}
	if err := settings.Apply(); err != nil {
		log.Fatal(err)
	}

	var logger *utils.Logger
	if verbose {
		logger = utils.NewLogger(os.Stdout)
	}

	files, err := collectInputs(in)
	if err != nil {
		log.Fatal(err)
	}
	if len(files) == 0 {
		log.Printf("[sklconv] No motion files in %q", in)
		return
	}
	if out == "" {
		out = filepath.Dir(files[0])
		if stat, err := os.Stat(in); err == nil && stat.IsDir() {
			out = in
		}
	}
	if err := os.MkdirAll(out, 0777); err != nil {
		log.Fatal(err)
	}

	c := &converter{outDir: out, format: format, dump: dump, opts: motion.OptionsFromSettings(settings, logger)}
	if failed := c.run(files, jobs); failed != 0 {
		log.Printf("[sklconv] %d of %d files failed", failed, len(files))
		os.Exit(1)
	}
	log.Printf("[sklconv] Converted %d files", len(files))
}
