package web

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/mogaika/xray_motion_browser/pack/xray/envelope"
	"github.com/mogaika/xray_motion_browser/pack/xray/motion"
	"github.com/mogaika/xray_motion_browser/status"
)

// MotionFile is a decoded .skl or .skls file
type MotionFile struct {
	Name        string                `json:"name"`
	Motions     []*motion.Motion      `json:"motions"`
	Diagnostics *envelope.Diagnostics `json:"diagnostics"`
	Shapes      []string              `json:"shapes"`
}

type cachedFile struct {
	modTime time.Time
	size    int64
	file    *MotionFile
}

// Library serves motion files of directory, decoded files are cached until changed
type Library struct {
	Dir  string
	Opts motion.Options
	// optional, receives load events
	Status *status.Hub

	lock  sync.Mutex
	cache map[string]*cachedFile
	group singleflight.Group
}

func NewLibrary(dir string, opts motion.Options) *Library {
	return &Library{
		Dir:   dir,
		Opts:  opts,
		cache: make(map[string]*cachedFile),
	}
}

func (l *Library) List() ([]string, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, errors.Wrapf(err, "Error getting directory %q info", l.Dir)
	}
	result := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && motion.IsMotionFile(e.Name()) {
			result = append(result, e.Name())
		}
	}
	sort.Strings(result)
	return result, nil
}

func (l *Library) path(name string) (string, error) {
	if name == "" || filepath.Base(name) != name || !motion.IsMotionFile(name) {
		return "", errors.Errorf("Invalid motion file name %q", name)
	}
	return filepath.Join(l.Dir, name), nil
}

func (l *Library) Get(name string) (*MotionFile, error) {
	path, err := l.path(name)
	if err != nil {
		return nil, err
	}
	stat, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Stat error")
	}

	l.lock.Lock()
	cached, ok := l.cache[name]
	l.lock.Unlock()
	if ok && cached.modTime.Equal(stat.ModTime()) && cached.size == stat.Size() {
		return cached.file, nil
	}

	f, err, _ := l.group.Do(name, func() (interface{}, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to read %q", name)
		}
		diag := envelope.NewDiagnostics()
		motions, err := motion.Open(name, data, l.Opts, diag)
		if err != nil {
			l.Status.Error(name, err)
			return nil, err
		}
		file := &MotionFile{Name: name, Motions: motions, Diagnostics: diag, Shapes: diag.Shapes()}
		l.Status.Info(name, "decoded %d motions, shapes %v", len(motions), file.Shapes)
		l.Status.Diagnostics(name, diag)

		l.lock.Lock()
		l.cache[name] = &cachedFile{modTime: stat.ModTime(), size: stat.Size(), file: file}
		l.lock.Unlock()
		return file, nil
	})
	if err != nil {
		return nil, err
	}
	return f.(*MotionFile), nil
}
