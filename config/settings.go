package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Settings is the tools settings file.
// Zero values mean "use the value stored in the file" or library defaults.
type Settings struct {
	FpsOverride       float32 `yaml:"fps_override,omitempty"`
	ValueScale        float32 `yaml:"value_scale,omitempty"`
	Epsilon           float64 `yaml:"epsilon,omitempty"`
	Encoding          string  `yaml:"encoding,omitempty"`
	EnvelopeVersion   uint16  `yaml:"envelope_version,omitempty"`
	DisableResampling bool    `yaml:"disable_resampling,omitempty"`
}

const DefaultSettingsEncoding = "Windows 1251"

func DefaultSettings() *Settings {
	return &Settings{
		ValueScale: 1.0,
		Encoding:   DefaultSettingsEncoding,
	}
}

// LoadSettings reads yaml settings from path.
// Empty path returns defaults.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read settings %q", path)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse settings %q", path)
	}
	if s.ValueScale == 0 {
		s.ValueScale = 1.0
	}
	if s.Epsilon < 0 {
		return nil, errors.Errorf("Negative epsilon %v in %q", s.Epsilon, path)
	}
	return s, nil
}

func (s *Settings) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return errors.Wrapf(err, "Failed to marshal settings")
	}
	return os.WriteFile(path, data, 0644)
}

// Apply sets process-wide state (name encoding) from settings.
func (s *Settings) Apply() error {
	if s.Encoding == "" {
		return nil
	}
	return SetEncoding(s.Encoding)
}
