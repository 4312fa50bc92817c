package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"bandmate/sequencer"

	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation failure
var ErrInvalid = errors.New("invalid config")

// AudioConfig selects and shapes the input
type AudioConfig struct {
	SampleRate  int     `yaml:"sampleRate"`
	BlockSize   int     `yaml:"blockSize"`
	RingSeconds float64 `yaml:"ringSeconds"`
	Device      string  `yaml:"device,omitempty"` // index or name substring, empty = default input
	File        string  `yaml:"file,omitempty"`   // WAV file instead of live input
	Loop        bool    `yaml:"loop,omitempty"`
}

// AnalysisConfig stores analysis timing
type AnalysisConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// MIDIConfig defines the output
type MIDIConfig struct {
	Port        string `yaml:"port,omitempty"` // substring of the output port name
	DrumChannel int    `yaml:"drumChannel"`    // 0-based
	BassChannel int    `yaml:"bassChannel"`    // 0-based
	BassProgram int    `yaml:"bassProgram"`
	Kit         string `yaml:"kit"`
	Record      string `yaml:"record,omitempty"` // .mid path
}

// GrooveConfig stores tempo behaviour
type GrooveConfig struct {
	StartTempo float64 `yaml:"startTempo"`
	FixedTempo float64 `yaml:"fixedTempo,omitempty"` // 0 follows the input
}

// UIConfig stores UI preferences
type UIConfig struct {
	Monitor bool `yaml:"monitor"`
	Debug   bool `yaml:"debug,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Audio    AudioConfig    `yaml:"audio"`
	Analysis AnalysisConfig `yaml:"analysis"`
	MIDI     MIDIConfig     `yaml:"midi"`
	Groove   GrooveConfig   `yaml:"groove"`
	UI       UIConfig       `yaml:"ui"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:  22050,
			BlockSize:   2048,
			RingSeconds: 8,
		},
		Analysis: AnalysisConfig{
			Interval: 2 * time.Second,
		},
		MIDI: MIDIConfig{
			DrumChannel: 9,
			BassChannel: 0,
			BassProgram: sequencer.DefaultBassProgram,
			Kit:         sequencer.DefaultKit,
		},
		Groove: GrooveConfig{
			StartTempo: 100,
		},
		UI: UIConfig{
			Monitor: true,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "bandmate"), nil
}

// ConfigPath returns the full path to config.yaml
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the default config file, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads path over the defaults. A missing file yields defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path, creating its directory
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports the first out-of-range setting
func (c *Config) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
	}
	switch {
	case c.Audio.SampleRate < 4000 || c.Audio.SampleRate > 192000:
		return bad("sample rate %d out of range", c.Audio.SampleRate)
	case c.Audio.BlockSize <= 0:
		return bad("block size %d must be positive", c.Audio.BlockSize)
	case c.Audio.RingSeconds < 1:
		return bad("ring of %vs is too short", c.Audio.RingSeconds)
	case c.Analysis.Interval < 100*time.Millisecond:
		return bad("analysis interval %v is too short", c.Analysis.Interval)
	case c.MIDI.DrumChannel < 0 || c.MIDI.DrumChannel > 15:
		return bad("drum channel %d not in 0-15", c.MIDI.DrumChannel)
	case c.MIDI.BassChannel < 0 || c.MIDI.BassChannel > 15:
		return bad("bass channel %d not in 0-15", c.MIDI.BassChannel)
	case c.MIDI.BassProgram < 0 || c.MIDI.BassProgram > 127:
		return bad("bass program %d not in 0-127", c.MIDI.BassProgram)
	case !finite(c.Groove.StartTempo) || c.Groove.StartTempo <= 0:
		return bad("start tempo %v must be positive", c.Groove.StartTempo)
	case !finite(c.Groove.FixedTempo) || c.Groove.FixedTempo < 0:
		return bad("fixed tempo %v must be 0 or positive", c.Groove.FixedTempo)
	}
	if _, ok := sequencer.Kits[c.MIDI.Kit]; !ok {
		return bad("unknown kit %q (have %v)", c.MIDI.Kit, sequencer.KitNames())
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Voices builds the playback routing
func (c *Config) Voices() sequencer.Voices {
	v := sequencer.DefaultVoices()
	v.DrumChannel = uint8(c.MIDI.DrumChannel)
	v.BassChannel = uint8(c.MIDI.BassChannel)
	v.Kit = sequencer.GetKit(c.MIDI.Kit)
	return v
}

// SchedulerOptions builds the scheduler settings
func (c *Config) SchedulerOptions() sequencer.SchedulerOptions {
	return sequencer.SchedulerOptions{
		Voices:      c.Voices(),
		BassProgram: uint8(c.MIDI.BassProgram),
		FixedTempo:  c.Groove.FixedTempo,
	}
}
