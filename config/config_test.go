package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Audio.SampleRate != 22050 || cfg.Audio.BlockSize != 2048 || cfg.Audio.RingSeconds != 8 {
		t.Errorf("audio defaults = %+v", cfg.Audio)
	}
	if cfg.Analysis.Interval != 2*time.Second || cfg.Groove.StartTempo != 100 {
		t.Errorf("timing defaults = %+v %+v", cfg.Analysis, cfg.Groove)
	}
	v := cfg.Voices()
	if v.DrumChannel != 9 || v.BassChannel != 0 || v.Kit.Snare != 38 {
		t.Errorf("voices = %+v", v)
	}
	if cfg.SchedulerOptions().BassProgram != 33 {
		t.Error("default bass program is not 33")
	}
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MIDI.Kit != "gm" {
		t.Errorf("kit = %q", cfg.MIDI.Kit)
	}
}

func TestLoadOverridesOnlyGivenKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
analysis:
  interval: 1500ms
midi:
  port: TR-8S
  kit: rd8
groove:
  fixedTempo: 96
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Analysis.Interval != 1500*time.Millisecond {
		t.Errorf("interval = %v", cfg.Analysis.Interval)
	}
	if cfg.MIDI.Port != "TR-8S" || cfg.Voices().Kit.Snare != 40 {
		t.Errorf("midi = %+v", cfg.MIDI)
	}
	if cfg.SchedulerOptions().FixedTempo != 96 {
		t.Errorf("fixed tempo = %v", cfg.Groove.FixedTempo)
	}
	// untouched keys keep defaults
	if cfg.Audio.SampleRate != 22050 || cfg.MIDI.DrumChannel != 9 || !cfg.UI.Monitor {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestNaNTempoFromFileIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("groove:\n  startTempo: .nan\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(cfg.Groove.StartTempo) {
		t.Fatalf("start tempo = %v, want NaN", cfg.Groove.StartTempo)
	}
	if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("audio: [1, 2"), 0644)
	if _, err := LoadFrom(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := DefaultConfig()
	cfg.MIDI.Record = "take.mid"
	cfg.Analysis.Interval = 3 * time.Second
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	got, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if *got != *cfg {
		t.Errorf("loaded %+v, want %+v", got, cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"sample rate", func(c *Config) { c.Audio.SampleRate = 0 }},
		{"block size", func(c *Config) { c.Audio.BlockSize = -1 }},
		{"ring", func(c *Config) { c.Audio.RingSeconds = 0.5 }},
		{"interval", func(c *Config) { c.Analysis.Interval = time.Millisecond }},
		{"drum channel", func(c *Config) { c.MIDI.DrumChannel = 16 }},
		{"bass channel", func(c *Config) { c.MIDI.BassChannel = -1 }},
		{"program", func(c *Config) { c.MIDI.BassProgram = 128 }},
		{"start tempo", func(c *Config) { c.Groove.StartTempo = 0 }},
		{"fixed tempo", func(c *Config) { c.Groove.FixedTempo = -5 }},
		{"start tempo NaN", func(c *Config) { c.Groove.StartTempo = math.NaN() }},
		{"start tempo Inf", func(c *Config) { c.Groove.StartTempo = math.Inf(1) }},
		{"fixed tempo NaN", func(c *Config) { c.Groove.FixedTempo = math.NaN() }},
		{"fixed tempo Inf", func(c *Config) { c.Groove.FixedTempo = math.Inf(1) }},
		{"kit", func(c *Config) { c.MIDI.Kit = "909" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("err = %v, want ErrInvalid", err)
			}
		})
	}
}
