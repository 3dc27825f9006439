package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// AudioConfig controls the output stream and master bus
type AudioConfig struct {
	SampleRate    int     `json:"sampleRate,omitempty"`
	BufferMs      int     `json:"bufferMs,omitempty"`
	MasterVolume  float64 `json:"masterVolume"`
	BusCompressor bool    `json:"busCompressor"`
}

// SchedulerConfig tunes the ticker poll, in seconds
type SchedulerConfig struct {
	Lookahead float64 `json:"lookahead,omitempty"`
	Horizon   float64 `json:"horizon,omitempty"`
}

// InputConfig selects recording inputs
type InputConfig struct {
	TriggerKeys []string `json:"triggerKeys,omitempty"`
	MIDI        bool     `json:"midi"`
	MIDIPort    string   `json:"midiPort,omitempty"` // substring match, empty = first port
}

// UIConfig stores UI preferences
type UIConfig struct {
	LastTempo int `json:"lastTempo,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Audio     AudioConfig     `json:"audio"`
	Scheduler SchedulerConfig `json:"scheduler"`
	SampleDir string          `json:"sampleDir,omitempty"` // empty = built-in kit
	Input     InputConfig     `json:"input"`
	UI        UIConfig        `json:"ui"`
	DebugLog  string          `json:"debugLog,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:    48000,
			BufferMs:      30,
			MasterVolume:  0.7,
			BusCompressor: true,
		},
		Scheduler: SchedulerConfig{
			Lookahead: 0.025,
			Horizon:   0.1,
		},
		Input: InputConfig{
			TriggerKeys: []string{"KeyD", "KeyF", "KeyJ", "KeyK"},
		},
		UI: UIConfig{
			LastTempo: 100,
		},
	}
}

// fillDefaults repairs values a file set out of range. Keys the file leaves
// out already hold their defaults.
func (c *Config) fillDefaults() {
	d := DefaultConfig()
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = d.Audio.SampleRate
	}
	if c.Audio.BufferMs <= 0 {
		c.Audio.BufferMs = d.Audio.BufferMs
	}
	if c.Audio.MasterVolume < 0 {
		c.Audio.MasterVolume = 0
	}
	if c.Audio.MasterVolume > 1 {
		c.Audio.MasterVolume = 1
	}
	if c.Scheduler.Lookahead <= 0 {
		c.Scheduler.Lookahead = d.Scheduler.Lookahead
	}
	if c.Scheduler.Horizon <= 0 {
		c.Scheduler.Horizon = d.Scheduler.Horizon
	}
	if c.UI.LastTempo <= 0 {
		c.UI.LastTempo = d.UI.LastTempo
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "polyclock"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from the default path, or returns defaults if there
// is none
func Load(fs afero.Fs) (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(fs, path)
}

// LoadFrom reads the config at path; a missing file yields defaults
func LoadFrom(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.fillDefaults()
	return cfg, nil
}

// Save writes the config to the default path
func (c *Config) Save(fs afero.Fs) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(fs, path)
}

// SaveTo writes the config to path, creating its directory
func (c *Config) SaveTo(fs afero.Fs, path string) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return afero.WriteFile(fs, path, data, 0644)
}
