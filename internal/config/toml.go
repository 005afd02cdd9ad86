// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Practice PracticeConfig `toml:"practice"`
	Stats    StatsConfig    `toml:"stats"`
	Log      LogConfig      `toml:"log"`
}

// PracticeConfig maps practice-related settings.
type PracticeConfig struct {
	Variant     *string  `toml:"variant"`
	TimeLimitMs *int     `toml:"time-limit-ms"`
	Mute        *bool    `toml:"mute"`
	Volume      *float64 `toml:"volume"`
	DecayPerDay *float64 `toml:"decay-per-day"`
	Seed        *int64   `toml:"seed"`
}

// StatsConfig maps stats-related settings.
type StatsConfig struct {
	CurveWindow *int `toml:"curve-window"`
	Last        *int `toml:"last"`
}

// LogConfig maps diagnostic log settings.
type LogConfig struct {
	Level *string `toml:"level"`
	File  *string `toml:"file"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Load reads the TOML file at path and overlays STAFFDRILL_* environment
// variables on top of it.
func Load(path string) (FileConfig, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return FileConfig{}, err
	}
	env, err := LoadEnv()
	if err != nil {
		return FileConfig{}, err
	}
	cfg.Overlay(env)
	return cfg, nil
}

// Overlay copies every value set in src over c.
func (c *FileConfig) Overlay(src FileConfig) {
	set(&c.Practice.Variant, src.Practice.Variant)
	set(&c.Practice.TimeLimitMs, src.Practice.TimeLimitMs)
	set(&c.Practice.Mute, src.Practice.Mute)
	set(&c.Practice.Volume, src.Practice.Volume)
	set(&c.Practice.DecayPerDay, src.Practice.DecayPerDay)
	set(&c.Practice.Seed, src.Practice.Seed)
	set(&c.Stats.CurveWindow, src.Stats.CurveWindow)
	set(&c.Stats.Last, src.Stats.Last)
	set(&c.Log.Level, src.Log.Level)
	set(&c.Log.File, src.Log.File)
}

func set[T any](dst **T, src *T) {
	if src != nil {
		v := *src
		*dst = &v
	}
}
