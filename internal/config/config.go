// Package config loads operational knobs for the engine: worker-pool caps,
// progress-tick cadence, and tick-size overrides. Domain constants (tick
// size itself, FOMC dates) stay Go literals in internal/domain and are not
// configurable here.
//
// Grounded on the teacher's internal/application/config.go LoadXConfig(path)
// pattern: read the whole file, unmarshal with yaml.v3, return a pointer.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EngineConfig holds operational settings for a backtestengine process.
type EngineConfig struct {
	Optimizer OptimizerConfig `yaml:"optimizer"`
	HTTP      HTTPConfig      `yaml:"http"`
}

// OptimizerConfig bounds a parameter sweep's concurrency and reporting rate.
type OptimizerConfig struct {
	MaxWorkers           int     `yaml:"max_workers"`
	ProgressTickSeconds  float64 `yaml:"progress_tick_seconds"`
	TickSizeOverride     float64 `yaml:"tick_size_override"`
}

// HTTPConfig configures the thin HTTP front-end.
type HTTPConfig struct {
	Addr            string `yaml:"addr"`
	ReadTimeoutSec  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSec int    `yaml:"write_timeout_seconds"`
}

// Default returns the engine's built-in defaults, used when no config file
// is given.
func Default() EngineConfig {
	return EngineConfig{
		Optimizer: OptimizerConfig{
			MaxWorkers:          6,
			ProgressTickSeconds: 1,
		},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeoutSec:  15,
			WriteTimeoutSec: 30,
		},
	}
}

// Load reads and parses an EngineConfig from path, overlaying it onto the
// built-in defaults so a partial file only overrides what it sets.
func Load(path string) (*EngineConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	c := Default()
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if c.Optimizer.MaxWorkers <= 0 {
		c.Optimizer.MaxWorkers = 6
	}
	return &c, nil
}

// ProgressTickInterval returns the configured progress cadence as a
// time.Duration; a non-positive setting falls back to one second.
func (c EngineConfig) ProgressTickInterval() time.Duration {
	secs := c.Optimizer.ProgressTickSeconds
	if secs <= 0 {
		secs = 1
	}
	return time.Duration(secs * float64(time.Second))
}
