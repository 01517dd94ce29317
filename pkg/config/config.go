// Package config holds the ingestion core's ambient configuration: protocol
// limits, logging, and the handful of sync-specific knobs a node operator
// can tune. It is loaded from YAML, in the teacher's style.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level, YAML-loaded node configuration.
type Config struct {
	Consensus Consensus `yaml:"Consensus"`
	Logger    Logger    `yaml:"Logger"`
}

// Default returns a Config with spec.md-compatible defaults.
func Default() Config {
	return Config{
		Consensus: DefaultConsensus(),
		Logger: Logger{
			LogEncoding: "console",
			LogLevel:    "info",
		},
	}
}

// Validate checks every sub-config.
func (c Config) Validate() error {
	if err := c.Consensus.Validate(); err != nil {
		return err
	}
	if err := c.Logger.Validate(); err != nil {
		return err
	}
	return nil
}

// Load reads and parses a YAML config file at path, filling any
// unspecified field from Default().
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
