package types

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RunConfig holds the settings of one VM run. Zero values mean "unset" so
// command line flags can be layered over a config file.
type RunConfig struct {
	Debug      bool          `json:"debug" yaml:"debug"`
	LogLevel   string        `json:"log_level" yaml:"log_level"`
	LogModules string        `json:"log_modules,omitempty" yaml:"log_modules"`
	Trace      string        `json:"trace,omitempty" yaml:"trace"`
	Seed       *uint64       `json:"seed,omitempty" yaml:"seed"`
	Timeout    time.Duration `json:"timeout,omitempty" yaml:"timeout"`
	Stats      bool          `json:"stats" yaml:"stats"`
}

// DefaultRunConfig is used when no config file is given.
func DefaultRunConfig() *RunConfig {
	return &RunConfig{LogLevel: "warn"}
}

// LoadRunConfig reads a YAML config file over the defaults.
func LoadRunConfig(path string) (*RunConfig, error) {
	cfg := DefaultRunConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// String method returns the RunConfig as a formatted JSON string
func (c *RunConfig) String() string {
	jsonData, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("Error marshaling JSON: %v", err)
	}
	return string(jsonData)
}
