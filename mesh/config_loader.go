package mesh

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads the unified configuration from a YAML file.
// Cleaning parameters left out of the file keep their defaults, so a config
// that only names scans still runs the full four-stage pipeline.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Config{Clean: DefaultCleanConfig()}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

func validateConfig(config *Config) error {
	if config.Clean.BorderRings < 0 {
		return fmt.Errorf("clean.borderRings must be non-negative, got %d", config.Clean.BorderRings)
	}
	if config.Clean.CurvHighThresh < config.Clean.CurvLowThresh {
		return fmt.Errorf("clean.curvHighThresh (%g) must not be below clean.curvLowThresh (%g)",
			config.Clean.CurvHighThresh, config.Clean.CurvLowThresh)
	}
	if config.Clean.VarianceThresh < 0 {
		return fmt.Errorf("clean.varianceThresh must be non-negative, got %g", config.Clean.VarianceThresh)
	}

	seen := make(map[string]bool, len(config.Scans))
	for i, sc := range config.Scans {
		if sc.ID == "" {
			return fmt.Errorf("scans[%d].id is required", i)
		}
		if seen[sc.ID] {
			return fmt.Errorf("duplicate scan id %q", sc.ID)
		}
		seen[sc.ID] = true
		if sc.Path == "" && sc.URL == "" {
			return fmt.Errorf("scans[%d] (%s): either path or url is required", i, sc.ID)
		}
	}

	return nil
}
