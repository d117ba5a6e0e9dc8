package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// WatchTarget describes one named evaluation the daemon performs on every
// poll: either a discovery sweep over Filter or a single explicit Unit.
type WatchTarget struct {
	Name    string        `yaml:"name"`
	Filter  string        `yaml:"filter,omitempty"`
	Unit    string        `yaml:"unit,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// TargetsFile is the parsed YAML structure for multi-target watches:
// targets: [{name, filter|unit, timeout}]
type TargetsFile struct {
	Targets []WatchTarget `yaml:"targets"`
}

// LoadTargetsFile parses a YAML targets file from the given path.
// Returns nil if path is empty (no targets file).
func LoadTargetsFile(path string) ([]WatchTarget, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}

	var tf TargetsFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse targets file: %w", err)
	}

	if err := validateTargets(tf.Targets); err != nil {
		return nil, err
	}

	return tf.Targets, nil
}

// validateTargets ensures all targets are valid.
func validateTargets(targets []WatchTarget) error {
	if len(targets) == 0 {
		return fmt.Errorf("targets file contains no targets")
	}

	seen := make(map[string]bool)

	for i, target := range targets {
		if target.Name == "" {
			return fmt.Errorf("target %d: name is required", i)
		}

		if seen[target.Name] {
			return fmt.Errorf("target %q: duplicate name", target.Name)
		}
		seen[target.Name] = true

		if target.Unit != "" && target.Filter != "" {
			return fmt.Errorf("target %q: unit and filter are mutually exclusive", target.Name)
		}
		if target.Unit == "" && target.Filter == "" {
			return fmt.Errorf("target %q: either unit or filter is required", target.Name)
		}

		if target.Filter != "" {
			if _, err := regexp.Compile(target.Filter); err != nil {
				return fmt.Errorf("target %q: invalid filter: %w", target.Name, err)
			}
		}

		if target.Timeout < 0 {
			return fmt.Errorf("target %q: timeout cannot be negative", target.Name)
		}
	}

	return nil
}
