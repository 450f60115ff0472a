package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/weights-editor/pkg/colors"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Try to load from file (explicit path takes priority)
	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	// Apply CLI flags (highest priority)
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		DefaultPath(),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "WeightsEditor")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "WeightsEditor")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "weights-editor")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "weights-editor")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// ErrInvalidConfig is returned when a loaded value is out of range.
var ErrInvalidConfig = errors.New("invalid config")

// Validate checks value ranges the editor relies on.
func (c *Config) Validate() error {
	e := c.Editor
	switch {
	case e.UndoCapacity < 1:
		return fmt.Errorf("%w: undo_capacity %d", ErrInvalidConfig, e.UndoCapacity)
	case e.PruneThreshold < 0 || e.PruneThreshold > 1:
		return fmt.Errorf("%w: prune_threshold %v", ErrInvalidConfig, e.PruneThreshold)
	case e.SmoothStrength < 0 || e.SmoothStrength > 1:
		return fmt.Errorf("%w: smooth_strength %v", ErrInvalidConfig, e.SmoothStrength)
	case e.AddInfluenceWeight <= 0 || e.AddInfluenceWeight > 1:
		return fmt.Errorf("%w: add_influence_weight %v", ErrInvalidConfig, e.AddInfluenceWeight)
	case e.MaxInfluences < 1:
		return fmt.Errorf("%w: max_influences %d", ErrInvalidConfig, e.MaxInfluences)
	}
	if _, err := colors.ParseTheme(e.ColorTheme); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
