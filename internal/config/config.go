// Package config handles editor configuration loading and management.
package config

// Config holds all editor settings.
type Config struct {
	Editor  EditorConfig  `yaml:"editor"`
	Import  ImportConfig  `yaml:"import"`
	Logging LoggingConfig `yaml:"logging"`
}

// EditorConfig holds weight editing settings.
type EditorConfig struct {
	UndoCapacity       int     `yaml:"undo_capacity"`
	PruneThreshold     float64 `yaml:"prune_threshold"`
	SmoothStrength     float64 `yaml:"smooth_strength"`
	AddInfluenceWeight float64 `yaml:"add_influence_weight"` // Weight given to influences added to vertexes
	MaxInfluences      int     `yaml:"max_influences"`
	ColorTheme         string  `yaml:"color_theme"` // max, maya, softimage or max_influences
	ShowAllInfluences  bool    `yaml:"show_all_influences"`
}

// ImportConfig holds skin file import settings.
type ImportConfig struct {
	WorldSpace              bool `yaml:"world_space"`
	CreateMissingInfluences bool `yaml:"create_missing_influences"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Editor: EditorConfig{
			UndoCapacity:       30,
			PruneThreshold:     0.1,
			SmoothStrength:     1.0,
			AddInfluenceWeight: 0.001,
			MaxInfluences:      4,
			ColorTheme:         "max",
			ShowAllInfluences:  false,
		},
		Import: ImportConfig{
			WorldSpace:              false,
			CreateMissingInfluences: true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
