package config

import "flag"

var (
	flagConfig       = flag.String("config", "", "Path to config file")
	flagDebug        = flag.Bool("debug", false, "Enable debug logging")
	flagLogFile      = flag.String("log-file", "", "Write logs to this file")
	flagTheme        = flag.String("theme", "", "Weight color theme (max, maya, softimage, max_influences)")
	flagUndoCapacity = flag.Int("undo-capacity", 0, "Number of undo steps to keep")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagTheme != "" {
		cfg.Editor.ColorTheme = *flagTheme
	}
	if *flagUndoCapacity > 0 {
		cfg.Editor.UndoCapacity = *flagUndoCapacity
	}
}
