package app

import (
	"io"

	"infometis/pkg/logging"
)

// Config holds the process-level settings given on the command line.
type Config struct {
	// ConfigDir overrides the default configuration directory.
	ConfigDir string
	LogLevel  logging.LogLevel
	// LogOutput receives log lines. Defaults to stderr.
	LogOutput io.Writer
	// Server selects JSON logging.
	Server bool
}

// NewConfig creates a Config.
func NewConfig(configDir string, level logging.LogLevel, logOutput io.Writer) *Config {
	return &Config{
		ConfigDir: configDir,
		LogLevel:  level,
		LogOutput: logOutput,
	}
}
