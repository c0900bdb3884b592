// Package logging builds the zap logger shared by the CLI and the
// VBoxManage client.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level names accepted in the config file
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// New returns a logger writing to stderr. Debug uses the human readable
// development encoder; anything else uses the production JSON encoder.
func New(level string, verbose bool) (*zap.Logger, error) {
	if verbose || level == LevelDebug {
		return zap.NewDevelopment()
	}

	lvl := zapcore.WarnLevel
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.Sampling = nil
	return config.Build()
}
