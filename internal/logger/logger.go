// Package logger builds the zap logger. Output goes to a file because the
// terminal belongs to the TUI.
package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production JSON logger writing to path at the given level.
// An empty path logs to stderr.
func New(path, level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logger.New: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Sampling = nil
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("logger.New: create log dir: %w", err)
		}
		cfg.OutputPaths = []string{path}
		cfg.ErrorOutputPaths = []string{path}
	}

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logger.New: %w", err)
	}
	return l, nil
}
