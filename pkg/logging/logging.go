// Package logging builds the process logger. The logger is created once at
// startup and handed to every component; nothing here installs globals.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls level, encoding and sinks of the process logger
type Options struct {
	Level  string // debug, info, warn, error
	Format string // json or console
	File   string // append-mode log file; empty logs to stderr only
}

// New creates a zap logger writing to stderr and, when File is set, to File.
// zap opens file sinks with O_APPEND, so earlier runs are preserved.
func New(opts Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(defaultString(opts.Level, "info")))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	encoding := strings.ToLower(defaultString(opts.Format, "console"))
	if encoding != "json" && encoding != "console" {
		return nil, fmt.Errorf("invalid log format %q", opts.Format)
	}

	outputs := []string{"stderr"}
	if opts.File != "" {
		if dir := filepath.Dir(opts.File); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
			}
		}
		outputs = append(outputs, opts.File)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "time"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	cfg := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Encoding:          encoding,
		EncoderConfig:     encoderCfg,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: true,
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
