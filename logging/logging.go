// Package logging builds the zap loggers used by the nearabi commands.
// Console output always goes to a terminal stream (stderr by default) so
// that ABI documents written to stdout stay clean; an optional log file is
// rotated by lumberjack.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	Level  string // debug, info, warn or error
	Format string // console or json

	// File, when set, receives JSON logs at the same level.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// Output is the console stream. Defaults to os.Stderr.
	Output io.Writer
}

// ParseLevel maps a level name to a zap level.
func ParseLevel(s string) (zapcore.Level, error) {
	var l zapcore.Level
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	if err := l.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return l, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}

// New builds a logger from opts.
func New(opts Options) (*zap.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var consoleEncoder zapcore.Encoder
	switch opts.Format {
	case "", "console":
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout(time.TimeOnly)
		consoleEncoder = zapcore.NewConsoleEncoder(cfg)
	case "json":
		consoleEncoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	default:
		return nil, fmt.Errorf("invalid log format %q", opts.Format)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.AddSync(out), zap.NewAtomicLevelAt(level)),
	}
	if opts.File != "" {
		w, err := fileWriter(opts)
		if err != nil {
			return nil, err
		}
		fileEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(fileEncoder, w, zap.NewAtomicLevelAt(level)))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

func fileWriter(opts Options) (zapcore.WriteSyncer, error) {
	if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
	}), nil
}

// WithRunID tags every entry of logger with a fresh run_id and returns it.
func WithRunID(logger *zap.Logger) (*zap.Logger, string) {
	id := uuid.NewString()
	return logger.With(zap.String("run_id", id)), id
}
