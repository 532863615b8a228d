package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions controls rotation of the log file sink.
type FileOptions struct {
	// Path is the log file location. An empty path disables the file sink.
	Path string
	// MaxSizeMB is the size in megabytes after which the file is rotated.
	MaxSizeMB int
	// MaxBackups is the number of rotated files to keep.
	MaxBackups int
	// MaxAgeDays is the number of days to retain rotated files.
	MaxAgeDays int
}

const (
	defaultMaxSizeMB  = 5
	defaultMaxBackups = 10
	defaultMaxAgeDays = 30
	logDirPermissions = 0o750
)

// NewWithFile creates a logger writing to stdout and, when opts.Path is set,
// to a rotating file. The returned close function flushes and releases the file.
func NewWithFile(level zapcore.LevelEnabler, opts FileOptions, options ...zap.Option) (*zap.SugaredLogger, func() error, error) {
	if level == nil {
		level = defaultLevel
	}

	if opts.Path == "" || opts.Path == "console" {
		l := New(level, options...)

		return l, l.Sync, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), logDirPermissions); err != nil {
		return nil, nil, err
	}

	sink := &lumberjack.Logger{
		Filename:   filepath.ToSlash(opts.Path),
		MaxSize:    valueOrDefault(opts.MaxSizeMB, defaultMaxSizeMB),
		MaxBackups: valueOrDefault(opts.MaxBackups, defaultMaxBackups),
		MaxAge:     valueOrDefault(opts.MaxAgeDays, defaultMaxAgeDays),
		Compress:   true,
	}

	core := zapcore.NewTee(
		zapcore.NewCore(newConsoleEncoder(zapcore.CapitalColorLevelEncoder), zapcore.AddSync(os.Stdout), level),
		zapcore.NewCore(newConsoleEncoder(zapcore.CapitalLevelEncoder), zapcore.AddSync(sink), level),
	)

	l := zap.New(core, options...).Sugar()

	closeFn := func() error {
		_ = l.Sync()

		return sink.Close()
	}

	return l, closeFn, nil
}

func valueOrDefault(value, fallback int) int {
	if value > 0 {
		return value
	}

	return fallback
}
