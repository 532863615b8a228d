//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"errors"
	"fmt"

	"github.com/oshokin/section-installer/internal/config"
	"github.com/oshokin/section-installer/internal/logger"
)

var errUnknownLogLevel = errors.New("unknown log level")

// SetupLogger replaces the global logger with one writing to stdout and the
// configured log file. levelOverride wins over the configured level when set.
// The returned function flushes and closes the file sink.
func SetupLogger(cfg *config.Config, levelOverride string) (func() error, error) {
	levelName := cfg.LogLevel
	if levelOverride != "" {
		levelName = levelOverride
	}

	level, ok := logger.ParseLogLevel(levelName)
	if !ok {
		return nil, fmt.Errorf("%q: %w", levelName, errUnknownLogLevel)
	}

	logger.SetLevel(level)

	l, closeFn, err := logger.NewWithFile(nil, fileOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	logger.SetLogger(l)

	return closeFn, nil
}

// fileOptions maps the rotation settings; zero values fall back to the logger defaults.
func fileOptions(cfg *config.Config) logger.FileOptions {
	return logger.FileOptions{
		Path:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	}
}
