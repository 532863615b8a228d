package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":  zapcore.DebugLevel,
		"info":   zapcore.InfoLevel,
		" WARN ": zapcore.WarnLevel,
		"error":  zapcore.ErrorLevel,
		"panic":  zapcore.PanicLevel,
		"fatal":  zapcore.FatalLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("unknown")
	require.False(t, ok)
}

// TestFromContext_FallsBackToGlobal checks that a bare context yields the global logger.
func TestFromContext_FallsBackToGlobal(t *testing.T) {
	t.Parallel()

	require.Same(t, global, FromContext(context.Background()))

	scoped := New(zapcore.DebugLevel)
	ctx := ToContext(context.Background(), scoped)
	require.Same(t, scoped, FromContext(ctx))

	named := WithName(ctx, "runner")
	require.NotSame(t, scoped, FromContext(named))
}

// TestNewWithFile_WritesToFile ensures the file sink receives entries and can be closed.
func TestNewWithFile_WritesToFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "engine.log")

	l, closeFn, err := NewWithFile(zapcore.InfoLevel, FileOptions{Path: path})
	require.NoError(t, err)

	l.Infow("section started", "section", "base")
	require.NoError(t, closeFn())

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(contents), "section started")
	require.Contains(t, string(contents), "base")
}
