package installer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/section-installer/internal/service/runner"
)

// namedProcess implements ps.Process.
type namedProcess struct {
	pid        int
	executable string
}

func (p namedProcess) Pid() int           { return p.pid }
func (p namedProcess) PPid() int          { return 0 }
func (p namedProcess) Executable() string { return p.executable }

// newTestServer reports a CLI process with the same executable name as the current one.
func newTestServer(t *testing.T, interactive bool, calls *[]string) *server {
	t.Helper()

	executable, err := os.Executable()
	require.NoError(t, err)

	return &server{
		interactive: func() bool { return interactive },
		processes: func() ([]ps.Process, error) {
			return []ps.Process{namedProcess{pid: 515151, executable: filepath.Base(executable)}}, nil
		},
		foreground: func(context.Context, *runner.Options) error {
			*calls = append(*calls, "foreground")

			return nil
		},
		background: func(context.Context, *runner.Options) error {
			*calls = append(*calls, "background")

			return nil
		},
	}
}

// TestServe_ServiceIgnoresStartingCLI runs under the service manager even while
// the CLI that started the service is still alive.
func TestServe_ServiceIgnoresStartingCLI(t *testing.T) {
	t.Parallel()

	var calls []string

	err := newTestServer(t, false, &calls).serve(context.Background(), new(runner.Options))
	require.NoError(t, err)
	require.Equal(t, []string{"background"}, calls)
}

// TestServe_ForegroundRefusesSecondEngine keeps a terminal run from racing another engine.
func TestServe_ForegroundRefusesSecondEngine(t *testing.T) {
	t.Parallel()

	var calls []string

	err := newTestServer(t, true, &calls).serve(context.Background(), new(runner.Options))
	require.ErrorIs(t, err, ErrAlreadyRunning)
	require.Empty(t, calls)
}

// TestServe_ForegroundAlone runs the engine when no other process matches.
func TestServe_ForegroundAlone(t *testing.T) {
	t.Parallel()

	var calls []string

	s := newTestServer(t, true, &calls)
	s.processes = func() ([]ps.Process, error) { return nil, nil }

	require.NoError(t, s.serve(context.Background(), new(runner.Options)))
	require.Equal(t, []string{"foreground"}, calls)
}
