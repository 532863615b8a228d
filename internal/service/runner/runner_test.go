package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/section-installer/internal/domain/section"
	"github.com/oshokin/section-installer/internal/manifest"
)

var errInjected = errors.New("injected failure")

const threeSections = `[a]
zipFile=https://packages.local/a.zip
scriptFile=install.sh

[b]
zipFile=https://packages.local/b.zip
scriptFile=install.sh

[c]
zipFile=https://packages.local/c.zip
scriptFile=install.sh
`

// recordingExecutor records the order of calls and fails or skips on demand.
type recordingExecutor struct {
	fail  map[string]bool
	skip  map[string]bool
	calls []string
}

func (e *recordingExecutor) ExecuteSection(_ context.Context, sec *section.Section) (section.State, error) {
	e.calls = append(e.calls, sec.Name)

	switch {
	case e.fail[sec.Name]:
		return section.StateFailed, errInjected
	case e.skip[sec.Name]:
		return section.StateSkipped, nil
	default:
		return section.StateExecuted, nil
	}
}

// TestRun_DeclarationOrder executes every section in the order of its header.
func TestRun_DeclarationOrder(t *testing.T) {
	t.Parallel()

	exec := new(recordingExecutor)

	summary, err := New(exec).Run(context.Background(), []byte(threeSections))
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, exec.calls)
	require.Equal(t, &Summary{Executed: 3}, summary)
}

// TestRun_StopsAtFirstFailure never attempts sections after the failing one.
func TestRun_StopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	exec := &recordingExecutor{fail: map[string]bool{"b": true}}

	summary, err := New(exec).Run(context.Background(), []byte(threeSections))
	require.ErrorIs(t, err, errInjected)
	require.Contains(t, err.Error(), `"b"`)
	require.Equal(t, []string{"a", "b"}, exec.calls)
	require.Equal(t, 1, summary.Executed)
}

// TestRun_CountsSkipped reports sections skipped by the executor.
func TestRun_CountsSkipped(t *testing.T) {
	t.Parallel()

	exec := &recordingExecutor{skip: map[string]bool{"a": true, "b": true}}

	summary, err := New(exec).Run(context.Background(), []byte(threeSections))
	require.NoError(t, err)
	require.Equal(t, &Summary{Executed: 1, Skipped: 2}, summary)
}

// TestRun_InvalidManifestExecutesNothing rejects the whole document before the first section.
func TestRun_InvalidManifestExecutesNothing(t *testing.T) {
	t.Parallel()

	exec := new(recordingExecutor)

	_, err := New(exec).Run(context.Background(), []byte(threeSections+"\n[a]\nzipFile=x\n"))
	require.ErrorIs(t, err, manifest.ErrDuplicateSection)
	require.Empty(t, exec.calls)
}

// TestRun_EmptyManifest succeeds without executing anything.
func TestRun_EmptyManifest(t *testing.T) {
	t.Parallel()

	exec := new(recordingExecutor)

	summary, err := New(exec).Run(context.Background(), []byte("# nothing to install\n"))
	require.NoError(t, err)
	require.Empty(t, exec.calls)
	require.Equal(t, &Summary{}, summary)
}

// TestRun_Canceled stops before the next section once the context is done.
func TestRun_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := new(recordingExecutor)

	_, err := New(exec).Run(ctx, []byte(threeSections))
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, exec.calls)
}

// TestRunEntryPoint_ResumesAfterFailure runs a manifest from disk twice: the failing
// section is not retried and later sections still never run after the halt.
//
// It replaces the global logger, so it does not run in parallel.
func TestRunEntryPoint_ResumesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "install.ini")
	packagePath := filepath.Join(dir, "missing.zip")

	contents := "[first]\nzipFile=" + fileURL(packagePath) + "\nscriptFile=install.sh\n\n" +
		"[second]\nzipFile=" + fileURL(packagePath) + "\nscriptFile=install.sh\n"
	require.NoError(t, os.WriteFile(manifestPath, []byte(contents), 0o600))

	configPath := filepath.Join(dir, "settings.yaml")
	settings := "program_name: runner-test\n" +
		"data_dir: " + filepath.ToSlash(dir) + "\n" +
		"log_file: console\n"
	require.NoError(t, os.WriteFile(configPath, []byte(settings), 0o600))

	opts := &Options{ConfigPath: configPath, ManifestPath: manifestPath}

	// The package does not exist: "first" is checkpointed and then fails.
	err := Run(context.Background(), opts)
	require.Error(t, err)
	require.Contains(t, err.Error(), `"first"`)

	ledgerContents, err := os.ReadFile(filepath.Join(dir, "runner-test.ledger"))
	require.NoError(t, err)
	require.Equal(t, "first\n", string(ledgerContents))

	// The resumed run skips "first" and halts on "second".
	err = Run(context.Background(), opts)
	require.Error(t, err)
	require.Contains(t, err.Error(), `"second"`)

	ledgerContents, err = os.ReadFile(filepath.Join(dir, "runner-test.ledger"))
	require.NoError(t, err)
	require.Equal(t, "first\nsecond\n", string(ledgerContents))
}

func fileURL(path string) string {
	path = filepath.ToSlash(path)
	if len(path) > 0 && path[0] != '/' {
		path = "/" + path
	}

	return "file://" + path
}
