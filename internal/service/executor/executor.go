package executor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/section-installer/internal/config"
	"github.com/oshokin/section-installer/internal/domain/section"
	"github.com/oshokin/section-installer/internal/logger"
)

// outputTailSize limits how much script output goes into a single log entry.
const outputTailSize = 4096

// Ledger records which sections have been started.
type Ledger interface {
	IsCheckpointed(ctx context.Context, name string) (bool, error)
	Checkpoint(ctx context.Context, name string) error
}

// Fetcher downloads a package archive and unpacks it into a folder.
type Fetcher interface {
	FetchAndExtract(ctx context.Context, rawURL, destDir string) error
}

// Executor drives a single section through its states.
type Executor struct {
	// workspaceRoot holds one folder per section.
	workspaceRoot string
	ledger        Ledger
	fetcher       Fetcher
	scripts       ScriptRunner
}

// Option configures an Executor.
type Option func(*Executor)

// WithScriptRunner replaces the process-based script runner.
func WithScriptRunner(runner ScriptRunner) Option {
	return func(e *Executor) {
		if runner != nil {
			e.scripts = runner
		}
	}
}

// New creates an Executor staging packages under workspaceRoot.
func New(workspaceRoot string, ledger Ledger, fetcher Fetcher, opts ...Option) *Executor {
	e := &Executor{
		workspaceRoot: filepath.Clean(workspaceRoot),
		ledger:        ledger,
		fetcher:       fetcher,
		scripts:       ExecRunner{},
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// ExecuteSection runs the section unless the ledger says it was already started.
// It returns StateSkipped or StateExecuted on success. Any error is a
// *SectionError and must stop the whole run.
//
// Required settings are checked before the ledger lookup, so a broken
// manifest halts even a run that would only skip sections.
func (e *Executor) ExecuteSection(ctx context.Context, sec *section.Section) (section.State, error) {
	if sec == nil {
		return section.StateFailed, errNilSection
	}

	ctx = logger.WithKV(ctx, "section", sec.Name)
	state := section.StatePending

	fail := func(err error) (section.State, error) {
		logger.ErrorKV(ctx, "Section failed", "state", state, "error", err)

		return section.StateFailed, &SectionError{Section: sec.Name, State: state, Err: err}
	}

	if err := sec.Validate(); err != nil {
		return fail(err)
	}

	if err := section.ValidateName(sec.Name); err != nil {
		return fail(err)
	}

	started, err := e.ledger.IsCheckpointed(ctx, sec.Name)
	if err != nil {
		return fail(fmt.Errorf("query ledger: %w", err))
	}

	if started {
		logger.Info(ctx, "Section was started by an earlier run, skipping")

		return section.StateSkipped, nil
	}

	// Checkpoint before touching anything: after a reboot the section counts as attempted.
	if err = e.ledger.Checkpoint(ctx, sec.Name); err != nil {
		return fail(fmt.Errorf("checkpoint: %w", err))
	}

	state = section.StateCheckpointed
	logger.InfoKV(ctx, "Section checkpointed", "state", state)

	workspace := filepath.Join(e.workspaceRoot, sec.Name)
	if err = e.createWorkspace(workspace); err != nil {
		return fail(err)
	}

	logger.InfoKV(ctx, "Fetching package", "url", sec.ZipFile(), "workspace", workspace)

	if err = e.fetcher.FetchAndExtract(ctx, sec.ZipFile(), workspace); err != nil {
		return fail(fmt.Errorf("fetch package: %w", err))
	}

	state = section.StateStaged

	script, err := resolveEntryPoint(workspace, sec.ScriptFile())
	if err != nil {
		return fail(err)
	}

	state = section.StateVerified
	logger.InfoKV(ctx, "Running install script", "script", script, "ini_file", sec.IniFile())

	result, err := e.scripts.RunScript(ctx, workspace, script, []string{sec.IniFile()})
	if err != nil {
		return fail(fmt.Errorf("run install script: %w", err))
	}

	if result.ExitCode != 0 {
		logger.ErrorKV(ctx, "Install script output", "output", outputTail(result.Output))

		return fail(&ExecutionError{
			Script:   script,
			ExitCode: result.ExitCode,
			Output:   result.Output,
		})
	}

	logger.DebugKV(ctx, "Install script output", "output", outputTail(result.Output))
	logger.InfoKV(ctx, "Section executed", "state", section.StateExecuted)

	return section.StateExecuted, nil
}

// createWorkspace makes a fresh folder for the section. An existing folder is
// residue of an earlier attempt and is left untouched.
func (e *Executor) createWorkspace(workspace string) error {
	if err := os.MkdirAll(e.workspaceRoot, config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create workspace root: %w", err)
	}

	if err := os.Mkdir(workspace, config.DefaultDirPermissions); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s: %w", workspace, ErrWorkspaceExists)
		}

		return fmt.Errorf("create workspace: %w", err)
	}

	return nil
}

// resolveEntryPoint returns the absolute script path inside the workspace.
func resolveEntryPoint(workspace, scriptFile string) (string, error) {
	name := filepath.FromSlash(strings.ReplaceAll(scriptFile, `\`, "/"))
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("%q: %w", scriptFile, ErrInvalidEntryPoint)
	}

	script, err := filepath.Abs(filepath.Join(workspace, name))
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", scriptFile, err)
	}

	info, err := os.Stat(script)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", script, ErrEntryPointMissing)
		}

		return "", fmt.Errorf("stat %s: %w", script, err)
	}

	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s is not a regular file: %w", script, ErrEntryPointMissing)
	}

	return script, nil
}

func outputTail(output []byte) string {
	if len(output) > outputTailSize {
		output = output[len(output)-outputTailSize:]
	}

	return strings.TrimSpace(string(output))
}
