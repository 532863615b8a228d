package executor

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ScriptResult is the outcome of a finished install script.
type ScriptResult struct {
	// ExitCode is zero on success.
	ExitCode int
	// Output is the combined stdout and stderr.
	Output []byte
}

// ScriptRunner starts an install script and waits for it.
// An error means the script could not be run at all; a non-zero exit is
// reported through ScriptResult.
type ScriptRunner interface {
	RunScript(ctx context.Context, dir, script string, args []string) (*ScriptResult, error)
}

// ExecRunner runs scripts as child processes.
type ExecRunner struct{}

// RunScript executes the script with dir as working directory.
func (ExecRunner) RunScript(ctx context.Context, dir, script string, args []string) (*ScriptResult, error) {
	cmd := scriptCommand(ctx, script, args)
	cmd.Dir = dir

	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ScriptResult{ExitCode: exitErr.ExitCode(), Output: output}, nil
		}

		return nil, err
	}

	return &ScriptResult{Output: output}, nil
}

// scriptCommand picks the interpreter from the script extension.
func scriptCommand(ctx context.Context, script string, args []string) *exec.Cmd {
	extension := strings.ToLower(filepath.Ext(script))

	if runtime.GOOS == "windows" {
		switch extension {
		case ".cmd", ".bat":
			return exec.CommandContext(ctx, "cmd.exe", append([]string{"/C", script}, args...)...)
		case ".ps1":
			return exec.CommandContext(ctx, "powershell.exe",
				append([]string{"-NoProfile", "-ExecutionPolicy", "Bypass", "-File", script}, args...)...)
		}

		return exec.CommandContext(ctx, script, args...)
	}

	// Archives built on Windows drop the executable bit, so shell scripts go through sh.
	if extension == ".sh" {
		return exec.CommandContext(ctx, "/bin/sh", append([]string{script}, args...)...)
	}

	return exec.CommandContext(ctx, script, args...)
}
