package executor

import (
	"errors"
	"fmt"

	"github.com/oshokin/section-installer/internal/domain/section"
)

var (
	// ErrWorkspaceExists is returned when the section workspace is left over from an earlier run.
	ErrWorkspaceExists = errors.New("workspace already exists")
	// ErrEntryPointMissing is returned when the install script is absent from the package.
	ErrEntryPointMissing = errors.New("install entry point not found")
	// ErrInvalidEntryPoint is returned when the script path points outside the workspace.
	ErrInvalidEntryPoint = errors.New("install entry point must stay inside the package")
	// ErrScriptFailed is matched by ExecutionError.
	ErrScriptFailed = errors.New("install script failed")

	errNilSection = errors.New("section is not set")
)

// SectionError carries the section and the last state it reached before failing.
type SectionError struct {
	// Section is the failing section name.
	Section string
	// State is the last state reached before the failure.
	State section.State
	// Err is the cause.
	Err error
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("section %q (state %s): %v", e.Section, e.State, e.Err)
}

func (e *SectionError) Unwrap() error { return e.Err }

// ExecutionError reports an install script that exited with a non-zero code.
type ExecutionError struct {
	// Script is the absolute path of the entry point.
	Script string
	// ExitCode is the process exit code.
	ExitCode int
	// Output is the combined stdout and stderr of the script.
	Output []byte
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %s exited with code %d", ErrScriptFailed, e.Script, e.ExitCode)
}

func (e *ExecutionError) Unwrap() error { return ErrScriptFailed }
