package pipeline

import (
	"errors"
	"fmt"
	"os/exec"

	"github.com/philipcardiff/snek5000/internal/registry"
)

// UnsatisfiedDependencyError reports a requested stage whose declared
// predecessor was not requested earlier in the same sequence. Missing
// dependencies are never auto-inserted: an abbreviated run must be
// deliberate, so the caller gets told what to add instead.
type UnsatisfiedDependencyError struct {
	Stage   string
	Missing string
}

// Error implements the error interface for UnsatisfiedDependencyError.
func (e *UnsatisfiedDependencyError) Error() string {
	return fmt.Sprintf("stage %q depends on %q, which was not requested before it", e.Stage, e.Missing)
}

// StageExecutionError reports an external command that exited non-zero or
// failed to launch. It carries enough context for the caller to diagnose
// the failure without re-running anything.
type StageExecutionError struct {
	Stage    string
	Command  registry.Command
	ExitCode int
	Output   string
	Err      error
}

// Error implements the error interface for StageExecutionError.
func (e *StageExecutionError) Error() string {
	return fmt.Sprintf("stage %q failed (exit %d): %s: %v", e.Stage, e.ExitCode, e.Command, e.Err)
}

// Unwrap exposes the underlying launch error for errors.Is/As.
func (e *StageExecutionError) Unwrap() error {
	return e.Err
}

// exitCode extracts the process exit code from a launch error, or -1 when
// the command never produced one (launch failure, signal).
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
