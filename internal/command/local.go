// Package command launches the external tools that pipeline stages resolve
// to. It is the only package with process side effects; everything above it
// can be tested against a stub.
package command

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/philipcardiff/snek5000/internal/ctxlog"
	"github.com/philipcardiff/snek5000/internal/registry"
)

// runLogName is where a detached solver's output lands inside the case
// directory, since there is no caller left to capture it.
const runLogName = "run.log"

// Local runs commands as child processes of the current one.
type Local struct{}

// Run launches the command in its working directory and blocks until it
// exits, returning the combined stdout/stderr. The returned error is the
// one from exec.Cmd.Run, so a non-zero exit surfaces as *exec.ExitError.
func (Local) Run(ctx context.Context, cmd registry.Command) (string, error) {
	logger := ctxlog.FromContext(ctx)

	c := exec.CommandContext(ctx, cmd.Argv[0], cmd.Argv[1:]...)
	c.Dir = cmd.Dir
	c.Env = append(os.Environ(), cmd.Env...)

	var buf bytes.Buffer
	c.Stdout = &buf
	c.Stderr = &buf

	logger.Debug("Launching external command.", "argv", cmd.Argv, "dir", cmd.Dir)
	err := c.Run()
	return buf.String(), err
}

// Start launches the command detached and returns its PID without waiting
// for it. The child gets its own process group so it survives the launcher
// exiting; its output is redirected to run.log in the working directory.
// The child's lifecycle is the caller's problem from here on.
func (Local) Start(ctx context.Context, cmd registry.Command) (int, error) {
	logger := ctxlog.FromContext(ctx)

	// No CommandContext here: a detached process must outlive the context
	// of the exec call that launched it.
	c := exec.Command(cmd.Argv[0], cmd.Argv[1:]...)
	c.Dir = cmd.Dir
	c.Env = append(os.Environ(), cmd.Env...)
	detach(c)

	logFile, err := os.Create(filepath.Join(cmd.Dir, runLogName))
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", runLogName, err)
	}
	c.Stdout = logFile
	c.Stderr = logFile

	if err := c.Start(); err != nil {
		logFile.Close()
		return 0, err
	}
	pid := c.Process.Pid

	// The parent keeps no handle on the child; release it so the process
	// table entry is not held by us.
	logFile.Close()
	if err := c.Process.Release(); err != nil {
		logger.Warn("Failed to release detached process handle.", "pid", pid, "error", err)
	}

	logger.Debug("Detached external command.", "argv", cmd.Argv, "pid", pid)
	return pid, nil
}
