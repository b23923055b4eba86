//go:build !windows
// +build !windows

package command

import (
	"os/exec"
	"syscall"
)

// detach puts the child in its own process group so that signals sent to
// the launcher's group do not take the solver down with it.
func detach(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
