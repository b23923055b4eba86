//go:build windows
// +build windows

package command

import "os/exec"

// detach is a no-op on Windows; process groups work differently there and
// the default CreateProcess behavior is already detached enough for our
// purposes.
func detach(c *exec.Cmd) {}
