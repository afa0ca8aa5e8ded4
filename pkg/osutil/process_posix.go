//go:build unix

// Package osutil holds platform specific process handling for skill entrypoints.
package osutil

import (
	"os/exec"
	"syscall"
)

// KillProcessTreeOnCancel runs cmd in its own process group and makes
// context cancellation SIGKILL the whole group, so processes spawned by an
// entrypoint script cannot outlive its timeout. Call before cmd.Start.
func KillProcessTreeOnCancel(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
