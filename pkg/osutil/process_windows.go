//go:build windows

package osutil

import (
	"os/exec"
	"syscall"
)

// KillProcessTreeOnCancel starts cmd in a new process group. Windows has no
// group kill, so cancellation only terminates the entrypoint itself.
func KillProcessTreeOnCancel(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
	cmd.Cancel = func() error {
		return cmd.Process.Kill()
	}
}
