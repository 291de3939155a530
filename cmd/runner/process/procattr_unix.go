//go:build unix

package process

import (
	"os/exec"
	"syscall"
)

// configureProcessGroup puts the child in its own process group and makes
// context cancellation kill the whole group, so engine helpers die with it.
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
