//go:build unix

package translator

import (
	"os/exec"
	"syscall"
)

// killProcessGroup runs the child in its own process group and kills the
// whole group on cancellation, so helpers the tool spawned die with it.
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
