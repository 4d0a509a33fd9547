//go:build !windows

package process

import (
	"errors"
	"os/exec"
	"syscall"
)

// configureCommand puts the child in its own process group so the whole
// tree can be signalled at once.
func configureCommand(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killTree(pid int) error {
	err := syscall.Kill(-pid, syscall.SIGKILL)
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}
