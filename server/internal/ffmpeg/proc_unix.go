//go:build !windows

package ffmpeg

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// Configure starts the tool in its own process group so that every process
// it forks can be signalled at once.
func Configure(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// Terminate asks the process group led by p to exit.
func Terminate(p *os.Process) error {
	if p == nil {
		return errors.New("*os.Process not set")
	}

	pgid, err := unix.Getpgid(p.Pid)
	if err != nil {
		// already reaped
		if errors.Is(err, unix.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}

	if err := unix.Kill(-pgid, unix.SIGTERM); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}

	return nil
}
