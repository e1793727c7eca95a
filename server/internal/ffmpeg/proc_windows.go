package ffmpeg

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// Configure hides the console window and detaches the tool from ours.
func Configure(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP,
	}
}

// Terminate kills p. Windows has no SIGTERM to deliver to a console-less
// process group.
func Terminate(p *os.Process) error {
	if p == nil {
		return errors.New("*os.Process not set")
	}
	return p.Kill()
}
