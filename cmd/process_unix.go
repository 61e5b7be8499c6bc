//go:build unix

package cmd

import (
	"os/exec"
	"syscall"
)

// setupDaemonProcess detaches cmd from the controlling terminal's session
// so a re-exec'd daemon survives the parent shell exiting.
func setupDaemonProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}
}
