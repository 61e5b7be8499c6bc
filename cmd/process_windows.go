//go:build windows

package cmd

import (
	"os/exec"
)

// setupDaemonProcess is a no-op on Windows: there is no Setsid equivalent,
// so a detached run just starts as a normal child process.
func setupDaemonProcess(cmd *exec.Cmd) {
}
