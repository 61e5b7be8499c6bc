//go:build unix

package daemon

import "syscall"

// stopPid suspends pid via kill(2), passing the target pid and the signal
// in the correct argument order (pid first, then signal).
func stopPid(pid int) error {
	return syscall.Kill(pid, syscall.SIGSTOP)
}

// continuePid resumes a pid previously suspended with stopPid.
func continuePid(pid int) error {
	return syscall.Kill(pid, syscall.SIGCONT)
}
