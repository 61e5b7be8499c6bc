//go:build windows

package daemon

// Windows has no SIGSTOP/SIGCONT equivalent; pausing the creation child
// during a removal is a no-op on this platform.
func stopPid(pid int) error     { return nil }
func continuePid(pid int) error { return nil }
