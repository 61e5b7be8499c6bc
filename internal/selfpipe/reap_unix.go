//go:build unix

package selfpipe

import "golang.org/x/sys/unix"

// ReapChild performs a single non-blocking waitpid(-1, &status, WNOHANG).
// os.Process.Wait cannot be used here: it blocks and only works for a
// process this package itself started, whereas the daemon must reap
// whichever of its two tracked children (or their pre/post hooks) exits
// first. found is false when no child has changed state.
func ReapChild() (pid int, exitCode int, signaled bool, found bool, err error) {
	var ws unix.WaitStatus
	p, werr := unix.Wait4(-1, &ws, unix.WNOHANG, nil)
	if werr != nil {
		if werr == unix.ECHILD {
			return 0, 0, false, false, nil
		}
		return 0, 0, false, false, werr
	}
	if p <= 0 {
		return 0, 0, false, false, nil
	}
	if ws.Signaled() {
		return p, 0, true, true, nil
	}
	return p, ws.ExitStatus(), false, true, nil
}
