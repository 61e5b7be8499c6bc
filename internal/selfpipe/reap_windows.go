//go:build windows

package selfpipe

// ReapChild has no arbitrary-child, non-blocking equivalent on Windows;
// callers on this platform track child completion through os.Process.Wait
// on each spawned process directly instead of a central reaper.
func ReapChild() (pid int, exitCode int, signaled bool, found bool, err error) {
	return 0, 0, false, false, nil
}
