//go:build unix

package diskspace

import "golang.org/x/sys/unix"

// StatfsSensor is the golang.org/x/sys/unix fallback used when gopsutil is
// unavailable, backed by a direct statfs(2) call.
type StatfsSensor struct{}

// Usage reports free MB, free-space percent, and free-inode percent via a
// single Statfs syscall.
func (StatfsSensor) Usage(path string) (Usage, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Usage{}, err
	}

	blockSize := uint64(st.Bsize)
	totalBytes := st.Blocks * blockSize
	freeBytes := st.Bfree * blockSize

	var percentFree float64
	if totalBytes > 0 {
		percentFree = 100 * float64(freeBytes) / float64(totalBytes)
	}

	var percentFreeInodes float64
	if st.Files > 0 {
		percentFreeInodes = 100 * float64(st.Ffree) / float64(st.Files)
	}

	return Usage{
		FreeMB:            freeBytes / (1024 * 1024),
		PercentFree:       percentFree,
		PercentFreeInodes: percentFreeInodes,
	}, nil
}
