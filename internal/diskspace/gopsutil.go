package diskspace

import "github.com/shirou/gopsutil/v3/disk"

// GopsutilSensor is the primary Sensor implementation, reading free-space
// and inode statistics through gopsutil's cross-platform disk package
// instead of a raw statvfs(2) call.
type GopsutilSensor struct{}

// Usage reports free MB, free-space percent, and free-inode percent for the
// filesystem backing path.
func (GopsutilSensor) Usage(path string) (Usage, error) {
	u, err := disk.Usage(path)
	if err != nil {
		return Usage{}, err
	}
	var freeInodePercent float64
	if u.InodesTotal > 0 {
		freeInodePercent = 100 * float64(u.InodesFree) / float64(u.InodesTotal)
	}
	return Usage{
		FreeMB:            u.Free / (1024 * 1024),
		PercentFree:       100 - u.UsedPercent,
		PercentFreeInodes: freeInodePercent,
	}, nil
}
