//go:build windows

package diskspace

import "fmt"

// StatfsSensor has no Windows implementation; gopsutil is the only sensor
// on that platform.
type StatfsSensor struct{}

// Usage always fails on Windows; GopsutilSensor is the supported path there.
func (StatfsSensor) Usage(path string) (Usage, error) {
	return Usage{}, fmt.Errorf("diskspace: StatfsSensor is unix-only, use GopsutilSensor")
}
