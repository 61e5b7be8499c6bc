package daemon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/snapguard/snapguard/internal/audit"
	"github.com/snapguard/snapguard/internal/config"
	"github.com/snapguard/snapguard/internal/diskspace"
	"github.com/snapguard/snapguard/internal/dsslog"
	"github.com/snapguard/snapguard/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSensor struct {
	usage diskspace.Usage
	err   error
}

func (f fakeSensor) Usage(path string) (diskspace.Usage, error) { return f.usage, f.err }

func newTestDaemon(t *testing.T, sensor diskspace.Sensor) *Daemon {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Chdir(dir))

	cfg := config.Default()
	cfg.SourceDir = filepath.Join(dir, "src")
	cfg.DestDir = dir
	cfg.MinFreePercent = 10

	d := New(cfg, "", config.Overrides{}, dsslog.New(os.Stderr, dsslog.Emerg, false), sensor, func() int64 { return 1000 })
	d.stopPid = func(int) error { return nil }
	d.continuePid = func(int) error { return nil }
	return d
}

func TestTryFreeDiskSpace_StartsRemovalWhenLow(t *testing.T) {
	d := newTestDaemon(t, fakeSensor{usage: diskspace.Usage{PercentFree: 1}})

	require.NoError(t, os.Mkdir("100-200.a-b", 0o755))

	require.NoError(t, d.tryFreeDiskSpace(1000))
	assert.True(t, d.Removal.InProgress())
	assert.Equal(t, "100-200.a-b", d.Removal.Victim.Name)
}

func TestTryFreeDiskSpace_NoOpWhenAboveThreshold(t *testing.T) {
	d := newTestDaemon(t, fakeSensor{usage: diskspace.Usage{PercentFree: 90}})
	require.NoError(t, d.tryFreeDiskSpace(1000))
	assert.False(t, d.Removal.InProgress())
}

func TestTryFreeDiskSpace_NoOpWhenRemovalAlreadyInProgress(t *testing.T) {
	d := newTestDaemon(t, fakeSensor{usage: diskspace.Usage{PercentFree: 1}})
	d.Removal.Status = pipeline.Running
	require.NoError(t, d.tryFreeDiskSpace(1000))
	assert.Equal(t, pipeline.Running, d.Removal.Status) // untouched
}

func TestPauseAndResumeCreationChild(t *testing.T) {
	d := newTestDaemon(t, fakeSensor{})
	var stopped, resumed []int
	d.stopPid = func(pid int) error { stopped = append(stopped, pid); return nil }
	d.continuePid = func(pid int) error { resumed = append(resumed, pid); return nil }

	d.Creation.Status = pipeline.Running
	d.Creation.Pid = 42

	d.pauseCreationChild()
	assert.Equal(t, []int{42}, stopped)
	assert.True(t, d.Creation.Stopped)

	d.pauseCreationChild() // idempotent: already stopped, no second call
	assert.Equal(t, []int{42}, stopped)

	d.resumeCreationChild()
	assert.Equal(t, []int{42}, resumed)
	assert.False(t, d.Creation.Stopped)
}

func TestDispatchExit_RoutesToMatchingPipeline(t *testing.T) {
	d := newTestDaemon(t, fakeSensor{})
	d.Creation.Status = pipeline.PreRunning
	d.Creation.Pid = 7

	d.dispatchExit(7, 0, false)
	assert.Equal(t, pipeline.PreSuccess, d.Creation.Status)
}

func TestDispatchExit_UnknownPidIsIgnored(t *testing.T) {
	d := newTestDaemon(t, fakeSensor{})
	d.Creation.Status = pipeline.PreRunning
	d.Creation.Pid = 7

	d.dispatchExit(999, 0, false)
	assert.Equal(t, pipeline.PreRunning, d.Creation.Status) // unchanged
}

func TestInspect_ReportsCurrentState(t *testing.T) {
	d := newTestDaemon(t, fakeSensor{usage: diskspace.Usage{FreeMB: 512, PercentFree: 42}})
	d.Creation.Status = pipeline.Running
	d.Creation.Pid = 99

	state, err := d.Inspect(1000)
	require.NoError(t, err)
	assert.Equal(t, "RUNNING", state.CreationStatus)
	assert.Equal(t, 99, state.CreationPid)
	assert.Equal(t, uint64(512), state.FreeMB)
}

func TestTryFreeDiskSpace_RecordsAuditEvent(t *testing.T) {
	d := newTestDaemon(t, fakeSensor{usage: diskspace.Usage{PercentFree: 1}})
	require.NoError(t, os.Mkdir("100-200.a-b", 0o755))

	require.NoError(t, d.tryFreeDiskSpace(1000))

	events := d.Audit.Query(&audit.Filter{})
	require.NotEmpty(t, events)
	assert.Equal(t, "100-200.a-b", events[0].Snapshot)
}

func TestDispatchExit_RecordsCreationAuditEvent(t *testing.T) {
	d := newTestDaemon(t, fakeSensor{})
	d.Creation.Status = pipeline.PreRunning
	d.Creation.Pid = 7
	d.creationCorrelation = "corr-test"

	d.dispatchExit(7, 0, false)

	events := d.Audit.GetByCorrelation("corr-test")
	require.Len(t, events, 1)
	assert.Equal(t, true, events[0].Success)
}

func TestDispatchExit_RecordsCreationFailureAuditEvent(t *testing.T) {
	d := newTestDaemon(t, fakeSensor{})
	d.Creation.Status = pipeline.PreRunning
	d.Creation.Pid = 7
	d.creationCorrelation = "corr-fail"

	d.dispatchExit(7, 1, false)

	events := d.Audit.GetByCorrelation("corr-fail")
	require.Len(t, events, 1)
	assert.False(t, events[0].Success)
	assert.Equal(t, "", d.creationCorrelation) // cleared once back at Ready
}
