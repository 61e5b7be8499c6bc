// Package daemon implements the single-threaded control loop that
// coordinates the creation and removal pipelines, reacts to disk pressure,
// and reloads configuration on SIGHUP. There are no package-level globals:
// every piece of process-wide state lives on one Daemon
// value, passed by pointer everywhere it is needed.
package daemon

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"github.com/snapguard/snapguard/internal/audit"
	"github.com/snapguard/snapguard/internal/config"
	"github.com/snapguard/snapguard/internal/diskspace"
	"github.com/snapguard/snapguard/internal/dsslog"
	"github.com/snapguard/snapguard/internal/pipeline"
	"github.com/snapguard/snapguard/internal/procexec"
	"github.com/snapguard/snapguard/internal/selfpipe"
	"github.com/snapguard/snapguard/internal/snapshot"
)

// Daemon is the single process-wide state value. Configuration is an
// immutable snapshot swapped atomically on reload (see Reload); any
// children already spawned under the previous config keep their own hook
// paths, since they were already launched with them.
type Daemon struct {
	Config     config.Config
	ConfigPath string
	Overrides  config.Overrides

	Creation pipeline.Creation
	Removal  pipeline.Removal

	Logger *dsslog.Logger
	Sensor diskspace.Sensor
	Clock  func() int64

	// Audit records pipeline transitions independent of Logger's leveled
	// stream, keyed by a correlation id per creation/removal run.
	Audit *audit.InMemoryLogger

	// stopPid and continuePid suspend/resume the creation child around
	// removal activity. They default to the platform-specific kill(2)
	// wrappers; tests substitute recording fakes.
	stopPid     func(pid int) error
	continuePid func(pid int) error

	signals *selfpipe.Pipe
	lock    instanceLock

	creationCorrelation string
	removalCorrelation  string
}

// instanceLock is the subset of *instancelock.Lock the daemon needs,
// narrowed to an interface so tests can substitute a no-op.
type instanceLock interface {
	Release() error
}

// New builds a Daemon from a validated configuration. now is injected so
// tests can control the wall clock; production callers pass
// func() int64 { return time.Now().Unix() }.
func New(cfg config.Config, configPath string, overrides config.Overrides, logger *dsslog.Logger, sensor diskspace.Sensor, now func() int64) *Daemon {
	return &Daemon{
		Config:      cfg,
		ConfigPath:  configPath,
		Overrides:   overrides,
		Logger:      logger,
		Sensor:      sensor,
		Clock:       now,
		Audit:       audit.NewInMemoryLogger(0),
		stopPid:     stopPid,
		continuePid: continuePid,
	}
}

// Reload re-reads the config file, re-chdirs to dest_dir, and invalidates
// the next scheduled snapshot time. Whether the process runs as a daemon
// and which logfile it writes to were decided at startup and are never
// toggled by a reload.
func (d *Daemon) Reload() error {
	loader := config.NewLoader(d.ConfigPath, d.Overrides)
	newCfg, err := loader.Load()
	if err != nil {
		return err
	}
	d.Config = newCfg
	if err := os.Chdir(d.Config.DestDir); err != nil {
		return err
	}
	d.Creation.NextSnapshotTime = 0
	return nil
}

// --- pipeline.CreationDeps / pipeline.RemovalDeps implementations ---

// SpawnHook starts cmdLine as a shell command and returns immediately
// without waiting; the daemon loop reaps it via selfpipe.ReapChild.
func (d *Daemon) SpawnHook(cmdLine string) (int, error) {
	spawned, err := procexec.Spawn("/bin/sh", "-c", cmdLine)
	if err != nil {
		return 0, err
	}
	return spawned.Pid, nil
}

// SpawnRsync starts rsync with argv and returns immediately.
func (d *Daemon) SpawnRsync(argv []string) (int, error) {
	spawned, err := procexec.Spawn("rsync", argv...)
	if err != nil {
		return 0, err
	}
	return spawned.Pid, nil
}

// SpawnRm starts "rm -rf path" and returns immediately.
func (d *Daemon) SpawnRm(path string) (int, error) {
	spawned, err := procexec.Spawn("rm", "-rf", path)
	if err != nil {
		return 0, err
	}
	return spawned.Pid, nil
}

// Rename renames oldName to newName within the (already chdir'd-to)
// destination directory.
func (d *Daemon) Rename(oldName, newName string) error {
	return os.Rename(oldName, newName)
}

// EnumerateSnapshots scans the destination directory for snapshots.
func (d *Daemon) EnumerateSnapshots(now int64) (snapshot.List, error) {
	return snapshot.Enumerate(".", d.Config.UnitInterval, d.Config.NumIntervals, now)
}

// LocalUser returns the current OS user name, used by the rsync locality
// test in internal/procexec.
func (d *Daemon) LocalUser() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}
	return u.Username
}

// chdirToDest resolves and enters the destination directory, used at
// startup and after every reload.
func (d *Daemon) chdirToDest() error {
	abs, err := filepath.Abs(d.Config.DestDir)
	if err != nil {
		return fmt.Errorf("daemon: resolve dest_dir: %w", err)
	}
	return os.Chdir(abs)
}
