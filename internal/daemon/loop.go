package daemon

import (
	"errors"
	"os"
	"strconv"
	"syscall"
	"time"

	"github.com/snapguard/snapguard/internal/audit"
	"github.com/snapguard/snapguard/internal/diskspace"
	"github.com/snapguard/snapguard/internal/dsserr"
	"github.com/snapguard/snapguard/internal/instancelock"
	"github.com/snapguard/snapguard/internal/pipeline"
	"github.com/snapguard/snapguard/internal/retention"
	"github.com/snapguard/snapguard/internal/schedule"
	"github.com/snapguard/snapguard/internal/selfpipe"
)

// idleTimeout is the wait(2)-equivalent bound used whenever no removal
// child is currently running: at this cadence a NEEDS_RESTART rsync
// respawn and a newly-due snapshot are never delayed more than a minute.
const idleTimeout = 60 * time.Second

// Attach wires the signal source and instance lock into a Daemon built
// with New. It is a separate step from New so tests can build a Daemon
// and drive stepOnce directly without installing real signal handlers.
func (d *Daemon) Attach(signals *selfpipe.Pipe, lock *instancelock.Lock) {
	d.signals = signals
	if lock != nil {
		d.lock = lock
	}
}

// Run executes the control loop until a terminating signal (INT or TERM)
// is received or abort is requested by ctx being done. It implements
// the per-iteration algorithm: wait for a signal or timeout, drain and
// dispatch exactly one signal, advance the removal pipeline, reclaim disk
// space if needed, pause or resume the creation child around removal
// activity, and advance the creation pipeline.
func (d *Daemon) Run() error {
	if d.signals == nil {
		d.signals = selfpipe.New()
	}
	defer d.signals.Stop()

	for {
		timeout := idleTimeout
		if d.Removal.InProgress() {
			timeout = 0
		}

		sig := d.signals.Wait(timeout)
		if sig != nil {
			stop, err := d.dispatchSignal(sig)
			if err != nil {
				d.Logger.Error("signal handling failed: %v", err)
			}
			if stop {
				return d.shutdown(nil)
			}
		}

		if err := d.stepOnce(d.Clock()); err != nil {
			if errors.Is(err, dsserr.ErrNoSpace) {
				return d.shutdown(err)
			}
			d.Logger.Error("pipeline step failed: %v", err)
		}
	}
}

// dispatchSignal handles exactly one received signal, matching the
// one-signal-per-wakeup contract. It returns stop=true for INT/TERM.
func (d *Daemon) dispatchSignal(sig os.Signal) (stop bool, err error) {
	s, ok := sig.(syscall.Signal)
	if !ok {
		return false, nil
	}
	switch s {
	case syscall.SIGINT, syscall.SIGTERM:
		return true, nil
	case syscall.SIGHUP:
		return false, d.onReload()
	case syscall.SIGCHLD:
		return false, d.reapAll()
	}
	return false, nil
}

// onReload re-reads configuration and invalidates the next scheduled
// snapshot time so the new interval settings take effect immediately.
func (d *Daemon) onReload() error {
	d.Logger.Notice("reloading configuration")
	if err := d.Reload(); err != nil {
		if _, auditErr := d.Audit.LogReload(false, err.Error()); auditErr != nil {
			d.Logger.Error("audit: %v", auditErr)
		}
		return err
	}
	if _, err := d.Audit.LogReload(true, ""); err != nil {
		d.Logger.Error("audit: %v", err)
	}
	d.Dump(d.Clock())
	return nil
}

// reapAll drains every exited child in one SIGCHLD wakeup: a single
// signal can coalesce multiple child exits, so the loop keeps reaping
// until ReapChild reports none left.
func (d *Daemon) reapAll() error {
	for {
		pid, exitCode, signaled, found, err := selfpipe.ReapChild()
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		d.dispatchExit(pid, exitCode, signaled)
	}
}

func (d *Daemon) dispatchExit(pid, exitCode int, signaled bool) {
	exit := pipeline.ChildExit{ExitCode: exitCode, Signaled: signaled}
	now := d.Clock()

	if pid == d.Creation.Pid {
		prevStatus := d.Creation.Status
		if err := d.Creation.OnChildExit(now, exit, d); err != nil {
			d.Logger.Error("creation pipeline: %v", err)
		}
		d.auditCreationTransition(prevStatus, exit, pid)
		if d.Creation.Status == pipeline.Ready && d.Creation.WarnCount > 0 && d.Creation.ShouldWarn() {
			d.Logger.Warning("pre_create_hook has failed %d times", d.Creation.WarnCount)
		}
		return
	}
	if pid == d.Removal.Pid {
		victim := d.Removal.Victim.Name
		prevStatus := d.Removal.Status
		d.Removal.OnChildExit(now, exit)
		d.auditRemovalTransition(prevStatus, exit, victim, pid)
		return
	}
}

// auditCreationTransition records the outcome of whichever creation phase
// (pre-hook or rsync) a reaped child belonged to, then clears the
// correlation id once the pipeline has returned to Ready.
func (d *Daemon) auditCreationTransition(prevStatus pipeline.Status, exit pipeline.ChildExit, pid int) {
	success := exit.ExitCode == 0 && !exit.Signaled
	metadata := map[string]string{"exit_code": strconv.Itoa(exit.ExitCode)}

	var action audit.EventAction
	switch {
	case prevStatus == pipeline.Running && d.Creation.Status == pipeline.NeedsRestart:
		action, success = audit.ActionRestart, true
	case prevStatus == pipeline.Running && d.Creation.Status == pipeline.Success:
		action = audit.ActionSuccess
	case !success:
		action = audit.ActionFailure
	default:
		action = audit.ActionHook
	}

	if _, err := d.Audit.LogCreation(d.creationCorrelation, d.Creation.PathToLastCompleteSnapshot, action, success, pid, metadata); err != nil {
		d.Logger.Error("audit: %v", err)
	}
	if d.Creation.Status == pipeline.Ready {
		d.creationCorrelation = ""
	}
}

// auditRemovalTransition records the outcome of whichever removal phase
// (pre-hook or rm) a reaped child belonged to.
func (d *Daemon) auditRemovalTransition(prevStatus pipeline.Status, exit pipeline.ChildExit, victim string, pid int) {
	success := exit.ExitCode == 0 && !exit.Signaled
	metadata := map[string]string{"exit_code": strconv.Itoa(exit.ExitCode)}

	action := audit.ActionHook
	switch {
	case prevStatus == pipeline.Running && success:
		action = audit.ActionSuccess
	case !success:
		action = audit.ActionFailure
	}

	if _, err := d.Audit.LogRemoval(d.removalCorrelation, victim, action, success, pid, metadata); err != nil {
		d.Logger.Error("audit: %v", err)
	}
	if !d.Removal.InProgress() {
		d.removalCorrelation = ""
	}
}

// stepOnce advances both pipelines by one non-blocking step: it is the
// unit the control loop calls once per wakeup, and the unit driven
// directly by tests.
func (d *Daemon) stepOnce(now int64) error {
	if err := d.Removal.Tick(d.removeConfig(), d); err != nil {
		return err
	}

	if err := d.tryFreeDiskSpace(now); err != nil {
		if errors.Is(err, dsserr.ErrNoSpace) {
			return err
		}
		d.Logger.Error("disk space check: %v", err)
	}

	if d.Removal.InProgress() {
		d.pauseCreationChild()
	} else {
		d.resumeCreationChild()
	}

	if d.Creation.Status == pipeline.Ready && d.Creation.NextSnapshotTime == 0 {
		d.rescheduleNextSnapshot(now)
	}

	startingRun := d.Creation.Due(now)
	if startingRun {
		d.creationCorrelation = audit.NewCorrelationID()
	}
	if err := d.Creation.Tick(now, d.createConfig(), d); err != nil {
		return err
	}
	if startingRun {
		if _, err := d.Audit.LogCreation(d.creationCorrelation, "", audit.ActionStart, true, d.Creation.Pid, nil); err != nil {
			d.Logger.Error("audit: %v", err)
		}
	}
	return nil
}

// rescheduleNextSnapshot computes the next due time once a creation cycle
// has completed (or at startup).
func (d *Daemon) rescheduleNextSnapshot(now int64) {
	list, err := d.EnumerateSnapshots(now)
	if err != nil {
		d.Logger.Error("scheduling: enumerate snapshots: %v", err)
		return
	}
	d.Creation.NextSnapshotTime = schedule.NextSnapshotTime(list, d.Config.UnitInterval, d.Config.NumIntervals, now)
}

// tryFreeDiskSpace implements the reclamation policy: while no removal is
// already underway and the 60s removal back-off has elapsed, it either
// enforces the retention schedule during normal operation (outdated, then
// redundant victims, gated by keep_redundant/creation-readiness/snapshot
// count) or, when the destination filesystem is under pressure, widens the
// search to orphaned and finally the oldest snapshot. Disk exhaustion with
// nothing left to remove is fatal.
func (d *Daemon) tryFreeDiskSpace(now int64) error {
	if d.Removal.InProgress() {
		return nil
	}
	if now < d.Removal.NextRemovalCheck {
		return nil
	}

	usage, err := d.Sensor.Usage(".")
	if err != nil {
		return err
	}
	thresholds := diskspace.Thresholds{
		MinFreeMB:            d.Config.MinFreeMB,
		MinFreePercent:       d.Config.MinFreePercent,
		MinFreePercentInodes: d.Config.MinFreePercentInodes,
	}
	low := diskspace.Low(usage, thresholds)

	list, err := d.EnumerateSnapshots(now)
	if err != nil {
		return err
	}

	if !low {
		if d.Config.KeepRedundant {
			return nil
		}
		if d.Creation.Status != pipeline.Ready || !d.Creation.Due(now) {
			return nil
		}
		if list.Len() <= 1 {
			return nil
		}
	}

	inProgress := d.Creation.CurrentSnapshotCreationTime
	reference := d.Creation.NameOfReferenceSnapshot

	victim, ok := retention.FindOutdated(list, inProgress, reference)
	if !ok {
		victim, ok = retention.FindRedundant(list, inProgress, reference)
	}
	if !ok && low {
		victim, ok = retention.FindOrphaned(list, "", d.Creation.Status == pipeline.NeedsRestart)
	}
	if !ok && low {
		victim, ok = retention.FindOldestRemovable(list, inProgress, reference)
	}
	if !ok {
		if low {
			d.Logger.Emerg("disk space low but no removable snapshot exists")
			return dsserr.ErrNoSpace
		}
		return nil
	}

	if low {
		d.Logger.Notice("disk space low, removing %s", victim.Name)
	} else {
		d.Logger.Notice("retention policy removing %s", victim.Name)
	}
	if _, err := d.Audit.LogDiskPressure(usage.PercentFree, victim.Name); err != nil {
		d.Logger.Error("audit: %v", err)
	}
	d.removalCorrelation = audit.NewCorrelationID()
	return d.Removal.Start(victim, d.removeConfig(), d)
}

func (d *Daemon) pauseCreationChild() {
	if d.Creation.Status == pipeline.Running && d.Creation.Pid != 0 && !d.Creation.Stopped {
		if err := d.stopPid(d.Creation.Pid); err == nil {
			d.Creation.Stopped = true
		}
	}
}

func (d *Daemon) resumeCreationChild() {
	if d.Creation.Stopped {
		if err := d.continuePid(d.Creation.Pid); err == nil {
			d.Creation.Stopped = false
		}
	}
}

func (d *Daemon) removeConfig() pipeline.RemoveConfig {
	return pipeline.RemoveConfig{PreHook: d.Config.PreRemoveHook, PostHook: d.Config.PostRemoveHook}
}

func (d *Daemon) createConfig() pipeline.CreateConfig {
	return pipeline.CreateConfig{
		PreHook:           d.Config.PreCreateHook,
		PostHook:          d.Config.PostCreateHook,
		SourceDir:         d.Config.SourceDir,
		RemoteHost:        d.Config.RemoteHost,
		RemoteUser:        d.Config.RemoteUser,
		ExtraRsyncOptions: d.Config.RsyncOption,
		ExcludeFromFile:   d.Config.ExcludePatterns,
		NoResume:          d.Config.NoResume,
		UnitInterval:      d.Config.UnitInterval,
		NumIntervals:      d.Config.NumIntervals,
	}
}

// shutdown runs the configured exit hook, releases the instance lock, and
// returns the daemon's terminal error. cause is nil on a clean
// signal-driven exit and non-nil on a fatal loop error (e.g. ENOSPC with
// nothing removable); when set, its dsserr name is passed as exit_hook's
// single argument and shutdown returns it so Run reports the failure.
func (d *Daemon) shutdown(cause error) error {
	if cause != nil {
		d.Logger.Emerg("exiting: %s", dsserr.Name(cause))
	} else {
		d.Logger.Notice("received shutdown signal, exiting")
	}
	if d.Config.ExitHook != "" {
		hook := d.Config.ExitHook
		if cause != nil {
			hook = hook + " " + dsserr.Name(cause)
		}
		if _, err := d.SpawnHook(hook); err != nil {
			d.Logger.Error("exit_hook: %v", err)
		}
	}
	if d.lock != nil {
		if err := d.lock.Release(); err != nil && cause == nil {
			return err
		}
	}
	return cause
}
