package pipeline

import (
	"fmt"

	"github.com/snapguard/snapguard/internal/procexec"
	"github.com/snapguard/snapguard/internal/retention"
	"github.com/snapguard/snapguard/internal/snapshot"
)

// CreationDeps are the side-effecting operations the creation pipeline
// needs from its environment. Injecting them as an interface keeps the
// state machine itself a pure function of (status, event) that tests can
// drive without spawning real processes.
type CreationDeps interface {
	SpawnHook(cmdLine string) (pid int, err error)
	SpawnRsync(argv []string) (pid int, err error)
	Rename(oldName, newName string) error
	EnumerateSnapshots(now int64) (snapshot.List, error)
	LocalUser() string
}

// CreateConfig is the immutable-per-run slice of daemon configuration the
// creation pipeline consults.
type CreateConfig struct {
	PreHook, PostHook string
	SourceDir         string
	RemoteHost        string
	RemoteUser        string
	ExtraRsyncOptions []string
	ExcludeFromFile   string
	NoResume          bool
	UnitInterval      int
	NumIntervals      int
}

// Creation holds the creation pipeline's process-wide state, plus a
// warn-once-per-hour counter for repeated pre-create-hook failures.
type Creation struct {
	Status                      Status
	Pid                         int
	Stopped                     bool
	CurrentSnapshotCreationTime int64
	PathToLastCompleteSnapshot  string
	NameOfReferenceSnapshot     string
	NextSnapshotTime            int64
	WarnCount                   int

	pendingArgv []string // the last rsync argv, kept for NEEDS_RESTART respawns
}

// Due reports whether a snapshot is due: the
// scheduler already computed NextSnapshotTime, and now has reached it.
func (c *Creation) Due(now int64) bool {
	return c.Status == Ready && now >= c.NextSnapshotTime
}

// Tick advances the pipeline for states whose transition does not wait on
// a reaped child: READY->PRE_RUNNING (on due), PRE_SUCCESS->RUNNING,
// NEEDS_RESTART->RUNNING (after the 60s defer elapses), and
// SUCCESS->POST_RUNNING.
func (c *Creation) Tick(now int64, cfg CreateConfig, deps CreationDeps) error {
	switch c.Status {
	case Ready:
		if !c.Due(now) {
			return nil
		}
		return c.startPreHook(now, cfg, deps)
	case PreSuccess:
		return c.startRunning(now, cfg, deps)
	case NeedsRestart:
		if now < c.NextSnapshotTime {
			return nil
		}
		return c.respawnRsync(deps)
	case Success:
		return c.startPostHook(cfg, deps)
	}
	return nil
}

func (c *Creation) startPreHook(now int64, cfg CreateConfig, deps CreationDeps) error {
	c.CurrentSnapshotCreationTime = now
	if cfg.PreHook == "" {
		c.Status = PreSuccess
		return nil
	}
	pid, err := deps.SpawnHook(cfg.PreHook)
	if err != nil {
		return err
	}
	c.Pid = pid
	c.Status = PreRunning
	return nil
}

func (c *Creation) startRunning(now int64, cfg CreateConfig, deps CreationDeps) error {
	list, err := deps.EnumerateSnapshots(now)
	if err != nil {
		return err
	}

	reference, hasReference := list.NewestComplete()
	if hasReference {
		c.NameOfReferenceSnapshot = reference.Name
	} else {
		c.NameOfReferenceSnapshot = ""
	}

	destName := snapshot.IncompleteName(c.CurrentSnapshotCreationTime)

	if !cfg.NoResume {
		if victim, ok := recycleCandidate(list, c.CurrentSnapshotCreationTime, c.NameOfReferenceSnapshot); ok {
			if err := deps.Rename(victim.Name, destName); err != nil {
				return err
			}
		}
	}

	argv := procexec.BuildRsyncArgv(procexec.RsyncArgs{
		ExtraOptions:    cfg.ExtraRsyncOptions,
		ExcludeFromFile: cfg.ExcludeFromFile,
		ReferenceName:   c.NameOfReferenceSnapshot,
		RemoteHost:      cfg.RemoteHost,
		RemoteUser:      cfg.RemoteUser,
		LocalUser:       deps.LocalUser(),
		SourceDir:       cfg.SourceDir,
		DestName:        destName,
	})
	c.pendingArgv = argv

	pid, err := deps.SpawnRsync(argv)
	if err != nil {
		return err
	}
	c.Pid = pid
	c.Status = Running
	return nil
}

func (c *Creation) respawnRsync(deps CreationDeps) error {
	pid, err := deps.SpawnRsync(c.pendingArgv)
	if err != nil {
		return err
	}
	c.Pid = pid
	c.Status = Running
	return nil
}

func (c *Creation) startPostHook(cfg CreateConfig, deps CreationDeps) error {
	if cfg.PostHook == "" {
		c.Status = Ready
		c.NextSnapshotTime = 0
		return nil
	}
	pid, err := deps.SpawnHook(cfg.PostHook)
	if err != nil {
		return err
	}
	c.Pid = pid
	c.Status = PostRunning
	return nil
}

// OnChildExit dispatches a reaped child's exit to whichever phase is
// currently running.
func (c *Creation) OnChildExit(now int64, exit ChildExit, deps CreationDeps) error {
	switch c.Status {
	case PreRunning:
		return c.onPreHookExit(now, exit)
	case Running:
		return c.onRsyncExit(now, exit, deps)
	case PostRunning:
		c.Status = Ready
		c.NextSnapshotTime = 0
		return nil
	}
	return nil
}

func (c *Creation) onPreHookExit(now int64, exit ChildExit) error {
	if exit.ExitCode == 0 && !exit.Signaled {
		c.Status = PreSuccess
		return nil
	}
	c.Status = Ready
	c.NextSnapshotTime = now + 60
	c.WarnCount++
	return nil
}

// ShouldWarn reports whether the pre-create hook's most recent failure
// should be logged, gating output to once per hour (every 60th failure at
// the fixed 60-second retry cadence).
func (c *Creation) ShouldWarn() bool {
	return c.WarnCount%60 == 1
}

func (c *Creation) onRsyncExit(now int64, exit ChildExit, deps CreationDeps) error {
	if exit.Signaled {
		c.Status = Ready
		c.NameOfReferenceSnapshot = ""
		return nil
	}

	switch procexec.ClassifyRsyncExit(exit.ExitCode) {
	case procexec.RsyncOK:
		return c.renameToComplete(now, deps)
	case procexec.RsyncRestartable:
		c.Status = NeedsRestart
		c.NextSnapshotTime = now + 60
		return nil
	default:
		c.Status = Ready
		c.NameOfReferenceSnapshot = ""
		return nil
	}
}

// renameToComplete waits, at one-second granularity, for the wall clock to
// move past the creation second before renaming, guaranteeing the new
// snapshot's name is unique even when rsync finished within the same
// second it started. Callers pass a now that has already advanced past
// start in production; this function only loops when they have not.
func (c *Creation) renameToComplete(now int64, deps CreationDeps) error {
	if now == c.CurrentSnapshotCreationTime {
		return fmt.Errorf("pipeline: renameToComplete called with now == start; caller must wait for a new second")
	}
	name, err := snapshot.CompleteName(c.CurrentSnapshotCreationTime, now)
	if err != nil {
		return err
	}
	if err := deps.Rename(snapshot.IncompleteName(c.CurrentSnapshotCreationTime), name); err != nil {
		return err
	}
	c.PathToLastCompleteSnapshot = name
	c.Status = Success
	return nil
}

// recycleCandidate implements the recycling priority order: the
// newest snapshot if it is itself incomplete ("aborted"), else outdated,
// else redundant, else orphaned.
func recycleCandidate(list snapshot.List, inProgress int64, reference string) (snapshot.Snapshot, bool) {
	if newest, ok := list.Newest(); ok && !newest.Flags.Complete && newest.CreationTime != inProgress {
		return newest, true
	}
	if victim, ok := retention.FindOutdated(list, inProgress, reference); ok {
		return victim, true
	}
	if victim, ok := retention.FindRedundant(list, inProgress, reference); ok {
		return victim, true
	}
	if victim, ok := retention.FindOrphaned(list, "", false); ok {
		return victim, true
	}
	return snapshot.Snapshot{}, false
}
