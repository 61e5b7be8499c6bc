package pipeline

import "github.com/snapguard/snapguard/internal/snapshot"

// RemovalDeps are the side-effecting operations the removal pipeline needs.
type RemovalDeps interface {
	SpawnHook(cmdLine string) (pid int, err error)
	SpawnRm(path string) (pid int, err error)
	Rename(oldName, newName string) error
}

// RemoveConfig is the immutable-per-run configuration the removal pipeline
// consults.
type RemoveConfig struct {
	PreHook, PostHook string
}

// Removal holds the removal pipeline's process-wide state: the current
// child pid and an owned copy of the snapshot metadata under removal.
type Removal struct {
	Status    Status
	Pid       int
	Victim    snapshot.Snapshot
	hasVictim bool

	NextRemovalCheck int64
}

// InProgress reports whether a removal is currently underway (anything
// other than Ready).
func (r *Removal) InProgress() bool {
	return r.Status != Ready
}

// Start begins removing victim: copies its metadata, then spawns the
// pre-remove hook if configured, else moves directly to PreSuccess.
func (r *Removal) Start(victim snapshot.Snapshot, cfg RemoveConfig, deps RemovalDeps) error {
	r.Victim = victim
	r.hasVictim = true

	if cfg.PreHook == "" {
		r.Status = PreSuccess
		return nil
	}
	pid, err := deps.SpawnHook(cfg.PreHook)
	if err != nil {
		return err
	}
	r.Pid = pid
	r.Status = PreRunning
	return nil
}

// Tick advances PreSuccess->Running (rename then spawn rm) and
// Success->PostRunning, the two transitions that don't wait on a reaped
// child.
func (r *Removal) Tick(cfg RemoveConfig, deps RemovalDeps) error {
	switch r.Status {
	case PreSuccess:
		return r.startRunning(deps)
	case Success:
		return r.startPostHook(cfg, deps)
	}
	return nil
}

func (r *Removal) startRunning(deps RemovalDeps) error {
	beingDeletedName := snapshot.BeingDeletedName(r.Victim)
	if r.Victim.Name != beingDeletedName {
		if err := deps.Rename(r.Victim.Name, beingDeletedName); err != nil {
			return err
		}
		r.Victim.Name = beingDeletedName
		r.Victim.Flags.BeingDeleted = true
	}

	pid, err := deps.SpawnRm(r.Victim.Name)
	if err != nil {
		return err
	}
	r.Pid = pid
	r.Status = Running
	return nil
}

func (r *Removal) startPostHook(cfg RemoveConfig, deps RemovalDeps) error {
	if cfg.PostHook == "" {
		r.reset()
		return nil
	}
	pid, err := deps.SpawnHook(cfg.PostHook)
	if err != nil {
		return err
	}
	r.Pid = pid
	r.Status = PostRunning
	return nil
}

// OnChildExit dispatches a reaped child's exit to whichever phase is
// currently running.
func (r *Removal) OnChildExit(now int64, exit ChildExit) {
	switch r.Status {
	case PreRunning:
		if exit.ExitCode == 0 && !exit.Signaled {
			r.Status = PreSuccess
			return
		}
		r.NextRemovalCheck = now + 60
		r.reset()
	case Running:
		if exit.ExitCode == 0 && !exit.Signaled {
			r.Status = Success
			return
		}
		r.reset()
	case PostRunning:
		r.reset()
	}
}

func (r *Removal) reset() {
	r.Status = Ready
	r.Pid = 0
	r.Victim = snapshot.Snapshot{}
	r.hasVictim = false
}
