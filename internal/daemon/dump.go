package daemon

import (
	"fmt"
	"strings"
)

// State is the internal-state snapshot the "status" CLI command and the
// pre/post-reload DEBUG-level dump both render. It exists as a plain
// struct, separate from Dump's formatting, so callers that want the raw
// numbers (tests, machine-readable output) don't need to parse log text.
type State struct {
	DestDir                 string
	CreationStatus          string
	CreationPid             int
	CreationStopped         bool
	NextSnapshotTime        int64
	NameOfReferenceSnapshot string
	RemovalStatus           string
	RemovalPid              int
	RemovalVictim           string
	FreeMB                  uint64
	PercentFree             float64
	PercentFreeInodes       float64
}

// Inspect gathers the current state without writing anything, so the
// "status" subcommand can render it independently of the logger.
func (d *Daemon) Inspect(now int64) (State, error) {
	usage, err := d.Sensor.Usage(".")
	if err != nil {
		return State{}, fmt.Errorf("daemon: sense disk usage: %w", err)
	}

	victim := ""
	if d.Removal.InProgress() {
		victim = d.Removal.Victim.Name
	}

	return State{
		DestDir:                 d.Config.DestDir,
		CreationStatus:          d.Creation.Status.String(),
		CreationPid:             d.Creation.Pid,
		CreationStopped:         d.Creation.Stopped,
		NextSnapshotTime:        d.Creation.NextSnapshotTime,
		NameOfReferenceSnapshot: d.Creation.NameOfReferenceSnapshot,
		RemovalStatus:           d.Removal.Status.String(),
		RemovalPid:              d.Removal.Pid,
		RemovalVictim:           victim,
		FreeMB:                  usage.FreeMB,
		PercentFree:             usage.PercentFree,
		PercentFreeInodes:       usage.PercentFreeInodes,
	}, nil
}

// Dump logs the daemon's internal state at DEBUG level, the way the
// original emitted a full state dump at startup and around every reload.
// It is a no-op when the logger's minimum level is above DEBUG, so it is
// safe to call unconditionally from the control loop.
func (d *Daemon) Dump(now int64) {
	state, err := d.Inspect(now)
	if err != nil {
		d.Logger.Debug("state dump: %v", err)
		return
	}
	d.Logger.Debug("%s", renderState(state))
}

func renderState(s State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "dest_dir=%s ", s.DestDir)
	fmt.Fprintf(&b, "creation={status=%s pid=%d stopped=%t next=%d reference=%q} ",
		s.CreationStatus, s.CreationPid, s.CreationStopped, s.NextSnapshotTime, s.NameOfReferenceSnapshot)
	fmt.Fprintf(&b, "removal={status=%s pid=%d victim=%q} ", s.RemovalStatus, s.RemovalPid, s.RemovalVictim)
	fmt.Fprintf(&b, "disk={free_mb=%d pct_free=%.2f pct_free_inodes=%.2f}",
		s.FreeMB, s.PercentFree, s.PercentFreeInodes)
	return b.String()
}
