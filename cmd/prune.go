package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/snapguard/snapguard/internal/pipeline"
	"github.com/snapguard/snapguard/internal/retention"
	"github.com/snapguard/snapguard/internal/snapshot"
	"github.com/spf13/cobra"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove outdated and redundant snapshots",
	Long: `prune repeatedly picks an outdated, then a redundant, victim and
removes it (pre-remove hook, rm, post-remove hook), waiting synchronously
for each child. It stops once neither kind of victim remains.`,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := chdirDest(cfg.DestDir); err != nil {
		return err
	}

	deps := &syncDeps{cfg: cfg, dryRun: cfg.DryRun}
	removed := 0

	for {
		now := time.Now().Unix()
		list, err := snapshot.Enumerate(".", cfg.UnitInterval, cfg.NumIntervals, now)
		if err != nil {
			return fmt.Errorf("prune: enumerate snapshots: %w", err)
		}

		victim, ok := retention.FindOutdated(list, 0, "")
		if !ok && !cfg.KeepRedundant {
			victim, ok = retention.FindRedundant(list, 0, "")
		}
		if !ok {
			break
		}

		if err := removeOne(deps, victim); err != nil {
			return fmt.Errorf("prune: remove %s: %w", victim.Name, err)
		}
		fmt.Printf("removed %s\n", victim.Name)
		removed++
	}

	color.New(color.FgGreen).Printf("pruned %d snapshot(s)\n", removed)
	return nil
}

// removeOne drives a Removal through a full cycle. Each syncDeps spawn call
// runs its child to completion before returning, so by the time Start or
// Tick hands back control, deps.lastExit already holds the exit that just
// happened; removeOne's job is only to feed it back via OnChildExit.
func removeOne(deps *syncDeps, victim snapshot.Snapshot) error {
	r := &pipeline.Removal{}
	cfg := deps.removeConfig()
	now := time.Now().Unix()

	if err := r.Start(victim, cfg, deps); err != nil {
		return err
	}
	if r.Status == pipeline.PreRunning {
		r.OnChildExit(now, deps.lastExit)
		if r.Status != pipeline.PreSuccess {
			return fmt.Errorf("pre_remove_hook failed with exit code %d", deps.lastExit.ExitCode)
		}
	}

	if err := r.Tick(cfg, deps); err != nil {
		return err
	}
	if r.Status != pipeline.Running {
		return fmt.Errorf("unexpected pipeline state %s before rm", r.Status)
	}
	r.OnChildExit(now, deps.lastExit)
	if r.Status != pipeline.Success {
		return fmt.Errorf("rm failed with exit code %d", deps.lastExit.ExitCode)
	}

	if err := r.Tick(cfg, deps); err != nil {
		return err
	}
	if r.Status == pipeline.PostRunning {
		r.OnChildExit(now, deps.lastExit)
	}
	return nil
}
