package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/snapguard/snapguard/internal/pipeline"
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Perform one full snapshot creation cycle",
	Long: `create runs the pre-create hook, rsync, and post-create hook in
sequence, waiting synchronously for each child, and exits nonzero on any
failure.`,
	RunE: runCreate,
}

func init() {
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := chdirDest(cfg.DestDir); err != nil {
		return err
	}

	deps := &syncDeps{cfg: cfg, dryRun: cfg.DryRun}
	c := &pipeline.Creation{}
	now := time.Now().Unix()

	if err := c.Tick(now, deps.createConfig(), deps); err != nil {
		return fmt.Errorf("create: pre_create_hook phase: %w", err)
	}
	if c.Status == pipeline.PreRunning {
		if err := c.OnChildExit(now, deps.lastExit, deps); err != nil {
			return fmt.Errorf("create: pre_create_hook exit: %w", err)
		}
		if c.Status != pipeline.PreSuccess {
			return fmt.Errorf("create: pre_create_hook failed with exit code %d", deps.lastExit.ExitCode)
		}
	}

	if err := c.Tick(now, deps.createConfig(), deps); err != nil {
		return fmt.Errorf("create: rsync phase: %w", err)
	}
	if c.Status != pipeline.Running {
		return fmt.Errorf("create: unexpected pipeline state %s before rsync", c.Status)
	}

	completion := waitForNewSecond(now)
	if err := c.OnChildExit(completion, deps.lastExit, deps); err != nil {
		return fmt.Errorf("create: rsync exit: %w", err)
	}
	switch c.Status {
	case pipeline.NeedsRestart:
		return fmt.Errorf("create: rsync exited with a restartable status (%d); run create again", deps.lastExit.ExitCode)
	case pipeline.Ready:
		return fmt.Errorf("create: rsync failed with exit code %d", deps.lastExit.ExitCode)
	case pipeline.Success:
		// proceeds to post-create hook below
	}

	if err := c.Tick(completion, deps.createConfig(), deps); err != nil {
		return fmt.Errorf("create: post_create_hook phase: %w", err)
	}
	if c.Status == pipeline.PostRunning {
		if err := c.OnChildExit(completion, deps.lastExit, deps); err != nil {
			return fmt.Errorf("create: post_create_hook exit: %w", err)
		}
	}

	green := color.New(color.FgGreen)
	green.Printf("created %s\n", c.PathToLastCompleteSnapshot)
	return nil
}

// waitForNewSecond busy-waits until the wall clock has moved past start, at
// one-second granularity, guaranteeing the completed snapshot's name is
// unique even when rsync finishes within the same second it started.
func waitForNewSecond(start int64) int64 {
	now := time.Now().Unix()
	for now == start {
		time.Sleep(50 * time.Millisecond)
		now = time.Now().Unix()
	}
	return now
}
