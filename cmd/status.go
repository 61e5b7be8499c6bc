package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/snapguard/snapguard/internal/config"
	"github.com/snapguard/snapguard/internal/daemon"
	"github.com/snapguard/snapguard/internal/dsslog"
	"github.com/snapguard/snapguard/internal/instancelock"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the daemon is running and its internal state",
	Long: `status reports the running daemon's pid (via the instance lock) and,
when the destination directory is reachable, the current state of both
pipelines and disk usage.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	pid, err := instancelock.GetPID(path)
	if err != nil {
		color.New(color.FgYellow).Println("not running")
	} else {
		color.New(color.FgGreen).Printf("running, pid %d\n", pid)
	}

	if err := chdirDest(cfg.DestDir); err != nil {
		return err
	}

	d := daemon.New(cfg, path, config.Overrides{}, dsslog.NewStderr(dsslog.Emerg), newDefaultSensor(), func() int64 { return time.Now().Unix() })
	state, err := d.Inspect(time.Now().Unix())
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	fmt.Printf("creation: %s (pid %d, stopped=%t)\n", state.CreationStatus, state.CreationPid, state.CreationStopped)
	fmt.Printf("removal:  %s (pid %d, victim=%q)\n", state.RemovalStatus, state.RemovalPid, state.RemovalVictim)
	fmt.Printf("disk:     %d MB free, %.1f%% free, %.1f%% inodes free\n", state.FreeMB, state.PercentFree, state.PercentFreeInodes)
	return nil
}
