package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/snapguard/snapguard/internal/snapshot"
	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List snapshots in the destination directory",
	Long: `ls prints every snapshot as "<interval>  <name>  <H>:<MM>", where
H:MM is the creation duration for complete snapshots and 0:00 otherwise.`,
	RunE: runLs,
}

func init() {
	rootCmd.AddCommand(lsCmd)
}

func runLs(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := chdirDest(cfg.DestDir); err != nil {
		return err
	}

	now := time.Now().Unix()
	list, err := snapshot.Enumerate(".", cfg.UnitInterval, cfg.NumIntervals, now)
	if err != nil {
		return fmt.Errorf("ls: enumerate snapshots: %w", err)
	}

	interval := color.New(color.FgCyan)
	for _, s := range list.Snapshots {
		duration := "0:00"
		if s.Flags.Complete {
			duration = formatDuration(s.CompletionTime - s.CreationTime)
		}
		interval.Printf("%d\t", s.Interval)
		fmt.Printf("%s\t%s\n", s.Name, duration)
	}
	return nil
}

func formatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	return fmt.Sprintf("%d:%02d", h, m)
}
