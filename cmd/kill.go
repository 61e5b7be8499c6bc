package cmd

import (
	"fmt"
	"syscall"

	"github.com/snapguard/snapguard/internal/instancelock"
	"github.com/spf13/cobra"
)

var killCmd = &cobra.Command{
	Use:   "kill",
	Short: "Terminate the running daemon",
	Long:  `kill finds the running daemon via its instance lock and sends it TERM.`,
	RunE:  runKill,
}

func init() {
	rootCmd.AddCommand(killCmd)
}

func runKill(cmd *cobra.Command, args []string) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := instancelock.Kill(path, syscall.SIGTERM); err != nil {
		return fmt.Errorf("kill: %w", err)
	}
	fmt.Println("sent TERM")
	return nil
}
