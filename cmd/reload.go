package cmd

import (
	"fmt"
	"syscall"

	"github.com/snapguard/snapguard/internal/instancelock"
	"github.com/spf13/cobra"
)

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Ask the running daemon to reload its configuration",
	Long:  `reload finds the running daemon via its instance lock and sends it HUP.`,
	RunE:  runReload,
}

func init() {
	rootCmd.AddCommand(reloadCmd)
}

func runReload(cmd *cobra.Command, args []string) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := instancelock.Kill(path, syscall.SIGHUP); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	fmt.Println("sent HUP")
	return nil
}
