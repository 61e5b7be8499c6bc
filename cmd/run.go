package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/snapguard/snapguard/internal/config"
	"github.com/snapguard/snapguard/internal/daemon"
	"github.com/snapguard/snapguard/internal/diskspace"
	"github.com/snapguard/snapguard/internal/dsserr"
	"github.com/snapguard/snapguard/internal/dsslog"
	"github.com/snapguard/snapguard/internal/instancelock"
	"github.com/spf13/cobra"
)

// snapguardDetachedEnv marks a re-exec'd child so it knows not to detach
// again; without it, --daemon would fork forever.
const snapguardDetachedEnv = "SNAPGUARD_DETACHED=1"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Enter the daemon control loop",
	Long: `run acquires the single-instance lock, optionally detaches into
the background, and drives the creation and removal pipelines until it
receives SIGINT or SIGTERM.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.DryRun {
		return fmt.Errorf("run: %w", dsserr.ErrDryRunConflict)
	}

	if cfg.Daemon && os.Getenv("SNAPGUARD_DETACHED") == "" {
		return detach()
	}

	lock, err := instancelock.Acquire(path)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	logger, err := newLoggerFor(cfg)
	if err != nil {
		_ = lock.Release()
		return err
	}

	if err := chdirDest(cfg.DestDir); err != nil {
		_ = lock.Release()
		return err
	}

	d := daemon.New(cfg, path, buildOverrides(cmd), logger, newDefaultSensor(), func() int64 { return time.Now().Unix() })
	d.Attach(nil, lock)
	d.Dump(time.Now().Unix())

	return d.Run()
}

// detach re-executes the current process with its own argv, detached from
// the controlling terminal via Setsid, then exits the parent. Go has no
// fork(2); re-exec is the idiomatic substitute.
func detach() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("run: resolve executable: %w", err)
	}
	child := exec.Command(exe, os.Args[1:]...)
	child.Env = append(os.Environ(), snapguardDetachedEnv)
	child.Stdin = nil
	setupDaemonProcess(child)
	if err := child.Start(); err != nil {
		return fmt.Errorf("run: detach: %w", err)
	}
	return nil
}

func newLoggerFor(cfg config.Config) (*dsslog.Logger, error) {
	level := dsslog.ParseLevel(cfg.LogLevel)
	if cfg.LogFile == "" {
		return dsslog.NewStderr(level), nil
	}
	return dsslog.NewFile(cfg.LogFile, level)
}

func newDefaultSensor() diskspace.Sensor {
	return diskspace.GopsutilSensor{}
}
