package cmd

import (
	"fmt"
	"os"

	"github.com/snapguard/snapguard/internal/config"
	"github.com/spf13/cobra"
)

// Flags shared by every subcommand. They are bound to rootCmd's persistent
// flag set and mirror the YAML config keys one-for-one.
var (
	flagConfigFile string

	flagSourceDir   string
	flagDestDir     string
	flagRemoteHost  string
	flagRemoteUser  string
	flagRsyncOption []string

	flagExcludePatterns string

	flagUnitInterval int
	flagNumIntervals int

	flagMinFreeMB            uint64
	flagMinFreePercent       float64
	flagMinFreePercentInodes float64

	flagKeepRedundant bool
	flagNoResume      bool

	flagPreCreateHook  string
	flagPostCreateHook string
	flagPreRemoveHook  string
	flagPostRemoveHook string
	flagExitHook       string

	flagLogFile  string
	flagLogLevel string
	flagDaemon   bool

	flagDryRun bool

	// Version information, set by main.go.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
	BuiltBy = "unknown"
)

// SetVersionInfo sets the version information from main.go.
func SetVersionInfo(version, commit, date, builtBy string) {
	Version = version
	Commit = commit
	Date = date
	BuiltBy = builtBy
}

var rootCmd = &cobra.Command{
	Use:   "snapguardd",
	Short: "Hardlink-based incremental snapshot backup daemon",
	Long: `snapguardd maintains rsync/hardlink snapshot trees under a geometric
retention policy, driving external rsync and rm processes from a
single-threaded, signal-driven event loop.`,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	home, err := config.DefaultConfigPath()
	if err != nil {
		home = ""
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfigFile, "config_file", home, "path to the YAML config file")

	pf.StringVar(&flagSourceDir, "source_dir", "", "rsync source directory")
	pf.StringVar(&flagDestDir, "dest_dir", "", "destination directory holding snapshot subdirectories")
	pf.StringVar(&flagRemoteHost, "remote_host", "", "rsync source host (empty or localhost means local)")
	pf.StringVar(&flagRemoteUser, "remote_user", "", "rsync source user")
	pf.StringArrayVar(&flagRsyncOption, "rsync_option", nil, "extra rsync argument, repeatable, inserted after -aq --delete")

	pf.StringVar(&flagExcludePatterns, "exclude_patterns", "", "path to an rsync --exclude-from file")

	pf.IntVar(&flagUnitInterval, "unit_interval", 0, "days per retention bucket (>0)")
	pf.IntVar(&flagNumIntervals, "num_intervals", 0, "number of retention buckets (1-30)")

	pf.Uint64Var(&flagMinFreeMB, "min_free_mb", 0, "minimum free megabytes before reclaiming space (0 disables)")
	pf.Float64Var(&flagMinFreePercent, "min_free_percent", 0, "minimum free space percent (0 disables)")
	pf.Float64Var(&flagMinFreePercentInodes, "min_free_percent_inodes", 0, "minimum free inode percent (0 disables)")

	pf.BoolVar(&flagKeepRedundant, "keep_redundant", false, "never remove merely-redundant snapshots absent disk pressure")
	pf.BoolVar(&flagNoResume, "no_resume", false, "disable recycling an existing directory into the in-progress snapshot")

	pf.StringVar(&flagPreCreateHook, "pre_create_hook", "", "command run before each snapshot creation")
	pf.StringVar(&flagPostCreateHook, "post_create_hook", "", "command run after each snapshot creation")
	pf.StringVar(&flagPreRemoveHook, "pre_remove_hook", "", "command run before each snapshot removal")
	pf.StringVar(&flagPostRemoveHook, "post_remove_hook", "", "command run after each snapshot removal")
	pf.StringVar(&flagExitHook, "exit_hook", "", "command run when the daemon exits")

	pf.StringVar(&flagLogFile, "logfile", "", "log file path (default: stderr)")
	pf.StringVar(&flagLogLevel, "loglevel", "", "minimum severity logged: DEBUG..EMERG")
	pf.BoolVar(&flagDaemon, "daemon", false, "detach and run in the background")

	pf.BoolVar(&flagDryRun, "dry_run", false, "print actions instead of executing them (create/prune only)")

	rootCmd.SetVersionTemplate(fmt.Sprintf(`snapguardd %s
  Commit:    %s
  Built:     %s
  Built by:  %s
`, Version, Commit, Date, BuiltBy))
	rootCmd.Version = Version
}

// strPtr returns nil for an unset flag and a pointer to value otherwise, so
// Overrides can distinguish "not given" from "given as zero value".
func strPtr(cmd *cobra.Command, name string, value string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}

func intPtr(cmd *cobra.Command, name string, value int) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}

func boolPtr(cmd *cobra.Command, name string, value bool) *bool {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}

func uint64Ptr(cmd *cobra.Command, name string, value uint64) *uint64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}

func float64Ptr(cmd *cobra.Command, name string, value float64) *float64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}

// buildOverrides collects every explicitly-set persistent flag into a
// config.Overrides, letting the loader tell "not given" from "given as
// zero" for every field.
func buildOverrides(cmd *cobra.Command) config.Overrides {
	o := config.Overrides{
		SourceDir:            strPtr(cmd, "source_dir", flagSourceDir),
		DestDir:              strPtr(cmd, "dest_dir", flagDestDir),
		RemoteHost:           strPtr(cmd, "remote_host", flagRemoteHost),
		RemoteUser:           strPtr(cmd, "remote_user", flagRemoteUser),
		ExcludePatterns:      strPtr(cmd, "exclude_patterns", flagExcludePatterns),
		UnitInterval:         intPtr(cmd, "unit_interval", flagUnitInterval),
		NumIntervals:         intPtr(cmd, "num_intervals", flagNumIntervals),
		MinFreeMB:            uint64Ptr(cmd, "min_free_mb", flagMinFreeMB),
		MinFreePercent:       float64Ptr(cmd, "min_free_percent", flagMinFreePercent),
		MinFreePercentInodes: float64Ptr(cmd, "min_free_percent_inodes", flagMinFreePercentInodes),
		KeepRedundant:        boolPtr(cmd, "keep_redundant", flagKeepRedundant),
		NoResume:             boolPtr(cmd, "no_resume", flagNoResume),
		PreCreateHook:        strPtr(cmd, "pre_create_hook", flagPreCreateHook),
		PostCreateHook:       strPtr(cmd, "post_create_hook", flagPostCreateHook),
		PreRemoveHook:        strPtr(cmd, "pre_remove_hook", flagPreRemoveHook),
		PostRemoveHook:       strPtr(cmd, "post_remove_hook", flagPostRemoveHook),
		ExitHook:             strPtr(cmd, "exit_hook", flagExitHook),
		DryRun:               boolPtr(cmd, "dry_run", flagDryRun),
		Daemon:               boolPtr(cmd, "daemon", flagDaemon),
		LogFile:              strPtr(cmd, "logfile", flagLogFile),
		LogLevel:             strPtr(cmd, "loglevel", flagLogLevel),
	}
	if cmd.Flags().Changed("rsync_option") {
		o.RsyncOption = flagRsyncOption
	}
	return o
}

// configPath resolves the --config_file flag, falling back to the default
// location when it was never set.
func configPath() (string, error) {
	if flagConfigFile != "" {
		return flagConfigFile, nil
	}
	return config.DefaultConfigPath()
}

// loadConfig loads and validates configuration for cmd, merging the file,
// environment, and explicit flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	path, err := configPath()
	if err != nil {
		return config.Config{}, "", err
	}
	loader := config.NewLoader(path, buildOverrides(cmd))
	cfg, err := loader.Load()
	return cfg, path, err
}
