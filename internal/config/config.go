// Package config loads and validates snapguard's YAML configuration in
// three phases: decode the file, apply environment overrides, apply
// explicit CLI overrides, then validate the merged result.
package config

// Config holds every configuration flag snapguard accepts. YAML tags use
// snake_case spelling so the file format matches the flag vocabulary
// operators already know.
type Config struct {
	SourceDir   string   `yaml:"source_dir"`
	DestDir     string   `yaml:"dest_dir"`
	RemoteHost  string   `yaml:"remote_host"`
	RemoteUser  string   `yaml:"remote_user"`
	RsyncOption []string `yaml:"rsync_option"`

	ExcludePatterns string `yaml:"exclude_patterns"`

	UnitInterval int `yaml:"unit_interval"`
	NumIntervals int `yaml:"num_intervals"`

	MinFreeMB            uint64  `yaml:"min_free_mb"`
	MinFreePercent       float64 `yaml:"min_free_percent"`
	MinFreePercentInodes float64 `yaml:"min_free_percent_inodes"`

	KeepRedundant bool `yaml:"keep_redundant"`
	NoResume      bool `yaml:"no_resume"`

	PreCreateHook  string `yaml:"pre_create_hook"`
	PostCreateHook string `yaml:"post_create_hook"`
	PreRemoveHook  string `yaml:"pre_remove_hook"`
	PostRemoveHook string `yaml:"post_remove_hook"`
	ExitHook       string `yaml:"exit_hook"`

	LogFile  string `yaml:"logfile"`
	LogLevel string `yaml:"loglevel"`
	Daemon   bool   `yaml:"daemon"`

	DryRun bool `yaml:"dry_run"`
}

// Default returns a Config with the defaults applied before reading any
// file: a 1-day unit interval, 4 retention intervals, and an INFO log
// level.
func Default() Config {
	return Config{
		UnitInterval: 1,
		NumIntervals: 4,
		LogLevel:     "INFO",
	}
}
