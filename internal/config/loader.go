package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Overrides carries the subset of Config fields a CLI invocation may set
// explicitly, taking precedence over both the file and the environment.
// Pointer/slice fields distinguish "not given" from "given as zero value".
type Overrides struct {
	SourceDir       *string
	DestDir         *string
	RemoteHost      *string
	RemoteUser      *string
	RsyncOption     []string // non-nil replaces the file's list entirely on reload
	ExcludePatterns *string

	UnitInterval *int
	NumIntervals *int

	MinFreeMB            *uint64
	MinFreePercent       *float64
	MinFreePercentInodes *float64

	KeepRedundant *bool
	NoResume      *bool

	PreCreateHook  *string
	PostCreateHook *string
	PreRemoveHook  *string
	PostRemoveHook *string
	ExitHook       *string

	DryRun   *bool
	Daemon   *bool
	LogFile  *string
	LogLevel *string
}

// Loader reads a YAML config file and produces a validated Config, applying
// overrides in three phases: decode, environment, explicit overrides, then
// validate.
type Loader struct {
	path      string
	overrides Overrides
}

// NewLoader returns a Loader for the config file at path.
func NewLoader(path string, overrides Overrides) *Loader {
	return &Loader{path: path, overrides: overrides}
}

// Load reads, decodes, overrides, and validates the configuration.
func (l *Loader) Load() (Config, error) {
	cfg := Default()

	if _, err := os.Stat(l.path); err != nil {
		return Config{}, fmt.Errorf("config: stat %s: %w", l.path, err)
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", l.path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", l.path, err)
	}

	applyEnvironmentOverrides(&cfg)
	applyExplicitOverrides(&cfg, l.overrides)

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnvironmentOverrides lets SNAPGUARD_DEST_DIR and SNAPGUARD_SOURCE_DIR
// redirect the daemon without editing the file, useful in containerized
// deployments that mount different paths per environment.
func applyEnvironmentOverrides(cfg *Config) {
	if v := os.Getenv("SNAPGUARD_DEST_DIR"); v != "" {
		cfg.DestDir = v
	}
	if v := os.Getenv("SNAPGUARD_SOURCE_DIR"); v != "" {
		cfg.SourceDir = v
	}
}

func applyExplicitOverrides(cfg *Config, o Overrides) {
	if o.SourceDir != nil {
		cfg.SourceDir = *o.SourceDir
	}
	if o.DestDir != nil {
		cfg.DestDir = *o.DestDir
	}
	if o.RemoteHost != nil {
		cfg.RemoteHost = *o.RemoteHost
	}
	if o.RemoteUser != nil {
		cfg.RemoteUser = *o.RemoteUser
	}
	if o.RsyncOption != nil {
		cfg.RsyncOption = o.RsyncOption
	}
	if o.ExcludePatterns != nil {
		cfg.ExcludePatterns = *o.ExcludePatterns
	}
	if o.UnitInterval != nil {
		cfg.UnitInterval = *o.UnitInterval
	}
	if o.NumIntervals != nil {
		cfg.NumIntervals = *o.NumIntervals
	}
	if o.MinFreeMB != nil {
		cfg.MinFreeMB = *o.MinFreeMB
	}
	if o.MinFreePercent != nil {
		cfg.MinFreePercent = *o.MinFreePercent
	}
	if o.MinFreePercentInodes != nil {
		cfg.MinFreePercentInodes = *o.MinFreePercentInodes
	}
	if o.KeepRedundant != nil {
		cfg.KeepRedundant = *o.KeepRedundant
	}
	if o.NoResume != nil {
		cfg.NoResume = *o.NoResume
	}
	if o.PreCreateHook != nil {
		cfg.PreCreateHook = *o.PreCreateHook
	}
	if o.PostCreateHook != nil {
		cfg.PostCreateHook = *o.PostCreateHook
	}
	if o.PreRemoveHook != nil {
		cfg.PreRemoveHook = *o.PreRemoveHook
	}
	if o.PostRemoveHook != nil {
		cfg.PostRemoveHook = *o.PostRemoveHook
	}
	if o.ExitHook != nil {
		cfg.ExitHook = *o.ExitHook
	}
	if o.DryRun != nil {
		cfg.DryRun = *o.DryRun
	}
	if o.Daemon != nil {
		cfg.Daemon = *o.Daemon
	}
	if o.LogFile != nil {
		cfg.LogFile = *o.LogFile
	}
	if o.LogLevel != nil {
		cfg.LogLevel = *o.LogLevel
	}
}

// DefaultConfigPath returns $HOME/.dssrc, the default location when no
// --config_file flag is given.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home directory: %w", err)
	}
	return home + string(os.PathSeparator) + ".dssrc", nil
}
