package config

import (
	"fmt"

	"github.com/snapguard/snapguard/internal/dsserr"
)

// Validate aggregates every field-level check and wraps the first failure
// with dsserr.ErrSyntax so callers can distinguish config problems from
// other startup failures.
func Validate(cfg Config) error {
	if err := validateDirectories(cfg); err != nil {
		return err
	}
	if err := validateIntervals(cfg); err != nil {
		return err
	}
	if err := validateThresholds(cfg); err != nil {
		return err
	}
	if err := validateRunMode(cfg); err != nil {
		return err
	}
	return nil
}

func validateDirectories(cfg Config) error {
	if cfg.SourceDir == "" {
		return fmt.Errorf("%w: source_dir is required", dsserr.ErrSyntax)
	}
	if cfg.DestDir == "" {
		return fmt.Errorf("%w: dest_dir is required", dsserr.ErrSyntax)
	}
	return nil
}

func validateIntervals(cfg Config) error {
	if cfg.UnitInterval <= 0 {
		return fmt.Errorf("%w: unit_interval must be > 0, got %d", dsserr.ErrInvalidNumber, cfg.UnitInterval)
	}
	if cfg.NumIntervals < 1 || cfg.NumIntervals > 30 {
		return fmt.Errorf("%w: num_intervals must be in [1, 30], got %d", dsserr.ErrInvalidNumber, cfg.NumIntervals)
	}
	return nil
}

func validateThresholds(cfg Config) error {
	if cfg.MinFreePercent < 0 || cfg.MinFreePercent > 100 {
		return fmt.Errorf("%w: min_free_percent must be in [0, 100]", dsserr.ErrInvalidNumber)
	}
	if cfg.MinFreePercentInodes < 0 || cfg.MinFreePercentInodes > 100 {
		return fmt.Errorf("%w: min_free_percent_inodes must be in [0, 100]", dsserr.ErrInvalidNumber)
	}
	return nil
}

func validateRunMode(cfg Config) error {
	if cfg.Daemon && cfg.DryRun {
		return fmt.Errorf("%w: run is incompatible with dry_run", dsserr.ErrDryRunConflict)
	}
	return nil
}
