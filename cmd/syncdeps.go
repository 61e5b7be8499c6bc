package cmd

import (
	"context"
	"fmt"
	"os"
	"os/user"

	"github.com/snapguard/snapguard/internal/config"
	"github.com/snapguard/snapguard/internal/pipeline"
	"github.com/snapguard/snapguard/internal/procexec"
	"github.com/snapguard/snapguard/internal/snapshot"
)

// syncDeps implements both pipeline.CreationDeps and pipeline.RemovalDeps by
// running every child to completion before returning, so the create and
// prune subcommands can drive the same state machines the daemon uses
// without an event loop. Each spawn records the exit it just observed in
// lastExit, which the caller reads immediately after Tick returns.
type syncDeps struct {
	cfg      config.Config
	dryRun   bool
	lastExit pipeline.ChildExit
}

func (s *syncDeps) SpawnHook(cmdLine string) (int, error) {
	if s.dryRun {
		fmt.Printf("would run hook: %s\n", cmdLine)
		s.lastExit = pipeline.ChildExit{ExitCode: 0}
		return 0, nil
	}
	code, err := procexec.RunHook(context.Background(), cmdLine)
	if err != nil {
		return 0, err
	}
	s.lastExit = pipeline.ChildExit{ExitCode: code}
	return 0, nil
}

func (s *syncDeps) SpawnRsync(argv []string) (int, error) {
	if s.dryRun {
		fmt.Printf("would run: rsync %v\n", argv)
		s.lastExit = pipeline.ChildExit{ExitCode: 0}
		return 0, nil
	}
	code, err := procexec.RunSync("rsync", argv...)
	if err != nil {
		return 0, err
	}
	s.lastExit = pipeline.ChildExit{ExitCode: code}
	return 0, nil
}

func (s *syncDeps) SpawnRm(path string) (int, error) {
	if s.dryRun {
		fmt.Printf("would remove: %s\n", path)
		s.lastExit = pipeline.ChildExit{ExitCode: 0}
		return 0, nil
	}
	code, err := procexec.RunSync("rm", "-rf", path)
	if err != nil {
		return 0, err
	}
	s.lastExit = pipeline.ChildExit{ExitCode: code}
	return 0, nil
}

func (s *syncDeps) Rename(oldName, newName string) error {
	if s.dryRun {
		fmt.Printf("would rename %s -> %s\n", oldName, newName)
		return nil
	}
	return os.Rename(oldName, newName)
}

func (s *syncDeps) EnumerateSnapshots(now int64) (snapshot.List, error) {
	return snapshot.Enumerate(".", s.cfg.UnitInterval, s.cfg.NumIntervals, now)
}

func (s *syncDeps) LocalUser() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}
	return u.Username
}

func (s *syncDeps) createConfig() pipeline.CreateConfig {
	return pipeline.CreateConfig{
		PreHook:           s.cfg.PreCreateHook,
		PostHook:          s.cfg.PostCreateHook,
		SourceDir:         s.cfg.SourceDir,
		RemoteHost:        s.cfg.RemoteHost,
		RemoteUser:        s.cfg.RemoteUser,
		ExtraRsyncOptions: s.cfg.RsyncOption,
		ExcludeFromFile:   s.cfg.ExcludePatterns,
		NoResume:          s.cfg.NoResume,
		UnitInterval:      s.cfg.UnitInterval,
		NumIntervals:      s.cfg.NumIntervals,
	}
}

func (s *syncDeps) removeConfig() pipeline.RemoveConfig {
	return pipeline.RemoveConfig{PreHook: s.cfg.PreRemoveHook, PostHook: s.cfg.PostRemoveHook}
}
