// Package procexec spawns the daemon's child processes: pre/post hooks,
// rsync, and rm. Spawning never waits for the child to finish; the daemon
// loop reaps children itself via internal/selfpipe so that at most one
// creation child and one removal child are ever outstanding, per the daemon's
// concurrency model.
package procexec

import (
	"context"
	"os/exec"
	"time"

	"github.com/snapguard/snapguard/pkg/retry"
)

// Spawned is a started, not-yet-reaped child process.
type Spawned struct {
	Cmd *exec.Cmd
	Pid int
}

// Spawn starts name with args, retrying a small number of times if the
// fork/exec itself fails transiently (e.g. EAGAIN under memory pressure).
// It never retries based on the child's eventual exit status — that is the
// creation/removal pipelines' job, driven by a fixed 60-second defer rather
// than exponential backoff.
func Spawn(name string, args ...string) (*Spawned, error) {
	var spawned *Spawned

	r := retry.New(retry.Config{
		MaxRetries:   2,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     200 * time.Millisecond,
		Multiplier:   2.0,
		Jitter:       false,
		RetryIf:      retry.IsTransientError,
	})

	err := r.Do(func() error {
		cmd := exec.Command(name, args...)
		if err := cmd.Start(); err != nil {
			return retry.NewRetryableError(err)
		}
		spawned = &Spawned{Cmd: cmd, Pid: cmd.Process.Pid}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return spawned, nil
}

// RunHook spawns a hook command line and waits synchronously for it to
// exit, used by ls/create/prune's non-daemon synchronous paths where there
// is no event loop to reap children asynchronously. extraArgs are appended
// after the configured command (e.g. the completed snapshot's path for
// post-create/post-remove hooks).
func RunHook(ctx context.Context, hookCmd string, extraArgs ...string) (exitCode int, err error) {
	if hookCmd == "" {
		return 0, nil
	}
	args := append([]string{hookCmd}, extraArgs...)
	cmd := exec.CommandContext(ctx, "/bin/sh", append([]string{"-c", "\"$0\" \"$@\""}, args...)...)
	err = cmd.Run()
	return exitStatus(cmd, err)
}

// RunSync starts name with args and waits synchronously for it to exit,
// used by the ls/create/prune CLI paths that have no event loop to reap
// children asynchronously.
func RunSync(name string, args ...string) (exitCode int, err error) {
	cmd := exec.Command(name, args...)
	err = cmd.Run()
	return exitStatus(cmd, err)
}

func exitStatus(cmd *exec.Cmd, err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode(), nil
	}
	return -1, err
}
