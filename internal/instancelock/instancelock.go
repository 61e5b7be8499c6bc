// Package instancelock enforces a single daemon per destination directory,
// keyed by the canonical path of the config file. It uses a gofrs/flock
// advisory file lock plus a sidecar pidfile rather than a SysV semaphore
// pair, the idiomatic Go equivalent that requires no kernel IPC namespace.
package instancelock

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/snapguard/snapguard/internal/dsserr"
)

// Lock holds an acquired (or not-yet-acquired) instance lock for one config
// file.
type Lock struct {
	flock   *flock.Flock
	pidFile string
}

// pathsFor derives the lock-file and pidfile paths from the canonical
// config path: a sha256 digest keeps the name stable, short, and free of
// path separators regardless of the config path's own characters.
func pathsFor(configFile string) (lockPath, pidPath string, err error) {
	canon, err := filepath.Abs(configFile)
	if err != nil {
		return "", "", err
	}
	if resolved, rerr := filepath.EvalSymlinks(canon); rerr == nil {
		canon = resolved
	}

	sum := sha256.Sum256([]byte(canon))
	key := hex.EncodeToString(sum[:])[:16]

	base := filepath.Join(os.TempDir(), fmt.Sprintf("snapguard-%s", key))
	return base + ".lock", base + ".pid", nil
}

// Acquire takes the instance lock for configFile, failing with
// dsserr.ErrAlreadyRunning if another process already holds it. On success
// it writes the current pid to the sidecar pidfile.
func Acquire(configFile string) (*Lock, error) {
	lockPath, pidPath, err := pathsFor(configFile)
	if err != nil {
		return nil, err
	}

	fl := flock.New(lockPath)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, dsserr.ErrAlreadyRunning
	}

	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		_ = fl.Unlock()
		return nil, err
	}

	return &Lock{flock: fl, pidFile: pidPath}, nil
}

// Release drops the instance lock and removes the pidfile.
func (l *Lock) Release() error {
	_ = os.Remove(l.pidFile)
	return l.flock.Unlock()
}

// GetPID returns the pid of the daemon currently holding the lock for
// configFile. It returns dsserr.ErrNotRunning if the lock is free (a
// non-blocking try-lock succeeds, meaning nothing holds it).
func GetPID(configFile string) (int, error) {
	lockPath, pidPath, err := pathsFor(configFile)
	if err != nil {
		return 0, err
	}

	fl := flock.New(lockPath)
	ok, err := fl.TryLock()
	if err != nil {
		return 0, err
	}
	if ok {
		_ = fl.Unlock()
		return 0, dsserr.ErrNotRunning
	}

	data, err := os.ReadFile(pidPath)
	if err != nil {
		return 0, dsserr.ErrNotRunning
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, dsserr.ErrNotRunning
	}
	return pid, nil
}

// Kill sends sig to the daemon currently holding the lock for configFile.
func Kill(configFile string, sig syscall.Signal) error {
	pid, err := GetPID(configFile)
	if err != nil {
		return err
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(sig)
}
