// Package dsserr enumerates the stable error kinds a snapguard daemon can
// report. Every fallible operation returns one of these, optionally wrapping
// an underlying error via %w so callers can still errors.Is/As down to the
// OS-level cause.
package dsserr

import "errors"

var (
	// ErrSyntax covers malformed CLI/config input.
	ErrSyntax = errors.New("syntax error")
	// ErrInvalidNumber covers a numeric flag or config value that fails to parse.
	ErrInvalidNumber = errors.New("invalid number")
	// ErrInvoluntaryExit indicates a child process was killed by a signal
	// rather than exiting on its own.
	ErrInvoluntaryExit = errors.New("child killed by signal")
	// ErrBadExitCode indicates a child exited with an unexpected status.
	ErrBadExitCode = errors.New("unexpected exit code")
	// ErrSignal indicates the process is terminating because of a caught
	// INT or TERM signal.
	ErrSignal = errors.New("terminating signal caught")
	// ErrBug indicates an invariant the state machines assume was violated.
	ErrBug = errors.New("internal invariant violated")
	// ErrNotRunning indicates no daemon holds the instance lock for a
	// given config file.
	ErrNotRunning = errors.New("daemon not running")
	// ErrNoSpace indicates disk space could not be reclaimed and no
	// removable snapshot exists.
	ErrNoSpace = errors.New("no space left and nothing removable")
	// ErrAlreadyRunning indicates a daemon already holds the instance lock.
	ErrAlreadyRunning = errors.New("daemon already running")
	// ErrDryRunConflict indicates run was invoked together with dry_run.
	ErrDryRunConflict = errors.New("run is incompatible with dry_run")
)

// names maps each sentinel to the stable textual name used in logs and
// passed as exit_hook's single argument.
var names = map[error]string{
	ErrSyntax:          "SYNTAX",
	ErrInvalidNumber:   "INVALID_NUMBER",
	ErrInvoluntaryExit: "INVOLUNTARY_EXIT",
	ErrBadExitCode:     "BAD_EXIT_CODE",
	ErrSignal:          "SIGNAL",
	ErrBug:             "BUG",
	ErrNotRunning:      "NOT_RUNNING",
	ErrNoSpace:         "ENOSPC",
	ErrAlreadyRunning:  "ALREADY_RUNNING",
	ErrDryRunConflict:  "DRY_RUN_CONFLICT",
}

// Name returns the stable textual name for err, matching it against the
// sentinels above via errors.Is. Unrecognized errors (including nil) fall
// back to "UNKNOWN".
func Name(err error) string {
	for sentinel, name := range names {
		if errors.Is(err, sentinel) {
			return name
		}
	}
	return "UNKNOWN"
}
