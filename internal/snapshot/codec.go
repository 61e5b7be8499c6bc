// Package snapshot classifies and enumerates the hardlink snapshot
// directories that make up a destination tree. It never touches the file
// system to ask whether a snapshot is complete; the directory name alone is
// authoritative.
package snapshot

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Flags records the status bits encoded in a snapshot's directory name.
type Flags struct {
	Complete     bool
	BeingDeleted bool
}

// Snapshot is one on-disk backup directory under the destination directory.
type Snapshot struct {
	Name           string
	CreationTime   int64
	CompletionTime int64
	Flags          Flags
	Interval       uint
}

var (
	reIncomplete   = regexp.MustCompile(`^(\d+)-incomplete$`)
	reIncompleteBD = regexp.MustCompile(`^(\d+)-incomplete\.being_deleted$`)
	reCompleteBD   = regexp.MustCompile(`^(\d+)-(\d+)\.being_deleted$`)
	reComplete     = regexp.MustCompile(`^(\d+)-(\d+)\.(.+)$`)
)

// Parse classifies a directory name, returning the decoded Snapshot and true
// only when the name matches one of the four recognized forms and passes the
// range checks (start <= now, end <= now, end >= start). Anything else is
// reported as "not a snapshot" via the second return value. unitInterval is
// the configured number of days per retention bucket, used to fill Interval.
func Parse(name string, now int64, unitInterval int) (Snapshot, bool) {
	if m := reIncompleteBD.FindStringSubmatch(name); m != nil {
		start, ok := parseInt(m[1], now)
		if !ok {
			return Snapshot{}, false
		}
		return finish(Snapshot{
			Name:         name,
			CreationTime: start,
			Flags:        Flags{BeingDeleted: true},
		}, now, unitInterval), true
	}
	if m := reIncomplete.FindStringSubmatch(name); m != nil {
		start, ok := parseInt(m[1], now)
		if !ok {
			return Snapshot{}, false
		}
		return finish(Snapshot{
			Name:         name,
			CreationTime: start,
		}, now, unitInterval), true
	}
	if m := reCompleteBD.FindStringSubmatch(name); m != nil {
		return parseCompleteLike(name, m[1], m[2], now, unitInterval, true)
	}
	if m := reComplete.FindStringSubmatch(name); m != nil {
		if m[3] == "" {
			return Snapshot{}, false
		}
		return parseCompleteLike(name, m[1], m[2], now, unitInterval, false)
	}
	return Snapshot{}, false
}

func parseCompleteLike(name, startStr, endStr string, now int64, unitInterval int, beingDeleted bool) (Snapshot, bool) {
	start, ok := parseInt(startStr, now)
	if !ok {
		return Snapshot{}, false
	}
	end, ok := parseInt(endStr, now)
	if !ok {
		return Snapshot{}, false
	}
	if end < start {
		return Snapshot{}, false
	}
	s := Snapshot{
		Name:           name,
		CreationTime:   start,
		CompletionTime: end,
		Flags:          Flags{Complete: true, BeingDeleted: beingDeleted},
	}
	return finish(s, now, unitInterval), true
}

// finish fills in Interval, computed from the creation time alone per
// floor((now - creation_time) / (unit_interval * 86400)).
func finish(s Snapshot, now int64, unitInterval int) Snapshot {
	if unitInterval <= 0 {
		return s
	}
	secondsPerUnit := int64(unitInterval) * 86400
	age := now - s.CreationTime
	if age < 0 {
		age = 0
	}
	s.Interval = uint(age / secondsPerUnit)
	return s
}

func parseInt(s string, now int64) (int64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	if v > now {
		return 0, false
	}
	return v, true
}

// IncompleteName formats the directory name used for an in-progress
// creation that started at start.
func IncompleteName(start int64) string {
	return fmt.Sprintf("%d-incomplete", start)
}

// BeingDeletedName formats the rename target applied just before a
// snapshot's removal begins.
func BeingDeletedName(s Snapshot) string {
	if s.Flags.Complete {
		return fmt.Sprintf("%d-%d.being_deleted", s.CreationTime, s.CompletionTime)
	}
	return fmt.Sprintf("%d-incomplete.being_deleted", s.CreationTime)
}

// localTimeLayout is the Go rendering of the decorative local-time suffix,
// equivalent to strftime("%a_%b_%d_%Y_%H_%M_%S", ...).
const localTimeLayout = "Mon_Jan_02_2006_15_04_05"

// CompleteName formats the directory name assigned when a creation
// finishes: the stable "<start>-<end>" pair plus a decorative, locale-local
// timestamp suffix that is never parsed back. It always succeeds on
// supported platforms; the error return exists only to keep the call shape
// honest with callers that wrap other fallible formatting steps.
func CompleteName(start, end int64) (string, error) {
	startLocal := time.Unix(start, 0).Local().Format(localTimeLayout)
	endLocal := time.Unix(end, 0).Local().Format(localTimeLayout)
	return fmt.Sprintf("%d-%d.%s-%s", start, end, startLocal, endLocal), nil
}
