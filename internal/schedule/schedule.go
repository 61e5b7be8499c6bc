// Package schedule decides when the next snapshot creation is due, based on
// the observed duration of past creations and the retention budget for the
// newest interval.
package schedule

import "github.com/snapguard/snapguard/internal/snapshot"

// NextSnapshotTime computes the wall-clock time (seconds since epoch) at
// which the next creation should start, following a four-step
// derivation: the target count for interval 0 (W), the average observed
// creation duration (x), the per-unit-interval budget (U), and the
// resulting schedule point. It returns now immediately whenever the system
// cannot keep up with the budget, or once the computed time has already
// passed.
func NextSnapshotTime(list snapshot.List, unitIntervalDays, numIntervals int, now int64) int64 {
	w := desired0(numIntervals)
	if w <= 0 {
		return now
	}

	x := averageCreationDuration(list)
	u := int64(unitIntervalDays) * 86400

	if u < x*int64(w) {
		return now
	}

	last, ok := list.NewestComplete()
	if !ok {
		return now
	}

	next := last.CompletionTime + u/int64(w) - x
	if next <= now {
		return now
	}
	return next
}

func desired0(numIntervals int) int {
	if numIntervals <= 0 {
		return 0
	}
	return 1 << uint(numIntervals-1)
}

func averageCreationDuration(list snapshot.List) int64 {
	var total int64
	var count int64
	for _, s := range list.Snapshots {
		if !s.Flags.Complete {
			continue
		}
		total += s.CompletionTime - s.CreationTime
		count++
	}
	if count == 0 {
		return 0
	}
	return total / count
}
