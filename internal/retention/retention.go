// Package retention implements the geometric thinning policy that decides
// how many snapshots belong in each retention interval and which snapshot
// to remove when one must go.
package retention

import "github.com/snapguard/snapguard/internal/snapshot"

// Desired returns the target number of snapshots for the given interval:
// 2^(numIntervals-interval-1) while interval is within range, else 0.
func Desired(interval, numIntervals int) int {
	if interval < 0 || interval >= numIntervals {
		return 0
	}
	return 1 << uint(numIntervals-interval-1)
}

// exclusions bundles the two snapshots that every selector must skip: the
// one currently being created, and the one currently serving as an rsync
// --link-dest reference.
type exclusions struct {
	inProgressCreationTime int64
	referenceName          string
}

func excluded(s snapshot.Snapshot, x exclusions) bool {
	if x.inProgressCreationTime != 0 && s.CreationTime == x.inProgressCreationTime {
		return true
	}
	if x.referenceName != "" && s.Name == x.referenceName {
		return true
	}
	return false
}

// FindOutdated returns the first snapshot (in list order, i.e. oldest
// first) whose interval has fallen at or beyond numIntervals.
func FindOutdated(list snapshot.List, inProgressCreationTime int64, referenceName string) (snapshot.Snapshot, bool) {
	x := exclusions{inProgressCreationTime, referenceName}
	for _, s := range list.Snapshots {
		if excluded(s, x) {
			continue
		}
		if int(s.Interval) >= list.NumIntervals {
			return s, true
		}
	}
	return snapshot.Snapshot{}, false
}

// FindRedundant scans intervals from the oldest (numIntervals-1) down to 0,
// accumulating a shortfall ("missing") carried down from higher intervals
// that didn't have enough snapshots to meet their own quota. An interval is
// eligible for thinning once its actual count (the full interval_count,
// including the in-progress creation and the reference snapshot) exceeds
// desired+missing. Within an eligible interval the snapshot whose gap to its
// immediate older neighbor is smallest is chosen, since removing it disturbs
// temporal coverage the least; ties favor the older of the pair (list
// order). The reference and in-progress snapshots are excluded only from
// victim selection, never from the eligibility count, matching interval_count
// in the snapshot list.
func FindRedundant(list snapshot.List, inProgressCreationTime int64, referenceName string) (snapshot.Snapshot, bool) {
	x := exclusions{inProgressCreationTime, referenceName}

	byInterval := make(map[int][]snapshot.Snapshot)
	for _, s := range list.Snapshots {
		if excluded(s, x) {
			continue
		}
		idx := int(s.Interval)
		if idx >= list.NumIntervals {
			continue
		}
		byInterval[idx] = append(byInterval[idx], s)
	}

	missing := 0
	for interval := list.NumIntervals - 1; interval >= 0; interval-- {
		actual := list.IntervalCount[interval]
		desired := Desired(interval, list.NumIntervals)
		if desired+missing < actual {
			if victim, ok := minGapVictim(byInterval[interval]); ok {
				return victim, true
			}
		}
		if actual < desired {
			missing += desired - actual
		}
	}
	return snapshot.Snapshot{}, false
}

// minGapVictim returns the snapshot in an interval's bucket (already sorted
// ascending, since it was built from the ascending master list) whose gap to
// its immediate older neighbor is smallest. The oldest snapshot in the
// bucket has no older neighbor within the interval and is never chosen
// unless it is the only candidate.
func minGapVictim(bucket []snapshot.Snapshot) (snapshot.Snapshot, bool) {
	if len(bucket) == 0 {
		return snapshot.Snapshot{}, false
	}
	if len(bucket) == 1 {
		return bucket[0], true
	}
	bestIdx := 1
	bestGap := bucket[1].CreationTime - bucket[0].CreationTime
	for i := 2; i < len(bucket); i++ {
		gap := bucket[i].CreationTime - bucket[i-1].CreationTime
		if gap < bestGap {
			bestGap = gap
			bestIdx = i
		}
	}
	return bucket[bestIdx], true
}

// FindOrphaned returns a snapshot left inconsistent by a prior crash: one
// flagged BeingDeleted whose rm is not currently running, or an incomplete
// snapshot that either isn't the newest or is the newest but the creation
// pipeline isn't mid-restart.
func FindOrphaned(list snapshot.List, removalInProgressName string, newestIsRestarting bool) (snapshot.Snapshot, bool) {
	for _, s := range list.Snapshots {
		if s.Flags.BeingDeleted && s.Name != removalInProgressName {
			return s, true
		}
	}

	newest, ok := list.Newest()
	if !ok {
		return snapshot.Snapshot{}, false
	}
	for _, s := range list.Snapshots {
		if s.Flags.Complete {
			continue
		}
		if s.Flags.BeingDeleted {
			continue
		}
		if s.Name != newest.Name {
			return s, true
		}
		if !newestIsRestarting {
			return s, true
		}
	}
	return snapshot.Snapshot{}, false
}

// FindOldestRemovable returns the earliest snapshot in list order,
// excluding the in-progress creation and reference snapshot. It is the
// last-resort victim when disk space is low and no outdated, redundant, or
// orphaned candidate exists.
func FindOldestRemovable(list snapshot.List, inProgressCreationTime int64, referenceName string) (snapshot.Snapshot, bool) {
	x := exclusions{inProgressCreationTime, referenceName}
	for _, s := range list.Snapshots {
		if excluded(s, x) {
			continue
		}
		return s, true
	}
	return snapshot.Snapshot{}, false
}
