package snapshot

import (
	"os"
	"sort"
)

// List is an ordered collection of snapshots, oldest first, plus the
// per-interval counts used by the retention policy.
type List struct {
	Now           int64
	Snapshots     []Snapshot
	IntervalCount []int // length NumIntervals+1; index NumIntervals is the overflow bucket
	NumIntervals  int
}

// Enumerate scans the direct children of destDir, classifies each via
// Parse, discards anything that is not a recognized snapshot name, and
// returns the result sorted ascending by CreationTime. Symlinks and
// non-directory entries are ignored; the scan is never recursive.
func Enumerate(destDir string, unitInterval, numIntervals int, now int64) (List, error) {
	entries, err := os.ReadDir(destDir)
	if err != nil {
		return List{}, err
	}

	list := List{
		Now:           now,
		NumIntervals:  numIntervals,
		IntervalCount: make([]int, numIntervals+1),
	}

	for _, e := range entries {
		if e.Type()&os.ModeSymlink != 0 {
			continue
		}
		if !e.IsDir() {
			continue
		}
		s, ok := Parse(e.Name(), now, unitInterval)
		if !ok {
			continue
		}
		list.Snapshots = append(list.Snapshots, s)
	}

	sort.Slice(list.Snapshots, func(i, j int) bool {
		return list.Snapshots[i].CreationTime < list.Snapshots[j].CreationTime
	})

	for _, s := range list.Snapshots {
		idx := int(s.Interval)
		if idx >= numIntervals {
			idx = numIntervals
		}
		list.IntervalCount[idx]++
	}

	return list, nil
}

// NewestComplete returns the most recently created complete snapshot, used
// as the reference for the next rsync invocation. The second return value
// is false when no complete snapshot exists.
func (l List) NewestComplete() (Snapshot, bool) {
	for i := len(l.Snapshots) - 1; i >= 0; i-- {
		if l.Snapshots[i].Flags.Complete {
			return l.Snapshots[i], true
		}
	}
	return Snapshot{}, false
}

// Newest returns the most recently created snapshot regardless of status.
func (l List) Newest() (Snapshot, bool) {
	if len(l.Snapshots) == 0 {
		return Snapshot{}, false
	}
	return l.Snapshots[len(l.Snapshots)-1], true
}

// Len returns the total number of snapshots in the list.
func (l List) Len() int {
	return len(l.Snapshots)
}
