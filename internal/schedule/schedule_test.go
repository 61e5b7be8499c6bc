package schedule

import (
	"testing"

	"github.com/snapguard/snapguard/internal/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextSnapshotTime_NoSnapshotsSchedulesNow(t *testing.T) {
	list := snapshot.List{NumIntervals: 4}
	next := NextSnapshotTime(list, 1, 4, 1000)
	assert.Equal(t, int64(1000), next)
}

func TestNextSnapshotTime_BudgetExceededSchedulesNow(t *testing.T) {
	// W = desired(0) = 8 for num_intervals=4. unit_interval=1 day = 86400s.
	// If average duration x is large enough that U < x*W, schedule now.
	name := "0-90000.a-b" // duration 90000s, absurdly long relative to one day
	now := int64(200000)
	s, ok := snapshot.Parse(name, now, 1)
	require.True(t, ok)

	list := snapshot.List{NumIntervals: 4, Snapshots: []snapshot.Snapshot{s}}
	next := NextSnapshotTime(list, 1, 4, now)
	assert.Equal(t, now, next)
}

func TestNextSnapshotTime_NormalComputation(t *testing.T) {
	// num_intervals=1 => W=1. unit_interval=1 day => U=86400.
	// One complete snapshot with duration 100s, completion_time=500.
	now := int64(1000)
	s, ok := snapshot.Parse("400-500.a-b", now, 1)
	require.True(t, ok)

	list := snapshot.List{NumIntervals: 1, Snapshots: []snapshot.Snapshot{s}}
	next := NextSnapshotTime(list, 1, 1, now)
	// expected: 500 + 86400/1 - 100 = 86800, which is > now, so returned as-is.
	assert.Equal(t, int64(86800), next)
}

func TestNextSnapshotTime_PastDueSchedulesNow(t *testing.T) {
	now := int64(100000)
	s, ok := snapshot.Parse("400-500.a-b", now, 1)
	require.True(t, ok)

	list := snapshot.List{NumIntervals: 1, Snapshots: []snapshot.Snapshot{s}}
	next := NextSnapshotTime(list, 1, 1, now)
	assert.Equal(t, now, next)
}
