package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Boundary(t *testing.T) {
	cases := []string{
		"",
		"-incomplete",
		"1-",
		"abc-incomplete",
		"1x-incomplete",
	}
	for _, name := range cases {
		_, ok := Parse(name, 1000, 1)
		assert.Falsef(t, ok, "expected %q to be rejected", name)
	}
}

func TestParse_Incomplete(t *testing.T) {
	s, ok := Parse("500-incomplete", 1000, 1)
	require.True(t, ok)
	assert.Equal(t, int64(500), s.CreationTime)
	assert.False(t, s.Flags.Complete)
	assert.False(t, s.Flags.BeingDeleted)
}

func TestParse_IncompleteBeingDeleted(t *testing.T) {
	s, ok := Parse("500-incomplete.being_deleted", 1000, 1)
	require.True(t, ok)
	assert.Equal(t, int64(500), s.CreationTime)
	assert.False(t, s.Flags.Complete)
	assert.True(t, s.Flags.BeingDeleted)
}

func TestParse_CompleteBeingDeleted(t *testing.T) {
	s, ok := Parse("1-2.being_deleted", 2, 1)
	require.True(t, ok)
	assert.Equal(t, int64(1), s.CreationTime)
	assert.Equal(t, int64(2), s.CompletionTime)
	assert.True(t, s.Flags.Complete)
	assert.True(t, s.Flags.BeingDeleted)
}

func TestParse_Complete(t *testing.T) {
	s, ok := Parse("100-200.Mon_Jan_02_2006_15_04_05-Tue_Jan_03_2006_16_05_06", 1000, 1)
	require.True(t, ok)
	assert.Equal(t, int64(100), s.CreationTime)
	assert.Equal(t, int64(200), s.CompletionTime)
	assert.True(t, s.Flags.Complete)
	assert.False(t, s.Flags.BeingDeleted)
}

func TestParse_RejectsEndBeforeStart(t *testing.T) {
	_, ok := Parse("200-100.whatever", 1000, 1)
	assert.False(t, ok)
}

func TestParse_RejectsFutureTimes(t *testing.T) {
	_, ok := Parse("2000-incomplete", 1000, 1)
	assert.False(t, ok)

	_, ok = Parse("100-2000.whatever", 1000, 1)
	assert.False(t, ok)
}

func TestParse_RejectsEmptyDecorativeSuffix(t *testing.T) {
	_, ok := Parse("100-200.", 1000, 1)
	assert.False(t, ok)
}

func TestRoundTrip_CompleteName(t *testing.T) {
	name, err := CompleteName(100, 200)
	require.NoError(t, err)

	s, ok := Parse(name, 200, 1)
	require.True(t, ok)
	assert.Equal(t, int64(100), s.CreationTime)
	assert.Equal(t, int64(200), s.CompletionTime)
}

func TestRoundTrip_IncompleteName(t *testing.T) {
	name := IncompleteName(42)
	s, ok := Parse(name, 100, 1)
	require.True(t, ok)
	assert.Equal(t, int64(42), s.CreationTime)
	assert.Equal(t, Flags{}, s.Flags)
}

func TestRoundTrip_BeingDeletedName(t *testing.T) {
	original := Snapshot{CreationTime: 10, CompletionTime: 20, Flags: Flags{Complete: true}}
	name := BeingDeletedName(original)
	s, ok := Parse(name, 20, 1)
	require.True(t, ok)
	assert.Equal(t, int64(10), s.CreationTime)
	assert.Equal(t, int64(20), s.CompletionTime)
	assert.True(t, s.Flags.BeingDeleted)

	incomplete := Snapshot{CreationTime: 30}
	name = BeingDeletedName(incomplete)
	s, ok = Parse(name, 30, 1)
	require.True(t, ok)
	assert.Equal(t, int64(30), s.CreationTime)
	assert.False(t, s.Flags.Complete)
	assert.True(t, s.Flags.BeingDeleted)
}

func TestInterval(t *testing.T) {
	// unit_interval=1 day, now is exactly 2 days after creation -> interval 2.
	s, ok := Parse(IncompleteName(0), 2*86400, 1)
	require.True(t, ok)
	assert.Equal(t, uint(2), s.Interval)
}
