package instancelock

import (
	"path/filepath"
	"testing"

	"github.com/snapguard/snapguard/internal/dsserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire_SecondAcquireFails(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "snapguard.yaml")

	l1, err := Acquire(cfg)
	require.NoError(t, err)
	defer l1.Release()

	_, err = Acquire(cfg)
	assert.ErrorIs(t, err, dsserr.ErrAlreadyRunning)
}

func TestGetPID_NotRunning(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "snapguard.yaml")

	_, err := GetPID(cfg)
	assert.ErrorIs(t, err, dsserr.ErrNotRunning)
}

func TestAcquireThenRelease_AllowsReacquire(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "snapguard.yaml")

	l1, err := Acquire(cfg)
	require.NoError(t, err)
	require.NoError(t, l1.Release())

	l2, err := Acquire(cfg)
	require.NoError(t, err)
	defer l2.Release()
}

func TestGetPID_ReturnsOwnerPID(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "snapguard.yaml")

	l, err := Acquire(cfg)
	require.NoError(t, err)
	defer l.Release()

	pid, err := GetPID(cfg)
	require.NoError(t, err)
	assert.Positive(t, pid)
}
