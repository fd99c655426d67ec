package lockfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryAcquireIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "version.lock")

	first, err := TryAcquire(path)
	require.NoError(t, err)
	assert.Equal(t, path, first.Path())

	_, err = TryAcquire(path)
	assert.ErrorIs(t, err, ErrAlreadyLocked)

	require.NoError(t, first.Release())
	second, err := TryAcquire(path)
	require.NoError(t, err)
	require.NoError(t, second.Release())
}

func TestAcquireWaitsForRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "version.lock")
	held, err := TryAcquire(path)
	require.NoError(t, err)

	go func() {
		time.Sleep(120 * time.Millisecond)
		_ = held.Release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	lock, err := Acquire(ctx, path)
	require.NoError(t, err)
	require.NoError(t, lock.Release())
}

func TestAcquireHonoursContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "version.lock")
	held, err := TryAcquire(path)
	require.NoError(t, err)
	defer held.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = Acquire(ctx, path)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReleaseNilLock(t *testing.T) {
	var lock *Lock
	assert.NoError(t, lock.Release())
	assert.Equal(t, "", lock.Path())
}

func TestReadHolderReportsOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "version.lock")
	before := time.Now().Add(-time.Second)
	lock, err := TryAcquire(path)
	require.NoError(t, err)
	defer lock.Release()

	holder, err := ReadHolder(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), holder.PID)
	assert.True(t, holder.Acquired.After(before), "acquired %s", holder.Acquired)
}

func TestReadHolderRejectsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "version.lock")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	_, err := ReadHolder(path)
	assert.Error(t, err)
}

func TestNextPollIntervalBacksOff(t *testing.T) {
	var got []time.Duration
	var interval time.Duration
	for range 7 {
		interval = nextPollInterval(interval)
		got = append(got, interval)
	}
	assert.Equal(t, []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		40 * time.Millisecond,
		80 * time.Millisecond,
		160 * time.Millisecond,
		250 * time.Millisecond,
		250 * time.Millisecond,
	}, got)
}
