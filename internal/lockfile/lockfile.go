// Package lockfile provides an exclusive advisory lock backed by a file,
// shared between processes using the same cache directory.
package lockfile

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrAlreadyLocked indicates the lock is held by another process.
var ErrAlreadyLocked = errors.New("lock already held")

const (
	minPollInterval = 10 * time.Millisecond
	maxPollInterval = 250 * time.Millisecond
)

type Lock struct {
	path string
	f    *os.File
}

// Holder is what the current owner wrote into the lock file.
type Holder struct {
	PID      int
	Acquired time.Time
}

// TryAcquire takes the lock without waiting.
func TryAcquire(path string) (*Lock, error) {
	f, err := openLockFile(path)
	if err != nil {
		return nil, err
	}
	held, err := tryLock(f)
	if err != nil || !held {
		_ = f.Close()
		if err == nil {
			err = ErrAlreadyLocked
		}
		return nil, err
	}
	return stamp(path, f), nil
}

// Acquire waits until the lock is taken or ctx is done.
func Acquire(ctx context.Context, path string) (*Lock, error) {
	f, err := openLockFile(path)
	if err != nil {
		return nil, err
	}
	if err := waitLock(ctx, f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("wait for lock %s: %w", path, err)
	}
	return stamp(path, f), nil
}

// ReadHolder reports the owner recorded in the lock file at path. The
// record may be stale once the lock is released.
func ReadHolder(path string) (Holder, error) {
	f, err := os.Open(path)
	if err != nil {
		return Holder{}, err
	}
	defer f.Close()

	var holder Holder
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), " ")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			holder.PID, _ = strconv.Atoi(value)
		case "acquired":
			holder.Acquired, _ = time.Parse(time.RFC3339Nano, value)
		}
	}
	if err := scanner.Err(); err != nil {
		return Holder{}, err
	}
	if holder.PID == 0 {
		return Holder{}, fmt.Errorf("lock file %s records no holder", path)
	}
	return holder, nil
}

func (l *Lock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	unlockErr := unlock(l.f)
	closeErr := l.f.Close()
	l.f = nil
	if unlockErr != nil {
		return unlockErr
	}
	return closeErr
}

func openLockFile(path string) (*os.File, error) {
	if path == "" {
		return nil, fmt.Errorf("lock path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
}

// stamp records the owner for ReadHolder. Failures are ignored; the lock is
// held either way.
func stamp(path string, f *os.File) *Lock {
	_ = f.Truncate(0)
	_, _ = f.Seek(0, 0)
	_, _ = fmt.Fprintf(f, "pid %d\nacquired %s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339Nano))
	_ = f.Sync()
	return &Lock{path: path, f: f}
}

func nextPollInterval(current time.Duration) time.Duration {
	if current <= 0 {
		return minPollInterval
	}
	return min(current*2, maxPollInterval)
}
