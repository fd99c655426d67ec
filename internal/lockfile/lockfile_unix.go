//go:build !windows

package lockfile

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// tryLock takes a non-blocking flock. A held lock reports false without an
// error.
func tryLock(f *os.File) (bool, error) {
	fd := int(f.Fd())
	// The cache lock must not leak into processes spawned while it is held.
	if flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0); err == nil && flags&unix.FD_CLOEXEC == 0 {
		_, _ = unix.FcntlInt(uintptr(fd), unix.F_SETFD, flags|unix.FD_CLOEXEC)
	}
	err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, unix.EWOULDBLOCK), errors.Is(err, unix.EINTR):
		return false, nil
	default:
		return false, err
	}
}

// waitLock retries the flock on the already open descriptor, backing off up
// to maxPollInterval, until it is taken or ctx is done.
func waitLock(ctx context.Context, f *os.File) error {
	var interval time.Duration
	for {
		held, err := tryLock(f)
		if err != nil || held {
			return err
		}
		interval = nextPollInterval(interval)
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func unlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
