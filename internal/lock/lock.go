package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"

	"github.com/giantswarm/duolaunch/internal/fileutil"
	"github.com/giantswarm/duolaunch/internal/sentinel"
)

// ErrLocked is returned by Acquire when another launcher holds the lock.
const ErrLocked = sentinel.Error("another launcher session is running")

// retryInterval is the interval between attempts while Acquire waits.
const retryInterval = 50 * time.Millisecond

// Lock is a held session lock.
type Lock struct {
	fl  *flock.Flock
	log *slog.Logger
}

// Acquire takes an exclusive lock on path, creating the file and its
// directory if needed. With wait <= 0 it tries exactly once; otherwise it
// retries until wait elapses or ctx is done. A lock held elsewhere yields
// an error wrapping ErrLocked.
func Acquire(ctx context.Context, path string, wait time.Duration, logger *slog.Logger) (*Lock, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := fileutil.EnsureDirForFile(path); err != nil {
		return nil, fmt.Errorf("acquire session lock: %w", err)
	}

	fl := flock.New(path)

	var (
		locked bool
		err    error
	)
	if wait <= 0 {
		locked, err = fl.TryLock()
	} else {
		lockCtx, cancel := context.WithTimeout(ctx, wait)
		defer cancel()
		locked, err = fl.TryLockContext(lockCtx, retryInterval)
		if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			// The wait ran out; report it as a held lock.
			locked, err = false, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("acquire session lock %s: %w", path, err)
	}
	if !locked {
		_ = fl.Close()
		return nil, fmt.Errorf("%w: lock file %s is held", ErrLocked, path)
	}

	logger.Debug("session lock acquired", "path", path)
	return &Lock{fl: fl, log: logger}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.fl.Path()
}

// Release unlocks and closes the lock file. The file stays on disk so a
// concurrent Acquire never locks an unlinked inode. Errors are logged, not
// returned; safe to call more than once and on a nil Lock.
func (l *Lock) Release() {
	if l == nil || l.fl == nil {
		return
	}
	if err := l.fl.Close(); err != nil {
		l.log.Debug("failed to release session lock", "path", l.fl.Path(), "err", err)
	}
}
