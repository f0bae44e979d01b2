package lockmgr

import (
	"context"
	"fmt"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/sync/semaphore"
)

var (
	log = logger.GetLogger("lockmgr")
)

// --------------------------------------------------------------------------
// LocalMutex
// --------------------------------------------------------------------------

// LocalMutex is an in-process lock that supports acquisition timeouts.
type LocalMutex struct {
	sem *semaphore.Weighted
}

// NewLocalMutex creates a new unlocked LocalMutex
func NewLocalMutex() *LocalMutex {
	return &LocalMutex{
		sem: semaphore.NewWeighted(1),
	}
}

// Lock acquires the lock.
//
//   - timeout < 0: wait indefinitely
//   - timeout = 0: try once
//   - timeout > 0: wait at most timeout
func (m *LocalMutex) Lock(timeout time.Duration) error {
	switch {
	case timeout < 0:
		// Acquire with a background context only fails on cancellation, which never happens
		return m.sem.Acquire(context.Background(), 1)
	case timeout == 0:
		if m.sem.TryAcquire(1) {
			return nil
		}
		return ErrTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := m.sem.Acquire(ctx, 1); err != nil {
		log.Debugf("lock not acquired within %s", timeout)
		return fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
	return nil
}

// Unlock releases the lock. It panics if the lock is not held.
func (m *LocalMutex) Unlock() {
	m.sem.Release(1)
}

// --------------------------------------------------------------------------
// NoopMutex
// --------------------------------------------------------------------------

// NoopMutex grants every Lock call immediately.
type NoopMutex struct{}

// NewNoopMutex creates a NoopMutex
func NewNoopMutex() NoopMutex {
	return NoopMutex{}
}

func (NoopMutex) Lock(time.Duration) error { return nil }

func (NoopMutex) Unlock() {}

var (
	_ IMutex = (*LocalMutex)(nil)
	_ IMutex = NoopMutex{}
)
