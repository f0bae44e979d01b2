package lockmgr

import (
	"errors"
	"time"
)

// ErrTimeout is returned by Lock if the lock could not be acquired in time.
var ErrTimeout = errors.New("lock timeout")

// IMutex is the lock capability (identical to dbm.Mutex).
type IMutex interface {
	// Lock acquires the lock. A negative timeout waits indefinitely.
	Lock(timeout time.Duration) (err error)
	// Unlock releases the lock.
	Unlock()
}
