// Package lockmgr provides implementations of the lock capability consumed by
// dbm.Store (see dbm.Mutex). The store never creates a lock itself; the owner
// picks one of the implementations below and passes it to Init.
//
// Implementations:
//
//   - LocalMutex: An in-process lock with timeout support, built on a weighted
//     semaphore of size one. A negative timeout waits indefinitely, a zero timeout
//     tries exactly once and a positive timeout waits at most that long.
//
//   - NoopMutex: Grants every request immediately. Only suitable if the caller
//     guarantees that the store is never used concurrently.
//
// Usage Example:
//
//	m := lockmgr.NewLocalMutex()
//	if err := m.Lock(50 * time.Millisecond); err != nil {
//	    // errors.Is(err, lockmgr.ErrTimeout)
//	}
//	defer m.Unlock()
package lockmgr
