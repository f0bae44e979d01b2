// Package dbm implements a fixed-capacity key-value table that tiers its entries
// between the table itself ("RAM") and an externally supplied persistent backend
// ("NVM"). The store does not implement locking or persistence; both are injected
// as capabilities at initialization.
//
// Key Components:
//
//   - Capabilities: The five functions the store consumes (Lock, Unlock, backend
//     Insert, Get and Delete). NewCapabilities binds a Mutex and a Backend
//     implementation, but any set of functions works. A missing function is
//     rejected by Init with RetCConfigInvalid.
//
//   - Slot Table: A fixed number of slots (Config.Capacity). Each slot holds an
//     owned copy of the key and of a value of at most Config.MaxValueLength bytes,
//     plus its Tier. New keys always go to the lowest free slot, which makes
//     allocation deterministic.
//
//   - Store: The public operations Insert, Get, Delete, FreeSpace and Info.
//     Each operation runs its critical section under the injected lock and
//     releases it on every return path.
//
// Tiering:
//
//   - Write-through: Insert with TierNVM calls the backend first. The table is only
//     updated when the backend reported success.
//
//   - Read-through: Get on a key that is not resident asks the backend. A hit is
//     returned to the caller and cached in the lowest free slot tagged TierNVM.
//     If the table is full nothing is evicted; the value is simply not cached.
//
//   - Tier stickiness: Re-inserting an existing key replaces its value but keeps
//     the tier it was first inserted with.
//
//   - Delete only looks at the table. A key that is durable in the backend but not
//     resident yields RetCNotFound.
//
// Concurrency:
//
//	By default the lock is held for the whole operation, including backend calls.
//	A slow backend therefore serializes all table access behind it. Setting
//	Config.StagedBackendIO releases the lock around backend calls and re-checks
//	the table afterward; concurrent read-through fills of the same key are
//	resolved in favor of the first writer.
//
// Error Handling:
//
//	Every failing operation returns a *Error carrying a RetCode. A nil error is
//	success. Use errors.Is with the exported sentinels (ErrNotFound,
//	ErrCapacityExhausted, ...) or CodeOf to branch on the kind. Nothing is retried
//	and the store stays usable after any failure.
//
// Usage Example:
//
//	s, err := dbm.New(dbm.DefaultConfig())
//	if err != nil {
//	    // Handle error
//	}
//	if err := s.Init(dbm.NewCapabilities(lockmgr.NewLocalMutex(), memory.NewBackend())); err != nil {
//	    // Handle error
//	}
//
//	_ = s.Insert("k1", []byte("v1"), dbm.TierRAM)
//	buf := make([]byte, 32)
//	n, err := s.Get("k1", buf) // buf[:n] == "v1"
package dbm
