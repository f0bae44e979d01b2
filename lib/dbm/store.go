package dbm

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ValentinKolb/tKV/lib/backend"
	"github.com/ValentinKolb/tKV/lib/dbm/internal"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	log = logger.GetLogger("dbm")
)

// Store is a fixed-capacity key-value table that tiers entries between the
// table itself (RAM) and an injected backend (NVM).
//
// A Store is unusable until Init succeeds. All operations are serialized through
// the lock capability passed to Init.
type Store struct {
	config  Config
	caps    Capabilities
	ready   atomic.Bool
	table   *internal.Table
	metrics *storeMetrics
}

// Info is a snapshot of the table state
type Info struct {
	Name            string `json:"name"`
	Capacity        int    `json:"capacity"`
	Free            int    `json:"free"`
	RAMEntries      int    `json:"ram_entries"`
	NVMEntries      int    `json:"nvm_entries"`
	MaxKeyLength    int    `json:"max_key_length"`
	MaxValueLength  int    `json:"max_value_length"`
	StagedBackendIO bool   `json:"staged_backend_io"`
}

// New creates a store with the given configuration.
// The store must be initialized with Init before use.
func New(config Config) (*Store, error) {
	if err := config.validate(); err != nil {
		return nil, wrapError(RetCConfigInvalid, "invalid store configuration", err)
	}
	return &Store{
		config:  config,
		table:   internal.NewTable(config.Capacity, config.MaxValueLength),
		metrics: newStoreMetrics(config.Name, config.Capacity),
	}, nil
}

// Config returns the configuration the store was created with
func (s *Store) Config() Config {
	return s.config
}

// --------------------------------------------------------------------------
// Initialization
// --------------------------------------------------------------------------

// Init copies the capability set into the store and clears every slot.
// It fails with RetCConfigInvalid if caps is nil or any capability is missing;
// in that case the store is left as it was.
//
// Thread-safety: Init takes no lock and must not run concurrently with other operations.
func (s *Store) Init(caps *Capabilities) error {
	if s.table == nil {
		return NewError(RetCConfigInvalid, "store not created with New")
	}
	if err := caps.validate(); err != nil {
		log.Warningf("store %s: init rejected: %v", s.config.Name, err)
		return err
	}
	s.caps = *caps
	s.table.Reset()
	s.metrics.setFree(s.table.FreeCount())
	s.ready.Store(true)
	log.Debugf("store %s: initialized with %d slots", s.config.Name, s.config.Capacity)
	return nil
}

// --------------------------------------------------------------------------
// Public Operations
// --------------------------------------------------------------------------

// Insert stores value for key. New keys are placed in the lowest free slot with the
// requested tier. Existing keys only get their value replaced; their tier never changes.
//
// For TierNVM the backend insert runs first and the table is only touched if it succeeded.
func (s *Store) Insert(key string, value []byte, tier Tier) (err error) {
	defer func() { s.metrics.op("insert", err) }()

	if err = s.checkReady(); err != nil {
		return err
	}
	if err = s.checkKey(key); err != nil {
		return err
	}
	if value == nil {
		return NewError(RetCInvalidArgument, "value is nil")
	}
	if len(value) > s.config.MaxValueLength {
		return NewError(RetCInvalidArgument, fmt.Sprintf("value length %d exceeds maximum %d", len(value), s.config.MaxValueLength))
	}
	if !tier.Valid() {
		return NewError(RetCInvalidArgument, fmt.Sprintf("unsupported tier %s", tier))
	}

	if s.config.StagedBackendIO && tier == TierNVM {
		return s.insertStaged(key, value)
	}

	if err = s.lock(); err != nil {
		return err
	}
	defer s.unlock()

	idx := s.table.FindByKey(key)
	free := s.table.FindFirstFree()
	if idx == -1 && free == -1 {
		return NewError(RetCCapacityExhausted, fmt.Sprintf("no free slot for key %q", key))
	}

	if tier == TierNVM {
		if err = s.backendInsert(key, value); err != nil {
			return err
		}
	}

	if idx != -1 {
		s.table.Update(idx, value)
	} else {
		s.table.Set(free, key, value, tier)
	}
	return nil
}

// Get copies the value for key into buf and returns its length.
//
// A key resident in the table is served from it; if buf is too short the call fails
// with RetCBufferTooSmall. Otherwise the backend is consulted and a successful result
// is cached in the lowest free slot with TierNVM (not cached if the table is full).
// A backend value that does not fit into buf also yields RetCBufferTooSmall.
func (s *Store) Get(key string, buf []byte) (n int, err error) {
	defer func() { s.metrics.op("get", err) }()

	if err = s.checkReady(); err != nil {
		return 0, err
	}
	if err = s.checkKey(key); err != nil {
		return 0, err
	}
	if buf == nil {
		return 0, NewError(RetCInvalidArgument, "buffer is nil")
	}

	if err = s.lock(); err != nil {
		return 0, err
	}

	if idx := s.table.FindByKey(key); idx != -1 {
		defer s.unlock()
		s.metrics.tableHit(true)
		entry := s.table.Entry(idx)
		if len(entry.Value) > len(buf) {
			return 0, NewError(RetCBufferTooSmall, fmt.Sprintf("value of %d bytes does not fit into %d bytes", len(entry.Value), len(buf)))
		}
		return copy(buf, entry.Value), nil
	}
	s.metrics.tableHit(false)

	if s.config.StagedBackendIO {
		s.unlock()
		return s.getStaged(key, buf)
	}
	defer s.unlock()

	if n, err = s.backendGet(key, buf); err != nil {
		return 0, err
	}
	s.fill(key, buf[:n])
	return n, nil
}

// GetValue returns a copy of the value for key. It behaves like Get with a buffer of
// the configured maximum value length.
func (s *Store) GetValue(key string) ([]byte, error) {
	buf := make([]byte, s.config.MaxValueLength)
	n, err := s.Get(key, buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// Delete removes key from the table. Entries with TierNVM are removed from the
// backend first; if that fails the entry stays resident.
//
// Only resident keys can be deleted: a key that lives in the backend but not in
// the table yields RetCNotFound.
func (s *Store) Delete(key string) (err error) {
	defer func() { s.metrics.op("delete", err) }()

	if err = s.checkReady(); err != nil {
		return err
	}
	if err = s.checkKey(key); err != nil {
		return err
	}

	if err = s.lock(); err != nil {
		return err
	}

	idx := s.table.FindByKey(key)
	if idx == -1 {
		s.unlock()
		return NewError(RetCNotFound, fmt.Sprintf("key %q not found", key))
	}

	if s.table.Entry(idx).Tier == TierNVM {
		if s.config.StagedBackendIO {
			s.unlock()
			return s.deleteStaged(key)
		}
		if err = s.backendDelete(key); err != nil {
			s.unlock()
			return err
		}
	}

	s.table.Clear(idx)
	s.unlock()
	return nil
}

// FreeSpace returns the number of free slots
func (s *Store) FreeSpace() (int, error) {
	if err := s.checkReady(); err != nil {
		return 0, err
	}
	if err := s.lock(); err != nil {
		return 0, err
	}
	defer s.unlock()
	return s.table.FreeCount(), nil
}

// Info returns a consistent snapshot of the table state
func (s *Store) Info() (Info, error) {
	if err := s.checkReady(); err != nil {
		return Info{}, err
	}
	if err := s.lock(); err != nil {
		return Info{}, err
	}
	defer s.unlock()

	free, ram, nvm := s.table.Counts()
	return Info{
		Name:            s.config.Name,
		Capacity:        s.table.Capacity(),
		Free:            free,
		RAMEntries:      ram,
		NVMEntries:      nvm,
		MaxKeyLength:    s.config.MaxKeyLength,
		MaxValueLength:  s.config.MaxValueLength,
		StagedBackendIO: s.config.StagedBackendIO,
	}, nil
}

// --------------------------------------------------------------------------
// Staged backend I/O (lock released around backend calls)
// --------------------------------------------------------------------------

// insertStaged writes through to the backend without holding the lock.
// If the key or a free slot is gone once the lock is re-acquired, the value is
// durable but not mirrored. After a successful backend call the lock is requested
// without timeout, the table must not keep a value the backend has replaced.
func (s *Store) insertStaged(key string, value []byte) error {
	if err := s.lock(); err != nil {
		return err
	}
	if s.table.FindByKey(key) == -1 && s.table.FindFirstFree() == -1 {
		s.unlock()
		return NewError(RetCCapacityExhausted, fmt.Sprintf("no free slot for key %q", key))
	}
	s.unlock()

	if err := s.backendInsert(key, value); err != nil {
		return err
	}

	if err := s.lockWait(); err != nil {
		log.Errorf("store %s: %q written to backend but table not updated: %v", s.config.Name, key, err)
		return err
	}
	defer s.unlock()

	if idx := s.table.FindByKey(key); idx != -1 {
		s.table.Update(idx, value)
	} else if free := s.table.FindFirstFree(); free != -1 {
		s.table.Set(free, key, value, TierNVM)
	} else {
		log.Debugf("store %s: %q written to backend but table filled up concurrently", s.config.Name, key)
	}
	return nil
}

// getStaged reads from the backend without holding the lock. The first writer
// wins: the result is only cached if no other caller put the key in the table meanwhile.
func (s *Store) getStaged(key string, buf []byte) (int, error) {
	n, err := s.backendGet(key, buf)
	if err != nil {
		return 0, err
	}

	if err := s.lock(); err != nil {
		// the value is valid, it is just not cached
		log.Debugf("store %s: skip caching %q: %v", s.config.Name, key, err)
		return n, nil
	}
	defer s.unlock()

	if s.table.FindByKey(key) == -1 {
		s.fill(key, buf[:n])
	}
	return n, nil
}

// deleteStaged removes key from the backend without holding the lock and clears
// the slot afterward if it still holds the NVM entry. Like insertStaged it waits
// for the lock once the backend call succeeded.
func (s *Store) deleteStaged(key string) error {
	if err := s.backendDelete(key); err != nil {
		return err
	}

	if err := s.lockWait(); err != nil {
		log.Errorf("store %s: %q deleted from backend but still resident: %v", s.config.Name, key, err)
		return err
	}
	defer s.unlock()

	if idx := s.table.FindByKey(key); idx != -1 && s.table.Entry(idx).Tier == TierNVM {
		s.table.Clear(idx)
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func (s *Store) checkReady() error {
	if !s.ready.Load() {
		return NewError(RetCConfigInvalid, "store not initialized")
	}
	return nil
}

func (s *Store) checkKey(key string) error {
	if key == "" {
		return NewError(RetCInvalidArgument, "key is empty")
	}
	if len(key) > s.config.MaxKeyLength {
		return NewError(RetCInvalidArgument, fmt.Sprintf("key length %d exceeds maximum %d", len(key), s.config.MaxKeyLength))
	}
	return nil
}

func (s *Store) lock() error {
	if err := s.caps.Lock(s.config.LockTimeout); err != nil {
		return wrapError(RetCLockFailure, "could not acquire table lock", err)
	}
	return nil
}

// lockWait acquires the lock with InfiniteTimeout regardless of the configured timeout
func (s *Store) lockWait() error {
	if err := s.caps.Lock(InfiniteTimeout); err != nil {
		return wrapError(RetCLockFailure, "could not acquire table lock", err)
	}
	return nil
}

func (s *Store) unlock() {
	s.metrics.setFree(s.table.FreeCount())
	s.caps.Unlock()
}

// fill caches a read-through result in the lowest free slot.
// Values that exceed the slot size are returned to the caller but never cached.
func (s *Store) fill(key string, value []byte) {
	if len(value) > s.config.MaxValueLength {
		log.Debugf("store %s: %q not cached, value of %d bytes exceeds slot size", s.config.Name, key, len(value))
		return
	}
	free := s.table.FindFirstFree()
	if free == -1 {
		return
	}
	s.table.Set(free, key, value, TierNVM)
	s.metrics.cacheFill()
}

func (s *Store) backendInsert(key string, value []byte) error {
	err := s.caps.Insert(key, value)
	s.metrics.backendCall("insert", err)
	if err != nil {
		log.Warningf("store %s: backend insert of %q failed: %v", s.config.Name, key, err)
		return wrapError(RetCBackendFailure, fmt.Sprintf("backend insert of %q failed", key), err)
	}
	return nil
}

func (s *Store) backendGet(key string, buf []byte) (int, error) {
	n, err := s.caps.Get(key, buf)
	s.metrics.backendCall("get", err)
	if errors.Is(err, backend.ErrBufferTooSmall) {
		return 0, wrapError(RetCBufferTooSmall, fmt.Sprintf("value of %q does not fit into %d bytes", key, len(buf)), err)
	}
	if err != nil {
		return 0, wrapError(RetCNotFound, fmt.Sprintf("key %q not found", key), err)
	}
	if n < 0 || n > len(buf) {
		return 0, NewError(RetCNotFound, fmt.Sprintf("backend returned invalid length %d for %q", n, key))
	}
	return n, nil
}

func (s *Store) backendDelete(key string) error {
	err := s.caps.Delete(key)
	s.metrics.backendCall("delete", err)
	if err != nil {
		log.Warningf("store %s: backend delete of %q failed: %v", s.config.Name, key, err)
		return wrapError(RetCBackendFailure, fmt.Sprintf("backend delete of %q failed", key), err)
	}
	return nil
}
