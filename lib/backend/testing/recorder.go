package testing

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/tKV/lib/backend"
)

var (
	// ErrInjected is returned by doubles for keys configured to fail.
	ErrInjected = errors.New("injected failure")
)

// --------------------------------------------------------------------------
// Recorder (backend double)
// --------------------------------------------------------------------------

// Counts holds the number of calls per backend capability
type Counts struct {
	Insert int64
	Get    int64
	Delete int64
}

// Recorder wraps a backend, counts every call and fails calls for configured keys.
// A failing call is counted but does not reach the wrapped backend.
type Recorder struct {
	inner backend.IBackend

	inserts atomic.Int64
	gets    atomic.Int64
	deletes atomic.Int64

	mu         sync.RWMutex
	failInsert map[string]bool
	failGet    map[string]bool
	failDelete map[string]bool
}

// NewRecorder wraps inner
func NewRecorder(inner backend.IBackend) *Recorder {
	return &Recorder{
		inner:      inner,
		failInsert: make(map[string]bool),
		failGet:    make(map[string]bool),
		failDelete: make(map[string]bool),
	}
}

// FailInsert makes Insert fail for the given keys
func (r *Recorder) FailInsert(keys ...string) {
	r.setFail(r.failInsert, keys)
}

// FailGet makes Get fail for the given keys
func (r *Recorder) FailGet(keys ...string) {
	r.setFail(r.failGet, keys)
}

// FailDelete makes Delete fail for the given keys
func (r *Recorder) FailDelete(keys ...string) {
	r.setFail(r.failDelete, keys)
}

func (r *Recorder) setFail(m map[string]bool, keys []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range keys {
		m[k] = true
	}
}

func (r *Recorder) fails(m map[string]bool, key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return m[key]
}

// Counts returns the calls seen so far
func (r *Recorder) Counts() Counts {
	return Counts{
		Insert: r.inserts.Load(),
		Get:    r.gets.Load(),
		Delete: r.deletes.Load(),
	}
}

// ResetCounts sets all call counters to zero
func (r *Recorder) ResetCounts() {
	r.inserts.Store(0)
	r.gets.Store(0)
	r.deletes.Store(0)
}

func (r *Recorder) Insert(key string, value []byte) error {
	r.inserts.Add(1)
	if r.fails(r.failInsert, key) {
		return ErrInjected
	}
	return r.inner.Insert(key, value)
}

func (r *Recorder) Get(key string, buf []byte) (int, error) {
	r.gets.Add(1)
	if r.fails(r.failGet, key) {
		clear(buf)
		return 0, ErrInjected
	}
	return r.inner.Get(key, buf)
}

func (r *Recorder) Delete(key string) error {
	r.deletes.Add(1)
	if r.fails(r.failDelete, key) {
		return ErrInjected
	}
	return r.inner.Delete(key)
}

var _ backend.IBackend = (*Recorder)(nil)

// --------------------------------------------------------------------------
// CountingMutex (lock double)
// --------------------------------------------------------------------------

// Mutex is the lock capability wrapped by CountingMutex
type Mutex interface {
	Lock(timeout time.Duration) error
	Unlock()
}

// CountingMutex wraps a lock and counts Lock and Unlock calls.
// Lock calls refused via Refuse are counted but never reach the wrapped lock.
type CountingMutex struct {
	inner   Mutex
	locks   atomic.Int64
	unlocks atomic.Int64
	refuse  atomic.Bool

	mu       sync.Mutex
	timeouts []time.Duration
}

// NewCountingMutex wraps inner
func NewCountingMutex(inner Mutex) *CountingMutex {
	return &CountingMutex{inner: inner}
}

// Refuse makes every following Lock call fail with ErrInjected (or succeed again for false)
func (m *CountingMutex) Refuse(refuse bool) {
	m.refuse.Store(refuse)
}

func (m *CountingMutex) Lock(timeout time.Duration) error {
	m.locks.Add(1)
	m.mu.Lock()
	m.timeouts = append(m.timeouts, timeout)
	m.mu.Unlock()
	if m.refuse.Load() {
		return ErrInjected
	}
	return m.inner.Lock(timeout)
}

func (m *CountingMutex) Unlock() {
	m.unlocks.Add(1)
	m.inner.Unlock()
}

// Locks returns the number of Lock calls
func (m *CountingMutex) Locks() int64 {
	return m.locks.Load()
}

// Unlocks returns the number of Unlock calls
func (m *CountingMutex) Unlocks() int64 {
	return m.unlocks.Load()
}

// Timeouts returns the timeouts passed to Lock, in call order
func (m *CountingMutex) Timeouts() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.timeouts...)
}

// ResetCounts sets all counters to zero
func (m *CountingMutex) ResetCounts() {
	m.locks.Store(0)
	m.unlocks.Store(0)
	m.mu.Lock()
	m.timeouts = nil
	m.mu.Unlock()
}
