// Package memory implements a volatile backend on top of a concurrent hash map.
// Values are copied on the way in and on the way out.
package memory

import (
	"github.com/ValentinKolb/tKV/lib/backend"
	"github.com/puzpuzpuz/xsync/v3"
)

// Backend is a volatile, thread-safe backend
type Backend struct {
	data *xsync.MapOf[string, []byte]
}

// NewBackend creates an empty memory backend
func NewBackend() *Backend {
	return &Backend{
		data: xsync.NewMapOf[string, []byte](),
	}
}

// Insert stores a copy of value for key
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *Backend) Insert(key string, value []byte) error {
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)
	b.data.Store(key, valueCopy)
	return nil
}

// Get copies the value for key into buf
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *Backend) Get(key string, buf []byte) (int, error) {
	value, ok := b.data.Load(key)
	if !ok {
		return 0, backend.ErrNotFound
	}
	return backend.CopyOut(buf, value)
}

// Delete removes key
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *Backend) Delete(key string) error {
	b.data.Delete(key)
	return nil
}

// Len returns the number of stored keys
func (b *Backend) Len() int {
	return b.data.Size()
}

var _ backend.IBackend = (*Backend)(nil)
