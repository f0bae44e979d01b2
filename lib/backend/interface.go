package backend

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrNotFound is returned by Get if the key does not exist.
	ErrNotFound = errors.New("key not found")
	// ErrBufferTooSmall is returned by Get if the value does not fit into the buffer.
	ErrBufferTooSmall = errors.New("buffer too small")
)

// IBackend is the persistent storage capability (method-compatible with dbm.Backend).
type IBackend interface {
	// Insert durably stores the value for key, overwriting any previous value.
	Insert(key string, value []byte) (err error)
	// Get copies the value for key into buf and returns the value length.
	Get(key string, buf []byte) (n int, err error)
	// Delete durably removes key. Deleting a missing key succeeds.
	Delete(key string) (err error)
}

// CopyOut copies value into buf. It returns ErrBufferTooSmall if value does not fit.
func CopyOut(buf, value []byte) (int, error) {
	if len(value) > len(buf) {
		return 0, fmt.Errorf("%w: value has %d bytes, buffer %d", ErrBufferTooSmall, len(value), len(buf))
	}
	return copy(buf, value), nil
}

// EscapeKey turns key into a single path segment for object stores.
// The dot segments "." and ".." are escaped as well, path.Join would collapse them.
func EscapeKey(key string) string {
	escaped := url.PathEscape(key)
	if escaped == "." || escaped == ".." {
		return strings.ReplaceAll(escaped, ".", "%2E")
	}
	return escaped
}
