package testing

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ValentinKolb/tKV/lib/backend"
)

// BackendFactory is a function that creates a new, empty backend instance
type BackendFactory func() backend.IBackend

// RunBackendTests runs the conformance suite against a backend implementation.
func RunBackendTests(t *testing.T, name string, factory BackendFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Insert&Get", func(t *testing.T) {
			testInsertGet(t, factory())
		})

		t.Run("Overwrite", func(t *testing.T) {
			testOverwrite(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("BufferTooSmall", func(t *testing.T) {
			testBufferTooSmall(t, factory())
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory())
		})

		t.Run("Concurrent", func(t *testing.T) {
			testConcurrent(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testInsertGet(t *testing.T, b backend.IBackend) {
	key := "test-key"
	value := []byte("test-value")

	if err := b.Insert(key, value); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	buf := make([]byte, 64)
	n, err := b.Get(key, buf)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(buf[:n], value) {
		t.Errorf("Expected value %s, got %s", value, buf[:n])
	}

	// the backend must have copied the value
	value[0] = 'X'
	n, _ = b.Get(key, buf)
	if buf[0] == 'X' {
		t.Errorf("Insert should store a copy, not a reference to the caller's value")
	}
	if n != len(value) {
		t.Errorf("Expected length %d, got %d", len(value), n)
	}

	if _, err := b.Get("nonexistent-key", buf); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for nonexistent key, got %v", err)
	}
}

func testOverwrite(t *testing.T, b backend.IBackend) {
	key := "overwrite-key"

	if err := b.Insert(key, []byte("first-value")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := b.Insert(key, []byte("second")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	buf := make([]byte, 64)
	n, err := b.Get(key, buf)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(buf[:n]) != "second" {
		t.Errorf("Expected value second, got %s", buf[:n])
	}
}

func testDelete(t *testing.T, b backend.IBackend) {
	key := "delete-key"

	if err := b.Insert(key, []byte("value")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := b.Delete(key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	buf := make([]byte, 64)
	if _, err := b.Get(key, buf); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}

	if err := b.Delete("never-inserted"); err != nil {
		t.Errorf("Delete of a missing key should succeed, got %v", err)
	}
}

func testBufferTooSmall(t *testing.T, b backend.IBackend) {
	key := "large-key"
	value := bytes.Repeat([]byte("a"), 32)

	if err := b.Insert(key, value); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if _, err := b.Get(key, make([]byte, 31)); !errors.Is(err, backend.ErrBufferTooSmall) {
		t.Errorf("Expected ErrBufferTooSmall, got %v", err)
	}

	n, err := b.Get(key, make([]byte, 32))
	if err != nil || n != 32 {
		t.Errorf("Expected exact-size buffer to work, got n=%d err=%v", n, err)
	}
}

func testEdgeCases(t *testing.T, b backend.IBackend) {
	// empty value
	if err := b.Insert("empty-value", []byte{}); err != nil {
		t.Fatalf("Insert of empty value failed: %v", err)
	}
	n, err := b.Get("empty-value", make([]byte, 8))
	if err != nil || n != 0 {
		t.Errorf("Expected empty value, got n=%d err=%v", n, err)
	}

	// keys with special characters
	for _, key := range []string{"a/b/c", "../escape", "with space", "ümlaut", "100%"} {
		if err := b.Insert(key, []byte(key)); err != nil {
			t.Errorf("Insert of key %q failed: %v", key, err)
			continue
		}
		buf := make([]byte, 64)
		n, err := b.Get(key, buf)
		if err != nil || string(buf[:n]) != key {
			t.Errorf("Expected %q, got %q (err=%v)", key, buf[:n], err)
		}
	}

	// binary values
	binary := []byte{0, 1, 2, 0, 255}
	if err := b.Insert("binary", binary); err != nil {
		t.Fatalf("Insert of binary value failed: %v", err)
	}
	buf := make([]byte, 8)
	n, err = b.Get("binary", buf)
	if err != nil || !bytes.Equal(buf[:n], binary) {
		t.Errorf("Expected %v, got %v (err=%v)", binary, buf[:n], err)
	}
}

func testConcurrent(t *testing.T, b backend.IBackend) {
	const (
		workers = 8
		keys    = 25
	)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			for i := 0; i < keys; i++ {
				key := fmt.Sprintf("w%d-k%d", w, i)
				if err := b.Insert(key, []byte(key)); err != nil {
					t.Errorf("Insert %s failed: %v", key, err)
				}
			}
		}(w)
	}
	wg.Wait()

	buf := make([]byte, 64)
	for w := 0; w < workers; w++ {
		for i := 0; i < keys; i++ {
			key := fmt.Sprintf("w%d-k%d", w, i)
			n, err := b.Get(key, buf)
			if err != nil || string(buf[:n]) != key {
				t.Errorf("Expected %s, got %s (err=%v)", key, buf[:n], err)
			}
		}
	}
}
