package memory_test

import (
	"testing"

	"github.com/ValentinKolb/tKV/lib/backend"
	"github.com/ValentinKolb/tKV/lib/backend/memory"
	backendtesting "github.com/ValentinKolb/tKV/lib/backend/testing"
)

func Test(t *testing.T) {
	backendtesting.RunBackendTests(t, "Memory", func() backend.IBackend {
		return memory.NewBackend()
	})
}

func TestLen(t *testing.T) {
	b := memory.NewBackend()
	_ = b.Insert("a", []byte("1"))
	_ = b.Insert("b", []byte("2"))
	_ = b.Delete("a")
	if b.Len() != 1 {
		t.Errorf("Expected 1 key, got %d", b.Len())
	}
}
