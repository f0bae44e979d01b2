package file

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/tKV/lib/backend"
	backendtesting "github.com/ValentinKolb/tKV/lib/backend/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test(t *testing.T) {
	for _, codec := range []Codec{CodecNone, CodecZstd, CodecLZ4} {
		backendtesting.RunBackendTests(t, "File("+codec.String()+")", func() backend.IBackend {
			b, err := Open(Options{Path: filepath.Join(t.TempDir(), "nvm.tkv"), Codec: codec})
			require.NoError(t, err)
			return b
		})
	}
}

func TestReopen(t *testing.T) {
	for _, codec := range []Codec{CodecNone, CodecZstd, CodecLZ4} {
		t.Run(codec.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sub", "nvm.tkv")

			b, err := Open(Options{Path: path, Codec: codec, Sync: true})
			require.NoError(t, err)
			for i := 0; i < 50; i++ {
				require.NoError(t, b.Insert(fmt.Sprintf("key-%02d", i), bytes.Repeat([]byte{byte(i)}, i)))
			}
			require.NoError(t, b.Delete("key-07"))

			reopened, err := Open(Options{Path: path, Codec: codec})
			require.NoError(t, err)
			assert.Equal(t, 49, reopened.Len())

			buf := make([]byte, 64)
			n, err := reopened.Get("key-42", buf)
			require.NoError(t, err)
			assert.Equal(t, bytes.Repeat([]byte{42}, 42), buf[:n])

			_, err = reopened.Get("key-07", buf)
			assert.ErrorIs(t, err, backend.ErrNotFound)
		})
	}
}

func TestReopenWithOtherCodec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nvm.tkv")

	b, err := Open(Options{Path: path, Codec: CodecZstd})
	require.NoError(t, err)
	require.NoError(t, b.Insert("k", []byte("v")))

	// the snapshot header names its codec, so reading works with any option
	reopened, err := Open(Options{Path: path, Codec: CodecLZ4})
	require.NoError(t, err)
	n, err := reopened.Get("k", make([]byte, 4))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDeterministicSnapshot(t *testing.T) {
	dir := t.TempDir()
	a, err := Open(Options{Path: filepath.Join(dir, "a.tkv")})
	require.NoError(t, err)
	b, err := Open(Options{Path: filepath.Join(dir, "b.tkv")})
	require.NoError(t, err)

	require.NoError(t, a.Insert("x", []byte("1")))
	require.NoError(t, a.Insert("y", []byte("2")))
	require.NoError(t, b.Insert("y", []byte("2")))
	require.NoError(t, b.Insert("x", []byte("1")))

	da, err := os.ReadFile(a.Path())
	require.NoError(t, err)
	db, err := os.ReadFile(b.Path())
	require.NoError(t, err)
	assert.Equal(t, da, db)
}

func TestCorruptSnapshot(t *testing.T) {
	dir := t.TempDir()

	t.Run("BadMagic", func(t *testing.T) {
		path := filepath.Join(dir, "magic.tkv")
		require.NoError(t, os.WriteFile(path, []byte("NOTATKVFILE"), 0o644))
		_, err := Open(Options{Path: path})
		assert.ErrorContains(t, err, "magic number mismatch")
	})

	t.Run("BadVersion", func(t *testing.T) {
		path := filepath.Join(dir, "version.tkv")
		require.NoError(t, os.WriteFile(path, append([]byte(magicNum), 99, 0), 0o644))
		_, err := Open(Options{Path: path})
		assert.ErrorContains(t, err, "unsupported version")
	})

	t.Run("Truncated", func(t *testing.T) {
		path := filepath.Join(dir, "truncated.tkv")
		b, err := Open(Options{Path: path})
		require.NoError(t, err)
		require.NoError(t, b.Insert("key", []byte("some value")))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data[:len(data)-3], 0o644))

		_, err = Open(Options{Path: path})
		assert.Error(t, err)
	})
}

func TestPersistFailureRestoresState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone", "nvm.tkv")

	b, err := Open(Options{Path: path})
	require.NoError(t, err)
	require.NoError(t, b.Insert("kept", []byte("old")))

	// remove the directory so that the next snapshot cannot be written
	require.NoError(t, os.RemoveAll(filepath.Dir(path)))

	assert.Error(t, b.Insert("kept", []byte("new")))
	assert.Error(t, b.Insert("fresh", []byte("value")))
	assert.Error(t, b.Delete("kept"))

	buf := make([]byte, 8)
	n, err := b.Get("kept", buf)
	require.NoError(t, err)
	assert.Equal(t, "old", string(buf[:n]))

	_, err = b.Get("fresh", buf)
	assert.True(t, errors.Is(err, backend.ErrNotFound))
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Options{})
	assert.Error(t, err)
}

func TestParseCodec(t *testing.T) {
	for name, want := range map[string]Codec{"": CodecNone, "none": CodecNone, "zstd": CodecZstd, "lz4": CodecLZ4} {
		got, err := ParseCodec(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseCodec("snappy")
	assert.Error(t, err)
}
