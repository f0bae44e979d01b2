package file

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ValentinKolb/tKV/lib/backend"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	magicNum     = "TKVFILE\x00" // File format identifier
	fileVersion  = 1             // File format version
	maxRecordLen = 64 << 20      // Upper bound for a single key or value read from disk
)

var (
	log = logger.GetLogger("backend")
)

// Options configures the file backend
type Options struct {
	// Path of the snapshot file. Parent directories are created on Open.
	Path string
	// Codec used for new snapshots. Existing snapshots are read with the codec they were written with.
	Codec Codec
	// Sync calls fsync on the snapshot before it replaces the previous one.
	Sync bool
}

// Backend is a durable backend that stores all entries in one snapshot file
type Backend struct {
	opts Options
	mu   sync.Mutex // serializes mutations and snapshot writes
	data *xsync.MapOf[string, []byte]
}

// Open opens the snapshot at opts.Path, or starts empty if the file does not exist.
func Open(opts Options) (*Backend, error) {
	if opts.Path == "" {
		return nil, errors.New("file backend: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, fmt.Errorf("file backend: create directory: %w", err)
	}

	b := &Backend{
		opts: opts,
		data: xsync.NewMapOf[string, []byte](),
	}

	f, err := os.Open(opts.Path)
	if errors.Is(err, os.ErrNotExist) {
		log.Debugf("no snapshot at %s, starting empty", opts.Path)
		return b, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file backend: open snapshot: %w", err)
	}
	defer f.Close()

	if err := b.load(f); err != nil {
		return nil, fmt.Errorf("file backend: load snapshot %s: %w", opts.Path, err)
	}
	log.Infof("loaded %d entries from %s", b.data.Size(), opts.Path)
	return b, nil
}

// --------------------------------------------------------------------------
// Backend Interface Methods
// --------------------------------------------------------------------------

// Insert stores value for key and persists the snapshot.
// If persisting fails, the previous state is restored.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *Backend) Insert(key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	prev, existed := b.data.Load(key)
	b.data.Store(key, valueCopy)

	if err := b.persist(); err != nil {
		if existed {
			b.data.Store(key, prev)
		} else {
			b.data.Delete(key)
		}
		return err
	}
	return nil
}

// Get copies the value for key into buf. Reads never touch the disk.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *Backend) Get(key string, buf []byte) (int, error) {
	value, ok := b.data.Load(key)
	if !ok {
		return 0, backend.ErrNotFound
	}
	return backend.CopyOut(buf, value)
}

// Delete removes key and persists the snapshot.
// If persisting fails, the key is restored.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *Backend) Delete(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	prev, existed := b.data.LoadAndDelete(key)
	if !existed {
		return nil
	}

	if err := b.persist(); err != nil {
		b.data.Store(key, prev)
		return err
	}
	return nil
}

// Len returns the number of stored keys
func (b *Backend) Len() int {
	return b.data.Size()
}

// Path returns the snapshot path
func (b *Backend) Path() string {
	return b.opts.Path
}

// --------------------------------------------------------------------------
// Persistence
// --------------------------------------------------------------------------

// persist writes a snapshot to a temporary file and renames it over the current one.
// The caller must hold b.mu.
func (b *Backend) persist() (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(b.opts.Path), filepath.Base(b.opts.Path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("file backend: create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = b.save(tmp); err != nil {
		return fmt.Errorf("file backend: write snapshot: %w", err)
	}
	if b.opts.Sync {
		if err = tmp.Sync(); err != nil {
			return fmt.Errorf("file backend: sync snapshot: %w", err)
		}
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("file backend: close snapshot: %w", err)
	}
	if err = os.Rename(tmp.Name(), b.opts.Path); err != nil {
		return fmt.Errorf("file backend: replace snapshot: %w", err)
	}
	return nil
}

// save writes the current state in the snapshot format to w
func (b *Backend) save(w io.Writer) error {
	bw := bufio.NewWriterSize(w, 64*1024)

	// header (uncompressed)
	if _, err := bw.WriteString(magicNum); err != nil {
		return err
	}
	if err := bw.WriteByte(fileVersion); err != nil {
		return err
	}
	if err := bw.WriteByte(byte(b.opts.Codec)); err != nil {
		return err
	}

	cw, err := b.opts.Codec.newWriter(bw)
	if err != nil {
		return err
	}

	// collect entries in key order
	keys := make([]string, 0, b.data.Size())
	b.data.Range(func(key string, _ []byte) bool {
		keys = append(keys, key)
		return true
	})
	sort.Strings(keys)

	var scratch [binary.MaxVarintLen64]byte
	writeBytes := func(p []byte) error {
		n := binary.PutUvarint(scratch[:], uint64(len(p)))
		if _, err := cw.Write(scratch[:n]); err != nil {
			return err
		}
		_, err := cw.Write(p)
		return err
	}

	n := binary.PutUvarint(scratch[:], uint64(len(keys)))
	if _, err := cw.Write(scratch[:n]); err != nil {
		return err
	}
	for _, key := range keys {
		value, _ := b.data.Load(key)
		if err := writeBytes([]byte(key)); err != nil {
			return err
		}
		if err := writeBytes(value); err != nil {
			return err
		}
	}

	if err := cw.Close(); err != nil {
		return err
	}
	return bw.Flush()
}

// load replaces the current state with the snapshot read from r
func (b *Backend) load(r io.Reader) error {
	br := bufio.NewReaderSize(r, 64*1024)

	// Read and verify magic number
	magicBytes := make([]byte, len(magicNum))
	if _, err := io.ReadFull(br, magicBytes); err != nil {
		return err
	}
	if string(magicBytes) != magicNum {
		return fmt.Errorf("invalid file format: magic number mismatch")
	}

	version, err := br.ReadByte()
	if err != nil {
		return err
	}
	if version != fileVersion {
		return fmt.Errorf("unsupported version: %d (expected %d)", version, fileVersion)
	}

	codecByte, err := br.ReadByte()
	if err != nil {
		return err
	}
	cr, err := Codec(codecByte).newReader(br)
	if err != nil {
		return err
	}
	defer cr.Close()
	body := bufio.NewReader(cr)

	count, err := binary.ReadUvarint(body)
	if err != nil {
		return err
	}

	readBytes := func() ([]byte, error) {
		l, err := binary.ReadUvarint(body)
		if err != nil {
			return nil, err
		}
		if l > maxRecordLen {
			return nil, fmt.Errorf("record length %d exceeds limit", l)
		}
		p := make([]byte, l)
		if _, err := io.ReadFull(body, p); err != nil {
			return nil, err
		}
		return p, nil
	}

	data := xsync.NewMapOf[string, []byte]()
	for i := uint64(0); i < count; i++ {
		key, err := readBytes()
		if err != nil {
			return fmt.Errorf("entry %d: key: %w", i, err)
		}
		value, err := readBytes()
		if err != nil {
			return fmt.Errorf("entry %d: value: %w", i, err)
		}
		data.Store(string(key), value)
	}

	b.data = data
	return nil
}

var _ backend.IBackend = (*Backend)(nil)
