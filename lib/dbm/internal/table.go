package internal

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

// --------------------------------------------------------------------------
// Tier Type (storage class of a slot)
// --------------------------------------------------------------------------

// Tier is the storage class of a table slot
type Tier uint8

const (
	TierNone Tier = iota // free slot
	TierNVM              // value is durable in the backend, the slot holds a mirror
	TierRAM              // value lives in the table only
)

func (t Tier) String() string {
	switch t {
	case TierNone:
		return "none"
	case TierNVM:
		return "nvm"
	case TierRAM:
		return "ram"
	default:
		return fmt.Sprintf("Tier(%d)", uint8(t))
	}
}

// Valid reports whether t may be requested by a caller (RAM or NVM)
func (t Tier) Valid() bool {
	return t == TierRAM || t == TierNVM
}

// --------------------------------------------------------------------------
// Entry Type (one slot of the table)
// --------------------------------------------------------------------------

// Entry is one slot of the table.
// An empty Key means the slot holds no key.
type Entry struct {
	Key   string
	Value []byte // owned buffer, capacity is the configured max value length
	Tier  Tier
}

// Free reports whether the slot is unused
func (e *Entry) Free() bool {
	return e.Tier == TierNone && e.Key == ""
}

// --------------------------------------------------------------------------
// Table Type (fixed number of slots)
// --------------------------------------------------------------------------

// Table is a fixed-capacity sequence of entries.
// The free slots are tracked in a bitmap so that the lowest free index and the
// number of free slots can be answered without a scan.
//
// Thread-safety: Table is not thread-safe. The owner must serialize all access.
type Table struct {
	entries     []Entry
	free        *roaring.Bitmap
	maxValueLen int
}

// NewTable creates a table with capacity free slots.
// Every slot owns a value buffer of maxValueLen bytes.
func NewTable(capacity, maxValueLen int) *Table {
	t := &Table{
		entries:     make([]Entry, capacity),
		free:        roaring.New(),
		maxValueLen: maxValueLen,
	}
	for i := range t.entries {
		t.entries[i].Value = make([]byte, 0, maxValueLen)
	}
	t.free.AddRange(0, uint64(capacity))
	return t
}

// Capacity returns the number of slots
func (t *Table) Capacity() int {
	return len(t.entries)
}

// FindFirstFree returns the lowest index whose tier is TierNone, or -1 if the table is full.
func (t *Table) FindFirstFree() int {
	if t.free.IsEmpty() {
		return -1
	}
	return int(t.free.Minimum())
}

// FindByKey returns the index of the entry holding key, or -1.
// The scan runs in ascending index order.
func (t *Table) FindByKey(key string) int {
	if key == "" {
		return -1
	}
	for i := range t.entries {
		if t.entries[i].Key == key {
			return i
		}
	}
	return -1
}

// FreeCount returns the number of free slots
func (t *Table) FreeCount() int {
	return int(t.free.GetCardinality())
}

// Entry returns the slot at idx. The returned pointer must not be retained
// beyond the caller's critical section.
func (t *Table) Entry(idx int) *Entry {
	return &t.entries[idx]
}

// Set allocates the slot at idx for key with a copy of value and the given tier.
func (t *Table) Set(idx int, key string, value []byte, tier Tier) {
	e := &t.entries[idx]
	e.Key = key
	e.Value = append(e.Value[:0], value...)
	e.Tier = tier
	t.free.Remove(uint32(idx))
}

// Update overwrites the value of the slot at idx. The tier is left untouched.
func (t *Table) Update(idx int, value []byte) {
	e := &t.entries[idx]
	e.Value = append(e.Value[:0], value...)
}

// Clear frees the slot at idx and zeroes its value buffer
func (t *Table) Clear(idx int) {
	e := &t.entries[idx]
	clear(e.Value[:cap(e.Value)])
	e.Value = e.Value[:0]
	e.Key = ""
	e.Tier = TierNone
	t.free.Add(uint32(idx))
}

// Reset frees every slot
func (t *Table) Reset() {
	for i := range t.entries {
		t.Clear(i)
	}
}

// Counts returns the number of slots per tier
func (t *Table) Counts() (free, ram, nvm int) {
	for i := range t.entries {
		switch t.entries[i].Tier {
		case TierRAM:
			ram++
		case TierNVM:
			nvm++
		default:
			free++
		}
	}
	return free, ram, nvm
}
