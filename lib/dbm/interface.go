package dbm

import (
	"time"

	"github.com/ValentinKolb/tKV/lib/dbm/internal"
)

// --------------------------------------------------------------------------
// Tiers
// --------------------------------------------------------------------------

// Tier is the storage class of an entry
type Tier = internal.Tier

const (
	TierNone = internal.TierNone // free slot, rejected by Insert
	TierNVM  = internal.TierNVM  // durable in the backend and mirrored in the table
	TierRAM  = internal.TierRAM  // table only
)

// ParseTier converts "ram" or "nvm" to a Tier
func ParseTier(s string) (Tier, error) {
	switch s {
	case "ram", "RAM":
		return TierRAM, nil
	case "nvm", "NVM":
		return TierNVM, nil
	default:
		return TierNone, NewError(RetCInvalidArgument, "unknown tier "+s+" (expected ram or nvm)")
	}
}

// --------------------------------------------------------------------------
// Capability Interfaces
// --------------------------------------------------------------------------

// InfiniteTimeout is the lock timeout sentinel meaning "wait indefinitely".
// Any negative timeout is treated the same way.
const InfiniteTimeout time.Duration = -1

// Mutex is the lock capability consumed by the store.
type Mutex interface {
	// Lock acquires exclusive access. A negative timeout waits indefinitely.
	Lock(timeout time.Duration) error
	// Unlock releases exclusive access.
	Unlock()
}

// Backend is the persistent storage capability consumed by the store.
type Backend interface {
	// Insert durably stores the value for key.
	Insert(key string, value []byte) error
	// Get copies the durable value for key into buf and returns its length.
	// The contents of buf are undefined if an error is returned. A value that does
	// not fit into buf is reported with an error wrapping backend.ErrBufferTooSmall.
	Get(key string, buf []byte) (n int, err error)
	// Delete durably removes key.
	Delete(key string) error
}

// Capabilities is the full set of functions a store depends on.
// A nil field means the capability is missing.
type Capabilities struct {
	Lock   func(timeout time.Duration) error
	Unlock func()
	Insert func(key string, value []byte) error
	Get    func(key string, buf []byte) (int, error)
	Delete func(key string) error
}

// NewCapabilities binds a Mutex and a Backend into a capability set
func NewCapabilities(m Mutex, b Backend) *Capabilities {
	return &Capabilities{
		Lock:   m.Lock,
		Unlock: m.Unlock,
		Insert: b.Insert,
		Get:    b.Get,
		Delete: b.Delete,
	}
}

// validate returns a ConfigInvalid error naming the first missing capability
func (c *Capabilities) validate() error {
	if c == nil {
		return NewError(RetCConfigInvalid, "capability set is nil")
	}
	switch {
	case c.Lock == nil:
		return NewError(RetCConfigInvalid, "lock capability is missing")
	case c.Unlock == nil:
		return NewError(RetCConfigInvalid, "unlock capability is missing")
	case c.Insert == nil:
		return NewError(RetCConfigInvalid, "backend insert capability is missing")
	case c.Get == nil:
		return NewError(RetCConfigInvalid, "backend get capability is missing")
	case c.Delete == nil:
		return NewError(RetCConfigInvalid, "backend delete capability is missing")
	}
	return nil
}
