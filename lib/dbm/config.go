package dbm

import (
	"fmt"
	"time"
)

// Default values used by DefaultConfig
const (
	DefaultCapacity       = 30
	DefaultMaxKeyLength   = 32
	DefaultMaxValueLength = 64
)

// Config configures a Store at construction time. None of the values can change afterward.
type Config struct {
	// Name labels the store in logs and metrics. Default: "default"
	Name string

	// Capacity is the fixed number of slots in the table.
	Capacity int

	// MaxKeyLength is the maximum key length in bytes (inclusive).
	MaxKeyLength int

	// MaxValueLength is the maximum value length in bytes (inclusive).
	MaxValueLength int

	// LockTimeout is passed to the lock capability on every operation.
	// A negative value (InfiniteTimeout) waits indefinitely.
	LockTimeout time.Duration

	// StagedBackendIO releases the lock while backend capabilities run and
	// re-checks the table before mutating it. When false (default) backend
	// calls run inside the critical section.
	StagedBackendIO bool
}

// DefaultConfig returns the default store configuration
func DefaultConfig() Config {
	return Config{
		Name:           "default",
		Capacity:       DefaultCapacity,
		MaxKeyLength:   DefaultMaxKeyLength,
		MaxValueLength: DefaultMaxValueLength,
		LockTimeout:    InfiniteTimeout,
	}
}

// validate checks the sizes and fills in defaults for optional fields
func (c *Config) validate() error {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive, got %d", c.Capacity)
	}
	if c.MaxKeyLength <= 0 {
		return fmt.Errorf("max key length must be positive, got %d", c.MaxKeyLength)
	}
	if c.MaxValueLength <= 0 {
		return fmt.Errorf("max value length must be positive, got %d", c.MaxValueLength)
	}
	return nil
}
