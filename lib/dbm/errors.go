package dbm

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess           RetCode = iota // 0: Operation executed successfully.
	RetCConfigInvalid                    // 1: Capability set missing or incomplete, or store not initialized.
	RetCInvalidArgument                  // 2: Empty key, nil value, bad tier or oversized key/value.
	RetCCapacityExhausted                // 3: New key but no free slot.
	RetCBackendFailure                   // 4: Backend capability reported failure.
	RetCNotFound                         // 5: No entry in the table (nor in the backend for Get).
	RetCBufferTooSmall                   // 6: Caller buffer cannot hold the value.
	RetCLockFailure                      // 7: Lock capability did not grant the lock.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCConfigInvalid:
		return "ConfigInvalid"
	case RetCInvalidArgument:
		return "InvalidArgument"
	case RetCCapacityExhausted:
		return "CapacityExhausted"
	case RetCBackendFailure:
		return "BackendFailure"
	case RetCNotFound:
		return "NotFound"
	case RetCBufferTooSmall:
		return "BufferTooSmall"
	case RetCLockFailure:
		return "LockFailure"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is returned by every failing store operation. It carries a return code,
// a message and optionally the error reported by a capability.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message
	Err  error   // The capability error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dbm error (code %s): %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("dbm error (code %s): %s", e.Code, e.Msg)
}

// Unwrap returns the capability error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so errors.Is(err, ErrNotFound) works
// regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// wrapError creates a new Error that wraps err
func wrapError(code RetCode, msg string, err error) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
		Err:  err,
	}
}

// Sentinels for errors.Is checks
var (
	ErrConfigInvalid     = NewError(RetCConfigInvalid, "config invalid")
	ErrInvalidArgument   = NewError(RetCInvalidArgument, "invalid argument")
	ErrCapacityExhausted = NewError(RetCCapacityExhausted, "capacity exhausted")
	ErrBackendFailure    = NewError(RetCBackendFailure, "backend failure")
	ErrNotFound          = NewError(RetCNotFound, "not found")
	ErrBufferTooSmall    = NewError(RetCBufferTooSmall, "buffer too small")
	ErrLockFailure       = NewError(RetCLockFailure, "lock failure")
)

// CodeOf returns the return code carried by err.
// nil maps to RetCSuccess, foreign errors map to RetCBackendFailure.
func CodeOf(err error) RetCode {
	if err == nil {
		return RetCSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return RetCBackendFailure
}
