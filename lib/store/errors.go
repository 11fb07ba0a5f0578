package store

import (
	"errors"
	"fmt"

	"github.com/ValentinKolb/anyKV/lib/driver"
	"github.com/ValentinKolb/anyKV/lib/serialize"
)

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCBackendError                        // 1: The storage medium reported an error.
	RetCUnsupportedOperation                // 2: Operation is not supported by the driver.
	RetCInvalidOperation                    // 3: Invalid operation (e.g. path traversal).
	RetCNotFound                            // 4: The key does not exist.
	RetCReadOnly                            // 5: The store or the medium does not allow the write.
	RetCSerialization                       // 6: The value could not be encoded or decoded.
	RetCInvalidValue                        // 7: The value or an argument is not valid.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "success"
	case RetCBackendError:
		return "backend error"
	case RetCUnsupportedOperation:
		return "unsupported operation"
	case RetCInvalidOperation:
		return "invalid operation"
	case RetCNotFound:
		return "not found"
	case RetCReadOnly:
		return "read only"
	case RetCSerialization:
		return "serialization error"
	case RetCInvalidValue:
		return "invalid value"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error wraps a return code, the affected key (or store uri) and a message.
// The underlying cause, if any, is available through errors.Unwrap.
type Error struct {
	Code RetCode // The return code
	Key  string  // The key (or uri) the error is about
	Msg  string  // The error message
	Err  error   // The cause
}

// Error implements the error interface. The result is always a single line.
func (e *Error) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Key == "" {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return fmt.Sprintf("%s (%s): %s", e.Code, e.Key, msg)
}

// Unwrap returns the cause of the error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors by code, so errors.Is(err, ErrNotFound) holds for every not found error
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError creates a new Error with the given code, key and message.
func NewError(code RetCode, key, msg string) *Error {
	return &Error{
		Code: code,
		Key:  key,
		Msg:  msg,
	}
}

// Sentinels for errors.Is
var (
	ErrNotFound             = &Error{Code: RetCNotFound}
	ErrReadOnly             = &Error{Code: RetCReadOnly}
	ErrSerialization        = &Error{Code: RetCSerialization}
	ErrInvalidValue         = &Error{Code: RetCInvalidValue}
	ErrBackend              = &Error{Code: RetCBackendError}
	ErrUnsupportedOperation = &Error{Code: RetCUnsupportedOperation}
	ErrInvalidOperation     = &Error{Code: RetCInvalidOperation}
)

// wrapError maps driver and pipeline errors onto the store errors
func wrapError(key string, err error) error {
	if err == nil {
		return nil
	}
	var storeErr *Error
	if errors.As(err, &storeErr) {
		return err
	}

	code := RetCBackendError
	switch {
	case errors.Is(err, driver.ErrNotFound):
		code = RetCNotFound
	case errors.Is(err, driver.ErrReadOnly):
		code = RetCReadOnly
	case errors.Is(err, serialize.ErrSerialization):
		code = RetCSerialization
	case errors.Is(err, serialize.ErrInvalidValue):
		code = RetCInvalidValue
	}
	return &Error{Code: code, Key: key, Err: err}
}
