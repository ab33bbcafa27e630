package logstore

import (
	"errors"
	"fmt"

	"github.com/rzbill/logstore/internal/engine"
)

var (
	// ErrStorageClosed is returned by every operation submitted after
	// Shutdown began.
	ErrStorageClosed = engine.ErrClosed
	// ErrInvalidArgument reports a rejected argument such as an empty
	// channel name or a non-positive limit.
	ErrInvalidArgument = errors.New("logstore: invalid argument")
)

// StorageError wraps a failure of the underlying adapter.
type StorageError struct {
	Op      string
	Channel string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Channel == "" {
		return fmt.Sprintf("logstore: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("logstore: %s %q: %v", e.Op, e.Channel, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
