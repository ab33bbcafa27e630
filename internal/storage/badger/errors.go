package badgerstore

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/rzbill/logstore/internal/storage"
)

// WrapError converts BadgerDB errors to storage errors.
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, badger.ErrDBClosed):
		return storage.ErrClosed
	case errors.Is(err, badger.ErrTxnTooBig):
		return fmt.Errorf("%w: %v", storage.ErrTooLarge, err)
	case errors.Is(err, badger.ErrTruncateNeeded):
		return fmt.Errorf("%w: %v", storage.ErrCorrupted, err)
	case errors.Is(err, badger.ErrBlockedWrites):
		return fmt.Errorf("badger: write blocked, database may be full: %w", err)
	default:
		return err
	}
}

// IsFatal reports whether err leaves the store unusable.
func IsFatal(err error) bool {
	return errors.Is(err, storage.ErrClosed) ||
		errors.Is(err, storage.ErrCorrupted) ||
		errors.Is(err, badger.ErrTruncateNeeded)
}
