// Package codec converts telemetry logs to and from storage rows.
//
// A Log is flattened into fixed string columns. The opaque Data body is
// framed (and compressed with zstd when that pays off) before being base64
// encoded, and every row carries a crc32c checksum over its values so that
// damaged rows are detected on read.
package codec

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidLog is returned by Validate.
var ErrInvalidLog = errors.New("codec: invalid log")

// Log is one telemetry record.
type Log struct {
	// Type discriminates the record kind, e.g. "event" or "startSession".
	Type       string
	ID         uuid.UUID
	Timestamp  time.Time
	SessionID  uuid.UUID
	UserID     string
	Properties map[string]string
	// Data is an opaque type specific body.
	Data []byte
}

// Validate reports whether l can be stored.
func (l *Log) Validate() error {
	if l == nil {
		return errors.Join(ErrInvalidLog, errors.New("nil log"))
	}
	if l.Type == "" {
		return errors.Join(ErrInvalidLog, errors.New("type is required"))
	}
	return nil
}

// Entry is a decoded row.
type Entry struct {
	Channel string
	EntryID string
	Log     Log
}
