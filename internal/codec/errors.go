package codec

import "fmt"

// DecodeError describes a row that could not be turned back into a Log.
type DecodeError struct {
	// EntryID of the offending row when it could be read.
	EntryID string
	Column  string
	Reason  string
	Err     error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("codec: column %s: %s", e.Column, e.Reason)
	if e.EntryID != "" {
		msg = fmt.Sprintf("codec: entry %s: column %s: %s", e.EntryID, e.Column, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }
