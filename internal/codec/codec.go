package codec

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"hash/crc32"
	"time"

	"github.com/google/uuid"

	"github.com/rzbill/logstore/internal/storage"
)

// Column names of the log table.
const (
	ColChannel    = "Channel"
	ColLogID      = "LogId"
	ColType       = "Type"
	ColTimestamp  = "Timestamp"
	ColID         = "Id"
	ColSessionID  = "SessionId"
	ColUserID     = "UserId"
	ColProperties = "Properties"
	ColData       = "Data"
	ColChecksum   = "Checksum"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Codec encodes logs with a configurable compression threshold.
// The zero value never compresses.
type Codec struct {
	CompressThreshold int
}

// Default compresses bodies of DefaultCompressThreshold bytes or more.
var Default = Codec{CompressThreshold: DefaultCompressThreshold}

// Encode flattens l into a row using the Default codec.
func Encode(channel, entryID string, l *Log) storage.Row { return Default.Encode(channel, entryID, l) }

// Decode parses a row using the Default codec.
func Decode(row storage.Row) (Entry, error) { return Default.Decode(row) }

// Encode flattens l into a row. It never fails; callers validate first.
func (c Codec) Encode(channel, entryID string, l *Log) storage.Row {
	props := "{}"
	if len(l.Properties) > 0 {
		// map[string]string always marshals; keys come out sorted.
		b, _ := json.Marshal(l.Properties)
		props = string(b)
	}
	session := ""
	if l.SessionID != uuid.Nil {
		session = l.SessionID.String()
	}
	row := storage.Row{
		{Name: ColChannel, Value: channel},
		{Name: ColLogID, Value: entryID},
		{Name: ColType, Value: l.Type},
		{Name: ColTimestamp, Value: l.Timestamp.UTC().Format(time.RFC3339Nano)},
		{Name: ColID, Value: l.ID.String()},
		{Name: ColSessionID, Value: session},
		{Name: ColUserID, Value: l.UserID},
		{Name: ColProperties, Value: props},
		{Name: ColData, Value: base64.StdEncoding.EncodeToString(frameBody(l.Data, c.CompressThreshold))},
	}
	return append(row, storage.Column{Name: ColChecksum, Value: checksum(row)})
}

func checksum(row storage.Row) string {
	crc := uint32(0)
	var lenBuf [binary.MaxVarintLen64]byte
	for _, col := range row {
		n := binary.PutUvarint(lenBuf[:], uint64(len(col.Value)))
		crc = crc32.Update(crc, castagnoli, lenBuf[:n])
		crc = crc32.Update(crc, castagnoli, []byte(col.Value))
	}
	return hex.EncodeToString(binary.BigEndian.AppendUint32(nil, crc))
}

var required = []string{ColChannel, ColLogID, ColType, ColTimestamp, ColData}

// Decode parses a row produced by Encode. Failures are *DecodeError.
func (c Codec) Decode(row storage.Row) (Entry, error) {
	entryID, _ := row.Get(ColLogID)
	fail := func(col, reason string, err error) (Entry, error) {
		return Entry{}, &DecodeError{EntryID: entryID, Column: col, Reason: reason, Err: err}
	}

	for _, col := range required {
		if _, ok := row.Get(col); !ok {
			return fail(col, "missing", nil)
		}
	}

	if sum, ok := row.Get(ColChecksum); ok {
		body := make(storage.Row, 0, len(row))
		for _, col := range row {
			if col.Name != ColChecksum {
				body = append(body, col)
			}
		}
		if got := checksum(body); got != sum {
			return fail(ColChecksum, "mismatch (stored "+sum+", computed "+got+")", storage.ErrCorrupted)
		}
	}

	channel, _ := row.Get(ColChannel)
	e := Entry{Channel: channel, EntryID: entryID}
	e.Log.Type, _ = row.Get(ColType)
	if e.Log.Type == "" {
		return fail(ColType, "empty", nil)
	}

	ts, _ := row.Get(ColTimestamp)
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return fail(ColTimestamp, "unparseable", err)
	}
	e.Log.Timestamp = t

	if v, ok := row.Get(ColID); ok && v != "" {
		if e.Log.ID, err = uuid.Parse(v); err != nil {
			return fail(ColID, "invalid uuid", err)
		}
	}
	if v, ok := row.Get(ColSessionID); ok && v != "" {
		if e.Log.SessionID, err = uuid.Parse(v); err != nil {
			return fail(ColSessionID, "invalid uuid", err)
		}
	}
	e.Log.UserID, _ = row.Get(ColUserID)

	if v, ok := row.Get(ColProperties); ok && v != "" && v != "{}" {
		if err := json.Unmarshal([]byte(v), &e.Log.Properties); err != nil {
			return fail(ColProperties, "invalid json", err)
		}
	}

	data, _ := row.Get(ColData)
	frame, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return fail(ColData, "invalid base64", err)
	}
	if e.Log.Data, err = unframeBody(frame); err != nil {
		return fail(ColData, "invalid body", err)
	}
	return e, nil
}
