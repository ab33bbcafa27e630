package storage

import (
	"encoding/binary"
)

// Keyspace helpers for the key/value backends.
//
// Layout (byte-wise, lexicographically sortable):
// - tbl/{table}/m              (table metadata: lastSeq)
// - tbl/{table}/r/{seq_be8}    (rows in insertion order)

var (
	tblPrefix  = []byte("tbl/")
	metaSuffix = []byte("/m")
	rowSeg     = []byte("/r/")
)

// KeyTableMeta builds the table metadata key.
func KeyTableMeta(table string) []byte {
	k := make([]byte, 0, len(tblPrefix)+len(table)+len(metaSuffix))
	k = append(k, tblPrefix...)
	k = append(k, table...)
	k = append(k, metaSuffix...)
	return k
}

// KeyTableRowPrefix returns the prefix shared by every row of table.
func KeyTableRowPrefix(table string) []byte {
	k := make([]byte, 0, len(tblPrefix)+len(table)+len(rowSeg)+8)
	k = append(k, tblPrefix...)
	k = append(k, table...)
	k = append(k, rowSeg...)
	return k
}

// KeyTableRow builds a row key with a big-endian sequence for insertion ordering.
func KeyTableRow(table string, seq uint64) []byte {
	return binary.BigEndian.AppendUint64(KeyTableRowPrefix(table), seq)
}

// SeqFromRowKey extracts the sequence from a row key.
func SeqFromRowKey(key []byte) uint64 {
	if len(key) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(key[len(key)-8:])
}

// PrefixUpperBound returns the smallest key greater than every key starting
// with prefix, or nil when no such key exists.
func PrefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

// EncodeSeq returns the 8 byte big-endian form stored in table metadata.
func EncodeSeq(seq uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, seq)
}

// DecodeSeq reads table metadata; short values decode as zero.
func DecodeSeq(b []byte) uint64 {
	if len(b) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b[:8])
}
