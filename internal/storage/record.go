package storage

import (
	"encoding/binary"
	"hash/crc32"
)

// Row record encoding used by the key/value backends:
//
//	uvarint(numColumns) | (uvarint(len) | name | uvarint(len) | value)* | crc32c(body)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// EncodeRow serializes r into a checksummed record.
func EncodeRow(r Row) []byte {
	size := binary.MaxVarintLen64 + 4
	for _, c := range r {
		size += 2*binary.MaxVarintLen64 + len(c.Name) + len(c.Value)
	}
	out := make([]byte, 0, size)
	out = binary.AppendUvarint(out, uint64(len(r)))
	for _, c := range r {
		out = binary.AppendUvarint(out, uint64(len(c.Name)))
		out = append(out, c.Name...)
		out = binary.AppendUvarint(out, uint64(len(c.Value)))
		out = append(out, c.Value...)
	}
	return binary.BigEndian.AppendUint32(out, crc32.Checksum(out, castagnoli))
}

// DecodeRow parses a record produced by EncodeRow. It reports false when the
// record is truncated or fails its checksum.
func DecodeRow(b []byte) (Row, bool) {
	if len(b) < 1+4 {
		return nil, false
	}
	body := b[:len(b)-4]
	if crc32.Checksum(body, castagnoli) != binary.BigEndian.Uint32(b[len(b)-4:]) {
		return nil, false
	}
	n, off := binary.Uvarint(body)
	if off <= 0 || n > uint64(len(body)) {
		return nil, false
	}
	row := make(Row, 0, n)
	for i := uint64(0); i < n; i++ {
		name, next, ok := readString(body, off)
		if !ok {
			return nil, false
		}
		value, next2, ok := readString(body, next)
		if !ok {
			return nil, false
		}
		off = next2
		row = append(row, Column{Name: name, Value: value})
	}
	if off != len(body) {
		return nil, false
	}
	return row, true
}

func readString(b []byte, off int) (string, int, bool) {
	if off >= len(b) {
		return "", 0, false
	}
	l, n := binary.Uvarint(b[off:])
	if n <= 0 {
		return "", 0, false
	}
	start := off + n
	end := start + int(l)
	if l > uint64(len(b)) || end > len(b) {
		return "", 0, false
	}
	return string(b[start:end]), end, true
}
