package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Body frame: [1 byte mode][4 bytes original size][payload]
const (
	modeRaw  byte = 0x00
	modeZstd byte = 0x01

	frameHeader = 5

	// DefaultCompressThreshold is the smallest body that is considered for
	// compression.
	DefaultCompressThreshold = 1024
	compressionRatio         = 0.8
	maxBodySize              = 64 << 20
)

var (
	encoder *zstd.Encoder
	decoder *zstd.Decoder
)

func init() {
	var err error
	encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic(fmt.Sprintf("failed to create zstd encoder: %v", err))
	}
	decoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxBodySize))
	if err != nil {
		panic(fmt.Sprintf("failed to create zstd decoder: %v", err))
	}
}

// frameBody compresses data when it is at least threshold bytes and shrinks
// below 80% of its size. A threshold <= 0 disables compression.
func frameBody(data []byte, threshold int) []byte {
	if threshold > 0 && len(data) >= threshold {
		compressed := encoder.EncodeAll(data, nil)
		if float64(len(compressed)) < float64(len(data))*compressionRatio {
			return wrap(modeZstd, compressed, len(data))
		}
	}
	return wrap(modeRaw, data, len(data))
}

func wrap(mode byte, payload []byte, size int) []byte {
	out := make([]byte, frameHeader+len(payload))
	out[0] = mode
	binary.BigEndian.PutUint32(out[1:frameHeader], uint32(size))
	copy(out[frameHeader:], payload)
	return out
}

func unframeBody(frame []byte) ([]byte, error) {
	if len(frame) < frameHeader {
		return nil, fmt.Errorf("frame too short: %d bytes", len(frame))
	}
	size := binary.BigEndian.Uint32(frame[1:frameHeader])
	payload := frame[frameHeader:]
	switch frame[0] {
	case modeRaw:
		if uint32(len(payload)) != size {
			return nil, fmt.Errorf("size mismatch: expected %d, got %d", size, len(payload))
		}
		return payload, nil
	case modeZstd:
		if size > maxBodySize {
			return nil, errors.New("declared size exceeds limit")
		}
		out, err := decoder.DecodeAll(payload, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("zstd decompression failed: %w", err)
		}
		if uint32(len(out)) != size {
			return nil, fmt.Errorf("decompressed size mismatch: expected %d, got %d", size, len(out))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown body mode: %d", frame[0])
	}
}
